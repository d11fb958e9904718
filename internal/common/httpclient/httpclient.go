// Package httpclient provides the HTTP client shared by the build service and
// upstream tracker clients.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

// Error kinds shared by every remote client
var (
	// ErrRemoteQuery is returned when a request cannot be completed: transport
	// failure, timeout or an unexpected HTTP status
	ErrRemoteQuery = errors.New("remote query failed")
	// ErrDecode is returned when a response does not match the expected schema
	ErrDecode = errors.New("unable to decode response")
	// ErrRequestTimeout is returned when a request times out
	ErrRequestTimeout = errors.New("request timeout")
)

// Options holds configuration for a Client.
type Options struct {
	// Timeout bounds each individual request (default: 30s)
	Timeout time.Duration
	// MaxRetries is the number of extra attempts on transport errors, 5xx and
	// 429 responses (default: 0, a failed request is not reattempted)
	MaxRetries int
	// BaseDelay is the initial delay before the first retry (default: 1s)
	BaseDelay time.Duration
	// MaxDelay caps the delay between retries (default: 4s)
	MaxDelay time.Duration
	// UserAgent is sent with every request when set
	UserAgent string
	// Username and Password enable HTTP Basic authentication when Username is set
	Username string
	Password string
	// RequestsPerSecond limits the request rate; 0 or less means unlimited
	RequestsPerSecond float64
}

// DefaultOptions returns the default client options.
func DefaultOptions() Options {
	return Options{
		Timeout:   30 * time.Second,
		BaseDelay: 1 * time.Second,
		MaxDelay:  4 * time.Second,
	}
}

// Client wraps an http.Client with authentication, rate limiting and
// optional retries. It is safe for concurrent use.
type Client struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	// delayFunc allows overriding the retry delay for testing
	delayFunc func(context.Context, time.Duration) error
}

// New creates a Client from opts. Zero-valued durations fall back to the defaults.
func New(opts Options) *Client {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = def.BaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = def.MaxDelay
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	c := &Client{
		client:    &http.Client{Timeout: opts.Timeout},
		opts:      opts,
		delayFunc: sleepContext,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// SetHTTPClient sets a custom underlying HTTP client (useful for testing).
// The configured timeout is kept.
func (c *Client) SetHTTPClient(client *http.Client) {
	client.Timeout = c.opts.Timeout
	c.client = client
}

// SetDelayFunc sets a custom retry delay function (useful for testing).
func (c *Client) SetDelayFunc(fn func(context.Context, time.Duration) error) {
	c.delayFunc = fn
}

// Options returns the effective client options.
func (c *Client) Options() Options {
	return c.opts
}

// Do executes req with authentication, rate limiting and retries. A non-nil
// response is returned for every HTTP status; status handling belongs to the
// caller. Transport failures are wrapped with ErrRemoteQuery.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.delayFunc(ctx, c.calculateDelay(attempt)); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRemoteQuery, err)
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRemoteQuery, err)
			}
		}

		// GetBody lets requests with a body be replayed on retry
		reqCopy := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRemoteQuery, err)
			}
			reqCopy.Body = body
		}
		c.applyHeaders(reqCopy)

		resp, err := c.client.Do(reqCopy)
		if err != nil {
			if isTimeoutError(err) {
				lastErr = fmt.Errorf("%w: %w: %v", ErrRemoteQuery, ErrRequestTimeout, err)
			} else {
				lastErr = fmt.Errorf("%w: %v", ErrRemoteQuery, err)
			}
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		if attempt < c.opts.MaxRetries && shouldRetry(resp.StatusCode) {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: server error: status %d", ErrRemoteQuery, resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// Get performs a GET request and returns the response body together with
// the status code.
func (c *Client) Get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRemoteQuery, err)
	}
	return c.fetch(ctx, req)
}

// Post performs a body-less POST request and returns the response body
// together with the status code.
func (c *Client) Post(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRemoteQuery, err)
	}
	return c.fetch(ctx, req)
}

func (c *Client) fetch(ctx context.Context, req *http.Request) ([]byte, int, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: failed to read response body: %v", ErrRemoteQuery, err)
	}
	return body, resp.StatusCode, nil
}

// applyHeaders sets User-Agent and Basic credentials on a request.
func (c *Client) applyHeaders(req *http.Request) {
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	if c.opts.Username != "" {
		req.SetBasicAuth(c.opts.Username, c.opts.Password)
	}
}

// calculateDelay uses exponential backoff: baseDelay * 2^(attempt-1), capped at MaxDelay.
func (c *Client) calculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := c.opts.BaseDelay * time.Duration(1<<(attempt-1))
	if delay > c.opts.MaxDelay {
		delay = c.opts.MaxDelay
	}
	return delay
}

// shouldRetry reports whether a status code is worth another attempt.
func shouldRetry(statusCode int) bool {
	if statusCode >= 500 && statusCode < 600 {
		return true
	}
	return statusCode == http.StatusTooManyRequests
}

// isTimeoutError checks if an error is a timeout error.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatusError formats an unexpected HTTP status as an ErrRemoteQuery.
func StatusError(status int, body []byte) error {
	const maxBody = 200
	msg := string(body)
	if len(msg) > maxBody {
		cut := maxBody
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	if msg == "" {
		return fmt.Errorf("%w: status %d", ErrRemoteQuery, status)
	}
	return fmt.Errorf("%w: status %d: %s", ErrRemoteQuery, status, msg)
}
