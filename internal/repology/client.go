// Package repology looks up the per-repository state of a package on the
// Repology tracker.
package repology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/obentoo/osutil/internal/common/httpclient"
)

// Client queries the Repology project API
type Client struct {
	apiURL   string
	prefixes []string
	http     *httpclient.Client
	group    singleflight.Group
}

// NewClient creates a client for apiURL (e.g. https://repology.org/api/v1).
// Package names starting with one of prefixes are looked up without it.
func NewClient(apiURL string, prefixes []string, hc *httpclient.Client) *Client {
	return &Client{
		apiURL:   strings.TrimRight(apiURL, "/"),
		prefixes: prefixes,
		http:     hc,
	}
}

// Normalize strips the first matching packaging prefix from pkg, so that
// "python-requests" is looked up as "requests". Names that would become
// empty are returned unchanged.
func Normalize(pkg string, prefixes []string) string {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(pkg, p); ok && rest != "" {
			return rest
		}
	}
	return pkg
}

// Lookup returns every repository entry Repology knows for pkg. A package
// unknown to Repology yields an empty slice, not an error. Concurrent
// lookups resolving to the same project share one request.
func (c *Client) Lookup(ctx context.Context, pkg string) ([]Entry, error) {
	project := Normalize(pkg, c.prefixes)

	v, err, _ := c.group.Do(project, func() (interface{}, error) {
		return c.fetch(ctx, project)
	})
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", pkg, err)
	}

	// Callers own their slice
	shared := v.([]Entry)
	entries := make([]Entry, len(shared))
	copy(entries, shared)
	return entries, nil
}

func (c *Client) fetch(ctx context.Context, project string) ([]Entry, error) {
	u := fmt.Sprintf("%s/project/%s", c.apiURL, url.PathEscape(project))

	body, status, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("unable to get project information from repology: %w", err)
	}
	switch {
	case status == http.StatusNotFound:
		return []Entry{}, nil
	case status != http.StatusOK:
		return nil, fmt.Errorf("unable to get project information from repology: %w", httpclient.StatusError(status, body))
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: repology project %s: %v", httpclient.ErrDecode, project, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
