package repology

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/obentoo/osutil/internal/common/httpclient"
)

const fooProject = `[
  {"repo": "opensuse_tumbleweed", "srcname": "foo", "visiblename": "foo", "version": "1.0", "status": "outdated", "categories": ["devel"]},
  {"repo": "arch", "subrepo": "extra", "visiblename": "foo", "version": "1.2", "status": "newest", "maintainers": ["a@example.org"]},
  {"repo": "opensuse_leap_15_4", "version": "0.9", "status": "legacy", "origversion": "0.9-lp154.1"}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	hc := httpclient.New(httpclient.Options{UserAgent: "osutil/test"})
	hc.SetHTTPClient(server.Client())
	return NewClient(server.URL+"/api/v1/", []string{"python-", "python3-"}, hc)
}

// =============================================================================
// Property-Based Tests
// =============================================================================

// TestNormalizeStripsPrefix tests that prefixed names are looked up without the prefix
func TestNormalizeStripsPrefix(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	prefixes := []string{"python-", "python3-"}
	nameGen := gen.RegexMatch(`^[a-z][a-z0-9.]{0,15}$`)

	properties.Property("Normalize(prefix+name) == name", prop.ForAll(
		func(prefix, name string) bool {
			return Normalize(prefix+name, prefixes) == name
		},
		gen.OneConstOf("python-", "python3-"),
		nameGen,
	))

	properties.Property("names without a known prefix are unchanged", prop.ForAll(
		func(name string) bool {
			if strings.HasPrefix(name, "python") {
				return true
			}
			return Normalize(name, prefixes) == name
		},
		nameGen,
	))

	properties.TestingRun(t)
}

// =============================================================================
// Unit Tests
// =============================================================================

func TestNormalizeEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		pkg      string
		prefixes []string
		want     string
	}{
		{"bare prefix kept", "python-", []string{"python-"}, "python-"},
		{"first match wins", "python3-foo", []string{"python3-", "python"}, "foo"},
		{"empty prefix ignored", "foo", []string{""}, "foo"},
		{"no prefixes", "python-foo", nil, "python-foo"},
		{"prefix only at start", "libpython-foo", []string{"python-"}, "libpython-foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.pkg, tt.prefixes); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.pkg, got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	var gotPath, gotAgent string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(fooProject))
	})

	entries, err := client.Lookup(context.Background(), "foo")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	want := []Entry{
		{Repo: TumbleweedRepo, SrcName: "foo", VisibleName: "foo", Version: "1.0", Status: StatusOutdated, Categories: []string{"devel"}},
		{Repo: "arch", Subrepo: "extra", VisibleName: "foo", Version: "1.2", Status: StatusNewest, Maintainers: []string{"a@example.org"}},
		{Repo: LeapRepo("15.4"), Version: "0.9", Status: StatusLegacy, OrigVersion: "0.9-lp154.1"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if gotPath != "/api/v1/project/foo" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAgent != "osutil/test" {
		t.Errorf("User-Agent = %q", gotAgent)
	}
}

func TestLookupQueriesNormalizedName(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("[]"))
	})

	if _, err := client.Lookup(context.Background(), "python-requests"); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if gotPath != "/api/v1/project/requests" {
		t.Errorf("path = %q, want the stripped name", gotPath)
	}
}

func TestLookupUnknownPackageIsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty array", http.StatusOK, "[]"},
		{"null", http.StatusOK, "null"},
		{"not found", http.StatusNotFound, "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			entries, err := client.Lookup(context.Background(), "bar")
			if err != nil {
				t.Fatalf("unknown package must not be an error: %v", err)
			}
			if entries == nil || len(entries) != 0 {
				t.Errorf("expected empty non-nil slice, got %#v", entries)
			}
		})
	}
}

func TestLookupErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, "oops", httpclient.ErrRemoteQuery},
		{"forbidden", http.StatusForbidden, "", httpclient.ErrRemoteQuery},
		{"html", http.StatusOK, "<html></html>", httpclient.ErrDecode},
		{"object instead of array", http.StatusOK, `{"repo": "arch"}`, httpclient.ErrDecode},
		{"wrong field type", http.StatusOK, `[{"repo": "arch", "version": 1}]`, httpclient.ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Lookup(context.Background(), "python-foo")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if err != nil && !strings.Contains(err.Error(), "python-foo") {
				t.Errorf("error should carry the original package name: %v", err)
			}
		})
	}
}

func TestLookupSharesInFlightRequests(t *testing.T) {
	var requests int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		started <- struct{}{}
		<-release
		w.Write([]byte(fooProject))
	})

	var wg sync.WaitGroup
	results := make([][]Entry, 2)
	for i, name := range []string{"python-foo", "python3-foo"} {
		if i == 1 {
			<-started
		}
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			entries, err := client.Lookup(context.Background(), name)
			if err != nil {
				t.Errorf("Lookup(%s) failed: %v", name, err)
			}
			results[i] = entries
		}(i, name)
	}

	// Give the second lookup time to join the in-flight call
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if diff := cmp.Diff(results[0], results[1]); diff != "" {
		t.Errorf("shared lookups differ:\n%s", diff)
	}
	results[0][0].Version = "mutated"
	if results[1][0].Version == "mutated" {
		t.Error("callers must not share the same backing slice")
	}
}
