// Package source defines the search source capability and its concrete
// adapters. Adapters turn a query into raw results; every failure is scoped
// to the adapter that produced it.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matomesearch/matome/internal/models"
)

// Adapter is the capability every search source implements. Fetch returns
// results in source order or fails with an error describing the cause; the
// per-source timeout arrives through ctx. Adapters are safe to invoke
// concurrently from independent calls.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, query string, languages []string, maxResults int) ([]models.Result, error)
}

// AdapterError is a source-scoped failure: network error, timeout, or parse
// failure, tagged with the source that produced it.
type AdapterError struct {
	Source string
	Cause  error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Cause)
}

func (e *AdapterError) Unwrap() error { return e.Cause }

// Registry resolves source identifiers to adapters.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry creates a Registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an adapter under its name.
func (r *Registry) Register(a Adapter) {
	if _, exists := r.adapters[a.Name()]; !exists {
		r.order = append(r.order, a.Name())
	}
	r.adapters[a.Name()] = a
}

// Resolve maps requested source names to adapters in request order. Names
// with no registered adapter are silently dropped, and repeated names resolve
// once. An empty return means the whole request was unresolvable; rejecting
// it is the caller's job.
func (r *Registry) Resolve(names []string) []Adapter {
	seen := make(map[string]bool, len(names))
	resolved := make([]Adapter, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if a, ok := r.adapters[name]; ok {
			resolved = append(resolved, a)
		}
	}
	return resolved
}

// Names returns the registered source identifiers in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

const (
	// Desktop browser User-Agent: some endpoints serve reduced or blocked
	// pages to obvious non-browser clients.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

	// maxBodyBytes caps how much of a response body an adapter will read.
	maxBodyBytes = 2 << 20

	defaultClientTimeout = 15 * time.Second
)

// fetchBody issues a GET with a browser User-Agent and returns the response
// body capped at maxBodyBytes. Non-200 statuses are errors.
func fetchBody(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// firstLanguage returns the first requested language tag, or "unknown" when
// the request carries none.
func firstLanguage(languages []string) string {
	if len(languages) > 0 {
		return languages[0]
	}
	return "unknown"
}
