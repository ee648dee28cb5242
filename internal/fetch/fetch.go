// Package fetch is the network boundary of the collector: it retrieves
// raw feed bytes over HTTP and nothing else.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single feed request end to end.
	DefaultTimeout = 25 * time.Second

	userAgent = "finnews/1.0 (finance news collector)"
	accept    = "application/rss+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"

	// maxBodyBytes caps the response body read; feeds are small and a
	// misbehaving endpoint should not exhaust memory.
	maxBodyBytes = 8 << 20
)

// FetchError covers network failures, non-success HTTP statuses and
// unreadable response bodies. It is recovered per source at the
// aggregator boundary.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher issues feed requests with a descriptive client identifier and
// a fixed timeout. Safe for concurrent use.
type Fetcher struct {
	client *http.Client
}

func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch GETs the URL and returns the raw response body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
