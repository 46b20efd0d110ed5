// Package fetch retrieves results documents over HTTP or from local files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/okian/stagerank/pkg/metrics"
)

const (
	defaultUserAgent = "Mozilla/5.0"
	defaultTimeout   = 30 * time.Second
	defaultRetryMax  = 3
)

// Fetcher returns the body of a results document.
type Fetcher interface {
	Fetch(ctx context.Context, address string) ([]byte, error)
}

// HTTPFetcher fetches documents with retries on transient failures.
type HTTPFetcher struct {
	client    *retryablehttp.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher. Retry logging is off unless WithLogger is given.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = defaultRetryMax
	client.HTTPClient.Timeout = defaultTimeout
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	f := &HTTPFetcher{client: client, userAgent: defaultUserAgent}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs address. Any status but 200 is ErrUnexpectedStatus and the body
// is discarded.
func (f *HTTPFetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	start := time.Now()
	body, err := f.get(ctx, address)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordFetch(outcome, float64(time.Since(start).Milliseconds()))
	return body, err
}

func (f *HTTPFetcher) get(ctx context.Context, address string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, address, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, address, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	return body, nil
}

// FileFetcher reads documents from the local file system; the address is a path.
type FileFetcher struct{}

// Fetch reads the file at path.
func (FileFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return body, nil
}
