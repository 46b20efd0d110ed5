package fetch

import (
	"time"

	"github.com/okian/stagerank/pkg/logger"
)

// Option applies a configuration option to the HTTPFetcher.
type Option func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithTimeout bounds a single attempt.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.client.HTTPClient.Timeout = d
		}
	}
}

// WithRetryMax sets how many times a failed attempt is retried.
func WithRetryMax(n int) Option {
	return func(f *HTTPFetcher) {
		if n >= 0 {
			f.client.RetryMax = n
		}
	}
}

// WithRetryWait sets the backoff bounds between attempts.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.client.RetryWaitMin = minWait
		f.client.RetryWaitMax = maxWait
	}
}

// WithLogger routes retry diagnostics to log.
func WithLogger(log logger.Logger) Option {
	return func(f *HTTPFetcher) {
		if log != nil {
			f.client.Logger = NewLeveledAdapter(log)
		}
	}
}
