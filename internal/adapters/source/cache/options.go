package cache

import "time"

// Option applies a configuration option to the Cache.
type Option func(*memoCache)

// WithCooldown sets how long a fetched address is suppressed.
// A cooldown <= 0 lets every request through.
func WithCooldown(d time.Duration) Option {
	return func(c *memoCache) {
		c.cooldown = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *memoCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMaxEntries bounds the number of tracked addresses; the oldest entry
// is evicted first. maxEntries <= 0 means unbounded.
func WithMaxEntries(maxEntries int) Option {
	return func(c *memoCache) {
		c.maxEntries = maxEntries
	}
}
