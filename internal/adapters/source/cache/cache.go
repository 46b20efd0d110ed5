// Package cache suppresses repeated fetches of the same results address.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/okian/stagerank/pkg/metrics"
)

const (
	defaultCooldown   = 10 * time.Minute
	defaultMaxEntries = 1024
)

// Cache is a per-address go/no-go memo.
type Cache interface {
	// ShouldFetch reports whether address may be fetched now and, if so,
	// records the fetch. Returns false while the address is cooling down.
	ShouldFetch(ctx context.Context, address string) bool

	// Forget drops address so the next request fetches it. Used when the
	// fetch that followed a go decision failed.
	Forget(ctx context.Context, address string)

	// Len returns the number of tracked addresses.
	Len() int
}

type memoCache struct {
	mu         sync.Mutex
	fetchedAt  map[string]time.Time
	cooldown   time.Duration
	maxEntries int
	now        func() time.Time
}

// New creates an in-memory cache with a ten minute cooldown.
func New(opts ...Option) Cache {
	c := &memoCache{
		fetchedAt:  make(map[string]time.Time),
		cooldown:   defaultCooldown,
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *memoCache) ShouldFetch(_ context.Context, address string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if at, ok := c.fetchedAt[address]; ok && now.Sub(at) < c.cooldown {
		metrics.RecordFetchSkipped()
		return false
	}

	if _, ok := c.fetchedAt[address]; !ok && c.maxEntries > 0 && len(c.fetchedAt) >= c.maxEntries {
		c.evict(now)
	}
	c.fetchedAt[address] = now
	metrics.UpdateCacheEntries(len(c.fetchedAt))
	return true
}

func (c *memoCache) Forget(_ context.Context, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.fetchedAt, address)
	metrics.UpdateCacheEntries(len(c.fetchedAt))
}

func (c *memoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fetchedAt)
}

// evict drops expired entries, or the oldest one when none has expired.
// Must be called with c.mu held.
func (c *memoCache) evict(now time.Time) {
	var oldest string
	var oldestAt time.Time
	for addr, at := range c.fetchedAt {
		if now.Sub(at) >= c.cooldown {
			delete(c.fetchedAt, addr)
			continue
		}
		if oldest == "" || at.Before(oldestAt) {
			oldest, oldestAt = addr, at
		}
	}
	if len(c.fetchedAt) >= c.maxEntries {
		delete(c.fetchedAt, oldest)
	}
}
