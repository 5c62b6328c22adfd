package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ekaya-inc/ekam-query/pkg/models"
)

type entry struct {
	timestamp time.Time
	response  *models.QueryResponse
}

// MemoryCache is the in-process cache backend.
// Two concurrent misses on the same key may both compute; the last Set wins.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	maxSize int
	clock   Clock
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty cache holding at most maxSize entries for ttl each.
func NewMemoryCache(ttl time.Duration, maxSize int, opts ...Option) *MemoryCache {
	o := buildOptions(opts)
	return &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		maxSize: maxSize,
		clock:   o.clock,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (*models.QueryResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if expired(c.clock(), e.timestamp, c.ttl) {
		delete(c.entries, key)
		return nil, false
	}
	return e.response.Clone(), true
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, resp *models.QueryResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{timestamp: c.clock(), response: resp.Clone()}
	if len(c.entries) > c.maxSize {
		c.evictOldestLocked()
	}
}

// Len implements Cache.
func (c *MemoryCache) Len(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.timestamp.Before(oldest) {
			oldestKey, oldest, first = k, e.timestamp, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
