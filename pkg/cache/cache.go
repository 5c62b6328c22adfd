// Package cache stores query responses keyed by the exact raw query text.
package cache

import (
	"context"
	"time"

	"github.com/ekaya-inc/ekam-query/pkg/models"
)

// Cache is a TTL-bounded response store. Implementations hold immutable
// snapshots: Set copies its argument and Get returns a fresh copy.
type Cache interface {
	// Get returns the stored response for key, or false when absent or expired.
	// Expired entries are deleted when detected.
	Get(ctx context.Context, key string) (*models.QueryResponse, bool)

	// Set stores a snapshot of resp. When the store then holds more than its
	// maximum size, the entry with the oldest timestamp is evicted.
	Set(ctx context.Context, key string, resp *models.QueryResponse)

	// Len returns the number of stored entries, expired or not.
	Len(ctx context.Context) int
}

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// Option configures a cache backend.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock overrides the time source used for entry timestamps and expiry.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// expired reports whether an entry written at stored is at or past ttl.
func expired(now, stored time.Time, ttl time.Duration) bool {
	return now.Sub(stored) >= ttl
}
