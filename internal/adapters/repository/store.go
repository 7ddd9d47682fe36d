// Package repository caches fetched score sheets.
package repository

import (
	"context"
	"time"
)

// Store keeps CSV bodies for a bounded time.
type Store interface {
	// Get returns the body cached under key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put caches body under key for ttl.
	Put(ctx context.Context, key string, body []byte, ttl time.Duration) error
	// Invalidate drops one key.
	Invalidate(ctx context.Context, key string) error
	// InvalidateAll drops every key.
	InvalidateAll(ctx context.Context) error
}

// Clock tells the time. Tests inject a fake to expire entries
// deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
