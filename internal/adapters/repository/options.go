package repository

import "time"

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the wall clock.
func WithClock(c Clock) MemoryOption {
	return func(s *MemoryStore) {
		if c != nil {
			s.clock = c
		}
	}
}

// Option applies a configuration option to Cached.
type Option func(*Cached)

// WithTTL sets how long a fetched body is reused. Zero disables caching.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cached) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

// WithStore replaces the default in-memory store.
func WithStore(s Store) Option {
	return func(c *Cached) {
		if s != nil {
			c.store = s
		}
	}
}
