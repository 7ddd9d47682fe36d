package repository

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	body    []byte
	expires time.Time
}

// MemoryStore is a process-local Store. Readers see either the previous or
// the new body for a key, never a partial one.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   Clock
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]entry),
		clock:   SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns an unexpired body.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !s.clock.Now().Before(e.expires) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expires.Equal(e.expires) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.body, true, nil
}

// Put stores a copy of body until ttl elapses.
func (s *MemoryStore) Put(_ context.Context, key string, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	cp := make([]byte, len(body))
	copy(cp, body)

	s.mu.Lock()
	s.entries[key] = entry{body: cp, expires: s.clock.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Invalidate drops key.
func (s *MemoryStore) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// InvalidateAll swaps in an empty map.
func (s *MemoryStore) InvalidateAll(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
