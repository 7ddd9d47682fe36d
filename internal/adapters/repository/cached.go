package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/tutorboard/internal/adapters/source"
	"github.com/okian/tutorboard/pkg/logger"
	"github.com/okian/tutorboard/pkg/metrics"
)

const defaultTTL = 300 * time.Second

// Cached is a source.Source that reuses successful fetches for a TTL.
// Concurrent misses for one key share a single upstream request. Failures
// are never cached.
type Cached struct {
	upstream   source.Source
	store      Store
	ttl        time.Duration
	group      singleflight.Group
	generation atomic.Uint64
}

// NewCached wraps upstream with a memory store and a 300s TTL.
func NewCached(upstream source.Source, opts ...Option) *Cached {
	c := &Cached{
		upstream: upstream,
		store:    NewMemoryStore(),
		ttl:      defaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the cached body or fetches it. The request carries the
// current generation so upstream HTTP caches are bypassed after an
// invalidation.
func (c *Cached) Fetch(ctx context.Context, req source.Request) ([]byte, error) {
	gen := c.generation.Load()
	req.Generation = gen
	key := req.Key()

	if c.ttl > 0 {
		body, ok, err := c.store.Get(ctx, key)
		switch {
		case err != nil:
			metrics.RecordErrorByComponent("cache", "get")
			logger.Get().Named("cache").Warn(ctx, "cache read failed; fetching upstream",
				logger.String("key", key), logger.Error(err))
		case ok:
			metrics.RecordCacheHit()
			return body, nil
		}
	}
	metrics.RecordCacheMiss()

	// The shared fetch outlives any single caller; each caller stops
	// waiting when its own context ends. Upstream timeouts bound it.
	flight := c.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (interface{}, error) {
		fctx := context.WithoutCancel(ctx)
		body, err := c.upstream.Fetch(fctx, req)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 && c.generation.Load() == gen {
			if err := c.store.Put(fctx, key, body, c.ttl); err != nil {
				metrics.RecordErrorByComponent("cache", "put")
				logger.Get().Named("cache").Warn(fctx, "cache write failed",
					logger.String("key", key), logger.Error(err))
			}
		}
		return body, nil
	})

	select {
	case <-ctx.Done():
		kind := source.KindTransport
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = source.KindTimeout
		}
		return nil, &source.FetchError{Tab: req.Tab, Kind: kind, Err: ctx.Err()}
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Get().Named("cache").Debug(ctx, "collapsed concurrent fetch", logger.String("key", key))
		}
		return res.Val.([]byte), nil
	}
}

// InvalidateAll drops every cached body and bumps the generation. It
// returns the new generation.
func (c *Cached) InvalidateAll(ctx context.Context) (uint64, error) {
	gen := c.generation.Add(1)
	metrics.RecordCacheInvalidation(gen)
	if err := c.store.InvalidateAll(ctx); err != nil {
		return gen, err
	}
	return gen, nil
}

// Generation returns the current cache-bust generation.
func (c *Cached) Generation() uint64 { return c.generation.Load() }

// TTL returns the configured lifetime.
func (c *Cached) TTL() time.Duration { return c.ttl }
