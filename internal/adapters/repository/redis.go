package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "tutorboard:sheet:"

// RedisStore shares cached sheets between replicas. Expiry is left to
// Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr/db.
func NewRedisStore(addr string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return NewRedisStoreWithClient(rdb, defaultRedisPrefix)
}

// NewRedisStoreWithClient wraps an existing client. Keys are namespaced
// under prefix.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Get reads a cached body.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %w", ErrStoreUnavailable, key, err)
	}
	return body, true, nil
}

// Put writes body with an expiry.
func (s *RedisStore) Put(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	if err := s.client.Set(ctx, s.prefix+key, body, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrStoreUnavailable, key, err)
	}
	return nil
}

// Invalidate deletes one key.
func (s *RedisStore) Invalidate(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %w", ErrStoreUnavailable, key, err)
	}
	return nil
}

// InvalidateAll deletes every key under the prefix.
func (s *RedisStore) InvalidateAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: scan: %w", ErrStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: del: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error { return s.client.Close() }
