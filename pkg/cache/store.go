package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is a typed TTL store. Implementations return copies so callers may
// modify what they get back without touching the stored value.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, val T, ttl time.Duration) error
	Len(ctx context.Context) (int, error)
}

// MemoryStore adapts a Cache to Store. Values are cloned on the way in and
// on the way out.
type MemoryStore[T any] struct {
	cache *Cache
	clone func(T) T
}

// NewMemoryStore wraps c. A nil clone stores values as-is, which is only
// safe for immutable T.
func NewMemoryStore[T any](c *Cache, clone func(T) T) *MemoryStore[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &MemoryStore[T]{cache: c, clone: clone}
}

func (s *MemoryStore[T]) Get(_ context.Context, key string) (T, bool, error) {
	var zero T
	raw, ok := s.cache.Get(key)
	if !ok {
		return zero, false, nil
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false, fmt.Errorf("%w: unexpected value type %T", ErrUnavailable, raw)
	}
	return s.clone(v), true, nil
}

func (s *MemoryStore[T]) Set(_ context.Context, key string, val T, ttl time.Duration) error {
	s.cache.Set(key, s.clone(val), ttl)
	return nil
}

func (s *MemoryStore[T]) Len(context.Context) (int, error) {
	return s.cache.Stats().Size, nil
}

// Cache exposes the underlying in-memory cache.
func (s *MemoryStore[T]) Cache() *Cache {
	return s.cache
}

// RedisJSONStore stores T as JSON in Redis. Decoding into a fresh value on
// every Get gives callers their own copy.
type RedisJSONStore[T any] struct {
	redis *RedisStore
	ttl   time.Duration
}

// NewRedisJSONStore uses defaultTTL when Set is called with ttl <= 0.
func NewRedisJSONStore[T any](r *RedisStore, defaultTTL time.Duration) *RedisJSONStore[T] {
	return &RedisJSONStore[T]{redis: r, ttl: defaultTTL}
}

func (s *RedisJSONStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	raw, ok, err := s.redis.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, key, err)
	}
	return v, true, nil
}

func (s *RedisJSONStore[T]) Set(ctx context.Context, key string, val T, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return s.redis.Set(ctx, key, raw, ttl)
}

func (s *RedisJSONStore[T]) Len(ctx context.Context) (int, error) {
	return s.redis.Len(ctx)
}
