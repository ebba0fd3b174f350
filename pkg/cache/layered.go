package cache

import (
	"context"
	"reflect"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: Redis).
// L1 keeps object identity for repeated in-process hits; L2 lets a freshly
// started replica reuse what another replica fetched.
type LayeredCache struct {
	memCache   *MemoryCache
	redisCache *RedisCache
}

// NewLayeredCache creates a layered cache with memory and Redis.
func NewLayeredCache(memCache *MemoryCache, redisCache *RedisCache) *LayeredCache {
	return &LayeredCache{memCache: memCache, redisCache: redisCache}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	_ = lc.memCache.Set(ctx, key, value, expiration)
	return lc.redisCache.Set(ctx, key, value, expiration)
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.memCache.Get(ctx, key, dest); err == nil {
		return nil
	}

	if err := lc.redisCache.Get(ctx, key, dest); err != nil {
		return err
	}

	// Promote into L1 for the rest of the L2 lifetime.
	ttl, err := lc.redisCache.TTL(ctx, key)
	if err == nil && ttl > 0 {
		_ = lc.memCache.Set(ctx, key, reflect.ValueOf(dest).Elem().Interface(), ttl)
	}
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	return lc.redisCache.Delete(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	return lc.redisCache.Close()
}
