package cachekv

import (
	"context"
	"time"

	"github.com/hrygo/modbot/internal/boterror"
)

// ErrCacheMiss is returned by the typed Get helpers (and by CachedQuery
// when neither the cache nor the read-through source have the value) to
// distinguish "not present" from a zero-valued result.
var ErrCacheMiss = boterror.Cache("cache miss", nil)

// ErrCacheWait is returned by admin-cache refresh when another refresh
// is already in flight for the same chat (spec.md §4.5.1, §8).
var ErrCacheWait = boterror.Cache("cachewait", nil)

// CachedValue associates an entity with the canonical key it is stored
// under and a write-through Cache method, so any writer that mutates the
// durable store can keep the cache coherent in the same call.
type CachedValue[T any] interface {
	CacheKey() string
	Cache(ctx context.Context, c *Client, ttl time.Duration) error
}

// CachedQuery composes cache-read -> durable-read-through -> cache-fill
// for a single keyed value. source is invoked only on a cache miss; its
// result is written back to the cache with ttl before being returned.
func CachedQuery[T any](ctx context.Context, c *Client, key string, ttl time.Duration, source func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Get(ctx, c, key, &out)
	switch err {
	case nil:
		return out, nil
	case ErrCacheMiss:
		// fall through to the durable read-through below
	default:
		// A connection/serialization error is non-fatal: the read-through
		// still repopulates the cache for the next reader.
	}

	out, srcErr := source(ctx)
	if srcErr != nil {
		var zero T
		return zero, srcErr
	}
	_ = Set(ctx, c, key, out, ttl)
	return out, nil
}

// CachedQueryList is CachedQuery's fan-out variant: it reads every
// element currently under a list-scoped key and, on a miss, calls
// source once to populate the whole list.
func CachedQueryList[T any](ctx context.Context, c *Client, key string, ttl time.Duration, source func(ctx context.Context) ([]T, error)) ([]T, error) {
	existing, err := ListDrain[T](ctx, c, key)
	if err == nil && len(existing) > 0 {
		return existing, nil
	}

	items, srcErr := source(ctx)
	if srcErr != nil {
		return nil, srcErr
	}
	for _, item := range items {
		_ = ListPush(ctx, c, key, item, ttl)
	}
	return items, nil
}
