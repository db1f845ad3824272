// Package cachekv is the Cache Substrate (spec component C1): a
// connection-pooled client to a remote KV store, with pipelined and
// transactional command sequences and typed, write-through wrappers for
// the single-value, hash, list, and set caches the rest of the core
// builds on.
package cachekv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hrygo/modbot/internal/boterror"
)

// Client wraps a pooled Redis client. It is a process-wide singleton,
// created once at startup and handed to every component that needs the
// cache substrate.
type Client struct {
	rdb   redis.UniversalClient
	codec Codec
}

// New creates a Client against a single Redis instance at addr.
func New(addr, password string, db int) *Client {
	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			PoolSize:     32,
			MinIdleConns: 4,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}),
	}
}

// NewFromClient wraps an already-constructed Redis client, mainly for
// tests against miniredis-style fakes.
func NewFromClient(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb}
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Pipe runs a pipeline of commands atomically-or-not: build appends
// commands onto pipe and they are flushed together. Command-level errors
// inside the pipeline do not abort unexecuted commands; Pipe returns the
// first error encountered, if any.
func (c *Client) Pipe(ctx context.Context, build func(pipe redis.Pipeliner)) error {
	pipe := c.rdb.Pipeline()
	build(pipe)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return translate(err)
	}
	return nil
}

// TryPipe is Pipe's fallible-builder variant: build may itself fail (for
// example, while serializing a value to enqueue), in which case the
// pipeline is never dispatched.
func (c *Client) TryPipe(ctx context.Context, build func(pipe redis.Pipeliner) error) error {
	pipe := c.rdb.Pipeline()
	if err := build(pipe); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return translate(err)
	}
	return nil
}

// Query leases the client for an imperative sequence of commands, useful
// when later commands depend on the result of earlier ones (so they
// cannot be expressed as a single pipeline).
func (c *Client) Query(ctx context.Context, fn func(ctx context.Context, rdb redis.UniversalClient) error) error {
	if err := fn(ctx, c.rdb); err != nil {
		return translate(err)
	}
	return nil
}

// Raw exposes the underlying client for call sites that need a command
// this wrapper does not yet cover (e.g. registering a *redis.Script).
func (c *Client) Raw() redis.UniversalClient { return c.rdb }

// Get reads a single typed value with write-through semantics: a miss
// returns ErrCacheMiss rather than a zero value, so callers can
// distinguish "not cached" from "cached as zero".
func Get[T any](ctx context.Context, c *Client, key string, out *T) error {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return translate(err)
	}
	return c.codec.Unmarshal(data, out)
}

// Set writes a single typed value with a TTL. ttl of 0 means no expiry.
func Set[T any](ctx context.Context, c *Client, key string, v T, ttl time.Duration) error {
	data, err := c.codec.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return translate(err)
	}
	return nil
}

// Del removes a key, used to invalidate instead of re-filling on write.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return translate(err)
	}
	return nil
}

// HGet reads one field of a hash-scoped cache (e.g. the chat-admin map).
func HGet[T any](ctx context.Context, c *Client, key, field string, out *T) error {
	data, err := c.rdb.HGet(ctx, key, field).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return translate(err)
	}
	return c.codec.Unmarshal(data, out)
}

// HSet writes one field of a hash-scoped cache and refreshes its TTL
// (hashes do not carry a per-field TTL, so the whole key's expiry is
// reset; callers that need "no miss vs not cached" semantics rely on a
// sentinel field rather than on expiry granularity).
func HSet[T any](ctx context.Context, c *Client, key, field string, v T, ttl time.Duration) error {
	data, err := c.codec.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.rdb.HSet(ctx, key, field, data).Err(); err != nil {
		return translate(err)
	}
	if ttl > 0 {
		c.rdb.Expire(ctx, key, ttl)
	}
	return nil
}

// HGetAll reads every field of a hash-scoped cache, decoding each value
// as T. It is a miss (ErrCacheMiss) only if the key does not exist at
// all; an existing-but-empty hash is returned as an empty, non-error map
// so callers can represent "no admins known" (spec.md §3 invariant)
// distinctly from "never cached".
func HGetAll[T any](ctx context.Context, c *Client, key string) (map[string]T, error) {
	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return nil, translate(err)
	}
	if exists == 0 {
		return nil, ErrCacheMiss
	}
	raw, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, translate(err)
	}
	out := make(map[string]T, len(raw))
	for field, data := range raw {
		var v T
		if err := c.codec.Unmarshal([]byte(data), &v); err != nil {
			return nil, err
		}
		out[field] = v
	}
	return out, nil
}

// HDel removes a single field from a hash-scoped cache.
func (c *Client) HDel(ctx context.Context, key string, fields ...string) error {
	if err := c.rdb.HDel(ctx, key, fields...).Err(); err != nil {
		return translate(err)
	}
	return nil
}

// ListPush pushes v onto the head of a list-scoped cache (warns, for
// example) and (re)sets its TTL.
func ListPush[T any](ctx context.Context, c *Client, key string, v T, ttl time.Duration) error {
	data, err := c.codec.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.rdb.LPush(ctx, key, data).Err(); err != nil {
		return translate(err)
	}
	if ttl > 0 {
		c.rdb.Expire(ctx, key, ttl)
	}
	return nil
}

// ListDrain returns every element currently in a list-scoped cache
// without removing them (the caller decides whether to delete the key,
// typically after acting on the full warn list).
func ListDrain[T any](ctx context.Context, c *Client, key string) ([]T, error) {
	raw, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, translate(err)
	}
	out := make([]T, 0, len(raw))
	for _, data := range raw {
		var v T
		if err := c.codec.Unmarshal([]byte(data), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SetAdd adds members to a set-scoped cache.
func (c *Client) SetAdd(ctx context.Context, key string, members ...any) error {
	if err := c.rdb.SAdd(ctx, key, members...).Err(); err != nil {
		return translate(err)
	}
	return nil
}

// SetRemove removes members from a set-scoped cache.
func (c *Client) SetRemove(ctx context.Context, key string, members ...any) error {
	if err := c.rdb.SRem(ctx, key, members...).Err(); err != nil {
		return translate(err)
	}
	return nil
}

// EvalScript runs a Lua script server-side, for the atomic
// increment-with-expire patterns the core needs (admin-refresh locks,
// captcha try counters).
func (c *Client) EvalScript(ctx context.Context, script *redis.Script, keys []string, args ...any) (int64, error) {
	res, err := script.Run(ctx, c.rdb, keys, args...).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, translate(err)
	}
	n, ok := res.(int64)
	if !ok {
		return 0, boterror.Cache("unexpected script result type", nil)
	}
	return n, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if err == redis.Nil {
		return ErrCacheMiss
	}
	return boterror.Cache("cache substrate error", err)
}
