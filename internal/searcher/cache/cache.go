// Package cache memoizes find and complete results in Redis. Concurrent
// misses for one key are collapsed with singleflight, and every write to the
// index flushes all cached results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "textsearch:"

// Backend is the subset of the Redis client the cache needs. A missing key is
// reported with an error satisfying pkgredis.IsNilError.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, ttl time.Duration) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Find returns the cached results for terms, calling compute on a miss. cached
// reports whether the value came from Redis.
func (c *QueryCache) Find(
	ctx context.Context,
	terms []string,
	compute func() ([]ranker.Result, error),
) (results []ranker.Result, cached bool, err error) {
	return getOrCompute(ctx, c, buildKey("find", terms), compute)
}

// Complete returns the cached completions for text, calling compute on a miss.
func (c *QueryCache) Complete(
	ctx context.Context,
	text string,
	compute func() ([]string, error),
) (words []string, cached bool, err error) {
	return getOrCompute(ctx, c, buildKey("complete", []string{text}), compute)
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Debug("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// lookup never fails; Redis errors count as misses so searches keep working
// while the cache is down.
func lookup[T any](ctx context.Context, c *QueryCache, key string) (T, bool) {
	var zero T
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

func save[T any](ctx context.Context, c *QueryCache, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func getOrCompute[T any](
	ctx context.Context,
	c *QueryCache,
	key string,
	compute func() (T, error),
) (T, bool, error) {
	if v, ok := lookup[T](ctx, c, key); ok {
		c.hits.Add(1)
		return v, true, nil
	}
	c.misses.Add(1)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := lookup[T](ctx, c, key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		save(ctx, c, key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return val.(T), false, nil
}

// buildKey keeps term order; terms are joined with a NUL so that distinct
// lists never share a key.
func buildKey(op string, parts []string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%s%s:%x", keyPrefix, op, hash[:16])
}
