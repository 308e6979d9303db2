package cache

import (
	"context"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

// Guard wraps backend in a circuit breaker so that an unreachable Redis costs
// one rejected call instead of a network timeout per query. Misses do not
// count as failures.
func Guard(backend Backend, cfg resilience.BreakerConfig) Backend {
	cfg.Failure = func(err error) bool {
		return err != nil && !pkgredis.IsNilError(err)
	}
	return &guardedBackend{next: backend, breaker: resilience.NewBreaker("redis-cache", cfg)}
}

type guardedBackend struct {
	next    Backend
	breaker *resilience.Breaker
}

func (g *guardedBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := g.breaker.Do(func() error {
		var err error
		data, err = g.next.Get(ctx, key)
		return err
	})
	return data, err
}

func (g *guardedBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.breaker.Do(func() error {
		return g.next.Set(ctx, key, value, ttl)
	})
}

// FlushByPattern bypasses the breaker. Skipping an invalidation would leave
// stale results behind once Redis recovers.
func (g *guardedBackend) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	return g.next.FlushByPattern(ctx, pattern)
}
