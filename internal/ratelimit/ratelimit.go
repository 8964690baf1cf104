package ratelimit

import (
	"context"
	"time"

	redisadapter "github.com/rmaksimov/seat-sync/internal/adapters/redis"
)

// Limiter is a fixed-window counter on redis. Allow fails open when
// redis is unreachable; booking correctness never depends on it.
type Limiter struct {
	redis *redisadapter.Cache
}

func NewLimiter(redis *redisadapter.Cache) *Limiter {
	return &Limiter{redis: redis}
}

func (rl *Limiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}
	return incr.Val() <= int64(rate)
}
