package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisLimiter struct {
	client *redis.Client
	limit  int
	period time.Duration
	now    func() time.Time
}

// NewRedis returns a fixed-window limiter backed by a shared Redis counter,
// giving one global window across all gateway instances. Same window
// semantics as the in-memory store: the key encodes the window start, so
// rollover is implicit and expiry handles cleanup.
func NewRedis(client *redis.Client, limit int, period time.Duration) Limiter {
	return &redisLimiter{client: client, limit: limit, period: period, now: time.Now}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	windowStart := now.Truncate(l.period)
	resetAt := windowStart.Add(l.period)
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, windowStart.UnixMilli())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, l.period)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit incr failed: %w", err)
	}

	count := int(incr.Val())
	res := Result{Limit: l.limit, ResetAt: resetAt}
	if count > l.limit {
		res.OK = false
		res.Remaining = 0
		return res, nil
	}
	res.OK = true
	res.Remaining = l.limit - count
	return res, nil
}
