package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateDecision is the outcome of one rate limit check.
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is a fixed-window counter in Redis. Every caller key gets one
// counter per window; the counter expires with the window.
type RateLimiter struct {
	client *redis.Client
	window time.Duration
	limit  int
	prefix string
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client, window time.Duration, limit int) *RateLimiter {
	return &RateLimiter{
		client: client,
		window: window,
		limit:  limit,
		prefix: "ratelimit",
		now:    time.Now,
	}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	windowStart := l.now().Truncate(l.window)
	resetAt := windowStart.Add(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart.Unix())

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireAt(ctx, redisKey, resetAt.Add(time.Second))
		return nil
	})
	if err != nil {
		return RateDecision{}, fmt.Errorf("rate limit incr: %w", err)
	}

	return decide(incr.Val(), l.limit, resetAt), nil
}

func decide(count int64, limit int, resetAt time.Time) RateDecision {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateDecision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
