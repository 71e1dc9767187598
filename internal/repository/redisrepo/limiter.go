package redisrepo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// attemptLimiter is a fixed-window counter per key.
type attemptLimiter struct {
	def    Default
	max    int64
	window time.Duration
}

func newAttemptLimiter(def Default, max int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		def:    def,
		max:    int64(max),
		window: window,
	}
}

// Allow counts an attempt. The window starts with the first attempt: EXPIRE NX only sets a
// TTL on a counter that has none, so a counter can never be left without one.
func (l *attemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.max <= 0 {
		return true, nil
	}

	k := AttemptsKey(key)
	var incr *redis.IntCmd
	if _, err := l.def.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	}); err != nil {
		return false, err
	}

	return incr.Val() <= l.max, nil
}
