package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOption applies a configuration option to the RedisLimiter.
type RedisOption func(*RedisLimiter)

// WithRedisWindow sets the counting window size.
func WithRedisWindow(window time.Duration) RedisOption {
	return func(l *RedisLimiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithRedisMaxCount sets the maximum number of allowed requests per window.
func WithRedisMaxCount(maxCount int) RedisOption {
	return func(l *RedisLimiter) {
		if maxCount > 0 {
			l.maxCount = maxCount
		}
	}
}

// RedisLimiter implements Limiter on a shared Redis counter so a user cannot
// bypass the quota by spreading requests across service instances. Counters
// are keyed (userID, windowBucket); INCR keeps the check O(1).
type RedisLimiter struct {
	rdb      *redis.Client
	window   time.Duration
	maxCount int
	now      func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter with configuration options.
func NewRedisLimiter(rdb *redis.Client, opts ...RedisOption) *RedisLimiter {
	l := &RedisLimiter{
		rdb:      rdb,
		window:   defaultWindow,
		maxCount: defaultMaxCount,
		now:      time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Allow increments the shared counter for the user's current bucket.
// Fails closed: a Redis error denies the request.
func (l *RedisLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	key := fmt.Sprintf("ratelimit:%s:%d", userID, bucket)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// Keys expire one extra window after their bucket ends so that clock
	// skew between instances cannot drop an active counter.
	pipe.Expire(ctx, key, 2*l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate counter unavailable: %w", err)
	}

	return incr.Val() <= int64(l.maxCount), nil
}
