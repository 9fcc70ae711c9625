package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Default limiter configuration constants.
const (
	defaultWindow   = time.Minute
	defaultMaxCount = 100
)

// MemoryOption applies a configuration option to the MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithWindow sets the counting window size.
func WithWindow(window time.Duration) MemoryOption {
	return func(l *MemoryLimiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithMaxCount sets the maximum number of allowed requests per window.
func WithMaxCount(maxCount int) MemoryOption {
	return func(l *MemoryLimiter) {
		if maxCount > 0 {
			l.maxCount = maxCount
		}
	}
}

// WithClock overrides the time source, used by tests to roll windows.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// window holds the counter for a user's current bucket.
type window struct {
	bucket int64
	count  int
}

// MemoryLimiter implements Limiter with per-user fixed-window counters keyed
// by (userID, windowBucket). Suitable for a single instance and for tests;
// multi-instance deployments share counters through RedisLimiter instead.
type MemoryLimiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	window   time.Duration
	maxCount int
	now      func() time.Time
}

// NewMemoryLimiter creates an in-memory limiter with configuration options.
func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		windows:  make(map[string]*window),
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

// Allow advances the user's counter for the current bucket.
// The maxCount-th call in a window is allowed, the next one is not.
func (l *MemoryLimiter) Allow(_ context.Context, userID string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[userID]
	if w == nil || w.bucket != bucket {
		// A stale entry belongs to an expired window; reset in place.
		w = &window{bucket: bucket}
		l.windows[userID] = w
	}
	if w.count >= l.maxCount {
		return false, nil
	}
	w.count++
	return true, nil
}
