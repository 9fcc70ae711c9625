// Package cache maintains the bounded-staleness top-K view of the leaderboard.
//
// Reads load an immutable snapshot through an atomic pointer, so a query
// never observes a half-built sequence; recompute builds a fresh snapshot and
// swaps it in. Staleness is bounded two ways: a TTL for updates that cannot
// affect the visible top-K, and targeted invalidation for updates that can.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/pkg/metrics"
)

// Default cache configuration constants.
const (
	defaultTopK = 10
	defaultTTL  = 5 * time.Second
)

// Reader is the slice of the store the cache depends on.
type Reader interface {
	TopN(ctx context.Context, n int) ([]repository.Entry, error)
	Rank(ctx context.Context, userID string) (repository.Entry, error)
}

// Option applies a configuration option to the Leaderboard.
type Option func(*Leaderboard)

// WithTopK sets how many entries the cache keeps.
func WithTopK(k int) Option {
	return func(l *Leaderboard) {
		if k > 0 {
			l.topK = k
		}
	}
}

// WithTTL sets the staleness bound: a snapshot older than ttl is recomputed
// on next access even without an invalidating update.
func WithTTL(ttl time.Duration) Option {
	return func(l *Leaderboard) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithClock overrides the time source, used by tests to age snapshots.
func WithClock(now func() time.Time) Option {
	return func(l *Leaderboard) {
		if now != nil {
			l.now = now
		}
	}
}

// snapshot is an immutable top-K view plus the data Notify needs to decide
// whether an update can change it.
type snapshot struct {
	entries     []repository.Entry // rank-ordered, at most topK
	scoreByUser map[string]int64
	kthScore    int64 // -1 while the board holds fewer than topK users
	generatedAt time.Time
}

// Leaderboard caches the current best-known top-K entries.
type Leaderboard struct {
	store Reader
	topK  int
	ttl   time.Duration
	now   func() time.Time

	snap  atomic.Pointer[snapshot]
	stale atomic.Bool

	// refreshMu serializes recompute; readers never wait on it.
	refreshMu sync.Mutex
}

// New creates a leaderboard cache with configuration options.
func New(store Reader, opts ...Option) *Leaderboard {
	l := &Leaderboard{
		store: store,
		topK:  defaultTopK,
		ttl:   defaultTTL,
		now:   time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(l)
	}

	l.stale.Store(true)
	return l
}

// Query returns up to limit entries in rank order. Limits within the cached
// top-K serve from the snapshot when fresh; larger limits fall back to the
// store, since only the top-K are cached.
func (l *Leaderboard) Query(ctx context.Context, limit int) ([]repository.Entry, error) {
	if limit < 1 {
		return nil, repository.ErrInvalidLimit
	}

	if limit > l.topK {
		// Beyond the cached prefix: read through. Refresh the snapshot
		// from the same result so subsequent small queries stay warm.
		entries, err := l.store.TopN(ctx, limit)
		if err != nil {
			return nil, err
		}
		prefix := entries
		if len(prefix) > l.topK {
			prefix = prefix[:l.topK]
		}
		l.install(prefix)
		return entries, nil
	}

	snap := l.snap.Load()
	if l.fresh(snap) {
		metrics.RecordCacheHit()
		return copyPrefix(snap.entries, limit), nil
	}

	snap, err := l.recompute(ctx)
	if err != nil {
		return nil, err
	}
	return copyPrefix(snap.entries, limit), nil
}

// Rank resolves a user's rank via the cached top-K, falling back to a direct
// store-side rank computation when the user is outside it.
func (l *Leaderboard) Rank(ctx context.Context, userID string) (repository.Entry, error) {
	if snap := l.snap.Load(); l.fresh(snap) {
		for _, entry := range snap.entries {
			if entry.UserID == userID {
				metrics.RecordCacheHit()
				return entry, nil
			}
		}
	}
	return l.store.Rank(ctx, userID)
}

// Notify tells the cache about a committed (userID, newScore) pair and
// reports whether it invalidated the snapshot. The snapshot is marked stale
// only when the update can change top-K membership or order: the user is
// already cached, or the new score reaches the current K-th score.
func (l *Leaderboard) Notify(userID string, newScore int64) bool {
	snap := l.snap.Load()
	if snap == nil {
		l.stale.Store(true)
		return true
	}
	if _, cached := snap.scoreByUser[userID]; !cached && snap.kthScore >= 0 && newScore < snap.kthScore {
		return false
	}
	l.stale.Store(true)
	metrics.RecordCacheInvalidation()
	return true
}

// Age returns the current snapshot age, or zero when none exists yet.
func (l *Leaderboard) Age() time.Duration {
	snap := l.snap.Load()
	if snap == nil {
		return 0
	}
	return l.now().Sub(snap.generatedAt)
}

// Stale reports whether the next query will recompute.
func (l *Leaderboard) Stale() bool {
	return !l.fresh(l.snap.Load())
}

func (l *Leaderboard) fresh(snap *snapshot) bool {
	return snap != nil && !l.stale.Load() && l.now().Sub(snap.generatedAt) < l.ttl
}

// recompute rebuilds the snapshot from the store. Serialized so concurrent
// stale readers trigger one scan; a notify racing the scan re-marks the cache
// stale, bounding a missed invalidation by one TTL window.
func (l *Leaderboard) recompute(ctx context.Context) (*snapshot, error) {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if snap := l.snap.Load(); l.fresh(snap) {
		return snap, nil
	}

	start := time.Now()
	entries, err := l.store.TopN(ctx, l.topK)
	if err != nil {
		return nil, err
	}
	snap := l.install(entries)
	metrics.RecordCacheRefresh(float64(time.Since(start).Milliseconds()))
	return snap, nil
}

// install swaps in a new snapshot built from rank-ordered entries.
func (l *Leaderboard) install(entries []repository.Entry) *snapshot {
	scoreByUser := make(map[string]int64, len(entries))
	for _, entry := range entries {
		scoreByUser[entry.UserID] = entry.Score
	}
	kth := int64(-1)
	if len(entries) >= l.topK {
		kth = entries[len(entries)-1].Score
	}
	snap := &snapshot{
		entries:     entries,
		scoreByUser: scoreByUser,
		kthScore:    kth,
		generatedAt: l.now(),
	}
	l.snap.Store(snap)
	l.stale.Store(false)
	return snap
}

func copyPrefix(entries []repository.Entry, limit int) []repository.Entry {
	if limit > len(entries) {
		limit = len(entries)
	}
	out := make([]repository.Entry, limit)
	copy(out, entries[:limit])
	return out
}
