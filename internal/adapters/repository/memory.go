package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/metrics"
)

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, used by tests to control LastUpdated.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// actionKey is the idempotency key for the ledger map.
type actionKey struct {
	userID   string
	actionID string
}

// MemoryStore implements Store with in-memory maps. One mutex covers both the
// ledger and the score rows, which is what makes ApplyAction atomic: the
// duplicate check and the increment happen inside a single critical section.
// Suitable for a single instance and for tests; multi-instance deployments
// use PostgresStore.
type MemoryStore struct {
	mu      sync.RWMutex
	scores  map[string]*model.ScoreRecord
	actions map[actionKey]model.Action
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store with configuration options.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		scores:  make(map[string]*model.ScoreRecord),
		actions: make(map[actionKey]model.Action),
		now:     time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ApplyAction commits the ledger row and the score increment together.
func (s *MemoryStore) ApplyAction(_ context.Context, a model.Action) (ApplyResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreApplyLatency(float64(time.Since(start).Milliseconds()))
	}()

	key := actionKey{userID: a.UserID, actionID: a.ActionID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, exists := s.actions[key]; exists {
		return ApplyResult{Applied: false, Prior: &prior}, nil
	}

	if a.TS.IsZero() {
		a.TS = s.now().UTC()
	}
	s.actions[key] = a

	rec := s.scores[a.UserID]
	if rec == nil {
		rec = &model.ScoreRecord{UserID: a.UserID, Username: a.Username}
		s.scores[a.UserID] = rec
	}
	rec.Score += a.Increment
	rec.LastUpdated = a.TS
	if a.Username != "" {
		rec.Username = a.Username
	}

	return ApplyResult{Applied: true, NewScore: rec.Score}, nil
}

// TopN returns the top N entries ordered by score desc.
func (s *MemoryStore) TopN(_ context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	entries := s.collectSorted()
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Rank returns the current rank and score for a user.
func (s *MemoryStore) Rank(_ context.Context, userID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	_, ok := s.scores[userID]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, ErrNotFound
	}

	for _, entry := range s.collectSorted() {
		if entry.UserID == userID {
			return entry, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Count returns the total number of users holding a score.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores), nil
}

// collectSorted copies all rows out under the read lock and ranks them.
func (s *MemoryStore) collectSorted() []Entry {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.scores))
	for _, rec := range s.scores {
		entries = append(entries, Entry{
			UserID:      rec.UserID,
			Username:    rec.Username,
			Score:       rec.Score,
			LastUpdated: rec.LastUpdated,
		})
	}
	s.mu.RUnlock()

	sortEntries(entries)
	assignRanks(entries)
	return entries
}

// sortEntries orders by score desc, earliest LastUpdated, then userID so the
// leaderboard never flickers between equal-score users on recomputation.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].LastUpdated.Equal(entries[j].LastUpdated) {
			return entries[i].LastUpdated.Before(entries[j].LastUpdated)
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// assignRanks numbers entries 1..N in order. Ranks are a total order; two
// users never share a rank.
func assignRanks(entries []Entry) {
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
