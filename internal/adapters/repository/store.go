// Package repository defines the authoritative score store and errors.
//
// The store fuses the action ledger and the per-user score rows behind one
// write operation so that the idempotency check and the score increment
// commit as a single atomic unit. No caller may observe one without the
// other.
package repository

import (
	"context"
	"time"

	"github.com/okian/tally/internal/domain/model"
)

// Entry represents a leaderboard row as ranked by the store.
type Entry struct {
	Rank        int
	UserID      string
	Username    string
	Score       int64
	LastUpdated time.Time
}

// ApplyResult reports the outcome of committing an action.
type ApplyResult struct {
	// Applied is false when the (userID, actionID) pair was already
	// committed; the score is untouched in that case.
	Applied bool

	// NewScore is the user's score after the increment. Only meaningful
	// when Applied is true.
	NewScore int64

	// Prior holds the previously committed record for a duplicate.
	Prior *model.Action
}

// Store provides atomic write access to scores plus the read side used by
// the leaderboard cache. Ordering is score descending with ties broken by
// earliest last update, then userID; ranks are a total order starting at 1.
type Store interface {
	// ApplyAction commits the action ledger row and the score increment as
	// one atomic unit, serialized per user by the store itself.
	ApplyAction(ctx context.Context, a model.Action) (ApplyResult, error)

	// TopN returns the top-N entries in rank order.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Rank returns the current rank and score for a user.
	// Returns ErrNotFound if the user has no accepted actions.
	Rank(ctx context.Context, userID string) (Entry, error)

	// Count returns the number of users holding a score.
	Count(ctx context.Context) (int, error)
}
