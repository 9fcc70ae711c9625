// Package model contains domain models passed between layers.
package model

import "time"

// Action represents one occurrence of a scorable action submitted by a client.
// The (UserID, ActionID) pair is the idempotency key: once committed, the
// record is never updated or deleted.
type Action struct {
	UserID     string    // authenticated user identifier
	Username   string    // display label, owned externally
	ActionID   string    // client-supplied idempotency key
	ActionType string    // e.g. "login", "task_complete"
	Increment  int64     // positive score delta
	TS         time.Time // commit timestamp
}

// ScoreRecord is the authoritative per-user score row. Score never decreases;
// LastUpdated is the commit time of the latest accepted action and breaks
// ties between equal scores (earlier wins).
type ScoreRecord struct {
	UserID      string
	Username    string
	Score       int64
	LastUpdated time.Time
}
