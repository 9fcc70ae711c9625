package service

import "errors"

// Sentinel kinds for pipeline errors.
var (
	// ErrRateLimited rejects a submission over the sliding-window quota,
	// or any submission while the shared rate counter is unreachable
	// (the limiter fails closed).
	ErrRateLimited = errors.New("rate limited")

	// ErrDuplicateAction rejects a replayed (userId, actionId) pair.
	// The action was already applied; callers re-query for the score.
	ErrDuplicateAction = errors.New("duplicate action")

	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
)
