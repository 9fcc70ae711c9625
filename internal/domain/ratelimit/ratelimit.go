// Package ratelimit bounds per-user write rates over a counting window.
package ratelimit

import "context"

// Limiter answers whether a user may perform another write right now.
// Implementations must be safe for concurrent use and answer in roughly
// constant time per call.
type Limiter interface {
	// Allow advances the user's window counter and reports whether this
	// request is within quota. The limiter fails closed: when the backing
	// counter store is unreachable the request is denied and the error
	// returned alongside.
	Allow(ctx context.Context, userID string) (bool, error)
}
