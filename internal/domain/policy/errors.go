package policy

import "errors"

// Sentinel kinds for validation errors.
var (
	// ErrValidation marks malformed submissions: unknown action type,
	// non-positive increment, or an increment over the configured maximum.
	ErrValidation = errors.New("invalid action")
)
