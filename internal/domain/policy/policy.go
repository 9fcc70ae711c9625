// Package policy defines the contract for validating score-increasing actions
// before any state mutates.
package policy

import (
	"context"
	"fmt"
)

// Option applies a configuration option to the MapValidator.
type Option func(*MapValidator)

// WithActionLimitsFromConfig sets per-action-type increment maxima from a
// configuration map. Entries with non-positive maxima are dropped.
func WithActionLimitsFromConfig(limits map[string]int64) Option {
	return func(v *MapValidator) {
		// Copy the map to avoid external modifications
		v.maxIncrement = make(map[string]int64, len(limits))
		for actionType, maxInc := range limits {
			if maxInc > 0 {
				v.maxIncrement[actionType] = maxInc
			}
		}
	}
}

// Validator decides whether an action is admissible. Implementations must be
// pure: a rejected action leaves no state behind.
type Validator interface {
	// Validate returns nil when increment is a positive integer within the
	// configured bound for actionType. Unknown action types are rejected.
	Validate(ctx context.Context, actionType string, increment int64) error
}

// MapValidator implements Validator from a per-action-type maximum map.
type MapValidator struct {
	maxIncrement map[string]int64
}

// NewMapValidator creates a validator with configuration options.
func NewMapValidator(opts ...Option) *MapValidator {
	v := &MapValidator{
		maxIncrement: make(map[string]int64),
	}

	// Apply all options
	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Validate checks actionType and increment against the configured limits.
func (v *MapValidator) Validate(_ context.Context, actionType string, increment int64) error {
	maxInc, ok := v.maxIncrement[actionType]
	if !ok {
		return fmt.Errorf("%w: unknown action type %q", ErrValidation, actionType)
	}
	if increment <= 0 {
		return fmt.Errorf("%w: increment must be positive, got %d", ErrValidation, increment)
	}
	if increment > maxInc {
		return fmt.Errorf("%w: increment %d exceeds maximum %d for %q", ErrValidation, increment, maxInc, actionType)
	}
	return nil
}

// ActionTypes returns the configured action type names, mainly for logging.
func (v *MapValidator) ActionTypes() []string {
	out := make([]string, 0, len(v.maxIncrement))
	for actionType := range v.maxIncrement {
		out = append(out, actionType)
	}
	return out
}
