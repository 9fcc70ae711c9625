// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	app "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/policy"
)

// ActionsHandler handles score action submissions.
type ActionsHandler struct {
	deps Dependencies
}

// NewActionsHandler creates a new actions handler.
func NewActionsHandler(deps Dependencies) *ActionsHandler {
	return &ActionsHandler{deps: deps}
}

// HandleSubmitAction handles POST /api/v1/actions requests.
func (h *ActionsHandler) HandleSubmitAction(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_action"

	userID, username, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", err)
		return
	}

	newScore, rank, err := h.deps.SubmitAction(r.Context(), userID, username, req.ActionID, req.ActionType, req.ScoreIncrement)
	if err != nil {
		switch {
		case errors.Is(err, policy.ErrValidation):
			writeError(w, http.StatusBadRequest, "validation_error", err)
		case errors.Is(err, app.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "rate_limited", err)
		case errors.Is(err, app.ErrDuplicateAction):
			// Already applied; the client re-queries for the score.
			writeError(w, http.StatusConflict, "duplicate_action", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Success: true, NewScore: newScore, Rank: rank})
}
