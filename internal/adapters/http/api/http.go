// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/tally/internal/adapters/stream"
	"github.com/okian/tally/internal/domain/types"
	"github.com/okian/tally/pkg/metrics"
)

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SubmitAction runs the update pipeline for one action and returns
	// the new score and rank.
	SubmitAction(ctx context.Context, userID, username, actionID, actionType string, increment int64) (int64, int, error)

	// Read operations expose leaderboard data.
	TopK(ctx context.Context, limit int) ([]Entry, int, error)
	UserRank(ctx context.Context, userID string) (Entry, int, error)

	// Live feed lifecycle.
	Subscribe() *stream.Subscription
	Unsubscribe(id string)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	actionsHandler     *ActionsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	streamHandler      *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit, defaultLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		actionsHandler:     NewActionsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit, defaultLimit),
		rankHandler:        NewRankHandler(deps),
		streamHandler:      NewStreamHandler(deps),
	}
}

// Router builds the HTTP routes for the service.
func (s *Server) Router(ctx context.Context) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Identity)
		r.Post("/actions", MetricsMiddleware(s.actionsHandler.HandleSubmitAction, "actions"))
		r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
		r.Get("/rank/{userID}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
		r.Get("/stream", s.streamHandler.HandleStream)
	})

	return r
}

// actionRequest mirrors the submitAction input contract.
type actionRequest struct {
	ActionID       string `json:"action_id"`
	ActionType     string `json:"action_type"`
	ScoreIncrement int64  `json:"score_increment"`
}

func (a actionRequest) validate() error {
	switch {
	case strings.TrimSpace(a.ActionID) == "":
		return NewKind("api.submit_action", ErrBadRequest)
	case strings.TrimSpace(a.ActionType) == "":
		return NewKind("api.submit_action", ErrBadRequest)
	case a.ScoreIncrement <= 0:
		return NewKind("api.submit_action", ErrBadRequest)
	}
	return nil
}

// actionResponse mirrors the submitAction output contract. Ranks start at 1;
// when rank resolution was unavailable at commit time the field is omitted
// and the client resolves it via GET /rank/{userID}.
type actionResponse struct {
	Success  bool  `json:"success"`
	NewScore int64 `json:"new_score"`
	Rank     int   `json:"rank,omitempty"`
}

// leaderboardResponse wraps the ordered entries with the board size.
type leaderboardResponse struct {
	Entries    []Entry `json:"entries"`
	TotalUsers int     `json:"total_users"`
}

// rankResponse is the queryUserRank output contract.
type rankResponse struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Score      int64  `json:"score"`
	Rank       int    `json:"rank"`
	TotalUsers int    `json:"total_users"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
