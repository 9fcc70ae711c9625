// Package api declares HTTP contracts and route registration helpers.
package api

import "net/http"

// StatsProvider supplies the scoreboard runtime snapshot served on /stats:
// board size, live subscriber count, cache freshness.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the runtime snapshot.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
}
