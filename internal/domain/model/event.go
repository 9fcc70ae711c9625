package model

// Event types published to stream subscribers.
const (
	// EventScoreboardUpdate signals a committed score change that cannot
	// alter the visible top-K.
	EventScoreboardUpdate = "scoreboard_update"

	// EventUserRankChange signals a committed score change that may alter
	// top-K membership or order; viewers should expect a reorder.
	EventUserRankChange = "user_rank_change"
)

// Event is a committed leaderboard delta fanned out to subscribers.
// Published only after the backing store transaction commits.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData carries the committed (user, score) pair behind an event.
type EventData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Score    int64  `json:"score"`
}
