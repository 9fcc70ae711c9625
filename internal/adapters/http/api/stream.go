// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/tally/pkg/logger"
)

// Stream connection tuning constants.
const (
	streamReadDeadline = 60 * time.Second
	streamPingInterval = 30 * time.Second
	streamWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// The gateway in front of this service enforces origins.
		return true
	},
}

// StreamHandler handles live scoreboard feed connections.
type StreamHandler struct {
	deps Dependencies
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps Dependencies) *StreamHandler {
	return &StreamHandler{deps: deps}
}

// HandleStream handles GET /api/v1/stream requests. The connection is a
// one-way feed: events flow to the client until it disconnects or the
// service shuts down. Reconnecting clients re-fetch the leaderboard; there
// is no replay.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	log := logger.Get().Named("stream")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	sub := h.deps.Subscribe()
	if sub == nil {
		// Hub already shut down.
		return
	}
	defer h.deps.Unsubscribe(sub.ID)

	// Read pump: the client never sends data; reads only surface
	// disconnects and answer pings.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		_ = conn.SetReadDeadline(time.Now().Add(streamReadDeadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamReadDeadline))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-disconnected:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		case event, ok := <-sub.C:
			if !ok {
				// Hub closed the subscription.
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
