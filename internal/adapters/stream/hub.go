// Package stream fans committed leaderboard events out to live subscribers.
//
// Each subscriber owns a bounded queue. Publish never blocks: a full queue
// loses its oldest event, so slow viewers see coalesced history while the
// publisher, and with it score ingestion, never backs up.
package stream

import (
	"sync"

	"github.com/google/uuid"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/metrics"
)

// Default hub configuration constants.
const defaultQueueSize = 16

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithQueueSize sets the per-subscriber event queue depth.
func WithQueueSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.queueSize = size
		}
	}
}

// Subscription is a live feed handle. Events arrive on C in commit order;
// there is no delivery guarantee beyond "eventually delivered or superseded
// while connected". C is closed on Unsubscribe or hub shutdown.
type Subscription struct {
	ID string
	C  <-chan model.Event

	ch chan model.Event
}

// Hub maintains the set of currently connected subscribers.
type Hub struct {
	mu        sync.RWMutex
	subs      map[string]*Subscription
	queueSize int
	closed    bool
}

// NewHub creates a broadcast hub with configuration options.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:      make(map[string]*Subscription),
		queueSize: defaultQueueSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Subscribe registers a new subscriber and returns its handle.
// Returns nil after the hub has shut down.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	ch := make(chan model.Event, h.queueSize)
	sub := &Subscription{
		ID: uuid.NewString(),
		C:  ch,
		ch: ch,
	}
	h.subs[sub.ID] = sub
	metrics.UpdateStreamSubscribers(len(h.subs))
	return sub
}

// Unsubscribe removes a subscriber and discards its queue. Safe to call for
// an already-removed ID.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.ch)
	metrics.UpdateStreamSubscribers(len(h.subs))
}

// Publish enqueues the event for every subscriber and returns immediately.
// A subscriber whose queue is full loses its oldest queued event, never the
// one being published.
func (h *Hub) Publish(e model.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for _, sub := range h.subs {
		select {
		case sub.ch <- e:
			continue
		default:
		}

		// Queue full: drop the oldest, then retry once. A concurrent
		// publisher may win the freed slot; dropping this event for
		// that subscriber is acceptable, blocking is not.
		select {
		case <-sub.ch:
			metrics.RecordStreamEventDropped()
		default:
		}
		select {
		case sub.ch <- e:
		default:
			metrics.RecordStreamEventDropped()
		}
	}
	metrics.RecordStreamEventPublished()
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close removes all subscribers and rejects further subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
	metrics.UpdateStreamSubscribers(0)
}
