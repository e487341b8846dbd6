// Package realtime pushes per-user events to connected dashboard clients and,
// when Kafka is configured, to the other API instances.
package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justsurfingit/jobtracker/internal/metrics"
)

const (
	ApplicationCreated       = "application.created"
	ApplicationUpdated       = "application.updated"
	ApplicationStatusChanged = "application.status_changed"
	ApplicationDeleted       = "application.deleted"
	HuntUpdated              = "hunt.updated"
	AutomationSyncCompleted  = "automation.sync_completed"
)

type Event struct {
	Type    string      `json:"type"`
	UserID  string      `json:"userId"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// Forwarder ships events to other instances.
type Forwarder interface {
	Forward(ctx context.Context, ev Event) error
}

type Subscription struct {
	C      <-chan Event
	ch     chan Event
	userID string
	hub    *Hub
	once   sync.Once
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s) })
}

type Hub struct {
	mu        sync.RWMutex
	subs      map[string]map[*Subscription]struct{}
	buffer    int
	forwarder Forwarder
	log       *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		log:    log,
	}
}

// WithForwarder sets the cross-instance forwarder.
func (h *Hub) WithForwarder(f Forwarder) *Hub {
	h.forwarder = f
	return h
}

func (h *Hub) Subscribe(userID string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, userID: userID, hub: h}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	metrics.RealtimeSubscribers.Inc()
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.userID)
		}
	}
	close(sub.ch)
	metrics.RealtimeSubscribers.Dec()
}

// Publish delivers ev to local subscribers and forwards it. Forwarding failures
// are logged, never returned: realtime updates are best effort.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.Deliver(ev)

	if h.forwarder != nil {
		if err := h.forwarder.Forward(ctx, ev); err != nil {
			h.log.Warnw("failed to forward realtime event", "type", ev.Type, "error", err)
		}
	}
}

// Deliver fans ev out to local subscribers only. Subscribers with a full buffer
// miss the event.
func (h *Hub) Deliver(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[ev.UserID] {
		select {
		case sub.ch <- ev:
		default:
			metrics.RealtimeDropped.Inc()
		}
	}
}

// Subscribers returns the number of open subscriptions for a user.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
