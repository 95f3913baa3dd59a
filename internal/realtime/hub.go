// Package realtime fans document change events out to live subscribers.
// Delivery is best effort and at-most-once: no acknowledgement, no
// backpressure, no replay for late joiners.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"alphabase/internal/platform/metrics"
)

// Event is the wire payload broadcast after every successful mutation.
type Event struct {
	Action     string `json:"action"`
	Collection string `json:"collection"`
	Key        string `json:"key"`
	// Source marks events that did not originate from an HTTP client,
	// e.g. "mqtt". Advisory metadata only.
	Source string `json:"source,omitempty"`
}

const (
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Sink is the transport side of one subscriber connection. Send must be safe
// to call from the publishing goroutine.
type Sink interface {
	Send(payload []byte) error
	Close() error
}

// Subscriber is the hub's handle for one live connection.
type Subscriber struct {
	sink Sink
}

// Hub maintains the live subscriber set. Publish iterates a snapshot of the
// set so concurrent subscribes and unsubscribes never disturb an in-flight
// fan-out; a failed send removes that subscriber and delivery to the rest
// continues.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewHub constructs a hub. metrics may be nil in tests.
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		logger:      logger,
		metrics:     m,
	}
}

// Subscribe registers a connection and returns its handle.
func (h *Hub) Subscribe(sink Sink) *Subscriber {
	sub := &Subscriber{sink: sink}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	total := len(h.subscribers)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SubscribersActive.Set(float64(total))
	}
	h.logger.Info("subscriber connected", "total", total)
	return sub
}

// Unsubscribe removes a connection from the live set and closes its sink.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	_, present := h.subscribers[sub]
	delete(h.subscribers, sub)
	total := len(h.subscribers)
	h.mu.Unlock()

	if !present {
		return
	}
	_ = sub.sink.Close()
	if h.metrics != nil {
		h.metrics.SubscribersActive.Set(float64(total))
	}
	h.logger.Info("subscriber disconnected", "total", total)
}

// Count returns the number of currently connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish delivers the event to every currently-connected subscriber.
// Subscribers whose send fails are treated as disconnected and pruned.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		snapshot = append(snapshot, sub)
	}
	h.mu.RUnlock()

	if len(snapshot) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal broadcast event", "error", err)
		return
	}

	var failed []*Subscriber
	for _, sub := range snapshot {
		if err := sub.sink.Send(payload); err != nil {
			h.logger.Warn("broadcast send failed, dropping subscriber", "error", err)
			failed = append(failed, sub)
		}
	}
	for _, sub := range failed {
		h.Unsubscribe(sub)
	}

	if h.metrics != nil {
		h.metrics.BroadcastsSent.Inc()
	}
	h.logger.Debug("event broadcast",
		"action", event.Action,
		"collection", event.Collection,
		"key", event.Key,
		"subscribers", len(snapshot)-len(failed),
	)
}
