package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/recipedecider/internal/metrics"
)

// DefaultWriteTimeout bounds a single delivery to one subscriber.
const DefaultWriteTimeout = 5 * time.Second

// Subscriber receives serialized events.
//
// Send must respect ctx. A Send error removes the subscriber from the hub,
// after which the hub calls Close exactly once.
type Subscriber interface {
	Send(ctx context.Context, data []byte) error
	Close() error
}

// Hub is the set of open notification subscribers.
//
// Thread-safety model:
//   - Subscribe / unsubscribe: safe from any goroutine (connection handlers)
//   - NotifyAll: called by the router's single writer; deliveries are
//     sequential so events reach each subscriber in router order
type Hub struct {
	mu           sync.Mutex
	subs         map[uint64]Subscriber
	nextID       uint64
	writeTimeout time.Duration
	metrics      *metrics.Metrics
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithWriteTimeout overrides DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithMetrics records subscriber and broadcast metrics.
func WithMetrics(m *metrics.Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:         make(map[uint64]Subscriber),
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe adds s to the active set. The returned function removes it and
// is safe to call more than once; it does not close s.
func (h *Hub) Subscribe(s Subscriber) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = s
	n := len(h.subs)
	h.mu.Unlock()

	h.metrics.SetSubscribers(n)
	slog.Debug("subscriber added", "subscriber", id, "subscribers", n)

	return func() {
		if h.remove(id) {
			slog.Debug("subscriber removed", "subscriber", id)
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// NotifyAll delivers ev to every active subscriber.
//
// Delivery is best-effort: a subscriber whose Send fails is dropped and
// closed. Nothing is returned because a broadcast failure must never fail
// the command that triggered it.
func (h *Hub) NotifyAll(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("broadcast encode failed", "event", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	targets := make(map[uint64]Subscriber, len(h.subs))
	for id, s := range h.subs {
		targets[id] = s
	}
	h.mu.Unlock()

	h.metrics.Broadcast(ev.Type)
	slog.Debug("broadcasting", "event", ev.Type, "subscribers", len(targets))

	for id, s := range targets {
		sendCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
		err := s.Send(sendCtx, data)
		cancel()
		if err == nil {
			continue
		}
		if h.remove(id) {
			h.metrics.SubscriberDropped()
			slog.Info("dropping subscriber after failed send", "subscriber", id, "event", ev.Type, "error", err)
			if cerr := s.Close(); cerr != nil {
				slog.Debug("closing dropped subscriber", "subscriber", id, "error", cerr)
			}
		}
	}
}

// Close closes and removes every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]Subscriber)
	h.mu.Unlock()

	h.metrics.SetSubscribers(0)
	for _, s := range subs {
		_ = s.Close()
	}
}

func (h *Hub) remove(id uint64) bool {
	h.mu.Lock()
	_, ok := h.subs[id]
	delete(h.subs, id)
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.metrics.SetSubscribers(n)
	}
	return ok
}
