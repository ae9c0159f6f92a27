// Package metrics defines the Prometheus collectors shared by the router,
// the broadcaster and the persistence gateway.
//
// All methods are nil-safe so components can run without metrics in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recipedecider"

// Outcome labels for command metrics.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics groups every collector exported by the service.
type Metrics struct {
	commands           *prometheus.CounterVec
	commandDuration    *prometheus.HistogramVec
	recipes            prometheus.Gauge
	snapshotWrites     prometheus.Counter
	snapshotFailures   prometheus.Counter
	subscribers        prometheus.Gauge
	broadcasts         *prometheus.CounterVec
	subscribersDropped prometheus.Counter
}

// New creates the collectors and registers them with reg.
// Panics if registration fails (duplicate registration is a programming error).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands processed by the router, by kind, origin channel and outcome.",
		}, []string{"kind", "origin", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent applying, persisting and broadcasting a command.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kind"}),
		recipes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recipes",
			Help:      "Number of recipes currently held in memory.",
		}),
		snapshotWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_writes_total",
			Help:      "Successful snapshot writes.",
		}),
		snapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_failures_total",
			Help:      "Snapshot writes that failed; in-memory state stayed authoritative.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_subscribers",
			Help:      "Open WebSocket subscribers.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Broadcast events fanned out, by event type.",
		}, []string{"event"}),
		subscribersDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_subscribers_dropped_total",
			Help:      "Subscribers removed after a failed delivery.",
		}),
	}
	reg.MustRegister(
		m.commands,
		m.commandDuration,
		m.recipes,
		m.snapshotWrites,
		m.snapshotFailures,
		m.subscribers,
		m.broadcasts,
		m.subscribersDropped,
	)
	return m
}

// ObserveCommand records one processed command.
func (m *Metrics) ObserveCommand(kind, origin, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind, origin, outcome).Inc()
	m.commandDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// SetRecipes records the collection size.
func (m *Metrics) SetRecipes(n int) {
	if m == nil {
		return
	}
	m.recipes.Set(float64(n))
}

// SnapshotWritten records a snapshot write attempt.
func (m *Metrics) SnapshotWritten(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.snapshotFailures.Inc()
		return
	}
	m.snapshotWrites.Inc()
}

// SetSubscribers records the number of open subscribers.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// Broadcast records one fanned-out event.
func (m *Metrics) Broadcast(event string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(event).Inc()
}

// SubscriberDropped records a subscriber removed after a failed send.
func (m *Metrics) SubscriberDropped() {
	if m == nil {
		return
	}
	m.subscribersDropped.Inc()
}
