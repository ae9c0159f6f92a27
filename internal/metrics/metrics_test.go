package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCommand("AddRecipe", "http", OutcomeOK, time.Millisecond)
		m.SetRecipes(3)
		m.SnapshotWritten(nil)
		m.SnapshotWritten(errors.New("x"))
		m.SetSubscribers(1)
		m.Broadcast("NewRecipe")
		m.SubscriberDropped()
	})
}

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCommand("AddRecipe", "http", OutcomeOK, time.Millisecond)
	m.ObserveCommand("AddRecipe", "http", OutcomeOK, time.Millisecond)
	m.ObserveCommand("DeleteRecipe", "websocket", OutcomeRejected, time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("AddRecipe", "http", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("DeleteRecipe", "websocket", OutcomeRejected)))

	m.SnapshotWritten(nil)
	m.SnapshotWritten(errors.New("disk full"))
	m.SnapshotWritten(errors.New("disk full"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshotWrites))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.snapshotFailures))

	m.SetRecipes(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.recipes))

	m.SetSubscribers(2)
	m.SubscriberDropped()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.subscribers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscribersDropped))

	m.Broadcast("NewRecipe")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.broadcasts.WithLabelValues("NewRecipe")))
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
