package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordOnIsolatedRegistry(t *testing.T) {
	m := NewMetrics("crewmission", prometheus.NewRegistry())

	m.TransitionApplied("owner_approve")
	m.TransitionApplied("owner_approve")
	m.PollerRan("assignment", nil)
	m.PollerRan("assignment", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("owner_approve")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PollerRuns.WithLabelValues("assignment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollerErrors.WithLabelValues("assignment")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TransitionApplied("x")
		m.TransitionFailed("x", "validation")
		m.NotificationEmitted("c", "urgent")
		m.NotificationSuppressed("c")
		m.PollerRan("p", errors.New("x"))
		m.ObserveAssignment(1)
		m.StoreFallback("cache")
	})
}
