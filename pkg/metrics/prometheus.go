package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Transitions             *prometheus.CounterVec
	TransitionFailures      *prometheus.CounterVec
	Notifications           *prometheus.CounterVec
	NotificationsSuppressed *prometheus.CounterVec
	PollerRuns              *prometheus.CounterVec
	PollerErrors            *prometheus.CounterVec
	AssignmentTime          prometheus.Histogram
	StoreFallbacks          *prometheus.CounterVec
}

// NewMetrics registers the service metrics on reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Applied mission status transitions",
		}, []string{"event"}),
		TransitionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transition_failures_total",
			Help:      "Rejected or failed mission transitions",
		}, []string{"event", "kind"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Emitted notifications",
		}, []string{"category", "urgency"}),
		NotificationsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_suppressed_total",
			Help:      "Escalation notifications suppressed by de-duplication",
		}, []string{"category"}),
		PollerRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poller_runs_total",
			Help:      "Background poller runs",
		}, []string{"poller"}),
		PollerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poller_errors_total",
			Help:      "Background poller runs that returned an error",
		}, []string{"poller"}),
		AssignmentTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assignment_duration_seconds",
			Help:      "Time taken by the crew backend to assign a mission",
			Buckets:   prometheus.DefBuckets,
		}),
		StoreFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_fallbacks_total",
			Help:      "Mission store reads served by a fallback hop",
		}, []string{"hop"}),
	}
}

func (m *Metrics) TransitionApplied(event string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(event).Inc()
}

func (m *Metrics) TransitionFailed(event, kind string) {
	if m == nil {
		return
	}
	m.TransitionFailures.WithLabelValues(event, kind).Inc()
}

func (m *Metrics) NotificationEmitted(category, urgency string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(category, urgency).Inc()
}

func (m *Metrics) NotificationSuppressed(category string) {
	if m == nil {
		return
	}
	m.NotificationsSuppressed.WithLabelValues(category).Inc()
}

func (m *Metrics) PollerRan(poller string, err error) {
	if m == nil {
		return
	}
	m.PollerRuns.WithLabelValues(poller).Inc()
	if err != nil {
		m.PollerErrors.WithLabelValues(poller).Inc()
	}
}

func (m *Metrics) ObserveAssignment(seconds float64) {
	if m == nil {
		return
	}
	m.AssignmentTime.Observe(seconds)
}

func (m *Metrics) StoreFallback(hop string) {
	if m == nil {
		return
	}
	m.StoreFallbacks.WithLabelValues(hop).Inc()
}
