package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "ll_withdrawer"

// Metrics is safe to use as a nil pointer, every recorder is then a no-op.
type Metrics struct {
	Transitions    *prometheus.CounterVec
	StepFailures   *prometheus.CounterVec
	Submissions    *prometheus.CounterVec
	Resumed        prometheus.Counter
	ActiveSessions prometheus.Gauge

	registry *prometheus.Registry
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())

	return &Metrics{
		Transitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "transitions_total",
				Help:      "withdrawal status transitions persisted, by new status",
			},
			[]string{"status"},
		),
		StepFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "step_failures_total",
				Help:      "failed attempts to advance a withdrawal, by status it was in",
			},
			[]string{"status"},
		),
		Submissions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "submissions_total",
				Help:      "transactions submitted, by kind",
			},
			[]string{"kind"},
		),
		Resumed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "resumed_total",
				Help:      "incomplete withdrawals picked up again for an account",
			},
		),
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "active_sessions",
				Help:      "sessions with a step in flight",
			},
		),
		registry: reg,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordStepFailure(status string) {
	if m == nil {
		return
	}
	m.StepFailures.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordSubmission(kind string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordResumed() {
	if m == nil {
		return
	}
	m.Resumed.Inc()
}

// SessionBusy tracks a step starting (true) or ending (false).
func (m *Metrics) SessionBusy(busy bool) {
	if m == nil {
		return
	}
	if busy {
		m.ActiveSessions.Inc()
	} else {
		m.ActiveSessions.Dec()
	}
}
