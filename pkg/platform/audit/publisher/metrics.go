package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit emission. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	Emitted         *prometheus.CounterVec
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
}

// NewMetrics registers the audit metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_audit_events_emitted_total",
			Help: "Total number of audit events accepted for persistence",
		}, []string{"action"}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "docverify_audit_events_dropped_total",
			Help: "Total number of audit events dropped because the buffer was full",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "docverify_audit_persist_failures_total",
			Help: "Total number of audit events that failed to persist",
		}),
	}
}

func (m *Metrics) IncEmitted(action string) {
	if m == nil {
		return
	}
	m.Emitted.WithLabelValues(action).Inc()
}

func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}

func (m *Metrics) IncPersistFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PersistFailures.Add(float64(n))
}
