package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for document verification.
type Metrics struct {
	// Per-check runtime
	CheckLatency *prometheus.HistogramVec

	// Positive check results by check name
	CheckDetections *prometheus.CounterVec

	// Checks that failed internally and were reported as not detected
	CheckDegraded *prometheus.CounterVec

	// Verdicts by document type and authenticity
	VerificationOutcome *prometheus.CounterVec

	// Full verify latency including every selected check
	VerifyLatency prometheus.Histogram
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the document metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CheckLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docverify_check_duration_seconds",
			Help:    "Duration of individual document checks",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"check"}),

		CheckDetections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_check_detections_total",
			Help: "Total checks that reported a detection",
		}, []string{"check"}),

		CheckDegraded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_check_degraded_total",
			Help: "Total checks that failed internally and degraded to not detected",
		}, []string{"check"}),

		VerificationOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docverify_verifications_total",
			Help: "Total verifications by document profile and verdict",
		}, []string{"document_type", "authentic"}),

		VerifyLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docverify_verify_duration_seconds",
			Help:    "Duration of a full document verification",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// ObserveCheck records the duration and outcome of one check.
func (m *Metrics) ObserveCheck(check string, d time.Duration, detected, degraded bool) {
	if m == nil {
		return
	}
	m.CheckLatency.WithLabelValues(check).Observe(d.Seconds())
	if detected {
		m.CheckDetections.WithLabelValues(check).Inc()
	}
	if degraded {
		m.CheckDegraded.WithLabelValues(check).Inc()
	}
}

// IncrementOutcome records a verification verdict.
func (m *Metrics) IncrementOutcome(documentType string, authentic bool) {
	if m != nil {
		m.VerificationOutcome.WithLabelValues(documentType, strconv.FormatBool(authentic)).Inc()
	}
}

// ObserveVerifyLatency records the total verification duration.
func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}
