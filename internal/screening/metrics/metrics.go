// Package metrics holds the screening feature's Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects screening pipeline metrics. A nil *Metrics is valid and
// records nothing, so wiring stays optional in tests.
type Metrics struct {
	ScreensTotal    *prometheus.CounterVec
	DegradedTotal   prometheus.Counter
	BackendCalls    *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	BatchItems      *prometheus.CounterVec
	BatchActive     prometheus.Gauge
}

// New creates and registers all screening metrics.
func New() *Metrics {
	return &Metrics{
		ScreensTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_screens_total",
			Help: "Screening requests by outcome status.",
		}, []string{"status"}),
		DegradedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_screens_degraded_total",
			Help: "Screens where both remote calls failed.",
		}),
		BackendCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_backend_calls_total",
			Help: "Backend calls by operation and result.",
		}, []string{"operation", "result"}),
		BackendDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vigil_backend_call_duration_seconds",
			Help:    "Backend call latency by operation.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		BatchItems: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_batch_items_total",
			Help: "Batch items by outcome.",
		}, []string{"outcome"}),
		BatchActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_batch_jobs_active",
			Help: "Batch jobs currently running.",
		}),
	}
}

// ObserveBackendCall records one backend call.
func (m *Metrics) ObserveBackendCall(operation, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BackendCalls.WithLabelValues(operation, result).Inc()
	m.BackendDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// IncScreen records one completed screen by status.
func (m *Metrics) IncScreen(status string) {
	if m == nil {
		return
	}
	m.ScreensTotal.WithLabelValues(status).Inc()
}

// IncDegraded records a fully degraded screen.
func (m *Metrics) IncDegraded() {
	if m == nil {
		return
	}
	m.DegradedTotal.Inc()
}

// IncBatchItem records one finished batch item.
func (m *Metrics) IncBatchItem(outcome string) {
	if m == nil {
		return
	}
	m.BatchItems.WithLabelValues(outcome).Inc()
}

// BatchStarted and BatchFinished track the active-jobs gauge.
func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.BatchActive.Inc()
}

// BatchFinished decrements the active-jobs gauge.
func (m *Metrics) BatchFinished() {
	if m == nil {
		return
	}
	m.BatchActive.Dec()
}
