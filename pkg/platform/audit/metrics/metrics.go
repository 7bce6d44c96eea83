package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit publisher.
type Metrics struct {
	QueueDepth      prometheus.Gauge
	EventsDropped   prometheus.Counter
	PersistDuration prometheus.Histogram
	PersistFailures prometheus.Counter
}

// New registers the audit publisher metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vcanchor_audit_queue_depth",
			Help: "Current number of events waiting in the audit publisher buffer",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vcanchor_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vcanchor_audit_persist_duration_seconds",
			Help:    "Time taken to hand an audit event to the store",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vcanchor_audit_persist_failures_total",
			Help: "Audit events the store rejected",
		}),
	}
}
