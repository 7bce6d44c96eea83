package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for verification sessions.
type Metrics struct {
	SessionsCreated prometheus.Counter
	SessionsBegun   prometheus.Counter
	Resolutions     *prometheus.CounterVec
	NotifyFailures  prometheus.Counter
	TimeToResolve   prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vcanchor_verification_sessions_created_total",
			Help: "Verification sessions created",
		}),
		SessionsBegun: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vcanchor_verification_sessions_begun_total",
			Help: "Verification sessions that moved to awaiting_holder",
		}),
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vcanchor_verification_resolutions_total",
			Help: "Resolved verification sessions, labeled by reason",
		}, []string{"reason"}),
		NotifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vcanchor_verification_notify_failures_total",
			Help: "Holder notifications that could not be published",
		}),
		TimeToResolve: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vcanchor_verification_time_to_resolve_seconds",
			Help:    "Time from Begin to holder resolution",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 120, 300},
		}),
	}
}
