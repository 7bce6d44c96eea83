package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for claim tickets and QR frames.
type Metrics struct {
	TicketsIssued  *prometheus.CounterVec
	Redemptions    *prometheus.CounterVec
	FramesRendered prometheus.Counter
	RenderDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		TicketsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vcanchor_claim_tickets_issued_total",
			Help: "Claim tickets returned by EnsureClaim, labeled by whether an active ticket was reused",
		}, []string{"reused"}),
		Redemptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vcanchor_claim_redemptions_total",
			Help: "Claim redemption attempts, labeled by outcome",
		}, []string{"outcome"}),
		FramesRendered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vcanchor_claim_frames_rendered_total",
			Help: "QR frame images rendered",
		}),
		RenderDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vcanchor_claim_frame_render_duration_seconds",
			Help:    "Time to encode one QR frame image",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}
