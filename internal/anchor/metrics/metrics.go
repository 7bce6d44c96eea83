package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the anchor queue and minter.
type Metrics struct {
	Enqueued         *prometheus.CounterVec
	Approved         *prometheus.CounterVec
	ApproveSkipped   *prometheus.CounterVec
	BatchesMinted    *prometheus.CounterVec
	MintFailures     *prometheus.CounterVec
	BatchSize        prometheus.Histogram
	MintDuration     prometheus.Histogram
	ChainRetries     prometheus.Counter
	LeasesReleased   *prometheus.CounterVec
	ChainCircuitOpen prometheus.Gauge
}

// New registers and returns anchor metrics collectors.
func New() *Metrics {
	return &Metrics{
		Enqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vcanchor_anchor_enqueued_total",
			Help: "Credentials enqueued for anchoring, labeled by queue mode",
		}, []string{"mode"}),
		Approved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vcanchor_anchor_approved_total",
			Help: "Credentials approved for minting, labeled by approved mode",
		}, []string{"mode"}),
		ApproveSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vcanchor_anchor_approve_skipped_total",
			Help: "Credential ids skipped by bulk approve, labeled by reason",
		}, []string{"reason"}),
		BatchesMinted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vcanchor_anchor_batches_minted_total",
			Help: "Anchor batches committed on chain, labeled by minting path",
		}, []string{"path"}),
		MintFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vcanchor_anchor_mint_failures_total",
			Help: "Mint attempts rolled back, labeled by stage",
		}, []string{"stage"}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vcanchor_anchor_batch_size",
			Help:    "Members per anchor batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		MintDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vcanchor_anchor_mint_duration_seconds",
			Help:    "Wall time of a mint from lease to commit",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),
		ChainRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vcanchor_anchor_chain_retries_total",
			Help: "Chain submissions retried after a transient failure",
		}),
		LeasesReleased: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vcanchor_anchor_mint_leases_released_total",
			Help: "Minting leases returned to approved, labeled by cause",
		}, []string{"cause"}),
		ChainCircuitOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vcanchor_anchor_chain_circuit_open",
			Help: "1 while the chain client circuit breaker is open",
		}),
	}
}
