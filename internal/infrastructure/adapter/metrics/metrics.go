package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's Prometheus collectors
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ReplaysTotal      *prometheus.CounterVec
	RejectionsTotal   *prometheus.CounterVec
	RoundsReconciled  prometheus.Counter
	RoundRetriesTotal prometheus.Counter
	RoundsFlagged     prometheus.Counter
}

// New creates and registers the gateway collectors on the given registerer
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Provider requests by operation and outcome",
		}, []string{"operation", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Provider request latency by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		ReplaysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_replays_total",
			Help: "Idempotent replays resolved without money movement",
		}, []string{"operation"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_rejections_total",
			Help: "Rejected requests by reason",
		}, []string{"reason"}),
		RoundsReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_rounds_reconciled_total",
			Help: "Rounds whose reported net matched the settled ledger",
		}),
		RoundRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_round_retries_total",
			Help: "Round reconciliation retries scheduled",
		}),
		RoundsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_rounds_flagged_total",
			Help: "Rounds flagged for manual review after the retry cap",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ReplaysTotal,
		m.RejectionsTotal,
		m.RoundsReconciled,
		m.RoundRetriesTotal,
		m.RoundsFlagged,
	)
	return m
}

// NewDefault registers on the default Prometheus registry
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
