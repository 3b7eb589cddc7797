package exits

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal counts non-NONE exit decisions emitted, by action.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optionsentry_exit_decisions_total",
			Help: "Total number of exit decisions emitted by the rule chain",
		},
		[]string{"action"},
	)

	// EvaluationDurationSeconds tracks rule-chain evaluation latency.
	EvaluationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optionsentry_exit_evaluation_duration_seconds",
		Help:    "Duration of one rule-chain evaluation",
		Buckets: prometheus.DefBuckets,
	})
)
