package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCyclesTotal counts completed monitoring cycles.
	PollCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_monitor_poll_cycles_total",
		Help: "Total number of completed monitoring poll cycles",
	})

	// PollCycleDurationSeconds observes poll cycle latency.
	PollCycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optionsentry_monitor_poll_cycle_duration_seconds",
		Help:    "Duration of monitoring poll cycles",
		Buckets: prometheus.DefBuckets,
	})

	// QuoteErrorsTotal counts failed quote fetches. The affected position is
	// retried on the next cycle.
	QuoteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_monitor_quote_errors_total",
		Help: "Total number of failed quote fetches during monitoring",
	})

	// ExitOrderFailuresTotal counts exit orders that failed to submit or fill.
	ExitOrderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optionsentry_monitor_exit_order_failures_total",
		Help: "Total number of failed exit order submissions",
	}, []string{"action"})

	// ExitsExecutedTotal counts confirmed exit fills by action.
	ExitsExecutedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optionsentry_monitor_exits_executed_total",
		Help: "Total number of confirmed exit fills",
	}, []string{"action"})

	// InvariantViolationsTotal counts state invariant violations detected
	// during monitoring, such as a closed position still in the active set.
	InvariantViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_monitor_invariant_violations_total",
		Help: "Total number of position state invariant violations detected",
	})
)
