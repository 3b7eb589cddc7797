package broker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuoteFetchesTotal counts successful quote fetches by adapter.
	QuoteFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optionsentry_quote_fetches_total",
			Help: "Total number of quote fetches from the broker",
		},
		[]string{"broker"},
	)

	// QuoteFetchDurationSeconds tracks quote fetch latency.
	QuoteFetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optionsentry_quote_fetch_duration_seconds",
		Help:    "Duration of broker quote fetches",
		Buckets: prometheus.DefBuckets,
	})

	// OrdersTotal counts order submissions by adapter, side and outcome.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optionsentry_orders_total",
			Help: "Total number of order submissions",
		},
		[]string{"broker", "side", "outcome"},
	)
)
