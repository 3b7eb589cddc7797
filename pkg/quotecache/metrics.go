package quotecache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HitsTotal counts quote cache hits.
	HitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_quote_cache_hits_total",
		Help: "Total number of quote cache hits",
	})

	// MissesTotal counts quote cache misses.
	MissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_quote_cache_misses_total",
		Help: "Total number of quote cache misses",
	})

	// SetsTotal counts quote cache writes.
	SetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_quote_cache_sets_total",
		Help: "Total number of quote cache writes",
	})
)
