package position

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpenPositionsGauge tracks the size of the active-position set.
	OpenPositionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optionsentry_open_positions",
		Help: "Number of open positions currently tracked",
	})

	// PriceObservationsTotal counts price observations applied to positions.
	PriceObservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_price_observations_total",
		Help: "Total number of price observations applied to open positions",
	})

	// FillsAppliedTotal counts confirmed exit fills applied, by action.
	FillsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optionsentry_fills_applied_total",
			Help: "Total number of confirmed exit fills applied to positions",
		},
		[]string{"action"},
	)
)
