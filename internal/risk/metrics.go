package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntriesApprovedTotal counts entry approvals.
	EntriesApprovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_entries_approved_total",
		Help: "Total number of entries approved by the risk governor",
	})

	// EntriesDeniedTotal counts entry denials by reason.
	EntriesDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "optionsentry_entries_denied_total",
			Help: "Total number of entries denied by the risk governor",
		},
		[]string{"reason"},
	)

	// LockoutsTotal counts daily-loss lockout activations.
	LockoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_lockouts_total",
		Help: "Total number of daily loss lockout activations",
	})

	// LockoutGauge is 1 while the daily lockout is active.
	LockoutGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optionsentry_lockout_active",
		Help: "Whether the daily loss lockout is currently active",
	})

	// KillSwitchGauge is 1 while the kill switch is active.
	KillSwitchGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optionsentry_kill_switch_active",
		Help: "Whether the kill switch is currently active",
	})

	// RealizedPnLTodayGauge tracks the running daily realized P&L.
	RealizedPnLTodayGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optionsentry_realized_pnl_today",
		Help: "Realized P&L for the current trading session in dollars",
	})
)
