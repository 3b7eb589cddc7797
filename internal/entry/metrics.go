package entry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CandidatesReceivedTotal counts trade candidates consumed from the queue.
	CandidatesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_entry_candidates_received_total",
		Help: "Total number of trade candidates received",
	})

	// CandidatesRejectedTotal counts candidates rejected before order
	// submission, by stage.
	CandidatesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optionsentry_entry_candidates_rejected_total",
		Help: "Total number of trade candidates rejected before submission",
	}, []string{"stage"})

	// EntriesFilledTotal counts confirmed entry fills.
	EntriesFilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_entry_fills_total",
		Help: "Total number of confirmed entry fills",
	})

	// EntryOrderFailuresTotal counts entry orders that failed to submit or fill.
	EntryOrderFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_entry_order_failures_total",
		Help: "Total number of failed entry order submissions",
	})
)
