package quotestream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal counts quote ticks consumed from the stream.
	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_stream_messages_total",
		Help: "Total number of quote messages consumed from the stream",
	})

	// SubscriptionsGauge tracks active quote subscriptions.
	SubscriptionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "optionsentry_stream_subscriptions",
		Help: "Number of active quote stream subscriptions",
	})

	// ReconnectAttemptsTotal counts reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_stream_reconnect_attempts_total",
		Help: "Total number of stream reconnection attempts",
	})

	// ReconnectFailuresTotal counts failed reconnection attempts.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionsentry_stream_reconnect_failures_total",
		Help: "Total number of failed stream reconnection attempts",
	})
)
