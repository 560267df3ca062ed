// Package metrics provides Prometheus instrumentation for the chat server:
// gauges for connection and history sizes, counters for message and
// moderation throughput, and a histogram for snapshot write latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of open client connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatd_connections_total",
		Help: "Current number of open client connections",
	})

	// MessagesTotal counts processed messages, labeled by type:
	// "common", "private", "blocked" or "rate_limited".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatd_messages_total",
		Help: "Total number of messages processed",
	}, []string{"type"})

	// StrikesTotal counts strikes pushed to users.
	StrikesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatd_strikes_total",
		Help: "Total number of strikes pushed",
	})

	// BansTotal counts bans triggered by the strike policy.
	BansTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatd_bans_total",
		Help: "Total number of bans triggered",
	})

	// MessagesExpired counts messages removed by the expiry worker.
	MessagesExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatd_messages_expired_total",
		Help: "Total number of messages removed by lifetime expiry",
	})

	// HistorySize tracks the current number of retained common-chat messages.
	HistorySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatd_history_size",
		Help: "Current number of retained common chat messages",
	})

	// SaveDuration records snapshot write latency in seconds.
	SaveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatd_save_duration_seconds",
		Help:    "Snapshot write latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		MessagesTotal,
		StrikesTotal,
		BansTotal,
		MessagesExpired,
		HistorySize,
		SaveDuration,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
