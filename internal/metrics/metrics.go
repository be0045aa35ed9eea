// Package metrics exposes TinyDB's Prometheus instrumentation, grounded on
// cuemby-warren's pkg/metrics: package-level collectors registered with the
// default registry, served over promhttp.Handler on a separate debug port
// (spec §3's domain-stack addition — additive instrumentation, not a
// wire-protocol change).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

var (
	// ShardEntries tracks live entry counts per database/shard.
	ShardEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tinydb_shard_entries",
			Help: "Number of live entries in a shard.",
		},
		[]string{"database", "shard"},
	)

	// CommandsTotal counts executed commands by verb.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinydb_commands_total",
			Help: "Total number of commands executed, by command name.",
		},
		[]string{"command"},
	)

	// ActiveConnections tracks currently open client connections.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tinydb_active_connections",
			Help: "Number of currently open client connections.",
		},
	)

	// WebhookOutcomes counts webhook POST results by outcome
	// ("delivered" or "failed").
	WebhookOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinydb_webhook_outcomes_total",
			Help: "Total webhook POST outcomes, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(ShardEntries, CommandsTotal, ActiveConnections, WebhookOutcomes)
}

// Handler returns the HTTP handler that serves collected metrics in the
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
