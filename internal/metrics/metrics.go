package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Record Store Metrics
// =============================================================================

var (
	// RecordOperationsTotal counts record store operations
	RecordOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2pnode_record_operations_total",
			Help: "Total number of record store operations",
		},
		[]string{"operation", "result"}, // "save", "load" | "ok", "error"
	)
)

// =============================================================================
// Discovery Metrics
// =============================================================================

var (
	// PeersDiscoveredTotal counts (peer, address) pairs seen for the first time
	PeersDiscoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "p2pnode_peers_discovered_total",
			Help: "Total number of discovered peer addresses",
		},
	)

	PeersExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "p2pnode_peers_expired_total",
			Help: "Total number of expired peer addresses",
		},
	)

	// DiscoveryRoundsTotal counts mDNS browse rounds by result
	DiscoveryRoundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2pnode_discovery_rounds_total",
			Help: "Total number of mDNS browse rounds",
		},
		[]string{"result"},
	)
)

// =============================================================================
// Session Metrics
// =============================================================================

var (
	// DialsTotal counts outbound dials by result
	DialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2pnode_dials_total",
			Help: "Total number of outbound dials",
		},
		[]string{"result"}, // "ok", "error"
	)

	ConnectedPeers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "p2pnode_connected_peers",
			Help: "Number of currently connected peers",
		},
	)

	// PingRTTSeconds observes successful liveness probe round trips
	PingRTTSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "p2pnode_ping_rtt_seconds",
			Help:    "Round trip time of successful liveness probes",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	PingFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "p2pnode_ping_failures_total",
			Help: "Total number of failed liveness probes",
		},
	)

	// SessionEventsTotal counts events consumed by the session loop
	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2pnode_session_events_total",
			Help: "Total number of events handled by the session loop",
		},
		[]string{"kind"},
	)
)

// =============================================================================
// Logging Metrics
// =============================================================================

var (
	// LogEntriesTotal counts log entries by level
	LogEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "p2pnode_log_entries_total",
			Help: "Total number of log entries by level",
		},
		[]string{"level"},
	)
)
