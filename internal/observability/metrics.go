package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts routing transitions by action and outcome.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docroute_transitions_total",
		Help: "Total routing transitions by action and outcome",
	}, []string{"action", "outcome"})

	// TransitionConflicts counts transitions lost to a concurrent writer.
	TransitionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docroute_transition_conflicts_total",
		Help: "Total routing transitions rejected by the version check",
	}, []string{"action"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docroute_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts request snapshot cache lookups by result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docroute_cache_lookups_total",
		Help: "Request cache lookups by result",
	}, []string{"result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docroute_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// NotificationsPublished counts routing events published by channel kind.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docroute_notifications_published_total",
		Help: "Routing events published by channel kind",
	}, []string{"channel"})

	// WebSocketConnectionsTotal is the gauge of open routing websocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docroute_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docroute_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordTransition records the outcome of one transition attempt.
func RecordTransition(action, outcome string) {
	TransitionsTotal.WithLabelValues(action, outcome).Inc()
	if outcome == "conflict" {
		TransitionConflicts.WithLabelValues(action).Inc()
	}
}
