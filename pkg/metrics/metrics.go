package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Database query latency (seconds)
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	// Events auto-promoted by the sweep
	EventsPromotedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_promoted_total",
			Help: "Total number of pending events auto-promoted to completed",
		},
		[]string{"trigger"}, // trigger: sweep, update
	)

	// Timeline entries materialized from events
	TimelineMaterializedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_entries_materialized_total",
			Help: "Total number of timeline entries materialized from events",
		},
		[]string{"origin"}, // origin: create, update, sweep, repair
	)

	// Timeline entries retracted after an event left COMPLETED
	TimelineRetractedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timeline_entries_retracted_total",
			Help: "Total number of derived timeline entries retracted",
		},
	)

	// Merged-timeline cache effectiveness
	TimelineCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_cache_requests_total",
			Help: "Timeline list cache lookups by outcome",
		},
		[]string{"outcome"}, // outcome: hit, miss, bypass
	)
)

// RecordHTTPRequestDuration records one HTTP request observation.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records one database query observation.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}
