// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "streamgate"

var (
	// StreamRequestsTotal tracks stream requests by final status.
	// Labels:
	//   - backend: drive, object, none (failed before classification)
	//   - status: HTTP status code class or outcome, e.g. 200, 206, 404, aborted
	StreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_requests_total",
			Help:      "Total number of stream requests",
		},
		[]string{"backend", "status"},
	)

	// StreamBytesTotal tracks body bytes relayed to clients.
	StreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_bytes_total",
			Help:      "Total number of bytes relayed to clients",
		},
		[]string{"backend"},
	)

	// ActiveStreams is the number of relay sessions currently pumping.
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Number of streams currently being relayed",
		},
	)

	// BackendErrorsTotal tracks classified backend failures.
	// Labels:
	//   - backend: drive, object
	//   - error: not_found, quota_exceeded, unavailable, mid_stream
	BackendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Total number of storage backend errors",
		},
		[]string{"backend", "error"},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)

	// CacheOperationsTotal tracks cache operations (get, set, delete).
	// Labels:
	//   - operation: get, set, delete
	//   - status: hit, miss, success, error
	//   - cache_type: redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// DBQueriesTotal tracks database queries.
	// Labels:
	//   - query_type: select, insert, update, delete
	//   - table: sessions, playback_stats, playback_events
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// PlaybackEventsTotal tracks playback event publishing and recording.
	// Labels:
	//   - operation: publish, record
	//   - status: success, error, dropped
	PlaybackEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_events_total",
			Help:      "Total number of playback events handled",
		},
		[]string{"operation", "status"},
	)
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Cache type constants.
const (
	CacheTypeRedis = "redis"
)

// DB query type constants.
const (
	DBQuerySelect = "select"
	DBQueryInsert = "insert"
)

// Table name constants.
const (
	TableSessions       = "sessions"
	TablePlaybackStats  = "playback_stats"
	TablePlaybackEvents = "playback_events"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Backend error constants.
const (
	BackendErrorNotFound    = "not_found"
	BackendErrorQuota       = "quota_exceeded"
	BackendErrorUnavailable = "unavailable"
	BackendErrorMidStream   = "mid_stream"
)

// Playback event constants.
const (
	PlaybackOpPublish = "publish"
	PlaybackOpRecord  = "record"

	PlaybackStatusSuccess = "success"
	PlaybackStatusError   = "error"
	PlaybackStatusDropped = "dropped"
)

// BackendNone labels requests that failed before a backend was chosen.
const BackendNone = "none"
