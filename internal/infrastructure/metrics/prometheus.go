// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gotube"

var (
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
	//   - table: videos, categories, user_interactions
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

	// EncoderRunsTotal counts external encoder invocations.
	// Labels:
	//   - operation: probe, extract_frame
	//   - status: success, error
	EncoderRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encoder_runs_total",
			Help:      "Total number of external encoder invocations",
		},
		[]string{"operation", "status"},
	)

	// EncoderDuration observes wall time of encoder invocations.
	EncoderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encoder_duration_seconds",
			Help:      "Duration of external encoder invocations",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// StorageOperationsTotal counts object storage calls.
	// Labels:
	//   - operation: put, get, delete
	//   - status: success, error
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Total number of object storage operations",
		},
		[]string{"operation", "status"},
	)

	// PipelineFallbacksTotal counts degraded upload paths.
	// Labels:
	//   - kind: duration, thumbnails
	PipelineFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_fallbacks_total",
			Help:      "Total number of asset pipeline fallbacks",
		},
		[]string{"kind"},
	)

	// CleanupTasksTotal counts storage cleanup tasks by outcome.
	// Labels:
	//   - result: published, completed, retried, abandoned
	CleanupTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_tasks_total",
			Help:      "Total number of storage cleanup tasks",
		},
		[]string{"result"},
	)
)

// Generic outcome constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
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
	DBQueryUpdate = "update"
	DBQueryDelete = "delete"
)

// Table name constants.
const (
	TableVideos       = "videos"
	TableCategories   = "categories"
	TableInteractions = "user_interactions"
)

// Storage operation constants.
const (
	StorageOpPut    = "put"
	StorageOpGet    = "get"
	StorageOpDelete = "delete"
)

// Fallback kind constants.
const (
	FallbackDuration   = "duration"
	FallbackThumbnails = "thumbnails"
)

// Cleanup result constants.
const (
	CleanupPublished = "published"
	CleanupCompleted = "completed"
	CleanupRetried   = "retried"
	CleanupAbandoned = "abandoned"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
