// Package metrics registers Prometheus metrics for the avatar service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels.
const (
	OpUpdate = "update"
	OpReset  = "reset"
	OpGet    = "get"
)

// Result labels.
const (
	ResultSuccess    = "success"
	ResultForbidden  = "forbidden"
	ResultBadRequest = "bad_request"
	ResultNotFound   = "not_found"
	ResultTooLarge   = "too_large"
	ResultError      = "error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_http_requests_total",
			Help: "Total HTTP requests served by the avatar service.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "avatar_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// AvatarOperations counts avatar operations by outcome.
	AvatarOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_operations_total",
			Help: "Avatar operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	// UploadDuration observes decode, resize and store time for uploads.
	UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "avatar_upload_duration_seconds",
		Help:    "Time spent processing and storing an uploaded avatar.",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avatar_url_cache_hits_total",
		Help: "Avatar URL cache hits.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avatar_url_cache_misses_total",
		Help: "Avatar URL cache misses.",
	})
)

// ObserveOperation records one avatar operation.
func ObserveOperation(op, result string) {
	AvatarOperations.WithLabelValues(op, result).Inc()
}

// ObserveUpload records how long an upload took.
func ObserveUpload(start time.Time) {
	UploadDuration.Observe(time.Since(start).Seconds())
}

// GinMiddleware records request counts and latency. Paths are labelled by
// their route template to keep cardinality bounded.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
