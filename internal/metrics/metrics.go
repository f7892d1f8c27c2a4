package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	// Point operations
	PointOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "point_operations_total",
			Help: "Charge/use operations by outcome",
		},
		[]string{"op", "result"}, // charge|use, ok|rejected|error
	)
	ReconciliationRequired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "point_reconciliation_required_total",
			Help: "Operations whose balance rollback failed after a history append error",
		},
	)

	// Locks
	LockWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "point_lock_wait_seconds",
			Help:    "Time spent waiting for a per-user lock",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)
	LockKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "point_lock_keys",
			Help: "Distinct user keys with a lock handle",
		},
	)

	// Events
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "point_events_published_total",
			Help: "Point change events handed to the broker",
		},
		[]string{"result"}, // ok|failed|dropped
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestDuration,
			PointOperations,
			ReconciliationRequired,
			LockWaitSeconds,
			LockKeys,
			EventsPublished,
			WorkerQueueDepth,
		)
	})
}
