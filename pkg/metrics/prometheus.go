// Package metrics provides Prometheus metrics for the tally scoreboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scoreboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion metrics - outcome of every submitAction call
	actionsAccepted    prometheus.Counter
	actionsDuplicate   prometheus.Counter
	actionsRateLimited prometheus.Counter
	actionsInvalid     prometheus.Counter
	submitLatency      prometheus.Histogram

	// Cache metrics - staleness and recompute behavior
	cacheHits            prometheus.Counter
	cacheInvalidations   prometheus.Counter
	cacheRefreshes       prometheus.Counter
	cacheRefreshDuration prometheus.Histogram

	// Stream metrics - fan-out health
	streamSubscribers     prometheus.Gauge
	streamEventsPublished prometheus.Counter
	streamEventsDropped   prometheus.Counter

	// Store metrics
	storeApplyLatency prometheus.Histogram
	storeQueryLatency prometheus.Histogram

	// Board size
	totalUsers prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Registry returns the registry backing the global manager, for promhttp.
func Registry() *prometheus.Registry {
	return customRegistry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tally",
		subsystem:        "scoreboard",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.actionsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "actions_accepted_total",
		Help:      "Total number of score actions committed",
	})
	m.actionsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "actions_duplicate_total",
		Help:      "Total number of replayed (userId, actionId) pairs rejected",
	})
	m.actionsRateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "actions_rate_limited_total",
		Help:      "Total number of submissions rejected by the rate limiter",
	})
	m.actionsInvalid = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "actions_invalid_total",
		Help:      "Total number of submissions failing validation",
	})
	m.submitLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submit_latency_milliseconds",
		Help:      "Histogram of end-to-end submitAction latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of leaderboard reads served from the snapshot",
	})
	m.cacheInvalidations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_invalidations_total",
		Help:      "Total number of targeted snapshot invalidations",
	})
	m.cacheRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_refreshes_total",
		Help:      "Total number of snapshot recomputations",
	})
	m.cacheRefreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_refresh_duration_milliseconds",
		Help:      "Histogram of snapshot recomputation duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.streamSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_subscribers",
		Help:      "Current number of live stream subscribers",
	})
	m.streamEventsPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_events_published_total",
		Help:      "Total number of events published to the hub",
	})
	m.streamEventsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_events_dropped_total",
		Help:      "Total number of events dropped for slow subscribers",
	})

	m.storeApplyLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_apply_latency_milliseconds",
		Help:      "Histogram of atomic apply latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.storeQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_latency_milliseconds",
		Help:      "Histogram of store read latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.totalUsers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "total_users",
		Help:      "Current number of users holding a score",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current allocated heap bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// Package-level helpers recording on the global manager.

// RecordActionAccepted increments the accepted actions counter.
func RecordActionAccepted() { globalManager.actionsAccepted.Inc() }

// RecordActionDuplicate increments the duplicate actions counter.
func RecordActionDuplicate() { globalManager.actionsDuplicate.Inc() }

// RecordActionRateLimited increments the rate-limited actions counter.
func RecordActionRateLimited() { globalManager.actionsRateLimited.Inc() }

// RecordActionInvalid increments the invalid actions counter.
func RecordActionInvalid() { globalManager.actionsInvalid.Inc() }

// RecordSubmitLatency records one submitAction duration in milliseconds.
func RecordSubmitLatency(ms float64) { globalManager.submitLatency.Observe(ms) }

// RecordCacheHit increments the snapshot-served reads counter.
func RecordCacheHit() { globalManager.cacheHits.Inc() }

// RecordCacheInvalidation increments the targeted invalidation counter.
func RecordCacheInvalidation() { globalManager.cacheInvalidations.Inc() }

// RecordCacheRefresh counts a recomputation and records its duration.
func RecordCacheRefresh(ms float64) {
	globalManager.cacheRefreshes.Inc()
	globalManager.cacheRefreshDuration.Observe(ms)
}

// UpdateStreamSubscribers sets the live subscriber gauge.
func UpdateStreamSubscribers(n int) { globalManager.streamSubscribers.Set(float64(n)) }

// RecordStreamEventPublished increments the published events counter.
func RecordStreamEventPublished() { globalManager.streamEventsPublished.Inc() }

// RecordStreamEventDropped increments the dropped events counter.
func RecordStreamEventDropped() { globalManager.streamEventsDropped.Inc() }

// RecordStoreApplyLatency records one atomic apply duration in milliseconds.
func RecordStoreApplyLatency(ms float64) { globalManager.storeApplyLatency.Observe(ms) }

// RecordStoreQueryLatency records one store read duration in milliseconds.
func RecordStoreQueryLatency(ms float64) { globalManager.storeQueryLatency.Observe(ms) }

// UpdateTotalUsers sets the board size gauge.
func UpdateTotalUsers(n int) { globalManager.totalUsers.Set(float64(n)) }

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration records one HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}

// UpdateSystemMemoryUsage sets the allocated heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }
