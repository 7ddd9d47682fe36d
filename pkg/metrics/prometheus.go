// Package metrics provides Prometheus metrics for the tutorboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Fetch metrics - score source health
	fetchRequests *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	fetchLatency  prometheus.Histogram
	fetchBytes    prometheus.Histogram
	fetchRetries  prometheus.Counter

	// Cache metrics
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheInvalidations prometheus.Counter
	cacheGeneration    prometheus.Gauge

	// Pipeline metrics - what the operators see
	pipelineRuns    *prometheus.CounterVec
	pipelineLatency prometheus.Histogram
	rowsRead        prometheus.Counter
	rowsDropped     prometheus.Counter
	recordsDeduped  prometheus.Counter
	studentsRanked  prometheus.Gauge
	studentsTracked prometheus.Gauge
	levelsTracked   prometheus.Gauge
	lastSuccessUnix prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tutorboard",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.fetchRequests = m.counterVec("fetch_requests_total",
		"Score source requests by tab and outcome", "tab", "outcome")
	m.fetchErrors = m.counterVec("fetch_errors_total",
		"Score source failures by kind (transport, status, html, malformed)", "kind")
	m.fetchLatency = m.histogram("fetch_latency_milliseconds",
		"Score source round trip in milliseconds",
		[]float64{50, 100, 250, 500, 1000, 2500, 5000, 12000})
	m.fetchBytes = m.histogram("fetch_body_bytes",
		"Size of fetched score sheets in bytes",
		prometheus.ExponentialBuckets(1024, 4, 8))
	m.fetchRetries = m.counter("fetch_retries_total",
		"Retried score source requests")

	m.cacheHits = m.counter("cache_hits_total", "Score sheet cache hits")
	m.cacheMisses = m.counter("cache_misses_total", "Score sheet cache misses")
	m.cacheInvalidations = m.counter("cache_invalidations_total",
		"Operator cache invalidations")
	m.cacheGeneration = m.gauge("cache_generation",
		"Current cache-bust generation")

	m.pipelineRuns = m.counterVec("pipeline_runs_total",
		"Leaderboard computations by result status", "status")
	m.pipelineLatency = m.histogram("pipeline_latency_milliseconds",
		"End to end leaderboard computation in milliseconds", m.histogramBuckets)
	m.rowsRead = m.counter("rows_read_total", "Score sheet rows read")
	m.rowsDropped = m.counter("rows_dropped_total",
		"Score sheet rows dropped for a missing student code or assignment")
	m.recordsDeduped = m.counter("records_deduplicated_total",
		"Attempts superseded by a later or higher attempt")
	m.studentsRanked = m.gauge("students_ranked",
		"Rows in the most recent leaderboard view")
	m.studentsTracked = m.gauge("students_tracked",
		"Students with at least one kept attempt")
	m.levelsTracked = m.gauge("levels_tracked", "Distinct levels in the sheet")
	m.lastSuccessUnix = m.gauge("last_success_unixtime",
		"Unix time of the last successful computation")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes",
		"Current system memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count",
		"Current number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds",
		"Histogram of garbage collection pause times in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordFetch counts a score source request for tab with the given outcome.
func RecordFetch(tab, outcome string) {
	globalManager.fetchRequests.WithLabelValues(tab, outcome).Inc()
}

// RecordFetchError counts a score source failure of the given kind.
func RecordFetchError(kind string) {
	globalManager.fetchErrors.WithLabelValues(kind).Inc()
}

// RecordFetchLatency records a score source round trip in milliseconds.
func RecordFetchLatency(latencyMs float64) {
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordFetchBytes records the size of a fetched body.
func RecordFetchBytes(n int) {
	globalManager.fetchBytes.Observe(float64(n))
}

// RecordFetchRetry increments the retry counter.
func RecordFetchRetry() {
	globalManager.fetchRetries.Inc()
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheInvalidation counts an invalidation and publishes the new generation.
func RecordCacheInvalidation(generation uint64) {
	globalManager.cacheInvalidations.Inc()
	globalManager.cacheGeneration.Set(float64(generation))
}

// RecordPipelineRun counts a computation by status and records its latency.
func RecordPipelineRun(status string, latencyMs float64) {
	globalManager.pipelineRuns.WithLabelValues(status).Inc()
	globalManager.pipelineLatency.Observe(latencyMs)
}

// RecordRows adds normalizer row counts.
func RecordRows(read, dropped int) {
	globalManager.rowsRead.Add(float64(read))
	globalManager.rowsDropped.Add(float64(dropped))
}

// RecordDeduplicated adds the number of superseded attempts.
func RecordDeduplicated(n int) {
	if n > 0 {
		globalManager.recordsDeduped.Add(float64(n))
	}
}

// UpdateStudentsRanked sets the size of the most recent view.
func UpdateStudentsRanked(count int) {
	globalManager.studentsRanked.Set(float64(count))
}

// UpdateStudentsTracked sets the number of students with kept attempts.
func UpdateStudentsTracked(count int) {
	globalManager.studentsTracked.Set(float64(count))
}

// UpdateLevelsTracked sets the number of distinct levels.
func UpdateLevelsTracked(count int) {
	globalManager.levelsTracked.Set(float64(count))
}

// UpdateLastSuccess records the unix time of a successful computation.
func UpdateLastSuccess(unix int64) {
	globalManager.lastSuccessUnix.Set(float64(unix))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
