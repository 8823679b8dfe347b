// Package metrics provides Prometheus metrics for the review board service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the scoop service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Review pipeline
	reviewsSubmitted  prometheus.Counter
	reviewsFailed     *prometheus.CounterVec
	reviewsDuplicate  prometheus.Counter
	profilesCreated   prometheus.Counter
	reviewFlags       prometheus.Counter
	submissionLatency prometheus.Histogram
	captchaChecks     *prometheus.CounterVec
	rateLimited       prometheus.Counter

	// Catalogue scale
	totalProfiles prometheus.Gauge
	totalReviews  prometheus.Gauge

	// Store
	storeCommitLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueRejected    prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Feed
	feedSubscribers prometheus.Gauge
	feedSnapshots   *prometheus.CounterVec
	feedReadErrors  prometheus.Counter

	// Geo
	geoLookups *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scoop",
		subsystem:        "board",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often gauges fed by pollers should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.reviewsSubmitted = m.counter("reviews_submitted_total", "Total number of reviews committed")
	m.reviewsFailed = m.counterVec("reviews_failed_total", "Total number of rejected or failed submissions", "reason")
	m.reviewsDuplicate = m.counter("reviews_duplicate_total",
		"Submissions from an author or device that already reviewed the profile")
	m.profilesCreated = m.counter("profiles_created_total", "Total number of profiles created by submissions")
	m.reviewFlags = m.counter("review_flags_total", "Total number of review flags raised")
	m.submissionLatency = m.histogram("submission_latency_milliseconds",
		"End-to-end review submission latency in milliseconds", m.histogramBuckets)
	m.captchaChecks = m.counterVec("captcha_checks_total", "Captcha checks by outcome", "outcome")
	m.rateLimited = m.counter("rate_limited_total", "Submissions rejected by the rate limiter")

	m.totalProfiles = m.gauge("profiles", "Number of profiles in the store")
	m.totalReviews = m.gauge("reviews", "Number of reviews in the store")

	m.storeCommitLatency = m.histogram("store_commit_latency_milliseconds",
		"Store commit transaction latency in milliseconds", m.histogramBuckets)
	m.storeQueryLatency = m.histogram("store_query_latency_milliseconds",
		"Store read latency in milliseconds", m.histogramBuckets)

	m.queueSize = m.gauge("queue_size", "Current number of queued submission jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueRejected = m.counter("queue_rejected_total", "Jobs rejected because the queue was full or closed")

	m.workerCount = m.gauge("worker_count", "Number of submission workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker job processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of failed worker jobs")

	m.feedSubscribers = m.gauge("feed_subscribers", "Number of live feed subscribers")
	m.feedSnapshots = m.counterVec("feed_snapshots_total", "Snapshots published by feed kind", "kind")
	m.feedReadErrors = m.counter("feed_read_errors_total", "Snapshot reads that failed and left subscribers stale")

	m.geoLookups = m.counterVec("geo_lookups_total", "Geolocation lookups by outcome", "outcome")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordReviewSubmitted increments the committed reviews counter.
func RecordReviewSubmitted() {
	globalManager.reviewsSubmitted.Inc()
}

// RecordReviewFailed increments the failed submissions counter for reason.
func RecordReviewFailed(reason string) {
	globalManager.reviewsFailed.WithLabelValues(reason).Inc()
}

// RecordReviewDuplicate increments the duplicate-author counter.
func RecordReviewDuplicate() {
	globalManager.reviewsDuplicate.Inc()
}

// RecordProfileCreated increments the created profiles counter.
func RecordProfileCreated() {
	globalManager.profilesCreated.Inc()
}

// RecordReviewFlag increments the review flags counter.
func RecordReviewFlag() {
	globalManager.reviewFlags.Inc()
}

// RecordSubmissionLatency records end-to-end submission latency.
func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

// RecordCaptchaCheck records a captcha verification outcome.
func RecordCaptchaCheck(passed bool) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	globalManager.captchaChecks.WithLabelValues(outcome).Inc()
}

// RecordRateLimited increments the rate-limited submissions counter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// UpdateTotals sets the catalogue size gauges.
func UpdateTotals(profiles, reviews int) {
	globalManager.totalProfiles.Set(float64(profiles))
	globalManager.totalReviews.Set(float64(reviews))
}

// RecordStoreCommitLatency records a commit transaction latency.
func RecordStoreCommitLatency(latencyMs float64) {
	globalManager.storeCommitLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records a store read latency.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueRejected increments the rejected enqueue counter.
func RecordQueueRejected() {
	globalManager.queueRejected.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateFeedSubscribers sets the live subscriber count.
func UpdateFeedSubscribers(count int) {
	globalManager.feedSubscribers.Set(float64(count))
}

// RecordFeedSnapshot increments the published snapshots counter for kind.
func RecordFeedSnapshot(kind string) {
	globalManager.feedSnapshots.WithLabelValues(kind).Inc()
}

// RecordFeedReadError increments the failed snapshot reads counter.
func RecordFeedReadError() {
	globalManager.feedReadErrors.Inc()
}

// RecordGeoLookup records a geolocation lookup outcome (hit, miss, error).
func RecordGeoLookup(outcome string) {
	globalManager.geoLookups.WithLabelValues(outcome).Inc()
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

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
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
