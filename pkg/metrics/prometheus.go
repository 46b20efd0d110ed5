// Package metrics provides Prometheus metrics for the stagerank service.
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

	// Ingest pipeline
	ingestBatches   prometheus.Counter
	ingestRecords   prometheus.Counter
	ingestErrors    *prometheus.CounterVec
	fetches         *prometheus.CounterVec
	fetchLatency    prometheus.Histogram
	fetchSkipped    prometheus.Counter
	cacheEntries    prometheus.Gauge
	watchReloads    prometheus.Counter
	pollCyclesTotal prometheus.Counter

	// Job queue and workers
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueEnqueued prometheus.Counter
	queueDequeued prometheus.Counter
	jobs          *prometheus.CounterVec
	jobLatency    prometheus.Histogram
	workerCount   prometheus.Gauge

	// Result store
	storeRecords       prometheus.Gauge
	storeUpsertLatency prometheus.Histogram
	storeScanLatency   prometheus.Histogram

	// Scoring queries
	queryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "stagerank",
		subsystem:        "results",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.ingestBatches = m.counter("ingest_batches_total", "Total number of committed ingest batches")
	m.ingestRecords = m.counter("ingest_records_total", "Total number of result records ingested")
	m.ingestErrors = m.counterVec("ingest_errors_total", "Ingest failures by kind", "kind")
	m.fetches = m.counterVec("fetches_total", "Source fetches by outcome", "outcome")
	m.fetchLatency = m.histogram("fetch_latency_milliseconds", "Source fetch latency in milliseconds")
	m.fetchSkipped = m.counter("fetch_skipped_total", "Fetches skipped because the source is cooling down")
	m.cacheEntries = m.gauge("fetch_cache_entries", "Number of addresses tracked by the fetch cache")
	m.watchReloads = m.counter("watch_reloads_total", "Re-ingests triggered by a watched file")
	m.pollCyclesTotal = m.counter("poll_cycles_total", "Completed source polling cycles")

	m.queueSize = m.gauge("queue_size", "Number of ingest jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the ingest job queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Ingest jobs accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Ingest jobs handed to workers")
	m.jobs = m.counterVec("jobs_total", "Ingest jobs processed by outcome", "outcome")
	m.jobLatency = m.histogram("job_latency_milliseconds", "Ingest job processing latency in milliseconds")
	m.workerCount = m.gauge("workers", "Number of ingest workers")

	m.storeRecords = m.gauge("store_records", "Number of result records held by the store")
	m.storeUpsertLatency = m.histogram("store_upsert_latency_milliseconds", "Store upsert latency in milliseconds")
	m.storeScanLatency = m.histogram("store_scan_latency_milliseconds", "Store scan latency in milliseconds")

	m.queryLatency = m.histogramVec("query_latency_milliseconds", "Scoring query latency in milliseconds", "query")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap memory in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// RecordIngest counts one committed batch of n records.
func RecordIngest(n int) {
	globalManager.ingestBatches.Inc()
	globalManager.ingestRecords.Add(float64(n))
}

// RecordIngestError counts a failed ingest of the given kind.
func RecordIngestError(kind string) {
	globalManager.ingestErrors.WithLabelValues(kind).Inc()
}

// RecordFetch counts a source fetch by outcome and records its latency.
func RecordFetch(outcome string, latencyMs float64) {
	globalManager.fetches.WithLabelValues(outcome).Inc()
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordFetchSkipped counts a fetch suppressed by the cooldown.
func RecordFetchSkipped() {
	globalManager.fetchSkipped.Inc()
}

// UpdateCacheEntries sets the number of addresses in the fetch cache.
func UpdateCacheEntries(n int) {
	globalManager.cacheEntries.Set(float64(n))
}

// RecordWatchReload counts a re-ingest triggered by the file watcher.
func RecordWatchReload() {
	globalManager.watchReloads.Inc()
}

// RecordPollCycle counts a completed polling cycle.
func RecordPollCycle() {
	globalManager.pollCyclesTotal.Inc()
}

// UpdateQueueSize sets the number of queued ingest jobs.
func UpdateQueueSize(n int) {
	globalManager.queueSize.Set(float64(n))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(n int) {
	globalManager.queueCapacity.Set(float64(n))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a job handed to a worker.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordJob counts a processed job by outcome and records its latency.
func RecordJob(outcome string, latencyMs float64) {
	globalManager.jobs.WithLabelValues(outcome).Inc()
	globalManager.jobLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the number of ingest workers.
func UpdateWorkerCount(n int) {
	globalManager.workerCount.Set(float64(n))
}

// UpdateStoreRecords sets the number of records in the store.
func UpdateStoreRecords(n int) {
	globalManager.storeRecords.Set(float64(n))
}

// RecordStoreUpsertLatency records store upsert latency in milliseconds.
func RecordStoreUpsertLatency(latencyMs float64) {
	globalManager.storeUpsertLatency.Observe(latencyMs)
}

// RecordStoreScanLatency records store scan latency in milliseconds.
func RecordStoreScanLatency(latencyMs float64) {
	globalManager.storeScanLatency.Observe(latencyMs)
}

// RecordQueryLatency records a scoring query's latency in milliseconds.
func RecordQueryLatency(query string, latencyMs float64) {
	globalManager.queryLatency.WithLabelValues(query).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error for an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
