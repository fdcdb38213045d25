// Package metrics provides Prometheus metrics for the highlights service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the highlights service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline metrics
	playsScanned        prometheus.Counter
	highlightsFound     prometheus.Counter
	highlightsInserted  prometheus.Counter
	highlightsDuplicate prometheus.Counter
	clipsMatched        prometheus.Counter
	clipsMissed         prometheus.Counter
	clipConfidence      prometheus.Histogram
	generationRuns      *prometheus.CounterVec
	generationLatency   prometheus.Histogram

	// Upstream collaborators (feed, search, sleeper, kafka)
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec

	// Store
	storeRecords prometheus.Gauge
	storeLatency *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
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
		namespace:        "highlights",
		subsystem:        "",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		constLabels:      make(map[string]string),
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	m.playsScanned = m.counter("plays_scanned_total", "Plays examined against a roster")
	m.highlightsFound = m.counter("highlights_found_total", "Plays classified highlight-worthy")
	m.highlightsInserted = m.counter("highlights_inserted_total", "Highlights newly persisted")
	m.highlightsDuplicate = m.counter("highlights_duplicate_total", "Highlights skipped because the play was already stored")
	m.clipsMatched = m.counter("clips_matched_total", "Highlights for which a clip was found")
	m.clipsMissed = m.counter("clips_missed_total", "Highlights for which no clip was found")
	m.clipConfidence = m.histogram("clip_confidence", "Confidence of matched clips",
		[]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1})
	m.generationRuns = m.counterVec("generation_runs_total", "Highlight generation runs by outcome", "outcome")
	m.generationLatency = m.histogram("generation_latency_milliseconds", "End to end generation latency", m.histogramBuckets)

	m.upstreamRequests = m.counterVec("upstream_requests_total", "Calls to external collaborators", "component", "outcome")
	m.upstreamLatency = m.histogramVec("upstream_latency_milliseconds", "Latency of external collaborator calls", "component")
	m.breakerState = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	m.storeRecords = m.gauge("store_records", "Highlights held by the store")
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency", "op")

	m.queueSize = m.gauge("queue_size", "Current number of pending clip jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Jobs enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue failures")

	m.workerCount = m.gauge("worker_count", "Configured clip workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently matching a clip")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per job processing latency", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that ended in an error")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by route", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration",
		"endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")
}

// RecordPlaysScanned adds n scanned plays.
func RecordPlaysScanned(n int) {
	if globalManager.enabled {
		globalManager.playsScanned.Add(float64(n))
	}
}

// RecordHighlightsFound adds n highlight-worthy plays.
func RecordHighlightsFound(n int) {
	if globalManager.enabled {
		globalManager.highlightsFound.Add(float64(n))
	}
}

// RecordHighlightInserted increments the inserted counter.
func RecordHighlightInserted() {
	if globalManager.enabled {
		globalManager.highlightsInserted.Inc()
	}
}

// RecordHighlightDuplicate increments the duplicate counter.
func RecordHighlightDuplicate() {
	if globalManager.enabled {
		globalManager.highlightsDuplicate.Inc()
	}
}

// RecordClipMatched records a found clip and its confidence.
func RecordClipMatched(confidence float64) {
	if globalManager.enabled {
		globalManager.clipsMatched.Inc()
		globalManager.clipConfidence.Observe(confidence)
	}
}

// RecordClipMissed increments the missed counter.
func RecordClipMissed() {
	if globalManager.enabled {
		globalManager.clipsMissed.Inc()
	}
}

// RecordGeneration records a generation run outcome.
func RecordGeneration(outcome string) {
	if globalManager.enabled {
		globalManager.generationRuns.WithLabelValues(outcome).Inc()
	}
}

// RecordGenerationLatency records end to end generation latency in milliseconds.
func RecordGenerationLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.generationLatency.Observe(latencyMs)
	}
}

// RecordUpstream records one call to an external collaborator.
func RecordUpstream(component, outcome string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.upstreamRequests.WithLabelValues(component, outcome).Inc()
		globalManager.upstreamLatency.WithLabelValues(component).Observe(latencyMs)
	}
}

// UpdateBreakerState sets the state of a named circuit breaker.
func UpdateBreakerState(name string, state int) {
	if globalManager.enabled {
		globalManager.breakerState.WithLabelValues(name).Set(float64(state))
	}
}

// UpdateStoreRecords sets the number of stored highlights.
func UpdateStoreRecords(count int) {
	if globalManager.enabled {
		globalManager.storeRecords.Set(float64(count))
	}
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(op string, latencyMs float64) {
	if globalManager.enabled {
		globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if globalManager.enabled {
		globalManager.queueUtilization.Set(utilization)
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueue.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if globalManager.enabled {
		globalManager.queueDequeue.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if globalManager.enabled {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	if globalManager.enabled {
		globalManager.workerActiveCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records per job latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if globalManager.enabled {
		globalManager.workerErrors.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// SetEnabled toggles recording on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
