// Package metrics provides Prometheus metrics for the logbook service.
package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector of the logbook service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// awards
	awardsGranted      *prometheus.CounterVec
	awardPasses        prometheus.Counter
	awardPassDuration  prometheus.Histogram
	awardPassErrors    prometheus.Counter

	// import ledger
	importsRecorded  *prometheus.CounterVec
	importDuplicates *prometheus.CounterVec

	// activities
	activitiesCreated *prometheus.CounterVec
	activitiesDeleted prometheus.Counter

	// store
	storeQueryLatency *prometheus.HistogramVec

	// notifications
	notificationsPublished *prometheus.CounterVec
	notificationsFailed    *prometheus.CounterVec

	// http
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// system
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "logbook",
		subsystem:        "",
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.awardsGranted = m.counterVec("awards_granted_total", "Awards granted by the evaluator", "type")
	m.awardPasses = m.counter("award_passes_total", "Award evaluation passes run")
	m.awardPassDuration = m.histogram("award_pass_duration_milliseconds", "Duration of an award evaluation pass")
	m.awardPassErrors = m.counter("award_pass_errors_total", "Award evaluation passes aborted by a store error")

	m.importsRecorded = m.counterVec("imports_recorded_total", "Import ledger rows written", "source")
	m.importDuplicates = m.counterVec("import_duplicates_total", "Imports rejected because the external id was already recorded", "source")

	m.activitiesCreated = m.counterVec("activities_created_total", "Activities created", "source")
	m.activitiesDeleted = m.counter("activities_deleted_total", "Activities deleted")

	m.storeQueryLatency = m.histogramVec("store_query_latency_milliseconds", "Store operation latency", "operation")

	m.notificationsPublished = m.counterVec("notifications_published_total", "Events published to the broker", "topic")
	m.notificationsFailed = m.counterVec("notifications_failed_total", "Events that could not be published", "topic")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordAwardGranted counts one new grant of the given award type.
func RecordAwardGranted(awardType string) {
	globalManager.awardsGranted.WithLabelValues(awardType).Inc()
}

// RecordAwardPass records a finished evaluation pass.
func RecordAwardPass(durationMs float64, failed bool) {
	globalManager.awardPasses.Inc()
	globalManager.awardPassDuration.Observe(durationMs)
	if failed {
		globalManager.awardPassErrors.Inc()
	}
}

// RecordImportRecorded counts a ledger row written for source.
func RecordImportRecorded(source string) {
	globalManager.importsRecorded.WithLabelValues(source).Inc()
}

// RecordImportDuplicate counts an import rejected as already recorded.
func RecordImportDuplicate(source string) {
	globalManager.importDuplicates.WithLabelValues(source).Inc()
}

// RecordActivityCreated counts a created activity by its source.
func RecordActivityCreated(source string) {
	globalManager.activitiesCreated.WithLabelValues(source).Inc()
}

// RecordActivityDeleted counts a deleted activity.
func RecordActivityDeleted() {
	globalManager.activitiesDeleted.Inc()
}

// RecordStoreLatency records the latency of a store operation in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordNotification counts a publish attempt on topic.
func RecordNotification(topic string, err error) {
	if err != nil {
		globalManager.notificationsFailed.WithLabelValues(topic).Inc()
		return
	}
	globalManager.notificationsPublished.WithLabelValues(topic).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMetrics samples memory and goroutine gauges.
func UpdateSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.systemMemoryUsage.Set(float64(ms.HeapAlloc))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
