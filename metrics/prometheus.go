// Package metrics provides Prometheus metrics for the digital economy index backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the backend.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Chat Metrics - What really matters for the dashboard
	chatRequests prometheus.Counter
	chatErrors   prometheus.Counter
	chartRenders prometheus.Counter

	// LLM Metrics - Cost and latency of model calls
	llmCallLatency prometheus.Histogram
	llmTokens      *prometheus.CounterVec

	// Database Metrics
	sqlQueryLatency prometheus.Histogram

	// Pipeline Metrics - PDF extraction progress
	extractionPages     prometheus.Counter
	extractionCountries *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Connection Metrics
	wsConnections  prometheus.Gauge
	activeSessions prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry()

// Initialize global metrics.
func init() {
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "adei",
		subsystem: "backend",
		// Millisecond buckets sized for LLM calls, which run into the tens of seconds
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Chat Metrics - Focus on what drives the dashboard
	m.chatRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chat_requests_total",
		Help:      "Total number of chat questions received",
	})

	m.chatErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chat_errors_total",
		Help:      "Total number of chat turns that failed to produce an answer",
	})

	m.chartRenders = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chart_renders_total",
		Help:      "Total number of bar charts rendered from chat answers",
	})

	// LLM Metrics - Cost and latency of model calls
	m.llmCallLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "llm_call_latency_milliseconds",
		Help:      "Histogram of LLM completion call latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.llmTokens = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "llm_tokens_total",
			Help:      "Total number of LLM tokens consumed by kind (prompt, completion)",
		},
		[]string{"kind"},
	)

	// Database Metrics
	m.sqlQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sql_query_latency_milliseconds",
		Help:      "Histogram of read-only SQL query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Pipeline Metrics - PDF extraction progress
	m.extractionPages = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "extraction_pages_total",
		Help:      "Total number of PDF pages read by the extraction pipeline",
	})

	m.extractionCountries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "extraction_countries_total",
			Help:      "Total number of country extractions by status (success, error)",
		},
		[]string{"status"},
	)

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Connection Metrics
	m.wsConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "websocket_connections",
		Help:      "Current number of open WebSocket chat connections",
	})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_sessions",
		Help:      "Current number of live chat sessions",
	})
}

// RecordChatRequest increments the chat requests counter.
func RecordChatRequest() {
	globalManager.chatRequests.Inc()
}

// RecordChatError increments the chat errors counter.
func RecordChatError() {
	globalManager.chatErrors.Inc()
}

// RecordChartRender increments the chart renders counter.
func RecordChartRender() {
	globalManager.chartRenders.Inc()
}

// RecordLLMCallLatency records LLM completion call latency in milliseconds.
func RecordLLMCallLatency(latencyMs float64) {
	globalManager.llmCallLatency.Observe(latencyMs)
}

// RecordLLMTokens adds prompt and completion token counts to the token counter.
func RecordLLMTokens(promptTokens, completionTokens int) {
	globalManager.llmTokens.WithLabelValues("prompt").Add(float64(promptTokens))
	globalManager.llmTokens.WithLabelValues("completion").Add(float64(completionTokens))
}

// RecordSQLQueryLatency records read-only SQL query latency in milliseconds.
func RecordSQLQueryLatency(latencyMs float64) {
	globalManager.sqlQueryLatency.Observe(latencyMs)
}

// RecordExtractionPages adds to the count of PDF pages read.
func RecordExtractionPages(count int) {
	globalManager.extractionPages.Add(float64(count))
}

// RecordCountryExtraction records one country extraction with the given status.
func RecordCountryExtraction(status string) {
	globalManager.extractionCountries.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// IncWebSocketConnections increments the open WebSocket connection gauge.
func IncWebSocketConnections() {
	globalManager.wsConnections.Inc()
}

// DecWebSocketConnections decrements the open WebSocket connection gauge.
func DecWebSocketConnections() {
	globalManager.wsConnections.Dec()
}

// UpdateActiveSessions sets the live chat session gauge.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
