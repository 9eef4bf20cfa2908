package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Document flow through the extraction pipeline by parsing mode
//   - LLM request performance, retries, and token consumption
//   - Chunk fan-out outcomes for image extraction
//   - Artifact store operation latencies
//   - Error rates categorized by component and error kind
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.DocumentStarted("TEXT_LLM")
//	defer metrics.RecordLLMRequest("bedrock", "anthropic.claude-3", "success", time.Since(start).Seconds(), 100, 500)
type Metrics struct {
	// DocumentCounter tracks processed documents by parsing mode and outcome.
	// Labels: parsing_mode (TEXT_LLM|IMAGE_LLM|OCR_THEN_TEXT_LLM|MANAGED_IDP), status (success|error)
	DocumentCounter *prometheus.CounterVec

	// DocumentDuration measures end-to-end document processing time in seconds.
	// Labels: parsing_mode
	// Buckets: 0.5s, 1s, 5s, 15s, 30s, 60s, 120s, 300s, 600s, 900s
	DocumentDuration *prometheus.HistogramVec

	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider (bedrock|anthropic), model
	// Buckets: 0.1s, 0.5s, 1s, 2s, 5s, 10s, 30s, 60s, 120s
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests by provider and model.
	// Labels: provider (bedrock|anthropic), model, status (success|throttled|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMRetryCounter counts throttling retries by provider and model.
	// Labels: provider, model
	LLMRetryCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (input|output)
	LLMTokensUsed *prometheus.CounterVec

	// ChunkCounter counts image chunk invocations.
	// Labels: status (success|error)
	ChunkCounter *prometheus.CounterVec

	// ChunkDuration measures per-chunk LLM round trip time in seconds.
	// Labels: status
	// Buckets: 0.1s, 0.5s, 1s, 5s, 10s, 30s, 60s, 120s
	ChunkDuration *prometheus.HistogramVec

	// TruncationCounter counts documents truncated to fit a model's context window.
	// Labels: model
	TruncationCounter *prometheus.CounterVec

	// ErrorCounter tracks errors by component and error kind.
	// Labels: component (orchestrator|extractor|llm|store|automation), error_kind
	ErrorCounter *prometheus.CounterVec

	// ActiveDocuments is a gauge tracking documents currently in flight.
	// Labels: parsing_mode
	ActiveDocuments *prometheus.GaugeVec

	// HTTPRequestDuration measures HTTP API request latency.
	// Labels: method, path, status_code
	// Buckets: 0.001s, 0.005s, 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts HTTP requests.
	// Labels: method, path, status_code
	HTTPRequestCounter *prometheus.CounterVec

	// StorageOperationDuration measures artifact store call latency.
	// Labels: operation (get|put|head|copy|presign|delete|list)
	// Buckets: 0.001s, 0.005s, 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s, 30s
	StorageOperationDuration *prometheus.HistogramVec

	// StorageOperationCounter counts artifact store calls.
	// Labels: operation, status (success|error)
	StorageOperationCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
// This should be called once at application startup.
//
// All metrics are automatically registered with Prometheus's default registry
// and will be available at the /metrics endpoint when using prometheus HTTP handler.
func NewMetrics() *Metrics {
	return &Metrics{
		DocumentCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quarry_documents_total",
				Help: "Total number of documents processed by parsing mode and status",
			},
			[]string{"parsing_mode", "status"},
		),

		DocumentDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quarry_document_duration_seconds",
				Help:    "End-to-end document processing duration in seconds",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 900},
			},
			[]string{"parsing_mode"},
		),

		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quarry_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quarry_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMRetryCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quarry_llm_retries_total",
				Help: "Total number of throttling retries by provider and model",
			},
			[]string{"provider", "model"},
		),

		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quarry_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		ChunkCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quarry_chunks_total",
				Help: "Total number of image chunk invocations by status",
			},
			[]string{"status"},
		),

		ChunkDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quarry_chunk_duration_seconds",
				Help:    "Duration of per-chunk LLM round trips in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),

		TruncationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quarry_truncations_total",
				Help: "Total number of documents truncated to fit the model context window",
			},
			[]string{"model"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quarry_errors_total",
				Help: "Total number of errors by component and error kind",
			},
			[]string{"component", "error_kind"},
		),

		ActiveDocuments: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quarry_active_documents",
				Help: "Current number of documents in flight by parsing mode",
			},
			[]string{"parsing_mode"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quarry_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quarry_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),

		StorageOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quarry_storage_operation_duration_seconds",
				Help:    "Duration of artifact store operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"operation"},
		),

		StorageOperationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quarry_storage_operations_total",
				Help: "Total number of artifact store operations",
			},
			[]string{"operation", "status"},
		),
	}
}

// DocumentStarted increments the in-flight document gauge.
//
// Example:
//
//	metrics.DocumentStarted("IMAGE_LLM")
func (m *Metrics) DocumentStarted(parsingMode string) {
	m.ActiveDocuments.WithLabelValues(parsingMode).Inc()
}

// DocumentEnded decrements the in-flight gauge and records the outcome.
//
// Example:
//
//	start := time.Now()
//	// ... process document ...
//	metrics.DocumentEnded("TEXT_LLM", "success", time.Since(start).Seconds())
func (m *Metrics) DocumentEnded(parsingMode, status string, durationSeconds float64) {
	m.ActiveDocuments.WithLabelValues(parsingMode).Dec()
	m.DocumentCounter.WithLabelValues(parsingMode, status).Inc()
	m.DocumentDuration.WithLabelValues(parsingMode).Observe(durationSeconds)
}

// RecordLLMRequest records metrics for an LLM API request.
//
// Example:
//
//	start := time.Now()
//	// ... make LLM request ...
//	metrics.RecordLLMRequest("bedrock", "anthropic.claude-3", "success", time.Since(start).Seconds(), 100, 500)
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, inputTokens, outputTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if inputTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}

// RecordLLMRetry increments the retry counter after a throttled attempt.
func (m *Metrics) RecordLLMRetry(provider, model string) {
	m.LLMRetryCounter.WithLabelValues(provider, model).Inc()
}

// RecordChunk records metrics for one image chunk invocation.
//
// Example:
//
//	start := time.Now()
//	// ... invoke model on chunk ...
//	metrics.RecordChunk("success", time.Since(start).Seconds())
func (m *Metrics) RecordChunk(status string, durationSeconds float64) {
	m.ChunkCounter.WithLabelValues(status).Inc()
	m.ChunkDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordTruncation increments the truncation counter for a model.
func (m *Metrics) RecordTruncation(model string) {
	m.TruncationCounter.WithLabelValues(model).Inc()
}

// RecordError increments the error counter for a given component and error kind.
//
// Example:
//
//	metrics.RecordError("llm", "LLM_THROTTLED")
//	metrics.RecordError("store", "ARTIFACT_UNAVAILABLE")
func (m *Metrics) RecordError(component, errorKind string) {
	m.ErrorCounter.WithLabelValues(component, errorKind).Inc()
}

// RecordHTTPRequest records metrics for an HTTP request.
//
// Example:
//
//	start := time.Now()
//	// ... handle HTTP request ...
//	metrics.RecordHTTPRequest("POST", "/extract", "200", time.Since(start).Seconds())
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	m.HTTPRequestCounter.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}

// RecordStorageOperation records metrics for an artifact store call.
//
// Example:
//
//	start := time.Now()
//	// ... upload artifact ...
//	metrics.RecordStorageOperation("put", "success", time.Since(start).Seconds())
func (m *Metrics) RecordStorageOperation(operation, status string, durationSeconds float64) {
	m.StorageOperationCounter.WithLabelValues(operation, status).Inc()
	m.StorageOperationDuration.WithLabelValues(operation).Observe(durationSeconds)
}
