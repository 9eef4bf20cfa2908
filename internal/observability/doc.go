// Package observability provides monitoring and debugging capabilities for the
// quarry extraction service through metrics, structured logging, distributed
// tracing, and an event timeline.
//
// # Overview
//
// The observability package implements four concerns:
//
//  1. Metrics - Quantitative measurements using Prometheus
//  2. Logging - Structured logs with sensitive data redaction
//  3. Tracing - Distributed request tracing with OpenTelemetry
//  4. Events - An in-memory timeline of extraction runs for debugging
//
// # Metrics
//
// Metrics are implemented using Prometheus client libraries and track:
//   - Document flow through the pipeline by parsing mode
//   - LLM API request latency, retries, and token usage
//   - Image chunk fan-out outcomes
//   - Error rates by component and kind
//   - HTTP request/response metrics
//   - Artifact store operation performance
//
// Example usage:
//
//	metrics := observability.NewMetrics()
//
//	// Track document processing
//	metrics.DocumentStarted("TEXT_LLM")
//	defer func() {
//	    metrics.DocumentEnded("TEXT_LLM", status, time.Since(start).Seconds())
//	}()
//
//	// Track LLM requests
//	llmStart := time.Now()
//	// ... make LLM request ...
//	metrics.RecordLLMRequest("bedrock", "anthropic.claude-3", "success",
//	    time.Since(llmStart).Seconds(), inputTokens, outputTokens)
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic request/run/document correlation from context
//   - Sensitive data redaction (API keys, AWS credentials, presigned signatures)
//   - JSON output for production, text for development
//   - Configurable log levels
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    AddSource: true,
//	})
//
//	// Add context IDs for correlation
//	ctx := observability.AddRunID(ctx, runID)
//	ctx = observability.AddDocument(ctx, fileKey)
//
//	// Structured logging with automatic context correlation
//	logger.Info(ctx, "Processing document",
//	    "parsing_mode", req.ParsingMode,
//	    "attributes", len(req.Attributes),
//	)
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to track a batch request across
// documents, chunks, and LLM calls. When no OTLP endpoint is configured the
// tracer is a no-op and spans cost almost nothing.
//
// Example usage:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName:    "quarry",
//	    ServiceVersion: "1.0.0",
//	    Endpoint:       "localhost:4317", // OTLP collector
//	    SamplingRate:   0.1,              // Sample 10% of traces
//	})
//	defer shutdown(context.Background())
//
//	ctx, span := tracer.TraceDocumentProcessing(ctx, fileKey, "IMAGE_LLM")
//	defer span.End()
//
//	ctx, llmSpan := tracer.TraceLLMRequest(ctx, "bedrock", modelID)
//	defer llmSpan.End()
//	tracer.SetAttributes(llmSpan, "input_tokens", 100, "output_tokens", 500)
//
// # Events
//
// The event timeline records the lifecycle of every run (run.start, doc.start,
// chunk.end, llm.retry, ...) into a bounded in-memory store. The gateway
// exposes the timeline per run for debugging throttling behavior and chunk
// failures after the fact:
//
//	store := observability.NewMemoryEventStore(10000)
//	recorder := observability.NewEventRecorder(store, logger)
//
//	recorder.RecordRunStart(ctx, runID, map[string]interface{}{"documents": 3})
//	recorder.RecordLLMRetry(ctx, "bedrock", modelID, attempt, delay)
//
//	events, _ := store.GetByRunID(runID)
//	fmt.Println(observability.FormatTimeline(observability.BuildTimeline(events)))
//
// # Security Considerations
//
// The logging component automatically redacts:
//   - API keys (Anthropic, generic)
//   - AWS secret access keys and presigned URL signatures
//   - Passwords and secrets
//   - JWT and bearer tokens
//   - Custom patterns via configuration
//
// Sensitive fields in maps are also redacted:
//   - password, passwd, pwd
//   - secret, api_key, apikey, secret_access_key
//   - token, auth, authorization
//   - private_key, privatekey
//
// # Testing
//
// All components provide testable interfaces:
//   - Metrics can be verified using prometheus/testutil
//   - Logging can write to bytes.Buffer for assertions
//   - Tracing works with no-op exporters in tests
//   - MemoryEventStore needs no external dependencies
//
// # Monitoring Dashboard
//
// The metrics exposed can be used to build dashboards:
//
//	# Document throughput
//	rate(quarry_documents_total[5m])
//
//	# LLM request latency (95th percentile)
//	histogram_quantile(0.95, rate(quarry_llm_request_duration_seconds_bucket[5m]))
//
//	# Throttling pressure
//	rate(quarry_llm_retries_total[5m])
//
//	# Error rate
//	rate(quarry_errors_total[5m])
//
//	# Documents in flight
//	quarry_active_documents
//
// # Alerting
//
// Recommended alerts based on metrics:
//   - High error rate: quarry_errors_total > threshold
//   - High LLM latency: p95 latency > 30s
//   - Sustained throttling: rate(quarry_llm_retries_total) > threshold
//   - Document accumulation: quarry_active_documents growing unbounded
package observability
