package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/quarry/internal/backoff"
	"github.com/haasonsaas/quarry/internal/config"
	"github.com/haasonsaas/quarry/internal/observability"
	"github.com/haasonsaas/quarry/pkg/models"
)

// anthropicPrefix routes a model identifier to the direct Anthropic backend
// regardless of the configured default provider.
const anthropicPrefix = "anthropic:"

// Client wraps a backend with the throttling retry loop. Non-throttle
// failures surface immediately; throttles are retried with exponential
// backoff and jitter until the attempt budget runs out. Every retry is
// recorded as a metric and a run event so operators can see pressure
// building before requests start failing.
type Client struct {
	invoker      Invoker
	anthropic    Invoker
	provider     string
	defaultModel string
	policy       backoff.BackoffPolicy
	maxAttempts  int

	logger  *observability.Logger
	metrics *observability.Metrics
	events  *observability.EventRecorder
	tracer  *observability.Tracer
}

// ClientOptions wire the observability surfaces into the retry loop. Any
// field may be nil.
type ClientOptions struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Events  *observability.EventRecorder
	Tracer  *observability.Tracer
}

// NewClient builds the configured backend and wraps it with the retry policy
// from cfg. With provider "bedrock", a direct Anthropic backend is wired
// alongside when an API key is configured; it serves model identifiers
// carrying the "anthropic:" prefix.
func NewClient(awsCfg aws.Config, cfg config.LLMConfig, opts ClientOptions) (*Client, error) {
	c := newClient(cfg.Provider, cfg, opts)
	switch cfg.Provider {
	case config.ProviderAnthropic:
		backend, err := NewAnthropicInvoker(cfg)
		if err != nil {
			return nil, err
		}
		c.invoker = backend
		c.anthropic = backend
	default:
		c.invoker = NewBedrockInvoker(awsCfg, cfg)
		if cfg.Anthropic.APIKey != "" {
			backend, err := NewAnthropicInvoker(cfg)
			if err != nil {
				return nil, err
			}
			c.anthropic = backend
		}
	}
	return c, nil
}

// NewClientWith wraps a prebuilt backend. Tests use it with a stub Invoker.
func NewClientWith(invoker Invoker, provider string, cfg config.LLMConfig, opts ClientOptions) *Client {
	c := newClient(provider, cfg, opts)
	c.invoker = invoker
	return c
}

func newClient(provider string, cfg config.LLMConfig, opts ClientOptions) *Client {
	return &Client{
		provider:     provider,
		defaultModel: cfg.DefaultModel,
		policy: backoff.BackoffPolicy{
			InitialMs: float64(cfg.Retry.InitialDelay.Milliseconds()),
			MaxMs:     float64(cfg.Retry.MaxDelay.Milliseconds()),
			Factor:    cfg.Retry.Factor,
			Jitter:    cfg.Retry.Jitter,
		},
		maxAttempts: cfg.Retry.MaxAttempts,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		events:      opts.Events,
		tracer:      opts.Tracer,
	}
}

// Converse resolves the target model, invokes the backend and retries
// throttled attempts. Response.Retries reports how many retries the call
// consumed. Context cancellation propagates unchanged so callers can map
// their own deadlines onto domain errors.
func (c *Client) Converse(ctx context.Context, req Request) (Response, error) {
	invoker, provider, model, err := c.route(req)
	if err != nil {
		return Response{}, err
	}
	req.ModelID = model

	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.TraceLLMRequest(ctx, provider, model)
		defer span.End()
	}
	if c.events != nil {
		c.events.RecordLLMRequest(ctx, provider, model)
	}

	start := time.Now()
	result, err := backoff.RetryWithBackoffNotify(ctx, c.policy, c.maxAttempts,
		func(attempt int) (Response, error) {
			resp, err := invoker.Converse(ctx, req)
			if err != nil && !IsThrottle(err) {
				return Response{}, backoff.Permanent(err)
			}
			return resp, err
		},
		func(attempt int, delay time.Duration, err error) {
			if c.metrics != nil {
				c.metrics.RecordLLMRetry(provider, model)
			}
			if c.events != nil {
				c.events.RecordLLMRetry(ctx, provider, model, attempt, delay)
			}
			if c.logger != nil {
				c.logger.Warn(ctx, "model throttled, backing off",
					"provider", provider,
					"model", model,
					"attempt", attempt,
					"delay_ms", delay.Milliseconds(),
				)
			}
		},
	)
	duration := time.Since(start)

	if err != nil {
		failure := c.classifyFailure(provider, model, result, err)
		c.observe(ctx, span, provider, model, duration, Usage{}, failure)
		return Response{}, failure
	}

	resp := result.Value
	resp.Retries = result.Attempts - 1
	c.observe(ctx, span, provider, model, duration, resp.Usage, nil)
	return resp, nil
}

// route picks the backend and final model identifier for a request. The
// explicit ModelID wins, then the per-request params, then the configured
// default.
func (c *Client) route(req Request) (Invoker, string, string, error) {
	model := req.ModelID
	if model == "" {
		model = req.Params.ModelID
	}
	if model == "" {
		model = c.defaultModel
	}
	if rest, ok := strings.CutPrefix(model, anthropicPrefix); ok {
		if c.anthropic == nil {
			return nil, "", "", &InvokeError{
				Kind:     models.ErrLLMInvocationFailed,
				Provider: config.ProviderAnthropic,
				Model:    rest,
				Err:      errors.New("anthropic backend is not configured"),
			}
		}
		return c.anthropic, config.ProviderAnthropic, rest, nil
	}
	return c.invoker, c.provider, model, nil
}

func (c *Client) classifyFailure(provider, model string, result backoff.RetryResult[Response], err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, backoff.ErrMaxAttemptsExhausted) {
		return &InvokeError{
			Kind:     models.ErrLLMThrottled,
			Provider: provider,
			Model:    model,
			Code:     errorCode(result.LastError),
			Err:      fmt.Errorf("throttled after %d attempts: %w", result.Attempts, result.LastError),
		}
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	return wrapInvokeError(provider, model, err)
}

func (c *Client) observe(ctx context.Context, span trace.Span, provider, model string, duration time.Duration, usage Usage, err error) {
	status := "success"
	var invokeErr *InvokeError
	switch {
	case err == nil:
	case errors.As(err, &invokeErr) && invokeErr.Throttled():
		status = "throttled"
	default:
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordLLMRequest(provider, model, status, duration.Seconds(), usage.InputTokens, usage.OutputTokens)
	}
	if c.events != nil {
		c.events.RecordLLMResponse(ctx, provider, model, duration, usage.InputTokens, usage.OutputTokens, err)
	}
	if c.tracer != nil && err != nil {
		c.tracer.RecordError(span, err)
	}
}
