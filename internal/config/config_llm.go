package config

import (
	"fmt"
	"time"
)

// Model providers supported by the invocation layer.
const (
	ProviderBedrock   = "bedrock"
	ProviderAnthropic = "anthropic"
)

// LLMConfig configures the model invocation layer.
type LLMConfig struct {
	// Provider selects the backing API: "bedrock" or "anthropic".
	Provider string `yaml:"provider"`

	// Region is the AWS region for Bedrock. Falls back to the SDK's
	// default resolution chain when empty.
	Region string `yaml:"region"`

	// DefaultModel is used when a request does not name a model.
	DefaultModel string `yaml:"default_model"`

	// ConnectTimeout bounds connection establishment to the provider.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// RequestTimeout bounds a single model invocation end to end.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Anthropic AnthropicConfig `yaml:"anthropic"`
	Retry     RetryConfig     `yaml:"retry"`
}

// AnthropicConfig holds credentials for the direct Anthropic API.
type AnthropicConfig struct {
	// APIKey falls back to ANTHROPIC_API_KEY when empty.
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// RetryConfig controls backoff when the provider throttles requests.
// Only throttling errors are retried; everything else fails fast.
type RetryConfig struct {
	// MaxAttempts counts the initial request plus retries.
	MaxAttempts int `yaml:"max_attempts"`

	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`

	// Factor multiplies the delay after each attempt.
	Factor float64 `yaml:"factor"`

	// Jitter is the +/- fraction applied to each delay.
	Jitter float64 `yaml:"jitter"`
}

func applyLLMDefaults(cfg *LLMConfig) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderBedrock
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 120 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 6
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = 2 * time.Second
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 60 * time.Second
	}
	if cfg.Retry.Factor == 0 {
		cfg.Retry.Factor = 2
	}
	if cfg.Retry.Jitter == 0 {
		cfg.Retry.Jitter = 0.2
	}
}

func (c *LLMConfig) validate() []string {
	var issues []string
	switch c.Provider {
	case ProviderBedrock, ProviderAnthropic:
	default:
		issues = append(issues, fmt.Sprintf("llm.provider must be %q or %q (got %q)", ProviderBedrock, ProviderAnthropic, c.Provider))
	}
	if c.Retry.MaxAttempts < 1 {
		issues = append(issues, fmt.Sprintf("llm.retry.max_attempts must be at least 1 (got %d)", c.Retry.MaxAttempts))
	}
	if c.Retry.Factor < 1 {
		issues = append(issues, fmt.Sprintf("llm.retry.factor must be at least 1 (got %v)", c.Retry.Factor))
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		issues = append(issues, fmt.Sprintf("llm.retry.jitter must be between 0 and 1 (got %v)", c.Retry.Jitter))
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 {
		issues = append(issues, "llm.retry delays must not be negative")
	}
	return issues
}
