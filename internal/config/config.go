package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath names the environment variable that points at the
// configuration file when no explicit path is given.
const EnvConfigPath = "QUARRY_CONFIG"

// Config is the main configuration structure for Quarry.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	LLM           LLMConfig           `yaml:"llm"`
	Store         StoreConfig         `yaml:"store"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	FewShots      FewShotsConfig      `yaml:"few_shots"`
	Automation    AutomationConfig    `yaml:"automation"`
	Prompts       PromptsConfig       `yaml:"prompts"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ConfigValidationError aggregates every issue found while validating a
// configuration file so operators can fix them in one pass.
type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "invalid configuration"
	}
	return fmt.Sprintf("invalid configuration:\n  - %s", strings.Join(e.Issues, "\n  - "))
}

// Load reads the configuration file at path, resolves $include
// directives, expands environment references, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied and no
// file loaded. Useful for tests and for running against a local store.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// ResolvePath picks the configuration file to load. An explicit path
// wins, then QUARRY_CONFIG, then quarry.yaml in the working directory,
// then ~/.config/quarry/quarry.yaml. Returns "" when none exists.
func ResolvePath(explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	if fromEnv := strings.TrimSpace(os.Getenv(EnvConfigPath)); fromEnv != "" {
		return fromEnv
	}
	if _, err := os.Stat("quarry.yaml"); err == nil {
		return "quarry.yaml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".config", "quarry", "quarry.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyLLMDefaults(&cfg.LLM)
	applyStoreDefaults(&cfg.Store)
	applyExtractionDefaults(&cfg.Extraction)
	applyAutomationDefaults(&cfg.Automation)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Observability.Tracing.ServiceName == "" {
		cfg.Observability.Tracing.ServiceName = "quarry"
	}
	if cfg.Observability.Tracing.SamplingRate == 0 {
		cfg.Observability.Tracing.SamplingRate = 1.0
	}
}

// Validate reports every configuration issue at once. Field names in
// the issues use the yaml paths operators see in the file.
func (c *Config) Validate() error {
	var issues []string
	issues = append(issues, c.Server.validate()...)
	issues = append(issues, c.LLM.validate()...)
	issues = append(issues, c.Store.validate()...)
	issues = append(issues, c.Extraction.validate()...)
	issues = append(issues, c.Automation.validate()...)

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		issues = append(issues, fmt.Sprintf("logging.format must be json or text (got %q)", c.Logging.Format))
	}
	if rate := c.Observability.Tracing.SamplingRate; rate < 0 || rate > 1 {
		issues = append(issues, fmt.Sprintf("observability.tracing.sampling_rate must be between 0 and 1 (got %v)", rate))
	}

	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}
