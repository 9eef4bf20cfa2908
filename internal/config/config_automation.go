package config

import (
	"fmt"
	"strings"
	"time"
)

// AutomationConfig configures managed document processing through
// Bedrock Data Automation.
type AutomationConfig struct {
	// ProfileARN is the data automation profile used for invocations.
	// Required for the MANAGED_IDP parsing mode.
	ProfileARN string `yaml:"profile_arn"`

	// OutputPrefix is the store prefix raw automation output lands
	// under before being rewritten to the standard result layout.
	OutputPrefix string `yaml:"output_prefix"`

	// PollInterval is how often a pending invocation is checked.
	PollInterval time.Duration `yaml:"poll_interval"`

	// InvokeTimeout bounds a single automation job from submit to
	// terminal status.
	InvokeTimeout time.Duration `yaml:"invoke_timeout"`
}

// FewShotsConfig configures the named example registry.
type FewShotsConfig struct {
	// Table is the DynamoDB table holding named examples. When empty an
	// in-process registry backs the few-shot surface instead; its
	// contents do not survive a restart.
	Table string `yaml:"table"`

	// Region overrides the AWS region for the registry table.
	Region string `yaml:"region"`
}

// PromptsConfig configures prompt template overrides.
type PromptsConfig struct {
	// OverrideDir is a directory of template files that replace the
	// built-in prompts. Changes are picked up without a restart.
	OverrideDir string `yaml:"override_dir"`

	// Watch disables the file watcher when explicitly false.
	Watch *bool `yaml:"watch"`
}

func applyAutomationDefaults(cfg *AutomationConfig) {
	if cfg.OutputPrefix == "" {
		cfg.OutputPrefix = "bda-outputs"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.InvokeTimeout == 0 {
		cfg.InvokeTimeout = 10 * time.Minute
	}
}

func (c *AutomationConfig) validate() []string {
	var issues []string
	if c.PollInterval <= 0 {
		issues = append(issues, fmt.Sprintf("automation.poll_interval must be positive (got %s)", c.PollInterval))
	}
	if c.InvokeTimeout <= 0 {
		issues = append(issues, fmt.Sprintf("automation.invoke_timeout must be positive (got %s)", c.InvokeTimeout))
	}
	if strings.Contains(c.OutputPrefix, "..") {
		issues = append(issues, fmt.Sprintf("automation.output_prefix must not contain path traversal (got %q)", c.OutputPrefix))
	}
	return issues
}

// WatchPrompts reports whether the override directory should be
// watched for changes.
func (c *PromptsConfig) WatchPrompts() bool {
	if c.OverrideDir == "" {
		return false
	}
	return c.Watch == nil || *c.Watch
}
