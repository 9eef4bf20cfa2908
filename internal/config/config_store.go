package config

import (
	"fmt"
	"time"
)

// Artifact store backends.
const (
	StoreBackendS3    = "s3"
	StoreBackendLocal = "local"
)

// StoreConfig configures the artifact store backing extraction runs.
type StoreConfig struct {
	// Backend selects the storage backend: "s3" or "local".
	Backend string `yaml:"backend"`

	// Bucket is the bucket name for the S3 backend.
	Bucket string `yaml:"bucket"`

	// Region is the AWS region for the bucket. Falls back to llm.region
	// and then the SDK's default resolution chain.
	Region string `yaml:"region"`

	// Endpoint overrides the S3 endpoint for MinIO and other
	// S3-compatible stores.
	Endpoint string `yaml:"endpoint"`

	// AccessKeyID and SecretAccessKey override the default credential
	// chain. Leave empty to use the environment or instance role.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`

	// LocalDir is the root directory for the local backend.
	LocalDir string `yaml:"local_dir"`

	// GrantTTL is how long browser upload grants stay valid.
	// Grants shorter than five minutes are rejected.
	GrantTTL time.Duration `yaml:"grant_ttl"`

	// DownloadTimeout bounds fetching a caller-supplied URL during
	// reference resolution.
	DownloadTimeout time.Duration `yaml:"download_timeout"`

	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig controls scheduled cleanup of derived artifacts.
// Source documents under originals/ are never touched.
type RetentionConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxAge is how old an artifact must be before cleanup removes it.
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule is a cron expression for the cleanup job.
	Schedule string `yaml:"schedule"`

	// Prefixes lists the key prefixes cleanup may delete under.
	Prefixes []string `yaml:"prefixes"`
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Backend == "" {
		if cfg.Bucket != "" {
			cfg.Backend = StoreBackendS3
		} else {
			cfg.Backend = StoreBackendLocal
		}
	}
	if cfg.LocalDir == "" {
		cfg.LocalDir = "data/store"
	}
	if cfg.GrantTTL == 0 {
		cfg.GrantTTL = 15 * time.Minute
	}
	if cfg.DownloadTimeout == 0 {
		cfg.DownloadTimeout = 60 * time.Second
	}
	if cfg.Retention.MaxAge == 0 {
		cfg.Retention.MaxAge = 30 * 24 * time.Hour
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = "0 3 * * *"
	}
	if len(cfg.Retention.Prefixes) == 0 {
		cfg.Retention.Prefixes = []string{"uploaded/", "bda-outputs/"}
	}
}

func (c *StoreConfig) validate() []string {
	var issues []string
	switch c.Backend {
	case StoreBackendS3:
		if c.Bucket == "" {
			issues = append(issues, "store.bucket is required for the s3 backend")
		}
	case StoreBackendLocal:
		if c.LocalDir == "" {
			issues = append(issues, "store.local_dir is required for the local backend")
		}
	default:
		issues = append(issues, fmt.Sprintf("store.backend must be %q or %q (got %q)", StoreBackendS3, StoreBackendLocal, c.Backend))
	}
	if c.GrantTTL < 5*time.Minute {
		issues = append(issues, fmt.Sprintf("store.grant_ttl must be at least 5m (got %s)", c.GrantTTL))
	}
	if c.DownloadTimeout <= 0 {
		issues = append(issues, fmt.Sprintf("store.download_timeout must be positive (got %s)", c.DownloadTimeout))
	}
	if c.Retention.Enabled && c.Retention.MaxAge <= 0 {
		issues = append(issues, fmt.Sprintf("store.retention.max_age must be positive when retention is enabled (got %s)", c.Retention.MaxAge))
	}
	return issues
}
