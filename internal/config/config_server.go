package config

import (
	"fmt"
	"time"
)

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// MetricsPort serves Prometheus metrics on a separate listener
	// when non-zero. Zero exposes /metrics on the main listener.
	MetricsPort int `yaml:"metrics_port"`

	// ReadTimeout bounds how long the server waits for a full request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds how long a handler may take to respond.
	// Extraction runs are long; this must exceed the per-document
	// timeout times the batch depth or the gateway will cut runs off.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout is the grace period for in-flight requests on
	// SIGTERM before the listener is torn down.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
}

func (c *ServerConfig) validate() []string {
	var issues []string
	if c.Port < 1 || c.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Port))
	}
	if c.MetricsPort != 0 && (c.MetricsPort < 1 || c.MetricsPort > 65535) {
		issues = append(issues, fmt.Sprintf("server.metrics_port must be between 1 and 65535 (got %d)", c.MetricsPort))
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.Port {
		issues = append(issues, "server.metrics_port must differ from server.port")
	}
	return issues
}

// Addr returns the host:port the gateway binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsAddr returns the metrics listener address, or "" when metrics
// share the main listener.
func (c *ServerConfig) MetricsAddr() string {
	if c.MetricsPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}
