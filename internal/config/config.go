// Package config defines service configuration structures and loading hooks.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// FetchCooldownSeconds is how long a fetched address is not fetched again.
	FetchCooldownSeconds int `koanf:"fetch_cooldown_seconds"`

	// FetchTimeoutSeconds bounds a single HTTP attempt.
	FetchTimeoutSeconds int `koanf:"fetch_timeout_seconds"`

	// FetchRetryMax is the number of retries after a failed attempt.
	FetchRetryMax int `koanf:"fetch_retry_max"`

	// UserAgent is sent with every fetch.
	UserAgent string `koanf:"user_agent"`

	// SourcePattern is a regexp every ingested address must match. Empty allows any.
	SourcePattern string `koanf:"source_pattern"`

	// Sources are result addresses polled by the server.
	Sources []string `koanf:"sources"`

	// PollIntervalSeconds sets how often Sources are polled; 0 disables polling.
	PollIntervalSeconds int `koanf:"poll_interval_seconds"`

	// WatchFile is a local results document re-ingested whenever it changes.
	WatchFile string `koanf:"watch_file"`

	// WorkerCount is the number of background ingest workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize is the capacity of the background ingest queue.
	QueueSize int `koanf:"queue_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		FetchCooldownSeconds: 600,
		FetchTimeoutSeconds:  30,
		FetchRetryMax:        3,
		UserAgent:            "Mozilla/5.0",
		WorkerCount:          2,
		QueueSize:            64,
	}
}

// FetchCooldown returns FetchCooldownSeconds as a duration.
func (c *Config) FetchCooldown() time.Duration {
	return time.Duration(c.FetchCooldownSeconds) * time.Second
}

// FetchTimeout returns FetchTimeoutSeconds as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// PollInterval returns PollIntervalSeconds as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}
