// Package config holds the explicit configuration consumed by the
// ingestion entry points. There is no process-wide implicit setup: a
// Config is built once in main and passed into constructors.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hjson/hjson-go/v4"
)

// Config configures the ingestion pipeline.
type Config struct {
	// UserAgent sent on every EDGAR request. The SEC requires a
	// descriptive value with a contact address.
	UserAgent string `json:"user_agent"`

	// DatabaseURL is the Postgres connection string for metadata.
	DatabaseURL string `json:"database_url"`

	// DataDir is the root of the filesystem blob store.
	DataDir string `json:"data_dir"`

	// MaxRequestsPerSecond is the shared EDGAR request budget across
	// all workers.
	MaxRequestsPerSecond float64 `json:"max_requests_per_second"`

	// Workers bounds the per-filing pipeline concurrency.
	Workers int `json:"workers"`

	// HTTPTimeoutSeconds applies per request.
	HTTPTimeoutSeconds int `json:"http_timeout_seconds"`

	// RetryBackoffSeconds is the sleep ladder between retries of a
	// transient fetch failure. Its length bounds the attempt count.
	RetryBackoffSeconds []int `json:"retry_backoff_seconds"`
}

// Default returns the conservative defaults used when no file or
// environment override is present.
func Default() Config {
	return Config{
		UserAgent:            "openedgar/1.0 (contact@example.com)",
		DataDir:              "data",
		MaxRequestsPerSecond: 8,
		Workers:              4,
		HTTPTimeoutSeconds:   60,
		RetryBackoffSeconds:  []int{1, 5, 15, 30},
	}
}

// Load builds a Config from an optional HJSON file plus environment
// overrides. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := hjson.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Workers < 1 {
		return cfg, fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.MaxRequestsPerSecond <= 0 {
		return cfg, fmt.Errorf("max_requests_per_second must be > 0, got %f", cfg.MaxRequestsPerSecond)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("EDGAR_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("EDGAR_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("EDGAR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("EDGAR_MAX_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxRequestsPerSecond = f
		}
	}
}

// HTTPTimeout returns the request timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// RetryBackoff returns the backoff ladder as durations.
func (c Config) RetryBackoff() []time.Duration {
	out := make([]time.Duration, 0, len(c.RetryBackoffSeconds))
	for _, s := range c.RetryBackoffSeconds {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}
