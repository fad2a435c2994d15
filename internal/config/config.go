// Package config handles application configuration and check-suite loading.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the engine configuration loaded from the environment.
type Config struct {
	WarehousePath string        // DuckDB database file (empty = in-memory)
	MetaDBPath    string        // SQLite metrics-store file
	SuitePath     string        // check-suite YAML (empty = embedded default)
	ListenAddr    string        // HTTP listen address for the query surface
	LogLevel      string        // debug, info, warn, error (default "info")
	PipelineName  string        // name stamped into SLA records and notifications
	DashboardURL  string        // dashboard link in notification payloads
	Schedule      string        // cron expression for the monitoring cadence
	Concurrency   int           // parallel check evaluations
	CheckTimeout  time.Duration // per-check evaluation bound
	SeedDemo      bool          // seed demo marts data on startup

	// Warnings collects non-fatal warnings generated during config
	// loading. They are logged after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults for anything unset.
func LoadFromEnv() *Config {
	cfg := &Config{
		WarehousePath: os.Getenv("WAREHOUSE_PATH"),
		MetaDBPath:    os.Getenv("META_DB_PATH"),
		SuitePath:     os.Getenv("CHECK_SUITE_PATH"),
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		PipelineName:  os.Getenv("PIPELINE_NAME"),
		DashboardURL:  os.Getenv("DASHBOARD_URL"),
		Schedule:      os.Getenv("DQ_SCHEDULE"),
		SeedDemo:      parseBoolEnv("SEED_DEMO_DATA"),
	}

	if v := os.Getenv("DQ_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		} else {
			cfg.Warnings = append(cfg.Warnings, "invalid DQ_CONCURRENCY "+v+", using default")
		}
	}
	if v := os.Getenv("CHECK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CheckTimeout = d
		} else {
			cfg.Warnings = append(cfg.Warnings, "invalid CHECK_TIMEOUT "+v+", using default")
		}
	}

	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "trackdq.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.PipelineName == "" {
		cfg.PipelineName = "music_catalog_etl"
	}

	return cfg
}

func parseBoolEnv(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
