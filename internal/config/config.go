// Package config loads run configuration from the environment with
// sensible defaults. CLI flags may override individual fields.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Source settings
	SourcesPath string
	WindowHours float64

	// Fetch settings
	RequestTimeout   time.Duration
	FetchConcurrency int

	// Cross-run suppression (disabled when SeenStorePath is empty)
	SeenStorePath string
	SeenTTLHours  int

	// Monitoring
	EnableMonitoring bool
	MonitoringPort   string

	// App settings
	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		SourcesPath:      "configs/finance_sources.yaml",
		WindowHours:      2.0,
		RequestTimeout:   25 * time.Second,
		FetchConcurrency: 4,
		SeenTTLHours:     48,
		MonitoringPort:   "8080",
	}

	if v := os.Getenv("SOURCES_CONFIG_PATH"); v != "" {
		cfg.SourcesPath = v
	}
	if v := os.Getenv("WINDOW_HOURS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.WindowHours = f
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("FETCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchConcurrency = n
		}
	}

	cfg.SeenStorePath = os.Getenv("SEEN_STORE_PATH")
	cfg.SeenTTLHours = getEnvIntOrDefault("SEEN_TTL_HOURS", cfg.SeenTTLHours)

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		cfg.EnableMonitoring = true
	}
	if v := os.Getenv("MONITORING_PORT"); v != "" {
		cfg.MonitoringPort = v
	}

	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.SourcesPath == "" {
		return fmt.Errorf("sources config path is required")
	}
	if c.WindowHours <= 0 {
		return fmt.Errorf("window hours must be positive, got %v", c.WindowHours)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("fetch concurrency must be at least 1, got %d", c.FetchConcurrency)
	}
	if c.SeenStorePath != "" && c.SeenTTLHours <= 0 {
		return fmt.Errorf("seen store TTL must be positive, got %d", c.SeenTTLHours)
	}
	return nil
}
