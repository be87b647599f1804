// Package config loads the YAML configuration shared by the CLI and the
// watch agent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Session   SessionConfig   `yaml:"session"`
	Cache     CacheConfig     `yaml:"cache"`
	Events    EventsConfig    `yaml:"events"`
	Watch     WatchConfig     `yaml:"watch"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// APIConfig controls the outbound HTTP client.
type APIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// SessionConfig locates the persisted token and user.
type SessionConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig tunes the query cache.
type CacheConfig struct {
	Retries   int           `yaml:"retries"`
	GCTimeout time.Duration `yaml:"gc_timeout"`
}

// EventsConfig enables push-based cache invalidation over NATS. Empty URL
// disables the subscriber.
type EventsConfig struct {
	NatsURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// WatchConfig controls the long-running agent mode.
type WatchConfig struct {
	Address      string        `yaml:"address"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Assignee     string        `yaml:"assignee"`
}

// TelemetryConfig configures the OTLP exporters; empty endpoint keeps
// telemetry off.
type TelemetryConfig struct {
	OtlpEndpoint string `yaml:"otlp_endpoint"`
}

// Load reads configuration from the supplied path or returns defaults. The
// CASESCOPE_API_URL environment variable overrides the base URL either way.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if v := os.Getenv("CASESCOPE_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.Cache.Retries < 0 {
		cfg.Cache.Retries = 0
	}
	if cfg.Cache.GCTimeout <= 0 {
		cfg.Cache.GCTimeout = 5 * time.Minute
	}

	return cfg, nil
}

func defaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		API: APIConfig{
			BaseURL:           "http://localhost:8080/api",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Session: SessionConfig{
			Path: filepath.Join(home, ".casescope", "session.json"),
		},
		Cache: CacheConfig{
			Retries:   1,
			GCTimeout: 5 * time.Minute,
		},
		Events: EventsConfig{
			SubjectPrefix: "evt",
		},
		Watch: WatchConfig{
			Address:      ":9180",
			PollInterval: 30 * time.Second,
		},
	}
}
