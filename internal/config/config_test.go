package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8080/api" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.Cache.Retries != 1 {
		t.Errorf("retries = %d", cfg.Cache.Retries)
	}
	if cfg.Cache.GCTimeout != 5*time.Minute {
		t.Errorf("gc timeout = %v", cfg.Cache.GCTimeout)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
api:
  base_url: https://cases.internal/api
  timeout: 10s
cache:
  retries: 2
  gc_timeout: 1m
events:
  nats_url: nats://localhost:4222
watch:
  address: ":9999"
  assignee: alice
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "https://cases.internal/api" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.Cache.Retries != 2 {
		t.Errorf("retries = %d", cfg.Cache.Retries)
	}
	if cfg.Events.NatsURL != "nats://localhost:4222" {
		t.Errorf("nats url = %q", cfg.Events.NatsURL)
	}
	if cfg.Watch.Address != ":9999" || cfg.Watch.Assignee != "alice" {
		t.Errorf("watch = %+v", cfg.Watch)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL == "" {
		t.Error("defaults should apply when file is absent")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CASESCOPE_API_URL", "http://override:9000/api")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "http://override:9000/api" {
		t.Errorf("base url = %q want env override", cfg.API.BaseURL)
	}
}
