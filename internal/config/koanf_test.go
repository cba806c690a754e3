// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Detection.BufferSize != 50 {
		t.Errorf("Detection.BufferSize = %d, want 50", cfg.Detection.BufferSize)
	}
	if cfg.Detection.DedupEnabled {
		t.Error("Detection.DedupEnabled should be false by default")
	}
	if cfg.Health.Interval != 30*time.Second {
		t.Errorf("Health.Interval = %v, want 30s", cfg.Health.Interval)
	}
	if cfg.Health.Timeout != 3*time.Second {
		t.Errorf("Health.Timeout = %v, want 3s", cfg.Health.Timeout)
	}
	if cfg.Heatmap.Interval != 3*time.Second || cfg.Heatmap.PointsPerCamera != 3 || cfg.Heatmap.Jitter != 0.0015 {
		t.Errorf("Heatmap = %+v, want 3s/3/0.0015", cfg.Heatmap)
	}
	if cfg.Stream.PubSub != "none" {
		t.Errorf("Stream.PubSub = %q, want none", cfg.Stream.PubSub)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := load("")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("Server.Port = %d, want 8088", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "badger" {
		t.Errorf("Storage.Backend = %q, want badger", cfg.Storage.Backend)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9000
detection:
  buffer_size: 25
storage:
  backend: memory
heatmap:
  interval: 5s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Detection.BufferSize != 25 {
		t.Errorf("Detection.BufferSize = %d, want 25", cfg.Detection.BufferSize)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Heatmap.Interval != 5*time.Second {
		t.Errorf("Heatmap.Interval = %v, want 5s", cfg.Heatmap.Interval)
	}
	// untouched keys keep their defaults
	if cfg.Health.Timeout != 3*time.Second {
		t.Errorf("Health.Timeout = %v, want 3s", cfg.Health.Timeout)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HEALTH_INTERVAL", "45s")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Health.Interval != 45*time.Second {
		t.Errorf("Health.Interval = %v, want 45s", cfg.Health.Interval)
	}
	want := []string{"http://a.example", "http://b.example"}
	if strings.Join(cfg.Server.CORSOrigins, "|") != strings.Join(want, "|") {
		t.Errorf("Server.CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoad_InvalidFails(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "cassandra")
	if _, err := load(""); err == nil {
		t.Fatal("expected validation error for unknown storage backend")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"STREAM_WS_URL", "stream.websocket_url"},
		{"nats_url", "stream.nats_url"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.key); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestFindConfigFile_EnvVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}
}
