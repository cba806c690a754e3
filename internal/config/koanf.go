// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vigilmap/config.yaml",
	"/etc/vigilmap/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8088,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Detection: DetectionConfig{
			BufferSize:    50,
			DedupEnabled:  false,
			DedupWindow:   2 * time.Second,
			DedupCapacity: 10000,
		},
		Stream: StreamConfig{
			WebSocketURL:     "ws://localhost:5000/ws",
			ReconnectWait:    2 * time.Second,
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
			PubSub:           "none",
			NATSURL:          "nats://127.0.0.1:4222",
			NATSEmbedded:     false,
			NATSStoreDir:     "/data/nats/jetstream",
			NATSPort:         4222,
			Topic:            "detections",
			QueueGroup:       "vigilmap",
			DurablePrefix:    "vigilmap",
			MaxReconnects:    -1,
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "/data/vigilmap",
		},
		Health: HealthConfig{
			CameraURL: "http://localhost:5000/health",
			DataURL:   "http://localhost:8000/health",
			Interval:  30 * time.Second,
			Timeout:   3 * time.Second,
		},
		Heatmap: HeatmapConfig{
			Interval:        3 * time.Second,
			PointsPerCamera: 3,
			Jitter:          0.0015,
		},
		Viewport: ViewportConfig{
			CenterLat:        18.5204,
			CenterLng:        73.8567,
			Zoom:             13,
			PlacementWidth:   1280,
			PlacementHeight:  720,
			MonitoringWidth:  1280,
			MonitoringHeight: 720,
			Padding:          50,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf builds the configuration from defaults, the config file and
// the environment, then validates it.
func LoadWithKoanf() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// HTTP_PORT -> server.port, STREAM_WS_URL -> stream.websocket_url
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFile returns the config file LoadWithKoanf reads, or "" if none exists.
func ConfigFile() string {
	return findConfigFile()
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as a plain string.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit":            "server.rate_limit",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"detection_buffer_size":    "detection.buffer_size",
	"detection_dedup_enabled":  "detection.dedup_enabled",
	"detection_dedup_window":   "detection.dedup_window",
	"detection_dedup_capacity": "detection.dedup_capacity",

	"stream_ws_url":            "stream.websocket_url",
	"stream_reconnect_wait":    "stream.reconnect_wait",
	"stream_breaker_threshold": "stream.breaker_threshold",
	"stream_breaker_timeout":   "stream.breaker_timeout",
	"stream_pubsub":            "stream.pubsub",
	"stream_topic":             "stream.topic",
	"nats_url":                 "stream.nats_url",
	"nats_embedded":            "stream.nats_embedded",
	"nats_store_dir":           "stream.nats_store_dir",
	"nats_port":                "stream.nats_port",
	"nats_queue_group":         "stream.queue_group",
	"nats_durable_prefix":      "stream.durable_prefix",
	"nats_max_reconnects":      "stream.max_reconnects",

	"storage_backend": "storage.backend",
	"storage_path":    "storage.path",

	"health_camera_url": "health.camera_url",
	"health_data_url":   "health.data_url",
	"health_interval":   "health.interval",
	"health_timeout":    "health.timeout",

	"heatmap_interval":          "heatmap.interval",
	"heatmap_points_per_camera": "heatmap.points_per_camera",
	"heatmap_jitter":            "heatmap.jitter",

	"viewport_center_lat": "viewport.center_lat",
	"viewport_center_lng": "viewport.center_lng",
	"viewport_zoom":       "viewport.zoom",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable onto its koanf path.
// Unmapped variables return "" and are ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile invokes callback whenever the file at path changes.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
