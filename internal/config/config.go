// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
// Package config loads vigilmap settings from struct defaults, an optional
// YAML file and environment variables, in increasing priority.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Detection  DetectionConfig  `koanf:"detection"`
	Stream     StreamConfig     `koanf:"stream"`
	Storage    StorageConfig    `koanf:"storage"`
	Health     HealthConfig     `koanf:"health"`
	Heatmap    HeatmapConfig    `koanf:"heatmap"`
	Viewport   ViewportConfig   `koanf:"viewport"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit"` // requests per minute per IP, 0 disables
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DetectionConfig configures the aggregator.
type DetectionConfig struct {
	BufferSize    int           `koanf:"buffer_size"`
	DedupEnabled  bool          `koanf:"dedup_enabled"`
	DedupWindow   time.Duration `koanf:"dedup_window"`
	DedupCapacity int           `koanf:"dedup_capacity"`
}

// StreamConfig configures the inbound detection sources.
type StreamConfig struct {
	// WebSocketURL is the raw detection socket. Empty disables it.
	WebSocketURL     string        `koanf:"websocket_url"`
	ReconnectWait    time.Duration `koanf:"reconnect_wait"`
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`

	// PubSub selects the pub/sub backend: "nats", "gochannel" or "none".
	PubSub        string `koanf:"pubsub"`
	NATSURL       string `koanf:"nats_url"`
	NATSEmbedded  bool   `koanf:"nats_embedded"`
	NATSStoreDir  string `koanf:"nats_store_dir"`
	NATSPort      int    `koanf:"nats_port"`
	Topic         string `koanf:"topic"`
	QueueGroup    string `koanf:"queue_group"`
	DurablePrefix string `koanf:"durable_prefix"`
	MaxReconnects int    `koanf:"max_reconnects"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "badger", "sqlite" or "memory".
	Backend string `koanf:"backend"`
	Path    string `koanf:"path"`
}

// HealthConfig configures the connectivity probes.
type HealthConfig struct {
	CameraURL string        `koanf:"camera_url"`
	DataURL   string        `koanf:"data_url"`
	Interval  time.Duration `koanf:"interval"`
	Timeout   time.Duration `koanf:"timeout"`
}

// HeatmapConfig configures the simulated heatmap.
type HeatmapConfig struct {
	Interval        time.Duration `koanf:"interval"`
	PointsPerCamera int           `koanf:"points_per_camera"`
	Jitter          float64       `koanf:"jitter"`
}

// ViewportConfig sets the initial view and the pixel size of each surface.
type ViewportConfig struct {
	CenterLat        float64 `koanf:"center_lat"`
	CenterLng        float64 `koanf:"center_lng"`
	Zoom             int     `koanf:"zoom"`
	PlacementWidth   int     `koanf:"placement_width"`
	PlacementHeight  int     `koanf:"placement_height"`
	MonitoringWidth  int     `koanf:"monitoring_width"`
	MonitoringHeight int     `koanf:"monitoring_height"`
	Padding          int     `koanf:"padding"`
}

// SupervisorConfig configures the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for the HTTP server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
