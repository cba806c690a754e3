// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/vigilmap/internal/logging"
)

// Validate checks the loaded configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateStream(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateHealth(); err != nil {
		return err
	}
	if err := c.validateHeatmap(); err != nil {
		return err
	}
	return c.validateViewport()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
}

func (c *Config) validateDetection() error {
	if c.Detection.BufferSize < 1 {
		return fmt.Errorf("detection.buffer_size must be at least 1")
	}
	if c.Detection.DedupEnabled && c.Detection.DedupWindow <= 0 {
		return fmt.Errorf("detection.dedup_window must be positive when dedup is enabled")
	}
	return nil
}

func (c *Config) validateStream() error {
	s := c.Stream
	if s.WebSocketURL != "" {
		if err := validateURL("stream.websocket_url", s.WebSocketURL, "ws", "wss"); err != nil {
			return err
		}
	}
	switch s.PubSub {
	case "none", "gochannel":
	case "nats":
		if !s.NATSEmbedded {
			if err := validateURL("stream.nats_url", s.NATSURL, "nats", "tls"); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("stream.pubsub must be nats, gochannel or none, got %q", s.PubSub)
	}
	if s.PubSub != "none" && s.Topic == "" {
		return fmt.Errorf("stream.topic is required when pubsub is enabled")
	}
	if s.BreakerThreshold == 0 {
		return fmt.Errorf("stream.breaker_threshold must be at least 1")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "memory":
		return nil
	case "badger", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
		}
		return nil
	default:
		return fmt.Errorf("storage.backend must be badger, sqlite or memory, got %q", c.Storage.Backend)
	}
}

func (c *Config) validateHealth() error {
	for name, raw := range map[string]string{
		"health.camera_url": c.Health.CameraURL,
		"health.data_url":   c.Health.DataURL,
	} {
		if raw == "" {
			continue
		}
		if err := validateURL(name, raw, "http", "https"); err != nil {
			return err
		}
	}
	if c.Health.Interval <= 0 || c.Health.Timeout <= 0 {
		return fmt.Errorf("health.interval and health.timeout must be positive")
	}
	return nil
}

func (c *Config) validateHeatmap() error {
	if c.Heatmap.Interval <= 0 {
		return fmt.Errorf("heatmap.interval must be positive")
	}
	if c.Heatmap.PointsPerCamera < 1 {
		return fmt.Errorf("heatmap.points_per_camera must be at least 1")
	}
	if c.Heatmap.Jitter < 0 {
		return fmt.Errorf("heatmap.jitter must not be negative")
	}
	return nil
}

func (c *Config) validateViewport() error {
	v := c.Viewport
	if v.CenterLat < -90 || v.CenterLat > 90 || v.CenterLng < -180 || v.CenterLng > 180 {
		return fmt.Errorf("viewport center %.4f,%.4f is out of range", v.CenterLat, v.CenterLng)
	}
	if v.PlacementWidth <= 0 || v.PlacementHeight <= 0 || v.MonitoringWidth <= 0 || v.MonitoringHeight <= 0 {
		return fmt.Errorf("viewport surface sizes must be positive")
	}
	if v.Padding < 0 || 2*v.Padding >= v.PlacementWidth || 2*v.Padding >= v.MonitoringWidth {
		return fmt.Errorf("viewport.padding %d does not fit the surfaces", v.Padding)
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must use scheme %s, got %q", field, strings.Join(schemes, " or "), raw)
}
