// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
// Package metrics holds the Prometheus collectors for vigilmap.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detection stream
	DetectionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilmap_detection_events_total",
			Help: "Detection events folded into the aggregate, by label and source",
		},
		[]string{"label", "source"},
	)

	DetectionEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilmap_detection_events_dropped_total",
			Help: "Detection events dropped before aggregation",
		},
		[]string{"source", "reason"}, // "malformed", "duplicate"
	)

	AlertBufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigilmap_alert_buffer_size",
			Help: "Current number of retained alert records",
		},
	)

	StreamConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vigilmap_stream_connected",
			Help: "1 if the detection stream source is connected",
		},
		[]string{"source"},
	)

	StreamReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilmap_stream_reconnects_total",
			Help: "Reconnect attempts per detection stream source",
		},
		[]string{"source"},
	)

	// Placement and geometry
	PlacementCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilmap_placement_commits_total",
			Help: "Placement session outcomes",
		},
		[]string{"outcome"}, // "committed", "rejected_empty", "cancelled"
	)

	CamerasPlaced = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigilmap_cameras",
			Help: "Number of cameras in the registry",
		},
	)

	CoverageRadiusMeters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigilmap_coverage_radius_meters",
			Help: "Radius of the last committed coverage circle",
		},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilmap_store_operations_total",
			Help: "Persistence operations by backend, operation and result",
		},
		[]string{"backend", "operation", "result"},
	)

	// Health
	HealthStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vigilmap_health_probe_up",
			Help: "1 if the named health probe last succeeded",
		},
		[]string{"probe"},
	)

	// WebSocket hub
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigilmap_websocket_connections",
			Help: "Currently connected UI clients",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigilmap_websocket_messages_dropped_total",
			Help: "Broadcasts dropped because the hub channel was full",
		},
	)

	// API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigilmap_api_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordDetection counts one aggregated event.
func RecordDetection(label, source string) {
	DetectionEventsTotal.WithLabelValues(label, source).Inc()
}

// RecordDetectionDropped counts an event that never reached the aggregate.
func RecordDetectionDropped(source, reason string) {
	DetectionEventsDropped.WithLabelValues(source, reason).Inc()
}

// SetStreamConnected flips the connection gauge for source.
func SetStreamConnected(source string, connected bool) {
	StreamConnected.WithLabelValues(source).Set(boolToFloat(connected))
}

// RecordPlacementOutcome counts a commit, rejection or cancel.
func RecordPlacementOutcome(outcome string) {
	PlacementCommits.WithLabelValues(outcome).Inc()
}

// RecordStoreOperation counts a persistence call.
func RecordStoreOperation(backend, operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperations.WithLabelValues(backend, operation, result).Inc()
}

// SetHealth records the last outcome of a probe.
func SetHealth(probe string, up bool) {
	HealthStatus.WithLabelValues(probe).Set(boolToFloat(up))
}

// RecordAPIRequest observes one API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
