// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

// Package monitor assembles the placement, coverage and detection
// components from configuration and registers their long-running services
// with the supervisor tree.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/vigilmap/internal/api"
	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/config"
	"github.com/tomtom215/vigilmap/internal/coverage"
	"github.com/tomtom215/vigilmap/internal/detection"
	"github.com/tomtom215/vigilmap/internal/geo"
	"github.com/tomtom215/vigilmap/internal/health"
	"github.com/tomtom215/vigilmap/internal/heatmap"
	"github.com/tomtom215/vigilmap/internal/logging"
	"github.com/tomtom215/vigilmap/internal/placement"
	"github.com/tomtom215/vigilmap/internal/store"
	"github.com/tomtom215/vigilmap/internal/stream"
	"github.com/tomtom215/vigilmap/internal/supervisor"
	"github.com/tomtom215/vigilmap/internal/viewport"
	ws "github.com/tomtom215/vigilmap/internal/websocket"
)

// Monitor owns every component of a running instance.
type Monitor struct {
	cfg *config.Config

	Store      store.Store
	Hub        *ws.Hub
	Registry   *camera.Registry
	Coverage   *coverage.Calculator
	Viewport   *viewport.Synchronizer
	Session    *placement.Controller
	Aggregator *detection.Aggregator
	Heatmap    *heatmap.Simulator
	Health     *health.Prober
	Sources    []stream.Source

	// Publisher is set for the gochannel backend so in-process producers
	// can feed the detection topic.
	Publisher message.Publisher

	subscriber message.Subscriber
	nats       *stream.EmbeddedServer
}

// New builds a monitor from cfg. The persisted placement is loaded once
// here; nothing is served until Register and the tree run.
func New(ctx context.Context, cfg *config.Config) (*Monitor, error) {
	st, err := store.Open(store.Backend(cfg.Storage.Backend), cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return NewWithStore(ctx, cfg, st)
}

// NewWithStore is New with an already opened store. The monitor takes
// ownership of st.
func NewWithStore(ctx context.Context, cfg *config.Config, st store.Store) (*Monitor, error) {
	m := &Monitor{
		cfg:      cfg,
		Store:    st,
		Hub:      ws.NewHub(),
		Registry: camera.NewRegistry(camera.NewID),
		Coverage: coverage.NewCalculator(),
	}

	vc := cfg.Viewport
	m.Viewport = viewport.NewSynchronizer(
		viewport.State{Center: geo.LatLng{Lat: vc.CenterLat, Lng: vc.CenterLng}, Zoom: vc.Zoom},
		viewport.NewMercatorSurface(viewport.SurfacePlacement, vc.PlacementWidth, vc.PlacementHeight, vc.Padding),
		viewport.NewMercatorSurface(viewport.SurfaceMonitoring, vc.MonitoringWidth, vc.MonitoringHeight, vc.Padding),
	)
	m.Viewport.OnChange(func(s viewport.State) {
		m.Hub.BroadcastJSON(placement.MessageViewportUpdated, s)
	})

	if err := m.restore(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	m.Session = placement.NewController(placement.Config{
		Registry:    m.Registry,
		Coverage:    m.Coverage,
		Viewport:    m.Viewport,
		Persister:   st,
		Broadcaster: m.Hub,
	})

	dc := detection.DefaultConfig()
	dc.BufferSize = cfg.Detection.BufferSize
	dc.Dedup.Enabled = cfg.Detection.DedupEnabled
	if cfg.Detection.DedupWindow > 0 {
		dc.Dedup.Window = cfg.Detection.DedupWindow
	}
	if cfg.Detection.DedupCapacity > 0 {
		dc.Dedup.Capacity = cfg.Detection.DedupCapacity
	}
	m.Aggregator = detection.NewAggregator(dc, m.Hub)

	m.Heatmap = heatmap.NewSimulator(heatmap.Config{
		Interval:        cfg.Heatmap.Interval,
		PointsPerCamera: cfg.Heatmap.PointsPerCamera,
		Jitter:          cfg.Heatmap.Jitter,
	}, m.Registry, m.Hub)
	m.Registry.OnCountChange(func(int) { m.Heatmap.CamerasChanged() })

	if cfg.Health.CameraURL != "" || cfg.Health.DataURL != "" {
		m.Health = health.NewProber(health.Config{
			CameraURL: cfg.Health.CameraURL,
			DataURL:   cfg.Health.DataURL,
			Interval:  cfg.Health.Interval,
			Timeout:   cfg.Health.Timeout,
		}, m.Hub)
	}

	if err := m.buildSources(); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	m.Hub.SetSnapshot(m.snapshot)
	return m, nil
}

// restore seeds the registry and coverage from the store. The controller
// is built afterwards so it derives triangles for the restored cameras.
func (m *Monitor) restore(ctx context.Context) error {
	state, err := m.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load persisted placement: %w", err)
	}
	m.Registry.Restore(state.Cameras)
	if state.Coverage != nil {
		m.Coverage.Restore(*state.Coverage)
	}
	if len(state.Cameras) > 0 {
		m.Viewport.FitToCameras(state.Cameras)
	}
	logging.Info().
		Int("cameras", len(state.Cameras)).
		Bool("coverage", state.Coverage != nil).
		Msg("Restored persisted placement")
	return nil
}

func (m *Monitor) buildSources() error {
	sc := m.cfg.Stream

	if sc.WebSocketURL != "" {
		m.Sources = append(m.Sources, stream.NewWebSocketSource(stream.WebSocketConfig{
			URL:              sc.WebSocketURL,
			ReconnectWait:    sc.ReconnectWait,
			BreakerThreshold: sc.BreakerThreshold,
			BreakerTimeout:   sc.BreakerTimeout,
		}, m.Aggregator))
	}

	switch sc.PubSub {
	case "gochannel":
		gc := stream.NewGoChannel()
		m.Publisher = gc
		m.subscriber = gc
	case "nats":
		url := sc.NATSURL
		if sc.NATSEmbedded {
			srv, err := stream.StartEmbeddedServer("127.0.0.1", sc.NATSPort, sc.NATSStoreDir)
			if err != nil {
				return fmt.Errorf("start embedded nats: %w", err)
			}
			m.nats = srv
			url = srv.ClientURL()
		}
		sub, err := stream.NewNATSSubscriber(stream.NATSConfig{
			URL:           url,
			QueueGroup:    sc.QueueGroup,
			DurablePrefix: sc.DurablePrefix,
			MaxReconnects: sc.MaxReconnects,
			ReconnectWait: sc.ReconnectWait,
		})
		if err != nil {
			return err
		}
		m.subscriber = sub
	}
	if m.subscriber != nil {
		m.Sources = append(m.Sources, stream.NewPubSubSource(m.subscriber, sc.Topic, m.Aggregator))
	}

	if len(m.Sources) == 0 {
		logging.Warn().Msg("No detection stream configured; detections arrive over HTTP only")
	}
	return nil
}

// snapshot is what a newly connected UI client receives first.
func (m *Monitor) snapshot() []ws.Message {
	msgs := []ws.Message{
		{Type: placement.MessageCamerasUpdated, Data: m.Registry.List()},
		{Type: placement.MessageViewportUpdated, Data: m.Viewport.State()},
		{Type: placement.MessageSessionState, Data: m.Session.Status()},
		{Type: detection.MessageDetectionSnapshot, Data: m.Aggregator.Snapshot()},
	}
	if circle, ok := m.Coverage.Current(); ok {
		msgs = append(msgs, ws.Message{Type: placement.MessageCoverageUpdated, Data: circle})
	}
	if m.Heatmap.Mode() == heatmap.ModeHeatmap {
		msgs = append(msgs, ws.Message{Type: heatmap.MessageHeatmapUpdate, Data: m.Heatmap.Points()})
	}
	if m.Health != nil {
		msgs = append(msgs, ws.Message{Type: health.MessageHealthStatus, Data: m.Health.Status()})
	}
	return msgs
}

// Handler returns the HTTP API for this monitor.
func (m *Monitor) Handler() http.Handler {
	h := api.NewHandler(api.Deps{
		Registry:    m.Registry,
		Session:     m.Session,
		Coverage:    m.Coverage,
		Viewport:    m.Viewport,
		Aggregator:  m.Aggregator,
		Heatmap:     m.Heatmap,
		Health:      m.Health,
		Hub:         m.Hub,
		CORSOrigins: m.cfg.Server.CORSOrigins,
	})
	return api.NewRouter(h, api.RouterConfig{
		CORSOrigins: m.cfg.Server.CORSOrigins,
		RateLimit:   m.cfg.Server.RateLimit,
	})
}

// Register adds every service to tree. The HTTP server is built here.
func (m *Monitor) Register(tree *supervisor.Tree) {
	for _, src := range m.Sources {
		tree.AddIngestService(src)
	}

	tree.AddMessagingService(supervisor.NewHubService(m.Hub))
	tree.AddMessagingService(m.Heatmap)
	if m.Health != nil {
		tree.AddMessagingService(m.Health)
	}

	sc := m.cfg.Server
	srv := &http.Server{
		Addr:         sc.Addr(),
		Handler:      m.Handler(),
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
	}
	tree.AddAPIService(supervisor.NewHTTPService(srv, sc.ShutdownTimeout))
}

// Close releases the sources, the broker and the store. The aggregate
// and registry stay readable.
func (m *Monitor) Close(ctx context.Context) error {
	var errs []error
	for _, src := range m.Sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", src, err))
		}
	}
	if m.subscriber != nil {
		if err := m.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	if m.nats != nil {
		if err := m.nats.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown nats: %w", err))
		}
	}
	if err := m.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
