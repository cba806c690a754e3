// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

// Package health probes the camera feed and data API and reports whether
// the monitor is connected to both.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/tomtom215/vigilmap/internal/logging"
	"github.com/tomtom215/vigilmap/internal/metrics"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultTimeout  = 3 * time.Second

	MessageHealthStatus = "health_status"

	ProbeCamera = "camera"
	ProbeData   = "data"
)

// Broadcaster pushes status changes to connected clients.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Config configures a Prober.
type Config struct {
	CameraURL string
	DataURL   string
	Interval  time.Duration
	Timeout   time.Duration
}

// ProbeResult is the outcome of one probe.
type ProbeResult struct {
	URL     string `json:"url"`
	Up      bool   `json:"up"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
	Latency int64  `json:"latency_ms"`
}

// Status is the combined probe outcome.
type Status struct {
	Camera      ProbeResult `json:"camera"`
	Data        ProbeResult `json:"data"`
	ModelLoaded bool        `json:"model_loaded"`
	Connected   bool        `json:"connected"`
	CheckedAt   time.Time   `json:"checked_at"`
}

// cameraHealth is the body served by the camera feed's health endpoint.
type cameraHealth struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// Prober periodically checks both endpoints.
type Prober struct {
	cfg         Config
	client      *resty.Client
	broadcaster Broadcaster

	mu      sync.RWMutex
	status  Status
	checked bool
}

// NewProber creates a prober. broadcaster may be nil.
func NewProber(cfg Config, broadcaster Broadcaster) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Prober{
		cfg:         cfg,
		client:      client,
		broadcaster: broadcaster,
	}
}

// Serve checks immediately and then on every interval until ctx is done.
func (p *Prober) Serve(ctx context.Context) error {
	p.Check(ctx)
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

func (p *Prober) String() string {
	return "health-prober"
}

// Check runs both probes once and records the result.
func (p *Prober) Check(ctx context.Context) Status {
	var (
		wg          sync.WaitGroup
		cam, data   ProbeResult
		modelLoaded bool
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		cam, modelLoaded = p.probeCamera(ctx)
	}()
	go func() {
		defer wg.Done()
		data = p.probe(ctx, p.cfg.DataURL, nil)
	}()
	wg.Wait()

	st := Status{
		Camera:      cam,
		Data:        data,
		ModelLoaded: modelLoaded,
		Connected:   cam.Up && data.Up,
		CheckedAt:   time.Now().UTC(),
	}
	metrics.SetHealth(ProbeCamera, cam.Up)
	metrics.SetHealth(ProbeData, data.Up)

	p.mu.Lock()
	changed := !p.checked || p.status.Connected != st.Connected ||
		p.status.Camera.Up != st.Camera.Up || p.status.Data.Up != st.Data.Up
	p.status = st
	p.checked = true
	p.mu.Unlock()

	if changed {
		logging.Info().Bool("connected", st.Connected).Bool("camera_up", cam.Up).
			Bool("data_up", data.Up).Bool("model_loaded", modelLoaded).Msg("Connectivity changed")
		if p.broadcaster != nil {
			p.broadcaster.BroadcastJSON(MessageHealthStatus, st)
		}
	}
	return st
}

func (p *Prober) probeCamera(ctx context.Context) (ProbeResult, bool) {
	var body cameraHealth
	res := p.probe(ctx, p.cfg.CameraURL, func(b []byte) error {
		return json.Unmarshal(b, &body)
	})
	if res.Up {
		res.Status = body.Status
	}
	return res, res.Up && body.ModelLoaded
}

// probe issues one GET. A 2xx response whose body decodes counts as up.
func (p *Prober) probe(ctx context.Context, url string, decode func([]byte) error) ProbeResult {
	res := ProbeResult{URL: url}
	if url == "" {
		res.Error = "not configured"
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	start := time.Now()

	resp, err := p.client.R().SetContext(ctx).Get(url)
	res.Latency = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if !resp.IsSuccess() {
		res.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode())
		return res
	}
	if decode != nil {
		if err := decode(resp.Body()); err != nil {
			res.Error = fmt.Sprintf("decode health body: %v", err)
			return res
		}
	}
	res.Up = true
	return res
}

// Status returns the most recent result.
func (p *Prober) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Connected reports whether the last check reached both endpoints.
func (p *Prober) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status.Connected
}
