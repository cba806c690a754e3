// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

// Package heatmap produces the simulated crowd heatmap shown in monitoring
// mode. Points are jittered around each camera; they are not derived from
// any real density measurement.
package heatmap

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/logging"
)

// Mode selects how cameras are drawn on the monitoring surface.
type Mode string

const (
	ModeMarkers Mode = "markers"
	ModeHeatmap Mode = "heatmap"
)

const (
	DefaultInterval        = 3 * time.Second
	DefaultPointsPerCamera = 3
	DefaultJitter          = 0.0015

	MessageHeatmapUpdate = "heatmap_update"
)

// ErrUnknownMode is returned by SetMode for anything but markers or heatmap.
var ErrUnknownMode = errors.New("unknown display mode")

// Point is one weighted heatmap sample.
type Point struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Intensity float64 `json:"intensity"`
}

// CrowdStats summarises the monitored area. TotalPeople is always zero since
// no people counting is performed.
type CrowdStats struct {
	ActiveCameras int `json:"active_cameras"`
	TotalPeople   int `json:"total_people"`
}

// Cameras lists the cameras currently in the registry.
type Cameras interface {
	List() []camera.Camera
}

// Broadcaster pushes heatmap updates to clients.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// Config configures a Simulator.
type Config struct {
	Interval        time.Duration
	PointsPerCamera int
	Jitter          float64
}

// Simulator regenerates heatmap points on a fixed interval while the display
// is in heatmap mode and at least one camera exists. Outside that state no
// ticker runs; SetMode and CamerasChanged wake Serve to re-evaluate.
type Simulator struct {
	cfg         Config
	cameras     Cameras
	broadcaster Broadcaster
	wake        chan struct{}

	mu      sync.Mutex
	mode    Mode
	points  []Point
	rng     *rand.Rand
	ticking bool
}

// NewSimulator creates a simulator in markers mode.
func NewSimulator(cfg Config, cameras Cameras, broadcaster Broadcaster) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.PointsPerCamera <= 0 {
		cfg.PointsPerCamera = DefaultPointsPerCamera
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = DefaultJitter
	}
	seed := uint64(time.Now().UnixNano())
	return &Simulator{
		cfg:         cfg,
		cameras:     cameras,
		broadcaster: broadcaster,
		wake:        make(chan struct{}, 1),
		mode:        ModeMarkers,
		rng:         rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// SetMode switches the display mode. Leaving heatmap mode clears the points.
func (s *Simulator) SetMode(mode Mode) error {
	if mode != ModeMarkers && mode != ModeHeatmap {
		return ErrUnknownMode
	}
	s.mu.Lock()
	s.mode = mode
	if mode == ModeMarkers {
		s.points = nil
	}
	s.mu.Unlock()
	s.signal()
	logging.Debug().Str("mode", string(mode)).Msg("Display mode changed")
	return nil
}

// CamerasChanged tells Serve the camera count may have changed. It never
// blocks.
func (s *Simulator) CamerasChanged() {
	s.signal()
}

func (s *Simulator) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Ticking reports whether Serve currently holds a running ticker.
func (s *Simulator) Ticking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticking
}

func (s *Simulator) shouldTick() bool {
	s.mu.Lock()
	heat := s.mode == ModeHeatmap
	s.mu.Unlock()
	return heat && len(s.cameras.List()) > 0
}

func (s *Simulator) setTicking(v bool) {
	s.mu.Lock()
	s.ticking = v
	s.mu.Unlock()
}

// Mode returns the current display mode.
func (s *Simulator) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Points returns the most recent heatmap sample.
func (s *Simulator) Points() []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Point(nil), s.points...)
}

// Serve runs until ctx is done, holding a ticker only while the simulator
// is in heatmap mode with at least one camera. Entering that state emits a
// sample immediately.
func (s *Simulator) Serve(ctx context.Context) error {
	var ticker *time.Ticker
	stop := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			s.setTicking(false)
			logging.Debug().Msg("Heatmap ticker stopped")
		}
	}
	defer stop()

	for {
		var tick <-chan time.Time
		if s.shouldTick() {
			if ticker == nil {
				ticker = time.NewTicker(s.cfg.Interval)
				s.setTicking(true)
				logging.Debug().Dur("interval", s.cfg.Interval).Msg("Heatmap ticker started")
				s.Tick()
			}
			tick = ticker.C
		} else {
			stop()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-tick:
			s.Tick()
		}
	}
}

func (s *Simulator) String() string {
	return "heatmap-simulator"
}

// Tick generates and broadcasts one sample. It reports false when the
// simulator is idle.
func (s *Simulator) Tick() bool {
	cams := s.cameras.List()

	s.mu.Lock()
	if s.mode != ModeHeatmap || len(cams) == 0 {
		s.mu.Unlock()
		return false
	}
	points := s.generateLocked(cams)
	s.points = points
	s.mu.Unlock()
	logging.Trace().Int("cameras", len(cams)).Int("points", len(points)).Msg("Heatmap sample generated")

	if s.broadcaster != nil {
		s.broadcaster.BroadcastJSON(MessageHeatmapUpdate, points)
	}
	return true
}

func (s *Simulator) generateLocked(cams []camera.Camera) []Point {
	j := s.cfg.Jitter
	points := make([]Point, 0, len(cams)*s.cfg.PointsPerCamera)
	for i := range cams {
		for n := 0; n < s.cfg.PointsPerCamera; n++ {
			points = append(points, Point{
				Lat:       cams[i].Lat + (s.rng.Float64()*2-1)*j,
				Lng:       cams[i].Lng + (s.rng.Float64()*2-1)*j,
				Intensity: 0.5 + s.rng.Float64()*0.5,
			})
		}
	}
	return points
}

// Crowd counts active cameras in the live registry, so cameras placed in an
// uncommitted session are included.
func (s *Simulator) Crowd() CrowdStats {
	active := 0
	for _, c := range s.cameras.List() {
		if c.Status == camera.StatusActive {
			active++
		}
	}
	return CrowdStats{ActiveCameras: active}
}
