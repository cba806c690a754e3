// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
// Package viewport keeps the placement and monitoring map surfaces on one
// shared center and zoom.
package viewport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/geo"
	"github.com/tomtom215/vigilmap/internal/logging"
)

const (
	// MaxFitZoom caps the zoom chosen by FitToCameras.
	MaxFitZoom = 15

	// MinZoom and MaxZoom bound native zoom interaction.
	MinZoom = 0
	MaxZoom = 22

	// Surface names used by the service.
	SurfacePlacement  = "placement"
	SurfaceMonitoring = "monitoring"
)

// ErrUnknownSurface is returned when a surface name is not registered.
var ErrUnknownSurface = errors.New("unknown map surface")

// State is the shared view.
type State struct {
	Center geo.LatLng `json:"center"`
	Zoom   int        `json:"zoom"`
}

// Surface is one rendered map. FitBounds reports the zoom the surface would
// pick natively to show b; Adopt applies the shared state.
type Surface interface {
	Name() string
	FitBounds(b geo.Bounds) int
	Adopt(s State)
}

// Synchronizer owns the shared State. Each mutation is a single assignment
// under the lock, so concurrent writers from both surfaces are
// last-write-wins.
type Synchronizer struct {
	mu       sync.RWMutex
	state    State
	surfaces []Surface
	onChange []func(State)
}

// NewSynchronizer creates a synchronizer and pushes initial to every surface.
func NewSynchronizer(initial State, surfaces ...Surface) *Synchronizer {
	s := &Synchronizer{state: initial, surfaces: surfaces}
	for _, surf := range surfaces {
		surf.Adopt(initial)
	}
	return s
}

// OnChange registers fn to be called after every state change.
func (s *Synchronizer) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// State returns the current shared state.
func (s *Synchronizer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// FitToCameras centers on the bounding box of cams and picks the smallest
// zoom any surface reports, capped at MaxFitZoom. It is a no-op for an
// empty set and returns false.
func (s *Synchronizer) FitToCameras(cams []camera.Camera) (State, bool) {
	bounds, ok := geo.BoundsOf(camera.Positions(cams))
	if !ok {
		return s.State(), false
	}

	s.mu.Lock()
	zoom := MaxFitZoom
	for _, surf := range s.surfaces {
		if z := surf.FitBounds(bounds); z < zoom {
			zoom = z
		}
	}
	s.state = State{Center: bounds.Center(), Zoom: zoom}
	next := s.adoptLocked()
	s.mu.Unlock()

	logging.Debug().
		Float64("lat", next.Center.Lat).
		Float64("lng", next.Center.Lng).
		Int("zoom", next.Zoom).
		Int("cameras", len(cams)).
		Msg("Viewport fitted to cameras")

	s.notify(next)
	return next, true
}

// Pan records a native pan on the named surface.
func (s *Synchronizer) Pan(surface string, center geo.LatLng) (State, error) {
	return s.assign(surface, func(st *State) { st.Center = center })
}

// Zoom records a native zoom on the named surface, clamped to [MinZoom, MaxZoom].
func (s *Synchronizer) Zoom(surface string, zoom int) (State, error) {
	zoom = max(MinZoom, min(MaxZoom, zoom))
	return s.assign(surface, func(st *State) { st.Zoom = zoom })
}

func (s *Synchronizer) assign(surface string, fn func(*State)) (State, error) {
	s.mu.Lock()
	if !s.hasSurfaceLocked(surface) {
		s.mu.Unlock()
		return State{}, fmt.Errorf("%w: %s", ErrUnknownSurface, surface)
	}
	fn(&s.state)
	next := s.adoptLocked()
	s.mu.Unlock()

	s.notify(next)
	return next, nil
}

func (s *Synchronizer) hasSurfaceLocked(name string) bool {
	for _, surf := range s.surfaces {
		if surf.Name() == name {
			return true
		}
	}
	return false
}

func (s *Synchronizer) adoptLocked() State {
	for _, surf := range s.surfaces {
		surf.Adopt(s.state)
	}
	return s.state
}

func (s *Synchronizer) notify(st State) {
	s.mu.RLock()
	hooks := s.onChange
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(st)
	}
}
