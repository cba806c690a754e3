// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package viewport

import (
	"math"
	"sync"

	"github.com/tomtom215/vigilmap/internal/geo"
)

const tileSize = 256.0

// MercatorSurface fits bounds the way slippy-map clients do: the largest
// integer zoom at which the box, projected to Web Mercator, fits inside the
// surface's pixel size minus padding.
type MercatorSurface struct {
	name    string
	width   float64
	height  float64
	padding float64

	mu      sync.RWMutex
	current State
}

// NewMercatorSurface creates a surface of width x height pixels with padding
// pixels kept clear on each side.
func NewMercatorSurface(name string, width, height, padding int) *MercatorSurface {
	return &MercatorSurface{
		name:    name,
		width:   float64(width),
		height:  float64(height),
		padding: float64(padding),
	}
}

// Name implements Surface.
func (m *MercatorSurface) Name() string { return m.name }

// FitBounds implements Surface. A zero-area box fits at MaxZoom.
func (m *MercatorSurface) FitBounds(b geo.Bounds) int {
	x1, y1 := geo.ToWebMercator(geo.LatLng{Lat: b.South, Lng: b.West})
	x2, y2 := geo.ToWebMercator(geo.LatLng{Lat: b.North, Lng: b.East})
	dx := math.Abs(x2 - x1)
	dy := math.Abs(y2 - y1)

	w := math.Max(1, m.width-2*m.padding)
	h := math.Max(1, m.height-2*m.padding)

	// Meters per pixel at zoom 0 is WorldMercatorWidth / tileSize.
	zoom := float64(MaxZoom)
	if dx > 0 {
		zoom = math.Min(zoom, math.Log2(w*geo.WorldMercatorWidth/(tileSize*dx)))
	}
	if dy > 0 {
		zoom = math.Min(zoom, math.Log2(h*geo.WorldMercatorWidth/(tileSize*dy)))
	}
	return max(MinZoom, int(math.Floor(zoom)))
}

// Adopt implements Surface.
func (m *MercatorSurface) Adopt(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}

// Current returns the state last adopted by this surface.
func (m *MercatorSurface) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}
