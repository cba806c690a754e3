// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
// Package coverage reduces a camera set to one bounding circle.
package coverage

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/geo"
)

// Margin scales the farthest camera distance into the circle radius.
const Margin = 1.2

// ErrNoCameras is returned when coverage is requested for an empty set.
// The previous circle is kept.
var ErrNoCameras = errors.New("coverage requires at least one camera")

// Circle is the coverage region. The center is the arithmetic mean of the
// camera positions, not a geodesic centroid.
type Circle struct {
	Center       geo.LatLng `json:"center"`
	RadiusMeters float64    `json:"radius_meters"`
	CameraCount  int        `json:"camera_count"`
	ComputedAt   time.Time  `json:"computed_at"`
}

// Contains reports whether p lies within the circle.
func (c Circle) Contains(p geo.LatLng) bool {
	return geo.Distance(c.Center, p) <= c.RadiusMeters
}

// Calculator holds the most recent successful Circle.
type Calculator struct {
	mu      sync.RWMutex
	current Circle
	valid   bool
	now     func() time.Time
}

// NewCalculator creates a calculator with no circle.
func NewCalculator() *Calculator {
	return &Calculator{now: time.Now}
}

// Compute derives the circle for cams and stores it. An empty input
// returns ErrNoCameras and leaves the stored circle unchanged.
func (c *Calculator) Compute(cams []camera.Camera) (Circle, error) {
	if len(cams) == 0 {
		return Circle{}, ErrNoCameras
	}

	var sumLat, sumLng float64
	for i := range cams {
		sumLat += cams[i].Lat
		sumLng += cams[i].Lng
	}
	n := float64(len(cams))
	center := geo.LatLng{Lat: sumLat / n, Lng: sumLng / n}

	var maxDistance float64
	for i := range cams {
		maxDistance = math.Max(maxDistance, geo.Distance(center, cams[i].Position()))
	}

	circle := Circle{
		Center:       center,
		RadiusMeters: maxDistance * Margin,
		CameraCount:  len(cams),
		ComputedAt:   c.now().UTC(),
	}

	c.mu.Lock()
	c.current = circle
	c.valid = true
	c.mu.Unlock()

	return circle, nil
}

// Current returns the last stored circle; ok is false before the first
// successful Compute or Restore.
func (c *Calculator) Current() (Circle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.valid
}

// Restore installs a previously persisted circle.
func (c *Calculator) Restore(circle Circle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = circle
	c.valid = true
}

// RingVertices approximates the circle with n vertices using the same
// flat-earth conversion as the FOV fan.
func (c Circle) RingVertices(n int) []geo.LatLng {
	if n < 3 {
		n = 3
	}
	r := geo.MetersToDegrees(c.RadiusMeters)
	out := make([]geo.LatLng, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		out[i] = geo.LatLng{
			Lat: c.Center.Lat + r*math.Cos(angle),
			Lng: c.Center.Lng + r*math.Sin(angle),
		}
	}
	return out
}

// GeoJSON returns a 64-gon approximation of the circle. A zero radius,
// as left by a single camera, is emitted as a Point.
func (c Circle) GeoJSON() ([]byte, error) {
	if c.RadiusMeters <= 0 {
		return geo.PointGeoJSON(c.Center)
	}
	return geo.PolygonGeoJSON(c.RingVertices(64))
}
