// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
// Package camera owns the Camera entity and the ordered registry that the
// placement session mutates.
package camera

import (
	"math"

	"github.com/tomtom215/vigilmap/internal/geo"
)

const (
	// MinFOVRadius and MaxFOVRadius bound every radius read, in meters.
	MinFOVRadius = 10.0
	MaxFOVRadius = 50.0

	// DefaultFOVRadius is assigned to cameras created by a map click.
	DefaultFOVRadius = 20.0

	// StatusActive is the status of a freshly placed camera.
	StatusActive = "active"

	// IDPrefix prefixes every generated camera id.
	IDPrefix = "cam_"
)

// Camera is a placed camera. FOVRadius is the raw stored value and may sit
// outside [MinFOVRadius, MaxFOVRadius] while being edited; read it through
// EffectiveRadius.
type Camera struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Direction float64 `json:"direction"`
	FOVRadius float64 `json:"fov_radius"`
	Status    string  `json:"status"`
}

// Position returns the camera location.
func (c *Camera) Position() geo.LatLng {
	return geo.LatLng{Lat: c.Lat, Lng: c.Lng}
}

// EffectiveRadius returns FOVRadius clamped to the allowed range.
func (c *Camera) EffectiveRadius() float64 {
	return ClampRadius(c.FOVRadius)
}

// ClampRadius clamps r to [MinFOVRadius, MaxFOVRadius]. NaN maps to the minimum.
func ClampRadius(r float64) float64 {
	if math.IsNaN(r) {
		return MinFOVRadius
	}
	return math.Max(MinFOVRadius, math.Min(MaxFOVRadius, r))
}

// Positions extracts the locations of cams in order.
func Positions(cams []Camera) []geo.LatLng {
	out := make([]geo.LatLng, len(cams))
	for i := range cams {
		out[i] = cams[i].Position()
	}
	return out
}
