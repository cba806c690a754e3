// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
// Package fov derives the field-of-view fan drawn for each camera.
//
// A fan is a pure function of the camera pose. It is recomputed whenever
// position, direction or radius changes and never patched in place.
package fov

import (
	"math"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/geo"
)

const (
	// Aperture is the fixed angular width of every camera's view, in degrees.
	Aperture = 90.0

	// StepDegrees is the arc sampling interval.
	StepDegrees = 10.0
)

// Triangle is the rendered FOV of one camera. Vertices[0] is always the
// camera position; the remaining vertices sample the arc.
type Triangle struct {
	CameraID string       `json:"camera_id"`
	Vertices []geo.LatLng `json:"vertices"`
	Dragging bool         `json:"is_dragging"`
}

// Compute returns the fan polygon for cam: the origin followed by arc
// samples from direction-45 to direction+45 inclusive. Each arc vertex is
// offset by r*cos(angle) in latitude and r*sin(angle) in longitude, with r
// the clamped radius in degrees. Directions outside [0,360) are used as-is.
func Compute(cam *camera.Camera) []geo.LatLng {
	origin := cam.Position()
	r := geo.MetersToDegrees(cam.EffectiveRadius())

	half := Aperture / 2
	steps := int(Aperture / StepDegrees)

	vertices := make([]geo.LatLng, 0, steps+2)
	vertices = append(vertices, origin)
	for i := 0; i <= steps; i++ {
		angle := (cam.Direction - half + float64(i)*StepDegrees) * math.Pi / 180
		vertices = append(vertices, geo.LatLng{
			Lat: origin.Lat + r*math.Cos(angle),
			Lng: origin.Lng + r*math.Sin(angle),
		})
	}
	return vertices
}

// NewTriangle computes the Triangle for cam.
func NewTriangle(cam *camera.Camera) Triangle {
	return Triangle{CameraID: cam.ID, Vertices: Compute(cam)}
}

// GeoJSON returns the fan as a GeoJSON Polygon geometry.
func GeoJSON(cam *camera.Camera) ([]byte, error) {
	return geo.PolygonGeoJSON(Compute(cam))
}
