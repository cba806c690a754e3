// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
// Package geo holds the flat-earth and spherical approximations shared by
// the FOV, coverage and viewport packages.
//
// The meters-to-degrees conversion uses a fixed 111 km per degree with no
// latitude correction. It is only meaningful at the scale of tens to low
// hundreds of meters around a camera.
package geo

import "math"

const (
	// MetersPerDegree approximates one degree of latitude.
	MetersPerDegree = 111000.0

	// EarthRadiusMeters is the mean spherical radius used by Distance.
	EarthRadiusMeters = 6371000.0
)

// LatLng is a WGS84 position in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MetersToDegrees converts a ground distance to degrees.
func MetersToDegrees(m float64) float64 {
	return m / MetersPerDegree
}

// DegreesToMeters is the inverse of MetersToDegrees.
func DegreesToMeters(d float64) float64 {
	return d * MetersPerDegree
}

// Distance returns the haversine great-circle distance in meters.
func Distance(p1, p2 LatLng) float64 {
	lat1 := toRadians(p1.Lat)
	lat2 := toRadians(p2.Lat)
	dLat := toRadians(p2.Lat - p1.Lat)
	dLng := toRadians(p2.Lng - p1.Lng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Bounds is an axis-aligned box in degrees.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// BoundsOf returns the minimal box containing every point. ok is false for
// an empty input.
func BoundsOf(points []LatLng) (b Bounds, ok bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b = Bounds{South: points[0].Lat, North: points[0].Lat, West: points[0].Lng, East: points[0].Lng}
	for _, p := range points[1:] {
		b.South = math.Min(b.South, p.Lat)
		b.North = math.Max(b.North, p.Lat)
		b.West = math.Min(b.West, p.Lng)
		b.East = math.Max(b.East, p.Lng)
	}
	return b, true
}

// Center returns the midpoint of the box.
func (b Bounds) Center() LatLng {
	return LatLng{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}
