// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package geo

import (
	"math"

	"github.com/wroge/wgs84"
)

const (
	// MaxMercatorLat is the latitude limit of the Web Mercator square.
	MaxMercatorLat = 85.05112878

	// WorldMercatorWidth is the full extent of EPSG:3857 in meters.
	WorldMercatorWidth = 2 * math.Pi * 6378137.0
)

var (
	to3857   = wgs84.EPSG().Transform(4326, 3857)
	from3857 = wgs84.EPSG().Transform(3857, 4326)
)

// ToWebMercator projects p into EPSG:3857 meters (x east, y north).
// Latitude is clamped to the projection's valid range.
func ToWebMercator(p LatLng) (x, y float64) {
	lat := math.Max(-MaxMercatorLat, math.Min(MaxMercatorLat, p.Lat))
	x, y, _ = to3857(p.Lng, lat, 0)
	return x, y
}

// FromWebMercator converts EPSG:3857 meters back to a WGS84 position.
func FromWebMercator(x, y float64) LatLng {
	lng, lat, _ := from3857(x, y, 0)
	return LatLng{Lat: lat, Lng: lng}
}
