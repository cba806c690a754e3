// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package geo

import (
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrDegenerateRing is returned for rings with fewer than three vertices.
var ErrDegenerateRing = errors.New("ring needs at least three vertices")

// Polygon builds a single-ring simplefeatures polygon from vertices in
// order. The ring is closed automatically. GeoJSON axis order is lng,lat.
func Polygon(vertices []LatLng) (geom.Polygon, error) {
	if len(vertices) < 3 {
		return geom.Polygon{}, ErrDegenerateRing
	}

	flat := make([]float64, 0, (len(vertices)+1)*2)
	for _, v := range vertices {
		flat = append(flat, v.Lng, v.Lat)
	}
	if first, last := vertices[0], vertices[len(vertices)-1]; first != last {
		flat = append(flat, first.Lng, first.Lat)
	}

	ring, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("build ring: %w", err)
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring})
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("build polygon: %w", err)
	}
	return poly, nil
}

// PolygonGeoJSON returns the GeoJSON geometry object for vertices.
func PolygonGeoJSON(vertices []LatLng) ([]byte, error) {
	poly, err := Polygon(vertices)
	if err != nil {
		return nil, err
	}
	return poly.MarshalJSON()
}

// Point returns a simplefeatures point for p.
func Point(p LatLng) (geom.Point, error) {
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.Lng, Y: p.Lat}, Type: geom.DimXY})
	if err != nil {
		return geom.Point{}, fmt.Errorf("build point: %w", err)
	}
	return pt, nil
}

// PointGeoJSON returns the GeoJSON geometry object for p.
func PointGeoJSON(p LatLng) ([]byte, error) {
	pt, err := Point(p)
	if err != nil {
		return nil, err
	}
	return pt.MarshalJSON()
}
