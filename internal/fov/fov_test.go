// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package fov

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/geo"
)

const eps = 1e-12

func arcRadiusMeters(origin, v geo.LatLng) float64 {
	return geo.DegreesToMeters(math.Hypot(v.Lat-origin.Lat, v.Lng-origin.Lng))
}

func TestComputeNorthFacing(t *testing.T) {
	t.Parallel()

	cam := &camera.Camera{ID: "cam_1", Lat: 18.5204, Lng: 73.8567, Direction: 0, FOVRadius: 20}
	vertices := Compute(cam)

	if len(vertices) != 11 {
		t.Fatalf("len(vertices) = %d, want 11", len(vertices))
	}
	if vertices[0] != cam.Position() {
		t.Errorf("first vertex = %+v, want camera position %+v", vertices[0], cam.Position())
	}

	r := geo.MetersToDegrees(20)
	for i, v := range vertices[1:] {
		bearing := -45 + float64(i)*StepDegrees
		rad := bearing * math.Pi / 180
		wantLat := cam.Lat + r*math.Cos(rad)
		wantLng := cam.Lng + r*math.Sin(rad)
		if math.Abs(v.Lat-wantLat) > eps || math.Abs(v.Lng-wantLng) > eps {
			t.Errorf("vertex %d (bearing %v) = %+v, want (%v,%v)", i+1, bearing, v, wantLat, wantLng)
		}
		if d := arcRadiusMeters(cam.Position(), v); math.Abs(d-20) > 1e-6 {
			t.Errorf("vertex %d at %.6f m, want 20", i+1, d)
		}
	}

	// Arc spans -45 to +45: first sample west of north, last east of north.
	if vertices[1].Lng >= cam.Lng || vertices[10].Lng <= cam.Lng {
		t.Errorf("arc endpoints not symmetric about north: %+v %+v", vertices[1], vertices[10])
	}
}

func TestComputeClampsRadius(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stored float64
		want   float64
	}{
		{1, camera.MinFOVRadius},
		{-30, camera.MinFOVRadius},
		{35, 35},
		{500, camera.MaxFOVRadius},
	}

	for _, tt := range tests {
		cam := &camera.Camera{Lat: 10, Lng: 10, Direction: 90, FOVRadius: tt.stored}
		for _, v := range Compute(cam)[1:] {
			if d := arcRadiusMeters(cam.Position(), v); math.Abs(d-tt.want) > 1e-6 {
				t.Errorf("stored %v: arc vertex at %.6f m, want %v", tt.stored, d, tt.want)
			}
		}
	}
}

func TestComputeProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		cam := &camera.Camera{
			Lat:       rng.Float64()*170 - 85,
			Lng:       rng.Float64()*360 - 180,
			Direction: rng.Float64()*1440 - 720,
			FOVRadius: rng.Float64()*200 - 50,
		}
		vertices := Compute(cam)
		if vertices[0] != cam.Position() {
			t.Fatalf("first vertex differs from position for %+v", cam)
		}
		for _, v := range vertices[1:] {
			d := arcRadiusMeters(cam.Position(), v)
			if d < camera.MinFOVRadius-1e-6 || d > camera.MaxFOVRadius+1e-6 {
				t.Fatalf("radius %.6f out of bounds for %+v", d, cam)
			}
		}
	}
}

func TestComputeDirectionWraps(t *testing.T) {
	t.Parallel()

	a := Compute(&camera.Camera{Direction: 30, FOVRadius: 20})
	b := Compute(&camera.Camera{Direction: 390, FOVRadius: 20})
	for i := range a {
		if math.Abs(a[i].Lat-b[i].Lat) > eps || math.Abs(a[i].Lng-b[i].Lng) > eps {
			t.Fatalf("vertex %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestNewTriangleAndGeoJSON(t *testing.T) {
	t.Parallel()

	cam := &camera.Camera{ID: "cam_9", Lat: 1, Lng: 2, FOVRadius: 20}
	tri := NewTriangle(cam)
	if tri.CameraID != "cam_9" || tri.Dragging || len(tri.Vertices) != 11 {
		t.Errorf("unexpected triangle %+v", tri)
	}

	data, err := GeoJSON(cam)
	if err != nil {
		t.Fatalf("GeoJSON() error = %v", err)
	}
	if !strings.HasPrefix(string(data), `{"type":"Polygon"`) {
		t.Errorf("unexpected GeoJSON %s", data)
	}
}
