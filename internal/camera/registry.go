// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package camera

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrCameraNotFound is returned for operations on an unknown id.
var ErrCameraNotFound = errors.New("camera not found")

// IDFunc generates a new camera id.
type IDFunc func() string

// NewID returns "cam_" followed by a time-ordered UUIDv7.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return IDPrefix + uuid.NewString()
	}
	return IDPrefix + id.String()
}

// Registry is the ordered camera collection. Each method is one critical
// section, so concurrent writers resolve as last-write-wins per call.
type Registry struct {
	mu      sync.RWMutex
	cameras []Camera
	newID   IDFunc
	onCount []func(int)
}

// NewRegistry creates an empty registry. A nil idFunc uses NewID.
func NewRegistry(idFunc IDFunc) *Registry {
	if idFunc == nil {
		idFunc = NewID
	}
	return &Registry{newID: idFunc}
}

// OnCountChange registers fn to be called with the new size after every
// Add, Remove and Restore. fn runs outside the registry lock.
func (r *Registry) OnCountChange(fn func(n int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCount = append(r.onCount, fn)
}

// unlockAndNotify releases the write lock and reports the current size.
func (r *Registry) unlockAndNotify() {
	n := len(r.cameras)
	fns := append(([]func(int))(nil), r.onCount...)
	r.mu.Unlock()
	for _, fn := range fns {
		fn(n)
	}
}

// Add appends a camera at (lat, lng) with the click defaults and returns it.
// The name is "Camera {n+1}" where n is the size before the add.
func (r *Registry) Add(lat, lng float64) Camera {
	r.mu.Lock()
	defer r.unlockAndNotify()

	cam := Camera{
		ID:        r.newID(),
		Name:      fmt.Sprintf("Camera %d", len(r.cameras)+1),
		Lat:       lat,
		Lng:       lng,
		Direction: 0,
		FOVRadius: DefaultFOVRadius,
		Status:    StatusActive,
	}
	r.cameras = append(r.cameras, cam)
	return cam
}

// Get returns a copy of the camera with id.
func (r *Registry) Get(id string) (Camera, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return Camera{}, fmt.Errorf("%w: %s", ErrCameraNotFound, id)
	}
	return r.cameras[i], nil
}

// Remove deletes the camera with id, preserving the order of the rest.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()

	i := r.indexOf(id)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCameraNotFound, id)
	}
	r.cameras = append(r.cameras[:i], r.cameras[i+1:]...)
	r.unlockAndNotify()
	return nil
}

// Move sets the position of the camera with id.
func (r *Registry) Move(id string, lat, lng float64) (Camera, error) {
	return r.update(id, func(c *Camera) {
		c.Lat = lat
		c.Lng = lng
	})
}

// SetDirection stores the bearing as given; no normalization is applied.
func (r *Registry) SetDirection(id string, direction float64) (Camera, error) {
	return r.update(id, func(c *Camera) {
		c.Direction = direction
	})
}

// SetRadius stores the raw radius. Readers clamp via EffectiveRadius.
func (r *Registry) SetRadius(id string, radius float64) (Camera, error) {
	return r.update(id, func(c *Camera) {
		c.FOVRadius = radius
	})
}

func (r *Registry) update(id string, fn func(*Camera)) (Camera, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return Camera{}, fmt.Errorf("%w: %s", ErrCameraNotFound, id)
	}
	fn(&r.cameras[i])
	return r.cameras[i], nil
}

// List returns a copy of all cameras in insertion order.
func (r *Registry) List() []Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Camera, len(r.cameras))
	copy(out, r.cameras)
	return out
}

// Len returns the number of cameras.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cameras)
}

// Snapshot is an alias of List kept for rollback call sites.
func (r *Registry) Snapshot() []Camera {
	return r.List()
}

// Restore replaces the whole collection with a copy of cams.
func (r *Registry) Restore(cams []Camera) {
	r.mu.Lock()
	defer r.unlockAndNotify()

	r.cameras = make([]Camera, len(cams))
	copy(r.cameras, cams)
}

func (r *Registry) indexOf(id string) int {
	for i := range r.cameras {
		if r.cameras[i].ID == id {
			return i
		}
	}
	return -1
}
