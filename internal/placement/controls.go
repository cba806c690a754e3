// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap
package placement

import (
	"sync"

	"github.com/tomtom215/vigilmap/internal/camera"
)

// ControlVisibility tracks which cameras have their radius/direction
// editor open. It is UI state keyed by camera id and is independent of the
// session state machine.
type ControlVisibility struct {
	mu      sync.RWMutex
	visible map[string]struct{}
}

// NewControlVisibility returns an empty set.
func NewControlVisibility() *ControlVisibility {
	return &ControlVisibility{visible: make(map[string]struct{})}
}

// Toggle flips visibility for id and returns the new value.
func (v *ControlVisibility) Toggle(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.visible[id]; ok {
		delete(v.visible, id)
		return false
	}
	v.visible[id] = struct{}{}
	return true
}

// Visible reports whether the editor for id is open.
func (v *ControlVisibility) Visible(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.visible[id]
	return ok
}

// Forget drops id from the set.
func (v *ControlVisibility) Forget(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.visible, id)
}

// Retain drops every id not present in cams.
func (v *ControlVisibility) Retain(cams []camera.Camera) {
	keep := make(map[string]struct{}, len(cams))
	for i := range cams {
		keep[cams[i].ID] = struct{}{}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for id := range v.visible {
		if _, ok := keep[id]; !ok {
			delete(v.visible, id)
		}
	}
}

// IDs returns the ids with an open editor.
func (v *ControlVisibility) IDs() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, 0, len(v.visible))
	for id := range v.visible {
		out = append(out, id)
	}
	return out
}
