// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package store

import (
	"context"
	"sync"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/coverage"
	"github.com/tomtom215/vigilmap/internal/metrics"
)

// Memory keeps state for the lifetime of the process only.
type Memory struct {
	mu       sync.RWMutex
	cameras  []camera.Camera
	coverage *coverage.Circle
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveCameras(_ context.Context, cams []camera.Camera) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cameras = append([]camera.Camera(nil), cams...)
	metrics.RecordStoreOperation(string(BackendMemory), "save_cameras", nil)
	return nil
}

func (m *Memory) SaveCoverage(_ context.Context, circle coverage.Circle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coverage = &circle
	metrics.RecordStoreOperation(string(BackendMemory), "save_coverage", nil)
	return nil
}

func (m *Memory) Load(_ context.Context) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := State{Cameras: append([]camera.Camera(nil), m.cameras...)}
	if m.coverage != nil {
		c := *m.coverage
		st.Coverage = &c
	}
	metrics.RecordStoreOperation(string(BackendMemory), "load", nil)
	return st, nil
}

func (m *Memory) Close() error { return nil }
