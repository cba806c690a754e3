// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

// Package store persists the committed camera set and coverage circle so a
// restart can resume monitoring without a new placement session.
package store

import (
	"context"
	"fmt"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/coverage"
)

// Backend identifies a storage implementation.
type Backend string

const (
	BackendBadger Backend = "badger"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// State is what a store returns on startup.
type State struct {
	Cameras  []camera.Camera
	Coverage *coverage.Circle
}

// Store persists committed placements.
type Store interface {
	SaveCameras(ctx context.Context, cams []camera.Camera) error
	SaveCoverage(ctx context.Context, circle coverage.Circle) error
	Load(ctx context.Context) (State, error)
	Close() error
}

// Open returns the store for backend rooted at path.
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendBadger:
		s, err := OpenBadger(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory, "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
