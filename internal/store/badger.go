// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/coverage"
	"github.com/tomtom215/vigilmap/internal/metrics"
)

const (
	badgerCamerasKey  = "placement:cameras"
	badgerCoverageKey = "placement:coverage"
)

// Badger stores state as JSON documents in a BadgerDB.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a BadgerDB at path. An empty path opens an
// in-memory database.
func OpenBadger(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return NewBadgerFromDB(db), nil
}

// NewBadgerFromDB wraps an existing DB connection.
func NewBadgerFromDB(db *badger.DB) *Badger {
	return &Badger{db: db}
}

func (b *Badger) SaveCameras(ctx context.Context, cams []camera.Camera) error {
	if cams == nil {
		cams = []camera.Camera{}
	}
	err := b.put(ctx, badgerCamerasKey, cams)
	metrics.RecordStoreOperation(string(BackendBadger), "save_cameras", err)
	return err
}

func (b *Badger) SaveCoverage(ctx context.Context, circle coverage.Circle) error {
	err := b.put(ctx, badgerCoverageKey, circle)
	metrics.RecordStoreOperation(string(BackendBadger), "save_coverage", err)
	return err
}

func (b *Badger) put(ctx context.Context, key string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (b *Badger) Load(ctx context.Context) (State, error) {
	var st State
	if err := ctx.Err(); err != nil {
		return st, err
	}
	err := b.db.View(func(txn *badger.Txn) error {
		err := getJSON(txn, badgerCamerasKey, &st.Cameras)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		var circle coverage.Circle
		err = getJSON(txn, badgerCoverageKey, &circle)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		st.Coverage = &circle
		return nil
	})
	metrics.RecordStoreOperation(string(BackendBadger), "load", err)
	return st, err
}

func getJSON(txn *badger.Txn, key string, dst interface{}) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, dst); err != nil {
			return fmt.Errorf("unmarshal %s: %w", key, err)
		}
		return nil
	})
}

func (b *Badger) Close() error {
	return b.db.Close()
}
