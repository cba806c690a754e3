// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/coverage"
	"github.com/tomtom215/vigilmap/internal/geo"
	"github.com/tomtom215/vigilmap/internal/metrics"
)

// cameraRow is the persisted form of a camera. Position keeps creation order.
type cameraRow struct {
	ID        string `gorm:"primaryKey"`
	Position  int    `gorm:"index"`
	Name      string
	Lat       float64
	Lng       float64
	Direction float64
	FOVRadius float64
	Status    string
}

func (cameraRow) TableName() string { return "cameras" }

// coverageRow holds the single committed coverage circle.
type coverageRow struct {
	ID           uint `gorm:"primaryKey"`
	CenterLat    float64
	CenterLng    float64
	RadiusMeters float64
	CameraCount  int
	ComputedAt   time.Time
}

func (coverageRow) TableName() string { return "coverage" }

const coverageRowID = 1

// SQLite stores state in a SQLite database through gorm.
type SQLite struct {
	db *gorm.DB
}

// OpenSQLite opens the database file at path. ":memory:" or an empty path
// gives a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	if dsn == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&cameraRow{}, &coverageRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveCameras(ctx context.Context, cams []camera.Camera) error {
	rows := make([]cameraRow, len(cams))
	for i, c := range cams {
		rows[i] = cameraRow{
			ID:        c.ID,
			Position:  i,
			Name:      c.Name,
			Lat:       c.Lat,
			Lng:       c.Lng,
			Direction: c.Direction,
			FOVRadius: c.FOVRadius,
			Status:    c.Status,
		}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&cameraRow{}).Error; err != nil {
			return fmt.Errorf("clear cameras: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert cameras: %w", err)
		}
		return nil
	})
	metrics.RecordStoreOperation(string(BackendSQLite), "save_cameras", err)
	return err
}

func (s *SQLite) SaveCoverage(ctx context.Context, circle coverage.Circle) error {
	row := coverageRow{
		ID:           coverageRowID,
		CenterLat:    circle.Center.Lat,
		CenterLng:    circle.Center.Lng,
		RadiusMeters: circle.RadiusMeters,
		CameraCount:  circle.CameraCount,
		ComputedAt:   circle.ComputedAt,
	}
	err := s.db.WithContext(ctx).Save(&row).Error
	metrics.RecordStoreOperation(string(BackendSQLite), "save_coverage", err)
	return err
}

func (s *SQLite) Load(ctx context.Context) (State, error) {
	st, err := s.load(ctx)
	metrics.RecordStoreOperation(string(BackendSQLite), "load", err)
	return st, err
}

func (s *SQLite) load(ctx context.Context) (State, error) {
	var st State
	db := s.db.WithContext(ctx)

	var rows []cameraRow
	if err := db.Order("position").Find(&rows).Error; err != nil {
		return st, fmt.Errorf("query cameras: %w", err)
	}
	for _, r := range rows {
		st.Cameras = append(st.Cameras, camera.Camera{
			ID:        r.ID,
			Name:      r.Name,
			Lat:       r.Lat,
			Lng:       r.Lng,
			Direction: r.Direction,
			FOVRadius: r.FOVRadius,
			Status:    r.Status,
		})
	}

	var cov coverageRow
	err := db.First(&cov, coverageRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("query coverage: %w", err)
	}
	st.Coverage = &coverage.Circle{
		Center:       geo.LatLng{Lat: cov.CenterLat, Lng: cov.CenterLng},
		RadiusMeters: cov.RadiusMeters,
		CameraCount:  cov.CameraCount,
		ComputedAt:   cov.ComputedAt,
	}
	return st, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
