// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

// Package api exposes the placement, monitoring and detection operations
// over HTTP using chi, and upgrades UI clients onto the websocket hub.
package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/coverage"
	"github.com/tomtom215/vigilmap/internal/detection"
	"github.com/tomtom215/vigilmap/internal/health"
	"github.com/tomtom215/vigilmap/internal/heatmap"
	"github.com/tomtom215/vigilmap/internal/placement"
	"github.com/tomtom215/vigilmap/internal/viewport"
	ws "github.com/tomtom215/vigilmap/internal/websocket"
)

// Deps are the components the handlers operate on. Health and Hub may be nil.
type Deps struct {
	Registry    *camera.Registry
	Session     *placement.Controller
	Coverage    *coverage.Calculator
	Viewport    *viewport.Synchronizer
	Aggregator  *detection.Aggregator
	Heatmap     *heatmap.Simulator
	Health      *health.Prober
	Hub         *ws.Hub
	CORSOrigins []string
}

// Handler serves every API route.
type Handler struct {
	Deps
}

// NewHandler creates a handler over deps.
func NewHandler(deps Deps) *Handler {
	return &Handler{Deps: deps}
}

// respondDomainError maps component errors onto HTTP responses.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, camera.ErrCameraNotFound):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Camera not found", err)
	case errors.Is(err, placement.ErrSessionInactive):
		respondError(w, r, http.StatusConflict, "SESSION_INACTIVE", "No placement session is active", err)
	case errors.Is(err, placement.ErrSessionActive):
		respondError(w, r, http.StatusConflict, "SESSION_ACTIVE", "A placement session is already active", err)
	case errors.Is(err, placement.ErrEmptyCommit):
		respondError(w, r, http.StatusUnprocessableEntity, "EMPTY_COMMIT", placement.EmptyCommitWarning, nil)
	case errors.Is(err, viewport.ErrUnknownSurface):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Unknown map surface", err)
	case errors.Is(err, heatmap.ErrUnknownMode):
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown display mode", err)
	case errors.Is(err, detection.ErrMalformedEvent):
		respondError(w, r, http.StatusBadRequest, "MALFORMED_EVENT", "Detection payload is malformed", err)
	case errors.Is(err, coverage.ErrNoCameras):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "No coverage has been computed", err)
	default:
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}
