// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/vigilmap/internal/coverage"
	"github.com/tomtom215/vigilmap/internal/geo"
	"github.com/tomtom215/vigilmap/internal/heatmap"
	"github.com/tomtom215/vigilmap/internal/logging"
	ws "github.com/tomtom215/vigilmap/internal/websocket"
)

// SourceHTTP labels detections posted to the API.
const SourceHTTP = "http"

type panRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

type zoomRequest struct {
	Zoom *int `json:"zoom" validate:"required"`
}

type modeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=markers heatmap"`
}

type healthResponse struct {
	Status      string    `json:"status"`
	Connected   bool      `json:"connected"`
	ModelLoaded bool      `json:"model_loaded"`
	CheckedAt   time.Time `json:"checked_at,omitempty"`
	Clients     int       `json:"ws_clients"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy"}
	if h.Deps.Health != nil {
		st := h.Deps.Health.Status()
		resp.Connected = st.Connected
		resp.ModelLoaded = st.ModelLoaded
		resp.CheckedAt = st.CheckedAt
	}
	if h.Hub != nil {
		resp.Clients = h.Hub.ClientCount()
	}
	respondOK(w, r, resp)
}

func (h *Handler) Coverage(w http.ResponseWriter, r *http.Request) {
	circle, ok := h.Deps.Coverage.Current()
	if !ok {
		respondDomainError(w, r, coverage.ErrNoCameras)
		return
	}
	respondOK(w, r, circle)
}

func (h *Handler) CoverageGeoJSON(w http.ResponseWriter, r *http.Request) {
	circle, ok := h.Deps.Coverage.Current()
	if !ok {
		respondDomainError(w, r, coverage.ErrNoCameras)
		return
	}
	data, err := circle.GeoJSON()
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondGeoJSON(w, data)
}

func (h *Handler) Viewport(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, h.Deps.Viewport.State())
}

func (h *Handler) FitViewport(w http.ResponseWriter, r *http.Request) {
	st, _ := h.Deps.Viewport.FitToCameras(h.Registry.List())
	respondOK(w, r, st)
}

func (h *Handler) PanViewport(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	st, err := h.Deps.Viewport.Pan(chi.URLParam(r, "surface"), geo.LatLng{Lat: *req.Lat, Lng: *req.Lng})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, st)
}

func (h *Handler) ZoomViewport(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	st, err := h.Deps.Viewport.Zoom(chi.URLParam(r, "surface"), *req.Zoom)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, st)
}

// IngestDetection feeds a posted payload through the same path as the
// stream sources.
func (h *Handler) IngestDetection(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Could not read request body", err)
		return
	}
	if err := h.Aggregator.HandlePayload(body, SourceHTTP); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) Detections(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, h.Aggregator.Snapshot())
}

func (h *Handler) DetectionHistory(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, h.Aggregator.History())
}

func (h *Handler) DetectionDistribution(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, h.Aggregator.Distribution())
}

func (h *Handler) Heatmap(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, map[string]interface{}{
		"mode":   h.Deps.Heatmap.Mode(),
		"points": h.Deps.Heatmap.Points(),
	})
}

func (h *Handler) SetHeatmapMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.Deps.Heatmap.SetMode(heatmap.Mode(req.Mode)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, map[string]interface{}{"mode": h.Deps.Heatmap.Mode()})
}

func (h *Handler) Crowd(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, h.Deps.Heatmap.Crowd())
}

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin admits requests without an Origin header (non-browser
// clients) and browser requests from a configured CORS origin.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}
	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	client := ws.NewClient(h.Hub, conn)
	h.Hub.Register <- client
	client.Start()
}
