// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/vigilmap/internal/camera"
	"github.com/tomtom215/vigilmap/internal/fov"
	"github.com/tomtom215/vigilmap/internal/geo"
)

type pointRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

// updateCameraRequest edits pose. Radius is clamped rather than rejected.
type updateCameraRequest struct {
	Direction *float64 `json:"direction"`
	FOVRadius *float64 `json:"fov_radius"`
}

type keyRequest struct {
	Key string `json:"key" validate:"required"`
}

// cameraView is a camera with its derived FOV and editor state.
type cameraView struct {
	camera.Camera
	FOV             []geo.LatLng `json:"fov"`
	Dragging        bool         `json:"is_dragging"`
	ControlsVisible bool         `json:"controls_visible"`
}

func (h *Handler) cameraViews() []cameraView {
	tris := h.Session.Triangles()
	byID := make(map[string]fov.Triangle, len(tris))
	for _, t := range tris {
		byID[t.CameraID] = t
	}
	cams := h.Registry.List()
	out := make([]cameraView, len(cams))
	for i, c := range cams {
		tri := byID[c.ID]
		out[i] = cameraView{
			Camera:          c,
			FOV:             tri.Vertices,
			Dragging:        tri.Dragging,
			ControlsVisible: h.Session.ControlsVisible(c.ID),
		}
	}
	return out
}

func (h *Handler) ListCameras(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, h.cameraViews())
}

func (h *Handler) CameraFOVGeoJSON(w http.ResponseWriter, r *http.Request) {
	cam, err := h.Registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	data, err := fov.GeoJSON(&cam)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondGeoJSON(w, data)
}

func (h *Handler) PlacementStatus(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, h.Session.Status())
}

func (h *Handler) BeginPlacement(w http.ResponseWriter, r *http.Request) {
	st, err := h.Session.Begin()
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, st)
}

func (h *Handler) PlacementClick(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	cam, err := h.Session.Click(*req.Lat, *req.Lng)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, success(cam))
}

func (h *Handler) DragStart(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.DragStart(chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DragEnd(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	cam, err := h.Session.DragEnd(chi.URLParam(r, "id"), *req.Lat, *req.Lng)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, cam)
}

func (h *Handler) UpdateCamera(w http.ResponseWriter, r *http.Request) {
	var req updateCameraRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Direction == nil && req.FOVRadius == nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "direction or fov_radius is required", nil)
		return
	}

	cam, err := h.Session.UpdatePose(chi.URLParam(r, "id"), req.Direction, req.FOVRadius)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, cam)
}

func (h *Handler) RemoveCamera(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Remove(chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ToggleControls(w http.ResponseWriter, r *http.Request) {
	visible, err := h.Session.ToggleControls(chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, map[string]bool{"controls_visible": visible})
}

func (h *Handler) PlacementKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	handled, err := h.Session.HandleKey(r.Context(), req.Key)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, map[string]interface{}{
		"handled": handled,
		"session": h.Session.Status(),
	})
}

func (h *Handler) CommitPlacement(w http.ResponseWriter, r *http.Request) {
	res, err := h.Session.Commit(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, res)
}

func (h *Handler) CancelPlacement(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Cancel(r.Context()); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, h.Session.Status())
}
