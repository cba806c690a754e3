// Vigilmap - Camera Coverage and Live Detection Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigilmap

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/vigilmap/internal/middleware"
)

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	CORSOrigins []string
	// RateLimit is requests per minute per client IP. Zero disables limiting.
	RateLimit int
}

func rateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(perMinute, time.Minute)
}

// securityHeaders sets the response headers every API response carries.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// NewRouter builds the chi router for h.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	// CORS is global so OPTIONS preflight reaches it.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         86400,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(cfg.RateLimit))
		r.Use(securityHeaders)
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", h.Health)
		r.Get("/ws", h.WebSocket)

		r.Get("/cameras", h.ListCameras)
		r.Get("/cameras/{id}/fov.geojson", h.CameraFOVGeoJSON)

		r.Route("/placement", func(r chi.Router) {
			r.Get("/", h.PlacementStatus)
			r.Post("/begin", h.BeginPlacement)
			r.Post("/click", h.PlacementClick)
			r.Post("/key", h.PlacementKey)
			r.Post("/commit", h.CommitPlacement)
			r.Post("/cancel", h.CancelPlacement)
			r.Route("/cameras/{id}", func(r chi.Router) {
				r.Put("/", h.UpdateCamera)
				r.Delete("/", h.RemoveCamera)
				r.Post("/drag-start", h.DragStart)
				r.Post("/drag-end", h.DragEnd)
				r.Post("/controls", h.ToggleControls)
			})
		})

		r.Get("/coverage", h.Coverage)
		r.Get("/coverage.geojson", h.CoverageGeoJSON)

		r.Route("/viewport", func(r chi.Router) {
			r.Get("/", h.Viewport)
			r.Post("/fit", h.FitViewport)
			r.Post("/{surface}/pan", h.PanViewport)
			r.Post("/{surface}/zoom", h.ZoomViewport)
		})

		r.Route("/detections", func(r chi.Router) {
			r.Get("/", h.Detections)
			r.Post("/", h.IngestDetection)
			r.Get("/history", h.DetectionHistory)
			r.Get("/distribution", h.DetectionDistribution)
		})

		r.Get("/heatmap", h.Heatmap)
		r.Put("/heatmap/mode", h.SetHeatmapMode)
		r.Get("/crowd", h.Crowd)
	})

	return r
}
