// Vandalwatch - MediaWiki Vandalism Level Monitor
// Copyright 2026 Vandalwatch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vandalwatch/vandalwatch

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vandalwatch/vandalwatch/internal/logging"
)

// Router builds the daemon HTTP handler.
type Router struct {
	store *StatusStore
}

// NewRouter creates a router serving snapshots from the given store.
func NewRouter(store *StatusStore) *Router {
	return &Router{store: store}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))

	// Permissive limit: the surface is read-only and cheap, this only
	// guards against runaway scrapers.
	r.Use(httprate.LimitByIP(600, time.Minute))

	r.Get("/healthz", router.health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/v1/status", router.status)

	return r
}

func (router *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// status returns the result of the most recent monitoring run, or 503
// if no run has completed since startup.
func (router *Router) status(w http.ResponseWriter, _ *http.Request) {
	latest := router.store.Latest()
	if latest == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "no monitoring run has completed yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// writeJSON writes a JSON response with proper headers.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
