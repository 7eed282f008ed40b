// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/deskatlas/internal/config"
	"github.com/tomtom215/deskatlas/internal/middleware"
)

// Router assembles the HTTP surface.
type Router struct {
	cfg      *config.Config
	handler  *Handler
	ws       *WSHandler
	verifier middleware.TokenVerifier
}

// NewRouter builds the router over the wired handlers.
func NewRouter(cfg *config.Config, handler *Handler, ws *WSHandler, verifier middleware.TokenVerifier) *Router {
	return &Router{cfg: cfg, handler: handler, ws: ws, verifier: verifier}
}

// Setup returns the complete handler tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health probes stay outside auth so orchestrators can reach them,
	// with a permissive per-IP limit against abuse.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, rt.rateWindow()))
		r.Get("/live", rt.handler.HealthLive)
		r.Get("/ready", rt.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		if !rt.cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(rt.cfg.Security.RateLimitReqs, rt.rateWindow()))
		}
		r.Use(middleware.Prometheus)
		r.Use(middleware.Authenticate(rt.verifier))

		r.Post("/heartbeat", rt.handler.Heartbeat)
		r.Get("/departments", rt.handler.Departments)
		r.Get("/departments/{departmentID}/status", rt.handler.DepartmentStatus)
		r.Get("/departments/{departmentID}/map", rt.handler.DepartmentMap)
		r.Get("/locate", rt.handler.Locate)
		r.Get("/ws", rt.ws.Subscribe)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (rt *Router) rateWindow() time.Duration {
	if rt.cfg.Security.RateLimitWindow > 0 {
		return rt.cfg.Security.RateLimitWindow
	}
	return time.Minute
}
