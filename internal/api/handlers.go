// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package api exposes the HTTP surface: heartbeat ingest, department
// status snapshots, employee locate, the live websocket feed, and
// health probes.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/deskatlas/internal/auth"
	"github.com/tomtom215/deskatlas/internal/directory"
	"github.com/tomtom215/deskatlas/internal/locate"
	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/models"
	"github.com/tomtom215/deskatlas/internal/presence"
)

// Ingestor is the heartbeat entry point.
type Ingestor interface {
	Record(ctx context.Context, subjectID string, clientTS time.Time) error
}

// StatusProvider serves department status snapshots.
type StatusProvider interface {
	DepartmentStatus(ctx context.Context, departmentID string) ([]models.DeskStatus, error)
}

// Handler implements the HTTP endpoints.
type Handler struct {
	ingest     Ingestor
	aggregator StatusProvider
	locator    *locate.Service
	dir        directory.Directory
}

// NewHandler wires the endpoint dependencies.
func NewHandler(ingest Ingestor, aggregator StatusProvider, locator *locate.Service, dir directory.Directory) *Handler {
	return &Handler{
		ingest:     ingest,
		aggregator: aggregator,
		locator:    locator,
		dir:        dir,
	}
}

// HeartbeatRequest is the heartbeat POST body. The client timestamp is
// advisory only; server receipt time drives all staleness decisions.
type HeartbeatRequest struct {
	SubjectID       string    `json:"subject_id"`
	ClientTimestamp time.Time `json:"client_timestamp,omitempty"`
}

// Heartbeat records one presence heartbeat for the authenticated
// subject.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req HeartbeatRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_BODY", "malformed heartbeat body", err)
		return
	}
	if req.SubjectID == "" {
		respondError(w, r, http.StatusBadRequest, "MISSING_SUBJECT", "subject_id is required", nil)
		return
	}

	err := h.ingest.Record(r.Context(), req.SubjectID, req.ClientTimestamp)
	switch {
	case err == nil:
		respondData(w, http.StatusOK, map[string]string{"result": "recorded"}, 0)
	case errors.Is(err, presence.ErrAuthRequired):
		respondError(w, r, http.StatusUnauthorized, "AUTH_REQUIRED", "authentication required", nil)
	case errors.Is(err, auth.ErrSubjectMismatch):
		respondError(w, r, http.StatusForbidden, "SUBJECT_MISMATCH", "token does not match subject", nil)
	case errors.Is(err, presence.ErrRateLimited):
		respondError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "heartbeat rate exceeded", nil)
	default:
		respondError(w, r, http.StatusInternalServerError, "INGEST_FAILED", "failed to record heartbeat", err)
	}
}

// DepartmentStatus returns the full status snapshot for one department.
func (h *Handler) DepartmentStatus(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "departmentID")
	start := time.Now()
	statuses, err := h.aggregator.DepartmentStatus(r.Context(), departmentID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "STATUS_FAILED", "failed to build department status", err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"department_id": departmentID,
		"desks":         statuses,
	}, time.Since(start))
}

// Departments lists known departments.
func (h *Handler) Departments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	departments, err := h.dir.Departments(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DIRECTORY_FAILED", "failed to list departments", err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"departments": departments}, time.Since(start))
}

// DepartmentMap returns the published floor-plan asset.
func (h *Handler) DepartmentMap(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "departmentID")
	start := time.Now()
	asset, err := h.dir.DepartmentMapAsset(r.Context(), departmentID)
	if errors.Is(err, directory.ErrNoPublishedMap) {
		respondError(w, r, http.StatusNotFound, "NO_PUBLISHED_MAP", "department has no published floor plan", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DIRECTORY_FAILED", "failed to load floor plan", err)
		return
	}
	respondData(w, http.StatusOK, asset, time.Since(start))
}

// Locate resolves an employee name to a desk location.
func (h *Handler) Locate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	start := time.Now()
	resolution, err := h.locator.Resolve(r.Context(), query)
	if errors.Is(err, locate.ErrEmptyQuery) {
		respondError(w, r, http.StatusBadRequest, "EMPTY_QUERY", "query parameter q is required", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "LOCATE_FAILED", "failed to resolve query", err)
		return
	}

	status := http.StatusOK
	if resolution.Outcome == locate.OutcomeNotFound {
		status = http.StatusNotFound
	}
	respondData(w, status, resolution, time.Since(start))
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"}, 0)
}

// HealthReady reports whether the directory is reachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.dir.Departments(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("readiness probe failed")
		respondError(w, r, http.StatusServiceUnavailable, "NOT_READY", "directory unavailable", nil)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"}, 0)
}
