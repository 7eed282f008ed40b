// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package api

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/deskatlas/internal/auth"
	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/websocket"
)

// WSHandler upgrades connections into department-room subscribers.
type WSHandler struct {
	hub      *websocket.Hub
	upgrader gorilla.Upgrader
}

// NewWSHandler builds the websocket endpoint. Allowed origins mirror
// the CORS configuration; an empty list admits only same-origin
// clients.
func NewWSHandler(hub *websocket.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Subscribe upgrades the request and registers the client in its
// department room. The hub sends the status snapshot before any live
// delta, so a freshly connected client never renders from deltas alone.
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	departmentID := r.URL.Query().Get("department_id")
	if departmentID == "" {
		respondError(w, r, http.StatusBadRequest, "MISSING_DEPARTMENT", "department_id is required", nil)
		return
	}
	subjectID, _ := auth.SubjectFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, departmentID, subjectID)
	h.hub.Register <- client
	client.Start()
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil // gorilla's default: same-origin only
	}
	set := make(map[string]bool, len(allowed))
	wildcard := false
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		if wildcard {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return set[origin]
	}
}
