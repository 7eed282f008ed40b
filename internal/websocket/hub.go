// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package websocket maintains the per-department broadcast rooms that
// push presence deltas to connected map viewers.
//
// Every client joins exactly one department room. On registration the
// hub sends the client a full status snapshot before any delta
// (catch-up-then-stream): deltas broadcast while the snapshot is being
// fetched are buffered on the client and flushed only after the
// snapshot, so the client never observes a status older than a delta
// it already saw.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/metrics"
	"github.com/tomtom215/deskatlas/internal/models"
)

// Message types for WebSocket communication.
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypeDelta    = "delta"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
	MessageTypeError    = "error"
)

// Message is the envelope for all WebSocket traffic.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SnapshotProvider computes the full current status of a department,
// satisfied by the presence aggregator.
type SnapshotProvider interface {
	DepartmentStatus(ctx context.Context, departmentID string) ([]models.DeskStatus, error)
}

// DeltaSource is the subscription side of the change notifier.
type DeltaSource interface {
	Subscribe(ctx context.Context, departmentID string) (<-chan models.PresenceDelta, error)
}

// Hub maintains the set of active clients grouped by department and
// broadcasts presence deltas to each room in publish order.
type Hub struct {
	snapshots SnapshotProvider
	deltas    DeltaSource

	Register   chan *Client
	Unregister chan *Client
	forward    chan models.PresenceDelta

	mu      sync.RWMutex
	rooms   map[string]map[*Client]bool
	cancels map[string]context.CancelFunc
}

// NewHub creates a hub. Both dependencies are required.
func NewHub(snapshots SnapshotProvider, deltas DeltaSource) *Hub {
	return &Hub{
		snapshots:  snapshots,
		deltas:     deltas,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		forward:    make(chan models.PresenceDelta, 256),
		rooms:      make(map[string]map[*Client]bool),
		cancels:    make(map[string]context.CancelFunc),
	}
}

// RunWithContext processes client lifecycle events and delta broadcasts
// until the context is canceled, then closes every client. It
// implements the suture.Service pattern.
//
// Lifecycle events take priority over broadcasts so that the room
// membership is always consistent before a delta fans out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.shutdown()

	for {
		// Priority 1: lifecycle events (non-blocking check).
		select {
		case client := <-h.Register:
			h.register(ctx, client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		// Priority 2: broadcasts and shutdown (blocking wait).
		select {
		case client := <-h.Register:
			h.register(ctx, client)
		case client := <-h.Unregister:
			h.unregister(client)
		case delta := <-h.forward:
			h.broadcast(delta)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Hub) register(ctx context.Context, client *Client) {
	h.mu.Lock()
	room := h.rooms[client.department]
	if room == nil {
		room = make(map[*Client]bool)
		h.rooms[client.department] = room
	}
	room[client] = true
	size := len(room)
	first := size == 1
	h.mu.Unlock()

	metrics.WebSocketClients.Inc()
	logging.Info().
		Str("department", client.department).
		Int("room_size", size).
		Msg("websocket client connected")

	if first {
		h.startForwarder(ctx, client.department)
	}

	// Catch-up-then-stream: snapshot fetch happens off the hub loop so
	// a slow directory read cannot stall other rooms. The client is
	// already in the room, but enqueueDelta buffers anything broadcast
	// to it until catchUp has placed the snapshot ahead of the deltas.
	go h.sendSnapshot(ctx, client)
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	room := h.rooms[client.department]
	if room == nil || !room[client] {
		h.mu.Unlock()
		return
	}
	delete(room, client)
	empty := len(room) == 0
	if empty {
		delete(h.rooms, client.department)
	}
	cancel := h.cancels[client.department]
	if empty {
		delete(h.cancels, client.department)
	}
	h.mu.Unlock()

	client.closeSend()
	metrics.WebSocketClients.Dec()
	logging.Info().
		Str("department", client.department).
		Msg("websocket client disconnected")

	// No clients left: stop the department's delta forwarder. No
	// backlog is kept; a reconnecting client gets a fresh snapshot.
	if empty && cancel != nil {
		cancel()
	}
}

// startForwarder subscribes to the department's delta topic and feeds
// the hub's broadcast channel until the room empties.
func (h *Hub) startForwarder(ctx context.Context, departmentID string) {
	subCtx, cancel := context.WithCancel(ctx)

	stream, err := h.deltas.Subscribe(subCtx, departmentID)
	if err != nil {
		cancel()
		logging.Error().Err(err).
			Str("department", departmentID).
			Msg("delta subscription failed")
		return
	}

	h.mu.Lock()
	h.cancels[departmentID] = cancel
	h.mu.Unlock()

	go func() {
		for delta := range stream {
			select {
			case h.forward <- delta:
			case <-subCtx.Done():
				return
			}
		}
	}()
}

// sendSnapshot delivers the full department status to one client.
// Failure closes the connection; the client reconnects with backoff and
// retries the catch-up.
func (h *Hub) sendSnapshot(ctx context.Context, client *Client) {
	statuses, err := h.snapshots.DepartmentStatus(ctx, client.department)
	if err != nil {
		logging.Error().Err(err).
			Str("department", client.department).
			Msg("snapshot fetch failed, dropping client")
		client.trySend(Message{Type: MessageTypeError, Data: "snapshot unavailable"})
		h.drop(ctx, client)
		return
	}
	if !client.catchUp(Message{Type: MessageTypeSnapshot, Data: statuses}) {
		logging.Warn().
			Str("department", client.department).
			Msg("client buffer full during catch-up, dropping client")
		h.drop(ctx, client)
	}
}

func (h *Hub) drop(ctx context.Context, client *Client) {
	select {
	case h.Unregister <- client:
	case <-ctx.Done():
	}
}

// broadcast fans one delta out to its department room. Clients are
// walked in a deterministic order; a client whose buffer is full is
// dropped rather than allowed to stall the room.
func (h *Hub) broadcast(delta models.PresenceDelta) {
	h.mu.RLock()
	room := h.rooms[delta.DepartmentID]
	clients := make([]*Client, 0, len(room))
	for c := range room {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	msg := Message{Type: MessageTypeDelta, Data: delta}
	for _, client := range clients {
		if client.enqueueDelta(msg) {
			metrics.WebSocketMessagesSent.Inc()
			continue
		}
		metrics.WebSocketMessagesDropped.Inc()
		h.unregister(client)
	}
}

// shutdown closes every client and cancels every forwarder.
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for dept, room := range h.rooms {
		for client := range room {
			client.closeSend()
		}
		delete(h.rooms, dept)
	}
	for dept, cancel := range h.cancels {
		cancel()
		delete(h.cancels, dept)
	}
	logging.Info().Msg("websocket hub shut down")
}

// RoomSize reports the number of clients in a department room.
func (h *Hub) RoomSize(departmentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[departmentID])
}
