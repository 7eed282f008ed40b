// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/deskatlas/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB; clients only send ping frames
)

// clientIDCounter assigns unique, monotonically increasing IDs so
// broadcast order over a room is deterministic.
var clientIDCounter atomic.Uint64

// Client is the middleman between one websocket connection and the hub.
// Each client belongs to exactly one department room.
type Client struct {
	id         uint64
	hub        *Hub
	conn       *websocket.Conn
	department string
	subjectID  string

	mu       sync.Mutex
	closed   bool
	caughtUp bool
	pending  []Message
	send     chan Message
}

// NewClient creates a client for the given department room.
func NewClient(hub *Hub, conn *websocket.Conn, department, subjectID string) *Client {
	return &Client{
		id:         clientIDCounter.Add(1),
		hub:        hub,
		conn:       conn,
		department: department,
		subjectID:  subjectID,
		send:       make(chan Message, 256),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 { return c.id }

// Department returns the room this client belongs to.
func (c *Client) Department() string { return c.department }

// trySend enqueues a message without blocking. Returns false when the
// client's buffer is full or the channel is already closed.
func (c *Client) trySend(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// enqueueDelta delivers a delta to the client, holding it back until
// the catch-up snapshot has been enqueued. Deltas arriving before the
// snapshot are buffered and flushed after it, so the client never
// observes a status older than a delta it already saw. Returns false
// when the client is closed or its buffers are full.
func (c *Client) enqueueDelta(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if !c.caughtUp {
		if len(c.pending) >= cap(c.send) {
			return false
		}
		c.pending = append(c.pending, msg)
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// catchUp enqueues the snapshot followed by any deltas buffered while
// the snapshot was being fetched, then opens the live delta path.
// Replaying the buffered deltas after the snapshot is safe because
// every delta carries the desk's full new state. Returns false when
// the client is closed or its send buffer cannot hold the backlog.
func (c *Client) catchUp(snapshot Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	for _, msg := range append([]Message{snapshot}, c.pending...) {
		select {
		case c.send <- msg:
		default:
			return false
		}
	}
	c.pending = nil
	c.caughtUp = true
	return true
}

// closeSend closes the outbound channel exactly once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump pumps inbound frames (only pings are meaningful) and drives
// unregistration when the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close")
			}
			break
		}
		if msg.Type == MessageTypePing {
			c.trySend(Message{Type: MessageTypePong})
		}
	}
}

// writePump pumps hub messages to the websocket connection with
// keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logging.Error().Err(err).Msg("failed to write websocket message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
