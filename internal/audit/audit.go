// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package audit keeps a durable trail of presence transitions. Writes
// are buffered and asynchronous so the heartbeat hot path never waits
// on disk; entries expire with the configured retention.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/models"
)

// TransitionEvent is one recorded presence change.
type TransitionEvent struct {
	ID        string           `json:"id"`
	SubjectID string           `json:"subject_id"`
	DeskID    string           `json:"desk_id,omitempty"`
	From      models.DeskState `json:"from"`
	To        models.DeskState `json:"to"`
	At        time.Time        `json:"at"`
}

// Store persists transition events.
type Store interface {
	Save(event TransitionEvent) error
	// SubjectEvents returns a subject's events, newest first.
	SubjectEvents(subjectID string, limit int) ([]TransitionEvent, error)
	Close() error
}

// DefaultBufferSize is the async write buffer depth.
const DefaultBufferSize = 1024

// Trail buffers transition events and writes them in the background.
type Trail struct {
	store  Store
	events chan TransitionEvent

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewTrail starts the async writer over the given store.
func NewTrail(store Store) *Trail {
	t := &Trail{
		store:  store,
		events: make(chan TransitionEvent, DefaultBufferSize),
		done:   make(chan struct{}),
	}
	go t.writer()
	return t
}

// Record queues one transition event. Never blocks; when the buffer is
// full the event is dropped with a warning rather than stalling ingest.
func (t *Trail) Record(event TransitionEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	select {
	case t.events <- event:
	default:
		logging.Warn().
			Str("subject_id", event.SubjectID).
			Msg("audit buffer full, dropping transition event")
	}
	t.mu.Unlock()
}

// Close drains the buffer and closes the store.
func (t *Trail) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.events)
	t.mu.Unlock()

	<-t.done
	if err := t.store.Close(); err != nil {
		return fmt.Errorf("closing audit store: %w", err)
	}
	return nil
}

func (t *Trail) writer() {
	defer close(t.done)
	for event := range t.events {
		if err := t.store.Save(event); err != nil {
			logging.Error().Err(err).
				Str("subject_id", event.SubjectID).
				Msg("saving audit event")
		}
	}
}
