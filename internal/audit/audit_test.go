// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package audit

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/deskatlas/internal/config"
	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// memoryStore collects saved events for assertions.
type memoryStore struct {
	mu     sync.Mutex
	events []TransitionEvent
	closed bool
}

func (s *memoryStore) Save(event TransitionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *memoryStore) SubjectEvents(subjectID string, limit int) ([]TransitionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TransitionEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].SubjectID == subjectID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestTrailWritesAsyncAndDrainsOnClose(t *testing.T) {
	store := &memoryStore{}
	trail := NewTrail(store)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		trail.Record(TransitionEvent{
			SubjectID: "emp-1",
			DeskID:    "D1",
			From:      models.StateOffline,
			To:        models.StateOnline,
			At:        at.Add(time.Duration(i) * time.Minute),
		})
	}
	if err := trail.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.events) != 5 {
		t.Fatalf("saved events = %d, want all 5 after drain", len(store.events))
	}
	if !store.closed {
		t.Error("store not closed")
	}
	for _, event := range store.events {
		if event.ID == "" {
			t.Error("event saved without generated ID")
		}
	}
}

func TestTrailRecordAfterCloseIsNoop(t *testing.T) {
	store := &memoryStore{}
	trail := NewTrail(store)
	if err := trail.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	trail.Record(TransitionEvent{SubjectID: "emp-1"})
	if err := trail.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.events) != 0 {
		t.Fatalf("events after close = %d, want 0", len(store.events))
	}
}

func TestRecorderFeedsTrail(t *testing.T) {
	store := &memoryStore{}
	trail := NewTrail(store)
	rec := NewRecorder(trail)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec.RecordTransition(context.Background(), "emp-1", "D1", models.StateOffline, models.StateOnline, at)
	rec.RecordTransition(context.Background(), "emp-1", "D1", models.StateOnline, models.StateOffline, at.Add(time.Hour))
	if err := trail.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events, err := store.SubjectEvents("emp-1", 10)
	if err != nil {
		t.Fatalf("SubjectEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].To != models.StateOffline || events[1].To != models.StateOnline {
		t.Errorf("newest-first ordering violated: %+v", events)
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store, err := NewBadgerStore(&config.AuditConfig{
		Enabled:   true,
		Path:      t.TempDir(),
		Retention: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := store.Save(TransitionEvent{
			ID:        uuidLike(i),
			SubjectID: "emp-1",
			DeskID:    "D1",
			From:      models.StateOffline,
			To:        models.StateOnline,
			At:        at.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := store.Save(TransitionEvent{
		ID: "other", SubjectID: "emp-2",
		From: models.StateOnline, To: models.StateOffline, At: at,
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	events, err := store.SubjectEvents("emp-1", 10)
	if err != nil {
		t.Fatalf("SubjectEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3 (other subjects excluded)", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].At.After(events[i-1].At) {
			t.Fatalf("events not newest-first: %+v", events)
		}
	}

	limited, err := store.SubjectEvents("emp-1", 2)
	if err != nil {
		t.Fatalf("SubjectEvents: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited events = %d, want 2", len(limited))
	}
}

func uuidLike(i int) string {
	return string(rune('a'+i)) + "0000000-0000-0000-0000-000000000000"
}
