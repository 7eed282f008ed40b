// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/deskatlas/internal/models"
)

func newTestEvaluator(clock Clock, store Store, desks *fakeDesks, pub *capturePublisher) *Evaluator {
	return NewEvaluator(store, desks, pub, nil, clock, EvaluatorConfig{
		OfflineThreshold: 6 * time.Minute,
		SweepInterval:    time.Minute,
	})
}

func TestSweepFlipsStaleSubjectOffline(t *testing.T) {
	// Spec scenario: heartbeat at t=0 with a 360s threshold. At t=100
	// the subject reads Online; a sweep at t=400 flips it Offline.
	clock := newFakeClock()
	store := NewMemoryStore()
	pub := &capturePublisher{}
	desks := &fakeDesks{desks: deskFor("emp-1", "D7", "engineering")}
	ev := newTestEvaluator(clock, store, desks, pub)

	store.Touch("emp-1", clock.Now().UnixNano())

	clock.Advance(100 * time.Second)
	ev.Sweep(context.Background())
	if subj, _ := store.Get("emp-1"); subj.State != models.StateOnline {
		t.Fatal("subject must still be online at t=100")
	}

	clock.Advance(300 * time.Second) // t=400
	ev.Sweep(context.Background())
	if subj, _ := store.Get("emp-1"); subj.State != models.StateOffline {
		t.Fatal("subject must be offline after sweep at t=400")
	}

	deltas := pub.published()
	if len(deltas) != 1 {
		t.Fatalf("published %d deltas, want 1", len(deltas))
	}
	if deltas[0].State != models.StateOffline || deltas[0].DeskID != "D7" {
		t.Errorf("unexpected offline delta: %+v", deltas[0])
	}
}

func TestSweepSparesFreshSubjects(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	pub := &capturePublisher{}
	ev := newTestEvaluator(clock, store, &fakeDesks{}, pub)

	store.Touch("emp-1", clock.Now().UnixNano())
	clock.Advance(5 * time.Minute) // below the 6m threshold
	ev.Sweep(context.Background())

	if subj, _ := store.Get("emp-1"); subj.State != models.StateOnline {
		t.Error("fresh subject must stay online")
	}
	if len(pub.published()) != 0 {
		t.Error("no delta expected for fresh subject")
	}
}

func TestSweepThresholdBoundary(t *testing.T) {
	// Offline requires the gap to strictly exceed the threshold. A
	// subject whose gap equals it exactly stays Online; one nanosecond
	// more flips it.
	clock := newFakeClock()
	store := NewMemoryStore()
	pub := &capturePublisher{}
	desks := &fakeDesks{desks: deskFor("emp-1", "D7", "engineering")}
	ev := newTestEvaluator(clock, store, desks, pub)

	store.Touch("emp-1", clock.Now().UnixNano())

	clock.Advance(6 * time.Minute)
	ev.Sweep(context.Background())
	if subj, _ := store.Get("emp-1"); subj.State != models.StateOnline {
		t.Fatal("subject at exactly the threshold must stay online")
	}
	if len(pub.published()) != 0 {
		t.Fatal("no delta expected at the threshold boundary")
	}

	clock.Advance(time.Nanosecond)
	ev.Sweep(context.Background())
	if subj, _ := store.Get("emp-1"); subj.State != models.StateOffline {
		t.Fatal("subject past the threshold must flip offline")
	}
	if len(pub.published()) != 1 {
		t.Fatalf("published %d deltas, want 1", len(pub.published()))
	}
}

func TestSweepLosesToConcurrentHeartbeat(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	pub := &capturePublisher{}
	desks := &fakeDesks{desks: deskFor("emp-1", "D7", "engineering")}
	ev := newTestEvaluator(clock, store, desks, pub)

	store.Touch("emp-1", clock.Now().UnixNano())
	clock.Advance(10 * time.Minute)

	// Simulate a heartbeat landing after the sweep snapshots the online
	// set but before it applies the transition: wrap the store so Touch
	// happens inside OnlineSubjects.
	racing := &racingStore{MemoryStore: store, touchAt: clock.Now().UnixNano()}
	evRacing := newTestEvaluator(clock, racing, desks, pub)
	evRacing.Sweep(context.Background())

	if subj, _ := store.Get("emp-1"); subj.State != models.StateOnline {
		t.Error("heartbeat arriving mid-sweep must win")
	}
	if len(pub.published()) != 0 {
		t.Error("no offline delta may be published for a subject that heartbeated mid-sweep")
	}
	_ = ev
}

// racingStore injects a Touch between the sweep's snapshot and its CAS.
type racingStore struct {
	*MemoryStore
	touchAt int64
	touched bool
}

func (r *racingStore) OnlineSubjects() []models.Subject {
	snapshot := r.MemoryStore.OnlineSubjects()
	if !r.touched {
		r.touched = true
		r.MemoryStore.Touch("emp-1", r.touchAt)
	}
	return snapshot
}

func TestSweepFailureIsolation(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	pub := &capturePublisher{}
	// Desk lookups fail for every subject, but the sweep must still
	// transition all stale subjects.
	ev := newTestEvaluator(clock, store, &fakeDesks{err: errors.New("directory down")}, pub)

	store.Touch("emp-1", clock.Now().UnixNano())
	store.Touch("emp-2", clock.Now().UnixNano())
	clock.Advance(10 * time.Minute)
	ev.Sweep(context.Background())

	for _, id := range []string{"emp-1", "emp-2"} {
		if subj, _ := store.Get(id); subj.State != models.StateOffline {
			t.Errorf("%s should be offline despite desk lookup errors", id)
		}
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore()
	ev := NewEvaluator(store, &fakeDesks{}, &capturePublisher{}, nil, clock, EvaluatorConfig{
		OfflineThreshold: 6 * time.Minute,
		SweepInterval:    10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ev.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop after context cancel")
	}
}
