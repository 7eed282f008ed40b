// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package presence implements the presence core: the keyed last-seen
// store, heartbeat ingest, the staleness evaluator, and the department
// status aggregator.
//
// The store is deliberately memory-only. Presence carries no durability
// requirement: after a cold restart every subject reads Offline until
// its next heartbeat arrives, which is documented behavior rather than
// a defect.
package presence

import (
	"sync"

	"github.com/tomtom215/deskatlas/internal/models"
)

// Store is the single shared mutable resource of the presence core.
// All writers go through per-subject atomic read-modify-write: Touch for
// the ingest path (the only path to Online) and MarkOffline for the
// evaluator (the only path to Offline). Subjects are independent; no
// cross-subject ordering is provided.
type Store interface {
	// Touch records a heartbeat receipt at ts (unix nanos), creating the
	// subject on first contact. last_seen never moves backward: a ts at
	// or before the stored value refreshes nothing. Returns the updated
	// subject and whether this call transitioned it to Online.
	Touch(subjectID string, ts int64) (models.Subject, bool)

	// Get returns the subject, if it has ever been seen.
	Get(subjectID string) (models.Subject, bool)

	// BatchGet returns the present subset of the requested subjects in
	// a single pass, for O(n) status aggregation.
	BatchGet(subjectIDs []string) map[string]models.Subject

	// OnlineSubjects returns a point-in-time snapshot of all subjects
	// currently classified Online.
	OnlineSubjects() []models.Subject

	// MarkOffline transitions the subject to Offline only if its
	// last_seen still equals observedLastSeen. A heartbeat that raced
	// the sweep bumps last_seen first, the compare fails, and the
	// subject stays Online - the heartbeat wins.
	MarkOffline(subjectID string, observedLastSeen int64) bool
}

type subjectEntry struct {
	mu       sync.Mutex
	lastSeen int64
	state    models.DeskState
}

// MemoryStore is the in-memory Store implementation. The outer map is
// guarded by an RWMutex; mutation of an individual subject happens under
// that subject's own lock, so a sweep never blocks ingest for an
// unrelated subject and the read-modify-write is atomic per subject.
type MemoryStore struct {
	mu       sync.RWMutex
	subjects map[string]*subjectEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subjects: make(map[string]*subjectEntry)}
}

func (s *MemoryStore) entry(subjectID string, create bool) *subjectEntry {
	s.mu.RLock()
	e := s.subjects[subjectID]
	s.mu.RUnlock()
	if e != nil || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e = s.subjects[subjectID]; e == nil {
		e = &subjectEntry{state: models.StateOffline}
		s.subjects[subjectID] = e
	}
	return e
}

// Touch implements Store.
func (s *MemoryStore) Touch(subjectID string, ts int64) (models.Subject, bool) {
	e := s.entry(subjectID, true)

	e.mu.Lock()
	defer e.mu.Unlock()

	if ts > e.lastSeen {
		e.lastSeen = ts
	}
	cameOnline := e.state != models.StateOnline
	e.state = models.StateOnline

	return models.Subject{ID: subjectID, LastSeen: e.lastSeen, State: e.state}, cameOnline
}

// Get implements Store.
func (s *MemoryStore) Get(subjectID string) (models.Subject, bool) {
	e := s.entry(subjectID, false)
	if e == nil {
		return models.Subject{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return models.Subject{ID: subjectID, LastSeen: e.lastSeen, State: e.state}, true
}

// BatchGet implements Store.
func (s *MemoryStore) BatchGet(subjectIDs []string) map[string]models.Subject {
	out := make(map[string]models.Subject, len(subjectIDs))
	for _, id := range subjectIDs {
		if subj, ok := s.Get(id); ok {
			out[id] = subj
		}
	}
	return out
}

// OnlineSubjects implements Store.
func (s *MemoryStore) OnlineSubjects() []models.Subject {
	s.mu.RLock()
	ids := make([]string, 0, len(s.subjects))
	for id := range s.subjects {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	online := make([]models.Subject, 0, len(ids))
	for _, id := range ids {
		if subj, ok := s.Get(id); ok && subj.State == models.StateOnline {
			online = append(online, subj)
		}
	}
	return online
}

// MarkOffline implements Store.
func (s *MemoryStore) MarkOffline(subjectID string, observedLastSeen int64) bool {
	e := s.entry(subjectID, false)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastSeen != observedLastSeen || e.state != models.StateOnline {
		return false
	}
	e.state = models.StateOffline
	return true
}
