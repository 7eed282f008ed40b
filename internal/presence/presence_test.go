// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package presence

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// fakeClock is a manually advanced clock so staleness tests never sleep.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeAuth authorizes every subject except those in denied, rejecting
// them with err (ErrAuthRequired when unset).
type fakeAuth struct {
	denied map[string]bool
	err    error
}

func (a *fakeAuth) AuthorizeSubject(_ context.Context, subjectID string) error {
	if !a.denied[subjectID] {
		return nil
	}
	if a.err != nil {
		return a.err
	}
	return ErrAuthRequired
}

// fakeDesks resolves employee desks from a static map.
type fakeDesks struct {
	desks map[string]models.Desk
	err   error
}

func (d *fakeDesks) EmployeeDesk(_ context.Context, employeeID string) (models.Desk, bool, error) {
	if d.err != nil {
		return models.Desk{}, false, d.err
	}
	desk, ok := d.desks[employeeID]
	return desk, ok, nil
}

// capturePublisher records every published delta.
type capturePublisher struct {
	mu     sync.Mutex
	deltas []models.PresenceDelta
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, delta models.PresenceDelta) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deltas = append(p.deltas, delta)
	return nil
}

func (p *capturePublisher) published() []models.PresenceDelta {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.PresenceDelta, len(p.deltas))
	copy(out, p.deltas)
	return out
}

type recordedTransition struct {
	subjectID string
	deskID    string
	from, to  models.DeskState
}

// captureRecorder records audit transitions.
type captureRecorder struct {
	mu          sync.Mutex
	transitions []recordedTransition
}

func (r *captureRecorder) RecordTransition(_ context.Context, subjectID, deskID string, from, to models.DeskState, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, recordedTransition{subjectID, deskID, from, to})
}

func deskFor(employeeID, deskID, departmentID string) map[string]models.Desk {
	return map[string]models.Desk{
		employeeID: {ID: deskID, DepartmentID: departmentID, X: 10, Y: 20, Width: 4, Height: 2, Label: deskID},
	}
}
