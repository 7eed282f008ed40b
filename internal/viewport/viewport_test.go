// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package viewport

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// manualClock fires scheduled callbacks only when advanced, so timed
// transitions are asserted without sleeping.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward and fires all timers that come due,
// in schedule order. Callbacks run without the clock lock held so they
// may schedule further timers.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	for {
		var due *manualTimer
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at.Before(c.timers[j].at) })
		for _, t := range c.timers {
			if !t.fired && !t.stopped && !t.at.After(c.now) {
				due = t
				t.fired = true
				break
			}
		}
		c.mu.Unlock()
		if due == nil {
			return
		}
		due.fn()
	}
}

// fakeDirectory is an in-memory Loader with per-call failure switches.
type fakeDirectory struct {
	mu            sync.Mutex
	assets        map[string]models.MapAsset
	desks         map[string][]models.Desk
	statuses      map[string][]models.DeskStatus
	assetErr      error
	statusErr     error
	statusCalls   int
	assetCalls    int
	statusBlockFn func(ctx context.Context) error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		assets:   make(map[string]models.MapAsset),
		desks:    make(map[string][]models.Desk),
		statuses: make(map[string][]models.DeskStatus),
	}
}

func (f *fakeDirectory) addDepartment(id string, w, h float64, desks ...models.Desk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[id] = models.MapAsset{
		MapID:        "map-" + id,
		DepartmentID: id,
		Type:         models.MapAssetVector,
		URL:          "/maps/" + id + ".svg",
		Width:        w,
		Height:       h,
	}
	f.desks[id] = desks
	statuses := make([]models.DeskStatus, 0, len(desks))
	for _, d := range desks {
		statuses = append(statuses, models.DeskStatus{DeskID: d.ID, State: models.StateOffline})
	}
	f.statuses[id] = statuses
}

func (f *fakeDirectory) statusCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

func (f *fakeDirectory) setStatuses(id string, statuses []models.DeskStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = statuses
}

func (f *fakeDirectory) DepartmentMapAsset(_ context.Context, id string) (models.MapAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assetCalls++
	if f.assetErr != nil {
		return models.MapAsset{}, f.assetErr
	}
	a, ok := f.assets[id]
	if !ok {
		return models.MapAsset{}, errors.New("no such department")
	}
	return a, nil
}

func (f *fakeDirectory) DepartmentDesks(_ context.Context, id string) ([]models.Desk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.desks[id], nil
}

func (f *fakeDirectory) DepartmentStatus(ctx context.Context, id string) ([]models.DeskStatus, error) {
	f.mu.Lock()
	blockFn := f.statusBlockFn
	f.statusCalls++
	if f.statusErr != nil {
		err := f.statusErr
		f.mu.Unlock()
		return nil, err
	}
	out := append([]models.DeskStatus(nil), f.statuses[id]...)
	f.mu.Unlock()
	if blockFn != nil {
		if err := blockFn(ctx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func testConfig() Config {
	return Config{
		ZoomMin:          0.75,
		ZoomMax:          2.0,
		LODThreshold:     1.0,
		FocusDuration:    1500 * time.Millisecond,
		PulseDuration:    1500 * time.Millisecond,
		BatchWindow:      200 * time.Millisecond,
		LoadTimeout:      10 * time.Second,
		ReconnectInitial: time.Second,
		ReconnectCap:     5 * time.Minute,
	}
}

func desk(id, dept string, x, y float64) models.Desk {
	return models.Desk{ID: id, DepartmentID: dept, X: x, Y: y, Width: 20, Height: 10, Label: id}
}
