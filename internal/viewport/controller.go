// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package viewport implements the client-side rendering state machine:
// department loading, pan/zoom camera, desk focus with pulse highlight,
// and batched application of live presence deltas.
package viewport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/models"
)

// State is the lifecycle phase of the viewport.
type State string

const (
	// StateIdle means no department is loaded or a load failed.
	StateIdle State = "idle"

	// StateLoading means floor plan and snapshot fetches are in flight.
	// Nothing is rendered until both resolve.
	StateLoading State = "loading"

	// StateReady means a department is rendered and live.
	StateReady State = "ready"

	// StateFocusing means the camera is animating toward a desk or the
	// desk pulse highlight is active. Deltas still apply.
	StateFocusing State = "focusing"
)

// Loader resolves the two inputs a department render needs: the published
// floor plan and the presence snapshot. Both must succeed before anything
// is drawn; a partial render of a plan without statuses is never shown.
type Loader interface {
	DepartmentMapAsset(ctx context.Context, departmentID string) (models.MapAsset, error)
	DepartmentStatus(ctx context.Context, departmentID string) ([]models.DeskStatus, error)
	DepartmentDesks(ctx context.Context, departmentID string) ([]models.Desk, error)
}

// Config carries the controller's timing and camera bounds.
type Config struct {
	ZoomMin          float64
	ZoomMax          float64
	LODThreshold     float64
	FocusDuration    time.Duration
	PulseDuration    time.Duration
	BatchWindow      time.Duration
	LoadTimeout      time.Duration
	ReconnectInitial time.Duration
	ReconnectCap     time.Duration
}

// Controller is the viewport state machine. All mutation goes through its
// methods; timed transitions (focus completion, pulse clear, batch flush)
// are scheduled on the injected Clock.
type Controller struct {
	cfg    Config
	clock  Clock
	loader Loader

	mu         sync.Mutex
	state      State
	department string
	asset      models.MapAsset
	desks      map[string]models.Desk
	statuses   map[string]models.DeskStatus
	transform  Transform
	focused    string
	pulsing    bool
	stale      bool

	pending    map[string]models.PresenceDelta
	flushTimer Timer
	focusTimer Timer
	pulseTimer Timer

	// renders counts committed frame updates. A batch of deltas lands as
	// one render, which is what keeps churny departments cheap to draw.
	renders int
}

// New returns an idle controller.
func New(cfg Config, loader Loader, clock Clock) *Controller {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Controller{
		cfg:     cfg,
		clock:   clock,
		loader:  loader,
		state:   StateIdle,
		pending: make(map[string]models.PresenceDelta),
	}
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Department returns the loaded department ID, empty when idle.
func (c *Controller) Department() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.department
}

// Transform returns the current camera.
func (c *Controller) Transform() Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transform
}

// Detail returns the rendering detail level for the current zoom.
func (c *Controller) Detail() DetailLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DetailFor(c.transform.Scale, c.cfg.LODThreshold)
}

// FocusedDesk returns the desk being focused and whether its pulse
// highlight is active.
func (c *Controller) FocusedDesk() (deskID string, pulsing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused, c.pulsing
}

// Stale reports whether the live channel has been down long enough that
// displayed presence may no longer be current.
func (c *Controller) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// Renders returns the number of committed frame updates.
func (c *Controller) Renders() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renders
}

// DeskStatuses returns a copy of the rendered status table.
func (c *Controller) DeskStatuses() map[string]models.DeskStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]models.DeskStatus, len(c.statuses))
	for id, s := range c.statuses {
		out[id] = s
	}
	return out
}

// Load switches the viewport to a department. It fetches the floor plan,
// the desk geometry, and the presence snapshot under the load timeout and
// renders only when all three resolve. On any failure the viewport returns
// to idle and the call reports ErrAssetUnavailable; the previous department,
// if any, is already torn down and cannot be partially shown.
func (c *Controller) Load(ctx context.Context, departmentID string) error {
	c.mu.Lock()
	if c.state == StateLoading {
		c.mu.Unlock()
		return ErrLoadInProgress
	}
	c.teardownLocked()
	c.state = StateLoading
	c.department = departmentID
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.LoadTimeout)
	defer cancel()

	asset, err := c.loader.DepartmentMapAsset(ctx, departmentID)
	if err != nil {
		return c.failLoad(departmentID, "map asset", err)
	}
	desks, err := c.loader.DepartmentDesks(ctx, departmentID)
	if err != nil {
		return c.failLoad(departmentID, "desks", err)
	}
	statuses, err := c.loader.DepartmentStatus(ctx, departmentID)
	if err != nil {
		return c.failLoad(departmentID, "status snapshot", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.department != departmentID || c.state != StateLoading {
		// A concurrent teardown or newer load superseded this one.
		return ErrAssetUnavailable
	}
	c.asset = asset
	c.desks = make(map[string]models.Desk, len(desks))
	for _, d := range desks {
		c.desks[d.ID] = d
	}
	c.statuses = make(map[string]models.DeskStatus, len(statuses))
	for _, s := range statuses {
		c.statuses[s.DeskID] = s
	}
	c.transform = ClampCenter(Transform{
		CenterX: asset.Width / 2,
		CenterY: asset.Height / 2,
		Scale:   ClampScale(1.0, c.cfg.ZoomMin, c.cfg.ZoomMax),
	}, c.bounds())
	c.state = StateReady
	c.renders++
	logging.Info().
		Str("department_id", departmentID).
		Int("desks", len(desks)).
		Str("map_id", asset.MapID).
		Msg("department rendered")
	return nil
}

func (c *Controller) failLoad(departmentID, what string, err error) error {
	c.mu.Lock()
	if c.department == departmentID && c.state == StateLoading {
		c.teardownLocked()
	}
	c.mu.Unlock()
	logging.Warn().
		Str("department_id", departmentID).
		Str("stage", what).
		Err(err).
		Msg("department load failed")
	return fmt.Errorf("%w: %s: %v", ErrAssetUnavailable, what, err)
}

// Unload tears the viewport down to idle.
func (c *Controller) Unload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

// teardownLocked resets to idle and cancels all scheduled transitions.
func (c *Controller) teardownLocked() {
	c.state = StateIdle
	c.department = ""
	c.asset = models.MapAsset{}
	c.desks = nil
	c.statuses = nil
	c.transform = Transform{}
	c.focused = ""
	c.pulsing = false
	c.stale = false
	c.pending = make(map[string]models.PresenceDelta)
	for _, t := range []Timer{c.flushTimer, c.focusTimer, c.pulseTimer} {
		if t != nil {
			t.Stop()
		}
	}
	c.flushTimer = nil
	c.focusTimer = nil
	c.pulseTimer = nil
}

// Pan moves the camera by a plan-space offset, clamped to the floor plan
// so the view cannot wander into empty space.
func (c *Controller) Pan(dx, dy float64) (Transform, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady && c.state != StateFocusing {
		return Transform{}, ErrNotReady
	}
	t := c.transform
	t.CenterX += dx
	t.CenterY += dy
	c.transform = ClampCenter(t, c.bounds())
	c.renders++
	return c.transform, nil
}

// Zoom multiplies the current scale, clamped to the configured range.
// Requests past either bound settle at the bound instead of failing.
func (c *Controller) Zoom(factor float64) (Transform, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady && c.state != StateFocusing {
		return Transform{}, ErrNotReady
	}
	c.transform.Scale = ClampScale(c.transform.Scale*factor, c.cfg.ZoomMin, c.cfg.ZoomMax)
	c.transform = ClampCenter(c.transform, c.bounds())
	c.renders++
	return c.transform, nil
}

// Focus centers the camera on a desk and starts the highlight sequence:
// the camera animates for FocusDuration, the desk pulses for
// PulseDuration, then the highlight clears on its own and the viewport
// returns to ready. Focusing a second desk cancels the first sequence.
func (c *Controller) Focus(deskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady && c.state != StateFocusing {
		return ErrNotReady
	}
	desk, ok := c.desks[deskID]
	if !ok {
		return ErrDeskNotFound
	}

	if c.focusTimer != nil {
		c.focusTimer.Stop()
	}
	if c.pulseTimer != nil {
		c.pulseTimer.Stop()
	}

	x, y := desk.Center()
	scale := c.transform.Scale
	if scale < c.cfg.LODThreshold {
		// Zoom in far enough that the focused desk shows its label.
		scale = ClampScale(c.cfg.LODThreshold, c.cfg.ZoomMin, c.cfg.ZoomMax)
	}
	c.transform = ClampCenter(Transform{CenterX: x, CenterY: y, Scale: scale}, c.bounds())
	c.state = StateFocusing
	c.focused = deskID
	c.pulsing = false
	c.renders++

	gen := deskID
	c.focusTimer = c.clock.AfterFunc(c.cfg.FocusDuration, func() { c.beginPulse(gen) })
	return nil
}

func (c *Controller) beginPulse(deskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateFocusing || c.focused != deskID {
		return
	}
	c.pulsing = true
	c.renders++
	c.pulseTimer = c.clock.AfterFunc(c.cfg.PulseDuration, func() { c.endPulse(deskID) })
}

func (c *Controller) endPulse(deskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateFocusing || c.focused != deskID {
		return
	}
	c.pulsing = false
	c.focused = ""
	c.state = StateReady
	c.renders++
}

// ApplyDelta queues a live status change. Deltas for other departments
// are dropped. Queued deltas are coalesced per desk (a delta is a full
// snapshot, so the latest one wins) and committed together when the
// batch window elapses.
func (c *Controller) ApplyDelta(delta models.PresenceDelta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady && c.state != StateFocusing {
		return
	}
	if delta.DepartmentID != c.department {
		return
	}
	c.pending[delta.DeskID] = delta
	if c.flushTimer == nil {
		c.flushTimer = c.clock.AfterFunc(c.cfg.BatchWindow, c.flush)
	}
}

func (c *Controller) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushTimer = nil
	if len(c.pending) == 0 {
		return
	}
	if c.state != StateReady && c.state != StateFocusing {
		c.pending = make(map[string]models.PresenceDelta)
		return
	}
	for deskID, d := range c.pending {
		s := c.statuses[deskID]
		s.DeskID = deskID
		s.State = d.State
		if d.SubjectID != "" {
			s.EmployeeID = d.SubjectID
		}
		c.statuses[deskID] = s
	}
	c.pending = make(map[string]models.PresenceDelta)
	c.renders++
}

// applySnapshot replaces the rendered status table wholesale. Used on
// reconnect catch-up, where the fresh snapshot supersedes anything the
// viewport missed while disconnected.
func (c *Controller) applySnapshot(statuses []models.DeskStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady && c.state != StateFocusing {
		return
	}
	c.statuses = make(map[string]models.DeskStatus, len(statuses))
	for _, s := range statuses {
		c.statuses[s.DeskID] = s
	}
	c.pending = make(map[string]models.PresenceDelta)
	if c.flushTimer != nil {
		c.flushTimer.Stop()
		c.flushTimer = nil
	}
	c.renders++
}

func (c *Controller) setStale(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stale != v {
		c.stale = v
		c.renders++
	}
}

func (c *Controller) bounds() Bounds {
	return Bounds{Width: c.asset.Width, Height: c.asset.Height}
}
