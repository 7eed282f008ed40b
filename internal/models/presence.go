// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package models defines the shared domain types for Deskatlas: subjects,
// desks, assignments, presence deltas, and department map assets.
package models

import (
	"time"
)

// DeskState is the derived occupancy state of a desk or subject.
//
// Online and Offline are derived exclusively from heartbeat recency:
// heartbeat ingest is the only path that sets Online, the staleness
// evaluator is the only path that sets Offline. Vacant is reported for
// desks with no active assignment - there is no subject to track.
type DeskState string

const (
	StateOnline  DeskState = "online"
	StateOffline DeskState = "offline"
	StateVacant  DeskState = "vacant"
)

// Valid reports whether s is one of the three known states.
func (s DeskState) Valid() bool {
	switch s {
	case StateOnline, StateOffline, StateVacant:
		return true
	}
	return false
}

// Subject is one trackable presence entity, typically a logged-in user
// session. Subjects are created implicitly on first heartbeat and never
// deleted; a stale subject simply ages out of the Online classification.
type Subject struct {
	ID string `json:"subject_id"`

	// LastSeen is the server receipt time of the most recent heartbeat,
	// in unix nanoseconds. It never moves backward.
	LastSeen int64 `json:"last_seen"`

	// State is Online or Offline, never Vacant (Vacant is a desk-level
	// state, not a subject-level one).
	State DeskState `json:"status"`
}

// LastSeenTime returns LastSeen as a time.Time.
func (s Subject) LastSeenTime() time.Time {
	return time.Unix(0, s.LastSeen)
}

// Desk is a fixed physical location on a department floor plan.
// Desks are owned by the CRUD layer and read-only here.
type Desk struct {
	ID           string  `json:"desk_id"`
	DepartmentID string  `json:"department_id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Label        string  `json:"label"`
}

// Center returns the plan coordinates of the desk's midpoint, which is
// what the viewport centers on when focusing.
func (d Desk) Center() (x, y float64) {
	return d.X + d.Width/2, d.Y + d.Height/2
}

// Assignment binds an employee to a desk. At most one active assignment
// exists per desk.
type Assignment struct {
	EmployeeID string    `json:"employee_id"`
	DeskID     string    `json:"desk_id"`
	Active     bool      `json:"active"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Employee is the directory view of a person, sufficient for search and
// status aggregation. The full employee record is owned by the CRUD layer.
type Employee struct {
	ID           string `json:"employee_id"`
	DepartmentID string `json:"department_id"`
	Name         string `json:"name"`
}

// PresenceDelta is an ephemeral status-change event for one desk. Deltas
// are full snapshots of the desk's new state, never increments, so that
// applying the same delta twice yields the same visible state.
type PresenceDelta struct {
	DepartmentID string    `json:"department_id"`
	DeskID       string    `json:"desk_id"`
	SubjectID    string    `json:"subject_id,omitempty"`
	State        DeskState `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

// DeskStatus is one row of a department status snapshot.
type DeskStatus struct {
	DeskID     string    `json:"desk_id"`
	EmployeeID string    `json:"employee_id,omitempty"`
	State      DeskState `json:"status"`
}

// MapAssetType identifies the rendering format of a floor-plan asset.
type MapAssetType string

const (
	MapAssetVector     MapAssetType = "vector"
	MapAssetRaster     MapAssetType = "raster"
	MapAssetStructured MapAssetType = "structured"
)

// MapAsset is a published floor-plan reference. Assets are immutable once
// published and swapped wholesale when a newer version exists. Width and
// Height are the plan extents used for viewport pan clamping.
type MapAsset struct {
	MapID        string       `json:"map_id"`
	DepartmentID string       `json:"department_id"`
	Type         MapAssetType `json:"type"`
	URL          string       `json:"url"`
	Width        float64      `json:"width"`
	Height       float64      `json:"height"`
}

// LocateResult is a fully resolved employee location: the department to
// load and the desk (with plan coordinates) to focus.
type LocateResult struct {
	EmployeeID   string  `json:"employee_id"`
	DepartmentID string  `json:"department_id"`
	DeskID       string  `json:"desk_id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}

// LocateCandidate is one entry of an ambiguous search result. Candidates
// are presented for disambiguation and never auto-selected.
type LocateCandidate struct {
	EmployeeID   string `json:"employee_id"`
	DepartmentID string `json:"department_id"`
	Name         string `json:"name"`
}
