// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package directory is the read-side of the seating CRUD data:
// departments, desks, assignments, employees, and published floor-plan
// assets. Deskatlas never writes this data; the CRUD layer owns it and
// this package only queries.
package directory

import (
	"context"
	"errors"

	"github.com/tomtom215/deskatlas/internal/models"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("directory: not found")

	// ErrNoPublishedMap indicates the department has no published
	// floor-plan asset. The viewport treats this like any other load
	// failure: nothing renders.
	ErrNoPublishedMap = errors.New("directory: no published map asset")
)

// Directory is the full read interface over the seating data. The
// smaller per-consumer interfaces (presence.DeskResolver,
// presence.DepartmentReader, locate.Directory, viewport.Loader) are all
// satisfied by any Directory.
type Directory interface {
	// Departments lists all known department IDs, sorted.
	Departments(ctx context.Context) ([]string, error)

	// DepartmentDesks returns the desks of one department.
	DepartmentDesks(ctx context.Context, departmentID string) ([]models.Desk, error)

	// DepartmentAssignments returns all assignments, active and not,
	// for desks of one department.
	DepartmentAssignments(ctx context.Context, departmentID string) ([]models.Assignment, error)

	// DepartmentMapAsset returns the published floor plan, or
	// ErrNoPublishedMap when none is published.
	DepartmentMapAsset(ctx context.Context, departmentID string) (models.MapAsset, error)

	// SearchEmployeesByName finds employees whose name matches the
	// query, case-insensitively, best matches first.
	SearchEmployeesByName(ctx context.Context, query string, limit int) ([]models.Employee, error)

	// EmployeeDesk resolves an employee's actively assigned desk. The
	// second return is false when the employee has no active assignment.
	EmployeeDesk(ctx context.Context, employeeID string) (models.Desk, bool, error)

	// Close releases the underlying storage.
	Close() error
}
