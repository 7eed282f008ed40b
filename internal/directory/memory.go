// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tomtom215/deskatlas/internal/models"
)

// Memory is an in-memory Directory for tests and demo deployments. It
// applies the same ordering and matching rules as the DuckDB
// implementation so consumers cannot tell them apart.
type Memory struct {
	mu          sync.RWMutex
	desks       map[string][]models.Desk       // department -> desks
	assignments map[string][]models.Assignment // department -> assignments
	assets      map[string]models.MapAsset     // department -> published asset
	employees   []models.Employee
	deskByID    map[string]models.Desk
}

// NewMemory returns an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{
		desks:       make(map[string][]models.Desk),
		assignments: make(map[string][]models.Assignment),
		assets:      make(map[string]models.MapAsset),
		deskByID:    make(map[string]models.Desk),
	}
}

// AddDesk registers a desk under its department.
func (m *Memory) AddDesk(desk models.Desk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.desks[desk.DepartmentID] = append(m.desks[desk.DepartmentID], desk)
	m.deskByID[desk.ID] = desk
	sort.Slice(m.desks[desk.DepartmentID], func(i, j int) bool {
		d := m.desks[desk.DepartmentID]
		return d[i].ID < d[j].ID
	})
}

// AddEmployee registers an employee.
func (m *Memory) AddEmployee(e models.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees = append(m.employees, e)
}

// Assign records an assignment. The desk must already exist.
func (m *Memory) Assign(a models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	desk, ok := m.deskByID[a.DeskID]
	if !ok {
		return fmt.Errorf("%w: desk %s", ErrNotFound, a.DeskID)
	}
	m.assignments[desk.DepartmentID] = append(m.assignments[desk.DepartmentID], a)
	return nil
}

// PublishMap publishes a floor plan for its department, replacing any
// earlier published asset.
func (m *Memory) PublishMap(asset models.MapAsset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[asset.DepartmentID] = asset
}

func (m *Memory) Departments(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.desks))
	for id := range m.desks {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) DepartmentDesks(_ context.Context, departmentID string) ([]models.Desk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Desk(nil), m.desks[departmentID]...), nil
}

func (m *Memory) DepartmentAssignments(_ context.Context, departmentID string) ([]models.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Assignment(nil), m.assignments[departmentID]...), nil
}

func (m *Memory) DepartmentMapAsset(_ context.Context, departmentID string) (models.MapAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	asset, ok := m.assets[departmentID]
	if !ok {
		return models.MapAsset{}, fmt.Errorf("%w: department %s", ErrNoPublishedMap, departmentID)
	}
	return asset, nil
}

func (m *Memory) SearchEmployeesByName(_ context.Context, query string, limit int) ([]models.Employee, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := strings.ToLower(query)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Employee
	for _, e := range m.employees {
		if strings.Contains(strings.ToLower(e.Name), q) {
			out = append(out, e)
		}
	}
	// Prefix matches first, then name, then ID, matching the SQL path.
	sort.Slice(out, func(i, j int) bool {
		pi := strings.HasPrefix(strings.ToLower(out[i].Name), q)
		pj := strings.HasPrefix(strings.ToLower(out[j].Name), q)
		if pi != pj {
			return pi
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) EmployeeDesk(_ context.Context, employeeID string) (models.Desk, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *models.Assignment
	for dept := range m.assignments {
		for i, a := range m.assignments[dept] {
			if a.EmployeeID != employeeID || !a.Active {
				continue
			}
			if best == nil || a.AssignedAt.After(best.AssignedAt) {
				best = &m.assignments[dept][i]
			}
		}
	}
	if best == nil {
		return models.Desk{}, false, nil
	}
	desk, ok := m.deskByID[best.DeskID]
	if !ok {
		return models.Desk{}, false, fmt.Errorf("%w: desk %s", ErrNotFound, best.DeskID)
	}
	return desk, true, nil
}

func (m *Memory) Close() error { return nil }
