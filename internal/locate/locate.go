// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package locate resolves employee names to desk locations and drives the
// viewport to them. Resolution is exact-first: a single case-insensitive
// exact name match wins outright, otherwise the fuzzy candidates are
// returned for the caller to disambiguate. Ambiguity is never resolved
// automatically.
package locate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/deskatlas/internal/models"
)

// Outcome classifies a resolution attempt.
type Outcome string

const (
	// OutcomeMatch means exactly one employee matched and has a desk.
	OutcomeMatch Outcome = "match"

	// OutcomeCandidates means the query was ambiguous; Candidates holds
	// the ordered options for the user to pick from.
	OutcomeCandidates Outcome = "candidates"

	// OutcomeUnassigned means exactly one employee matched but has no
	// active desk assignment, so there is nothing to focus.
	OutcomeUnassigned Outcome = "unassigned"

	// OutcomeNotFound means nothing matched.
	OutcomeNotFound Outcome = "not_found"
)

// Resolution is the result of resolving a search query.
type Resolution struct {
	Outcome    Outcome                  `json:"outcome"`
	Match      *models.LocateResult     `json:"match,omitempty"`
	Employee   *models.Employee         `json:"employee,omitempty"`
	Candidates []models.LocateCandidate `json:"candidates,omitempty"`
}

// ErrEmptyQuery is returned for blank or whitespace-only queries.
var ErrEmptyQuery = errors.New("locate: empty query")

// Directory is the subset of the directory layer the resolver needs.
type Directory interface {
	SearchEmployeesByName(ctx context.Context, query string, limit int) ([]models.Employee, error)
	EmployeeDesk(ctx context.Context, employeeID string) (models.Desk, bool, error)
}

// Viewport is the subset of the viewport controller navigation needs.
// Load blocks until the department is rendered, which is what guarantees
// focus only ever targets a ready floor plan.
type Viewport interface {
	Load(ctx context.Context, departmentID string) error
	Department() string
	Focus(deskID string) error
}

// DefaultCandidateLimit bounds how many disambiguation options a single
// query can produce.
const DefaultCandidateLimit = 20

// Service resolves queries against the directory.
type Service struct {
	dir   Directory
	limit int
}

// New returns a resolver over the given directory.
func New(dir Directory) *Service {
	return &Service{dir: dir, limit: DefaultCandidateLimit}
}

// Resolve maps a free-text name query to a desk. A unique exact name
// match (case-insensitive) short-circuits the fuzzy results; with no
// unique exact match, a single fuzzy hit resolves and anything more is
// returned as candidates in deterministic order.
func (s *Service) Resolve(ctx context.Context, query string) (Resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Resolution{}, ErrEmptyQuery
	}

	matches, err := s.dir.SearchEmployeesByName(ctx, query, s.limit)
	if err != nil {
		return Resolution{}, fmt.Errorf("searching directory: %w", err)
	}
	if len(matches) == 0 {
		return Resolution{Outcome: OutcomeNotFound}, nil
	}

	var exact []models.Employee
	for _, e := range matches {
		if strings.EqualFold(e.Name, query) {
			exact = append(exact, e)
		}
	}

	switch {
	case len(exact) == 1:
		return s.resolveEmployee(ctx, exact[0])
	case len(exact) > 1:
		return Resolution{Outcome: OutcomeCandidates, Candidates: candidates(exact)}, nil
	case len(matches) == 1:
		return s.resolveEmployee(ctx, matches[0])
	default:
		return Resolution{Outcome: OutcomeCandidates, Candidates: candidates(matches)}, nil
	}
}

// ResolveEmployee maps a disambiguated employee ID, typically one picked
// from Candidates, to a desk.
func (s *Service) ResolveEmployee(ctx context.Context, employee models.Employee) (Resolution, error) {
	return s.resolveEmployee(ctx, employee)
}

func (s *Service) resolveEmployee(ctx context.Context, e models.Employee) (Resolution, error) {
	desk, ok, err := s.dir.EmployeeDesk(ctx, e.ID)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolving desk for %s: %w", e.ID, err)
	}
	emp := e
	if !ok {
		return Resolution{Outcome: OutcomeUnassigned, Employee: &emp}, nil
	}
	x, y := desk.Center()
	return Resolution{
		Outcome:  OutcomeMatch,
		Employee: &emp,
		Match: &models.LocateResult{
			EmployeeID:   e.ID,
			DepartmentID: desk.DepartmentID,
			DeskID:       desk.ID,
			X:            x,
			Y:            y,
		},
	}, nil
}

// NavigateTo brings a resolved location on screen: loads the target
// department if it is not the one rendered, then focuses the desk. The
// focus never fires against an unrendered plan because Load only returns
// once the department is ready.
func (s *Service) NavigateTo(ctx context.Context, vp Viewport, target models.LocateResult) error {
	if vp.Department() != target.DepartmentID {
		if err := vp.Load(ctx, target.DepartmentID); err != nil {
			return fmt.Errorf("loading department %s: %w", target.DepartmentID, err)
		}
	}
	if err := vp.Focus(target.DeskID); err != nil {
		return fmt.Errorf("focusing desk %s: %w", target.DeskID, err)
	}
	return nil
}

// candidates converts employees to presentation candidates in a stable
// order: name first, employee ID as the tiebreak.
func candidates(employees []models.Employee) []models.LocateCandidate {
	out := make([]models.LocateCandidate, 0, len(employees))
	for _, e := range employees {
		out = append(out, models.LocateCandidate{
			EmployeeID:   e.ID,
			DepartmentID: e.DepartmentID,
			Name:         e.Name,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}
