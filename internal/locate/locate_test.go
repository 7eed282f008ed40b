// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package locate

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

type fakeDirectory struct {
	employees []models.Employee
	desks     map[string]models.Desk
	searchErr error
}

func (f *fakeDirectory) SearchEmployeesByName(_ context.Context, query string, limit int) ([]models.Employee, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	q := strings.ToLower(query)
	var out []models.Employee
	for _, e := range f.employees {
		if strings.Contains(strings.ToLower(e.Name), q) {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeDirectory) EmployeeDesk(_ context.Context, employeeID string) (models.Desk, bool, error) {
	d, ok := f.desks[employeeID]
	return d, ok, nil
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{
		employees: []models.Employee{
			{ID: "emp-1", DepartmentID: "eng", Name: "Ada Lindqvist"},
			{ID: "emp-2", DepartmentID: "eng", Name: "Adam Lindholm"},
			{ID: "emp-3", DepartmentID: "sales", Name: "Bo Chen"},
			{ID: "emp-4", DepartmentID: "sales", Name: "Bo Chen"},
			{ID: "emp-5", DepartmentID: "ops", Name: "Cleo Marchetti"},
		},
		desks: map[string]models.Desk{
			"emp-1": {ID: "D1", DepartmentID: "eng", X: 100, Y: 100, Width: 20, Height: 10},
			"emp-2": {ID: "D2", DepartmentID: "eng", X: 300, Y: 100, Width: 20, Height: 10},
			"emp-3": {ID: "S1", DepartmentID: "sales", X: 50, Y: 50, Width: 20, Height: 10},
		},
	}
}

func TestResolveUniqueMatch(t *testing.T) {
	svc := New(testDirectory())

	res, err := svc.Resolve(context.Background(), "Cleo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeUnassigned {
		t.Fatalf("outcome = %s, want %s (single match, no desk)", res.Outcome, OutcomeUnassigned)
	}

	res, err = svc.Resolve(context.Background(), "Ada L")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeMatch {
		t.Fatalf("outcome = %s, want %s", res.Outcome, OutcomeMatch)
	}
	if res.Match.DeskID != "D1" || res.Match.DepartmentID != "eng" {
		t.Errorf("match = %+v, want desk D1 in eng", res.Match)
	}
	if res.Match.X != 110 || res.Match.Y != 105 {
		t.Errorf("match centre = (%v, %v), want (110, 105)", res.Match.X, res.Match.Y)
	}
}

func TestResolveExactNameBeatsFuzzyAmbiguity(t *testing.T) {
	dir := testDirectory()
	dir.employees = append(dir.employees, models.Employee{ID: "emp-6", DepartmentID: "eng", Name: "Ada"})
	dir.desks["emp-6"] = models.Desk{ID: "D6", DepartmentID: "eng", X: 500, Y: 100, Width: 20, Height: 10}
	svc := New(dir)

	// "ada" fuzzily hits both "Ada Lindqvist" and "Ada", but matches
	// "Ada" exactly (case-insensitive), so no disambiguation is needed.
	res, err := svc.Resolve(context.Background(), "ada")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeMatch {
		t.Fatalf("outcome = %s, want %s", res.Outcome, OutcomeMatch)
	}
	if res.Match.DeskID != "D6" {
		t.Errorf("match desk = %s, want D6 (the exact name)", res.Match.DeskID)
	}
}

func TestResolveAmbiguousReturnsOrderedCandidates(t *testing.T) {
	svc := New(testDirectory())

	res, err := svc.Resolve(context.Background(), "Lind")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeCandidates {
		t.Fatalf("outcome = %s, want %s", res.Outcome, OutcomeCandidates)
	}
	if res.Match != nil {
		t.Fatal("ambiguous query must never auto-select a match")
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(res.Candidates))
	}
	if res.Candidates[0].Name != "Ada Lindqvist" || res.Candidates[1].Name != "Adam Lindholm" {
		t.Errorf("candidate order = %q, %q; want Ada Lindqvist then Adam Lindholm",
			res.Candidates[0].Name, res.Candidates[1].Name)
	}
}

func TestResolveDuplicateExactNames(t *testing.T) {
	svc := New(testDirectory())

	// Two employees literally named "Bo Chen": exact matching cannot
	// pick one, so both come back as candidates ordered by ID.
	res, err := svc.Resolve(context.Background(), "Bo Chen")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeCandidates {
		t.Fatalf("outcome = %s, want %s", res.Outcome, OutcomeCandidates)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(res.Candidates))
	}
	if res.Candidates[0].EmployeeID != "emp-3" || res.Candidates[1].EmployeeID != "emp-4" {
		t.Errorf("candidate IDs = %s, %s; want emp-3 then emp-4",
			res.Candidates[0].EmployeeID, res.Candidates[1].EmployeeID)
	}
}

func TestResolveNotFound(t *testing.T) {
	svc := New(testDirectory())

	res, err := svc.Resolve(context.Background(), "Zelda")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("outcome = %s, want %s", res.Outcome, OutcomeNotFound)
	}
}

func TestResolveEmptyQuery(t *testing.T) {
	svc := New(testDirectory())

	if _, err := svc.Resolve(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("Resolve blank = %v, want ErrEmptyQuery", err)
	}
}

func TestResolveSearchError(t *testing.T) {
	dir := testDirectory()
	dir.searchErr = errors.New("directory offline")
	svc := New(dir)

	if _, err := svc.Resolve(context.Background(), "Ada"); err == nil {
		t.Fatal("expected error when directory search fails")
	}
}

func TestResolveEmployeeFromCandidate(t *testing.T) {
	svc := New(testDirectory())

	res, err := svc.ResolveEmployee(context.Background(), models.Employee{ID: "emp-3", DepartmentID: "sales", Name: "Bo Chen"})
	if err != nil {
		t.Fatalf("ResolveEmployee: %v", err)
	}
	if res.Outcome != OutcomeMatch || res.Match.DeskID != "S1" {
		t.Fatalf("resolution = %+v, want match on S1", res)
	}
}

// recordingViewport records navigation calls in order.
type recordingViewport struct {
	department string
	loadErr    error
	calls      []string
}

func (v *recordingViewport) Load(_ context.Context, departmentID string) error {
	v.calls = append(v.calls, "load:"+departmentID)
	if v.loadErr != nil {
		return v.loadErr
	}
	v.department = departmentID
	return nil
}

func (v *recordingViewport) Department() string { return v.department }

func (v *recordingViewport) Focus(deskID string) error {
	v.calls = append(v.calls, "focus:"+deskID)
	return nil
}

func TestNavigateToLoadsThenFocuses(t *testing.T) {
	svc := New(testDirectory())
	vp := &recordingViewport{department: "ops"}

	err := svc.NavigateTo(context.Background(), vp, models.LocateResult{
		EmployeeID: "emp-1", DepartmentID: "eng", DeskID: "D1",
	})
	if err != nil {
		t.Fatalf("NavigateTo: %v", err)
	}
	want := []string{"load:eng", "focus:D1"}
	if len(vp.calls) != 2 || vp.calls[0] != want[0] || vp.calls[1] != want[1] {
		t.Fatalf("calls = %v, want %v", vp.calls, want)
	}
}

func TestNavigateToSkipsLoadForCurrentDepartment(t *testing.T) {
	svc := New(testDirectory())
	vp := &recordingViewport{department: "eng"}

	err := svc.NavigateTo(context.Background(), vp, models.LocateResult{
		EmployeeID: "emp-1", DepartmentID: "eng", DeskID: "D1",
	})
	if err != nil {
		t.Fatalf("NavigateTo: %v", err)
	}
	if len(vp.calls) != 1 || vp.calls[0] != "focus:D1" {
		t.Fatalf("calls = %v, want a bare focus", vp.calls)
	}
}

func TestNavigateToStopsOnLoadFailure(t *testing.T) {
	svc := New(testDirectory())
	vp := &recordingViewport{department: "", loadErr: errors.New("asset fetch failed")}

	err := svc.NavigateTo(context.Background(), vp, models.LocateResult{
		EmployeeID: "emp-1", DepartmentID: "eng", DeskID: "D1",
	})
	if err == nil {
		t.Fatal("expected error from failed load")
	}
	for _, call := range vp.calls {
		if call == "focus:D1" {
			t.Fatal("focus issued against a department that never rendered")
		}
	}
}
