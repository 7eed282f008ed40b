// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package presence

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/deskatlas/internal/models"
)

// DepartmentReader supplies the read-only directory data the aggregator
// joins against: the desk list and the active assignments of one
// department.
type DepartmentReader interface {
	DepartmentDesks(ctx context.Context, departmentID string) ([]models.Desk, error)
	DepartmentAssignments(ctx context.Context, departmentID string) ([]models.Assignment, error)
}

// Aggregator computes the current status of every desk in a department:
// one directory read plus one presence BatchGet, O(n) in the desk count
// with no per-desk round trips. Results are eventually consistent with
// the latest delta, bounded by one sweep interval.
type Aggregator struct {
	store     Store
	directory DepartmentReader
}

// NewAggregator creates a status aggregator.
func NewAggregator(store Store, directory DepartmentReader) *Aggregator {
	return &Aggregator{store: store, directory: directory}
}

// DepartmentStatus returns one DeskStatus per desk, sorted by desk ID
// for stable output. Desks with no active assignment report Vacant;
// assigned desks report the subject's Online/Offline state, defaulting
// to Offline for subjects that have never sent a heartbeat.
func (a *Aggregator) DepartmentStatus(ctx context.Context, departmentID string) ([]models.DeskStatus, error) {
	desks, err := a.directory.DepartmentDesks(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list desks for department %s: %w", departmentID, err)
	}

	assignments, err := a.directory.DepartmentAssignments(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list assignments for department %s: %w", departmentID, err)
	}

	deskOwner := make(map[string]string, len(assignments))
	subjectIDs := make([]string, 0, len(assignments))
	for _, asg := range assignments {
		if !asg.Active {
			continue
		}
		deskOwner[asg.DeskID] = asg.EmployeeID
		subjectIDs = append(subjectIDs, asg.EmployeeID)
	}

	present := a.store.BatchGet(subjectIDs)

	statuses := make([]models.DeskStatus, 0, len(desks))
	for _, desk := range desks {
		status := models.DeskStatus{DeskID: desk.ID, State: models.StateVacant}
		if owner, ok := deskOwner[desk.ID]; ok {
			status.EmployeeID = owner
			status.State = models.StateOffline
			if subj, seen := present[owner]; seen {
				status.State = subj.State
			}
		}
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].DeskID < statuses[j].DeskID })
	return statuses, nil
}
