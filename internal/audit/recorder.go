// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package audit

import (
	"context"
	"time"

	"github.com/tomtom215/deskatlas/internal/models"
)

// Recorder adapts the trail to the presence layer's recorder interface.
type Recorder struct {
	trail *Trail
}

// NewRecorder returns a recorder feeding the given trail.
func NewRecorder(trail *Trail) *Recorder {
	return &Recorder{trail: trail}
}

// RecordTransition queues one transition without blocking the caller.
func (r *Recorder) RecordTransition(_ context.Context, subjectID, deskID string, from, to models.DeskState, at time.Time) {
	r.trail.Record(TransitionEvent{
		SubjectID: subjectID,
		DeskID:    deskID,
		From:      from,
		To:        to,
		At:        at,
	})
}

// NopRecorder discards transitions. Used when auditing is disabled.
type NopRecorder struct{}

func (NopRecorder) RecordTransition(context.Context, string, string, models.DeskState, models.DeskState, time.Time) {
}
