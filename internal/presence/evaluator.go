// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package presence

import (
	"context"
	"time"

	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/metrics"
	"github.com/tomtom215/deskatlas/internal/models"
)

// EvaluatorConfig tunes the staleness sweep.
type EvaluatorConfig struct {
	// OfflineThreshold is the maximum allowed gap since last_seen.
	// Validated at config load to exceed the heartbeat interval.
	OfflineThreshold time.Duration

	// SweepInterval is the cadence of the recurring sweep.
	SweepInterval time.Duration
}

// Evaluator is the staleness evaluator: the only path that ever sets a
// subject Offline. It runs as a supervised background service sharing
// the Store with concurrent ingest; per-subject compare-and-set keeps a
// racing heartbeat ahead of the sweep.
type Evaluator struct {
	store     Store
	desks     DeskResolver
	publisher DeltaPublisher
	recorder  TransitionRecorder
	clock     Clock
	cfg       EvaluatorConfig
}

// NewEvaluator creates a staleness evaluator. recorder may be nil.
func NewEvaluator(store Store, desks DeskResolver, publisher DeltaPublisher, recorder TransitionRecorder, clock Clock, cfg EvaluatorConfig) *Evaluator {
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.OfflineThreshold <= 0 {
		cfg.OfflineThreshold = 6 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Evaluator{
		store:     store,
		desks:     desks,
		publisher: publisher,
		recorder:  recorder,
		clock:     clock,
		cfg:       cfg,
	}
}

// Serve implements suture.Service: a recurring sweep until the context
// is canceled.
func (e *Evaluator) Serve(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (e *Evaluator) String() string { return "staleness-evaluator" }

// Sweep reclassifies every Online subject whose last_seen is older than
// the threshold. Each subject is handled independently: one failed desk
// lookup or publish never aborts the batch, and the Offline transition
// is a compare-and-set on the observed last_seen so a heartbeat landing
// mid-sweep wins.
func (e *Evaluator) Sweep(ctx context.Context) {
	start := e.clock.Now()
	cutoff := start.Add(-e.cfg.OfflineThreshold).UnixNano()

	swept := 0
	for _, subj := range e.store.OnlineSubjects() {
		// Offline only when the gap strictly exceeds the threshold; a
		// subject whose gap equals it exactly stays Online.
		if subj.LastSeen >= cutoff {
			continue
		}
		if !e.store.MarkOffline(subj.ID, subj.LastSeen) {
			// Lost to a concurrent heartbeat.
			continue
		}

		metrics.PresenceTransitions.WithLabelValues(string(models.StateOffline)).Inc()
		metrics.SubjectsOnline.Dec()
		swept++
		e.announce(ctx, subj, start)
	}

	metrics.SweepDuration.Observe(e.clock.Now().Sub(start).Seconds())
	if swept > 0 {
		logging.Info().Int("subjects", swept).Msg("staleness sweep reclassified subjects offline")
	}
}

func (e *Evaluator) announce(ctx context.Context, subj models.Subject, at time.Time) {
	desk, ok, err := e.desks.EmployeeDesk(ctx, subj.ID)
	if err != nil {
		metrics.SweepErrors.Inc()
		logging.Error().Err(err).
			Str("subject", subj.ID).
			Msg("desk lookup failed for offline transition")
		return
	}

	if e.recorder != nil {
		deskID := ""
		if ok {
			deskID = desk.ID
		}
		e.recorder.RecordTransition(ctx, subj.ID, deskID, models.StateOnline, models.StateOffline, at)
	}

	if !ok {
		return
	}

	delta := models.PresenceDelta{
		DepartmentID: desk.DepartmentID,
		DeskID:       desk.ID,
		SubjectID:    subj.ID,
		State:        models.StateOffline,
		Timestamp:    at,
	}
	if err := e.publisher.Publish(ctx, delta); err != nil {
		metrics.SweepErrors.Inc()
		logging.Error().Err(err).
			Str("desk", desk.ID).
			Msg("publish offline delta failed")
	}
}
