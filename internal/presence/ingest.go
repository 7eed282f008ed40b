// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/metrics"
	"github.com/tomtom215/deskatlas/internal/models"
)

// clockSkewLogThreshold is the client/server clock divergence above
// which a heartbeat's client timestamp is worth logging. The client
// timestamp is diagnostic only; the server clock is authoritative.
const clockSkewLogThreshold = 30 * time.Second

// Authorizer decides whether a subject identity is valid. Errors
// propagate to the caller wrapped, so an unauthenticated request
// (ErrAuthRequired) stays distinguishable from a token bound to a
// different subject.
type Authorizer interface {
	AuthorizeSubject(ctx context.Context, subjectID string) error
}

// DeskResolver maps a subject to its currently assigned desk, if any.
// Subject IDs are employee IDs: the authenticated employee identity is
// the trackable presence entity.
type DeskResolver interface {
	EmployeeDesk(ctx context.Context, employeeID string) (models.Desk, bool, error)
}

// DeltaPublisher receives presence deltas for fan-out. Publishing is
// fire-and-forget from the ingest path's perspective.
type DeltaPublisher interface {
	Publish(ctx context.Context, delta models.PresenceDelta) error
}

// TransitionRecorder records status transitions for the audit trail.
// Implementations must not block the caller.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, subjectID, deskID string, from, to models.DeskState, at time.Time)
}

// IngestConfig tunes the heartbeat ingest path.
type IngestConfig struct {
	// HeartbeatInterval bounds the per-subject heartbeat rate to one
	// per interval (plus Burst).
	HeartbeatInterval time.Duration

	// Burst is the per-subject burst allowance, covering client retries
	// after transient network loss.
	Burst int
}

// Ingest is the heartbeat ingest component: the only path that ever
// sets a subject Online.
type Ingest struct {
	store     Store
	auth      Authorizer
	desks     DeskResolver
	publisher DeltaPublisher
	recorder  TransitionRecorder
	clock     Clock
	cfg       IngestConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewIngest creates a heartbeat ingest. recorder may be nil when
// auditing is disabled; desks and publisher must be non-nil.
func NewIngest(store Store, auth Authorizer, desks DeskResolver, publisher DeltaPublisher, recorder TransitionRecorder, clock Clock, cfg IngestConfig) *Ingest {
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 2 * time.Minute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}
	return &Ingest{
		store:     store,
		auth:      auth,
		desks:     desks,
		publisher: publisher,
		recorder:  recorder,
		clock:     clock,
		cfg:       cfg,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Record ingests one heartbeat. The server receipt time is what gets
// stored; clientTS is only compared for clock-skew diagnostics.
// Replaying an identical heartbeat is a no-op beyond refreshing the
// timestamp, and out-of-order delivery never moves last_seen backward.
func (i *Ingest) Record(ctx context.Context, subjectID string, clientTS time.Time) error {
	if err := i.auth.AuthorizeSubject(ctx, subjectID); err != nil {
		metrics.HeartbeatsRejected.WithLabelValues("auth").Inc()
		// The authorizer distinguishes a missing identity from a token
		// bound to a different subject; the API maps them to 401 and
		// 403 respectively, so the distinction must survive here.
		return fmt.Errorf("heartbeat not authorized for %q: %w", subjectID, err)
	}

	if !i.limiter(subjectID).Allow() {
		metrics.HeartbeatsRejected.WithLabelValues("rate_limited").Inc()
		return ErrRateLimited
	}

	now := i.clock.Now()
	if !clientTS.IsZero() {
		if skew := now.Sub(clientTS); skew > clockSkewLogThreshold || skew < -clockSkewLogThreshold {
			logging.Ctx(ctx).Debug().
				Str("subject", subjectID).
				Dur("skew", skew).
				Msg("heartbeat client clock skew")
		}
	}

	subj, cameOnline := i.store.Touch(subjectID, now.UnixNano())
	metrics.HeartbeatsTotal.Inc()

	if cameOnline {
		metrics.PresenceTransitions.WithLabelValues(string(models.StateOnline)).Inc()
		metrics.SubjectsOnline.Inc()
		i.announce(ctx, subj, now)
	}
	return nil
}

// announce publishes the Offline->Online delta for the subject's desk.
// A subject with no active assignment has no desk to re-color, so the
// transition is recorded but no delta is published.
func (i *Ingest) announce(ctx context.Context, subj models.Subject, at time.Time) {
	desk, ok, err := i.desks.EmployeeDesk(ctx, subj.ID)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("subject", subj.ID).
			Msg("desk lookup failed for online transition")
		return
	}

	if i.recorder != nil {
		deskID := ""
		if ok {
			deskID = desk.ID
		}
		i.recorder.RecordTransition(ctx, subj.ID, deskID, models.StateOffline, models.StateOnline, at)
	}

	if !ok {
		return
	}

	delta := models.PresenceDelta{
		DepartmentID: desk.DepartmentID,
		DeskID:       desk.ID,
		SubjectID:    subj.ID,
		State:        models.StateOnline,
		Timestamp:    at,
	}
	if err := i.publisher.Publish(ctx, delta); err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("desk", desk.ID).
			Msg("publish online delta failed")
	}
}

func (i *Ingest) limiter(subjectID string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()
	l, ok := i.limiters[subjectID]
	if !ok {
		l = rate.NewLimiter(rate.Every(i.cfg.HeartbeatInterval), i.cfg.Burst)
		i.limiters[subjectID] = l
	}
	return l
}
