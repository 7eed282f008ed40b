// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package viewport

import (
	"context"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/models"
)

// DeltaSource is the live presence channel for one department.
type DeltaSource interface {
	Subscribe(ctx context.Context, departmentID string) (<-chan models.PresenceDelta, error)
}

// RunSubscription keeps the controller fed with live deltas for the
// currently loaded department until ctx is cancelled. Every connection,
// first and reconnect alike, refetches the status snapshot before
// consuming deltas, so missed events while disconnected never matter.
// Disconnects retry with exponential backoff; once the wait reaches the
// cap the controller flags displayed presence as possibly stale.
func (c *Controller) RunSubscription(ctx context.Context, source DeltaSource) error {
	department := c.Department()
	if department == "" {
		return ErrNotReady
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.ReconnectInitial
	bo.MaxInterval = c.cfg.ReconnectCap
	bo.MaxElapsedTime = 0

	for {
		err := c.consume(ctx, source, department, bo)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := bo.NextBackOff()
		if wait >= c.cfg.ReconnectCap {
			c.setStale(true)
		}
		logging.Warn().
			Str("department_id", department).
			Dur("retry_in", wait).
			Err(err).
			Msg("presence stream disconnected")
		done := make(chan struct{})
		timer := c.clock.AfterFunc(wait, func() { close(done) })
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-done:
		}
	}
}

func (c *Controller) consume(ctx context.Context, source DeltaSource, department string, bo *backoff.ExponentialBackOff) error {
	stream, err := source.Subscribe(ctx, department)
	if err != nil {
		return err
	}

	// Catch up before streaming: a fresh snapshot supersedes anything
	// missed while disconnected, and deltas are idempotent snapshots so
	// one arriving concurrently with the fetch cannot corrupt state.
	statuses, err := c.loader.DepartmentStatus(ctx, department)
	if err != nil {
		return err
	}
	c.applySnapshot(statuses)
	c.setStale(false)
	bo.Reset()
	logging.Info().
		Str("department_id", department).
		Int("desks", len(statuses)).
		Msg("presence stream connected")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delta, ok := <-stream:
			if !ok {
				return ErrStreamClosed
			}
			c.ApplyDelta(delta)
		}
	}
}
