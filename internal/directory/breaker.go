// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package directory

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/deskatlas/internal/config"
	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/models"
)

// Breaker wraps a Directory with a circuit breaker so a wedged database
// fails fast instead of stacking up viewport loads behind slow queries.
// Not-found results pass through untouched and do not count as failures.
type Breaker struct {
	inner Directory
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreaker wraps inner with breaker settings from cfg.
func NewBreaker(inner Directory, cfg *config.DirectoryConfig) *Breaker {
	settings := gobreaker.Settings{
		Name:    "directory",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("directory circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// Missing rows are domain answers, not backend failures.
			return err == nil || isNotFound(err)
		},
	}
	return &Breaker{inner: inner, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State returns the breaker state for health reporting.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) Departments(ctx context.Context) ([]string, error) {
	return execute(b, func() ([]string, error) { return b.inner.Departments(ctx) })
}

func (b *Breaker) DepartmentDesks(ctx context.Context, departmentID string) ([]models.Desk, error) {
	return execute(b, func() ([]models.Desk, error) { return b.inner.DepartmentDesks(ctx, departmentID) })
}

func (b *Breaker) DepartmentAssignments(ctx context.Context, departmentID string) ([]models.Assignment, error) {
	return execute(b, func() ([]models.Assignment, error) { return b.inner.DepartmentAssignments(ctx, departmentID) })
}

func (b *Breaker) DepartmentMapAsset(ctx context.Context, departmentID string) (models.MapAsset, error) {
	return execute(b, func() (models.MapAsset, error) { return b.inner.DepartmentMapAsset(ctx, departmentID) })
}

func (b *Breaker) SearchEmployeesByName(ctx context.Context, query string, limit int) ([]models.Employee, error) {
	return execute(b, func() ([]models.Employee, error) { return b.inner.SearchEmployeesByName(ctx, query, limit) })
}

func (b *Breaker) EmployeeDesk(ctx context.Context, employeeID string) (models.Desk, bool, error) {
	type result struct {
		desk models.Desk
		ok   bool
	}
	r, err := execute(b, func() (result, error) {
		desk, ok, err := b.inner.EmployeeDesk(ctx, employeeID)
		return result{desk: desk, ok: ok}, err
	})
	return r.desk, r.ok, err
}

func (b *Breaker) Close() error {
	return b.inner.Close()
}

// execute funnels a typed call through the untyped breaker.
func execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		var zero T
		if typed, ok := v.(T); ok {
			return typed, err
		}
		return zero, err
	}
	return v.(T), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoPublishedMap)
}
