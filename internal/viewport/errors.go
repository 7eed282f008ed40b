// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package viewport

import "errors"

var (
	// ErrAssetUnavailable indicates the floor plan or its presence snapshot
	// could not be fetched before the load timeout. The department stays
	// unloaded and the caller may retry.
	ErrAssetUnavailable = errors.New("viewport: department assets unavailable")

	// ErrLoadInProgress indicates a load was requested while another load
	// is still resolving.
	ErrLoadInProgress = errors.New("viewport: load already in progress")

	// ErrNotReady indicates an operation that requires a rendered
	// department was invoked before one finished loading.
	ErrNotReady = errors.New("viewport: no department rendered")

	// ErrDeskNotFound indicates a focus target does not exist on the
	// rendered floor plan.
	ErrDeskNotFound = errors.New("viewport: desk not found")

	// ErrStreamClosed indicates the delta stream ended and a reconnect
	// is required.
	ErrStreamClosed = errors.New("viewport: delta stream closed")
)
