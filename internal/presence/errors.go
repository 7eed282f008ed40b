// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package presence

import "errors"

var (
	// ErrAuthRequired indicates a heartbeat for an unknown or
	// unauthenticated subject. Not retryable without re-authentication.
	ErrAuthRequired = errors.New("subject authentication required")

	// ErrRateLimited indicates a subject exceeded the bounded heartbeat
	// rate. The heartbeat is dropped; the client should back off to its
	// configured interval.
	ErrRateLimited = errors.New("heartbeat rate limit exceeded")
)
