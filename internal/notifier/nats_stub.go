// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

//go:build !nats

package notifier

import "fmt"

// NATSConfig holds the settings for the optional NATS transport.
type NATSConfig struct {
	URL         string
	DurableName string
}

// NewNATS is unavailable without the nats build tag; the in-process
// GoChannel transport is the only option in this build.
func NewNATS(_ NATSConfig) (*Notifier, error) {
	return nil, fmt.Errorf("NATS transport requires building with -tags nats")
}
