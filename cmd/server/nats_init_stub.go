// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

//go:build !nats

package main

import (
	"github.com/tomtom215/deskatlas/internal/config"
	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/notifier"
)

// NATSComponents is a stub for non-NATS builds.
type NATSComponents struct{}

// Shutdown is a no-op stub for non-NATS builds.
func (c *NATSComponents) Shutdown() {}

// initNotifier builds the in-process GoChannel notifier. NATS settings
// are ignored without the nats build tag.
func initNotifier(cfg *config.Config) (*notifier.Notifier, *NATSComponents, error) {
	if cfg.Notifier.NATSEnabled {
		logging.Warn().Msg("notifier.nats_enabled=true but NATS support not compiled (build with -tags nats)")
	}
	return notifier.NewGoChannel(notifier.Config{BufferSize: cfg.Notifier.BufferSize}), &NATSComponents{}, nil
}
