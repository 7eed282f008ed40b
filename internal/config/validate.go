// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks structural constraints (via struct tags) and the
// cross-field invariants that tags cannot express.
func (c *Config) Validate() error {
	if err := validatorInstance().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The offline threshold must exceed the heartbeat interval, or a
	// healthy client would flap Offline between heartbeats.
	if c.Presence.OfflineThreshold <= c.Presence.HeartbeatInterval {
		return fmt.Errorf("presence.offline_threshold (%s) must be greater than presence.heartbeat_interval (%s)",
			c.Presence.OfflineThreshold, c.Presence.HeartbeatInterval)
	}

	if c.Viewport.ZoomMin >= c.Viewport.ZoomMax {
		return fmt.Errorf("viewport.zoom_min (%g) must be less than viewport.zoom_max (%g)",
			c.Viewport.ZoomMin, c.Viewport.ZoomMax)
	}
	if c.Viewport.LODThreshold < c.Viewport.ZoomMin || c.Viewport.LODThreshold > c.Viewport.ZoomMax {
		return fmt.Errorf("viewport.lod_threshold (%g) must lie within the zoom range [%g, %g]",
			c.Viewport.LODThreshold, c.Viewport.ZoomMin, c.Viewport.ZoomMax)
	}
	if c.Viewport.ReconnectInitial > c.Viewport.ReconnectCap {
		return fmt.Errorf("viewport.reconnect_initial (%s) must not exceed viewport.reconnect_cap (%s)",
			c.Viewport.ReconnectInitial, c.Viewport.ReconnectCap)
	}

	return nil
}
