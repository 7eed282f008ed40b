// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package config provides layered configuration loading for Deskatlas
// using Koanf v2: built-in defaults, an optional YAML file, and
// DESKATLAS_* environment variables, in increasing precedence.
package config

import (
	"time"
)

// Config is the root configuration for the Deskatlas server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Presence  PresenceConfig  `koanf:"presence"`
	Viewport  ViewportConfig  `koanf:"viewport"`
	Notifier  NotifierConfig  `koanf:"notifier"`
	Directory DirectoryConfig `koanf:"directory"`
	Audit     AuditConfig     `koanf:"audit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// SecurityConfig holds authentication and rate-limit settings.
// Only JWT verification is performed here; issuing tokens is the
// concern of the external auth service.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// PresenceConfig tunes the heartbeat/staleness policy. The staleness
// window is a product tuning parameter, so every value is configurable;
// nothing is hardcoded in the presence logic.
type PresenceConfig struct {
	// HeartbeatInterval is the expected client heartbeat cadence.
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval" validate:"gt=0"`

	// OfflineThreshold is the maximum gap since last_seen before a
	// subject is classified Offline. Must exceed HeartbeatInterval,
	// typically by 2x-3x.
	OfflineThreshold time.Duration `koanf:"offline_threshold" validate:"gt=0"`

	// SweepInterval is the cadence of the staleness evaluator.
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`

	// HeartbeatBurst is the per-subject burst allowance on top of the
	// one-heartbeat-per-interval rate bound.
	HeartbeatBurst int `koanf:"heartbeat_burst" validate:"gte=1"`
}

// ViewportConfig tunes the client-side map viewport behavior.
type ViewportConfig struct {
	ZoomMin          float64       `koanf:"zoom_min" validate:"gt=0"`
	ZoomMax          float64       `koanf:"zoom_max" validate:"gt=0"`
	LODThreshold     float64       `koanf:"lod_threshold" validate:"gt=0"`
	FocusDuration    time.Duration `koanf:"focus_duration" validate:"gt=0"`
	PulseDuration    time.Duration `koanf:"pulse_duration" validate:"gt=0"`
	BatchWindow      time.Duration `koanf:"batch_window" validate:"gt=0"`
	LoadTimeout      time.Duration `koanf:"load_timeout" validate:"gt=0"`
	ReconnectInitial time.Duration `koanf:"reconnect_initial" validate:"gt=0"`
	ReconnectCap     time.Duration `koanf:"reconnect_cap" validate:"gt=0"`
}

// NotifierConfig tunes the presence delta fan-out. The in-process
// GoChannel transport is always available; NATS is an optional
// transport for multi-instance deployments (nats build tag).
type NotifierConfig struct {
	BufferSize int `koanf:"buffer_size" validate:"gte=1"`

	NATSEnabled     bool   `koanf:"nats_enabled"`
	NATSURL         string `koanf:"nats_url"`
	NATSEmbedded    bool   `koanf:"nats_embedded"`
	NATSStoreDir    string `koanf:"nats_store_dir"`
	NATSDurableName string `koanf:"nats_durable_name"`
}

// DirectoryConfig points at the read-only CRUD data (departments,
// desks, assignments, employees, map assets).
type DirectoryConfig struct {
	// Path is the DuckDB database path. Empty means in-memory, which
	// is only useful for tests and demos.
	Path string `koanf:"path"`

	BreakerMaxFailures uint32        `koanf:"breaker_max_failures" validate:"gte=1"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// AuditConfig tunes the presence-transition audit trail.
type AuditConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Path      string        `koanf:"path"`
	Retention time.Duration `koanf:"retention" validate:"gt=0"`
}

// LoggingConfig mirrors logging.Config for the loader.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3858,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{},
		},
		Security: SecurityConfig{
			JWTSecret:       "",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Presence: PresenceConfig{
			HeartbeatInterval: 2 * time.Minute,
			OfflineThreshold:  6 * time.Minute,
			SweepInterval:     time.Minute,
			HeartbeatBurst:    3,
		},
		Viewport: ViewportConfig{
			ZoomMin:          0.75,
			ZoomMax:          2.0,
			LODThreshold:     1.0,
			FocusDuration:    1500 * time.Millisecond,
			PulseDuration:    1500 * time.Millisecond,
			BatchWindow:      200 * time.Millisecond,
			LoadTimeout:      10 * time.Second,
			ReconnectInitial: time.Second,
			ReconnectCap:     5 * time.Minute,
		},
		Notifier: NotifierConfig{
			BufferSize:      256,
			NATSEnabled:     false,
			NATSURL:         "nats://127.0.0.1:4222",
			NATSEmbedded:    true,
			NATSStoreDir:    "/data/nats/jetstream",
			NATSDurableName: "presence-fanout",
		},
		Directory: DirectoryConfig{
			Path:               "/data/deskatlas.duckdb",
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:   true,
			Path:      "/data/audit",
			Retention: 30 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
