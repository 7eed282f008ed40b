// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestValidateStalenessWindow(t *testing.T) {
	tests := []struct {
		name      string
		heartbeat time.Duration
		threshold time.Duration
		wantErr   bool
	}{
		{"threshold 3x heartbeat", 2 * time.Minute, 6 * time.Minute, false},
		{"threshold equal to heartbeat", 2 * time.Minute, 2 * time.Minute, true},
		{"threshold below heartbeat", 2 * time.Minute, time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Presence.HeartbeatInterval = tt.heartbeat
			cfg.Presence.OfflineThreshold = tt.threshold

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateZoomRange(t *testing.T) {
	cfg := defaultConfig()
	cfg.Viewport.ZoomMin = 2.0
	cfg.Viewport.ZoomMax = 0.75

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for inverted zoom range")
	}
}

func TestValidateLODWithinZoomRange(t *testing.T) {
	cfg := defaultConfig()
	cfg.Viewport.LODThreshold = 5.0

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for LOD threshold outside zoom range")
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"DESKATLAS_SERVER_PORT", "server.port"},
		{"DESKATLAS_PRESENCE_OFFLINE_THRESHOLD", "presence.offline_threshold"},
		{"DESKATLAS_VIEWPORT_ZOOM_MIN", "viewport.zoom_min"},
		{"DESKATLAS_LOGGING_LEVEL", "logging.level"},
	}

	for _, tt := range tests {
		if got := envTransform(tt.input); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoadWithYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9099\npresence:\n  sweep_interval: 30s\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9099 {
		t.Errorf("Server.Port = %d, want 9099 (from file)", cfg.Server.Port)
	}
	if cfg.Presence.SweepInterval != 30*time.Second {
		t.Errorf("SweepInterval = %s, want 30s (from file)", cfg.Presence.SweepInterval)
	}
	// Untouched values keep defaults.
	if cfg.Viewport.ZoomMax != 2.0 {
		t.Errorf("ZoomMax = %g, want default 2.0", cfg.Viewport.ZoomMax)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9099\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("DESKATLAS_SERVER_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100 (env over file)", cfg.Server.Port)
	}
}
