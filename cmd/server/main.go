// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package main is the entry point for the Deskatlas server.
//
// Deskatlas renders department seating charts with live desk presence.
// Employees' workstation agents POST heartbeats; a staleness evaluator
// derives Online/Offline; viewers subscribe to per-department delta
// streams over WebSocket and can search for colleagues by name.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered load (defaults, YAML file, env)
//  2. Directory: DuckDB read model of desks, assignments, employees,
//     published floor plans, wrapped in a circuit breaker
//  3. Notifier: per-department delta pub/sub (GoChannel, or NATS
//     JetStream with -tags nats)
//  4. Audit trail: BadgerDB transition log (optional)
//  5. Presence: heartbeat ingest, staleness evaluator, aggregator
//  6. WebSocket hub: department rooms with catch-up snapshots
//  7. HTTP server: chi router under a suture supervisor tree
//
// # Build Tags
//
//	go build ./cmd/server              # in-process GoChannel fan-out
//	go build -tags nats ./cmd/server   # NATS JetStream fan-out
//
// # Signal Handling
//
// SIGINT/SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the hub closes client connections, and the audit
// trail flushes its buffer before the process exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/deskatlas/internal/api"
	"github.com/tomtom215/deskatlas/internal/audit"
	"github.com/tomtom215/deskatlas/internal/auth"
	"github.com/tomtom215/deskatlas/internal/config"
	"github.com/tomtom215/deskatlas/internal/directory"
	"github.com/tomtom215/deskatlas/internal/locate"
	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/presence"
	"github.com/tomtom215/deskatlas/internal/supervisor"
	"github.com/tomtom215/deskatlas/internal/supervisor/services"
	ws "github.com/tomtom215/deskatlas/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("directory_path", cfg.Directory.Path).
		Bool("audit_enabled", cfg.Audit.Enabled).
		Bool("nats_enabled", cfg.Notifier.NATSEnabled).
		Msg("Starting Deskatlas")

	// Directory read model, circuit-broken against a wedged DuckDB file
	dir, err := directory.NewDuckDB(&cfg.Directory)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open directory database")
	}
	defer func() {
		if err := dir.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing directory database")
		}
	}()
	brokenDir := directory.NewBreaker(dir, &cfg.Directory)
	logging.Info().Msg("Directory initialized")

	// Delta fan-out transport; NATS variant lives behind the nats tag
	notif, natsComponents, err := initNotifier(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize notifier")
	}
	defer func() {
		if err := notif.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing notifier")
		}
		natsComponents.Shutdown()
	}()

	// Audit trail (optional)
	var recorder presence.TransitionRecorder = audit.NopRecorder{}
	var trail *audit.Trail
	if cfg.Audit.Enabled {
		store, err := audit.NewBadgerStore(&cfg.Audit)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open audit store")
		}
		trail = audit.NewTrail(store)
		recorder = audit.NewRecorder(trail)
		logging.Info().Str("path", cfg.Audit.Path).Dur("retention", cfg.Audit.Retention).Msg("Audit trail enabled")
	}
	defer func() {
		if trail == nil {
			return
		}
		if err := trail.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit trail")
		}
	}()

	// Presence pipeline: ingest is the only Online path, the evaluator
	// the only Offline path; both share the CAS store.
	store := presence.NewMemoryStore()
	ingest := presence.NewIngest(store, auth.SubjectAuthorizer{}, brokenDir, notif, recorder, nil, presence.IngestConfig{
		HeartbeatInterval: cfg.Presence.HeartbeatInterval,
		Burst:             cfg.Presence.HeartbeatBurst,
	})
	evaluator := presence.NewEvaluator(store, brokenDir, notif, recorder, nil, presence.EvaluatorConfig{
		OfflineThreshold: cfg.Presence.OfflineThreshold,
		SweepInterval:    cfg.Presence.SweepInterval,
	})
	aggregator := presence.NewAggregator(store, brokenDir)

	// WebSocket hub: catch-up snapshot on register, then live deltas
	hub := ws.NewHub(aggregator, notif)

	// HTTP surface
	verifier, err := auth.NewVerifier(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to configure token verification")
	}
	handler := api.NewHandler(ingest, aggregator, locate.New(brokenDir), brokenDir)
	wsHandler := api.NewWSHandler(hub, cfg.Server.CORSOrigins)
	router := api.NewRouter(cfg, handler, wsHandler, verifier)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	// Supervisor tree: presence, messaging, api layers
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddPresenceService(evaluator)
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().
		Str("addr", server.Addr).
		Dur("heartbeat_interval", cfg.Presence.HeartbeatInterval).
		Dur("offline_threshold", cfg.Presence.OfflineThreshold).
		Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Deskatlas stopped gracefully")
}
