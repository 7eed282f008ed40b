// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

//go:build nats

package main

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/deskatlas/internal/config"
	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/notifier"
)

// NATSComponents holds the optional embedded NATS server for lifecycle
// management. Empty when an external NATS URL is configured.
type NATSComponents struct {
	server *server.Server
}

// Shutdown stops the embedded server, waiting for in-flight messages.
func (c *NATSComponents) Shutdown() {
	if c.server == nil {
		return
	}
	c.server.Shutdown()
	c.server.WaitForShutdown()
}

// initNotifier builds the delta transport. With NATS enabled it starts
// an embedded JetStream server (unless an external URL is configured)
// and connects the watermill-nats notifier; otherwise it falls back to
// the in-process GoChannel transport.
func initNotifier(cfg *config.Config) (*notifier.Notifier, *NATSComponents, error) {
	if !cfg.Notifier.NATSEnabled {
		return notifier.NewGoChannel(notifier.Config{BufferSize: cfg.Notifier.BufferSize}), &NATSComponents{}, nil
	}

	components := &NATSComponents{}
	url := cfg.Notifier.NATSURL

	if cfg.Notifier.NATSEmbedded {
		opts := &server.Options{
			ServerName: "deskatlas-presence",
			JetStream:  true,
			StoreDir:   cfg.Notifier.NATSStoreDir,
			DontListen: false,
		}
		ns, err := server.NewServer(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("create embedded NATS server: %w", err)
		}
		ns.ConfigureLogger()
		go ns.Start()
		if !ns.ReadyForConnections(30 * time.Second) {
			ns.Shutdown()
			return nil, nil, fmt.Errorf("embedded NATS server not ready within timeout")
		}
		components.server = ns
		url = ns.ClientURL()
		logging.Info().Str("url", url).Str("store_dir", cfg.Notifier.NATSStoreDir).Msg("Embedded NATS server started")
	}

	notif, err := notifier.NewNATS(notifier.NATSConfig{
		URL:         url,
		DurableName: cfg.Notifier.NATSDurableName,
	})
	if err != nil {
		components.Shutdown()
		return nil, nil, fmt.Errorf("connect NATS notifier: %w", err)
	}
	return notif, components, nil
}
