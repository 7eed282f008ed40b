// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

// Package notifier fans presence deltas out to subscribers, one ordered
// broadcast channel per department.
//
// The default transport is Watermill's in-process GoChannel Pub/Sub,
// whose per-topic delivery preserves publish order - each department
// topic is a single partition. At-least-once delivery is acceptable
// because deltas are full desk-state snapshots, so consumers are
// idempotent. No backlog is kept for disconnected subscribers: a
// reconnecting consumer must re-fetch current state from the status
// aggregator before resuming deltas (catch-up-then-stream).
//
// A NATS JetStream transport is available behind the nats build tag for
// multi-instance deployments.
package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/metrics"
	"github.com/tomtom215/deskatlas/internal/models"
)

// topicPrefix namespaces department topics: presence.delta.<department_id>.
const topicPrefix = "presence.delta."

// Topic returns the broadcast topic for a department.
func Topic(departmentID string) string {
	return topicPrefix + departmentID
}

// Config tunes the notifier transport.
type Config struct {
	// BufferSize is the per-subscriber channel buffer. A subscriber
	// that falls further behind than this blocks its own channel only.
	BufferSize int
}

// Notifier publishes presence deltas onto per-department topics and
// hands subscribers typed delta channels.
type Notifier struct {
	publisher  message.Publisher
	subscriber message.Subscriber

	mu     sync.Mutex
	closed bool
}

// NewGoChannel creates a Notifier on the in-process GoChannel transport.
func NewGoChannel(cfg Config) *Notifier {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.BufferSize),
	}, NewWatermillLogger())
	return &Notifier{publisher: pubsub, subscriber: pubsub}
}

// New creates a Notifier over explicit Watermill publisher/subscriber
// endpoints, used by the NATS transport initialization.
func New(publisher message.Publisher, subscriber message.Subscriber) *Notifier {
	return &Notifier{publisher: publisher, subscriber: subscriber}
}

// Publish emits one delta onto its department's topic. Fire-and-forget
// from the caller's perspective: the send is synchronous into the
// transport, but delivery to subscribers is not awaited.
func (n *Notifier) Publish(_ context.Context, delta models.PresenceDelta) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return fmt.Errorf("notifier is closed")
	}
	n.mu.Unlock()

	payload, err := MarshalDelta(delta)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := n.publisher.Publish(Topic(delta.DepartmentID), msg); err != nil {
		return fmt.Errorf("publish delta for department %s: %w", delta.DepartmentID, err)
	}

	metrics.DeltasPublished.WithLabelValues(string(delta.State)).Inc()
	return nil
}

// Subscribe returns a typed delta stream for one department. The stream
// closes when ctx is canceled. Deltas arrive in publish order; a delta
// that fails to decode is dropped with a log line rather than wedging
// the channel.
func (n *Notifier) Subscribe(ctx context.Context, departmentID string) (<-chan models.PresenceDelta, error) {
	msgs, err := n.subscriber.Subscribe(ctx, Topic(departmentID))
	if err != nil {
		return nil, fmt.Errorf("subscribe to department %s: %w", departmentID, err)
	}

	out := make(chan models.PresenceDelta)
	go func() {
		defer close(out)
		for msg := range msgs {
			delta, err := UnmarshalDelta(msg.Payload)
			if err != nil {
				logging.Error().Err(err).
					Str("department", departmentID).
					Str("message_uuid", msg.UUID).
					Msg("dropping undecodable presence delta")
				msg.Ack()
				continue
			}
			select {
			case out <- delta:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the transport down. Subscribers' channels close; no
// backlog is retained.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true

	if err := n.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	// GoChannel's publisher and subscriber are the same object; avoid a
	// double close when they are identical.
	if any(n.subscriber) != any(n.publisher) {
		if err := n.subscriber.Close(); err != nil {
			return fmt.Errorf("close subscriber: %w", err)
		}
	}
	return nil
}
