// Deskatlas - Department Seating Charts and Live Presence
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/deskatlas

package notifier

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/deskatlas/internal/logging"
	"github.com/tomtom215/deskatlas/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func testDelta(department, desk string, state models.DeskState) models.PresenceDelta {
	return models.PresenceDelta{
		DepartmentID: department,
		DeskID:       desk,
		SubjectID:    "emp-" + desk,
		State:        state,
		Timestamp:    time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	}
}

func collect(t *testing.T, ch <-chan models.PresenceDelta, n int) []models.PresenceDelta {
	t.Helper()
	out := make([]models.PresenceDelta, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case delta, ok := <-ch:
			if !ok {
				t.Fatalf("stream closed after %d of %d deltas", len(out), n)
			}
			out = append(out, delta)
		case <-timeout:
			t.Fatalf("timed out after %d of %d deltas", len(out), n)
		}
	}
	return out
}

func TestPublishSubscribeOrdering(t *testing.T) {
	n := NewGoChannel(Config{BufferSize: 64})
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := n.Subscribe(ctx, "engineering")
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	const count = 20
	for i := 0; i < count; i++ {
		state := models.StateOnline
		if i%2 == 1 {
			state = models.StateOffline
		}
		delta := testDelta("engineering", fmt.Sprintf("D%02d", i), state)
		if err := n.Publish(ctx, delta); err != nil {
			t.Fatalf("Publish(%d) error: %v", i, err)
		}
	}

	got := collect(t, stream, count)
	for i, delta := range got {
		want := fmt.Sprintf("D%02d", i)
		if delta.DeskID != want {
			t.Fatalf("delta %d desk = %s, want %s (order must match publish order)", i, delta.DeskID, want)
		}
	}
}

func TestTwoSubscribersSeeSameOrder(t *testing.T) {
	n := NewGoChannel(Config{BufferSize: 64})
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := n.Subscribe(ctx, "sales")
	if err != nil {
		t.Fatalf("Subscribe(a) error: %v", err)
	}
	b, err := n.Subscribe(ctx, "sales")
	if err != nil {
		t.Fatalf("Subscribe(b) error: %v", err)
	}

	const count = 10
	for i := 0; i < count; i++ {
		if err := n.Publish(ctx, testDelta("sales", fmt.Sprintf("D%02d", i), models.StateOnline)); err != nil {
			t.Fatalf("Publish(%d) error: %v", i, err)
		}
	}

	gotA := collect(t, a, count)
	gotB := collect(t, b, count)
	for i := range gotA {
		if gotA[i].DeskID != gotB[i].DeskID {
			t.Fatalf("subscriber order diverged at %d: %s vs %s", i, gotA[i].DeskID, gotB[i].DeskID)
		}
	}
}

func TestDepartmentChannelsAreIsolated(t *testing.T) {
	n := NewGoChannel(Config{BufferSize: 64})
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := n.Subscribe(ctx, "engineering")
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	if err := n.Publish(ctx, testDelta("sales", "S1", models.StateOnline)); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if err := n.Publish(ctx, testDelta("engineering", "E1", models.StateOnline)); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	got := collect(t, eng, 1)
	if got[0].DeskID != "E1" {
		t.Errorf("engineering subscriber received %s, want E1 only", got[0].DeskID)
	}
	select {
	case extra := <-eng:
		t.Errorf("unexpected cross-department delta: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	n := NewGoChannel(Config{})
	if err := n.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := n.Publish(context.Background(), testDelta("eng", "D1", models.StateOnline)); err == nil {
		t.Error("expected error publishing after close")
	}
}

func TestPublishRejectsInvalidDelta(t *testing.T) {
	n := NewGoChannel(Config{})
	defer n.Close()

	tests := []struct {
		name  string
		delta models.PresenceDelta
	}{
		{"missing department", models.PresenceDelta{DeskID: "D1", State: models.StateOnline}},
		{"missing desk", models.PresenceDelta{DepartmentID: "eng", State: models.StateOnline}},
		{"bad status", models.PresenceDelta{DepartmentID: "eng", DeskID: "D1", State: "away"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := n.Publish(context.Background(), tt.delta); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSubscribeStreamClosesOnCancel(t *testing.T) {
	n := NewGoChannel(Config{})
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := n.Subscribe(ctx, "engineering")
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	cancel()
	select {
	case _, ok := <-stream:
		if ok {
			t.Error("expected closed stream after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("stream did not close after context cancel")
	}
}
