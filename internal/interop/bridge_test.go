// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package interop_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/initns/internal/interop"
)

type fakeSource struct {
	mu       sync.Mutex
	snapshot interop.Snapshot
	err      error
}

func (s *fakeSource) set(snapshot interop.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}

func (s *fakeSource) Current() (interop.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot.Clone(), s.err
}

type fakeSink struct {
	mu        sync.Mutex
	published []interop.Snapshot
	err       error
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Publish(_ context.Context, snapshot interop.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.published = append(s.published, snapshot.Clone())

	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.published)
}

func (s *fakeSink) last() interop.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.published) == 0 {
		return nil
	}

	return s.published[len(s.published)-1]
}

func TestBridgeSyncOncePublishesOnChangeOnly(t *testing.T) {
	source := &fakeSource{
		snapshot: interop.Snapshot{"WSL_INTEROP": "/run/WSL/8_interop"},
	}
	sink := &fakeSink{}

	bridge := &interop.Bridge{
		Source: source,
		Sinks:  []interop.Sink{sink},
	}

	ctx := context.Background()

	require.NoError(t, bridge.SyncOnce(ctx))
	assert.Equal(t, 1, sink.count())

	// Unchanged snapshot is not republished.
	require.NoError(t, bridge.SyncOnce(ctx))
	assert.Equal(t, 1, sink.count())

	// New value reaches the sink on the next sync.
	source.set(interop.Snapshot{"WSL_INTEROP": "/run/WSL/9_interop"})

	require.NoError(t, bridge.SyncOnce(ctx))
	assert.Equal(t, 2, sink.count())
	assert.Equal(t, "/run/WSL/9_interop", sink.last()["WSL_INTEROP"])
}

func TestBridgeSyncOnceRetriesAfterSinkFailure(t *testing.T) {
	source := &fakeSource{
		snapshot: interop.Snapshot{"WSL_INTEROP": "/run/WSL/8_interop"},
	}
	sink := &fakeSink{err: errors.New("guest not reachable")}

	bridge := &interop.Bridge{
		Source: source,
		Sinks:  []interop.Sink{sink},
	}

	ctx := context.Background()

	require.Error(t, bridge.SyncOnce(ctx))

	// The failed snapshot was not marked as published, so the next sync
	// publishes it again.
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	require.NoError(t, bridge.SyncOnce(ctx))
	assert.Equal(t, 1, sink.count())
}

func TestBridgeRunStopsOnContextDone(t *testing.T) {
	source := &fakeSource{snapshot: interop.Snapshot{}}
	sink := &fakeSink{}

	bridge := &interop.Bridge{
		Source:   source,
		Sinks:    []interop.Sink{sink},
		Interval: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- bridge.Run(ctx)
	}()

	// Let a few intervals pass, then stop the loop.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("bridge loop did not stop")
	}
}

func TestBridgeRunSurvivesSourceFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("host env unavailable")}
	sink := &fakeSink{}

	bridge := &interop.Bridge{
		Source:   source,
		Sinks:    []interop.Sink{sink},
		Interval: time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := bridge.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Zero(t, sink.count())
}
