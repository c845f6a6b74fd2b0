// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package interop

import (
	"context"
	"log/slog"
	"time"
)

// Bridge periodically mirrors the host's current interop values into the
// guest through its sinks.
//
// It runs for the lifetime of a running guest. Individual read or publish
// failures are logged and retried on the next interval. Losing interop env
// freshness degrades a feature, it never brings down the guest, so the
// loop has no failure mode of its own.
type Bridge struct {
	Source   Source
	Sinks    []Sink
	Interval time.Duration

	published Snapshot
}

// SyncOnce reads the current host snapshot and publishes it if it differs
// from the last published one. It returns the first error encountered, for
// callers that want an immediate synchronous publish, like start.
func (b *Bridge) SyncOnce(ctx context.Context) error {
	snapshot, err := b.Source.Current()
	if err != nil {
		return err
	}

	if snapshot.Equal(b.published) {
		return nil
	}

	var firstErr error

	for _, sink := range b.Sinks {
		err := sink.Publish(ctx, snapshot)
		if err != nil {
			slog.Warn("Interop publish failed",
				slog.String("sink", sink.Name()),
				slog.Any("error", err))

			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr == nil {
		b.published = snapshot.Clone()

		slog.Debug("Published interop environment",
			slog.Int("vars", len(snapshot)))
	}

	return firstErr
}

// Run synchronizes immediately and then on every interval until the
// context is done. It only ever returns the context's error.
func (b *Bridge) Run(ctx context.Context) error {
	err := b.SyncOnce(ctx)
	if err != nil {
		slog.Warn("Interop sync failed", slog.Any("error", err))
	}

	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := b.SyncOnce(ctx)
			if err != nil {
				slog.Warn("Interop sync failed", slog.Any("error", err))
			}
		}
	}
}
