// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/aibor/initns/internal/distro"
)

// haltSignal asks a systemd init to halt, the container equivalent of
// powering off. systemd counts real-time signals from the glibc SIGRTMIN,
// which sits at 34 after the two signals glibc reserves internally.
const haltSignal = unix.Signal(34 + 3)

const killPollInterval = 100 * time.Millisecond

// Stop terminates the running guest named name.
//
// The init process is asked to shut down and gets a bounded grace period
// to do so. Whatever remains afterwards is force-terminated. Stop only
// fails if no running guest exists or the record cannot be updated.
func (l *Launcher) Stop(ctx context.Context, name string) error {
	return l.store.WithLock(name, func() error {
		return l.stop(ctx, name)
	})
}

func (l *Launcher) stop(ctx context.Context, name string) error {
	record, err := l.store.Load(name)
	if err != nil {
		if errors.Is(err, distro.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrNotRunning, err)
		}

		return err
	}

	if !record.IsLive() {
		return fmt.Errorf("%w: %s is %s", ErrNotRunning, name, record.State)
	}

	initPID := record.InitPID
	bridgePID := record.BridgePID

	record.State = distro.StateStopping

	err = l.store.Save(record)
	if err != nil {
		return err
	}

	if bridgePID > 0 && processAlive(bridgePID) {
		_ = unix.Kill(bridgePID, unix.SIGTERM)
	}

	if processAlive(initPID) {
		err = unix.Kill(initPID, haltSignal)
		if err != nil {
			slog.Debug("Halt signal not delivered", slog.Any("error", err))
		}

		if !awaitExit(ctx, initPID, time.Duration(l.cfg.StopGracePeriod)) {
			slog.Warn("Guest did not halt in time, killing it",
				slog.String("name", name),
				slog.Int("pid", initPID))

			killProcessGroup(initPID)
		}
	}

	record.SetStopped(distro.StateStopped)

	return l.store.Save(record)
}

// awaitExit polls until the process is gone or the grace period elapsed.
// A cancelled context cuts the grace period short, the subsequent kill
// still happens.
func awaitExit(ctx context.Context, pid int, grace time.Duration) bool {
	deadline := time.Now().Add(grace)

	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return true
		}

		select {
		case <-ctx.Done():
			return !processAlive(pid)
		case <-time.After(killPollInterval):
		}
	}

	return !processAlive(pid)
}
