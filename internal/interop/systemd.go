// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package interop

import (
	"context"
	"fmt"
)

// RunFunc executes a command inside the running guest and returns its
// standard output.
type RunFunc func(ctx context.Context, argv []string) (string, error)

// SystemdSink publishes snapshots into the guest init's manager
// environment via "systemctl set-environment". Every unit spawned after
// the publish inherits the new values.
type SystemdSink struct {
	Run RunFunc
}

// Name implements [Sink].
func (s *SystemdSink) Name() string {
	return "systemd-manager"
}

// Publish implements [Sink].
func (s *SystemdSink) Publish(ctx context.Context, snapshot Snapshot) error {
	if len(snapshot) == 0 {
		return nil
	}

	argv := append([]string{"systemctl", "set-environment"},
		snapshot.Environ()...)

	_, err := s.Run(ctx, argv)
	if err != nil {
		return fmt.Errorf("set manager environment: %w", err)
	}

	return nil
}
