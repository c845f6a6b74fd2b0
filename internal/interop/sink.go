// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package interop

import "context"

// Sink publishes a snapshot into one location guest processes pick their
// environment up from.
//
// Which locations exist depends on the guest's init and its privilege
// escalation policy, so the bridge treats them as pluggable. A sink must
// make the new values visible to processes spawned after Publish returns.
type Sink interface {
	// Name identifies the sink in log messages.
	Name() string

	// Publish makes the snapshot the current ambient environment.
	Publish(ctx context.Context, snapshot Snapshot) error
}
