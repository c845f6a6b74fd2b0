// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package systemd

import "errors"

var (
	// ErrDegraded is returned if the init reported a failed startup.
	ErrDegraded = errors.New("init reported degraded state")

	// ErrNotReady is returned if the init did not report a running state
	// within the bounded retry window.
	ErrNotReady = errors.New("init did not become ready in time")
)
