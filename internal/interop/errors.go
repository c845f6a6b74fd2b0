// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package interop

import "errors"

var (
	// ErrMalformedEnvFile is returned if an environment file line is not of
	// the form "KEY=value".
	ErrMalformedEnvFile = errors.New("malformed env file line")

	// ErrNoInteropSocket is returned if no live interop socket can be found
	// in the host's run directory.
	ErrNoInteropSocket = errors.New("no live interop socket found")
)
