// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package distro

import "errors"

var (
	// ErrNotFound is returned if no record exists for the given name.
	ErrNotFound = errors.New("no record for distro")

	// ErrCorruptRecord is returned if a persisted record cannot be parsed.
	// It is surfaced to the caller instead of silently starting over with
	// an empty record.
	ErrCorruptRecord = errors.New("distro record is corrupt")

	// ErrNoRunningDistro is returned if no record is in the running state.
	ErrNoRunningDistro = errors.New("no distro is running")
)
