// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guestinit

import "errors"

var (
	// ErrNotPidOne is returned if the setup does not run as PID 1 of its
	// namespace. The init program started at the end assumes that role.
	ErrNotPidOne = errors.New("process has not PID 1")

	// ErrNoInit is returned if the init program does not exist inside the
	// guest root.
	ErrNoInit = errors.New("no init program in guest root")
)

// OptionalMountError contains all errors of optional mount points.
type OptionalMountError []error

// Error implements the [error] interface.
func (e OptionalMountError) Error() string {
	return errors.Join(e...).Error()
}

// Is implements the [errors.Is] interface.
func (e OptionalMountError) Is(other error) bool {
	_, ok := other.(OptionalMountError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e OptionalMountError) Unwrap() []error {
	return e
}
