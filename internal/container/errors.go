// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package container

import (
	"errors"
	"strings"
)

var (
	// ErrAlreadyExists is returned if a guest with the given name was
	// already created.
	ErrAlreadyExists = errors.New("distro already exists")

	// ErrInvalidImage is returned if a root file system misses required
	// structure, like an init program.
	ErrInvalidImage = errors.New("invalid root file system")

	// ErrInvalidState is returned if an operation is not valid for the
	// record's current lifecycle state.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrNotRunning is returned if an operation requires a running guest.
	ErrNotRunning = errors.New("distro is not running")
)

// LaunchError is returned if constructing the guest's namespace or
// bringing its init to readiness failed. It carries diagnostics collected
// from the broken guest, so the operator does not need a second round-trip
// to see what failed.
type LaunchError struct {
	Name        string
	Err         error
	Diagnostics []string
}

// Error implements the [error] interface.
func (e *LaunchError) Error() string {
	msg := "launch " + e.Name + ": " + e.Err.Error()

	if len(e.Diagnostics) > 0 {
		msg += "\n" + strings.Join(e.Diagnostics, "\n")
	}

	return msg
}

// Is implements the [errors.Is] interface.
func (e *LaunchError) Is(other error) bool {
	_, ok := other.(*LaunchError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *LaunchError) Unwrap() error {
	return e.Err
}

// ExecError is returned if a command could not be spawned inside the
// guest. It is never returned for commands that ran and exited non-zero.
type ExecError struct {
	Name string
	Err  error
}

// Error implements the [error] interface.
func (e *ExecError) Error() string {
	return "exec " + e.Name + ": " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (e *ExecError) Is(other error) bool {
	_, ok := other.(*ExecError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *ExecError) Unwrap() error {
	return e.Err
}
