// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInstallDir is returned when neither a flag nor the environment
	// nor the configuration names an installation directory.
	ErrNoInstallDir = errors.New("no installation directory given")

	// ErrMalformedEnvVar is returned for exec --env values without a key.
	ErrMalformedEnvVar = errors.New("environment variable must be KEY=value")
)

// exitCodeError carries the guest command's exit code through cobra's
// error return up to [Run] without being printed as an error.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitCodeError) Is(other error) bool {
	_, ok := other.(*exitCodeError)
	return ok
}
