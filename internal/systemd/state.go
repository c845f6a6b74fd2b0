// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package systemd observes the readiness of a guest's init process.
//
// Init readiness is not observable at process start time. The init program
// forks and initializes asynchronously and its management interface comes
// up late, so readiness is established by polling its reported system
// state with bounded retries.
package systemd

import (
	"context"
	"strings"
)

// State is the system state reported by the init's management interface.
type State string

const (
	// StateStarting means essential units are still being started.
	StateStarting State = "starting"

	// StateRunning means all essential units started without failure.
	StateRunning State = "running"

	// StateDegraded means startup finished but units failed.
	StateDegraded State = "degraded"

	// StateUnknown means the reported state was not recognized.
	StateUnknown State = "unknown"
)

// Querier reports the init process's current system state.
type Querier interface {
	SystemState(ctx context.Context) (State, error)
}

// CommandRunner executes a command inside the guest and returns its
// standard output. The error carries the command's diagnostic output if it
// failed.
type CommandRunner func(ctx context.Context, argv []string) (string, error)

type commandQuerier struct {
	run CommandRunner
}

// NewCommandQuerier returns a [Querier] that asks the guest's service
// manager via "systemctl is-system-running".
func NewCommandQuerier(run CommandRunner) Querier {
	return &commandQuerier{run: run}
}

// SystemState implements [Querier].
//
// systemctl exits non-zero for every state other than running, so the
// output is parsed before the command error is considered. Only a command
// failure without a recognizable state counts as unavailable.
func (q *commandQuerier) SystemState(ctx context.Context) (State, error) {
	output, err := q.run(ctx, []string{"systemctl", "is-system-running"})

	state := ParseSystemState(output)
	if state != StateUnknown {
		return state, nil
	}

	if err != nil {
		return StateUnknown, err
	}

	return StateUnknown, nil
}

// ParseSystemState maps "systemctl is-system-running" output to a [State].
func ParseSystemState(output string) State {
	switch strings.TrimSpace(output) {
	case "initializing", "starting":
		return StateStarting
	case "running":
		return StateRunning
	case "degraded", "maintenance", "stopping", "offline":
		return StateDegraded
	default:
		return StateUnknown
	}
}
