// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package distro persists the description of a guest installation across
// command invocations. The record on disk is the single source of truth
// about a guest's lifecycle state. No in-process state outlives a command.
package distro

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a guest installation.
type State string

const (
	StateUncreated State = "uncreated"
	StateCreated   State = "created"
	StateStarting  State = "starting"
	StateRunning   State = "running"
	StateStopping  State = "stopping"
	StateStopped   State = "stopped"
	StateFailed    State = "failed"
)

// Namespace is the handle to a guest's isolated process and mount context.
// All paths are in the host's view of procfs and stay valid as long as the
// guest's init process is alive.
type Namespace struct {
	// ProcRoot is the guest's root file system as seen through its init
	// process, usually /proc/<pid>/root.
	ProcRoot string `toml:"proc_root"`

	// PID is the guest's pid namespace, usually /proc/<pid>/ns/pid.
	PID string `toml:"pid_ns"`

	// Mount is the guest's mount namespace, usually /proc/<pid>/ns/mnt.
	Mount string `toml:"mnt_ns"`
}

// Record describes one guest installation.
type Record struct {
	// Name is the unique identity of the installation.
	Name string `toml:"name"`

	// RootPath is the absolute path of the guest's root file system on the
	// host.
	RootPath string `toml:"root_path"`

	// State is the current lifecycle state.
	State State `toml:"state"`

	// InitPID is the host pid of the guest's init process. Only valid in
	// states starting and running.
	InitPID int `toml:"init_pid,omitempty"`

	// BridgePID is the host pid of the environment bridge daemon belonging
	// to the running guest, if any.
	BridgePID int `toml:"bridge_pid,omitempty"`

	// Namespace is the guest's namespace handle. Only valid in states
	// starting, running and stopping.
	Namespace Namespace `toml:"namespace,omitempty"`

	CreatedAt time.Time `toml:"created_at"`
	StartedAt time.Time `toml:"started_at,omitempty"`
}

// CanStart reports whether the record may transition into starting. Only
// created and stopped guests may start; a failed one keeps its state for
// inspection until it is reinstalled.
func (r *Record) CanStart() bool {
	switch r.State {
	case StateCreated, StateStopped:
		return true
	default:
		return false
	}
}

// IsLive reports whether the record claims a live init process.
func (r *Record) IsLive() bool {
	switch r.State {
	case StateStarting, StateRunning:
		return r.InitPID > 0
	default:
		return false
	}
}

// SetStarted records the init pid together with its namespace handle and
// enters the starting state. Both fields are only ever set as a pair.
func (r *Record) SetStarted(initPID int) {
	r.InitPID = initPID
	r.Namespace = Namespace{
		ProcRoot: fmt.Sprintf("/proc/%d/root", initPID),
		PID:      fmt.Sprintf("/proc/%d/ns/pid", initPID),
		Mount:    fmt.Sprintf("/proc/%d/ns/mnt", initPID),
	}
	r.State = StateStarting
	r.StartedAt = time.Now()
}

// SetStopped clears the init pid together with its namespace handle and
// enters the given terminal state, which must be stopped or failed.
func (r *Record) SetStopped(state State) {
	r.InitPID = 0
	r.BridgePID = 0
	r.Namespace = Namespace{}
	r.State = state
}
