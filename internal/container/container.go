// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package container creates and supervises the guest's isolated process
// tree.
//
// A guest is a full Linux distribution rooted at its own file system,
// running its real init program as PID 1 of a dedicated pid, mount and UTS
// namespace. The network view is deliberately shared with the host, the
// guest inherits the host session's interfaces and routes.
package container

import (
	"github.com/aibor/initns/internal/config"
	"github.com/aibor/initns/internal/distro"
)

// Launcher manages guest lifecycles against a [distro.Store].
//
// All mutating operations serialize on the store's per-name lock, so
// concurrent invocations from independent processes cannot race each
// other. Exec does not lock at all, spawning into a stable namespace is
// read-only.
type Launcher struct {
	store *distro.Store
	cfg   config.Config
}

// NewLauncher returns a [Launcher] using the given store and
// configuration.
func NewLauncher(store *distro.Store, cfg config.Config) *Launcher {
	return &Launcher{
		store: store,
		cfg:   cfg,
	}
}

// Store returns the underlying record store.
func (l *Launcher) Store() *distro.Store {
	return l.store
}
