// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package interop

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// SocketVar is the variable carrying the host interop socket path.
const SocketVar = "WSL_INTEROP"

const socketSuffix = "_interop"

// Source provides the current host-side interop values.
type Source interface {
	Current() (Snapshot, error)
}

// HostSource reads the configured variables from the process environment
// and re-resolves the interop socket path against the host's run
// directory, since the socket the process inherited at spawn time may have
// been replaced by a newer session.
type HostSource struct {
	// Vars are the variable names to mirror.
	Vars []string

	// RunDir is the host directory holding the per-session interop
	// sockets. Empty disables socket re-resolution.
	RunDir string
}

// Current implements [Source].
func (s *HostSource) Current() (Snapshot, error) {
	snapshot := Snapshot{}

	for _, name := range s.Vars {
		if value, ok := os.LookupEnv(name); ok {
			snapshot[name] = value
		}
	}

	if s.RunDir == "" {
		return snapshot, nil
	}

	socket, err := s.liveSocket(snapshot[SocketVar])
	if err != nil {
		if errors.Is(err, ErrNoInteropSocket) && snapshot[SocketVar] == "" {
			// Host without interop support. Not an error, there is just
			// nothing to bridge for this variable.
			return snapshot, nil
		}

		return snapshot, err
	}

	snapshot[SocketVar] = socket

	return snapshot, nil
}

// liveSocket returns the interop socket path to publish. The inherited
// path is kept as long as its session leader is still alive. Otherwise the
// run directory is scanned for the most recent socket with a live leader.
func (s *HostSource) liveSocket(current string) (string, error) {
	if current != "" && socketAlive(current) {
		return current, nil
	}

	entries, err := os.ReadDir(s.RunDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoInteropSocket
		}

		return "", fmt.Errorf("scan %s: %w", s.RunDir, err)
	}

	var (
		newest     string
		newestTime time.Time
	)

	for _, entry := range entries {
		path := filepath.Join(s.RunDir, entry.Name())
		if !socketAlive(path) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if newest == "" || info.ModTime().After(newestTime) {
			newest = path
			newestTime = info.ModTime()
		}
	}

	if newest == "" {
		return "", ErrNoInteropSocket
	}

	return newest, nil
}

// socketAlive reports whether path looks like an interop socket whose
// session leader process still exists.
func socketAlive(path string) bool {
	name := filepath.Base(path)

	pidStr, found := strings.CutSuffix(name, socketSuffix)
	if !found {
		return false
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return false
	}

	_, err = os.Stat(path)
	if err != nil {
		return false
	}

	// Signal 0 only checks for existence. EPERM still means the process
	// exists.
	err = unix.Kill(pid, 0)

	return err == nil || errors.Is(err, unix.EPERM)
}
