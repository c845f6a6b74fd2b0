// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package interop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Guest paths maintained by the [EnvFileSink], relative to the guest root.
const (
	// EnvFilePath holds the current interop values as "KEY=value" lines.
	// It is read by exec for the ambient environment and sourced by the
	// profile snippet for login shells.
	EnvFilePath = "/run/initns/interop.env"

	// SudoersDropInPath makes sudo load the env file on every invocation.
	// sudo strips inherited environment variables by policy, but an
	// env_file is re-read each time, so even commands run through sudo
	// observe the current values instead of stale ones.
	SudoersDropInPath = "/etc/sudoers.d/initns-interop"
)

const sudoersDropIn = "Defaults env_file=" + EnvFilePath + "\n"

// EnvFileSink publishes snapshots as an environment file inside the guest
// root, plus a sudoers drop-in pointing at it.
type EnvFileSink struct {
	// Root is the guest root file system as seen by this process. Either
	// the plain root path or the running guest's /proc/<pid>/root view.
	Root string
}

// Name implements [Sink].
func (s *EnvFileSink) Name() string {
	return "env-file"
}

// Publish implements [Sink]. The env file is replaced atomically so a
// concurrent reader never observes a partial snapshot.
func (s *EnvFileSink) Publish(_ context.Context, snapshot Snapshot) error {
	path := filepath.Join(s.Root, EnvFilePath)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("create env dir: %w", err)
	}

	tmpPath := path + ".tmp"

	err = os.WriteFile(tmpPath, snapshot.Render(), 0o644)
	if err != nil {
		return fmt.Errorf("write env file: %w", err)
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace env file: %w", err)
	}

	return s.ensureSudoersDropIn()
}

// ReadEnvFile returns the currently published snapshot from the guest root.
// A guest without a published snapshot yields an empty one.
func ReadEnvFile(root string) (Snapshot, error) {
	file, err := os.Open(filepath.Join(root, EnvFilePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, nil
		}

		return nil, fmt.Errorf("open env file: %w", err)
	}
	defer file.Close()

	return ParseEnvFile(file)
}

func (s *EnvFileSink) ensureSudoersDropIn() error {
	path := filepath.Join(s.Root, SudoersDropInPath)

	current, err := os.ReadFile(path)
	if err == nil && bytes.Equal(current, []byte(sudoersDropIn)) {
		return nil
	}

	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("create sudoers dir: %w", err)
	}

	// sudo refuses drop-ins that are writable by others.
	err = os.WriteFile(path, []byte(sudoersDropIn), 0o440)
	if err != nil {
		return fmt.Errorf("write sudoers drop-in: %w", err)
	}

	return nil
}
