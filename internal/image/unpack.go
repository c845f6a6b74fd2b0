// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package image

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Unpacker materializes a root file system archive into a directory.
type Unpacker interface {
	Unpack(ctx context.Context, archivePath, destDir string) error
}

// TarUnpacker unpacks tar archives, compressed or not, using the system
// tar, which knows how to restore device nodes, ownership and extended
// attributes of a full root file system.
type TarUnpacker struct{}

// Unpack implements [Unpacker].
func (TarUnpacker) Unpack(ctx context.Context, archivePath, destDir string) error {
	err := os.MkdirAll(destDir, 0o755)
	if err != nil {
		return fmt.Errorf("create install dir: %w", err)
	}

	//nolint:gosec // Paths come from the operator.
	cmd := exec.CommandContext(ctx,
		"tar",
		"--numeric-owner",
		"--xattrs",
		"-xpf", archivePath,
		"-C", destDir,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		return fmt.Errorf("unpack %s: %w: %s",
			archivePath, err, bytes.TrimSpace(stderr.Bytes()))
	}

	return nil
}
