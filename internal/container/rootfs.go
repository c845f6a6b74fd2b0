// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package container

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const maxSymlinkDepth = 16

var (
	errNotADirectory   = errors.New("not a directory")
	errEmptyRootFS     = errors.New("root file system is empty")
	errNoInitProgram   = errors.New("no init program")
	errInitNotRegular  = errors.New("init program is not a regular file")
	errInitNotExec     = errors.New("init program is not executable")
	errTooManySymlinks = errors.New("too many symlink levels")
	errNoEtcDirectory  = errors.New("no /etc directory")
)

// ValidateRootFS checks that dir contains a usable guest root file system:
// non-empty, with an /etc directory and an executable init program at
// initPath.
func ValidateRootFS(dir, initPath string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("root file system: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", errNotADirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read root file system: %w", err)
	}

	if len(entries) == 0 {
		return fmt.Errorf("%w: %s", errEmptyRootFS, dir)
	}

	etcInfo, err := os.Stat(filepath.Join(dir, "etc"))
	if err != nil || !etcInfo.IsDir() {
		return fmt.Errorf("%w in %s", errNoEtcDirectory, dir)
	}

	resolved, err := resolveInRoot(dir, initPath)
	if err != nil {
		return fmt.Errorf("%w at %s: %w", errNoInitProgram, initPath, err)
	}

	initInfo, err := os.Stat(filepath.Join(dir, resolved))
	if err != nil {
		return fmt.Errorf("%w at %s: %w", errNoInitProgram, initPath, err)
	}

	if !initInfo.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", errInitNotRegular, resolved)
	}

	if initInfo.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s", errInitNotExec, resolved)
	}

	return nil
}

// resolveInRoot resolves symlinks of the guest-absolute path relative to
// root. Absolute symlink targets refer to the guest's root, not the
// host's, so [filepath.EvalSymlinks] cannot be used. Typical guest roots
// link /sbin/init to something like /lib/systemd/systemd.
func resolveInRoot(root, path string) (string, error) {
	current := path

	for range maxSymlinkDepth {
		info, err := os.Lstat(filepath.Join(root, current))
		if err != nil {
			return "", err
		}

		if info.Mode()&fs.ModeSymlink == 0 {
			return current, nil
		}

		target, err := os.Readlink(filepath.Join(root, current))
		if err != nil {
			return "", err
		}

		if filepath.IsAbs(target) {
			current = target
		} else {
			// Join cleans the result, so ".." elements cannot climb out
			// of the guest root.
			current = filepath.Join(filepath.Dir(current), target)
		}
	}

	return "", fmt.Errorf("%w: %s", errTooManySymlinks, path)
}
