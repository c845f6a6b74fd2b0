// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aibor/initns/internal/distro"
	"github.com/aibor/initns/internal/image"
)

// Create materializes a new guest installation named name at installDir
// and registers it in the store.
//
// If installDir is empty or missing, the archive at imagePath is unpacked
// into it first. How the archive was obtained is none of this function's
// business, it only ever sees a local path. A pre-populated installDir is
// registered as-is, so an installation survives a lost state directory.
func (l *Launcher) Create(
	ctx context.Context,
	imagePath string,
	installDir string,
	name string,
	unpacker image.Unpacker,
) (*distro.Record, error) {
	absDir, err := filepath.Abs(installDir)
	if err != nil {
		return nil, fmt.Errorf("resolve install dir: %w", err)
	}

	var record *distro.Record

	err = l.store.WithLock(name, func() error {
		existing, err := l.store.Load(name)
		if err != nil && !errors.Is(err, distro.ErrNotFound) {
			return err
		}

		if existing != nil && existing.State != distro.StateUncreated {
			return fmt.Errorf("%w: %s is %s",
				ErrAlreadyExists, name, existing.State)
		}

		populated, err := dirPopulated(absDir)
		if err != nil {
			return err
		}

		if !populated {
			slog.Info("Unpacking root file system",
				slog.String("image", imagePath),
				slog.String("dir", absDir))

			err = unpacker.Unpack(ctx, imagePath, absDir)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidImage, err)
			}
		}

		err = ValidateRootFS(absDir, l.cfg.InitPath)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidImage, err)
		}

		record = &distro.Record{
			Name:      name,
			RootPath:  absDir,
			State:     distro.StateCreated,
			CreatedAt: time.Now(),
		}

		return l.store.Save(record)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

func dirPopulated(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("read install dir: %w", err)
	}

	return len(entries) > 0, nil
}
