// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package guestinit prepares a freshly created pid and mount namespace and
// hands it over to the guest's real init program.
//
// It runs as PID 1 of the new namespaces, spawned by the launcher via
// re-execution of the initns binary. Once the mount tree is set up it
// replaces itself with the guest's init, which therefore keeps PID 1. Init
// programs like systemd refuse to operate as anything else, since they
// mount /proc and manage cgroups under the assumption of owning the
// process tree.
package guestinit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/aibor/initns/internal/interop"
)

const pivotDir = ".initns-pivot"

// Setup describes the namespace preparation.
type Setup struct {
	// RootFS is the guest root file system path in the host's mount view.
	RootFS string

	// InitPath is the init program path inside the guest root.
	InitPath string

	// Hostname is set inside the guest's UTS namespace.
	Hostname string

	// BindMounts are host paths kept reachable inside the guest. Missing
	// paths are skipped, not every host session provides all of them.
	BindMounts []string

	// Snapshot is the interop environment seeded into the guest before
	// init starts. The bridge takes over afterwards.
	Snapshot interop.Snapshot
}

// Run prepares the namespaces and executes the guest's init program in
// place. It only returns on error.
func Run(setup Setup) error {
	if os.Getpid() != 1 {
		return ErrNotPidOne
	}

	// Unshared mount namespaces may still share mount events with the
	// host. Make the whole tree private first, nothing done in here may
	// leak back.
	err := unix.Mount("", "/", "", unix.MS_REC|unix.MS_PRIVATE, "")
	if err != nil {
		return fmt.Errorf("make mounts private: %w", err)
	}

	err = mountGuestFS(setup.RootFS, setup.BindMounts)
	if err != nil {
		return err
	}

	err = (&interop.EnvFileSink{Root: setup.RootFS}).
		Publish(context.Background(), setup.Snapshot)
	if err != nil {
		return fmt.Errorf("seed interop environment: %w", err)
	}

	if setup.Hostname != "" {
		err = unix.Sethostname([]byte(setup.Hostname))
		if err != nil {
			return fmt.Errorf("set hostname: %w", err)
		}
	}

	err = pivotRoot(setup.RootFS)
	if err != nil {
		return err
	}

	if _, err := os.Stat(setup.InitPath); err != nil {
		return fmt.Errorf("%w: %s", ErrNoInit, setup.InitPath)
	}

	env := []string{
		"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		"container=initns",
	}

	err = unix.Exec(setup.InitPath, []string{setup.InitPath}, env)

	// Exec does not return on success.
	return fmt.Errorf("exec %s: %w", setup.InitPath, err)
}

// mountGuestFS assembles the guest's mount tree below rootFS: the root
// bind, the essential pseudo file systems, then the host shares. The host
// shares go last, since some of them live below /run or /tmp and the fresh
// tmpfs mounted there would shadow an earlier bind.
func mountGuestFS(rootFS string, bindMounts []string) error {
	// pivot_root requires the new root to be a mount point.
	err := unix.Mount(rootFS, rootFS, "", unix.MS_BIND|unix.MS_REC, "")
	if err != nil {
		return fmt.Errorf("bind guest root: %w", err)
	}

	err = MountAll(rootFS, EssentialMountPoints())

	var optionalErrs OptionalMountError
	if errors.As(err, &optionalErrs) {
		for _, err := range optionalErrs {
			slog.Info("Optional mount failed", slog.Any("error", err))
		}
	} else if err != nil {
		return err
	}

	for _, hostPath := range bindMounts {
		if _, err := os.Stat(hostPath); err != nil {
			slog.Debug("Skipping absent bind mount",
				slog.String("path", hostPath))

			continue
		}

		err := BindMount(rootFS, hostPath)
		if err != nil {
			return err
		}
	}

	return nil
}

// pivotRoot makes newRoot the root of the mount namespace and detaches the
// previous root, so no host mounts stay reachable from inside the guest.
func pivotRoot(newRoot string) error {
	putOld := filepath.Join(newRoot, pivotDir)

	err := os.MkdirAll(putOld, 0o700)
	if err != nil {
		return fmt.Errorf("create pivot dir: %w", err)
	}

	err = unix.PivotRoot(newRoot, putOld)
	if err != nil {
		return fmt.Errorf("pivot root: %w", err)
	}

	err = unix.Chdir("/")
	if err != nil {
		return fmt.Errorf("chdir new root: %w", err)
	}

	err = unix.Unmount("/"+pivotDir, unix.MNT_DETACH)
	if err != nil {
		return fmt.Errorf("detach old root: %w", err)
	}

	err = os.Remove("/" + pivotDir)
	if err != nil {
		return fmt.Errorf("remove pivot dir: %w", err)
	}

	return nil
}
