// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guestinit

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sys/unix"
)

// FSType is a file system type.
type FSType string

// Special file system types mounted for the guest init.
const (
	FSTypeCgroup2 FSType = "cgroup2"
	FSTypeDevPts  FSType = "devpts"
	FSTypeDevTmp  FSType = "devtmpfs"
	FSTypeMqueue  FSType = "mqueue"
	FSTypeProc    FSType = "proc"
	FSTypeSys     FSType = "sysfs"
	FSTypeTmp     FSType = "tmpfs"

	defaultDirMode = 0o755
)

// MountOptions contains parameters for one mount point.
type MountOptions struct {
	// FSType is the file system type.
	FSType FSType

	// Source is the source device. If empty, the string of the type is
	// used.
	Source string

	// Flags are mount flags as defined by mount(2).
	Flags uintptr

	// Data are type-dependent extra parameters.
	Data string

	// MayFail marks mount points whose failure does not abort the setup.
	// Kernels and hosts differ in which of the special file systems they
	// provide.
	MayFail bool
}

// MountPoints is a collection of mount points by path.
type MountPoints map[string]MountOptions

// EssentialMountPoints returns the mount points a fresh mount namespace
// needs before an init program can take over.
//
// The new pid namespace requires its own procfs view. The rest is what an
// init expects to either find or be able to use right away. Everything an
// init mounts itself, like the cgroup hierarchy below /sys/fs/cgroup, is
// left to it.
func EssentialMountPoints() MountPoints {
	return MountPoints{
		"/proc":          {FSType: FSTypeProc},
		"/sys":           {FSType: FSTypeSys},
		"/sys/fs/cgroup": {FSType: FSTypeCgroup2, MayFail: true},
		"/dev":           {FSType: FSTypeDevTmp, MayFail: true},
		"/dev/pts":       {FSType: FSTypeDevPts, MayFail: true},
		"/dev/shm":       {FSType: FSTypeTmp, MayFail: true},
		"/dev/mqueue":    {FSType: FSTypeMqueue, MayFail: true},
		"/run":           {FSType: FSTypeTmp, Data: "mode=755"},
		"/tmp":           {FSType: FSTypeTmp},
	}
}

// Mount mounts the file system of the given type at root/path. The mount
// point is created if it does not exist.
func Mount(root, path string, opts MountOptions) error {
	target := filepath.Join(root, path)

	err := os.MkdirAll(target, defaultDirMode)
	if err != nil {
		return fmt.Errorf("mkdir %s: %w", target, err)
	}

	source := opts.Source
	if source == "" {
		source = string(opts.FSType)
	}

	err = unix.Mount(source, target, string(opts.FSType), opts.Flags, opts.Data)
	if err != nil {
		return fmt.Errorf("mount %s (%s): %w", target, opts.FSType, err)
	}

	return nil
}

// MountAll mounts the given mount points below root in lexicographic
// order, so parents are mounted before their children. Failures of mount
// points marked MayFail are collected and returned as
// [OptionalMountError] once all other mounts succeeded.
func MountAll(root string, mountPoints MountPoints) error {
	var optionalErrs OptionalMountError

	for _, path := range slices.Sorted(maps.Keys(mountPoints)) {
		opts := mountPoints[path]

		err := Mount(root, path, opts)
		if err != nil {
			if !opts.MayFail {
				return err
			}

			optionalErrs = append(optionalErrs, err)
		}
	}

	if optionalErrs != nil {
		return optionalErrs
	}

	return nil
}

// BindMount binds the host path to the same path below root. The target is
// created as needed.
func BindMount(root, hostPath string) error {
	info, err := os.Stat(hostPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", hostPath, err)
	}

	target := filepath.Join(root, hostPath)

	if info.IsDir() {
		err = os.MkdirAll(target, defaultDirMode)
	} else {
		err = os.MkdirAll(filepath.Dir(target), defaultDirMode)
		if err == nil {
			var file *os.File

			file, err = os.OpenFile(target, os.O_CREATE, 0o644)
			if file != nil {
				_ = file.Close()
			}
		}
	}

	if err != nil {
		return fmt.Errorf("create bind target %s: %w", target, err)
	}

	err = unix.Mount(hostPath, target, "", unix.MS_BIND|unix.MS_REC, "")
	if err != nil {
		return fmt.Errorf("bind %s: %w", hostPath, err)
	}

	return nil
}
