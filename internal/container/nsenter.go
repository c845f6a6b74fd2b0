// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package container

import (
	"fmt"
	"os/exec"
	"runtime"

	"golang.org/x/sys/unix"
)

// startInPIDNamespace starts the command with its pid namespace joined to
// the one at nsPath.
//
// setns with CLONE_NEWPID does not move the calling thread, it changes the
// namespace given to children of that thread. The Go runtime schedules
// goroutines across threads, so the setns and the subsequent fork must
// happen on the same locked thread. The thread is left locked and dies
// with the goroutine, discarding its modified namespace attribute instead
// of restoring it.
func startInPIDNamespace(cmd *exec.Cmd, nsPath string) error {
	errCh := make(chan error, 1)

	go func() {
		runtime.LockOSThread()

		fd, err := unix.Open(nsPath, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			errCh <- fmt.Errorf("open pid namespace %s: %w", nsPath, err)
			return
		}
		defer unix.Close(fd)

		err = unix.Setns(fd, unix.CLONE_NEWPID)
		if err != nil {
			errCh <- fmt.Errorf("join pid namespace: %w", err)
			return
		}

		errCh <- cmd.Start()
	}()

	return <-errCh
}
