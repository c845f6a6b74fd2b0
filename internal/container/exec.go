// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/aibor/initns/internal/distro"
	"github.com/aibor/initns/internal/interop"
	"github.com/aibor/initns/internal/systemd"
)

const guestPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// ExecOptions adjust a single command execution inside the guest.
type ExecOptions struct {
	// Dir is the working directory inside the guest. Defaults to /.
	Dir string

	// Env are additional environment variables. They take precedence over
	// the guest's ambient environment.
	Env map[string]string

	// Stdin, Stdout and Stderr are passed through to the guest process.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Exec runs the command inside the running guest named name, or the
// currently running guest if name is empty, and returns its exit status
// verbatim.
//
// It requires the guest to be running and has no side effects otherwise.
// Arbitrarily many calls may run concurrently against the same guest. Each
// is an independent spawn into the already stable namespace.
func (l *Launcher) Exec(
	ctx context.Context,
	name string,
	argv []string,
	opts ExecOptions,
) (int, error) {
	record, err := l.loadRunning(name)
	if err != nil {
		return -1, err
	}

	return l.execInNamespace(ctx, record, argv, opts)
}

func (l *Launcher) loadRunning(name string) (*distro.Record, error) {
	var (
		record *distro.Record
		err    error
	)

	if name == "" {
		record, err = l.store.LoadRunning()
		if errors.Is(err, distro.ErrNoRunningDistro) {
			return nil, fmt.Errorf("%w: %w", ErrNotRunning, err)
		}
	} else {
		record, err = l.store.Load(name)
	}

	if err != nil {
		return nil, err
	}

	if record.State != distro.StateRunning || record.InitPID == 0 {
		return nil, fmt.Errorf("%w: %s is %s",
			ErrNotRunning, record.Name, record.State)
	}

	// The record may be stale, e.g. after a host shutdown ended the guest
	// without a stop invocation.
	if !processAlive(record.InitPID) {
		return nil, fmt.Errorf("%w: init process %d is gone",
			ErrNotRunning, record.InitPID)
	}

	return record, nil
}

// execInNamespace spawns the command in the guest's pid namespace,
// confined to the guest's mount view via its init process's root.
func (l *Launcher) execInNamespace(
	ctx context.Context,
	record *distro.Record,
	argv []string,
	opts ExecOptions,
) (int, error) {
	if len(argv) == 0 {
		return -1, &ExecError{Name: "", Err: errors.New("empty command")}
	}

	env := l.ambientEnv(record, opts.Env)

	path, err := lookPathInRoot(record.Namespace.ProcRoot, argv[0])
	if err != nil {
		return -1, &ExecError{Name: argv[0], Err: err}
	}

	dir := opts.Dir
	if dir == "" {
		dir = "/"
	}

	cmd := &exec.Cmd{
		Path:   path,
		Args:   argv,
		Dir:    dir,
		Env:    env,
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
		SysProcAttr: &syscall.SysProcAttr{
			Chroot: record.Namespace.ProcRoot,
		},
	}

	err = startInPIDNamespace(cmd, record.Namespace.PID)
	if err != nil {
		return -1, &ExecError{Name: argv[0], Err: err}
	}

	// Forward cancellation to the spawned process.
	waitDone := make(chan struct{})
	defer close(waitDone)

	go func() {
		select {
		case <-ctx.Done():
			_ = cmd.Process.Kill()
		case <-waitDone:
		}
	}()

	err = cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			return exitErr.ExitCode(), nil
		}

		return -1, &ExecError{Name: argv[0], Err: err}
	}

	return 0, nil
}

// ambientEnv builds the environment of a guest process: a minimal base,
// the bridge-maintained interop snapshot and the caller's overrides, in
// ascending precedence.
func (l *Launcher) ambientEnv(
	record *distro.Record,
	overrides map[string]string,
) []string {
	env := map[string]string{
		"PATH": guestPath,
		"HOME": "/root",
	}

	if term, ok := os.LookupEnv("TERM"); ok {
		env["TERM"] = term
	}

	ambient, err := interop.ReadEnvFile(record.Namespace.ProcRoot)
	if err != nil {
		slog.Warn("Interop environment not readable, continuing without",
			slog.String("name", record.Name),
			slog.Any("error", err))
	}

	maps.Copy(env, ambient)

	maps.Copy(env, overrides)

	return mergedEnviron(env)
}

func mergedEnviron(env map[string]string) []string {
	environ := make([]string, 0, len(env))

	for _, key := range slices.Sorted(maps.Keys(env)) {
		environ = append(environ, key+"="+env[key])
	}

	return environ
}

// lookPathInRoot resolves a bare command name against the guest's default
// PATH, below the guest root. The host's PATH resolution does not apply
// inside the chroot, and symlinks must resolve against the guest root,
// since distributions link PATH entries to absolute guest paths.
func lookPathInRoot(root, name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}

	for _, dir := range filepath.SplitList(guestPath) {
		candidate := filepath.Join(dir, name)

		resolved, err := resolveInRoot(root, candidate)
		if err != nil {
			continue
		}

		info, err := os.Stat(filepath.Join(root, resolved))
		if err != nil || info.IsDir() {
			continue
		}

		if info.Mode().Perm()&0o111 != 0 {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
}

// commandRunner returns a [systemd.CommandRunner] that executes commands
// in the guest with captured output, used by the readiness monitor and the
// systemd environment sink.
func (l *Launcher) commandRunner(record *distro.Record) systemd.CommandRunner {
	return func(ctx context.Context, argv []string) (string, error) {
		var stdout, stderr bytes.Buffer

		opts := ExecOptions{
			Stdout: &stdout,
			Stderr: &stderr,
		}

		exitCode, err := l.execInNamespace(ctx, record, argv, opts)
		if err != nil {
			return stdout.String(), err
		}

		if exitCode != 0 {
			return stdout.String(), fmt.Errorf("%s: exit status %d: %s",
				argv[0], exitCode, strings.TrimSpace(stderr.String()))
		}

		return stdout.String(), nil
	}
}

// processAlive reports whether the process with the given pid exists.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)

	return err == nil || errors.Is(err, unix.EPERM)
}
