// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package container

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/aibor/initns/internal/distro"
	"github.com/aibor/initns/internal/interop"
	"github.com/aibor/initns/internal/systemd"
)

// Subcommands of the initns binary re-executed by the launcher. They are
// hidden plumbing, not operator surface.
const (
	GuestInitCommand = "guest-init"
	EnvBridgeCommand = "env-bridge"
)

// Start transforms a created or stopped guest into a running one.
//
// It constructs the isolated namespaces, starts the guest's init as their
// PID 1, waits until the init reports a running system and starts the
// environment bridge daemon. It does not return success before the init
// answered at least one status query with "running". On any failure,
// including cancellation, the record ends up failed and no init process is
// left behind.
func (l *Launcher) Start(ctx context.Context, name string) error {
	return l.store.WithLock(name, func() error {
		return l.start(ctx, name)
	})
}

func (l *Launcher) start(ctx context.Context, name string) error {
	record, err := l.store.Load(name)
	if err != nil {
		return err
	}

	if !record.CanStart() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, name, record.State)
	}

	err = l.ensureRootPathUnused(record)
	if err != nil {
		return err
	}

	err = ValidateRootFS(record.RootPath, l.cfg.InitPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	// The guest shares the host's network view. Host sessions occasionally
	// come up with the loopback link down, which breaks several units, so
	// fix that up front. Best effort, the host may deny it.
	err = EnsureLoopbackUp()
	if err != nil {
		slog.Warn("Loopback link not up", slog.Any("error", err))
	}

	initPID, err := l.spawnGuestInit(record)
	if err != nil {
		record.SetStopped(distro.StateFailed)
		_ = l.store.Save(record)

		return &LaunchError{Name: name, Err: err}
	}

	record.SetStarted(initPID)

	err = l.store.Save(record)
	if err != nil {
		killProcessGroup(initPID)
		return err
	}

	slog.Info("Guest init started",
		slog.String("name", name),
		slog.Int("pid", initPID))

	runner := l.commandRunner(record)

	poller := &systemd.Poller{
		Attempts: l.cfg.Readiness.Attempts,
		Interval: time.Duration(l.cfg.Readiness.Interval),
	}

	err = poller.Wait(ctx, systemd.NewCommandQuerier(runner))
	if err != nil {
		// Collect diagnostics before tearing the guest down, with a fresh
		// context in case the governing one was cancelled.
		diagCtx, cancel := context.WithTimeout(
			context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		diagnostics := systemd.Diagnostics(diagCtx, runner)

		killProcessGroup(initPID)

		record.SetStopped(distro.StateFailed)
		_ = l.store.Save(record)

		return &LaunchError{Name: name, Err: err, Diagnostics: diagnostics}
	}

	record.State = distro.StateRunning

	err = l.store.Save(record)
	if err != nil {
		killProcessGroup(initPID)
		return err
	}

	// Publish the current interop snapshot synchronously once, so the
	// guest is fully usable when start returns. The bridge daemon keeps it
	// fresh from here on.
	bridge := l.newBridge(record)

	err = bridge.SyncOnce(ctx)
	if err != nil {
		slog.Warn("Initial interop sync failed", slog.Any("error", err))
	}

	bridgePID, err := l.spawnBridge(record)
	if err != nil {
		slog.Warn("Environment bridge not started", slog.Any("error", err))
	}

	record.BridgePID = bridgePID

	return l.store.Save(record)
}

// NewBridge returns the environment bridge for the running guest, used by
// the bridge daemon process.
func (l *Launcher) NewBridge(name string) (*interop.Bridge, error) {
	record, err := l.loadRunning(name)
	if err != nil {
		return nil, err
	}

	return l.newBridge(record), nil
}

func (l *Launcher) newBridge(record *distro.Record) *interop.Bridge {
	runner := l.commandRunner(record)

	return &interop.Bridge{
		Source: &interop.HostSource{
			Vars:   l.cfg.Interop.Vars,
			RunDir: l.cfg.Interop.RunDir,
		},
		Sinks: []interop.Sink{
			&interop.EnvFileSink{Root: record.Namespace.ProcRoot},
			&interop.SystemdSink{Run: interop.RunFunc(runner)},
		},
		Interval: time.Duration(l.cfg.Interop.Interval),
	}
}

// ensureRootPathUnused enforces that at most one record is starting or
// running for a given root file system.
func (l *Launcher) ensureRootPathUnused(record *distro.Record) error {
	records, err := l.store.List()
	if err != nil {
		return err
	}

	for _, other := range records {
		if other.Name == record.Name || other.RootPath != record.RootPath {
			continue
		}

		if other.IsLive() && processAlive(other.InitPID) {
			return fmt.Errorf("%w: root path %s in use by %s",
				ErrInvalidState, record.RootPath, other.Name)
		}
	}

	return nil
}

// spawnGuestInit re-executes the initns binary as PID 1 of fresh pid,
// mount and UTS namespaces. The process is detached into its own session
// with its output going to a log file, so it survives the launcher's exit
// and never holds the launcher's terminal.
func (l *Launcher) spawnGuestInit(record *distro.Record) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("own executable: %w", err)
	}

	logFile, err := l.createLogFile(record.Name + "-init.log")
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	//nolint:gosec // Re-executes our own binary.
	cmd := exec.Command(exe,
		GuestInitCommand,
		"--rootfs", record.RootPath,
		"--name", record.Name,
	)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWPID |
			syscall.CLONE_NEWNS |
			syscall.CLONE_NEWUTS,
		Setsid: true,
	}

	err = cmd.Start()
	if err != nil {
		return 0, fmt.Errorf("start guest init: %w", err)
	}

	pid := cmd.Process.Pid

	// Detach. The guest belongs to no single launcher invocation.
	_ = cmd.Process.Release()

	return pid, nil
}

// spawnBridge starts the detached environment bridge daemon for the guest.
func (l *Launcher) spawnBridge(record *distro.Record) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("own executable: %w", err)
	}

	logFile, err := l.createLogFile(record.Name + "-bridge.log")
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	//nolint:gosec // Re-executes our own binary.
	cmd := exec.Command(exe, EnvBridgeCommand, "--name", record.Name)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	err = cmd.Start()
	if err != nil {
		return 0, fmt.Errorf("start bridge: %w", err)
	}

	pid := cmd.Process.Pid

	_ = cmd.Process.Release()

	return pid, nil
}

func (l *Launcher) createLogFile(name string) (*os.File, error) {
	err := os.MkdirAll(l.cfg.LogDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(l.cfg.LogDir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return file, nil
}

// killProcessGroup force-terminates the session started for the guest
// init. The init is a session leader, so its process group covers all
// remaining guest processes from the host's point of view.
func killProcessGroup(pid int) {
	_ = unix.Kill(-pid, unix.SIGKILL)
}
