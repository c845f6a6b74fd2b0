// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/initns/internal/cmd"
	"github.com/aibor/initns/internal/config"
	"github.com/aibor/initns/internal/distro"
)

type testRun struct {
	stateDir string
	stdout   bytes.Buffer
	stderr   bytes.Buffer
}

func newTestRun(t *testing.T) *testRun {
	t.Helper()

	run := &testRun{stateDir: t.TempDir()}
	t.Setenv(config.EnvStateDir, run.stateDir)

	return run
}

func (r *testRun) run(args ...string) int {
	return cmd.Run(context.Background(), args, cmd.IO{
		Stdin:  bytes.NewReader(nil),
		Stdout: &r.stdout,
		Stderr: &r.stderr,
	})
}

// writeRootFS lays out the smallest directory tree that passes the root
// file system validation.
func writeRootFS(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	for _, dir := range []string{"etc", "sbin", "lib/systemd"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	initPath := filepath.Join(root, "lib/systemd/systemd")
	require.NoError(t, os.WriteFile(initPath, []byte("ELF"), 0o755))
	require.NoError(t,
		os.Symlink("/lib/systemd/systemd", filepath.Join(root, "sbin/init")))

	return root
}

func TestRunUnknownCommand(t *testing.T) {
	run := newTestRun(t)

	rc := run.run("frobnicate")
	assert.Equal(t, 1, rc)
}

func TestRunHelp(t *testing.T) {
	run := newTestRun(t)

	rc := run.run("--help")
	require.Equal(t, 0, rc)

	output := run.stdout.String()
	assert.Contains(t, output, "create")
	assert.Contains(t, output, "start")
	assert.Contains(t, output, "stop")
	assert.Contains(t, output, "exec")
	assert.NotContains(t, output, "guest-init")
	assert.NotContains(t, output, "env-bridge")
}

func TestRunCreate(t *testing.T) {
	t.Run("populated dir", func(t *testing.T) {
		run := newTestRun(t)
		rootFS := writeRootFS(t)

		rc := run.run("create", "--install-dir", rootFS)
		require.Equal(t, 0, rc, run.stderr.String())
		assert.Contains(t, run.stdout.String(), filepath.Base(rootFS))

		record, err := distro.NewStore(run.stateDir).Load(filepath.Base(rootFS))
		require.NoError(t, err)
		assert.Equal(t, distro.StateCreated, record.State)
		assert.Equal(t, rootFS, record.RootPath)
	})

	t.Run("explicit name", func(t *testing.T) {
		run := newTestRun(t)
		rootFS := writeRootFS(t)

		rc := run.run("create", "--install-dir", rootFS, "--name", "lab")
		require.Equal(t, 0, rc, run.stderr.String())

		_, err := distro.NewStore(run.stateDir).Load("lab")
		require.NoError(t, err)
	})

	t.Run("install dir from environment", func(t *testing.T) {
		run := newTestRun(t)
		rootFS := writeRootFS(t)
		t.Setenv(config.EnvInstallDir, rootFS)

		rc := run.run("create", "--name", "lab")
		require.Equal(t, 0, rc, run.stderr.String())
	})

	t.Run("no install dir", func(t *testing.T) {
		run := newTestRun(t)

		rc := run.run("create")
		require.Equal(t, 1, rc)
		assert.Contains(t, run.stderr.String(), "no installation directory")
	})

	t.Run("invalid image", func(t *testing.T) {
		run := newTestRun(t)
		emptyDir := t.TempDir()
		require.NoError(t,
			os.WriteFile(filepath.Join(emptyDir, "README"), nil, 0o644))

		rc := run.run("create", "--install-dir", emptyDir)
		require.Equal(t, 1, rc)
	})
}

func TestRunStartUnknown(t *testing.T) {
	run := newTestRun(t)

	t.Run("unknown name", func(t *testing.T) {
		rc := run.run("start", "--name", "missing")
		assert.Equal(t, 1, rc)
	})

	t.Run("unknown rootfs", func(t *testing.T) {
		rc := run.run("start", "--rootfs", t.TempDir())
		assert.Equal(t, 1, rc)
	})

	t.Run("no rootfs at all", func(t *testing.T) {
		rc := run.run("start")
		assert.Equal(t, 1, rc)
	})
}

func TestRunStopNotRunning(t *testing.T) {
	run := newTestRun(t)

	rc := run.run("stop")
	require.Equal(t, 1, rc)
	assert.Contains(t, run.stderr.String(), "not running")
}

func TestRunExecNotRunning(t *testing.T) {
	run := newTestRun(t)

	rc := run.run("exec", "--", "true")
	assert.Equal(t, 1, rc)
}

func TestRunExecMalformedEnv(t *testing.T) {
	run := newTestRun(t)

	rc := run.run("exec", "--env", "NOVALUE", "--", "true")
	require.Equal(t, 1, rc)
	assert.Contains(t, run.stderr.String(), "KEY=value")
}
