// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package container

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/initns/internal/config"
	"github.com/aibor/initns/internal/distro"
	"github.com/aibor/initns/internal/interop"
)

func TestLookPathInRoot(t *testing.T) {
	root := t.TempDir()

	writeFile := func(path string, perm os.FileMode) {
		abs := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte("#!/bin/sh\n"), perm))
	}

	writeFile("usr/bin/systemctl", 0o755)
	writeFile("usr/local/bin/systemctl", 0o755)
	writeFile("usr/bin/README", 0o644)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr/bin/dirname"), 0o755))

	// Absolute symlink targets refer to the guest root, never the host's.
	writeFile("usr/lib/sysctl", 0o755)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr/sbin"), 0o755))
	require.NoError(t, os.Symlink("/usr/lib/sysctl",
		filepath.Join(root, "usr/sbin/sysctl")))
	require.NoError(t, os.Symlink("/bin/sh",
		filepath.Join(root, "usr/bin/hostsh")))

	tests := []struct {
		name        string
		command     string
		expected    string
		expectedErr error
	}{
		{
			name:     "found on path",
			command:  "systemctl",
			expected: "/usr/local/bin/systemctl",
		},
		{
			name:     "explicit path passed through",
			command:  "/opt/bin/custom",
			expected: "/opt/bin/custom",
		},
		{
			name:     "relative path passed through",
			command:  "bin/custom",
			expected: "bin/custom",
		},
		{
			name:     "absolute symlink resolved in root",
			command:  "sysctl",
			expected: "/usr/sbin/sysctl",
		},
		{
			name:        "not found",
			command:     "missing",
			expectedErr: exec.ErrNotFound,
		},
		{
			name:        "symlink target only exists on host",
			command:     "hostsh",
			expectedErr: exec.ErrNotFound,
		},
		{
			name:        "not executable",
			command:     "README",
			expectedErr: exec.ErrNotFound,
		},
		{
			name:        "directory is skipped",
			command:     "dirname",
			expectedErr: exec.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := lookPathInRoot(root, tt.command)
			require.ErrorIs(t, err, tt.expectedErr)

			if tt.expectedErr == nil {
				assert.Equal(t, tt.expected, actual)
			}
		})
	}
}

func TestAmbientEnv(t *testing.T) {
	root := t.TempDir()

	sink := &interop.EnvFileSink{Root: root}
	err := sink.Publish(context.Background(), interop.Snapshot{
		"WSL_INTEROP": "/run/WSL/42_interop",
		"DISPLAY":     ":0",
		"HOME":        "/home/elsewhere",
	})
	require.NoError(t, err)

	t.Setenv("TERM", "xterm-256color")

	launcher := NewLauncher(distro.NewStore(t.TempDir()), config.Default())
	record := &distro.Record{
		Namespace: distro.Namespace{ProcRoot: root},
	}

	env := launcher.ambientEnv(record, map[string]string{
		"DISPLAY": ":1",
		"DEBUG":   "1",
	})

	assert.Equal(t, []string{
		"DEBUG=1",
		"DISPLAY=:1",
		"HOME=/home/elsewhere",
		"PATH=" + guestPath,
		"TERM=xterm-256color",
		"WSL_INTEROP=/run/WSL/42_interop",
	}, env)
}

func TestAmbientEnvCorruptEnvFile(t *testing.T) {
	root := t.TempDir()

	envPath := filepath.Join(root, interop.EnvFilePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(envPath), 0o755))
	require.NoError(t, os.WriteFile(envPath, []byte("not an env line\n"), 0o644))

	t.Setenv("TERM", "xterm-256color")

	launcher := NewLauncher(distro.NewStore(t.TempDir()), config.Default())
	record := &distro.Record{
		Name:      "ubuntu",
		Namespace: distro.Namespace{ProcRoot: root},
	}

	// A broken publication degrades to the base environment, it never
	// fails the spawn.
	env := launcher.ambientEnv(record, nil)

	assert.Equal(t, []string{
		"HOME=/root",
		"PATH=" + guestPath,
		"TERM=xterm-256color",
	}, env)
}

func TestMergedEnviron(t *testing.T) {
	environ := mergedEnviron(map[string]string{
		"ZED":  "last",
		"ABLE": "first",
		"MID":  "",
	})

	assert.Equal(t, []string{"ABLE=first", "MID=", "ZED=last"}, environ)
}
