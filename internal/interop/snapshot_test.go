// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package interop_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/initns/internal/interop"
)

func TestSnapshotEnviron(t *testing.T) {
	snapshot := interop.Snapshot{
		"WSLENV":      "PATH/l",
		"WSL_INTEROP": "/run/WSL/8_interop",
	}

	assert.Equal(t, []string{
		"WSLENV=PATH/l",
		"WSL_INTEROP=/run/WSL/8_interop",
	}, snapshot.Environ())
}

func TestSnapshotRenderParseRoundTrip(t *testing.T) {
	snapshot := interop.Snapshot{
		"WSL_INTEROP":     "/run/WSL/8_interop",
		"WSL_DISTRO_NAME": "ubuntu",
	}

	parsed, err := interop.ParseEnvFile(strings.NewReader(string(snapshot.Render())))
	require.NoError(t, err)

	assert.True(t, snapshot.Equal(parsed))
}

func TestParseEnvFile(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected interop.Snapshot
		errorIs  error
	}{
		{
			name:     "empty",
			expected: interop.Snapshot{},
		},
		{
			name:  "comments and blanks",
			input: "# managed by initns\n\nWSL_INTEROP=/run/WSL/8_interop\n",
			expected: interop.Snapshot{
				"WSL_INTEROP": "/run/WSL/8_interop",
			},
		},
		{
			name:  "value with equals sign",
			input: "WSLENV=PATH/l:FOO=bar\n",
			expected: interop.Snapshot{
				"WSLENV": "PATH/l:FOO=bar",
			},
		},
		{
			name:    "malformed line",
			input:   "NOT A VARIABLE\n",
			errorIs: interop.ErrMalformedEnvFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := interop.ParseEnvFile(strings.NewReader(tt.input))
			if tt.errorIs != nil {
				require.ErrorIs(t, err, tt.errorIs)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, parsed)
		})
	}
}

func TestSnapshotEqual(t *testing.T) {
	a := interop.Snapshot{"WSL_INTEROP": "/run/WSL/8_interop"}
	b := interop.Snapshot{"WSL_INTEROP": "/run/WSL/8_interop"}
	c := interop.Snapshot{"WSL_INTEROP": "/run/WSL/9_interop"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.True(t, interop.Snapshot{}.Equal(interop.Snapshot{}))
}
