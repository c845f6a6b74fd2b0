// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvVars(t *testing.T) {
	tests := []struct {
		name        string
		pairs       []string
		expected    map[string]string
		expectedErr error
	}{
		{
			name: "empty",
		},
		{
			name:  "single",
			pairs: []string{"DISPLAY=:0"},
			expected: map[string]string{
				"DISPLAY": ":0",
			},
		},
		{
			name:  "empty value",
			pairs: []string{"WSLENV="},
			expected: map[string]string{
				"WSLENV": "",
			},
		},
		{
			name:  "value with equals sign",
			pairs: []string{"OPTS=a=b"},
			expected: map[string]string{
				"OPTS": "a=b",
			},
		},
		{
			name:        "no value",
			pairs:       []string{"DISPLAY"},
			expectedErr: ErrMalformedEnvVar,
		},
		{
			name:        "no key",
			pairs:       []string{"=value"},
			expectedErr: ErrMalformedEnvVar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := parseEnvVars(tt.pairs)
			require.ErrorIs(t, err, tt.expectedErr)

			if tt.expectedErr == nil {
				assert.Equal(t, tt.expected, actual)
			}
		})
	}
}
