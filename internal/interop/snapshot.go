// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package interop keeps host interoperability environment variables fresh
// inside a running guest.
//
// The values are not static. The host renegotiates them over the guest's
// lifetime, the interop socket path in particular. A one-time copy at guest
// start silently breaks host interop later, so a bridge re-reads the host
// side periodically and republishes changed values into every location
// guest processes pick their environment up from.
package interop

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// Snapshot maps interop variable names to their current values.
type Snapshot map[string]string

// Equal reports whether both snapshots contain the same values.
func (s Snapshot) Equal(other Snapshot) bool {
	return maps.Equal(s, other)
}

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	return maps.Clone(s)
}

// Environ returns the snapshot in "KEY=value" form, sorted by name.
func (s Snapshot) Environ() []string {
	environ := make([]string, 0, len(s))

	for _, key := range slices.Sorted(maps.Keys(s)) {
		environ = append(environ, key+"="+s[key])
	}

	return environ
}

// Render writes the snapshot as an environment file, one "KEY=value" line
// per variable, sorted by name.
func (s Snapshot) Render() []byte {
	var buf strings.Builder

	for _, line := range s.Environ() {
		buf.WriteString(line)
		buf.WriteString("\n")
	}

	return []byte(buf.String())
}

// ParseEnvFile reads a snapshot back from its environment file form.
// Blank lines and lines starting with "#" are ignored.
func ParseEnvFile(reader io.Reader) (Snapshot, error) {
	snapshot := Snapshot{}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrMalformedEnvFile, line)
		}

		snapshot[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}

	return snapshot, nil
}
