// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package systemd

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

const journalLines = "20"

// Diagnostics collects the failed units of a broken guest together with
// their recent journal lines, so a failed start can be diagnosed without a
// second round-trip into the guest.
//
// Collection is best effort. Commands that fail contribute their error
// text instead of output.
func Diagnostics(ctx context.Context, run CommandRunner) []string {
	output, err := run(ctx,
		[]string{"systemctl", "--failed", "--no-legend", "--plain"})
	if err != nil {
		return []string{fmt.Sprintf("query failed units: %v", err)}
	}

	units := parseFailedUnits(output)
	if len(units) == 0 {
		return []string{"no failed units reported"}
	}

	sections := make([][]string, len(units))

	var group errgroup.Group

	for idx, unit := range units {
		group.Go(func() error {
			journal, err := run(ctx, []string{
				"journalctl", "-u", unit, "-n", journalLines, "--no-pager",
			})
			if err != nil {
				journal = fmt.Sprintf("journal unavailable: %v", err)
			}

			section := []string{"unit " + unit + ":"}
			for _, line := range strings.Split(strings.TrimSpace(journal), "\n") {
				section = append(section, "  "+line)
			}

			sections[idx] = section

			return nil
		})
	}

	_ = group.Wait()

	diagnostics := []string{fmt.Sprintf("%d failed units", len(units))}
	for _, section := range sections {
		diagnostics = append(diagnostics, section...)
	}

	return diagnostics
}

// parseFailedUnits extracts unit names from "systemctl --failed" output.
// The unit name is the first column of each line.
func parseFailedUnits(output string) []string {
	var units []string

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		// Older systemctl versions prefix failed units with a marker.
		name := fields[0]
		if (name == "*" || name == "●") && len(fields) > 1 {
			name = fields[1]
		}

		if strings.Contains(name, ".") {
			units = append(units, name)
		}
	}

	return units
}
