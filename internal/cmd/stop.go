// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aibor/initns/internal/container"
	"github.com/aibor/initns/internal/distro"
)

type stopOptions struct {
	root *rootOptions

	name string
}

func newStopCommand(root *rootOptions) *cobra.Command {
	opts := &stopOptions{root: root}

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running distribution",
		Long: "stop asks the guest's init for an orderly halt and waits " +
			"for it. Guest processes still around after the grace period " +
			"are killed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "",
		"name of the installation to stop, defaults to the running one")

	return cmd
}

func (o *stopOptions) run(ctx context.Context) error {
	launcher := o.root.launcher()

	name := o.name
	if name == "" {
		record, err := launcher.Store().LoadRunning()
		if errors.Is(err, distro.ErrNoRunningDistro) {
			return fmt.Errorf("%w: %w", container.ErrNotRunning, err)
		} else if err != nil {
			return err
		}

		name = record.Name
	}

	err := launcher.Stop(ctx, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(o.root.io.Stdout, "Stopped %s\n", name)

	return nil
}
