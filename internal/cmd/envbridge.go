// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/aibor/initns/internal/container"
)

type envBridgeOptions struct {
	root *rootOptions

	name string
}

// newEnvBridgeCommand builds the hidden daemon command that keeps the
// guest's interop environment in sync with the host session. The launcher
// spawns it detached after the guest reached running, stop terminates it
// with SIGTERM.
func newEnvBridgeCommand(root *rootOptions) *cobra.Command {
	opts := &envBridgeOptions{root: root}

	cmd := &cobra.Command{
		Use:    container.EnvBridgeCommand,
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "guest name")

	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func (o *envBridgeOptions) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, unix.SIGTERM, unix.SIGINT)
	defer stop()

	bridge, err := o.root.launcher().NewBridge(o.name)
	if err != nil {
		return err
	}

	slog.Info("Environment bridge running", slog.String("name", o.name))

	err = bridge.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
