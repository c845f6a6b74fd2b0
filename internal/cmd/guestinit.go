// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aibor/initns/internal/container"
	"github.com/aibor/initns/internal/guestinit"
	"github.com/aibor/initns/internal/interop"
)

type guestInitOptions struct {
	root *rootOptions

	rootFS string
	name   string
}

// newGuestInitCommand builds the hidden plumbing command the launcher
// re-executes this binary with inside the fresh namespaces. It runs as
// PID 1, prepares the guest file system view and replaces itself with the
// distribution's real init program.
func newGuestInitCommand(root *rootOptions) *cobra.Command {
	opts := &guestInitOptions{root: root}

	cmd := &cobra.Command{
		Use:    container.GuestInitCommand,
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.rootFS, "rootfs", "", "guest root file system")
	flags.StringVar(&opts.name, "name", "", "guest name, used as hostname")

	_ = cmd.MarkFlagRequired("rootfs")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func (o *guestInitOptions) run() error {
	cfg := o.root.cfg

	// The launcher passes its environment on, so the interop values of the
	// host session that started the guest seed the guest's snapshot. The
	// bridge daemon keeps it fresh once the guest runs.
	source := &interop.HostSource{
		Vars:   cfg.Interop.Vars,
		RunDir: cfg.Interop.RunDir,
	}

	snapshot, err := source.Current()
	if err != nil {
		slog.Warn("No interop snapshot", slog.Any("error", err))

		snapshot = interop.Snapshot{}
	}

	return guestinit.Run(guestinit.Setup{
		RootFS:     o.rootFS,
		InitPath:   cfg.InitPath,
		Hostname:   o.name,
		BindMounts: cfg.BindMounts,
		Snapshot:   snapshot,
	})
}
