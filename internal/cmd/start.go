// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

type startOptions struct {
	root *rootOptions

	rootFS string
	name   string
}

func newStartCommand(root *rootOptions) *cobra.Command {
	opts := &startOptions{root: root}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a registered distribution",
		Long: "start runs the distribution's init program as PID 1 of " +
			"fresh namespaces and blocks until it reports a running " +
			"system. On failure it reports the failed units with journal " +
			"excerpts.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.rootFS, "rootfs", "",
		"root file system of the installation to start")
	flags.StringVar(&opts.name, "name", "",
		"name of the installation to start")
	cmd.MarkFlagsMutuallyExclusive("rootfs", "name")

	return cmd
}

func (o *startOptions) run(ctx context.Context) error {
	name, err := o.resolveName()
	if err != nil {
		return err
	}

	err = o.root.launcher().Start(ctx, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(o.root.io.Stdout, "Started %s\n", name)

	return nil
}

// resolveName maps the given root file system path to the record name, so
// operators can address installations either way.
func (o *startOptions) resolveName() (string, error) {
	if o.name != "" {
		return o.name, nil
	}

	rootFS := o.rootFS
	if rootFS == "" {
		rootFS = o.root.cfg.InstallDir
	}

	if rootFS == "" {
		return "", ErrNoInstallDir
	}

	absDir, err := filepath.Abs(rootFS)
	if err != nil {
		return "", fmt.Errorf("resolve rootfs: %w", err)
	}

	record, err := o.root.launcher().Store().LoadByRootPath(absDir)
	if err != nil {
		return "", fmt.Errorf("rootfs %s: %w", absDir, err)
	}

	return record.Name, nil
}
