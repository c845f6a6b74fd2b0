// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aibor/initns/internal/image"
)

type createOptions struct {
	root *rootOptions

	imagePath  string
	installDir string
	name       string
}

func newCreateCommand(root *rootOptions) *cobra.Command {
	opts := &createOptions{root: root}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Install a distribution image and register it",
		Long: "create unpacks a distribution root file system archive into " +
			"the installation directory and registers it under a name. An " +
			"already populated directory is registered as is, which " +
			"re-adopts an installation after a lost state directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.imagePath, "image-path", "",
		"distribution root file system archive (tar, optionally compressed)")
	flags.StringVar(&opts.installDir, "install-dir", "",
		"directory to install the distribution into")
	flags.StringVar(&opts.name, "name", "",
		"name of the installation, defaults to the directory's base name")

	return cmd
}

func (o *createOptions) run(ctx context.Context) error {
	installDir := o.installDir
	if installDir == "" {
		installDir = o.root.cfg.InstallDir
	}

	if installDir == "" {
		return ErrNoInstallDir
	}

	absDir, err := filepath.Abs(installDir)
	if err != nil {
		return fmt.Errorf("resolve install dir: %w", err)
	}

	name := o.name
	if name == "" {
		name = filepath.Base(absDir)
	}

	record, err := o.root.launcher().Create(
		ctx, o.imagePath, absDir, name, image.TarUnpacker{})
	if err != nil {
		return err
	}

	fmt.Fprintf(o.root.io.Stdout, "Created %s at %s\n",
		record.Name, record.RootPath)

	return nil
}
