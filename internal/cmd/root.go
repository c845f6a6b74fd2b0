// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmd implements the initns command line interface.
//
// Besides the operator-facing life cycle commands it carries two hidden
// plumbing commands that the launcher re-executes the binary with:
// guest-init, which becomes PID 1 of the guest's namespaces, and
// env-bridge, the daemon keeping the guest's interop environment fresh.
package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aibor/initns/internal/config"
	"github.com/aibor/initns/internal/container"
	"github.com/aibor/initns/internal/distro"
)

// IO provides input and output streams for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// rootOptions carry the state shared by all sub commands. The
// configuration is resolved once in the persistent pre-run, after flag
// parsing and before any sub command runs.
type rootOptions struct {
	io IO

	debug      bool
	quiet      bool
	configFile string

	cfg config.Config
}

func (o *rootOptions) launcher() *container.Launcher {
	return container.NewLauncher(distro.NewStore(o.cfg.StateDir), o.cfg)
}

// NewRootCommand builds the initns command tree.
func NewRootCommand(cmdIO IO) *cobra.Command {
	opts := &rootOptions{io: cmdIO}

	cmd := &cobra.Command{
		Use:   "initns",
		Short: "Run a complete Linux distribution inside the host session",
		Long: "initns installs complete Linux distributions and runs them " +
			"with their real init program as PID 1 of dedicated pid, mount " +
			"and UTS namespaces, sharing the host session's network and " +
			"interop environment.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmdIO.Stderr, opts.debug, opts.quiet)

			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}

			opts.cfg = cfg

			return nil
		},
	}

	cmd.SetIn(cmdIO.Stdin)
	cmd.SetOut(cmdIO.Stdout)
	cmd.SetErr(cmdIO.Stderr)

	persistent := cmd.PersistentFlags()
	persistent.BoolVar(&opts.debug, "debug", false,
		"enable debug logging")
	persistent.BoolVar(&opts.quiet, "quiet", false,
		"log errors only")
	persistent.StringVar(&opts.configFile, "config", config.DefaultFile,
		"configuration file")

	cmd.AddCommand(
		newCreateCommand(opts),
		newStartCommand(opts),
		newStopCommand(opts),
		newExecCommand(opts),
		newGuestInitCommand(opts),
		newEnvBridgeCommand(opts),
	)

	return cmd
}

// Run is the main entry point for the CLI command. It returns the process
// exit code, forwarding the guest command's exit code verbatim for exec.
func Run(ctx context.Context, args []string, cmdIO IO) int {
	cmd := NewRootCommand(cmdIO)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}

	slog.Error(err.Error())

	return 1
}
