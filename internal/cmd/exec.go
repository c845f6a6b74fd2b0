// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aibor/initns/internal/container"
)

type execOptions struct {
	root *rootOptions

	name    string
	workDir string
	env     []string
}

func newExecCommand(root *rootOptions) *cobra.Command {
	opts := &execOptions{root: root}

	cmd := &cobra.Command{
		Use:   "exec [flags] [--] command [args...]",
		Short: "Run a command inside a running distribution",
		Long: "exec spawns the command into the running guest's namespaces " +
			"with the guest's ambient environment and forwards its exit " +
			"code verbatim.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), args)
		},
	}

	// The first positional argument is the guest command. Everything after
	// it belongs to the guest, including flag-like arguments.
	cmd.Flags().SetInterspersed(false)

	flags := cmd.Flags()
	flags.StringVar(&opts.name, "name", "",
		"name of the installation, defaults to the running one")
	flags.StringVar(&opts.workDir, "workdir", "",
		"working directory inside the guest")
	flags.StringArrayVar(&opts.env, "env", nil,
		"additional environment variables as KEY=value")

	return cmd
}

func (o *execOptions) run(ctx context.Context, argv []string) error {
	env, err := parseEnvVars(o.env)
	if err != nil {
		return err
	}

	execOpts := container.ExecOptions{
		Dir:    o.workDir,
		Env:    env,
		Stdin:  o.root.io.Stdin,
		Stdout: o.root.io.Stdout,
		Stderr: o.root.io.Stderr,
	}

	exitCode, err := o.root.launcher().Exec(ctx, o.name, argv, execOpts)
	if err != nil {
		return err
	}

	if exitCode != 0 {
		return &exitCodeError{code: exitCode}
	}

	return nil
}

func parseEnvVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	env := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedEnvVar, pair)
		}

		env[key] = value
	}

	return env, nil
}
