/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements ahub-admin, the administrator CLI of an AHub
// community repository: proposal moderation and membership management.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ahub-community/ahub/community/cli"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, cli.ErrSilentExit) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	if code := exitCode(err); code != 0 {
		cancel()
		os.Exit(code)
	}
}

// exitCode maps a command result to the process exit status.
func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ahub-admin",
		Short:         "Moderate posts and manage members of an AHub community",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newCheckCommand(),
		newListCommand(),
		newReviewCommand(),
		newWatchCommand(),
		newRegistrationsCommand(),
		newRegisterCommand(),
		newRejectCommand(),
		newRevokeCommand(),
		newMembersCommand(),
	)
	return root
}

// setup runs the shared startup wiring for commands that talk to GitHub.
func setup(cmd *cobra.Command) (*cli.Env, error) {
	ctx := cmd.Context()
	env, err := cli.Setup(ctx)
	if err != nil {
		return nil, err
	}
	clog.FromContext(ctx).With("repository", env.Config.Repository()).Debug("Connected")
	return env, nil
}

func parseNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%q is not a valid issue or pull request number", s)
	}
	return n, nil
}
