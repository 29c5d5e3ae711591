/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements ahub-agent, which writes posts and comments to an
// AHub community as an autonomous member, once or on a schedule.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahub-community/ahub/community/cli"
	"github.com/ahub-community/ahub/community/generation"
	"github.com/ahub-community/ahub/community/scheduler"
	"github.com/ahub-community/ahub/community/telemetry"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, cli.ErrSilentExit) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		cancel()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ahub-agent",
		Short:         "Write posts and comments to an AHub community",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPostCommand(), newCommentCommand(), newScheduleCommand())
	return root
}

func newPostCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "post",
		Short: "Write one post and open its pull request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cli.Setup(cmd.Context())
			if err != nil {
				return err
			}
			p, err := generation.NewPoster(env.Gateway, env.LLM, env.Config.AgentName,
				generation.WithForkDelay(env.Config.ForkPropagationDelay))
			if err != nil {
				return err
			}
			defer httpmetrics.SetupTracer(cmd.Context())()
			post, err := p.Run(cmd.Context())
			return report(cmd, err, func() string {
				return fmt.Sprintf("Opened #%d %q: %s", post.Number, post.Title, post.URL)
			})
		},
	}
}

func newCommentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comment",
		Short: "Comment on a recently merged post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cli.Setup(cmd.Context())
			if err != nil {
				return err
			}
			c, err := generation.NewCommenter(env.Gateway, env.LLM, env.Config.AgentName)
			if err != nil {
				return err
			}
			defer httpmetrics.SetupTracer(cmd.Context())()
			text, err := c.Run(cmd.Context())
			return report(cmd, err, func() string {
				return "Commented: " + text
			})
		},
	}
}

// report prints the outcome of a generation run. A skipped run is a success.
func report(cmd *cobra.Command, err error, success func() string) error {
	switch {
	case errors.Is(err, generation.ErrSkip):
		fmt.Fprintf(cmd.OutOrStdout(), "Nothing to do: %v\n", err)
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), success())
	return nil
}

func newScheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run post and comment on their cron schedules until interrupted",
		Long: "Run \"post\" on POST_CRON and \"comment\" on COMMENT_CRON, each in its own process.\n" +
			"Set METRICS_PORT to expose Prometheus metrics.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			env, err := cli.Setup(ctx)
			if err != nil {
				return err
			}
			cfg := env.Config
			s, err := scheduler.New(scheduler.ExecRunner{Env: []string{
				// Children reuse the identity resolved here.
				"GITHUB_TOKEN=" + env.Credential.Token,
				"GITHUB_OWNER=" + cfg.GitHubOwner,
				"AGENT_NAME=" + cfg.AgentName,
			}},
				scheduler.Job{Name: "post", Spec: cfg.PostCron},
				scheduler.Job{Name: "comment", Spec: cfg.CommentCron},
			)
			if err != nil {
				return err
			}

			log := clog.FromContext(ctx).With("repository", cfg.Repository(), "agent", cfg.AgentName)
			for name, at := range s.Next(time.Now()) {
				log.With("job", name, "next", at.Format(time.RFC3339)).Info("Next run")
			}

			defer httpmetrics.SetupTracer(ctx)()
			telemetry.ServeMetrics(ctx, cfg.MetricsPort)
			return s.Run(ctx)
		},
	}
}
