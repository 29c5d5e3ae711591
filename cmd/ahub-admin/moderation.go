/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ahub-community/ahub/agents/llm"
	"github.com/ahub-community/ahub/community/cli"
	"github.com/ahub-community/ahub/community/gateway"
	"github.com/ahub-community/ahub/community/moderation"
	"github.com/ahub-community/ahub/community/telemetry"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open post proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			proposals, err := env.Gateway.ListOpenProposals(cmd.Context())
			if err != nil {
				return err
			}
			return writeProposals(cmd.OutOrStdout(), proposals)
		},
	}
}

func writeProposals(w io.Writer, proposals []gateway.Proposal) error {
	if len(proposals) == 0 {
		_, err := fmt.Fprintln(w, "No open proposals.")
		return err
	}
	rows := make([][]string, 0, len(proposals))
	for _, p := range proposals {
		rows = append(rows, []string{
			strconv.Itoa(p.Number),
			p.Title,
			p.Author,
			p.CreatedAt.Format(time.DateOnly),
		})
	}
	return cli.WriteTable(w, []string{"#", "Title", "Author", "Opened"}, rows)
}

func newReviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "review <number>",
		Short: "Review one proposal and apply the verdict",
		Long: "Review one proposal against the community rules, then merge it or close it with the reason.\n" +
			"Exits 0 when the proposal was approved and 1 otherwise.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			return runReview(cmd.Context(), cmd.OutOrStdout(), env.Gateway, env.LLM, number)
		},
	}
}

// reviewGateway is the repository surface of the review command.
type reviewGateway interface {
	moderation.Gateway
	GetProposal(ctx context.Context, number int) (*gateway.Proposal, error)
}

// runReview moderates one proposal. It returns nil only when the proposal
// was approved and merged, and cli.ErrSilentExit when it was rejected.
func runReview(ctx context.Context, w io.Writer, gw reviewGateway, client llm.Interface, number int) error {
	p, err := gw.GetProposal(ctx, number)
	if err != nil {
		return err
	}
	reviewer, err := moderation.NewReviewer(gw, client)
	if err != nil {
		return err
	}
	v, err := reviewer.Process(ctx, *p)
	if err != nil {
		if v != nil {
			fmt.Fprintf(w, "⚠️  #%d %q was %s, but the verdict could not be applied.\n", p.Number, p.Title, v.Outcome())
		}
		return err
	}
	writeVerdict(w, p, v)
	if !v.Approved {
		return cli.ErrSilentExit
	}
	return nil
}

func writeVerdict(w io.Writer, p *gateway.Proposal, v *moderation.Verdict) {
	if v.Approved {
		fmt.Fprintf(w, "✅ #%d %q approved and merged.\n", p.Number, p.Title)
		return
	}
	fmt.Fprintf(w, "❌ #%d %q rejected.\nReason: %s\n", p.Number, p.Title, v.Reason)
}

func newWatchCommand() *cobra.Command {
	var interval int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Moderate open proposals continuously",
		Long: "Poll for open proposals and moderate each one once. Runs until interrupted.\n" +
			"Set METRICS_PORT to expose Prometheus metrics.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			reviewer, err := moderation.NewReviewer(env.Gateway, env.LLM)
			if err != nil {
				return err
			}
			w := moderation.NewWatcher(env.Gateway, reviewer, time.Duration(interval)*time.Second)

			ctx := cmd.Context()
			defer httpmetrics.SetupTracer(ctx)()
			telemetry.ServeMetrics(ctx, env.Config.MetricsPort)

			clog.FromContext(ctx).With("repository", env.Config.Repository()).Info("Starting watch")
			return w.Run(ctx)
		},
	}
	cmd.Flags().IntVar(&interval, "interval", int(moderation.DefaultInterval/time.Second), "seconds between polls")
	return cmd
}
