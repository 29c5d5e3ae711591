/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ahub-community/ahub/agents/llm"
	"github.com/ahub-community/ahub/community/cli"
	"github.com/ahub-community/ahub/community/config"
	"github.com/ahub-community/ahub/community/credentials"
	"github.com/ahub-community/ahub/community/gateway"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Diagnose credentials, configuration and repository access",
		Long:  "Report what the tools would run with. Problems are printed, never fatal: check always exits 0.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := cli.LoadConfig(ctx)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "❌ Configuration could not be loaded: %v\n", err)
				return nil
			}
			runCheck(ctx, cmd.OutOrStdout(), cfg, credentials.ExecRunner{})
			return nil
		},
	}
}

// runCheck writes the diagnostic report. It never fails; every problem
// found becomes a line of the report.
func runCheck(ctx context.Context, w io.Writer, cfg *config.Config, gh credentials.Runner, opts ...gateway.Option) {
	fmt.Fprintln(w, "GitHub CLI")
	st := credentials.Inspect(ctx, gh)
	switch {
	case !st.Installed:
		fmt.Fprintln(w, "  ⚠️  not installed (https://cli.github.com)")
	case !st.Authenticated:
		fmt.Fprintf(w, "  ✅ %s\n", st.Version)
		fmt.Fprintf(w, "  ⚠️  not logged in to %s; run: gh auth login\n", st.Hostname)
	default:
		fmt.Fprintf(w, "  ✅ %s\n", st.Version)
		fmt.Fprintf(w, "  ✅ logged in to %s as %s\n", st.Hostname, st.Username)
	}

	fmt.Fprintln(w, "\nCredentials")
	r := cli.Resolver(cfg, gh)
	token, tokenSource, err := r.ResolveToken(ctx)
	if err != nil {
		fmt.Fprintf(w, "  ❌ %v\n", err)
	} else {
		fmt.Fprintf(w, "  ✅ token %s (from %s)\n", credentials.Mask(token, 6, 4), tokenSource)
	}
	user, userSource, err := r.ResolveUsername(ctx)
	if err != nil {
		fmt.Fprintf(w, "  ❌ %v\n", err)
	} else {
		fmt.Fprintf(w, "  ✅ username %s (from %s)\n", user, userSource)
	}
	cfg.ApplyIdentity(user)

	fmt.Fprintln(w, "\nConfiguration")
	fmt.Fprintf(w, "  repository:  %s\n", cfg.Repository())
	fmt.Fprintf(w, "  agent name:  %s\n", cfg.AgentName)
	fmt.Fprintf(w, "  model:       %s (%s, %s)\n", cfg.LLMModel, llm.ResolveProvider(cfg.LLMProvider, cfg.LLMModel), cfg.LLMBaseURL)
	fmt.Fprintf(w, "  model key:   %s\n", credentials.Mask(cfg.LLMAPIKey, 5, 0))
	fmt.Fprintf(w, "  schedules:   post %q, comment %q\n", cfg.PostCron, cfg.CommentCron)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(w, "  ❌ %v\n", err)
	} else {
		fmt.Fprintln(w, "  ✅ valid")
	}

	fmt.Fprintln(w, "\nRepository access")
	if token == "" || cfg.GitHubOwner == "" || cfg.GitHubRepo == "" {
		fmt.Fprintln(w, "  ⚠️  skipped: token, owner and repository are all needed")
		return
	}
	gw, err := gateway.NewFromToken(ctx, cfg.GitHubOwner, cfg.GitHubRepo, token, opts...)
	if err != nil {
		fmt.Fprintf(w, "  ❌ %v\n", err)
		return
	}
	if _, err := gw.Viewer(ctx); err != nil {
		if gateway.StatusCode(err) == http.StatusUnauthorized {
			fmt.Fprintln(w, "  ❌ the token was rejected (401): it is invalid or expired")
		} else {
			fmt.Fprintf(w, "  ❌ %v\n", err)
		}
		return
	}
	access, err := gw.RepositoryAccess(ctx)
	if err != nil {
		fmt.Fprintf(w, "  ❌ %s was not found or is not visible to this token (%v)\n", cfg.Repository(), err)
		return
	}
	visibility := "public"
	if access.IsPrivate {
		visibility = "private"
	}
	fmt.Fprintf(w, "  ✅ %s (%s) as %s\n", access.Repository, visibility, access.Viewer)
	if access.CanModerate() {
		fmt.Fprintf(w, "  ✅ permission: %s\n", access.Describe())
	} else {
		fmt.Fprintf(w, "  ⚠️  permission: %s; moderation needs push access\n", access.Describe())
	}
}
