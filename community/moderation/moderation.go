/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package moderation decides whether proposed posts are published.
//
// A run reads the community rules and the proposal's post file, asks a
// language model for a verdict and applies exactly one action through the
// gateway: approve-and-merge or comment-and-close.
package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahub-community/ahub/agents/agenttrace"
	"github.com/ahub-community/ahub/agents/executor"
	"github.com/ahub-community/ahub/agents/llm"
	"github.com/ahub-community/ahub/agents/result"
	"github.com/ahub-community/ahub/agents/schema"
	"github.com/ahub-community/ahub/community/gateway"
	"github.com/ahub-community/ahub/community/telemetry"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// NoContentReason is the rejection reason for proposals without a post file.
const NoContentReason = "No valid post file was found in this PR. Posts must be markdown files under the `community/posts/` directory."

// Verdict is the moderation decision for one proposal.
type Verdict struct {
	Approved bool
	Reason   string
}

// Outcome returns the telemetry label of v.
func (v Verdict) Outcome() string {
	if v.Approved {
		return telemetry.OutcomeApproved
	}
	return telemetry.OutcomeRejected
}

// Gateway is the repository surface moderation needs.
type Gateway interface {
	FullName() string
	ListOpenProposals(ctx context.Context) ([]gateway.Proposal, error)
	ReadRulesDocument(ctx context.Context) (string, error)
	ReadProposalContent(ctx context.Context, number int) (string, error)
	Approve(ctx context.Context, number int) error
	Reject(ctx context.Context, number int, reason string) error
}

// Reviewer reviews proposals against the community rules.
type Reviewer struct {
	gw           Gateway
	exec         executor.Interface[*reviewRequest, *verdictReply]
	outputFormat string
}

// NewReviewer returns a Reviewer that consults client.
func NewReviewer(gw Gateway, client llm.Interface) (*Reviewer, error) {
	exec, err := executor.New[*reviewRequest, *verdictReply](client, userPrompt,
		executor.WithSystemInstructions[*reviewRequest, *verdictReply](systemInstructions),
		executor.WithTemperature[*reviewRequest, *verdictReply](0.1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating review executor: %w", err)
	}
	format, err := schema.OutputFormat[verdictReply]()
	if err != nil {
		return nil, err
	}
	return &Reviewer{gw: gw, exec: exec, outputFormat: format}, nil
}

// Review decides on p without changing the repository. A proposal without
// a post file is rejected without consulting the model.
func (r *Reviewer) Review(ctx context.Context, p gateway.Proposal) (*Verdict, error) {
	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		Pipeline:   "moderation",
		Repository: r.gw.FullName(),
		Proposal:   p.Number,
	})
	log := clog.FromContext(ctx).With("proposal", p.Number)

	var rules, content string
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		rules, err = r.gw.ReadRulesDocument(egctx)
		return err
	})
	eg.Go(func() (err error) {
		content, err = r.gw.ReadProposalContent(egctx, p.Number)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("fetching inputs for #%d: %w", p.Number, err)
	}

	if content == "" {
		log.Info("Proposal has no post file")
		return &Verdict{Approved: false, Reason: NoContentReason}, nil
	}

	description := p.Body
	if strings.TrimSpace(description) == "" {
		description = "(none)"
	}
	reply, err := r.exec.Execute(ctx, &reviewRequest{
		Rules: rules,
		Proposal: proposalInfo{
			Number:      p.Number,
			Title:       p.Title,
			Description: description,
		},
		Content:      content,
		OutputFormat: r.outputFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("reviewing #%d: %w", p.Number, err)
	}
	if reply == nil || reply.Approved == nil {
		return nil, fmt.Errorf("reviewing #%d: %w: approved must be a boolean", p.Number, result.ErrMalformedOutput)
	}

	v := &Verdict{Approved: *reply.Approved, Reason: reply.Reason}
	log.With("approved", v.Approved, "reason", v.Reason).Info("Model returned verdict")
	return v, nil
}

// Process reviews p and applies the verdict: approve and merge, or comment
// and close. Failures before the verdict leave the proposal untouched.
func (r *Reviewer) Process(ctx context.Context, p gateway.Proposal) (*Verdict, error) {
	log := clog.FromContext(ctx).With("proposal", p.Number, "title", p.Title)
	log.Info("Reviewing proposal")

	v, err := r.Review(ctx, p)
	if err != nil {
		telemetry.RecordVerdict(telemetry.OutcomeError)
		return nil, err
	}

	if v.Approved {
		err = r.gw.Approve(ctx, p.Number)
	} else {
		err = r.gw.Reject(ctx, p.Number, v.Reason)
	}
	if err != nil {
		telemetry.RecordVerdict(telemetry.OutcomeError)
		return v, fmt.Errorf("applying verdict to #%d: %w", p.Number, err)
	}

	telemetry.RecordVerdict(v.Outcome())
	log.With("approved", v.Approved).Info("Applied verdict")
	return v, nil
}
