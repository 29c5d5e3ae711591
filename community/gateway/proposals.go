/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
)

const (
	approvalReviewBody = "✅ This post follows the community rules and has been approved for merging."
	rejectionHeading   = "❌ **This post was not approved**"
	rejectionFooter    = "*Please revise it and submit again. See [RULES.md](../blob/main/community/RULES.md) for the community rules.*"
)

// FormatRejection renders the comment posted when a proposal is rejected.
func FormatRejection(reason string) string {
	return rejectionHeading + "\n\n" + strings.TrimSpace(reason) + "\n\n" + rejectionFooter
}

// ListOpenProposals returns the open pull requests in the order GitHub
// returns them, up to 50.
func (c *Client) ListOpenProposals(ctx context.Context) ([]Proposal, error) {
	prs, _, err := c.gh.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 50},
	})
	if err != nil {
		return nil, fmt.Errorf("listing open pull requests: %w", err)
	}
	out := make([]Proposal, 0, len(prs))
	for _, pr := range prs {
		out = append(out, toProposal(pr))
	}
	return out, nil
}

// GetProposal returns a single pull request.
func (c *Client) GetProposal(ctx context.Context, number int) (*Proposal, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("getting pull request #%d: %w", number, err)
	}
	p := toProposal(pr)
	return &p, nil
}

// ListRecentlyClosed returns up to n closed pull requests, most recently
// updated first. Callers filter for merged ones.
func (c *Client) ListRecentlyClosed(ctx context.Context, n int) ([]Proposal, error) {
	prs, _, err := c.gh.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		State:       "closed",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: n},
	})
	if err != nil {
		return nil, fmt.Errorf("listing closed pull requests: %w", err)
	}
	out := make([]Proposal, 0, len(prs))
	for _, pr := range prs {
		out = append(out, toProposal(pr))
	}
	return out, nil
}

// ListChangedFiles returns the paths touched by a pull request.
func (c *Client) ListChangedFiles(ctx context.Context, number int) ([]string, error) {
	files, _, err := c.gh.PullRequests.ListFiles(ctx, c.owner, c.repo, number, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("listing files of pull request #%d: %w", number, err)
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.GetFilename())
	}
	return out, nil
}

// PostPath returns the first path under PostsDir with PostExt.
func PostPath(paths []string) (string, bool) {
	for _, p := range paths {
		if strings.HasPrefix(p, PostsDir) && strings.HasSuffix(p, PostExt) {
			return p, true
		}
	}
	return "", false
}

// ReadProposalContent returns the post a proposal adds, read from its head
// branch in the head repository (which differs for pull requests from
// forks). It returns "" when the proposal touches no post file or the file
// does not exist at that ref; any other failure is returned.
func (c *Client) ReadProposalContent(ctx context.Context, number int) (string, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return "", fmt.Errorf("getting pull request #%d: %w", number, err)
	}
	files, err := c.ListChangedFiles(ctx, number)
	if err != nil {
		return "", err
	}
	path, ok := PostPath(files)
	if !ok {
		return "", nil
	}

	p := toProposal(pr)
	src := c
	if p.HeadOwner != "" && p.HeadOwner != c.owner {
		src = c.WithOwner(p.HeadOwner)
		if p.HeadRepo != "" {
			src.repo = p.HeadRepo
		}
	}
	content, err := src.ReadFile(ctx, p.HeadRef, path)
	switch {
	case IsNotFound(err):
		clog.FromContext(ctx).With("proposal", number, "path", path, "error", err).Warn("Post file not found at head")
		return "", nil
	case err != nil:
		return "", fmt.Errorf("reading post of #%d: %w", number, err)
	}
	return content, nil
}

// ReadRulesDocument returns RULES.md from the default branch.
func (c *Client) ReadRulesDocument(ctx context.Context) (string, error) {
	rules, err := c.ReadFile(ctx, DefaultBranch, RulesPath)
	switch {
	case IsNotFound(err):
		return "", fmt.Errorf("reading %s: %w: %w", RulesPath, ErrNotFound, err)
	case err != nil:
		return "", fmt.Errorf("reading %s: %w", RulesPath, err)
	}
	return rules, nil
}

// ReadFile returns the decoded content of path at ref.
func (c *Client) ReadFile(ctx context.Context, ref, path string) (string, error) {
	file, _, _, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return "", fmt.Errorf("getting %s@%s: %w", path, ref, err)
	}
	if file == nil {
		return "", fmt.Errorf("%s@%s is a directory", path, ref)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s@%s: %w", path, ref, err)
	}
	return content, nil
}

// Approve merges a proposal with the squash method. Proposals not authored
// by the authenticated account first get an approving review; GitHub rejects
// reviews of one's own pull request.
func (c *Client) Approve(ctx context.Context, number int) error {
	log := clog.FromContext(ctx).With("proposal", number)

	pr, _, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return fmt.Errorf("getting pull request #%d: %w", number, err)
	}
	viewer, err := c.Viewer(ctx)
	if err != nil {
		return err
	}

	if author := pr.GetUser().GetLogin(); author != viewer {
		if _, _, err := c.gh.PullRequests.CreateReview(ctx, c.owner, c.repo, number, &github.PullRequestReviewRequest{
			Event: github.Ptr("APPROVE"),
			Body:  github.Ptr(approvalReviewBody),
		}); err != nil {
			return fmt.Errorf("approving pull request #%d: %w", number, err)
		}
		log.Info("Approved pull request")
	}

	if _, _, err := c.gh.PullRequests.Merge(ctx, c.owner, c.repo, number, "", &github.PullRequestOptions{
		MergeMethod: "squash",
	}); err != nil {
		return fmt.Errorf("merging pull request #%d: %w", number, err)
	}
	log.Info("Merged pull request")
	return nil
}

// Reject comments with the formatted reason and closes the proposal without
// merging. When an identical rejection comment already exists, for example
// from an earlier run that failed to close, it is not posted again.
func (c *Client) Reject(ctx context.Context, number int, reason string) error {
	log := clog.FromContext(ctx).With("proposal", number)
	body := FormatRejection(reason)

	existing, err := c.ListComments(ctx, number)
	if err != nil {
		return err
	}
	posted := false
	for _, cm := range existing {
		if cm.Body == body {
			posted = true
			break
		}
	}
	if posted {
		log.Info("Rejection comment already present")
	} else if _, err := c.Comment(ctx, number, body); err != nil {
		return err
	}

	if _, _, err := c.gh.PullRequests.Edit(ctx, c.owner, c.repo, number, &github.PullRequest{
		State: github.Ptr("closed"),
	}); err != nil {
		return fmt.Errorf("closing pull request #%d: %w", number, err)
	}
	log.Info("Closed pull request")
	return nil
}
