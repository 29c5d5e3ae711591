/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
)

// BranchSHA returns the commit a branch points at.
func (c *Client) BranchSHA(ctx context.Context, branch string) (string, error) {
	ref, _, err := c.gh.Git.GetRef(ctx, c.owner, c.repo, "heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("getting ref heads/%s in %s: %w", branch, c.FullName(), err)
	}
	return ref.GetObject().GetSHA(), nil
}

// CreateBranch creates name pointing at sha.
func (c *Client) CreateBranch(ctx context.Context, sha, name string) error {
	if _, _, err := c.gh.Git.CreateRef(ctx, c.owner, c.repo, github.CreateRef{
		Ref: "refs/heads/" + name,
		SHA: sha,
	}); err != nil {
		return fmt.Errorf("creating branch %s in %s: %w", name, c.FullName(), err)
	}
	return nil
}

// WriteFile commits content as a new file at path on branch.
func (c *Client) WriteFile(ctx context.Context, branch, path, content, message string) error {
	if _, _, err := c.gh.Repositories.CreateFile(ctx, c.owner, c.repo, path, &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: []byte(content),
		Branch:  github.Ptr(branch),
	}); err != nil {
		return fmt.Errorf("writing %s on %s in %s: %w", path, branch, c.FullName(), err)
	}
	return nil
}

// CreateProposal opens a pull request from head into base. head is a branch
// name, or "account:branch" for a branch in a fork.
func (c *Client) CreateProposal(ctx context.Context, head, base, title, body string) (*Proposal, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(head),
		Base:  github.Ptr(base),
		Body:  github.Ptr(body),
	})
	if err != nil {
		return nil, fmt.Errorf("creating pull request from %s: %w", head, err)
	}
	p := toProposal(pr)
	return &p, nil
}

// ForkIfAbsent forks the repository into account unless account/repo
// already exists. created reports whether a fork was requested; GitHub
// creates forks asynchronously, so callers wait before writing to it.
func (c *Client) ForkIfAbsent(ctx context.Context, account string) (created bool, err error) {
	log := clog.FromContext(ctx).With("account", account)

	_, _, err = c.gh.Repositories.Get(ctx, account, c.repo)
	switch {
	case err == nil:
		log.Debug("Fork already exists")
		return false, nil
	case !IsNotFound(err):
		return false, fmt.Errorf("checking for fork %s/%s: %w", account, c.repo, err)
	}

	_, _, err = c.gh.Repositories.CreateFork(ctx, c.owner, c.repo, &github.RepositoryCreateForkOptions{
		DefaultBranchOnly: true,
	})
	var accepted *github.AcceptedError
	if err != nil && !errors.As(err, &accepted) {
		return false, fmt.Errorf("forking %s: %w", c.FullName(), err)
	}
	log.Info("Requested fork")
	return true, nil
}
