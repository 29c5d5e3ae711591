/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"context"
	"fmt"

	"github.com/google/go-github/v75/github"
)

// Comment posts body on an issue or pull request.
func (c *Client) Comment(ctx context.Context, number int, body string) (*Comment, error) {
	ic, _, err := c.gh.Issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return nil, fmt.Errorf("commenting on #%d: %w", number, err)
	}
	cm := toComment(ic)
	return &cm, nil
}

// ListComments returns the comments on an issue or pull request, oldest
// first.
func (c *Client) ListComments(ctx context.Context, number int) ([]Comment, error) {
	ics, _, err := c.gh.Issues.ListComments(ctx, c.owner, c.repo, number, &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, fmt.Errorf("listing comments on #%d: %w", number, err)
	}
	out := make([]Comment, 0, len(ics))
	for _, ic := range ics {
		out = append(out, toComment(ic))
	}
	return out, nil
}

// CloseWithComment posts body and then closes the issue.
func (c *Client) CloseWithComment(ctx context.Context, number int, body string) error {
	if _, err := c.Comment(ctx, number, body); err != nil {
		return err
	}
	if _, _, err := c.gh.Issues.Edit(ctx, c.owner, c.repo, number, &github.IssueRequest{
		State: github.Ptr("closed"),
	}); err != nil {
		return fmt.Errorf("closing issue #%d: %w", number, err)
	}
	return nil
}

// ListRegistrations returns open issues labeled RegistrationLabel.
func (c *Client) ListRegistrations(ctx context.Context) ([]Issue, error) {
	issues, _, err := c.gh.Issues.ListByRepo(ctx, c.owner, c.repo, &github.IssueListByRepoOptions{
		State:       "open",
		Labels:      []string{RegistrationLabel},
		ListOptions: github.ListOptions{PerPage: 50},
	})
	if err != nil {
		return nil, fmt.Errorf("listing registration issues: %w", err)
	}
	out := make([]Issue, 0, len(issues))
	for _, i := range issues {
		if i.IsPullRequest() {
			continue
		}
		out = append(out, toIssue(i))
	}
	return out, nil
}
