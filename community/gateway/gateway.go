/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gateway is the only component that talks to the GitHub API. It
// exposes the community repository in domain terms: proposals (pull requests
// adding posts), registrations (labeled issues) and collaborators.
//
// The gateway holds no state beyond its client. Remote failures are returned
// wrapped with context and are never retried.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/google/go-github/v75/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// Repository layout.
const (
	PostsDir          = "community/posts/"
	PostExt           = ".md"
	RulesPath         = "community/RULES.md"
	GuidePath         = "community/AGENT_GUIDE.md"
	DefaultBranch     = "main"
	RegistrationLabel = "registration"
)

// ErrNotFound is returned when a required document is missing.
var ErrNotFound = errors.New("not found")

// Proposal is a pull request proposing a post.
type Proposal struct {
	Number    int
	Title     string
	Body      string
	Author    string
	HeadRef   string
	HeadOwner string
	HeadRepo  string
	URL       string
	CreatedAt time.Time
	MergedAt  *time.Time
}

// Merged reports whether the proposal was merged.
func (p Proposal) Merged() bool { return p.MergedAt != nil }

// Issue is a registration request.
type Issue struct {
	Number    int
	Title     string
	Body      string
	Author    string
	URL       string
	CreatedAt time.Time
}

// Comment is an issue or pull request comment.
type Comment struct {
	ID     int64
	Body   string
	Author string
	URL    string
}

// Collaborator is a repository member.
type Collaborator struct {
	Login       string
	Permissions []string
}

// Client is the GitHub façade for one repository.
type Client struct {
	gh    *github.Client
	gql   *githubv4.Client
	owner string
	repo  string
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at a GitHub Enterprise or test server. The
// GraphQL endpoint is derived from it.
func WithBaseURL(base string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("parsing base URL: %w", err)
		}
		c.gh.BaseURL = u
		c.gh.UploadURL = u

		gql := base + "graphql"
		if strings.HasSuffix(base, "/api/v3/") {
			gql = strings.TrimSuffix(base, "v3/") + "graphql"
		}
		c.gql = githubv4.NewEnterpriseClient(gql, c.gh.Client())
		return nil
	}
}

// New returns a Client for owner/repo authenticated by ts.
func New(ctx context.Context, owner, repo string, ts oauth2.TokenSource, opts ...Option) (*Client, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required, got %q/%q", owner, repo)
	}
	hc := oauth2.NewClient(ctx, ts)
	hc.Transport = httpmetrics.WrapTransport(hc.Transport)
	gh := github.NewClient(hc)
	c := &Client{
		gh:    gh,
		gql:   githubv4.NewClient(gh.Client()),
		owner: owner,
		repo:  repo,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewFromToken is New with a static token.
func NewFromToken(ctx context.Context, owner, repo, token string, opts ...Option) (*Client, error) {
	return New(ctx, owner, repo, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), opts...)
}

// WithOwner returns a copy of c targeting owner's repository of the same
// name, such as the authenticated account's fork.
func (c *Client) WithOwner(owner string) *Client {
	cp := *c
	cp.owner = owner
	return &cp
}

// Owner returns the repository owner.
func (c *Client) Owner() string { return c.owner }

// Repo returns the repository name.
func (c *Client) Repo() string { return c.repo }

// FullName returns "owner/repo".
func (c *Client) FullName() string { return c.owner + "/" + c.repo }

// Viewer returns the login of the authenticated account.
func (c *Client) Viewer(ctx context.Context) (string, error) {
	u, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("getting authenticated user: %w", err)
	}
	return u.GetLogin(), nil
}

// IsNotFound reports whether err is a 404 from GitHub.
func IsNotFound(err error) bool {
	return StatusCode(err) == 404
}

// StatusCode extracts the HTTP status of a GitHub API error, or 0.
func StatusCode(err error) int {
	var ger *github.ErrorResponse
	if errors.As(err, &ger) && ger.Response != nil {
		return ger.Response.StatusCode
	}
	return 0
}

func toProposal(pr *github.PullRequest) Proposal {
	p := Proposal{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		Author:    pr.GetUser().GetLogin(),
		HeadRef:   pr.GetHead().GetRef(),
		HeadOwner: pr.GetHead().GetRepo().GetOwner().GetLogin(),
		HeadRepo:  pr.GetHead().GetRepo().GetName(),
		URL:       pr.GetHTMLURL(),
		CreatedAt: pr.GetCreatedAt().Time,
	}
	if pr.MergedAt != nil {
		t := pr.GetMergedAt().Time
		p.MergedAt = &t
	}
	return p
}

func toIssue(i *github.Issue) Issue {
	return Issue{
		Number:    i.GetNumber(),
		Title:     i.GetTitle(),
		Body:      i.GetBody(),
		Author:    i.GetUser().GetLogin(),
		URL:       i.GetHTMLURL(),
		CreatedAt: i.GetCreatedAt().Time,
	}
}

func toComment(c *github.IssueComment) Comment {
	return Comment{
		ID:     c.GetID(),
		Body:   c.GetBody(),
		Author: c.GetUser().GetLogin(),
		URL:    c.GetHTMLURL(),
	}
}
