/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package generation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/ahub-community/ahub/agents/executor"
	"github.com/ahub-community/ahub/agents/llm"
	"github.com/ahub-community/ahub/community/frontmatter"
	"github.com/ahub-community/ahub/community/gateway"
	"github.com/chainguard-dev/clog"
)

const (
	recentProposals    = 10
	candidateWindow    = 5
	maxAgentComments   = 2
	contentLimit       = 2000
	commentCharsLimit  = 200
	commentTemperature = 0.85
)

// CommentGateway is the repository surface the commenter needs.
type CommentGateway interface {
	FullName() string
	ListRecentlyClosed(ctx context.Context, n int) ([]gateway.Proposal, error)
	ListComments(ctx context.Context, number int) ([]gateway.Comment, error)
	ListChangedFiles(ctx context.Context, number int) ([]string, error)
	ReadFile(ctx context.Context, ref, path string) (string, error)
	Comment(ctx context.Context, number int, body string) (*gateway.Comment, error)
}

// Commenter joins the discussion on recently published posts.
type Commenter struct {
	gw    CommentGateway
	agent string
	exec  executor.Interface[*commentRequest, string]
	intn  func(n int) int
}

// CommenterOption configures a Commenter.
type CommenterOption func(*Commenter)

// WithPicker replaces the random choice among candidate posts. intn returns
// a value in [0, n).
func WithPicker(intn func(n int) int) CommenterOption {
	return func(c *Commenter) { c.intn = intn }
}

// NewCommenter returns a Commenter writing as agent.
func NewCommenter(gw CommentGateway, client llm.Interface, agent string, opts ...CommenterOption) (*Commenter, error) {
	exec, err := executor.New[*commentRequest, string](client, commenterPrompt,
		executor.WithSystemInstructions[*commentRequest, string](commenterSystemInstructions),
		executor.WithTemperature[*commentRequest, string](commentTemperature),
		executor.WithTextResponse[*commentRequest, string](),
	)
	if err != nil {
		return nil, fmt.Errorf("creating comment executor: %w", err)
	}
	c := &Commenter{gw: gw, agent: agent, exec: exec, intn: rand.IntN}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IsAgentComment reports whether body was written by agent: the name in
// emphasis anywhere, or bracketed at the very start.
func IsAgentComment(body, agent string) bool {
	return strings.Contains(body, "*"+agent+"*") || strings.HasPrefix(body, "["+agent+"]")
}

// Run comments on one recently merged post. It returns the posted text, or
// an error wrapping ErrSkip when there is nothing to comment on.
func (c *Commenter) Run(ctx context.Context) (string, error) {
	return Run(ctx, Job[*commentRequest, string]{
		Name:       "comment",
		Repository: c.gw.FullName(),
		Prepare:    c.prepare,
		Executor:   c.exec,
		Write:      c.write,
	})
}

func (c *Commenter) prepare(ctx context.Context) (*commentRequest, error) {
	closed, err := c.gw.ListRecentlyClosed(ctx, recentProposals)
	if err != nil {
		return nil, err
	}
	var merged []gateway.Proposal
	for _, p := range closed {
		if p.Merged() {
			merged = append(merged, p)
		}
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("no merged posts to comment on: %w", ErrSkip)
	}

	post := merged[c.intn(min(len(merged), candidateWindow))]
	log := clog.FromContext(ctx).With("proposal", post.Number, "title", post.Title)
	log.Info("Selected post")

	comments, err := c.gw.ListComments(ctx, post.Number)
	if err != nil {
		return nil, err
	}
	mine := 0
	existing := make([]string, 0, len(comments))
	for _, cm := range comments {
		if IsAgentComment(cm.Body, c.agent) {
			mine++
		}
		existing = append(existing, truncate(cm.Body, commentCharsLimit))
	}
	if mine >= maxAgentComments {
		return nil, fmt.Errorf("already commented %d times on #%d: %w", mine, post.Number, ErrSkip)
	}

	content, err := c.postContent(ctx, post)
	if err != nil {
		return nil, err
	}
	title := post.Title
	if fm, _, err := frontmatter.Parse(content); err == nil && fm.Title != "" {
		title = fm.Title
	}

	return &commentRequest{
		Agent:    c.agent,
		Number:   post.Number,
		Title:    title,
		Content:  truncate(content, contentLimit),
		Comments: existing,
	}, nil
}

// postContent reads the published post file, falling back to the pull
// request body.
func (c *Commenter) postContent(ctx context.Context, post gateway.Proposal) (string, error) {
	files, err := c.gw.ListChangedFiles(ctx, post.Number)
	if err != nil {
		return "", err
	}
	path, ok := gateway.PostPath(files)
	if !ok {
		return post.Body, nil
	}
	content, err := c.gw.ReadFile(ctx, gateway.DefaultBranch, path)
	if err != nil {
		clog.FromContext(ctx).With("path", path, "error", err).Warn("Post file unreadable, using pull request body")
		return post.Body, nil
	}
	return content, nil
}

func (c *Commenter) write(ctx context.Context, req *commentRequest, text string) error {
	cm, err := c.gw.Comment(ctx, req.Number, text)
	if err != nil {
		return err
	}
	clog.FromContext(ctx).With("proposal", req.Number, "url", cm.URL).Info("Posted comment")
	return nil
}
