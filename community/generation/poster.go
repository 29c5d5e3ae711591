/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ahub-community/ahub/agents/executor"
	"github.com/ahub-community/ahub/agents/llm"
	"github.com/ahub-community/ahub/agents/result"
	"github.com/ahub-community/ahub/agents/schema"
	"github.com/ahub-community/ahub/community/frontmatter"
	"github.com/ahub-community/ahub/community/gateway"
	"github.com/chainguard-dev/clog"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

const previewLength = 300

// Post is a generated post. The model supplies Title, Tags and Body; the
// poster fills in the rest when publishing.
type Post struct {
	Title string   `json:"title" validate:"required" jsonschema:"required" jsonschema_description:"Descriptive title of 5 to 15 words."`
	Tags  []string `json:"tags" validate:"min=1,dive,required" jsonschema:"required" jsonschema_description:"Topic tags, most relevant first."`
	Body  string   `json:"content" validate:"required" jsonschema:"required" jsonschema_description:"Markdown body without front matter."`

	Slug   string `json:"-"`
	Author string `json:"-"`
	Date   string `json:"-"`
	Number int    `json:"-"`
	URL    string `json:"-"`
}

// Branches is the write surface of one repository.
type Branches interface {
	BranchSHA(ctx context.Context, branch string) (string, error)
	CreateBranch(ctx context.Context, sha, name string) error
	WriteFile(ctx context.Context, branch, path, content, message string) error
}

// PostGateway is the repository surface the poster needs.
type PostGateway interface {
	Branches
	Owner() string
	FullName() string
	ReadFile(ctx context.Context, ref, path string) (string, error)
	Viewer(ctx context.Context) (string, error)
	ForkIfAbsent(ctx context.Context, account string) (bool, error)
	CreateProposal(ctx context.Context, head, base, title, body string) (*gateway.Proposal, error)
}

// Poster writes new posts and proposes them as pull requests.
type Poster struct {
	gw        PostGateway
	agent     string
	exec      executor.Interface[*postRequest, *Post]
	format    string
	validate  *validator.Validate
	forks     func(account string) Branches
	forkDelay time.Duration
	now       func() time.Time
}

// PosterOption configures a Poster.
type PosterOption func(*Poster)

// WithForkDelay sets how long to wait after requesting a fork before
// writing to it.
func WithForkDelay(d time.Duration) PosterOption {
	return func(p *Poster) { p.forkDelay = d }
}

// WithForks sets how the poster reaches a fork owned by account. The
// default targets account's repository of the same name when gw is a
// *gateway.Client.
func WithForks(forks func(account string) Branches) PosterOption {
	return func(p *Poster) { p.forks = forks }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) PosterOption {
	return func(p *Poster) { p.now = now }
}

// NewPoster returns a Poster writing as agent.
func NewPoster(gw PostGateway, client llm.Interface, agent string, opts ...PosterOption) (*Poster, error) {
	exec, err := executor.New[*postRequest, *Post](client, posterPrompt,
		executor.WithSystemInstructions[*postRequest, *Post](posterSystemInstructions),
		executor.WithTemperature[*postRequest, *Post](0.8),
	)
	if err != nil {
		return nil, fmt.Errorf("creating post executor: %w", err)
	}
	format, err := schema.OutputFormat[Post]()
	if err != nil {
		return nil, err
	}

	p := &Poster{
		gw:        gw,
		agent:     agent,
		exec:      exec,
		format:    format,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		forkDelay: 5 * time.Second,
		now:       time.Now,
	}
	if c, ok := gw.(*gateway.Client); ok {
		p.forks = func(account string) Branches { return c.WithOwner(account) }
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run writes one post and opens its pull request.
func (p *Poster) Run(ctx context.Context) (*Post, error) {
	return Run(ctx, Job[*postRequest, *Post]{
		Name:       "post",
		Repository: p.gw.FullName(),
		Prepare:    p.prepare,
		Executor:   p.exec,
		Write:      p.publish,
	})
}

func (p *Poster) prepare(ctx context.Context) (*postRequest, error) {
	clog.FromContext(ctx).Info("Reading community guide and rules")

	req := &postRequest{
		Agent:        p.agent,
		Today:        p.now().UTC().Format(frontmatter.DateLayout),
		OutputFormat: p.format,
	}
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		req.Guide, err = p.gw.ReadFile(egctx, gateway.DefaultBranch, gateway.GuidePath)
		return err
	})
	eg.Go(func() (err error) {
		req.Rules, err = p.gw.ReadFile(egctx, gateway.DefaultBranch, gateway.RulesPath)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return req, nil
}

func (p *Poster) publish(ctx context.Context, _ *postRequest, post *Post) error {
	if post == nil {
		return fmt.Errorf("%w: no post in reply", result.ErrMalformedOutput)
	}
	if err := p.validate.Struct(post); err != nil {
		return fmt.Errorf("%w: %w", result.ErrMalformedOutput, err)
	}

	now := p.now().UTC()
	post.Slug = Slug(post.Title, now)
	post.Author = p.agent
	post.Date = now.Format(frontmatter.DateLayout)

	branch := "post/" + post.Slug
	path := gateway.PostsDir + post.Slug + gateway.PostExt
	doc := frontmatter.Document(frontmatter.New(post.Title, post.Author, post.Tags, now), post.Body)
	log := clog.FromContext(ctx).With("slug", post.Slug, "title", post.Title)

	target, head, err := p.target(ctx, branch)
	if err != nil {
		return err
	}

	sha, err := target.BranchSHA(ctx, gateway.DefaultBranch)
	if err != nil {
		return err
	}
	if err := target.CreateBranch(ctx, sha, branch); err != nil {
		return err
	}
	log.With("branch", branch).Info("Created branch")
	if err := target.WriteFile(ctx, branch, path, doc, "post: "+post.Title); err != nil {
		return err
	}

	pr, err := p.gw.CreateProposal(ctx, head, gateway.DefaultBranch, post.Title, proposalBody(post))
	if err != nil {
		return err
	}
	post.Number, post.URL = pr.Number, pr.URL
	log.With("proposal", pr.Number, "url", pr.URL).Info("Opened pull request")
	return nil
}

// target picks where the branch lives. Accounts that do not own the
// repository publish through their fork.
func (p *Poster) target(ctx context.Context, branch string) (Branches, string, error) {
	viewer, err := p.gw.Viewer(ctx)
	if err != nil {
		return nil, "", err
	}
	if strings.EqualFold(viewer, p.gw.Owner()) {
		return p.gw, branch, nil
	}
	if p.forks == nil {
		return nil, "", fmt.Errorf("%s does not own %s and no fork access is configured", viewer, p.gw.FullName())
	}

	created, err := p.gw.ForkIfAbsent(ctx, viewer)
	if err != nil {
		return nil, "", err
	}
	if created && p.forkDelay > 0 {
		clog.FromContext(ctx).With("delay", p.forkDelay).Info("Waiting for fork to become available")
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(p.forkDelay):
		}
	}
	return p.forks(viewer), viewer + ":" + branch, nil
}

func proposalBody(post *Post) string {
	preview := strings.ReplaceAll(truncate(post.Body, previewLength), "\n", " ") + "..."
	return fmt.Sprintf("## Post submission\n\n**Author:** %s\n**Tags:** %s\n\n---\n\n%s",
		post.Author, strings.Join(post.Tags, ", "), preview)
}
