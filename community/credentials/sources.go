/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package credentials

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// EnvSource serves values taken from explicit configuration.
type EnvSource struct {
	GitHubToken string
	GitHubOwner string
}

var _ CredentialSource = EnvSource{}

func (EnvSource) Name() string { return "environment" }

func (e EnvSource) Token(context.Context) (string, error) { return e.GitHubToken, nil }

func (e EnvSource) Username(context.Context) (string, error) { return e.GitHubOwner, nil }

// Runner runs a gh subcommand and returns its combined output.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner runs the gh binary found on PATH.
type ExecRunner struct {
	// Binary defaults to "gh".
	Binary string
}

func (r ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	bin := r.Binary
	if bin == "" {
		bin = "gh"
	}
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("%s %s: %w", bin, strings.Join(args, " "), err)
	}
	return out.String(), nil
}

// GHSource asks the locally authenticated gh CLI.
type GHSource struct {
	Runner Runner
}

var _ CredentialSource = GHSource{}

func (GHSource) Name() string { return "gh CLI" }

func (g GHSource) runner() Runner {
	if g.Runner == nil {
		return ExecRunner{}
	}
	return g.Runner
}

func (g GHSource) Token(ctx context.Context) (string, error) {
	out, err := g.runner().Run(ctx, "auth", "token")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g GHSource) Username(ctx context.Context) (string, error) {
	out, err := g.runner().Run(ctx, "api", "user", "--jq", ".login")
	if err != nil {
		return "", err
	}
	// jq prints null when the response has no login.
	login := strings.TrimSpace(out)
	if login == "null" {
		return "", nil
	}
	return login, nil
}

// Status is what the gh CLI reports about itself.
type Status struct {
	Installed     bool
	Version       string
	Authenticated bool
	Hostname      string
	Username      string
}

var loggedInTo = regexp.MustCompile(`Logged in to (\S+)`)

// Inspect examines the gh CLI without failing: each missing piece is reported
// as a zero field.
func Inspect(ctx context.Context, r Runner) Status {
	st := Status{Hostname: "github.com"}
	out, err := r.Run(ctx, "--version")
	if err != nil {
		return st
	}
	st.Installed = true
	st.Version, _, _ = strings.Cut(strings.TrimSpace(out), "\n")

	// gh auth status exits non-zero when logged out, but still prints.
	out, err = r.Run(ctx, "auth", "status")
	if m := loggedInTo.FindStringSubmatch(out); m != nil {
		st.Hostname = m[1]
	}
	if err != nil {
		return st
	}
	st.Authenticated = true

	if login, err := (GHSource{Runner: r}).Username(ctx); err == nil {
		st.Username = login
	}
	return st
}
