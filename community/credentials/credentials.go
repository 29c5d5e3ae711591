/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package credentials resolves the GitHub token and username from an
// ordered list of sources. Resolution happens once per process; the result
// is passed explicitly and never written anywhere.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
)

// ErrNoCredential is matched by every *NoCredentialError.
var ErrNoCredential = errors.New("no credential available")

// NoCredentialError reports that no source produced a value. Its message
// includes remediation steps for the operator.
type NoCredentialError struct {
	What        string // "GitHub token" or "GitHub username"
	Remediation string
}

func (e *NoCredentialError) Error() string {
	return fmt.Sprintf("unable to resolve %s.\n\n%s", e.What, e.Remediation)
}

// Is makes errors.Is(err, ErrNoCredential) hold.
func (e *NoCredentialError) Is(target error) bool {
	return target == ErrNoCredential
}

const (
	tokenRemediation = `Fix it in one of two ways:
  1. Install the GitHub CLI (https://cli.github.com) and run: gh auth login
  2. Set GITHUB_TOKEN in your .env file`

	usernameRemediation = `Fix it in one of two ways:
  1. Install the GitHub CLI and run: gh auth login
  2. Set GITHUB_OWNER in your .env file`
)

// CredentialSource produces a token and a username. An empty value with a
// nil error means the source has nothing to offer.
type CredentialSource interface {
	Name() string
	Token(ctx context.Context) (string, error)
	Username(ctx context.Context) (string, error)
}

// Credential is a resolved GitHub identity.
type Credential struct {
	Token          string
	Username       string
	TokenSource    string
	UsernameSource string
}

// Resolver consults Sources in order; the first non-empty value wins.
type Resolver struct {
	Sources []CredentialSource
}

// NewResolver returns a Resolver over sources in priority order.
func NewResolver(sources ...CredentialSource) *Resolver {
	return &Resolver{Sources: sources}
}

// Resolve returns both token and username, or a *NoCredentialError for the
// first one that could not be found.
func (r *Resolver) Resolve(ctx context.Context) (*Credential, error) {
	token, tsrc, err := r.ResolveToken(ctx)
	if err != nil {
		return nil, err
	}
	user, usrc, err := r.ResolveUsername(ctx)
	if err != nil {
		return nil, err
	}
	clog.FromContext(ctx).With("token_source", tsrc, "username_source", usrc, "username", user).Info("Resolved GitHub credentials")
	return &Credential{
		Token:          token,
		Username:       user,
		TokenSource:    tsrc,
		UsernameSource: usrc,
	}, nil
}

// ResolveToken returns the first available token and the name of its source.
func (r *Resolver) ResolveToken(ctx context.Context) (string, string, error) {
	return r.first(ctx, CredentialSource.Token, &NoCredentialError{What: "GitHub token", Remediation: tokenRemediation})
}

// ResolveUsername returns the first available username and the name of its
// source.
func (r *Resolver) ResolveUsername(ctx context.Context) (string, string, error) {
	return r.first(ctx, CredentialSource.Username, &NoCredentialError{What: "GitHub username", Remediation: usernameRemediation})
}

func (r *Resolver) first(ctx context.Context, get func(CredentialSource, context.Context) (string, error), notFound error) (string, string, error) {
	log := clog.FromContext(ctx)
	for _, src := range r.Sources {
		v, err := get(src, ctx)
		if err != nil {
			// A failing source is skipped so a later one can still answer.
			log.With("source", src.Name(), "error", err).Debug("Credential source failed")
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, src.Name(), nil
		}
	}
	return "", "", notFound
}

// Mask hides all but the first head and last tail characters of secret.
// Secrets too short to mask safely are hidden entirely.
func Mask(secret string, head, tail int) string {
	if secret == "" {
		return "(not set)"
	}
	r := []rune(secret)
	if len(r) <= head+tail+4 {
		return "****"
	}
	return string(r[:head]) + "****" + string(r[len(r)-tail:])
}
