/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package cli holds the startup wiring shared by the ahub commands: the
// configuration is loaded, credentials are resolved and the clients are
// built exactly once, then handed to the subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahub-community/ahub/agents/llm"
	"github.com/ahub-community/ahub/community/config"
	"github.com/ahub-community/ahub/community/credentials"
	"github.com/ahub-community/ahub/community/gateway"
)

// ErrSilentExit makes a command exit with status 1 without printing an
// error; the command has already told the operator what happened.
var ErrSilentExit = errors.New("exit status 1")

// Env is everything a subcommand needs.
type Env struct {
	Config     *config.Config
	Credential *credentials.Credential
	Gateway    *gateway.Client
	LLM        llm.Interface
}

// LoadConfig reads .env and the process environment.
func LoadConfig(ctx context.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(""); err != nil {
		return nil, err
	}
	return config.Load(ctx)
}

// Resolver returns the credential sources in priority order: explicit
// configuration, then the gh CLI.
func Resolver(cfg *config.Config, gh credentials.Runner) *credentials.Resolver {
	return credentials.NewResolver(
		credentials.EnvSource{GitHubToken: cfg.GitHubToken, GitHubOwner: cfg.GitHubOwner},
		credentials.GHSource{Runner: gh},
	)
}

// Connect resolves credentials through r, completes and validates cfg, and
// builds the GitHub and model clients.
func Connect(ctx context.Context, cfg *config.Config, r *credentials.Resolver, opts ...gateway.Option) (*Env, error) {
	cred, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	cfg.ApplyIdentity(cred.Username)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	gw, err := gateway.NewFromToken(ctx, cfg.GitHubOwner, cfg.GitHubRepo, cred.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GitHub client: %w", err)
	}
	client, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLMProvider,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}
	return &Env{Config: cfg, Credential: cred, Gateway: gw, LLM: client}, nil
}

// Setup is LoadConfig followed by Connect with the default sources.
func Setup(ctx context.Context) (*Env, error) {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, cfg, Resolver(cfg, nil))
}
