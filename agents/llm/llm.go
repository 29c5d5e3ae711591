/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package llm is a single-call chat-completion client. Each Complete is one
// request: no streaming, no conversation state and no retries.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahub-community/ahub/agents/agenttrace"
	"github.com/ahub-community/ahub/agents/metrics"
	"github.com/chainguard-dev/clog"
)

// ErrEmptyResponse is returned when the model replies with no text.
var ErrEmptyResponse = errors.New("empty response from language model")

// DefaultOpenAIBaseURL is used when no endpoint is configured.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// Provider names accepted by Config.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Request is one system + user exchange.
type Request struct {
	System      string
	User        string
	JSONMode    bool
	Temperature float64
}

// Interface completes a single request.
type Interface interface {
	Complete(ctx context.Context, req *Request) (string, error)
	Model() string
}

// Config selects and configures a provider.
type Config struct {
	// Provider is one of the Provider* constants. When empty it is inferred
	// from the model name: claude-* is Anthropic, gemini-* is Google,
	// anything else is an OpenAI-compatible endpoint.
	Provider  string
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int64
	Metrics   *metrics.GenAI
}

// New returns the client for cfg's provider.
func New(ctx context.Context, cfg Config) (Interface, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewGenAI("ahub.agents")
		cfg.Metrics.SetAttributeEnricher(metrics.ExecutionContextEnricher)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	switch provider := ResolveProvider(cfg.Provider, cfg.Model); provider {
	case ProviderOpenAI:
		return newOpenAI(cfg), nil
	case ProviderAnthropic:
		return newAnthropic(cfg), nil
	case ProviderGoogle:
		return newGoogle(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s (expected openai, anthropic or google)", provider)
	}
}

// ResolveProvider returns provider, or the provider implied by model when
// provider is empty.
func ResolveProvider(provider, model string) string {
	if provider != "" {
		return strings.ToLower(provider)
	}
	switch m := strings.ToLower(model); {
	case strings.HasPrefix(m, "claude-"):
		return ProviderAnthropic
	case strings.HasPrefix(m, "gemini-"):
		return ProviderGoogle
	default:
		return ProviderOpenAI
	}
}

// customBaseURL reports whether base should be passed to a non-OpenAI SDK.
func customBaseURL(base string) bool {
	return base != "" && base != DefaultOpenAIBaseURL
}

// recorder is shared by the providers to trace, meter and normalize each
// completion.
type recorder struct {
	model string
	genai *metrics.GenAI
}

func (r recorder) start(ctx context.Context, req *Request) (context.Context, *agenttrace.Trace) {
	return agenttrace.Start(ctx, r.model, req.System+"\n\n"+req.User)
}

func (r recorder) finish(ctx context.Context, tr *agenttrace.Trace, text string, in, out int64, err error) (string, error) {
	log := clog.FromContext(ctx).With("model", r.model)
	if err != nil {
		r.genai.RecordRequest(ctx, r.model, "error")
		tr.Complete(err)
		return "", err
	}

	tr.RecordTokenUsage(in, out)
	r.genai.RecordTokens(ctx, r.model, in, out)

	text = strings.TrimSpace(text)
	if text == "" {
		r.genai.RecordRequest(ctx, r.model, "empty")
		tr.Complete(ErrEmptyResponse)
		return "", ErrEmptyResponse
	}
	r.genai.RecordRequest(ctx, r.model, "ok")
	tr.Complete(nil)
	log.With("tokens_in", in, "tokens_out", out, "duration", tr.Duration()).Debug("Completion finished")
	return text, nil
}
