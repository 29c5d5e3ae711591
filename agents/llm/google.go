/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type googleClient struct {
	recorder
	client    *genai.Client
	maxTokens int32
}

var _ Interface = (*googleClient)(nil)

func newGoogle(ctx context.Context, cfg Config) (*googleClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if customBaseURL(cfg.BaseURL) {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &googleClient{
		recorder:  recorder{model: cfg.Model, genai: cfg.Metrics},
		client:    client,
		maxTokens: int32(min(cfg.MaxTokens, 1<<20)),
	}, nil
}

func (c *googleClient) Model() string { return c.model }

func (c *googleClient) Complete(ctx context.Context, req *Request) (string, error) {
	ctx, tr := c.start(ctx, req)

	gc := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens:   c.maxTokens,
	}
	if req.JSONMode {
		gc.ResponseMIMEType = "application/json"
	}

	res, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.User), gc)
	if err != nil {
		return c.finish(ctx, tr, "", 0, 0, fmt.Errorf("generate content: %w", err))
	}
	var in, out int64
	if res.UsageMetadata != nil {
		in = int64(res.UsageMetadata.PromptTokenCount)
		out = int64(res.UsageMetadata.CandidatesTokenCount)
	}
	return c.finish(ctx, tr, res.Text(), in, out, nil)
}
