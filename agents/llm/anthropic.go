/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// jsonOnly is appended to the system prompt in JSON mode; the Messages API
// has no response-format switch.
const jsonOnly = "\n\nRespond with a single JSON object and nothing else."

type anthropicClient struct {
	recorder
	client    anthropic.Client
	maxTokens int64
}

var _ Interface = (*anthropicClient)(nil)

func newAnthropic(cfg Config) *anthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if customBaseURL(cfg.BaseURL) {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicClient{
		recorder:  recorder{model: cfg.Model, genai: cfg.Metrics},
		client:    anthropic.NewClient(opts...),
		maxTokens: cfg.MaxTokens,
	}
}

func (c *anthropicClient) Model() string { return c.model }

func (c *anthropicClient) Complete(ctx context.Context, req *Request) (string, error) {
	ctx, tr := c.start(ctx, req)

	system := req.System
	if req.JSONMode {
		system += jsonOnly
	}
	res, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.User))},
		Temperature: anthropic.Float(min(req.Temperature, 1.0)),
	})
	if err != nil {
		return c.finish(ctx, tr, "", 0, 0, fmt.Errorf("messages: %w", err))
	}

	var sb strings.Builder
	for _, block := range res.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return c.finish(ctx, tr, sb.String(), res.Usage.InputTokens, res.Usage.OutputTokens, nil)
}
