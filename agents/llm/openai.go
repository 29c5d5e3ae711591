/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type openaiClient struct {
	recorder
	client openai.Client
}

var _ Interface = (*openaiClient)(nil)

func newOpenAI(cfg Config) *openaiClient {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOpenAIBaseURL
	}
	return &openaiClient{
		recorder: recorder{model: cfg.Model, genai: cfg.Metrics},
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(base),
			option.WithMaxRetries(0),
		),
	}
}

func (c *openaiClient) Model() string { return c.model }

func (c *openaiClient) Complete(ctx context.Context, req *Request) (string, error) {
	ctx, tr := c.start(ctx, req)

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	res, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return c.finish(ctx, tr, "", 0, 0, fmt.Errorf("chat completion: %w", err))
	}
	var text string
	if len(res.Choices) > 0 {
		text = res.Choices[0].Message.Content
	}
	return c.finish(ctx, tr, text, res.Usage.PromptTokens, res.Usage.CompletionTokens, nil)
}
