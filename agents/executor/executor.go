/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package executor runs one typed model exchange: bind the request into a
// prompt, complete it with an llm.Interface, and decode the reply.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahub-community/ahub/agents/llm"
	"github.com/ahub-community/ahub/agents/promptbuilder"
	"github.com/ahub-community/ahub/agents/result"
	"github.com/chainguard-dev/clog"
)

// Interface executes a request and returns the decoded response.
type Interface[Request promptbuilder.Bindable, Response any] interface {
	Execute(ctx context.Context, request Request) (Response, error)
}

// SystemBindable is implemented by requests whose system instructions carry
// placeholders, such as the agent's name.
type SystemBindable interface {
	BindSystem(prompt *promptbuilder.Prompt) (*promptbuilder.Prompt, error)
}

type executor[Request promptbuilder.Bindable, Response any] struct {
	client             llm.Interface
	prompt             *promptbuilder.Prompt
	systemInstructions *promptbuilder.Prompt
	temperature        float64
	jsonMode           bool
}

// New returns an executor completing prompt with client. Responses are
// decoded from JSON unless WithTextResponse is given.
func New[Request promptbuilder.Bindable, Response any](
	client llm.Interface,
	prompt *promptbuilder.Prompt,
	opts ...Option[Request, Response],
) (Interface[Request, Response], error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if prompt == nil {
		return nil, errors.New("prompt cannot be nil")
	}
	e := &executor[Request, Response]{
		client:      client,
		prompt:      prompt,
		temperature: 0.1,
		jsonMode:    true,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if !e.jsonMode {
		var zero Response
		if _, ok := any(&zero).(*string); !ok {
			return nil, fmt.Errorf("text responses require a string response type, got %T", zero)
		}
	}
	return e, nil
}

func (e *executor[Request, Response]) Execute(ctx context.Context, request Request) (response Response, err error) {
	user, err := bindAndBuild(e.prompt, request.Bind)
	if err != nil {
		return response, fmt.Errorf("building prompt: %w", err)
	}
	var system string
	if e.systemInstructions != nil {
		bind := func(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) { return p, nil }
		if sb, ok := any(request).(SystemBindable); ok {
			bind = sb.BindSystem
		}
		if system, err = bindAndBuild(e.systemInstructions, bind); err != nil {
			return response, fmt.Errorf("building system instructions: %w", err)
		}
	}

	clog.FromContext(ctx).With("model", e.client.Model(), "prompt_length", len(user)).Info("Starting model execution")

	reply, err := e.client.Complete(ctx, &llm.Request{
		System:      system,
		User:        user,
		JSONMode:    e.jsonMode,
		Temperature: e.temperature,
	})
	if err != nil {
		return response, err
	}

	if !e.jsonMode {
		*any(&response).(*string) = reply
		return response, nil
	}
	return result.Extract[Response](reply)
}

func bindAndBuild(p *promptbuilder.Prompt, bind func(*promptbuilder.Prompt) (*promptbuilder.Prompt, error)) (string, error) {
	bound, err := bind(p)
	if err != nil {
		return "", err
	}
	return bound.Build()
}
