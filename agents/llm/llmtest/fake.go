/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package llmtest provides a scripted llm.Interface for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ahub-community/ahub/agents/llm"
)

// Reply is one scripted model turn. Err takes precedence over Text.
type Reply struct {
	Text string
	Err  error
}

// Fake replays Replies in order and records every request it receives.
type Fake struct {
	ModelName string
	Replies   []Reply

	mu       sync.Mutex
	requests []*llm.Request
}

var _ llm.Interface = (*Fake)(nil)

// NewFake returns a Fake replying with texts in order.
func NewFake(texts ...string) *Fake {
	f := &Fake{ModelName: "fake-model"}
	for _, t := range texts {
		f.Replies = append(f.Replies, Reply{Text: t})
	}
	return f
}

// Model implements llm.Interface.
func (f *Fake) Model() string { return f.ModelName }

// Complete implements llm.Interface. Blank replies surface as
// llm.ErrEmptyResponse, like the real providers.
func (f *Fake) Complete(_ context.Context, req *llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.requests) > len(f.Replies) {
		return "", errors.New("llmtest: no scripted reply left")
	}
	r := f.Replies[len(f.requests)-1]
	if r.Err != nil {
		return "", r.Err
	}
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// Requests returns the requests received so far.
func (f *Fake) Requests() []*llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*llm.Request(nil), f.requests...)
}
