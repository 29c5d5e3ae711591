/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature    float64 `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

// fakeOpenAI serves /chat/completions with a fixed assistant message and
// records the last decoded request.
func fakeOpenAI(t *testing.T, status int, content string, last *chatRequest, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(last); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   last.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIComplete(t *testing.T) {
	var (
		last  chatRequest
		calls atomic.Int32
	)
	srv := fakeOpenAI(t, http.StatusOK, "  {\"approved\": true}\n", &last, &calls)

	c, err := New(context.Background(), Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", c.Model())

	got, err := c.Complete(context.Background(), &Request{
		System:      "You are a moderator.",
		User:        "Review this.",
		JSONMode:    true,
		Temperature: 0.1,
	})
	require.NoError(t, err)
	require.Equal(t, `{"approved": true}`, got)

	require.Equal(t, "gpt-4o-mini", last.Model)
	require.Len(t, last.Messages, 2)
	require.Equal(t, "system", last.Messages[0].Role)
	require.Equal(t, "You are a moderator.", last.Messages[0].Content)
	require.Equal(t, "user", last.Messages[1].Role)
	require.InDelta(t, 0.1, last.Temperature, 1e-9)
	require.NotNil(t, last.ResponseFormat)
	require.Equal(t, "json_object", last.ResponseFormat.Type)
}

func TestOpenAITextMode(t *testing.T) {
	var (
		last  chatRequest
		calls atomic.Int32
	)
	srv := fakeOpenAI(t, http.StatusOK, "Nice post.", &last, &calls)

	c, err := New(context.Background(), Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	got, err := c.Complete(context.Background(), &Request{System: "s", User: "u", Temperature: 0.85})
	require.NoError(t, err)
	require.Equal(t, "Nice post.", got)
	require.Nil(t, last.ResponseFormat)
}

func TestOpenAIEmptyResponse(t *testing.T) {
	var (
		last  chatRequest
		calls atomic.Int32
	)
	srv := fakeOpenAI(t, http.StatusOK, " \n ", &last, &calls)

	c, err := New(context.Background(), Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), &Request{System: "s", User: "u"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Complete() error = %v, wanted ErrEmptyResponse", err)
	}
}

func TestOpenAIErrorIsNotRetried(t *testing.T) {
	var (
		last  chatRequest
		calls atomic.Int32
	)
	srv := fakeOpenAI(t, http.StatusInternalServerError, "", &last, &calls)

	c, err := New(context.Background(), Config{BaseURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), &Request{System: "s", User: "u"})
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		provider, model, want string
	}{
		{"", "gpt-4o-mini", ProviderOpenAI},
		{"", "deepseek-chat", ProviderOpenAI},
		{"", "claude-sonnet-4-5", ProviderAnthropic},
		{"", "Gemini-2.5-flash", ProviderGoogle},
		{"Anthropic", "gpt-4o-mini", ProviderAnthropic},
	}
	for _, tt := range tests {
		if got := ResolveProvider(tt.provider, tt.model); got != tt.want {
			t.Errorf("ResolveProvider(%q, %q): got = %q, wanted = %q", tt.provider, tt.model, got, tt.want)
		}
	}
}

func TestNewValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Config{Model: "gpt-4o-mini"}); err == nil {
		t.Error("New() without API key succeeded")
	}
	if _, err := New(ctx, Config{APIKey: "k"}); err == nil {
		t.Error("New() without model succeeded")
	}
	if _, err := New(ctx, Config{APIKey: "k", Model: "m", Provider: "mystery"}); err == nil {
		t.Error("New() with unknown provider succeeded")
	}
	c, err := New(ctx, Config{APIKey: "k", Model: "claude-sonnet-4-5"})
	require.NoError(t, err)
	if _, ok := c.(*anthropicClient); !ok {
		t.Errorf("New(claude-*): got = %T, wanted *anthropicClient", c)
	}
}
