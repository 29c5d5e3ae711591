/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package agenttrace carries per-run context for model executions and
// records each execution as an OpenTelemetry span.
package agenttrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// ExecutionContext identifies the pipeline run a model call belongs to.
type ExecutionContext struct {
	Pipeline   string `json:"pipeline,omitempty"`   // "moderation", "poster" or "commenter"
	Repository string `json:"repository,omitempty"` // "owner/repo"
	Proposal   int    `json:"proposal,omitempty"`   // pull request number, when there is one
}

// EnrichAttributes appends the bounded labels of e to base. The proposal
// number is left out of metrics and only recorded on spans.
func (e ExecutionContext) EnrichAttributes(base []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(base), len(base)+2)
	copy(attrs, base)
	if e.Pipeline != "" {
		attrs = append(attrs, attribute.String("pipeline", e.Pipeline))
	}
	if e.Repository != "" {
		attrs = append(attrs, attribute.String("repository", e.Repository))
	}
	return attrs
}

type contextKey struct{}

// WithExecutionContext returns a copy of ctx carrying ec.
func WithExecutionContext(ctx context.Context, ec ExecutionContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ec)
}

// GetExecutionContext returns the ExecutionContext stored in ctx, or the
// zero value.
func GetExecutionContext(ctx context.Context) ExecutionContext {
	ec, _ := ctx.Value(contextKey{}).(ExecutionContext)
	return ec
}
