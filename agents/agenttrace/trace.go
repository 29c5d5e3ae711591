/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "ahub.agents.agenttrace"

// Trace is one model execution from rendered prompt to decoded result.
type Trace struct {
	Model       string
	InputPrompt string
	ExecContext ExecutionContext
	StartTime   time.Time
	EndTime     time.Time
	Error       error

	span oteltrace.Span
}

// Start opens an "agent.execution" span for a call to model and returns the
// derived context along with the Trace.
func Start(ctx context.Context, model, prompt string) (context.Context, *Trace) {
	ec := GetExecutionContext(ctx)
	attrs := []attribute.KeyValue{
		attribute.String("model", model),
		attribute.Int("agent.prompt.length", len(prompt)),
	}
	if ec.Pipeline != "" {
		attrs = append(attrs, attribute.String("pipeline", ec.Pipeline))
	}
	if ec.Repository != "" {
		attrs = append(attrs, attribute.String("repository", ec.Repository))
	}
	if ec.Proposal != 0 {
		attrs = append(attrs, attribute.Int("proposal", ec.Proposal))
	}

	ctx, span := otel.Tracer(tracerName, oteltrace.WithInstrumentationVersion("1.0.0")).
		Start(ctx, "agent.execution", oteltrace.WithAttributes(attrs...))
	return ctx, &Trace{
		Model:       model,
		InputPrompt: prompt,
		ExecContext: ec,
		StartTime:   time.Now(),
		span:        span,
	}
}

// RecordTokenUsage annotates the span with token counts.
func (t *Trace) RecordTokenUsage(inputTokens, outputTokens int64) {
	t.span.SetAttributes(
		attribute.Int64("tokens.input", inputTokens),
		attribute.Int64("tokens.output", outputTokens),
		attribute.Int64("tokens.total", inputTokens+outputTokens),
	)
}

// Complete ends the span, marking it failed when err is non-nil.
func (t *Trace) Complete(err error) {
	t.EndTime = time.Now()
	t.Error = err
	if err != nil {
		t.span.RecordError(err)
		t.span.SetStatus(codes.Error, err.Error())
	} else {
		t.span.SetStatus(codes.Ok, "")
	}
	t.span.End()
}

// Duration is the elapsed time of the execution, so far if still running.
func (t *Trace) Duration() time.Duration {
	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}
