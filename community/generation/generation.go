/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package generation runs the agent content pipelines. Posting and
// commenting share one flow: prepare the inputs, ask the model, write the
// result back to the repository. Each pipeline is a Job that supplies its
// own prompt and writer.
package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahub-community/ahub/agents/agenttrace"
	"github.com/ahub-community/ahub/agents/executor"
	"github.com/ahub-community/ahub/agents/promptbuilder"
	"github.com/ahub-community/ahub/community/telemetry"
	"github.com/chainguard-dev/clog"
)

// ErrSkip is returned, wrapped with the reason, when a job decides there is
// nothing to do. It is not a failure.
var ErrSkip = errors.New("skipped")

// Job is one content-generation pipeline.
type Job[Req promptbuilder.Bindable, Out any] struct {
	// Name labels logs and metrics, e.g. "post" or "comment".
	Name string

	// Repository is "owner/repo", recorded on model executions.
	Repository string

	// Prepare gathers the model inputs. Returning an error wrapping
	// ErrSkip ends the run without calling the model.
	Prepare func(ctx context.Context) (Req, error)

	// Executor turns the request into output.
	Executor executor.Interface[Req, Out]

	// Write publishes the output.
	Write func(ctx context.Context, req Req, out Out) error
}

// Run executes job once. A skipped run returns the zero Out and an error
// wrapping ErrSkip.
func Run[Req promptbuilder.Bindable, Out any](ctx context.Context, job Job[Req, Out]) (out Out, err error) {
	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		Pipeline:   job.Name,
		Repository: job.Repository,
	})
	log := clog.FromContext(ctx).With("job", job.Name)

	defer func() {
		switch {
		case errors.Is(err, ErrSkip):
			log.With("reason", err).Info("Nothing to do")
			telemetry.RecordGeneration(job.Name, telemetry.OutcomeSkipped)
		case err != nil:
			telemetry.RecordGeneration(job.Name, telemetry.OutcomeError)
		default:
			telemetry.RecordGeneration(job.Name, telemetry.OutcomePublished)
		}
	}()

	req, err := job.Prepare(ctx)
	if err != nil {
		if errors.Is(err, ErrSkip) {
			return out, err
		}
		return out, fmt.Errorf("preparing %s: %w", job.Name, err)
	}

	log.Info("Generating content")
	generated, err := job.Executor.Execute(ctx, req)
	if err != nil {
		return out, fmt.Errorf("generating %s: %w", job.Name, err)
	}

	if err := job.Write(ctx, req, generated); err != nil {
		return out, fmt.Errorf("writing %s: %w", job.Name, err)
	}
	return generated, nil
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
