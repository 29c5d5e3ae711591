/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package telemetry holds the Prometheus counters of the moderation and
// generation pipelines. They are exposed by the httpmetrics /metrics server
// alongside its HTTP client metrics.
package telemetry

import (
	"context"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeApproved  = "approved"
	OutcomeRejected  = "rejected"
	OutcomePublished = "published"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
)

var (
	verdictCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ahub_moderation_verdicts_total",
			Help: "Moderation runs by outcome",
		},
		[]string{"outcome"},
	)

	generationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ahub_generation_runs_total",
			Help: "Content generation runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)
)

// RecordVerdict counts one moderation run.
func RecordVerdict(outcome string) {
	verdictCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordGeneration counts one generation run.
func RecordGeneration(job, outcome string) {
	generationCounter.With(prometheus.Labels{"job": job, "outcome": outcome}).Inc()
}

// ServeMetrics starts the httpmetrics /metrics server in the background
// when port is positive and reports whether it did. httpmetrics binds the
// METRICS_PORT of the process environment as it was at startup.
func ServeMetrics(ctx context.Context, port int) bool {
	if port <= 0 {
		return false
	}
	clog.FromContext(ctx).With("port", port).Info("Serving metrics")
	go httpmetrics.ServeMetrics()
	return true
}
