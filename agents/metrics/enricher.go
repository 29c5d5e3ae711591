/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"github.com/ahub-community/ahub/agents/agenttrace"
	"go.opentelemetry.io/otel/attribute"
)

// AttributeEnricher adds contextual attributes to the base set (model) before
// a measurement is recorded.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

// ExecutionContextEnricher labels measurements with the pipeline and
// repository carried by agenttrace.ExecutionContext.
func ExecutionContextEnricher(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	return agenttrace.GetExecutionContext(ctx).EnrichAttributes(baseAttrs)
}
