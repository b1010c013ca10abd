/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the meter shared by every provider adapter and the
// orchestrator. The model is a dimension on each measurement.
const MeterName = "issuewise.agents"

// GenAI provides OpenTelemetry metrics for model calls and triage runs.
// Counters that fail to initialize degrade to no-ops.
type GenAI struct {
	meter            metric.Meter
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	toolCallCounter  metric.Int64Counter
	toolErrorCounter metric.Int64Counter
	runCounter       metric.Int64Counter
	attrEnricher     AttributeEnricher
}

func counter(meter metric.Meter, meterName, name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		slog.Warn("Failed to create counter, metric will be disabled", "error", err, "meter", meterName, "counter", name)
		return noop.Int64Counter{}
	}
	return c
}

// NewGenAI creates a new GenAI metrics instance with the specified meter name.
func NewGenAI(meterName string) *GenAI {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	return &GenAI{
		meter:            meter,
		promptTokens:     counter(meter, meterName, "genai.token.prompt", "The number of prompt tokens used", "{tokens}"),
		completionTokens: counter(meter, meterName, "genai.token.completion", "The number of completion tokens used", "{tokens}"),
		toolCallCounter:  counter(meter, meterName, "genai.tool.calls", "The number of tool calls made during execution", "{calls}"),
		toolErrorCounter: counter(meter, meterName, "genai.tool.errors", "The number of tool calls that returned an error result", "{calls}"),
		runCounter:       counter(meter, meterName, "issuewise.triage.runs", "The number of triage runs by terminal state", "{runs}"),
	}
}

// SetAttributeEnricher sets the attribute enricher for this metrics instance.
// The enricher is called before recording each metric to add contextual
// attributes such as the issue being triaged.
func (m *GenAI) SetAttributeEnricher(enricher AttributeEnricher) {
	m.attrEnricher = enricher
}

func (m *GenAI) attributes(ctx context.Context, base []attribute.KeyValue, extra []attribute.KeyValue) metric.MeasurementOption {
	if m.attrEnricher != nil {
		base = m.attrEnricher(ctx, base)
	}
	return metric.WithAttributes(append(base, extra...)...)
}

// RecordTokens records prompt and completion token usage for one completion.
func (m *GenAI) RecordTokens(ctx context.Context, model string, promptTokens, completionTokens int64, attrs ...attribute.KeyValue) {
	opt := m.attributes(ctx, []attribute.KeyValue{attribute.String("model", model)}, attrs)
	m.promptTokens.Add(ctx, promptTokens, opt)
	m.completionTokens.Add(ctx, completionTokens, opt)
}

// RecordToolCall records a tool invocation.
func (m *GenAI) RecordToolCall(ctx context.Context, model, toolName string, attrs ...attribute.KeyValue) {
	m.toolCallCounter.Add(ctx, 1, m.attributes(ctx, []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("tool", toolName),
	}, attrs))
}

// RecordToolError records a tool invocation whose result was a failure.
func (m *GenAI) RecordToolError(ctx context.Context, model, toolName string, attrs ...attribute.KeyValue) {
	m.toolErrorCounter.Add(ctx, 1, m.attributes(ctx, []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("tool", toolName),
	}, attrs))
}

// RecordRun records a triage run reaching a terminal state.
func (m *GenAI) RecordRun(ctx context.Context, model, state string, attrs ...attribute.KeyValue) {
	m.runCounter.Add(ctx, 1, m.attributes(ctx, []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("state", state),
	}, attrs))
}
