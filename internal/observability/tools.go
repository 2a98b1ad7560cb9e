package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ToolMetrics records tool catalog calls by tool and outcome.
type ToolMetrics interface {
	RecordToolCall(ctx context.Context, tool, outcome string, duration time.Duration)
}

type toolMetrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	tools    map[string]bool
}

// NewToolMetrics creates ToolMetrics. toolNames bounds the tool label; anything else is "other".
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewToolMetrics(meter metric.Meter, toolNames []string) (ToolMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	calls, err := meter.Int64Counter(MetricNameToolCalls,
		metric.WithDescription("Tool calls by tool and outcome (ok, text, not_found, validation, provider, internal, panic)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tool calls counter: %w", err)
	}

	duration, err := meter.Float64Histogram(MetricNameToolCallDuration,
		metric.WithDescription("Tool call duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tool call duration histogram: %w", err)
	}

	tools := make(map[string]bool, len(toolNames))
	for _, n := range toolNames {
		tools[n] = true
	}

	return &toolMetrics{calls: calls, duration: duration, tools: tools}, nil
}

func (m *toolMetrics) RecordToolCall(ctx context.Context, tool, outcome string, duration time.Duration) {
	tool = NormalizeReason(tool, m.tools)
	outcome = NormalizeReason(outcome, AllowedToolOutcomes)

	m.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrTool, tool),
		attribute.String(AttrOutcome, outcome),
	))
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(AttrTool, tool)))
}
