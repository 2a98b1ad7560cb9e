package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNormalizeReason(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		allowed  map[string]bool
		expected string
	}{
		{"known provider reason", "timeout", AllowedEmbeddingProviderReasons, "timeout"},
		{"unknown provider reason", "rate_limited", AllowedEmbeddingProviderReasons, "other"},
		{"known tool outcome", "panic", AllowedToolOutcomes, "panic"},
		{"empty", "", AllowedToolOutcomes, "other"},
		{"known cache", "query_embedding", AllowedCacheNames, "query_embedding"},
		{"unknown cache", "webhook_list", AllowedCacheNames, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeReason(tt.input, tt.allowed))
		})
	}
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}

	return out
}

func TestToolMetrics_BoundsToolLabel(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewToolMetrics(mp.Meter("test"), []string{"health.status"})
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordToolCall(ctx, "health.status", "ok", 10*time.Millisecond)
	m.RecordToolCall(ctx, "made.up", "weird", time.Millisecond)

	got := collect(t, reader)

	calls, ok := got[MetricNameToolCalls].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, calls.DataPoints, 2)

	seen := map[string]string{}

	for _, dp := range calls.DataPoints {
		tool, _ := dp.Attributes.Value(attribute.Key(AttrTool))
		outcome, _ := dp.Attributes.Value(attribute.Key(AttrOutcome))
		seen[tool.AsString()] = outcome.AsString()
	}

	assert.Equal(t, map[string]string{"health.status": "ok", "other": "other"}, seen)
}

func TestNewMetrics_NilMeter(t *testing.T) {
	m, err := NewMetrics(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestTraceContextHandler_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger(&buf, "debug")
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")

	logger.DebugContext(ctx, "tools: call finished")

	assert.True(t, strings.Contains(buf.String(), "request_id=req-123"), buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestEmbeddingMetrics_QueueDepth(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewEmbeddingMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.SetQueueDepth(ctx, 7)
	m.SetQueueDepth(ctx, 3)

	gauge, ok := collect(t, reader)[MetricNameEmbeddingQueueDepth].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(3), gauge.DataPoints[0].Value)
}

func TestSamplerFromEnv(t *testing.T) {
	tests := []struct {
		name, sampler, arg string
		want               string
	}{
		{name: "default", want: "ParentBased{root:AlwaysOnSampler"},
		{name: "always off", sampler: "always_off", want: "AlwaysOffSampler"},
		{name: "ratio", sampler: "traceidratio", arg: "0.25", want: "TraceIDRatioBased{0.25}"},
		{name: "bad ratio samples everything", sampler: "traceidratio", arg: "7", want: "AlwaysOnSampler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, samplerFromEnv(tt.sampler, tt.arg).Description(), tt.want)
		})
	}
}
