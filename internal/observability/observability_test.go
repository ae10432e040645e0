package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNewLogger_WritesJSONAtLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("dropped")
	logger.Warn("kept", "category", "vms")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "vms", line["category"])
}

func TestTemporalSlogAdapter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewTemporalSlogAdapter(NewLogger(&buf, "debug"))
	adapter.Info("worker started", "queue", "snapdrift-scan")
	assert.Contains(t, buf.String(), `"component":"temporal"`)
	assert.Contains(t, buf.String(), `"queue":"snapdrift-scan"`)
}

func TestMetrics_RecordOnNoopMeter(t *testing.T) {
	t.Parallel()

	m, err := NewMetricsFrom(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordRun(ctx, true, time.Second)
		m.RecordSection(ctx, "vms", 1, 2, 3)
		m.RecordWarning(ctx, "parse_error")
	})
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRun(context.Background(), false, 0)
		m.RecordSection(context.Background(), "vms", 0, 0, 0)
		m.RecordWarning(context.Background(), "x")
	})
}

func TestSampler(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AlwaysOnSampler", Sampler(1).Description())
	assert.Equal(t, "AlwaysOnSampler", Sampler(0).Description())
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
