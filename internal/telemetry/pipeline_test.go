package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/solarroi/solarroi/internal/telemetry"
)

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

func TestPipelineMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewPipelineMetricsWithMeter(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordCalculation(ctx, "calculate", "ok", 120*time.Millisecond)
	m.RecordCalculation(ctx, "calculate", "ok", 80*time.Millisecond)
	m.RecordCalculation(ctx, "dashboard", "weather_unavailable", time.Second)

	hook := m.DegradedHook("ml-service")
	hook(ctx, errors.New("timeout"))
	hook(ctx, errors.New("timeout"))

	metrics := collect(t, reader)

	calcs, ok := metrics["roi.calculations.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range calcs.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(3), total)
	assert.Len(t, calcs.DataPoints, 2)

	degraded, ok := metrics["provider.degraded.total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, degraded.DataPoints, 1)
	assert.Equal(t, int64(2), degraded.DataPoints[0].Value)

	name, _ := degraded.DataPoints[0].Attributes.Value("provider.name")
	assert.Equal(t, "ml-service", name.AsString())

	_, ok = metrics["roi.calculation.duration"].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestNewPipelineMetrics_GlobalMeter(t *testing.T) {
	m, err := telemetry.NewPipelineMetrics()
	require.NoError(t, err)
	assert.NotNil(t, m)
}
