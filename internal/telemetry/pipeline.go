package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const pipelineMeterName = "github.com/solarroi/solarroi/internal/roi"

// PipelineMetrics records ROI pipeline runs and degraded provider calls.
type PipelineMetrics struct {
	calculations        metric.Int64Counter
	calculationDuration metric.Float64Histogram
	degraded            metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments on the global meter
// provider.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	return NewPipelineMetricsWithMeter(otel.Meter(pipelineMeterName))
}

// NewPipelineMetricsWithMeter creates the pipeline instruments on meter.
func NewPipelineMetricsWithMeter(meter metric.Meter) (*PipelineMetrics, error) {
	calculations, err := meter.Int64Counter(
		"roi.calculations.total",
		metric.WithDescription("ROI pipeline runs by kind and outcome"),
		metric.WithUnit("{calculation}"),
	)
	if err != nil {
		return nil, err
	}

	calculationDuration, err := meter.Float64Histogram(
		"roi.calculation.duration",
		metric.WithDescription("Duration of ROI pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	degraded, err := meter.Int64Counter(
		"provider.degraded.total",
		metric.WithDescription("Provider calls replaced by their fallback"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		calculations:        calculations,
		calculationDuration: calculationDuration,
		degraded:            degraded,
	}, nil
}

// RecordCalculation records one pipeline run.
func (m *PipelineMetrics) RecordCalculation(ctx context.Context, kind, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("roi.kind", kind),
		attribute.String("roi.outcome", outcome),
	)
	m.calculations.Add(ctx, 1, attrs)
	m.calculationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordDegraded records a provider call that fell back.
func (m *PipelineMetrics) RecordDegraded(ctx context.Context, provider string) {
	m.degraded.Add(ctx, 1, metric.WithAttributes(attribute.String("provider.name", provider)))
}

// DegradedHook returns a callback suitable for a component's OnDegraded
// option.
func (m *PipelineMetrics) DegradedHook(provider string) func(ctx context.Context, reason error) {
	return func(ctx context.Context, _ error) {
		m.RecordDegraded(context.WithoutCancel(ctx), provider)
	}
}
