package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FetchMetricsMeterName is the name used for the fetch metrics meter
const FetchMetricsMeterName = "github.com/rulegrab/rulegrab/fetch"

// FetchMetrics holds the instruments recorded while a run fetches sources.
// A nil *FetchMetrics records nothing.
type FetchMetrics struct {
	sourceDuration metric.Float64Histogram
	sourcesTotal   metric.Int64Counter
	filesWritten   metric.Int64Counter
	unitDuration   metric.Float64Histogram
}

// NewFetchMetrics creates the fetch instruments. A nil provider returns nil.
func NewFetchMetrics(provider metric.MeterProvider) (*FetchMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(FetchMetricsMeterName)

	sourceDuration, err := meter.Float64Histogram(
		"rulegrab_source_fetch_duration_seconds",
		metric.WithDescription("Duration of a single source fetch in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	sourcesTotal, err := meter.Int64Counter(
		"rulegrab_sources_total",
		metric.WithDescription("Number of processed sources by kind and outcome"),
		metric.WithUnit("{source}"),
	)
	if err != nil {
		return nil, err
	}

	filesWritten, err := meter.Int64Counter(
		"rulegrab_files_written_total",
		metric.WithDescription("Number of files landed in output directories"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, err
	}

	unitDuration, err := meter.Float64Histogram(
		"rulegrab_unit_duration_seconds",
		metric.WithDescription("Duration of a whole source spec in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 1800),
	)
	if err != nil {
		return nil, err
	}

	return &FetchMetrics{
		sourceDuration: sourceDuration,
		sourcesTotal:   sourcesTotal,
		filesWritten:   filesWritten,
		unitDuration:   unitDuration,
	}, nil
}

// RecordSource records one processed source of a spec
func (m *FetchMetrics) RecordSource(
	ctx context.Context, spec, kind, outcome string, files int, duration time.Duration,
) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("spec", spec),
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	)
	m.sourceDuration.Record(ctx, duration.Seconds(), attrs)
	m.sourcesTotal.Add(ctx, 1, attrs)
	if files > 0 {
		m.filesWritten.Add(ctx, int64(files), metric.WithAttributes(attribute.String("spec", spec)))
	}
}

// RecordUnit records the duration of one spec
func (m *FetchMetrics) RecordUnit(ctx context.Context, spec string, duration time.Duration, cancelled bool) {
	if m == nil {
		return
	}

	m.unitDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("spec", spec),
		attribute.Bool("cancelled", cancelled),
	))
}
