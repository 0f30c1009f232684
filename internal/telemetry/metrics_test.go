package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != FetchMetricsMeterName {
			continue
		}
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewFetchMetrics_NilProvider(t *testing.T) {
	t.Parallel()

	metrics, err := NewFetchMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, metrics)

	// nil metrics must not panic
	metrics.RecordSource(context.Background(), "Yara", "repo", "written", 3, time.Second)
	metrics.RecordUnit(context.Background(), "Yara", time.Second, false)
}

func TestFetchMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewFetchMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordSource(ctx, "Yara", "repo", "written", 3, 2*time.Second)
	metrics.RecordSource(ctx, "Yara", "page", "failed", 0, 100*time.Millisecond)
	metrics.RecordSource(ctx, "Sigma", "repo", "written", 2, time.Second)
	metrics.RecordUnit(ctx, "Yara", 5*time.Second, true)

	got := collect(t, reader)

	sources, ok := got["rulegrab_sources_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sources.DataPoints, 3)

	files, ok := got["rulegrab_files_written_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	perSpec := map[string]int64{}
	for _, dp := range files.DataPoints {
		spec, _ := dp.Attributes.Value(attribute.Key("spec"))
		perSpec[spec.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"Yara": 3, "Sigma": 2}, perSpec)

	durations, ok := got["rulegrab_source_fetch_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range durations.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)

	units, ok := got["rulegrab_unit_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, units.DataPoints, 1)
	cancelled, _ := units.DataPoints[0].Attributes.Value(attribute.Key("cancelled"))
	assert.True(t, cancelled.AsBool())
}
