package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		opts          []Option
		errorContains string
	}{
		{name: "no config", opts: []Option{}},
		{name: "disabled", opts: []Option{WithTelemetryConfig(&Config{Enabled: false})}},
		{name: "enabled with everything off", opts: []Option{WithTelemetryConfig(&Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: false},
			Metrics: &MetricsConfig{Enabled: false},
		})}},
		{name: "invalid sampling", opts: []Option{WithTelemetryConfig(&Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: true, Sampling: ptrFloat64(1.5)},
		})}, errorContains: "invalid telemetry configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			tel, err := New(ctx, tt.opts...)
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}

			require.NoError(t, err)
			_, ok := tel.TracerProvider().(tracenoop.TracerProvider)
			assert.True(t, ok, "expected no-op tracer provider")
			_, ok = tel.MeterProvider().(noop.MeterProvider)
			assert.True(t, ok, "expected no-op meter provider")
			require.NoError(t, tel.Shutdown(ctx))
		})
	}
}

func TestNew_MetricsTextfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	textfile := filepath.Join(t.TempDir(), "rulegrab.prom")

	tel, err := New(ctx, WithTelemetryConfig(&Config{
		Enabled: true,
		Metrics: &MetricsConfig{Enabled: true, Textfile: textfile},
	}))
	require.NoError(t, err)
	_, ok := tel.MeterProvider().(*sdkmetric.MeterProvider)
	require.True(t, ok, "expected SDK meter provider")

	metrics, err := NewFetchMetrics(tel.MeterProvider())
	require.NoError(t, err)
	require.NotNil(t, metrics)
	metrics.RecordSource(ctx, "Sigma", "page", "written", 1, time.Second)

	_, err = os.Stat(textfile)
	require.True(t, os.IsNotExist(err), "the textfile is only written on shutdown")

	require.NoError(t, tel.Shutdown(ctx))
	content, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "rulegrab_files_written")
	assert.Contains(t, string(content), `spec="Sigma"`)

	// a second shutdown does not rewrite the file
	require.NoError(t, os.Remove(textfile))
	_ = tel.Shutdown(ctx)
	_, err = os.Stat(textfile)
	assert.True(t, os.IsNotExist(err))
}

func TestNewMeterProvider_TextfileRequiresRegisterer(t *testing.T) {
	t.Parallel()

	_, err := NewMeterProvider(context.Background(),
		WithMetricsConfig(&MetricsConfig{Enabled: true, Textfile: "metrics.prom"}),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a Prometheus registerer")
}

func TestNewTracerProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tp, err := NewTracerProvider(ctx)
	require.NoError(t, err)
	assert.IsType(t, tracenoop.TracerProvider{}, tp)

	tp, err = NewTracerProvider(ctx,
		WithTracingConfig(&TracingConfig{Enabled: true, Sampling: ptrFloat64(0.5)}),
		WithTracerInsecure(true),
	)
	require.NoError(t, err)
	sdkTP, ok := tp.(*sdktrace.TracerProvider)
	require.True(t, ok, "expected SDK tracer provider")
	require.NoError(t, sdkTP.Shutdown(ctx))
}

func TestNewMeterProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mp, err := NewMeterProvider(ctx, WithMetricsConfig(&MetricsConfig{Enabled: false}))
	require.NoError(t, err)
	assert.IsType(t, noop.MeterProvider{}, mp)

	mp, err = NewMeterProvider(ctx,
		WithMetricsConfig(&MetricsConfig{Enabled: true}),
		WithMeterInsecure(true),
	)
	require.NoError(t, err)
	sdkMP, ok := mp.(*sdkmetric.MeterProvider)
	require.True(t, ok, "expected SDK meter provider")
	// no collector is listening, so the final flush may fail
	_ = sdkMP.Shutdown(ctx)
}

func TestProviderOptions(t *testing.T) {
	t.Parallel()

	mcfg := &meterProviderConfig{}
	WithMeterServiceName("svc")(mcfg)
	WithMeterServiceVersion("2.0.0")(mcfg)
	WithMeterEndpoint("collector:4318")(mcfg)
	WithMeterInsecure(true)(mcfg)
	WithMeterInterval(0)(mcfg)
	assert.Equal(t, meterProviderConfig{
		serviceName: "svc", serviceVersion: "2.0.0", endpoint: "collector:4318", insecure: true,
	}, *mcfg)

	tcfg := &tracerProviderConfig{}
	tracing := &TracingConfig{Enabled: true}
	WithTracerServiceName("svc")(tcfg)
	WithTracerServiceVersion("2.0.0")(tcfg)
	WithTracingConfig(tracing)(tcfg)
	WithTracerEndpoint("collector:4318")(tcfg)
	WithTracerInsecure(true)(tcfg)
	assert.Equal(t, tracerProviderConfig{
		serviceName: "svc", serviceVersion: "2.0.0", tracingConfig: tracing, endpoint: "collector:4318", insecure: true,
	}, *tcfg)
}
