package observability

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestInitMeterProvider(t *testing.T) {
	cfg := Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Environment:    "test",
	}

	mp, err := InitMeterProvider(cfg)
	require.NoError(t, err, "Should initialize meter provider without error")
	require.NotNil(t, mp, "Meter provider should not be nil")
	require.NotNil(t, mp.provider, "Provider should not be nil")
	require.NotNil(t, mp.exporter, "Exporter should not be nil")

	// Clean up
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	err = mp.Shutdown(context.Background(), logger)
	assert.NoError(t, err, "Should shutdown without error")
}

func TestInitMetrics(t *testing.T) {
	mp, err := InitMeterProvider(Config{ServiceName: "test-service", ServiceVersion: "1.0.0", Environment: "test"})
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	defer func() { _ = mp.Shutdown(context.Background(), logger) }()

	metrics, err := InitMetrics(logger)
	require.NoError(t, err)
	require.NotNil(t, metrics.requestDuration)
	require.NotNil(t, metrics.eagerLoads)
	require.NotNil(t, metrics.statementCounter)

	ctx := ContextWithQueryMetrics(context.Background(), metrics)
	assert.Same(t, metrics, QueryMetricsFromContext(ctx))
	assert.Nil(t, QueryMetricsFromContext(context.Background()))

	assert.NotPanics(t, func() {
		metrics.IncrementActiveRequests(ctx)
		metrics.RecordRequest(ctx, 12*time.Millisecond, true, "query")
		metrics.RecordQueryDepth(ctx, 3, "query")
		metrics.RecordResultsCount(ctx, 4, "query")
		metrics.RecordEagerLoads(ctx, 2, "joined")
		metrics.RecordStatement(ctx, time.Millisecond, true, errors.New("boom"))
		metrics.DecrementActiveRequests(ctx)
	})
}

func TestBuildTLSConfig(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not-a-cert"), 0600))

	tests := []struct {
		name    string
		cfg     OTLPConfig
		wantErr string
	}{
		{name: "system roots", cfg: OTLPConfig{}},
		{name: "missing file", cfg: OTLPConfig{CAFile: filepath.Join(dir, "missing.pem")}, wantErr: "failed to read OTLP CA file"},
		{name: "not PEM", cfg: OTLPConfig{CAFile: bad}, wantErr: "failed to parse OTLP CA file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := buildTLSConfig(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Nil(t, cfg.RootCAs)
		})
	}
}

func TestParseOTLPProtocol(t *testing.T) {
	for input, want := range map[string]otlpProtocol{"": otlpProtocolGRPC, "GRPC": otlpProtocolGRPC, "http": otlpProtocolHTTP, "http/protobuf": otlpProtocolHTTP} {
		got, err := parseOTLPProtocol(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	_, err := parseOTLPProtocol("thrift")
	require.Error(t, err)
}

func TestNewTraceExporter_UnsupportedProtocol(t *testing.T) {
	_, err := newTraceExporter(context.Background(), OTLPConfig{Protocol: "thrift"})
	require.Error(t, err)
	_, err = newLogExporter(context.Background(), OTLPConfig{Protocol: "thrift"})
	require.Error(t, err)
}

func TestTraceSamplerForRatio_Boundaries(t *testing.T) {
	never := traceSamplerForRatio(0)
	always := traceSamplerForRatio(1)

	decisionNever := never.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       trace.TraceID{1},
		Name:          "test",
	}).Decision
	assert.Equal(t, sdktrace.Drop, decisionNever)

	decisionAlways := always.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       trace.TraceID{2},
		Name:          "test",
	}).Decision
	assert.Equal(t, sdktrace.RecordAndSample, decisionAlways)
}

func TestTraceSamplerForRatio_ParentAwareMidRange(t *testing.T) {
	sampler := traceSamplerForRatio(0.5)

	parentSampled := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{3},
		SpanID:     trace.SpanID{1},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))
	decisionSampledParent := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: parentSampled,
		TraceID:       trace.TraceID{4},
		Name:          "child",
	}).Decision
	assert.Equal(t, sdktrace.RecordAndSample, decisionSampledParent)

	parentNotSampled := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{5},
		SpanID:  trace.SpanID{2},
		Remote:  true,
	}))
	decisionUnsampledParent := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: parentNotSampled,
		TraceID:       trace.TraceID{6},
		Name:          "child",
	}).Decision
	assert.Equal(t, sdktrace.Drop, decisionUnsampledParent)
}
