package telemetry

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNormalizeOTLPEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		hostport string
		urlPath  string
		insecure bool
		resolved string
		wantErr  bool
	}{
		{"default localhost", "http://localhost:4318", "localhost:4318", "/v1/traces", true, "http://localhost:4318/v1/traces", false},
		{"trailing slash base", "http://collector:4318/", "collector:4318", "/v1/traces", true, "http://collector:4318/v1/traces", false},
		{"already traces path", "http://collector:4318/v1/traces", "collector:4318", "/v1/traces", true, "http://collector:4318/v1/traces", false},
		{"custom base path", "https://otlp.example.com:4318/otlp", "otlp.example.com:4318", "/otlp/v1/traces", false, "https://otlp.example.com:4318/otlp/v1/traces", false},
		{"invalid no scheme", "collector:4318", "", "", false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hp, path, insecure, resolved, err := normalizeOTLPEndpoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hostport, hp)
			assert.Equal(t, tt.urlPath, path)
			assert.Equal(t, tt.insecure, insecure)
			assert.Equal(t, tt.resolved, resolved)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.True(t, config.Enabled)
	assert.Equal(t, "http://localhost:4318", config.OTLPEndpoint)
	assert.Equal(t, ServiceName, config.ServiceName)
	assert.Equal(t, 1.0, config.SampleRate)
	assert.Equal(t, 5*time.Second, config.BatchTimeout)
	assert.Equal(t, 512, config.MaxExportBatch)
	assert.Equal(t, 2048, config.MaxQueueSize)
}

func TestTracerGetters(t *testing.T) {
	assert.NotNil(t, GetTracer("test-tracer"))
	assert.NotNil(t, GetBusinessTracer())
	assert.NotNil(t, GetCacheTracer())
	assert.NotNil(t, GetExternalTracer())
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := StartSpan(context.Background(), tp.Tracer("test"), "rotation.classify",
		attribute.Int("rotation.sectors", 4))
	SetSpanAttributes(span, attribute.String("rotation.stage", "classify"))
	RecordError(span, assert.AnError)
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "rotation.classify", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Len(t, ended[0].Events(), 1)
	assert.Len(t, ended[0].Attributes(), 2)
}

func TestSetSpanStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "ok")
	SetSpanStatus(span, codes.Ok, "")
	span.End()

	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, codes.Ok, recorder.Ended()[0].Status().Code)
}

func TestInitTelemetryDisabled(t *testing.T) {
	require.NoError(t, InitTelemetry(TelemetryConfig{Enabled: false}))
	assert.NoError(t, Shutdown(context.Background()))
}

func TestInitTelemetryStdout(t *testing.T) {
	provider, err := InitTelemetryWithProvider(context.Background(), &TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: StdoutEndpoint,
	}, slog.Default())
	require.NoError(t, err)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestInitTelemetryWithProviderInvalidEndpoint(t *testing.T) {
	provider, err := InitTelemetryWithProvider(context.Background(), &TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "invalid-url://[invalid",
	}, slog.Default())
	assert.Error(t, err)
	assert.Nil(t, provider)
	assert.Contains(t, err.Error(), "invalid OTLPEndpoint")
}

func TestShutdownWithoutInit(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background()))
}
