package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "github.com/irfndi/sector-rotation-go"
	ServiceVersion = "1.0.0"

	// StdoutEndpoint selects the pretty-printing stdout exporter.
	StdoutEndpoint = "stdout"
	tracesPath     = "/v1/traces"
)

// TelemetryConfig holds configuration for tracing
type TelemetryConfig struct {
	Enabled        bool
	OTLPEndpoint   string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SampleRate     float64
	BatchTimeout   time.Duration
	MaxExportBatch int
	MaxQueueSize   int
}

// DefaultConfig returns default telemetry configuration
func DefaultConfig() *TelemetryConfig {
	return &TelemetryConfig{
		Enabled:        true,
		OTLPEndpoint:   "http://localhost:4318",
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    "development",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		MaxExportBatch: 512,
		MaxQueueSize:   2048,
	}
}

// Provider holds the telemetry provider
type Provider struct {
	Shutdown func(context.Context) error
	logger   *slog.Logger
}

var (
	globalMu       sync.Mutex
	globalProvider *Provider
)

// InitTelemetry installs the global tracer provider and propagator.
func InitTelemetry(config TelemetryConfig) error {
	provider, err := InitTelemetryWithProvider(context.Background(), &config, slog.Default())
	if err != nil {
		return err
	}
	globalMu.Lock()
	globalProvider = provider
	globalMu.Unlock()
	return nil
}

// InitTelemetryWithProvider builds and registers a TracerProvider. A disabled
// config yields a no-op Provider.
func InitTelemetryWithProvider(ctx context.Context, config *TelemetryConfig, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !config.Enabled {
		return &Provider{Shutdown: func(context.Context) error { return nil }, logger: logger}, nil
	}
	applyDefaults(config)

	exporter, err := newExporter(ctx, config.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(config.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(config.MaxExportBatch),
			sdktrace.WithMaxQueueSize(config.MaxQueueSize),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Telemetry initialized",
		"service", config.ServiceName,
		"endpoint", config.OTLPEndpoint,
		"sample_rate", config.SampleRate,
	)

	return &Provider{Shutdown: tp.Shutdown, logger: logger}, nil
}

func applyDefaults(config *TelemetryConfig) {
	defaults := DefaultConfig()
	if config.ServiceName == "" {
		config.ServiceName = defaults.ServiceName
	}
	if config.ServiceVersion == "" {
		config.ServiceVersion = defaults.ServiceVersion
	}
	if config.Environment == "" {
		config.Environment = defaults.Environment
	}
	if config.SampleRate <= 0 {
		config.SampleRate = defaults.SampleRate
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = defaults.BatchTimeout
	}
	if config.MaxExportBatch <= 0 {
		config.MaxExportBatch = defaults.MaxExportBatch
	}
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = defaults.MaxQueueSize
	}
}

func newExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == StdoutEndpoint {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exporter, nil
	}

	hostport, urlPath, insecure, _, err := normalizeOTLPEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid OTLPEndpoint %q: %w", endpoint, err)
	}
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(hostport),
		otlptracehttp.WithURLPath(urlPath),
	}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}

// normalizeOTLPEndpoint splits a collector base URL into the pieces the
// otlptracehttp options want, appending /v1/traces unless already present.
func normalizeOTLPEndpoint(raw string) (hostport, urlPath string, insecure bool, resolved string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", false, "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", false, "", errors.New("endpoint must use http or https scheme")
	}
	if u.Host == "" {
		return "", "", false, "", errors.New("endpoint host is empty")
	}

	base := strings.TrimRight(u.Path, "/")
	if strings.HasSuffix(base, tracesPath) {
		urlPath = base
	} else {
		urlPath = base + tracesPath
	}
	insecure = u.Scheme == "http"
	resolved = fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, urlPath)
	return u.Host, urlPath, insecure, resolved, nil
}

// Shutdown flushes and stops the global provider.
func Shutdown(ctx context.Context) error {
	globalMu.Lock()
	provider := globalProvider
	globalProvider = nil
	globalMu.Unlock()

	if provider == nil || provider.Shutdown == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

func GetBusinessTracer() trace.Tracer {
	return otel.Tracer(ServiceName + "/rotation")
}

func GetCacheTracer() trace.Tracer {
	return otel.Tracer(ServiceName + "/cache")
}

func GetExternalTracer() trace.Tracer {
	return otel.Tracer(ServiceName + "/external")
}

// StartSpan starts an internal span on tracer.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks the span failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

func SetSpanStatus(span trace.Span, code codes.Code, description string) {
	span.SetStatus(code, description)
}
