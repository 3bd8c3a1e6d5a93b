package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// StandardLogger wraps slog with the field conventions used across the service.
type StandardLogger struct {
	logger   *slog.Logger
	shutdown func(context.Context) error
}

// NewStandardLogger creates a JSON logger on stdout.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	return NewJSONLogger(os.Stdout, logLevel, environment)
}

// NewJSONLogger creates a JSON logger writing to w.
func NewJSONLogger(w io.Writer, logLevel string, environment string) *StandardLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: getSlogLevel(logLevel)})
	logger := slog.New(handler)
	if environment != "" {
		logger = logger.With("environment", environment)
	}
	return &StandardLogger{logger: logger}
}

// NewStandardOTLPLogger exports through OTLP when enabled, falling back to JSON on stdout.
func NewStandardOTLPLogger(ctx context.Context, config OTLPConfig) *StandardLogger {
	if !config.Enabled {
		return NewStandardLogger(config.LogLevel, config.Environment)
	}

	provider, err := NewOTLPProvider(ctx, config)
	if err != nil {
		fallback := NewStandardLogger(config.LogLevel, config.Environment)
		fallback.logger.Warn("OTLP logging unavailable, using stdout", "error", err.Error())
		return fallback
	}

	handler := NewOTLPHandler(provider.Logger(config.ServiceName), getSlogLevel(config.LogLevel))
	return &StandardLogger{logger: slog.New(handler), shutdown: provider.Shutdown}
}

// Shutdown flushes pending OTLP records.
func (l *StandardLogger) Shutdown(ctx context.Context) error {
	if l.shutdown != nil {
		return l.shutdown(ctx)
	}
	return nil
}

func (l *StandardLogger) Logger() *slog.Logger {
	return l.logger
}

// WithComponent returns a logger tagging every record with componentName.
// It shares the parent's exporter; only the parent shuts it down.
func (l *StandardLogger) WithComponent(componentName string) *StandardLogger {
	return &StandardLogger{logger: l.logger.With("component", componentName)}
}

func (l *StandardLogger) WithError(err error) *slog.Logger {
	if err == nil {
		return l.logger
	}
	return l.logger.With("error", err.Error())
}

// LogStartup logs application startup information
func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.Info("Service starting",
		"event", "startup",
		"service", serviceName,
		"version", version,
		"port", port,
	)
}

// LogShutdown logs application shutdown information
func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.Info("Service shutting down",
		"event", "shutdown",
		"service", serviceName,
		"reason", reason,
	)
}

// LogCacheOperation logs cache operations in a standardized format.
// A nil logger discards the event.
func (l *StandardLogger) LogCacheOperation(operation string, key string, hit bool, durationMs int64) {
	if l == nil {
		return
	}
	l.logger.Debug("Cache operation",
		"event", "cache_operation",
		"operation", operation,
		"key", key,
		"hit", hit,
		"duration_ms", durationMs,
	)
}

// LogReportEvent logs a report lifecycle event with its details.
// A nil logger discards the event.
func (l *StandardLogger) LogReportEvent(eventType string, reportID string, details map[string]interface{}) {
	if l == nil {
		return
	}
	fields := []interface{}{
		"event", "report_event",
		"type", eventType,
		"report_id", reportID,
	}
	for k, v := range details {
		fields = append(fields, k, v)
	}
	l.logger.Info("Report event", fields...)
}

// NewLogrusLogger returns the JSON logrus logger handed to long-lived services.
func NewLogrusLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
