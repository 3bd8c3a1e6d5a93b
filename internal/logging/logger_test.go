package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &entry))
		out = append(out, entry)
	}
	return out
}

func TestStandardLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "debug", "test")

	cacheLog := logger.WithComponent("cache")
	cacheLog.LogCacheOperation("get", "rotation:obs:x", true, 3)
	logger.WithError(errors.New("boom")).Error("failed")
	logger.WithComponent("rotation").LogReportEvent("built", "r-1", map[string]interface{}{"sectors": 4})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)
	assert.Equal(t, "cache", entries[0]["component"])
	assert.Equal(t, "test", entries[0]["environment"])
	assert.Equal(t, "cache_operation", entries[0]["event"])
	assert.Equal(t, true, entries[0]["hit"])
	assert.Equal(t, "boom", entries[1]["error"])
	assert.Equal(t, "rotation", entries[2]["component"])
	assert.Equal(t, "r-1", entries[2]["report_id"])
	assert.Equal(t, float64(4), entries[2]["sectors"])

	assert.NoError(t, cacheLog.Shutdown(context.Background()))
}

func TestStandardLogger_NilDiscardsEvents(t *testing.T) {
	var logger *StandardLogger
	assert.NotPanics(t, func() {
		logger.LogCacheOperation("set", "k", false, 1)
		logger.LogReportEvent("saved", "r-1", nil)
	})
}

func TestStandardLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "warn", "")

	logger.Logger().Info("hidden")
	logger.LogStartup("sector-rotation", "1.0.0", 8080)
	logger.Logger().Warn("shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
}

func TestGetSlogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, getSlogLevel(tt.input))
		})
	}
}

func TestNewLogrusLogger(t *testing.T) {
	logger := NewLogrusLogger("debug")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	assert.Equal(t, logrus.InfoLevel, NewLogrusLogger("nonsense").GetLevel())
}

func TestNewStandardOTLPLogger_Disabled(t *testing.T) {
	logger := NewStandardOTLPLogger(context.Background(), OTLPConfig{Enabled: false, LogLevel: "info"})
	require.NotNil(t, logger.Logger())
	assert.NoError(t, logger.Shutdown(context.Background()))
}

type memoryExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryExporter) ForceFlush(context.Context) error { return nil }

func TestOTLPHandler(t *testing.T) {
	exporter := &memoryExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	handler := NewOTLPHandler(provider.Logger("test"), slog.LevelInfo)
	logger := slog.New(handler).With("component", "rotation").WithGroup("report")

	logger.Debug("dropped")
	logger.Warn("built", "sectors", 3, "partial", true)

	require.Len(t, exporter.records, 1)
	rec := exporter.records[0]
	assert.Equal(t, "built", rec.Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, rec.Severity())

	attrs := map[string]otellog.Value{}
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})
	assert.Equal(t, "rotation", attrs["component"].AsString())
	assert.Equal(t, int64(3), attrs["report.sectors"].AsInt64())
	assert.True(t, attrs["report.partial"].AsBool())
}

func TestConvertSlogLevelToSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityDebug, convertSlogLevelToSeverity(slog.LevelDebug))
	assert.Equal(t, otellog.SeverityInfo, convertSlogLevelToSeverity(slog.LevelInfo))
	assert.Equal(t, otellog.SeverityWarn, convertSlogLevelToSeverity(slog.LevelWarn+1))
	assert.Equal(t, otellog.SeverityError, convertSlogLevelToSeverity(slog.LevelError))
}
