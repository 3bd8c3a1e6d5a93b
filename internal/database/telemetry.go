package database

import (
	"context"
	"strings"

	"github.com/irfndi/sector-rotation-go/internal/telemetry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracedPool wraps a DatabasePool and records a client span per statement.
type TracedPool struct {
	pool   DatabasePool
	tracer trace.Tracer
}

// NewTracedPool wraps pool with the global database tracer.
func NewTracedPool(pool DatabasePool) *TracedPool {
	return newTracedPool(pool, telemetry.GetTracer(telemetry.ServiceName+"/database"))
}

func newTracedPool(pool DatabasePool, tracer trace.Tracer) *TracedPool {
	return &TracedPool{pool: pool, tracer: tracer}
}

func (db *TracedPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := db.start(ctx, "db.query", sql)
	defer span.End()

	rows, err := db.pool.Query(ctx, sql, args...)
	telemetry.RecordError(span, err)
	return rows, err
}

// QueryRow defers errors to Scan, so the span only covers dispatch.
func (db *TracedPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := db.start(ctx, "db.query_row", sql)
	defer span.End()
	return db.pool.QueryRow(ctx, sql, args...)
}

func (db *TracedPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := db.start(ctx, "db.exec", sql)
	defer span.End()

	tag, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		telemetry.RecordError(span, err)
		return tag, err
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	return tag, nil
}

func (db *TracedPool) start(ctx context.Context, name, sql string) (context.Context, trace.Span) {
	return db.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", statementVerb(sql)),
		),
	)
}

// statementVerb returns the leading SQL keyword, upper-cased.
func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
