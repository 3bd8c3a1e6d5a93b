package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/irfndi/sector-rotation-go/internal/models"
	"github.com/irfndi/sector-rotation-go/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DatabasePool defines the interface for database pool operations.
// Both *pgxpool.Pool and pgxmock pools satisfy it.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

const reportsSchema = `
	CREATE TABLE IF NOT EXISTS rotation_reports (
		id           UUID PRIMARY KEY,
		generated_at TIMESTAMPTZ NOT NULL,
		tickers      TEXT[] NOT NULL,
		sectors      INTEGER NOT NULL,
		months       INTEGER NOT NULL,
		payload      JSONB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rotation_reports_generated_at ON rotation_reports (generated_at DESC);
`

// MaxListLimit caps ListRecent.
const MaxListLimit = 100

// ReportRepository stores rotation reports as JSONB documents.
type ReportRepository struct {
	pool DatabasePool
}

// NewReportRepository creates a new report repository.
func NewReportRepository(pool DatabasePool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// EnsureSchema creates the reports table when it does not exist.
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, reportsSchema); err != nil {
		return fmt.Errorf("failed to create rotation_reports table: %w", err)
	}
	return nil
}

// Save inserts a report, replacing any report with the same id.
func (r *ReportRepository) Save(ctx context.Context, report *models.RotationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	summary := report.Summary()

	query := `
		INSERT INTO rotation_reports (id, generated_at, tickers, sectors, months, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			tickers = EXCLUDED.tickers,
			sectors = EXCLUDED.sectors,
			months = EXCLUDED.months,
			payload = EXCLUDED.payload
	`
	if _, err := r.pool.Exec(ctx, query, summary.ID, summary.GeneratedAt, summary.Tickers, summary.Sectors, summary.Months, payload); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Get loads a report by id. A missing report is a *utils.NotFoundError.
func (r *ReportRepository) Get(ctx context.Context, id string) (*models.RotationReport, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM rotation_reports WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &utils.NotFoundError{Resource: "report", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report models.RotationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	return &report, nil
}

// ListRecent returns summaries of the newest reports first.
func (r *ReportRepository) ListRecent(ctx context.Context, limit int) ([]models.ReportSummary, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, generated_at, tickers, sectors, months
		FROM rotation_reports
		ORDER BY generated_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ReportSummary, 0, limit)
	for rows.Next() {
		var s models.ReportSummary
		if err := rows.Scan(&s.ID, &s.GeneratedAt, &s.Tickers, &s.Sectors, &s.Months); err != nil {
			return nil, fmt.Errorf("failed to scan report summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return summaries, nil
}
