package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/irfndi/sector-rotation-go/internal/config"
	"github.com/irfndi/sector-rotation-go/internal/logging"
	"github.com/irfndi/sector-rotation-go/internal/models"
	"github.com/irfndi/sector-rotation-go/internal/rotation"
	"github.com/irfndi/sector-rotation-go/internal/telemetry"
	"github.com/irfndi/sector-rotation-go/internal/utils"
	"github.com/irfndi/sector-rotation-go/pkg/interfaces"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// ObservationSource supplies raw market observations for a ticker set.
type ObservationSource interface {
	Collect(ctx context.Context, tickers []string, start, end time.Time) (*models.FetchResult, error)
}

// MacroSource supplies the macro indicator series.
type MacroSource interface {
	Collect(ctx context.Context, start time.Time) ([]models.MacroSeries, []models.FetchFailure, error)
}

// RotationService builds, stores and serves rotation reports.
type RotationService struct {
	observations ObservationSource
	macro        MacroSource
	store        interfaces.ReportStore
	notifier     interfaces.Notifier
	trend        *VolumeTrend
	cfg          config.RotationConfig
	logger       *logrus.Logger
	events       *logging.StandardLogger
	now          func() time.Time
	newID        func() string
}

// NewRotationService wires the service. macro, store and notifier may be nil.
func NewRotationService(
	observations ObservationSource,
	macro MacroSource,
	store interfaces.ReportStore,
	notifier interfaces.Notifier,
	cfg config.RotationConfig,
	logger *logrus.Logger,
) *RotationService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.HistoryYears <= 0 {
		cfg.HistoryYears = 10
	}
	return &RotationService{
		observations: observations,
		macro:        macro,
		store:        store,
		notifier:     notifier,
		trend:        NewVolumeTrend(cfg.TrendPeriod, cfg.DefaultSectors),
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// WithEventLogger sets the structured logger that receives report lifecycle events.
func (s *RotationService) WithEventLogger(events *logging.StandardLogger) *RotationService {
	s.events = events
	return s
}

// resolveRequest fills defaults and validates a report request.
func (s *RotationService) resolveRequest(req models.ReportRequest) (models.ReportRequest, error) {
	req.Tickers = utils.NormalizeTickers(req.Tickers)
	if len(req.Tickers) == 0 {
		return req, utils.NewFieldError("tickers", "at least one ticker is required")
	}
	if len(req.Tickers) > utils.MaxTickers {
		return req, utils.NewFieldError("tickers", "at most %d tickers are allowed, got %d", utils.MaxTickers, len(req.Tickers))
	}

	if req.End.IsZero() {
		req.End = s.now().UTC()
	}
	if req.Start.IsZero() {
		req.Start = req.End.AddDate(-s.cfg.HistoryYears, 0, 0)
	}
	if !req.Start.Before(req.End) {
		return req, utils.NewFieldError("start", "must be before end")
	}

	if req.LookbackPeriods < 0 {
		return req, utils.NewFieldError("lookback", "must not be negative")
	}
	if req.LookbackPeriods == 0 {
		req.LookbackPeriods = s.cfg.LookbackPeriods
	}
	if req.LookbackPeriods <= 0 {
		req.LookbackPeriods = rotation.DefaultLookbackPeriods
	}
	return req, nil
}

// BuildReport collects data, runs the rotation engine and persists the
// result. It fails with rotation.ErrEmptyDataset when no ticker yielded
// usable volume.
func (s *RotationService) BuildReport(ctx context.Context, req models.ReportRequest) (*models.RotationReport, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetBusinessTracer(), "rotation.build_report")
	defer span.End()

	req, err := s.resolveRequest(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("rotation.tickers", len(req.Tickers)),
		attribute.Int("rotation.lookback", req.LookbackPeriods),
	)

	fetched, err := s.collectObservations(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	indicators, macroFailures, err := s.collectMacro(ctx, req.Start)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	_, runSpan := telemetry.StartSpan(ctx, telemetry.GetBusinessTracer(), "rotation.run")
	result, err := rotation.Run(fetched.Observations, fetched.Categories, indicators, rotation.Options{
		LookbackPeriods:  req.LookbackPeriods,
		MinOverlapMonths: s.cfg.MinOverlapMonths,
	})
	telemetry.RecordError(runSpan, err)
	runSpan.End()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to build report for %d tickers: %w", len(req.Tickers), err)
	}

	report := &models.RotationReport{
		ID:                  s.newID(),
		GeneratedAt:         s.now().UTC(),
		Request:             req,
		Matrix:              result.Matrix,
		Categories:          fetched.Categories,
		Classifications:     result.Classifications,
		Correlation:         result.Correlation,
		Insights:            result.Insights,
		DroppedObservations: result.Normalized.Dropped,
		FetchFailures:       fetched.Failures,
		MacroFailures:       macroFailures,
	}
	if result.ClassificationErr != nil {
		report.ClassificationError = result.ClassificationErr.Error()
	}

	log := s.logger.WithFields(logrus.Fields{
		"report_id": report.ID,
		"tickers":   len(req.Tickers),
		"sectors":   len(result.Matrix.Sectors),
		"months":    result.Matrix.Len(),
		"dropped":   report.DroppedObservations,
	})
	if result.ClassificationErr != nil {
		log = log.WithField("classification_error", result.ClassificationErr.Error())
	}
	if result.CorrelationErr != nil {
		log = log.WithField("correlation_error", result.CorrelationErr.Error())
	}
	log.Info("Built rotation report")

	span.SetAttributes(
		attribute.String("rotation.report_id", report.ID),
		attribute.Int("rotation.sectors", len(result.Matrix.Sectors)),
		attribute.Int("rotation.months", result.Matrix.Len()),
	)

	s.persist(ctx, report)
	s.notify(ctx, report)
	return report, nil
}

func (s *RotationService) collectObservations(ctx context.Context, req models.ReportRequest) (*models.FetchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetExternalTracer(), "rotation.collect_observations")
	defer span.End()

	fetched, err := s.observations.Collect(ctx, req.Tickers, req.Start, req.End)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to collect observations: %w", err)
	}
	span.SetAttributes(
		attribute.Int("rotation.observations", len(fetched.Observations)),
		attribute.Int("rotation.fetch_failures", len(fetched.Failures)),
	)
	return fetched, nil
}

func (s *RotationService) collectMacro(ctx context.Context, start time.Time) ([]models.MacroSeries, []models.FetchFailure, error) {
	if s.macro == nil {
		return nil, nil, nil
	}
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetExternalTracer(), "rotation.collect_macro")
	defer span.End()

	series, failures, err := s.macro.Collect(ctx, start)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, nil, fmt.Errorf("failed to collect macro series: %w", err)
	}
	span.SetAttributes(attribute.Int("rotation.macro_series", len(series)))
	return series, failures, nil
}

// persist stores the report; a storage failure does not fail the request.
func (s *RotationService) persist(ctx context.Context, report *models.RotationReport) {
	if s.store == nil {
		return
	}
	summary := report.Summary()
	details := map[string]interface{}{
		"tickers": len(summary.Tickers),
		"sectors": summary.Sectors,
		"months":  summary.Months,
	}
	if err := s.store.Save(ctx, report); err != nil {
		s.logger.WithError(err).WithField("report_id", report.ID).Error("Failed to persist rotation report")
		details["error"] = err.Error()
		s.events.LogReportEvent("save_failed", report.ID, details)
		return
	}
	s.events.LogReportEvent("saved", report.ID, details)
}

func (s *RotationService) notify(ctx context.Context, report *models.RotationReport) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.SendDigest(ctx, report)
	if err != nil && !errors.Is(err, ErrNotifierDisabled) {
		s.logger.WithError(err).WithField("report_id", report.ID).Warn("Failed to send rotation digest")
	}
}

// GetReport loads a stored report.
func (s *RotationService) GetReport(ctx context.Context, id string) (*models.RotationReport, error) {
	if s.store == nil {
		return nil, &utils.NotFoundError{Resource: "report", ID: id}
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, utils.NewFieldError("id", "must be a UUID")
	}
	return s.store.Get(ctx, id)
}

// ListReports returns the newest stored report summaries.
func (s *RotationService) ListReports(ctx context.Context, limit int) ([]models.ReportSummary, error) {
	if s.store == nil {
		return []models.ReportSummary{}, nil
	}
	return s.store.ListRecent(ctx, limit)
}

// Heatmap returns the windowed intensity view of a stored report.
func (s *RotationService) Heatmap(ctx context.Context, id string, from, to time.Time, sectors []string) (*models.HeatmapView, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.trend.Heatmap(report.ID, report.Matrix, from, to, sectors)
}
