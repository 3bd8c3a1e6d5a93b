package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/config"
	"github.com/irfndi/sector-rotation-go/internal/logging"
	"github.com/irfndi/sector-rotation-go/internal/models"
	"github.com/irfndi/sector-rotation-go/internal/rotation"
	"github.com/irfndi/sector-rotation-go/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubObservations struct {
	result  *models.FetchResult
	err     error
	tickers []string
	start   time.Time
	end     time.Time
}

func (s *stubObservations) Collect(_ context.Context, tickers []string, start, end time.Time) (*models.FetchResult, error) {
	s.tickers, s.start, s.end = tickers, start, end
	return s.result, s.err
}

type stubMacro struct {
	series   []models.MacroSeries
	failures []models.FetchFailure
}

func (s *stubMacro) Collect(context.Context, time.Time) ([]models.MacroSeries, []models.FetchFailure, error) {
	return s.series, s.failures, nil
}

const reportID = "0c9d4c1e-8a57-4c43-a0a5-3b2f4a1e5d11"

var fixedNow = time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)

// thirteenMonths builds A rising 100 -> 130 and B falling 100 -> 85.
func thirteenMonths() *models.FetchResult {
	result := &models.FetchResult{
		Categories: models.NewTickerCategory(map[string]string{"AAPL": "A", "XOM": "B"}),
	}
	for i := 0; i <= 12; i++ {
		ts := time.Date(2023, time.Month(1+i), 15, 0, 0, 0, 0, time.UTC)
		a, b := 100.0, 100.0
		if i == 12 {
			a, b = 130, 85
		}
		result.Observations = append(result.Observations,
			models.RawObservation{Ticker: "AAPL", Timestamp: ts, Volume: a},
			models.RawObservation{Ticker: "XOM", Timestamp: ts, Volume: b + float64(i%3)},
		)
	}
	return result
}

func cpiSeries() models.MacroSeries {
	series := models.MacroSeries{Name: "CPI", SourceID: "CPIAUCSL"}
	for i := 0; i <= 12; i++ {
		series.Observations = append(series.Observations, models.MacroObservation{
			Date:  time.Date(2023, time.Month(1+i), 1, 0, 0, 0, 0, time.UTC),
			Value: 300 + float64(i),
		})
	}
	return series
}

func newTestService(obs ObservationSource, macro MacroSource, store *MockReportStore, notifier *MockNotifier) *RotationService {
	cfg := config.RotationConfig{LookbackPeriods: 12, MinOverlapMonths: 3, HistoryYears: 10, DefaultSectors: 5, TrendPeriod: 3}
	svc := NewRotationService(obs, macro, nil, nil, cfg, testLogger())
	if store != nil {
		svc.store = store
	}
	if notifier != nil {
		svc.notifier = notifier
	}
	svc.now = func() time.Time { return fixedNow }
	svc.newID = func() string { return reportID }
	return svc
}

func TestRotationService_BuildReport(t *testing.T) {
	store := new(MockReportStore)
	store.On("Save", mock.Anything, mock.AnythingOfType("*models.RotationReport")).Return(nil)
	notifier := new(MockNotifier)
	notifier.On("SendDigest", mock.Anything, mock.AnythingOfType("*models.RotationReport")).Return(ErrNotifierDisabled)

	obs := &stubObservations{result: thirteenMonths()}
	obs.result.Failures = []models.FetchFailure{{Ticker: "NOPE", Reason: "not found"}}
	macro := &stubMacro{
		series:   []models.MacroSeries{cpiSeries()},
		failures: []models.FetchFailure{{Ticker: "GDP", Reason: "timeout"}},
	}
	svc := newTestService(obs, macro, store, notifier)

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.BuildReport(context.Background(), models.ReportRequest{
		Tickers: []string{"aapl", "xom", "nope"},
		Start:   start,
		End:     fixedNow,
	})
	require.NoError(t, err)

	assert.Equal(t, reportID, report.ID)
	assert.Equal(t, fixedNow, report.GeneratedAt)
	assert.Equal(t, []string{"AAPL", "XOM", "NOPE"}, obs.tickers)
	assert.Equal(t, 12, report.Request.LookbackPeriods)
	assert.Equal(t, []string{"A", "B"}, report.Matrix.Sectors)
	assert.Equal(t, 13, report.Matrix.Len())

	require.Len(t, report.Classifications, 2)
	assert.Equal(t, models.RegimeAccumulation, report.Classifications[0].Regime)
	assert.InDelta(t, 0.30, report.Classifications[0].YoYChange, 1e-9)
	assert.Empty(t, report.ClassificationError)

	require.NotNil(t, report.Correlation)
	row, ok := report.Correlation.Row("CPI")
	require.True(t, ok)
	assert.Len(t, row.Months, 13)
	require.NotNil(t, report.Insights.TopVolume)
	assert.Equal(t, "A", report.Insights.TopVolume.Sector)
	assert.Equal(t, "A", report.Insights.StrongestGain.Sector)
	assert.Equal(t, "B", report.Insights.StrongestDecline.Sector)

	assert.Equal(t, obs.result.Failures, report.FetchFailures)
	assert.Equal(t, macro.failures, report.MacroFailures)

	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRotationService_BuildReportInsufficientHistory(t *testing.T) {
	obs := &stubObservations{result: &models.FetchResult{
		Observations: monthlyVolume("AAPL", 10, 20, 30),
		Categories:   models.NewTickerCategory(map[string]string{"AAPL": "A"}),
	}}
	svc := newTestService(obs, nil, nil, nil)

	report, err := svc.BuildReport(context.Background(), models.ReportRequest{Tickers: []string{"AAPL"}})
	require.NoError(t, err)
	assert.Empty(t, report.Classifications)
	assert.Contains(t, report.ClassificationError, "insufficient history")
	assert.NotNil(t, report.Insights.TopVolume)
	assert.Nil(t, report.Insights.StrongestGain)
}

func TestRotationService_BuildReportEmptyDataset(t *testing.T) {
	store := new(MockReportStore)
	obs := &stubObservations{result: &models.FetchResult{
		Failures: []models.FetchFailure{{Ticker: "AAPL", Reason: "timeout"}},
	}}
	svc := newTestService(obs, nil, store, nil)

	_, err := svc.BuildReport(context.Background(), models.ReportRequest{Tickers: []string{"AAPL"}})
	assert.ErrorIs(t, err, rotation.ErrEmptyDataset)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRotationService_BuildReportCollectorError(t *testing.T) {
	obs := &stubObservations{err: context.DeadlineExceeded}
	svc := newTestService(obs, nil, nil, nil)

	_, err := svc.BuildReport(context.Background(), models.ReportRequest{Tickers: []string{"AAPL"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRotationService_SaveFailureIsNotFatal(t *testing.T) {
	store := new(MockReportStore)
	store.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	svc := newTestService(&stubObservations{result: thirteenMonths()}, nil, store, nil)
	report, err := svc.BuildReport(context.Background(), models.ReportRequest{Tickers: []string{"AAPL", "XOM"}})
	require.NoError(t, err)
	assert.Equal(t, reportID, report.ID)
	assert.Nil(t, report.Correlation)
}

func TestRotationService_PersistReportEvents(t *testing.T) {
	tests := []struct {
		name    string
		saveErr error
		want    string
	}{
		{name: "saved", want: "saved"},
		{name: "save failure", saveErr: errors.New("connection refused"), want: "save_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			store := new(MockReportStore)
			store.On("Save", mock.Anything, mock.Anything).Return(tt.saveErr)

			svc := newTestService(&stubObservations{result: thirteenMonths()}, nil, store, nil).
				WithEventLogger(logging.NewJSONLogger(&buf, "info", "test"))
			_, err := svc.BuildReport(context.Background(), models.ReportRequest{Tickers: []string{"AAPL", "XOM"}})
			require.NoError(t, err)

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "report_event", entry["event"])
			assert.Equal(t, tt.want, entry["type"])
			assert.Equal(t, reportID, entry["report_id"])
			assert.Equal(t, float64(2), entry["tickers"])
			assert.Equal(t, float64(13), entry["months"])
			if tt.saveErr != nil {
				assert.Equal(t, "connection refused", entry["error"])
			} else {
				assert.NotContains(t, entry, "error")
			}
		})
	}
}

func TestRotationService_ResolveRequest(t *testing.T) {
	svc := newTestService(&stubObservations{}, nil, nil, nil)

	req, err := svc.resolveRequest(models.ReportRequest{Tickers: []string{" msft "}})
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, req.Tickers)
	assert.Equal(t, fixedNow, req.End)
	assert.Equal(t, fixedNow.AddDate(-10, 0, 0), req.Start)
	assert.Equal(t, 12, req.LookbackPeriods)

	tests := []struct {
		name  string
		req   models.ReportRequest
		field string
	}{
		{"no tickers", models.ReportRequest{Tickers: []string{" ", ""}}, "tickers"},
		{"start after end", models.ReportRequest{Tickers: []string{"A"}, Start: fixedNow, End: fixedNow.AddDate(0, -1, 0)}, "start"},
		{"negative lookback", models.ReportRequest{Tickers: []string{"A"}, LookbackPeriods: -1}, "lookback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.resolveRequest(tt.req)
			var ve *utils.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRotationService_GetReport(t *testing.T) {
	stored := &models.RotationReport{ID: reportID}
	store := new(MockReportStore)
	store.On("Get", mock.Anything, reportID).Return(stored, nil)
	svc := newTestService(&stubObservations{}, nil, store, nil)

	got, err := svc.GetReport(context.Background(), reportID)
	require.NoError(t, err)
	assert.Same(t, stored, got)

	_, err = svc.GetReport(context.Background(), "not-a-uuid")
	assert.True(t, utils.IsValidationError(err))

	noStore := newTestService(&stubObservations{}, nil, nil, nil)
	_, err = noStore.GetReport(context.Background(), reportID)
	assert.True(t, utils.IsNotFound(err))
}

func TestRotationService_ListReports(t *testing.T) {
	summaries := []models.ReportSummary{{ID: reportID, Sectors: 2, Months: 13}}
	store := new(MockReportStore)
	store.On("ListRecent", mock.Anything, 10).Return(summaries, nil)

	got, err := newTestService(&stubObservations{}, nil, store, nil).ListReports(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, summaries, got)

	empty, err := newTestService(&stubObservations{}, nil, nil, nil).ListReports(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRotationService_Heatmap(t *testing.T) {
	store := new(MockReportStore)
	store.On("Get", mock.Anything, reportID).Return(&models.RotationReport{ID: reportID, Matrix: trendMatrix()}, nil)
	svc := newTestService(&stubObservations{}, nil, store, nil)

	view, err := svc.Heatmap(context.Background(), reportID, time.Time{}, time.Time{}, []string{"B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, view.Sectors)
	assert.Len(t, view.Trend["B"], 4)
	assert.Equal(t, 3, view.TrendSpan)
}
