package services

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/irfndi/sector-rotation-go/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockMarketDataProvider implements interfaces.MarketDataProvider for testing within the services package
type MockMarketDataProvider struct {
	mock.Mock
}

func (m *MockMarketDataProvider) FetchMonthlyVolume(ctx context.Context, ticker string, start, end time.Time) ([]models.RawObservation, error) {
	args := m.Called(ctx, ticker, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RawObservation), args.Error(1)
}

func (m *MockMarketDataProvider) FetchSector(ctx context.Context, ticker string) (string, error) {
	args := m.Called(ctx, ticker)
	return args.String(0), args.Error(1)
}

// MockMacroDataProvider implements interfaces.MacroDataProvider
type MockMacroDataProvider struct {
	mock.Mock
}

func (m *MockMacroDataProvider) FetchSeries(ctx context.Context, seriesID string, start time.Time) ([]models.MacroObservation, error) {
	args := m.Called(ctx, seriesID, start)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MacroObservation), args.Error(1)
}

// MockObservationCache implements interfaces.ObservationCache
type MockObservationCache struct {
	mock.Mock
}

func (m *MockObservationCache) GetObservations(ctx context.Context, tickers []string, start, end time.Time) (*models.FetchResult, bool, error) {
	args := m.Called(ctx, tickers, start, end)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.FetchResult), args.Bool(1), args.Error(2)
}

func (m *MockObservationCache) SetObservations(ctx context.Context, tickers []string, start, end time.Time, result *models.FetchResult) error {
	return m.Called(ctx, tickers, start, end, result).Error(0)
}

func (m *MockObservationCache) GetMacroSeries(ctx context.Context, seriesID string, start time.Time) ([]models.MacroObservation, bool, error) {
	args := m.Called(ctx, seriesID, start)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.MacroObservation), args.Bool(1), args.Error(2)
}

func (m *MockObservationCache) SetMacroSeries(ctx context.Context, seriesID string, start time.Time, observations []models.MacroObservation) error {
	return m.Called(ctx, seriesID, start, observations).Error(0)
}

// MockReportStore implements interfaces.ReportStore
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) Save(ctx context.Context, report *models.RotationReport) error {
	return m.Called(ctx, report).Error(0)
}

func (m *MockReportStore) Get(ctx context.Context, id string) (*models.RotationReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RotationReport), args.Error(1)
}

func (m *MockReportStore) ListRecent(ctx context.Context, limit int) ([]models.ReportSummary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReportSummary), args.Error(1)
}

// MockNotifier implements interfaces.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendDigest(ctx context.Context, report *models.RotationReport) error {
	return m.Called(ctx, report).Error(0)
}

// MockMessageSender implements MessageSender
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tgmodels.Message), args.Error(1)
}
