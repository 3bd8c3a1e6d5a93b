package interfaces

import (
	"context"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/models"
)

// MarketDataProvider retrieves monthly volume history and sector metadata for tickers.
type MarketDataProvider interface {
	// FetchMonthlyVolume returns one raw observation per period in [start, end].
	FetchMonthlyVolume(ctx context.Context, ticker string, start, end time.Time) ([]models.RawObservation, error)
	// FetchSector returns the provider's industry label, or "" when it has none.
	FetchSector(ctx context.Context, ticker string) (string, error)
}

// MacroDataProvider retrieves a macro indicator series by provider id.
type MacroDataProvider interface {
	FetchSeries(ctx context.Context, seriesID string, start time.Time) ([]models.MacroObservation, error)
}

// ReportStore persists generated rotation reports.
type ReportStore interface {
	Save(ctx context.Context, report *models.RotationReport) error
	Get(ctx context.Context, id string) (*models.RotationReport, error)
	ListRecent(ctx context.Context, limit int) ([]models.ReportSummary, error)
}

// ObservationCache memoises provider responses outside the engine.
// Get methods report a miss with found=false and a nil error.
type ObservationCache interface {
	GetObservations(ctx context.Context, tickers []string, start, end time.Time) (*models.FetchResult, bool, error)
	SetObservations(ctx context.Context, tickers []string, start, end time.Time, result *models.FetchResult) error
	GetMacroSeries(ctx context.Context, seriesID string, start time.Time) ([]models.MacroObservation, bool, error)
	SetMacroSeries(ctx context.Context, seriesID string, start time.Time, observations []models.MacroObservation) error
}

// Notifier delivers a finished report to an external channel.
type Notifier interface {
	SendDigest(ctx context.Context, report *models.RotationReport) error
}
