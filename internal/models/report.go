package models

import (
	"time"
)

// ReportRequest captures the inputs a report was built from
type ReportRequest struct {
	Tickers         []string  `json:"tickers" form:"tickers"`
	Start           time.Time `json:"start" form:"start"`
	End             time.Time `json:"end" form:"end"`
	LookbackPeriods int       `json:"lookback_periods" form:"lookback"`
}

// RotationReport is the persisted and served result of one rotation run
type RotationReport struct {
	ID                  string                 `json:"id" db:"id"`
	GeneratedAt         time.Time              `json:"generated_at" db:"generated_at"`
	Request             ReportRequest          `json:"request" db:"request"`
	Matrix              *SectorVolumeMatrix    `json:"matrix" db:"matrix"`
	Categories          TickerCategory         `json:"categories" db:"categories"`
	Classifications     []RegimeClassification `json:"classifications" db:"classifications"`
	ClassificationError string                 `json:"classification_error,omitempty" db:"classification_error"`
	Correlation         *CorrelationMatrix     `json:"correlation,omitempty" db:"correlation"`
	Insights            InsightSummary         `json:"insights" db:"insights"`
	DroppedObservations int                    `json:"dropped_observations" db:"dropped_observations"`
	FetchFailures       []FetchFailure         `json:"fetch_failures,omitempty" db:"fetch_failures"`
	MacroFailures       []FetchFailure         `json:"macro_failures,omitempty" db:"macro_failures"`
}

// ReportSummary is the list view of a stored report
type ReportSummary struct {
	ID          string    `json:"id" db:"id"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
	Tickers     []string  `json:"tickers" db:"tickers"`
	Sectors     int       `json:"sectors" db:"sectors"`
	Months      int       `json:"months" db:"months"`
}

// Summary builds the list view for a report
func (r *RotationReport) Summary() ReportSummary {
	s := ReportSummary{
		ID:          r.ID,
		GeneratedAt: r.GeneratedAt,
		Tickers:     append([]string(nil), r.Request.Tickers...),
	}
	if r.Matrix != nil {
		s.Sectors = len(r.Matrix.Sectors)
		s.Months = r.Matrix.Len()
	}
	return s
}

// HeatmapView is the windowed, row-normalised view of a report's matrix
type HeatmapView struct {
	ReportID  string                `json:"report_id"`
	Months    []time.Time           `json:"months"`
	Sectors   []string              `json:"sectors"`
	Volume    [][]float64           `json:"volume"`
	Intensity [][]float64           `json:"intensity"`
	Trend     map[string][]*float64 `json:"trend"`
	TrendSpan int                   `json:"trend_span"`
}
