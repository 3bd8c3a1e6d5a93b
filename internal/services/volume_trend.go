package services

import (
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/irfndi/sector-rotation-go/internal/models"
	"github.com/irfndi/sector-rotation-go/internal/utils"
)

const (
	DefaultTrendPeriod    = 3
	DefaultHeatmapSectors = 5
)

// VolumeTrend derives the heatmap view of a sector volume matrix.
type VolumeTrend struct {
	period         int
	defaultSectors int
}

func NewVolumeTrend(period, defaultSectors int) *VolumeTrend {
	if period <= 0 {
		period = DefaultTrendPeriod
	}
	if defaultSectors <= 0 {
		defaultSectors = DefaultHeatmapSectors
	}
	return &VolumeTrend{period: period, defaultSectors: defaultSectors}
}

// Heatmap windows matrix to [from, to] and sectors. With no sectors given the
// first defaultSectors columns are shown.
func (v *VolumeTrend) Heatmap(reportID string, matrix *models.SectorVolumeMatrix, from, to time.Time, sectors []string) (*models.HeatmapView, error) {
	if matrix.Len() == 0 {
		return nil, utils.NewValidationError("report has no volume data")
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, utils.NewFieldError("from", "must not be after to")
	}

	if len(sectors) == 0 {
		n := min(v.defaultSectors, len(matrix.Sectors))
		sectors = matrix.Sectors[:n]
	}
	window := matrix.Window(from, to, sectors)
	if len(window.Sectors) == 0 {
		return nil, utils.NewFieldError("sectors", "none of the requested sectors are in the report")
	}

	view := &models.HeatmapView{
		ReportID:  reportID,
		Months:    window.Months,
		Sectors:   window.Sectors,
		Volume:    window.Values,
		Intensity: RowIntensity(window.Values),
		Trend:     make(map[string][]*float64, len(window.Sectors)),
		TrendSpan: v.period,
	}
	for _, sector := range window.Sectors {
		view.Trend[sector] = MovingAverage(window.Column(sector), v.period)
	}
	return view, nil
}

// RowIntensity scales each row by its maximum so the busiest sector of a
// month is 1. All-zero rows stay zero.
func RowIntensity(values [][]float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, row := range values {
		out[i] = make([]float64, len(row))
		peak := 0.0
		for _, v := range row {
			if v > peak {
				peak = v
			}
		}
		if peak == 0 {
			continue
		}
		for j, v := range row {
			out[i][j] = v / peak
		}
	}
	return out
}

// MovingAverage returns the simple moving average aligned to values; the
// first period-1 entries have no average and are nil.
func MovingAverage(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	averaged := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))

	offset := len(values) - len(averaged)
	for i := range averaged {
		v := averaged[i]
		out[offset+i] = &v
	}
	return out
}
