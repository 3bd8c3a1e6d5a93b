package rotation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/models"
)

// MinOverlapMonths is the fewest aligned months a coefficient is computed over.
const MinOverlapMonths = 3

// Correlate computes the Pearson coefficient of every sector column against
// every indicator using MinOverlapMonths.
func Correlate(matrix *models.SectorVolumeMatrix, indicators []models.MacroSeries) (*models.CorrelationMatrix, error) {
	return CorrelateWithOverlap(matrix, indicators, MinOverlapMonths)
}

// CorrelateWithOverlap is Correlate with a caller-chosen minimum overlap.
// Values below MinOverlapMonths are raised to it.
//
// Every indicator is forward-filled up to the latest month observed by any
// indicator, then aligned with the matrix independently. Indicators with
// too little overlap get no row; they are listed in Failures and returned
// joined in the error alongside the partially filled matrix.
func CorrelateWithOverlap(matrix *models.SectorVolumeMatrix, indicators []models.MacroSeries, minOverlap int) (*models.CorrelationMatrix, error) {
	if matrix.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if minOverlap < MinOverlapMonths {
		minOverlap = MinOverlapMonths
	}

	seen := make(map[string]bool, len(indicators))
	for _, ind := range indicators {
		name := strings.TrimSpace(ind.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: blank name", ErrInvalidIndicator)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidIndicator, name)
		}
		seen[name] = true
	}

	result := &models.CorrelationMatrix{
		Sectors: append([]string(nil), matrix.Sectors...),
		Rows:    make([]models.CorrelationRow, 0, len(indicators)),
	}

	valid := make([][]models.MacroObservation, len(indicators))
	var latest time.Time
	for i, ind := range indicators {
		valid[i] = validObservations(ind.Observations)
		if n := len(valid[i]); n > 0 {
			if m := models.MonthStart(valid[i][n-1].Date); m.After(latest) {
				latest = m
			}
		}
	}

	var errs []error
	for i, ind := range indicators {
		filled := fillMonthly(valid[i], latest)

		var rows []int
		var macro []float64
		for r, month := range matrix.Months {
			if v, ok := filled[month]; ok {
				rows = append(rows, r)
				macro = append(macro, v)
			}
		}

		if len(rows) < minOverlap {
			overlapErr := &InsufficientOverlapError{Indicator: ind.Name, Overlap: len(rows), Required: minOverlap}
			errs = append(errs, overlapErr)
			result.Failures = append(result.Failures, models.IndicatorFailure{
				Indicator: ind.Name,
				Reason:    overlapErr.Error(),
			})
			continue
		}

		row := models.CorrelationRow{
			Indicator: ind.Name,
			Months:    make([]time.Time, len(rows)),
			Cells:     make([]models.CorrelationCell, len(matrix.Sectors)),
		}
		for k, i := range rows {
			row.Months[k] = matrix.Months[i]
		}
		sectorValues := make([]float64, len(rows))
		for j, sector := range matrix.Sectors {
			for k, i := range rows {
				sectorValues[k] = matrix.Values[i][j]
			}
			coef, defined := pearson(sectorValues, macro)
			row.Cells[j] = models.CorrelationCell{Sector: sector, Coefficient: coef, Defined: defined}
		}
		result.Rows = append(result.Rows, row)
	}

	return result, errors.Join(errs...)
}

// validObservations drops undated, NaN and infinite values and sorts the rest by date.
func validObservations(observations []models.MacroObservation) []models.MacroObservation {
	valid := make([]models.MacroObservation, 0, len(observations))
	for _, obs := range observations {
		if obs.Date.IsZero() || math.IsNaN(obs.Value) || math.IsInf(obs.Value, 0) {
			continue
		}
		valid = append(valid, obs)
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Date.Before(valid[j].Date) })
	return valid
}

// fillMonthly buckets sorted observations to month starts, keeping the
// latest-dated observation of each month, then forward-fills from the first
// observed month up to through. Months before the first observation stay missing.
func fillMonthly(valid []models.MacroObservation, through time.Time) map[time.Time]float64 {
	if len(valid) == 0 {
		return nil
	}

	buckets := make(map[time.Time]float64, len(valid))
	first := models.MonthStart(valid[0].Date)
	last := models.MonthStart(valid[len(valid)-1].Date)
	for _, obs := range valid {
		buckets[models.MonthStart(obs.Date)] = obs.Value
	}
	if through.After(last) {
		last = through
	}

	filled := make(map[time.Time]float64, len(buckets))
	var current float64
	for _, m := range monthRange(first, last) {
		if v, ok := buckets[m]; ok {
			current = v
		}
		filled[m] = current
	}
	return filled
}
