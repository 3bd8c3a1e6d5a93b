package rotation

import (
	"fmt"
	"math"

	"github.com/irfndi/sector-rotation-go/internal/models"
)

// DefaultLookbackPeriods compares the latest month with the month a year earlier.
const DefaultLookbackPeriods = 12

const (
	accumulationThreshold = 0.20
	distributionThreshold = -0.10
	stealthLowerBound     = 0.05
	stealthUpperBound     = 0.15
)

// Classify computes each sector's change between the latest row and the row
// lookbackPeriods before it and labels it with a regime. Zero selects
// DefaultLookbackPeriods; a negative lookback is ErrInvalidLookback.
// Results follow the matrix's column order.
func Classify(matrix *models.SectorVolumeMatrix, lookbackPeriods int) ([]models.RegimeClassification, error) {
	if lookbackPeriods < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLookback, lookbackPeriods)
	}
	if lookbackPeriods == 0 {
		lookbackPeriods = DefaultLookbackPeriods
	}
	if matrix.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if matrix.Len() < lookbackPeriods+1 {
		return nil, &InsufficientHistoryError{Required: lookbackPeriods + 1, Available: matrix.Len()}
	}

	latest := matrix.Values[matrix.Len()-1]
	base := matrix.Values[matrix.Len()-1-lookbackPeriods]

	out := make([]models.RegimeClassification, len(matrix.Sectors))
	for j, sector := range matrix.Sectors {
		change, zeroBase := yoyChange(latest[j], base[j])
		out[j] = models.RegimeClassification{
			Sector:    sector,
			YoYChange: change,
			ZeroBase:  zeroBase,
			Regime:    ClassifyChange(change),
		}
	}
	return out, nil
}

func yoyChange(latest, base float64) (float64, bool) {
	if base == 0 {
		if latest > 0 {
			return math.Inf(1), true
		}
		return 0, true
	}
	return (latest - base) / base, false
}

// ClassifyChange maps a year-over-year change onto a regime. The bands
// (-0.10, 0.05] and (0.15, 0.20] are Stable.
func ClassifyChange(yoy float64) models.Regime {
	switch {
	case yoy > accumulationThreshold:
		return models.RegimeAccumulation
	case yoy < distributionThreshold:
		return models.RegimeDistribution
	case yoy > stealthLowerBound && yoy <= stealthUpperBound:
		return models.RegimeStealthBuying
	default:
		return models.RegimeStable
	}
}
