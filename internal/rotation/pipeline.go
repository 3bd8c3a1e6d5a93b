package rotation

import (
	"github.com/irfndi/sector-rotation-go/internal/models"
)

// Options tunes a pipeline run. Zero values select the package defaults.
type Options struct {
	LookbackPeriods  int
	MinOverlapMonths int
}

// Result bundles every engine output of one run. ClassificationErr and
// CorrelationErr are set when that branch failed; the other outputs are
// still populated.
type Result struct {
	Normalized        NormalizeResult
	Matrix            *models.SectorVolumeMatrix
	Classifications   []models.RegimeClassification
	ClassificationErr error
	Correlation       *models.CorrelationMatrix
	CorrelationErr    error
	Insights          models.InsightSummary
}

// Run normalises, aggregates, classifies, correlates and selects insights.
// It only fails when nothing survives normalisation.
func Run(raw []models.RawObservation, categories models.TickerCategory, indicators []models.MacroSeries, opts Options) (*Result, error) {
	result := &Result{Normalized: Normalize(raw, categories)}

	matrix, err := Aggregate(result.Normalized.Observations)
	if err != nil {
		return result, err
	}
	result.Matrix = matrix

	result.Classifications, result.ClassificationErr = Classify(matrix, opts.LookbackPeriods)

	if len(indicators) > 0 {
		result.Correlation, result.CorrelationErr = CorrelateWithOverlap(matrix, indicators, opts.MinOverlapMonths)
	}

	result.Insights = SelectInsights(matrix, result.Classifications, result.Correlation)
	return result, nil
}
