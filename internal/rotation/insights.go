package rotation

import (
	"math"

	"github.com/irfndi/sector-rotation-go/internal/models"
)

// SelectInsights derives the headline picks from the engine outputs. Every
// argmax keeps the earliest column on ties, and the overall macro pick keeps
// the earliest row after that. Picks that cannot be derived are nil.
func SelectInsights(matrix *models.SectorVolumeMatrix, classifications []models.RegimeClassification, correlation *models.CorrelationMatrix) models.InsightSummary {
	summary := models.InsightSummary{}

	if latest := matrix.LatestRow(); len(latest) > 0 {
		best := 0
		for j := 1; j < len(latest); j++ {
			if latest[j] > latest[best] {
				best = j
			}
		}
		summary.TopVolume = &models.SectorPick{Sector: matrix.Sectors[best], Value: latest[best]}
	}

	if len(classifications) > 0 {
		gain, decline := 0, 0
		for i := 1; i < len(classifications); i++ {
			if classifications[i].YoYChange > classifications[gain].YoYChange {
				gain = i
			}
			if classifications[i].YoYChange < classifications[decline].YoYChange {
				decline = i
			}
		}
		summary.StrongestGain = &models.SectorPick{
			Sector: classifications[gain].Sector,
			Value:  classifications[gain].YoYChange,
		}
		summary.StrongestDecline = &models.SectorPick{
			Sector: classifications[decline].Sector,
			Value:  classifications[decline].YoYChange,
		}
	}

	if correlation == nil {
		return summary
	}
	best := -1.0
	for _, row := range correlation.Rows {
		pick, ok := strongestCell(row)
		if !ok {
			continue
		}
		if summary.MacroSensitivity == nil {
			summary.MacroSensitivity = make(map[string]models.SensitivityPick, len(correlation.Rows))
		}
		summary.MacroSensitivity[row.Indicator] = pick
		best = math.Max(best, math.Abs(pick.Coefficient))
	}
	if best >= 0 {
		summary.MostMacroSensitive = overallPick(correlation, best)
	}
	return summary
}

func strongestCell(row models.CorrelationRow) (models.SensitivityPick, bool) {
	best := -1
	for j, cell := range row.Cells {
		if !cell.Defined {
			continue
		}
		if best < 0 || math.Abs(cell.Coefficient) > math.Abs(row.Cells[best].Coefficient) {
			best = j
		}
	}
	if best < 0 {
		return models.SensitivityPick{}, false
	}
	return models.SensitivityPick{
		Indicator:   row.Indicator,
		Sector:      row.Cells[best].Sector,
		Coefficient: row.Cells[best].Coefficient,
	}, true
}

// overallPick finds the earliest column, then earliest row, whose |r| equals target.
func overallPick(correlation *models.CorrelationMatrix, target float64) *models.SensitivityPick {
	for j := range correlation.Sectors {
		for _, row := range correlation.Rows {
			if j >= len(row.Cells) {
				continue
			}
			cell := row.Cells[j]
			if cell.Defined && math.Abs(cell.Coefficient) == target {
				return &models.SensitivityPick{Indicator: row.Indicator, Sector: cell.Sector, Coefficient: cell.Coefficient}
			}
		}
	}
	return nil
}
