package rotation

import (
	"sort"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/models"
)

// Aggregate sums monthly observations by (month, sector) into a dense matrix.
// Rows cover every month from the earliest to the latest observation; months
// with no trades are zero rows. Columns are the observed sectors, sorted.
func Aggregate(observations []models.MonthlyObservation) (*models.SectorVolumeMatrix, error) {
	if len(observations) == 0 {
		return nil, ErrEmptyDataset
	}

	first := models.MonthStart(observations[0].Month)
	last := first
	sectorSet := make(map[string]struct{})
	for _, obs := range observations {
		month := models.MonthStart(obs.Month)
		if month.Before(first) {
			first = month
		}
		if month.After(last) {
			last = month
		}
		sectorSet[obs.Sector] = struct{}{}
	}

	sectors := make([]string, 0, len(sectorSet))
	for s := range sectorSet {
		sectors = append(sectors, s)
	}
	sort.Strings(sectors)
	column := make(map[string]int, len(sectors))
	for i, s := range sectors {
		column[s] = i
	}

	months := monthRange(first, last)
	row := make(map[time.Time]int, len(months))
	values := make([][]float64, len(months))
	for i, m := range months {
		row[m] = i
		values[i] = make([]float64, len(sectors))
	}

	for _, obs := range observations {
		values[row[models.MonthStart(obs.Month)]][column[obs.Sector]] += obs.Volume
	}

	return &models.SectorVolumeMatrix{
		Months:  months,
		Sectors: sectors,
		Values:  values,
	}, nil
}

// monthRange lists every month start in [first, last].
func monthRange(first, last time.Time) []time.Time {
	var months []time.Time
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}
