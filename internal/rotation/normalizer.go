package rotation

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/irfndi/sector-rotation-go/internal/models"
)

// NormalizeResult is the valid monthly stream plus an account of what was dropped.
type NormalizeResult struct {
	Observations []models.MonthlyObservation
	Dropped      int
	Rejected     []*InvalidObservationError
}

type tickerMonth struct {
	ticker string
	month  time.Time
}

// Normalize floors each raw record to its calendar month, sums records that
// share a (ticker, month) and attaches the ticker's sector. Invalid records
// are dropped and reported in the result; they never fail the batch.
func Normalize(raw []models.RawObservation, categories models.TickerCategory) NormalizeResult {
	result := NormalizeResult{}
	if len(raw) == 0 {
		return result
	}

	sums := make(map[tickerMonth]float64, len(raw))
	for i, obs := range raw {
		if reason := validateObservation(obs); reason != "" {
			result.Dropped++
			result.Rejected = append(result.Rejected, &InvalidObservationError{
				Index:  i,
				Ticker: obs.Ticker,
				Reason: reason,
			})
			continue
		}
		key := tickerMonth{ticker: strings.TrimSpace(obs.Ticker), month: models.MonthStart(obs.Timestamp)}
		sums[key] += obs.Volume
	}

	result.Observations = make([]models.MonthlyObservation, 0, len(sums))
	for key, volume := range sums {
		result.Observations = append(result.Observations, models.MonthlyObservation{
			Ticker: key.ticker,
			Sector: categories.Sector(key.ticker),
			Month:  key.month,
			Volume: volume,
		})
	}

	sort.Slice(result.Observations, func(i, j int) bool {
		a, b := result.Observations[i], result.Observations[j]
		if !a.Month.Equal(b.Month) {
			return a.Month.Before(b.Month)
		}
		return a.Ticker < b.Ticker
	})
	return result
}

func validateObservation(obs models.RawObservation) string {
	switch {
	case strings.TrimSpace(obs.Ticker) == "":
		return "blank ticker"
	case obs.Timestamp.IsZero():
		return "unparseable timestamp"
	case math.IsNaN(obs.Volume) || math.IsInf(obs.Volume, 0):
		return "non-finite volume"
	case obs.Volume < 0:
		return "negative volume"
	}
	return ""
}
