package utils

import (
	"strings"
)

// MaxTickers bounds a single request's ticker set.
const MaxTickers = 200

// NormalizeTickers trims, upper-cases and de-duplicates tickers, keeping
// first-seen order. Blank entries are skipped.
func NormalizeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ParseTickerList splits a comma-separated query value into normalised tickers.
func ParseTickerList(raw string) ([]string, error) {
	tickers := NormalizeTickers(strings.Split(raw, ","))
	if len(tickers) == 0 {
		return nil, NewFieldError("tickers", "at least one ticker is required")
	}
	if len(tickers) > MaxTickers {
		return nil, NewFieldError("tickers", "at most %d tickers are allowed, got %d", MaxTickers, len(tickers))
	}
	return tickers, nil
}
