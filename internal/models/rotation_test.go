package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstOf(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

func TestTickerCategory(t *testing.T) {
	source := map[string]string{"AAPL": "Consumer Electronics", "XYZ": "  "}
	categories := NewTickerCategory(source)
	source["AAPL"] = "mutated"

	assert.Equal(t, "Consumer Electronics", categories.Sector("AAPL"))
	assert.Equal(t, UnknownSector, categories.Sector("XYZ"))
	assert.Equal(t, UnknownSector, categories.Sector("MISSING"))
	assert.Equal(t, 2, categories.Len())

	data, err := json.Marshal(categories)
	require.NoError(t, err)
	var decoded TickerCategory
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, categories.Map(), decoded.Map())
}

func TestMonthStart(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	tests := []struct {
		name     string
		input    time.Time
		expected time.Time
	}{
		{"mid month", time.Date(2024, 2, 17, 13, 4, 0, 0, time.UTC), firstOf(2024, 2)},
		{"already floored", firstOf(2023, 12), firstOf(2023, 12)},
		{"own location calendar", time.Date(2024, 3, 1, 2, 0, 0, 0, tokyo), firstOf(2024, 3)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MonthStart(tc.input))
		})
	}
}

func TestSectorVolumeMatrix_Window(t *testing.T) {
	matrix := &SectorVolumeMatrix{
		Months:  []time.Time{firstOf(2023, 1), firstOf(2023, 2), firstOf(2023, 3)},
		Sectors: []string{"Banks", "Energy", "Tech"},
		Values:  [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
	}

	window := matrix.Window(time.Date(2023, 2, 14, 0, 0, 0, 0, time.UTC), time.Time{}, []string{"Tech", "Missing", "Banks"})
	assert.Equal(t, []string{"Tech", "Banks"}, window.Sectors)
	assert.Equal(t, []time.Time{firstOf(2023, 2), firstOf(2023, 3)}, window.Months)
	assert.Equal(t, [][]float64{{6, 4}, {9, 7}}, window.Values)

	window.Values[0][0] = 100
	assert.Equal(t, 6.0, matrix.Values[1][2])

	all := matrix.Window(time.Time{}, firstOf(2023, 1), nil)
	assert.Equal(t, matrix.Sectors, all.Sectors)
	assert.Equal(t, [][]float64{{1, 2, 3}}, all.Values)

	assert.Equal(t, []float64{2, 5, 8}, matrix.Column("Energy"))
	assert.Nil(t, matrix.Column("Nope"))
	assert.Equal(t, []float64{7, 8, 9}, matrix.LatestRow())
	assert.Equal(t, 24.0, matrix.MonthTotal(2))
}

func TestRegimeClassification_JSON(t *testing.T) {
	tests := []struct {
		name     string
		input    RegimeClassification
		expected string
	}{
		{
			name:     "finite change",
			input:    RegimeClassification{Sector: "Tech", YoYChange: 0.25, Regime: RegimeAccumulation},
			expected: `{"sector":"Tech","yoy_change":0.25,"zero_base":false,"regime":"accumulation"}`,
		},
		{
			name:     "zero base growth",
			input:    RegimeClassification{Sector: "New", YoYChange: math.Inf(1), ZeroBase: true, Regime: RegimeAccumulation},
			expected: `{"sector":"New","yoy_change":null,"zero_base":true,"regime":"accumulation"}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.input)
			require.NoError(t, err)
			assert.JSONEq(t, tc.expected, string(data))

			var decoded RegimeClassification
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, tc.input, decoded)
		})
	}
}

func TestCorrelationCell_JSON(t *testing.T) {
	data, err := json.Marshal(CorrelationCell{Sector: "Flat"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sector":"Flat","coefficient":null,"defined":false}`, string(data))

	data, err = json.Marshal(CorrelationCell{Sector: "Tech", Coefficient: -0.5, Defined: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sector":"Tech","coefficient":-0.5,"defined":true}`, string(data))

	var decoded CorrelationCell
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, CorrelationCell{Sector: "Tech", Coefficient: -0.5, Defined: true}, decoded)
}

func TestSectorPick_JSON(t *testing.T) {
	data, err := json.Marshal(SectorPick{Sector: "New", Value: math.Inf(1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sector":"New","value":null}`, string(data))

	var decoded SectorPick
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, math.IsInf(decoded.Value, 1))
}

func TestRotationReport_Summary(t *testing.T) {
	report := RotationReport{
		ID:      "r-1",
		Request: ReportRequest{Tickers: []string{"AAPL", "XOM"}},
		Matrix: &SectorVolumeMatrix{
			Months:  []time.Time{firstOf(2023, 1)},
			Sectors: []string{"Energy", "Tech"},
			Values:  [][]float64{{1, 2}},
		},
	}
	summary := report.Summary()
	assert.Equal(t, "r-1", summary.ID)
	assert.Equal(t, []string{"AAPL", "XOM"}, summary.Tickers)
	assert.Equal(t, 2, summary.Sectors)
	assert.Equal(t, 1, summary.Months)
}
