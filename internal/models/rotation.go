package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// UnknownSector is assigned to tickers the metadata provider could not categorise.
const UnknownSector = "Unknown"

// RawObservation is a single provider record of traded volume for a ticker.
// A zero Timestamp means the provider timestamp could not be parsed.
type RawObservation struct {
	Ticker    string    `json:"ticker"`
	Timestamp time.Time `json:"timestamp"`
	Volume    float64   `json:"volume"`
}

// TickerCategory maps tickers to sector labels. It is immutable once built.
type TickerCategory struct {
	sectors map[string]string
}

// NewTickerCategory copies the given mapping into an immutable TickerCategory.
// Blank labels are stored as UnknownSector.
func NewTickerCategory(sectors map[string]string) TickerCategory {
	copied := make(map[string]string, len(sectors))
	for ticker, sector := range sectors {
		sector = strings.TrimSpace(sector)
		if sector == "" {
			sector = UnknownSector
		}
		copied[ticker] = sector
	}
	return TickerCategory{sectors: copied}
}

// Sector returns the label for a ticker, or UnknownSector when none is known.
func (c TickerCategory) Sector(ticker string) string {
	if sector, ok := c.sectors[ticker]; ok {
		return sector
	}
	return UnknownSector
}

// Len returns the number of categorised tickers.
func (c TickerCategory) Len() int {
	return len(c.sectors)
}

// Map returns a copy of the underlying mapping.
func (c TickerCategory) Map() map[string]string {
	out := make(map[string]string, len(c.sectors))
	for k, v := range c.sectors {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the category as a plain object.
func (c TickerCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Map())
}

// UnmarshalJSON decodes a plain object into a fresh category.
func (c *TickerCategory) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = NewTickerCategory(m)
	return nil
}

// MonthlyObservation is the volume a ticker traded in one calendar month.
type MonthlyObservation struct {
	Ticker string    `json:"ticker"`
	Sector string    `json:"sector"`
	Month  time.Time `json:"month"`
	Volume float64   `json:"volume"`
}

// MonthStart floors t to the first day of its calendar month. The calendar
// fields are read in t's own location and the result is expressed in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// SectorVolumeMatrix is a dense month × sector table of summed volume.
// Months are ascending and gapless; Values[i][j] is the volume of Sectors[j] in Months[i].
type SectorVolumeMatrix struct {
	Months  []time.Time `json:"months"`
	Sectors []string    `json:"sectors"`
	Values  [][]float64 `json:"values"`
}

// Len returns the number of month rows.
func (m *SectorVolumeMatrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Months)
}

// SectorIndex returns the column of a sector, or -1.
func (m *SectorVolumeMatrix) SectorIndex(sector string) int {
	for i, s := range m.Sectors {
		if s == sector {
			return i
		}
	}
	return -1
}

// Column returns a copy of one sector's series, or nil if the sector is absent.
func (m *SectorVolumeMatrix) Column(sector string) []float64 {
	idx := m.SectorIndex(sector)
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(m.Months))
	for i := range m.Values {
		out[i] = m.Values[i][idx]
	}
	return out
}

// LatestRow returns the final month's row, or nil for an empty matrix.
func (m *SectorVolumeMatrix) LatestRow() []float64 {
	if m.Len() == 0 {
		return nil
	}
	return m.Values[len(m.Values)-1]
}

// MonthTotal sums every sector in row i.
func (m *SectorVolumeMatrix) MonthTotal(i int) float64 {
	total := 0.0
	for _, v := range m.Values[i] {
		total += v
	}
	return total
}

// Window returns a new matrix restricted to months within [from, to] and the
// given sectors, in the order given. Zero from/to leave that bound open; an
// empty sector list keeps every column. Unknown sectors are ignored.
func (m *SectorVolumeMatrix) Window(from, to time.Time, sectors []string) *SectorVolumeMatrix {
	cols := make([]int, 0, len(m.Sectors))
	names := make([]string, 0, len(m.Sectors))
	if len(sectors) == 0 {
		for i, s := range m.Sectors {
			cols = append(cols, i)
			names = append(names, s)
		}
	} else {
		seen := make(map[string]bool, len(sectors))
		for _, s := range sectors {
			if idx := m.SectorIndex(s); idx >= 0 && !seen[s] {
				seen[s] = true
				cols = append(cols, idx)
				names = append(names, s)
			}
		}
	}

	out := &SectorVolumeMatrix{Sectors: names}
	for i, month := range m.Months {
		if !from.IsZero() && month.Before(MonthStart(from)) {
			continue
		}
		if !to.IsZero() && month.After(MonthStart(to)) {
			continue
		}
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = m.Values[i][c]
		}
		out.Months = append(out.Months, month)
		out.Values = append(out.Values, row)
	}
	return out
}

// Regime is a fixed-threshold label for a sector's volume trend.
type Regime string

const (
	RegimeAccumulation  Regime = "accumulation"
	RegimeDistribution  Regime = "distribution"
	RegimeStealthBuying Regime = "stealth_buying"
	RegimeStable        Regime = "stable"
)

// RegimeClassification is the year-over-year result for one sector.
// ZeroBase is set when the comparison month had no volume; YoYChange is then
// +Inf (latest > 0) or 0 (latest == 0).
type RegimeClassification struct {
	Sector    string  `json:"sector"`
	YoYChange float64 `json:"yoy_change"`
	ZeroBase  bool    `json:"zero_base"`
	Regime    Regime  `json:"regime"`
}

// MarshalJSON renders an infinite change as null; ZeroBase disambiguates it.
func (r RegimeClassification) MarshalJSON() ([]byte, error) {
	var change *float64
	if !math.IsInf(r.YoYChange, 0) && !math.IsNaN(r.YoYChange) {
		v := r.YoYChange
		change = &v
	}
	return json.Marshal(struct {
		Sector    string   `json:"sector"`
		YoYChange *float64 `json:"yoy_change"`
		ZeroBase  bool     `json:"zero_base"`
		Regime    Regime   `json:"regime"`
	}{r.Sector, change, r.ZeroBase, r.Regime})
}

// UnmarshalJSON restores +Inf for a null change on a zero base.
func (r *RegimeClassification) UnmarshalJSON(data []byte) error {
	var raw struct {
		Sector    string   `json:"sector"`
		YoYChange *float64 `json:"yoy_change"`
		ZeroBase  bool     `json:"zero_base"`
		Regime    Regime   `json:"regime"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Sector, r.ZeroBase, r.Regime = raw.Sector, raw.ZeroBase, raw.Regime
	switch {
	case raw.YoYChange != nil:
		r.YoYChange = *raw.YoYChange
	case raw.ZeroBase:
		r.YoYChange = math.Inf(1)
	default:
		r.YoYChange = 0
	}
	return nil
}

// MacroObservation is one dated value of a macro indicator.
type MacroObservation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MacroSeries is a named indicator series supplied by the caller.
type MacroSeries struct {
	Name         string             `json:"name"`
	SourceID     string             `json:"source_id,omitempty"`
	Observations []MacroObservation `json:"observations"`
}

// CorrelationCell holds the Pearson coefficient of one sector against one
// indicator. Defined is false when either side had zero variance.
type CorrelationCell struct {
	Sector      string  `json:"sector"`
	Coefficient float64 `json:"coefficient"`
	Defined     bool    `json:"defined"`
}

// MarshalJSON renders an undefined coefficient as null.
func (c CorrelationCell) MarshalJSON() ([]byte, error) {
	var coef *float64
	if c.Defined {
		v := c.Coefficient
		coef = &v
	}
	return json.Marshal(struct {
		Sector      string   `json:"sector"`
		Coefficient *float64 `json:"coefficient"`
		Defined     bool     `json:"defined"`
	}{c.Sector, coef, c.Defined})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *CorrelationCell) UnmarshalJSON(data []byte) error {
	var raw struct {
		Sector      string   `json:"sector"`
		Coefficient *float64 `json:"coefficient"`
		Defined     bool     `json:"defined"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Sector, c.Defined = raw.Sector, raw.Defined && raw.Coefficient != nil
	c.Coefficient = 0
	if c.Defined {
		c.Coefficient = *raw.Coefficient
	}
	return nil
}

// CorrelationRow is one indicator against every sector. Months lists the
// months that contributed to every cell of the row.
type CorrelationRow struct {
	Indicator string            `json:"indicator"`
	Months    []time.Time       `json:"months"`
	Cells     []CorrelationCell `json:"cells"`
}

// IndicatorFailure records an indicator that produced no row.
type IndicatorFailure struct {
	Indicator string `json:"indicator"`
	Reason    string `json:"reason"`
}

// CorrelationMatrix holds rows for indicators with enough overlap; the rest
// are listed in Failures.
type CorrelationMatrix struct {
	Sectors  []string           `json:"sectors"`
	Rows     []CorrelationRow   `json:"rows"`
	Failures []IndicatorFailure `json:"failures,omitempty"`
}

// Row returns the row for an indicator.
func (m *CorrelationMatrix) Row(indicator string) (CorrelationRow, bool) {
	if m == nil {
		return CorrelationRow{}, false
	}
	for _, r := range m.Rows {
		if r.Indicator == indicator {
			return r, true
		}
	}
	return CorrelationRow{}, false
}

// SectorPick names a sector selected by an insight and the value that won.
type SectorPick struct {
	Sector string  `json:"sector"`
	Value  float64 `json:"value"`
}

// MarshalJSON renders an infinite value as null.
func (p SectorPick) MarshalJSON() ([]byte, error) {
	var v *float64
	if !math.IsInf(p.Value, 0) && !math.IsNaN(p.Value) {
		val := p.Value
		v = &val
	}
	return json.Marshal(struct {
		Sector string   `json:"sector"`
		Value  *float64 `json:"value"`
	}{p.Sector, v})
}

// UnmarshalJSON reads a null value back as +Inf, the only non-finite pick.
func (p *SectorPick) UnmarshalJSON(data []byte) error {
	var raw struct {
		Sector string   `json:"sector"`
		Value  *float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Sector = raw.Sector
	p.Value = math.Inf(1)
	if raw.Value != nil {
		p.Value = *raw.Value
	}
	return nil
}

// SensitivityPick is the sector most correlated with an indicator.
type SensitivityPick struct {
	Indicator   string  `json:"indicator"`
	Sector      string  `json:"sector"`
	Coefficient float64 `json:"coefficient"`
}

// InsightSummary is the headline view of a run. Nil picks were not derivable
// from the inputs.
type InsightSummary struct {
	TopVolume          *SectorPick                `json:"top_volume,omitempty"`
	StrongestGain      *SectorPick                `json:"strongest_gain,omitempty"`
	StrongestDecline   *SectorPick                `json:"strongest_decline,omitempty"`
	MacroSensitivity   map[string]SensitivityPick `json:"macro_sensitivity,omitempty"`
	MostMacroSensitive *SensitivityPick           `json:"most_macro_sensitive,omitempty"`
}

// FetchFailure records a ticker the market-data provider could not serve.
type FetchFailure struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// FetchResult is the partial-failure output of the market-data collector.
type FetchResult struct {
	Observations []RawObservation `json:"observations"`
	Categories   TickerCategory   `json:"categories"`
	Failures     []FetchFailure   `json:"failures,omitempty"`
}
