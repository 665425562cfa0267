// Package analytics turns daily close series into period returns, return
// distributions, aligned return matrices, risk decomposition and scenario
// projections. Every function is pure; edge cases resolve to zero, empty or
// nil results and never to NaN or an error.
package analytics

import (
	"math"
	"time"
)

// PricePoint is one daily close. Timestamp is milliseconds since the Unix epoch.
type PricePoint struct {
	Timestamp int64   `json:"t"`
	Close     float64 `json:"c"`
}

// Time returns the point's timestamp in UTC.
func (p PricePoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

// Valid reports whether the close is positive and finite.
func (p PricePoint) Valid() bool {
	return isFinite(p.Close) && p.Close > 0
}

// PeriodReturn is the simple return of a period against the previous observed period.
type PeriodReturn struct {
	Period int     `json:"period"`
	Return float64 `json:"return"`
}

// PercentileSet holds the distribution ranks used as scenario rates.
type PercentileSet struct {
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

// Bin is a histogram bucket covering [From, To).
type Bin struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int     `json:"count"`
}

// Histogram is a binned distribution. MaxCount scales a display.
type Histogram struct {
	Bins     []Bin `json:"bins"`
	MaxCount int   `json:"max_count"`
}

// AlignedMatrix is a rectangular set of return vectors sharing one period axis.
type AlignedMatrix struct {
	Periods []int                `json:"periods"`
	Returns map[string][]float64 `json:"returns"`
}

// Contribution is one asset's share of portfolio variance.
type Contribution struct {
	Symbol       string  `json:"symbol"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// RiskSnapshot is the portfolio risk decomposition. Beta is nil when it cannot be estimated.
type RiskSnapshot struct {
	Ready         bool           `json:"ready"`
	Periods       int            `json:"periods"`
	Beta          *float64       `json:"beta"`
	BetaPeriods   int            `json:"beta_periods"`
	Variance      float64        `json:"variance"`
	Volatility    float64        `json:"volatility"`
	Contributions []Contribution `json:"contributions"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CleanSeries drops points whose close is non-positive or non-finite.
func CleanSeries(points []PricePoint) []PricePoint {
	out := make([]PricePoint, 0, len(points))
	for _, p := range points {
		if p.Valid() {
			out = append(out, p)
		}
	}
	return out
}
