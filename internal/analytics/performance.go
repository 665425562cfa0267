package analytics

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualizes daily figures.
const TradingDaysPerYear = 252.0

// Performance summarizes one close series. Percent fields are fractions
// (0.12 is 12%). Sharpe assumes a zero risk-free rate.
type Performance struct {
	Days         int     `json:"days"`
	TotalReturn  float64 `json:"total_return"`
	AnnualReturn float64 `json:"annual_return"`
	Volatility   float64 `json:"volatility"`
	Sharpe       float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"max_drawdown"`
}

// SeriesPerformance computes total and geometric annualized return, annualized
// volatility of daily returns (sample standard deviation), Sharpe and maximum
// drawdown over the valid points in timestamp order. ok is false with fewer
// than three valid points.
func SeriesPerformance(points []PricePoint) (Performance, bool) {
	points = CleanSeries(points)
	if len(points) < 3 {
		return Performance{}, false
	}
	slices.SortStableFunc(points, func(a, b PricePoint) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	daily := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		daily = append(daily, closes[i]/closes[i-1]-1)
	}

	first, last := closes[0], closes[len(closes)-1]
	perf := Performance{
		Days:        len(closes),
		TotalReturn: last/first - 1,
		MaxDrawdown: MaxDrawdown(closes),
	}
	if years := float64(len(daily)) / TradingDaysPerYear; years > 0 {
		perf.AnnualReturn = math.Pow(last/first, 1/years) - 1
	}
	perf.Volatility = stat.StdDev(daily, nil) * math.Sqrt(TradingDaysPerYear)
	if perf.Volatility > 0 {
		perf.Sharpe = perf.AnnualReturn / perf.Volatility
	}

	for _, v := range []*float64{&perf.TotalReturn, &perf.AnnualReturn, &perf.Volatility, &perf.Sharpe} {
		if !isFinite(*v) {
			*v = 0
		}
	}
	return perf, true
}

// MaxDrawdown is the largest peak-to-trough decline as a fraction of the peak.
// Non-positive values are skipped.
func MaxDrawdown(values []float64) float64 {
	peak, worst := 0.0, 0.0
	for _, v := range values {
		if !isFinite(v) || v <= 0 {
			continue
		}
		if v > peak {
			peak = v
			continue
		}
		if dd := (peak - v) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}
