package analytics

import (
	"math"

	"portfolioTracker/internal/portfolio"
)

// Scenario picks which percentile of the annual return distribution is compounded.
type Scenario string

const (
	Optimistic  Scenario = "optimistic"
	Average     Scenario = "average"
	Pessimistic Scenario = "pessimistic"
)

// Scenarios in display order.
var Scenarios = []Scenario{Optimistic, Average, Pessimistic}

// DefaultHorizons are the projection horizons in years.
var DefaultHorizons = []float64{0.25, 0.5, 0.75, 1.0}

// Rate returns p90, p50 or p10 of set. Unknown scenarios yield 0.
func (s Scenario) Rate(set PercentileSet) float64 {
	switch s {
	case Optimistic:
		return set.P90
	case Average:
		return set.P50
	case Pessimistic:
		return set.P10
	}
	return 0
}

// ProjectAt compounds each holding's current value at its ticker's scenario rate for
// years (fractional) and sums the results. Tickers without a percentile set grow at 0.
// Negative rates are applied as-is, without a floor.
func ProjectAt(holdings []portfolio.Holding, percentiles map[string]PercentileSet, s Scenario, years float64) float64 {
	total := 0.0
	for _, h := range holdings {
		rate := 0.0
		if set, ok := percentiles[h.Symbol]; ok {
			rate = s.Rate(set)
		}
		v := h.Value() * math.Pow(1+rate, years)
		if isFinite(v) {
			total += v
		}
	}
	return total
}

// Projection is the projected portfolio value of every scenario at one horizon.
type Projection struct {
	Years  float64              `json:"years"`
	Values map[Scenario]float64 `json:"values"`
}

// Project evaluates ProjectAt for each horizon and scenario.
func Project(holdings []portfolio.Holding, percentiles map[string]PercentileSet, horizons []float64) []Projection {
	out := make([]Projection, 0, len(horizons))
	for _, years := range horizons {
		p := Projection{Years: years, Values: make(map[Scenario]float64, len(Scenarios))}
		for _, s := range Scenarios {
			p.Values[s] = ProjectAt(holdings, percentiles, s, years)
		}
		out = append(out, p)
	}
	return out
}
