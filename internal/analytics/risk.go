package analytics

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"portfolioTracker/internal/portfolio"
)

// varianceFloor treats rounding residue on constant series as zero variance.
const varianceFloor = 1e-20

// Variance is the population variance (divide by n). Empty input yields 0.
func Variance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	v := stat.PopVariance(x, nil)
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}

// Covariance is the population covariance of two equal-length series. Mismatched
// or empty input yields 0.
func Covariance(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}
	if n == 1 {
		return 0
	}
	// stat.Covariance divides by n-1.
	c := stat.Covariance(x, y, nil) * float64(n-1) / float64(n)
	if !isFinite(c) {
		return 0
	}
	return c
}

// Weights maps each symbol to its share of current portfolio value. Several holdings
// of one symbol are summed. All weights are 0 when the total value is 0.
func Weights(holdings []portfolio.Holding) map[string]float64 {
	values := make(map[string]float64)
	total := 0.0
	for _, h := range holdings {
		v := h.Value()
		if !isFinite(v) {
			continue
		}
		values[h.Symbol] += v
		total += v
	}
	weights := make(map[string]float64, len(values))
	for sym, v := range values {
		if total > 0 {
			weights[sym] = v / total
		} else {
			weights[sym] = 0
		}
	}
	return weights
}

// PortfolioReturns is the weighted sum of asset returns at each period of m.
// Assets without a vector in m contribute nothing.
func PortfolioReturns(m AlignedMatrix, weights map[string]float64) []float64 {
	out := make([]float64, len(m.Periods))
	for sym, vec := range m.Returns {
		w := weights[sym]
		for i := range out {
			if i < len(vec) {
				out[i] += w * vec[i]
			}
		}
	}
	return out
}

// NotReady is the snapshot used when no aligned periods exist.
func NotReady() RiskSnapshot {
	return RiskSnapshot{Contributions: []Contribution{}}
}

// Risk computes variance, volatility and per-asset variance contributions on the
// aligned axis of assetReturns, and beta against benchmark on its own axis.
func Risk(holdings []portfolio.Holding, assetReturns map[string]map[int]float64, benchmark map[int]float64) RiskSnapshot {
	usable := make(map[string]map[int]float64, len(assetReturns))
	for sym, r := range assetReturns {
		if len(r) > 0 {
			usable[sym] = r
		}
	}
	if len(usable) == 0 {
		return NotReady()
	}

	m := Align(usable)
	if len(m.Periods) == 0 {
		return NotReady()
	}

	weights := Weights(holdings)
	port := PortfolioReturns(m, weights)
	variance := Variance(port)

	snap := RiskSnapshot{
		Ready:         true,
		Periods:       len(m.Periods),
		Variance:      variance,
		Volatility:    math.Sqrt(variance),
		Contributions: Contributions(m, weights, port, variance),
	}
	snap.Beta, snap.BetaPeriods = Beta(usable, benchmark, weights)
	return snap
}

// Contributions is the Euler decomposition weight_i*cov(r_i, r_p)/var(r_p), sorted
// descending. Every contribution is 0 when the variance is 0.
func Contributions(m AlignedMatrix, weights map[string]float64, port []float64, variance float64) []Contribution {
	out := make([]Contribution, 0, len(m.Returns))
	for sym, vec := range m.Returns {
		c := Contribution{Symbol: sym, Weight: weights[sym]}
		if variance > varianceFloor {
			c.Contribution = c.Weight * Covariance(vec, port) / variance
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Contribution) int {
		if d := cmp.Compare(b.Contribution, a.Contribution); d != 0 {
			return d
		}
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	return out
}

// Beta regresses the weighted portfolio on the benchmark over the periods shared by
// every asset and the benchmark. It returns nil when the benchmark has no aligned
// periods or no variance, along with the number of periods used.
func Beta(assetReturns map[string]map[int]float64, benchmark map[int]float64, weights map[string]float64) (*float64, int) {
	if len(benchmark) == 0 || len(assetReturns) == 0 {
		return nil, 0
	}

	maps := make([]map[int]float64, 0, len(assetReturns)+1)
	for _, r := range assetReturns {
		maps = append(maps, r)
	}
	maps = append(maps, benchmark)
	periods := CommonPeriods(maps...)
	if len(periods) == 0 {
		return nil, 0
	}

	port := make([]float64, len(periods))
	bench := make([]float64, len(periods))
	for i, k := range periods {
		for sym, r := range assetReturns {
			port[i] += weights[sym] * r[k]
		}
		bench[i] = benchmark[k]
	}

	bv := Variance(bench)
	if bv <= varianceFloor {
		return nil, len(periods)
	}
	beta := Covariance(port, bench) / bv
	if !isFinite(beta) {
		return nil, len(periods)
	}
	return &beta, len(periods)
}
