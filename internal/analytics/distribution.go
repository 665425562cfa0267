package analytics

import (
	"math"
	"slices"
)

const DefaultHistogramBins = 12

// Percentile interpolates linearly at rank (n-1)*p/100 of an ascending slice.
// The caller sorts. Empty input yields 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	k := float64(n-1) * p / 100
	i := int(math.Floor(k))
	if i < 0 {
		return sorted[0]
	}
	if i >= n-1 {
		return sorted[n-1]
	}
	f := k - float64(i)
	return sorted[i] + f*(sorted[i+1]-sorted[i])
}

func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

// Percentiles computes the p10/p25/p50/p75/p90 of the finite values in returns.
func Percentiles(returns []float64) PercentileSet {
	v := finiteValues(returns)
	if len(v) == 0 {
		return PercentileSet{}
	}
	slices.Sort(v)
	return PercentileSet{
		P10: Percentile(v, 10),
		P25: Percentile(v, 25),
		P50: Percentile(v, 50),
		P75: Percentile(v, 75),
		P90: Percentile(v, 90),
	}
}

// BuildHistogram bins the finite values into binCount equal-width buckets over
// [min-pad, max+pad], pad = max(0.02, 10% of the range). A non-positive binCount
// uses DefaultHistogramBins.
func BuildHistogram(values []float64, binCount int) Histogram {
	v := finiteValues(values)
	if len(v) == 0 {
		return Histogram{Bins: []Bin{}}
	}
	if binCount <= 0 {
		binCount = DefaultHistogramBins
	}

	lo, hi := slices.Min(v), slices.Max(v)
	pad := math.Max(0.02, (hi-lo)*0.1)
	lo -= pad
	hi += pad
	width := (hi - lo) / float64(binCount)

	bins := make([]Bin, binCount)
	for i := range bins {
		bins[i].From = lo + float64(i)*width
		bins[i].To = lo + float64(i+1)*width
	}

	h := Histogram{Bins: bins}
	for _, x := range v {
		x = math.Min(math.Max(x, lo), hi)
		idx := int((x - lo) / width)
		if idx >= binCount {
			idx = binCount - 1
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx].Count++
		if bins[idx].Count > h.MaxCount {
			h.MaxCount = bins[idx].Count
		}
	}
	return h
}
