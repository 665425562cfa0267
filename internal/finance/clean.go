package finance

import (
	"math"

	"portfolioTracker/internal/analytics"
)

// cleanChart pairs Yahoo timestamps (seconds) with closes and drops null,
// non-positive and non-finite bars. Mismatched arrays are cut to the shorter one.
func cleanChart(ts []int64, cl []*float64) []analytics.PricePoint {
	n := len(ts)
	if len(cl) < n {
		n = len(cl)
	}
	out := make([]analytics.PricePoint, 0, n)
	for i := 0; i < n; i++ {
		if cl[i] == nil {
			continue
		}
		v := *cl[i]
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, analytics.PricePoint{Timestamp: ts[i] * 1000, Close: v})
	}
	return out
}
