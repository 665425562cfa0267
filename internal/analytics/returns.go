package analytics

import (
	"cmp"
	"slices"
)

// Granularity selects how daily points are grouped into periods.
type Granularity int

const (
	Monthly Granularity = iota
	Annual
)

func (g Granularity) String() string {
	if g == Annual {
		return "annual"
	}
	return "monthly"
}

// PeriodKey is the year for Annual and year*12+month-index (January = 0) for Monthly,
// taken from the UTC calendar date of ts (milliseconds).
func PeriodKey(ts int64, g Granularity) int {
	t := PricePoint{Timestamp: ts}.Time()
	if g == Annual {
		return t.Year()
	}
	return t.Year()*12 + int(t.Month()) - 1
}

// closeTable is the last observed close of each period, keys ascending.
type closeTable struct {
	keys   []int
	closes map[int]float64
}

func periodCloses(points []PricePoint, g Granularity) closeTable {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b PricePoint) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	closes := make(map[int]float64)
	for _, p := range sorted {
		if !p.Valid() {
			continue
		}
		closes[PeriodKey(p.Timestamp, g)] = p.Close
	}

	keys := make([]int, 0, len(closes))
	for k := range closes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return closeTable{keys: keys, closes: closes}
}

// each calls fn for every period that has a usable previous close.
func (t closeTable) each(fn func(key int, ret float64)) {
	for i := 1; i < len(t.keys); i++ {
		prev, okPrev := t.closes[t.keys[i-1]]
		cur, okCur := t.closes[t.keys[i]]
		if !okPrev || !okCur || prev <= 0 {
			continue
		}
		fn(t.keys[i], (cur-prev)/prev)
	}
}

// PeriodReturns returns the chronological period-over-period simple returns of points.
// Returns are taken between consecutive observed periods, which need not be adjacent.
func PeriodReturns(points []PricePoint, g Granularity) []PeriodReturn {
	out := []PeriodReturn{}
	periodCloses(points, g).each(func(key int, ret float64) {
		out = append(out, PeriodReturn{Period: key, Return: ret})
	})
	return out
}

// PeriodReturnMap is PeriodReturns keyed by period.
func PeriodReturnMap(points []PricePoint, g Granularity) map[int]float64 {
	out := make(map[int]float64)
	periodCloses(points, g).each(func(key int, ret float64) {
		out[key] = ret
	})
	return out
}

// ReturnValues strips the period keys.
func ReturnValues(returns []PeriodReturn) []float64 {
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r.Return
	}
	return out
}
