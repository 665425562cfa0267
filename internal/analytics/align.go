package analytics

import (
	"slices"
)

// CommonPeriods returns, ascending, the period keys present with a finite value in every map.
// No maps, or any empty map, yields an empty axis.
func CommonPeriods(series ...map[int]float64) []int {
	if len(series) == 0 {
		return []int{}
	}
	candidates := make(map[int]struct{}, len(series[0]))
	for k, v := range series[0] {
		if isFinite(v) {
			candidates[k] = struct{}{}
		}
	}
	for _, s := range series[1:] {
		for k := range candidates {
			if v, ok := s[k]; !ok || !isFinite(v) {
				delete(candidates, k)
			}
		}
	}

	keys := make([]int, 0, len(candidates))
	for k := range candidates {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Align restricts every asset to the periods all assets share. Missing periods are
// excluded, never imputed.
func Align(series map[string]map[int]float64) AlignedMatrix {
	m := AlignedMatrix{Periods: []int{}, Returns: map[string][]float64{}}
	if len(series) == 0 {
		return m
	}

	ids := make([]string, 0, len(series))
	for id := range series {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	maps := make([]map[int]float64, len(ids))
	for i, id := range ids {
		maps[i] = series[id]
	}
	m.Periods = CommonPeriods(maps...)

	for _, id := range ids {
		vec := make([]float64, len(m.Periods))
		for i, k := range m.Periods {
			vec[i] = series[id][k]
		}
		m.Returns[id] = vec
	}
	return m
}
