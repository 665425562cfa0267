package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(year int, month time.Month, day int, close float64) PricePoint {
	return PricePoint{
		Timestamp: time.Date(year, month, day, 14, 30, 0, 0, time.UTC).UnixMilli(),
		Close:     close,
	}
}

func monthKey(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

func TestPeriodKey(t *testing.T) {
	ts := pt(2021, time.March, 15, 1).Timestamp
	assert.Equal(t, 2021, PeriodKey(ts, Annual))
	assert.Equal(t, 2021*12+2, PeriodKey(ts, Monthly))
}

func TestPeriodReturns_ConsecutiveObservedPeriods(t *testing.T) {
	points := []PricePoint{
		pt(2020, time.January, 2, 100),
		pt(2020, time.December, 31, 110),
		pt(2021, time.December, 31, 121),
	}

	got := PeriodReturns(points, Monthly)
	require.Len(t, got, 2)
	assert.Equal(t, monthKey(2020, time.December), got[0].Period)
	assert.Equal(t, monthKey(2021, time.December), got[1].Period)
	assert.InDelta(t, 0.10, got[0].Return, 1e-12)
	assert.InDelta(t, 0.10, got[1].Return, 1e-12)
}

func TestPeriodReturns_AnnualUsesLastCloseOfYear(t *testing.T) {
	points := []PricePoint{
		pt(2021, time.June, 1, 50),
		pt(2019, time.December, 30, 100),
		pt(2020, time.January, 2, 90),
		pt(2020, time.December, 31, 110),
		pt(2021, time.December, 31, 121),
	}

	got := PeriodReturns(points, Annual)
	require.Len(t, got, 2)
	assert.Equal(t, PeriodReturn{Period: 2020, Return: got[0].Return}, got[0])
	assert.InDelta(t, 0.10, got[0].Return, 1e-12)
	assert.Equal(t, 2021, got[1].Period)
	assert.InDelta(t, 0.10, got[1].Return, 1e-12)
}

func TestPeriodReturns_Unsorted(t *testing.T) {
	sorted := []PricePoint{
		pt(2022, time.January, 31, 10),
		pt(2022, time.February, 28, 12),
		pt(2022, time.March, 31, 9),
	}
	shuffled := []PricePoint{sorted[2], sorted[0], sorted[1]}

	assert.Equal(t, PeriodReturns(sorted, Monthly), PeriodReturns(shuffled, Monthly))
}

func TestPeriodReturns_EdgeCases(t *testing.T) {
	assert.Empty(t, PeriodReturns(nil, Monthly))
	assert.Empty(t, PeriodReturnMap(nil, Annual))

	single := []PricePoint{pt(2023, time.May, 1, 10), pt(2023, time.May, 20, 11)}
	assert.Empty(t, PeriodReturns(single, Monthly))
}

func TestPeriodReturns_SkipsInvalidCloses(t *testing.T) {
	points := []PricePoint{
		pt(2022, time.January, 31, 10),
		pt(2022, time.February, 28, 0),
		pt(2022, time.March, 31, math.NaN()),
		pt(2022, time.April, 29, 12),
	}
	got := PeriodReturns(points, Monthly)
	require.Len(t, got, 1)
	assert.Equal(t, monthKey(2022, time.April), got[0].Period)
	assert.InDelta(t, 0.2, got[0].Return, 1e-12)
}

func TestPeriodReturnMap_AgreesWithList(t *testing.T) {
	var points []PricePoint
	price := 100.0
	for m := time.January; m <= time.December; m++ {
		for d := 1; d <= 28; d += 9 {
			price *= 1 + 0.003*float64(int(m)%3-1)
			points = append(points, pt(2023, m, d, price))
		}
	}

	list := PeriodReturns(points, Monthly)
	byKey := PeriodReturnMap(points, Monthly)
	require.Len(t, byKey, len(list))
	for _, r := range list {
		assert.Equal(t, r.Return, byKey[r.Period], "period %d", r.Period)
	}
	assert.Equal(t, ReturnValues(list)[0], list[0].Return)
}

func TestCleanSeries(t *testing.T) {
	in := []PricePoint{
		{Timestamp: 1, Close: 1},
		{Timestamp: 2, Close: -1},
		{Timestamp: 3, Close: math.Inf(1)},
		{Timestamp: 4, Close: 0},
		{Timestamp: 5, Close: 2},
	}
	assert.Equal(t, []PricePoint{{Timestamp: 1, Close: 1}, {Timestamp: 5, Close: 2}}, CleanSeries(in))
}
