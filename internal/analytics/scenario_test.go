package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioTracker/internal/portfolio"
)

func TestScenarioRate(t *testing.T) {
	set := PercentileSet{P10: -0.1, P25: 0, P50: 0.05, P75: 0.1, P90: 0.2}
	assert.Equal(t, 0.2, Optimistic.Rate(set))
	assert.Equal(t, 0.05, Average.Rate(set))
	assert.Equal(t, -0.1, Pessimistic.Rate(set))
	assert.Equal(t, 0.0, Scenario("other").Rate(set))
}

func TestProjectAt_OneYear(t *testing.T) {
	holdings := []portfolio.Holding{holding("AAPL", 10, 50)}
	percentiles := map[string]PercentileSet{"AAPL": {P10: -0.1, P50: 0.2, P90: 0.3}}

	assert.InDelta(t, 600.0, ProjectAt(holdings, percentiles, Average, 1), 1e-9)
	assert.InDelta(t, 650.0, ProjectAt(holdings, percentiles, Optimistic, 1), 1e-9)
	assert.InDelta(t, 450.0, ProjectAt(holdings, percentiles, Pessimistic, 1), 1e-9)
}

func TestProjectAt_FractionalAndMissing(t *testing.T) {
	holdings := []portfolio.Holding{
		holding("AAPL", 1, 100),
		holding("NEW", 2, 50),
	}
	percentiles := map[string]PercentileSet{"AAPL": {P90: 0.21}}

	// 100 * 1.21^0.5 + 100 held flat
	assert.InDelta(t, 210.0, ProjectAt(holdings, percentiles, Optimistic, 0.5), 1e-9)
	assert.InDelta(t, 200.0, ProjectAt(holdings, percentiles, Average, 0.5), 1e-9)
	assert.InDelta(t, 200.0, ProjectAt(holdings, nil, Optimistic, 1), 1e-9)
}

func TestProjectAt_ZeroHorizon(t *testing.T) {
	holdings := []portfolio.Holding{holding("A", 3, 10)}
	percentiles := map[string]PercentileSet{"A": {P10: -0.5, P90: 0.9}}
	for _, s := range Scenarios {
		assert.Equal(t, 30.0, ProjectAt(holdings, percentiles, s, 0))
	}
}

func TestProject(t *testing.T) {
	holdings := []portfolio.Holding{holding("A", 1, 100)}
	percentiles := map[string]PercentileSet{"A": {P10: -0.19, P50: 0, P90: 0.44}}

	got := Project(holdings, percentiles, DefaultHorizons)
	require.Len(t, got, len(DefaultHorizons))

	for i, p := range got {
		assert.Equal(t, DefaultHorizons[i], p.Years)
		require.Len(t, p.Values, 3)
		assert.InDelta(t, 100.0, p.Values[Average], 1e-9)
		assert.GreaterOrEqual(t, p.Values[Optimistic], p.Values[Average])
		assert.LessOrEqual(t, p.Values[Pessimistic], p.Values[Average])
	}

	half := got[1]
	assert.InDelta(t, 100*math.Sqrt(1.44), half.Values[Optimistic], 1e-9)
	assert.InDelta(t, 100*math.Sqrt(0.81), half.Values[Pessimistic], 1e-9)

	assert.Empty(t, Project(holdings, percentiles, nil))
}
