package finance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioTracker/internal/analytics"
	"portfolioTracker/internal/portfolio"
)

var errUpstream = errors.New("upstream down")

type fakeProvider struct {
	mu     sync.Mutex
	series map[string][]analytics.PricePoint
	errs   map[string]error
	latest map[string]float64
	calls  []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		series: map[string][]analytics.PricePoint{},
		errs:   map[string]error{},
		latest: map[string]float64{},
	}
}

func (f *fakeProvider) set(symbol, rng string, points []analytics.PricePoint) {
	f.series[symbol+"|"+rng] = points
}

func (f *fakeProvider) fail(symbol, rng string) {
	f.errs[symbol+"|"+rng] = errUpstream
}

func (f *fakeProvider) FetchHistoricalSeries(_ context.Context, symbol, rng string) ([]analytics.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := symbol + "|" + rng
	f.calls = append(f.calls, key)
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	points, ok := f.series[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSymbol, symbol)
	}
	return points, nil
}

func (f *fakeProvider) FetchLatestClose(_ context.Context, symbol string) (float64, error) {
	if v, ok := f.latest[symbol]; ok {
		return v, nil
	}
	return 0, ErrNoPriceData
}

type failingCache struct{ *MemorySeriesCache }

func (c *failingCache) Put(context.Context, string, string, []analytics.PricePoint, time.Time) error {
	return errors.New("disk full")
}

// dailySeries returns n daily closes ending 2024-06-28 with a drift and a wave
// whose phase differs per seed.
func dailySeries(n int, drift float64, seed float64) []analytics.PricePoint {
	end := time.Date(2024, time.June, 28, 20, 0, 0, 0, time.UTC)
	out := make([]analytics.PricePoint, n)
	for i := 0; i < n; i++ {
		day := end.AddDate(0, 0, i-n+1)
		price := 100 * math.Exp(drift*float64(i)) * (1 + 0.05*math.Sin(float64(i)/15+seed))
		out[i] = analytics.PricePoint{Timestamp: day.UnixMilli(), Close: price}
	}
	return out
}

func seed(p *fakeProvider, symbol string, drift, phase float64) {
	p.set(symbol, "1y", dailySeries(365, drift, phase))
	p.set(symbol, "10y", dailySeries(3650, drift, phase))
}

func testHoldings() []portfolio.Holding {
	now := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	a, _ := portfolio.NewHolding("AAPL", 10, 50, 60, now)
	m, _ := portfolio.NewHolding("MSFT", 2, 300, 400, now.Add(time.Second))
	return []portfolio.Holding{a, m}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnStatus(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) forSymbol(sym string) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Symbol == sym {
			out = append(out, e)
		}
	}
	return out
}

func TestEngineRefresh_FullPipeline(t *testing.T) {
	p := newFakeProvider()
	seed(p, "AAPL", 0.0004, 0)
	seed(p, "MSFT", 0.0003, 1.3)
	seed(p, "SPY", 0.0002, 0.4)

	e := NewEngine(p, nil, DefaultEngineOptions(), nil)
	rec := &recorder{}
	snap := e.Refresh(context.Background(), testHoldings(), rec)

	require.Len(t, snap.Tickers, 3)
	assert.Equal(t, []string{"AAPL", "MSFT", "SPY"}, []string{snap.Tickers[0].Symbol, snap.Tickers[1].Symbol, snap.Tickers[2].Symbol})
	assert.True(t, snap.Tickers[2].Benchmark)
	assert.Equal(t, "SPY", snap.Benchmark)

	for _, ta := range snap.Tickers {
		assert.Equal(t, ta.Symbol, ta.Status.Symbol)
		assert.Equal(t, StateDone, ta.Status.State, ta.Symbol)
		assert.Equal(t, SourceLive, ta.Status.Source)
		assert.Equal(t, "10y", ta.LongRange)
		assert.Equal(t, "1y", ta.ShortRange)
		assert.NotEmpty(t, ta.MonthlyReturns)
		assert.Len(t, ta.Histogram.Bins, analytics.DefaultHistogramBins)
		require.NotNil(t, ta.Percentiles)
		assert.LessOrEqual(t, ta.Percentiles.P10, ta.Percentiles.P90)
		require.NotNil(t, ta.Performance)
		assert.Equal(t, ta.LongPoints, ta.Performance.Days)
	}
	assert.Len(t, snap.Percentiles, 3)

	assert.True(t, snap.Risk.Ready)
	assert.Equal(t, len(snap.Aligned.Periods), snap.Risk.Periods)
	assert.Len(t, snap.Aligned.Returns, 2)
	require.NotNil(t, snap.Risk.Beta)
	sum := 0.0
	for _, c := range snap.Risk.Contributions {
		sum += c.Contribution
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	require.Len(t, snap.Projections, 4)
	assert.Equal(t, 0.25, snap.Projections[0].Years)
	assert.Equal(t, "1400", snap.Summary.TotalValue.String())

	// queued, loading, terminal per ticker, in that order
	for _, sym := range []string{"AAPL", "MSFT", "SPY"} {
		evs := rec.forSymbol(sym)
		require.Len(t, evs, 3, sym)
		assert.Equal(t, StateQueued, evs[0].To)
		assert.Equal(t, LoadState(""), evs[0].From)
		assert.Equal(t, StateQueued, evs[1].From)
		assert.Equal(t, StateLoading, evs[1].To)
		assert.Equal(t, StateLoading, evs[2].From)
		assert.Equal(t, StateDone, evs[2].To)
		assert.Equal(t, "10y", evs[2].Range)
	}
}

func TestEngineRefresh_RangeDegradation(t *testing.T) {
	p := newFakeProvider()
	p.set("AAPL", "1y", dailySeries(365, 0.0004, 0))
	p.fail("AAPL", "10y")
	p.set("AAPL", "5y", dailySeries(30, 0.0004, 0))
	p.set("AAPL", "2y", dailySeries(500, 0.0004, 0))
	seed(p, "SPY", 0.0002, 0.4)

	e := NewEngine(p, nil, DefaultEngineOptions(), nil)
	snap := e.Refresh(context.Background(), testHoldings()[:1], nil)

	ta, ok := snap.Ticker("AAPL")
	require.True(t, ok)
	assert.Equal(t, StateDone, ta.Status.State)
	assert.Equal(t, "2y", ta.LongRange)
	assert.Equal(t, 500, ta.LongPoints)
	assert.Equal(t, []string{"AAPL|1y", "AAPL|10y", "AAPL|5y", "AAPL|2y"}, p.calls[:4])
}

func TestEngineRefresh_StopsAtFirstSufficientRange(t *testing.T) {
	p := newFakeProvider()
	seed(p, "AAPL", 0.0004, 0)
	p.set("AAPL", "5y", dailySeries(1000, 0.0004, 0))
	seed(p, "SPY", 0.0002, 0.4)

	e := NewEngine(p, nil, DefaultEngineOptions(), nil)
	e.Refresh(context.Background(), testHoldings()[:1], nil)

	assert.NotContains(t, p.calls, "AAPL|5y")
	assert.NotContains(t, p.calls, "AAPL|2y")
}

func TestEngineRefresh_LongestShortSeriesWins(t *testing.T) {
	p := newFakeProvider()
	p.set("AAPL", "1y", dailySeries(365, 0.0004, 0))
	p.set("AAPL", "10y", dailySeries(10, 0.0004, 0))
	p.set("AAPL", "5y", dailySeries(40, 0.0004, 0))
	p.set("AAPL", "2y", dailySeries(20, 0.0004, 0))

	e := NewEngine(p, nil, DefaultEngineOptions(), nil)
	snap := e.Refresh(context.Background(), testHoldings()[:1], nil)

	ta, _ := snap.Ticker("AAPL")
	assert.Equal(t, "5y", ta.LongRange)
	assert.Equal(t, 40, ta.LongPoints)
}

func TestEngineRefresh_FailedTickerDoesNotAbortBatch(t *testing.T) {
	p := newFakeProvider()
	seed(p, "MSFT", 0.0003, 1.3)
	seed(p, "SPY", 0.0002, 0.4)
	for _, rng := range []string{"1y", "10y", "5y", "2y"} {
		p.fail("AAPL", rng)
	}

	e := NewEngine(p, nil, DefaultEngineOptions(), nil)
	rec := &recorder{}
	snap := e.Refresh(context.Background(), testHoldings(), rec)

	aapl, _ := snap.Ticker("AAPL")
	assert.Equal(t, StateFailed, aapl.Status.State)
	assert.Contains(t, aapl.Status.Error, "upstream down")
	assert.Nil(t, aapl.Percentiles)
	assert.Nil(t, aapl.Performance)
	_, ok := snap.Percentiles["AAPL"]
	assert.False(t, ok)
	assert.NotContains(t, snap.Aligned.Returns, "AAPL")

	msft, _ := snap.Ticker("MSFT")
	assert.Equal(t, StateDone, msft.Status.State)
	assert.True(t, snap.Risk.Ready)

	last := rec.forSymbol("AAPL")
	require.NotEmpty(t, last)
	assert.ErrorIs(t, last[len(last)-1].Err, errUpstream)
}

func TestEngineRefresh_CacheFallback(t *testing.T) {
	p := newFakeProvider()
	seed(p, "AAPL", 0.0004, 0)
	seed(p, "SPY", 0.0002, 0.4)

	cache := NewMemorySeriesCache()
	e := NewEngine(p, cache, DefaultEngineOptions(), nil)
	e.Refresh(context.Background(), testHoldings()[:1], nil)

	stored, ok, err := cache.Get(context.Background(), "AAPL", "10y")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, stored.Points, 3650)

	p.fail("AAPL", "10y")
	p.fail("AAPL", "1y")
	rec := &recorder{}
	snap := e.Refresh(context.Background(), testHoldings()[:1], rec)

	ta, _ := snap.Ticker("AAPL")
	assert.Equal(t, StateDone, ta.Status.State)
	assert.Equal(t, SourceCache, ta.Status.Source)
	assert.Equal(t, "10y", ta.LongRange)
	assert.NotEmpty(t, ta.MonthlyReturns)
}

func TestEngineRefresh_CacheWriteFailureIsSwallowed(t *testing.T) {
	p := newFakeProvider()
	seed(p, "AAPL", 0.0004, 0)
	seed(p, "SPY", 0.0002, 0.4)

	e := NewEngine(p, &failingCache{NewMemorySeriesCache()}, DefaultEngineOptions(), nil)
	snap := e.Refresh(context.Background(), testHoldings()[:1], nil)

	ta, _ := snap.Ticker("AAPL")
	assert.Equal(t, StateDone, ta.Status.State)
}

func TestEngineRefresh_EmptyLiveSeriesServedFromCache(t *testing.T) {
	p := newFakeProvider()
	p.set("AAPL", "1y", []analytics.PricePoint{{Timestamp: 1, Close: math.NaN()}, {Timestamp: 2, Close: 0}})
	for _, rng := range []string{"10y", "5y", "2y"} {
		p.set("AAPL", rng, []analytics.PricePoint{})
	}

	cache := NewMemorySeriesCache()
	require.NoError(t, cache.Put(context.Background(), "AAPL", "1y", dailySeries(300, 0.0004, 0), time.Now()))

	e := NewEngine(p, cache, DefaultEngineOptions(), nil)
	snap := e.Refresh(context.Background(), testHoldings()[:1], nil)

	ta, _ := snap.Ticker("AAPL")
	assert.Equal(t, StateDone, ta.Status.State)
	assert.Equal(t, SourceCache, ta.Status.Source)
	assert.Equal(t, "1y", ta.Status.Range)
	assert.Equal(t, 300, ta.Status.Points)
	assert.NotEmpty(t, ta.MonthlyReturns)

	stored, ok, err := cache.Get(context.Background(), "AAPL", "1y")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, stored.Points, 300)
}

func TestEngineRefresh_EmptyLiveSeriesWithoutCacheFails(t *testing.T) {
	p := newFakeProvider()
	for _, rng := range []string{"1y", "10y", "5y", "2y"} {
		p.set("AAPL", rng, []analytics.PricePoint{{Timestamp: 1, Close: -5}})
	}

	e := NewEngine(p, nil, DefaultEngineOptions(), nil)
	snap := e.Refresh(context.Background(), testHoldings()[:1], nil)

	ta, _ := snap.Ticker("AAPL")
	assert.Equal(t, StateFailed, ta.Status.State)
	assert.Contains(t, ta.Status.Error, "no price data")
}

func TestEngineRefresh_NoData(t *testing.T) {
	p := newFakeProvider()
	// a single valid close per range loads but yields no return
	for _, rng := range []string{"1y", "10y", "5y", "2y"} {
		p.set("AAPL", rng, []analytics.PricePoint{{Timestamp: 1, Close: -5}, {Timestamp: 2, Close: 42}})
	}

	e := NewEngine(p, nil, DefaultEngineOptions(), nil)
	snap := e.Refresh(context.Background(), testHoldings()[:1], nil)

	ta, _ := snap.Ticker("AAPL")
	assert.Equal(t, StateNoData, ta.Status.State)
	assert.False(t, snap.Risk.Ready)
	assert.Nil(t, snap.Risk.Beta)
	assert.Empty(t, snap.Risk.Contributions)

	// without percentiles every scenario keeps today's value
	for _, proj := range snap.Projections {
		for _, s := range analytics.Scenarios {
			assert.InDelta(t, 600.0, proj.Values[s], 1e-9)
		}
	}
}

func TestEngineRefresh_BenchmarkHeld(t *testing.T) {
	p := newFakeProvider()
	seed(p, "SPY", 0.0002, 0.4)

	now := time.Now()
	spy, err := portfolio.NewHolding("spy", 1, 400, 500, now)
	require.NoError(t, err)

	e := NewEngine(p, nil, DefaultEngineOptions(), nil)
	snap := e.Refresh(context.Background(), []portfolio.Holding{spy}, nil)

	require.Len(t, snap.Tickers, 1)
	assert.True(t, snap.Tickers[0].Benchmark)
	require.NotNil(t, snap.Risk.Beta)
	assert.InDelta(t, 1.0, *snap.Risk.Beta, 1e-9)
}

func TestEngineRefresh_SnapshotIsolatedFromInput(t *testing.T) {
	p := newFakeProvider()
	seed(p, "AAPL", 0.0004, 0)
	seed(p, "SPY", 0.0002, 0.4)

	holdings := testHoldings()[:1]
	e := NewEngine(p, nil, DefaultEngineOptions(), nil)
	snap := e.Refresh(context.Background(), holdings, nil)

	holdings[0].CurrentPrice = 1
	assert.Equal(t, 60.0, snap.Holdings[0].CurrentPrice)
}

func TestEngineRefresh_EmptyPortfolio(t *testing.T) {
	p := newFakeProvider()
	seed(p, "SPY", 0.0002, 0.4)

	e := NewEngine(p, nil, DefaultEngineOptions(), nil)
	snap := e.Refresh(context.Background(), nil, StatusSinkFunc(func(Event) {}))

	require.Len(t, snap.Tickers, 1)
	assert.False(t, snap.Risk.Ready)
	assert.Empty(t, snap.Aligned.Periods)
	for _, proj := range snap.Projections {
		assert.Equal(t, 0.0, proj.Values[analytics.Average])
	}
}

func TestEngineDistribution(t *testing.T) {
	p := newFakeProvider()
	seed(p, "AAPL", 0.0004, 0)

	opts := DefaultEngineOptions()
	opts.HistogramBins = 8
	e := NewEngine(p, nil, opts, nil)

	d, err := e.Distribution(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "1y", d.Range)
	assert.Len(t, d.Histogram.Bins, 8)
	total := 0
	for _, b := range d.Histogram.Bins {
		total += b.Count
	}
	assert.Equal(t, len(d.Returns), total)

	_, err = e.Distribution(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestEngineOptions_Defaults(t *testing.T) {
	e := NewEngine(newFakeProvider(), nil, EngineOptions{Benchmark: " qqq ", LongRanges: []string{"5Y", "", "5y", "2y"}}, nil)
	opts := e.opts
	assert.Equal(t, "QQQ", opts.Benchmark)
	assert.Equal(t, []string{"5y", "2y"}, opts.LongRanges)
	assert.Equal(t, 60, opts.MinSamples)
	assert.Equal(t, "1y", opts.ShortRange)
	assert.Equal(t, analytics.DefaultHorizons, opts.Horizons)
}
