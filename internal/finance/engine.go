package finance

import (
	"context"
	"strings"
	"sync"
	"time"

	"portfolioTracker/internal/analytics"
	"portfolioTracker/internal/logging"
	"portfolioTracker/internal/portfolio"
)

// EngineOptions are the fixed inputs of a refresh.
type EngineOptions struct {
	Benchmark     string
	ShortRange    string
	LongRanges    []string
	MinSamples    int
	Horizons      []float64
	HistogramBins int
}

func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Benchmark:     "SPY",
		ShortRange:    "1y",
		LongRanges:    []string{"10y", "5y", "2y"},
		MinSamples:    60,
		Horizons:      analytics.DefaultHorizons,
		HistogramBins: analytics.DefaultHistogramBins,
	}
}

func (o EngineOptions) withDefaults() EngineOptions {
	d := DefaultEngineOptions()
	o.Benchmark = strings.ToUpper(strings.TrimSpace(o.Benchmark))
	if o.Benchmark == "" {
		o.Benchmark = d.Benchmark
	}
	if o.ShortRange == "" {
		o.ShortRange = d.ShortRange
	}
	o.LongRanges = Candidates(o.LongRanges)
	if len(o.LongRanges) == 0 {
		o.LongRanges = d.LongRanges
	}
	if o.MinSamples <= 0 {
		o.MinSamples = d.MinSamples
	}
	if len(o.Horizons) == 0 {
		o.Horizons = d.Horizons
	}
	if o.HistogramBins <= 0 {
		o.HistogramBins = d.HistogramBins
	}
	return o
}

// TickerAnalytics is everything derived for one ticker in a refresh.
type TickerAnalytics struct {
	Symbol         string                   `json:"symbol"`
	Benchmark      bool                     `json:"benchmark,omitempty"`
	Status         TickerStatus             `json:"status"`
	ShortRange     string                   `json:"short_range,omitempty"`
	ShortPoints    int                      `json:"short_points"`
	LongRange      string                   `json:"long_range,omitempty"`
	LongPoints     int                      `json:"long_points"`
	MonthlyReturns []float64                `json:"monthly_returns"`
	AnnualReturns  []analytics.PeriodReturn `json:"annual_returns"`
	Histogram      analytics.Histogram      `json:"histogram"`
	Percentiles    *analytics.PercentileSet `json:"percentiles,omitempty"`
	Performance    *analytics.Performance   `json:"performance,omitempty"`
}

// Snapshot is the immutable result of one refresh.
type Snapshot struct {
	GeneratedAt time.Time                          `json:"generated_at"`
	Benchmark   string                             `json:"benchmark"`
	Holdings    []portfolio.Holding                `json:"holdings"`
	Summary     portfolio.Summary                  `json:"summary"`
	Tickers     []TickerAnalytics                  `json:"tickers"`
	Percentiles map[string]analytics.PercentileSet `json:"percentiles"`
	Aligned     analytics.AlignedMatrix            `json:"aligned"`
	Risk        analytics.RiskSnapshot             `json:"risk"`
	Projections []analytics.Projection             `json:"projections"`
}

// Ticker returns the analytics of symbol, if it was part of the refresh.
func (s *Snapshot) Ticker(symbol string) (TickerAnalytics, bool) {
	for _, t := range s.Tickers {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return TickerAnalytics{}, false
}

// Engine runs the analytics pipeline over fetched price series.
type Engine struct {
	provider PriceProvider
	cache    SeriesCache
	opts     EngineOptions
	logger   *logging.Logger
	now      func() time.Time

	mu sync.Mutex
}

// NewEngine wires a provider and a cache. A nil cache uses a MemorySeriesCache.
func NewEngine(provider PriceProvider, cache SeriesCache, opts EngineOptions, logger *logging.Logger) *Engine {
	if cache == nil {
		cache = NewMemorySeriesCache()
	}
	if logger == nil {
		logger = logging.NewSilent()
	}
	return &Engine{
		provider: provider,
		cache:    cache,
		opts:     opts.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// LatestClose proxies the provider's latest close.
func (e *Engine) LatestClose(ctx context.Context, symbol string) (float64, error) {
	return e.provider.FetchLatestClose(ctx, symbol)
}

// Refresh loads every held ticker and the benchmark sequentially and computes
// a fresh snapshot. It never fails: a ticker that cannot be loaded ends in the
// failed state and is absent from the derived maps. Concurrent calls are
// serialized.
func (e *Engine) Refresh(ctx context.Context, holdings []portfolio.Holding, sink StatusSink) *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	held := append([]portfolio.Holding(nil), holdings...)
	symbols := portfolio.Symbols(held)
	queue := symbols
	if !contains(symbols, e.opts.Benchmark) {
		queue = append(append([]string(nil), symbols...), e.opts.Benchmark)
	}

	tr := newTracker(queue, sink, e.now)
	tickers := make([]TickerAnalytics, 0, len(queue))
	monthly := make(map[string]map[int]float64, len(queue))
	percentiles := make(map[string]analytics.PercentileSet, len(queue))

	for _, sym := range queue {
		ta, m := e.analyzeTicker(ctx, tr, sym)
		ta.Benchmark = sym == e.opts.Benchmark
		tickers = append(tickers, ta)
		if len(m) > 0 {
			monthly[sym] = m
		}
		if ta.Percentiles != nil {
			percentiles[sym] = *ta.Percentiles
		}
	}

	for i, st := range tr.statuses() {
		tickers[i].Status = st
	}

	assets := make(map[string]map[int]float64, len(symbols))
	for _, sym := range symbols {
		if m, ok := monthly[sym]; ok {
			assets[sym] = m
		}
	}

	snap := &Snapshot{
		GeneratedAt: e.now(),
		Benchmark:   e.opts.Benchmark,
		Holdings:    held,
		Summary:     portfolio.Summarize(held),
		Tickers:     tickers,
		Percentiles: percentiles,
		Aligned:     analytics.Align(assets),
		Risk:        analytics.Risk(held, assets, monthly[e.opts.Benchmark]),
		Projections: analytics.Project(held, percentiles, e.opts.Horizons),
	}

	e.logger.Info().Int("holdings", len(held)).Int("tickers", len(queue)).
		Int("aligned_periods", len(snap.Aligned.Periods)).Bool("risk_ready", snap.Risk.Ready).
		Dur("elapsed", e.now().Sub(start)).Msg("analytics refresh complete")
	return snap
}

// analyzeTicker drives one ticker through the state machine and returns its
// analytics plus the monthly return map of its long series.
func (e *Engine) analyzeTicker(ctx context.Context, tr *tracker, sym string) (TickerAnalytics, map[int]float64) {
	ta := TickerAnalytics{
		Symbol:         sym,
		MonthlyReturns: []float64{},
		AnnualReturns:  []analytics.PeriodReturn{},
		Histogram:      analytics.BuildHistogram(nil, e.opts.HistogramBins),
	}
	e.setState(tr, Event{Symbol: sym, To: StateLoading})

	short, shortErr := e.load(ctx, sym, e.opts.ShortRange)
	long, longErr := e.loadLong(ctx, sym)

	if shortErr != nil && longErr != nil {
		e.logger.Warn().Err(longErr).Str("symbol", sym).Msg("ticker failed")
		e.setState(tr, Event{Symbol: sym, To: StateFailed, Err: longErr})
		return ta, nil
	}

	var m map[int]float64
	if shortErr == nil {
		ta.ShortRange = short.Range
		ta.ShortPoints = len(short.Points)
		ta.MonthlyReturns = analytics.ReturnValues(analytics.PeriodReturns(short.Points, analytics.Monthly))
		ta.Histogram = analytics.BuildHistogram(ta.MonthlyReturns, e.opts.HistogramBins)
	} else {
		e.logger.Warn().Err(shortErr).Str("symbol", sym).Str("range", e.opts.ShortRange).Msg("short range unavailable")
	}
	if longErr == nil {
		ta.LongRange = long.Range
		ta.LongPoints = len(long.Points)
		ta.AnnualReturns = analytics.PeriodReturns(long.Points, analytics.Annual)
		if len(ta.AnnualReturns) > 0 {
			set := analytics.Percentiles(analytics.ReturnValues(ta.AnnualReturns))
			ta.Percentiles = &set
		}
		if perf, ok := analytics.SeriesPerformance(long.Points); ok {
			ta.Performance = &perf
		}
		m = analytics.PeriodReturnMap(long.Points, analytics.Monthly)
	} else {
		e.logger.Warn().Err(longErr).Str("symbol", sym).Msg("long range unavailable")
	}

	ev := Event{Symbol: sym, To: StateDone}
	switch {
	case longErr == nil:
		ev.Source, ev.Range, ev.Points = long.Source, long.Range, len(long.Points)
	default:
		ev.Source, ev.Range, ev.Points = short.Source, short.Range, len(short.Points)
	}
	if len(ta.MonthlyReturns) == 0 && len(ta.AnnualReturns) == 0 && len(m) == 0 {
		ev.To = StateNoData
	}
	e.setState(tr, ev)
	return ta, m
}

func (e *Engine) setState(tr *tracker, ev Event) {
	if err := tr.transition(ev); err != nil {
		e.logger.Error().Err(err).Str("symbol", ev.Symbol).Msg("load state transition rejected")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
