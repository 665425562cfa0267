package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolioTracker/internal/analytics"
)

// loadedSeries is one series obtained for a ticker, live or from the cache.
type loadedSeries struct {
	Points []analytics.PricePoint
	Range  string
	Source Source
}

// load fetches (symbol, rng) from the provider and stores the result. When the
// provider fails or returns no valid closes, the exact cache entry is served
// instead; with nothing cached the provider error is returned.
func (e *Engine) load(ctx context.Context, symbol, rng string) (loadedSeries, error) {
	points, err := e.provider.FetchHistoricalSeries(ctx, symbol, rng)
	if err == nil {
		points = analytics.CleanSeries(points)
		if len(points) == 0 {
			err = fmt.Errorf("%w: %s %s has no valid closes", ErrNoPriceData, symbol, rng)
		}
	}
	if err == nil {
		if perr := e.cache.Put(ctx, symbol, rng, points, e.now()); perr != nil {
			e.logger.Warn().Err(perr).Str("symbol", symbol).Str("range", rng).Msg("series cache write failed")
		}
		return loadedSeries{Points: points, Range: rng, Source: SourceLive}, nil
	}

	cached, ok, cerr := e.cache.Get(ctx, symbol, rng)
	if cerr != nil {
		e.logger.Warn().Err(cerr).Str("symbol", symbol).Str("range", rng).Msg("series cache read failed")
	}
	if ok && len(cached.Points) > 0 {
		e.logger.Warn().Err(err).Str("symbol", symbol).Str("range", rng).
			Dur("age", e.now().Sub(cached.SavedAt)).Int("points", len(cached.Points)).
			Msg("serving cached series")
		return loadedSeries{Points: analytics.CleanSeries(cached.Points), Range: rng, Source: SourceCache}, nil
	}
	return loadedSeries{}, fmt.Errorf("fetch %s %s: %w", symbol, rng, err)
}

// loadLong walks the long-range candidates in order and stops at the first
// series with at least minSamples points. When none qualifies the longest
// series obtained is used; when every candidate fails the last error is returned.
func (e *Engine) loadLong(ctx context.Context, symbol string) (loadedSeries, error) {
	var best loadedSeries
	found := false
	var errs []error
	for _, rng := range e.opts.LongRanges {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		s, err := e.load(ctx, symbol, rng)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(s.Points) >= e.opts.MinSamples {
			return s, nil
		}
		e.logger.Debug().Str("symbol", symbol).Str("range", rng).Int("points", len(s.Points)).Int("min_samples", e.opts.MinSamples).Msg("range below sample minimum, degrading")
		if !found || len(s.Points) > len(best.Points) {
			best = s
			found = true
		}
	}
	if found {
		return best, nil
	}
	if len(errs) == 0 {
		return loadedSeries{}, fmt.Errorf("%w: no long range configured for %s", ErrFetchFailed, symbol)
	}
	return loadedSeries{}, errors.Join(errs...)
}

// Series returns the close series of (symbol, rng) with the cache fallback.
func (e *Engine) Series(ctx context.Context, symbol, rng string) ([]analytics.PricePoint, Source, error) {
	s, err := e.load(ctx, symbol, rng)
	if err != nil {
		return nil, "", err
	}
	return s.Points, s.Source, nil
}

// Distribution is the monthly return distribution of one ticker's short-range series.
type Distribution struct {
	Symbol      string                  `json:"symbol"`
	Range       string                  `json:"range"`
	Source      Source                  `json:"source"`
	Returns     []float64               `json:"returns"`
	Percentiles analytics.PercentileSet `json:"percentiles"`
	Histogram   analytics.Histogram     `json:"histogram"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// Distribution loads the short-range series of symbol and bins its monthly returns.
func (e *Engine) Distribution(ctx context.Context, symbol string) (*Distribution, error) {
	s, err := e.load(ctx, symbol, e.opts.ShortRange)
	if err != nil {
		return nil, err
	}
	returns := analytics.ReturnValues(analytics.PeriodReturns(s.Points, analytics.Monthly))
	return &Distribution{
		Symbol:      symbol,
		Range:       s.Range,
		Source:      s.Source,
		Returns:     returns,
		Percentiles: analytics.Percentiles(returns),
		Histogram:   analytics.BuildHistogram(returns, e.opts.HistogramBins),
		GeneratedAt: e.now(),
	}, nil
}
