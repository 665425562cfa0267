package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"portfolioTracker/internal/analytics"
	"portfolioTracker/internal/finance"
)

// SeriesCache persists the last good close series per (symbol, range) in SQLite.
type SeriesCache struct{ db DB }

func NewSeriesCache(db DB) *SeriesCache { return &SeriesCache{db: db} }

func (c *SeriesCache) Get(ctx context.Context, symbol, rng string) (finance.CachedSeries, bool, error) {
	symbol, rng = cacheKey(symbol, rng)
	var blob []byte
	var saved int64
	err := c.db.QueryRowContext(ctx, `SELECT points,saved_at FROM series_cache WHERE symbol=? AND rng=?`, symbol, rng).
		Scan(&blob, &saved)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.CachedSeries{}, false, nil
	}
	if err != nil {
		return finance.CachedSeries{}, false, fmt.Errorf("read series cache %s %s: %w", symbol, rng, err)
	}

	var points []analytics.PricePoint
	if err := json.Unmarshal(blob, &points); err != nil {
		return finance.CachedSeries{}, false, fmt.Errorf("decode series cache %s %s: %w", symbol, rng, err)
	}
	return finance.CachedSeries{
		Symbol:  symbol,
		Range:   rng,
		Points:  points,
		SavedAt: time.UnixMilli(saved).UTC(),
	}, true, nil
}

// Put replaces the entry of (symbol, rng).
func (c *SeriesCache) Put(ctx context.Context, symbol, rng string, points []analytics.PricePoint, savedAt time.Time) error {
	symbol, rng = cacheKey(symbol, rng)
	blob, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("encode series %s %s: %w", symbol, rng, err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO series_cache(symbol,rng,points,saved_at) VALUES(?,?,?,?)
		 ON CONFLICT(symbol,rng) DO UPDATE SET points=excluded.points, saved_at=excluded.saved_at`,
		symbol, rng, blob, savedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("write series cache %s %s: %w", symbol, rng, err)
	}
	return nil
}

func cacheKey(symbol, rng string) (string, string) {
	return strings.ToUpper(strings.TrimSpace(symbol)), strings.ToLower(strings.TrimSpace(rng))
}

var _ finance.SeriesCache = (*SeriesCache)(nil)
