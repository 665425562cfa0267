package finance

import (
	"context"
	"strings"
	"sync"
	"time"

	"portfolioTracker/internal/analytics"
)

// MemorySeriesCache is a process-local SeriesCache. The SQLite cache in
// internal/storage is used in production; this one backs tests and runs
// without a database.
type MemorySeriesCache struct {
	mu      sync.Mutex
	entries map[string]CachedSeries
}

func NewMemorySeriesCache() *MemorySeriesCache {
	return &MemorySeriesCache{entries: map[string]CachedSeries{}}
}

func seriesKey(symbol, rng string) string {
	return strings.ToUpper(strings.TrimSpace(symbol)) + "|" + strings.ToLower(strings.TrimSpace(rng))
}

func (c *MemorySeriesCache) Get(_ context.Context, symbol, rng string) (CachedSeries, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[seriesKey(symbol, rng)]
	if !ok {
		return CachedSeries{}, false, nil
	}
	entry.Points = append([]analytics.PricePoint(nil), entry.Points...)
	return entry, true, nil
}

func (c *MemorySeriesCache) Put(_ context.Context, symbol, rng string, points []analytics.PricePoint, savedAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[seriesKey(symbol, rng)] = CachedSeries{
		Symbol:  strings.ToUpper(strings.TrimSpace(symbol)),
		Range:   strings.ToLower(strings.TrimSpace(rng)),
		Points:  append([]analytics.PricePoint(nil), points...),
		SavedAt: savedAt,
	}
	return nil
}

var _ SeriesCache = (*MemorySeriesCache)(nil)
