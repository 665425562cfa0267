package finance

import (
	"sync"
	"time"
)

// DefaultChartTTL bounds how long a rendered image is reused.
const DefaultChartTTL = 60 * time.Second

// RenderedChart is a PNG with the caption it was sent with.
type RenderedChart struct {
	Image   []byte
	Caption string
}

type chartCacheEntry struct {
	createdAt time.Time
	chart     RenderedChart
}

// ChartCache keeps rendered PNGs for a short time so repeated commands don't re-render.
type ChartCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]chartCacheEntry
	now     func() time.Time
}

func NewChartCache(ttl time.Duration) *ChartCache {
	if ttl <= 0 {
		ttl = DefaultChartTTL
	}
	return &ChartCache{ttl: ttl, entries: map[string]chartCacheEntry{}, now: time.Now}
}

// Get returns a copy of the entry under key unless it has expired.
func (c *ChartCache) Get(key string) (RenderedChart, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return RenderedChart{}, false
	}
	if !c.now().Before(entry.createdAt.Add(c.ttl)) {
		delete(c.entries, key)
		return RenderedChart{}, false
	}
	img := make([]byte, len(entry.chart.Image))
	copy(img, entry.chart.Image)
	return RenderedChart{Image: img, Caption: entry.chart.Caption}, true
}

func (c *ChartCache) Set(key string, chart RenderedChart) {
	c.mu.Lock()
	c.entries[key] = chartCacheEntry{createdAt: c.now(), chart: chart}
	c.mu.Unlock()
}
