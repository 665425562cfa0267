package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolioTracker/internal/analytics"
)

var (
	// ErrFetchFailed wraps transport and HTTP failures of the price provider.
	ErrFetchFailed = errors.New("price fetch failed")
	// ErrInvalidSymbol is returned when the provider has no result for a symbol.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrNoPriceData is returned when a result carries no usable price field.
	ErrNoPriceData = errors.New("no price data")
)

// HTTPError is a non-200 answer from one provider host.
type HTTPError struct {
	Host       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	preview := e.Body
	if len(preview) > 120 {
		preview = preview[:120]
	}
	return fmt.Sprintf("yahoo %s returned %d: %s", e.Host, e.StatusCode, preview)
}

// PriceProvider fetches daily close history and the latest close of a symbol.
type PriceProvider interface {
	FetchHistoricalSeries(ctx context.Context, symbol, rng string) ([]analytics.PricePoint, error)
	FetchLatestClose(ctx context.Context, symbol string) (float64, error)
}

// CachedSeries is a stored close series with the time it was saved.
type CachedSeries struct {
	Symbol  string                 `json:"symbol"`
	Range   string                 `json:"range"`
	Points  []analytics.PricePoint `json:"points"`
	SavedAt time.Time              `json:"saved_at"`
}

// SeriesCache keeps the last good series per (symbol, range). Entries never expire.
type SeriesCache interface {
	Get(ctx context.Context, symbol, rng string) (CachedSeries, bool, error)
	Put(ctx context.Context, symbol, rng string, points []analytics.PricePoint, savedAt time.Time) error
}

// chartResponse mirrors the Yahoo v8 chart response (trimmed to needed fields).
// Closes are pointers because Yahoo emits null for missing bars.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				Timezone           string   `json:"timezone"`
				PreviousClose      *float64 `json:"previousClose"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}
