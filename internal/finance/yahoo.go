package finance

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"portfolioTracker/internal/analytics"
	"portfolioTracker/internal/logging"
)

const (
	DefaultTimeout   = 20 * time.Second
	DefaultRateLimit = 2 // requests per second
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"
)

// DefaultHosts are tried in order for every request.
var DefaultHosts = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}

// YahooClient reads the public v8 chart endpoint.
type YahooClient struct {
	hosts      []string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *logging.Logger
}

// YahooOption configures the client
type YahooOption func(*YahooClient)

// WithHosts replaces the base URLs tried for each request.
func WithHosts(hosts ...string) YahooOption {
	return func(c *YahooClient) {
		if len(hosts) > 0 {
			c.hosts = hosts
		}
	}
}

// WithHTTPClient sets the HTTP client
func WithHTTPClient(hc *http.Client) YahooOption {
	return func(c *YahooClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) YahooOption {
	return func(c *YahooClient) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) YahooOption {
	return func(c *YahooClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) YahooOption {
	return func(c *YahooClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) YahooOption {
	return func(c *YahooClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewYahooClient creates a client with query1/query2 failover.
func NewYahooClient(opts ...YahooOption) *YahooClient {
	c := &YahooClient{
		hosts:      DefaultHosts,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		userAgent:  DefaultUserAgent,
		logger:     logging.NewSilent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchHistoricalSeries returns the cleaned daily closes of symbol over a Yahoo
// range such as "1y" or "10y", oldest first.
func (c *YahooClient) FetchHistoricalSeries(ctx context.Context, symbol, rng string) ([]analytics.PricePoint, error) {
	sym, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	body, err := c.chart(ctx, sym, rng)
	if err != nil {
		return nil, err
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse yahoo json for %s: %v", ErrFetchFailed, sym, err)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSymbol, sym)
	}
	r := resp.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: %s has no quote indicator", ErrNoPriceData, sym)
	}

	points := cleanChart(r.Timestamp, r.Indicators.Quote[0].Close)
	c.logger.Debug().Str("symbol", sym).Str("range", rng).Int("bars", len(r.Timestamp)).Int("points", len(points)).Msg("yahoo series parsed")
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s has no valid closes", ErrNoPriceData, sym)
	}
	return points, nil
}

// FetchLatestClose returns meta.previousClose, falling back to meta.regularMarketPrice.
func (c *YahooClient) FetchLatestClose(ctx context.Context, symbol string) (float64, error) {
	sym, err := normalizeSymbol(symbol)
	if err != nil {
		return 0, err
	}
	body, err := c.chart(ctx, sym, "5d")
	if err != nil {
		return 0, err
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidSymbol, sym)
	}
	for _, path := range []string{"meta.previousClose", "meta.regularMarketPrice"} {
		v := result.Get(path)
		if v.Type == gjson.Number && v.Float() > 0 {
			return v.Float(), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoPriceData, sym)
}

func normalizeSymbol(symbol string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" || strings.ContainsAny(sym, "/?#& ") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return sym, nil
}

var _ PriceProvider = (*YahooClient)(nil)
