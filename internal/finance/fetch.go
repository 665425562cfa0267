package finance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// chart fetches the raw v8 chart body for symbol. Hosts are tried in order; a
// host is skipped on transport errors, non-200 answers and non-JSON bodies. An
// unknown symbol (404 with a chart error) stops the walk.
func (c *YahooClient) chart(ctx context.Context, symbol, rng string) ([]byte, error) {
	var lastErr error
	for _, host := range c.hosts {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		body, err := c.get(ctx, host, symbol, rng)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrInvalidSymbol) {
			return nil, err
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn().Err(err).Str("host", host).Str("symbol", symbol).Str("range", rng).Msg("yahoo host failed")
	}
	return nil, fmt.Errorf("%w: %s %s: %w", ErrFetchFailed, symbol, rng, lastErr)
}

func (c *YahooClient) get(ctx context.Context, host, symbol, rng string) ([]byte, error) {
	q := url.Values{}
	q.Set("range", rng)
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", strings.TrimRight(host, "/"), url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", symbol))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read yahoo response: %w", err)
	}
	c.logger.Debug().Str("host", host).Str("symbol", symbol).Str("range", rng).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("yahoo chart call")

	if resp.StatusCode == http.StatusNotFound {
		if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() {
			return nil, fmt.Errorf("%w: %s: %s", ErrInvalidSymbol, symbol, desc.String())
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{Host: host, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !gjson.ValidBytes(body) {
		preview := string(body)
		if len(preview) > 120 {
			preview = preview[:120]
		}
		return nil, fmt.Errorf("yahoo returned non-json body: %s", preview)
	}
	return body, nil
}
