package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioTracker/internal/analytics"
	"portfolioTracker/internal/finance"
	"portfolioTracker/internal/portfolio"
)

func testSnapshot() *finance.Snapshot {
	h, _ := portfolio.NewHolding("AAPL", 10, 50, 60, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	beta := 1.23
	set := analytics.PercentileSet{P10: -0.1, P25: 0.02, P50: 0.12, P75: 0.2, P90: 0.3}
	holdings := []portfolio.Holding{h}
	return &finance.Snapshot{
		Benchmark: "SPY",
		Holdings:  holdings,
		Summary:   portfolio.Summarize(holdings),
		Tickers: []finance.TickerAnalytics{
			{Symbol: "AAPL", Status: finance.TickerStatus{Symbol: "AAPL", State: finance.StateDone, Source: finance.SourceCache}, Percentiles: &set, AnnualReturns: make([]analytics.PeriodReturn, 9)},
			{Symbol: "SPY", Benchmark: true, Status: finance.TickerStatus{Symbol: "SPY", State: finance.StateFailed}},
		},
		Risk: analytics.RiskSnapshot{
			Ready: true, Periods: 36, Beta: &beta, BetaPeriods: 36, Variance: 0.0025, Volatility: 0.05,
			Contributions: []analytics.Contribution{{Symbol: "AAPL", Weight: 1, Contribution: 1}},
		},
		Projections: analytics.Project(holdings, map[string]analytics.PercentileSet{"AAPL": set}, []float64{1}),
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(testSnapshot())

	assert.Contains(t, p, "Portfolio value 600.00, cost 500.00, P&L 100.00 (20.00%)")
	assert.Contains(t, p, "- AAPL: weight 100.0%, p10 -10.0% p50 12.0% p90 30.0% over 9 years, done (cached)")
	assert.Contains(t, p, "- SPY (benchmark): weight 0.0%, failed")
	assert.Contains(t, p, "beta 1.23 vs SPY (36 months)")
	assert.Contains(t, p, "- AAPL 100.0%")
	assert.Contains(t, p, "- 1.00y: optimistic 780.00 average 672.00 pessimistic 540.00")
}

func TestBuildPrompt_RiskNotReady(t *testing.T) {
	snap := testSnapshot()
	snap.Risk = analytics.NotReady()
	assert.Contains(t, BuildPrompt(snap), "Risk: not enough overlapping history")
}

func TestDescribe(t *testing.T) {
	var body string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1700000000,"model":"gpt-4o-mini",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  - AAPL carries all the risk.  "}}]}`))
	}))
	defer srv.Close()

	c := NewCommentator("test-key", "", time.Second, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	out, err := c.Describe(context.Background(), testSnapshot())
	require.NoError(t, err)

	assert.Equal(t, "- AAPL carries all the risk.", out)
	assert.True(t, strings.HasSuffix(path, "/chat/completions"))
	assert.Contains(t, body, `"model":"gpt-4o-mini"`)
	assert.Contains(t, body, "beta 1.23")
}

func TestDescribe_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	c := NewCommentator("k", "gpt-4", time.Second, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := c.Describe(context.Background(), testSnapshot())
	assert.Error(t, err)

	_, err = c.Describe(context.Background(), &finance.Snapshot{})
	assert.ErrorIs(t, err, ErrEmptySnapshot)
	_, err = c.Describe(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptySnapshot)
}
