package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"portfolioTracker/internal/analytics"
	"portfolioTracker/internal/finance"
)

const DefaultModel = "gpt-4o-mini"

// ErrEmptySnapshot is returned when there is nothing to comment on.
var ErrEmptySnapshot = errors.New("snapshot has no holdings")

const systemPrompt = `You are a portfolio analyst writing for a Telegram chat. You receive a portfolio snapshot with historical return percentiles, risk figures and scenario projections.

Write at most 6 short bullet points:
- where the risk is concentrated (use the contribution figures)
- how the portfolio moves with the market (beta), if available
- what the optimistic, average and pessimistic one-year projections imply
- one data caveat (short histories, cached or failed tickers)

Guidelines:
- Plain text, no tables, no links
- Quote numbers from the snapshot, never invent figures
- No buy or sell advice`

// Commentator turns an analytics snapshot into a short narrative.
type Commentator struct {
	cli     oa.Client
	model   string
	timeout time.Duration
}

func NewCommentator(apiKey, model string, timeout time.Duration, opts ...option.RequestOption) *Commentator {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Commentator{cli: oa.NewClient(opts...), model: model, timeout: timeout}
}

func (c *Commentator) Describe(ctx context.Context, snap *finance.Snapshot) (string, error) {
	if snap == nil || len(snap.Holdings) == 0 {
		return "", ErrEmptySnapshot
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(BuildPrompt(snap)),
		},
		MaxTokens: oa.Int(600), // Limit response length for telegram
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt renders the snapshot as compact text for the model.
func BuildPrompt(snap *finance.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio value %s, cost %s, P&L %s (%.2f%%)\n",
		snap.Summary.TotalValue.StringFixed(2), snap.Summary.TotalCost.StringFixed(2),
		snap.Summary.PnL.StringFixed(2), snap.Summary.PnLPercent)

	weights := analytics.Weights(snap.Holdings)
	b.WriteString("\nTickers (weight, annual return p10/p50/p90, status):\n")
	for _, t := range snap.Tickers {
		label := t.Symbol
		if t.Benchmark {
			label += " (benchmark)"
		}
		fmt.Fprintf(&b, "- %s: weight %.1f%%", label, weights[t.Symbol]*100)
		if t.Percentiles != nil {
			fmt.Fprintf(&b, ", p10 %.1f%% p50 %.1f%% p90 %.1f%% over %d years",
				t.Percentiles.P10*100, t.Percentiles.P50*100, t.Percentiles.P90*100, len(t.AnnualReturns))
		}
		fmt.Fprintf(&b, ", %s", t.Status.State)
		if t.Status.Source == finance.SourceCache {
			b.WriteString(" (cached)")
		}
		b.WriteString("\n")
	}

	r := snap.Risk
	if !r.Ready {
		b.WriteString("\nRisk: not enough overlapping history\n")
	} else {
		fmt.Fprintf(&b, "\nRisk over %d months: monthly volatility %.2f%%", r.Periods, r.Volatility*100)
		if r.Beta != nil {
			fmt.Fprintf(&b, ", beta %.2f vs %s (%d months)", *r.Beta, snap.Benchmark, r.BetaPeriods)
		}
		b.WriteString("\nRisk contributions:\n")
		for _, c := range r.Contributions {
			fmt.Fprintf(&b, "- %s %.1f%%\n", c.Symbol, c.Contribution*100)
		}
	}

	b.WriteString("\nProjections:\n")
	for _, p := range snap.Projections {
		fmt.Fprintf(&b, "- %.2fy:", p.Years)
		for _, s := range analytics.Scenarios {
			fmt.Fprintf(&b, " %s %.2f", s, p.Values[s])
		}
		b.WriteString("\n")
	}
	return b.String()
}
