package telegram

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"portfolioTracker/internal/analytics"
	"portfolioTracker/internal/finance"
	"portfolioTracker/internal/portfolio"
)

func money(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%+.1f%%", v*100)
}

func formatSummary(s portfolio.Summary) string {
	return fmt.Sprintf("Value %s • Cost %s • P&L %s (%+.2f%%)",
		money(s.TotalValue.InexactFloat64()), money(s.TotalCost.InexactFloat64()),
		money(s.PnL.InexactFloat64()), s.PnLPercent)
}

func formatHoldings(holdings []portfolio.Holding) string {
	if len(holdings) == 0 {
		return "No holdings yet. Add one with /add SYMBOL QTY COST [PRICE]"
	}
	var b strings.Builder
	b.WriteString("Holdings\n\n")
	for _, h := range holdings {
		fmt.Fprintf(&b, "%s  %s × %s @ %s → %s  (%s, %+.2f%%)\n",
			h.ShortID(), h.Symbol, humanize.Ftoa(h.Quantity), money(h.PurchasePrice),
			money(h.CurrentPrice), money(h.PnL()), h.PnLPercent())
	}
	b.WriteString("\n")
	b.WriteString(formatSummary(portfolio.Summarize(holdings)))
	return b.String()
}

func statusLine(st finance.TickerStatus) string {
	line := fmt.Sprintf("%s: %s", st.Symbol, st.State)
	switch st.State {
	case finance.StateDone, finance.StateNoData:
		if st.Range != "" {
			line += fmt.Sprintf(" (%s, %d points", st.Range, st.Points)
			if st.Source == finance.SourceCache {
				line += ", cached"
			}
			line += ")"
		}
	case finance.StateFailed:
		if st.Error != "" {
			line += ": " + st.Error
		}
	}
	return line
}

// formatSnapshot renders statuses, percentiles, risk and projections as plain text.
func formatSnapshot(snap *finance.Snapshot) string {
	var b strings.Builder
	b.WriteString("Portfolio analytics\n")
	b.WriteString(formatSummary(snap.Summary))
	b.WriteString("\n\nStatus\n")
	for _, t := range snap.Tickers {
		line := statusLine(t.Status)
		if t.Benchmark {
			line += " [benchmark]"
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\nAnnual returns (p10 / p50 / p90)\n")
	found := false
	for _, t := range snap.Tickers {
		if t.Percentiles == nil {
			continue
		}
		found = true
		p := t.Percentiles
		fmt.Fprintf(&b, "%s: %s / %s / %s  (%d years)\n", t.Symbol, pct(p.P10), pct(p.P50), pct(p.P90), len(t.AnnualReturns))
	}
	if !found {
		b.WriteString("no annual history\n")
	}

	b.WriteString("\nHistory\n")
	for _, t := range snap.Tickers {
		if t.Performance != nil {
			fmt.Fprintf(&b, "%s %s: %s\n", t.Symbol, t.LongRange, formatPerformance(*t.Performance))
		}
	}

	b.WriteString("\nRisk\n")
	b.WriteString(formatRisk(snap.Risk, snap.Benchmark))

	b.WriteString("\nProjections\n")
	for _, p := range snap.Projections {
		fmt.Fprintf(&b, "%gy: ▲ %s  ● %s  ▼ %s\n", p.Years,
			money(p.Values[analytics.Optimistic]), money(p.Values[analytics.Average]), money(p.Values[analytics.Pessimistic]))
	}
	return b.String()
}

func formatPerformance(p analytics.Performance) string {
	return fmt.Sprintf("total %s • annual %s • vol %.1f%% • Sharpe %.2f • max DD %.1f%%",
		pct(p.TotalReturn), pct(p.AnnualReturn), p.Volatility*100, p.Sharpe, p.MaxDrawdown*100)
}

func formatRisk(r analytics.RiskSnapshot, benchmark string) string {
	if !r.Ready {
		return "not enough overlapping monthly history\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d months • variance %.5f • volatility %.2f%%\n", r.Periods, r.Variance, r.Volatility*100)
	if r.Beta != nil {
		fmt.Fprintf(&b, "beta vs %s: %.2f (%d months)\n", benchmark, *r.Beta, r.BetaPeriods)
	} else {
		fmt.Fprintf(&b, "beta vs %s: n/a\n", benchmark)
	}
	for _, c := range r.Contributions {
		fmt.Fprintf(&b, "%s: weight %.1f%% • risk %.1f%%\n", c.Symbol, c.Weight*100, c.Contribution*100)
	}
	return b.String()
}

func formatDistribution(d *finance.Distribution) string {
	cached := ""
	if d.Source == finance.SourceCache {
		cached = " (cached)"
	}
	p := d.Percentiles
	return fmt.Sprintf("%s • %s monthly returns%s • %d months\np10 %s • p50 %s • p90 %s",
		d.Symbol, d.Range, cached, len(d.Returns), pct(p.P10), pct(p.P50), pct(p.P90))
}

const helpText = "Commands\n\n" +
	"- /add SYMBOL QTY COST [PRICE] - Add a holding; the price is fetched when omitted\n" +
	"- /remove ID - Remove a holding (id prefix from /holdings)\n" +
	"- /price ID PRICE - Set a holding's current price\n" +
	"- /quote SYMBOL - Latest close\n" +
	"- /holdings - List holdings with totals\n" +
	"- /refresh - Update every holding to its latest close\n" +
	"- /analytics - Return distributions, risk and projections\n" +
	"- /hist SYMBOL - Monthly return histogram over one year\n" +
	"- /chart SYMBOL [1m|6m|1y|5y|10y] - Price chart\n" +
	"- /compare S1 S2 ... [RANGE] - Symbols indexed to 100 at the first common day\n" +
	"- /insight - Short written commentary on the portfolio\n" +
	"\nRisk uses monthly returns over common history. Projections compound the p90 / p50 / p10 annual return."
