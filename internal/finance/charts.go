package finance

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/vicanso/go-charts/v2"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"portfolioTracker/internal/analytics"
)

// MakePriceChart renders the close series of one range as a line chart.
func MakePriceChart(symbol, rng string, points []analytics.PricePoint) ([]byte, error) {
	points = analytics.CleanSeries(points)
	if len(points) < 2 {
		return nil, errors.New("not enough data points")
	}

	loc := marketLocation()
	span := points[len(points)-1].Time().Sub(points[0].Time())
	labelFmt := "Jan 02"
	if span.Hours() > 24*400 {
		labelFmt = "Jan '06"
	}

	x := make([]string, len(points))
	y := make([]float64, len(points))
	yMin, yMax := points[0].Close, points[0].Close
	for i, p := range points {
		x[i] = p.Time().In(loc).Format(labelFmt)
		y[i] = p.Close
		if p.Close < yMin {
			yMin = p.Close
		}
		if p.Close > yMax {
			yMax = p.Close
		}
	}
	pad := (yMax - yMin) * 0.05
	if pad < yMax*0.002 {
		pad = yMax * 0.002
	}
	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}
	yMax += pad

	first, last := points[0].Close, points[len(points)-1].Close
	sub := fmt.Sprintf("%s → %s (%+.2f%%)", formatPrice(first), formatPrice(last), (last/first-1)*100)

	painter, err := charts.LineRender([][]float64{y},
		charts.TitleTextOptionFunc(strings.ToUpper(symbol)+" • 1d • "+strings.ToUpper(rng), sub),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: x, BoundaryGap: charts.FalseFlag(), SplitNumber: 6}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return painter.Bytes()
}

// MakeHistogramChart renders histogram bins as a bar chart labelled by bin start.
func MakeHistogramChart(symbol string, h analytics.Histogram) ([]byte, error) {
	if len(h.Bins) == 0 {
		return nil, errors.New("no returns to plot")
	}
	labels := make([]string, len(h.Bins))
	counts := make([]float64, len(h.Bins))
	for i, b := range h.Bins {
		labels[i] = fmt.Sprintf("%.1f%%", b.From*100)
		counts[i] = float64(b.Count)
	}

	painter, err := charts.BarRender([][]float64{counts},
		charts.TitleTextOptionFunc(strings.ToUpper(symbol)+" • monthly returns", fmt.Sprintf("%d bins, max %d", len(h.Bins), h.MaxCount)),
		charts.XAxisDataOptionFunc(labels),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return painter.Bytes()
}

var scenarioColors = map[analytics.Scenario]drawing.Color{
	analytics.Optimistic:  drawing.ColorFromHex("16a34a"), // green-600
	analytics.Average:     drawing.ColorFromHex("2563eb"), // blue-600
	analytics.Pessimistic: drawing.ColorFromHex("dc2626"), // red-600
}

// MakeProjectionChart renders one line per scenario from today's value through
// every projection horizon.
func MakeProjectionChart(current float64, projections []analytics.Projection) ([]byte, error) {
	if len(projections) == 0 {
		return nil, errors.New("no projections to plot")
	}

	series := make([]chart.Series, 0, len(analytics.Scenarios))
	for _, s := range analytics.Scenarios {
		xs := make([]float64, 0, len(projections)+1)
		ys := make([]float64, 0, len(projections)+1)
		xs = append(xs, 0)
		ys = append(ys, current)
		for _, p := range projections {
			xs = append(xs, p.Years)
			ys = append(ys, p.Values[s])
		}
		series = append(series, chart.ContinuousSeries{
			Name: strings.ToUpper(string(s[:1])) + string(s[1:]),
			Style: chart.Style{
				StrokeColor: scenarioColors[s],
				StrokeWidth: 2.5,
				DotWidth:    3,
				DotColor:    scenarioColors[s],
			},
			XValues: xs,
			YValues: ys,
		})
	}

	graph := chart.Chart{
		Title:  "Projected Portfolio Value",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Name: "Years",
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2fy", f)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return formatPrice(f)
				}
				return ""
			},
		},
		Series: series,
	}
	if lo, hi := seriesBounds(series); hi-lo < 1e-9 {
		pad := max(lo*0.05, 1)
		graph.YAxis.Range = &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// seriesBounds returns the min and max Y over every series; go-chart refuses a zero-height range.
func seriesBounds(series []chart.Series) (float64, float64) {
	lo, hi := 0.0, 0.0
	first := true
	for _, s := range series {
		cs, ok := s.(chart.ContinuousSeries)
		if !ok {
			continue
		}
		for _, y := range cs.YValues {
			if first || y < lo {
				lo = y
			}
			if first || y > hi {
				hi = y
			}
			first = false
		}
	}
	return lo, hi
}

func formatPrice(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}
