package finance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"

	"portfolioTracker/internal/analytics"
)

// NamedSeries is one symbol's close series for a comparison chart.
type NamedSeries struct {
	Symbol string
	Points []analytics.PricePoint
}

// dayKey identifies the market trading day of a point as yyyymmdd.
func dayKey(p analytics.PricePoint, loc *time.Location) int {
	t := p.Time().In(loc)
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// IndexSeries rebases every series to 100 on the first trading day they all
// share and keeps only the shared days. Days are returned ascending as yyyymmdd.
func IndexSeries(series []NamedSeries) ([]int, [][]float64) {
	loc := marketLocation()
	byDay := make([]map[int]float64, len(series))
	for i, s := range series {
		m := make(map[int]float64, len(s.Points))
		for _, p := range analytics.CleanSeries(s.Points) {
			m[dayKey(p, loc)] = p.Close
		}
		byDay[i] = m
	}
	days := analytics.CommonPeriods(byDay...)
	values := make([][]float64, len(series))
	if len(days) == 0 {
		return days, values
	}
	for i, m := range byDay {
		base := m[days[0]]
		out := make([]float64, len(days))
		for j, d := range days {
			out[j] = m[d] / base * 100
		}
		values[i] = out
	}
	return days, values
}

// MakeIndexedChart renders several symbols indexed to base 100 on their first common day.
func MakeIndexedChart(rng string, series []NamedSeries) ([]byte, error) {
	if len(series) < 2 {
		return nil, errors.New("need at least two symbols")
	}
	days, values := IndexSeries(series)
	if len(days) < 2 {
		return nil, errors.New("not enough common trading days")
	}

	labelFmt := "Jan 02"
	if days[len(days)-1]-days[0] > 10000 {
		labelFmt = "Jan '06"
	}
	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = time.Date(d/10000, time.Month(d/100%100), d%100, 0, 0, 0, 0, time.UTC).Format(labelFmt)
	}

	gmin, gmax := values[0][0], values[0][0]
	names := make([]string, len(series))
	for i, s := range series {
		names[i] = strings.ToUpper(s.Symbol)
		for _, v := range values[i] {
			gmin = min(gmin, v)
			gmax = max(gmax, v)
		}
	}
	pad := max((gmax-gmin)*0.05, 0.5)
	yMin, yMax := gmin-pad, gmax+pad

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
		seriesList[i].AxisIndex = 0
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc("Indexed • 1d • "+strings.ToUpper(rng), strings.Join(names, ", ")+" • base 100"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: 8}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return painter.Bytes()
}
