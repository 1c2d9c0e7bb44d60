// Package chart renders aggregate spending charts as PNG images.
package chart

import (
	"fmt"

	"github.com/go-analyze/charts"

	"spendbook/internal/stats"
)

// DailyTotalsPNG renders the series as a bar chart, one bar per day in
// calendar order. Empty series are an error; callers show a placeholder
// instead.
func DailyTotalsPNG(series []stats.DayTotal, title string) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no spending days to chart")
	}

	values := make([]float64, 0, len(series))
	labels := make([]string, 0, len(series))
	for _, day := range series {
		values = append(values, day.Total.InexactFloat64())
		labels = append(labels, day.Date.String())
	}

	p, err := charts.BarRender(
		[][]float64{values},
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.XAxisLabelsOptionFunc(labels),
	)
	if err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf, nil
}

// TopDaysPNG renders the heaviest spending days as a pie chart, capped at
// limit slices.
func TopDaysPNG(series []stats.DayTotal, limit int) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no spending days to chart")
	}
	if limit <= 0 || limit > len(series) {
		limit = len(series)
	}

	// Pick the top days by total without disturbing the input order.
	top := make([]stats.DayTotal, len(series))
	copy(top, series)
	for i := 0; i < limit; i++ {
		best := i
		for j := i + 1; j < len(top); j++ {
			if top[j].Total.GreaterThan(top[best].Total) {
				best = j
			}
		}
		top[i], top[best] = top[best], top[i]
	}
	top = top[:limit]

	values := make([]float64, 0, len(top))
	labels := make([]string, 0, len(top))
	for _, day := range top {
		values = append(values, day.Total.InexactFloat64())
		labels = append(labels, day.Date.String())
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{Text: "Top spending days"}),
		charts.LegendLabelsOptionFunc(labels),
	)
	if err != nil {
		return nil, fmt.Errorf("render pie chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf, nil
}
