// Package stats derives read-side views from the ledger: per-day totals,
// summary statistics, time windows, and the spending trend. Nothing here
// mutates the ledger.
package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spendbook/internal/core"
)

const (
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowAll   Window = "all"

	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

type (
	// Window selects how far back a series reaches.
	Window string

	// Trend compares the two most recent days.
	Trend string

	// DayTotal is one day's aggregate: its total spend and the items
	// behind it, in their recorded order.
	DayTotal struct {
		Date  core.DateKey
		Total decimal.Decimal
		Items []core.Item
	}

	// Summary aggregates a whole series.
	Summary struct {
		Total        decimal.Decimal
		AverageDaily decimal.Decimal
		Days         int
		MaxDay       *DayTotal
		MinDay       *DayTotal
	}
)

// ParseWindow maps a query value to a window, defaulting to all.
func ParseWindow(s string) Window {
	switch Window(s) {
	case WindowWeek:
		return WindowWeek
	case WindowMonth:
		return WindowMonth
	default:
		return WindowAll
	}
}

// DailyTotals flattens the ledger into a series sorted by calendar date.
// The ascending order comes from parsing the keys, never from comparing
// their string forms.
func DailyTotals(l core.Ledger) []DayTotal {
	series := make([]DayTotal, 0, len(l))
	for key, items := range l {
		bucket := make([]core.Item, len(items))
		copy(bucket, items)
		series = append(series, DayTotal{
			Date:  key,
			Total: l.SumDay(key),
			Items: bucket,
		})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}

// Summarize computes totals over a date-sorted series. Empty input yields
// a zero summary with nil max/min days. Ties keep the first occurrence in
// sorted order.
func Summarize(series []DayTotal) Summary {
	s := Summary{Total: decimal.Zero, AverageDaily: decimal.Zero, Days: len(series)}
	if len(series) == 0 {
		return s
	}
	for i := range series {
		day := &series[i]
		s.Total = s.Total.Add(day.Total)
		if s.MaxDay == nil || day.Total.GreaterThan(s.MaxDay.Total) {
			s.MaxDay = day
		}
		if s.MinDay == nil || day.Total.LessThan(s.MinDay.Total) {
			s.MinDay = day
		}
	}
	s.AverageDaily = s.Total.Div(decimal.NewFromInt(int64(len(series))))
	return s
}

// FilterByWindow keeps the entries whose date falls within the window
// ending at now. The cutoff date itself is included. WindowAll returns
// the series unchanged.
func FilterByWindow(series []DayTotal, w Window, now time.Time) []DayTotal {
	var days int
	switch w {
	case WindowWeek:
		days = 7
	case WindowMonth:
		days = 30
	default:
		return series
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := today.AddDate(0, 0, -days)

	out := make([]DayTotal, 0, len(series))
	for _, day := range series {
		if !day.Date.Time(now.Location()).Before(cutoff) {
			out = append(out, day)
		}
	}
	return out
}

// TrendOf reports whether spending went up between the last two days of a
// date-sorted series. Shorter series default to up.
func TrendOf(series []DayTotal) Trend {
	if len(series) < 2 {
		return TrendUp
	}
	last := series[len(series)-1].Total
	prev := series[len(series)-2].Total
	if last.GreaterThan(prev) {
		return TrendUp
	}
	return TrendDown
}
