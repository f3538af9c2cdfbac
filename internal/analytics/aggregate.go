// Package analytics derives display values from in-memory collection
// snapshots. Every function here is pure: it takes the current records and
// returns plain data, with no I/O and no observable side effects, so the
// whole package is testable in isolation from the fetch/subscribe machinery.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// Range is a closed calendar-date window.
type Range struct {
	From core.Date
	To   core.Date
}

// Contains reports whether d falls within the window, inclusive on both ends.
func (r Range) Contains(d core.Date) bool {
	return !d.Before(r.From) && !r.To.Before(d)
}

// LastDays returns the window covering the N calendar days ending today.
func LastDays(today core.Date, n int) Range {
	from := core.DateOf(today.AddDate(0, 0, -(n - 1)))
	return Range{From: from, To: today}
}

// CalendarMonth returns the window covering the full month containing d.
func CalendarMonth(d core.Date) Range {
	first := core.NewDate(d.Year(), int(d.Month()), 1)
	last := core.DateOf(first.AddDate(0, 1, -1))
	return Range{From: first, To: last}
}

// PreviousCalendarMonth returns the window for the month immediately before
// the one containing d.
func PreviousCalendarMonth(d core.Date) Range {
	first := core.NewDate(d.Year(), int(d.Month()), 1)
	prevFirst := core.DateOf(first.AddDate(0, -1, 0))
	prevLast := core.DateOf(first.AddDate(0, 0, -1))
	return Range{From: prevFirst, To: prevLast}
}

// TotalInRange sums expense amounts for records whose date falls within the
// window.
func TotalInRange(items []core.Expense, r Range) decimal.Decimal {
	total := decimal.Zero
	for _, e := range items {
		if r.Contains(e.Date) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// CategoryShare is one row of a category breakdown.
type CategoryShare struct {
	Name    string
	Color   string
	Amount  decimal.Decimal
	Percent float64
}

// CategoryBreakdown groups expenses by display-category name, sums per group,
// sorts descending by amount, and truncates to topN (0 means no truncation).
// Percent-of-total is 0 for every group when the total is zero; no division
// by zero is possible.
func CategoryBreakdown(items []core.Expense, topN int) []CategoryShare {
	sums := make(map[string]*CategoryShare)
	order := make([]string, 0)
	total := decimal.Zero
	for _, e := range items {
		cat := e.DisplayCategory()
		share, ok := sums[cat.Name]
		if !ok {
			share = &CategoryShare{Name: cat.Name, Color: cat.Color, Amount: decimal.Zero}
			sums[cat.Name] = share
			order = append(order, cat.Name)
		}
		share.Amount = share.Amount.Add(e.Amount)
		total = total.Add(e.Amount)
	}

	out := make([]CategoryShare, 0, len(order))
	for _, name := range order {
		out = append(out, *sums[name])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	if total.Sign() > 0 {
		for i := range out {
			pct, _ := out[i].Amount.Div(total).Mul(decimal.NewFromInt(100)).Float64()
			out[i].Percent = pct
		}
	}
	return out
}

// TopCategory returns the largest category share, or a safe {"None", 0}
// default for an empty collection.
func TopCategory(items []core.Expense) CategoryShare {
	breakdown := CategoryBreakdown(items, 1)
	if len(breakdown) == 0 {
		return CategoryShare{Name: "None", Amount: decimal.Zero}
	}
	return breakdown[0]
}

// MonthDelta compares the current calendar month against the immediately
// preceding one.
type MonthDelta struct {
	Current  decimal.Decimal
	Previous decimal.Decimal
	// Percent is (current-previous)/previous*100, defined as 0 when the
	// previous month's total is 0. Explicit policy: never NaN or Inf.
	Percent float64
}

// MonthOverMonth computes the month-over-month delta relative to now.
func MonthOverMonth(items []core.Expense, now core.Date) MonthDelta {
	cur := TotalInRange(items, CalendarMonth(now))
	prev := TotalInRange(items, PreviousCalendarMonth(now))
	d := MonthDelta{Current: cur, Previous: prev}
	if prev.Sign() > 0 {
		pct, _ := cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Float64()
		d.Percent = pct
	}
	return d
}

// BudgetRemaining subtracts the current month's spend from the monthly
// budget. Negative values mean the budget is exceeded.
func BudgetRemaining(items []core.Expense, budget decimal.Decimal, now core.Date) decimal.Decimal {
	return budget.Sub(TotalInRange(items, CalendarMonth(now)))
}

// Overview is the dashboard summary for a single owner.
type Overview struct {
	Month           Range
	Total           decimal.Decimal
	BudgetRemaining decimal.Decimal
	Delta           MonthDelta
	Top             []CategoryShare
}

// BuildOverview assembles the dashboard numbers from one snapshot. The same
// snapshot always yields the same overview.
func BuildOverview(items []core.Expense, settings core.Settings, now time.Time) Overview {
	today := core.DateOf(now)
	month := CalendarMonth(today)
	total := TotalInRange(items, month)
	return Overview{
		Month:           month,
		Total:           total,
		BudgetRemaining: settings.MonthlyBudget.Sub(total),
		Delta:           MonthOverMonth(items, today),
		Top:             CategoryBreakdown(items, 5),
	}
}
