package analytics

import (
	"time"

	"bilancio/internal/core"
)

// Day is one cell of the payments calendar grid.
type Day struct {
	Date core.Date
	// InMonth is false for the leading/trailing filler days that pad the
	// grid out to whole weeks.
	InMonth  bool
	Payments []core.Payment
	// Overdue holds the subset of Payments that are past due and unpaid,
	// relative to the "today" the grid was built with. Recomputed on every
	// build, never cached, since today moves under a long-lived view.
	Overdue []core.Payment
}

// Week is one 7-column row of the grid.
type Week [7]Day

// Grid is the visible month padded to complete weeks.
type Grid struct {
	Year  int
	Month time.Month
	Weeks []Week
}

// Cells returns the total number of day cells, always a multiple of 7.
func (g Grid) Cells() int {
	return len(g.Weeks) * 7
}

// BuildGrid generates every day of the visible month plus the leading days
// from the prior month needed to start on weekStart and the trailing days
// needed to complete the final week.
func BuildGrid(year int, month time.Month, weekStart time.Weekday) Grid {
	first := core.NewDate(year, int(month), 1)
	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7
	start := core.DateOf(first.AddDate(0, 0, -lead))

	daysInMonth := core.DateOf(first.AddDate(0, 1, -1)).Day()
	cells := lead + daysInMonth
	if rem := cells % 7; rem != 0 {
		cells += 7 - rem
	}

	g := Grid{Year: year, Month: month, Weeks: make([]Week, cells/7)}
	for i := 0; i < cells; i++ {
		d := core.DateOf(start.AddDate(0, 0, i))
		g.Weeks[i/7][i%7] = Day{
			Date:    d,
			InMonth: d.Month() == month && d.Year() == year,
		}
	}
	return g
}

// BucketPayments assigns each payment to its grid cell by exact
// (day, month, year) match and fills the per-day overdue subset using today.
func BucketPayments(g Grid, payments []core.Payment, today core.Date) Grid {
	for w := range g.Weeks {
		for d := range g.Weeks[w] {
			day := &g.Weeks[w][d]
			day.Payments = nil
			day.Overdue = nil
			for _, p := range payments {
				if !p.DueDate.SameDay(day.Date) {
					continue
				}
				day.Payments = append(day.Payments, p)
				if p.IsOverdue(today) {
					day.Overdue = append(day.Overdue, p)
				}
			}
		}
	}
	return g
}

// OverduePayments filters the payments that are past due and unpaid as of
// today.
func OverduePayments(payments []core.Payment, today core.Date) []core.Payment {
	var out []core.Payment
	for _, p := range payments {
		if p.IsOverdue(today) {
			out = append(out, p)
		}
	}
	return out
}

// UpcomingInRange filters unpaid payments due within the window, for the
// "next N days" card.
func UpcomingInRange(payments []core.Payment, r Range) []core.Payment {
	var out []core.Payment
	for _, p := range payments {
		if !p.IsPaid && r.Contains(p.DueDate) {
			out = append(out, p)
		}
	}
	return out
}
