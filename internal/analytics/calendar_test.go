package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func payment(title string, due core.Date, paid bool) core.Payment {
	return core.Payment{
		ID:      "p-" + title,
		OwnerID: "owner-1",
		Title:   title,
		Amount:  decimal.NewFromInt(25),
		DueDate: due,
		IsPaid:  paid,
	}
}

func TestBuildGridCellsMultipleOfSeven(t *testing.T) {
	for year := 2024; year <= 2027; year++ {
		for month := time.January; month <= time.December; month++ {
			g := BuildGrid(year, month, time.Sunday)
			if g.Cells()%7 != 0 {
				t.Errorf("%d-%02d: %d cells, not a multiple of 7", year, month, g.Cells())
			}
		}
	}
}

func TestBuildGridSeptember2027(t *testing.T) {
	// September 2027 has 30 days and starts on a Wednesday: the grid needs
	// exactly 3 leading days (Sun, Mon, Tue from August) and 2 trailing days
	// to complete the final week.
	g := BuildGrid(2027, time.September, time.Sunday)

	if g.Cells() != 35 {
		t.Fatalf("cells = %d, want 35", g.Cells())
	}

	first := g.Weeks[0][0]
	if first.Date.String() != "2027-08-29" || first.InMonth {
		t.Errorf("first cell = %s (InMonth=%v), want 2027-08-29 filler", first.Date, first.InMonth)
	}
	if g.Weeks[0][3].Date.String() != "2027-09-01" || !g.Weeks[0][3].InMonth {
		t.Errorf("cell 3 = %s, want 2027-09-01 in month", g.Weeks[0][3].Date)
	}

	last := g.Weeks[len(g.Weeks)-1][6]
	if last.Date.String() != "2027-10-02" || last.InMonth {
		t.Errorf("last cell = %s (InMonth=%v), want 2027-10-02 filler", last.Date, last.InMonth)
	}

	inMonth := 0
	for _, w := range g.Weeks {
		for _, d := range w {
			if d.InMonth {
				inMonth++
			}
		}
	}
	if inMonth != 30 {
		t.Errorf("in-month cells = %d, want 30", inMonth)
	}
}

func TestBuildGridMonthStartingOnWeekStart(t *testing.T) {
	// March 2026 starts on a Sunday: no leading filler at all.
	g := BuildGrid(2026, time.March, time.Sunday)
	if !g.Weeks[0][0].InMonth || g.Weeks[0][0].Date.Day() != 1 {
		t.Errorf("first cell = %s, want 2026-03-01", g.Weeks[0][0].Date)
	}
}

func TestBucketPayments(t *testing.T) {
	today := core.NewDate(2026, 8, 20)
	payments := []core.Payment{
		payment("rent", core.NewDate(2026, 8, 5), false),
		payment("gym", core.NewDate(2026, 8, 5), true),
		payment("netflix", core.NewDate(2026, 8, 25), false),
		payment("other month", core.NewDate(2026, 9, 5), false),
	}

	g := BucketPayments(BuildGrid(2026, time.August, time.Sunday), payments, today)

	var day5, day25 *Day
	for w := range g.Weeks {
		for d := range g.Weeks[w] {
			cell := &g.Weeks[w][d]
			if !cell.InMonth {
				continue
			}
			switch cell.Date.Day() {
			case 5:
				day5 = cell
			case 25:
				day25 = cell
			}
		}
	}

	if day5 == nil || len(day5.Payments) != 2 {
		t.Fatalf("day 5 payments = %v", day5)
	}
	// Only the unpaid one is overdue.
	if len(day5.Overdue) != 1 || day5.Overdue[0].Title != "rent" {
		t.Errorf("day 5 overdue = %v", day5.Overdue)
	}
	if day25 == nil || len(day25.Payments) != 1 || len(day25.Overdue) != 0 {
		t.Errorf("day 25 = %v", day25)
	}

	// The september payment must not leak into august cells.
	for _, w := range g.Weeks {
		for _, d := range w {
			for _, p := range d.Payments {
				if p.Title == "other month" && d.InMonth {
					t.Error("payment bucketed into wrong month")
				}
			}
		}
	}
}

func TestOverduePayments(t *testing.T) {
	today := core.NewDate(2026, 8, 20)
	payments := []core.Payment{
		payment("a", core.NewDate(2026, 8, 19), false),
		payment("b", core.NewDate(2026, 8, 19), true),
		payment("c", core.NewDate(2026, 8, 20), false),
	}
	got := OverduePayments(payments, today)
	if len(got) != 1 || got[0].Title != "a" {
		t.Errorf("OverduePayments = %v", got)
	}
}

func TestUpcomingInRange(t *testing.T) {
	today := core.NewDate(2026, 8, 20)
	r := Range{From: today, To: core.DateOf(today.AddDate(0, 0, 7))}
	payments := []core.Payment{
		payment("due soon", core.NewDate(2026, 8, 22), false),
		payment("paid", core.NewDate(2026, 8, 22), true),
		payment("far out", core.NewDate(2026, 9, 22), false),
	}
	got := UpcomingInRange(payments, r)
	if len(got) != 1 || got[0].Title != "due soon" {
		t.Errorf("UpcomingInRange = %v", got)
	}
}
