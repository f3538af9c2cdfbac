package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func expense(amount string, cat string, d core.Date) core.Expense {
	a, _ := decimal.NewFromString(amount)
	return core.Expense{
		ID:          "e-" + cat + "-" + d.String(),
		OwnerID:     "owner-1",
		Amount:      a,
		Description: cat,
		Date:        d,
		Category:    core.Category{ID: "c-" + cat, Name: cat, Color: "#112233"},
	}
}

func TestTotalInRange(t *testing.T) {
	today := core.NewDate(2026, 8, 30)
	items := []core.Expense{
		expense("10", "Food", core.NewDate(2026, 8, 30)),
		expense("20", "Food", core.NewDate(2026, 8, 24)),
		expense("30", "Rent", core.NewDate(2026, 8, 1)),
		expense("40", "Rent", core.NewDate(2026, 7, 31)),
	}

	tests := []struct {
		name string
		r    Range
		want string
	}{
		{name: "last 7 days", r: LastDays(today, 7), want: "30"},
		{name: "last 30 days", r: LastDays(today, 30), want: "100"},
		{name: "current month", r: CalendarMonth(today), want: "60"},
		{name: "previous month", r: PreviousCalendarMonth(today), want: "40"},
		{name: "custom single day", r: Range{From: today, To: today}, want: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, _ := decimal.NewFromString(tt.want)
			if got := TotalInRange(items, tt.r); !got.Equal(want) {
				t.Errorf("TotalInRange = %s, want %s", got, want)
			}
		})
	}
}

func TestCalendarMonthBounds(t *testing.T) {
	r := CalendarMonth(core.NewDate(2026, 2, 14))
	if r.From.String() != "2026-02-01" || r.To.String() != "2026-02-28" {
		t.Errorf("february 2026 = [%s, %s]", r.From, r.To)
	}
	// Leap year
	r = CalendarMonth(core.NewDate(2028, 2, 1))
	if r.To.String() != "2028-02-29" {
		t.Errorf("february 2028 ends %s, want 2028-02-29", r.To)
	}
	// December -> previous month window crosses the year boundary forward
	r = PreviousCalendarMonth(core.NewDate(2026, 1, 10))
	if r.From.String() != "2025-12-01" || r.To.String() != "2025-12-31" {
		t.Errorf("previous month of jan 2026 = [%s, %s]", r.From, r.To)
	}
}

func TestCategoryBreakdownPercentagesSumTo100(t *testing.T) {
	items := []core.Expense{
		expense("50", "Food", core.NewDate(2026, 8, 2)),
		expense("30", "Transport", core.NewDate(2026, 8, 3)),
		expense("20", "Fun", core.NewDate(2026, 8, 4)),
	}

	got := CategoryBreakdown(items, 0)
	if len(got) != 3 {
		t.Fatalf("groups = %d, want 3", len(got))
	}
	if got[0].Name != "Food" || got[1].Name != "Transport" || got[2].Name != "Fun" {
		t.Errorf("unexpected order: %v", got)
	}
	sum := 0.0
	for _, g := range got {
		sum += g.Percent
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("percentages sum to %v, want ~100", sum)
	}
}

func TestCategoryBreakdownZeroTotal(t *testing.T) {
	got := CategoryBreakdown(nil, 5)
	if len(got) != 0 {
		t.Fatalf("breakdown of empty collection = %v", got)
	}
}

func TestCategoryBreakdownTopN(t *testing.T) {
	items := []core.Expense{
		expense("50", "Food", core.NewDate(2026, 8, 2)),
		expense("30", "Transport", core.NewDate(2026, 8, 3)),
		expense("20", "Fun", core.NewDate(2026, 8, 4)),
	}
	got := CategoryBreakdown(items, 2)
	if len(got) != 2 {
		t.Fatalf("topN=2 returned %d groups", len(got))
	}
	// Truncation happens after percentage calculation against the full total.
	if math.Abs(got[0].Percent-50) > 1e-9 {
		t.Errorf("Food percent = %v, want 50", got[0].Percent)
	}
}

func TestCategoryBreakdownUncategorized(t *testing.T) {
	e := expense("10", "x", core.NewDate(2026, 8, 2))
	e.Category = core.Category{}
	got := CategoryBreakdown([]core.Expense{e}, 0)
	if len(got) != 1 || got[0].Name != core.UncategorizedName {
		t.Errorf("breakdown = %+v, want single Uncategorized group", got)
	}
}

func TestMonthOverMonth(t *testing.T) {
	now := core.NewDate(2026, 8, 30)

	t.Run("spending doubled", func(t *testing.T) {
		items := []core.Expense{
			expense("100", "Food", core.NewDate(2026, 8, 10)),
			expense("50", "Food", core.NewDate(2026, 7, 10)),
		}
		d := MonthOverMonth(items, now)
		if !d.Current.Equal(decimal.NewFromInt(100)) || !d.Previous.Equal(decimal.NewFromInt(50)) {
			t.Fatalf("delta = %+v", d)
		}
		if math.Abs(d.Percent-100) > 1e-9 {
			t.Errorf("Percent = %v, want 100", d.Percent)
		}
	})

	t.Run("previous month zero", func(t *testing.T) {
		items := []core.Expense{expense("100", "Food", core.NewDate(2026, 8, 10))}
		d := MonthOverMonth(items, now)
		if d.Percent != 0 {
			t.Errorf("Percent = %v, want 0 when previous is 0", d.Percent)
		}
		if math.IsNaN(d.Percent) || math.IsInf(d.Percent, 0) {
			t.Error("Percent must never be NaN or Inf")
		}
	})

	t.Run("spending decreased", func(t *testing.T) {
		items := []core.Expense{
			expense("50", "Food", core.NewDate(2026, 8, 10)),
			expense("100", "Food", core.NewDate(2026, 7, 10)),
		}
		d := MonthOverMonth(items, now)
		if math.Abs(d.Percent-(-50)) > 1e-9 {
			t.Errorf("Percent = %v, want -50", d.Percent)
		}
	})
}

func TestBuildOverviewSpecScenario(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	items := []core.Expense{
		expense("100", "Food", core.NewDate(2026, 8, 10)),
		expense("50", "Food", core.NewDate(2026, 7, 10)),
	}
	settings := core.Settings{OwnerID: "owner-1", MonthlyBudget: decimal.NewFromInt(200), Currency: "USD"}

	ov := BuildOverview(items, settings, now)
	if !ov.Total.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Total = %s, want 100", ov.Total)
	}
	if !ov.BudgetRemaining.Equal(decimal.NewFromInt(100)) {
		t.Errorf("BudgetRemaining = %s, want 100", ov.BudgetRemaining)
	}
	if math.Abs(ov.Delta.Percent-100) > 1e-9 {
		t.Errorf("Delta.Percent = %v, want 100", ov.Delta.Percent)
	}
}

func TestBuildOverviewEmptyCollection(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	settings := core.DefaultSettings("owner-1")

	ov := BuildOverview(nil, settings, now)
	if !ov.Total.Equal(decimal.Zero) {
		t.Errorf("Total = %s, want 0", ov.Total)
	}
	if ov.Delta.Percent != 0 {
		t.Errorf("Delta.Percent = %v, want 0", ov.Delta.Percent)
	}
	top := TopCategory(nil)
	if top.Name != "None" || !top.Amount.Equal(decimal.Zero) {
		t.Errorf("TopCategory(empty) = %+v, want {None 0}", top)
	}
}

func TestBuildOverviewIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	items := []core.Expense{
		expense("12.50", "Food", core.NewDate(2026, 8, 10)),
		expense("7.25", "Fun", core.NewDate(2026, 8, 11)),
	}
	settings := core.DefaultSettings("owner-1")

	// Two passes over the same snapshot must derive identical aggregates.
	a := BuildOverview(items, settings, now)
	b := BuildOverview(items, settings, now)
	if !a.Total.Equal(b.Total) || !a.BudgetRemaining.Equal(b.BudgetRemaining) ||
		a.Delta.Percent != b.Delta.Percent || len(a.Top) != len(b.Top) {
		t.Errorf("overviews differ: %+v vs %+v", a, b)
	}
	for i := range a.Top {
		if a.Top[i].Name != b.Top[i].Name || !a.Top[i].Amount.Equal(b.Top[i].Amount) ||
			a.Top[i].Percent != b.Top[i].Percent {
			t.Errorf("top[%d] differs: %+v vs %+v", i, a.Top[i], b.Top[i])
		}
	}
}
