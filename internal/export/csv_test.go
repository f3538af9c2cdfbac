package export

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

func TestExpensesCSV(t *testing.T) {
	expenses := []core.Expense{
		{
			Description: "Groceries, weekly",
			Amount:      decimal.RequireFromString("54.20"),
			Date:        core.NewDate(2026, 3, 10),
			Category:    core.Category{ID: "c1", Name: "Food", Color: "#ff0000"},
		},
		{
			Description: "Bus ticket",
			Amount:      decimal.RequireFromString("2.5"),
			Date:        core.NewDate(2026, 3, 2),
		},
	}

	var buf strings.Builder
	if err := ExpensesCSV(&buf, expenses); err != nil {
		t.Fatalf("ExpensesCSV: %v", err)
	}

	want := "Date,Description,Category,Amount\n" +
		"2026-03-02,Bus ticket,Uncategorized,2.50\n" +
		"2026-03-10,\"Groceries, weekly\",Food,54.20\n"
	if buf.String() != want {
		t.Fatalf("csv mismatch\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestExpensesCSVEmpty(t *testing.T) {
	var buf strings.Builder
	if err := ExpensesCSV(&buf, nil); err != nil {
		t.Fatalf("ExpensesCSV: %v", err)
	}
	if buf.String() != "Date,Description,Category,Amount\n" {
		t.Fatalf("empty export should still carry the header, got %q", buf.String())
	}
}

func TestFilename(t *testing.T) {
	got := Filename("expenses", core.NewDate(2026, 8, 30))
	if got != "expenses-2026-08-30.csv" {
		t.Fatalf("Filename = %q", got)
	}
}
