// Package export renders collections to downloadable formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"bilancio/internal/core"
)

// ExpensesCSV writes the expenses as CSV with a fixed header row. Rows are
// ordered by date ascending so diffs between two exports stay readable. Each
// row shows the display category, so missing joins export as Uncategorized
// rather than an empty cell.
func ExpensesCSV(w io.Writer, expenses []core.Expense) error {
	sorted := make([]core.Expense, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Time.Before(sorted[j].Date.Time)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Description", "Category", "Amount"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range sorted {
		row := []string{
			e.Date.String(),
			e.Description,
			e.DisplayCategory().Name,
			core.FormatAmount(e.Amount),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename returns the suggested attachment name for an export.
func Filename(prefix string, day core.Date) string {
	return fmt.Sprintf("%s-%s.csv", prefix, day.String())
}
