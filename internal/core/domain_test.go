package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validExpense() Expense {
	return Expense{
		ID:          "e1",
		OwnerID:     "owner-1",
		Amount:      decimal.NewFromInt(10),
		Description: "Groceries",
		Date:        NewDate(2026, 8, 15),
		CategoryID:  "c1",
	}
}

func TestExpenseValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Expense)
		wantErr error
	}{
		{name: "valid", mutate: func(e *Expense) {}},
		{name: "empty owner", mutate: func(e *Expense) { e.OwnerID = " " }, wantErr: ErrEmptyOwner},
		{name: "zero date", mutate: func(e *Expense) { e.Date = Date{} }, wantErr: ErrInvalidDate},
		{name: "empty description", mutate: func(e *Expense) { e.Description = "" }, wantErr: ErrEmptyDescription},
		{name: "zero amount", mutate: func(e *Expense) { e.Amount = decimal.Zero }, wantErr: ErrInvalidAmount},
		{name: "negative amount", mutate: func(e *Expense) { e.Amount = decimal.NewFromInt(-3) }, wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validExpense()
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if tt.wantErr != nil && err != tt.wantErr {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDisplayCategoryDefaultsToUncategorized(t *testing.T) {
	e := validExpense()
	e.Category = Category{}

	got := e.DisplayCategory()
	if got.Name != UncategorizedName {
		t.Errorf("DisplayCategory().Name = %q, want %q", got.Name, UncategorizedName)
	}
	if got.Color != UncategorizedColor {
		t.Errorf("DisplayCategory().Color = %q, want %q", got.Color, UncategorizedColor)
	}
	if !got.IsUncategorized() {
		t.Error("sentinel category should report IsUncategorized")
	}

	e.Category = Category{ID: "c1", Name: "Food", Color: "#ff0000"}
	if got := e.DisplayCategory(); got.Name != "Food" {
		t.Errorf("DisplayCategory().Name = %q, want Food", got.Name)
	}
}

func TestPaymentIsOverdue(t *testing.T) {
	today := NewDate(2026, 8, 30)

	tests := []struct {
		name string
		due  Date
		paid bool
		want bool
	}{
		{name: "due yesterday unpaid", due: NewDate(2026, 8, 29), want: true},
		{name: "due yesterday paid", due: NewDate(2026, 8, 29), paid: true, want: false},
		{name: "due today", due: today, want: false},
		{name: "due tomorrow", due: NewDate(2026, 8, 31), want: false},
		{name: "due last year unpaid", due: NewDate(2025, 12, 1), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Payment{DueDate: tt.due, IsPaid: tt.paid}
			if got := p.IsOverdue(today); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDateSameDay(t *testing.T) {
	// Same calendar day built from different wall clocks must match.
	a := Date{Time: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)}
	b := DateOf(time.Date(2026, 3, 5, 23, 59, 0, 0, time.UTC))
	if !a.SameDay(b) {
		t.Error("expected same calendar day")
	}
	c := NewDate(2026, 3, 6)
	if a.SameDay(c) {
		t.Error("different days must not match")
	}
	if !a.Before(c) {
		t.Error("march 5 is before march 6")
	}
	if a.Before(b) {
		t.Error("a day is not before itself")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2026 || d.Month() != time.February || d.Day() != 28 {
		t.Errorf("ParseDate = %v", d)
	}
	if _, err := ParseDate("28/02/2026"); err == nil {
		t.Error("expected error for non ISO date")
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings("owner-1")
	if !s.MonthlyBudget.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("MonthlyBudget = %s, want 2000", s.MonthlyBudget)
	}
	if s.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", s.Currency)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("default settings should validate: %v", err)
	}
}
