package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedName is the display name substituted when a record has no
// joined category. UncategorizedColor is its neutral swatch.
const (
	UncategorizedName  = "Uncategorized"
	UncategorizedColor = "#cccccc"
)

type (
	// Date is a calendar date with no time-of-day component. All dates are
	// normalized to midnight UTC so equality and bucketing never depend on
	// the local zone.
	Date struct {
		time.Time
	}

	Category struct {
		ID    string
		Name  string
		Color string
	}

	Expense struct {
		ID          string
		OwnerID     string
		Amount      decimal.Decimal
		Description string
		Date        Date
		CategoryID  string
		Category    Category
		CreatedAt   time.Time
	}

	Payment struct {
		ID          string
		OwnerID     string
		Title       string
		Amount      decimal.Decimal
		DueDate     Date
		IsPaid      bool
		IsRecurring bool
		CategoryID  string
		Category    Category
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// Settings is the per-account row, created lazily on first access.
	Settings struct {
		OwnerID       string
		MonthlyBudget decimal.Decimal
		Currency      string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyOwner       = errors.New("empty owner")
)

// Uncategorized returns the sentinel category substituted at read time for a
// missing category join, so downstream aggregations can assume a non-zero
// category on every record.
func Uncategorized() Category {
	return Category{ID: "", Name: UncategorizedName, Color: UncategorizedColor}
}

// IsUncategorized reports whether c is the missing-join sentinel.
func (c Category) IsUncategorized() bool {
	return c.ID == "" && c.Name == UncategorizedName
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	return nil
}

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// SameDay reports whether two dates fall on the same calendar day. Comparison
// is by (day, month, year), never by formatted-string equality.
func (d Date) SameDay(other Date) bool {
	return d.Day() == other.Day() && d.Month() == other.Month() && d.Year() == other.Year()
}

// Before reports whether d is strictly before other, at day granularity.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time) && !d.SameDay(other)
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(a decimal.Decimal) error {
	if a.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return ValidateAmount(e.Amount)
}

// DisplayCategory returns the joined category, or the Uncategorized sentinel
// when the join is missing.
func (e Expense) DisplayCategory() Category {
	if e.Category.Name == "" {
		return Uncategorized()
	}
	return e.Category
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	if len(p.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := p.DueDate.Validate(); err != nil {
		return err
	}
	return ValidateAmount(p.Amount)
}

func (p Payment) DisplayCategory() Category {
	if p.Category.Name == "" {
		return Uncategorized()
	}
	return p.Category
}

// IsOverdue is derived, never stored: due before today and not paid. Callers
// pass the current date so the answer tracks "today" over a long-lived view.
func (p Payment) IsOverdue(today Date) bool {
	return p.DueDate.Before(today) && !p.IsPaid
}

// DefaultSettings returns the row created lazily on first access.
func DefaultSettings(ownerID string) Settings {
	return Settings{
		OwnerID:       ownerID,
		MonthlyBudget: decimal.NewFromInt(2000),
		Currency:      "USD",
	}
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if s.MonthlyBudget.Sign() < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(s.Currency) == "" {
		return errors.New("empty currency")
	}
	return nil
}
