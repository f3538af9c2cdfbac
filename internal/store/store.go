// Package store is the collection backend behind the synchronized views:
// per-table CRUD, always scoped to an owner. The server-confirmed row is the
// only thing a caller may apply to local state; reads join the category and
// substitute the Uncategorized sentinel for a missing join so downstream
// aggregation never sees a zero category.
package store

import (
	"context"
	"errors"

	"bilancio/internal/core"
)

var (
	// ErrNotFound covers both genuinely missing rows and rows owned by a
	// different account; ownership checks deliberately do not leak which.
	ErrNotFound = errors.New("record not found")

	// ErrCategoryInUse rejects deleting a category still referenced by an
	// expense or upcoming payment.
	ErrCategoryInUse = errors.New("category is referenced by existing records")
)

// Expenses is the remote collection client for the expenses table.
type Expenses interface {
	ListExpenses(ctx context.Context, ownerID string) ([]core.Expense, error)
	InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, ownerID, id string, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, ownerID, id string) error
}

// Payments is the remote collection client for the upcoming payments table.
type Payments interface {
	ListPayments(ctx context.Context, ownerID string) ([]core.Payment, error)
	InsertPayment(ctx context.Context, p core.Payment) (core.Payment, error)
	UpdatePayment(ctx context.Context, ownerID, id string, p core.Payment) (core.Payment, error)
	DeletePayment(ctx context.Context, ownerID, id string) error
}

// Categories is the remote collection client for the categories table.
type Categories interface {
	ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
	InsertCategory(ctx context.Context, ownerID string, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, ownerID, id string, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, ownerID, id string) error
}

// SettingsStore holds the one-row-per-account settings table. GetSettings
// creates the row lazily with defaults on first access.
type SettingsStore interface {
	GetSettings(ctx context.Context, ownerID string) (core.Settings, error)
	PutSettings(ctx context.Context, s core.Settings) (core.Settings, error)
}

// Store is the full backend boundary.
type Store interface {
	Expenses
	Payments
	Categories
	SettingsStore
	Close() error
}
