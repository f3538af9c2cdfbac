package collection

import (
	"context"

	"bilancio/internal/core"
	"bilancio/internal/feed"
	"bilancio/internal/store"
)

// ForExpenses binds a synchronized collection to the expenses table.
func ForExpenses(st store.Expenses, bus feed.Bus, ownerID string) (*Synced[core.Expense], error) {
	return New(Config[core.Expense]{
		Table:   feed.TableExpenses,
		OwnerID: ownerID,
		Bus:     bus,
		Fetch:   st.ListExpenses,
		Insert: func(ctx context.Context, e core.Expense) (core.Expense, error) {
			e.OwnerID = ownerID
			return st.InsertExpense(ctx, e)
		},
		Update: st.UpdateExpense,
		Delete: st.DeleteExpense,
		ID:     func(e core.Expense) string { return e.ID },
	})
}

// ForPayments binds a synchronized collection to the upcoming payments table.
func ForPayments(st store.Payments, bus feed.Bus, ownerID string) (*Synced[core.Payment], error) {
	return New(Config[core.Payment]{
		Table:   feed.TablePayments,
		OwnerID: ownerID,
		Bus:     bus,
		Fetch:   st.ListPayments,
		Insert: func(ctx context.Context, p core.Payment) (core.Payment, error) {
			p.OwnerID = ownerID
			return st.InsertPayment(ctx, p)
		},
		Update: st.UpdatePayment,
		Delete: st.DeletePayment,
		ID:     func(p core.Payment) string { return p.ID },
	})
}

// ForCategories binds a synchronized collection to the categories table.
func ForCategories(st store.Categories, bus feed.Bus, ownerID string) (*Synced[core.Category], error) {
	return New(Config[core.Category]{
		Table:   feed.TableCategories,
		OwnerID: ownerID,
		Bus:     bus,
		Fetch:   st.ListCategories,
		Insert: func(ctx context.Context, c core.Category) (core.Category, error) {
			return st.InsertCategory(ctx, ownerID, c)
		},
		Update: st.UpdateCategory,
		Delete: st.DeleteCategory,
		ID:     func(c core.Category) string { return c.ID },
	})
}
