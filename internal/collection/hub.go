package collection

import (
	"context"
	"log/slog"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/feed"
	"bilancio/internal/store"
)

// Tables is the slice of the store the hub reads and mutates through.
type Tables interface {
	store.Expenses
	store.Payments
	store.Categories
}

// Set groups the three synchronized collections of one owner.
type Set struct {
	Expenses   *Synced[core.Expense]
	Payments   *Synced[core.Payment]
	Categories *Synced[core.Category]
}

func (v *Set) close() {
	v.Expenses.Close()
	v.Payments.Close()
	v.Categories.Close()
}

// Hub owns one Set per owner, built lazily on first access, primed with an
// initial fetch and kept subscribed to the change feed until Close. Request
// handlers read and mutate through these sets, so the optimistic splice and
// the feed-triggered refetch serve every session for as long as the process
// lives.
type Hub struct {
	tables Tables
	bus    feed.Bus
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	sets   map[string]*Set
	closed bool
}

// NewHub creates an empty hub. Pass a nil bus to run without a feed; sets
// then converge through post-mutation refetches only.
func NewHub(tables Tables, bus feed.Bus) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		tables: tables,
		bus:    bus,
		ctx:    ctx,
		cancel: cancel,
		sets:   make(map[string]*Set),
	}
}

// For returns the owner's collection set, building it on first access. The
// initial fetch must succeed so a fresh session never starts from an empty
// snapshot with no banner explaining why.
func (h *Hub) For(ctx context.Context, ownerID string) (*Set, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	if set, ok := h.sets[ownerID]; ok {
		return set, nil
	}

	set, err := h.build(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	h.sets[ownerID] = set
	return set, nil
}

func (h *Hub) build(ctx context.Context, ownerID string) (*Set, error) {
	expenses, err := ForExpenses(h.tables, h.bus, ownerID)
	if err != nil {
		return nil, err
	}
	payments, err := ForPayments(h.tables, h.bus, ownerID)
	if err != nil {
		return nil, err
	}
	categories, err := ForCategories(h.tables, h.bus, ownerID)
	if err != nil {
		return nil, err
	}
	set := &Set{Expenses: expenses, Payments: payments, Categories: categories}

	for _, prime := range []func(context.Context) error{
		expenses.Refetch, payments.Refetch, categories.Refetch,
	} {
		if err := prime(ctx); err != nil {
			set.close()
			return nil, err
		}
	}

	if h.bus != nil {
		// Subscriptions outlive the request that triggered the build;
		// they run on the hub's context and die with Close. A failed
		// subscribe is not fatal: the set still converges through
		// post-mutation refetches, just without live feed updates.
		for _, err := range []error{
			expenses.Subscribe(h.ctx),
			payments.Subscribe(h.ctx),
			categories.Subscribe(h.ctx),
		} {
			if err != nil {
				slog.WarnContext(ctx, "Collection subscribe failed, serving without feed",
					"owner_id", ownerID, "error", err)
			}
		}
	}
	return set, nil
}

// Close tears down every set and its feed subscriptions. Idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	sets := h.sets
	h.sets = nil
	h.mu.Unlock()

	h.cancel()
	for _, set := range sets {
		set.close()
	}
}
