package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/feed"
)

// MemoryStore is an in-process Store for local runs and tests.
type MemoryStore struct {
	mu         sync.Mutex
	bus        feed.Bus
	expenses   map[string]core.Expense
	payments   map[string]core.Payment
	categories map[string]core.Category
	catOwner   map[string]string
	settings   map[string]core.Settings
}

// NewMemoryStore creates an empty in-memory store. Change events for every
// successful mutation go out on bus; pass nil to disable the feed.
func NewMemoryStore(bus feed.Bus) *MemoryStore {
	return &MemoryStore{
		bus:        bus,
		expenses:   make(map[string]core.Expense),
		payments:   make(map[string]core.Payment),
		categories: make(map[string]core.Category),
		catOwner:   make(map[string]string),
		settings:   make(map[string]core.Settings),
	}
}

func (s *MemoryStore) publish(ctx context.Context, table string, op feed.Op, ownerID, recordID string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, feed.NewEvent(table, op, ownerID, recordID)); err != nil {
		// The mutation itself succeeded; a lost notification only delays
		// the next refetch.
		slog.ErrorContext(ctx, "Failed to publish change event",
			"table", table, "op", string(op), "error", err)
	}
}

// joinCategory resolves the joined category for a record, falling back to
// the Uncategorized sentinel. Caller holds the lock.
func (s *MemoryStore) joinCategory(ownerID, categoryID string) core.Category {
	if categoryID != "" {
		if cat, ok := s.categories[categoryID]; ok && s.catOwner[categoryID] == ownerID {
			return cat
		}
	}
	return core.Uncategorized()
}

func (s *MemoryStore) ListExpenses(_ context.Context, ownerID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0)
	for _, e := range s.expenses {
		if e.OwnerID != ownerID {
			continue
		}
		e.Category = s.joinCategory(ownerID, e.CategoryID)
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[j].Date.Before(out[i].Date)
		}
		return out[j].CreatedAt.Before(out[i].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	e.Category = s.joinCategory(e.OwnerID, e.CategoryID)
	s.expenses[e.ID] = e
	s.mu.Unlock()

	s.publish(ctx, feed.TableExpenses, feed.OpInsert, e.OwnerID, e.ID)
	return e, nil
}

func (s *MemoryStore) UpdateExpense(ctx context.Context, ownerID, id string, e core.Expense) (core.Expense, error) {
	e.OwnerID = ownerID
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	prev, ok := s.expenses[id]
	if !ok || prev.OwnerID != ownerID {
		s.mu.Unlock()
		return core.Expense{}, ErrNotFound
	}
	e.ID = id
	e.CreatedAt = prev.CreatedAt
	e.Category = s.joinCategory(ownerID, e.CategoryID)
	s.expenses[id] = e
	s.mu.Unlock()

	s.publish(ctx, feed.TableExpenses, feed.OpUpdate, ownerID, id)
	return e, nil
}

func (s *MemoryStore) DeleteExpense(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	prev, ok := s.expenses[id]
	if !ok || prev.OwnerID != ownerID {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.expenses, id)
	s.mu.Unlock()

	s.publish(ctx, feed.TableExpenses, feed.OpDelete, ownerID, id)
	return nil
}

func (s *MemoryStore) ListPayments(_ context.Context, ownerID string) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Payment, 0)
	for _, p := range s.payments {
		if p.OwnerID != ownerID {
			continue
		}
		p.Category = s.joinCategory(ownerID, p.CategoryID)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate.Time) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) InsertPayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Category = s.joinCategory(p.OwnerID, p.CategoryID)
	s.payments[p.ID] = p
	s.mu.Unlock()

	s.publish(ctx, feed.TablePayments, feed.OpInsert, p.OwnerID, p.ID)
	return p, nil
}

func (s *MemoryStore) UpdatePayment(ctx context.Context, ownerID, id string, p core.Payment) (core.Payment, error) {
	p.OwnerID = ownerID
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	prev, ok := s.payments[id]
	if !ok || prev.OwnerID != ownerID {
		s.mu.Unlock()
		return core.Payment{}, ErrNotFound
	}
	p.ID = id
	p.CreatedAt = prev.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.Category = s.joinCategory(ownerID, p.CategoryID)
	s.payments[id] = p
	s.mu.Unlock()

	s.publish(ctx, feed.TablePayments, feed.OpUpdate, ownerID, id)
	return p, nil
}

func (s *MemoryStore) DeletePayment(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	prev, ok := s.payments[id]
	if !ok || prev.OwnerID != ownerID {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.payments, id)
	s.mu.Unlock()

	// Delete notifications are owner-filtered like every other event; the
	// feed never broadcasts one account's deletes to all subscribers.
	s.publish(ctx, feed.TablePayments, feed.OpDelete, ownerID, id)
	return nil
}

func (s *MemoryStore) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0)
	for id, c := range s.categories {
		if s.catOwner[id] == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) InsertCategory(ctx context.Context, ownerID string, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	c.ID = uuid.NewString()
	s.categories[c.ID] = c
	s.catOwner[c.ID] = ownerID
	s.mu.Unlock()

	s.publish(ctx, feed.TableCategories, feed.OpInsert, ownerID, c.ID)
	return c, nil
}

func (s *MemoryStore) UpdateCategory(ctx context.Context, ownerID, id string, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	if _, ok := s.categories[id]; !ok || s.catOwner[id] != ownerID {
		s.mu.Unlock()
		return core.Category{}, ErrNotFound
	}
	c.ID = id
	s.categories[id] = c
	s.mu.Unlock()

	s.publish(ctx, feed.TableCategories, feed.OpUpdate, ownerID, id)
	return c, nil
}

func (s *MemoryStore) DeleteCategory(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	if _, ok := s.categories[id]; !ok || s.catOwner[id] != ownerID {
		s.mu.Unlock()
		return ErrNotFound
	}
	for _, e := range s.expenses {
		if e.OwnerID == ownerID && e.CategoryID == id {
			s.mu.Unlock()
			return ErrCategoryInUse
		}
	}
	for _, p := range s.payments {
		if p.OwnerID == ownerID && p.CategoryID == id {
			s.mu.Unlock()
			return ErrCategoryInUse
		}
	}
	delete(s.categories, id)
	delete(s.catOwner, id)
	s.mu.Unlock()

	s.publish(ctx, feed.TableCategories, feed.OpDelete, ownerID, id)
	return nil
}

func (s *MemoryStore) GetSettings(ctx context.Context, ownerID string) (core.Settings, error) {
	s.mu.Lock()
	existing, ok := s.settings[ownerID]
	if ok {
		s.mu.Unlock()
		return existing, nil
	}
	created := core.DefaultSettings(ownerID)
	s.settings[ownerID] = created
	s.mu.Unlock()

	s.publish(ctx, feed.TableSettings, feed.OpInsert, ownerID, ownerID)
	return created, nil
}

func (s *MemoryStore) PutSettings(ctx context.Context, settings core.Settings) (core.Settings, error) {
	if err := settings.Validate(); err != nil {
		return core.Settings{}, err
	}
	s.mu.Lock()
	s.settings[settings.OwnerID] = settings
	s.mu.Unlock()

	s.publish(ctx, feed.TableSettings, feed.OpUpdate, settings.OwnerID, settings.OwnerID)
	return settings, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
