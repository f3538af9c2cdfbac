package feed

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryBus is an in-process Bus for local runs and tests. Delivery is
// per-subscription buffered; a subscriber that stops draining loses events
// rather than blocking publishers, which is acceptable because events are
// only refetch triggers.
type MemoryBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*memorySub
}

type memorySub struct {
	table   string
	ownerID string
	ch      chan Event
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]*memorySub)}
}

// Publish delivers e to every subscription matching its table and owner.
func (b *MemoryBus) Publish(ctx context.Context, e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.table != e.Table || sub.ownerID != e.OwnerID {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			// Subscriber is not draining; the next refetch trigger
			// supersedes this one anyway.
			slog.WarnContext(ctx, "Dropping feed event for slow subscriber",
				"table", e.Table, "op", string(e.Op))
		}
	}
	return nil
}

// Subscribe opens a stream filtered to (table, ownerID).
func (b *MemoryBus) Subscribe(_ context.Context, table, ownerID string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &memorySub{table: table, ownerID: ownerID, ch: make(chan Event, 16)}
	b.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return newSubscription(sub.ch, cancel), nil
}

// SubscriberCount reports the number of live subscriptions, for tests and
// diagnostics.
func (b *MemoryBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
