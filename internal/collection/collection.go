// Package collection implements the synchronized collection pattern shared
// by every entity view: fetch a per-owner collection from the store,
// subscribe to its change feed, splice optimistic local mutations, and keep
// converging on the server's latest snapshot. One generic abstraction covers
// expenses, payments and categories alike; nothing here is entity-specific.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"bilancio/internal/feed"
)

// ErrClosed is returned from operations on a collection whose owning view
// has gone away.
var ErrClosed = errors.New("collection closed")

// Config wires a Synced collection to one table of the store.
type Config[T any] struct {
	Table   string
	OwnerID string
	Bus     feed.Bus

	// Fetch returns the authoritative snapshot for the owner.
	Fetch func(ctx context.Context, ownerID string) ([]T, error)
	// Insert/Update/Delete are the table's mutation calls. Each returns
	// the server-confirmed row; the collection never applies anything
	// else to local state.
	Insert func(ctx context.Context, rec T) (T, error)
	Update func(ctx context.Context, ownerID, id string, rec T) (T, error)
	Delete func(ctx context.Context, ownerID, id string) error
	// ID extracts the record identifier used for splicing.
	ID func(T) string
}

func (c Config[T]) validate() error {
	if c.Table == "" || c.OwnerID == "" {
		return errors.New("collection: table and owner are required")
	}
	if c.Fetch == nil || c.ID == nil {
		return errors.New("collection: fetch and id functions are required")
	}
	return nil
}

// Synced is a change-feed-synchronized view of one table, scoped to one
// owner. The in-memory snapshot is a cache: the store is the source of
// truth, and every mutation and every feed event funnels into the same
// idempotent refetch.
type Synced[T any] struct {
	cfg Config[T]
	sub *feed.Subscriber

	mu       sync.Mutex
	items    []T
	lastErr  string
	inflight int
	closed   bool
	// gen is the generation of the most recently issued refetch. A
	// completing refetch applies its result only while it is still the
	// latest issued, so a slow stale response can never overwrite a
	// fresher one.
	gen uint64
}

// New builds a synchronized collection. Call Subscribe to attach the change
// feed and Close when the owning view unmounts.
func New[T any](cfg Config[T]) (*Synced[T], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Synced[T]{cfg: cfg}
	if cfg.Bus != nil {
		s.sub = feed.NewSubscriber(cfg.Bus, cfg.Table, cfg.OwnerID)
	}
	return s, nil
}

// Refetch loads the authoritative snapshot. On failure the previous snapshot
// stays available and the error is recorded as the dismissible banner string
// (stale-but-available); on success any banner is cleared. Safe to call
// concurrently: the last issued refetch wins.
func (s *Synced[T]) Refetch(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.gen++
	gen := s.gen
	s.inflight++
	s.mu.Unlock()

	items, err := s.cfg.Fetch(ctx, s.cfg.OwnerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.closed || gen != s.gen {
		// Unmounted, or a newer refetch was issued while this one was in
		// flight: drop the result either way.
		return nil
	}
	if err != nil {
		s.lastErr = err.Error()
		slog.ErrorContext(ctx, "Collection refetch failed, keeping previous snapshot",
			"table", s.cfg.Table, "error", err)
		return fmt.Errorf("refetch %s: %w", s.cfg.Table, err)
	}
	s.items = items
	s.lastErr = ""
	return nil
}

// Subscribe opens the change feed for this collection's scope. Any previous
// subscription is torn down first; every event triggers a refetch.
func (s *Synced[T]) Subscribe(ctx context.Context) error {
	if s.sub == nil {
		return errors.New("collection: no feed bus configured")
	}
	return s.sub.Start(ctx, func(feed.Event) {
		// Full refetch rather than an incremental patch: the collection
		// is small, and both the optimistic path and the feed path then
		// converge through the same function.
		if err := s.Refetch(ctx); err != nil && !errors.Is(err, ErrClosed) {
			slog.WarnContext(ctx, "Feed-triggered refetch failed",
				"table", s.cfg.Table, "error", err)
		}
	})
}

// FeedState reports the subscriber lifecycle state.
func (s *Synced[T]) FeedState() feed.State {
	if s.sub == nil {
		return feed.StateUnsubscribed
	}
	return s.sub.State()
}

// Close tears down the subscription and invalidates in-flight refetches.
// Mandatory on unmount: an orphaned subscription would refetch the whole
// collection on every server-side write for as long as the process lives.
func (s *Synced[T]) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if s.sub != nil {
		s.sub.Stop()
	}
}

// Insert sends the record to the store and, on success, splices the
// server-returned row into local state before the follow-up refetch lands.
// A rejected insert leaves local state exactly as it was: nothing is ever
// applied from the client's intended values.
func (s *Synced[T]) Insert(ctx context.Context, rec T) (T, error) {
	var zero T
	if s.isClosed() {
		return zero, ErrClosed
	}
	if s.cfg.Insert == nil {
		return zero, fmt.Errorf("collection %s: insert not supported", s.cfg.Table)
	}

	confirmed, err := s.cfg.Insert(ctx, rec)
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	if !s.closed {
		s.items = append(s.items, confirmed)
	}
	s.mu.Unlock()

	s.refetchAfterMutation(ctx)
	return confirmed, nil
}

// Update sends the patch and splices the server-returned row by id,
// replacing the prior value entirely so stale nested fields (an old joined
// category, for one) cannot survive a partial merge.
func (s *Synced[T]) Update(ctx context.Context, id string, rec T) (T, error) {
	var zero T
	if s.isClosed() {
		return zero, ErrClosed
	}
	if s.cfg.Update == nil {
		return zero, fmt.Errorf("collection %s: update not supported", s.cfg.Table)
	}

	confirmed, err := s.cfg.Update(ctx, s.cfg.OwnerID, id, rec)
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	if !s.closed {
		for i := range s.items {
			if s.cfg.ID(s.items[i]) == id {
				s.items[i] = confirmed
				break
			}
		}
	}
	s.mu.Unlock()

	s.refetchAfterMutation(ctx)
	return confirmed, nil
}

// Delete removes the record on the server, then drops it from local state.
func (s *Synced[T]) Delete(ctx context.Context, id string) error {
	if s.isClosed() {
		return ErrClosed
	}
	if s.cfg.Delete == nil {
		return fmt.Errorf("collection %s: delete not supported", s.cfg.Table)
	}

	if err := s.cfg.Delete(ctx, s.cfg.OwnerID, id); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.closed {
		kept := s.items[:0]
		for _, it := range s.items {
			if s.cfg.ID(it) != id {
				kept = append(kept, it)
			}
		}
		s.items = kept
	}
	s.mu.Unlock()

	s.refetchAfterMutation(ctx)
	return nil
}

// refetchAfterMutation guarantees eventual consistency with any server-side
// defaults after the optimistic splice. Its error, if any, already landed in
// the banner string; the mutation itself succeeded.
func (s *Synced[T]) refetchAfterMutation(ctx context.Context) {
	if err := s.Refetch(ctx); err != nil && !errors.Is(err, ErrClosed) {
		slog.WarnContext(ctx, "Post-mutation refetch failed",
			"table", s.cfg.Table, "error", err)
	}
}

// Snapshot returns a copy of the current in-memory collection.
func (s *Synced[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Loading reports whether any refetch is in flight, for presentation gating.
func (s *Synced[T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// LastError returns the dismissible fetch-error banner, empty when the last
// refetch succeeded.
func (s *Synced[T]) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError dismisses the banner.
func (s *Synced[T]) ClearError() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Synced[T]) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
