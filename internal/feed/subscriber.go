package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// State tracks the subscriber lifecycle:
//
//	Unsubscribed -> Subscribing -> Subscribed -> Unsubscribed (explicit stop)
//	Subscribed -> Error (transport failure; logged, not retried in-session)
type State int

const (
	StateUnsubscribed State = iota
	StateSubscribing
	StateSubscribed
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnsubscribed:
		return "unsubscribed"
	case StateSubscribing:
		return "subscribing"
	case StateSubscribed:
		return "subscribed"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Subscriber owns exactly one live subscription for a (table, owner) scope
// and dispatches its events to a callback. Starting again first tears down
// the previous subscription, so duplicate streams (and the duplicate refetch
// storms they cause) cannot exist. Stop is mandatory when the owning view
// goes away: an orphaned subscription would keep triggering a full refetch
// on every server-side write, without bound.
type Subscriber struct {
	bus     Bus
	table   string
	ownerID string

	mu       sync.Mutex
	state    State
	sub      *Subscription
	stopping bool
}

// NewSubscriber creates a subscriber for one table and owner scope.
func NewSubscriber(bus Bus, table, ownerID string) *Subscriber {
	return &Subscriber{bus: bus, table: table, ownerID: ownerID}
}

// Start opens the change stream and invokes onEvent for every notification.
// Any previous subscription held by this subscriber is torn down first. A
// transport failure moves the subscriber to StateError and stops delivery;
// recovery is a manual Stop/Start cycle, never an automatic retry.
func (s *Subscriber) Start(ctx context.Context, onEvent func(Event)) error {
	s.mu.Lock()
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
	s.stopping = false
	s.state = StateSubscribing
	s.mu.Unlock()

	sub, err := s.bus.Subscribe(ctx, s.table, s.ownerID)
	if err != nil {
		s.mu.Lock()
		s.state = StateError
		s.mu.Unlock()
		slog.ErrorContext(ctx, "Failed to open change feed",
			"table", s.table, "error", err)
		return fmt.Errorf("subscribe %s: %w", s.table, err)
	}

	s.mu.Lock()
	s.sub = sub
	s.state = StateSubscribed
	s.mu.Unlock()

	go func() {
		for e := range sub.Events() {
			onEvent(e)
		}
		// Stream closed: either a deliberate teardown or a transport
		// failure.
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.sub != sub {
			return // superseded by a newer Start
		}
		s.sub = nil
		if s.stopping {
			s.state = StateUnsubscribed
			return
		}
		s.state = StateError
		slog.Warn("Change feed closed unexpectedly, degrading to manual refresh",
			"table", s.table)
	}()

	slog.DebugContext(ctx, "Change feed subscribed", "table", s.table)
	return nil
}

// Stop tears down the live subscription, if any. Idempotent.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	sub := s.sub
	if sub != nil {
		s.stopping = true
	}
	s.state = StateUnsubscribed
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// State returns the current lifecycle state.
func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
