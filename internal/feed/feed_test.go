package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "event channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestEventJSONRoundTrip(t *testing.T) {
	e := NewEvent(TableExpenses, OpUpdate, "owner-1", "rec-1")
	data, err := e.ToJSON()
	require.NoError(t, err)

	got, err := EventFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, e.Table, got.Table)
	assert.Equal(t, e.Op, got.Op)
	assert.Equal(t, e.OwnerID, got.OwnerID)
	assert.Equal(t, e.RecordID, got.RecordID)

	_, err = EventFromJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestMemoryBusFiltersByTableAndOwner(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()

	sub, err := bus.Subscribe(ctx, TableExpenses, "owner-1")
	require.NoError(t, err)
	defer sub.Close()

	// Same table, different owner: must not be delivered.
	require.NoError(t, bus.Publish(ctx, NewEvent(TableExpenses, OpInsert, "owner-2", "x")))
	// Different table, same owner: must not be delivered.
	require.NoError(t, bus.Publish(ctx, NewEvent(TablePayments, OpInsert, "owner-1", "y")))
	// Matching scope.
	require.NoError(t, bus.Publish(ctx, NewEvent(TableExpenses, OpDelete, "owner-1", "z")))

	e := waitEvent(t, sub.Events())
	assert.Equal(t, "z", e.RecordID)
	assert.Equal(t, OpDelete, e.Op)

	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected extra event: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBusCloseRemovesSubscription(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()

	sub, err := bus.Subscribe(ctx, TableExpenses, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, bus.SubscriberCount())

	sub.Close()
	sub.Close() // idempotent
	assert.Equal(t, 0, bus.SubscriberCount())

	_, ok := <-sub.Events()
	assert.False(t, ok, "events channel should be closed after Close")
}

func TestSubscriberLifecycle(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()
	s := NewSubscriber(bus, TablePayments, "owner-1")

	assert.Equal(t, StateUnsubscribed, s.State())

	got := make(chan Event, 1)
	require.NoError(t, s.Start(ctx, func(e Event) { got <- e }))
	assert.Equal(t, StateSubscribed, s.State())

	require.NoError(t, bus.Publish(ctx, NewEvent(TablePayments, OpUpdate, "owner-1", "p1")))
	e := waitEvent(t, got)
	assert.Equal(t, "p1", e.RecordID)

	s.Stop()
	s.Stop() // idempotent
	assert.Eventually(t, func() bool { return s.State() == StateUnsubscribed },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, bus.SubscriberCount(), "no orphaned subscription may outlive its view")
}

func TestSubscriberRestartReplacesSubscription(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()
	s := NewSubscriber(bus, TableExpenses, "owner-1")

	got := make(chan Event, 8)
	require.NoError(t, s.Start(ctx, func(e Event) { got <- e }))
	require.NoError(t, s.Start(ctx, func(e Event) { got <- e }))

	// Exactly one live subscription per (subscriber, table): restarting must
	// not stack streams, or every write would refetch twice.
	assert.Eventually(t, func() bool { return bus.SubscriberCount() == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Publish(ctx, NewEvent(TableExpenses, OpInsert, "owner-1", "e1")))
	waitEvent(t, got)
	select {
	case extra := <-got:
		t.Fatalf("duplicate delivery after restart: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}

	s.Stop()
}

func TestSubscriberTransportFailure(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus()
	s := NewSubscriber(bus, TableExpenses, "owner-1")

	require.NoError(t, s.Start(ctx, func(Event) {}))

	// Simulate a transport failure by closing the underlying stream out
	// from under the subscriber.
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	sub.cancel()

	assert.Eventually(t, func() bool { return s.State() == StateError },
		time.Second, 10*time.Millisecond)

	// Manual remount recovers.
	require.NoError(t, s.Start(ctx, func(Event) {}))
	assert.Equal(t, StateSubscribed, s.State())
	s.Stop()
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unsubscribed", StateUnsubscribed.String())
	assert.Equal(t, "subscribing", StateSubscribing.String())
	assert.Equal(t, "subscribed", StateSubscribed.String())
	assert.Equal(t, "error", StateError.String())
}
