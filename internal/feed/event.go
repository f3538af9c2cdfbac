// Package feed carries row-level change notifications from the store to the
// synchronized collections. Every mutation publishes one event; subscribers
// react by refetching, never by patching incrementally.
package feed

import (
	"context"
	"encoding/json"
	"time"
)

// Op is the kind of row change an event describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Table names the logical collections the feed covers.
const (
	TableExpenses   = "expenses"
	TablePayments   = "payments"
	TableCategories = "categories"
	TableSettings   = "settings"
)

// Event is one row-level change notification. Subscribers treat it purely as
// a refetch trigger; the payload deliberately carries no row data.
type Event struct {
	Table    string    `json:"table"`
	Op       Op        `json:"op"`
	OwnerID  string    `json:"owner_id"`
	RecordID string    `json:"record_id"`
	At       time.Time `json:"at"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(table string, op Op, ownerID, recordID string) Event {
	return Event{Table: table, Op: op, OwnerID: ownerID, RecordID: recordID, At: time.Now()}
}

// ToJSON converts the event to its wire form.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON parses an event from its wire form.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Bus is the transport behind the change feed. Subscriptions are always
// scoped to (table, owner): the bus never delivers another owner's events.
type Bus interface {
	// Publish emits an event to every live subscription matching its
	// table and owner.
	Publish(ctx context.Context, e Event) error

	// Subscribe opens a push stream for one table and owner. The caller
	// must Close the subscription when the owning view goes away.
	Subscribe(ctx context.Context, table, ownerID string) (*Subscription, error)
}

// Subscription is one live change stream. Events closes when the
// subscription is torn down or the transport fails.
type Subscription struct {
	events <-chan Event
	cancel func()
}

func newSubscription(events <-chan Event, cancel func()) *Subscription {
	return &Subscription{events: events, cancel: cancel}
}

// Events returns the stream of change notifications.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription) Close() {
	s.cancel()
}
