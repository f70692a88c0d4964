// Package realtime implements the change-driven core of the marketplace:
// a broker of named subscription channels fed by the Postgres change feed,
// and the reconcilers that turn change events into per-user state
// (pending-request notifications, request-scoped chat, and the
// pending→accepted lifecycle trigger).
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
)

// ChangeEvent is one committed row change as emitted by the database
// triggers. Old is present only for updates.
type ChangeEvent struct {
	Kind  EventKind
	Table string
	Old   json.RawMessage
	New   json.RawMessage
}

// Filter narrows a subscription to one event kind on one table, optionally
// requiring a column of the new row to equal a value (e.g. provider_id).
type Filter struct {
	Kind   EventKind
	Table  string
	Column string
	Equals string
}

func (f Filter) matches(evt ChangeEvent) bool {
	if evt.Kind != f.Kind || evt.Table != f.Table {
		return false
	}
	if f.Column == "" {
		return true
	}
	var row map[string]any
	if err := json.Unmarshal(evt.New, &row); err != nil {
		return false
	}
	value, ok := row[f.Column].(string)
	return ok && value == f.Equals
}

type Handler func(ChangeEvent)

// Subscription is the release capability returned by Subscribe. Close is
// idempotent: calling it any number of times tears the channel down once.
type Subscription struct {
	name    string
	filter  Filter
	handler Handler
	broker  *Broker
	once    sync.Once

	mu     sync.Mutex
	resync func()
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s)
	})
}

// HandleResync registers a callback invoked after the change feed
// reconnects. Events committed during the gap are never replayed, so the
// owner is expected to re-run its initial load.
func (s *Subscription) HandleResync(fn func()) {
	s.mu.Lock()
	s.resync = fn
	s.mu.Unlock()
}

// Broker owns the live subscriptions and dispatches change events to them
// in publish order. At most one subscription is live per channel name;
// subscribing an already-live name releases the previous holder first.
type Broker struct {
	mu    sync.Mutex
	subs  map[string]*Subscription
	queue chan ChangeEvent
	log   zerolog.Logger
}

func NewBroker(log zerolog.Logger) *Broker {
	return &Broker{
		subs:  make(map[string]*Subscription),
		queue: make(chan ChangeEvent, 256),
		log:   log.With().Str("component", "broker").Logger(),
	}
}

func (b *Broker) Subscribe(name string, filter Filter, handler Handler) *Subscription {
	sub := &Subscription{
		name:    name,
		filter:  filter,
		handler: handler,
		broker:  b,
	}

	b.mu.Lock()
	if _, ok := b.subs[name]; ok {
		delete(b.subs, name)
		b.log.Debug().Str("channel", name).Msg("replacing live subscription")
	}
	b.subs[name] = sub
	b.mu.Unlock()

	b.log.Debug().Str("channel", name).Str("table", filter.Table).Msg("subscribed")
	return sub
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	if current, ok := b.subs[s.name]; ok && current == s {
		delete(b.subs, s.name)
	}
	b.mu.Unlock()
	b.log.Debug().Str("channel", s.name).Msg("unsubscribed")
}

// Publish enqueues an event for dispatch. Events are delivered to matching
// handlers one at a time in the order they were published, which preserves
// the database commit order the feed hands us.
func (b *Broker) Publish(evt ChangeEvent) {
	b.queue <- evt
}

// Resync notifies every live subscription that the feed reconnected and
// state loaded before the gap can no longer be trusted.
func (b *Broker) Resync() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		fn := sub.resync
		sub.mu.Unlock()
		if fn != nil {
			fn()
		}
	}
}

// Run consumes the publish queue until ctx is cancelled. It is the only
// goroutine that invokes handlers, so handlers never race each other.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-b.queue:
			b.dispatch(evt)
		}
	}
}

func (b *Broker) dispatch(evt ChangeEvent) {
	b.mu.Lock()
	matched := make([]*Subscription, 0, 4)
	for _, sub := range b.subs {
		if sub.filter.matches(evt) {
			matched = append(matched, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range matched {
		sub.handler(evt)
	}
}
