package swrcache

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventReason says why an event was delivered.
type EventReason uint8

const (
	// ReasonUpdated - the entry's result changed (fetch, Set, or rollback).
	ReasonUpdated EventReason = iota
	// ReasonCleared - the entry was removed by Clear. The subscription is
	// not carried over to a recreated entry.
	ReasonCleared
)

func (r EventReason) String() string {
	switch r {
	case ReasonUpdated:
		return "updated"
	case ReasonCleared:
		return "cleared"
	}
	return "unknown"
}

// Event describes one observed change of a key.
type Event struct {
	Key      Key
	Snapshot Snapshot
	Reason   EventReason
}

// Subscription delivers change events for one key and holds a reference on
// its entry while active.
type Subscription struct {
	// C receives change events. It has capacity 1 with latest-wins
	// replacement: an undelivered event is replaced by a newer one, so a
	// slow receiver always observes the most recent change. C is never
	// closed; select against your own done channel.
	C <-chan Event

	id    uuid.UUID
	key   Key
	ch    chan Event
	cache *cache
	once  sync.Once

	// mu serializes delivery; lastSeq is the newest event sequence this
	// subscription has handled. Together they keep delivery monotonic when
	// concurrent writers flush out of order.
	mu      sync.Mutex
	lastSeq uint64
}

// ID is the subscriber token, usable for log correlation.
func (s *Subscription) ID() uuid.UUID { return s.id }

// Key is the subscribed key.
func (s *Subscription) Key() Key { return s.key }

// Cancel removes the subscription and releases its reference. Idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(func() { s.cache.unsubscribe(s) })
}

func (c *cache) Subscribe(key Key) (*Subscription, Snapshot) {
	ch := make(chan Event, 1)
	sub := &Subscription{
		C:     ch,
		id:    uuid.New(),
		key:   key,
		ch:    ch,
		cache: c,
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return sub, Snapshot{Key: key, State: Loading}
	}
	e := c.getOrCreateLocked(key)
	c.attachRefLocked(e)
	e.subs[sub.id] = sub
	e.lastAccess = c.clk.Now()
	snap := c.snapshotLocked(e, c.clk.Now())
	c.mu.Unlock()
	return sub, snap
}

func (c *cache) unsubscribe(s *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[s.key]
	if !ok {
		return
	}
	if _, registered := e.subs[s.id]; !registered {
		return
	}
	delete(e.subs, s.id)
	c.detachRefLocked(e)
}

// pendingEvent is an event captured under the store lock for delivery after
// it is released. seq is assigned under the lock, so it reflects the true
// order of the writes even when the flushes race each other.
type pendingEvent struct {
	subs []*Subscription
	ev   Event
	seq  uint64
}

// changeEventLocked snapshots e for its current subscribers.
func (c *cache) changeEventLocked(e *entry, now time.Time, reason EventReason) pendingEvent {
	e.eventSeq++
	return pendingEvent{
		subs: e.subscribers(),
		ev:   Event{Key: e.key, Snapshot: c.snapshotLocked(e, now), Reason: reason},
		seq:  e.eventSeq,
	}
}

func (c *cache) flush(pending []pendingEvent) {
	for _, p := range pending {
		c.deliver(p)
	}
}

// deliver never blocks the engine: each subscriber channel holds at most one
// pending event and a newer event replaces an undelivered one. Delivery is
// monotonic per subscription - an event that lost the race to a newer one is
// dropped, never delivered late over it.
func (c *cache) deliver(p pendingEvent) {
	for _, s := range p.subs {
		s.mu.Lock()
		if p.seq <= s.lastSeq {
			s.mu.Unlock()
			continue
		}
		s.lastSeq = p.seq
		select {
		case s.ch <- p.ev:
			s.mu.Unlock()
			continue
		default:
		}
		select {
		case <-s.ch:
			c.hk.SubscriberLagged(p.ev.Key.String(), s.id.String())
		default:
		}
		select {
		case s.ch <- p.ev:
		default:
		}
		s.mu.Unlock()
	}
}
