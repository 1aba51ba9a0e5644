package swrcache

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// FetchFunc produces the value for one key. It runs on a background
// goroutine with a context scoped to the cache, not to the read that
// triggered it, and is cancelled on disposal, Clear, and Close.
type FetchFunc func(ctx context.Context) (any, error)

// Cache is the provider-result cache with layered temporal policies.
// All methods are safe for concurrent use.
type Cache interface {
	// ReadThrough returns the entry's current snapshot without blocking and
	// ensures a fetch is running when the entry is absent, Stale, or
	// Expired. fetch and policy attach to the key on first use.
	ReadThrough(ctx context.Context, key Key, fetch FetchFunc, policy EntryPolicy) Snapshot

	// Wait is ReadThrough plus blocking until the entry is servable. It
	// returns the stored failure as a *FetchError, or ctx.Err() when the
	// caller gives up first.
	Wait(ctx context.Context, key Key, fetch FetchFunc, policy EntryPolicy) (any, error)

	// Peek reports the current snapshot with no side effects: no fetch, no
	// policy attach, no access-time touch.
	Peek(key Key) (Snapshot, bool)

	// Set writes a value directly (the mutation path). A write structurally
	// equal to the stored value refreshes timestamps without notifying.
	Set(key Key, value any)

	// Invalidate keeps the last result visible, forces the entry Stale, and
	// immediately re-fetches when a fetch function is attached. Subscribers
	// are notified only when the refetch lands a different value.
	Invalidate(key Key)

	// Clear removes every entry and cancels all in-flight fetches and
	// scheduled work. Subscribers receive one Cleared event per key and are
	// not carried over; re-subscribe after re-reading.
	Clear()

	// Attach and Detach adjust the reference count that drives
	// auto-disposal. Detaching to zero arms the disposal deadline.
	Attach(key Key)
	Detach(key Key)

	// Subscribe registers for change events on key and holds a reference
	// (implies Attach). The snapshot is the state at subscription time;
	// Subscription.Cancel releases the reference.
	Subscribe(key Key) (*Subscription, Snapshot)

	// Apply runs a mutation: optimistic writes become visible immediately,
	// the commit runs to completion regardless of ctx cancellation, then the
	// invalidation set is re-fetched on success or the optimistic writes are
	// rolled back on failure.
	Apply(ctx context.Context, m Mutation) error

	// Stats reports point-in-time gauges and monotonic counters.
	Stats() Stats

	// Close clears the cache, stops background work, and waits (bounded by
	// ctx) for in-flight fetch goroutines to drain.
	Close(ctx context.Context) error
}

// Options tune the cache. Every field is optional.
type Options struct {
	Logger Logger          // nil => NopLogger
	Hooks  Hooks           // nil => NopHooks
	Clock  clockwork.Clock // nil => wall clock; swap in a fake for tests

	// SweepInterval is the cadence of the disposal/eviction sweep. 0 => 1s.
	SweepInterval time.Duration

	// MaxEntries caps the entry count. Above the cap the sweep evicts the
	// least recently accessed entries that are unreferenced and idle.
	// 0 => unbounded.
	MaxEntries int
}

// New constructs a Cache and starts its sweep loop.
func New(opts Options) (Cache, error) {
	return newCache(opts)
}
