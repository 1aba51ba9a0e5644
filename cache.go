package swrcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Stats are point-in-time gauges plus monotonic counters. Counters reset
// only when the cache is rebuilt.
type Stats struct {
	Entries       int
	InFlight      int
	Subscriptions int

	Hits      uint64 // reads answered with a servable result
	Misses    uint64 // reads observed Loading or Expired
	Evictions uint64 // entries removed by the MaxEntries cap
	Disposals uint64 // entries removed by auto-disposal
}

type cache struct {
	log Logger
	hk  Hooks
	clk clockwork.Clock

	sweepInterval time.Duration
	maxEntries    int

	// lifetime context for fetch and refresh goroutines; cancelled on Close
	baseCtx    context.Context
	baseCancel context.CancelFunc

	// mu guards entries and every entry field. The store is the single
	// serialization point: all state decisions and writes happen under mu,
	// while fetch work and event delivery run outside it.
	mu       sync.Mutex
	entries  map[Key]*entry
	closed   bool
	fetchSeq uint64

	hits      uint64
	misses    uint64
	evictions uint64
	disposals uint64

	ticker    clockwork.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newCache(opts Options) (*cache, error) {
	if opts.SweepInterval < 0 {
		return nil, fmt.Errorf("swrcache: negative sweep interval")
	}
	if opts.MaxEntries < 0 {
		return nil, fmt.Errorf("swrcache: negative max entries")
	}

	c := &cache{
		entries:       make(map[Key]*entry),
		sweepInterval: coalesce[time.Duration](opts.SweepInterval, defaultSweep),
		maxEntries:    opts.MaxEntries,
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hk = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.Clock != nil {
		c.clk = opts.Clock
	} else {
		c.clk = clockwork.NewRealClock()
	}
	c.baseCtx, c.baseCancel = context.WithCancel(context.Background())

	c.ticker = c.clk.NewTicker(c.sweepInterval)
	c.stopCh = make(chan struct{})
	c.wg.Add(1)
	go c.sweepLoop()
	return c, nil
}

func (c *cache) ReadThrough(ctx context.Context, key Key, fetch FetchFunc, policy EntryPolicy) Snapshot {
	now := c.clk.Now()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Snapshot{Key: key, State: Loading}
	}
	e := c.getOrCreateLocked(key)
	c.attachLocked(e, fetch, policy)
	e.lastAccess = now

	snap := c.snapshotLocked(e, now)
	if snap.State.Servable() {
		c.hits++
	} else {
		c.misses++
	}
	if snap.State != Fresh {
		c.ensureFetchLocked(e)
		snap.Refreshing = e.inflight != nil
	}
	c.mu.Unlock()
	return snap
}

func (c *cache) Wait(ctx context.Context, key Key, fetch FetchFunc, policy EntryPolicy) (any, error) {
	for {
		snap := c.ReadThrough(ctx, key, fetch, policy)
		if snap.State.Servable() {
			if snap.Err != nil {
				return nil, &FetchError{Key: key, Err: snap.Err}
			}
			return snap.Value, nil
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		e, ok := c.entries[key]
		if !ok {
			// disposed between the read and now; retry recreates it
			c.mu.Unlock()
			continue
		}
		if e.fetch == nil {
			c.mu.Unlock()
			return nil, ErrNoFetch
		}
		// re-classify under the lock; the fetch may have landed already
		if c.snapshotLocked(e, c.clk.Now()).State.Servable() {
			c.mu.Unlock()
			continue
		}
		h := e.inflight
		if h == nil {
			h = c.ensureFetchLocked(e)
		}
		c.mu.Unlock()
		if h == nil {
			continue
		}

		select {
		case <-h.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *cache) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return c.snapshotLocked(e, c.clk.Now()), true
}

func (c *cache) Set(key Key, value any) {
	now := c.clk.Now()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	e := c.getOrCreateLocked(key)
	e.lastAccess = now
	var pending []pendingEvent
	if c.storeLocked(e, &Result{Value: value}, now) {
		pending = append(pending, c.changeEventLocked(e, now, ReasonUpdated))
	}
	c.mu.Unlock()
	c.flush(pending)
}

func (c *cache) Invalidate(key Key) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.forceStaleLocked(e, c.clk.Now())
	c.ensureFetchLocked(e)
	c.mu.Unlock()
	c.log.Debug("invalidated", Fields{"key": key.String()})
}

// forceStaleLocked keeps the current result visible but classifies it Stale,
// so readers serve it while the refetch runs. The TTL is lifted until the
// next store restamps the entry.
func (c *cache) forceStaleLocked(e *entry, now time.Time) {
	if e.res == nil {
		return
	}
	e.staleAt = now
	e.expiresAt = time.Time{}
}

func (c *cache) Clear() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	now := c.clk.Now()
	var pending []pendingEvent
	n := len(c.entries)
	for _, e := range c.entries {
		c.teardownLocked(e)
		if len(e.subs) > 0 {
			pending = append(pending, c.changeEventLocked(e, now, ReasonCleared))
		}
	}
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()
	c.flush(pending)
	c.log.Info("cache cleared", Fields{"entries": n})
}

func (c *cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Disposals: c.disposals,
	}
	for _, e := range c.entries {
		if e.inflight != nil {
			s.InFlight++
		}
		s.Subscriptions += len(e.subs)
	}
	return s
}

func (c *cache) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		for _, e := range c.entries {
			c.teardownLocked(e)
		}
		c.entries = make(map[Key]*entry)
		c.mu.Unlock()

		c.baseCancel()
		close(c.stopCh)
		c.ticker.Stop()
		c.log.Info("cache closed", Fields{})
	})

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// getOrCreateLocked returns the entry for key, creating an empty one when
// absent. Entries are created lazily on first read, write, or attach.
func (c *cache) getOrCreateLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{
			key:        key,
			lastAccess: c.clk.Now(),
			subs:       make(map[uuid.UUID]*Subscription),
		}
		c.entries[key] = e
	}
	return e
}

// attachLocked records the fetch function and policy on the entry. The
// policy is last-writer-wins; the interval refresh only tightens.
func (c *cache) attachLocked(e *entry, fetch FetchFunc, policy EntryPolicy) {
	if fetch != nil {
		e.fetch = fetch
	}
	e.policy = policy.normalize()
	c.scheduleRefreshLocked(e, e.policy.RefreshInterval)
}

func (c *cache) snapshotLocked(e *entry, now time.Time) Snapshot {
	s := Snapshot{
		Key:        e.key,
		State:      classify(e.res != nil, e.staleAt, e.expiresAt, now),
		CreatedAt:  e.createdAt,
		Refreshing: e.inflight != nil,
	}
	if e.res != nil {
		s.Value = e.res.Value
		s.Err = e.res.Err
	}
	return s
}

// storeLocked writes res into e and restamps the freshness deadlines from
// the attached policy. The write supersedes any fetch still in flight: its
// handle is cancelled so the late result is discarded at commit time instead
// of overwriting this newer value. (On the fetch-commit path the handle is
// already cleared before storeLocked runs, so only direct writes supersede.)
// A result equal to the stored one refreshes the timestamps only. Reports
// whether the stored result actually changed.
func (c *cache) storeLocked(e *entry, res *Result, now time.Time) bool {
	if e.inflight != nil {
		e.inflight.cancel()
		e.inflight = nil
	}
	same := resultsEqual(e.policy, e.res, res)
	if !same {
		e.res = res
	}
	e.createdAt = now
	e.staleAt, e.expiresAt = e.policy.stamps(now)
	return !same
}

// resultsEqual reports whether two results are interchangeable under the
// entry's equality policy. Error results never compare equal, so refreshed
// failures always notify.
func resultsEqual(p EntryPolicy, a, b *Result) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Err != nil || b.Err != nil {
		return false
	}
	return p.equal(a.Value, b.Value)
}

// teardownLocked cancels the entry's in-flight fetch and interval task. The
// cancelled fetch keeps running until its function returns; the canonical
// handle check discards its result.
func (c *cache) teardownLocked(e *entry) {
	if e.inflight != nil {
		e.inflight.cancel()
		e.inflight = nil
	}
	if e.interval != nil {
		e.interval.stop()
		e.interval = nil
	}
}
