package swrcache

import (
	"sort"
	"time"
)

func (c *cache) Attach(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	e := c.getOrCreateLocked(key)
	c.attachRefLocked(e)
}

func (c *cache) Detach(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	e, ok := c.entries[key]
	if !ok {
		return
	}
	c.detachRefLocked(e)
}

// attachRefLocked takes a reference and cancels any pending disposal, so an
// entry re-attached inside its dispose window survives with its result,
// fetch, and timers intact.
func (c *cache) attachRefLocked(e *entry) {
	e.refs++
	e.disposeAt = time.Time{}
}

// detachRefLocked drops a reference. The last one arms the disposal
// deadline when the policy asks for auto-disposal.
func (c *cache) detachRefLocked(e *entry) {
	if e.refs > 0 {
		e.refs--
	}
	if e.refs == 0 && e.policy.AutoDispose {
		e.disposeAt = c.clk.Now().Add(e.policy.DisposeDelay)
	}
}

func (c *cache) sweepLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ticker.Chan():
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

// sweep removes entries whose disposal deadline has passed, re-checking the
// reference count at sweep time, then enforces the MaxEntries cap. Disposal
// cancels the entry's in-flight fetch and interval task.
func (c *cache) sweep() {
	now := c.clk.Now()
	c.mu.Lock()
	var disposed []Key
	for key, e := range c.entries {
		if e.refs == 0 && !e.disposeAt.IsZero() && !now.Before(e.disposeAt) {
			c.teardownLocked(e)
			delete(c.entries, key)
			c.disposals++
			disposed = append(disposed, key)
		}
	}
	evicted := c.evictOverCapLocked()
	c.mu.Unlock()

	for _, k := range disposed {
		c.hk.EntryDisposed(k.String())
	}
	for _, k := range evicted {
		c.hk.EntryEvicted(k.String(), "max_entries")
	}
	if len(disposed) > 0 || len(evicted) > 0 {
		c.log.Debug("sweep removed entries", Fields{"disposed": len(disposed), "evicted": len(evicted)})
	}
}

// evictOverCapLocked trims the map down to maxEntries, oldest access first.
// Referenced, subscribed, or fetching entries are never evicted.
func (c *cache) evictOverCapLocked() []Key {
	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return nil
	}

	type idle struct {
		key  Key
		last time.Time
	}
	cands := make([]idle, 0, len(c.entries))
	for key, e := range c.entries {
		if e.refs > 0 || e.inflight != nil || len(e.subs) > 0 {
			continue
		}
		cands = append(cands, idle{key: key, last: e.lastAccess})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].last.Before(cands[j].last) })

	var evicted []Key
	for _, cand := range cands {
		if len(c.entries) <= c.maxEntries {
			break
		}
		e := c.entries[cand.key]
		c.teardownLocked(e)
		delete(c.entries, cand.key)
		c.evictions++
		evicted = append(evicted, cand.key)
	}
	return evicted
}
