package swrcache

import (
	"context"
	"time"
)

// fetchHandle is the canonical token for one in-flight fetch. A result may
// commit only while its handle is still the entry's canonical handle; a
// handle superseded by disposal, Clear, or Close discards its result.
type fetchHandle struct {
	seq    uint64
	start  time.Time
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{} // closed once the fetch committed or was discarded
}

// ensureFetchLocked starts a fetch for e unless one is already in flight,
// coalescing every trigger (read, invalidation, interval tick) into the
// single live fetch. Returns the canonical handle, or nil when the entry has
// no fetch function. Callers hold c.mu.
func (c *cache) ensureFetchLocked(e *entry) *fetchHandle {
	if e.inflight != nil {
		return e.inflight
	}
	if e.fetch == nil || c.closed {
		return nil
	}

	ctx, cancel := context.WithCancel(c.baseCtx)
	c.fetchSeq++
	h := &fetchHandle{
		seq:    c.fetchSeq,
		start:  c.clk.Now(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	e.inflight = h

	fn := e.fetch
	c.wg.Add(1)
	go c.runFetch(e, h, fn)

	c.hk.FetchStarted(e.key.String())
	return h
}

// runFetch executes fn outside the store lock and commits the result under
// it. Last-write-wins is enforced at commit time: the result lands only if h
// is still canonical for a live entry.
func (c *cache) runFetch(e *entry, h *fetchHandle, fn FetchFunc) {
	defer c.wg.Done()
	defer close(h.done)
	defer h.cancel()

	v, err := fn(h.ctx)

	now := c.clk.Now()
	c.mu.Lock()
	if c.entries[e.key] != e || e.inflight != h {
		c.mu.Unlock()
		c.hk.FetchDiscarded(e.key.String(), "superseded")
		return
	}
	e.inflight = nil
	if h.ctx.Err() != nil {
		c.mu.Unlock()
		c.hk.FetchDiscarded(e.key.String(), "cancelled")
		return
	}
	changed := c.storeLocked(e, &Result{Value: v, Err: err}, now)
	var pending []pendingEvent
	if changed {
		pending = append(pending, c.changeEventLocked(e, now, ReasonUpdated))
	}
	c.mu.Unlock()

	c.flush(pending)
	c.hk.FetchCompleted(e.key.String(), err, c.clk.Since(h.start))
	if err != nil {
		c.log.Warn("fetch failed", Fields{"key": e.key.String(), "seq": h.seq, "err": err})
	} else {
		c.log.Debug("fetch completed", Fields{"key": e.key.String(), "seq": h.seq, "changed": changed})
	}
}
