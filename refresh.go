package swrcache

import (
	"context"
	"time"
)

// refreshTask re-fetches one key at a fixed interval, independent of reads
// and subscribers, until stopped by disposal, Clear, or Close. Ticks that
// land while a fetch is already in flight coalesce into it; missed ticks are
// skipped, never queued.
type refreshTask struct {
	key      Key
	interval time.Duration
	cancel   context.CancelFunc
}

func (t *refreshTask) stop() { t.cancel() }

// scheduleRefreshLocked starts or tightens the interval task for e. A
// running task is replaced only by a strictly shorter interval; 0 leaves an
// existing task untouched. The first tick fires a full interval after
// scheduling, never immediately. Callers hold c.mu.
func (c *cache) scheduleRefreshLocked(e *entry, interval time.Duration) {
	if interval <= 0 || c.closed {
		return
	}
	if t := e.interval; t != nil {
		if t.interval <= interval {
			return
		}
		t.stop()
	}

	ctx, cancel := context.WithCancel(c.baseCtx)
	t := &refreshTask{key: e.key, interval: interval, cancel: cancel}
	e.interval = t
	c.wg.Add(1)
	go c.refreshLoop(ctx, t)
	c.log.Debug("interval refresh scheduled", Fields{"key": e.key.String(), "every": interval.String()})
}

func (c *cache) refreshLoop(ctx context.Context, t *refreshTask) {
	defer c.wg.Done()
	tk := c.clk.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-tk.Chan():
			c.mu.Lock()
			// a replaced or disposed task must not touch the entry
			if e, ok := c.entries[t.key]; ok && e.interval == t {
				c.ensureFetchLocked(e)
			}
			c.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}
