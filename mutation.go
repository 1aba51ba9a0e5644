package swrcache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mutation is one optimistic write batch: values applied immediately, a
// commit that runs to completion, and the keys to re-fetch afterwards.
type Mutation struct {
	// Optimistic values become visible (and notify subscribers) before the
	// commit runs. Absent keys are created.
	Optimistic map[Key]any

	// Commit persists the change. It receives a context immune to the
	// caller's cancellation: once Apply starts the commit, it finishes.
	// Required.
	Commit func(ctx context.Context) error

	// Invalidates are re-fetched after a successful commit so derived
	// entries converge on the committed truth.
	Invalidates []Key
}

// prior is the pre-mutation state of one optimistic key, kept for rollback.
type prior struct {
	res       *Result
	createdAt time.Time
}

// Apply runs m. On commit failure every optimistic key is restored to its
// pre-mutation result and forced Stale: keys with an attached fetch function
// refetch immediately, the rest refetch on their next read, so rollback data
// never lingers as Fresh.
func (c *cache) Apply(ctx context.Context, m Mutation) error {
	if m.Commit == nil {
		return fmt.Errorf("swrcache: mutation commit is required")
	}
	id := uuid.NewString()

	now := c.clk.Now()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	priors := make(map[Key]prior, len(m.Optimistic))
	var pending []pendingEvent
	for k, v := range m.Optimistic {
		e := c.getOrCreateLocked(k)
		e.lastAccess = now
		priors[k] = prior{res: e.res, createdAt: e.createdAt}
		if c.storeLocked(e, &Result{Value: v}, now) {
			pending = append(pending, c.changeEventLocked(e, now, ReasonUpdated))
		}
	}
	c.mu.Unlock()
	c.flush(pending)
	if len(m.Optimistic) > 0 {
		c.hk.MutationApplied(id, len(m.Optimistic))
		c.log.Debug("mutation applied optimistically", Fields{"mutation": id, "keys": len(m.Optimistic)})
	}

	if err := m.Commit(context.WithoutCancel(ctx)); err != nil {
		c.rollback(priors)
		c.hk.MutationRolledBack(id, err)
		c.log.Warn("mutation rolled back", Fields{"mutation": id, "err": err})
		return &MutationError{ID: id, Err: err, RolledBack: len(priors) > 0}
	}

	for _, k := range m.Invalidates {
		c.Invalidate(k)
	}
	c.log.Debug("mutation committed", Fields{"mutation": id, "invalidates": len(m.Invalidates)})
	return nil
}

// rollback restores the prior results. Keys disposed or cleared while the
// commit ran have nothing left to restore and are skipped.
func (c *cache) rollback(priors map[Key]prior) {
	now := c.clk.Now()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	var pending []pendingEvent
	for k, pr := range priors {
		e, ok := c.entries[k]
		if !ok {
			continue
		}
		changed := !resultsEqual(e.policy, e.res, pr.res)
		e.res = pr.res
		e.createdAt = pr.createdAt
		e.staleAt, e.expiresAt = time.Time{}, time.Time{}
		c.forceStaleLocked(e, now)
		c.ensureFetchLocked(e)
		if changed {
			pending = append(pending, c.changeEventLocked(e, now, ReasonUpdated))
		}
	}
	c.mu.Unlock()
	c.flush(pending)
}
