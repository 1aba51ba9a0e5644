package swrcache

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ==============================
// Optimistic mutations
// ==============================

// TestMutationOptimisticThenCommit: the optimistic value is visible (and
// notified) before the commit runs, and survives a successful commit.
func TestMutationOptimisticThenCommit(t *testing.T) {
	ctx := context.Background()
	hk := newRecordingHooks()
	cc, _ := newTestCache(t, func(o *Options) { o.Hooks = hk })

	key := K("todo")
	cc.Set(key, "old")
	sub, _ := cc.Subscribe(key)
	defer sub.Cancel()

	commitGate := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cc.Apply(ctx, Mutation{
			Optimistic: map[Key]any{key: "new"},
			Commit: func(ctx context.Context) error {
				<-commitGate
				return nil
			},
		})
	}()

	// visible while the commit is still running
	ev := waitEvent(t, sub)
	if ev.Snapshot.Value != "new" {
		t.Fatalf("optimistic event value = %v, want new", ev.Snapshot.Value)
	}
	if snap, _ := cc.Peek(key); snap.Value != "new" {
		t.Fatalf("Peek during commit = %+v, want new", snap)
	}

	close(commitGate)
	if err := <-done; err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if snap, _ := cc.Peek(key); snap.Value != "new" {
		t.Fatalf("Peek after commit = %+v, want new", snap)
	}
	if hk.snapshot().applied != 1 {
		t.Fatalf("MutationApplied hooks = %d, want 1", hk.snapshot().applied)
	}
	assertNoEvent(t, sub)
}

// TestMutationInvalidatesOnSuccess: a successful commit re-fetches every key
// in the invalidation set.
func TestMutationInvalidatesOnSuccess(t *testing.T) {
	ctx := context.Background()
	cc, _ := newTestCache(t, nil)

	dep := K("todo-list")
	fs := script(Result{Value: "v1"}, Result{Value: "v2"})
	if v, err := cc.Wait(ctx, dep, fs.fn, EntryPolicy{}); err != nil || v != "v1" {
		t.Fatalf("Wait = %v, %v", v, err)
	}

	err := cc.Apply(ctx, Mutation{
		Optimistic:  map[Key]any{K("todo"): "created"},
		Commit:      func(ctx context.Context) error { return nil },
		Invalidates: []Key{dep},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	eventually(t, func() bool { return fs.count() == 2 }, "dependent key refetched")
	if v, err := cc.Wait(ctx, dep, fs.fn, EntryPolicy{}); err != nil || v != "v2" {
		t.Fatalf("Wait = %v, %v", v, err)
	}
}

// TestOptimisticWriteWinsOverEarlierFetch: an optimistic batch applied while
// a fetch is parked supersedes it, so the stale server result cannot undo
// the optimistic value.
func TestOptimisticWriteWinsOverEarlierFetch(t *testing.T) {
	ctx := context.Background()
	hk := newRecordingHooks()
	cc, _ := newTestCache(t, func(o *Options) { o.Hooks = hk })

	key := K("todo")
	fs := script(Result{Value: "server-old"})
	fs.block = make(chan struct{})
	defer close(fs.block)

	cc.ReadThrough(ctx, key, fs.fn, EntryPolicy{})

	err := cc.Apply(ctx, Mutation{
		Optimistic: map[Key]any{key: "optimistic"},
		Commit:     func(ctx context.Context) error { return nil },
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	eventually(t, func() bool {
		s := hk.snapshot()
		return s.discarded["superseded"]+s.discarded["cancelled"] == 1
	}, "pre-mutation fetch discarded")

	snap, ok := cc.Peek(key)
	if !ok || snap.Value != "optimistic" {
		t.Fatalf("Peek = %+v ok=%v, want the optimistic value to survive", snap, ok)
	}
}

// TestMutationRollback runs the failing-commit walkthrough: "pending" shows
// up optimistically, the commit fails, the prior value comes back marked
// Stale, and the forced refetch lands real data.
func TestMutationRollback(t *testing.T) {
	ctx := context.Background()
	hk := newRecordingHooks()
	cc, _ := newTestCache(t, func(o *Options) { o.Hooks = hk })

	key := K("todo")
	fs := script(Result{Value: "v1"}, Result{Value: "v2"})
	if v, err := cc.Wait(ctx, key, fs.fn, EntryPolicy{StaleTime: time.Minute}); err != nil || v != "v1" {
		t.Fatalf("Wait = %v, %v", v, err)
	}

	// park the rollback's forced refetch so the Stale window is observable
	fs.mu.Lock()
	fs.block = make(chan struct{})
	fs.mu.Unlock()

	boom := errors.New("commit rejected")
	err := cc.Apply(ctx, Mutation{
		Optimistic: map[Key]any{key: "pending"},
		Commit:     func(ctx context.Context) error { return boom },
	})
	var me *MutationError
	if !errors.As(err, &me) || !errors.Is(err, boom) {
		t.Fatalf("Apply = %v, want *MutationError wrapping commit error", err)
	}
	if !me.RolledBack {
		t.Fatalf("MutationError.RolledBack = false, want true")
	}

	// the rollback restores v1 but leaves it Stale with a refetch in flight,
	// so rolled-back data never masquerades as Fresh
	snap, ok := cc.Peek(key)
	if !ok || snap.Value != "v1" {
		t.Fatalf("rolled-back snapshot = %+v, want v1", snap)
	}
	if snap.State != Stale {
		t.Fatalf("rolled-back state = %v, want Stale", snap.State)
	}
	if !snap.Refreshing {
		t.Fatalf("rollback must leave a refetch in flight")
	}

	close(fs.block)
	eventually(t, func() bool { return fs.count() == 2 }, "forced refetch after rollback")
	if v, err := cc.Wait(ctx, key, fs.fn, EntryPolicy{}); err != nil || v != "v2" {
		t.Fatalf("Wait after rollback = %v, %v", v, err)
	}
	if hk.snapshot().rolled != 1 {
		t.Fatalf("MutationRolledBack hooks = %d, want 1", hk.snapshot().rolled)
	}
}

// TestMutationRollbackOnFreshKey: rolling back a key that had no prior
// result returns it to Loading, not to a phantom value.
func TestMutationRollbackOnFreshKey(t *testing.T) {
	ctx := context.Background()
	cc, _ := newTestCache(t, nil)

	key := K("draft")
	boom := errors.New("nope")
	err := cc.Apply(ctx, Mutation{
		Optimistic: map[Key]any{key: "speculative"},
		Commit:     func(ctx context.Context) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Apply = %v", err)
	}

	snap, ok := cc.Peek(key)
	if !ok || snap.State != Loading || snap.Value != nil {
		t.Fatalf("rolled-back fresh key = %+v ok=%v, want Loading with no value", snap, ok)
	}
}

// TestMutationCommitOutlivesCaller: the commit context is detached from the
// caller's, so cancelling the caller does not abort a started commit.
func TestMutationCommitOutlivesCaller(t *testing.T) {
	cc, _ := newTestCache(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already dead before Apply

	var sawErr error
	err := cc.Apply(ctx, Mutation{
		Commit: func(cctx context.Context) error {
			sawErr = cctx.Err()
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if sawErr != nil {
		t.Fatalf("commit ctx.Err() = %v, want nil despite cancelled caller", sawErr)
	}
}

func TestMutationRequiresCommit(t *testing.T) {
	cc, _ := newTestCache(t, nil)
	if err := cc.Apply(context.Background(), Mutation{}); err == nil {
		t.Fatalf("Apply without commit must error")
	}
}
