package swrcache

import (
	"context"
	"testing"
	"time"
)

// ==============================
// Auto-disposal
// ==============================

// TestDisposeAfterDelay: the last detach arms the deadline and the sweep
// removes the entry once the delay has elapsed.
func TestDisposeAfterDelay(t *testing.T) {
	ctx := context.Background()
	hk := newRecordingHooks()
	cc, clk := newTestCache(t, func(o *Options) { o.Hooks = hk })

	key := K("user")
	fs := script(Result{Value: 1})
	policy := EntryPolicy{AutoDispose: true, DisposeDelay: 5 * time.Second}

	cc.Attach(key)
	if _, err := cc.Wait(ctx, key, fs.fn, policy); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	cc.Detach(key)

	// inside the window the entry survives sweeps
	clk.Advance(3 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if _, ok := cc.Peek(key); !ok {
		t.Fatalf("entry removed before the dispose delay elapsed")
	}

	clk.Advance(3 * time.Second)
	eventually(t, func() bool {
		_, ok := cc.Peek(key)
		return !ok
	}, "entry disposed after the delay")

	if got := hk.snapshot().disposed; len(got) != 1 || got[0] != key.String() {
		t.Fatalf("EntryDisposed hooks = %v, want [%s]", got, key)
	}
	if st := cc.Stats(); st.Disposals != 1 {
		t.Fatalf("Disposals = %d, want 1", st.Disposals)
	}
}

// TestReattachCancelsDisposal: detach/attach churn inside the window must
// keep the entry, value included.
func TestReattachCancelsDisposal(t *testing.T) {
	ctx := context.Background()
	cc, clk := newTestCache(t, nil)

	key := K("user")
	fs := script(Result{Value: "kept"})
	policy := EntryPolicy{AutoDispose: true, DisposeDelay: 5 * time.Second}

	cc.Attach(key)
	if _, err := cc.Wait(ctx, key, fs.fn, policy); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	cc.Detach(key)
	clk.Advance(3 * time.Second)
	cc.Attach(key) // back inside the window

	clk.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	snap, ok := cc.Peek(key)
	if !ok || snap.Value != "kept" {
		t.Fatalf("re-attached entry must survive, got %+v ok=%v", snap, ok)
	}

	// the delay restarts from the next detach, not the first one
	cc.Detach(key)
	clk.Advance(6 * time.Second)
	eventually(t, func() bool {
		_, ok := cc.Peek(key)
		return !ok
	}, "disposed after the final detach")
}

// TestZeroDelayDisposalIsAsynchronous: DisposeDelay 0 makes the entry
// immediately eligible but removal still waits for a sweep, so a re-attach
// racing the detach wins.
func TestZeroDelayDisposalIsAsynchronous(t *testing.T) {
	ctx := context.Background()
	cc, clk := newTestCache(t, nil)

	key := K("user")
	fs := script(Result{Value: 1})
	policy := EntryPolicy{AutoDispose: true}

	cc.Attach(key)
	if _, err := cc.Wait(ctx, key, fs.fn, policy); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	cc.Detach(key)
	if _, ok := cc.Peek(key); !ok {
		t.Fatalf("zero-delay detach must not remove synchronously")
	}
	cc.Attach(key) // remount before any sweep ran
	clk.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if _, ok := cc.Peek(key); !ok {
		t.Fatalf("re-attached entry must not be swept")
	}
}

// TestDisposalCancelsInflightFetch: an entry disposed mid-fetch discards the
// late result instead of resurrecting state.
func TestDisposalCancelsInflightFetch(t *testing.T) {
	ctx := context.Background()
	hk := newRecordingHooks()
	cc, clk := newTestCache(t, func(o *Options) { o.Hooks = hk })

	key := K("slow")
	fs := script(Result{Value: 1})
	fs.block = make(chan struct{})
	defer close(fs.block)

	cc.Attach(key)
	cc.ReadThrough(ctx, key, fs.fn, EntryPolicy{AutoDispose: true})
	cc.Detach(key)

	clk.Advance(2 * time.Second)
	eventually(t, func() bool {
		_, ok := cc.Peek(key)
		return !ok
	}, "entry disposed while its fetch is parked")

	// the cancelled fetch unblocks via its context and its result is dropped
	eventually(t, func() bool {
		s := hk.snapshot()
		return s.discarded["superseded"]+s.discarded["cancelled"] == 1
	}, "late result discarded")
	if _, ok := cc.Peek(key); ok {
		t.Fatalf("discarded result must not recreate the entry")
	}
}

func TestDetachUnknownOrUnreferencedIsSafe(t *testing.T) {
	cc, _ := newTestCache(t, nil)

	cc.Detach(K("never-seen"))

	key := K("user")
	cc.Set(key, 1)
	cc.Detach(key) // refs already zero; must not underflow
	cc.Attach(key)
	impl := mustImpl(t, cc)
	impl.mu.Lock()
	refs := impl.entries[key].refs
	impl.mu.Unlock()
	if refs != 1 {
		t.Fatalf("refs = %d, want 1", refs)
	}
}

// ==============================
// MaxEntries eviction
// ==============================

// TestMaxEntriesEvictsOldestIdle: above the cap the sweep trims the least
// recently accessed entries that nothing references.
func TestMaxEntriesEvictsOldestIdle(t *testing.T) {
	hk := newRecordingHooks()
	cc, clk := newTestCache(t, func(o *Options) {
		o.Hooks = hk
		o.MaxEntries = 2
	})

	cc.Set(K("a"), 1)
	clk.Advance(time.Second)
	cc.Set(K("b"), 2)
	clk.Advance(time.Second)
	cc.Set(K("c"), 3)

	clk.Advance(time.Second)
	eventually(t, func() bool { return cc.Stats().Entries == 2 }, "sweep trims to the cap")

	if _, ok := cc.Peek(K("a")); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
	for _, k := range []Key{K("b"), K("c")} {
		if _, ok := cc.Peek(k); !ok {
			t.Fatalf("entry %s should have survived", k)
		}
	}
	if got := hk.snapshot().evicted; len(got) != 1 || got[0] != "a" {
		t.Fatalf("EntryEvicted hooks = %v, want [a]", got)
	}
	if st := cc.Stats(); st.Evictions != 1 {
		t.Fatalf("Evictions = %d, want 1", st.Evictions)
	}
}

// TestMaxEntriesSkipsReferencedEntries: referenced entries are exempt even
// when they are the oldest.
func TestMaxEntriesSkipsReferencedEntries(t *testing.T) {
	cc, clk := newTestCache(t, func(o *Options) { o.MaxEntries = 2 })

	cc.Set(K("a"), 1)
	cc.Attach(K("a")) // pinned
	clk.Advance(time.Second)
	cc.Set(K("b"), 2)
	clk.Advance(time.Second)
	cc.Set(K("c"), 3)

	clk.Advance(time.Second)
	eventually(t, func() bool { return cc.Stats().Entries == 2 }, "sweep trims to the cap")

	if _, ok := cc.Peek(K("a")); !ok {
		t.Fatalf("referenced entry must never be evicted")
	}
	if _, ok := cc.Peek(K("b")); ok {
		t.Fatalf("oldest unreferenced entry should have been evicted")
	}
}
