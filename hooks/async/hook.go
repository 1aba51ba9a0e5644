// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/swrcache"
//	"github.com/unkn0wn-root/swrcache/hooks/async"
//	"github.com/unkn0wn-root/swrcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    FetchEvery:   10, // sample logs: ~every 10th fetch
//	    DiscardEvery: 1,  // log every discarded result
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	cc, _ := swrcache.New(swrcache.Options{
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"time"

	"github.com/unkn0wn-root/swrcache"
)

// Hooks decouples hook work from the cache's hot paths: events are queued
// and replayed on worker goroutines, and dropped outright when the queue is
// full.
type Hooks struct {
	inner swrcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(inner swrcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) FetchStarted(k string) { h.try(func() { h.inner.FetchStarted(k) }) }
func (h *Hooks) FetchCompleted(k string, err error, d time.Duration) {
	h.try(func() { h.inner.FetchCompleted(k, err, d) })
}
func (h *Hooks) FetchDiscarded(k, r string) { h.try(func() { h.inner.FetchDiscarded(k, r) }) }
func (h *Hooks) EntryDisposed(k string)     { h.try(func() { h.inner.EntryDisposed(k) }) }
func (h *Hooks) EntryEvicted(k, r string)   { h.try(func() { h.inner.EntryEvicted(k, r) }) }
func (h *Hooks) MutationApplied(id string, n int) {
	h.try(func() { h.inner.MutationApplied(id, n) })
}
func (h *Hooks) MutationRolledBack(id string, err error) {
	h.try(func() { h.inner.MutationRolledBack(id, err) })
}
func (h *Hooks) SubscriberLagged(k, s string) { h.try(func() { h.inner.SubscriberLagged(k, s) }) }
