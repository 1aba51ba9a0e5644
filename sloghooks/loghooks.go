package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/swrcache"
)

type Options struct {
	// Sampling to avoid floods on the fetch-heavy events; 0/1 = log all.
	FetchEvery   uint64
	DiscardEvery uint64
	// Optional key redactor for logs (encoded params may carry user data).
	// Defaults to SHA-256 prefix.
	Redact func(string) string
}

// Hooks logs engine lifecycle events through slog.
type Hooks struct {
	l    *slog.Logger
	opts Options

	fetchCtr   atomic.Uint64
	discardCtr atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) FetchStarted(key string) {
	if h.l == nil || !sample(h.opts.FetchEvery, &h.fetchCtr) {
		return
	}
	h.l.Debug("swrcache.fetch_started",
		"key", h.redact(key))
}

func (h *Hooks) FetchCompleted(key string, err error, elapsed time.Duration) {
	if h.l == nil {
		return
	}
	if err != nil {
		h.l.Warn("swrcache.fetch_failed",
			"key", h.redact(key),
			"elapsed", elapsed,
			"err", err)
		return
	}
	if !sample(h.opts.FetchEvery, &h.fetchCtr) {
		return
	}
	h.l.Debug("swrcache.fetch_completed",
		"key", h.redact(key),
		"elapsed", elapsed)
}

func (h *Hooks) FetchDiscarded(key, reason string) {
	if h.l == nil || !sample(h.opts.DiscardEvery, &h.discardCtr) {
		return
	}
	h.l.Info("swrcache.fetch_discarded",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) EntryDisposed(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.entry_disposed",
		"key", h.redact(key))
}

func (h *Hooks) EntryEvicted(key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("swrcache.entry_evicted",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) MutationApplied(id string, keys int) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.mutation_applied",
		"mutation", id,
		"keys", keys)
}

func (h *Hooks) MutationRolledBack(id string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("swrcache.mutation_rolled_back",
		"mutation", id,
		"err", err)
}

func (h *Hooks) SubscriberLagged(key, subscription string) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.subscriber_lagged",
		"key", h.redact(key),
		"subscription", subscription)
}
