package swrcache

import (
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/swrcache/internal/keys"
)

// Key identifies one cached entry: a provider identifier plus the
// deterministic encoding of that provider's parameters. Params is empty for
// parameterless providers. Reads with byte-equal Params share the entry, the
// in-flight fetch, and all notifications; distinct Params are fully
// independent entries.
type Key struct {
	Provider string
	Params   string
}

// K is shorthand for a parameterless key.
func K(provider string) Key { return Key{Provider: provider} }

// String renders "provider" or "provider?params". Long or binary params are
// replaced by a short hash so keys stay printable in logs.
func (k Key) String() string { return keys.Storage(k.Provider, k.Params) }

// Result is the tagged value-or-error container stored per entry. Exactly
// one of Value/Err is meaningful. Error results age under the same temporal
// policy as values.
type Result struct {
	Value any
	Err   error
}

// entry is the per-key state machine. Every field is guarded by the store
// mutex; fetch work itself runs outside the lock.
type entry struct {
	key    Key
	policy EntryPolicy
	fetch  FetchFunc // remembered so invalidation and interval ticks can re-trigger

	res       *Result   // nil until the first fetch or write
	createdAt time.Time // zero while res == nil
	staleAt   time.Time // zero => never stale
	expiresAt time.Time // zero => never expires

	refs       int
	disposeAt  time.Time // zero => no disposal scheduled
	lastAccess time.Time

	inflight *fetchHandle // canonical handle of the live fetch; nil when idle
	interval *refreshTask // nil unless an interval refresh is scheduled

	subs     map[uuid.UUID]*Subscription
	eventSeq uint64 // orders change events for this entry's subscribers
}

// subscribers snapshots the subscriber set. Callers hold the store mutex.
func (e *entry) subscribers() []*Subscription {
	if len(e.subs) == 0 {
		return nil
	}
	out := make([]*Subscription, 0, len(e.subs))
	for _, s := range e.subs {
		out = append(out, s)
	}
	return out
}
