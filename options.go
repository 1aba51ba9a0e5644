package swrcache

import "time"

// EntryPolicy is the per-key temporal configuration. The zero value disables
// every layer: never stale, never expires, no interval refresh, no
// auto-disposal.
//
// The policy attaches to the entry on first ReadThrough/Wait and is replaced
// by later reads of the same key, except that a running interval refresh is
// only ever replaced by a strictly shorter one.
type EntryPolicy struct {
	// StaleTime is how long a result counts as Fresh. 0 => never Stale.
	StaleTime time.Duration

	// CacheExpiration is the hard TTL. 0 => never Expired. When both are set
	// StaleTime is clamped down to CacheExpiration, keeping the stale window
	// inside the TTL.
	CacheExpiration time.Duration

	// RefreshInterval re-fetches in the background regardless of reads and
	// subscribers, until the entry is disposed. 0 => disabled.
	RefreshInterval time.Duration

	// AutoDispose removes the entry DisposeDelay after its reference count
	// drops to zero. A zero delay means immediately eligible; removal still
	// happens asynchronously on the next sweep, and re-attaching before the
	// sweep keeps the entry (and its in-flight fetch) intact.
	AutoDispose  bool
	DisposeDelay time.Duration

	// Equal suppresses the write (and its notification) when a refetched or
	// re-set value is structurally identical to the stored one; timestamps
	// still reset. nil => reflect.DeepEqual.
	Equal func(a, b any) bool
}

// normalize enforces cross-field invariants.
func (p EntryPolicy) normalize() EntryPolicy {
	if p.CacheExpiration > 0 && p.StaleTime > p.CacheExpiration {
		p.StaleTime = p.CacheExpiration
	}
	return p
}

// stamps computes the freshness deadlines for a result stored at now.
func (p EntryPolicy) stamps(now time.Time) (staleAt, expiresAt time.Time) {
	if p.StaleTime > 0 {
		staleAt = now.Add(p.StaleTime)
	}
	if p.CacheExpiration > 0 {
		expiresAt = now.Add(p.CacheExpiration)
	}
	return staleAt, expiresAt
}

func (p EntryPolicy) equal(a, b any) bool {
	if p.Equal != nil {
		return p.Equal(a, b)
	}
	return defaultEqual(a, b)
}
