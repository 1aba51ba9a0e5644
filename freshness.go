package swrcache

import "time"

// State classifies an entry's result at a point in time.
type State uint8

const (
	// Loading - no result yet; the first fetch has not resolved.
	Loading State = iota
	// Fresh - inside the stale window (or staleness disabled).
	Fresh
	// Stale - servable, but reads trigger a background refetch.
	Stale
	// Expired - past the TTL; not servable. Consumers treat it like Loading,
	// though the last result stays visible for diagnostics.
	Expired
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Servable reports whether a consumer should render the result (Fresh or
// Stale) rather than a loading placeholder.
func (s State) Servable() bool { return s == Fresh || s == Stale }

// classify derives the state from entry timestamps. Zero staleAt/expiresAt
// mean the respective layer is disabled. Expired wins over Stale when both
// thresholds have passed.
func classify(hasResult bool, staleAt, expiresAt, now time.Time) State {
	if !hasResult {
		return Loading
	}
	if !expiresAt.IsZero() && !now.Before(expiresAt) {
		return Expired
	}
	if !staleAt.IsZero() && !now.Before(staleAt) {
		return Stale
	}
	return Fresh
}

// Snapshot is a point-in-time view of one entry. Value and Err reflect the
// last completed result even when the state is Stale or Expired.
type Snapshot struct {
	Key        Key
	State      State
	Value      any
	Err        error     // stored fetch error; nil when the last result was a value
	CreatedAt  time.Time // when the current result was stored
	Refreshing bool      // a fetch is in flight right now
}

// Value extracts a typed value from a snapshot. ok is false when the
// snapshot holds no value or the value is not a V.
func Value[V any](s Snapshot) (V, bool) {
	v, ok := s.Value.(V)
	return v, ok
}
