package swrcache

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations invoked after Close.
var ErrClosed = errors.New("swrcache: cache is closed")

// ErrNoFetch is returned by Wait when nothing can produce a value: the entry
// has no result and no fetch function was ever attached to the key.
var ErrNoFetch = errors.New("swrcache: no fetch function attached")

// FetchError wraps a provider failure surfaced on the blocking read path.
// The failure itself is cached under the key's temporal policy, so repeated
// reads inside the freshness window observe the same wrapped error instead of
// re-running the provider.
type FetchError struct {
	Key Key
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("swrcache: fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError reports a failed commit. When RolledBack is true the
// optimistic writes were restored to their pre-mutation results and the
// affected keys forced Stale.
type MutationError struct {
	ID         string // correlation id assigned by Apply
	Err        error  // the commit error
	RolledBack bool
}

func (e *MutationError) Error() string {
	if e.RolledBack {
		return fmt.Sprintf("swrcache: mutation %s: commit failed (rolled back): %v", e.ID, e.Err)
	}
	return fmt.Sprintf("swrcache: mutation %s: commit failed: %v", e.ID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }
