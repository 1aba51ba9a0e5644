package swrcache

import "time"

// Hooks lightweight callbacks for high-signal lifecycle events.
// Implementations MUST be cheap and non-blocking; the cache calls them on
// hot paths. Keys arrive pre-rendered in their printable form.
type Hooks interface {
	// A fetch goroutine was started for key.
	FetchStarted(key string)

	// A fetch settled and its result was stored. err is the stored fetch
	// error (nil on success).
	FetchCompleted(key string, err error, elapsed time.Duration)

	// A fetch settled but its result was thrown away.
	// reason ∈ {"superseded", "cancelled"}
	FetchDiscarded(key, reason string)

	// Auto-disposal removed an idle entry at sweep time.
	EntryDisposed(key string)

	// The sweep evicted an entry. reason ∈ {"max_entries"}
	EntryEvicted(key, reason string)

	// A mutation wrote its optimistic batch. keys is the batch size.
	MutationApplied(id string, keys int)

	// A commit failed and the optimistic batch was restored.
	MutationRolledBack(id string, err error)

	// A subscriber's undelivered event was replaced by a newer one.
	SubscriberLagged(key, subscription string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) FetchStarted(string)                         {}
func (NopHooks) FetchCompleted(string, error, time.Duration) {}
func (NopHooks) FetchDiscarded(string, string)               {}
func (NopHooks) EntryDisposed(string)                        {}
func (NopHooks) EntryEvicted(string, string)                 {}
func (NopHooks) MutationApplied(string, int)                 {}
func (NopHooks) MutationRolledBack(string, error)            {}
func (NopHooks) SubscriberLagged(string, string)             {}
