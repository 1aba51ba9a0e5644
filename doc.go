// Package swrcache implements an in-process cache for async provider results
// with layered temporal policies: stale-while-revalidate, hard TTL expiration,
// interval-driven background refresh, and reference-counted auto-disposal.
//
// Components:
//   - Cache: type-erased store keyed by (provider id, encoded params).
//   - FetchFunc: the caller's async producer. At most one live fetch runs per
//     key; concurrent reads coalesce into it and late results are discarded
//     when the entry was disposed or cleared in the meantime.
//   - EntryPolicy: per-key temporal configuration. Zero value disables every
//     layer (never stale, never expires, no refresh, no disposal).
//   - Subscription: change notifications for one key; subscribing holds a
//     reference that keeps the entry from auto-disposal.
//   - Mutation: optimistic write + commit + invalidation set, with rollback
//     when the commit fails.
//
// Freshness states:
//
//	Loading  - no result yet (first fetch has not resolved)
//	Fresh    - inside the stale window; served as-is
//	Stale    - served immediately, refetched in the background
//	Expired  - past the TTL; consumers treat it like Loading
//
// Read pattern:
//
//	snap := cc.ReadThrough(ctx, key, fetchUser, policy) // never blocks
//	if v, ok := swrcache.Value[User](snap); ok {
//	    render(v, snap.State)
//	}
//
// Failed fetches are cached too: the error becomes the entry's result under
// the same temporal policy, so a failing provider is not hammered inside its
// freshness window.
package swrcache
