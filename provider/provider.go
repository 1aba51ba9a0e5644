// Package provider builds cache keys, fetch functions, and policies from
// declared data producers. Three shapes exist: Single (parameterless),
// Keyed (parameterized; each encoded param owns an independent entry), and
// Composed (aggregates other providers concurrently). Anything callers need
// beyond these is expressed by composing them.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/swrcache"
)

// Option mutates the policy attached to a provider's entries.
type Option func(*swrcache.EntryPolicy)

// WithStaleTime marks results Stale after d (stale-while-revalidate window).
func WithStaleTime(d time.Duration) Option {
	return func(p *swrcache.EntryPolicy) { p.StaleTime = d }
}

// WithExpiration sets the hard TTL.
func WithExpiration(d time.Duration) Option {
	return func(p *swrcache.EntryPolicy) { p.CacheExpiration = d }
}

// WithRefreshInterval re-fetches every d in the background.
func WithRefreshInterval(d time.Duration) Option {
	return func(p *swrcache.EntryPolicy) { p.RefreshInterval = d }
}

// WithAutoDispose removes entries delay after their last reference is gone.
func WithAutoDispose(delay time.Duration) Option {
	return func(p *swrcache.EntryPolicy) {
		p.AutoDispose = true
		p.DisposeDelay = delay
	}
}

// WithEqual overrides the structural equality used for change suppression.
func WithEqual(eq func(a, b any) bool) Option {
	return func(p *swrcache.EntryPolicy) { p.Equal = eq }
}

func buildPolicy(opts []Option) swrcache.EntryPolicy {
	var p swrcache.EntryPolicy
	for _, o := range opts {
		o(&p)
	}
	return p
}

// Descriptor is the common surface of Single, Keyed, and Composed.
type Descriptor interface {
	Name() string
}

// Member is one input to a Composed provider: a provider already bound to
// its parameters. Single and Composed are Members directly; bind a Keyed
// with Keyed.Bind.
type Member interface {
	resolveAny(ctx context.Context, c swrcache.Cache) (any, error)
}

// as downcasts a cached value to the provider's declared type.
func as[V any](name string, v any) (V, error) {
	out, ok := v.(V)
	if !ok {
		var zero V
		return zero, fmt.Errorf("provider %s: cached value is %T, not %T", name, v, zero)
	}
	return out, nil
}
