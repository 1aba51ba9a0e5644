package provider

import (
	"context"

	"github.com/unkn0wn-root/swrcache"
)

// Single is a parameterless provider: one name, one cache entry.
type Single[V any] struct {
	name   string
	fn     func(context.Context) (V, error)
	policy swrcache.EntryPolicy
}

func NewSingle[V any](name string, fn func(context.Context) (V, error), opts ...Option) *Single[V] {
	return &Single[V]{name: name, fn: fn, policy: buildPolicy(opts)}
}

func (s *Single[V]) Name() string { return s.name }

func (s *Single[V]) Key() swrcache.Key { return swrcache.K(s.name) }

func (s *Single[V]) fetchFunc() swrcache.FetchFunc {
	fn := s.fn
	return func(ctx context.Context) (any, error) { return fn(ctx) }
}

// Read returns the current snapshot without blocking; the entry keeps
// refreshing under the provider's policy.
func (s *Single[V]) Read(ctx context.Context, c swrcache.Cache) swrcache.Snapshot {
	return c.ReadThrough(ctx, s.Key(), s.fetchFunc(), s.policy)
}

// Resolve blocks until the provider has a servable result and returns it
// typed.
func (s *Single[V]) Resolve(ctx context.Context, c swrcache.Cache) (V, error) {
	v, err := c.Wait(ctx, s.Key(), s.fetchFunc(), s.policy)
	if err != nil {
		var zero V
		return zero, err
	}
	return as[V](s.name, v)
}

func (s *Single[V]) Subscribe(c swrcache.Cache) (*swrcache.Subscription, swrcache.Snapshot) {
	return c.Subscribe(s.Key())
}

func (s *Single[V]) Invalidate(c swrcache.Cache) { c.Invalidate(s.Key()) }

func (s *Single[V]) resolveAny(ctx context.Context, c swrcache.Cache) (any, error) {
	return c.Wait(ctx, s.Key(), s.fetchFunc(), s.policy)
}
