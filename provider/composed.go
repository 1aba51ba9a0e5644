package provider

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/swrcache"
)

// Composed aggregates member providers under one entry. A fetch resolves
// every member concurrently through the cache (sharing each member's entry
// and in-flight dedup), then joins their values. The first member error
// cancels the remaining waits and becomes the composed result.
type Composed[V any] struct {
	name    string
	members []Member
	join    func(vals []any) (V, error)
	policy  swrcache.EntryPolicy
}

// NewComposed builds a composed provider. vals passed to join are ordered
// like members.
func NewComposed[V any](name string, join func(vals []any) (V, error), members []Member, opts ...Option) *Composed[V] {
	return &Composed[V]{name: name, members: members, join: join, policy: buildPolicy(opts)}
}

func (cp *Composed[V]) Name() string { return cp.name }

func (cp *Composed[V]) Key() swrcache.Key { return swrcache.K(cp.name) }

func (cp *Composed[V]) fetchFunc(c swrcache.Cache) swrcache.FetchFunc {
	members := cp.members
	join := cp.join
	return func(ctx context.Context) (any, error) {
		vals := make([]any, len(members))
		g, gctx := errgroup.WithContext(ctx)
		for i, m := range members {
			i, m := i, m
			g.Go(func() error {
				v, err := m.resolveAny(gctx, c)
				if err != nil {
					return err
				}
				vals[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return join(vals)
	}
}

func (cp *Composed[V]) Read(ctx context.Context, c swrcache.Cache) swrcache.Snapshot {
	return c.ReadThrough(ctx, cp.Key(), cp.fetchFunc(c), cp.policy)
}

func (cp *Composed[V]) Resolve(ctx context.Context, c swrcache.Cache) (V, error) {
	v, err := c.Wait(ctx, cp.Key(), cp.fetchFunc(c), cp.policy)
	if err != nil {
		var zero V
		return zero, err
	}
	return as[V](cp.name, v)
}

func (cp *Composed[V]) Subscribe(c swrcache.Cache) (*swrcache.Subscription, swrcache.Snapshot) {
	return c.Subscribe(cp.Key())
}

func (cp *Composed[V]) Invalidate(c swrcache.Cache) { c.Invalidate(cp.Key()) }

// resolveAny lets a Composed nest inside another Composed.
func (cp *Composed[V]) resolveAny(ctx context.Context, c swrcache.Cache) (any, error) {
	return c.Wait(ctx, cp.Key(), cp.fetchFunc(c), cp.policy)
}
