package provider

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/codec"
)

// Keyed is a parameterized provider: each distinct encoded param owns an
// independent entry with its own fetch, timers, and subscribers.
type Keyed[P any, V any] struct {
	name   string
	enc    codec.Codec
	fn     func(context.Context, P) (V, error)
	policy swrcache.EntryPolicy
}

// NewKeyed builds a parameterized provider. enc nil defaults to codec.JSON.
func NewKeyed[P any, V any](name string, enc codec.Codec, fn func(context.Context, P) (V, error), opts ...Option) *Keyed[P, V] {
	if enc == nil {
		enc = codec.JSON{}
	}
	return &Keyed[P, V]{name: name, enc: enc, fn: fn, policy: buildPolicy(opts)}
}

func (k *Keyed[P, V]) Name() string { return k.name }

// Key derives the cache key for param. Encoding failures surface here,
// before the cache is touched.
func (k *Keyed[P, V]) Key(param P) (swrcache.Key, error) {
	b, err := k.enc.EncodeParams(param)
	if err != nil {
		return swrcache.Key{}, fmt.Errorf("provider %s: %w", k.name, err)
	}
	return swrcache.Key{Provider: k.name, Params: string(b)}, nil
}

func (k *Keyed[P, V]) fetchFunc(param P) swrcache.FetchFunc {
	fn := k.fn
	return func(ctx context.Context) (any, error) { return fn(ctx, param) }
}

func (k *Keyed[P, V]) Read(ctx context.Context, c swrcache.Cache, param P) (swrcache.Snapshot, error) {
	key, err := k.Key(param)
	if err != nil {
		return swrcache.Snapshot{}, err
	}
	return c.ReadThrough(ctx, key, k.fetchFunc(param), k.policy), nil
}

func (k *Keyed[P, V]) Resolve(ctx context.Context, c swrcache.Cache, param P) (V, error) {
	var zero V
	key, err := k.Key(param)
	if err != nil {
		return zero, err
	}
	v, err := c.Wait(ctx, key, k.fetchFunc(param), k.policy)
	if err != nil {
		return zero, err
	}
	return as[V](k.name, v)
}

func (k *Keyed[P, V]) Subscribe(c swrcache.Cache, param P) (*swrcache.Subscription, swrcache.Snapshot, error) {
	key, err := k.Key(param)
	if err != nil {
		return nil, swrcache.Snapshot{}, err
	}
	sub, snap := c.Subscribe(key)
	return sub, snap, nil
}

func (k *Keyed[P, V]) Invalidate(c swrcache.Cache, param P) error {
	key, err := k.Key(param)
	if err != nil {
		return err
	}
	c.Invalidate(key)
	return nil
}

// Bind fixes the parameters, producing a Member for composition. Key
// derivation happens eagerly so encoding failures surface at build time,
// not inside the composed fetch.
func (k *Keyed[P, V]) Bind(param P) (Member, error) {
	key, err := k.Key(param)
	if err != nil {
		return nil, err
	}
	return &boundKeyed[P, V]{def: k, key: key, param: param}, nil
}

type boundKeyed[P any, V any] struct {
	def   *Keyed[P, V]
	key   swrcache.Key
	param P
}

func (b *boundKeyed[P, V]) resolveAny(ctx context.Context, c swrcache.Cache) (any, error) {
	return c.Wait(ctx, b.key, b.def.fetchFunc(b.param), b.def.policy)
}
