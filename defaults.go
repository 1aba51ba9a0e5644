package swrcache

import (
	"reflect"
	"time"
)

// default cadence of the disposal/eviction sweep
const defaultSweep = time.Second

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// defaultEqual is the structural equality used when a policy does not bring
// its own. reflect.DeepEqual tolerates arbitrary caller values, including
// ones with unexported fields.
func defaultEqual(a, b any) bool { return reflect.DeepEqual(a, b) }
