package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps provider names to descriptors, so invalidation sets and
// diagnostics can be built from names instead of live references.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Descriptor)}
}

// Register stores d under its name. Duplicate names error: two providers
// sharing a name would silently share cache entries.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := d.Name()
	if _, dup := r.defs[name]; dup {
		return fmt.Errorf("provider: %q already registered", name)
	}
	r.defs[name] = d
	return nil
}

func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	return d, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for n := range r.defs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
