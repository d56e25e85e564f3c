package platform

import (
	"fmt"
	"sort"
)

// Registry is the immutable set of enabled platforms, built once at startup.
// Enablement is decided during construction from credential presence; the
// coordinator and selector only ever see the resulting set.
type Registry struct {
	adapters map[string]Adapter
	names    []string
}

// NewRegistry builds a registry from named adapters. A nil adapter value is
// rejected so a misconfigured platform fails at startup rather than at
// dispatch time.
func NewRegistry(adapters map[string]Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for name, a := range adapters {
		if name == "" {
			return nil, fmt.Errorf("platform: empty platform name")
		}
		if a == nil {
			return nil, fmt.Errorf("platform: nil adapter for %q", name)
		}
		r.adapters[name] = a
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Enabled returns the enabled platform names in deterministic order.
func (r *Registry) Enabled() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Adapter returns the capability for the named platform.
func (r *Registry) Adapter(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}
