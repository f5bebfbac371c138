// Package binding resolves the names a query binds to its sources.
package binding

import (
	"fmt"
	"slices"
)

// Env maps bound names to source indices. It is immutable once resolved.
type Env struct {
	names []string
	index map[string]int
}

// Resolve builds an environment where names[i] is source i. With no names
// the environment has a single unnamed source at index 0.
func Resolve(names []string) (*Env, error) {
	env := &Env{
		names: slices.Clone(names),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("binding %d: empty name", i)
		}
		if prev, dup := env.index[name]; dup {
			return nil, fmt.Errorf("binding %q declared twice (sources %d and %d)", name, prev, i)
		}
		env.index[name] = i
	}
	return env, nil
}

// Index returns the source index bound to name.
func (e *Env) Index(name string) (int, bool) {
	i, ok := e.index[name]
	return i, ok
}

// Len returns the number of sources, at least 1.
func (e *Env) Len() int {
	return max(len(e.names), 1)
}

// Names returns the bound names in source order.
func (e *Env) Names() []string {
	return slices.Clone(e.names)
}

// Implicit reports whether the environment has only the unnamed primary
// source.
func (e *Env) Implicit() bool {
	return len(e.names) == 0
}
