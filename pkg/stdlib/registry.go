// Package stdlib provides the Lox native function registry.
package stdlib

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/golox/pkg/interpreter"
)

// Registry holds registered native functions.
type Registry struct {
	fns map[string]*interpreter.Native
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*interpreter.Native),
	}
}

// Register adds a native to the registry, replacing any with the same name.
func (r *Registry) Register(fn interpreter.Native) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a native by name.
func (r *Registry) Get(name string) *interpreter.Native {
	return r.fns[name]
}

// All returns all registered natives.
func (r *Registry) All() map[string]*interpreter.Native {
	return r.fns
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Natives returns every registered native in name order.
func (r *Registry) Natives() []*interpreter.Native {
	out := make([]*interpreter.Native, 0, len(r.fns))
	for _, name := range r.Names() {
		out = append(out, r.fns[name])
	}
	return out
}

// Select returns the natives named in allow, or all of them when allow is
// empty, minus any named in deny. Naming an unregistered native is an error.
func (r *Registry) Select(allow, deny []string) ([]*interpreter.Native, error) {
	var unknown []string
	for _, name := range append(append([]string{}, allow...), deny...) {
		if r.fns[name] == nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown native function(s): %s", strings.Join(unknown, ", "))
	}

	denied := make(map[string]bool, len(deny))
	for _, name := range deny {
		denied[name] = true
	}
	names := allow
	if len(names) == 0 {
		names = r.Names()
	}

	var out []*interpreter.Native
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if denied[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, r.fns[name])
	}
	return out, nil
}
