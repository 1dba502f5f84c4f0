package interp

import (
	"fmt"
	"sync"

	m "twister.dev/pkg/twister/internal/model"
)

// Definition is a named top-level entity introduced by loading a unit.
type Definition struct {
	Name  string
	Unit  m.Path
	Kind  m.DefinitionKind
	Value any
}

// Namespace is the global registry of definitions. Names are unique; a
// second definition of the same name fails until the first is removed.
type Namespace struct {
	mu    sync.RWMutex
	defs  map[string]*Definition
	order []string
}

// NewNamespace returns an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{defs: make(map[string]*Definition)}
}

// Define adds def, failing with ErrRedeclared if the name is taken.
func (ns *Namespace) Define(def Definition) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if existing, ok := ns.defs[def.Name]; ok {
		return fmt.Errorf("%s %s: %w (previous %s in %s)", def.Kind, def.Name, ErrRedeclared, existing.Kind, existing.Unit)
	}

	stored := def
	ns.defs[def.Name] = &stored
	ns.order = append(ns.order, def.Name)

	return nil
}

// Lookup returns the definition for name.
func (ns *Namespace) Lookup(name string) (Definition, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	def, ok := ns.defs[name]
	if !ok {
		return Definition{}, false
	}

	return *def, true
}

// Assign updates the value of a package-level variable.
func (ns *Namespace) Assign(name string, value any) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	def, ok := ns.defs[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUndefined)
	}

	if def.Kind != m.DefinitionVar {
		return fmt.Errorf("cannot assign to %s %s", def.Kind, name)
	}

	def.Value = value

	return nil
}

// Remove deletes name. Removing a missing name is a no-op and returns false.
func (ns *Namespace) Remove(name string) bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if _, ok := ns.defs[name]; !ok {
		return false
	}

	delete(ns.defs, name)

	for i, n := range ns.order {
		if n == name {
			ns.order = append(ns.order[:i], ns.order[i+1:]...)
			break
		}
	}

	return true
}

// Names returns every defined name in definition order.
func (ns *Namespace) Names() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	names := make([]string, len(ns.order))
	copy(names, ns.order)

	return names
}

// Owned returns the names defined by unit, in definition order.
func (ns *Namespace) Owned(unit m.Path) []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	var names []string

	for _, name := range ns.order {
		if ns.defs[name].Unit == unit {
			names = append(names, name)
		}
	}

	return names
}

// Len returns the number of definitions.
func (ns *Namespace) Len() int {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	return len(ns.order)
}
