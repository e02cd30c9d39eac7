package service

import (
	"fmt"
	"slices"
	"sync"

	"mediakit/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Component type registry — pluggable component defaults
// ─────────────────────────────────────────────────────────────

// ComponentType is the contract for a component type plugin.
type ComponentType interface {
	// Type returns the component type string (e.g. "hero").
	Type() string
	// Defaults returns the fields a new component of this type starts with.
	Defaults() map[string]any
}

// ComponentRegistry holds the known component types. It satisfies
// state.DefaultsProvider.
type ComponentRegistry struct {
	mu    sync.RWMutex
	types map[string]ComponentType
}

func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{types: make(map[string]ComponentType)}
}

// Register adds a type. Panics on duplicate registration.
func (r *ComponentRegistry) Register(t ComponentType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Type()
	if _, exists := r.types[name]; exists {
		panic(fmt.Sprintf("component registry: duplicate registration for type %q", name))
	}
	r.types[name] = t
}

// Defaults returns a private copy of the type's default fields.
func (r *ComponentRegistry) Defaults(componentType string) (map[string]any, bool) {
	r.mu.RLock()
	t, ok := r.types[componentType]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	defaults, _ := domain.CloneValue(t.Defaults()).(map[string]any)
	if defaults == nil {
		defaults = map[string]any{}
	}
	return defaults, true
}

// Known reports whether componentType is registered.
func (r *ComponentRegistry) Known(componentType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[componentType]
	return ok
}

// Types lists the registered type names in sorted order.
func (r *ComponentRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
