package registry

import "reflect"

// Registry is the process-lifetime owner of every EntityType and
// FieldSpec (spec.md §3 "Ownership"). It is built once, at startup, by
// RegisterTypes and is read-only thereafter.
type Registry struct {
	byName   map[string]*EntityType
	byGoType map[reflect.Type]*EntityType
	ordered  []*EntityType // registration order, root types first
	cycles   [][]*EntityType
}

// Get returns the EntityType registered under name.
func (r *Registry) Get(name string) (*EntityType, bool) {
	et, ok := r.byName[name]
	return et, ok
}

// GetByGoType returns the EntityType for a Go struct type (or pointer to
// one).
func (r *Registry) GetByGoType(t reflect.Type) (*EntityType, bool) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	et, ok := r.byGoType[t]
	return et, ok
}

// All returns every registered EntityType, in registration order.
func (r *Registry) All() []*EntityType {
	out := make([]*EntityType, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Cycles returns the reference-field cycles detected across the whole
// registry (spec.md §4.1): strongly connected components of size >= 2,
// plus self-loops. Saver/DDL-generation consult this to decide which
// reference fields must have ON DELETE CASCADE disabled for dialect
// families that reject cascade cycles (see dialect/family.Mapper.AllowsCascadeInCycle).
func (r *Registry) Cycles() [][]*EntityType {
	return r.cycles
}

// InCycle reports whether et participates in any detected reference cycle.
func (r *Registry) InCycle(et *EntityType) bool {
	for _, c := range r.cycles {
		for _, m := range c {
			if m == et {
				return true
			}
		}
	}
	return false
}
