// Package registry implements the Registry component of spec.md §4.1: it
// introspects registered application entity types, classifies their
// fields, resolves single-inheritance chains, detects reference cycles,
// and assigns canonical table/column names.
//
// The application domain types themselves are external collaborators
// (spec.md §1): callers register plain Go struct types with
// RegisterTypes, and the Registry reflects over them. A
// type's single parent, if any, is its first anonymous (embedded) field
// that is itself a registered entity type — the Go-native analogue of the
// single-inheritance chain spec.md describes.
package registry

import (
	"reflect"

	"github.com/syssam/persistcore/internal/ident"
)

// EntityType is a registered application type, corresponding 1:1 to a main
// table (spec.md §3).
type EntityType struct {
	// Name is the canonical (Go) type name, e.g. "Invoice".
	Name string
	// TableName is the canonical SQL table name, e.g. "DOM_INVOICE".
	TableName string
	// GoType is the reflect.Type this EntityType was built from (always a
	// struct type, never a pointer).
	GoType reflect.Type

	// Parent is the single ancestor EntityType, or nil at the root.
	Parent *EntityType
	// Children are the EntityTypes whose Parent is this one.
	Children []*EntityType

	// Fields are this type's own FieldSpecs (not including ancestors').
	Fields []*FieldSpec

	// IsObjectType marks a concrete, instantiable leaf-like type (as
	// opposed to an abstract base used only for shared fields).
	IsObjectType bool
	// IsDataHorizonControlled marks a type subject to data-horizon
	// eviction during synchronize (spec.md §4.5).
	IsDataHorizonControlled bool
	// HasEncryptedFields is true if any field in the whole ancestor
	// chain is marked encrypted.
	HasEncryptedFields bool
}

// Chain returns the EntityType's ancestor chain from root to this type,
// inclusive. Persisted state for an object of this (leaf) type spans
// every table named by Chain().
func (e *EntityType) Chain() []*EntityType {
	var chain []*EntityType
	for cur := e; cur != nil; cur = cur.Parent {
		chain = append([]*EntityType{cur}, chain...)
	}
	return chain
}

// AllFields returns every FieldSpec across the ancestor chain, root first,
// in the order the Saver needs for leaf->root diff collection reversed
// (spec.md §4.6 says diffs are collected leaf->root, inserts root->leaf;
// callers reverse this slice for the insert order).
func (e *EntityType) AllFields() []*FieldSpec {
	var fields []*FieldSpec
	for _, t := range e.Chain() {
		fields = append(fields, t.Fields...)
	}
	return fields
}

// FieldByName finds a FieldSpec by name anywhere in the ancestor chain.
func (e *EntityType) FieldByName(name string) (*FieldSpec, bool) {
	for _, f := range e.AllFields() {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// AccumulationFieldFor finds the Accumulation-kind FieldSpec (anywhere in
// e's ancestor chain) whose InverseField matches a Reference field named
// refFieldName on another EntityType that points back to e (spec.md
// §3/§4.1's accumulation = inverse-of-reference relation, invariant 3).
func (e *EntityType) AccumulationFieldFor(refFieldName string) (*FieldSpec, bool) {
	for _, f := range e.AllFields() {
		if f.Kind == Accumulation && f.Accumulation.InverseField == refFieldName {
			return f, true
		}
	}
	return nil, false
}

// IsDescendantOf reports whether e is other, or a descendant of other.
func (e *EntityType) IsDescendantOf(other *EntityType) bool {
	for cur := e; cur != nil; cur = cur.Parent {
		if cur == other {
			return true
		}
	}
	return false
}

func newEntityType(name string, t reflect.Type) *EntityType {
	return &EntityType{
		Name:      name,
		TableName: ident.TableName(name),
		GoType:    t,
	}
}
