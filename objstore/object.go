// Package objstore implements the ObjectStore component of spec.md §4.3:
// the process-wide, shared registry of live application entity instances,
// keyed by (EntityType, id), with derived accumulation (inverse-reference)
// sets and query/sort/group-by helpers.
//
// Grounded on the teacher's graph.Type/Field/Edge in-memory shape, but
// rebuilt as a runtime instance store rather than a codegen IR, per
// spec.md §9: "model the ObjectStore as Map<(TypeId, u64), OwnedObject>".
package objstore

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/syssam/persistcore/registry"
)

// Object is a live application instance (spec.md §3). Identity is ID;
// equality is ID equality within one EntityType. Value holds the
// application struct itself (addressable, i.e. always obtained via
// reflect.New so field writes through FieldSpec.Set are visible).
type Object struct {
	ID         uint64
	EntityType *registry.EntityType
	Value      reflect.Value // addressable struct value (Elem of a *T)

	// Mu is the per-Object intent lock spec.md §5 calls for: "the
	// application is expected to use an Object-level mutex when
	// pipelining changes against concurrent loaders." The core itself
	// only takes it internally where noted; callers pipelining multiple
	// calls against the same Object should hold it for the duration.
	Mu sync.Mutex

	stored bool

	mu          sync.RWMutex
	fieldErrors map[string]error
	warnings    []error
	err         error
}

// Interface returns obj.Value as the concrete *T pointer it was
// constructed from, suitable for a type assertion by the caller.
func (o *Object) Interface() any {
	return o.Value.Addr().Interface()
}

// Stored reports whether at least one row exists in the database for
// this Object (spec.md §3's Object lifecycle).
func (o *Object) Stored() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stored
}

// MarkStored transitions the Object into the stored state.
func (o *Object) MarkStored() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stored = true
}

// Valid reports whether the Object currently carries no field errors
// (spec.md §7: "a valid-flag filter is supplied for 'only Objects with no
// errors'").
func (o *Object) Valid() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.fieldErrors) == 0
}

// FieldErrors returns a snapshot of the per-field error map.
func (o *Object) FieldErrors() map[string]error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]error, len(o.fieldErrors))
	for k, v := range o.fieldErrors {
		out[k] = v
	}
	return out
}

// SetFieldError records a persistent field error (spec.md §4.6's
// post-failure per-column recovery, or §4.6's pre-flight Constraint
// checks). Passing a nil err clears the field's error.
func (o *Object) SetFieldError(field string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fieldErrors == nil {
		o.fieldErrors = map[string]error{}
	}
	if err == nil {
		delete(o.fieldErrors, field)
		return
	}
	o.fieldErrors[field] = err
}

// ClearFieldErrors removes every recorded field error, e.g. after a
// corrected save succeeds (spec.md §8 scenario 6).
func (o *Object) ClearFieldErrors() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fieldErrors = nil
}

// Warnings returns a snapshot of non-fatal warnings recorded on the
// Object (conflict-overridden fields, truncated strings, crypto
// fallback).
func (o *Object) Warnings() []error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]error, len(o.warnings))
	copy(out, o.warnings)
	return out
}

// AddWarning appends a warning to the Object.
func (o *Object) AddWarning(w error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.warnings = append(o.warnings, w)
}

// ClearWarnings removes every recorded warning.
func (o *Object) ClearWarnings() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.warnings = nil
}

// Err returns the current exception attached to the Object, if any.
func (o *Object) Err() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.err
}

// SetErr attaches (or clears, with nil) the Object's current exception.
func (o *Object) SetErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.err = err
}

func (o *Object) String() string {
	return fmt.Sprintf("%s(id=%d)", o.EntityType.Name, o.ID)
}

func newObject(et *registry.EntityType, id uint64) *Object {
	v := reflect.New(et.GoType).Elem()
	return &Object{ID: id, EntityType: et, Value: v}
}
