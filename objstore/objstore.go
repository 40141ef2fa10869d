package objstore

import (
	"reflect"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/syssam/persistcore/registry"
)

// bucket is the concurrent-map shard for one EntityType (spec.md §5:
// "ObjectStore: concurrent map per type; readers non-blocking; writers
// exclusive on the affected type bucket").
type bucket struct {
	mu   sync.RWMutex
	byID map[uint64]*Object
}

// ObjectStore is the process-wide, shared registry of live Objects
// (spec.md §4.3). One instance is owned by exactly one Controller; it is
// never a package-level singleton (spec.md §9).
type ObjectStore struct {
	reg     *registry.Registry
	bmu     sync.RWMutex // guards the buckets map's own structure (type set is fixed after RegisterTypes, but lazily populated here)
	buckets map[*registry.EntityType]*bucket

	// ptrmu/ptrIndex map a registered Object's struct address back to its
	// *Object wrapper, so a raw *T value read out of a Reference field
	// can be resolved to its (ID, FieldErrors, ...) without a type-keyed
	// lookup: accumulation bookkeeping only has the pointer, not the id.
	ptrmu    sync.RWMutex
	ptrIndex map[uintptr]*Object

	accum *accumulationIndex

	// reloadGroup dedupes concurrent Reload(obj) calls for the same
	// (type, id) so two goroutines racing to refresh the same Object
	// share one SELECT instead of issuing it twice.
	reloadGroup singleflight.Group

	collator *collate.Collator
}

// New builds an empty ObjectStore bound to reg.
func New(reg *registry.Registry) *ObjectStore {
	s := &ObjectStore{
		reg:      reg,
		buckets:  map[*registry.EntityType]*bucket{},
		ptrIndex: map[uintptr]*Object{},
		accum:    newAccumulationIndex(),
		collator: collate.New(language.Und),
	}
	for _, et := range reg.All() {
		s.buckets[et] = &bucket{byID: map[uint64]*Object{}}
	}
	return s
}

// Registry returns the Registry this store was built from.
func (s *ObjectStore) Registry() *registry.Registry { return s.reg }

func (s *ObjectStore) bucketFor(et *registry.EntityType) *bucket {
	s.bmu.RLock()
	b, ok := s.buckets[et]
	s.bmu.RUnlock()
	if ok {
		return b
	}
	s.bmu.Lock()
	defer s.bmu.Unlock()
	if b, ok = s.buckets[et]; ok {
		return b
	}
	b = &bucket{byID: map[uint64]*Object{}}
	s.buckets[et] = b
	return b
}

// ReloadGroup exposes the singleflight group so Loader.Reload can dedupe
// concurrent refreshes of the same Object.
func (s *ObjectStore) ReloadGroup() *singleflight.Group { return &s.reloadGroup }

// New constructs a new, unregistered Object of the given EntityType with
// the given id. Complex fields are zero-valued; callers (typically the
// Loader, or Controller.Create) call Register to publish it.
func (s *ObjectStore) New(et *registry.EntityType, id uint64) *Object {
	return newObject(et, id)
}

// Create constructs, assigns the given id, invokes initFn (which may set
// initial field values), auto-initializes any uninitialized Complex
// fields to empty containers, registers, and returns the Object
// (spec.md §4.3 `create(type, init_fn)`).
func (s *ObjectStore) Create(et *registry.EntityType, id uint64, initFn func(*Object)) *Object {
	obj := newObject(et, id)
	if initFn != nil {
		initFn(obj)
	}
	s.autoInitComplex(obj)
	s.Register(obj)
	return obj
}

// autoInitComplex fills any nil Complex field with an empty container of
// its declared shape, per spec.md §4.3: "Complex fields are auto-
// initialized on registration (empty containers) if the application did
// not initialize them."
func (s *ObjectStore) autoInitComplex(obj *Object) {
	for _, f := range obj.EntityType.AllFields() {
		if f.Kind != registry.Complex {
			continue
		}
		fv := f.Get(obj.Value)
		if fv.Kind() == reflect.Array || !fv.IsNil() {
			continue
		}
		switch f.Complex.Shape {
		case registry.ShapeList, registry.ShapeSet:
			fv.Set(reflect.MakeSlice(f.GoType, 0, 0))
		case registry.ShapeMap:
			fv.Set(reflect.MakeMap(f.GoType))
		case registry.ShapeArray:
			// Arrays are fixed-size and already zero-valued; nothing to do.
		}
	}
}

// Register publishes obj into the store and its pointer index. It does
// not change accumulation membership (see accumulationIndex.onRegister).
func (s *ObjectStore) Register(obj *Object) {
	b := s.bucketFor(obj.EntityType)
	b.mu.Lock()
	b.byID[obj.ID] = obj
	b.mu.Unlock()
	s.ptrmu.Lock()
	s.ptrIndex[obj.Value.Addr().Pointer()] = obj
	s.ptrmu.Unlock()
	s.accum.onRegister(obj)
}

// Unregister removes obj from the store and drops its accumulation
// membership (spec.md §4.9 delete, §4.5 data-horizon eviction).
func (s *ObjectStore) Unregister(obj *Object) {
	b := s.bucketFor(obj.EntityType)
	b.mu.Lock()
	delete(b.byID, obj.ID)
	b.mu.Unlock()
	s.ptrmu.Lock()
	delete(s.ptrIndex, obj.Value.Addr().Pointer())
	s.ptrmu.Unlock()
	s.accum.onUnregister(obj)
}

// objectForPointer resolves a raw *T value (read out of a Reference
// field) back to its owning *Object wrapper, or nil if v is nil or
// unregistered.
func (s *ObjectStore) objectForPointer(v reflect.Value) *Object {
	if v.IsNil() {
		return nil
	}
	s.ptrmu.RLock()
	defer s.ptrmu.RUnlock()
	return s.ptrIndex[v.Pointer()]
}

// FindByID returns the registered Object of type et with the given id, if
// any.
func (s *ObjectStore) FindByID(et *registry.EntityType, id uint64) (*Object, bool) {
	b := s.bucketFor(et)
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.byID[id]
	return o, ok
}

// All returns every registered Object of type et, in no particular order.
func (s *ObjectStore) All(et *registry.EntityType) []*Object {
	b := s.bucketFor(et)
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Object, 0, len(b.byID))
	for _, o := range b.byID {
		out = append(out, o)
	}
	return out
}

// AllValid returns every registered, error-free Object of type et.
func (s *ObjectStore) AllValid(et *registry.EntityType) []*Object {
	var out []*Object
	for _, o := range s.All(et) {
		if o.Valid() {
			out = append(out, o)
		}
	}
	return out
}

// FindAny returns the first registered Object of type et matching pred,
// or (nil, false).
func (s *ObjectStore) FindAny(et *registry.EntityType, pred func(*Object) bool) (*Object, bool) {
	b := s.bucketFor(et)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.byID {
		if pred(o) {
			return o, true
		}
	}
	return nil, false
}

// Count returns the number of registered Objects of type et matching
// pred (a nil pred counts all of them).
func (s *ObjectStore) Count(et *registry.EntityType, pred func(*Object) bool) int {
	b := s.bucketFor(et)
	b.mu.RLock()
	defer b.mu.RUnlock()
	if pred == nil {
		return len(b.byID)
	}
	n := 0
	for _, o := range b.byID {
		if pred(o) {
			n++
		}
	}
	return n
}

// HasAny reports whether any registered Object of type et matches pred.
func (s *ObjectStore) HasAny(et *registry.EntityType, pred func(*Object) bool) bool {
	_, ok := s.FindAny(et, pred)
	return ok
}

// Sort orders objs in place using a locale-aware comparison of the string
// keyFn produces for each Object (spec.md §4.3 `sort(collection)`).
func (s *ObjectStore) Sort(objs []*Object, keyFn func(*Object) string) {
	sort.SliceStable(objs, func(i, j int) bool {
		return s.collator.CompareString(keyFn(objs[i]), keyFn(objs[j])) < 0
	})
}

// GroupBy partitions objs by the key keyFn produces for each Object
// (spec.md §4.3 `group_by(collection, key_fn)`), preserving the relative
// order of objs within each group.
func GroupBy[K comparable](objs []*Object, keyFn func(*Object) K) map[K][]*Object {
	out := map[K][]*Object{}
	for _, o := range objs {
		k := keyFn(o)
		out[k] = append(out[k], o)
	}
	return out
}

// Accumulation returns the current membership set of owner's accumulation
// field named fieldName (spec.md invariant 3): every registered a such
// that a.f == owner, for the Reference field f the accumulation mirrors.
func (s *ObjectStore) Accumulation(owner *Object, fieldName string) []*Object {
	fs, ok := owner.EntityType.FieldByName(fieldName)
	if !ok || fs.Kind != registry.Accumulation {
		return nil
	}
	return s.accum.members(fs, owner.ID)
}

// ReferenceTarget returns the Object currently assigned to obj's
// Reference field named fieldName, or (nil, false) if the field is nil,
// unknown, or not a Reference field. The Saver uses this to resolve a
// Reference field's foreign-key column value from the target's id.
func (s *ObjectStore) ReferenceTarget(obj *Object, fieldName string) (*Object, bool) {
	fs, ok := obj.EntityType.FieldByName(fieldName)
	if !ok || fs.Kind != registry.Reference {
		return nil, false
	}
	fv := fs.Get(obj.Value)
	target := s.objectForPointer(fv)
	return target, target != nil
}

// ObjectForPointer resolves a raw *T value (e.g. read directly out of a
// Reference field via reflection) back to its owning *Object wrapper, or
// nil if v is nil or unregistered.
func (s *ObjectStore) ObjectForPointer(v reflect.Value) *Object {
	return s.objectForPointer(v)
}

// SetReference assigns a new target (or nil) to obj's Reference field
// named fieldName, updating accumulation membership on both the old and
// new target. This is the single path the Loader and Saver must use to
// mutate a Reference field so invariant 3 never drifts from invariant 2.
func (s *ObjectStore) SetReference(obj *Object, fieldName string, newTarget *Object) {
	fs, ok := obj.EntityType.FieldByName(fieldName)
	if !ok || fs.Kind != registry.Reference {
		return
	}
	fv := fs.Get(obj.Value)
	oldTarget := s.objectForPointer(fv)
	s.accum.onReferenceChange(fs, obj, oldTarget, newTarget)
	if newTarget == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return
	}
	fv.Set(newTarget.Value.Addr())
}
