package objstore

import (
	"sync"

	"github.com/syssam/persistcore/registry"
)

// accumulationIndex maintains spec.md invariant 3's derived membership:
// for every Reference field f: A->B with inverse Accumulation g: B->Set<A>,
// membership of a in b.g holds iff a.f == b, for all registered a, b.
//
// Keyed by the Accumulation FieldSpec (on B) and the owner's id (b.ID),
// mapping to the set of member Objects (a's) currently satisfying a.f==b.
type accumulationIndex struct {
	mu      sync.RWMutex
	membersByField map[*registry.FieldSpec]map[uint64]map[uint64]*Object
}

func newAccumulationIndex() *accumulationIndex {
	return &accumulationIndex{membersByField: map[*registry.FieldSpec]map[uint64]map[uint64]*Object{}}
}

// members returns the current membership set for accumulation field fs
// on the owner with the given id.
func (a *accumulationIndex) members(fs *registry.FieldSpec, ownerID uint64) []*Object {
	a.mu.RLock()
	defer a.mu.RUnlock()
	set := a.membersByField[fs][ownerID]
	out := make([]*Object, 0, len(set))
	for _, o := range set {
		out = append(out, o)
	}
	return out
}

func (a *accumulationIndex) add(fs *registry.FieldSpec, ownerID uint64, member *Object) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byOwner, ok := a.membersByField[fs]
	if !ok {
		byOwner = map[uint64]map[uint64]*Object{}
		a.membersByField[fs] = byOwner
	}
	set, ok := byOwner[ownerID]
	if !ok {
		set = map[uint64]*Object{}
		byOwner[ownerID] = set
	}
	set[member.ID] = member
}

func (a *accumulationIndex) remove(fs *registry.FieldSpec, ownerID uint64, memberID uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if set, ok := a.membersByField[fs][ownerID]; ok {
		delete(set, memberID)
	}
}

// onRegister scans obj's own Reference fields but does not change any
// accumulation set: a raw pointer is not resolved to its target Object
// here. Membership is added through SetReference (onReferenceChange) or
// recomputed by Rebuild.
func (a *accumulationIndex) onRegister(obj *Object) {
	for _, f := range obj.EntityType.AllFields() {
		if f.Kind != registry.Reference {
			continue
		}
		fv := f.Get(obj.Value)
		if fv.IsNil() {
			continue
		}
		// The target Object isn't resolvable from a raw pointer without
		// the owning ObjectStore's ptrIndex; callers that construct
		// references directly (rather than through SetReference) should
		// call ObjectStore.SetReference so accumulation bookkeeping stays
		// exact. onRegister alone only handles the common case where the
		// referenced struct also implements a recoverable id lookup via
		// the Loader/Saver's explicit SetReference calls during
		// materialization.
		_ = fv
	}
}

func (a *accumulationIndex) onUnregister(obj *Object) {
	// Drop obj from every accumulation set it might belong to, and drop
	// any accumulation sets keyed by obj's own id (obj was an owner).
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, byOwner := range a.membersByField {
		delete(byOwner, obj.ID)
		for _, set := range byOwner {
			delete(set, obj.ID)
		}
	}
}

// onReferenceChange updates accumulation membership when obj's Reference
// field f changes from oldTarget to newTarget (spec.md invariant 3). Both
// may be nil.
func (a *accumulationIndex) onReferenceChange(f *registry.FieldSpec, obj, oldTarget, newTarget *Object) {
	if oldTarget == newTarget {
		return
	}
	accFS, ok := f.Reference.Target.AccumulationFieldFor(f.Name)
	if !ok {
		return // no declared inverse accumulation for this reference field.
	}
	if oldTarget != nil {
		a.remove(accFS, oldTarget.ID, obj.ID)
	}
	if newTarget != nil {
		a.add(accFS, newTarget.ID, obj)
	}
}

// Rebuild recomputes the whole accumulation index from scratch by walking
// every registered Object's Reference fields in store. Used after a bulk
// load cycle where references were set directly on reflect.Value fields
// rather than through SetReference (spec.md §4.5's
// "update_accumulations_for_affected_parents()").
func Rebuild(store *ObjectStore) {
	store.accum.mu.Lock()
	store.accum.membersByField = map[*registry.FieldSpec]map[uint64]map[uint64]*Object{}
	store.accum.mu.Unlock()

	for et, b := range snapshotBuckets(store) {
		for _, f := range et.AllFields() {
			if f.Kind != registry.Reference {
				continue
			}
			accFS, ok := f.Reference.Target.AccumulationFieldFor(f.Name)
			if !ok {
				continue
			}
			for _, obj := range b {
				fv := f.Get(obj.Value)
				target := store.objectForPointer(fv)
				if target != nil {
					store.accum.add(accFS, target.ID, obj)
				}
			}
		}
	}
}

func snapshotBuckets(store *ObjectStore) map[*registry.EntityType][]*Object {
	store.bmu.RLock()
	defer store.bmu.RUnlock()
	out := make(map[*registry.EntityType][]*Object, len(store.buckets))
	for et, b := range store.buckets {
		b.mu.RLock()
		list := make([]*Object, 0, len(b.byID))
		for _, o := range b.byID {
			list = append(list, o)
		}
		b.mu.RUnlock()
		out[et] = list
	}
	return out
}
