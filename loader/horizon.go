package loader

import (
	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/registry"
)

// evictDataHorizon implements spec.md §4.5's end-of-synchronize eviction
// rule: "For every registered Object not present in the just-loaded set,
// if it is data-horizon-controlled and no other registered Object
// references it, unregister it and drop its ObjectRecord. Otherwise keep
// it." loaded is the full set of Objects (re)materialized by the
// Synchronize call that just ran, regardless of which cycle pulled them
// in.
func (l *Loader) evictDataHorizon(loaded []*objstore.Object) {
	loadedIDs := map[*registry.EntityType]map[uint64]bool{}
	for _, o := range loaded {
		if loadedIDs[o.EntityType] == nil {
			loadedIDs[o.EntityType] = map[uint64]bool{}
		}
		loadedIDs[o.EntityType][o.ID] = true
	}

	for _, et := range l.reg.All() {
		if !et.IsObjectType || !et.IsDataHorizonControlled {
			continue
		}
		for _, obj := range l.store.All(et) {
			if loadedIDs[et][obj.ID] {
				continue
			}
			if l.isReferencedByAny(obj) {
				continue
			}
			l.store.Unregister(obj)
			l.cache.Delete(et, obj.ID)
		}
	}
}

// isReferencedByAny reports whether any currently registered Object, of
// any type, holds a live Reference to target. It is a direct scan rather
// than a lookup against the accumulation index because eviction must
// honor every Reference field, not only those with a declared inverse
// accumulation field.
func (l *Loader) isReferencedByAny(target *objstore.Object) bool {
	for _, et := range l.reg.All() {
		if !et.IsObjectType {
			continue
		}
		for _, f := range et.AllFields() {
			if f.Kind != registry.Reference {
				continue
			}
			if f.Reference.Target != target.EntityType && !target.EntityType.IsDescendantOf(f.Reference.Target) {
				continue
			}
			for _, obj := range l.store.All(et) {
				if other, ok := l.store.ReferenceTarget(obj, f.Name); ok && other == target {
					return true
				}
			}
		}
	}
	return false
}
