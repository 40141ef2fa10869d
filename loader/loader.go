// Package loader implements the Loader component of spec.md §4.5: the
// multi-cycle load algorithm that selects rows, materializes or refreshes
// Objects, resolves references across cycles so referential integrity
// holds by the time Synchronize/LoadOnly/Reload return, and evicts
// data-horizon-controlled Objects no longer reachable after a full
// synchronize.
//
// Grounded on the teacher's dialect/sql Driver/Rows scanning surface for
// reading query results back (dialect/sql/driver.go's Conn.Query); the
// cycle-based reference-resolution algorithm itself has no teacher
// analogue (the teacher never materializes an application object graph
// from rows, it only returns them to the caller), so it is implemented
// directly from spec.md §4.5's pseudocode.
package loader

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/syssam/persistcore/dialect"
	"github.com/syssam/persistcore/dialect/family"
	sqldialect "github.com/syssam/persistcore/dialect/sql"
	"github.com/syssam/persistcore/internal/ident"
	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
	"github.com/syssam/persistcore/valuecodec"
)

// UnresolvedReference is a reference whose target row never arrived by
// the time a load operation finished — the target id does not exist (or
// no longer exists) in the database (spec.md §4.5: "logged and the
// reference field is left null").
type UnresolvedReference struct {
	Object     *objstore.Object
	FieldName  string
	TargetType *registry.EntityType
	TargetID   uint64
}

// Loader is the process-wide Loader instance owned by one Controller.
type Loader struct {
	reg    *registry.Registry
	mapper family.Mapper
	codec  *valuecodec.Codec
	store  *objstore.ObjectStore
	cache  *recordcache.RecordCache

	// DataHorizonPeriod bounds how far back a data-horizon-controlled
	// type's rows are loaded during a full Synchronize (spec.md §4.5).
	DataHorizonPeriod time.Duration
}

// New returns a Loader wired to the given components.
func New(reg *registry.Registry, mapper family.Mapper, codec *valuecodec.Codec, store *objstore.ObjectStore, cache *recordcache.RecordCache, dataHorizonPeriod time.Duration) *Loader {
	return &Loader{reg: reg, mapper: mapper, codec: codec, store: store, cache: cache, DataHorizonPeriod: dataHorizonPeriod}
}

// pendingRef is a not-yet-assigned reference (a top-level Reference field,
// or one element of a Complex field whose static element type is itself a
// registered entity): apply assigns the resolved target once found.
type pendingRef struct {
	object     *objstore.Object
	targetType *registry.EntityType
	targetID   uint64
	fieldName  string
	apply      func(target *objstore.Object)
}

// loadState accumulates cross-cycle bookkeeping for one Synchronize/
// LoadOnly/Reload call.
type loadState struct {
	pending   []pendingRef
	requested map[*registry.EntityType]map[uint64]bool // ids already queued for a next-cycle SELECT, this call
	changed   bool
}

func newLoadState() *loadState {
	return &loadState{requested: map[*registry.EntityType]map[uint64]bool{}}
}

func (s *loadState) alreadyRequested(et *registry.EntityType, id uint64) bool {
	return s.requested[et] != nil && s.requested[et][id]
}

func (s *loadState) markRequested(et *registry.EntityType, id uint64) {
	if s.requested[et] == nil {
		s.requested[et] = map[uint64]bool{}
	}
	s.requested[et][id] = true
}

// Result is what every load entry point returns.
type Result struct {
	Loaded     []*objstore.Object
	Changed    bool
	Unresolved []UnresolvedReference
}

// Synchronize performs spec.md §4.5's initial/full synchronization: every
// registered object type's table is selected (data-horizon-controlled
// types filtered to recent rows, but anything referenced by an
// already-loaded row is still pulled in via the normal cycle algorithm),
// followed by data-horizon eviction. exclude, if non-empty, skips those
// object types' top-level scan (they may still be loaded if referenced).
func (l *Loader) Synchronize(ctx context.Context, drv dialect.Driver, exclude ...*registry.EntityType) (*Result, error) {
	excluded := map[*registry.EntityType]bool{}
	for _, et := range exclude {
		excluded[et] = true
	}

	st := newLoadState()
	var allRows []materializedBatch
	for _, et := range l.reg.All() {
		if !et.IsObjectType || excluded[et] {
			continue
		}
		where := ""
		if et.IsDataHorizonControlled && l.DataHorizonPeriod > 0 {
			cutoff := time.Now().Add(-l.DataHorizonPeriod).Round(time.Millisecond)
			where = fmt.Sprintf("t0.%s >= ?", l.mapper.Quote(ident.ColumnLastModified))
			rows, err := l.selectChain(ctx, drv, et, where, []any{cutoff})
			if err != nil {
				return nil, err
			}
			allRows = append(allRows, materializedBatch{et: et, rows: rows})
			continue
		}
		rows, err := l.selectChain(ctx, drv, et, "", nil)
		if err != nil {
			return nil, err
		}
		allRows = append(allRows, materializedBatch{et: et, rows: rows})
	}

	loaded, err := l.runCycles(ctx, drv, allRows, st)
	if err != nil {
		return nil, err
	}

	l.evictDataHorizon(loaded)

	return &Result{Loaded: loaded, Changed: st.changed, Unresolved: l.finalizeUnresolved(st)}, nil
}

// LoadOnly performs spec.md §4.5's targeted load: a single table's rows
// filtered by a caller-supplied predicate clause (spec.md §6's string
// form, e.g. "S = 'available'"), capped at maxCount rows (<=0 means
// unbounded), while still pulling in referenced parent rows as needed.
func (l *Loader) LoadOnly(ctx context.Context, drv dialect.Driver, et *registry.EntityType, whereClause string, maxCount int) (*Result, error) {
	st := newLoadState()
	rows, err := l.selectChain(ctx, drv, et, whereClause, nil)
	if err != nil {
		return nil, err
	}
	if maxCount > 0 && len(rows) > maxCount {
		rows = rows[:maxCount]
	}
	loaded, err := l.runCycles(ctx, drv, []materializedBatch{{et: et, rows: rows}}, st)
	if err != nil {
		return nil, err
	}
	return &Result{Loaded: loaded, Changed: st.changed, Unresolved: l.finalizeUnresolved(st)}, nil
}

// Reload refreshes a single already-known Object and anything it
// references that is currently missing (spec.md §4.5's "reload(obj)"),
// deduplicating concurrent reloads of the same Object via the
// ObjectStore's singleflight group.
func (l *Loader) Reload(ctx context.Context, drv dialect.Driver, obj *objstore.Object) (*Result, error) {
	key := fmt.Sprintf("%s:%d", obj.EntityType.Name, obj.ID)
	v, err, _ := l.store.ReloadGroup().Do(key, func() (any, error) {
		st := newLoadState()
		where := fmt.Sprintf("t0.%s = ?", l.mapper.Quote(ident.ColumnID))
		rows, err := l.selectChain(ctx, drv, obj.EntityType, where, []any{obj.ID})
		if err != nil {
			return nil, err
		}
		loaded, err := l.runCycles(ctx, drv, []materializedBatch{{et: obj.EntityType, rows: rows}}, st)
		if err != nil {
			return nil, err
		}
		return &Result{Loaded: loaded, Changed: st.changed, Unresolved: l.finalizeUnresolved(st)}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

type materializedBatch struct {
	et   *registry.EntityType
	rows []rowValues
}

// rowValues is one scanned row, keyed by colBinding.alias.
type rowValues map[string]any

// selectChain runs buildChainSelect for et and scans every row back into
// rowValues maps.
func (l *Loader) selectChain(ctx context.Context, drv dialect.ExecQuerier, et *registry.EntityType, where string, args []any) ([]rowValues, error) {
	query, bindings := buildChainSelect(l.mapper, et, where)
	var rows sqldialect.Rows
	if args == nil {
		args = []any{}
	}
	if err := drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("loader: select %s: %w", et.Name, err)
	}
	defer rows.Close()

	var out []rowValues
	for rows.Next() {
		dest := make([]any, len(bindings))
		destPtrs := make([]any, len(bindings))
		for i := range dest {
			destPtrs[i] = &dest[i]
		}
		if err := rows.Scan(destPtrs...); err != nil {
			return nil, fmt.Errorf("loader: scan %s: %w", et.Name, err)
		}
		rv := make(rowValues, len(bindings))
		for i, b := range bindings {
			rv[b.alias] = dest[i]
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// runCycles implements spec.md §4.5's algorithm: materialize the given
// batches, then resolve pending references against whatever is now
// registered, issuing further SELECTs grouped by target type for any
// reference whose target is still missing, until nothing is outstanding.
func (l *Loader) runCycles(ctx context.Context, drv dialect.ExecQuerier, initial []materializedBatch, st *loadState) ([]*objstore.Object, error) {
	var loaded []*objstore.Object
	batches := initial

	for {
		for _, b := range batches {
			_, bindings := buildChainSelect(l.mapper, b.et, "")
			for _, row := range b.rows {
				obj, changed, err := l.materializeOrRefresh(ctx, drv, b.et, bindings, row, st)
				if err != nil {
					return loaded, err
				}
				loaded = append(loaded, obj)
				st.changed = st.changed || changed
			}
		}

		nextByType := map[*registry.EntityType][]uint64{}
		var still []pendingRef
		for _, p := range st.pending {
			if target, ok := l.store.FindByID(p.targetType, p.targetID); ok {
				p.apply(target)
				continue
			}
			still = append(still, p)
			if !st.alreadyRequested(p.targetType, p.targetID) {
				nextByType[p.targetType] = append(nextByType[p.targetType], p.targetID)
				st.markRequested(p.targetType, p.targetID)
			}
		}
		st.pending = still

		if len(nextByType) == 0 {
			break
		}

		batches = batches[:0]
		for et, ids := range nextByType {
			where := idInClause(l.mapper, len(ids))
			args := make([]any, len(ids))
			for i, id := range ids {
				args[i] = id
			}
			rows, err := l.selectChain(ctx, drv, et, where, args)
			if err != nil {
				return loaded, err
			}
			batches = append(batches, materializedBatch{et: et, rows: rows})
		}
	}

	return loaded, nil
}

// finalizeUnresolved converts whatever pendingRefs never resolved into
// the caller-visible UnresolvedReference list (spec.md §4.5: "logged and
// the reference field is left null"), recording a warning on the
// referring Object for visibility.
func (l *Loader) finalizeUnresolved(st *loadState) []UnresolvedReference {
	var out []UnresolvedReference
	for _, p := range st.pending {
		if p.object != nil {
			p.object.AddWarning(fmt.Errorf("%s: reference to %s(id=%d) could not be resolved", p.fieldName, p.targetType.Name, p.targetID))
		}
		out = append(out, UnresolvedReference{Object: p.object, TargetType: p.targetType, TargetID: p.targetID, FieldName: p.fieldName})
	}
	return out
}

// registeredPointerTarget reports the EntityType a Complex field's
// element/key static type points to, if it's a registered-entity pointer.
func registeredPointerTarget(reg *registry.Registry, t reflect.Type) (*registry.EntityType, bool) {
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, false
	}
	return reg.GetByGoType(t.Elem())
}
