package loader

import (
	"context"
	"fmt"
	"reflect"

	"github.com/syssam/persistcore/dialect"
	sqldialect "github.com/syssam/persistcore/dialect/sql"
	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
	"github.com/syssam/persistcore/valuecodec"
)

// loadComplexField loads field f's entry-table image for obj in a single
// pass (spec.md §4.5: "For each complex field: load the corresponding
// entry table rows and construct the container in a single pass, ordered
// by element-order for lists/arrays"), assigns the constructed container
// to the live field, and records the decoded rows into record so the
// Saver's later diff has a last-known image to compare against.
func (l *Loader) loadComplexField(ctx context.Context, drv dialect.ExecQuerier, obj *objstore.Object, record *recordcache.ObjectRecord, f *registry.FieldSpec, st *loadState) error {
	switch f.Complex.Shape {
	case registry.ShapeSet, registry.ShapeArray:
		return l.loadSetOrArrayField(ctx, drv, obj, record, f, st)
	case registry.ShapeList:
		return l.loadListField(ctx, drv, obj, record, f, st)
	case registry.ShapeMap:
		return l.loadMapField(ctx, drv, obj, record, f, st)
	default:
		return fmt.Errorf("loader: %s.%s: unknown complex shape", f.Owner.Name, f.Name)
	}
}

// queryEntryRows runs query (one of buildEntrySelectSet/List/Map) and
// scans every row back as a slice of raw transport values, positionally
// matching the query's own column list.
func (l *Loader) queryEntryRows(ctx context.Context, drv dialect.ExecQuerier, query string, args []any, numCols int) ([][]any, error) {
	var rows sqldialect.Rows
	if err := drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("loader: entry select: %w", err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		dest := make([]any, numCols)
		destPtrs := make([]any, numCols)
		for i := range dest {
			destPtrs[i] = &dest[i]
		}
		if err := rows.Scan(destPtrs...); err != nil {
			return nil, fmt.Errorf("loader: entry scan: %w", err)
		}
		out = append(out, dest)
	}
	return out, rows.Err()
}

// decodeElementOrPending decodes one entry-table element/key transport
// value against its static Go type. When elemType is a registered-entity
// pointer, the transport is the target's id: if already registered, the
// resolved *T is returned directly; otherwise a pendingRef is queued
// against st and applyLater is invoked once the target materializes in a
// later cycle (the element slot is left zero until then).
func (l *Loader) decodeElementOrPending(elemType reflect.Type, transport any, st *loadState, owner *objstore.Object, fieldName string, applyLater func(target *objstore.Object)) (reflect.Value, error) {
	if target, ok := registeredPointerTarget(l.reg, elemType); ok {
		if transport == nil {
			return reflect.Zero(elemType), nil
		}
		id, ok := toUint64(transport)
		if !ok {
			return reflect.Value{}, fmt.Errorf("complex element reference must be numeric, got %T", transport)
		}
		if existing, found := l.store.FindByID(target, id); found {
			return existing.Value.Addr(), nil
		}
		st.pending = append(st.pending, pendingRef{
			object:     owner,
			targetType: target,
			targetID:   id,
			fieldName:  fieldName,
			apply:      applyLater,
		})
		return reflect.Zero(elemType), nil
	}
	return valuecodec.DecodeElement(elemType, transport)
}

func (l *Loader) loadSetOrArrayField(ctx context.Context, drv dialect.ExecQuerier, obj *objstore.Object, record *recordcache.ObjectRecord, f *registry.FieldSpec, st *loadState) error {
	query := buildEntrySelectSet(l.mapper, f.EntryTableName, f.Owner.TableName)
	rows, err := l.queryEntryRows(ctx, drv, query, []any{obj.ID}, 1)
	if err != nil {
		return err
	}

	fv := f.Get(obj.Value)
	container := reflect.MakeSlice(f.GoType, 0, len(rows))
	cacheRows := make([]recordcache.ComplexRow, 0, len(rows))
	for i, r := range rows {
		elemVal, err := l.decodeElementOrPending(f.Complex.Elem, r[0], st, obj, f.Name, setElementSetter(&container, i))
		if err != nil {
			return err
		}
		container = reflect.Append(container, elemVal)
		cacheRows = append(cacheRows, recordcache.ComplexRow{Value: r[0]})
	}
	fv.Set(container)
	record.SetComplexRows(f.Name, cacheRows)
	return record.SetComplexSnapshot(f.Name, cacheRows)
}

func (l *Loader) loadListField(ctx context.Context, drv dialect.ExecQuerier, obj *objstore.Object, record *recordcache.ObjectRecord, f *registry.FieldSpec, st *loadState) error {
	query := buildEntrySelectList(l.mapper, f.EntryTableName, f.Owner.TableName)
	rows, err := l.queryEntryRows(ctx, drv, query, []any{obj.ID}, 2)
	if err != nil {
		return err
	}

	fv := f.Get(obj.Value)
	container := reflect.MakeSlice(f.GoType, 0, len(rows))
	cacheRows := make([]recordcache.ComplexRow, 0, len(rows))
	for i, r := range rows {
		elemVal, err := l.decodeElementOrPending(f.Complex.Elem, r[0], st, obj, f.Name, setElementSetter(&container, i))
		if err != nil {
			return err
		}
		container = reflect.Append(container, elemVal)
		orderKey, _ := toInt64(r[1])
		cacheRows = append(cacheRows, recordcache.ComplexRow{Value: r[0], OrderKey: orderKey})
	}
	fv.Set(container)
	record.SetComplexRows(f.Name, cacheRows)
	return record.SetComplexSnapshot(f.Name, cacheRows)
}

func (l *Loader) loadMapField(ctx context.Context, drv dialect.ExecQuerier, obj *objstore.Object, record *recordcache.ObjectRecord, f *registry.FieldSpec, st *loadState) error {
	query := buildEntrySelectMap(l.mapper, f.EntryTableName, f.Owner.TableName)
	rows, err := l.queryEntryRows(ctx, drv, query, []any{obj.ID}, 2)
	if err != nil {
		return err
	}

	fv := f.Get(obj.Value)
	container := reflect.MakeMap(f.GoType)
	cacheRows := make([]recordcache.ComplexRow, 0, len(rows))
	for _, r := range rows {
		keyVal, err := valuecodec.DecodeElement(f.Complex.Key, r[0])
		if err != nil {
			return fmt.Errorf("loader: %s.%s: key: %w", f.Owner.Name, f.Name, err)
		}
		valVal, err := l.decodeElementOrPending(f.Complex.Elem, r[1], st, obj, f.Name, func(target *objstore.Object) {
			container.SetMapIndex(keyVal, target.Value.Addr())
		})
		if err != nil {
			return err
		}
		container.SetMapIndex(keyVal, valVal)
		cacheRows = append(cacheRows, recordcache.ComplexRow{Key: r[0], Value: r[1]})
	}
	fv.Set(container)
	record.SetComplexRows(f.Name, cacheRows)
	return record.SetComplexSnapshot(f.Name, cacheRows)
}

// setElementSetter returns a pendingRef.apply closure that, once a
// reference-typed element's target materializes, rewrites slot i of
// *container in place. container is re-sliced as elements are appended
// during the same pass, so the closure captures the slice header by
// pointer rather than by value.
func setElementSetter(container *reflect.Value, i int) func(target *objstore.Object) {
	return func(target *objstore.Object) {
		if i >= container.Len() {
			return
		}
		container.Index(i).Set(target.Value.Addr())
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
