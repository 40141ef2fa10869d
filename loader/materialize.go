package loader

import (
	"context"
	"fmt"
	"reflect"

	"github.com/syssam/persistcore/dialect"
	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
)

// materializeOrRefresh implements spec.md §4.5's "Row -> Object"
// materialization rules: dispatch on the discriminator column to the leaf
// type, construct or refresh, decode every Data/Reference column,
// surfacing an "overridden by database" warning when the database value
// changed and the Object also carries an un-saved local edit to the same
// field, and finally load every Complex field's entry-table image.
func (l *Loader) materializeOrRefresh(ctx context.Context, drv dialect.ExecQuerier, queriedAs *registry.EntityType, bindings []colBinding, row rowValues, st *loadState) (*objstore.Object, bool, error) {
	id, ok := toUint64(row["c_id"])
	if !ok {
		return nil, false, fmt.Errorf("loader: %s: row has no ID", queriedAs.Name)
	}

	leaf := queriedAs
	if dc, ok := toString(row["c_domain_class"]); ok && dc != "" {
		if et, found := l.reg.Get(dc); found {
			leaf = et
		}
	}

	existing, wasRegistered := l.store.FindByID(leaf, id)
	var obj *objstore.Object
	if wasRegistered {
		obj = existing
	} else {
		obj = l.store.New(leaf, id)
		initComplexFields(obj)
	}
	record := l.cache.GetOrCreate(leaf, id)

	changed := false
	for _, b := range bindings {
		if b.kind != "field" {
			continue
		}
		transport, present := row[b.alias]
		if !present {
			continue
		}
		fieldChanged, err := l.applyColumn(obj, record, b.field, transport, wasRegistered, st)
		if err != nil {
			return nil, false, fmt.Errorf("loader: %s.%s: %w", leaf.Name, b.field.Name, err)
		}
		changed = changed || fieldChanged
	}

	if !wasRegistered {
		obj.MarkStored()
		l.store.Register(obj)
		changed = true
	}

	for _, f := range leaf.AllFields() {
		if f.Kind != registry.Complex {
			continue
		}
		if err := l.loadComplexField(ctx, drv, obj, record, f, st); err != nil {
			return nil, false, fmt.Errorf("loader: %s.%s: %w", leaf.Name, f.Name, err)
		}
	}

	return obj, changed, nil
}

// applyColumn decodes one Data or Reference column and applies spec.md
// §4.5's three-way conflict rule for already-registered Objects: the
// database always wins, but a field whose live in-memory value diverges
// from both the old cached transport AND the new one gets a warning
// rather than a silent overwrite.
func (l *Loader) applyColumn(obj *objstore.Object, record *recordcache.ObjectRecord, f *registry.FieldSpec, transport any, wasRegistered bool, st *loadState) (bool, error) {
	switch f.Kind {
	case registry.Data:
		return l.applyDataColumn(obj, record, f, transport, wasRegistered)
	case registry.Reference:
		return l.applyReferenceColumn(obj, record, f, transport, wasRegistered, st)
	default:
		return false, nil
	}
}

func (l *Loader) applyDataColumn(obj *objstore.Object, record *recordcache.ObjectRecord, f *registry.FieldSpec, transport any, wasRegistered bool) (bool, error) {
	if wasRegistered {
		prev, hadPrev := record.Get(f.ColumnName)
		if hadPrev && valuesEqual(prev, transport) {
			return false, nil
		}
		if hadPrev {
			curTransport, _, err := l.codec.EncodeData(f, f.Get(obj.Value))
			if err == nil && !valuesEqual(prev, curTransport) {
				obj.AddWarning(fmt.Errorf("%s: overridden by database", f.Name))
			}
		}
	}

	var fileHint string
	if existing := f.Get(obj.Value); existing.Kind() == reflect.Struct && existing.Type() == reflect.TypeOf(registry.File{}) {
		fileHint = existing.Interface().(registry.File).OriginalPath
	}
	v, usedFallback, err := l.codec.DecodeData(f, transport, f.IsEncrypted && l.codec.HasCrypto(), fileHint)
	if err != nil {
		return false, err
	}
	if usedFallback {
		obj.AddWarning(fmt.Errorf("%s: original path not writable, file written to fallback path", f.Name))
	}
	if v.IsValid() {
		setFieldValue(f.Get(obj.Value), v)
	}
	record.Set(f.ColumnName, transport)
	return true, nil
}

func (l *Loader) applyReferenceColumn(obj *objstore.Object, record *recordcache.ObjectRecord, f *registry.FieldSpec, transport any, wasRegistered bool, st *loadState) (bool, error) {
	if wasRegistered {
		if prev, hadPrev := record.Get(f.ColumnName); hadPrev && valuesEqual(prev, transport) {
			return false, nil
		}
	}
	record.Set(f.ColumnName, transport)

	if transport == nil {
		l.store.SetReference(obj, f.Name, nil)
		return true, nil
	}
	targetID, ok := toUint64(transport)
	if !ok {
		return false, fmt.Errorf("reference column must be numeric, got %T", transport)
	}
	field := f
	captured := obj
	if target, ok := l.store.FindByID(f.Reference.Target, targetID); ok {
		l.store.SetReference(captured, field.Name, target)
		return true, nil
	}
	st.pending = append(st.pending, pendingRef{
		object:     captured,
		targetType: f.Reference.Target,
		targetID:   targetID,
		fieldName:  field.Name,
		apply:      func(target *objstore.Object) { l.store.SetReference(captured, field.Name, target) },
	})
	return true, nil
}

// setFieldValue assigns v (the Data field's application-kind value,
// possibly requiring one level of pointer wrapping for a *T field) to fv.
func setFieldValue(fv reflect.Value, v reflect.Value) {
	if fv.Kind() == reflect.Ptr {
		ptr := reflect.New(fv.Type().Elem())
		if v.Type().ConvertibleTo(fv.Type().Elem()) {
			ptr.Elem().Set(v.Convert(fv.Type().Elem()))
		}
		fv.Set(ptr)
		return
	}
	if v.Type().ConvertibleTo(fv.Type()) {
		fv.Set(v.Convert(fv.Type()))
	}
}

// initComplexFields fills every Complex field of a freshly constructed,
// not-yet-registered Object with an empty (non-nil) container, mirroring
// objstore.ObjectStore.autoInitComplex for objects the Loader constructs
// directly via Store.New rather than Store.Create.
func initComplexFields(obj *objstore.Object) {
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
		}
	}
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case float64:
		return uint64(n), true
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}
