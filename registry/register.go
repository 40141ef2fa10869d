package registry

import (
	"fmt"
	"reflect"

	"github.com/syssam/persistcore/internal/ident"
)

// RegisterTypes builds a Registry from a set of application entity values.
// Each value must be a pointer to a zero-value struct, e.g.
// RegisterTypes(&Invoice{}, &InvoiceLine{}). This is the Go-idiomatic
// stand-in for spec.md §4.1's "register_package(root_pkg)" /
// "register_types(...)": the application provides the root types
// explicitly, and the Registry pulls in every type reachable from them
// transitively — a Reference field's target, a Complex field's
// pointer-to-struct element or key, an Accumulation field's target, and
// an embedded parent — per spec.md §4.1's "Must also pull in referenced
// types and inner types transitively." A type discovered this way still
// needs no explicit no-arg constructor call (reflect.New satisfies that
// for any Go struct); it only needs to be reachable from a root value.
func RegisterTypes(values ...any) (*Registry, error) {
	r := &Registry{
		byName:   map[string]*EntityType{},
		byGoType: map[reflect.Type]*EntityType{},
	}

	// Pass 1a: establish an EntityType skeleton for every explicitly
	// supplied root value. Registering the same type twice this way is a
	// caller error.
	for _, v := range values {
		if _, err := registerSkeleton(r, v); err != nil {
			return nil, err
		}
	}

	// Pass 1b: transitively discover every type reachable from an
	// already-known skeleton's fields, breadth-first. r.ordered is used
	// as the work queue itself: registerSkeleton appends to it, so newly
	// discovered types are scanned in turn as the loop bound grows. A
	// type reachable through more than one path is silently deduplicated
	// (it is not a caller error, unlike an explicit duplicate above).
	for i := 0; i < len(r.ordered); i++ {
		for _, discovered := range discoverableTypes(r.ordered[i].GoType) {
			if _, known := r.byGoType[discovered]; known {
				continue
			}
			if _, err := registerSkeleton(r, reflect.New(discovered).Interface()); err != nil {
				return nil, err
			}
		}
	}

	// Pass 2: resolve embedding (parent) links and classify own fields.
	for _, et := range r.ordered {
		if err := resolveParent(r, et); err != nil {
			return nil, err
		}
	}
	for _, et := range r.ordered {
		if err := classifyFields(r, et); err != nil {
			return nil, err
		}
	}
	for _, et := range r.ordered {
		for _, f := range et.Fields {
			if f.IsEncrypted {
				for cur := et; cur != nil; cur = cur.Parent {
					cur.HasEncryptedFields = true
				}
			}
		}
	}
	for _, et := range r.ordered {
		if et.Parent != nil {
			et.Parent.Children = append(et.Parent.Children, et)
		}
	}

	r.cycles = detectCycles(r)
	return r, nil
}

// registerSkeleton builds and records the EntityType skeleton for v,
// without yet classifying its fields (that needs every skeleton to exist
// first, so forward references resolve). Returns an error if v is not a
// pointer to a named struct, or if its name collides with an
// already-registered EntityType.
func registerSkeleton(r *Registry, v any) (*EntityType, error) {
	t := reflect.TypeOf(v)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, newTypeError(fmt.Sprintf("%T", v), "must register a pointer to a struct value (no-arg constructor requirement)")
	}
	st := t.Elem()
	name := st.Name()
	if name == "" {
		return nil, newTypeError(st.String(), "anonymous struct types cannot be registered")
	}
	if _, dup := r.byName[name]; dup {
		return nil, newTypeError(name, "registered more than once")
	}
	et := newEntityType(name, st)
	if _, abstract := reflect.New(st).Interface().(abstractMarker); !abstract {
		et.IsObjectType = true
	}
	if _, horizon := reflect.New(st).Interface().(horizonMarker); horizon {
		et.IsDataHorizonControlled = true
	}
	r.byName[name] = et
	r.byGoType[st] = et
	r.ordered = append(r.ordered, et)
	return et, nil
}

// discoverableTypes returns every struct type reachable from st's own
// (non-anonymous, non-skipped) fields that classifyField would later
// treat as a Reference target, a Complex field's pointer-to-struct
// element or key, or an Accumulation target — plus any embedded parent
// type. isDiscoverableEntityType excludes natively-supported Data types
// (time.Time, file fields) and anything with a registered string codec,
// since those are value types, not entity types, even though they are
// Go structs.
func discoverableTypes(st reflect.Type) []reflect.Type {
	var out []reflect.Type
	consider := func(t reflect.Type) {
		if isDiscoverableEntityType(t) {
			out = append(out, t)
		}
	}
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous {
			if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(HorizonControlled{}) && f.Type != reflect.TypeOf(Abstract{}) {
				out = append(out, f.Type) // an embedded parent entity type
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if parseTag(f.Tag.Get("persist")).skip {
			continue
		}
		switch ft := f.Type; ft.Kind() {
		case reflect.Ptr:
			if ft.Elem().Kind() == reflect.Struct {
				consider(ft.Elem())
			}
		case reflect.Slice, reflect.Array:
			if e := ft.Elem(); e.Kind() == reflect.Ptr && e.Elem().Kind() == reflect.Struct {
				consider(e.Elem())
			}
		case reflect.Map:
			if e := ft.Elem(); e.Kind() == reflect.Ptr && e.Elem().Kind() == reflect.Struct {
				consider(e.Elem())
			}
			if k := ft.Key(); k.Kind() == reflect.Ptr && k.Elem().Kind() == reflect.Struct {
				consider(k.Elem())
			}
		}
	}
	return out
}

// isDiscoverableEntityType reports whether t is a struct type that could
// plausibly be an application entity type rather than a value type: not
// a marker, not natively-supported Data (time.Time, a file field), and
// not a type with a registered string codec.
func isDiscoverableEntityType(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	if t == reflect.TypeOf(HorizonControlled{}) || t == reflect.TypeOf(Abstract{}) {
		return false
	}
	if isNativelySupportedData(t) {
		return false
	}
	if _, ok := lookupStringCodec(t); ok {
		return false
	}
	return true
}

func resolveParent(r *Registry, et *EntityType) error {
	st := et.GoType
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft == reflect.TypeOf(HorizonControlled{}) || ft == reflect.TypeOf(Abstract{}) {
			continue
		}
		if parent, ok := r.byGoType[ft]; ok {
			if et.Parent != nil {
				return newTypeError(et.Name, "multiple embedded entity types; single inheritance only")
			}
			et.Parent = parent
		}
	}
	return nil
}

func classifyFields(r *Registry, et *EntityType) error {
	st := et.GoType
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if sf.Anonymous {
			continue // embedding already handled as the parent link (or a marker).
		}
		if !sf.IsExported() {
			continue
		}
		tag := parseTag(sf.Tag.Get("persist"))
		if tag.skip {
			continue
		}
		fs, err := classifyField(r, et, sf, tag)
		if err != nil {
			return err
		}
		fs.Index = i
		et.Fields = append(et.Fields, fs)
	}
	return nil
}

func classifyField(r *Registry, et *EntityType, sf reflect.StructField, tag fieldTag) (*FieldSpec, error) {
	fs := &FieldSpec{
		Owner:             et,
		Name:              sf.Name,
		GoType:            sf.Type,
		UniqueGroup:       tag.uniqueGroup,
		ColumnSize:        tag.columnSize,
		IsEncrypted:       tag.encrypted,
		IsSecretForLogging: tag.secret,
	}

	if tag.accumulation != "" {
		return classifyAccumulation(r, et, sf, tag, fs)
	}

	t := sf.Type
	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct {
		if target, ok := r.byGoType[t.Elem()]; ok {
			fs.Kind = Reference
			fs.Nullable = true
			fs.ColumnName = ident.ReferenceColumnName(sf.Name)
			fs.Reference = &ReferenceSpec{Target: target, OnDeleteCascade: tag.cascade}
			return fs, nil
		}
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		if t.Kind() != reflect.Map && t.Elem().Kind() == reflect.Uint8 {
			break // []byte and [N]byte are BLOB-backed Data fields.
		}
		shape, elem, key, err := classifyComplexShape(t, tag)
		if err != nil {
			return nil, newFieldError(et.Name, sf.Name, err.Error())
		}
		fs.Kind = Complex
		fs.Nullable = true
		fs.EntryTableName = ident.EntryTableName(et.TableName, sf.Name)
		fs.Complex = &ComplexSpec{Shape: shape, Elem: elem, Key: key}
		return fs, nil
	}

	// Data field.
	dt := t
	if dt.Kind() == reflect.Ptr {
		fs.Nullable = true
		dt = dt.Elem()
	}
	if isNativelySupportedData(dt) || isEnumType(dt) {
		fs.Kind = Data
		fs.ColumnName = ident.ColumnName(sf.Name)
		if tag.required {
			fs.Nullable = false
		}
		return fs, nil
	}
	if codec, ok := lookupStringCodec(dt); ok {
		_ = codec
		fs.Kind = Data
		fs.ColumnName = ident.ColumnName(sf.Name)
		fs.StringCodecType = dt
		return fs, nil
	}
	return nil, newFieldError(et.Name, sf.Name,
		fmt.Sprintf("unsupported field type %s: not a registered reference, a supported data type, or a type with a registered string codec", t))
}

func classifyComplexShape(t reflect.Type, tag fieldTag) (ComplexShape, reflect.Type, reflect.Type, error) {
	switch t.Kind() {
	case reflect.Array:
		return ShapeArray, t.Elem(), nil, nil
	case reflect.Slice:
		if tag.set {
			return ShapeSet, t.Elem(), nil, nil
		}
		return ShapeList, t.Elem(), nil, nil
	case reflect.Map:
		return ShapeMap, t.Elem(), t.Key(), nil
	default:
		return 0, nil, nil, fmt.Errorf("unsupported complex container kind %s", t.Kind())
	}
}

func classifyAccumulation(r *Registry, et *EntityType, sf reflect.StructField, tag fieldTag, fs *FieldSpec) (*FieldSpec, error) {
	t := sf.Type
	if t.Kind() != reflect.Slice || t.Elem().Kind() != reflect.Ptr || t.Elem().Elem().Kind() != reflect.Struct {
		return nil, newFieldError(et.Name, sf.Name, "accumulation fields must be declared as []*OtherEntityType")
	}
	target, ok := r.byGoType[t.Elem().Elem()]
	if !ok {
		return nil, newFieldError(et.Name, sf.Name, fmt.Sprintf("accumulation target %s is not a registered entity type", t.Elem().Elem()))
	}
	fs.Kind = Accumulation
	fs.Nullable = true
	fs.Accumulation = &AccumulationSpec{Target: target, InverseField: tag.accumulation}
	return fs, nil
}
