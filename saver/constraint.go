package saver

import (
	"fmt"
	"reflect"

	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/registry"
)

// ConstraintViolation is the Saver's own pre-flight constraint-check
// error, before any statement reaches the database (spec.md §4.6's
// "Constraint pre-check"). The Controller maps this to
// persistcore.ConstraintError.
type ConstraintViolation struct {
	TypeName  string
	FieldName string
	Reason    string
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("saver: constraint: %s.%s: %s", e.TypeName, e.FieldName, e.Reason)
}

// checkConstraints runs spec.md §4.6's pre-flight checks for every Data
// field of obj's own EntityType before any SQL is issued. truncated
// collects fields that were text-truncated with a warning rather than
// rejected outright.
func checkConstraints(store *objstore.ObjectStore, et *registry.EntityType, obj *objstore.Object) (truncated []string, err error) {
	for _, f := range et.Fields {
		if f.Kind != registry.Data {
			continue
		}
		v := f.Get(obj.Value)
		isNil := v.Kind() == reflect.Ptr && v.IsNil()

		if !f.Nullable && isNil {
			return nil, &ConstraintViolation{TypeName: et.Name, FieldName: f.Name, Reason: "NOT NULL violation"}
		}
		if isNil {
			continue
		}

		if f.ColumnSize > 0 {
			if s, isEnum, isText := textLen(f, v); isText {
				switch {
				case isEnum && len(s) > f.ColumnSize:
					return nil, &ConstraintViolation{TypeName: et.Name, FieldName: f.Name,
						Reason: fmt.Sprintf("enum discriminant %q (%d chars) exceeds column size %d", s, len(s), f.ColumnSize)}
				case !isEnum:
					if cut, didTruncate := truncateText(s, f.ColumnSize); didTruncate {
						if sv := stringValue(v); sv.IsValid() && sv.CanSet() {
							sv.SetString(cut)
						}
						obj.AddWarning(fmt.Errorf("%s: truncated to %d characters", f.Name, f.ColumnSize))
						truncated = append(truncated, f.Name)
					}
				}
			}
		}

		if f.UniqueGroup != "" {
			if violatesUnique(store, et, obj, f.UniqueGroup) {
				return nil, &ConstraintViolation{TypeName: et.Name, FieldName: f.Name,
					Reason: fmt.Sprintf("UNIQUE constraint %q violated", f.UniqueGroup)}
			}
		}
	}
	return truncated, nil
}

// textLen reports the string length of v if f is a text/enum field
// (isText), and whether f is specifically an enum (vs. a plain string),
// since only enum discriminants are rejected outright for exceeding
// ColumnSize — plain text is truncated instead (handled by truncateText).
func textLen(f *registry.FieldSpec, v reflect.Value) (s string, isEnum bool, isText bool) {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.String && !isEnumValue(v) {
		return "", false, false
	}
	isEnum = isEnumValue(v)
	if sr, ok := v.Interface().(fmt.Stringer); ok {
		return sr.String(), isEnum, true
	}
	if v.Kind() == reflect.String {
		return v.String(), isEnum, true
	}
	return fmt.Sprintf("%v", v.Interface()), isEnum, true
}

// stringValue returns the addressable, settable string-kind reflect.Value
// backing a Data field's live string, dereferencing one level of pointer
// indirection. Enum-kind fields (named string types) are left alone: their
// discriminant is rejected outright above, never truncated.
func stringValue(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.String {
		return reflect.Value{}
	}
	return v
}

func isEnumValue(v reflect.Value) bool {
	t := v.Type()
	return t.Name() != "" && t.Name() != "string" && t.Name() != "Time"
}

// truncateText truncates s to size runes; the caller records a warning
// on the Object for each field actually truncated.
func truncateText(s string, size int) (string, bool) {
	r := []rune(s)
	if len(r) <= size {
		return s, false
	}
	return string(r[:size]), true
}

// violatesUnique reports whether more than one registered Object of et
// shares obj's value combination for every field in group.
func violatesUnique(store *objstore.ObjectStore, et *registry.EntityType, obj *objstore.Object, group string) bool {
	var fields []*registry.FieldSpec
	for _, f := range et.AllFields() {
		if f.Kind == registry.Data && f.UniqueGroup == group {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return false
	}
	matches := 0
	for _, other := range store.All(et) {
		same := true
		for _, f := range fields {
			if !reflect.DeepEqual(f.Get(obj.Value).Interface(), f.Get(other.Value).Interface()) {
				same = false
				break
			}
		}
		if same {
			matches++
		}
	}
	return matches > 1
}
