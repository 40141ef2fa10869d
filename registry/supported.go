package registry

import (
	"reflect"
	"time"
)

// supportedKinds lists the reflect.Kind values a Data field may natively
// hold, per spec.md §4.1: "primitive, numeric, temporal, byte-array,
// char-array, text, enum" types.
var supportedKinds = map[reflect.Kind]bool{
	reflect.Bool:    true,
	reflect.Int:     true,
	reflect.Int8:    true,
	reflect.Int16:   true,
	reflect.Int32:   true,
	reflect.Int64:   true,
	reflect.Uint:    true,
	reflect.Uint8:   true,
	reflect.Uint16:  true,
	reflect.Uint32:  true,
	reflect.Uint64:  true,
	reflect.Float32: true,
	reflect.Float64: true,
	reflect.String:  true,
}

var timeType = reflect.TypeOf(time.Time{})

// isNativelySupportedData reports whether t (after stripping at most one
// pointer indirection) is a natively supported Data type: a supported
// primitive kind, time.Time, []byte, [N]byte, or a named type whose
// underlying kind is one of those (enums are modeled as named string or
// integer types).
func isNativelySupportedData(t reflect.Type) bool {
	if t == timeType || isFileType(t) {
		return true
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return true // []byte
	}
	if t.Kind() == reflect.Array && t.Elem().Kind() == reflect.Uint8 {
		return true // [N]byte
	}
	return supportedKinds[t.Kind()]
}

// isEnumType reports whether t is a named type (not time.Time, not a
// built-in alias) whose underlying kind is string or an integer kind —
// the Go convention for enums. Enum discriminants are stored by name
// (spec.md §4.10); the column width comes from EnumWidth.
func isEnumType(t reflect.Type) bool {
	if t.Name() == "" || t.PkgPath() == "" || t == timeType {
		return false
	}
	switch t.Kind() {
	case reflect.String, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}
