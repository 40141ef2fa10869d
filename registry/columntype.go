package registry

import (
	"fmt"
	"reflect"

	"github.com/syssam/persistcore/dialect"
)

// MaxEnumValueLength bounds an enum column's width when no explicit
// ColumnSize was set: spec.md §4.10 sizes enum columns to "the greater
// of MAX_ENUM_VALUE_LENGTH and the longest discriminant".
const MaxEnumValueLength = 32

// ColumnTypeFor returns the semantic dialect.ColumnType a Data-kind
// FieldSpec (or the column backing a Reference field's foreign key, or a
// Complex field's element/key) maps to. It is the single source of truth
// both ddlgen (DDL emission) and schemabind (schema introspection) use
// to classify a field's expected storage shape.
func ColumnTypeFor(t reflect.Type) (dialect.ColumnType, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		return dialect.ColumnDateTime, nil
	case isFileType(t):
		return dialect.ColumnBlob, nil
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		return dialect.ColumnBlob, nil
	case t.Kind() == reflect.Array && t.Elem().Kind() == reflect.Uint8:
		return dialect.ColumnBlob, nil
	case isEnumType(t):
		return dialect.ColumnEnum, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return dialect.ColumnBool, nil
	case reflect.Int8, reflect.Uint8, reflect.Int16, reflect.Uint16:
		return dialect.ColumnSmallInt, nil
	case reflect.Int, reflect.Int32, reflect.Uint, reflect.Uint32:
		return dialect.ColumnInt, nil
	case reflect.Int64, reflect.Uint64:
		return dialect.ColumnBigInt, nil
	case reflect.Float32, reflect.Float64:
		return dialect.ColumnDouble, nil
	case reflect.String:
		return dialect.ColumnVarChar, nil
	default:
		return dialect.ColumnInvalid, fmt.Errorf("registry: no column type mapping for %s", t)
	}
}

// EnumWidth returns the column-size bound for an enum-kind FieldSpec:
// the greater of MaxEnumValueLength and explicitSize. t is not inspected:
// the enum's discriminant names play no part in the result.
func EnumWidth(t reflect.Type, explicitSize int) int {
	if explicitSize > MaxEnumValueLength {
		return explicitSize
	}
	return MaxEnumValueLength
}
