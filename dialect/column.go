package dialect

// ColumnType is the semantic (database-independent) type of a main-table or
// entry-table column. A Family maps each ColumnType to a concrete SQL type
// expression for its database.
type ColumnType int

const (
	// ColumnInvalid is the zero value; never a valid column type.
	ColumnInvalid ColumnType = iota
	ColumnBool
	ColumnSmallInt
	ColumnInt
	ColumnBigInt
	ColumnDouble
	ColumnDecimal
	ColumnChar
	ColumnVarChar
	ColumnText
	ColumnBlob
	ColumnDate
	ColumnTime
	ColumnDateTime
	ColumnEnum
)

// String returns a human-readable name for the column type, used in
// SchemaMismatch error messages and the DDL-generation sibling tool.
func (c ColumnType) String() string {
	switch c {
	case ColumnBool:
		return "bool"
	case ColumnSmallInt:
		return "small_int"
	case ColumnInt:
		return "int"
	case ColumnBigInt:
		return "big_int"
	case ColumnDouble:
		return "double"
	case ColumnDecimal:
		return "decimal"
	case ColumnChar:
		return "char"
	case ColumnVarChar:
		return "varchar"
	case ColumnText:
		return "text"
	case ColumnBlob:
		return "blob"
	case ColumnDate:
		return "date"
	case ColumnTime:
		return "time"
	case ColumnDateTime:
		return "datetime"
	case ColumnEnum:
		return "enum"
	default:
		return "invalid"
	}
}
