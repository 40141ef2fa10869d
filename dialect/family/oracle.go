package family

import (
	"fmt"

	"github.com/syssam/persistcore/dialect"
)

func init() {
	Register(oracleLike{})
}

// oracleLike is interface-only: no driver in this module's dependency set
// speaks Oracle's wire protocol, matching spec.md §1's "Dialect ...
// interface-only here" for families the core doesn't ship a concrete
// connector for. Callers who need it supply their own dialect.Driver and
// register a driver name that maps to OracleLike via ForDriverName.
type oracleLike struct{}

func (oracleLike) Family() Family { return OracleLike }

func (oracleLike) SQLType(col dialect.ColumnType, size int) (string, error) {
	switch col {
	case dialect.ColumnBool:
		return "NUMBER(1)", nil
	case dialect.ColumnSmallInt:
		return "NUMBER(5)", nil
	case dialect.ColumnInt:
		return "NUMBER(10)", nil
	case dialect.ColumnBigInt:
		return "NUMBER(19)", nil
	case dialect.ColumnDouble:
		return "BINARY_DOUBLE", nil
	case dialect.ColumnDecimal:
		return "NUMBER(38,10)", nil
	case dialect.ColumnChar:
		return fmt.Sprintf("CHAR(%d)", orDefault(size, 1)), nil
	case dialect.ColumnVarChar, dialect.ColumnEnum:
		return fmt.Sprintf("VARCHAR2(%d)", orDefault(size, 255)), nil
	case dialect.ColumnText:
		return "CLOB", nil
	case dialect.ColumnBlob:
		return "BLOB", nil
	case dialect.ColumnDate:
		return "DATE", nil
	case dialect.ColumnTime:
		return "TIMESTAMP", nil // Oracle has no bare TIME type.
	case dialect.ColumnDateTime:
		return "TIMESTAMP(3)", nil
	default:
		return "", fmt.Errorf("family: oracle-like: unsupported column type %s", col)
	}
}

func (oracleLike) Quote(ident string) string { return `"` + ident + `"` }

// Oracle rejects a set of ON DELETE CASCADE foreign keys that form a cycle
// at DDL time (ORA-02273-adjacent cascade-cycle errors), so the core must
// break the cycle by disabling cascade on at least one edge (see
// registry.Cycles and spec.md §4.1).
func (oracleLike) AllowsCascadeInCycle() bool { return false }
