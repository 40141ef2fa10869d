package family

import (
	"fmt"

	"github.com/syssam/persistcore/dialect"
)

func init() {
	Register(sqlServerLike{})
}

// sqlServerLike is interface-only for the same reason as oracleLike: no
// SQL Server driver is part of this module's dependency set.
type sqlServerLike struct{}

func (sqlServerLike) Family() Family { return SQLServerLike }

func (sqlServerLike) SQLType(col dialect.ColumnType, size int) (string, error) {
	switch col {
	case dialect.ColumnBool:
		return "BIT", nil
	case dialect.ColumnSmallInt:
		return "SMALLINT", nil
	case dialect.ColumnInt:
		return "INT", nil
	case dialect.ColumnBigInt:
		return "BIGINT", nil
	case dialect.ColumnDouble:
		return "FLOAT(53)", nil
	case dialect.ColumnDecimal:
		return "DECIMAL(38,10)", nil
	case dialect.ColumnChar:
		return fmt.Sprintf("NCHAR(%d)", orDefault(size, 1)), nil
	case dialect.ColumnVarChar, dialect.ColumnEnum:
		return fmt.Sprintf("NVARCHAR(%d)", orDefault(size, 255)), nil
	case dialect.ColumnText:
		return "NVARCHAR(MAX)", nil
	case dialect.ColumnBlob:
		return "VARBINARY(MAX)", nil
	case dialect.ColumnDate:
		return "DATE", nil
	case dialect.ColumnTime:
		return "TIME(3)", nil
	case dialect.ColumnDateTime:
		return "DATETIME2(3)", nil
	default:
		return "", fmt.Errorf("family: sqlserver-like: unsupported column type %s", col)
	}
}

func (sqlServerLike) Quote(ident string) string { return "[" + ident + "]" }

// SQL Server disallows multiple cascade paths to the same table, which a
// reference cycle always produces once more than one ancestor table is
// involved; the core must disable cascade on at least one edge in every
// detected cycle for this family (spec.md §4.1).
func (sqlServerLike) AllowsCascadeInCycle() bool { return false }
