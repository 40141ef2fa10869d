package family

import (
	"fmt"

	// Registers the "postgres" driver name; stands in for the Generic
	// family's reference driver (PostgreSQL and SQLite both classify as
	// Generic, see ForDriverName).
	_ "github.com/lib/pq"

	"github.com/syssam/persistcore/dialect"
)

func init() {
	Register(genericFamily{})
}

// genericFamily is the ANSI-SQL-leaning fallback family: PostgreSQL,
// SQLite, and anything else not specifically classified.
type genericFamily struct{}

func (genericFamily) Family() Family { return Generic }

func (genericFamily) SQLType(col dialect.ColumnType, size int) (string, error) {
	switch col {
	case dialect.ColumnBool:
		return "BOOLEAN", nil
	case dialect.ColumnSmallInt:
		return "SMALLINT", nil
	case dialect.ColumnInt:
		return "INTEGER", nil
	case dialect.ColumnBigInt:
		return "BIGINT", nil
	case dialect.ColumnDouble:
		return "DOUBLE PRECISION", nil
	case dialect.ColumnDecimal:
		return "NUMERIC(38,10)", nil
	case dialect.ColumnChar:
		return fmt.Sprintf("CHAR(%d)", orDefault(size, 1)), nil
	case dialect.ColumnVarChar, dialect.ColumnEnum:
		return fmt.Sprintf("VARCHAR(%d)", orDefault(size, 255)), nil
	case dialect.ColumnText:
		return "TEXT", nil
	case dialect.ColumnBlob:
		return "BYTEA", nil
	case dialect.ColumnDate:
		return "DATE", nil
	case dialect.ColumnTime:
		return "TIME", nil
	case dialect.ColumnDateTime:
		return "TIMESTAMP", nil
	default:
		return "", fmt.Errorf("family: generic: unsupported column type %s", col)
	}
}

func (genericFamily) Quote(ident string) string { return `"` + ident + `"` }

func (genericFamily) AllowsCascadeInCycle() bool { return true }
