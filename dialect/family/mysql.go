package family

import (
	"fmt"

	// Registers the "mysql" driver name with database/sql so dialect/sql.Open
	// can open MySQL-like connections for this family.
	_ "github.com/go-sql-driver/mysql"

	"github.com/syssam/persistcore/dialect"
)

func init() {
	Register(mysqlLike{})
}

type mysqlLike struct{}

func (mysqlLike) Family() Family { return MySQLLike }

func (mysqlLike) SQLType(col dialect.ColumnType, size int) (string, error) {
	switch col {
	case dialect.ColumnBool:
		return "TINYINT(1)", nil
	case dialect.ColumnSmallInt:
		return "SMALLINT", nil
	case dialect.ColumnInt:
		return "INT", nil
	case dialect.ColumnBigInt:
		return "BIGINT", nil
	case dialect.ColumnDouble:
		return "DOUBLE", nil
	case dialect.ColumnDecimal:
		return "DECIMAL(38,10)", nil
	case dialect.ColumnChar:
		return fmt.Sprintf("CHAR(%d)", orDefault(size, 1)), nil
	case dialect.ColumnVarChar, dialect.ColumnEnum:
		return fmt.Sprintf("VARCHAR(%d)", orDefault(size, 255)), nil
	case dialect.ColumnText:
		return "LONGTEXT", nil
	case dialect.ColumnBlob:
		return "LONGBLOB", nil
	case dialect.ColumnDate:
		return "DATE", nil
	case dialect.ColumnTime:
		return "TIME(3)", nil
	case dialect.ColumnDateTime:
		return "DATETIME(3)", nil
	default:
		return "", fmt.Errorf("family: mysql-like: unsupported column type %s", col)
	}
}

func (mysqlLike) Quote(ident string) string { return "`" + ident + "`" }

// MySQL permits ON DELETE CASCADE foreign keys that form a cycle as long as
// no single DML statement would cascade back into a row already being
// modified by that statement; the engine detects that at runtime rather
// than rejecting the schema. The core therefore still reports cycles (see
// registry.Cycles) but does not require disabling cascade for this family.
func (mysqlLike) AllowsCascadeInCycle() bool { return true }

func orDefault(size, def int) int {
	if size <= 0 {
		return def
	}
	return size
}
