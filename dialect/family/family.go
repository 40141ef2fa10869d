// Package family classifies concrete database drivers into the four
// dialect families the persistence core reasons about, and maps semantic
// column types to the SQL type expression and identifier quoting rules of
// each family.
//
// This is the pluggable "dialect provider" seam called out in spec.md §1:
// the core consumes a Mapper through this package's interface, never a
// concrete database package directly (with the exception of registering
// the driver itself, e.g. blank-importing github.com/go-sql-driver/mysql
// for the MySQL-like family).
package family

import "github.com/syssam/persistcore/dialect"

// Family is one of the four database families the core distinguishes.
// The distinction matters chiefly for two things: the SQL type expression
// chosen per dialect.ColumnType, and whether ON DELETE CASCADE may be used
// inside a reference cycle (some families, notably SQL-Server-like ones,
// reject cyclic cascade paths).
type Family string

const (
	// OracleLike covers Oracle and Oracle-compatible databases.
	OracleLike Family = "oracle-like"
	// SQLServerLike covers SQL Server and T-SQL-compatible databases.
	SQLServerLike Family = "sqlserver-like"
	// MySQLLike covers MySQL and MariaDB.
	MySQLLike Family = "mysql-like"
	// Generic covers ANSI-SQL-leaning databases without a more specific
	// family, e.g. PostgreSQL and SQLite.
	Generic Family = "generic"
)

// Mapper maps semantic column types to a concrete SQL type expression and
// implements identifier quoting for one dialect family.
type Mapper interface {
	// Family returns the family this mapper implements.
	Family() Family

	// SQLType returns the SQL type expression for a semantic column type.
	// size is the column-size bound (FieldSpec.ColumnSize); it is ignored
	// for types it doesn't apply to.
	SQLType(col dialect.ColumnType, size int) (string, error)

	// Quote quotes a single SQL identifier (table or column name)
	// according to this family's quoting rules.
	Quote(ident string) string

	// AllowsCascadeInCycle reports whether this family permits an
	// ON DELETE CASCADE foreign key to take part in a reference cycle.
	// ddlgen uses this, together with the Registry's cycle detection (see
	// registry.Cycles), to decide which reference fields must have their
	// cascade policy disabled at DDL-generation time.
	AllowsCascadeInCycle() bool
}

// ForDriverName returns the family a well-known database/sql driver name
// belongs to. It returns (Generic, false) for unknown names so callers can
// decide whether to treat that as an error.
func ForDriverName(driverName string) (Family, bool) {
	switch driverName {
	case "mysql":
		return MySQLLike, true
	case "postgres", "pgx", "sqlite", "sqlite3":
		return Generic, true
	case "oracle", "godror", "goracle":
		return OracleLike, true
	case "sqlserver", "mssql":
		return SQLServerLike, true
	default:
		return Generic, false
	}
}

// Registry of known mappers, keyed by Family. New() returns the mapper for
// a family, or false if none is registered.
var registry = map[Family]Mapper{}

// Register adds (or replaces) the Mapper for its Family. Called from each
// family implementation's init().
func Register(m Mapper) { registry[m.Family()] = m }

// New returns the registered Mapper for f.
func New(f Family) (Mapper, bool) {
	m, ok := registry[f]
	return m, ok
}
