// Package dialect provides the database-driver interfaces consumed by the
// persistence core, and the family classification the core reasons about
// when generating column types and ON DELETE CASCADE behavior.
//
// # Driver names
//
// Driver names identify the underlying database/sql driver registered with
// a [Driver]:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Dialect families
//
// The persistence core does not special-case every concrete database; it
// classifies each driver into one of four families (see package
// dialect/family):
//
//   - Oracle-like
//   - SQL-Server-like
//   - MySQL-like
//   - Generic (ANSI-leaning; Postgres and SQLite both map here)
//
// # Driver interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction interface
//
//	type Tx interface {
//	    Driver
//	    Commit() error
//	    Rollback() error
//	}
//
// # Sub-packages
//
//   - dialect/sql: driver/connection plumbing over database/sql
//   - dialect/family: the four dialect families and their type mapping
package dialect
