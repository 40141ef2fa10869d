package dialect

import "context"

// Driver name constants. These identify the underlying database/sql driver
// registered for a connection, as distinct from the coarser Family the core
// classifies it into (see package dialect/family).
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Driver is the interface every database connection the core talks to must
// implement. It is intentionally narrow: callers never see raw *sql.DB.
type Driver interface {
	// Exec executes a statement that doesn't return rows. args must be
	// []any; v, if non-nil, must be *sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a statement that returns rows. args must be []any;
	// v must be *sql.Rows (or an equivalent ColumnScanner).
	Query(ctx context.Context, query string, args, v any) error
	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection or pool.
	Close() error
	// Dialect returns the driver name (see the constants above).
	Dialect() string
}

// Tx is a Driver bound to a single transaction.
type Tx interface {
	Driver
	Commit() error
	Rollback() error
}

// ExecQuerier is implemented by both Driver and Tx; it is the minimal
// surface the Loader/Saver/Deleter/ExclusiveAllocator need to run
// statements without caring whether they're inside a transaction.
type ExecQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}
