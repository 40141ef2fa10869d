// Package sql implements dialect.Driver on top of database/sql.
//
// It does not build SQL: callers pass complete query strings and
// arguments. What it provides:
//
//   - Driver, Conn and Tx: a dialect.Driver / dialect.Tx over a *sql.DB
//     or *sql.Tx, created with Open, OpenDB or NewDriver.
//   - WithVar / WithIntVar: session variables attached to a context and
//     set on the connection before each statement run with that context.
//   - StatsDriver (NewStatsDriver, OpenWithStats): query and exec
//     counters, total duration, and an optional slow-query log above a
//     configurable threshold (WithSlowThreshold, WithSlowQueryLog).
//   - DebugDriver (NewDebugDriver, DebugWithLog): logs every statement
//     and its arguments.
//
// Example:
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//	err = drv.Exec(ctx, "UPDATE users SET status = $1 WHERE id = $2", []any{"active", 1}, nil)
package sql
