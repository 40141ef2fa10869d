// Package schemabind implements the SchemaBinder component of spec.md
// §4.2: at startup, binds every registry.EntityType to an existing
// database table, verifying that the columns, unique constraints, and
// foreign keys the Registry expects are actually present. It never
// modifies the schema (runtime migration execution is an explicit
// Non-goal, spec.md §1); it only introspects and reports mismatches.
//
// Grounded on the teacher's own use of ariga.io/atlas for schema
// introspection/diffing (_examples/syssam-velox/dialect/sql/schema
// wraps ariga.io/atlas/sql/schema's Differ/Inspector to drive
// migrations); this package reuses the same Inspector surface but stops
// at "assert expected structure exists, error descriptively if not"
// rather than planning or applying a migration.
package schemabind

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/persistcore/dialect/family"
	"github.com/syssam/persistcore/internal/ident"
	"github.com/syssam/persistcore/registry"
)

// MismatchError is schemabind's own per-type introspection failure,
// before the Controller remaps it to persistcore.SchemaMismatchError
// (spec.md §7's SchemaMismatch kind). Kept local so this package has no
// dependency on the root module.
type MismatchError struct {
	TypeName string
	Detail   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("schemabind: %s: %s", e.TypeName, e.Detail)
}

// TableBinding is the immutable, successfully-verified mapping from
// registry.EntityType to live database table (spec.md §3's TableBinding).
// It carries no behavior beyond existence: callers that need canonical
// names still consult internal/ident directly, exactly as the rest of
// the core already does; TableBinding exists to prove, once, that those
// names actually resolve against the bound database.
type TableBinding struct {
	reg   *registry.Registry
	bound map[*registry.EntityType]*schema.Table
}

// Bound reports whether et's table was verified.
func (b *TableBinding) Bound(et *registry.EntityType) bool {
	_, ok := b.bound[et]
	return ok
}

// Table returns the live atlas schema.Table backing et, if bound.
func (b *TableBinding) Table(et *registry.EntityType) (*schema.Table, bool) {
	t, ok := b.bound[et]
	return t, ok
}

// inspector is the narrow atlas surface schemabind needs: InspectSchema
// for the current connection's default schema/search-path.
type inspector interface {
	InspectSchema(ctx context.Context, name string, opts *schema.InspectOptions) (*schema.Schema, error)
}

// openInspector opens the atlas Inspector for drv's family. Oracle-like
// and SQL-Server-like families have no atlas driver in the open-source
// distribution (spec.md §1/§4.2's "Dialect... interface-only here"), so
// binding against those families fails fast with a descriptive error
// rather than silently skipping verification.
func openInspector(fam family.Family, db *sql.DB) (inspector, error) {
	switch fam {
	case family.MySQLLike:
		drv, err := mysql.Open(db)
		if err != nil {
			return nil, fmt.Errorf("schemabind: open mysql inspector: %w", err)
		}
		return drv.(inspector), nil
	case family.Generic:
		// Generic covers both PostgreSQL and SQLite (family.ForDriverName);
		// probe the underlying driver name to pick the right atlas package.
		if isSQLiteDriver(db) {
			drv, err := sqlite.Open(db)
			if err != nil {
				return nil, fmt.Errorf("schemabind: open sqlite inspector: %w", err)
			}
			return drv.(inspector), nil
		}
		drv, err := postgres.Open(db)
		if err != nil {
			return nil, fmt.Errorf("schemabind: open postgres inspector: %w", err)
		}
		return drv.(inspector), nil
	default:
		return nil, fmt.Errorf("schemabind: %s family has no atlas inspector (interface-only dialect per spec.md §1)", fam)
	}
}

// isSQLiteDriver distinguishes a modernc.org/sqlite-backed *sql.DB from a
// lib/pq-backed one; both classify as family.Generic (ForDriverName), so
// schemabind must look past the family to pick the right atlas package.
func isSQLiteDriver(db *sql.DB) bool {
	return strings.Contains(fmt.Sprintf("%T", db.Driver()), "sqlite")
}

// Bind verifies reg's whole EntityType set against db's live schema. It
// never aborts on the first mismatch: every EntityType is checked, and
// every mismatch collected, so the caller can decide whether to continue
// initializing for the types that did bind (spec.md §4.2: "Fails
// initialization of a specific type... caller may choose to continue").
// Identifier comparisons are case-insensitive, since some families
// (notably PostgreSQL) fold unquoted identifiers to lower case while
// internal/ident always produces upper-snake-case names.
//
// Returns the TableBinding for whatever did bind successfully, plus a
// non-nil slice of *MismatchError for whatever did not (nil slice if
// everything bound). If the schema cannot be inspected at all, it returns
// a nil TableBinding and a one-element slice holding that error.
func Bind(ctx context.Context, db *sql.DB, fam family.Family, reg *registry.Registry) (*TableBinding, []error) {
	insp, err := openInspector(fam, db)
	if err != nil {
		return nil, []error{err}
	}
	sch, err := insp.InspectSchema(ctx, "", nil)
	if err != nil {
		return nil, []error{fmt.Errorf("schemabind: inspect schema: %w", err)}
	}

	tb := &TableBinding{reg: reg, bound: map[*registry.EntityType]*schema.Table{}}
	var errs []error
	for _, et := range reg.All() {
		tbl, terr := bindType(sch, et)
		if terr != nil {
			errs = append(errs, terr)
			continue
		}
		tb.bound[et] = tbl
	}
	return tb, errs
}

func findTable(sch *schema.Schema, name string) (*schema.Table, bool) {
	for _, t := range sch.Tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return nil, false
}

func findColumn(t *schema.Table, name string) (*schema.Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

func hasForeignKey(t *schema.Table, column, refTable string) bool {
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 || !strings.EqualFold(fk.Columns[0].Name, column) {
			continue
		}
		if fk.RefTable != nil && strings.EqualFold(fk.RefTable.Name, refTable) {
			return true
		}
	}
	return false
}

func hasUniqueOn(t *schema.Table, columns ...string) bool {
	for _, idx := range t.Indexes {
		if !idx.Unique || len(idx.Parts) != len(columns) {
			continue
		}
		match := true
		for i, part := range idx.Parts {
			if part.C == nil || !strings.EqualFold(part.C.Name, columns[i]) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// bindType verifies one EntityType's own table, its system columns, its
// own FieldSpecs' columns/entry-tables, and its unique-group constraints.
func bindType(sch *schema.Schema, et *registry.EntityType) (*schema.Table, *MismatchError) {
	tbl, ok := findTable(sch, et.TableName)
	if !ok {
		return nil, &MismatchError{TypeName: et.Name, Detail: fmt.Sprintf("table %s not found", et.TableName)}
	}
	if _, ok := findColumn(tbl, ident.ColumnID); !ok {
		return nil, &MismatchError{TypeName: et.Name, Detail: fmt.Sprintf("table %s missing %s column", et.TableName, ident.ColumnID)}
	}
	if et.Parent == nil {
		if _, ok := findColumn(tbl, ident.ColumnDomainClass); !ok {
			return nil, &MismatchError{TypeName: et.Name, Detail: fmt.Sprintf("base table %s missing %s column", et.TableName, ident.ColumnDomainClass)}
		}
		if _, ok := findColumn(tbl, ident.ColumnLastModified); !ok {
			return nil, &MismatchError{TypeName: et.Name, Detail: fmt.Sprintf("base table %s missing %s column", et.TableName, ident.ColumnLastModified)}
		}
	} else {
		if !hasForeignKey(tbl, ident.ColumnID, et.Parent.TableName) {
			return nil, &MismatchError{TypeName: et.Name, Detail: fmt.Sprintf("table %s missing ID foreign key to parent table %s", et.TableName, et.Parent.TableName)}
		}
	}

	uniqueGroups := map[string][]string{}
	for _, f := range et.Fields {
		switch f.Kind {
		case registry.Data, registry.Reference:
			if _, ok := findColumn(tbl, f.ColumnName); !ok {
				return nil, &MismatchError{TypeName: et.Name, Detail: fmt.Sprintf("column %s not found on table %s (field %s)", f.ColumnName, et.TableName, f.Name)}
			}
			if f.Kind == registry.Reference {
				if !hasForeignKey(tbl, f.ColumnName, f.Reference.Target.TableName) {
					return nil, &MismatchError{TypeName: et.Name, Detail: fmt.Sprintf("column %s missing foreign key to %s (field %s)", f.ColumnName, f.Reference.Target.TableName, f.Name)}
				}
			}
			if f.UniqueGroup != "" {
				uniqueGroups[f.UniqueGroup] = append(uniqueGroups[f.UniqueGroup], f.ColumnName)
			}
		case registry.Complex:
			if err := bindEntryTable(sch, et, f); err != nil {
				return nil, err
			}
		case registry.Accumulation:
			// Not materialized; nothing to verify (spec.md §3).
		}
	}
	for group, cols := range uniqueGroups {
		if !hasUniqueOn(tbl, cols...) {
			return nil, &MismatchError{TypeName: et.Name, Detail: fmt.Sprintf("missing UNIQUE(%s) for group %q", strings.Join(cols, ","), group)}
		}
	}
	return tbl, nil
}

func bindEntryTable(sch *schema.Schema, et *registry.EntityType, f *registry.FieldSpec) *MismatchError {
	entry, ok := findTable(sch, f.EntryTableName)
	if !ok {
		return &MismatchError{TypeName: et.Name, Detail: fmt.Sprintf("entry table %s not found (field %s)", f.EntryTableName, f.Name)}
	}
	mainRef := ident.MainRefColumnName(et.TableName)
	if !hasForeignKey(entry, mainRef, et.TableName) {
		return &MismatchError{TypeName: et.Name, Detail: fmt.Sprintf("entry table %s missing %s foreign key to %s (field %s)", f.EntryTableName, mainRef, et.TableName, f.Name)}
	}
	want := map[registry.ComplexShape][]string{
		registry.ShapeSet:   {ident.ColumnElement},
		registry.ShapeArray: {ident.ColumnElement, ident.ColumnElementOrder},
		registry.ShapeList:  {ident.ColumnElement, ident.ColumnElementOrder},
		registry.ShapeMap:   {ident.ColumnEntryKey, ident.ColumnEntryValue},
	}[f.Complex.Shape]
	for _, col := range want {
		if _, ok := findColumn(entry, col); !ok {
			return &MismatchError{TypeName: et.Name, Detail: fmt.Sprintf("entry table %s missing %s column (field %s)", f.EntryTableName, col, f.Name)}
		}
	}
	return nil
}
