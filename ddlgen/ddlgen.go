// Package ddlgen is the DDL-generation sibling tool (spec.md §1, §6):
// given a *registry.Registry and a dialect/family.Mapper, it emits a
// CREATE TABLE script covering every EntityType's
// ancestor-chain table, every Complex field's entry table, and the
// foreign keys a Reference field implies — kept outside the core
// budget, consumed only by operators provisioning a fresh schema.
//
// Grounded on the teacher's compiler/gen package: the same shape of
// tool (a registry-consuming generator walking one EntityType/Field at
// a time), adapted from emitting Go client code to emitting SQL DDL
// text. Since github.com/dave/jennifer's API renders Go source, not
// arbitrary text, the DDL string itself is built with strings.Builder;
// jennifer is instead exercised by this package's constants.go, which
// emits a companion Go source file of table-name string constants —
// the part of this tool's output that actually is Go source.
package ddlgen

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/syssam/persistcore/dialect"
	"github.com/syssam/persistcore/dialect/family"
	"github.com/syssam/persistcore/internal/ident"
	"github.com/syssam/persistcore/registry"
)

// GenerateDDL renders one SQL script creating every table the registry
// implies: one table per EntityType in the ancestor chain (root tables
// carry DOMAIN_CLASS/LAST_MODIFIED; every table in a chain shares the ID
// primary key and, below the root, a foreign key to its parent table) and
// one entry table per Complex field. No shadow-lock tables are emitted:
// neither for Reference fields' UNIQUE constraints nor for
// ExclusiveAllocator lock types. Tables are emitted in dependency order (parents before children,
// targets before their referrers) so the script can be run against an
// empty database top to bottom.
func GenerateDDL(reg *registry.Registry, m family.Mapper) (string, error) {
	var b strings.Builder
	b.WriteString("-- Code generated by ddlgen. DO NOT EDIT.\n\n")

	ordered, err := dependencyOrder(reg)
	if err != nil {
		return "", err
	}

	for _, et := range ordered {
		if err := writeMainTable(&b, m, reg, et); err != nil {
			return "", err
		}
	}
	for _, et := range ordered {
		for _, f := range et.Fields {
			if f.Kind != registry.Complex {
				continue
			}
			if err := writeEntryTable(&b, m, et, f); err != nil {
				return "", err
			}
		}
	}
	return b.String(), nil
}

// dependencyOrder returns every EntityType such that a type always
// follows its Parent and every EntityType its Reference fields target
// (so FK targets already exist when a CREATE TABLE ... REFERENCES runs).
// Within a cyclic reference group (registry.Cycles) the order is the
// depth-first completion order, so the type the walk entered the cycle
// through comes after the types it reaches; FKs are generated without NOT NULL so a
// later ALTER-free INSERT can break the cycle if ever needed.
func dependencyOrder(reg *registry.Registry) ([]*registry.EntityType, error) {
	all := reg.All()
	visited := map[*registry.EntityType]bool{}
	visiting := map[*registry.EntityType]bool{}
	var order []*registry.EntityType

	var visit func(et *registry.EntityType) error
	visit = func(et *registry.EntityType) error {
		if visited[et] {
			return nil
		}
		if visiting[et] {
			return nil // part of a reference cycle; break recursion, emit on the way back up.
		}
		visiting[et] = true
		if et.Parent != nil {
			if err := visit(et.Parent); err != nil {
				return err
			}
		}
		for _, f := range et.AllFields() {
			if f.Kind == registry.Reference && f.Reference.Target != et {
				if err := visit(f.Reference.Target); err != nil {
					return err
				}
			}
		}
		visiting[et] = false
		if !visited[et] {
			visited[et] = true
			order = append(order, et)
		}
		return nil
	}

	for _, et := range all {
		if err := visit(et); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func writeMainTable(b *strings.Builder, m family.Mapper, reg *registry.Registry, et *registry.EntityType) error {
	fmt.Fprintf(b, "CREATE TABLE %s (\n", m.Quote(et.TableName))
	fmt.Fprintf(b, "  %s BIGINT NOT NULL", m.Quote(ident.ColumnID))

	if et.Parent == nil {
		size, err := m.SQLType(dialect.ColumnVarChar, ident.MaxDiscriminatorLength)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, ",\n  %s %s NOT NULL", m.Quote(ident.ColumnDomainClass), size)
		dt, err := m.SQLType(dialect.ColumnDateTime, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, ",\n  %s %s NOT NULL", m.Quote(ident.ColumnLastModified), dt)
	}

	var fkLines []string
	for _, f := range et.Fields {
		switch f.Kind {
		case registry.Data:
			colType, err := registry.ColumnTypeFor(f.GoType)
			if err != nil {
				return fmt.Errorf("ddlgen: %s.%s: %w", et.Name, f.Name, err)
			}
			size := f.ColumnSize
			if colType == dialect.ColumnEnum {
				size = registry.EnumWidth(f.GoType, f.ColumnSize)
			}
			sqlType, err := m.SQLType(colType, size)
			if err != nil {
				return fmt.Errorf("ddlgen: %s.%s: %w", et.Name, f.Name, err)
			}
			null := "NULL"
			if !f.Nullable {
				null = "NOT NULL"
			}
			fmt.Fprintf(b, ",\n  %s %s %s", m.Quote(f.ColumnName), sqlType, null)
		case registry.Reference:
			fmt.Fprintf(b, ",\n  %s BIGINT NULL", m.Quote(f.ColumnName))
			cascade := ""
			cascadeCyclesOK := m.AllowsCascadeInCycle()
			if f.Reference.OnDeleteCascade && (cascadeCyclesOK || !sameCycle(reg, et, f.Reference.Target)) {
				cascade = " ON DELETE CASCADE"
			}
			fkLines = append(fkLines, fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s(%s)%s",
				m.Quote(f.ColumnName), m.Quote(f.Reference.Target.TableName), m.Quote(ident.ColumnID), cascade))
		}
	}

	if et.Parent != nil {
		fkLines = append(fkLines, fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE CASCADE",
			m.Quote(ident.ColumnID), m.Quote(et.Parent.TableName), m.Quote(ident.ColumnID)))
	}

	groups := uniqueGroups(et)
	for _, g := range groups {
		cols := make([]string, len(g.fields))
		for i, f := range g.fields {
			cols[i] = m.Quote(f.ColumnName)
		}
		fkLines = append(fkLines, fmt.Sprintf("  UNIQUE (%s)", strings.Join(cols, ", ")))
	}

	for _, line := range fkLines {
		fmt.Fprintf(b, ",\n%s", line)
	}
	fmt.Fprintf(b, ",\n  PRIMARY KEY (%s)\n);\n\n", m.Quote(ident.ColumnID))
	return nil
}

// sameCycle reports whether a and b belong to the same detected
// reference-field cycle (registry.Registry.Cycles) — used to decide
// whether ON DELETE CASCADE is safe to emit for a given Reference field
// on a family that rejects cascade among cyclic FKs
// (dialect/family.Mapper.AllowsCascadeInCycle).
func sameCycle(reg *registry.Registry, a, b *registry.EntityType) bool {
	if a == b {
		return true
	}
	for _, c := range reg.Cycles() {
		inA, inB := false, false
		for _, m := range c {
			if m == a {
				inA = true
			}
			if m == b {
				inB = true
			}
		}
		if inA && inB {
			return true
		}
	}
	return false
}

type uniqueGroup struct {
	name   string
	fields []*registry.FieldSpec
}

func uniqueGroups(et *registry.EntityType) []uniqueGroup {
	byName := map[string][]*registry.FieldSpec{}
	var names []string
	for _, f := range et.Fields {
		if f.Kind == registry.Data && f.UniqueGroup != "" {
			if _, seen := byName[f.UniqueGroup]; !seen {
				names = append(names, f.UniqueGroup)
			}
			byName[f.UniqueGroup] = append(byName[f.UniqueGroup], f)
		}
	}
	sort.Strings(names)
	out := make([]uniqueGroup, len(names))
	for i, n := range names {
		out[i] = uniqueGroup{name: n, fields: byName[n]}
	}
	return out
}

func writeEntryTable(b *strings.Builder, m family.Mapper, et *registry.EntityType, f *registry.FieldSpec) error {
	mainRef := ident.MainRefColumnName(et.TableName)
	fmt.Fprintf(b, "CREATE TABLE %s (\n", m.Quote(f.EntryTableName))
	fmt.Fprintf(b, "  %s BIGINT NOT NULL REFERENCES %s(%s) ON DELETE CASCADE", m.Quote(mainRef), m.Quote(et.TableName), m.Quote(ident.ColumnID))

	switch f.Complex.Shape {
	case registry.ShapeSet, registry.ShapeArray:
		colType, err := elementColumnType(f.Complex.Elem)
		if err != nil {
			return fmt.Errorf("ddlgen: %s.%s: %w", et.Name, f.Name, err)
		}
		sqlType, err := m.SQLType(colType, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, ",\n  %s %s NOT NULL", m.Quote(ident.ColumnElement), sqlType)
		fmt.Fprintf(b, ",\n  UNIQUE (%s, %s)\n", m.Quote(mainRef), m.Quote(ident.ColumnElement))
	case registry.ShapeList:
		colType, err := elementColumnType(f.Complex.Elem)
		if err != nil {
			return fmt.Errorf("ddlgen: %s.%s: %w", et.Name, f.Name, err)
		}
		sqlType, err := m.SQLType(colType, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, ",\n  %s %s NULL", m.Quote(ident.ColumnElement), sqlType)
		fmt.Fprintf(b, ",\n  %s BIGINT NOT NULL", m.Quote(ident.ColumnElementOrder))
		fmt.Fprintf(b, ",\n  UNIQUE (%s, %s)\n", m.Quote(mainRef), m.Quote(ident.ColumnElementOrder))
	case registry.ShapeMap:
		keyType, err := elementColumnType(f.Complex.Key)
		if err != nil {
			return fmt.Errorf("ddlgen: %s.%s: %w", et.Name, f.Name, err)
		}
		keySQL, err := m.SQLType(keyType, 0)
		if err != nil {
			return err
		}
		valType, err := elementColumnType(f.Complex.Elem)
		if err != nil {
			return fmt.Errorf("ddlgen: %s.%s: %w", et.Name, f.Name, err)
		}
		valSQL, err := m.SQLType(valType, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, ",\n  %s %s NOT NULL", m.Quote(ident.ColumnEntryKey), keySQL)
		fmt.Fprintf(b, ",\n  %s %s NULL", m.Quote(ident.ColumnEntryValue), valSQL)
		fmt.Fprintf(b, ",\n  UNIQUE (%s, %s)\n", m.Quote(mainRef), m.Quote(ident.ColumnEntryKey))
	}
	b.WriteString(");\n\n")
	return nil
}

// elementColumnType maps a Complex field's element or key Go type to its
// storage column type, via the same classification ColumnTypeFor uses for
// Data fields — entry-table columns have no enum/file special-casing
// since spec.md §3 restricts Complex element/key types to natively
// supported data types.
func elementColumnType(t reflect.Type) (dialect.ColumnType, error) {
	return registry.ColumnTypeFor(t)
}
