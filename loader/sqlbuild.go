package loader

import (
	"fmt"
	"strings"

	"github.com/syssam/persistcore/dialect/family"
	"github.com/syssam/persistcore/internal/ident"
	"github.com/syssam/persistcore/registry"
)

// colBinding describes one selected column of a chain-joined query: either
// a system column (ID/DOMAIN_CLASS/LAST_MODIFIED, field nil) or a Data/
// Reference FieldSpec's own column.
type colBinding struct {
	alias string
	field *registry.FieldSpec // nil for system columns
	kind  string               // "id", "domainclass", "lastmodified", "field"
}

// buildChainSelect builds the joined SELECT across et's whole ancestor
// chain (spec.md §3: "an object-type's persistent image spans its whole
// chain of ancestor EntityTypes"), aliasing every column so a Data/
// Reference FieldSpec can be resolved back unambiguously regardless of
// name collisions between ancestor tables.
func buildChainSelect(m family.Mapper, et *registry.EntityType, where string) (query string, bindings []colBinding) {
	chain := et.Chain()

	bindings = append(bindings,
		colBinding{alias: "c_id", kind: "id"},
		colBinding{alias: "c_domain_class", kind: "domainclass"},
		colBinding{alias: "c_last_modified", kind: "lastmodified"},
	)
	selectCols := []string{
		fmt.Sprintf("t0.%s AS %s", m.Quote(ident.ColumnID), m.Quote("c_id")),
		fmt.Sprintf("t0.%s AS %s", m.Quote(ident.ColumnDomainClass), m.Quote("c_domain_class")),
		fmt.Sprintf("t0.%s AS %s", m.Quote(ident.ColumnLastModified), m.Quote("c_last_modified")),
	}

	var joins []string
	for i, t := range chain {
		alias := fmt.Sprintf("t%d", i)
		if i == 0 {
			joins = append(joins, fmt.Sprintf("FROM %s %s", m.Quote(t.TableName), alias))
		} else {
			joins = append(joins, fmt.Sprintf("JOIN %s %s ON %s.%s = t0.%s",
				m.Quote(t.TableName), alias, alias, m.Quote(ident.ColumnID), m.Quote(ident.ColumnID)))
		}
		for j, f := range t.Fields {
			if f.Kind != registry.Data && f.Kind != registry.Reference {
				continue
			}
			colAlias := fmt.Sprintf("c%d_%d", i, j)
			selectCols = append(selectCols, fmt.Sprintf("%s.%s AS %s", alias, m.Quote(f.ColumnName), m.Quote(colAlias)))
			bindings = append(bindings, colBinding{alias: colAlias, field: f, kind: "field"})
		}
	}

	query = fmt.Sprintf("SELECT %s %s", strings.Join(selectCols, ", "), strings.Join(joins, " "))
	if where != "" {
		query += " WHERE " + where
	}
	return query, bindings
}

// idInClause returns a "t0.ID IN (?, ?, ...)" fragment for n ids, quoted
// against the root table's id column (chain-joined selects always alias
// the root table t0).
func idInClause(m family.Mapper, n int) string {
	return fmt.Sprintf("t0.%s IN %s", m.Quote(ident.ColumnID), placeholders(n))
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return "(" + strings.Join(ph, ", ") + ")"
}

// buildEntrySelectSet/List/Map mirror saver/sqlbuild.go's entry-table
// shapes, reading back what the Saver wrote, one main object at a time.
func buildEntrySelectSet(m family.Mapper, entryTable, mainTable string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		m.Quote(ident.ColumnElement), m.Quote(entryTable), m.Quote(ident.MainRefColumnName(mainTable)))
}

func buildEntrySelectList(m family.Mapper, entryTable, mainTable string) string {
	return fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = ? ORDER BY %s",
		m.Quote(ident.ColumnElement), m.Quote(ident.ColumnElementOrder),
		m.Quote(entryTable), m.Quote(ident.MainRefColumnName(mainTable)), m.Quote(ident.ColumnElementOrder))
}

func buildEntrySelectMap(m family.Mapper, entryTable, mainTable string) string {
	return fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = ?",
		m.Quote(ident.ColumnEntryKey), m.Quote(ident.ColumnEntryValue),
		m.Quote(entryTable), m.Quote(ident.MainRefColumnName(mainTable)))
}
