// Package ident implements the bit-exact name-canonicalization rules of
// spec.md §4.1/§6: how a registered Go type and field name become a table
// name, column name, or entry-table name.
package ident

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// TablePrefix is prepended to every main table name.
const TablePrefix = "DOM_"

// MaxDiscriminatorLength is the column-size bound of DOMAIN_CLASS.
const MaxDiscriminatorLength = 64

// reserved holds SQL reserved words that collide with generated column
// names; columns matching (case-insensitively) are prefixed with "F_".
var reserved = map[string]struct{}{
	"ORDER": {}, "GROUP": {}, "SELECT": {}, "WHERE": {}, "TABLE": {},
	"INDEX": {}, "KEY": {}, "LEVEL": {}, "SIZE": {}, "USER": {}, "DATE": {},
	"TIME": {}, "TYPE": {}, "VALUE": {}, "NUMBER": {}, "COLUMN": {},
}

// ToSnake converts an upper/lower-camel-case Go identifier to
// UPPER_SNAKE_CASE, e.g. "InvoiceLine" -> "INVOICE_LINE".
func ToSnake(name string) string {
	return strings.ToUpper(inflect.Underscore(name))
}

// TableName returns the canonical table name for an entity type name.
func TableName(typeName string) string {
	return TablePrefix + ToSnake(typeName)
}

// ColumnName returns the canonical column name for a data field.
// Reserved words are prefixed with "F_" to avoid colliding with SQL
// keywords in the bound dialect.
func ColumnName(fieldName string) string {
	c := ToSnake(fieldName)
	if _, bad := reserved[c]; bad {
		c = "F_" + c
	}
	return c
}

// ReferenceColumnName returns the canonical column name for a reference
// field f: X->Y, which is always "<FIELD>_ID".
func ReferenceColumnName(fieldName string) string {
	return ToSnake(fieldName) + "_ID"
}

// EntryTableName returns the canonical entry-table name for a
// complex (collection/map) field on a given main table.
func EntryTableName(tableName, fieldName string) string {
	return tableName + "_" + ToSnake(fieldName)
}

// System column names, fixed by spec.md §6.
const (
	ColumnID           = "ID"
	ColumnDomainClass  = "DOMAIN_CLASS"
	ColumnLastModified = "LAST_MODIFIED"
	ColumnElement      = "ELEMENT"
	ColumnElementOrder = "ELEMENT_ORDER"
	ColumnEntryKey     = "ENTRY_KEY"
	ColumnEntryValue   = "ENTRY_VALUE"
)

// MainRefColumnName returns the column name an entry table uses to
// reference its owning main-table row, e.g. "DOM_ORDER_ID" for table
// "DOM_ORDER".
func MainRefColumnName(tableName string) string {
	return tableName + "_ID"
}

// IsReserved reports whether a canonicalized column name collided with a
// reserved word and was therefore prefixed.
func IsReserved(fieldName string) bool {
	_, bad := reserved[ToSnake(fieldName)]
	return bad
}
