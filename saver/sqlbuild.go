package saver

import (
	"fmt"
	"strings"

	"github.com/syssam/persistcore/dialect/family"
	"github.com/syssam/persistcore/internal/ident"
)

func buildInsert(m family.Mapper, table string, cols []string) string {
	qcols := make([]string, len(cols))
	phs := make([]string, len(cols))
	for i, c := range cols {
		qcols[i] = m.Quote(c)
		phs[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", m.Quote(table), strings.Join(qcols, ", "), strings.Join(phs, ", "))
}

func buildUpdate(m family.Mapper, table string, cols []string, pk string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = ?", m.Quote(c))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", m.Quote(table), strings.Join(sets, ", "), m.Quote(pk))
}

func buildDeleteByMainRef(m family.Mapper, entryTable string, mainTable string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ?", m.Quote(entryTable), m.Quote(ident.MainRefColumnName(mainTable)))
}

func buildEntryInsertSet(m family.Mapper, entryTable, mainTable string) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)",
		m.Quote(entryTable), m.Quote(ident.MainRefColumnName(mainTable)), m.Quote(ident.ColumnElement))
}

func buildEntryDeleteSet(m family.Mapper, entryTable, mainTable string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		m.Quote(entryTable), m.Quote(ident.MainRefColumnName(mainTable)), m.Quote(ident.ColumnElement))
}

func buildEntryInsertList(m family.Mapper, entryTable, mainTable string) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)",
		m.Quote(entryTable), m.Quote(ident.MainRefColumnName(mainTable)), m.Quote(ident.ColumnElement), m.Quote(ident.ColumnElementOrder))
}

func buildEntryDeleteList(m family.Mapper, entryTable, mainTable string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		m.Quote(entryTable), m.Quote(ident.MainRefColumnName(mainTable)), m.Quote(ident.ColumnElementOrder))
}

func buildEntryInsertMap(m family.Mapper, entryTable, mainTable string) string {
	return fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)",
		m.Quote(entryTable), m.Quote(ident.MainRefColumnName(mainTable)), m.Quote(ident.ColumnEntryKey), m.Quote(ident.ColumnEntryValue))
}

func buildEntryUpdateMap(m family.Mapper, entryTable, mainTable string) string {
	return fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ? AND %s = ?",
		m.Quote(entryTable), m.Quote(ident.ColumnEntryValue), m.Quote(ident.MainRefColumnName(mainTable)), m.Quote(ident.ColumnEntryKey))
}

func buildEntryDeleteMap(m family.Mapper, entryTable, mainTable string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		m.Quote(entryTable), m.Quote(ident.MainRefColumnName(mainTable)), m.Quote(ident.ColumnEntryKey))
}
