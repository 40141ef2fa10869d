package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableName(t *testing.T) {
	assert.Equal(t, "DOM_INVOICE_LINE", TableName("InvoiceLine"))
	assert.Equal(t, "DOM_ORDER", TableName("Order"))
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "FIRST_NAME", ColumnName("FirstName"))
	assert.Equal(t, "F_ORDER", ColumnName("Order"))
	assert.True(t, IsReserved("Order"))
	assert.False(t, IsReserved("FirstName"))
}

func TestReferenceColumnName(t *testing.T) {
	assert.Equal(t, "PARENT_ID", ReferenceColumnName("Parent"))
}

func TestEntryTableName(t *testing.T) {
	assert.Equal(t, "DOM_ORDER_TAGS", EntryTableName("DOM_ORDER", "Tags"))
}

func TestMainRefColumnName(t *testing.T) {
	assert.Equal(t, "DOM_ORDER_ID", MainRefColumnName("DOM_ORDER"))
}
