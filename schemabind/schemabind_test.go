package schemabind

import (
	"testing"

	"ariga.io/atlas/sql/schema"
	"github.com/stretchr/testify/require"

	"github.com/syssam/persistcore/registry"
)

type Customer struct {
	Name   string
	Tags   []string
	Orders []*Order `persist:"accumulation=Customer"`
}

type Order struct {
	Customer *Customer
	Total    float64 `persist:"required"`
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.RegisterTypes(&Customer{}, &Order{})
	require.NoError(t, err)
	return reg
}

func col(name string) *schema.Column { return &schema.Column{Name: name} }

func fullSchema() *schema.Schema {
	customer := &schema.Table{
		Name: "DOM_CUSTOMER",
		Columns: []*schema.Column{
			col("ID"), col("DOMAIN_CLASS"), col("LAST_MODIFIED"), col("NAME"),
		},
	}
	order := &schema.Table{
		Name: "DOM_ORDER",
		Columns: []*schema.Column{
			col("ID"), col("DOMAIN_CLASS"), col("LAST_MODIFIED"), col("CUSTOMER_ID"), col("TOTAL"),
		},
		ForeignKeys: []*schema.ForeignKey{
			{Columns: []*schema.Column{{Name: "CUSTOMER_ID"}}, RefTable: customer},
		},
	}
	entry := &schema.Table{
		Name: "DOM_CUSTOMER_TAGS",
		Columns: []*schema.Column{
			col("DOM_CUSTOMER_ID"), col("ELEMENT"), col("ELEMENT_ORDER"),
		},
		ForeignKeys: []*schema.ForeignKey{
			{Columns: []*schema.Column{{Name: "DOM_CUSTOMER_ID"}}, RefTable: customer},
		},
	}
	return &schema.Schema{Tables: []*schema.Table{customer, order, entry}}
}

func TestBindTypeSucceedsOnCompleteSchema(t *testing.T) {
	reg := newTestRegistry(t)
	sch := fullSchema()
	for _, et := range reg.All() {
		_, err := bindType(sch, et)
		require.NoError(t, err, "type %s should bind", et.Name)
	}
}

func TestBindTypeFailsOnMissingTable(t *testing.T) {
	reg := newTestRegistry(t)
	sch := &schema.Schema{}
	et, ok := reg.Get("Customer")
	require.True(t, ok)
	_, err := bindType(sch, et)
	require.Error(t, err)
	require.Contains(t, err.Error(), "table DOM_CUSTOMER not found")
}

func TestBindTypeFailsOnMissingColumn(t *testing.T) {
	reg := newTestRegistry(t)
	sch := fullSchema()
	// Drop the TOTAL column from DOM_ORDER.
	for _, tbl := range sch.Tables {
		if tbl.Name != "DOM_ORDER" {
			continue
		}
		var kept []*schema.Column
		for _, c := range tbl.Columns {
			if c.Name != "TOTAL" {
				kept = append(kept, c)
			}
		}
		tbl.Columns = kept
	}
	et, ok := reg.Get("Order")
	require.True(t, ok)
	_, err := bindType(sch, et)
	require.Error(t, err)
	require.Contains(t, err.Error(), "TOTAL")
}

func TestBindTypeFailsOnMissingForeignKey(t *testing.T) {
	reg := newTestRegistry(t)
	sch := fullSchema()
	for _, tbl := range sch.Tables {
		if tbl.Name == "DOM_ORDER" {
			tbl.ForeignKeys = nil
		}
	}
	et, ok := reg.Get("Order")
	require.True(t, ok)
	_, err := bindType(sch, et)
	require.Error(t, err)
	require.Contains(t, err.Error(), "foreign key")
}

func TestBindTypeFailsOnMissingEntryTable(t *testing.T) {
	reg := newTestRegistry(t)
	sch := fullSchema()
	sch.Tables = sch.Tables[:2] // drop DOM_CUSTOMER_TAGS
	et, ok := reg.Get("Customer")
	require.True(t, ok)
	_, err := bindType(sch, et)
	require.Error(t, err)
	require.Contains(t, err.Error(), "entry table")
}

func TestBindCollectsErrorsAcrossTypes(t *testing.T) {
	reg := newTestRegistry(t)
	sch := &schema.Schema{} // nothing bound
	tb := &TableBinding{reg: reg, bound: map[*registry.EntityType]*schema.Table{}}
	var errs []error
	for _, et := range reg.All() {
		if _, err := bindType(sch, et); err != nil {
			errs = append(errs, err)
		} else {
			tb.bound[et] = nil
		}
	}
	require.Len(t, errs, len(reg.All()))
}
