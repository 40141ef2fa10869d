package ddlgen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/persistcore/dialect/family"
	"github.com/syssam/persistcore/registry"
)

type ddlCustomer struct {
	Name  string `persist:"size=64"`
	Email string `persist:"unique=contact"`
	Phone string `persist:"unique=contact"`
}

type ddlOrder struct {
	Customer *ddlCustomer
	Tags     []string `persist:"set"`
}

func TestGenerateDDLEmitsTablesInDependencyOrder(t *testing.T) {
	reg, err := registry.RegisterTypes(&ddlOrder{}, &ddlCustomer{})
	require.NoError(t, err)
	mapper, ok := family.New(family.Generic)
	require.True(t, ok)

	out, err := GenerateDDL(reg, mapper)
	require.NoError(t, err)

	customerIdx := indexOf(t, out, `CREATE TABLE "DOM_DDL_CUSTOMER"`)
	orderIdx := indexOf(t, out, `CREATE TABLE "DOM_DDL_ORDER"`)
	require.Less(t, customerIdx, orderIdx, "referenced table must be created before its referrer")

	require.Contains(t, out, `FOREIGN KEY ("CUSTOMER_ID") REFERENCES "DOM_DDL_CUSTOMER"("ID")`)
	require.Contains(t, out, `UNIQUE ("EMAIL", "PHONE")`)
}

func TestGenerateDDLEmitsEntryTableForComplexField(t *testing.T) {
	reg, err := registry.RegisterTypes(&ddlOrder{}, &ddlCustomer{})
	require.NoError(t, err)
	mapper, ok := family.New(family.Generic)
	require.True(t, ok)

	out, err := GenerateDDL(reg, mapper)
	require.NoError(t, err)

	require.Contains(t, out, `CREATE TABLE "DOM_DDL_ORDER_TAGS"`)
	require.Contains(t, out, `"DOM_DDL_ORDER_ID" BIGINT NOT NULL REFERENCES "DOM_DDL_ORDER"("ID") ON DELETE CASCADE`)
}

func TestGenerateConstantsNamesEveryTable(t *testing.T) {
	reg, err := registry.RegisterTypes(&ddlOrder{}, &ddlCustomer{})
	require.NoError(t, err)

	src, err := GenerateConstants(reg, "ddltables")
	require.NoError(t, err)

	require.Contains(t, src, `package ddltables`)
	require.Contains(t, src, `ddlCustomerTable = "DOM_DDL_CUSTOMER"`)
	require.Contains(t, src, `ddlOrderTable = "DOM_DDL_ORDER"`)
	require.Contains(t, src, `ddlOrderTagsEntryTable = "DOM_DDL_ORDER_TAGS"`)
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	idx := -1
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0, "expected to find %q", needle)
	return idx
}
