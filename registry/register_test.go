package registry

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type Parent struct {
	Title string
}

type Child struct {
	Parent
	Count   int
	Owner   *Parent
	Tags    []string `persist:"set"`
	Notes   []string
	Scores  map[string]int
	Created time.Time
}

func TestRegisterTypesClassifiesFields(t *testing.T) {
	reg, err := RegisterTypes(&Parent{}, &Child{})
	require.NoError(t, err)

	parent, ok := reg.Get("Parent")
	require.True(t, ok)
	require.Equal(t, "DOM_PARENT", parent.TableName)

	child, ok := reg.Get("Child")
	require.True(t, ok)
	require.Same(t, parent, child.Parent)

	owner, ok := child.FieldByName("Owner")
	require.True(t, ok)
	require.Equal(t, Reference, owner.Kind)
	require.Equal(t, "OWNER_ID", owner.ColumnName)
	require.Same(t, parent, owner.Reference.Target)

	tags, ok := child.FieldByName("Tags")
	require.True(t, ok)
	require.Equal(t, Complex, tags.Kind)
	require.Equal(t, ShapeSet, tags.Complex.Shape)

	notes, ok := child.FieldByName("Notes")
	require.True(t, ok)
	require.Equal(t, ShapeList, notes.Complex.Shape)

	scores, ok := child.FieldByName("Scores")
	require.True(t, ok)
	require.Equal(t, ShapeMap, scores.Complex.Shape)

	created, ok := child.FieldByName("Created")
	require.True(t, ok)
	require.Equal(t, Data, created.Kind)

	count, ok := child.FieldByName("Count")
	require.True(t, ok)
	require.Equal(t, Data, count.Kind)
	require.Equal(t, "COUNT", count.ColumnName)
}

func TestRegisterTypesRejectsNonPointer(t *testing.T) {
	_, err := RegisterTypes(Parent{})
	require.Error(t, err)
	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
}

func TestRegisterTypesRejectsDuplicate(t *testing.T) {
	_, err := RegisterTypes(&Parent{}, &Parent{})
	require.Error(t, err)
}

type brokenField struct {
	Fn func()
}

func TestRegisterTypesRejectsUnsupportedField(t *testing.T) {
	_, err := RegisterTypes(&brokenField{})
	require.Error(t, err)
	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, "Fn", regErr.FieldName)
}

type money struct{ Cents int64 }

type moneyCodec struct{}

func (moneyCodec) EncodeString(v any) (string, error) { return "", nil }
func (moneyCodec) DecodeString(s string) (any, error) { return nil, nil }

type invoiceWithMoney struct {
	Total money
}

func TestRegisterTypesAcceptsRegisteredStringCodec(t *testing.T) {
	RegisterStringCodec(money{}, moneyCodec{})
	reg, err := RegisterTypes(&invoiceWithMoney{})
	require.NoError(t, err)
	inv, _ := reg.Get("invoiceWithMoney")
	total, ok := inv.FieldByName("Total")
	require.True(t, ok)
	require.Equal(t, Data, total.Kind)
	require.Equal(t, reflect.TypeOf(money{}), total.StringCodecType)
}

type bucket struct {
	Items []*item `persist:"accumulation=Owner"`
}

type item struct {
	Owner *bucket
}

func TestAccumulationFieldResolvesInverse(t *testing.T) {
	reg, err := RegisterTypes(&bucket{}, &item{})
	require.NoError(t, err)
	b, _ := reg.Get("bucket")
	items, ok := b.FieldByName("Items")
	require.True(t, ok)
	require.Equal(t, Accumulation, items.Kind)
	require.Equal(t, "Owner", items.Accumulation.InverseField)
}

type badAccumTarget struct{}

type badAccumOwner struct {
	Items []badAccumTarget `persist:"accumulation=Owner"`
}

func TestAccumulationFieldRequiresSliceOfPointer(t *testing.T) {
	_, err := RegisterTypes(&badAccumTarget{}, &badAccumOwner{})
	require.Error(t, err)
}

type Department struct {
	Name string
}

type Employee struct {
	Name string
	Dept *Department
}

func TestRegisterTypesDiscoversReferenceTargetTransitively(t *testing.T) {
	reg, err := RegisterTypes(&Employee{})
	require.NoError(t, err)

	dept, ok := reg.Get("Department")
	require.True(t, ok, "Department should be discovered transitively via Employee.Dept")

	emp, ok := reg.Get("Employee")
	require.True(t, ok)
	deptField, ok := emp.FieldByName("Dept")
	require.True(t, ok)
	require.Equal(t, Reference, deptField.Kind)
	require.Equal(t, "DEPT_ID", deptField.ColumnName)
	require.Same(t, dept, deptField.Reference.Target)
}

type Warehouse struct {
	Bins []*Bin
}

type Bin struct {
	Label string
}

func TestRegisterTypesDiscoversComplexElementTransitively(t *testing.T) {
	reg, err := RegisterTypes(&Warehouse{})
	require.NoError(t, err)

	_, ok := reg.Get("Bin")
	require.True(t, ok, "Bin should be discovered transitively via Warehouse.Bins' element type")
}

type selfRefNode struct {
	Next *selfRefNode
}

func TestDetectCyclesFindsSelfLoop(t *testing.T) {
	reg, err := RegisterTypes(&selfRefNode{})
	require.NoError(t, err)
	node, _ := reg.Get("selfRefNode")
	require.True(t, reg.InCycle(node))
	require.Len(t, reg.Cycles(), 1)
}

type mutualA struct {
	B *mutualB
}

type mutualB struct {
	A *mutualA
}

func TestDetectCyclesFindsMutualCycle(t *testing.T) {
	reg, err := RegisterTypes(&mutualA{}, &mutualB{})
	require.NoError(t, err)
	a, _ := reg.Get("mutualA")
	b, _ := reg.Get("mutualB")
	require.True(t, reg.InCycle(a))
	require.True(t, reg.InCycle(b))
}

func TestNoCycleForSimpleTree(t *testing.T) {
	reg, err := RegisterTypes(&Parent{}, &Child{})
	require.NoError(t, err)
	parent, _ := reg.Get("Parent")
	require.False(t, reg.InCycle(parent))
	require.Empty(t, reg.Cycles())
}
