package saver

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
)

type listHolder struct {
	Strings []string
}

func listField(t *testing.T) (*registry.EntityType, *registry.FieldSpec, *objstore.ObjectStore) {
	t.Helper()
	reg, err := registry.RegisterTypes(&listHolder{})
	require.NoError(t, err)
	et, ok := reg.Get("listHolder")
	if !ok {
		et, ok = reg.Get("ListHolder")
	}
	require.True(t, ok)
	f, ok := et.FieldByName("Strings")
	require.True(t, ok)
	store := objstore.New(reg)
	return et, f, store
}

func setStrings(et *registry.EntityType, obj *objstore.Object, vals ...string) {
	f, _ := et.FieldByName("Strings")
	cp := make([]string, len(vals))
	copy(cp, vals)
	f.Get(obj.Value).Set(reflect.ValueOf(cp))
}

func TestDiffListAssignsFreshKeysForNewList(t *testing.T) {
	et, f, store := listField(t)
	obj := store.Create(et, 1, func(o *objstore.Object) { setStrings(et, o, "a", "b", "c") })
	record := recordcache.New().GetOrCreate(et, obj.ID)

	ops, rows, err := diffComplexField(store, record, f, obj)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		require.Greater(t, rows[i].OrderKey, rows[i-1].OrderKey)
	}
}

func TestDiffListPrependKeepsOrder(t *testing.T) {
	et, f, store := listField(t)
	obj := store.Create(et, 1, func(o *objstore.Object) { setStrings(et, o, "b", "c") })
	cache := recordcache.New()
	record := cache.GetOrCreate(et, obj.ID)
	_, rows, err := diffComplexField(store, record, f, obj)
	require.NoError(t, err)
	record.SetComplexRows(f.Name, rows)

	setStrings(et, obj, "a", "b", "c")
	ops, rows2, err := diffComplexField(store, record, f, obj)
	require.NoError(t, err)
	require.Len(t, rows2, 3)
	// Only "a" is a genuinely new row; "b" and "c" keep their old keys.
	inserted := 0
	for _, op := range ops {
		if op.op == "insert" {
			inserted++
		}
	}
	require.Equal(t, 1, inserted)
	require.Equal(t, rows[0].OrderKey, rows2[1].OrderKey)
	require.Equal(t, rows[1].OrderKey, rows2[2].OrderKey)
	require.Less(t, rows2[0].OrderKey, rows2[1].OrderKey)
}

func TestDiffListRebalancesWhenNeighborsAreDense(t *testing.T) {
	et, f, store := listField(t)
	obj := store.Create(et, 1, func(o *objstore.Object) { setStrings(et, o, "a", "b") })
	cache := recordcache.New()
	record := cache.GetOrCreate(et, obj.ID)
	record.SetComplexRows(f.Name, []recordcache.ComplexRow{
		{Value: "a", OrderKey: 1000},
		{Value: "b", OrderKey: 1001}, // adjacent: no room to insert between them
	})

	setStrings(et, obj, "a", "x", "b")
	_, rows, err := diffComplexField(store, record, f, obj)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		require.Greater(t, rows[i].OrderKey, rows[i-1].OrderKey)
	}
}
