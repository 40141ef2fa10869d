package objstore

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/persistcore/registry"
)

type Account struct {
	Name   string
	Orders []*Order `persist:"accumulation=Account"`
}

type Order struct {
	Account *Account
	Total   float64
	Tags    []string
}

func newTestStore(t *testing.T) (*ObjectStore, *registry.Registry) {
	t.Helper()
	reg, err := registry.RegisterTypes(&Account{}, &Order{})
	require.NoError(t, err)
	return New(reg), reg
}

func TestCreateAutoInitializesComplexFields(t *testing.T) {
	store, reg := newTestStore(t)
	orderType, _ := reg.Get("Order")
	obj := store.Create(orderType, 1, nil)
	tags, _ := orderType.FieldByName("Tags")
	fv := tags.Get(obj.Value)
	require.False(t, fv.IsNil())
	require.Equal(t, 0, fv.Len())
}

func TestRegisterAndFindByID(t *testing.T) {
	store, reg := newTestStore(t)
	accountType, _ := reg.Get("Account")
	obj := store.Create(accountType, 7, func(o *Object) {
		f, _ := accountType.FieldByName("Name")
		f.Set(o.Value, reflect.ValueOf("acme"))
	})

	found, ok := store.FindByID(accountType, 7)
	require.True(t, ok)
	require.Same(t, obj, found)

	_, ok = store.FindByID(accountType, 99)
	require.False(t, ok)
}

func TestUnregisterRemovesObject(t *testing.T) {
	store, reg := newTestStore(t)
	accountType, _ := reg.Get("Account")
	obj := store.Create(accountType, 1, nil)
	store.Unregister(obj)
	_, ok := store.FindByID(accountType, 1)
	require.False(t, ok)
}

func TestSetReferenceUpdatesAccumulation(t *testing.T) {
	store, reg := newTestStore(t)
	accountType, _ := reg.Get("Account")
	orderType, _ := reg.Get("Order")

	account := store.Create(accountType, 1, nil)
	order := store.Create(orderType, 2, nil)

	store.SetReference(order, "Account", account)
	members := store.Accumulation(account, "Orders")
	require.Len(t, members, 1)
	require.Same(t, order, members[0])

	target, ok := store.ReferenceTarget(order, "Account")
	require.True(t, ok)
	require.Same(t, account, target)

	store.SetReference(order, "Account", nil)
	require.Empty(t, store.Accumulation(account, "Orders"))
	_, ok = store.ReferenceTarget(order, "Account")
	require.False(t, ok)
}

func TestSetReferenceMovesAccumulationMembership(t *testing.T) {
	store, reg := newTestStore(t)
	accountType, _ := reg.Get("Account")
	orderType, _ := reg.Get("Order")

	a1 := store.Create(accountType, 1, nil)
	a2 := store.Create(accountType, 2, nil)
	order := store.Create(orderType, 3, nil)

	store.SetReference(order, "Account", a1)
	require.Len(t, store.Accumulation(a1, "Orders"), 1)

	store.SetReference(order, "Account", a2)
	require.Empty(t, store.Accumulation(a1, "Orders"))
	require.Len(t, store.Accumulation(a2, "Orders"), 1)
}

func TestUnregisterDropsAccumulationMembership(t *testing.T) {
	store, reg := newTestStore(t)
	accountType, _ := reg.Get("Account")
	orderType, _ := reg.Get("Order")

	account := store.Create(accountType, 1, nil)
	order := store.Create(orderType, 2, nil)
	store.SetReference(order, "Account", account)
	require.Len(t, store.Accumulation(account, "Orders"), 1)

	store.Unregister(order)
	require.Empty(t, store.Accumulation(account, "Orders"))
}

func TestAllAllValidAndCount(t *testing.T) {
	store, reg := newTestStore(t)
	accountType, _ := reg.Get("Account")
	a := store.Create(accountType, 1, nil)
	b := store.Create(accountType, 2, nil)
	b.SetFieldError("Name", require.AnError)

	require.Len(t, store.All(accountType), 2)
	valid := store.AllValid(accountType)
	require.Len(t, valid, 1)
	require.Same(t, a, valid[0])

	require.Equal(t, 2, store.Count(accountType, nil))
	require.Equal(t, 1, store.Count(accountType, func(o *Object) bool { return o.Valid() }))
	require.True(t, store.HasAny(accountType, func(o *Object) bool { return o.ID == 1 }))
	require.False(t, store.HasAny(accountType, func(o *Object) bool { return o.ID == 42 }))
}

func TestFindAnyReturnsFalseWhenEmpty(t *testing.T) {
	store, reg := newTestStore(t)
	accountType, _ := reg.Get("Account")
	_, ok := store.FindAny(accountType, func(o *Object) bool { return true })
	require.False(t, ok)
}

func TestSortOrdersByLocaleAwareKey(t *testing.T) {
	store, reg := newTestStore(t)
	accountType, _ := reg.Get("Account")
	names := []string{"charlie", "alice", "bob"}
	var objs []*Object
	for i, n := range names {
		name := n
		objs = append(objs, store.Create(accountType, uint64(i+1), func(o *Object) {
			f, _ := accountType.FieldByName("Name")
			f.Set(o.Value, reflect.ValueOf(name))
		}))
	}
	store.Sort(objs, func(o *Object) string {
		f, _ := accountType.FieldByName("Name")
		return f.Get(o.Value).String()
	})
	require.Equal(t, []uint64{2, 3, 1}, []uint64{objs[0].ID, objs[1].ID, objs[2].ID})
}

func TestGroupByPartitionsPreservingOrder(t *testing.T) {
	store, reg := newTestStore(t)
	accountType, _ := reg.Get("Account")
	var objs []*Object
	for i := 0; i < 4; i++ {
		objs = append(objs, store.Create(accountType, uint64(i+1), nil))
	}
	groups := GroupBy(objs, func(o *Object) bool { return o.ID%2 == 0 })
	require.Len(t, groups[true], 2)
	require.Len(t, groups[false], 2)
}

func TestObjectFieldErrorsAndWarnings(t *testing.T) {
	store, reg := newTestStore(t)
	accountType, _ := reg.Get("Account")
	obj := store.Create(accountType, 1, nil)

	require.True(t, obj.Valid())
	obj.SetFieldError("Name", require.AnError)
	require.False(t, obj.Valid())
	require.Len(t, obj.FieldErrors(), 1)
	obj.SetFieldError("Name", nil)
	require.True(t, obj.Valid())

	obj.AddWarning(require.AnError)
	require.Len(t, obj.Warnings(), 1)
	obj.ClearWarnings()
	require.Empty(t, obj.Warnings())
}

func TestRebuildRecomputesAccumulationFromRawPointers(t *testing.T) {
	store, reg := newTestStore(t)
	accountType, _ := reg.Get("Account")
	orderType, _ := reg.Get("Order")

	account := store.Create(accountType, 1, nil)
	order := store.Create(orderType, 2, func(o *Object) {
		f, _ := orderType.FieldByName("Account")
		f.Set(o.Value, account.Value.Addr())
	})
	_ = order

	require.Empty(t, store.Accumulation(account, "Orders"))
	Rebuild(store)
	require.Len(t, store.Accumulation(account, "Orders"), 1)
}
