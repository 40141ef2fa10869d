package deleter

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/persistcore/dialect/family"
	sqldialect "github.com/syssam/persistcore/dialect/sql"
	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
)

type Order struct {
	Customer *Customer
}

type Customer struct {
	Orders []*Order `persist:"accumulation=Customer"`
}

func newTestDeleter(t *testing.T) (*Deleter, *registry.Registry, *objstore.ObjectStore) {
	t.Helper()
	reg, err := registry.RegisterTypes(&Customer{}, &Order{})
	require.NoError(t, err)
	mapper, ok := family.New(family.Generic)
	require.True(t, ok)
	store := objstore.New(reg)
	cache := recordcache.New()
	return New(reg, mapper, store, cache), reg, store
}

func TestDeleteCascadesToChildren(t *testing.T) {
	d, reg, store := newTestDeleter(t)
	customerType, ok := reg.Get("Customer")
	require.True(t, ok)
	orderType, ok := reg.Get("Order")
	require.True(t, ok)

	customer := store.Create(customerType, 1, nil)
	customer.MarkStored()
	order := store.Create(orderType, 2, nil)
	order.MarkStored()
	store.SetReference(order, "Customer", customer)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	drv := sqldialect.OpenDB("sqlite", db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "DOM_ORDER" WHERE "ID" = \?`).WithArgs(uint64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "DOM_CUSTOMER" WHERE "ID" = \?`).WithArgs(uint64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, d.Delete(context.Background(), drv, customer))
	require.NoError(t, mock.ExpectationsWereMet())

	_, stillThere := store.FindByID(customerType, 1)
	require.False(t, stillThere)
	_, orderStillThere := store.FindByID(orderType, 2)
	require.False(t, orderStillThere)
}

func TestDeleteVetoAbortsWithNoMutation(t *testing.T) {
	reg, err := registry.RegisterTypes(&vetoType{})
	require.NoError(t, err)
	mapper, ok := family.New(family.Generic)
	require.True(t, ok)
	store := objstore.New(reg)
	cache := recordcache.New()
	d := New(reg, mapper, store, cache)

	et, _ := reg.Get("vetoType")
	obj := store.Create(et, 1, nil)
	obj.MarkStored()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	drv := sqldialect.OpenDB("sqlite", db)

	err = d.Delete(context.Background(), drv, obj)
	require.Error(t, err)
	var vetoErr *VetoError
	require.ErrorAs(t, err, &vetoErr)
}

type vetoType struct{}

func (v *vetoType) CanBeDeleted() bool { return false }
