package exclusive

import (
	"context"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/persistcore/dialect/family"
	sqldialect "github.com/syssam/persistcore/dialect/sql"
	"github.com/syssam/persistcore/idgen"
	"github.com/syssam/persistcore/loader"
	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
	"github.com/syssam/persistcore/saver"
	"github.com/syssam/persistcore/valuecodec"
)

type Job struct {
	Status string
}

func newTestAllocator(t *testing.T) (*Allocator, *registry.Registry, *objstore.ObjectStore) {
	t.Helper()
	reg, err := registry.RegisterTypes(&Job{})
	require.NoError(t, err)
	mapper, ok := family.New(family.Generic)
	require.True(t, ok)
	store := objstore.New(reg)
	cache := recordcache.New()
	codec := valuecodec.New(nil)
	ld := loader.New(reg, mapper, codec, store, cache, 0)
	sv := saver.New(reg, mapper, codec, idgen.New(), cache, store)
	return New(reg, mapper, ld, sv, store), reg, store
}

func TestAllocateOneExclusivelyWinsOnFreshRow(t *testing.T) {
	a, reg, store := newTestAllocator(t)
	et, ok := reg.Get("Job")
	require.True(t, ok)
	obj := store.Create(et, 1, nil)
	obj.MarkStored()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	drv := sqldialect.OpenDB("sqlite", db)

	mock.ExpectExec(`INSERT INTO "DOM_JOB_PICK_LOCK"`).WithArgs(uint64(1)).WillReturnResult(sqlmock.NewResult(1, 1))

	won, err := a.AllocateOneExclusively(context.Background(), drv, obj, "pick", nil)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, uint64(1), a.Counters().Snapshot().Allocated)
}

func TestAllocateOneExclusivelyLosesOnCollision(t *testing.T) {
	a, reg, store := newTestAllocator(t)
	et, ok := reg.Get("Job")
	require.True(t, ok)
	obj := store.Create(et, 2, nil)
	obj.MarkStored()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	drv := sqldialect.OpenDB("sqlite", db)

	mock.ExpectExec(`INSERT INTO "DOM_JOB_PICK_LOCK"`).WithArgs(uint64(2)).
		WillReturnError(fmt.Errorf("UNIQUE constraint failed: DOM_JOB_PICK_LOCK.ID"))

	won, err := a.AllocateOneExclusively(context.Background(), drv, obj, "pick", nil)
	require.NoError(t, err)
	require.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, uint64(1), a.Counters().Snapshot().CollisionsRemote)
}

func TestReleaseWarnsWhenNoShadowExists(t *testing.T) {
	a, reg, store := newTestAllocator(t)
	et, ok := reg.Get("Job")
	require.True(t, ok)
	obj := store.Create(et, 3, nil)
	obj.MarkStored()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	drv := sqldialect.OpenDB("sqlite", db)

	mock.ExpectExec(`DELETE FROM "DOM_JOB_PICK_LOCK"`).WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, a.Release(context.Background(), drv, obj, "pick", nil))
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, obj.Warnings(), 1)
}
