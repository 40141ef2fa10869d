package idgen

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/persistcore/dialect/family"
	"github.com/syssam/persistcore/registry"
)

type Widget struct {
	Name string
}

type WidgetPart struct {
	Widget
	Label string
}

func TestNextIsMonotonicPerRootType(t *testing.T) {
	reg, err := registry.RegisterTypes(&Widget{})
	require.NoError(t, err)
	et, _ := reg.Get("Widget")

	g := New()
	require.Equal(t, uint64(1), g.Next(et))
	require.Equal(t, uint64(2), g.Next(et))
	require.Equal(t, uint64(3), g.Next(et))
}

func TestSeedRaisesCounterButNeverLowersIt(t *testing.T) {
	reg, err := registry.RegisterTypes(&Widget{})
	require.NoError(t, err)
	et, _ := reg.Get("Widget")

	g := New()
	g.Seed(et, 100)
	require.Equal(t, uint64(101), g.Next(et))

	g.Seed(et, 50) // lower than current: must not regress.
	require.Equal(t, uint64(102), g.Next(et))
}

func TestSeedIsSharedAcrossInheritanceChain(t *testing.T) {
	reg, err := registry.RegisterTypes(&Widget{}, &WidgetPart{})
	require.NoError(t, err)
	root, _ := reg.Get("Widget")
	child, _ := reg.Get("WidgetPart")

	g := New()
	g.Seed(child, 10) // seeding via the child must raise the shared root counter.
	require.Equal(t, uint64(11), g.Next(root))
}

func TestSeedFromDatabaseUsesMaxID(t *testing.T) {
	reg, err := registry.RegisterTypes(&Widget{})
	require.NoError(t, err)
	et, _ := reg.Get("Widget")
	mapper, ok := family.New(family.Generic)
	require.True(t, ok)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT MAX\("ID"\) FROM "DOM_WIDGET"`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(uint64(41)))

	g := New()
	require.NoError(t, SeedFromDatabase(context.Background(), g, db, et, mapper))
	require.Equal(t, uint64(42), g.Next(et))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedFromDatabaseEmptyTableLeavesCounterAtZero(t *testing.T) {
	reg, err := registry.RegisterTypes(&Widget{})
	require.NoError(t, err)
	et, _ := reg.Get("Widget")
	mapper, ok := family.New(family.Generic)
	require.True(t, ok)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT MAX\("ID"\) FROM "DOM_WIDGET"`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	g := New()
	require.NoError(t, SeedFromDatabase(context.Background(), g, db, et, mapper))
	require.Equal(t, uint64(1), g.Next(et))
}
