package recordcache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/persistcore/registry"
)

func TestGetOrCreateReturnsSameRecord(t *testing.T) {
	c := New()
	et := &registry.EntityType{Name: "X"}
	r1 := c.GetOrCreate(et, 1)
	r2 := c.GetOrCreate(et, 1)
	require.Same(t, r1, r2)

	r3 := c.GetOrCreate(et, 2)
	require.NotSame(t, r1, r3)
}

func TestGetReportsAbsence(t *testing.T) {
	c := New()
	et := &registry.EntityType{Name: "X"}
	_, ok := c.Get(et, 1)
	require.False(t, ok)
	c.GetOrCreate(et, 1)
	_, ok = c.Get(et, 1)
	require.True(t, ok)
}

func TestDeleteRemovesRecord(t *testing.T) {
	c := New()
	et := &registry.EntityType{Name: "X"}
	c.GetOrCreate(et, 1)
	c.Delete(et, 1)
	_, ok := c.Get(et, 1)
	require.False(t, ok)
}

func TestObjectRecordSetGetColumnsSorted(t *testing.T) {
	r := newRecord()
	r.Set("NAME", "acme")
	r.Set("ID", 1)
	r.Set("AMOUNT", 1.5)

	require.Equal(t, []string{"AMOUNT", "ID", "NAME"}, r.Columns())
	v, ok := r.Get("NAME")
	require.True(t, ok)
	require.Equal(t, "acme", v)

	_, ok = r.Get("MISSING")
	require.False(t, ok)
}

func TestObjectRecordSnapshotIsACopy(t *testing.T) {
	r := newRecord()
	r.Set("NAME", "acme")
	snap := r.Snapshot()
	snap["NAME"] = "mutated"
	v, _ := r.Get("NAME")
	require.Equal(t, "acme", v)
}

func TestComplexSnapshotShortCircuit(t *testing.T) {
	r := newRecord()
	_, ok := r.ComplexSnapshot("Tags")
	require.False(t, ok)

	require.NoError(t, r.SetComplexSnapshot("Tags", []string{"a", "b"}))
	unchanged, err := r.ComplexUnchanged("Tags", []string{"a", "b"})
	require.NoError(t, err)
	require.True(t, unchanged)

	unchanged, err = r.ComplexUnchanged("Tags", []string{"a", "c"})
	require.NoError(t, err)
	require.False(t, unchanged)
}

func TestComplexUnchangedAlwaysFalseWithoutPriorSnapshot(t *testing.T) {
	r := newRecord()
	unchanged, err := r.ComplexUnchanged("Tags", []string{"a"})
	require.NoError(t, err)
	require.False(t, unchanged)
}

func TestComplexRowsRoundTrip(t *testing.T) {
	r := newRecord()
	_, ok := r.ComplexRows("Tags")
	require.False(t, ok)

	rows := []ComplexRow{{Value: "a", OrderKey: 1024}, {Value: "b", OrderKey: 2048}}
	r.SetComplexRows("Tags", rows)

	got, ok := r.ComplexRows("Tags")
	require.True(t, ok)
	require.Equal(t, rows, got)

	// Mutating the returned slice must not affect the stored copy.
	got[0].Value = "mutated"
	got2, _ := r.ComplexRows("Tags")
	require.Equal(t, "a", got2[0].Value)
}
