// Package recordcache implements the RecordCache component of spec.md
// §4.4: the last-known database image of every stored Object, keyed by
// (type, id), used by the Saver to diff pending changes and by the
// Loader to detect external (database-side) changes.
package recordcache

import (
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/persistcore/registry"
)

// ObjectRecord is the mapping column-name -> last-known value for one
// Object across all of its ancestor tables (spec.md §3). Columns are
// iterated in sorted order by Columns() for deterministic diffing.
type ObjectRecord struct {
	mu      sync.RWMutex
	values  map[string]any
	complex map[string][]byte        // field name -> msgpack snapshot, Complex fields only
	rows    map[string][]ComplexRow // field name -> last-known entry-table rows, Complex fields only
}

func newRecord() *ObjectRecord {
	return &ObjectRecord{values: map[string]any{}, complex: map[string][]byte{}, rows: map[string][]ComplexRow{}}
}

// Get returns the last-known value of column, if present.
func (r *ObjectRecord) Get(column string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[column]
	return v, ok
}

// Set records the last-known value of column.
func (r *ObjectRecord) Set(column string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[column] = v
}

// Columns returns every column name currently recorded, sorted
// lexicographically (spec.md §3: "Sorted by column name for deterministic
// diffing").
func (r *ObjectRecord) Columns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.values))
	for c := range r.values {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of the full column->value map.
func (r *ObjectRecord) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// ComplexSnapshot returns the last recorded msgpack encoding of a Complex
// field's entry-table image, used as an O(1) short-circuit before a full
// element-by-element diff (the Saver only pays for the expensive diff
// when the snapshot actually differs).
func (r *ObjectRecord) ComplexSnapshot(field string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.complex[field]
	return b, ok
}

// SetComplexSnapshot records the msgpack encoding of a Complex field's
// current entry-table image.
func (r *ObjectRecord) SetComplexSnapshot(field string, v any) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.complex[field] = b
	r.mu.Unlock()
	return nil
}

// ComplexUnchanged reports whether v's msgpack encoding matches the last
// recorded snapshot for field. A field with no prior snapshot is always
// reported changed.
func (r *ObjectRecord) ComplexUnchanged(field string, v any) (bool, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return false, err
	}
	r.mu.RLock()
	prev, ok := r.complex[field]
	r.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if len(prev) != len(b) {
		return false, nil
	}
	for i := range b {
		if prev[i] != b[i] {
			return false, nil
		}
	}
	return true, nil
}

// ComplexRow is one last-known entry-table row for a Complex field,
// shaped generically enough to cover all three container shapes the
// Saver diffs against: Key is set only for Map fields, OrderKey only for
// List/Array fields.
type ComplexRow struct {
	Key      any
	Value    any
	OrderKey int64
}

// ComplexRows returns the last-known entry-table image of a Complex
// field, as recorded by the Loader on load/reload or the Saver after a
// successful entry-table write.
func (r *ObjectRecord) ComplexRows(field string) ([]ComplexRow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows, ok := r.rows[field]
	if !ok {
		return nil, false
	}
	out := make([]ComplexRow, len(rows))
	copy(out, rows)
	return out, true
}

// SetComplexRows records the entry-table image of a Complex field,
// replacing whatever was previously recorded.
func (r *ObjectRecord) SetComplexRows(field string, rows []ComplexRow) {
	cp := make([]ComplexRow, len(rows))
	copy(cp, rows)
	r.mu.Lock()
	if r.rows == nil {
		r.rows = map[string][]ComplexRow{}
	}
	r.rows[field] = cp
	r.mu.Unlock()
}

// recordKey identifies one ObjectRecord by concrete EntityType and id.
type recordKey struct {
	et *registry.EntityType
	id uint64
}

// RecordCache is the process-wide RecordCache instance owned by one
// Controller (spec.md §4.4, §9: "no singletons").
type RecordCache struct {
	mu      sync.RWMutex
	records map[recordKey]*ObjectRecord
}

// New returns an empty RecordCache.
func New() *RecordCache {
	return &RecordCache{records: map[recordKey]*ObjectRecord{}}
}

// Get returns the ObjectRecord for (et, id), if present (i.e. the Object
// is stored).
func (c *RecordCache) Get(et *registry.EntityType, id uint64) (*ObjectRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[recordKey{et, id}]
	return r, ok
}

// GetOrCreate returns the existing ObjectRecord for (et, id), creating an
// empty one if none exists yet (used by the Saver immediately before its
// first successful INSERT for an Object).
func (c *RecordCache) GetOrCreate(et *registry.EntityType, id uint64) *ObjectRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := recordKey{et, id}
	r, ok := c.records[k]
	if !ok {
		r = newRecord()
		c.records[k] = r
	}
	return r
}

// Delete drops the ObjectRecord for (et, id), e.g. after a successful
// delete or a data-horizon eviction.
func (c *RecordCache) Delete(et *registry.EntityType, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, recordKey{et, id})
}
