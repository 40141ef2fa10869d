package saver

import (
	"fmt"
	"reflect"

	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
	"github.com/syssam/persistcore/saver/orderkey"
	"github.com/syssam/persistcore/valuecodec"
)

// entryOp is one INSERT/UPDATE/DELETE against a Complex field's entry
// table (spec.md §4.6's collection/map handling).
type entryOp struct {
	op       string // "insert", "update", "delete"
	key      any    // set only for ShapeMap
	value    any
	orderKey int64 // set only for ShapeList/ShapeArray
}

// diffComplexField computes the entry-table operations for one Complex
// field, against its last-known image in record. newRows is the full
// post-save image to record back into the cache on success.
func diffComplexField(store *objstore.ObjectStore, record *recordcache.ObjectRecord, f *registry.FieldSpec, obj *objstore.Object) (ops []entryOp, newRows []recordcache.ComplexRow, err error) {
	fv := f.Get(obj.Value)
	switch f.Complex.Shape {
	case registry.ShapeSet, registry.ShapeArray:
		return diffSet(store, record, f, fv)
	case registry.ShapeList:
		return diffList(store, record, f, fv)
	case registry.ShapeMap:
		return diffMap(store, record, f, fv)
	default:
		return nil, nil, fmt.Errorf("saver: %s.%s: unknown complex shape", f.Owner.Name, f.Name)
	}
}

func elementTransport(store *objstore.ObjectStore, elemType reflect.Type, v reflect.Value) (any, error) {
	if elemType.Kind() == reflect.Ptr && elemType.Elem().Kind() == reflect.Struct {
		if v.IsNil() {
			return nil, nil
		}
		target := store.ObjectForPointer(v)
		if target == nil {
			return nil, fmt.Errorf("saver: complex field element references an unregistered object")
		}
		return target.ID, nil
	}
	return valuecodec.EncodeElement(v)
}

// diffSet handles ShapeSet (and ShapeArray, which is fixed-size but
// unordered for persistence purposes per spec.md §3): delete removed
// elements, insert added elements.
func diffSet(store *objstore.ObjectStore, record *recordcache.ObjectRecord, f *registry.FieldSpec, fv reflect.Value) ([]entryOp, []recordcache.ComplexRow, error) {
	current := make([]any, 0, fv.Len())
	for i := 0; i < fv.Len(); i++ {
		tv, err := elementTransport(store, f.Complex.Elem, fv.Index(i))
		if err != nil {
			return nil, nil, fmt.Errorf("saver: %s.%s[%d]: %w", f.Owner.Name, f.Name, i, err)
		}
		current = append(current, tv)
	}

	oldRows, _ := record.ComplexRows(f.Name)
	var ops []entryOp
	matchedOld := make([]bool, len(oldRows))
	for _, v := range current {
		found := false
		for i, r := range oldRows {
			if !matchedOld[i] && reflect.DeepEqual(r.Value, v) {
				matchedOld[i] = true
				found = true
				break
			}
		}
		if !found {
			ops = append(ops, entryOp{op: "insert", value: v})
		}
	}
	for i, r := range oldRows {
		if !matchedOld[i] {
			ops = append(ops, entryOp{op: "delete", value: r.Value})
		}
	}

	newRows := make([]recordcache.ComplexRow, len(current))
	for i, v := range current {
		newRows[i] = recordcache.ComplexRow{Value: v}
	}
	return ops, newRows, nil
}

// diffMap handles ShapeMap: key-addressed update, explicit key removal
// and insertion.
func diffMap(store *objstore.ObjectStore, record *recordcache.ObjectRecord, f *registry.FieldSpec, fv reflect.Value) ([]entryOp, []recordcache.ComplexRow, error) {
	type kv struct {
		key   any
		value any
	}
	current := make([]kv, 0, fv.Len())
	for _, mk := range fv.MapKeys() {
		kt, err := elementTransport(store, f.Complex.Key, mk)
		if err != nil {
			return nil, nil, fmt.Errorf("saver: %s.%s: key: %w", f.Owner.Name, f.Name, err)
		}
		vt, err := elementTransport(store, f.Complex.Elem, fv.MapIndex(mk))
		if err != nil {
			return nil, nil, fmt.Errorf("saver: %s.%s[%v]: %w", f.Owner.Name, f.Name, kt, err)
		}
		current = append(current, kv{key: kt, value: vt})
	}

	oldRows, _ := record.ComplexRows(f.Name)
	oldByKey := make(map[any]any, len(oldRows))
	for _, r := range oldRows {
		oldByKey[r.Key] = r.Value
	}

	var ops []entryOp
	seen := make(map[any]bool, len(current))
	for _, e := range current {
		seen[e.key] = true
		prev, existed := oldByKey[e.key]
		switch {
		case !existed:
			ops = append(ops, entryOp{op: "insert", key: e.key, value: e.value})
		case !reflect.DeepEqual(prev, e.value):
			ops = append(ops, entryOp{op: "update", key: e.key, value: e.value})
		}
	}
	for _, r := range oldRows {
		if !seen[r.Key] {
			ops = append(ops, entryOp{op: "delete", key: r.Key})
		}
	}

	newRows := make([]recordcache.ComplexRow, len(current))
	for i, e := range current {
		newRows[i] = recordcache.ComplexRow{Key: e.key, Value: e.value}
	}
	return ops, newRows, nil
}

// diffList handles ShapeList: fractional element-order keys (spec.md
// §4.7). Elements shared with the last-known image (matched by a
// longest-common-subsequence alignment on value equality) keep their
// order key; every other position gets a fresh key interpolated between
// its settled neighbors, falling back to a full Rebalance of the whole
// list when neighbors have no room left.
func diffList(store *objstore.ObjectStore, record *recordcache.ObjectRecord, f *registry.FieldSpec, fv reflect.Value) ([]entryOp, []recordcache.ComplexRow, error) {
	current := make([]any, 0, fv.Len())
	for i := 0; i < fv.Len(); i++ {
		tv, err := elementTransport(store, f.Complex.Elem, fv.Index(i))
		if err != nil {
			return nil, nil, fmt.Errorf("saver: %s.%s[%d]: %w", f.Owner.Name, f.Name, i, err)
		}
		current = append(current, tv)
	}

	oldRows, _ := record.ComplexRows(f.Name)
	matchNew, matchOld := lcsAlign(oldRows, current)

	keys := make([]int64, len(current))
	haveKey := make([]bool, len(current))
	for ni, oi := range matchNew {
		if oi >= 0 {
			keys[ni] = oldRows[oi].OrderKey
			haveKey[ni] = true
		}
	}

	if !assignGapKeys(keys, haveKey) {
		// No room anywhere: rebalance every position to fresh spacing.
		fresh := orderkey.Rebalance(len(current))
		copy(keys, fresh)
	}

	var ops, inserts []entryOp
	for ni, v := range current {
		oi := matchNew[ni]
		if oi >= 0 && oldRows[oi].OrderKey == keys[ni] {
			continue // unchanged position and value
		}
		if oi >= 0 {
			// Re-keyed by a rebalance: drop the row under its old key.
			ops = append(ops, entryOp{op: "delete", value: oldRows[oi].Value, orderKey: oldRows[oi].OrderKey})
		}
		inserts = append(inserts, entryOp{op: "insert", value: v, orderKey: keys[ni]})
	}
	for oi, r := range oldRows {
		if matchOld[oi] < 0 {
			ops = append(ops, entryOp{op: "delete", value: r.Value, orderKey: r.OrderKey})
		}
	}
	ops = append(ops, inserts...)

	newRows := make([]recordcache.ComplexRow, len(current))
	for i, v := range current {
		newRows[i] = recordcache.ComplexRow{Value: v, OrderKey: keys[i]}
	}
	return ops, newRows, nil
}

// lcsAlign aligns oldRows and newVals by value equality, returning for
// each new index the matched old index (or -1), and for each old index
// the matched new index (or -1). The matched pairs form a common
// subsequence that is index-increasing in both sequences.
func lcsAlign(oldRows []recordcache.ComplexRow, newVals []any) (matchNew, matchOld []int) {
	n, m := len(oldRows), len(newVals)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if reflect.DeepEqual(oldRows[i].Value, newVals[j]) {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	matchNew = make([]int, m)
	matchOld = make([]int, n)
	for i := range matchNew {
		matchNew[i] = -1
	}
	for i := range matchOld {
		matchOld[i] = -1
	}
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case reflect.DeepEqual(oldRows[i].Value, newVals[j]):
			matchNew[j] = i
			matchOld[i] = j
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}
	return matchNew, matchOld
}

// assignGapKeys fills every keys[i] where haveKey[i] is false by
// interpolating between its settled neighbors (Prepend/Between/Append),
// left to right. Returns false if any gap has no room, in which case
// the caller must Rebalance the whole list instead.
func assignGapKeys(keys []int64, haveKey []bool) bool {
	n := len(keys)
	i := 0
	for i < n {
		if haveKey[i] {
			i++
			continue
		}
		start := i
		for i < n && !haveKey[i] {
			i++
		}
		gapLen := i - start

		var left, right int64
		hasLeft := start > 0
		hasRight := i < n
		if hasLeft {
			left = keys[start-1]
		}
		if hasRight {
			right = keys[i]
		}

		switch {
		case !hasLeft && !hasRight:
			fresh := orderkey.Sequence(gapLen)
			copy(keys[start:i], fresh)
		case !hasLeft:
			cur := right
			for p := i - 1; p >= start; p-- {
				k, ok := orderkey.Prepend(cur)
				if !ok {
					return false
				}
				keys[p] = k
				cur = k
			}
		case !hasRight:
			cur := left
			for p := start; p < i; p++ {
				k := orderkey.Append(cur)
				keys[p] = k
				cur = k
			}
		default:
			if !fillBetween(keys, start, i, left, right) {
				return false
			}
		}
	}
	return true
}

// fillBetween assigns strictly increasing keys in (left, right) to
// keys[start:end] by even fractional interpolation.
func fillBetween(keys []int64, start, end int, left, right int64) bool {
	n := end - start
	span := right - left
	if span <= int64(n) {
		return false
	}
	step := span / int64(n+1)
	if step < 1 {
		return false
	}
	prev := left
	for p := start; p < end; p++ {
		k := prev + step
		if k >= right || k <= prev {
			return false
		}
		keys[p] = k
		prev = k
	}
	return true
}
