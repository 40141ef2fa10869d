// Package orderkey implements the fractional element-order key scheme of
// spec.md §4.7: signed integer keys spaced by InitialIncrement so list
// and array entry-table rows can be inserted, appended, or prepended
// without renumbering every row; the keys are rebalanced (renumbered
// with fresh spacing) only when no gap is left for a new key.
package orderkey

// InitialIncrement is the spacing between freshly assigned keys, and the
// spacing a Rebalance renumbers a run back to.
const InitialIncrement int64 = 1024

// Sequence returns n fresh, strictly increasing keys for a brand-new
// list: InitialIncrement, 2*InitialIncrement, and so on.
func Sequence(n int) []int64 {
	keys := make([]int64, n)
	for i := range keys {
		keys[i] = int64(i+1) * InitialIncrement
	}
	return keys
}

// Append returns the key for a new last element, given the current last
// key (or 0 if the list is empty).
func Append(last int64) int64 {
	return last + InitialIncrement
}

// Prepend returns the key for a new first element given the current
// first key. ok is false when first has no room below it (first <= 1),
// in which case the caller must Rebalance before prepending.
func Prepend(first int64) (key int64, ok bool) {
	if first > 1 {
		return first / 2, true
	}
	return 0, false
}

// Between returns a key strictly between a and b (a < b) for inserting
// an element at that position. ok is false when a and b are adjacent
// (b-a <= 1), in which case the caller must Rebalance the affected run
// before inserting.
func Between(a, b int64) (key int64, ok bool) {
	if b-a <= 1 {
		return 0, false
	}
	return a + (b-a)/2, true
}

// NeedsRebalance reports whether two neighboring keys have become too
// dense to admit a further insertion between them.
func NeedsRebalance(a, b int64) bool {
	return b-a <= 1
}

// Rebalance returns n fresh keys spaced by InitialIncrement, to replace
// an existing run of n element-order values in place (same relative
// order, fresh absolute spacing). The Saver passes the whole list's
// length; the caller is responsible for writing the returned keys back
// in order onto the same rows the old run covered.
func Rebalance(n int) []int64 {
	return Sequence(n)
}
