package column

// CompareRows orders row i of one column list against row j of another
// under per-key descending flags. Lists must be positionally typed alike.
// Missing desc flags default to ascending.
func CompareRows(a []Block, i int, b []Block, j int, desc []bool) int {
	for k := range a {
		cmp := a[k].Compare(i, b[k], j)
		if cmp == 0 {
			continue
		}
		if k < len(desc) && desc[k] {
			return -cmp
		}
		return cmp
	}
	return 0
}

// HashRow folds row i of every column into a single row hash.
func HashRow(cols []Block, i int) uint64 {
	h := uint64(HashSeed)
	for _, c := range cols {
		h = c.Hash(i, h)
	}
	return h
}

// RowsEqual reports whether row i and row j match across column lists,
// with nulls treated as equal to nulls. Used for group keys, where nulls
// form their own group.
func RowsEqual(a []Block, i int, b []Block, j int) bool {
	for k := range a {
		if a[k].IsNull(i) != b[k].IsNull(j) {
			return false
		}
		if a[k].IsNull(i) {
			continue
		}
		if a[k].Compare(i, b[k], j) != 0 {
			return false
		}
	}
	return true
}
