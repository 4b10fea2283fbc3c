package merge

import (
	"strconv"
	"strings"

	"gramodaya/internal/table"
)

// Reshape pivots a long table to wide form keyed on the KeySet.
//
// Rows are partitioned into groups by key tuple, preserving original row
// order within each group. Each row gets an entry index 1,2,3… in that order;
// input order is the only tie-break, no secondary sort key exists. Every
// non-key column C becomes indexed output columns "C_1" … "C_n" where n is
// the largest group size in the whole table; groups shorter than n pad with
// the missing sentinel. The result has exactly one row per distinct key
// tuple, in first-appearance order.
//
// An already-wide input degenerates to a pure "_1" column rename; callers
// normally gate Reshape behind IsLong and skip wide tables entirely.
//
// Errors:
//   - *InvalidKeySetError when keys is empty.
//   - *MissingKeyColumnError when the table lacks a key column.
func Reshape(t *table.Table, keys []string) (*table.Table, error) {
	if len(keys) == 0 {
		return nil, &InvalidKeySetError{Table: t.Name}
	}
	keyIdx, err := keyIndices(t, keys)
	if err != nil {
		return nil, err
	}

	isKey := make(map[int]bool, len(keyIdx))
	for _, idx := range keyIdx {
		isKey[idx] = true
	}
	nonKeyIdx := make([]int, 0, len(t.Columns)-len(keyIdx))
	for i := range t.Columns {
		if !isKey[i] {
			nonKeyIdx = append(nonKeyIdx, i)
		}
	}

	// Group rows, keeping first-appearance order of key tuples.
	type group struct {
		key  []table.Value
		rows [][]table.Value
	}
	groups := make(map[string]*group, len(t.Rows))
	order := make([]string, 0, len(t.Rows))
	maxEntries := 0

	var b strings.Builder
	for _, row := range t.Rows {
		k := encodeKey(row, keyIdx, &b)
		g, ok := groups[k]
		if !ok {
			g = &group{key: keyValues(row, keyIdx)}
			groups[k] = g
			order = append(order, k)
		}
		g.rows = append(g.rows, row)
		if len(g.rows) > maxEntries {
			maxEntries = len(g.rows)
		}
	}
	if maxEntries == 0 {
		maxEntries = 1 // zero-row table still gets the _1 column shape
	}

	// Output columns: keys first, then C_1..C_max for each non-key column.
	outCols := make([]string, 0, len(keys)+len(nonKeyIdx)*maxEntries)
	outCols = append(outCols, keys...)
	for _, ci := range nonKeyIdx {
		name := t.Columns[ci]
		for e := 1; e <= maxEntries; e++ {
			outCols = append(outCols, name+"_"+strconv.Itoa(e))
		}
	}

	out := table.New(t.Name, outCols)
	for _, k := range order {
		g := groups[k]
		row := make([]table.Value, len(outCols))
		copy(row, g.key)

		p := len(keys)
		for _, ci := range nonKeyIdx {
			for e := 0; e < maxEntries; e++ {
				if e < len(g.rows) {
					row[p] = g.rows[e][ci]
				}
				// else: zero Value is the missing sentinel
				p++
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
