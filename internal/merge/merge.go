package merge

import (
	"strconv"
	"strings"

	"gramodaya/internal/table"
)

// MergedName is the provenance label assigned to the final fold result.
const MergedName = "merged"

// MergeOneToOne merges two wide tables on the KeySet with strict one-to-one
// semantics.
//
// Any key tuple occurring more than once in EITHER side is excluded from the
// merge entirely, even if unique in the other side. This is a deliberate,
// slightly lossy policy: ambiguity anywhere disqualifies the key, and
// downstream consumers rely on the guarantee that every surviving tuple maps
// to exactly one row per source. The dropped tuples are reported via
// *AmbiguousKeyWarning so the loss is auditable.
//
// After filtering, an inner join is performed: the output holds the key
// columns, then left's non-key columns, then right's non-key columns. Tuples
// present in only one side are dropped (inner-join semantics). Non-key column
// name collisions are resolved by qualifying the right side's column with its
// provenance label and surfaced via *ColumnCollisionWarning.
//
// Neither input is mutated. The result keeps left's provenance label so fold
// steps can cite the accumulator.
func MergeOneToOne(left, right *table.Table, keys []string) (*table.Table, []Warning, error) {
	lk, err := keyIndices(left, keys)
	if err != nil {
		return nil, nil, err
	}
	rk, err := keyIndices(right, keys)
	if err != nil {
		return nil, nil, err
	}

	var b strings.Builder

	countKeys := func(t *table.Table, keyIdx []int) map[string]int {
		counts := make(map[string]int, len(t.Rows))
		for _, row := range t.Rows {
			counts[encodeKey(row, keyIdx, &b)]++
		}
		return counts
	}
	leftCounts := countKeys(left, lk)
	rightCounts := countKeys(right, rk)

	ambiguous := make(map[string]bool)
	for k, n := range leftCounts {
		if n > 1 {
			ambiguous[k] = true
		}
	}
	for k, n := range rightCounts {
		if n > 1 {
			ambiguous[k] = true
		}
	}

	var warnings []Warning
	if len(ambiguous) > 0 {
		w := &AmbiguousKeyWarning{
			Left:       left.Name,
			Right:      right.Name,
			KeyColumns: append([]string(nil), keys...),
		}
		seen := make(map[string]bool, len(ambiguous))
		collect := func(t *table.Table, keyIdx []int, counts map[string]int) {
			for _, row := range t.Rows {
				k := encodeKey(row, keyIdx, &b)
				if !ambiguous[k] {
					continue
				}
				if counts[k] > 0 {
					w.RowsDropped += counts[k]
					counts[k] = 0
				}
				if !seen[k] {
					seen[k] = true
					w.Keys = append(w.Keys, keyValues(row, keyIdx))
				}
			}
		}
		collect(left, lk, leftCounts)
		collect(right, rk, rightCounts)
		warnings = append(warnings, w)
	}

	// Output column layout: keys, left non-keys, right non-keys (qualified on
	// collision with anything already in the output).
	isLeftKey := keyPositionSet(lk)
	isRightKey := keyPositionSet(rk)

	outCols := make([]string, 0, len(keys)+len(left.Columns)+len(right.Columns))
	outCols = append(outCols, keys...)
	taken := make(map[string]bool, cap(outCols))
	for _, k := range keys {
		taken[k] = true
	}

	leftOut := make([]int, 0, len(left.Columns))
	for i, c := range left.Columns {
		if isLeftKey[i] {
			continue
		}
		leftOut = append(leftOut, i)
		outCols = append(outCols, c)
		taken[c] = true
	}

	rightOut := make([]int, 0, len(right.Columns))
	for i, c := range right.Columns {
		if isRightKey[i] {
			continue
		}
		name := c
		if taken[name] {
			name = qualifyColumn(right.Name, c, taken)
			warnings = append(warnings, &ColumnCollisionWarning{
				Table:   right.Name,
				Column:  c,
				Renamed: name,
			})
		}
		rightOut = append(rightOut, i)
		outCols = append(outCols, name)
		taken[name] = true
	}

	// Index right rows by key tuple; unique after the ambiguity filter.
	rightByKey := make(map[string][]table.Value, len(right.Rows))
	for _, row := range right.Rows {
		k := encodeKey(row, rk, &b)
		if ambiguous[k] {
			continue
		}
		rightByKey[k] = row
	}

	out := table.New(left.Name, outCols)
	for _, lrow := range left.Rows {
		k := encodeKey(lrow, lk, &b)
		if ambiguous[k] {
			continue
		}
		rrow, ok := rightByKey[k]
		if !ok {
			continue // key absent from right: inner-join drop
		}

		row := make([]table.Value, 0, len(outCols))
		for _, idx := range lk {
			row = append(row, lrow[idx])
		}
		for _, idx := range leftOut {
			row = append(row, lrow[idx])
		}
		for _, idx := range rightOut {
			row = append(row, rrow[idx])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, warnings, nil
}

// MergeAll left-folds MergeOneToOne across the tables in registration order;
// the first table is the initial accumulator.
//
// Edge cases:
//   - Zero tables: an empty wide table holding only the key columns.
//   - One table: that table unchanged.
//
// Warnings from every fold step are concatenated in step order.
func MergeAll(tables []*table.Table, keys []string) (*table.Table, []Warning, error) {
	switch len(tables) {
	case 0:
		return table.New(MergedName, keys), nil, nil
	case 1:
		return tables[0], nil, nil
	}

	acc := tables[0]
	var warnings []Warning
	for _, t := range tables[1:] {
		merged, w, err := MergeOneToOne(acc, t, keys)
		if err != nil {
			return nil, warnings, err
		}
		warnings = append(warnings, w...)
		acc = merged
	}
	acc.Name = MergedName
	return acc, warnings, nil
}

func keyPositionSet(keyIdx []int) map[int]bool {
	out := make(map[int]bool, len(keyIdx))
	for _, idx := range keyIdx {
		out[idx] = true
	}
	return out
}

// qualifyColumn prefixes a colliding column with its provenance label, the
// same convention the departmental exports use for their own columns. A
// numeric suffix is appended only if the qualified name is itself taken.
func qualifyColumn(label, col string, taken map[string]bool) string {
	name := label + "_" + col
	if !taken[name] {
		return name
	}
	for i := 2; ; i++ {
		alt := name + "_" + strconv.Itoa(i)
		if !taken[alt] {
			return alt
		}
	}
}
