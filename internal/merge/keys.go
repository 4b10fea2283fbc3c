// Package merge implements the wide/long reconciliation engine: key
// discovery, long-form classification, long-to-wide reshaping, and strict
// one-to-one merging of many source tables into a single unified table.
package merge

import (
	"strings"

	"gramodaya/internal/table"
)

// keySep separates encoded cells inside a key tuple. Same unit separator the
// row hasher uses, so a tuple can never be confused with a single cell.
const keySep = '\x1f'

// DiscoverKeys computes the KeySet: the intersection of column names across
// all tables, preserving the column order of the first table.
//
// Edge cases:
//   - Zero or one table: the KeySet is empty and no error is returned; a
//     single table needs no join and callers bypass the merge.
//   - Two or more tables with an empty intersection: *NoCommonKeyError.
func DiscoverKeys(tables []*table.Table) ([]string, error) {
	if len(tables) < 2 {
		return nil, nil
	}

	common := make(map[string]int, len(tables[0].Columns))
	for _, c := range tables[0].Columns {
		common[c] = 1
	}
	for _, t := range tables[1:] {
		for _, c := range t.Columns {
			if n, ok := common[c]; ok && n == 1 {
				common[c] = 2
			}
		}
		for c, n := range common {
			if n == 1 {
				delete(common, c)
			} else {
				common[c] = 1
			}
		}
	}

	keys := make([]string, 0, len(common))
	for _, c := range tables[0].Columns {
		if _, ok := common[c]; ok {
			keys = append(keys, c)
		}
	}

	if len(keys) == 0 {
		labels := make([]string, 0, len(tables))
		for _, t := range tables {
			labels = append(labels, t.Name)
		}
		return nil, &NoCommonKeyError{Labels: labels}
	}
	return keys, nil
}

// keyIndices resolves KeySet column positions in a table, failing on any
// missing key column.
func keyIndices(t *table.Table, keys []string) ([]int, error) {
	colIdx := t.ColumnIndex()
	out := make([]int, len(keys))
	for i, k := range keys {
		p, ok := colIdx[k]
		if !ok {
			return nil, &MissingKeyColumnError{Table: t.Name, Column: k}
		}
		out[i] = p
	}
	return out, nil
}

// encodeKey builds the canonical string form of one row's key tuple.
// The encoding is collision-safe across cell kinds (see Value.AppendCanonical)
// and is used only in-memory, as a map key.
func encodeKey(row []table.Value, keyIdx []int, b *strings.Builder) string {
	b.Reset()
	for i, idx := range keyIdx {
		if i > 0 {
			b.WriteByte(keySep)
		}
		row[idx].AppendCanonical(b)
	}
	return b.String()
}

// keyValues extracts the key tuple cells of a row in KeySet order.
func keyValues(row []table.Value, keyIdx []int) []table.Value {
	out := make([]table.Value, len(keyIdx))
	for i, idx := range keyIdx {
		out[i] = row[idx]
	}
	return out
}
