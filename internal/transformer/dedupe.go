package transformer

import (
	"strings"

	"gramodaya/internal/table"
)

// DedupeRows removes exact duplicate rows, keeping the first occurrence in
// input order. The input is not mutated.
//
// The second result is a report table listing each row that occurred more
// than once, with an "occurrences" count column appended; it is nil when no
// duplicates were found.
func DedupeRows(t *table.Table) (*table.Table, *table.Table) {
	out := table.New(t.Name, t.Columns)

	counts := make(map[string]int, len(t.Rows))
	firstRow := make(map[string][]table.Value)
	order := make([]string, 0, len(t.Rows))

	var b strings.Builder
	for _, row := range t.Rows {
		k := rowKey(row, &b)
		if counts[k] == 0 {
			out.Rows = append(out.Rows, row)
			firstRow[k] = row
			order = append(order, k)
		}
		counts[k]++
	}

	var report *table.Table
	for _, k := range order {
		if counts[k] < 2 {
			continue
		}
		if report == nil {
			cols := append(append([]string(nil), t.Columns...), "occurrences")
			report = table.New(t.Name+"_duplicate_rows", cols)
		}
		row := append(append([]table.Value(nil), firstRow[k]...), table.NumberValue(float64(counts[k])))
		report.Rows = append(report.Rows, row)
	}
	return out, report
}

// KeyUniquenessReport lists the key tuples that occur more than once in a
// table, with occurrence counts. The report carries the source label as its
// first column so per-source reports can be concatenated into one audit file.
//
// Returns nil when every key tuple is unique (or the table has no rows).
func KeyUniquenessReport(t *table.Table, keys []string) (*table.Table, error) {
	colIdx := t.ColumnIndex()
	keyIdx := make([]int, len(keys))
	for i, k := range keys {
		p, ok := colIdx[k]
		if !ok {
			return nil, &missingColumnError{table: t.Name, column: k}
		}
		keyIdx[i] = p
	}

	counts := make(map[string]int, len(t.Rows))
	firstKey := make(map[string][]table.Value)
	order := make([]string, 0, len(t.Rows))

	var b strings.Builder
	for _, row := range t.Rows {
		b.Reset()
		for i, idx := range keyIdx {
			if i > 0 {
				b.WriteByte('\x1f')
			}
			row[idx].AppendCanonical(&b)
		}
		k := b.String()
		if counts[k] == 0 {
			order = append(order, k)
			kv := make([]table.Value, len(keyIdx))
			for i, idx := range keyIdx {
				kv[i] = row[idx]
			}
			firstKey[k] = kv
		}
		counts[k]++
	}

	var report *table.Table
	for _, k := range order {
		if counts[k] < 2 {
			continue
		}
		if report == nil {
			cols := make([]string, 0, len(keys)+2)
			cols = append(cols, "source")
			cols = append(cols, keys...)
			cols = append(cols, "occurrences")
			report = table.New(t.Name+"_duplicate_keys", cols)
		}
		row := make([]table.Value, 0, len(keys)+2)
		row = append(row, table.TextValue(t.Name))
		row = append(row, firstKey[k]...)
		row = append(row, table.NumberValue(float64(counts[k])))
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

type missingColumnError struct {
	table, column string
}

func (e *missingColumnError) Error() string {
	return "table " + e.table + ": missing column " + e.column
}
