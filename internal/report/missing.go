// Package report produces the data-quality outputs of a cleaning run:
// per-column missingness summaries, dropped-key audit files, and plain CSV
// exports of any table.
package report

import (
	"fmt"
	"math"
	"strings"

	"gramodaya/internal/table"
)

// Missingness summarizes per-column data completeness for a table. The
// result has one row per input column with the column name, total rows,
// missing count, and missing percentage (two decimals, 0 for an empty table).
func Missingness(t *table.Table) *table.Table {
	out := table.New(t.Name+"_missingness", []string{"column", "rows", "missing", "missing_pct"})

	total := len(t.Rows)
	for i, col := range t.Columns {
		missing := 0
		for _, row := range t.Rows {
			if row[i].IsMissing() {
				missing++
			}
		}
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(missing)/float64(total)*10000) / 100
		}
		out.Rows = append(out.Rows, []table.Value{
			table.TextValue(col),
			table.NumberValue(float64(total)),
			table.NumberValue(float64(missing)),
			table.NumberValue(pct),
		})
	}
	return out
}

// Concat appends the rows of every non-nil table into one table. Used to
// fold per-source duplicate-key reports into a single audit table. Returns
// nil when no table has rows.
//
// All contributing tables must share one column layout; a mismatch is
// rejected rather than producing rows misaligned with the header.
func Concat(name string, tables ...*table.Table) (*table.Table, error) {
	var out *table.Table
	for _, t := range tables {
		if t == nil || t.NumRows() == 0 {
			continue
		}
		if out == nil {
			out = table.New(name, t.Columns)
			out.Rows = append(out.Rows, t.Rows...)
			continue
		}
		if !sameColumns(out.Columns, t.Columns) {
			return nil, fmt.Errorf("concat %s: table %s has columns [%s], want [%s]",
				name, t.Name, strings.Join(t.Columns, " "), strings.Join(out.Columns, " "))
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
