package transformer

import (
	"gramodaya/internal/table"
)

// SplitByColumn partitions a combined export into one table per distinct
// value of the split column, in first-appearance order. Each output table is
// named by the department value and keeps every column except the split
// column itself.
//
// Rows whose split cell is missing or empty cannot be assigned to a
// department; they are collected into a report table keeping the source's
// full layout, named "<source>_missing_department", returned alongside the
// parts. The report is nil when every row carries a department.
//
// Errors:
//   - *missingColumnError when the table lacks the split column.
func SplitByColumn(t *table.Table, column string) ([]*table.Table, *table.Table, error) {
	colIdx := t.ColumnIndex()
	split, ok := colIdx[column]
	if !ok {
		return nil, nil, &missingColumnError{table: t.Name, column: column}
	}

	partCols := make([]string, 0, len(t.Columns)-1)
	for i, c := range t.Columns {
		if i != split {
			partCols = append(partCols, c)
		}
	}

	parts := make(map[string]*table.Table)
	order := make([]string, 0, 8)
	var missing *table.Table

	for _, row := range t.Rows {
		dept := row[split]
		// The loader maps empty cells to missing, but a constructed table can
		// still carry empty text; an empty label is equally unusable.
		if dept.IsMissing() || dept.String() == "" {
			if missing == nil {
				missing = table.New(t.Name+"_missing_department", t.Columns)
			}
			missing.Rows = append(missing.Rows, row)
			continue
		}

		label := dept.String()
		part, ok := parts[label]
		if !ok {
			part = table.New(label, partCols)
			parts[label] = part
			order = append(order, label)
		}

		cells := make([]table.Value, 0, len(partCols))
		for i, v := range row {
			if i != split {
				cells = append(cells, v)
			}
		}
		part.Rows = append(part.Rows, cells)
	}

	out := make([]*table.Table, 0, len(order))
	for _, label := range order {
		out = append(out, parts[label])
	}
	return out, missing, nil
}
