package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"gramodaya/internal/merge"
	"gramodaya/internal/table"
)

// WriteCSV writes a table to path, creating parent directories as needed.
// Missing cells render as empty fields, matching how they were read.
func WriteCSV(t *table.Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	rec := make([]string, len(t.Columns))
	for n, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("write %s: row %d has %d cells, want %d", path, n, len(row), len(t.Columns))
		}
		for i := range rec {
			rec[i] = row[i].String()
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// DroppedKeys converts the merge engine's ambiguous-key warnings into one
// audit table: which key tuples were excluded, and from which merge step.
// Returns nil when no keys were dropped.
func DroppedKeys(warnings []merge.Warning) *table.Table {
	var out *table.Table
	for _, w := range warnings {
		ak, ok := w.(*merge.AmbiguousKeyWarning)
		if !ok {
			continue
		}
		if out == nil {
			cols := make([]string, 0, len(ak.KeyColumns)+2)
			cols = append(cols, "left", "right")
			cols = append(cols, ak.KeyColumns...)
			out = table.New("dropped_keys", cols)
		}
		for _, key := range ak.Keys {
			row := make([]table.Value, 0, len(out.Columns))
			row = append(row, table.TextValue(ak.Left), table.TextValue(ak.Right))
			row = append(row, key...)
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
