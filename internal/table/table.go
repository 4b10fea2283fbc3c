package table

import "fmt"

// Table is an ordered set of columns plus positional rows aligned to those
// columns. Name is the provenance label (e.g. the department export the rows
// came from) and travels with the table through every transform.
//
// Rows are positional ([]Value indexed like Columns) rather than maps; the
// merge engine converts column names to integer indices once per transform
// and avoids per-row map allocations.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]Value
}

// New returns an empty table with the given provenance label and column order.
func New(name string, columns []string) *Table {
	return &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
	}
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// ColumnIndex builds a name->position map for the current column order.
func (t *Table) ColumnIndex() map[string]int {
	m := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		m[c] = i
	}
	return m
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AppendRow adds a row. The row length must match the column count; rows are
// owned by the table after the call.
func (t *Table) AppendRow(row []Value) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("table %s: row has %d cells, want %d", t.Name, len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Clone returns a deep copy. Transforms that must not mutate their input
// operate on clones; Value cells are plain structs, so copying rows suffices.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]Value, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]Value(nil), r...)
	}
	return out
}
