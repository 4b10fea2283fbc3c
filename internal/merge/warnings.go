package merge

import (
	"fmt"
	"strings"

	"gramodaya/internal/table"
)

// Warning is a recoverable data-quality condition surfaced alongside the
// merged result. Warnings never stop the run; operators use them to assess
// data loss.
type Warning interface {
	Warning() string
}

// AmbiguousKeyWarning records key tuples excluded from a one-to-one merge
// because they were duplicated in at least one side. The tuples themselves
// are kept so the dropped keys can be written to an audit report.
type AmbiguousKeyWarning struct {
	Left, Right string // provenance labels of the two sides
	KeyColumns  []string
	Keys        [][]table.Value // one tuple per dropped key
	RowsDropped int             // total rows excluded across both sides
}

func (w *AmbiguousKeyWarning) Warning() string {
	return fmt.Sprintf(
		"merge %s+%s: dropped %d ambiguous key tuple(s) covering %d row(s)",
		w.Left, w.Right, len(w.Keys), w.RowsDropped,
	)
}

// ColumnCollisionWarning records a non-key column rename forced by a name
// collision between the two sides of a merge.
type ColumnCollisionWarning struct {
	Table   string // provenance label of the side whose column was renamed
	Column  string
	Renamed string
}

func (w *ColumnCollisionWarning) Warning() string {
	return fmt.Sprintf("merge: column %q from %s renamed to %q", w.Column, w.Table, w.Renamed)
}

// FormatKeyTuple renders a key tuple for logs and reports, e.g. "k=1, v=x".
func FormatKeyTuple(columns []string, key []table.Value) string {
	var b strings.Builder
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteByte('=')
		if i < len(key) {
			b.WriteString(key[i].String())
		}
	}
	return b.String()
}
