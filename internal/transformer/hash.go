// Package transformer contains the cleaning transforms applied to source
// tables before merging: PII hashing, whole-row deduplication, and key
// uniqueness reporting.
package transformer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"gramodaya/internal/table"
)

// HasEdgeSpace reports whether s starts or ends with ASCII space/tab.
// Cheap pre-check so the hot paths only call TrimSpace when needed.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == ' ' || s[len(s)-1] == ' ' || s[0] == '\t' || s[len(s)-1] == '\t'
}

// PIIHash replaces the values of selected columns with their SHA-256 hex
// digest so personally identifiable fields (names, phone numbers, ID card
// numbers) never leave the pipeline in the clear.
//
// Behavior:
//   - Missing cells and empty text stay exactly as they are, so missingness
//     statistics downstream are unaffected by hashing.
//   - Numeric cells are hashed over their canonical string form and become
//     text (a hashed Aadhaar number is no longer a number).
//   - Columns listed in Fields but absent from the table are skipped.
//   - Output is a lowercase hex string of length 64.
type PIIHash struct {
	Fields []string
}

// Apply hashes matching cells in place and returns the number of cells
// rewritten.
func (h PIIHash) Apply(t *table.Table) int {
	if t == nil || len(h.Fields) == 0 {
		return 0
	}

	colIdx := t.ColumnIndex()
	idx := make([]int, 0, len(h.Fields))
	for _, f := range h.Fields {
		if i, ok := colIdx[f]; ok {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return 0
	}

	hashed := 0
	var b strings.Builder
	for _, row := range t.Rows {
		for _, i := range idx {
			v := row[i]
			if v.IsMissing() {
				continue
			}
			if v.Kind == table.Text && v.Text == "" {
				continue
			}
			b.Reset()
			v.AppendCanonical(&b)
			sum := sha256.Sum256([]byte(b.String()))
			row[i] = table.TextValue(hex.EncodeToString(sum[:]))
			hashed++
		}
	}
	return hashed
}

// rowKey builds the canonical encoding of a whole row, used for exact-
// duplicate detection. Same cell encoding and unit separator as the merge
// engine's key tuples.
func rowKey(row []table.Value, b *strings.Builder) string {
	b.Reset()
	for i, v := range row {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		v.AppendCanonical(b)
	}
	return b.String()
}
