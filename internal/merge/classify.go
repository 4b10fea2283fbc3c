package merge

import (
	"strings"

	"gramodaya/internal/table"
)

// IsLong reports whether the table is in repeated-group (long) form with
// respect to the KeySet: true iff at least one key tuple appears on more than
// one row. An empty table is wide (vacuously unique). The input is not
// mutated.
func IsLong(t *table.Table, keys []string) (bool, error) {
	keyIdx, err := keyIndices(t, keys)
	if err != nil {
		return false, err
	}

	seen := make(map[string]struct{}, len(t.Rows))
	var b strings.Builder
	for _, row := range t.Rows {
		k := encodeKey(row, keyIdx, &b)
		if _, dup := seen[k]; dup {
			return true, nil
		}
		seen[k] = struct{}{}
	}
	return false, nil
}
