package merge

import (
	"fmt"
	"strings"
)

// NoCommonKeyError is fatal: two or more tables share no column, so no join
// strategy is meaningful and the run must halt before any partial merge.
type NoCommonKeyError struct {
	Labels []string
}

func (e *NoCommonKeyError) Error() string {
	return fmt.Sprintf("no common key columns across tables [%s]", strings.Join(e.Labels, ", "))
}

// InvalidKeySetError is fatal: a reshape was attempted with an empty KeySet.
type InvalidKeySetError struct {
	Table string
}

func (e *InvalidKeySetError) Error() string {
	return fmt.Sprintf("reshape %s: empty key set", e.Table)
}

// MissingKeyColumnError is fatal: a table in the merge batch lacks one of the
// KeySet columns. Key discovery guarantees this cannot happen for discovered
// keys; it guards callers that pass an explicit KeySet.
type MissingKeyColumnError struct {
	Table  string
	Column string
}

func (e *MissingKeyColumnError) Error() string {
	return fmt.Sprintf("table %s: missing key column %q", e.Table, e.Column)
}
