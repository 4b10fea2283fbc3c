// Package storage exports the merged table to a relational sink so the
// reporting side can query the cleaned census data directly.
//
// Backends register themselves by kind (postgres, sqlite, mssql) and are
// selected by config; the pipeline depends only on the Exporter interface.
package storage

import (
	"context"
	"fmt"
	"sync"

	"gramodaya/internal/table"
)

// Config selects and parameterizes an export backend.
type Config struct {
	// Kind must match a registered backend kind.
	Kind string
	// DSN is passed through to the backend factory; validation is
	// backend-specific.
	DSN string
}

// ColumnSpec describes one destination column in backend-neutral terms.
// Each backend maps Type to its own SQL type.
type ColumnSpec struct {
	Name string
	Type string // "text" | "number"
}

// Exporter writes a full snapshot of a table into a backend.
//
// Snapshot semantics: each run replaces the destination table. EnsureTable
// drops and recreates it, so a partially written destination from a crashed
// run never mixes with fresh rows.
type Exporter interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// EnsureTable (re)creates the destination table with the given columns.
	EnsureTable(ctx context.Context, name string, columns []ColumnSpec) error

	// InsertRows bulk-loads rows into the destination table and returns the
	// number of rows written.
	InsertRows(ctx context.Context, name string, columns []string, rows [][]any) (int64, error)
}

type factory func(ctx context.Context, cfg Config) (Exporter, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers an export backend under a kind. Called from backend
// init() functions.
//
// Panics:
//   - If kind is empty or f is nil.
//   - If kind is already registered (fail fast; ambiguous backend selection
//     is a build error, not a runtime choice).
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs an Exporter for the configured backend kind.
func New(ctx context.Context, cfg Config) (Exporter, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Columns derives the destination schema from a table: a column whose
// non-missing cells are all numeric maps to "number", everything else to
// "text".
func Columns(t *table.Table) []ColumnSpec {
	out := make([]ColumnSpec, len(t.Columns))
	for i, name := range t.Columns {
		typ := "number"
		empty := true
		for _, row := range t.Rows {
			switch row[i].Kind {
			case table.Missing:
			case table.Number:
				empty = false
			default:
				empty = false
				typ = "text"
			}
			if typ == "text" {
				break
			}
		}
		if empty {
			typ = "text" // all-missing columns default to text
		}
		out[i] = ColumnSpec{Name: name, Type: typ}
	}
	return out
}

// BindRows converts table rows into bind values for InsertRows: missing
// becomes nil, integral numbers become int64, everything else string/float64.
func BindRows(t *table.Table) [][]any {
	out := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v.Bind()
		}
		out[i] = vals
	}
	return out
}

// Export snapshots a table into the destination with the given name.
func Export(ctx context.Context, e Exporter, name string, t *table.Table) (int64, error) {
	if err := e.EnsureTable(ctx, name, Columns(t)); err != nil {
		return 0, err
	}
	return e.InsertRows(ctx, name, t.Columns, BindRows(t))
}
