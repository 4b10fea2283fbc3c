// Package sqlite implements storage.Exporter for SQLite.
//
// SQLite is the default sink for local runs: the cleaned table lands in a
// single file next to the CSV reports, queryable without a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"gramodaya/internal/storage"
)

// maxParams stays under SQLite's 32766 bind parameter ceiling. Merged census
// tables can be very wide (every reshaped column times every department), so
// the batch size is derived from the column count rather than fixed.
const maxParams = 32000

type Exporter struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Exporter, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Exporter{db: db}, nil
}

func (e *Exporter) Close() { _ = e.db.Close() }

// EnsureTable drops and recreates the destination table (snapshot semantics).
func (e *Exporter) EnsureTable(ctx context.Context, name string, columns []storage.ColumnSpec) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("sqlite: empty table name")
	}

	if _, err := e.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(name)); err != nil {
		return fmt.Errorf("drop table %s: %w", name, err)
	}

	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		typ := "TEXT"
		if c.Type == "number" {
			typ = "REAL"
		}
		parts = append(parts, sqlIdent(c.Name)+" "+typ)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", sqlIdent(name), strings.Join(parts, ",\n  "))
	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

// InsertRows bulk-loads rows using multi-VALUES inserts inside one
// transaction, so a failed export leaves the destination empty rather than
// half-filled.
func (e *Exporter) InsertRows(ctx context.Context, name string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	perBatch := maxParams / len(columns)
	if perBatch < 1 {
		perBatch = 1
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	colList := make([]string, len(columns))
	for i, c := range columns {
		colList[i] = sqlIdent(c)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", sqlIdent(name), strings.Join(colList, ", "))

	var total int64
	for start := 0; start < len(rows); start += perBatch {
		end := start + perBatch
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		var b strings.Builder
		b.WriteString(prefix)
		args := make([]any, 0, len(batch)*len(columns))
		for i, row := range batch {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('(')
			b.WriteString(strings.TrimRight(strings.Repeat("?,", len(columns)), ","))
			b.WriteByte(')')
			args = append(args, row...)
		}

		res, err := tx.ExecContext(ctx, b.String(), args...)
		if err != nil {
			return total, fmt.Errorf("insert %s: %w", name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}

	if err := tx.Commit(); err != nil {
		return total, err
	}
	return total, nil
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
