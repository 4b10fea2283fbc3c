// Package mssql implements storage.Exporter for SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"gramodaya/internal/storage"
)

// maxParams stays under the driver's 2100 bind parameter ceiling.
const maxParams = 2000

type Exporter struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Exporter, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
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
		return fmt.Errorf("mssql: empty table name")
	}

	drop := fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;",
		strings.ReplaceAll(name, "'", "''"), sqlIdent(name))
	if _, err := e.db.ExecContext(ctx, drop); err != nil {
		return fmt.Errorf("drop table %s: %w", name, err)
	}

	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		typ := "NVARCHAR(MAX)"
		if c.Type == "number" {
			typ = "FLOAT"
		}
		parts = append(parts, sqlIdent(c.Name)+" "+typ)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", sqlIdent(name), strings.Join(parts, ",\n  "))
	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

// InsertRows loads rows in batches of multi-VALUES inserts sized so each
// statement stays under the parameter ceiling.
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
		p := 1
		for i, row := range batch {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('(')
			for j := range columns {
				if j > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "@p%d", p)
				p++
			}
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
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
