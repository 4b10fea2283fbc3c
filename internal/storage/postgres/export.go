// Package postgres implements storage.Exporter on top of pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gramodaya/internal/storage"
)

type Exporter struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Exporter, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Exporter{pool: pool}, nil
}

func (e *Exporter) Close() { e.pool.Close() }

// EnsureTable drops and recreates the destination table (snapshot semantics).
func (e *Exporter) EnsureTable(ctx context.Context, name string, columns []storage.ColumnSpec) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("postgres: empty table name")
	}

	if _, err := e.pool.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("drop table %s: %w", name, err)
	}

	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		typ := "TEXT"
		if c.Type == "number" {
			typ = "DOUBLE PRECISION"
		}
		parts = append(parts, pgx.Identifier{c.Name}.Sanitize()+" "+typ)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", pgx.Identifier{name}.Sanitize(), strings.Join(parts, ",\n  "))
	if _, err := e.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

// InsertRows bulk-loads rows with the COPY protocol.
func (e *Exporter) InsertRows(ctx context.Context, name string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := e.pool.CopyFrom(ctx, pgx.Identifier{name}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", name, err)
	}
	return n, nil
}
