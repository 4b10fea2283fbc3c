package storage

import (
	"context"
	"reflect"
	"testing"

	"gramodaya/internal/table"
)

type fakeExporter struct {
	ensured    string
	columns    []ColumnSpec
	insertCols []string
	rows       [][]any
}

func (e *fakeExporter) Close() {}

func (e *fakeExporter) EnsureTable(ctx context.Context, name string, columns []ColumnSpec) error {
	e.ensured = name
	e.columns = columns
	return nil
}

func (e *fakeExporter) InsertRows(ctx context.Context, name string, columns []string, rows [][]any) (int64, error) {
	e.insertCols = columns
	e.rows = rows
	return int64(len(rows)), nil
}

func TestColumnsTypeInference(t *testing.T) {
	tb := table.New("merged", []string{"ben_id", "crop", "score", "blank"})
	tb.Rows = [][]table.Value{
		{table.NumberValue(1), table.TextValue("rice"), table.NumberValue(0.5), table.MissingValue()},
		{table.NumberValue(2), table.TextValue("wheat"), table.MissingValue(), table.MissingValue()},
	}

	got := Columns(tb)
	want := []ColumnSpec{
		{Name: "ben_id", Type: "number"},
		{Name: "crop", Type: "text"},
		{Name: "score", Type: "number"}, // missing cells don't disqualify
		{Name: "blank", Type: "text"},   // all-missing defaults to text
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Columns = %v, want %v", got, want)
	}
}

func TestBindRows(t *testing.T) {
	tb := table.New("merged", []string{"a", "b", "c"})
	tb.Rows = [][]table.Value{
		{table.NumberValue(3), table.TextValue("x"), table.MissingValue()},
	}

	got := BindRows(tb)
	want := [][]any{{int64(3), "x", nil}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("BindRows = %v, want %v", got, want)
	}
}

func TestExport(t *testing.T) {
	tb := table.New("merged", []string{"ben_id", "crop"})
	tb.Rows = [][]table.Value{
		{table.NumberValue(1), table.TextValue("rice")},
		{table.NumberValue(2), table.TextValue("wheat")},
	}

	e := &fakeExporter{}
	n, err := Export(context.Background(), e, "clean_data", tb)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows written = %d, want 2", n)
	}
	if e.ensured != "clean_data" {
		t.Fatalf("ensured table = %q", e.ensured)
	}
	if !reflect.DeepEqual(e.insertCols, []string{"ben_id", "crop"}) {
		t.Fatalf("insert columns = %v", e.insertCols)
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New(context.Background(), Config{Kind: "oracle"}); err == nil {
		t.Fatalf("unknown kind accepted")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("empty kind accepted")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("duplicate Register did not panic")
		}
	}()
	f := func(ctx context.Context, cfg Config) (Exporter, error) { return nil, nil }
	Register("dup_test", f)
	Register("dup_test", f)
}
