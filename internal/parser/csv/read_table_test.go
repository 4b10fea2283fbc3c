package csv

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"gramodaya/internal/table"
)

func read(t *testing.T, src string, opt Options) *table.Table {
	t.Helper()
	tb, err := ReadTable(context.Background(), strings.NewReader(src), "test", opt)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	return tb
}

func TestReadTableBasic(t *testing.T) {
	tb := read(t, "ben_id,crop\n1,rice\n2,wheat\n", DefaultOptions())

	if !reflect.DeepEqual(tb.Columns, []string{"ben_id", "crop"}) {
		t.Fatalf("columns = %v", tb.Columns)
	}
	if tb.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", tb.NumRows())
	}
	if !tb.Rows[0][0].Equal(table.NumberValue(1)) {
		t.Fatalf("cell (0,0) = %v, want number 1", tb.Rows[0][0])
	}
	if !tb.Rows[0][1].Equal(table.TextValue("rice")) {
		t.Fatalf("cell (0,1) = %v, want text rice", tb.Rows[0][1])
	}
}

func TestReadTableBOMStripped(t *testing.T) {
	tb := read(t, "\ufeffben_id,x\n1,a\n", DefaultOptions())
	if tb.Columns[0] != "ben_id" {
		t.Fatalf("first column = %q, BOM not stripped", tb.Columns[0])
	}
}

func TestReadTableNullSentinels(t *testing.T) {
	tb := read(t, "a,b,c\n\\N,,x\n", DefaultOptions())
	if !tb.Rows[0][0].IsMissing() {
		t.Fatalf(`\N not decoded as missing`)
	}
	if !tb.Rows[0][1].IsMissing() {
		t.Fatalf("empty field not decoded as missing")
	}
	if tb.Rows[0][2].IsMissing() {
		t.Fatalf("plain value decoded as missing")
	}
}

func TestReadTableZeroPaddedStaysText(t *testing.T) {
	tb := read(t, "code,n,neg,frac,phone\n007,42,-3,1.50,98-765\n", DefaultOptions())
	row := tb.Rows[0]

	if !row[0].Equal(table.TextValue("007")) {
		t.Fatalf("zero-padded code = %v, want text 007", row[0])
	}
	if !row[1].Equal(table.NumberValue(42)) {
		t.Fatalf("plain integer = %v, want number 42", row[1])
	}
	if !row[2].Equal(table.NumberValue(-3)) {
		t.Fatalf("negative = %v, want number -3", row[2])
	}
	// "1.50" does not round-trip to the same string, but its numeric form is
	// faithful decimal; it parses as a number.
	if row[3].Kind != table.Number || row[3].Num != 1.5 {
		t.Fatalf("decimal = %v, want number 1.5", row[3])
	}
	if !row[4].Equal(table.TextValue("98-765")) {
		t.Fatalf("separator value = %v, want text", row[4])
	}
}

func TestNormalizeHeader(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Ben ID ", "ben_id"},
		{"Crop\tName", "crop_name"},
		{"Número", "numero"},
		{"VILLAGE", "village"},
		{"already_ok", "already_ok"},
	}
	for _, c := range cases {
		if got := NormalizeHeader(c.in); got != c.want {
			t.Fatalf("NormalizeHeader(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReadTableHeaderMap(t *testing.T) {
	opt := DefaultOptions()
	opt.HeaderMap = map[string]string{"beneficiary_id": "ben_id"}

	tb := read(t, "Beneficiary ID,crop\n1,rice\n", opt)
	if tb.Columns[0] != "ben_id" {
		t.Fatalf("mapped column = %q, want ben_id", tb.Columns[0])
	}
}

func TestReadTableRaggedRecords(t *testing.T) {
	tb := read(t, "a,b,c\n1,x\n2,y,z,extra\n", DefaultOptions())

	if tb.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", tb.NumRows())
	}
	if !tb.Rows[0][2].IsMissing() {
		t.Fatalf("short record did not pad with missing")
	}
	if len(tb.Rows[1]) != 3 {
		t.Fatalf("long record kept %d cells, want 3", len(tb.Rows[1]))
	}
}

func TestReadTableHeaderless(t *testing.T) {
	opt := DefaultOptions()
	opt.HasHeader = false

	tb := read(t, "1,a\n2,b\n", opt)
	if !reflect.DeepEqual(tb.Columns, []string{"col_1", "col_2"}) {
		t.Fatalf("columns = %v, want synthetic names", tb.Columns)
	}
	if tb.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", tb.NumRows())
	}
}

func TestReadTableTrimsFields(t *testing.T) {
	tb := read(t, "a,b\n  rice , 7 \n", DefaultOptions())
	if !tb.Rows[0][0].Equal(table.TextValue("rice")) {
		t.Fatalf("cell = %v, want trimmed text rice", tb.Rows[0][0])
	}
	if !tb.Rows[0][1].Equal(table.NumberValue(7)) {
		t.Fatalf("cell = %v, want trimmed number 7", tb.Rows[0][1])
	}
}

func TestReadTableSemicolonDelimiter(t *testing.T) {
	opt := DefaultOptions()
	opt.Comma = ';'
	tb := read(t, "a;b\n1;2\n", opt)
	if len(tb.Columns) != 2 || tb.NumRows() != 1 {
		t.Fatalf("columns=%v rows=%d", tb.Columns, tb.NumRows())
	}
}

func TestReadTableContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadTable(ctx, strings.NewReader("a\n1\n"), "x", DefaultOptions())
	if err == nil {
		t.Fatalf("cancelled context accepted")
	}
}
