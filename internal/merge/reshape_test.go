package merge

import (
	"errors"
	"reflect"
	"testing"

	"gramodaya/internal/table"
)

func assertRows(t *testing.T, got *table.Table, want [][]table.Value) {
	t.Helper()
	if len(got.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(got.Rows), len(want))
	}
	for i := range want {
		if len(got.Rows[i]) != len(want[i]) {
			t.Fatalf("row %d has %d cells, want %d", i, len(got.Rows[i]), len(want[i]))
		}
		for j := range want[i] {
			if !got.Rows[i][j].Equal(want[i][j]) {
				t.Fatalf("row %d cell %d = %v, want %v", i, j, got.Rows[i][j], want[i][j])
			}
		}
	}
}

func TestReshapeRepeatedGroups(t *testing.T) {
	// k=1 appears twice, k=2 once; the wide form carries two entry slots and
	// pads the short group with missing.
	a := tbl("a", []string{"k", "x"},
		[]table.Value{num(1), txt("a")},
		[]table.Value{num(1), txt("b")},
		[]table.Value{num(2), txt("c")},
	)

	long, err := IsLong(a, []string{"k"})
	if err != nil || !long {
		t.Fatalf("IsLong = %v, %v; want true, nil", long, err)
	}

	wide, err := Reshape(a, []string{"k"})
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}

	wantCols := []string{"k", "x_1", "x_2"}
	if !reflect.DeepEqual(wide.Columns, wantCols) {
		t.Fatalf("columns = %v, want %v", wide.Columns, wantCols)
	}
	assertRows(t, wide, [][]table.Value{
		{num(1), txt("a"), txt("b")},
		{num(2), txt("c"), miss()},
	})
}

func TestReshapeAlreadyWideRenamesOnly(t *testing.T) {
	in := tbl("hh", []string{"ben_id", "size", "district"},
		[]table.Value{num(1), num(4), txt("east")},
		[]table.Value{num(2), num(6), txt("west")},
	)

	wide, err := Reshape(in, []string{"ben_id"})
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}

	wantCols := []string{"ben_id", "size_1", "district_1"}
	if !reflect.DeepEqual(wide.Columns, wantCols) {
		t.Fatalf("columns = %v, want %v", wide.Columns, wantCols)
	}
	// Cell contents are untouched; only column names change.
	assertRows(t, wide, in.Rows)
}

func TestReshapeOneRowPerKeyTuple(t *testing.T) {
	in := tbl("visits", []string{"ben_id", "clinic"},
		[]table.Value{num(10), txt("a")},
		[]table.Value{num(20), txt("b")},
		[]table.Value{num(10), txt("c")},
		[]table.Value{num(30), txt("d")},
		[]table.Value{num(10), txt("e")},
	)

	wide, err := Reshape(in, []string{"ben_id"})
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}
	if wide.NumRows() != 3 {
		t.Fatalf("rows = %d, want one per distinct key tuple (3)", wide.NumRows())
	}
	// Largest group has three rows, so three entry columns and no more.
	wantCols := []string{"ben_id", "clinic_1", "clinic_2", "clinic_3"}
	if !reflect.DeepEqual(wide.Columns, wantCols) {
		t.Fatalf("columns = %v, want %v", wide.Columns, wantCols)
	}
	// Key tuples come out in first-appearance order.
	assertRows(t, wide, [][]table.Value{
		{num(10), txt("a"), txt("c"), txt("e")},
		{num(20), txt("b"), miss(), miss()},
		{num(30), txt("d"), miss(), miss()},
	})
}

func TestReshapeEmptyTable(t *testing.T) {
	wide, err := Reshape(tbl("empty", []string{"k", "x"}), []string{"k"})
	if err != nil {
		t.Fatalf("Reshape: %v", err)
	}
	if wide.NumRows() != 0 {
		t.Fatalf("rows = %d, want 0", wide.NumRows())
	}
	wantCols := []string{"k", "x_1"}
	if !reflect.DeepEqual(wide.Columns, wantCols) {
		t.Fatalf("columns = %v, want %v", wide.Columns, wantCols)
	}
}

func TestReshapeEmptyKeySet(t *testing.T) {
	_, err := Reshape(tbl("a", []string{"x"}), nil)
	var invalid *InvalidKeySetError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want *InvalidKeySetError", err)
	}
}

func TestReshapeMissingKeyColumn(t *testing.T) {
	_, err := Reshape(tbl("a", []string{"x"}), []string{"k"})
	var missing *MissingKeyColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingKeyColumnError", err)
	}
}
