package merge

import (
	"errors"
	"testing"

	"gramodaya/internal/table"
)

func TestIsLong(t *testing.T) {
	keys := []string{"ben_id"}

	long := tbl("visits", []string{"ben_id", "date"},
		[]table.Value{num(1), txt("2024-01-01")},
		[]table.Value{num(1), txt("2024-02-01")},
		[]table.Value{num(2), txt("2024-01-15")},
	)
	got, err := IsLong(long, keys)
	if err != nil {
		t.Fatalf("IsLong: %v", err)
	}
	if !got {
		t.Fatalf("table with repeated key classified wide")
	}

	wide := tbl("households", []string{"ben_id", "size"},
		[]table.Value{num(1), num(4)},
		[]table.Value{num(2), num(6)},
	)
	got, err = IsLong(wide, keys)
	if err != nil {
		t.Fatalf("IsLong: %v", err)
	}
	if got {
		t.Fatalf("table with unique keys classified long")
	}
}

func TestIsLongEmptyTableIsWide(t *testing.T) {
	got, err := IsLong(tbl("empty", []string{"ben_id", "x"}), []string{"ben_id"})
	if err != nil {
		t.Fatalf("IsLong: %v", err)
	}
	if got {
		t.Fatalf("empty table classified long")
	}
}

func TestIsLongMixedKindKeysStayDistinct(t *testing.T) {
	// Text "1" and number 1 are different key tuples; classifying them as the
	// same key would falsely mark the table long.
	mixed := tbl("mixed", []string{"ben_id", "x"},
		[]table.Value{txt("1"), txt("a")},
		[]table.Value{num(1), txt("b")},
	)
	got, err := IsLong(mixed, []string{"ben_id"})
	if err != nil {
		t.Fatalf("IsLong: %v", err)
	}
	if got {
		t.Fatalf("distinct-kind keys classified as duplicates")
	}
}

func TestIsLongMissingKeyColumn(t *testing.T) {
	_, err := IsLong(tbl("a", []string{"x"}), []string{"ben_id"})
	var missing *MissingKeyColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingKeyColumnError", err)
	}
}
