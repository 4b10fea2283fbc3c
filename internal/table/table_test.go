package table

import "testing"

func TestAppendRowLengthCheck(t *testing.T) {
	tb := New("agri", []string{"ben_id", "crop"})
	if err := tb.AppendRow([]Value{NumberValue(1), TextValue("rice")}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if err := tb.AppendRow([]Value{NumberValue(2)}); err == nil {
		t.Fatalf("short row accepted")
	}
	if tb.NumRows() != 1 {
		t.Fatalf("NumRows = %d, want 1", tb.NumRows())
	}
}

func TestCloneIsDeep(t *testing.T) {
	tb := New("agri", []string{"ben_id"})
	tb.Rows = append(tb.Rows, []Value{TextValue("a")})

	cp := tb.Clone()
	cp.Rows[0][0] = TextValue("mutated")
	cp.Columns[0] = "renamed"

	if !tb.Rows[0][0].Equal(TextValue("a")) {
		t.Fatalf("clone mutation leaked into original row")
	}
	if tb.Columns[0] != "ben_id" {
		t.Fatalf("clone mutation leaked into original columns")
	}
}

func TestRegistryOrderAndErrors(t *testing.T) {
	r := NewRegistry()
	if err := r.Add("agri", New("agri", nil)); err != nil {
		t.Fatalf("Add agri: %v", err)
	}
	if err := r.Add("health", New("health", nil)); err != nil {
		t.Fatalf("Add health: %v", err)
	}

	if err := r.Add("agri", New("agri", nil)); err == nil {
		t.Fatalf("duplicate label accepted")
	}
	if err := r.Add("", New("x", nil)); err == nil {
		t.Fatalf("empty label accepted")
	}
	if err := r.Add("nil", nil); err == nil {
		t.Fatalf("nil table accepted")
	}

	labels := r.Labels()
	if len(labels) != 2 || labels[0] != "agri" || labels[1] != "health" {
		t.Fatalf("Labels = %v, want [agri health] in registration order", labels)
	}
}

func TestRegistryReplace(t *testing.T) {
	r := NewRegistry()
	if err := r.Add("agri", New("agri", []string{"a"})); err != nil {
		t.Fatalf("Add: %v", err)
	}

	wide := New("agri", []string{"a_1"})
	if err := r.Replace("agri", wide); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, ok := r.Get("agri")
	if !ok || got != wide {
		t.Fatalf("Get after Replace returned wrong table")
	}

	if err := r.Replace("unknown", wide); err == nil {
		t.Fatalf("Replace of unknown label accepted")
	}
}
