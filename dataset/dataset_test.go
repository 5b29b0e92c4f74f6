package dataset

import (
	"testing"

	"github.com/razeghi71/wrangle/table"
)

func TestMurdersShape(t *testing.T) {
	m := Murders()
	if m.NumRows() != 51 {
		t.Errorf("expected 51 rows, got %d", m.NumRows())
	}
	want := []string{"state", "abb", "region", "population", "total"}
	cols := m.Columns()
	if len(cols) != len(want) {
		t.Fatalf("expected columns %v, got %v", want, cols)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("column %d: expected %s, got %s", i, want[i], cols[i])
		}
	}
}

func TestMurdersTypes(t *testing.T) {
	m := Murders()
	first := m.Row(0)
	if first.Get("state").Str != "Alabama" || first.Get("abb").Str != "AL" {
		t.Errorf("unexpected first row: %v", first.Values())
	}
	if v := first.Get("population"); v.Type != table.TypeInt || v.Int != 4779736 {
		t.Errorf("expected int population 4779736, got %s %v", v.Type, v.AsString())
	}
	if v := first.Get("total"); v.Type != table.TypeInt || v.Int != 135 {
		t.Errorf("expected int total 135, got %s %v", v.Type, v.AsString())
	}
	if v := m.Get(13, "region"); v.Str != "North Central" {
		t.Errorf("expected Illinois in North Central, got %q", v.Str)
	}
}

func TestMurdersIsShared(t *testing.T) {
	if Murders() != Murders() {
		t.Error("expected the same table on every call")
	}
}

func TestLookup(t *testing.T) {
	if _, ok, err := Lookup("murders"); !ok || err != nil {
		t.Errorf("expected murders to be bundled, got ok=%v err=%v", ok, err)
	}
	if tbl, ok, err := Lookup("gapminder"); ok || tbl != nil || err != nil {
		t.Errorf("expected no gapminder, got ok=%v err=%v", ok, err)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 1 || names[0] != "murders" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestParseRejectsBadInteger(t *testing.T) {
	_, err := parse([]byte("a,n\nx,seven\n"), []kind{text, integer})
	if err == nil {
		t.Fatal("expected error for non-integer cell")
	}
}
