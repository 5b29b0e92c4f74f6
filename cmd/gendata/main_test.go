package main

import (
	"path/filepath"
	"testing"

	"github.com/razeghi71/wrangle/dataset"
	"github.com/razeghi71/wrangle/loader"
)

func TestRunRoundTripsThroughLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "murders.parquet")
	if err := run(path); err != nil {
		t.Fatal(err)
	}

	got, err := loader.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := dataset.Murders()
	if got.NumRows() != want.NumRows() {
		t.Fatalf("expected %d rows, got %d", want.NumRows(), got.NumRows())
	}
	for i := range want.NumRows() {
		for _, c := range want.Columns() {
			if g, w := got.Get(i, c).AsString(), want.Get(i, c).AsString(); g != w {
				t.Errorf("row %d %s: expected %s, got %s", i, c, w, g)
			}
		}
	}
}

func TestRunReportsCreateError(t *testing.T) {
	if err := run(filepath.Join(t.TempDir(), "missing", "out.parquet")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
