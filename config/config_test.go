package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/razeghi71/wrangle/ast"
	"github.com/razeghi71/wrangle/writer"
)

const lowRate = `name: low-rate
source: murders
stages:
  - derive rate = total / population * 100000
  - filter { rate <= 0.71 }
  - project state rate
output:
  format: csv
`

func writePipeline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	f, err := Load(writePipeline(t, lowRate))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Name != "low-rate" || f.Source != "murders" {
		t.Errorf("unexpected header fields %q %q", f.Name, f.Source)
	}
	if len(f.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(f.Stages))
	}
	if f.Format() != writer.CSV {
		t.Errorf("expected csv, got %s", f.Format())
	}
	if f.SourcePath() != "murders" {
		t.Errorf("expected bundled name to be kept, got %q", f.SourcePath())
	}
}

func TestQuery(t *testing.T) {
	f, err := Parse([]byte(lowRate))
	if err != nil {
		t.Fatal(err)
	}
	q, err := f.Query()
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if q.Source != "murders" || len(q.Stages) != 3 {
		t.Fatalf("unexpected query: %+v", q)
	}
	for i, want := range []ast.Verb{ast.Derive, ast.Filter, ast.Project} {
		if got := q.Stages[i].Verb; got != want {
			t.Errorf("stage %d: expected %s, got %s", i, want, got)
		}
	}
	if cols := q.Stages[2].Columns; len(cols) != 2 {
		t.Errorf("expected 2 projected columns, got %v", cols)
	}
}

func TestQueryBadStage(t *testing.T) {
	f, err := Parse([]byte("source: murders\nstages:\n  - filter { rate <= }\n"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.Query()
	if err == nil || !strings.Contains(err.Error(), "stages[0]") {
		t.Fatalf("expected error naming stages[0], got %v", err)
	}
}

func TestRelativeSourcePath(t *testing.T) {
	path := writePipeline(t, "source: data/murders.csv\n")
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(filepath.Dir(path), "data", "murders.csv")
	if f.SourcePath() != want {
		t.Errorf("expected %q, got %q", want, f.SourcePath())
	}
	if f.Format() != writer.Text {
		t.Errorf("expected default text format, got %s", f.Format())
	}
	if f.PipelineName() != "data/murders.csv" {
		t.Errorf("expected source as name, got %q", f.PipelineName())
	}
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse([]byte("source: murders\nstage:\n  - count\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 2 {
		t.Errorf("expected line 2, got %d (%s)", pe.Line, pe.Message)
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Load(writePipeline(t, "source: [murders\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !strings.HasSuffix(pe.Path, "pipeline.yaml") {
		t.Errorf("expected path on error, got %q", pe.Path)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, content := range []string{"", "   \n", "# only a comment\n"} {
		var pe *ParseError
		if _, err := Parse([]byte(content)); !errors.As(err, &pe) {
			t.Errorf("%q: expected ParseError, got %v", content, err)
		}
	}
}

func TestValidate(t *testing.T) {
	f := &File{Stages: []string{"count", " "}, Output: Output{Format: "xml"}}
	err := f.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	fields := map[string]bool{}
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ve *ValidationError
		if errors.As(e, &ve) {
			fields[ve.Field] = true
		}
	}
	for _, want := range []string{"source", "stages[1]", "output.format"} {
		if !fields[want] {
			t.Errorf("expected a validation error for %s, got %v", want, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
