package parser

import (
	"errors"
	"testing"

	"github.com/razeghi71/wrangle/ast"
	"github.com/razeghi71/wrangle/table"
)

func mustParse(t *testing.T, text string) *ast.Query {
	t.Helper()
	q, err := Parse(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return q
}

func TestParseSimple(t *testing.T) {
	q := mustParse(t, "murders.csv | head 10")
	if q.Source != "murders.csv" {
		t.Errorf("expected 'murders.csv', got %q", q.Source)
	}
	if len(q.Stages) != 1 {
		t.Fatalf("expected 1 stage, got %d", len(q.Stages))
	}
	if s := q.Stages[0]; s.Verb != ast.Head || s.N != 10 {
		t.Errorf("expected head 10, got %s %d", s.Verb, s.N)
	}
}

func TestParsePipeline(t *testing.T) {
	q := mustParse(t, "murders.csv | filter { total > 20 } |> select state total | head 5")
	want := []ast.Verb{ast.Filter, ast.Project, ast.Head}
	if len(q.Stages) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(q.Stages))
	}
	for i, v := range want {
		if q.Stages[i].Verb != v {
			t.Errorf("stage %d: expected %s, got %s", i, v, q.Stages[i].Verb)
		}
	}
	if q.Stages[1].Keyword != "select" {
		t.Errorf("expected keyword as written, got %q", q.Stages[1].Keyword)
	}
}

func TestParseSourcePaths(t *testing.T) {
	tests := map[string]string{
		"path/to/data.csv | head 5":     "path/to/data.csv",
		"~/my-data/2024 q1.csv | count": "~/my-data/2024 q1.csv",
		`"odd|name.csv" | count`:        "odd|name.csv",
		"  murders  ":                   "murders",
	}
	for text, want := range tests {
		q := mustParse(t, text)
		if q.Source != want {
			t.Errorf("%q: expected source %q, got %q", text, want, q.Source)
		}
	}
}

func TestParseMissingSource(t *testing.T) {
	for _, text := range []string{"", "  | head 1"} {
		var se *SyntaxError
		if _, err := Parse(text); !errors.As(err, &se) {
			t.Errorf("%q: expected SyntaxError, got %v", text, err)
		}
	}
}

// TestExprPrecedence checks grouping through the parenthesized rendering.
func TestExprPrecedence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"total / population * 100000", "((total / population) * 100000)"},
		{"a + b * c - d", "((a + (b * c)) - d)"},
		{"a or b and c", "(a or (b and c))"},
		{"a > 1 and b <= 2 or c", "(((a > 1) and (b <= 2)) or c)"},
		{"not a in (1, 2)", "(not (a in (1, 2)))"},
		{"not a and b", "((not a) and b)"},
		{"not a == b", "(not (a == b))"},
		{"a not in (\"x\")", "(a not in (\"x\"))"},
		{"total is null or total > 100", "((total is null) or (total > 100))"},
		{"x is not null", "(x is not null)"},
		{"-x * 2", "((-x) * 2)"},
		{"a - -3", "(a - -3)"},
		{"-(a + 1)", "(-(a + 1))"},
		{"(a + b) * c", "((a + b) * c)"},
		{"round(rate, 2) + 1", "(round(rate, 2) + 1)"},
		{"COALESCE(a, 0)", "coalesce(a, 0)"},
		{"count()", "count()"},
		{"`murder rate` > 1", "(`murder rate` > 1)"},
		{"x in ()", "(x in ())"},
		{"1e5 + 2.5", "(100000 + 2.5)"},
	}
	for _, tt := range tests {
		e, err := ParseExpr(tt.in)
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if got := e.String(); got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestExprLiterals(t *testing.T) {
	tests := []struct {
		in   string
		want table.Value
	}{
		{"42", table.IntVal(42)},
		{"-9223372036854775808", table.IntVal(-9223372036854775808)},
		{"3.5", table.FloatVal(3.5)},
		{"-0.5", table.FloatVal(-0.5)},
		{`"South"`, table.StrVal("South")},
		{"true", table.BoolVal(true)},
		{"false", table.BoolVal(false)},
		{"null", table.Null()},
	}
	for _, tt := range tests {
		e, err := ParseExpr(tt.in)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		lit, ok := e.(*ast.Literal)
		if !ok {
			t.Fatalf("%q: expected a literal, got %T", tt.in, e)
		}
		if !lit.Value.Equal(tt.want) {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.want, lit.Value)
		}
	}
}

func TestExprIntegerOutOfRange(t *testing.T) {
	var se *SyntaxError
	if _, err := ParseExpr("9223372036854775808"); !errors.As(err, &se) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
}

func TestExprNodes(t *testing.T) {
	e, err := ParseExpr(`state in ("New York", "Texas") and region == "South"`)
	if err != nil {
		t.Fatal(err)
	}
	and, ok := e.(*ast.Binary)
	if !ok || and.Op != ast.And {
		t.Fatalf("expected top-level and, got %s", e)
	}
	in, ok := and.X.(*ast.Membership)
	if !ok || in.Negated || len(in.Set) != 2 {
		t.Fatalf("expected a two-member in, got %s", and.X)
	}
	if ref, ok := in.X.(*ast.Ref); !ok || ref.Name != "state" {
		t.Errorf("expected state on the left of in, got %s", in.X)
	}
	if and.Pos() != 31 {
		t.Errorf("expected and at position 31, got %d", and.Pos())
	}
}

func TestParseDerive(t *testing.T) {
	q := mustParse(t, "murders.csv | mutate rate = total / population * 100000, state = upper(state)")
	s := q.Stages[0]
	if s.Verb != ast.Derive || len(s.Assignments) != 2 {
		t.Fatalf("expected derive with 2 assignments, got %s %d", s.Verb, len(s.Assignments))
	}
	if s.Assignments[0].Column != "rate" || s.Assignments[1].Column != "state" {
		t.Errorf("unexpected columns %q %q", s.Assignments[0].Column, s.Assignments[1].Column)
	}
	if call, ok := s.Assignments[1].Expr.(*ast.Call); !ok || call.Func != "upper" {
		t.Errorf("expected upper call, got %s", s.Assignments[1].Expr)
	}
}

func TestParseVerbAliases(t *testing.T) {
	tests := map[string]ast.Verb{
		"derive x = 1":    ast.Derive,
		"mutate x = 1":    ast.Derive,
		"transform x = 1": ast.Derive,
		"select a b":      ast.Project,
		"project a b":     ast.Project,
		"sorta a":         ast.SortAsc,
		"sortd a b":       ast.SortDesc,
		"count":           ast.Count,
		"distinct":        ast.Distinct,
		"remove a":        ast.Remove,
		"tail 2":          ast.Tail,
	}
	for text, want := range tests {
		s, err := ParseStage(text)
		if err != nil {
			t.Errorf("%q: %v", text, err)
			continue
		}
		if s.Verb != want {
			t.Errorf("%q: expected %s, got %s", text, want, s.Verb)
		}
	}
}

func TestParseFilterForms(t *testing.T) {
	for _, text := range []string{"filter { rate <= 0.71 }", "filter rate <= 0.71"} {
		s, err := ParseStage(text)
		if err != nil {
			t.Fatalf("%q: %v", text, err)
		}
		if s.Verb != ast.Filter || s.Predicate.String() != "(rate <= 0.71)" {
			t.Errorf("%q: unexpected predicate %s", text, s.Predicate)
		}
	}
}

func TestParseGroupAndReduce(t *testing.T) {
	q := mustParse(t, "murders.csv | group region abb as entries | reduce entries max_total = max(total), n = count()")
	g, r := q.Stages[0], q.Stages[1]
	if len(g.Columns) != 2 || g.Columns[0] != "region" || g.Columns[1] != "abb" {
		t.Errorf("expected [region abb], got %v", g.Columns)
	}
	if g.Nested != "entries" || r.Nested != "entries" {
		t.Errorf("expected nested name entries, got %q and %q", g.Nested, r.Nested)
	}
	if len(r.Assignments) != 2 || r.Assignments[1].Column != "n" {
		t.Errorf("unexpected assignments %+v", r.Assignments)
	}

	q = mustParse(t, "murders | group region | reduce n = count()")
	if q.Stages[0].Nested != ast.DefaultNested || q.Stages[1].Nested != ast.DefaultNested {
		t.Errorf("expected default nested names, got %q and %q", q.Stages[0].Nested, q.Stages[1].Nested)
	}
}

func TestParseRename(t *testing.T) {
	s, err := ParseStage("rename `murder total` total, `state name` as state")
	if err != nil {
		t.Fatal(err)
	}
	want := []ast.RenamePair{{Old: "murder total", New: "total"}, {Old: "state name", New: "state"}}
	if len(s.Renames) != len(want) {
		t.Fatalf("expected %d pairs, got %+v", len(want), s.Renames)
	}
	for i := range want {
		if s.Renames[i] != want[i] {
			t.Errorf("pair %d: expected %+v, got %+v", i, want[i], s.Renames[i])
		}
	}
}

func TestParseFullQuery(t *testing.T) {
	q := mustParse(t, `murders |> filter { region in ("South", "West") } | mutate rate = coalesce(total, 0) / population * 1e5 | group region | reduce murders = sum(total), states = count() | remove grouped | filter { murders > 1000 } | sortd murders | head 3 | select region murders states`)
	if len(q.Stages) != 9 {
		t.Errorf("expected 9 stages, got %d", len(q.Stages))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		text string
		pos  int
	}{
		{"murders | summarize x = 1", 10},
		{"murders | filter { rate <= }", 27},
		{"murders | head", 14},
		{"murders | head 1 tail 2", 17},
		{"murders | project", 17},
		{"murders | group a as", 20},
		{"murders | rename a", 18},
		{"murders | derive x 1", 19},
		{`murders | filter { s == "x }`, 24},
		{"murders | filter { a is 1 }", 24},
		{"murders | filter { f(a b) }", 23},
		{"murders | `derive` x = 1", 10},
	}
	for _, tt := range tests {
		_, err := Parse(tt.text)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("%q: expected SyntaxError, got %v", tt.text, err)
			continue
		}
		if se.Pos != tt.pos {
			t.Errorf("%q: expected position %d, got %d (%v)", tt.text, tt.pos, se.Pos, err)
		}
	}
}

func TestParseStageTrailingTokens(t *testing.T) {
	if _, err := ParseStage("head 3 | tail 1"); err == nil {
		t.Error("expected error for trailing tokens after a single stage")
	}
	if _, err := ParseExpr("total / population )"); err == nil {
		t.Error("expected error for unbalanced parenthesis")
	}
}
