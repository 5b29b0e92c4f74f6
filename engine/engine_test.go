package engine

import (
	"errors"
	"testing"

	"github.com/razeghi71/wrangle/ast"
	"github.com/razeghi71/wrangle/parser"
	"github.com/razeghi71/wrangle/table"
)

func mustTable(t *testing.T, columns []string, rows ...[]table.Value) *table.Table {
	t.Helper()
	tbl, err := table.New(columns, rows)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return tbl
}

func usersTable(t *testing.T) *table.Table {
	return mustTable(t, []string{"name", "age", "city"},
		[]table.Value{table.StrVal("Alice"), table.IntVal(30), table.StrVal("NY")},
		[]table.Value{table.StrVal("Bob"), table.IntVal(25), table.StrVal("LA")},
		[]table.Value{table.StrVal("Charlie"), table.IntVal(35), table.StrVal("NY")},
		[]table.Value{table.StrVal("Diana"), table.IntVal(28), table.StrVal("SF")},
		[]table.Value{table.StrVal("Eve"), table.IntVal(22), table.StrVal("LA")},
		[]table.Value{table.StrVal("Frank"), table.IntVal(40), table.StrVal("NY")},
	)
}

func runQuery(t *testing.T, input *table.Table, query string) *table.Table {
	t.Helper()
	q, err := parser.Parse("test.csv | " + query)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	result, err := Execute(q, input)
	if err != nil {
		t.Fatalf("exec error: %v", err)
	}
	return result
}

func runQueryExpectErr(t *testing.T, input *table.Table, query string) error {
	t.Helper()
	q, err := parser.Parse("test.csv | " + query)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	_, err = Execute(q, input)
	return err
}

func TestHead(t *testing.T) {
	result := runQuery(t, usersTable(t), "head 3")
	if result.NumRows() != 3 {
		t.Errorf("expected 3 rows, got %d", result.NumRows())
	}
	if result.Get(0, "name").Str != "Alice" {
		t.Errorf("expected first row to be Alice")
	}
}

func TestHeadBeyondLength(t *testing.T) {
	result := runQuery(t, usersTable(t), "head 100")
	if result.NumRows() != 6 {
		t.Errorf("expected 6 rows, got %d", result.NumRows())
	}
}

func TestTail(t *testing.T) {
	result := runQuery(t, usersTable(t), "tail 2")
	if result.NumRows() != 2 {
		t.Errorf("expected 2 rows, got %d", result.NumRows())
	}
	if result.Get(0, "name").Str != "Eve" {
		t.Errorf("expected first row to be Eve, got %s", result.Get(0, "name").Str)
	}
}

func TestSortAsc(t *testing.T) {
	result := runQuery(t, usersTable(t), "sorta age")
	if result.Get(0, "age").Int != 22 {
		t.Errorf("expected first age to be 22, got %d", result.Get(0, "age").Int)
	}
	if result.Get(5, "age").Int != 40 {
		t.Errorf("expected last age to be 40, got %d", result.Get(5, "age").Int)
	}
}

func TestSortDesc(t *testing.T) {
	result := runQuery(t, usersTable(t), "sortd age")
	if result.Get(0, "age").Int != 40 {
		t.Errorf("expected first age to be 40, got %d", result.Get(0, "age").Int)
	}
}

func TestSortStableAndNullsLast(t *testing.T) {
	tbl := mustTable(t, []string{"k", "v"},
		[]table.Value{table.StrVal("a"), table.Null()},
		[]table.Value{table.StrVal("b"), table.IntVal(1)},
		[]table.Value{table.StrVal("c"), table.IntVal(1)},
		[]table.Value{table.StrVal("d"), table.IntVal(0)},
	)
	for _, q := range []string{"sorta v", "sortd v"} {
		result := runQuery(t, tbl, q)
		if !result.Get(3, "v").IsNull() {
			t.Errorf("%s: expected null last, got %v", q, result.Get(3, "v").AsString())
		}
	}
	asc := runQuery(t, tbl, "sorta v")
	if asc.Get(1, "k").Str != "b" || asc.Get(2, "k").Str != "c" {
		t.Errorf("expected stable order b, c for ties, got %s, %s", asc.Get(1, "k").Str, asc.Get(2, "k").Str)
	}
}

func TestSelect(t *testing.T) {
	result := runQuery(t, usersTable(t), "select name city")
	cols := result.Columns()
	if len(cols) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(cols))
	}
	if cols[0] != "name" || cols[1] != "city" {
		t.Errorf("unexpected columns: %v", cols)
	}
}

func TestFilter(t *testing.T) {
	result := runQuery(t, usersTable(t), `filter { age > 30 }`)
	if result.NumRows() != 2 {
		t.Errorf("expected 2 rows (Charlie, Frank), got %d", result.NumRows())
	}
}

func TestFilterAnd(t *testing.T) {
	result := runQuery(t, usersTable(t), `filter { age > 25 and city == "NY" }`)
	if result.NumRows() != 3 {
		t.Errorf("expected 3 rows, got %d", result.NumRows())
	}
}

func TestFilterOr(t *testing.T) {
	result := runQuery(t, usersTable(t), `filter { age < 23 or city == "SF" }`)
	if result.NumRows() != 2 {
		t.Fatalf("expected 2 rows (Diana, Eve), got %d", result.NumRows())
	}
	if result.Get(0, "name").Str != "Diana" || result.Get(1, "name").Str != "Eve" {
		t.Errorf("unexpected rows: %v", result)
	}
}

func TestFilterIn(t *testing.T) {
	result := runQuery(t, usersTable(t), `filter { city in ("LA", "SF") }`)
	if result.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", result.NumRows())
	}
	names := []string{"Bob", "Diana", "Eve"}
	for i, n := range names {
		if result.Get(i, "name").Str != n {
			t.Errorf("row %d: expected %s, got %s", i, n, result.Get(i, "name").Str)
		}
	}

	rest := runQuery(t, usersTable(t), `filter { city not in ("LA", "SF") }`)
	if rest.NumRows() != 3 {
		t.Errorf("expected 3 rows for not in, got %d", rest.NumRows())
	}
}

func TestFilterInNumericFolding(t *testing.T) {
	result := runQuery(t, usersTable(t), `filter { age in (30.0, 40) }`)
	if result.NumRows() != 2 {
		t.Errorf("expected 2 rows, got %d", result.NumRows())
	}
}

func TestFilterPredicateTypeError(t *testing.T) {
	err := runQueryExpectErr(t, usersTable(t), `filter { age + 1 }`)
	var pe *PredicateTypeError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PredicateTypeError, got %v", err)
	}
	if pe.Row != 0 || pe.Got.Type != table.TypeInt {
		t.Errorf("unexpected error detail: row %d, got %s", pe.Row, pe.Got.Type)
	}
}

func TestFilterNullPredicate(t *testing.T) {
	tbl := mustTable(t, []string{"a"},
		[]table.Value{table.Null()},
		[]table.Value{table.IntVal(5)},
	)
	err := runQueryExpectErr(t, tbl, "filter { a > 1 }")
	var pe *PredicateTypeError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PredicateTypeError for a null predicate, got %v", err)
	}
	if pe.Row != 0 || !pe.Got.IsNull() {
		t.Errorf("expected null at row 0, got %v at row %d", pe.Got.AsString(), pe.Row)
	}

	result := runQuery(t, tbl, "filter { a is not null and a > 1 }")
	if result.NumRows() != 1 || result.Get(0, "a").Int != 5 {
		t.Errorf("expected the guarded filter to keep row 5, got %v", result)
	}
}

func TestCount(t *testing.T) {
	result := runQuery(t, usersTable(t), "count")
	if result.NumRows() != 1 || result.NumColumns() != 1 {
		t.Fatal("count should return 1x1 table")
	}
	if result.Get(0, "count").Int != 6 {
		t.Errorf("expected 6, got %d", result.Get(0, "count").Int)
	}
}

func TestDistinct(t *testing.T) {
	result := runQuery(t, usersTable(t), "distinct city")
	if result.NumRows() != 3 {
		t.Errorf("expected 3 distinct cities, got %d", result.NumRows())
	}
}

func TestDistinctUnknownColumn(t *testing.T) {
	err := runQueryExpectErr(t, usersTable(t), "distinct country")
	var ue *table.UnknownColumnError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnknownColumnError, got %v", err)
	}
}

func TestDerive(t *testing.T) {
	result := runQuery(t, usersTable(t), "derive doubled = age * 2")
	cols := result.Columns()
	if len(cols) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(cols))
	}
	if cols[3] != "doubled" {
		t.Errorf("expected column 'doubled', got %q", cols[3])
	}
	// Alice: age=30, doubled=60
	if result.Get(0, "doubled").Int != 60 {
		t.Errorf("expected 60, got %d", result.Get(0, "doubled").Int)
	}
}

func TestDeriveOverwriteKeepsPosition(t *testing.T) {
	result := runQuery(t, usersTable(t), "mutate age = age + 1")
	cols := result.Columns()
	if len(cols) != 3 || cols[1] != "age" {
		t.Fatalf("expected age to stay in position 1, got %v", cols)
	}
	if result.Get(0, "age").Int != 31 {
		t.Errorf("expected 31, got %d", result.Get(0, "age").Int)
	}
}

func TestDeriveSiblingsSeeOriginalRow(t *testing.T) {
	// b reads the incoming a (1), not the a derived alongside it (100)
	tbl := mustTable(t, []string{"a"}, []table.Value{table.IntVal(1)})
	result := runQuery(t, tbl, "derive a = 100, b = a + 1")
	if result.Get(0, "a").Int != 100 {
		t.Errorf("expected a=100, got %d", result.Get(0, "a").Int)
	}
	if result.Get(0, "b").Int != 2 {
		t.Errorf("expected b=2, got %d", result.Get(0, "b").Int)
	}
}

func TestDeriveUnboundName(t *testing.T) {
	err := runQueryExpectErr(t, usersTable(t), "derive x = salary * 2")
	var ue *table.UnboundNameError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnboundNameError, got %v", err)
	}
	if ue.Name != "salary" {
		t.Errorf("expected name salary, got %q", ue.Name)
	}
}

func TestGroupReduce(t *testing.T) {
	result := runQuery(t, usersTable(t), "group city | reduce total = sum(age), n = count() | remove grouped")
	if result.NumColumns() != 3 {
		t.Fatalf("expected 3 columns (city, total, n), got %d: %v", result.NumColumns(), result.Columns())
	}
	// NY: 30+35+40=105, count=3
	nyIdx := -1
	for i, r := range result.Rows() {
		if r.Get("city").Str == "NY" {
			nyIdx = i
		}
	}
	if nyIdx < 0 {
		t.Fatal("NY group not found")
	}
	if result.Get(nyIdx, "total").Int != 105 {
		t.Errorf("expected NY total=105, got %d", result.Get(nyIdx, "total").Int)
	}
	if result.Get(nyIdx, "n").Int != 3 {
		t.Errorf("expected NY count=3, got %d", result.Get(nyIdx, "n").Int)
	}
}

func TestGroupPreservesFirstSeenOrder(t *testing.T) {
	result := runQuery(t, usersTable(t), "group city")
	want := []string{"NY", "LA", "SF"}
	for i, w := range want {
		if result.Get(i, "city").Str != w {
			t.Errorf("group %d: expected %s, got %s", i, w, result.Get(i, "city").Str)
		}
	}
}

func TestReduceWithoutGroup(t *testing.T) {
	err := runQueryExpectErr(t, usersTable(t), "reduce n = count()")
	if err == nil {
		t.Fatal("expected error for reduce without group")
	}
}

func TestRename(t *testing.T) {
	result := runQuery(t, usersTable(t), "rename name first_name")
	if result.Columns()[0] != "first_name" {
		t.Errorf("expected 'first_name', got %q", result.Columns()[0])
	}
}

func TestRenameCollision(t *testing.T) {
	err := runQueryExpectErr(t, usersTable(t), "rename name city")
	var se *table.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	result := runQuery(t, usersTable(t), "remove city")
	if result.NumColumns() != 2 {
		t.Fatalf("expected 2 columns, got %d", result.NumColumns())
	}
	if result.HasColumn("city") {
		t.Error("city should have been removed")
	}
}

func TestNullArithmetic(t *testing.T) {
	tbl := mustTable(t, []string{"a", "b"}, []table.Value{table.IntVal(10), table.Null()})

	result := runQuery(t, tbl, "derive c = a * b")
	if !result.Get(0, "c").IsNull() {
		t.Errorf("expected null from 10 * null, got %v", result.Get(0, "c").AsString())
	}
}

func TestCoalesce(t *testing.T) {
	tbl := mustTable(t, []string{"a", "b"}, []table.Value{table.Null(), table.IntVal(42)})

	result := runQuery(t, tbl, "derive c = coalesce(a, b)")
	if result.Get(0, "c").Int != 42 {
		t.Errorf("expected 42, got %v", result.Get(0, "c").AsString())
	}
}

func TestCompileExpr(t *testing.T) {
	tbl := mustTable(t, []string{"x"}, []table.Value{table.IntVal(5)})

	// x + 3 * 2 should be 5 + 6 = 11 (not 16)
	expr := &ast.Binary{
		Op: ast.Add,
		X:  &ast.Ref{Name: "x"},
		Y: &ast.Binary{
			Op: ast.Mul,
			X:  &ast.Literal{Value: table.IntVal(3)},
			Y:  &ast.Literal{Value: table.IntVal(2)},
		},
	}
	fn, err := CompileExpr(expr)
	if err != nil {
		t.Fatal(err)
	}
	val, err := fn(tbl.Row(0))
	if err != nil {
		t.Fatal(err)
	}
	if val.Int != 11 {
		t.Errorf("expected 11, got %d", val.Int)
	}
}

func TestIsNull(t *testing.T) {
	tbl := mustTable(t, []string{"a"},
		[]table.Value{table.Null()},
		[]table.Value{table.IntVal(1)},
	)

	result := runQuery(t, tbl, "filter { a is null }")
	if result.NumRows() != 1 {
		t.Errorf("expected 1 row, got %d", result.NumRows())
	}

	result2 := runQuery(t, tbl, "filter { a is not null }")
	if result2.NumRows() != 1 {
		t.Errorf("expected 1 row, got %d", result2.NumRows())
	}
}

func TestIfFunction(t *testing.T) {
	result := runQuery(t, usersTable(t), `derive label = if(age > 30, "old", "young") | select name label`)
	// Alice(30) -> young, Charlie(35) -> old
	if result.Get(0, "label").Str != "young" {
		t.Errorf("expected 'young' for Alice, got %q", result.Get(0, "label").Str)
	}
	if result.Get(2, "label").Str != "old" {
		t.Errorf("expected 'old' for Charlie, got %q", result.Get(2, "label").Str)
	}
}

func TestUpperLower(t *testing.T) {
	result := runQuery(t, usersTable(t), `derive up = upper(city), lo = lower(name) | select up lo | head 1`)
	if result.Get(0, "up").Str != "NY" {
		t.Errorf("expected 'NY', got %q", result.Get(0, "up").Str)
	}
	if result.Get(0, "lo").Str != "alice" {
		t.Errorf("expected 'alice', got %q", result.Get(0, "lo").Str)
	}
}

func TestRoundAbs(t *testing.T) {
	tbl := mustTable(t, []string{"x"}, []table.Value{table.FloatVal(-2.8245)})
	result := runQuery(t, tbl, "derive r = round(x, 2), a = abs(x), i = round(x)")
	if got := result.Get(0, "r").Float; got != -2.82 {
		t.Errorf("expected -2.82, got %v", got)
	}
	if got := result.Get(0, "a").Float; got != 2.8245 {
		t.Errorf("expected 2.8245, got %v", got)
	}
	if got := result.Get(0, "i").Float; got != -3 {
		t.Errorf("expected -3, got %v", got)
	}
}

func salesTable(t *testing.T) *table.Table {
	return mustTable(t, []string{"date", "quantity"},
		[]table.Value{table.StrVal("2024-01-15"), table.IntVal(10)},
		[]table.Value{table.StrVal("2024-02-20"), table.IntVal(5)},
	)
}

func TestDatePartValidDate(t *testing.T) {
	result := runQuery(t, salesTable(t), "derive y = year(date), m = month(date), d = day(date) | head 1")
	if result.Get(0, "y").Int != 2024 {
		t.Errorf("expected year 2024, got %d", result.Get(0, "y").Int)
	}
	if result.Get(0, "m").Int != 1 {
		t.Errorf("expected month 1, got %d", result.Get(0, "m").Int)
	}
	if result.Get(0, "d").Int != 15 {
		t.Errorf("expected day 15, got %d", result.Get(0, "d").Int)
	}
}

func TestDatePartNullPropagation(t *testing.T) {
	tbl := mustTable(t, []string{"d"}, []table.Value{table.Null()})

	result := runQuery(t, tbl, "derive y = year(d)")
	if !result.Get(0, "y").IsNull() {
		t.Errorf("expected null for year(null), got %v", result.Get(0, "y").AsString())
	}
}

func TestDatePartErrorOnInt(t *testing.T) {
	err := runQueryExpectErr(t, salesTable(t), "derive y = year(quantity)")
	if err == nil {
		t.Fatal("expected error for year(quantity) on int column")
	}
}

func TestDatePartErrorOnString(t *testing.T) {
	tbl := mustTable(t, []string{"x"}, []table.Value{table.StrVal("notadate")})

	err := runQueryExpectErr(t, tbl, "derive y = year(x)")
	if err == nil {
		t.Fatal("expected error for year() on unparseable string")
	}
}

func TestStringFuncsCoerceInt(t *testing.T) {
	result := runQuery(t, usersTable(t), "derive x = upper(age) | head 1")
	if result.Get(0, "x").Str != "30" {
		t.Errorf("expected '30', got %q", result.Get(0, "x").Str)
	}
}

func TestArithmeticErrorOnStringTimesInt(t *testing.T) {
	err := runQueryExpectErr(t, usersTable(t), "derive x = name * 2")
	if err == nil {
		t.Fatal("expected error for string * int")
	}
}

func TestArithmeticErrorOnIntPlusString(t *testing.T) {
	err := runQueryExpectErr(t, usersTable(t), "derive x = age + name")
	if err == nil {
		t.Fatal("expected error for int + string")
	}
}

func TestLogicalErrorOnNonBool(t *testing.T) {
	err := runQueryExpectErr(t, usersTable(t), "filter { age and city }")
	if err == nil {
		t.Fatal("expected error for 'and' on non-bool operands")
	}
}

func TestComparisonErrorOnTypeMismatch(t *testing.T) {
	err := runQueryExpectErr(t, usersTable(t), "filter { age > name }")
	if err == nil {
		t.Fatal("expected error for comparing int with string")
	}
}

func TestGroupWithCustomName(t *testing.T) {
	result := runQuery(t, usersTable(t), "group city as entries | reduce entries total = sum(age) | remove entries | select city total")
	if result.NumRows() != 3 {
		t.Errorf("expected 3 rows, got %d", result.NumRows())
	}
}

func TestExecuteDoesNotModifyInput(t *testing.T) {
	input := usersTable(t)
	before := usersTable(t)
	runQuery(t, input, `mutate age = age * 10, extra = 1 | filter { age > 300 } | sortd age | rename name who`)
	if !input.Equal(before) {
		t.Errorf("input table changed:\n%v\n%v", input, before)
	}
}
