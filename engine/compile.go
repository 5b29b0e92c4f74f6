package engine

import (
	"fmt"
	"strconv"

	"github.com/razeghi71/wrangle/ast"
	"github.com/razeghi71/wrangle/parser"
	"github.com/razeghi71/wrangle/table"
)

// Expr computes a value from one row's name -> value binding. An Expr must
// not depend on anything but the row and constants it captured when built.
type Expr func(row table.Row) (table.Value, error)

// Aggregate computes a value from the nested table of one group.
type Aggregate func(nested *table.Table) (table.Value, error)

// CompileExpr turns a parsed row expression into an Expr. Operators,
// functions and literals are resolved here; subexpressions made only of
// constants are evaluated once.
func CompileExpr(e ast.Expr) (Expr, error) {
	var c compiler
	t, err := c.compile(e)
	if err != nil {
		return nil, err
	}
	return t.eval, nil
}

// CompileAggregate turns a reduce expression into an Aggregate. Columns may
// only appear as the argument of an aggregate function; everything around
// the aggregates is an ordinary expression over their results:
//
//	round(sum(total) / count(), 1)
func CompileAggregate(e ast.Expr) (Aggregate, error) {
	c := compiler{reduce: true}
	t, err := c.compile(e)
	if err != nil {
		return nil, err
	}
	if t.isConst {
		v := t.value
		return func(*table.Table) (table.Value, error) { return v, nil }, nil
	}

	slots := c.slots
	names := make([]string, len(slots))
	for i := range slots {
		names[i] = slotName(i)
	}
	return func(nested *table.Table) (table.Value, error) {
		vals := make([]table.Value, len(slots))
		for i, s := range slots {
			v, err := s.apply(nested)
			if err != nil {
				return table.Null(), err
			}
			vals[i] = v
		}
		results, err := table.New(names, [][]table.Value{vals})
		if err != nil {
			return table.Null(), err
		}
		return t.eval(results.Row(0))
	}, nil
}

// ParseExpr parses and compiles an expression such as
// "total / population * 100000".
func ParseExpr(text string) (Expr, error) {
	e, err := parser.ParseExpr(text)
	if err != nil {
		return nil, err
	}
	return CompileExpr(e)
}

// MustExpr is like ParseExpr but panics on error. It is meant for
// expressions written as Go literals.
func MustExpr(text string) Expr {
	e, err := ParseExpr(text)
	if err != nil {
		panic(fmt.Sprintf("engine: bad expression %q: %v", text, err))
	}
	return e
}

// Col returns an Expr that reads a column of the row.
func Col(name string) Expr {
	return func(row table.Row) (table.Value, error) {
		return row.Lookup(name)
	}
}

// Lit returns an Expr that always yields v.
func Lit(v table.Value) Expr {
	return func(table.Row) (table.Value, error) {
		return v, nil
	}
}

// term is a compiled subexpression. Constant terms keep their value so the
// enclosing node can fold.
type term struct {
	eval    Expr
	value   table.Value
	isConst bool
}

func constant(v table.Value) term {
	return term{eval: Lit(v), value: v, isConst: true}
}

// fold evaluates fn once if every operand is constant. An error is left to
// surface at evaluation time, so a bad constant only fails on a real row.
func fold(fn Expr, operands ...term) term {
	for _, o := range operands {
		if !o.isConst {
			return term{eval: fn}
		}
	}
	v, err := fn(table.Row{})
	if err != nil {
		return term{eval: fn}
	}
	return constant(v)
}

type compiler struct {
	// reduce is set while compiling an aggregate expression; each aggregate
	// call then becomes a slot read from the per-group results row.
	reduce bool
	slots  []aggregateCall
}

func slotName(i int) string { return "#" + strconv.Itoa(i) }

func (c *compiler) compile(e ast.Expr) (term, error) {
	switch e := e.(type) {
	case *ast.Literal:
		return constant(e.Value), nil
	case *ast.Ref:
		if c.reduce {
			return term{}, fmt.Errorf("column %s must be inside an aggregate such as first(%s)", e, e)
		}
		return term{eval: Col(e.Name)}, nil
	case *ast.Unary:
		return c.unary(e)
	case *ast.Binary:
		return c.binary(e)
	case *ast.Call:
		return c.call(e)
	case *ast.Membership:
		return c.membership(e)
	case *ast.NullTest:
		return c.nullTest(e)
	}
	return term{}, fmt.Errorf("unsupported expression %T", e)
}

func (c *compiler) unary(e *ast.Unary) (term, error) {
	x, err := c.compile(e.X)
	if err != nil {
		return term{}, err
	}
	apply := negate
	if e.Op == ast.Not {
		apply = not
	}
	fn := func(row table.Row) (table.Value, error) {
		v, err := x.eval(row)
		if err != nil {
			return table.Null(), err
		}
		return apply(v)
	}
	return fold(fn, x), nil
}

func (c *compiler) binary(e *ast.Binary) (term, error) {
	x, err := c.compile(e.X)
	if err != nil {
		return term{}, err
	}
	y, err := c.compile(e.Y)
	if err != nil {
		return term{}, err
	}

	if e.Op == ast.And || e.Op == ast.Or {
		return fold(logical(e.Op, x.eval, y.eval), x, y), nil
	}
	apply, ok := binaryOps[e.Op]
	if !ok {
		return term{}, fmt.Errorf("unknown operator %s", e.Op)
	}
	fn := func(row table.Row) (table.Value, error) {
		a, err := x.eval(row)
		if err != nil {
			return table.Null(), err
		}
		b, err := y.eval(row)
		if err != nil {
			return table.Null(), err
		}
		return apply(a, b)
	}
	return fold(fn, x, y), nil
}

func (c *compiler) all(exprs []ast.Expr) ([]term, []Expr, error) {
	terms := make([]term, len(exprs))
	evals := make([]Expr, len(exprs))
	for i, e := range exprs {
		t, err := c.compile(e)
		if err != nil {
			return nil, nil, err
		}
		terms[i], evals[i] = t, t.eval
	}
	return terms, evals, nil
}

func (c *compiler) call(e *ast.Call) (term, error) {
	if agg, ok := aggregates[e.Func]; ok {
		if !c.reduce {
			return term{}, fmt.Errorf("aggregate function %s() can only be used inside reduce", e.Func)
		}
		return c.aggregate(e, agg)
	}
	fn, err := lookupFunction(e.Func, len(e.Args))
	if err != nil {
		return term{}, err
	}
	args, evals, err := c.all(e.Args)
	if err != nil {
		return term{}, err
	}
	if fn.lazy != nil {
		return fold(fn.lazy(evals), args...), nil
	}
	return fold(strict(e.Func, fn.strict, evals), args...), nil
}

// strict evaluates every argument and yields null when any of them is null.
func strict(name string, call func([]table.Value) (table.Value, error), args []Expr) Expr {
	return func(row table.Row) (table.Value, error) {
		vals := make([]table.Value, len(args))
		for i, a := range args {
			v, err := a(row)
			if err != nil {
				return table.Null(), err
			}
			if v.IsNull() {
				return table.Null(), nil
			}
			vals[i] = v
		}
		v, err := call(vals)
		if err != nil {
			return table.Null(), fmt.Errorf("%s(): %w", name, err)
		}
		return v, nil
	}
}

func (c *compiler) aggregate(e *ast.Call, agg aggregateFunc) (term, error) {
	if len(e.Args) < agg.minArgs || len(e.Args) > 1 {
		return term{}, fmt.Errorf("%s() takes %s, got %d arguments", e.Func, agg.arity(), len(e.Args))
	}
	call := aggregateCall{name: e.Func, fn: agg}
	if len(e.Args) == 1 {
		ref, ok := e.Args[0].(*ast.Ref)
		if !ok {
			return term{}, fmt.Errorf("%s() argument must be a column, got %s", e.Func, e.Args[0])
		}
		call.column = ref.Name
	}
	c.slots = append(c.slots, call)
	return term{eval: Col(slotName(len(c.slots) - 1))}, nil
}

func (c *compiler) membership(e *ast.Membership) (term, error) {
	x, err := c.compile(e.X)
	if err != nil {
		return term{}, err
	}
	set, evals, err := c.all(e.Set)
	if err != nil {
		return term{}, err
	}

	var fn Expr
	if members, ok := constants(set); ok {
		fn = func(row table.Row) (table.Value, error) {
			v, err := x.eval(row)
			if err != nil {
				return table.Null(), err
			}
			return table.BoolVal(contains(members, v) != e.Negated), nil
		}
	} else {
		fn = func(row table.Row) (table.Value, error) {
			v, err := x.eval(row)
			if err != nil {
				return table.Null(), err
			}
			members := make([]table.Value, len(evals))
			for i, m := range evals {
				if members[i], err = m(row); err != nil {
					return table.Null(), err
				}
			}
			return table.BoolVal(contains(members, v) != e.Negated), nil
		}
	}
	return fold(fn, append(set, x)...), nil
}

func constants(terms []term) ([]table.Value, bool) {
	vals := make([]table.Value, len(terms))
	for i, t := range terms {
		if !t.isConst {
			return nil, false
		}
		vals[i] = t.value
	}
	return vals, true
}

func (c *compiler) nullTest(e *ast.NullTest) (term, error) {
	x, err := c.compile(e.X)
	if err != nil {
		return term{}, err
	}
	fn := func(row table.Row) (table.Value, error) {
		v, err := x.eval(row)
		if err != nil {
			return table.Null(), err
		}
		return table.BoolVal(v.IsNull() != e.Negated), nil
	}
	return fold(fn, x), nil
}
