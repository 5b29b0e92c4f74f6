// Package ast defines the parsed form of wrangle queries: a source, a list
// of stages, and the row expressions inside them.
package ast

import (
	"strconv"
	"strings"

	"github.com/razeghi71/wrangle/table"
)

// Operator is a unary or binary expression operator.
type Operator uint8

const (
	Add Operator = iota + 1
	Sub
	Mul
	Div
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	And
	Or
	Not
	Neg
)

var operatorText = [...]string{
	Add: "+", Sub: "-", Mul: "*", Div: "/",
	Eq: "==", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">=",
	And: "and", Or: "or", Not: "not", Neg: "-",
}

func (op Operator) String() string {
	if int(op) < len(operatorText) && operatorText[op] != "" {
		return operatorText[op]
	}
	return "Operator(" + strconv.Itoa(int(op)) + ")"
}

// Arithmetic reports whether op is one of + - * /.
func (op Operator) Arithmetic() bool { return op >= Add && op <= Div }

// Comparison reports whether op is one of == != < <= > >=.
func (op Operator) Comparison() bool { return op >= Eq && op <= Ge }

// Expr is a row expression. String renders it fully parenthesized.
type Expr interface {
	Pos() int
	String() string
}

// Literal is a constant: an integer, float, string, boolean or null.
type Literal struct {
	At    int
	Value table.Value
}

// Ref reads a column of the current row.
type Ref struct {
	At   int
	Name string
}

// Unary is "not x" or "-x".
type Unary struct {
	At int
	Op Operator
	X  Expr
}

// Binary is "x op y".
type Binary struct {
	At int
	Op Operator
	X  Expr
	Y  Expr
}

// Call is a function call. Func is lower case.
type Call struct {
	At   int
	Func string
	Args []Expr
}

// Membership is "x in (a, b)" or "x not in (a, b)".
type Membership struct {
	At      int
	X       Expr
	Set     []Expr
	Negated bool
}

// NullTest is "x is null" or "x is not null".
type NullTest struct {
	At      int
	X       Expr
	Negated bool
}

func (e *Literal) Pos() int    { return e.At }
func (e *Ref) Pos() int        { return e.At }
func (e *Unary) Pos() int      { return e.At }
func (e *Binary) Pos() int     { return e.At }
func (e *Call) Pos() int       { return e.At }
func (e *Membership) Pos() int { return e.At }
func (e *NullTest) Pos() int   { return e.At }

func (e *Literal) String() string {
	if e.Value.Type == table.TypeString {
		return strconv.Quote(e.Value.Str)
	}
	return e.Value.AsString()
}

func (e *Ref) String() string {
	if isPlainName(e.Name) {
		return e.Name
	}
	return "`" + e.Name + "`"
}

func (e *Unary) String() string {
	if e.Op == Not {
		return "(not " + e.X.String() + ")"
	}
	return "(-" + e.X.String() + ")"
}

func (e *Binary) String() string {
	return "(" + e.X.String() + " " + e.Op.String() + " " + e.Y.String() + ")"
}

func (e *Call) String() string {
	return e.Func + "(" + join(e.Args) + ")"
}

func (e *Membership) String() string {
	op := " in ("
	if e.Negated {
		op = " not in ("
	}
	return "(" + e.X.String() + op + join(e.Set) + "))"
}

func (e *NullTest) String() string {
	if e.Negated {
		return "(" + e.X.String() + " is not null)"
	}
	return "(" + e.X.String() + " is null)"
}

func join(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func isPlainName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && (i == 0 || !('0' <= r && r <= '9')) {
			return false
		}
	}
	return true
}

// Verb identifies what a stage does.
type Verb uint8

const (
	Derive Verb = iota + 1
	Filter
	Project
	Head
	Tail
	SortAsc
	SortDesc
	Group
	Reduce
	Count
	Distinct
	Rename
	Remove
)

var verbNames = [...]string{
	Derive: "derive", Filter: "filter", Project: "project",
	Head: "head", Tail: "tail", SortAsc: "sorta", SortDesc: "sortd",
	Group: "group", Reduce: "reduce", Count: "count", Distinct: "distinct",
	Rename: "rename", Remove: "remove",
}

// verbWords maps every accepted stage keyword, aliases included.
var verbWords = map[string]Verb{
	"mutate": Derive, "transform": Derive, "select": Project,
}

func init() {
	for v, name := range verbNames {
		if name != "" {
			verbWords[name] = Verb(v)
		}
	}
}

func (v Verb) String() string {
	if int(v) < len(verbNames) && verbNames[v] != "" {
		return verbNames[v]
	}
	return "Verb(" + strconv.Itoa(int(v)) + ")"
}

// LookupVerb returns the verb a stage keyword names.
func LookupVerb(word string) (Verb, bool) {
	v, ok := verbWords[word]
	return v, ok
}

// DefaultNested is the nested column name group and reduce use when none
// is given.
const DefaultNested = "grouped"

// Assignment is "column = expr" in derive and reduce.
type Assignment struct {
	Column string
	Expr   Expr
}

// RenamePair maps an old column name to a new one.
type RenamePair struct {
	Old string
	New string
}

// Stage is one parsed pipeline stage. Which fields are set depends on Verb:
//
//	Derive, Reduce          Assignments (Reduce also Nested)
//	Filter                  Predicate
//	Project, SortAsc,
//	SortDesc, Distinct,
//	Remove                  Columns
//	Group                   Columns, Nested
//	Head, Tail              N
//	Rename                  Renames
type Stage struct {
	Verb    Verb
	Keyword string
	Pos     int

	Columns     []string
	N           int
	Nested      string
	Assignments []Assignment
	Predicate   Expr
	Renames     []RenamePair
}

// Query is a source followed by stages. Source is a file path or the name
// of a bundled dataset.
type Query struct {
	Source string
	Stages []*Stage
}
