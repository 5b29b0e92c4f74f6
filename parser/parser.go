// Package parser turns wrangle query text into an ast.Query.
//
// A query is a source followed by stages separated by "|" (or "|>"):
//
//	murders | derive rate = total / population * 100000 | filter { rate <= 0.71 }
//
// The source is everything before the first pipe that is not inside quotes,
// so paths need no quoting unless they contain a pipe.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/razeghi71/wrangle/ast"
	"github.com/razeghi71/wrangle/lexer"
	"github.com/razeghi71/wrangle/table"
)

// SyntaxError reports malformed query text. Pos is a byte offset into the
// text given to Parse, ParseStage or ParseExpr.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// Parse parses a full query.
func Parse(text string) (*ast.Query, error) {
	cut := sourceEnd(text)
	source := strings.TrimSpace(text[:cut])
	if unq, ok := unquote(source); ok {
		source = unq
	}
	if source == "" {
		return nil, &SyntaxError{Pos: 0, Msg: "expected a source before the first stage"}
	}

	p, err := newParser(text[cut:], cut)
	if err != nil {
		return nil, err
	}
	q := &ast.Query{Source: source}
	for !p.at(lexer.EOF) {
		if !p.acceptPipe() {
			return nil, p.unexpected("'|'")
		}
		s, err := p.stage()
		if err != nil {
			return nil, err
		}
		q.Stages = append(q.Stages, s)
	}
	return q, nil
}

// ParseStage parses one stage such as "filter { total > 100 }".
func ParseStage(text string) (*ast.Stage, error) {
	p, err := newParser(text, 0)
	if err != nil {
		return nil, err
	}
	s, err := p.stage()
	if err != nil {
		return nil, err
	}
	return s, p.end()
}

// ParseExpr parses a row expression such as "total / population".
func ParseExpr(text string) (ast.Expr, error) {
	p, err := newParser(text, 0)
	if err != nil {
		return nil, err
	}
	e, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return e, p.end()
}

// sourceEnd returns the offset of the first pipe outside double quotes or
// backquotes, or len(text).
func sourceEnd(text string) int {
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '`':
			quote = c
		case c == '|':
			return i
		}
	}
	return len(text)
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '`') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], true
	}
	return "", false
}

type parser struct {
	toks []lexer.Token
	i    int
}

func newParser(text string, base int) (*parser, error) {
	toks, err := lexer.LexAt(text, base)
	if err != nil {
		var lexErr *lexer.Error
		if errors.As(err, &lexErr) {
			return nil, &SyntaxError{Pos: lexErr.Pos, Msg: lexErr.Msg}
		}
		return nil, err
	}
	return &parser{toks: toks}, nil
}

func (p *parser) peek() lexer.Token { return p.peekAt(0) }

// peekAt looks n tokens ahead. Past the end it returns the EOF token.
func (p *parser) peekAt(n int) lexer.Token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() lexer.Token {
	tok := p.peek()
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return tok
}

func (p *parser) at(kind lexer.Kind) bool { return p.peek().Kind == kind }

func (p *parser) atPunct(text string) bool { return p.peek().Is(lexer.Punct, text) }

func (p *parser) atKeyword(text string) bool { return p.peek().Is(lexer.Keyword, text) }

func (p *parser) accept(kind lexer.Kind, text string) bool {
	if p.peek().Is(kind, text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) acceptPipe() bool {
	return p.accept(lexer.Punct, "|") || p.accept(lexer.Punct, "|>")
}

func (p *parser) expectPunct(text string) error {
	if !p.accept(lexer.Punct, text) {
		return p.unexpected("'" + text + "'")
	}
	return nil
}

func (p *parser) errorf(tok lexer.Token, format string, args ...any) error {
	return &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected(want string) error {
	tok := p.peek()
	return p.errorf(tok, "expected %s, got %s", want, tok)
}

func (p *parser) end() error {
	if !p.at(lexer.EOF) {
		return p.unexpected("end of input")
	}
	return nil
}

// --- Stages ---

type stageParser func(p *parser, s *ast.Stage) error

var stageParsers = map[ast.Verb]stageParser{
	ast.Derive:   (*parser).assignments,
	ast.Filter:   (*parser).predicate,
	ast.Project:  (*parser).someColumns,
	ast.Head:     (*parser).count,
	ast.Tail:     (*parser).count,
	ast.SortAsc:  (*parser).someColumns,
	ast.SortDesc: (*parser).someColumns,
	ast.Group:    (*parser).group,
	ast.Reduce:   (*parser).reduce,
	ast.Count:    func(*parser, *ast.Stage) error { return nil },
	ast.Distinct: (*parser).anyColumns,
	ast.Rename:   (*parser).renames,
	ast.Remove:   (*parser).someColumns,
}

func (p *parser) stage() (*ast.Stage, error) {
	tok := p.peek()
	if tok.Kind != lexer.Name || tok.Quoted {
		return nil, p.unexpected("a stage name")
	}
	verb, ok := ast.LookupVerb(tok.Text)
	if !ok {
		return nil, p.errorf(tok, "unknown stage %q", tok.Text)
	}
	p.next()
	s := &ast.Stage{Verb: verb, Keyword: tok.Text, Pos: tok.Pos}
	if err := stageParsers[verb](p, s); err != nil {
		return nil, fmt.Errorf("%s: %w", tok.Text, err)
	}
	return s, nil
}

func (p *parser) columns() []string {
	var cols []string
	for p.at(lexer.Name) {
		cols = append(cols, p.next().Text)
	}
	return cols
}

func (p *parser) anyColumns(s *ast.Stage) error {
	s.Columns = p.columns()
	return nil
}

func (p *parser) someColumns(s *ast.Stage) error {
	if s.Columns = p.columns(); len(s.Columns) == 0 {
		return p.unexpected("a column name")
	}
	return nil
}

func (p *parser) count(s *ast.Stage) error {
	tok := p.peek()
	if tok.Kind != lexer.Int {
		return p.unexpected("a row count")
	}
	n, err := strconv.Atoi(tok.Text)
	if err != nil {
		return p.errorf(tok, "row count %s out of range", tok.Text)
	}
	p.next()
	s.N = n
	return nil
}

// predicate accepts "{ expr }" or a bare expression.
func (p *parser) predicate(s *ast.Stage) error {
	braced := p.accept(lexer.Punct, "{")
	e, err := p.expr(0)
	if err != nil {
		return err
	}
	if braced {
		if err := p.expectPunct("}"); err != nil {
			return err
		}
	}
	s.Predicate = e
	return nil
}

func (p *parser) group(s *ast.Stage) error {
	if err := p.someColumns(s); err != nil {
		return err
	}
	s.Nested = ast.DefaultNested
	if p.accept(lexer.Keyword, "as") {
		if !p.at(lexer.Name) {
			return p.unexpected("a nested column name after 'as'")
		}
		s.Nested = p.next().Text
	}
	return nil
}

// reduce takes an optional nested column name: "reduce entries n = count()".
func (p *parser) reduce(s *ast.Stage) error {
	s.Nested = ast.DefaultNested
	if p.peekAt(0).IsName() && p.peekAt(1).IsName() && p.peekAt(2).Is(lexer.Punct, "=") {
		s.Nested = p.next().Text
	}
	return p.assignments(s)
}

func (p *parser) assignments(s *ast.Stage) error {
	for {
		if !p.at(lexer.Name) {
			return p.unexpected("a column name")
		}
		col := p.next().Text
		if err := p.expectPunct("="); err != nil {
			return err
		}
		e, err := p.expr(0)
		if err != nil {
			return fmt.Errorf("%s: %w", col, err)
		}
		s.Assignments = append(s.Assignments, ast.Assignment{Column: col, Expr: e})
		if !p.accept(lexer.Punct, ",") {
			return nil
		}
	}
}

func (p *parser) renames(s *ast.Stage) error {
	for p.at(lexer.Name) {
		old := p.next().Text
		p.accept(lexer.Keyword, "as")
		if !p.at(lexer.Name) {
			return p.unexpected(fmt.Sprintf("a new name for %q", old))
		}
		s.Renames = append(s.Renames, ast.RenamePair{Old: old, New: p.next().Text})
		p.accept(lexer.Punct, ",")
	}
	if len(s.Renames) == 0 {
		return p.unexpected("an old and a new column name")
	}
	return nil
}

// --- Expressions ---

// Binding powers, loosest first. "not" binds looser than comparisons so
// that "not a in (1, 2)" negates the membership test.
const (
	bpOr = iota + 1
	bpAnd
	bpNot
	bpCompare
	bpSum
	bpProduct
	bpPrefix
)

type infix struct {
	op ast.Operator
	bp int
}

var infixOps = map[string]infix{
	"or": {ast.Or, bpOr}, "and": {ast.And, bpAnd},
	"==": {ast.Eq, bpCompare}, "!=": {ast.Ne, bpCompare},
	"<": {ast.Lt, bpCompare}, "<=": {ast.Le, bpCompare},
	">": {ast.Gt, bpCompare}, ">=": {ast.Ge, bpCompare},
	"+": {ast.Add, bpSum}, "-": {ast.Sub, bpSum},
	"*": {ast.Mul, bpProduct}, "/": {ast.Div, bpProduct},
}

// expr parses an expression whose operators all bind tighter than minBP.
func (p *parser) expr(minBP int) (ast.Expr, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if p.atPostfix() {
			if bpCompare <= minBP {
				return left, nil
			}
			if left, err = p.postfix(left); err != nil {
				return nil, err
			}
			continue
		}
		in, ok := infixOps[tok.Text]
		if !ok || (tok.Kind != lexer.Punct && tok.Kind != lexer.Keyword) || in.bp <= minBP {
			return left, nil
		}
		p.next()
		right, err := p.expr(in.bp)
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{At: tok.Pos, Op: in.op, X: left, Y: right}
	}
}

func (p *parser) atPostfix() bool {
	return p.atKeyword("is") || p.atKeyword("in") ||
		(p.atKeyword("not") && p.peekAt(1).Is(lexer.Keyword, "in"))
}

func (p *parser) postfix(x ast.Expr) (ast.Expr, error) {
	tok := p.next()
	if tok.Text == "is" {
		negated := p.accept(lexer.Keyword, "not")
		if !p.accept(lexer.Keyword, "null") {
			return nil, p.unexpected("'null'")
		}
		return &ast.NullTest{At: tok.Pos, X: x, Negated: negated}, nil
	}

	negated := tok.Text == "not"
	if negated {
		p.next()
	}
	set, err := p.list()
	if err != nil {
		return nil, err
	}
	return &ast.Membership{At: tok.Pos, X: x, Set: set, Negated: negated}, nil
}

// list parses "(a, b, ...)", possibly empty.
func (p *parser) list() ([]ast.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var items []ast.Expr
	for !p.accept(lexer.Punct, ")") {
		if len(items) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, nil
}

func (p *parser) prefix() (ast.Expr, error) {
	tok := p.peek()
	switch {
	case tok.Is(lexer.Keyword, "not"):
		p.next()
		x, err := p.expr(bpNot)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{At: tok.Pos, Op: ast.Not, X: x}, nil

	case tok.Is(lexer.Punct, "-"):
		p.next()
		// "-9223372036854775808" only fits as a negative literal
		if num := p.peek(); num.Kind == lexer.Int || num.Kind == lexer.Float {
			p.next()
			return numberLiteral(num, "-", tok.Pos)
		}
		x, err := p.expr(bpPrefix)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{At: tok.Pos, Op: ast.Neg, X: x}, nil
	}
	return p.primary()
}

func numberLiteral(tok lexer.Token, sign string, at int) (ast.Expr, error) {
	if tok.Kind == lexer.Int {
		n, err := strconv.ParseInt(sign+tok.Text, 10, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: at, Msg: fmt.Sprintf("integer %s%s out of range", sign, tok.Text)}
		}
		return &ast.Literal{At: at, Value: table.IntVal(n)}, nil
	}
	f, err := strconv.ParseFloat(sign+tok.Text, 64)
	if err != nil {
		return nil, &SyntaxError{Pos: at, Msg: fmt.Sprintf("bad number %s%s", sign, tok.Text)}
	}
	return &ast.Literal{At: at, Value: table.FloatVal(f)}, nil
}

var keywordLiterals = map[string]table.Value{
	"true":  table.BoolVal(true),
	"false": table.BoolVal(false),
	"null":  table.Null(),
}

func (p *parser) primary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.Int, lexer.Float:
		p.next()
		return numberLiteral(tok, "", tok.Pos)
	case lexer.String:
		p.next()
		return &ast.Literal{At: tok.Pos, Value: table.StrVal(tok.Text)}, nil
	case lexer.Keyword:
		if v, ok := keywordLiterals[tok.Text]; ok {
			p.next()
			return &ast.Literal{At: tok.Pos, Value: v}, nil
		}
	case lexer.Name:
		p.next()
		if !tok.Quoted && p.atPunct("(") {
			args, err := p.list()
			if err != nil {
				return nil, fmt.Errorf("%s(): %w", tok.Text, err)
			}
			return &ast.Call{At: tok.Pos, Func: strings.ToLower(tok.Text), Args: args}, nil
		}
		return &ast.Ref{At: tok.Pos, Name: tok.Text}, nil
	case lexer.Punct:
		if tok.Text == "(" {
			p.next()
			e, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			return e, p.expectPunct(")")
		}
	}
	return nil, p.unexpected("an expression")
}
