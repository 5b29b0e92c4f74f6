// Package lexer splits wrangle stage text into tokens.
//
// Positions are byte offsets into the scanned text. The source part of a
// query (the path before the first pipe) is not lexed; see parser.Parse.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies a token.
type Kind uint8

const (
	EOF Kind = iota
	Name
	Keyword
	Int
	Float
	String
	Punct
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case Name:
		return "name"
	case Keyword:
		return "keyword"
	case Int:
		return "integer"
	case Float:
		return "number"
	case String:
		return "string"
	case Punct:
		return "punctuation"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Token is one lexical unit. For String and backquoted Name tokens Text is
// the unquoted content.
type Token struct {
	Kind   Kind
	Text   string
	Pos    int
	Quoted bool
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// IsName reports whether the token can name a column.
func (t Token) IsName() bool { return t.Kind == Name }

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case String:
		return fmt.Sprintf("string %q", t.Text)
	case Name:
		if t.Quoted {
			return "`" + t.Text + "`"
		}
	}
	return fmt.Sprintf("%q", t.Text)
}

// Error is a lexical error at a byte offset.
type Error struct {
	Pos int
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("position %d: %s", e.Pos, e.Msg)
}

var keywords = map[string]bool{
	"and": true, "or": true, "not": true,
	"is": true, "in": true, "as": true,
	"true": true, "false": true, "null": true,
}

// puncts is ordered so that two-byte operators win over their prefixes.
var puncts = []string{
	"|>", "==", "!=", "<=", ">=",
	"|", "{", "}", "(", ")", ",", "=", ".",
	"+", "-", "*", "/", "<", ">",
}

// Lex tokenizes src. The last token is always EOF.
func Lex(src string) ([]Token, error) {
	return LexAt(src, 0)
}

// LexAt is like Lex but reports positions shifted by base, for text cut out
// of a larger query.
func LexAt(src string, base int) ([]Token, error) {
	s := &scanner{src: src, base: base}
	var toks []Token
	for {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

type scanner struct {
	src  string
	off  int
	base int
}

func (s *scanner) errorf(off int, format string, args ...any) error {
	return &Error{Pos: s.base + off, Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) token(kind Kind, start, end int) Token {
	return Token{Kind: kind, Text: s.src[start:end], Pos: s.base + start}
}

func (s *scanner) skipSpaceAndComments() {
	for s.off < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.off:])
		switch {
		case unicode.IsSpace(r):
			s.off += size
		case strings.HasPrefix(s.src[s.off:], "//"):
			if nl := strings.IndexByte(s.src[s.off:], '\n'); nl >= 0 {
				s.off += nl + 1
			} else {
				s.off = len(s.src)
			}
		default:
			return
		}
	}
}

func (s *scanner) next() (Token, error) {
	s.skipSpaceAndComments()
	start := s.off
	if start == len(s.src) {
		return Token{Kind: EOF, Pos: s.base + start}, nil
	}

	r, _ := utf8.DecodeRuneInString(s.src[start:])
	switch {
	case r == '"':
		return s.quoted(String, '"')
	case r == '`':
		return s.quoted(Name, '`')
	case r >= '0' && r <= '9':
		return s.number(), nil
	case r == '_' || unicode.IsLetter(r):
		return s.word(), nil
	}

	for _, p := range puncts {
		if strings.HasPrefix(s.src[start:], p) {
			s.off += len(p)
			return s.token(Punct, start, s.off), nil
		}
	}
	if r == '!' {
		return Token{}, s.errorf(start, "unexpected '!' (did you mean '!='?)")
	}
	return Token{}, s.errorf(start, "unexpected character %q", r)
}

func (s *scanner) word() Token {
	start := s.off
	for s.off < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.off:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		s.off += size
	}
	if keywords[s.src[start:s.off]] {
		return s.token(Keyword, start, s.off)
	}
	return s.token(Name, start, s.off)
}

func (s *scanner) digits() int {
	n := 0
	for s.off < len(s.src) && s.src[s.off] >= '0' && s.src[s.off] <= '9' {
		s.off++
		n++
	}
	return n
}

// number scans 12, 1.5, 1e5 and 2.5E-3. A dot not followed by a digit is
// left for the parser.
func (s *scanner) number() Token {
	start := s.off
	kind := Int
	s.digits()
	if s.off+1 < len(s.src) && s.src[s.off] == '.' && isDigit(s.src[s.off+1]) {
		s.off++
		s.digits()
		kind = Float
	}
	if s.off < len(s.src) && (s.src[s.off] == 'e' || s.src[s.off] == 'E') {
		mark := s.off
		s.off++
		if s.off < len(s.src) && (s.src[s.off] == '+' || s.src[s.off] == '-') {
			s.off++
		}
		if s.digits() == 0 {
			s.off = mark
		} else {
			kind = Float
		}
	}
	return s.token(kind, start, s.off)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// quoted scans a string literal or a backquoted name. Strings understand
// \" \\ \n and \t; other escapes are kept as written. Backquoted names have
// no escapes.
func (s *scanner) quoted(kind Kind, quote byte) (Token, error) {
	start := s.off
	s.off++
	var sb strings.Builder
	for s.off < len(s.src) {
		c := s.src[s.off]
		switch {
		case c == quote:
			s.off++
			return Token{Kind: kind, Text: sb.String(), Pos: s.base + start, Quoted: true}, nil
		case c == '\\' && kind == String && s.off+1 < len(s.src):
			switch e := s.src[s.off+1]; e {
			case '"', '\\':
				sb.WriteByte(e)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(e)
			}
			s.off += 2
		default:
			sb.WriteByte(c)
			s.off++
		}
	}
	if kind == String {
		return Token{}, s.errorf(start, "unterminated string")
	}
	return Token{}, s.errorf(start, "unterminated backquoted name")
}
