package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/wisp-lang/wisp/internal/werrors"
)

// foldCase is used for keyword recognition: identifiers are
// case-insensitive for keyword matching, case-preserving for user
// names (spec.md §4.1). golang.org/x/text/cases.Fold is used instead
// of strings.ToLower so multi-byte case folding behaves the same way
// the rest of the retrieval pack's text-processing code does.
var foldCase = cases.Fold()

const (
	interpBeginMark SymbolType = 90
	interpEndMark   SymbolType = 91
)

type scanner struct {
	src  []rune
	pos  int
	line int
	col  int
}

func newScanner(src string) *scanner {
	return &scanner{src: []rune(src), line: 1, col: 1}
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() rune {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekAt(off int) rune {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) advance() rune {
	r := s.src[s.pos]
	s.pos++
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

// Lex scans Wisp source text into a Symbol stream. On failure the
// partial output is discarded and an error satisfying *werrors.LexErr
// is returned (spec.md §4.1).
func Lex(src string) ([]Symbol, error) {
	s := newScanner(src)
	var out []Symbol
	atLineStart := true
	inBlockComment := false

	for !s.eof() {
		if atLineStart {
			if rest := lineRemainder(s); strings.HasPrefix(strings.TrimLeft(rest, " \t"), "---") {
				inBlockComment = !inBlockComment
				skipLine(s)
				atLineStart = true
				continue
			}
			if inBlockComment {
				skipLine(s)
				atLineStart = true
				continue
			}
			atLineStart = false
		}

		r := s.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\r':
			s.advance()
		case r == '\\' && s.peekAt(1) == '\n':
			s.advance()
			s.advance()
			atLineStart = true
		case r == '\n':
			line, col := s.line, s.col
			s.advance()
			out = append(out, Symbol{Type: NewLine, Text: "\n", Line: line, Column: col})
			atLineStart = true
		case r == '#':
			// Discard up to, not including, the newline so the '\n' case
			// still emits this line's NewLine symbol.
			for !s.eof() && s.peek() != '\n' {
				s.advance()
			}
		case r == '"':
			syms, err := lexString(s)
			if err != nil {
				return nil, err
			}
			out = append(out, syms...)
		case unicode.IsDigit(r):
			sym, err := lexNumber(s)
			if err != nil {
				return nil, err
			}
			out = append(out, sym)
		case unicode.IsLetter(r) || r == '_':
			out = append(out, lexIdentifier(s))
		case strings.ContainsRune(Specials, r):
			line, col := s.line, s.col
			s.advance()
			out = append(out, Symbol{Type: Special, Text: string(r), Line: line, Column: col})
		default:
			sym, ok := lexOperator(s)
			if !ok {
				return nil, werrors.NewLexErr(s.line, s.col, "unexpected character: %q", r)
			}
			out = append(out, sym)
		}
	}
	if inBlockComment {
		return nil, werrors.NewLexErr(s.line, s.col, "unterminated block comment")
	}
	return expandInterpolation(out), nil
}

func lineRemainder(s *scanner) string {
	end := s.pos
	for end < len(s.src) && s.src[end] != '\n' {
		end++
	}
	return string(s.src[s.pos:end])
}

func skipLine(s *scanner) {
	for !s.eof() && s.peek() != '\n' {
		s.advance()
	}
	if !s.eof() {
		s.advance() // consume the newline itself without emitting NewLine
	}
}

func lexIdentifier(s *scanner) Symbol {
	line, col := s.line, s.col
	var b strings.Builder
	for !s.eof() {
		r := s.peek()
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			s.advance()
		} else {
			break
		}
	}
	text := b.String()
	folded := foldCase.String(text)
	if Keywords[folded] {
		if folded == "true" {
			return Symbol{Type: Keyword, Text: folded, BoolVal: true, Line: line, Column: col}
		}
		if folded == "false" {
			return Symbol{Type: Keyword, Text: folded, BoolVal: false, Line: line, Column: col}
		}
		return Symbol{Type: Keyword, Text: folded, Line: line, Column: col}
	}
	return Symbol{Type: Identifier, Text: text, Line: line, Column: col}
}

func lexNumber(s *scanner) (Symbol, error) {
	line, col := s.line, s.col
	var b strings.Builder
	for !s.eof() && unicode.IsDigit(s.peek()) {
		b.WriteRune(s.advance())
	}
	isFloat := false
	if s.peek() == '.' && unicode.IsDigit(s.peekAt(1)) {
		isFloat = true
		b.WriteRune(s.advance())
		for !s.eof() && unicode.IsDigit(s.peek()) {
			b.WriteRune(s.advance())
		}
	}
	if s.peek() == 'e' || s.peek() == 'E' {
		save := s.pos
		var exp strings.Builder
		exp.WriteRune(s.advance())
		if s.peek() == '+' || s.peek() == '-' {
			exp.WriteRune(s.advance())
		}
		if unicode.IsDigit(s.peek()) {
			isFloat = true
			for !s.eof() && unicode.IsDigit(s.peek()) {
				exp.WriteRune(s.advance())
			}
			b.WriteString(exp.String())
		} else {
			s.pos = save
		}
	}
	text := b.String()
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Symbol{}, werrors.NewLexErr(line, col, "malformed number literal: %s", text)
		}
		return Symbol{Type: NumberValue, Text: text, NumVal: f, Line: line, Column: col}, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Symbol{}, werrors.NewLexErr(line, col, "malformed integer literal: %s", text)
	}
	return Symbol{Type: IntegerValue, Text: text, IntVal: i, Line: line, Column: col}, nil
}

var escapes = map[rune]rune{
	'n': '\n', '"': '"', '\\': '\\', 'r': '\r', 't': '\t',
	'v': '\v', 'b': '\b', 'a': '\a', 'f': '\f',
}

// lexString scans a double-quoted string literal starting at the
// opening quote. It returns one or more StringValue symbols with
// interpBeginMark/interpEndMark symbols bracketing any `{expr}`
// interpolation runs, which expandInterpolation later rewrites into a
// plain concatenation expression (spec.md §4.1).
func lexString(s *scanner) ([]Symbol, error) {
	startLine, startCol := s.line, s.col
	s.advance() // opening quote
	var frag strings.Builder
	var out []Symbol
	for {
		if s.eof() {
			return nil, werrors.NewLexErr(startLine, startCol, "unterminated string literal")
		}
		r := s.peek()
		switch r {
		case '"':
			s.advance()
			out = append(out, Symbol{Type: StringValue, Text: frag.String(), Line: startLine, Column: startCol})
			return out, nil
		case '\\':
			s.advance()
			if s.eof() {
				return nil, werrors.NewLexErr(startLine, startCol, "unterminated escape sequence")
			}
			e := s.advance()
			mapped, ok := escapes[e]
			if !ok {
				return nil, werrors.NewLexErr(s.line, s.col, "unexpected escape character: %q", e)
			}
			frag.WriteRune(mapped)
		case '{':
			out = append(out, Symbol{Type: StringValue, Text: frag.String(), Line: startLine, Column: startCol})
			frag.Reset()
			s.advance()
			out = append(out, Symbol{Type: interpBeginMark, Line: s.line, Column: s.col})
			depth := 1
			for depth > 0 {
				if s.eof() {
					return nil, werrors.NewLexErr(startLine, startCol, "unterminated string interpolation")
				}
				switch {
				case s.peek() == '{':
					depth++
					line, col := s.line, s.col
					s.advance()
					out = append(out, Symbol{Type: Special, Text: "{", Line: line, Column: col})
				case s.peek() == '}':
					depth--
					if depth == 0 {
						s.advance()
						break
					}
					line, col := s.line, s.col
					s.advance()
					out = append(out, Symbol{Type: Special, Text: "}", Line: line, Column: col})
				case s.peek() == '"':
					nested, err := lexString(s)
					if err != nil {
						return nil, err
					}
					out = append(out, nested...)
				case s.peek() == ' ' || s.peek() == '\t':
					s.advance()
				case unicode.IsDigit(s.peek()):
					sym, err := lexNumber(s)
					if err != nil {
						return nil, err
					}
					out = append(out, sym)
				case unicode.IsLetter(s.peek()) || s.peek() == '_':
					out = append(out, lexIdentifier(s))
				case strings.ContainsRune(Specials, s.peek()):
					line, col := s.line, s.col
					ch := s.advance()
					out = append(out, Symbol{Type: Special, Text: string(ch), Line: line, Column: col})
				default:
					sym, ok := lexOperator(s)
					if !ok {
						return nil, werrors.NewLexErr(s.line, s.col, "unexpected character in interpolation: %q", s.peek())
					}
					out = append(out, sym)
				}
			}
			out = append(out, Symbol{Type: interpEndMark, Line: s.line, Column: s.col})
		default:
			frag.WriteRune(r)
			s.advance()
		}
	}
}

func lexOperator(s *scanner) (Symbol, bool) {
	line, col := s.line, s.col
	for _, op := range Operators {
		if matches(s, op) {
			for range op {
				s.advance()
			}
			return Symbol{Type: Operator, Text: op, Line: line, Column: col}, true
		}
	}
	return Symbol{}, false
}

func matches(s *scanner, op string) bool {
	for i, r := range op {
		if s.peekAt(i) != r {
			return false
		}
	}
	return true
}

// expandInterpolation rewrites `"frag1" {expr} "frag2"` runs into a
// plain left-to-right concatenation expression
// `"frag1" + (expr) + "frag2"`, so the parser never needs to know
// string interpolation syntax exists (spec.md §4.1: "evaluation is
// delegated to a concat expansion at the end of lexing").
func expandInterpolation(in []Symbol) []Symbol {
	out := make([]Symbol, 0, len(in))
	i := 0
	for i < len(in) {
		sym := in[i]
		if sym.Type != StringValue || i+1 >= len(in) || in[i+1].Type != interpBeginMark {
			out = append(out, sym)
			i++
			continue
		}

		// sym begins a run of fragment/interpolation pairs terminated by
		// a final plain StringValue fragment. Join the non-empty parts
		// with "+", parenthesizing each embedded expression.
		needJoin := false
		emit := func(parts []Symbol) {
			if needJoin {
				out = append(out, Symbol{Type: Operator, Text: "+", Line: parts[0].Line, Column: parts[0].Column})
			}
			out = append(out, parts...)
			needJoin = true
		}
		for {
			frag := in[i]
			i++
			if frag.Text != "" {
				emit([]Symbol{frag})
			}
			if i >= len(in) || in[i].Type != interpBeginMark {
				break
			}
			i++ // past interpBeginMark
			open := Symbol{Type: Special, Text: "(", Line: in[i].Line, Column: in[i].Column}
			var body []Symbol
			for in[i].Type != interpEndMark {
				body = append(body, in[i])
				i++
			}
			closeSym := Symbol{Type: Special, Text: ")", Line: in[i].Line, Column: in[i].Column}
			i++ // past interpEndMark
			emit(append(append([]Symbol{open}, body...), closeSym))
		}
		if !needJoin {
			// Every fragment was empty: keep a single empty string literal.
			out = append(out, Symbol{Type: StringValue, Text: "", Line: sym.Line, Column: sym.Column})
		}
	}
	return out
}
