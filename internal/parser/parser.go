// Package parser implements the single-pass recursive-descent
// compiler front end (spec.md §4.2): it consumes a lexer.Symbol stream
// and emits bytecode directly into a runtime.Buffer, resolving
// multi-word variable/property/function names and managing lexical
// scopes and call frames as it goes.
package parser

import (
	"strings"

	"github.com/wisp-lang/wisp/internal/lexer"
	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/runtime"
	"github.com/wisp-lang/wisp/internal/value"
	"github.com/wisp-lang/wisp/internal/werrors"
)

// Parser owns the symbol cursor, the bytecode writer, the variable
// frame tracker, the local-function signature table, the current
// library and import list, and the sticky error flag spec.md §4.2
// requires: once set, every subsequent Accept/Expect/Check call
// returns false so the parser unwinds without cascading reports.
type Parser struct {
	rt   *runtime.Runtime
	syms []lexer.Symbol
	pos  int

	buf  *runtime.Buffer
	vars *varScope
	loop []*loopCtx

	lib     *library.Library
	imports []*library.Library

	locals *localSigTable

	returnedValue        bool
	lastCallReturnsValue bool

	err      error
	probing  int
	probeErr bool

	warnings []error
}

// Compile lexes src and compiles it against rt, resolving against the
// script's own library and its imports (spec.md §6
// "Runtime.Compile(sourceText, uniqueName, importList)"). Unknown
// imports are not fatal at this point (spec.md §7 LinkError: "logged
// warning, not fatal, until a call is attempted") — they resolve to an
// empty library so a later call through them fails at compile time
// with an ordinary "unrecognized name" ParseError instead.
func Compile(rt *runtime.Runtime, src, libraryName string, importNames []string) (*runtime.Buffer, []error, error) {
	syms, err := lexer.Lex(src)
	if err != nil {
		return nil, nil, err
	}

	p := &Parser{
		rt:   rt,
		syms: syms,
		buf:  runtime.NewBuffer(),
		vars: newVarScope(),
		lib:  rt.GetLibrary(libraryName),
	}
	for _, name := range importNames {
		if !rt.HasLibrary(name) {
			p.warnings = append(p.warnings, werrors.NewLinkErr(name, "library %q is not registered yet", name))
		}
		p.imports = append(p.imports, rt.GetLibrary(name))
	}
	p.locals = prescanLocalSignatures(syms, p.lib.Name)

	p.vars.openFrame()
	p.parseProgram()
	p.vars.closeFrame()

	if p.err != nil {
		return nil, p.warnings, p.err
	}
	p.buf.EmitSimple(runtime.Exit)
	return p.buf, p.warnings, nil
}

// --- cursor -----------------------------------------------------------

func (p *Parser) failed() bool {
	if p.probing > 0 {
		return p.probeErr
	}
	return p.err != nil
}

func (p *Parser) errf(format string, args ...interface{}) {
	if p.failed() {
		return
	}
	line, col := 0, 0
	if p.pos < len(p.syms) {
		line, col = p.syms[p.pos].Line, p.syms[p.pos].Column
	}
	e := werrors.NewParseErr(line, col, format, args...)
	if p.probing > 0 {
		p.probeErr = true
		return
	}
	p.err = e
}

func (p *Parser) eof() bool { return p.pos >= len(p.syms) }

func (p *Parser) current() lexer.Symbol {
	if p.eof() {
		return lexer.Symbol{Type: lexer.NoneSymbol}
	}
	return p.syms[p.pos]
}

func (p *Parser) peekAt(off int) lexer.Symbol {
	if p.pos+off >= len(p.syms) {
		return lexer.Symbol{Type: lexer.NoneSymbol}
	}
	return p.syms[p.pos+off]
}

func (p *Parser) advance() lexer.Symbol {
	s := p.current()
	p.pos++
	return s
}

// skipNewlines consumes any run of NewLine symbols, used between
// statements where blank lines are insignificant.
func (p *Parser) skipNewlines() {
	for !p.failed() && !p.eof() && p.current().Type == lexer.NewLine {
		p.pos++
	}
}

// Check reports whether the current symbol is the given keyword or
// special, without consuming it.
func (p *Parser) Check(text string) bool {
	if p.failed() || p.eof() {
		return false
	}
	c := p.current()
	return (c.Type == lexer.Keyword || c.Type == lexer.Special || c.Type == lexer.Operator) && c.Text == text
}

func (p *Parser) checkIdentifier() bool {
	return !p.failed() && !p.eof() && p.current().Type == lexer.Identifier
}

// Accept consumes the current symbol if it matches text, reporting
// whether it did.
func (p *Parser) Accept(text string) bool {
	if !p.Check(text) {
		return false
	}
	p.pos++
	return true
}

// Expect consumes the current symbol if it matches text, otherwise
// records a ParseError.
func (p *Parser) Expect(text string) bool {
	if p.Accept(text) {
		return true
	}
	if p.failed() {
		return false
	}
	p.errf("expected %q, found %q", text, p.current().Text)
	return false
}

// acceptKeyword matches the current symbol's folded text against any
// of the given alternatives (a Name part's Keywords, spec.md §3).
func (p *Parser) acceptKeyword(alts ...string) bool {
	if p.failed() || p.eof() {
		return false
	}
	c := p.current()
	if c.Type != lexer.Identifier && c.Type != lexer.Keyword {
		return false
	}
	folded := strings.ToLower(c.Text)
	for _, a := range alts {
		if folded == a {
			p.pos++
			return true
		}
	}
	return false
}

// withProbe runs fn speculatively: failures inside fn set a local
// probe flag instead of the sticky parser error, and the cursor is
// always restored to its entry position regardless of outcome —
// callers that want to keep a successful probe's effects re-run fn for
// real afterwards (see matchSignature / emitBestCall).
func (p *Parser) withProbe(fn func() bool) bool {
	save := p.pos
	p.probing++
	p.probeErr = false
	ok := fn() && !p.probeErr
	p.probing--
	p.pos = save
	return ok
}

var typeNames = map[string]value.Type{
	"null": value.Null, "number": value.Number, "integer": value.Integer,
	"boolean": value.Boolean, "string": value.String, "collection": value.Collection,
	"guid": value.Guid, "valuetype": value.ValueType, "buffer": value.Buffer,
}
