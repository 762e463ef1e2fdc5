package parser

import (
	"strings"

	"github.com/wisp-lang/wisp/internal/lexer"
	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/value"
	"github.com/wisp-lang/wisp/internal/werrors"
)

// localSigTable is the compile-time analogue of library.Library's
// function table for this script's own `function` declarations
// (spec.md §4.2 "current-script local functions"): the runtime only
// learns of them once Script.load() pre-scans the compiled bytecode,
// which happens after compilation finishes, so a call to a
// same-file function — including one declared later in the source —
// must resolve against a lookup built ahead of the real compile pass.
type localSigTable struct {
	byFirstWord map[string][]*library.Signature
	byID        map[uint64]*library.Signature
}

func newLocalSigTable() *localSigTable {
	return &localSigTable{byFirstWord: make(map[string][]*library.Signature), byID: make(map[uint64]*library.Signature)}
}

func (t *localSigTable) add(sig *library.Signature) {
	t.byID[sig.Id()] = sig
	for _, p := range sig.Parts {
		if !p.IsParameter {
			for _, kw := range p.Keywords {
				key := strings.ToLower(kw)
				t.byFirstWord[key] = append(t.byFirstWord[key], sig)
			}
			break
		}
	}
}

func (t *localSigTable) candidatesByFirstKeyword(word string) []*library.Signature {
	return t.byFirstWord[strings.ToLower(word)]
}

// prescanLocalSignatures walks the whole token stream once, collecting
// every `function` declaration's signature without compiling any
// bodies, so forward calls within the same script resolve during the
// real single compiling pass that follows.
func prescanLocalSignatures(syms []lexer.Symbol, libName string) *localSigTable {
	t := newLocalSigTable()
	pos := 0
	for pos < len(syms) {
		if syms[pos].Type == lexer.Keyword && syms[pos].Text == "function" {
			start := pos + 1
			if sig, returns, next, ok := scanSignatureHeader(syms, start); ok {
				// Library must match whatever the real function-declaration
				// statement sets at emission time (parseFunctionDef), since
				// Signature.Id()'s canonical form is keyed on it.
				sig.Library = libName
				sig.Visibility = library.Local
				sig.Returns = returns
				t.add(&sig)
				pos = skipBlockBody(syms, next)
				continue
			}
		}
		pos++
	}
	return t
}

// skipBlockBody advances past a block body starting right after its
// header line, returning the position immediately after the matching
// `end` keyword. Nesting is tracked via every block-opening keyword
// (`if`, `loop`, `function`, `begin`); `else`/`else if` continue the
// current block rather than opening a new one.
func skipBlockBody(syms []lexer.Symbol, pos int) int {
	depth := 1
	for pos < len(syms) && depth > 0 {
		if syms[pos].Type == lexer.Keyword {
			switch syms[pos].Text {
			case "if":
				elseIf := pos > 0 && syms[pos-1].Type == lexer.Keyword && syms[pos-1].Text == "else"
				if !elseIf {
					depth++
				}
			case "loop", "function", "begin":
				depth++
			case "end":
				depth--
			}
		}
		pos++
	}
	return pos
}

// ParseSignatureText parses a bare signature header — the same
// Name/Parameter/`returns` grammar scanSignatureHeader reads out of a
// `function` declaration's line — without any surrounding `function
// ... end` block. This is the host-facing counterpart used by
// Library.RegisterFunction(signatureText, ...) (spec.md §6) to turn a
// plain string like `"frob {x}"` into a *library.Signature for a
// native extension, so a host never has to build a library.Signature
// literal by hand.
func ParseSignatureText(text string) (*library.Signature, bool, error) {
	syms, err := lexer.Lex(text)
	if err != nil {
		return nil, false, err
	}
	sig, returns, _, ok := scanSignatureHeader(syms, 0)
	if !ok {
		return nil, false, werrors.NewParseErr(0, 0, "malformed function signature %q", text)
	}
	sig.Returns = returns
	return &sig, returns, nil
}

// scanSignatureHeader reads the Name/Parameter parts of a function
// header starting right after the `function` keyword, stopping at the
// first NewLine or the `returns` keyword (which marks the function as
// value-returning). A bare identifier run becomes one Name part per
// word; `{name}` becomes an untyped Parameter; `{name as Type}` becomes
// a typed one.
func scanSignatureHeader(syms []lexer.Symbol, pos int) (library.Signature, bool, int, bool) {
	var parts []library.Part
	returns := false
	for pos < len(syms) {
		sym := syms[pos]
		switch {
		case sym.Type == lexer.NewLine:
			pos++
			return library.Signature{Parts: parts}, returns, pos, len(parts) > 0
		case sym.Type == lexer.Keyword && sym.Text == "returns":
			returns = true
			pos++
		case sym.Type == lexer.Special && sym.Text == "{":
			pos++
			if pos >= len(syms) || syms[pos].Type != lexer.Identifier {
				return library.Signature{}, false, pos, false
			}
			pname := syms[pos].Text
			pos++
			var ptype value.Type
			hasType := false
			if pos < len(syms) && syms[pos].Type == lexer.Keyword && syms[pos].Text == "as" {
				pos++
				if pos >= len(syms) || syms[pos].Type != lexer.Identifier {
					return library.Signature{}, false, pos, false
				}
				t, ok := typeNames[strings.ToLower(syms[pos].Text)]
				if !ok {
					return library.Signature{}, false, pos, false
				}
				ptype = t
				hasType = true
				pos++
			}
			if pos >= len(syms) || syms[pos].Type != lexer.Special || syms[pos].Text != "}" {
				return library.Signature{}, false, pos, false
			}
			pos++
			if hasType {
				parts = append(parts, library.TypedParameterPart(pname, ptype))
			} else {
				parts = append(parts, library.ParameterPart(pname))
			}
		case sym.Type == lexer.Identifier:
			parts = append(parts, library.NamePart(false, strings.ToLower(sym.Text)))
			pos++
		default:
			return library.Signature{}, false, pos, false
		}
	}
	return library.Signature{Parts: parts}, returns, pos, len(parts) > 0
}
