package parser

import (
	"strings"

	"github.com/wisp-lang/wisp/internal/lexer"
	"github.com/wisp-lang/wisp/internal/library"
)

// identifierRun collects the maximal sequence of consecutive
// Identifier symbols starting at the parser's cursor, used as the
// search window for longest-match resolution (spec.md §4.2).
func (p *Parser) identifierRun() []string {
	var words []string
	for i := 0; ; i++ {
		s := p.peekAt(i)
		if s.Type != lexer.Identifier {
			break
		}
		words = append(words, s.Text)
	}
	return words
}

// joinWords joins a word slice with single spaces, matching the
// canonical spelling multi-word variable/property names are declared
// and looked up under.
func joinWords(words []string, n int) string {
	return strings.Join(words[:n], " ")
}

// resolveVariable performs the longest-match lookup against the
// visible variable set (spec.md §4.2 "longest-match within a bound").
// It returns the matched name and word count, consuming those symbols
// from the cursor on success.
func (p *Parser) resolveVariable() (string, bool) {
	words := p.identifierRun()
	bound := p.vars.maxWords()
	if bound > len(words) {
		bound = len(words)
	}
	for n := bound; n >= 1; n-- {
		name := joinWords(words, n)
		if p.vars.has(name) {
			p.pos += n
			return name, true
		}
	}
	return "", false
}

// resolvePropertyIn performs the longest-match lookup against a
// library's declared property names.
func resolvePropertyIn(lib *library.Library, words []string) (*library.PropertyName, int, bool) {
	bound := lib.MaxPropertyWords()
	if bound > len(words) {
		bound = len(words)
	}
	for n := bound; n >= 1; n-- {
		name := joinWords(words, n)
		if p, ok := lib.PropertyByName(name); ok {
			return p, n, true
		}
	}
	return nil, 0, false
}

// resolveProperty searches the current library, then each import, in
// order, returning the first match.
func (p *Parser) resolveProperty() (*library.PropertyName, bool) {
	words := p.identifierRun()
	if len(words) == 0 {
		return nil, false
	}
	if prop, n, ok := resolvePropertyIn(p.lib, words); ok {
		p.pos += n
		return prop, true
	}
	for _, imp := range p.imports {
		if prop, n, ok := resolvePropertyIn(imp, words); ok {
			p.pos += n
			return prop, true
		}
	}
	return nil, false
}
