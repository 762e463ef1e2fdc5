package parser

import (
	"strings"

	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/runtime"
)

// matchSignature consumes a full call for sig starting at the current
// cursor, writing parameter subexpressions to whatever p.buf currently
// points at (emitBestCall swaps it to a scratch buffer while probing,
// and to the real buffer for the winning candidate) — spec.md §4.2
// "speculative match against the set of reachable function
// signatures". Optional Name parts may be skipped; everything else
// must align in order.
func (p *Parser) matchSignature(sig *library.Signature) bool {
	for _, part := range sig.Parts {
		if part.IsParameter {
			if !p.parseExpression() {
				return false
			}
			continue
		}
		if p.acceptKeyword(part.Keywords...) {
			continue
		}
		if part.Optional {
			continue
		}
		return false
	}
	return true
}

// libraryByWord reports whether word names a reachable library: the
// script's own or one of its imports, enabling the explicit-prefix
// disambiguation form `LibA frob 1` (spec.md §8 scenario 6).
func (p *Parser) libraryByWord(word string) (*library.Library, bool) {
	folded := strings.ToLower(word)
	if strings.ToLower(p.lib.Name) == folded {
		return p.lib, true
	}
	for _, imp := range p.imports {
		if strings.ToLower(imp.Name) == folded {
			return imp, true
		}
	}
	return nil, false
}

// tryParseCall attempts to recognize and emit a function call starting
// at the cursor, returning false (with the cursor untouched) if no
// registered signature's Name-keyword skeleton matches here at all —
// callers then fall back to treating the identifier run as something
// else. An ambiguous match (more than one signature fits) is reported
// as a ParseError and reported as "recognized" so the caller does not
// also try alternate interpretations.
func (p *Parser) tryParseCall() bool {
	if p.failed() || !p.checkIdentifier() {
		return false
	}
	words := p.identifierRun()
	if len(words) == 0 {
		return false
	}

	if lib, ok := p.libraryByWord(words[0]); ok && len(words) > 1 {
		save := p.pos
		p.pos++
		if p.emitBestCall(p.candidatesFromLibrary(lib, words[1], lib == p.lib)) {
			return true
		}
		p.pos = save
	}

	var candidates []*library.Signature
	candidates = append(candidates, p.locals.candidatesByFirstKeyword(words[0])...)
	candidates = append(candidates, p.candidatesFromLibrary(p.lib, words[0], true)...)
	for _, imp := range p.imports {
		candidates = append(candidates, p.candidatesFromLibrary(imp, words[0], false)...)
	}
	return p.emitBestCall(candidates)
}

func (p *Parser) candidatesFromLibrary(lib *library.Library, firstWord string, ownLibrary bool) []*library.Signature {
	defs := lib.CandidatesByFirstKeyword(firstWord)
	out := make([]*library.Signature, 0, len(defs))
	for _, d := range defs {
		if !ownLibrary && d.Signature.Visibility == library.Private {
			continue // private functions in other libraries are not callable
		}
		out = append(out, d.Signature)
	}
	return out
}

func (p *Parser) emitBestCall(candidates []*library.Signature) bool {
	if len(candidates) == 0 {
		return false
	}
	realBuf := p.buf
	var matched []*library.Signature
	for _, sig := range candidates {
		scratch := runtime.NewBuffer()
		ok := p.withProbe(func() bool {
			p.buf = scratch
			r := p.matchSignature(sig)
			p.buf = realBuf
			return r
		})
		if ok {
			matched = append(matched, sig)
		}
	}
	p.buf = realBuf
	if len(matched) == 0 {
		return false
	}
	if len(matched) > 1 {
		p.errf("ambiguous call to %q across libraries; use an explicit library prefix", matched[0].String())
		return true
	}
	if !p.matchSignature(matched[0]) {
		p.errf("call to %q stopped matching on the committed pass", matched[0].String())
		return true
	}
	p.buf.EmitRuntimeID(runtime.CallFunc, matched[0].Id())
	p.lastCallReturnsValue = matched[0].Returns
	return true
}
