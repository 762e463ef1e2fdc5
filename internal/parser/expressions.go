package parser

import (
	"strings"

	"github.com/wisp-lang/wisp/internal/lexer"
	"github.com/wisp-lang/wisp/internal/runtime"
	"github.com/wisp-lang/wisp/internal/value"
)

// binaryOps maps every operator symbol to its opcode. There is no
// precedence table (spec.md §4.2, §9): each occurrence simply emits
// its opcode once its right operand has been parsed, left to right.
var binaryOps = map[string]runtime.Opcode{
	"+": runtime.Add, "-": runtime.Subtract, "*": runtime.Multiply, "/": runtime.Divide, "%": runtime.Mod,
	"=": runtime.Equals, "!=": runtime.NotEquals, "<": runtime.Less, "<=": runtime.LessEq,
	">": runtime.Greater, ">=": runtime.GreaterEq,
}

// parseExpression parses one full expression, which may turn out to
// be a top-level comma-separated sequence of `[k, v]` pairs (a
// collection literal, PushColl) or of plain subexpressions (a list
// literal, PushList); a single item with no trailing comma is emitted
// as-is with no wrapping opcode (spec.md §4.2 "Collections and
// lists").
func (p *Parser) parseExpression() bool {
	ok, isPair := p.parseListItem()
	if !ok {
		return false
	}
	if !p.Check(",") {
		return true
	}
	count := 1
	for p.Accept(",") {
		itemOK, itemPair := p.parseListItem()
		if !itemOK {
			return false
		}
		if itemPair != isPair {
			p.errf("cannot mix key-value pairs and plain values in the same literal")
			return false
		}
		count++
	}
	op := runtime.PushList
	if isPair {
		op = runtime.PushColl
	}
	p.buf.EmitCount(op, uint32(count))
	return true
}

func (p *Parser) parseListItem() (ok bool, pair bool) {
	if p.Accept("[") {
		if !p.parseChain() {
			return false, false
		}
		if !p.Expect(",") {
			return false, false
		}
		if !p.parseChain() {
			return false, false
		}
		if !p.Expect("]") {
			return false, false
		}
		return true, true
	}
	return p.parseChain(), false
}

// parseChain parses one left-to-right operator chain: an operand,
// then zero or more (operator, operand) pairs, each emitted as soon as
// its right-hand operand is compiled (spec.md §4.2
// "ParseSubexpressionOperation").
func (p *Parser) parseChain() bool {
	if !p.parseUnary() {
		return false
	}
	for {
		if p.failed() || p.eof() {
			return !p.failed()
		}
		c := p.current()
		if c.Type == lexer.Operator {
			if op, ok := binaryOps[c.Text]; ok {
				p.pos++
				if !p.parseUnary() {
					return false
				}
				p.buf.EmitSimple(op)
				continue
			}
			return true
		}
		if c.Type == lexer.Keyword {
			switch c.Text {
			case "and", "or":
				op := runtime.And
				if c.Text == "or" {
					op = runtime.Or
				}
				p.pos++
				if !p.parseUnary() {
					return false
				}
				p.buf.EmitSimple(op)
				continue
			case "as":
				p.pos++
				if !p.checkIdentifier() {
					p.errf("expected a type name after 'as'")
					return false
				}
				t, ok := typeNames[strings.ToLower(p.current().Text)]
				if !ok {
					p.errf("unknown type name %q", p.current().Text)
					return false
				}
				p.pos++
				p.buf.EmitCast(t)
				continue
			}
		}
		return true
	}
}

// parseUnary handles the prefix forms: `not`, `type` and unary minus
// (spec.md §4.1: "negative signs are handled as unary operators in the
// parser, not the lexer"). A negated literal is folded at compile time
// into a single PushVal.
func (p *Parser) parseUnary() bool {
	if p.failed() {
		return false
	}
	if p.Accept("not") {
		if !p.parseUnary() {
			return false
		}
		p.buf.EmitSimple(runtime.Not)
		return true
	}
	if p.Accept("type") {
		if !p.parseUnary() {
			return false
		}
		p.buf.EmitSimple(runtime.TypeOf)
		return true
	}
	if p.Check("-") {
		p.pos++
		switch p.current().Type {
		case lexer.IntegerValue:
			v := p.current().IntVal
			p.pos++
			p.buf.EmitValue(runtime.PushVal, value.NewInteger(-v))
			return true
		case lexer.NumberValue:
			v := p.current().NumVal
			p.pos++
			p.buf.EmitValue(runtime.PushVal, value.NewNumber(-v))
			return true
		}
		p.buf.EmitValue(runtime.PushVal, value.NewInteger(0))
		if !p.parseUnary() {
			return false
		}
		p.buf.EmitSimple(runtime.Subtract)
		return true
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() bool {
	if p.failed() {
		return false
	}
	c := p.current()
	switch {
	case c.Type == lexer.IntegerValue:
		p.pos++
		p.buf.EmitValue(runtime.PushVal, value.NewInteger(c.IntVal))
		return true
	case c.Type == lexer.NumberValue:
		p.pos++
		p.buf.EmitValue(runtime.PushVal, value.NewNumber(c.NumVal))
		return true
	case c.Type == lexer.StringValue:
		p.pos++
		p.buf.EmitValue(runtime.PushVal, value.NewString(c.Text))
		return true
	case c.Type == lexer.Keyword && c.Text == "true":
		p.pos++
		p.buf.EmitValue(runtime.PushVal, value.NewBoolean(true))
		return true
	case c.Type == lexer.Keyword && c.Text == "false":
		p.pos++
		p.buf.EmitValue(runtime.PushVal, value.NewBoolean(false))
		return true
	case c.Type == lexer.Keyword && c.Text == "null":
		p.pos++
		p.buf.EmitValue(runtime.PushVal, value.NewNull())
		return true
	case c.Type == lexer.Special && c.Text == "(":
		p.pos++
		if !p.parseChain() {
			return false
		}
		return p.Expect(")")
	case c.Type == lexer.Identifier:
		return p.parseIdentifierPrimary()
	}
	p.errf("unexpected symbol %q", c.Text)
	return false
}

// parseIdentifierPrimary resolves an identifier run in variable,
// property, then function-call order (spec.md §4.2): a name already
// bound as a variable or property is never reinterpreted as a call
// keyword.
func (p *Parser) parseIdentifierPrimary() bool {
	if name, ok := p.resolveVariable(); ok {
		if p.Accept("[") {
			if !p.parseChain() {
				return false
			}
			if !p.Expect("]") {
				return false
			}
			p.buf.EmitName(runtime.PushVarKey, name)
			return true
		}
		p.buf.EmitName(runtime.PushVar, name)
		return true
	}
	if prop, ok := p.resolveProperty(); ok {
		if p.Accept("[") {
			if !p.parseChain() {
				return false
			}
			if !p.Expect("]") {
				return false
			}
			p.buf.EmitRuntimeID(runtime.PushPropKeyVal, prop.Id())
			return true
		}
		p.buf.EmitRuntimeID(runtime.PushProp, prop.Id())
		return true
	}
	if p.tryParseCall() {
		return true
	}
	p.errf("unrecognized name %q", p.current().Text)
	return false
}
