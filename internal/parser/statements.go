package parser

import (
	"github.com/wisp-lang/wisp/internal/lexer"
	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/runtime"
	"github.com/wisp-lang/wisp/internal/value"
	"github.com/wisp-lang/wisp/internal/werrors"
)

// parseProgram is the compiler's top-level statement loop (spec.md
// §4.2), called once per Compile with the root variable frame already
// open.
func (p *Parser) parseProgram() {
	for {
		p.skipNewlines()
		if p.failed() || p.eof() {
			return
		}
		if !p.parseStatement() {
			return
		}
	}
}

func (p *Parser) expectNewline() bool {
	if p.failed() {
		return false
	}
	if !p.eof() && p.current().Type == lexer.NewLine {
		p.pos++
		return true
	}
	if p.eof() {
		return true
	}
	p.errf("expected end of line, found %q", p.current().Text)
	return false
}

// parseBlockUntil parses statements until the current symbol matches
// one of stops (left unconsumed) or the input runs out.
func (p *Parser) parseBlockUntil(stops ...string) bool {
	for {
		p.skipNewlines()
		if p.failed() {
			return false
		}
		if p.eof() {
			p.errf("unexpected end of input, expected %v", stops)
			return false
		}
		for _, s := range stops {
			if p.Check(s) {
				return true
			}
		}
		if !p.parseStatement() {
			return false
		}
	}
}

func (p *Parser) parseStatement() bool {
	if p.failed() {
		return false
	}
	c := p.current()
	if c.Type != lexer.Keyword {
		return p.parseExpressionStatement()
	}
	switch c.Text {
	case "set":
		return p.parseSet()
	case "if":
		return p.parseIf()
	case "loop":
		return p.parseLoop()
	case "break":
		return p.parseBreak()
	case "return":
		return p.parseReturn()
	case "wait":
		return p.parseWait()
	case "erase":
		return p.parseErase()
	case "increment":
		return p.parseIncDec(runtime.Increment, "increment")
	case "decrement":
		return p.parseIncDec(runtime.Decrement, "decrement")
	case "begin":
		return p.parseBeginBlock()
	case "library":
		return p.parseLibraryDecl()
	case "import":
		return p.parseImportDecl()
	case "function", "external", "public", "private", "readonly":
		return p.parseDeclaration()
	default:
		return p.parseExpressionStatement()
	}
}

// parseExpressionStatement compiles a bare expression used for its
// side effect, discarding any value it leaves behind — spec.md §4.2
// "the operand stack depth at the end of a statement equals its depth
// at the start unless the statement intentionally discards a return".
func (p *Parser) parseExpressionStatement() bool {
	p.lastCallReturnsValue = true
	if !p.parseExpression() {
		return false
	}
	if p.lastCallReturnsValue {
		p.buf.EmitSimple(runtime.Pop)
	}
	return p.expectNewline()
}

// --- set ----------------------------------------------------------------

func (p *Parser) parseSet() bool {
	p.Expect("set")
	words := p.identifierRun()
	if len(words) == 0 {
		p.errf("expected a variable or property name after 'set'")
		return false
	}
	if name, ok := p.resolveVariable(); ok {
		return p.finishSetVar(name)
	}
	if prop, ok := p.resolveProperty(); ok {
		return p.finishSetProp(prop)
	}
	n := 0
	for n < len(words) {
		if (p.peekAt(n).Type == lexer.Special && p.peekAt(n).Text == "[") ||
			(p.peekAt(n).Type == lexer.Keyword && p.peekAt(n).Text == "to") {
			break
		}
		n++
	}
	if n == 0 {
		p.errf("expected a variable name after 'set'")
		return false
	}
	name := joinWords(words, n)
	p.pos += n
	p.vars.declare(name)
	return p.finishSetVar(name)
}

func (p *Parser) finishSetVar(name string) bool {
	if p.Accept("[") {
		if !p.parseChain() {
			return false
		}
		if !p.Expect("]") {
			return false
		}
		if !p.Expect("to") {
			return false
		}
		if !p.parseExpression() {
			return false
		}
		p.buf.EmitName(runtime.SetVarKey, name)
		return p.expectNewline()
	}
	if !p.Expect("to") {
		return false
	}
	if !p.parseExpression() {
		return false
	}
	p.buf.EmitName(runtime.SetVar, name)
	return p.expectNewline()
}

func (p *Parser) finishSetProp(prop *library.PropertyName) bool {
	if prop.ReadOnly {
		p.errf("cannot assign to readonly property %q", prop.Name)
		return false
	}
	if p.Accept("[") {
		if !p.parseChain() {
			return false
		}
		if !p.Expect("]") {
			return false
		}
		if !p.Expect("to") {
			return false
		}
		if !p.parseExpression() {
			return false
		}
		p.buf.EmitRuntimeID(runtime.SetPropKeyVal, prop.Id())
		return p.expectNewline()
	}
	if !p.Expect("to") {
		return false
	}
	if !p.parseExpression() {
		return false
	}
	p.buf.EmitRuntimeID(runtime.SetProp, prop.Id())
	return p.expectNewline()
}

// --- if / else / else if -------------------------------------------------

func (p *Parser) parseIf() bool {
	p.Expect("if")
	before := p.returnedValue
	var endPatches []int

	allReturned, ok := p.parseIfBranch(&endPatches, before)
	if !ok {
		return false
	}
	hasElse := false
	for p.Check("else") {
		p.pos++
		if p.Accept("if") {
			br, ok := p.parseIfBranch(&endPatches, before)
			if !ok {
				return false
			}
			allReturned = allReturned && br
			continue
		}
		hasElse = true
		if !p.expectNewline() {
			return false
		}
		p.returnedValue = before
		p.vars.openBlock()
		p.buf.EmitSimple(runtime.ScopeBegin)
		if !p.parseBlockUntil("end") {
			return false
		}
		p.buf.EmitSimple(runtime.ScopeEnd)
		p.vars.closeBlock()
		allReturned = allReturned && p.returnedValue
		break
	}
	if !p.Expect("end") {
		return false
	}
	end := uint32(p.buf.Len())
	for _, patch := range endPatches {
		p.buf.PatchJump(patch, end)
	}
	p.returnedValue = before || (hasElse && allReturned)
	return p.expectNewline()
}

// parseIfBranch compiles one `if`/`else if` condition and body,
// leaving the committed cursor right after the body so the caller can
// look for a following `else`/`end`. Returns whether every statement
// on this branch's path returned a value.
func (p *Parser) parseIfBranch(endPatches *[]int, before bool) (bool, bool) {
	if !p.parseChain() {
		return false, false
	}
	if !p.expectNewline() {
		return false, false
	}
	_, falsePatch := p.buf.EmitJumpPlaceholder(runtime.JumpFalse)
	p.returnedValue = before
	p.vars.openBlock()
	p.buf.EmitSimple(runtime.ScopeBegin)
	if !p.parseBlockUntil("else", "end") {
		return false, false
	}
	p.buf.EmitSimple(runtime.ScopeEnd)
	p.vars.closeBlock()
	branchReturned := p.returnedValue
	_, endPatch := p.buf.EmitJumpPlaceholder(runtime.Jump)
	*endPatches = append(*endPatches, endPatch)
	p.buf.PatchJump(falsePatch, uint32(p.buf.Len()))
	return branchReturned, true
}

// --- loop / break ---------------------------------------------------------

func (p *Parser) parseLoop() bool {
	p.Expect("loop")
	switch {
	case p.Check("from"):
		return p.parseCountedLoop()
	case p.Check("over"):
		return p.parseOverLoop()
	case p.Check("while") || p.Check("until"):
		return p.parseLeadingCondLoop()
	default:
		return p.parseTrailingCondLoop()
	}
}

func (p *Parser) closeLoop(endAddr uint32) {
	ctx := p.loop[len(p.loop)-1]
	p.loop = p.loop[:len(p.loop)-1]
	for _, patch := range ctx.breakPatches {
		p.buf.PatchJump(patch, endAddr)
	}
}

// parseCountedLoop compiles `loop from <var> from <start> to <stop>
// [by <step>]` (spec.md §8 scenario 4), backed by the LoopCount
// opcode's own counter/bookkeeping.
func (p *Parser) parseCountedLoop() bool {
	p.Expect("from")
	if !p.checkIdentifier() {
		p.errf("expected a loop variable name")
		return false
	}
	varName := p.current().Text
	p.pos++
	if !p.Expect("from") {
		return false
	}
	if !p.parseChain() {
		return false
	}
	if !p.Expect("to") {
		return false
	}
	if !p.parseChain() {
		return false
	}
	if p.Accept("by") {
		if !p.parseChain() {
			return false
		}
	} else {
		p.buf.EmitValue(runtime.PushVal, value.NewInteger(1))
	}
	if !p.expectNewline() {
		return false
	}

	loopAddr, endPatch := p.buf.EmitLoop(runtime.LoopCount, varName)
	p.loop = append(p.loop, &loopCtx{})
	p.vars.openBlock()
	p.vars.declare(varName)
	p.buf.EmitSimple(runtime.ScopeBegin)
	if !p.parseBlockUntil("end") {
		return false
	}
	p.buf.EmitSimple(runtime.ScopeEnd)
	p.vars.closeBlock()
	if !p.Expect("end") {
		return false
	}
	_, backPatch := p.buf.EmitJumpPlaceholder(runtime.Jump)
	p.buf.PatchJump(backPatch, uint32(loopAddr))
	endAddr := uint32(p.buf.Len())
	p.buf.PatchJump(endPatch, endAddr)
	p.closeLoop(endAddr)
	return p.expectNewline()
}

// parseOverLoop compiles `loop over <var> over <collection>`,
// iterating a collection's entries via the LoopOver opcode.
func (p *Parser) parseOverLoop() bool {
	p.Expect("over")
	if !p.checkIdentifier() {
		p.errf("expected a loop variable name")
		return false
	}
	varName := p.current().Text
	p.pos++
	if !p.Expect("over") {
		return false
	}
	if !p.parseChain() {
		return false
	}
	if !p.expectNewline() {
		return false
	}

	loopAddr, endPatch := p.buf.EmitLoop(runtime.LoopOver, varName)
	p.loop = append(p.loop, &loopCtx{})
	p.vars.openBlock()
	p.vars.declare(varName)
	p.buf.EmitSimple(runtime.ScopeBegin)
	if !p.parseBlockUntil("end") {
		return false
	}
	p.buf.EmitSimple(runtime.ScopeEnd)
	p.vars.closeBlock()
	if !p.Expect("end") {
		return false
	}
	_, backPatch := p.buf.EmitJumpPlaceholder(runtime.Jump)
	p.buf.PatchJump(backPatch, uint32(loopAddr))
	endAddr := uint32(p.buf.Len())
	p.buf.PatchJump(endPatch, endAddr)
	p.closeLoop(endAddr)
	return p.expectNewline()
}

// parseLeadingCondLoop compiles a pre-test `loop while <cond>` /
// `loop until <cond>` as an ordinary jump pair, not LoopCount/LoopOver
// (those opcodes are reserved for the counted/over-collection forms).
func (p *Parser) parseLeadingCondLoop() bool {
	until := p.Check("until")
	p.pos++
	loopStart := p.buf.Len()
	if !p.parseChain() {
		return false
	}
	if until {
		p.buf.EmitSimple(runtime.Not)
	}
	_, endPatch := p.buf.EmitJumpPlaceholder(runtime.JumpFalse)
	if !p.expectNewline() {
		return false
	}
	p.loop = append(p.loop, &loopCtx{})
	p.vars.openBlock()
	p.buf.EmitSimple(runtime.ScopeBegin)
	if !p.parseBlockUntil("end") {
		return false
	}
	p.buf.EmitSimple(runtime.ScopeEnd)
	p.vars.closeBlock()
	if !p.Expect("end") {
		return false
	}
	_, backPatch := p.buf.EmitJumpPlaceholder(runtime.Jump)
	p.buf.PatchJump(backPatch, uint32(loopStart))
	endAddr := uint32(p.buf.Len())
	p.buf.PatchJump(endPatch, endAddr)
	p.closeLoop(endAddr)
	return p.expectNewline()
}

// parseTrailingCondLoop compiles a post-test loop: `loop`, the body,
// then a `while <cond>` / `until <cond>` line and a closing `end`,
// running the body at least once before the condition is ever checked.
func (p *Parser) parseTrailingCondLoop() bool {
	if !p.expectNewline() {
		return false
	}
	bodyStart := p.buf.Len()
	p.loop = append(p.loop, &loopCtx{})
	p.vars.openBlock()
	p.buf.EmitSimple(runtime.ScopeBegin)
	if !p.parseBlockUntil("while", "until") {
		return false
	}
	p.buf.EmitSimple(runtime.ScopeEnd)
	p.vars.closeBlock()
	until := p.Check("until")
	p.pos++
	if !p.parseChain() {
		return false
	}
	if until {
		p.buf.EmitSimple(runtime.Not)
	}
	_, loopPatch := p.buf.EmitJumpPlaceholder(runtime.JumpTrue)
	p.buf.PatchJump(loopPatch, uint32(bodyStart))
	if !p.expectNewline() {
		return false
	}
	if !p.Expect("end") {
		return false
	}
	endAddr := uint32(p.buf.Len())
	p.closeLoop(endAddr)
	return p.expectNewline()
}

func (p *Parser) parseBreak() bool {
	p.Expect("break")
	if len(p.loop) == 0 {
		p.errf("'break' outside a loop")
		return false
	}
	_, patch := p.buf.EmitJumpPlaceholder(runtime.Jump)
	ctx := p.loop[len(p.loop)-1]
	ctx.breakPatches = append(ctx.breakPatches, patch)
	return p.expectNewline()
}

// --- return ---------------------------------------------------------------

func (p *Parser) parseReturn() bool {
	p.Expect("return")
	if p.failed() {
		return false
	}
	if p.eof() || p.current().Type == lexer.NewLine {
		p.buf.EmitSimple(runtime.Return)
		return p.expectNewline()
	}
	if !p.parseExpression() {
		return false
	}
	p.buf.EmitSimple(runtime.ReturnValue)
	p.returnedValue = true
	return p.expectNewline()
}

// --- wait -------------------------------------------------------------

func (p *Parser) parseWait() bool {
	p.Expect("wait")
	switch {
	case p.Accept("while"):
		condStart := p.buf.Len()
		if !p.parseChain() {
			return false
		}
		p.buf.EmitWait(runtime.WaitWhile, uint32(condStart))
	case p.Accept("until"):
		condStart := p.buf.Len()
		if !p.parseChain() {
			return false
		}
		p.buf.EmitWait(runtime.WaitUntil, uint32(condStart))
	default:
		p.buf.EmitWait(runtime.WaitUnconditional, 0)
	}
	return p.expectNewline()
}

// --- erase / increment / decrement ----------------------------------------

func (p *Parser) parseErase() bool {
	p.Expect("erase")
	if name, ok := p.resolveVariable(); ok {
		if p.Accept("[") {
			if !p.parseChain() {
				return false
			}
			if !p.Expect("]") {
				return false
			}
			p.buf.EmitErase(runtime.EraseVarElem, runtime.TargetVar, name, 0)
			return p.expectNewline()
		}
		p.buf.EmitName(runtime.EraseVar, name)
		return p.expectNewline()
	}
	if prop, ok := p.resolveProperty(); ok {
		if prop.ReadOnly {
			p.errf("cannot erase readonly property %q", prop.Name)
			return false
		}
		if p.Accept("[") {
			if !p.parseChain() {
				return false
			}
			if !p.Expect("]") {
				return false
			}
			p.buf.EmitErase(runtime.EraseVarElem, runtime.TargetProp, "", prop.Id())
			return p.expectNewline()
		}
		p.buf.EmitRuntimeID(runtime.EraseProp, prop.Id())
		return p.expectNewline()
	}
	p.errf("expected a variable or property name after 'erase'")
	return false
}

func (p *Parser) parseIncDec(op runtime.Opcode, kw string) bool {
	p.Expect(kw)
	if name, ok := p.resolveVariable(); ok {
		p.buf.EmitIncDec(op, runtime.TargetVar, name, 0)
		return p.expectNewline()
	}
	if prop, ok := p.resolveProperty(); ok {
		if prop.ReadOnly {
			p.errf("cannot %s readonly property %q", kw, prop.Name)
			return false
		}
		p.buf.EmitIncDec(op, runtime.TargetProp, "", prop.Id())
		return p.expectNewline()
	}
	p.errf("expected a variable or property name after %q", kw)
	return false
}

// --- begin/end blocks, library/import -------------------------------------

func (p *Parser) parseBeginBlock() bool {
	p.Expect("begin")
	if !p.expectNewline() {
		return false
	}
	p.vars.openBlock()
	p.buf.EmitSimple(runtime.ScopeBegin)
	if !p.parseBlockUntil("end") {
		return false
	}
	p.buf.EmitSimple(runtime.ScopeEnd)
	p.vars.closeBlock()
	if !p.Expect("end") {
		return false
	}
	return p.expectNewline()
}

func (p *Parser) parseLibraryDecl() bool {
	p.Expect("library")
	if !p.checkIdentifier() {
		p.errf("expected a library name after 'library'")
		return false
	}
	name := p.current().Text
	p.pos++
	p.buf.EmitName(runtime.LibraryDecl, name)
	return p.expectNewline()
}

func (p *Parser) parseImportDecl() bool {
	p.Expect("import")
	if !p.checkIdentifier() {
		p.errf("expected a library name after 'import'")
		return false
	}
	name := p.current().Text
	p.pos++
	if !p.rt.HasLibrary(name) {
		p.warnings = append(p.warnings, werrors.NewLinkErr(name, "library %q is not registered yet", name))
	}
	lib := p.rt.GetLibrary(name)
	already := false
	for _, imp := range p.imports {
		if imp == lib {
			already = true
			break
		}
	}
	if !already {
		p.imports = append(p.imports, lib)
	}
	return p.expectNewline()
}

// --- function/property declarations --------------------------------------

// parseDeclaration handles the visibility/readonly/external prefixes
// shared by `function` and `property` declarations, then dispatches
// to the matching parser. `function`/`external function` are only
// valid at root scope (spec.md §7 "scope violation") — neither inside
// a loop body nor inside another function.
func (p *Parser) parseDeclaration() bool {
	vis := library.Local
	readOnly := false
	external := false
	for {
		switch {
		case p.Accept("public"):
			vis = library.Public
		case p.Accept("private"):
			vis = library.Private
		case p.Accept("readonly"):
			readOnly = true
		case p.Accept("external"):
			external = true
		default:
			goto done
		}
	}
done:
	if p.Check("function") {
		if len(p.loop) != 0 || len(p.vars.scopeMarks) != 0 || len(p.vars.frameMarks) > 1 {
			p.errf("'function' is only valid at the top level")
			return false
		}
		if external {
			return p.parseExternalFunctionDecl(vis)
		}
		return p.parseFunctionDef(vis)
	}
	if p.Check("property") {
		return p.parsePropertyDecl(vis, readOnly)
	}
	p.errf("expected 'function' or 'property'")
	return false
}

func (p *Parser) parseExternalFunctionDecl(vis library.Visibility) bool {
	p.Expect("function")
	sig, returns, next, ok := scanSignatureHeader(p.syms, p.pos)
	if !ok {
		p.errf("malformed external function signature")
		return false
	}
	sig.Library = p.lib.Name
	sig.Visibility = vis
	sig.Returns = returns
	if !sig.Valid() {
		p.errf("invalid function signature %q", sig.String())
		return false
	}
	p.pos = next
	return true
}

// parseFunctionDef compiles a `function <name words> {params} [returns]
// ... end` declaration. Parameters are bound to named variables at
// negative stack offsets assigned in reverse declared order, so the
// caller's left-to-right push order lines up with SetIndex's addressing
// (spec.md §4.2 "Functions").
func (p *Parser) parseFunctionDef(vis library.Visibility) bool {
	p.Expect("function")
	sig, returns, next, ok := scanSignatureHeader(p.syms, p.pos)
	if !ok {
		p.errf("malformed function signature")
		return false
	}
	sig.Library = p.lib.Name
	sig.Visibility = vis
	sig.Returns = returns
	if !sig.Valid() {
		p.errf("invalid function signature %q", sig.String())
		return false
	}
	p.pos = next

	// A function's own bytecode sits inline at the point of its
	// declaration, but it must only ever be entered via CallFunc
	// jumping straight to the FrameBegin right after FunctionDecl
	// (the offset Script.load() records) — never by falling through
	// from the statement compiled just before it. Guard it with an
	// unconditional Jump past the whole definition; CallFunc's direct
	// jump bypasses this Jump entirely.
	_, skipPatch := p.buf.EmitJumpPlaceholder(runtime.Jump)

	p.buf.EmitFunction(&sig)
	p.buf.EmitSimple(runtime.FrameBegin)

	p.vars.openFrame()

	var paramNames []string
	var paramTypes []value.Type
	var hasType []bool
	for _, part := range sig.Parts {
		if part.IsParameter {
			paramNames = append(paramNames, part.ParamName)
			paramTypes = append(paramTypes, part.ParamType)
			hasType = append(hasType, part.HasType)
		}
	}
	negIndex := int32(-1)
	for i := len(paramNames) - 1; i >= 0; i-- {
		t := value.Null
		if hasType[i] {
			t = paramTypes[i]
		}
		p.buf.EmitSetIndex(paramNames[i], negIndex, t)
		p.vars.declare(paramNames[i])
		negIndex--
	}

	savedReturned := p.returnedValue
	p.returnedValue = false

	if !p.parseBlockUntil("end") {
		p.returnedValue = savedReturned
		p.vars.closeFrame()
		return false
	}
	if returns && !p.returnedValue {
		p.errf("function %q must return a value on every path", sig.String())
	}
	if !returns {
		p.buf.EmitSimple(runtime.Return)
	}
	p.returnedValue = savedReturned
	p.vars.closeFrame()
	if !p.Expect("end") {
		return false
	}
	p.buf.PatchJump(skipPatch, uint32(p.buf.Len()))
	return p.expectNewline()
}

// parsePropertyDecl compiles a `[public|private] [readonly] property
// <name> to <literal>` declaration. The initial value must be a
// constant: PropertyDecl's bytecode form stores a serialized Variant
// directly rather than an expression to evaluate. The property is also
// registered into the Runtime immediately (not only at Script.load()
// time) so later statements in the same script can resolve it.
func (p *Parser) parsePropertyDecl(vis library.Visibility, readOnly bool) bool {
	p.Expect("property")
	words := p.identifierRun()
	n := 0
	for n < len(words) {
		if p.peekAt(n).Type == lexer.Keyword && p.peekAt(n).Text == "to" {
			break
		}
		n++
	}
	if n == 0 {
		p.errf("expected a property name after 'property'")
		return false
	}
	name := joinWords(words, n)
	p.pos += n
	if !p.Expect("to") {
		return false
	}
	v, ok := p.parseConstLiteral()
	if !ok {
		p.errf("a property's initial value must be a literal")
		return false
	}
	prop := &library.PropertyName{Visibility: vis, ReadOnly: readOnly, Library: p.lib.Name, Name: name}
	if err := p.rt.RegisterProperty(prop, v); err != nil {
		if _, exists := p.lib.PropertyByName(name); !exists {
			p.errf("%s", err)
			return false
		}
	}
	p.buf.EmitProperty(prop, v)
	return p.expectNewline()
}

func (p *Parser) parseConstLiteral() (value.Value, bool) {
	if p.failed() || p.eof() {
		return value.Value{}, false
	}
	c := p.current()
	switch {
	case c.Type == lexer.IntegerValue:
		p.pos++
		return value.NewInteger(c.IntVal), true
	case c.Type == lexer.NumberValue:
		p.pos++
		return value.NewNumber(c.NumVal), true
	case c.Type == lexer.StringValue:
		p.pos++
		return value.NewString(c.Text), true
	case c.Type == lexer.Keyword && c.Text == "true":
		p.pos++
		return value.NewBoolean(true), true
	case c.Type == lexer.Keyword && c.Text == "false":
		p.pos++
		return value.NewBoolean(false), true
	case c.Type == lexer.Keyword && c.Text == "null":
		p.pos++
		return value.NewNull(), true
	}
	return value.Value{}, false
}
