package runtime

import (
	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/value"
	"github.com/wisp-lang/wisp/internal/werrors"
)

// dispatch executes a single decoded instruction. opAddr is the byte
// offset the opcode itself started at (needed by Wait and the loop
// opcodes to recognize re-entry). It returns stop=true when Execute
// should return control to the host (Wait, Exit, top-level Return).
func (s *Script) dispatch(ins Instruction, opAddr int) (stop bool, err error) {
	switch ins.Op {
	case NOP, LibraryDecl, FunctionDecl, PropertyDecl, FrameBegin:
		// FunctionDecl/PropertyDecl are consumed by the load-time
		// pre-scan; LibraryDecl's only effect was at link time;
		// FrameBegin is a marker CallFunc has already acted on.

	case PushVal:
		s.pushOperand(ins.Value)

	case PushVar:
		i := s.findVar(ins.Name)
		if i < 0 {
			return false, unknownVariableErr(ins.Name)
		}
		s.pushOperand(s.vars[i])

	case SetVar:
		v, err := s.popOperand()
		if err != nil {
			return false, err
		}
		s.setOrCreateVar(ins.Name, v)

	case PushVarKey:
		key, err := s.popOperand()
		if err != nil {
			return false, err
		}
		i := s.findVar(ins.Name)
		if i < 0 {
			return false, unknownVariableErr(ins.Name)
		}
		v, err := s.subscript(s.vars[i], key)
		if err != nil {
			return false, err
		}
		s.pushOperand(v)

	case SetVarKey:
		val, err := s.popOperand()
		if err != nil {
			return false, err
		}
		key, err := s.popOperand()
		if err != nil {
			return false, err
		}
		i := s.findVar(ins.Name)
		if i < 0 {
			return false, unknownVariableErr(ins.Name)
		}
		if s.vars[i].Tag() != value.Collection {
			return false, werrors.NewRuntimeErr("cannot subscript-assign non-collection variable %q", ins.Name)
		}
		if err := s.vars[i].AsCollection().Set(key, val); err != nil {
			return false, err
		}

	case PushProp:
		v, ok := s.rt.GetProperty(ins.ID)
		if !ok {
			return false, unknownPropertyErr(ins.ID)
		}
		s.pushOperand(v)

	case SetProp:
		v, err := s.popOperand()
		if err != nil {
			return false, err
		}
		if !s.rt.SetProperty(ins.ID, v) {
			return false, werrors.NewRuntimeErr("cannot set readonly or unknown property id %d", ins.ID)
		}

	case PushPropKeyVal:
		key, err := s.popOperand()
		if err != nil {
			return false, err
		}
		prop, ok := s.rt.GetProperty(ins.ID)
		if !ok {
			return false, unknownPropertyErr(ins.ID)
		}
		v, err := s.subscript(prop, key)
		if err != nil {
			return false, err
		}
		s.pushOperand(v)

	case SetPropKeyVal:
		val, err := s.popOperand()
		if err != nil {
			return false, err
		}
		key, err := s.popOperand()
		if err != nil {
			return false, err
		}
		if err := s.rt.MutateCollectionProperty(ins.ID, func(c *value.Coll) error {
			return c.Set(key, val)
		}); err != nil {
			return false, err
		}

	case SetIndex:
		idx := len(s.operand) + int(ins.Index)
		if idx < 0 || idx >= len(s.operand) {
			return false, werrors.NewRuntimeErr("SetIndex: stack index %d out of range", ins.Index)
		}
		s.setOrCreateVar(ins.Name, s.operand[idx])

	case PushTop:
		v, err := s.peekOperand()
		if err != nil {
			return false, err
		}
		s.pushOperand(v)

	case PushItr:
		top := s.topLoop()
		if top == nil {
			return false, werrors.NewRuntimeErr("PushItr outside a loop body")
		}
		s.pushOperand(s.loopValue(top))

	case PushList:
		vals := make([]value.Value, ins.Count)
		for i := int(ins.Count) - 1; i >= 0; i-- {
			v, err := s.popOperand()
			if err != nil {
				return false, err
			}
			vals[i] = v
		}
		c := value.NewColl()
		for i, v := range vals {
			_ = c.Set(value.NewInteger(int64(i)), v)
		}
		s.pushOperand(value.NewCollection(c))

	case PushColl:
		flat := make([]value.Value, ins.Count*2)
		for i := len(flat) - 1; i >= 0; i-- {
			v, err := s.popOperand()
			if err != nil {
				return false, err
			}
			flat[i] = v
		}
		c := value.NewColl()
		for i := 0; i < int(ins.Count); i++ {
			if err := c.Set(flat[2*i], flat[2*i+1]); err != nil {
				return false, err
			}
		}
		s.pushOperand(value.NewCollection(c))

	case Pop:
		if _, err := s.popOperand(); err != nil {
			return false, err
		}

	case PopCount:
		for i := uint32(0); i < ins.Count; i++ {
			if _, err := s.popOperand(); err != nil {
				return false, err
			}
		}

	case Add, Subtract, Multiply, Divide, Mod:
		b, err := s.popOperand()
		if err != nil {
			return false, err
		}
		a, err := s.popOperand()
		if err != nil {
			return false, err
		}
		v, err := arithmetic(ins.Op, a, b)
		if err != nil {
			return false, err
		}
		s.pushOperand(v)

	case Equals, NotEquals, Less, LessEq, Greater, GreaterEq:
		b, err := s.popOperand()
		if err != nil {
			return false, err
		}
		a, err := s.popOperand()
		if err != nil {
			return false, err
		}
		v, err := compare(ins.Op, a, b)
		if err != nil {
			return false, err
		}
		s.pushOperand(v)

	case And, Or:
		b, err := s.popOperand()
		if err != nil {
			return false, err
		}
		a, err := s.popOperand()
		if err != nil {
			return false, err
		}
		var r bool
		if ins.Op == And {
			r = a.Truthy() && b.Truthy()
		} else {
			r = a.Truthy() || b.Truthy()
		}
		s.pushOperand(value.NewBoolean(r))

	case Not:
		a, err := s.popOperand()
		if err != nil {
			return false, err
		}
		s.pushOperand(value.NewBoolean(!a.Truthy()))

	case Cast:
		a, err := s.popOperand()
		if err != nil {
			return false, err
		}
		v, err := castValue(a, ins.ValueType)
		if err != nil {
			return false, err
		}
		s.pushOperand(v)

	case TypeOf:
		a, err := s.popOperand()
		if err != nil {
			return false, err
		}
		s.pushOperand(value.NewValueType(a.Tag()))

	case Jump:
		s.ip = int(ins.Target)

	case JumpTrue:
		c, err := s.popOperand()
		if err != nil {
			return false, err
		}
		if c.Truthy() {
			s.ip = int(ins.Target)
		}

	case JumpFalse:
		c, err := s.popOperand()
		if err != nil {
			return false, err
		}
		if !c.Truthy() {
			s.ip = int(ins.Target)
		}

	case LoopCount:
		if err := s.tickLoopCount(ins, opAddr); err != nil {
			return false, err
		}

	case LoopOver:
		if err := s.tickLoopOver(ins, opAddr); err != nil {
			return false, err
		}

	case ScopeBegin:
		s.scopeMarks = append(s.scopeMarks, len(s.vars))

	case ScopeEnd:
		if len(s.scopeMarks) == 0 {
			return false, werrors.NewRuntimeErr("ScopeEnd with no matching ScopeBegin")
		}
		m := s.scopeMarks[len(s.scopeMarks)-1]
		s.scopeMarks = s.scopeMarks[:len(s.scopeMarks)-1]
		s.vars = s.vars[:m]
		s.varNames = s.varNames[:m]

	case Return:
		if len(s.frames) == 0 {
			s.status = Finished
			return true, nil
		}
		f := s.frames[len(s.frames)-1]
		s.frames = s.frames[:len(s.frames)-1]
		s.vars = s.vars[:f.varBase]
		s.varNames = s.varNames[:f.varBase]
		s.operand = s.operand[:f.operandBase]
		s.ip = f.returnIP

	case ReturnValue:
		ret, err := s.popOperand()
		if err != nil {
			return false, err
		}
		if len(s.frames) == 0 {
			s.status = Finished
			return true, nil
		}
		f := s.frames[len(s.frames)-1]
		s.frames = s.frames[:len(s.frames)-1]
		s.vars = s.vars[:f.varBase]
		s.varNames = s.varNames[:f.varBase]
		s.operand = s.operand[:f.operandBase]
		s.pushOperand(ret)
		s.ip = f.returnIP

	case Wait:
		return s.tickWait(ins)

	case Exit:
		s.status = Finished
		return true, nil

	case CallFunc:
		return false, s.callFunc(ins.ID)

	case EraseVar:
		if i := s.findVar(ins.Name); i >= 0 {
			s.varNames[i] = ""
		}

	case EraseVarElem:
		key, err := s.popOperand()
		if err != nil {
			return false, err
		}
		if ins.Kind == TargetVar {
			i := s.findVar(ins.Name)
			if i < 0 {
				return false, unknownVariableErr(ins.Name)
			}
			if s.vars[i].Tag() != value.Collection {
				return false, werrors.NewRuntimeErr("cannot erase an element of a non-collection variable")
			}
			if err := s.vars[i].AsCollection().Delete(key); err != nil {
				return false, err
			}
		} else {
			if err := s.rt.MutateCollectionProperty(ins.ID, func(c *value.Coll) error {
				return c.Delete(key)
			}); err != nil {
				return false, err
			}
		}

	case EraseProp:
		if !s.rt.SetProperty(ins.ID, value.NewNull()) {
			return false, werrors.NewRuntimeErr("cannot erase readonly or unknown property id %d", ins.ID)
		}

	case ErasePropElem:
		key, err := s.popOperand()
		if err != nil {
			return false, err
		}
		if err := s.rt.MutateCollectionProperty(ins.ID, func(c *value.Coll) error {
			return c.Delete(key)
		}); err != nil {
			return false, err
		}

	case Increment, Decrement:
		return false, s.incrDecr(ins)

	default:
		return false, opcodeError(ins.Op)
	}
	return false, nil
}

// subscript implements `collection[key]`, used by PushVarKey and
// PushPropKeyVal: missing keys read as Null rather than erroring, a
// non-Collection operand is a RuntimeError (spec.md §7 "subscript on
// non-collection").
func (s *Script) subscript(v value.Value, key value.Value) (value.Value, error) {
	if v.Tag() != value.Collection {
		return value.Value{}, werrors.NewRuntimeErr("cannot subscript a %s value", v.Tag())
	}
	r, ok, err := v.AsCollection().Get(key)
	if err != nil {
		return value.Value{}, err
	}
	if !ok {
		return value.NewNull(), nil
	}
	return r, nil
}

func (s *Script) loopValue(it *loopIter) value.Value {
	if it.counted {
		if it.isInteger {
			return value.NewInteger(int64(it.current))
		}
		return value.NewNumber(it.current)
	}
	return it.entries[it.idx].Value
}

func (s *Script) tickLoopCount(ins Instruction, opAddr int) error {
	top := s.topLoop()
	if top == nil || top.startIP != opAddr {
		byV, err := s.popOperand()
		if err != nil {
			return err
		}
		toV, err := s.popOperand()
		if err != nil {
			return err
		}
		fromV, err := s.popOperand()
		if err != nil {
			return err
		}
		if !isNumeric(fromV) || !isNumeric(toV) || !isNumeric(byV) {
			return werrors.NewRuntimeErr("loop bounds must be numeric")
		}
		isInt := fromV.Tag() == value.Integer && toV.Tag() == value.Integer && byV.Tag() == value.Integer
		top = &loopIter{
			startIP: opAddr, varName: ins.Name, endAddr: ins.Target, counted: true,
			current: numericVal(fromV), to: numericVal(toV), by: numericVal(byV), isInteger: isInt,
		}
		s.loopStack = append(s.loopStack, top)
	} else {
		top.current += top.by
	}
	done := (top.by >= 0 && top.current > top.to) || (top.by < 0 && top.current < top.to)
	if done {
		s.loopStack = s.loopStack[:len(s.loopStack)-1]
		s.ip = int(top.endAddr)
		return nil
	}
	s.setOrCreateVar(top.varName, s.loopValue(top))
	return nil
}

func (s *Script) tickLoopOver(ins Instruction, opAddr int) error {
	top := s.topLoop()
	if top == nil || top.startIP != opAddr {
		coll, err := s.popOperand()
		if err != nil {
			return err
		}
		if coll.Tag() != value.Collection {
			return werrors.NewRuntimeErr("loop over requires a collection")
		}
		top = &loopIter{
			startIP: opAddr, varName: ins.Name, endAddr: ins.Target,
			entries: coll.AsCollection().Entries(), idx: 0,
		}
		s.loopStack = append(s.loopStack, top)
	} else {
		top.idx++
	}
	if top.idx >= len(top.entries) {
		s.loopStack = s.loopStack[:len(s.loopStack)-1]
		s.ip = int(top.endAddr)
		return nil
	}
	s.setOrCreateVar(top.varName, s.loopValue(top))
	return nil
}

// tickWait implements unconditional/while/until suspension (spec.md
// §4.3, §5). For the conditional forms the condition's own bytecode
// sits immediately before the Wait opcode and is re-run in full on
// every resume by leaving the instruction pointer at ConditionStart;
// Wait itself only ever consumes the Boolean that code just pushed.
func (s *Script) tickWait(ins Instruction) (bool, error) {
	if ins.WaitMode == WaitUnconditional {
		s.status = Waiting
		return true, nil
	}
	cond, err := s.popOperand()
	if err != nil {
		return false, err
	}
	holds := cond.Truthy()
	if ins.WaitMode == WaitUntil {
		holds = !holds
	}
	if holds {
		s.status = Waiting
		s.ip = int(ins.ConditionStart)
		return true, nil
	}
	return false, nil
}

func signatureArgc(sig *library.Signature) int {
	if sig == nil {
		return 0
	}
	n := 0
	for _, p := range sig.Parts {
		if p.IsParameter {
			n++
		}
	}
	return n
}

// pushFrame records a call frame whose operandBase sits BELOW the
// callee's already-pushed arguments, so that truncating the operand
// stack back to operandBase on return discards both the callee's
// temporaries and the arguments it consumed (spec.md §9's "Open
// question" on SetIndex's negative-stack-index convention: arguments
// are left in place on the operand stack for SetIndex to read by
// negative offset, rather than popped into parameters up front).
func (s *Script) pushFrame(argc int) {
	base := len(s.operand) - argc
	if base < 0 {
		base = 0
	}
	s.frames = append(s.frames, frameRec{returnIP: s.ip, operandBase: base, varBase: len(s.vars)})
}

func (s *Script) callFunc(id uint64) error {
	if lf, ok := s.localFuncs[id]; ok {
		s.pushFrame(signatureArgc(lf.sig))
		s.ip = int(lf.offset)
		return nil
	}
	def, ok := s.rt.FunctionByID(id)
	if !ok {
		return unknownFunctionErr(id)
	}
	if def.HasBytecode {
		s.pushFrame(signatureArgc(def.Signature))
		s.ip = int(def.BytecodeOffset)
		return nil
	}
	argc := signatureArgc(def.Signature)
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, err := s.popOperand()
		if err != nil {
			return err
		}
		args[i] = v
	}
	ret, err := def.Callback(args)
	if err != nil {
		return err
	}
	if def.Signature == nil || def.Signature.Returns {
		s.pushOperand(ret)
	}
	return nil
}

func (s *Script) incrDecr(ins Instruction) error {
	delta := 1.0
	if ins.Op == Decrement {
		delta = -1.0
	}
	step := func(v value.Value) (value.Value, error) {
		switch v.Tag() {
		case value.Integer:
			return value.NewInteger(v.AsInteger() + int64(delta)), nil
		case value.Number:
			return value.NewNumber(v.AsNumber() + delta), nil
		default:
			return value.Value{}, werrors.NewRuntimeErr("%s: operand is not numeric", ins.Op)
		}
	}
	if ins.Kind == TargetVar {
		i := s.findVar(ins.Name)
		if i < 0 {
			return unknownVariableErr(ins.Name)
		}
		v, err := step(s.vars[i])
		if err != nil {
			return err
		}
		s.vars[i] = v
		return nil
	}
	cur, ok := s.rt.GetProperty(ins.ID)
	if !ok {
		return unknownPropertyErr(ins.ID)
	}
	v, err := step(cur)
	if err != nil {
		return err
	}
	if !s.rt.SetProperty(ins.ID, v) {
		return werrors.NewRuntimeErr("cannot %s readonly property id %d", ins.Op, ins.ID)
	}
	return nil
}
