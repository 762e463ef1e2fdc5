package runtime

import (
	"bytes"

	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/value"
)

// Instruction is a single decoded bytecode instruction. Only the
// fields relevant to Op are populated; see the operand layout table
// in spec.md §6.
type Instruction struct {
	Op             Opcode
	Value          value.Value
	Target         uint32 // Jump/JumpTrue/JumpFalse absolute offset
	ID             uint64 // RuntimeID operand
	Name           string
	Count          uint32
	ValueType      value.Type
	Signature      *library.Signature
	Property       *library.PropertyName
	Index          int32
	Kind           TargetKind
	WaitMode       WaitMode
	ConditionStart uint32
}

// Emit* helpers append an instruction to the buffer and return the
// byte offset the opcode started at, so callers can record addresses
// for later reference (e.g. a function's entry point).

func (b *Buffer) EmitSimple(op Opcode) int {
	addr := b.Len()
	b.writeByte(byte(op))
	return addr
}

func (b *Buffer) EmitValue(op Opcode, v value.Value) int {
	addr := b.Len()
	b.writeByte(byte(op))
	var buf bytes.Buffer
	_ = value.Encode(&buf, v)
	b.data = append(b.data, buf.Bytes()...)
	return addr
}

// EmitJumpPlaceholder writes the opcode followed by a zeroed u32
// target; it returns the opcode's address and the byte offset of the
// operand itself, which the caller later overwrites via PatchJump once
// the destination address is known.
func (b *Buffer) EmitJumpPlaceholder(op Opcode) (addr int, patchOffset int) {
	addr = b.Len()
	b.writeByte(byte(op))
	patchOffset = b.Len()
	b.writeUint32(0)
	return
}

// PatchJump back-fills a previously emitted jump target.
func (b *Buffer) PatchJump(patchOffset int, target uint32) {
	b.patchUint32(patchOffset, target)
}

func (b *Buffer) EmitRuntimeID(op Opcode, id uint64) int {
	addr := b.Len()
	b.writeByte(byte(op))
	b.writeUint64(id)
	return addr
}

func (b *Buffer) EmitName(op Opcode, name string) int {
	addr := b.Len()
	b.writeByte(byte(op))
	b.writeString(name)
	return addr
}

func (b *Buffer) EmitCount(op Opcode, count uint32) int {
	addr := b.Len()
	b.writeByte(byte(op))
	b.writeUint32(count)
	return addr
}

func (b *Buffer) EmitCast(t value.Type) int {
	addr := b.Len()
	b.writeByte(byte(Cast))
	b.writeByte(byte(t))
	return addr
}

func (b *Buffer) EmitFunction(sig *library.Signature) int {
	addr := b.Len()
	b.writeByte(byte(FunctionDecl))
	writeSignature(b, sig)
	return addr
}

func (b *Buffer) EmitProperty(p *library.PropertyName, initial value.Value) int {
	addr := b.Len()
	b.writeByte(byte(PropertyDecl))
	writePropertyName(b, p)
	var buf bytes.Buffer
	_ = value.Encode(&buf, initial)
	b.data = append(b.data, buf.Bytes()...)
	return addr
}

func (b *Buffer) EmitSetIndex(name string, stackIndex int32, t value.Type) int {
	addr := b.Len()
	b.writeByte(byte(SetIndex))
	b.writeString(name)
	b.writeInt32(stackIndex)
	b.writeByte(byte(t))
	return addr
}

func (b *Buffer) EmitWait(mode WaitMode, conditionStart uint32) int {
	addr := b.Len()
	b.writeByte(byte(Wait))
	b.writeByte(byte(mode))
	b.writeUint32(conditionStart)
	return addr
}

// EmitLoop writes LoopCount/LoopOver with the loop variable name and a
// placeholder end-of-loop address, returned as patchOffset.
func (b *Buffer) EmitLoop(op Opcode, varName string) (addr int, patchOffset int) {
	addr = b.Len()
	b.writeByte(byte(op))
	b.writeString(varName)
	patchOffset = b.Len()
	b.writeUint32(0)
	return
}

func (b *Buffer) EmitErase(op Opcode, kind TargetKind, name string, id uint64) int {
	addr := b.Len()
	b.writeByte(byte(op))
	b.writeByte(byte(kind))
	if kind == TargetVar {
		b.writeString(name)
	} else {
		b.writeUint64(id)
	}
	return addr
}

func (b *Buffer) EmitIncDec(op Opcode, kind TargetKind, name string, id uint64) int {
	return b.EmitErase(op, kind, name, id)
}

// Decode reads a single instruction starting at pos, returning it
// together with the position of the following instruction.
func Decode(data []byte, pos int) (Instruction, int, error) {
	r := &reader{data: data, pos: pos}
	op := Opcode(r.readByte())
	ins := Instruction{Op: op}
	switch op {
	case NOP, PushTop, PushItr, Pop,
		Add, Subtract, Multiply, Divide, Mod,
		Equals, NotEquals, Less, LessEq, Greater, GreaterEq,
		And, Or, Not, TypeOf,
		Return, ReturnValue, Exit,
		ScopeBegin, ScopeEnd, FrameBegin:
		// no operand

	case PushVal:
		v, err := r.readValue()
		if err != nil {
			return ins, 0, err
		}
		ins.Value = v

	case Jump, JumpTrue, JumpFalse:
		ins.Target = r.readUint32()

	case CallFunc, SetProp, PushProp, EraseProp, ErasePropElem:
		ins.ID = r.readUint64()

	case SetVar, PushVar, PushVarKey, SetVarKey, EraseVar, LibraryDecl:
		ins.Name = r.readString()

	case PushColl, PushList, PopCount:
		ins.Count = r.readUint32()

	case PushPropKeyVal, SetPropKeyVal:
		ins.ID = r.readUint64()

	case Cast:
		ins.ValueType = value.Type(r.readByte())

	case FunctionDecl:
		sig, err := r.readSignature()
		if err != nil {
			return ins, 0, err
		}
		ins.Signature = sig

	case PropertyDecl:
		ins.Property = readPropertyName(r)
		v, err := r.readValue()
		if err != nil {
			return ins, 0, err
		}
		ins.Value = v

	case SetIndex:
		ins.Name = r.readString()
		ins.Index = r.readInt32()
		ins.ValueType = value.Type(r.readByte())

	case Wait:
		ins.WaitMode = WaitMode(r.readByte())
		ins.ConditionStart = r.readUint32()

	case LoopCount, LoopOver:
		ins.Name = r.readString()
		ins.Target = r.readUint32()

	case EraseVarElem, Increment, Decrement:
		ins.Kind = TargetKind(r.readByte())
		if ins.Kind == TargetVar {
			ins.Name = r.readString()
		} else {
			ins.ID = r.readUint64()
		}

	default:
		return ins, 0, opcodeError(op)
	}
	return ins, r.pos, nil
}
