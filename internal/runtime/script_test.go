package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/value"
)

func mustRegisterWrite(t *testing.T, rt *Runtime, lib string, received *[]value.Value) *library.Signature {
	t.Helper()
	sig := &library.Signature{
		Parts: []library.Part{
			library.NamePart(false, "write"),
			library.ParameterPart("value"),
		},
		Visibility: library.Public,
		Library:    lib,
	}
	err := rt.RegisterFunction(sig, &library.FunctionDef{
		Callback: func(args []value.Value) (value.Value, error) {
			*received = append(*received, args[0])
			return value.NewNull(), nil
		},
	})
	require.NoError(t, err)
	return sig
}

// TestArithmeticLeftToRight checks that the VM applies arithmetic
// opcodes in the order they were emitted: `2 3 4 * +` (Multiply before
// Add) leaves Integer 14. The compiler emits `2 + 3 * 4` as `2 3 + 4 *`;
// the parser test of the same name covers that order.
func TestArithmeticLeftToRight(t *testing.T) {
	rt := New()
	var received []value.Value
	sig := mustRegisterWrite(t, rt, "host", &received)

	b := NewBuffer()
	b.EmitValue(PushVal, value.NewInteger(2))
	b.EmitValue(PushVal, value.NewInteger(3))
	b.EmitValue(PushVal, value.NewInteger(4))
	b.EmitSimple(Multiply)
	b.EmitSimple(Add)
	b.EmitRuntimeID(CallFunc, sig.Id())
	b.EmitSimple(Exit)

	sc, err := NewScript(rt, b)
	require.NoError(t, err)
	status := sc.Execute()
	assert.Equal(t, Finished, status)
	require.Len(t, received, 1)
	assert.Equal(t, value.Integer, received[0].Tag())
	assert.EqualValues(t, 14, received[0].AsInteger())
}

// TestCollectionSubscript reproduces scenario 2: a collection literal
// `[1, "a"], [2, "b"]` subscripted by `c[2]` yields String "b".
func TestCollectionSubscript(t *testing.T) {
	rt := New()
	var received []value.Value
	sig := mustRegisterWrite(t, rt, "host", &received)

	b := NewBuffer()
	b.EmitValue(PushVal, value.NewInteger(1))
	b.EmitValue(PushVal, value.NewString("a"))
	b.EmitValue(PushVal, value.NewInteger(2))
	b.EmitValue(PushVal, value.NewString("b"))
	b.EmitCount(PushColl, 2)
	b.EmitName(SetVar, "c")
	b.EmitValue(PushVal, value.NewInteger(2))
	b.EmitName(PushVarKey, "c")
	b.EmitRuntimeID(CallFunc, sig.Id())
	b.EmitSimple(Exit)

	sc, err := NewScript(rt, b)
	require.NoError(t, err)
	assert.Equal(t, Finished, sc.Execute())
	require.Len(t, received, 1)
	assert.Equal(t, "b", received[0].AsString())
}

// TestFunctionCallDoublesArgument reproduces scenario 3: a bytecode
// function `double {x}` returning `x * 2`, called as `double 5`.
func TestFunctionCallDoublesArgument(t *testing.T) {
	rt := New()
	var received []value.Value
	writeSig := mustRegisterWrite(t, rt, "host", &received)

	doubleSig := &library.Signature{
		Parts: []library.Part{
			library.NamePart(false, "double"),
			library.ParameterPart("x"),
		},
		Visibility: library.Public,
		Returns:    true,
		Library:    "host",
	}

	b := NewBuffer()
	// set y to double 5
	b.EmitValue(PushVal, value.NewInteger(5))
	callAddr := b.EmitRuntimeID(CallFunc, doubleSig.Id())
	b.EmitName(SetVar, "y")
	b.EmitName(PushVar, "y")
	b.EmitRuntimeID(CallFunc, writeSig.Id())
	endAddr, endPatch := b.EmitJumpPlaceholder(Jump)

	// function double {x} returns ... return x * 2 end
	funcAddr := b.EmitFunction(doubleSig)
	b.EmitSimple(FrameBegin)
	b.EmitSetIndex("x", -1, value.Integer)
	b.EmitName(PushVar, "x")
	b.EmitValue(PushVal, value.NewInteger(2))
	b.EmitSimple(Multiply)
	b.EmitSimple(ReturnValue)

	b.PatchJump(endPatch, uint32(b.Len()))
	b.EmitSimple(Exit)

	require.Greater(t, funcAddr, callAddr)
	_ = endAddr

	sc, err := NewScript(rt, b)
	require.NoError(t, err)
	assert.Equal(t, Finished, sc.Execute())
	require.Len(t, received, 1)
	assert.EqualValues(t, 10, received[0].AsInteger())
}

// TestCountedLoopEmitsInOrder reproduces scenario 4: `loop from i from 1
// to 3 ... write i ... end` observes 1, 2, 3 in order.
func TestCountedLoopEmitsInOrder(t *testing.T) {
	rt := New()
	var received []value.Value
	sig := mustRegisterWrite(t, rt, "host", &received)

	b := NewBuffer()
	b.EmitValue(PushVal, value.NewInteger(1)) // from
	b.EmitValue(PushVal, value.NewInteger(3)) // to
	b.EmitValue(PushVal, value.NewInteger(1)) // by
	loopAddr, loopPatch := b.EmitLoop(LoopCount, "i")
	b.EmitName(PushVar, "i")
	b.EmitRuntimeID(CallFunc, sig.Id())
	_, backPatch := b.EmitJumpPlaceholder(Jump)
	b.PatchJump(backPatch, uint32(loopAddr))
	b.PatchJump(loopPatch, uint32(b.Len()))
	b.EmitSimple(Exit)

	sc, err := NewScript(rt, b)
	require.NoError(t, err)
	assert.Equal(t, Finished, sc.Execute())
	require.Len(t, received, 3)
	assert.EqualValues(t, 1, received[0].AsInteger())
	assert.EqualValues(t, 2, received[1].AsInteger())
	assert.EqualValues(t, 3, received[2].AsInteger())
}

// TestWaitUntilSuspendsThenResumes reproduces scenario 5: `wait until
// ready` suspends on the first Execute and finishes once the host
// flips the `ready` property true between ticks.
func TestWaitUntilSuspendsThenResumes(t *testing.T) {
	rt := New()
	readyProp := &library.PropertyName{Library: "host", Name: "ready"}
	require.NoError(t, rt.RegisterProperty(readyProp, value.NewBoolean(false)))

	b := NewBuffer()
	condAddr := b.Len()
	b.EmitRuntimeID(PushProp, readyProp.Id())
	b.EmitWait(WaitUntil, uint32(condAddr))
	b.EmitSimple(Exit)

	sc, err := NewScript(rt, b)
	require.NoError(t, err)

	assert.Equal(t, Waiting, sc.Execute())
	assert.True(t, rt.SetProperty(readyProp.Id(), value.NewBoolean(true)))
	assert.Equal(t, Finished, sc.Execute())
}

// TestUnknownFunctionIdErrors checks that a CallFunc naming a RuntimeID
// no library has registered sends the script to Errored with an error.
func TestUnknownFunctionIdErrors(t *testing.T) {
	rt := New()
	b := NewBuffer()
	b.EmitRuntimeID(CallFunc, 0xDEADBEEF)
	b.EmitSimple(Exit)

	sc, err := NewScript(rt, b)
	require.NoError(t, err)
	assert.Equal(t, Errored, sc.Execute())
	require.Error(t, sc.Err())
}
