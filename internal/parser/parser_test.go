package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/runtime"
	"github.com/wisp-lang/wisp/internal/value"
)

func mustRegisterWrite(t *testing.T, rt *runtime.Runtime, lib string, received *[]value.Value) {
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
}

func compileAndRun(t *testing.T, rt *runtime.Runtime, src string) runtime.Status {
	t.Helper()
	buf, warnings, err := Compile(rt, src, "host", nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	sc, err := runtime.NewScript(rt, buf)
	require.NoError(t, err)
	return sc.Execute()
}

// TestArithmeticLeftToRight reproduces scenario 1: `set x to 2 + 3 * 4`
// then `write x` evaluates strictly left to right (no precedence),
// observing Integer 20, not 14.
func TestArithmeticLeftToRight(t *testing.T) {
	rt := runtime.New()
	var received []value.Value
	mustRegisterWrite(t, rt, "host", &received)

	status := compileAndRun(t, rt, "set x to 2 + 3 * 4\nwrite x\n")
	assert.Equal(t, runtime.Finished, status)
	require.Len(t, received, 1)
	assert.EqualValues(t, 20, received[0].AsInteger())
}

// TestCollectionSubscript reproduces scenario 2: a collection literal
// built from two bracket pairs joined at the top level by a comma,
// subscripted by a variable key.
func TestCollectionSubscript(t *testing.T) {
	rt := runtime.New()
	var received []value.Value
	mustRegisterWrite(t, rt, "host", &received)

	status := compileAndRun(t, rt, "set c to [1, \"a\"], [2, \"b\"]\nwrite c[2]\n")
	assert.Equal(t, runtime.Finished, status)
	require.Len(t, received, 1)
	assert.Equal(t, "b", received[0].AsString())
}

// TestFunctionCallDoublesArgument reproduces scenario 3: a same-script
// function `double {x}` returning `x * 2`, called before the forward
// reference is resolved by the declaration itself.
func TestFunctionCallDoublesArgument(t *testing.T) {
	rt := runtime.New()
	var received []value.Value
	mustRegisterWrite(t, rt, "host", &received)

	src := "" +
		"write double 5\n" +
		"function double {x} returns\n" +
		"return x * 2\n" +
		"end\n"
	status := compileAndRun(t, rt, src)
	assert.Equal(t, runtime.Finished, status)
	require.Len(t, received, 1)
	assert.EqualValues(t, 10, received[0].AsInteger())
}

// TestCountedLoopSum reproduces scenario 4: `loop from i from 1 to 3`
// accumulating a running total.
func TestCountedLoopSum(t *testing.T) {
	rt := runtime.New()
	var received []value.Value
	mustRegisterWrite(t, rt, "host", &received)

	src := "" +
		"set total to 0\n" +
		"loop from i from 1 to 3\n" +
		"set total to total + i\n" +
		"end\n" +
		"write total\n"
	status := compileAndRun(t, rt, src)
	assert.Equal(t, runtime.Finished, status)
	require.Len(t, received, 1)
	assert.EqualValues(t, 6, received[0].AsInteger())
}

// TestIfElseBranches exercises the if/else-if/else jump back-patching.
func TestIfElseBranches(t *testing.T) {
	rt := runtime.New()
	var received []value.Value
	mustRegisterWrite(t, rt, "host", &received)

	src := "" +
		"set x to 2\n" +
		"if x = 1\n" +
		"write \"one\"\n" +
		"else if x = 2\n" +
		"write \"two\"\n" +
		"else\n" +
		"write \"other\"\n" +
		"end\n"
	status := compileAndRun(t, rt, src)
	assert.Equal(t, runtime.Finished, status)
	require.Len(t, received, 1)
	assert.Equal(t, "two", received[0].AsString())
}

// TestBreakExitsInnermostLoop confirms `break` only unwinds the loop
// it lexically sits inside.
func TestBreakExitsInnermostLoop(t *testing.T) {
	rt := runtime.New()
	var received []value.Value
	mustRegisterWrite(t, rt, "host", &received)

	src := "" +
		"set total to 0\n" +
		"loop from i from 1 to 5\n" +
		"if i = 3\n" +
		"break\n" +
		"end\n" +
		"set total to total + i\n" +
		"end\n" +
		"write total\n"
	status := compileAndRun(t, rt, src)
	assert.Equal(t, runtime.Finished, status)
	require.Len(t, received, 1)
	assert.EqualValues(t, 3, received[0].AsInteger())
}

// TestAmbiguousCallAcrossLibraries reproduces scenario 6: two imported
// libraries both define a matching `frob` signature, and an
// unqualified call is rejected as ambiguous while an explicit
// library-prefixed call succeeds.
func TestAmbiguousCallAcrossLibraries(t *testing.T) {
	rt := runtime.New()
	for _, name := range []string{"liba", "libb"} {
		sig := &library.Signature{
			Parts:      []library.Part{library.NamePart(false, "frob"), library.ParameterPart("x")},
			Visibility: library.Public,
			Library:    name,
		}
		require.NoError(t, rt.RegisterFunction(sig, &library.FunctionDef{
			Callback: func(args []value.Value) (value.Value, error) { return value.NewNull(), nil },
		}))
	}

	_, _, err := Compile(rt, "frob 1\n", "host", []string{"liba", "libb"})
	assert.Error(t, err)

	_, _, err = Compile(rt, "liba frob 1\n", "host", []string{"liba", "libb"})
	assert.NoError(t, err)
}

// TestReadonlyPropertyAssignmentRejected confirms a compile-time error
// for reassigning a readonly property.
func TestReadonlyPropertyAssignmentRejected(t *testing.T) {
	rt := runtime.New()
	prop := &library.PropertyName{Visibility: library.Public, ReadOnly: true, Library: "host", Name: "frozen"}
	require.NoError(t, rt.RegisterProperty(prop, value.NewInteger(1)))

	_, _, err := Compile(rt, "set frozen to 2\n", "host", nil)
	assert.Error(t, err)
}

// TestWaitUntilSuspendsAndResumes confirms a `wait until` statement
// suspends the script until its condition holds, resuming across
// multiple Execute calls with a property mutated in between.
func TestWaitUntilSuspendsAndResumes(t *testing.T) {
	rt := runtime.New()
	var received []value.Value
	mustRegisterWrite(t, rt, "host", &received)
	prop := &library.PropertyName{Visibility: library.Public, Library: "host", Name: "ready"}
	require.NoError(t, rt.RegisterProperty(prop, value.NewBoolean(false)))

	buf, _, err := Compile(rt, "wait until ready\nwrite 1\n", "host", nil)
	require.NoError(t, err)
	sc, err := runtime.NewScript(rt, buf)
	require.NoError(t, err)

	status := sc.Execute()
	assert.Equal(t, runtime.Waiting, status)
	assert.Empty(t, received)

	ok := rt.SetProperty(prop.Id(), value.NewBoolean(true))
	require.True(t, ok)

	status = sc.Execute()
	assert.Equal(t, runtime.Finished, status)
	require.Len(t, received, 1)
}
