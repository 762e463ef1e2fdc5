package runtime

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/value"
)

func TestDecodeRoundTripsSimpleOpcodes(t *testing.T) {
	b := NewBuffer()
	b.EmitSimple(Add)
	b.EmitValue(PushVal, value.NewInteger(42))
	b.EmitName(PushVar, "counter")
	b.EmitRuntimeID(CallFunc, 0x1234)
	b.EmitCount(PushColl, 3)
	b.EmitCast(value.Number)

	data := b.Bytes()
	pos := 0

	ins, next, err := Decode(data, pos)
	require.NoError(t, err)
	assert.Equal(t, Add, ins.Op)
	pos = next

	ins, next, err = Decode(data, pos)
	require.NoError(t, err)
	assert.Equal(t, PushVal, ins.Op)
	assert.EqualValues(t, 42, ins.Value.AsInteger())
	pos = next

	ins, next, err = Decode(data, pos)
	require.NoError(t, err)
	assert.Equal(t, PushVar, ins.Op)
	assert.Equal(t, "counter", ins.Name)
	pos = next

	ins, next, err = Decode(data, pos)
	require.NoError(t, err)
	assert.Equal(t, CallFunc, ins.Op)
	assert.EqualValues(t, 0x1234, ins.ID)
	pos = next

	ins, next, err = Decode(data, pos)
	require.NoError(t, err)
	assert.Equal(t, PushColl, ins.Op)
	assert.EqualValues(t, 3, ins.Count)
	pos = next

	ins, _, err = Decode(data, pos)
	require.NoError(t, err)
	assert.Equal(t, Cast, ins.Op)
	assert.Equal(t, value.Number, ins.ValueType)
}

func TestPatchJumpBackfillsTarget(t *testing.T) {
	b := NewBuffer()
	_, patch := b.EmitJumpPlaceholder(JumpFalse)
	b.EmitSimple(Pop)
	target := uint32(b.Len())
	b.PatchJump(patch, target)

	ins, _, err := Decode(b.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, JumpFalse, ins.Op)
	assert.Equal(t, target, ins.Target)
}

func TestFunctionSignatureRoundTripsThroughBytecode(t *testing.T) {
	sig := &library.Signature{
		Library:    "host",
		Visibility: library.Public,
		Returns:    true,
		Parts: []library.Part{
			library.NamePart(false, "frob"),
			library.TypedParameterPart("x", value.Integer),
			library.NamePart(true, "loudly"),
		},
	}
	wantID := sig.Id()

	b := NewBuffer()
	b.EmitFunction(sig)

	ins, _, err := Decode(b.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, FunctionDecl, ins.Op)
	require.NotNil(t, ins.Signature)
	assert.Equal(t, wantID, ins.Signature.Id())
	assert.Equal(t, "host", ins.Signature.Library)
	assert.True(t, ins.Signature.Returns)
	require.Len(t, ins.Signature.Parts, 3)
	assert.True(t, ins.Signature.Parts[1].HasType)
	assert.Equal(t, value.Integer, ins.Signature.Parts[1].ParamType)
}

func TestPropertyNameRoundTripsThroughBytecode(t *testing.T) {
	p := &library.PropertyName{Library: "host", Name: "ready", ReadOnly: true, Visibility: library.Public}

	b := NewBuffer()
	b.EmitProperty(p, value.NewBoolean(false))

	ins, _, err := Decode(b.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, PropertyDecl, ins.Op)
	assert.Equal(t, p.Id(), ins.Property.Id())
	assert.True(t, ins.Property.ReadOnly)
	assert.False(t, ins.Value.AsBoolean())
}

func TestBufferWriteToRoundTripsThroughReadBuffer(t *testing.T) {
	b := NewBuffer()
	b.EmitValue(PushVal, value.NewInteger(7))
	b.EmitSimple(Pop)

	var out bytes.Buffer
	n, err := b.WriteTo(&out)
	require.NoError(t, err)
	assert.EqualValues(t, out.Len(), n)

	got, err := ReadBuffer(&out)
	require.NoError(t, err)
	assert.Equal(t, b.Header, got.Header)
	assert.Equal(t, b.Bytes(), got.Bytes())
}

func TestReadBufferRejectsBadMagic(t *testing.T) {
	_, err := ReadBuffer(bytes.NewReader(make([]byte, headerSize)))
	assert.Error(t, err)
}

func TestReadBufferRejectsUnsupportedVersion(t *testing.T) {
	b := NewBuffer()
	b.Header.Version = Version + 1
	var out bytes.Buffer
	_, err := b.WriteTo(&out)
	require.NoError(t, err)

	_, err = ReadBuffer(&out)
	assert.Error(t, err)
}
