package value

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, v))
	got, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	return got
}

func TestRoundTripScalars(t *testing.T) {
	cases := []Value{
		NewNull(),
		NewNumber(3.5),
		NewInteger(-14),
		NewBoolean(true),
		NewBoolean(false),
		NewString("hello world"),
		NewValueType(String),
		NewGUID(NewGUIDValue()),
	}
	for _, c := range cases {
		got := roundTrip(t, c)
		assert.True(t, Equal(c, got), "round trip mismatch for %v", c)
	}
}

func TestRoundTripCollectionPreservesOrder(t *testing.T) {
	c := NewColl()
	require.NoError(t, c.Set(NewInteger(2), NewString("b")))
	require.NoError(t, c.Set(NewInteger(1), NewString("a")))
	v := NewCollection(c)

	got := roundTrip(t, v)
	entries := got.AsCollection().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].Key.AsInteger())
	assert.Equal(t, "b", entries[0].Value.AsString())
	assert.Equal(t, int64(1), entries[1].Key.AsInteger())
	assert.Equal(t, "a", entries[1].Value.AsString())
}

func TestCollectionIsReferenceShared(t *testing.T) {
	c := NewColl()
	v1 := NewCollection(c)
	v2 := v1 // value copy of the Value struct itself

	require.NoError(t, c.Set(NewInteger(1), NewString("x")))
	got, found, err := v2.AsCollection().Get(NewInteger(1))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "x", got.AsString())
}

func TestNumericEqualityCoercion(t *testing.T) {
	assert.True(t, Equal(NewInteger(3), NewNumber(3.0)))
	assert.False(t, Equal(NewInteger(3), NewString("3")))
}
