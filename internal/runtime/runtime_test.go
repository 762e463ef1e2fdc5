package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisp-lang/wisp/internal/library"
	"github.com/wisp-lang/wisp/internal/value"
)

func TestReadonlyPropertyRejectsSet(t *testing.T) {
	rt := New()
	p := &library.PropertyName{Library: "host", Name: "version", ReadOnly: true}
	require.NoError(t, rt.RegisterProperty(p, value.NewInteger(1)))

	ok := rt.SetProperty(p.Id(), value.NewInteger(2))
	assert.False(t, ok)

	v, found := rt.GetProperty(p.Id())
	require.True(t, found)
	assert.EqualValues(t, 1, v.AsInteger())
}

func TestMutateCollectionPropertyRejectsNonCollection(t *testing.T) {
	rt := New()
	p := &library.PropertyName{Library: "host", Name: "count"}
	require.NoError(t, rt.RegisterProperty(p, value.NewInteger(0)))

	err := rt.MutateCollectionProperty(p.Id(), func(c *value.Coll) error {
		return c.Set(value.NewInteger(1), value.NewInteger(1))
	})
	assert.Error(t, err)
}

// TestCloseBreaksCollectionCycles exercises the resource-lifecycle
// requirement that Runtime shutdown clears every Collection-valued
// property, which is the only mechanism that breaks a cycle rooted at
// a property (no cycle collector is provided).
func TestCloseBreaksCollectionCycles(t *testing.T) {
	rt := New()
	p := &library.PropertyName{Library: "host", Name: "self"}
	c := value.NewColl()
	require.NoError(t, rt.RegisterProperty(p, value.NewCollection(c)))

	// c refers to itself through key "self", a cycle unreachable from
	// anything but the property table.
	require.NoError(t, c.Set(value.NewString("self"), value.NewCollection(c)))
	assert.Equal(t, 1, c.Len())

	rt.Close()
	assert.Equal(t, 0, c.Len())
}

func TestSignatureIdStableAcrossLibraryInstances(t *testing.T) {
	sigA := &library.Signature{
		Parts:   []library.Part{library.NamePart(false, "frob"), library.ParameterPart("x")},
		Library: "LibA",
	}
	sigB := &library.Signature{
		Parts:   []library.Part{library.NamePart(false, "frob"), library.ParameterPart("x")},
		Library: "LibA",
	}
	assert.Equal(t, sigA.Id(), sigB.Id())

	sigC := &library.Signature{
		Parts:   []library.Part{library.NamePart(false, "frob"), library.ParameterPart("x")},
		Library: "LibB",
	}
	assert.NotEqual(t, sigA.Id(), sigC.Id())
}

func TestGetLibraryCreatesOnFirstUse(t *testing.T) {
	rt := New()
	assert.False(t, rt.HasLibrary("math"))
	lib := rt.GetLibrary("math")
	require.NotNil(t, lib)
	assert.True(t, rt.HasLibrary("math"))
}
