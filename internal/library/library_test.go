package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisp-lang/wisp/internal/value"
)

func TestSignatureValidRequiresNonOptionalName(t *testing.T) {
	sig := &Signature{Parts: []Part{NamePart(true, "maybe"), ParameterPart("x")}}
	assert.False(t, sig.Valid(), "a signature with only optional Name parts should be invalid")

	sig.Parts = append(sig.Parts, NamePart(false, "required"))
	assert.True(t, sig.Valid())
}

func TestSignatureValidRejectsBareKeyword(t *testing.T) {
	sig := &Signature{Parts: []Part{NamePart(false, "lonely")}}
	assert.False(t, sig.Valid())
}

func TestSignatureIdIgnoresKeywordSpellingAndOrder(t *testing.T) {
	a := &Signature{
		Parts:   []Part{NamePart(false, "frob", "zap"), ParameterPart("x")},
		Library: "lib",
	}
	b := &Signature{
		Parts:   []Part{NamePart(false, "zap", "frob"), ParameterPart("y")},
		Library: "lib",
	}
	assert.Equal(t, a.Id(), b.Id(), "alternative keyword spelling and order must not change identity")
}

func TestSignatureIdDiffersByParamType(t *testing.T) {
	a := &Signature{
		Parts:   []Part{NamePart(false, "set"), TypedParameterPart("x", value.Integer)},
		Library: "lib",
	}
	b := &Signature{
		Parts:   []Part{NamePart(false, "set"), TypedParameterPart("x", value.String)},
		Library: "lib",
	}
	assert.NotEqual(t, a.Id(), b.Id())
}

func TestSignatureIdIgnoresVisibility(t *testing.T) {
	a := &Signature{Parts: []Part{NamePart(false, "frob")}, Library: "lib", Visibility: Public}
	b := &Signature{Parts: []Part{NamePart(false, "frob")}, Library: "lib", Visibility: Local}
	// Valid() isn't relevant here — only Id() is compared, and it must
	// key on canonical form, not Visibility.
	assert.Equal(t, a.Id(), b.Id())
}

func TestPropertyIdIgnoresVisibilityAndReadOnly(t *testing.T) {
	a := &PropertyName{Library: "lib", Name: "count", ReadOnly: true, Visibility: Public}
	b := &PropertyName{Library: "lib", Name: "count", ReadOnly: false, Visibility: Local}
	assert.Equal(t, a.Id(), b.Id())
}

func TestLibraryRegisterFunctionRejectsDuplicateSignature(t *testing.T) {
	lib := New("host")
	sig := &Signature{Parts: []Part{NamePart(false, "frob"), ParameterPart("x")}}
	require.NoError(t, lib.RegisterFunction(sig, &FunctionDef{}))

	dup := &Signature{Parts: []Part{NamePart(false, "frob"), ParameterPart("y")}}
	err := lib.RegisterFunction(dup, &FunctionDef{})
	assert.Error(t, err)
}

func TestLibraryRegisterFunctionRejectsInvalidSignature(t *testing.T) {
	lib := New("host")
	sig := &Signature{Parts: []Part{ParameterPart("x")}}
	err := lib.RegisterFunction(sig, &FunctionDef{})
	assert.Error(t, err)
}

func TestLibraryCandidatesByFirstKeywordIsCaseInsensitive(t *testing.T) {
	lib := New("host")
	sig := &Signature{Parts: []Part{NamePart(false, "Frob"), ParameterPart("x")}}
	require.NoError(t, lib.RegisterFunction(sig, &FunctionDef{}))

	candidates := lib.CandidatesByFirstKeyword("FROB")
	require.Len(t, candidates, 1)
	assert.Same(t, sig, candidates[0].Signature)
}

func TestLibraryMaxPropertyWordsTracksWidestName(t *testing.T) {
	lib := New("host")
	assert.Equal(t, 1, lib.MaxPropertyWords(), "an empty library still bounds lookup to at least one word")

	require.NoError(t, lib.RegisterProperty(&PropertyName{Name: "ready"}))
	assert.Equal(t, 1, lib.MaxPropertyWords())

	require.NoError(t, lib.RegisterProperty(&PropertyName{Name: "max queue depth"}))
	assert.Equal(t, 3, lib.MaxPropertyWords())

	require.NoError(t, lib.RegisterProperty(&PropertyName{Name: "count"}))
	assert.Equal(t, 3, lib.MaxPropertyWords(), "a later, shorter name must not shrink the bound")
}

func TestLibraryRegisterPropertyRejectsDuplicate(t *testing.T) {
	lib := New("host")
	require.NoError(t, lib.RegisterProperty(&PropertyName{Name: "count"}))
	err := lib.RegisterProperty(&PropertyName{Name: "count"})
	assert.Error(t, err)
}

func TestLibraryPropertyByNameIsCaseInsensitive(t *testing.T) {
	lib := New("host")
	p := &PropertyName{Name: "Ready"}
	require.NoError(t, lib.RegisterProperty(p))

	got, ok := lib.PropertyByName("ready")
	require.True(t, ok)
	assert.Same(t, p, got)
}
