package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func types(syms []Symbol) []SymbolType {
	out := make([]SymbolType, len(syms))
	for i, s := range syms {
		out[i] = s.Type
	}
	return out
}

func TestLexSimpleStatement(t *testing.T) {
	syms, err := Lex("set x to 2 + 3 * 4\n")
	require.NoError(t, err)
	require.NotEmpty(t, syms)
	assert.Equal(t, Keyword, syms[0].Type)
	assert.Equal(t, "set", syms[0].Text)
	assert.Equal(t, Identifier, syms[1].Type)
	assert.Equal(t, "x", syms[1].Text)
	assert.Equal(t, Keyword, syms[2].Type)
	assert.Equal(t, "to", syms[2].Text)
	last := syms[len(syms)-1]
	assert.Equal(t, NewLine, last.Type)
}

func TestLexKeywordsAreCaseInsensitive(t *testing.T) {
	syms, err := Lex("SET x To 1\n")
	require.NoError(t, err)
	assert.Equal(t, Keyword, syms[0].Type)
	assert.Equal(t, "set", syms[0].Text)
	assert.Equal(t, Keyword, syms[2].Type)
	assert.Equal(t, "to", syms[2].Text)
}

func TestLexIdentifiersPreserveCase(t *testing.T) {
	syms, err := Lex("set MyVar to 1\n")
	require.NoError(t, err)
	assert.Equal(t, "MyVar", syms[1].Text)
}

func TestLexLineComment(t *testing.T) {
	syms, err := Lex("set x to 1 # trailing comment\nset y to 2\n")
	require.NoError(t, err)
	count := 0
	for _, s := range syms {
		if s.Type == NewLine {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestLexBlockComment(t *testing.T) {
	src := "set x to 1\n---\nthis is ignored\nset y to 2\n---\nset z to 3\n"
	syms, err := Lex(src)
	require.NoError(t, err)
	var idents []string
	for _, s := range syms {
		if s.Type == Identifier {
			idents = append(idents, s.Text)
		}
	}
	assert.Equal(t, []string{"x", "z"}, idents)
}

func TestLexNumberLiterals(t *testing.T) {
	syms, err := Lex("12 3.5 2e3\n")
	require.NoError(t, err)
	require.Len(t, syms, 4)
	assert.Equal(t, IntegerValue, syms[0].Type)
	assert.EqualValues(t, 12, syms[0].IntVal)
	assert.Equal(t, NumberValue, syms[1].Type)
	assert.InDelta(t, 3.5, syms[1].NumVal, 1e-9)
	assert.Equal(t, NumberValue, syms[2].Type)
	assert.InDelta(t, 2000.0, syms[2].NumVal, 1e-9)
}

func TestLexStringEscapes(t *testing.T) {
	syms, err := Lex(`"a\nb\"c"` + "\n")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(syms), 1)
	assert.Equal(t, StringValue, syms[0].Type)
	assert.Equal(t, "a\nb\"c", syms[0].Text)
}

func TestLexUnterminatedStringFails(t *testing.T) {
	_, err := Lex(`"unterminated`)
	require.Error(t, err)
}

func TestLexLineContinuation(t *testing.T) {
	syms, err := Lex("set x to 1 + \\\n2\n")
	require.NoError(t, err)
	newlines := 0
	for _, s := range syms {
		if s.Type == NewLine {
			newlines++
		}
	}
	assert.Equal(t, 1, newlines)
}

func TestStringInterpolationExpandsToConcatenation(t *testing.T) {
	syms, err := Lex(`"count is {x}"` + "\n")
	require.NoError(t, err)
	kinds := types(syms)
	// "count is " + ( x )
	assert.Equal(t, []SymbolType{StringValue, Operator, Special, Identifier, Special, NewLine}, kinds)
	assert.Equal(t, "count is ", syms[0].Text)
	assert.Equal(t, "+", syms[1].Text)
	assert.Equal(t, "x", syms[3].Text)
}
