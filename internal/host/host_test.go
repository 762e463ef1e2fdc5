package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisp-lang/wisp/internal/parser"
	"github.com/wisp-lang/wisp/internal/runtime"
)

func TestCompileFileCompilesSourceOnDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.wisp")
	require.NoError(t, os.WriteFile(path, []byte("set x to 1\n"), 0o644))

	rt := runtime.New()
	buf, warnings, err := CompileFile(rt, path, "host", nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.NotZero(t, buf.Len())
}

func TestSaveAndLoadBytecodeRoundTripsUncompressed(t *testing.T) {
	rt := runtime.New()
	buf, _, err := parser.Compile(rt, "set x to 1\n", "host", nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.wispb")
	require.NoError(t, SaveBytecode(path, buf, false))

	got, err := LoadBytecode(path)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), got.Bytes())
}

func TestSaveAndLoadBytecodeRoundTripsCompressed(t *testing.T) {
	rt := runtime.New()
	buf, _, err := parser.Compile(rt, "set x to 1\n", "host", nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.wispb.gz")
	require.NoError(t, SaveBytecode(path, buf, true))

	got, err := LoadBytecode(path)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), got.Bytes())
}

func TestLexReExportsLexer(t *testing.T) {
	syms, err := Lex("set x to 1\n")
	require.NoError(t, err)
	assert.NotEmpty(t, syms)
}
