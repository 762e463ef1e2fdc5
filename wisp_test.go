package wisp_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisp-lang/wisp"
)

func TestRuntimeCompileAndExecuteRoundTrip(t *testing.T) {
	rt, err := wisp.New(wisp.DefaultRuntimeConfig(), nil)
	require.NoError(t, err)

	var received []wisp.Value
	err = rt.RegisterFunction("write {value}", "host", wisp.Public, func(args []wisp.Value) (wisp.Value, error) {
		received = append(received, args[0])
		return wisp.Value{}, nil
	})
	require.NoError(t, err)

	sc, warnings, err := rt.Compile("write 1 + 2\n", "host", nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	status := rt.Execute("host", sc)
	assert.Equal(t, wisp.Finished, status)
	require.Len(t, received, 1)
	assert.EqualValues(t, 3, received[0].AsInteger())
}

func TestRuntimeRegisterPropertyAndMutate(t *testing.T) {
	rt, err := wisp.New(wisp.DefaultRuntimeConfig(), nil)
	require.NoError(t, err)

	prop, err := rt.RegisterProperty("count", "host", wisp.Public, false, wisp.Value{})
	require.NoError(t, err)

	ok := rt.SetProperty(prop.Id(), wisp.Value{})
	assert.True(t, ok)

	_, found := rt.GetProperty(prop.Id())
	assert.True(t, found)
}

func TestRuntimeCompileReaderMatchesCompile(t *testing.T) {
	rt, err := wisp.New(wisp.DefaultRuntimeConfig(), nil)
	require.NoError(t, err)

	var received []wisp.Value
	err = rt.RegisterFunction("write {value}", "host", wisp.Public, func(args []wisp.Value) (wisp.Value, error) {
		received = append(received, args[0])
		return wisp.Value{}, nil
	})
	require.NoError(t, err)

	sc, _, err := rt.CompileReader(bytes.NewBufferString("write 5\n"), "host", nil)
	require.NoError(t, err)

	status := rt.Execute("host", sc)
	assert.Equal(t, wisp.Finished, status)
	require.Len(t, received, 1)
}

func TestAllocatorValidateRejectsPartialTriple(t *testing.T) {
	a := wisp.Allocator{Alloc: func(int) ([]byte, error) { return nil, nil }}
	err := a.Validate()
	assert.Error(t, err)
}

func TestAllocatorValidateAcceptsEmptyOrComplete(t *testing.T) {
	assert.NoError(t, wisp.Allocator{}.Validate())

	full := wisp.Allocator{
		Alloc:   func(int) ([]byte, error) { return nil, nil },
		Realloc: func(b []byte, n int) ([]byte, error) { return b, nil },
		Free:    func([]byte) {},
	}
	assert.NoError(t, full.Validate())
}

func TestLoadRuntimeConfigFileMissingFileIsConfigError(t *testing.T) {
	_, err := wisp.LoadRuntimeConfigFile("/nonexistent/wisp.toml")
	assert.Error(t, err)
}
