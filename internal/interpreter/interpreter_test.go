package interpreter_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/interpreter"
	"lumen/internal/value"
	"lumen/internal/vm"
)

func TestRunExecutesProgramAndPersistsGlobals(t *testing.T) {
	var buf bytes.Buffer
	it := interpreter.New(&buf)

	require.NoError(t, it.Run(`var greeting = "hello";`))
	require.NoError(t, it.Run(`print greeting;`))

	assert.Equal(t, "hello\n", buf.String())
}

func TestRunReturnsCompileErrorWithoutExecuting(t *testing.T) {
	var buf bytes.Buffer
	it := interpreter.New(&buf)

	err := it.Run(`print;`)
	require.Error(t, err)

	compileErr, ok := err.(*interpreter.CompileError)
	require.True(t, ok)
	assert.NotEmpty(t, compileErr.Errors)
	assert.Empty(t, buf.String())
}

func TestRunReturnsRuntimeErrorAfterCompileSucceeds(t *testing.T) {
	var buf bytes.Buffer
	it := interpreter.New(&buf)

	err := it.Run(`print nope;`)
	require.Error(t, err)

	re, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	assert.Contains(t, interpreter.FormatRuntimeError(re), "Undefined variable 'nope'")
}

func TestDefineNativeIsVisibleToCompiledPrograms(t *testing.T) {
	var buf bytes.Buffer
	it := interpreter.New(&buf)

	it.DefineNative("answer", func(args []value.Value) (value.Value, error) {
		return value.NewNumber(42), nil
	})

	require.NoError(t, it.Run(`print answer();`))
	assert.Equal(t, "42\n", buf.String())
}
