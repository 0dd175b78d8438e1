package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/compiler"
	"lumen/internal/vm"
)

func runSource(t *testing.T, source string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	c := compiler.New(source)
	fn := c.Compile()
	require.False(t, c.HadError(), "unexpected compile errors: %v", c.Errors())

	machine := vm.New(&buf)
	err := machine.Run(fn)
	return buf.String(), err
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := runSource(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, err := runSource(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	assert.Equal(t, "foobar\n", out)
}

func TestStringConcatIsAssociative(t *testing.T) {
	left, err := runSource(t, `print ("a" + "b") + "c";`)
	require.NoError(t, err)
	right, err := runSource(t, `print "a" + ("b" + "c");`)
	require.NoError(t, err)
	assert.Equal(t, left, right)
}

func TestDoubleNegationIsIdentity(t *testing.T) {
	out, err := runSource(t, `var n = 7; print -(-n);`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestDoubleNotIsIdentityForBooleans(t *testing.T) {
	out, err := runSource(t, `print !!true;`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestGlobalVariableAssignmentAndReassignment(t *testing.T) {
	out, err := runSource(t, `
		var a = 1;
		a = a + 1;
		print a;
	`)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestBlockScopingDoesNotLeakLocals(t *testing.T) {
	out, err := runSource(t, `
		var a = "outer";
		{
			var a = "inner";
			print a;
		}
		print a;
	`)
	require.NoError(t, err)
	assert.Equal(t, "inner\nouter\n", out)
}

func TestIfElseBranchesTakeTheCorrectPath(t *testing.T) {
	out, err := runSource(t, `
		if (1 < 2) { print "less"; } else { print "not less"; }
		if (2 < 1) { print "less"; } else { print "not less"; }
	`)
	require.NoError(t, err)
	assert.Equal(t, "less\nnot less\n", out)
}

func TestWhileLoopAccumulates(t *testing.T) {
	out, err := runSource(t, `
		var i = 0;
		var sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print sum;
	`)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestForLoopCountsUp(t *testing.T) {
	out, err := runSource(t, `
		for (var i = 0; i < 3; i = i + 1) {
			print i;
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestAndShortCircuitsAndDoesNotEvaluateRight(t *testing.T) {
	out, err := runSource(t, `
		fun boom() { print "should not run"; return true; }
		print false and boom();
	`)
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestOrShortCircuitsAndDoesNotEvaluateRight(t *testing.T) {
	out, err := runSource(t, `
		fun boom() { print "should not run"; return false; }
		print true or boom();
	`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestFunctionCallAndReturn(t *testing.T) {
	out, err := runSource(t, `
		fun add(a, b) { return a + b; }
		print add(3, 4);
	`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestRecursiveFunctionCall(t *testing.T) {
	out, err := runSource(t, `
		fun fib(n) {
			if (n < 2) { return n; }
			return fib(n - 1) + fib(n - 2);
		}
		print fib(10);
	`)
	require.NoError(t, err)
	assert.Equal(t, "55\n", out)
}

func TestFunctionWithoutReturnYieldsNil(t *testing.T) {
	out, err := runSource(t, `
		fun sideEffectOnly() { print "hi"; }
		print sideEffectOnly();
	`)
	require.NoError(t, err)
	assert.Equal(t, "hi\nnil\n", out)
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	_, err := runSource(t, `print nope;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable 'nope'")
}

func TestTypeMismatchInArithmeticIsRuntimeError(t *testing.T) {
	_, err := runSource(t, `print 1 + "a";`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Operands must be two numbers or two strings")
}

func TestDivisionByZeroProducesInfinityNotAnError(t *testing.T) {
	out, err := runSource(t, `print 1 / 0;`)
	require.NoError(t, err)
	assert.Equal(t, "+Inf\n", out)
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	_, err := runSource(t, `
		fun needsTwo(a, b) { return a + b; }
		needsTwo(1);
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected 2 arguments but got 1")
}

func TestClockNativeReturnsANumber(t *testing.T) {
	out, err := runSource(t, `print clock() > 0;`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestGlobalsPersistAcrossRunsOnSameVM(t *testing.T) {
	var buf bytes.Buffer
	machine := vm.New(&buf)

	c1 := compiler.New(`var counter = 1;`)
	fn1 := c1.Compile()
	require.NoError(t, machine.Run(fn1))

	c2 := compiler.New(`counter = counter + 1; print counter;`)
	fn2 := c2.Compile()
	require.NoError(t, machine.Run(fn2))

	assert.Equal(t, "2\n", buf.String())
}

func TestRuntimeErrorTraceNamesCallingFunctions(t *testing.T) {
	_, err := runSource(t, `
		fun inner() { return nope; }
		fun outer() { return inner(); }
		outer();
	`)
	require.Error(t, err)
	re, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	require.NotEmpty(t, re.Trace)
	assert.True(t, strings.Contains(re.Trace[0], "inner"))
}
