package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/chunk"
)

// opCodes extracts just the opcodes from a chunk's operations, the
// shape most of these tests assert against — mirroring the exact
// expected-opcode-sequence style of the original clox-derived test
// suite this compiler's behavior is grounded on.
func opCodes(c *chunk.Chunk) []chunk.OpCode {
	out := make([]chunk.OpCode, len(c.Ops))
	for i, op := range c.Ops {
		out[i] = op.Code
	}
	return out
}

func compileOK(t *testing.T, source string) *chunk.Chunk {
	t.Helper()
	c := New(source)
	fn := c.Compile()
	require.False(t, c.HadError(), "unexpected compile errors: %v", c.Errors())
	return fn.Chunk.(*chunk.Chunk)
}

func TestCompileArithmeticPrecedence(t *testing.T) {
	ch := compileOK(t, "2 * (3 + 2);")
	assert.Equal(t, []chunk.OpCode{
		chunk.OpConstant,
		chunk.OpConstant,
		chunk.OpConstant,
		chunk.OpAdd,
		chunk.OpMultiply,
		chunk.OpPop,
		chunk.OpNil,
		chunk.OpReturn,
	}, opCodes(ch))
}

func TestCompileComparisonOperatorsDesugar(t *testing.T) {
	cases := map[string][]chunk.OpCode{
		"1 != 2;": {chunk.OpConstant, chunk.OpConstant, chunk.OpEqual, chunk.OpNot, chunk.OpPop, chunk.OpNil, chunk.OpReturn},
		"1 <= 2;": {chunk.OpConstant, chunk.OpConstant, chunk.OpGreater, chunk.OpNot, chunk.OpPop, chunk.OpNil, chunk.OpReturn},
		"1 >= 2;": {chunk.OpConstant, chunk.OpConstant, chunk.OpLess, chunk.OpNot, chunk.OpPop, chunk.OpNil, chunk.OpReturn},
	}
	for src, want := range cases {
		ch := compileOK(t, src)
		assert.Equal(t, want, opCodes(ch), "source: %s", src)
	}
}

func TestCompileGlobalVarDeclarationAndUse(t *testing.T) {
	ch := compileOK(t, "var a = 1; print a;")
	ops := opCodes(ch)
	assert.Equal(t, []chunk.OpCode{
		chunk.OpConstant,
		chunk.OpDefineGlobal,
		chunk.OpGetGlobal,
		chunk.OpPrint,
		chunk.OpNil,
		chunk.OpReturn,
	}, ops)
	assert.Equal(t, "a", ch.Ops[1].NameOperand)
	assert.Equal(t, "a", ch.Ops[2].NameOperand)
}

func TestCompileLocalVarUsesSlotNotGlobalOps(t *testing.T) {
	ch := compileOK(t, "{ var a = 1; print a; }")
	ops := opCodes(ch)
	// the declaration's initializer just leaves its value in a's slot;
	// no OpDefineGlobal is emitted, and the read is OpGetLocal slot 0.
	assert.Equal(t, []chunk.OpCode{
		chunk.OpConstant,
		chunk.OpGetLocal,
		chunk.OpPrint,
		chunk.OpPop,
		chunk.OpNil,
		chunk.OpReturn,
	}, ops)
	assert.Equal(t, 0, ch.Ops[1].IntOperand)
}

func TestCompileRedeclarationInSameScopeIsError(t *testing.T) {
	c := New("{ var a = 1; var a = 2; }")
	c.Compile()
	assert.True(t, c.HadError())
	require.NotEmpty(t, c.Errors())
	assert.Contains(t, c.Errors()[0], "Already a variable with this name in this scope.")
}

func TestCompileShadowingInNestedScopeIsAllowed(t *testing.T) {
	c := New("{ var a = 1; { var a = 2; print a; } print a; }")
	c.Compile()
	assert.False(t, c.HadError())
}

func TestCompileIfElseJumpPatching(t *testing.T) {
	ch := compileOK(t, "if (true) { print 1; } else { print 2; }")
	ops := ch.Ops

	thenJumpIdx := 1 // OpTrue@0, OpJumpIfFalse@1
	assert.Equal(t, chunk.OpJumpIfFalse, ops[thenJumpIdx].Code)

	// the jump-if-false must land exactly on the first op of the else
	// branch (after skipping the pop+then-branch+else-jump).
	target := thenJumpIdx + 1 + ops[thenJumpIdx].IntOperand
	assert.Equal(t, chunk.OpPop, ops[target].Code)
}

func TestCompileWhileLoopBranchesBack(t *testing.T) {
	ch := compileOK(t, "var i = 0; while (i < 3) { i = i + 1; }")
	var loopIdx int
	for i, op := range ch.Ops {
		if op.Code == chunk.OpLoop {
			loopIdx = i
			break
		}
	}
	require.NotZero(t, loopIdx)
	target := loopIdx + 1 - ch.Ops[loopIdx].IntOperand
	assert.Equal(t, chunk.OpGetGlobal, ch.Ops[target].Code)
}

func TestCompileAndShortCircuitsViaJumpIfFalse(t *testing.T) {
	ch := compileOK(t, "true and false;")
	ops := opCodes(ch)
	assert.Contains(t, ops, chunk.OpJumpIfFalse)
}

func TestCompileOrShortCircuitsViaJumpIfFalseThenJump(t *testing.T) {
	ch := compileOK(t, "true or false;")
	ops := opCodes(ch)
	require.GreaterOrEqual(t, len(ops), 2)
	assert.Equal(t, chunk.OpJumpIfFalse, ops[1])
	assert.Equal(t, chunk.OpJump, ops[2])
}

func TestCompileFunctionDeclarationEmitsConstantFunction(t *testing.T) {
	ch := compileOK(t, "fun add(a, b) { return a + b; }")
	require.Len(t, ch.Constants, 1)
	fn := ch.Constants[0].AsFunction()
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, 2, fn.Arity)

	body := fn.Chunk.(*chunk.Chunk)
	assert.Equal(t, []chunk.OpCode{
		chunk.OpGetLocal,
		chunk.OpGetLocal,
		chunk.OpAdd,
		chunk.OpReturn,
		chunk.OpNil,
		chunk.OpReturn,
	}, opCodes(body))
}

func TestCompileCallEmitsArgCount(t *testing.T) {
	ch := compileOK(t, "fun f(a, b, c) { return a; } f(1, 2, 3);")
	var callOp chunk.Operation
	for _, op := range ch.Ops {
		if op.Code == chunk.OpCall {
			callOp = op
		}
	}
	assert.Equal(t, 3, callOp.IntOperand)
}

func TestCompileMissingSemicolonIsError(t *testing.T) {
	c := New("print 1")
	c.Compile()
	assert.True(t, c.HadError())
	require.NotEmpty(t, c.Errors())
	assert.Contains(t, c.Errors()[0], "Expect ';'")
}

func TestCompileUnexpectedTokenReportsLineAndLexeme(t *testing.T) {
	c := New("var;\n")
	c.Compile()
	require.True(t, c.HadError())
	assert.Contains(t, c.Errors()[0], "[line 1]")
	assert.Contains(t, c.Errors()[0], "at ';'")
}

func TestCompileSynchronizeRecoversAfterError(t *testing.T) {
	// two independent errors on separate statements should both be
	// reported rather than the second being swallowed by panic mode.
	c := New("var; var;")
	c.Compile()
	assert.Len(t, c.Errors(), 2)
}
