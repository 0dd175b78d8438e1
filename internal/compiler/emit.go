package compiler

import (
	"lumen/internal/chunk"
	"lumen/internal/value"
)

// emit appends op to the current function's chunk at the line of the
// token just consumed, and returns the operation's index.
func (c *Compiler) emit(op chunk.Operation) int {
	return c.fs.chunk.Emit(op, c.previous.Line)
}

// emitConstant adds v to the chunk's constant pool and emits the
// OpConstant that loads it.
func (c *Compiler) emitConstant(v value.Value) {
	c.fs.chunk.EmitConstant(v, c.previous.Line)
}

// emitJump emits code with a placeholder zero offset and returns its
// index so patchJump can back-fill the real offset once the jump's
// target is known.
func (c *Compiler) emitJump(code chunk.OpCode) int {
	return c.emit(chunk.Operation{Code: code, IntOperand: 0})
}

// patchJump back-fills the operation at idx (previously emitted by
// emitJump) with the distance from just after it to the next operation
// to be emitted, i.e. "jump to here".
func (c *Compiler) patchJump(idx int) {
	op := c.fs.chunk.OpAt(idx)
	op.IntOperand = c.fs.chunk.OpCount() - idx - 1
	c.fs.chunk.PatchOp(idx, op)
}

// emitLoop emits an OpLoop that jumps back to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	loopOpIndex := c.fs.chunk.OpCount()
	offset := loopOpIndex - loopStart + 1
	c.emit(chunk.Operation{Code: chunk.OpLoop, IntOperand: offset})
}
