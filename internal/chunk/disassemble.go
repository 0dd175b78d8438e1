package chunk

import (
	"fmt"
	"io"

	"lumen/internal/value"
)

// Disassemble writes a human-readable listing of c to w, one line per
// operation, prefixed with its index and source line (a "|" repeats the
// previous line instead of restating it). This is the "optional debug
// disassembler" the core spec treats as an external collaborator; it has
// no bearing on compilation or execution.
func (c *Chunk) Disassemble(w io.Writer, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for i := range c.Ops {
		c.disassembleOp(w, i)
	}
}

// DisassembleAll disassembles c and, recursively, every function chunk
// held in its constant pool.
func (c *Chunk) DisassembleAll(w io.Writer, name string) {
	c.Disassemble(w, name)
	for _, constant := range c.Constants {
		if constant.Type != value.Function {
			continue
		}
		fn := constant.AsFunction()
		if fnChunk, ok := fn.Chunk.(*Chunk); ok {
			fmt.Fprintln(w)
			fnChunk.DisassembleAll(w, fn.Name)
		}
	}
}

func (c *Chunk) disassembleOp(w io.Writer, i int) {
	fmt.Fprintf(w, "%04d ", i)
	if i > 0 && c.Lines[i] == c.Lines[i-1] {
		fmt.Fprintf(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[i])
	}

	op := c.Ops[i]
	switch op.Code {
	case OpConstant:
		fmt.Fprintf(w, "%-18s %4d '%s'\n", op.Code, op.IntOperand, c.Constants[op.IntOperand])
	case OpGetGlobal, OpDefineGlobal, OpSetGlobal:
		fmt.Fprintf(w, "%-18s '%s'\n", op.Code, op.NameOperand)
	case OpGetLocal, OpSetLocal, OpCall:
		fmt.Fprintf(w, "%-18s %4d\n", op.Code, op.IntOperand)
	case OpJump, OpJumpIfFalse:
		fmt.Fprintf(w, "%-18s %4d -> %d\n", op.Code, op.IntOperand, i+1+op.IntOperand)
	case OpLoop:
		fmt.Fprintf(w, "%-18s %4d -> %d\n", op.Code, op.IntOperand, i+1-op.IntOperand)
	default:
		fmt.Fprintf(w, "%s\n", op.Code)
	}
}
