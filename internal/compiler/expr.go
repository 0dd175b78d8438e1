package compiler

import (
	"lumen/internal/chunk"
	"lumen/internal/token"
)

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

// parsePrecedence is the heart of the Pratt parser: it consumes one
// prefix expression, then keeps consuming infix operators as long as
// their precedence is at least minPrec, emitting bytecode as it goes.
// canAssign is threaded down so that `=` is only accepted where a
// prefix expression it follows is actually an assignment target (a
// bare identifier at precedence <= precAssignment); `a + b = c` must
// be a compile error rather than silently discarding the `= c`.
func (c *Compiler) parsePrecedence(minPrec precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.errorAtPrevious("Expect expression.")
		return
	}

	canAssign := minPrec <= precAssignment
	prefix(c, canAssign)

	for minPrec <= getRule(c.current.Type).precedence {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.Equal) {
		c.errorAtPrevious("Invalid assignment target.")
	}
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(token.RightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(_ bool) {
	opType := c.previous.Type
	c.parsePrecedence(precUnary)

	switch opType {
	case token.Minus:
		c.emit(chunk.Operation{Code: chunk.OpNegate})
	case token.Bang:
		c.emit(chunk.Operation{Code: chunk.OpNot})
	}
}

func (c *Compiler) binary(_ bool) {
	opType := c.previous.Type
	rule := getRule(opType)
	c.parsePrecedence(rule.precedence.next())

	switch opType {
	case token.Plus:
		c.emit(chunk.Operation{Code: chunk.OpAdd})
	case token.Minus:
		c.emit(chunk.Operation{Code: chunk.OpSubtract})
	case token.Star:
		c.emit(chunk.Operation{Code: chunk.OpMultiply})
	case token.Slash:
		c.emit(chunk.Operation{Code: chunk.OpDivide})
	case token.EqualEqual:
		c.emit(chunk.Operation{Code: chunk.OpEqual})
	case token.BangEqual:
		c.emit(chunk.Operation{Code: chunk.OpEqual})
		c.emit(chunk.Operation{Code: chunk.OpNot})
	case token.Greater:
		c.emit(chunk.Operation{Code: chunk.OpGreater})
	case token.GreaterEqual:
		c.emit(chunk.Operation{Code: chunk.OpLess})
		c.emit(chunk.Operation{Code: chunk.OpNot})
	case token.Less:
		c.emit(chunk.Operation{Code: chunk.OpLess})
	case token.LessEqual:
		c.emit(chunk.Operation{Code: chunk.OpGreater})
		c.emit(chunk.Operation{Code: chunk.OpNot})
	}
}

// and implements short-circuit `and`: if the left operand is falsey we
// jump over the right operand entirely, leaving the falsey left value
// as the result; otherwise we pop it and evaluate the right operand.
func (c *Compiler) and(_ bool) {
	endJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emit(chunk.Operation{Code: chunk.OpPop})
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

// or implements short-circuit `or` by inverting the polarity of and's
// trick: if the left operand is falsey, jump past a second jump that
// would otherwise skip over the right operand; if it's truthy,
// take that second jump directly to the end, short-circuiting.
func (c *Compiler) or(_ bool) {
	elseJump := c.emitJump(chunk.OpJumpIfFalse)
	endJump := c.emitJump(chunk.OpJump)

	c.patchJump(elseJump)
	c.emit(chunk.Operation{Code: chunk.OpPop})

	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Lexeme, canAssign)
}

func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp chunk.OpCode
	slot := c.resolveLocal(c.fs, name)
	isLocal := slot != -1

	if isLocal {
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	} else {
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if canAssign && c.match(token.Equal) {
		c.expression()
		if isLocal {
			c.emit(chunk.Operation{Code: setOp, IntOperand: slot})
		} else {
			c.emit(chunk.Operation{Code: setOp, NameOperand: name})
		}
		return
	}

	if isLocal {
		c.emit(chunk.Operation{Code: getOp, IntOperand: slot})
	} else {
		c.emit(chunk.Operation{Code: getOp, NameOperand: name})
	}
}

func (c *Compiler) call(_ bool) {
	argCount := c.argumentList()
	c.emit(chunk.Operation{Code: chunk.OpCall, IntOperand: argCount})
}

func (c *Compiler) argumentList() int {
	argCount := 0
	if !c.check(token.RightParen) {
		for {
			c.expression()
			if argCount == 255 {
				c.errorAtPrevious("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RightParen, "Expect ')' after arguments.")
	return argCount
}
