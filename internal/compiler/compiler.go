// Package compiler implements lumen's single-pass compiler: a Pratt
// parser that drives the lexer and emits bytecode directly into a Chunk
// as it parses, with no intermediate AST. Jump instructions are emitted
// with placeholder offsets and patched once their target is known.
package compiler

import (
	"fmt"
	"strconv"

	"lumen/internal/chunk"
	"lumen/internal/lexer"
	"lumen/internal/token"
	"lumen/internal/value"
)

type local struct {
	name  string
	depth int // -1 while being declared but not yet initialized
}

type functionType int

const (
	typeFunction functionType = iota
	typeScript
)

// funcState is the per-function compilation context: its own chunk,
// local-variable table and scope-depth counter. Compiling a nested `fun`
// pushes a new funcState whose enclosing field links back to the
// surrounding one, the way a call stack of compiler frames would.
type funcState struct {
	enclosing    *funcState
	function     *value.ObjFunction
	chunk        *chunk.Chunk
	functionType functionType
	locals       []local
	scopeDepth   int
}

// Compiler drives the lexer and emits bytecode in one pass. It has no
// public fields; construct one with New and call Compile.
type Compiler struct {
	lex *lexer.Lexer

	previous token.Token
	current  token.Token

	hadError   bool
	panicMode  bool
	errs       []string

	fs *funcState // the function currently being compiled
}

// New returns a Compiler ready to compile source as a top-level script.
func New(source string) *Compiler {
	c := &Compiler{lex: lexer.New(source)}
	c.fs = &funcState{
		function:     &value.ObjFunction{Name: "main", Arity: 0},
		chunk:        chunk.New(),
		functionType: typeScript,
	}
	return c
}

// HadError reports whether compilation encountered any error.
func (c *Compiler) HadError() bool { return c.hadError }

// Errors returns every error message collected during compilation, one
// per reported error, in source order. Empty when HadError is false.
func (c *Compiler) Errors() []string { return c.errs }

// Compile parses and compiles the whole program, returning the
// synthetic top-level "main" function. The caller must check HadError
// before executing the result — a Function is still returned on error
// so callers that want partial disassembly can inspect it, but it must
// not be run.
func (c *Compiler) Compile() *value.ObjFunction {
	c.advance()
	for !c.match(token.Eof) {
		c.declaration()
	}
	return c.endCompiler()
}

func (c *Compiler) endCompiler() *value.ObjFunction {
	c.emit(chunk.Operation{Code: chunk.OpNil})
	c.emit(chunk.Operation{Code: chunk.OpReturn})

	fn := c.fs.function
	fn.Chunk = c.fs.chunk
	c.fs = c.fs.enclosing
	return fn
}

// --- token stream -----------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.NextToken()
		if c.current.Type != token.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t token.Type) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Type, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// --- error reporting ----------------------------------------------------

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

func (c *Compiler) errorAtPrevious(message string) {
	c.errorAt(c.previous, message)
}

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	where := fmt.Sprintf("at '%s'", tok.Lexeme)
	if tok.Type == token.Eof {
		where = "at end"
	} else if tok.Type == token.Error {
		where = ""
	}

	var msg string
	if where == "" {
		msg = fmt.Sprintf("[line %d] Error: %s", tok.Line, message)
	} else {
		msg = fmt.Sprintf("[line %d] Error %s: %s", tok.Line, where, message)
	}
	c.errs = append(c.errs, msg)
}

func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Type != token.Eof {
		if c.previous.Type == token.Semicolon {
			return
		}
		switch c.current.Type {
		case token.Class, token.Fun, token.Var, token.For, token.If, token.While, token.Print, token.Return:
			return
		}
		c.advance()
	}
}

// --- declarations & statements -----------------------------------------

func (c *Compiler) declaration() {
	switch {
	case c.match(token.Var):
		c.varDeclaration()
	case c.match(token.Fun):
		c.funDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	name := c.parseVariable("Expect variable name.")

	if c.match(token.Equal) {
		c.expression()
	} else {
		c.emit(chunk.Operation{Code: chunk.OpNil})
	}
	c.consume(token.Semicolon, "Expect ';' after variable declaration.")
	c.defineVariable(name)
}

func (c *Compiler) funDeclaration() {
	name := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(typeFunction)
	c.defineVariable(name)
}

func (c *Compiler) function(ft functionType) {
	c.fs = &funcState{
		enclosing:    c.fs,
		function:     &value.ObjFunction{Name: c.previous.Lexeme},
		chunk:        chunk.New(),
		functionType: ft,
	}
	c.beginScope()

	c.consume(token.LeftParen, "Expect '(' after function name.")
	if !c.check(token.RightParen) {
		for {
			c.fs.function.Arity++
			if c.fs.function.Arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramName := c.parseVariable("Expect parameter name.")
			c.defineVariable(paramName)
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RightParen, "Expect ')' after parameters.")
	c.consume(token.LeftBrace, "Expect '{' before function body.")
	c.block()

	fn := c.endCompiler()
	c.emitConstant(value.NewFunction(fn))
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.Print):
		c.printStatement()
	case c.match(token.Return):
		c.returnStatement()
	case c.match(token.If):
		c.ifStatement()
	case c.match(token.While):
		c.whileStatement()
	case c.match(token.For):
		c.forStatement()
	case c.match(token.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after value.")
	c.emit(chunk.Operation{Code: chunk.OpPrint})
}

func (c *Compiler) returnStatement() {
	if c.match(token.Semicolon) {
		c.emit(chunk.Operation{Code: chunk.OpNil})
	} else {
		c.expression()
		c.consume(token.Semicolon, "Expect ';' after return value.")
	}
	c.emit(chunk.Operation{Code: chunk.OpReturn})
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after expression.")
	c.emit(chunk.Operation{Code: chunk.OpPop})
}

// block parses declarations up to (but not including) the closing brace.
// Callers are responsible for beginScope/endScope around it, matching
// function() which wants the braces' scope to coincide with the
// function's own top-level scope rather than nesting an extra one.
func (c *Compiler) block() {
	for !c.check(token.RightBrace) && !c.check(token.Eof) {
		c.declaration()
	}
	c.consume(token.RightBrace, "Expect '}' after block.")
}

func (c *Compiler) ifStatement() {
	c.consume(token.LeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emit(chunk.Operation{Code: chunk.OpPop})
	c.statement()

	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	c.emit(chunk.Operation{Code: chunk.OpPop})

	if c.match(token.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := c.fs.chunk.OpCount()
	c.consume(token.LeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emit(chunk.Operation{Code: chunk.OpPop})
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emit(chunk.Operation{Code: chunk.OpPop})
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(token.Semicolon):
		// no initializer
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.fs.chunk.OpCount()
	exitJump := -1
	if !c.check(token.Semicolon) {
		c.expression()
		c.consume(token.Semicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(chunk.OpJumpIfFalse)
		c.emit(chunk.Operation{Code: chunk.OpPop})
	} else {
		c.advance() // consume the bare ';'
	}

	if !c.check(token.RightParen) {
		bodyJump := c.emitJump(chunk.OpJump)
		incrementStart := c.fs.chunk.OpCount()
		c.expression()
		c.emit(chunk.Operation{Code: chunk.OpPop})
		c.consume(token.RightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.advance() // consume ')'
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emit(chunk.Operation{Code: chunk.OpPop})
	}
	c.endScope()
}

// --- variables -----------------------------------------------------------

func (c *Compiler) parseVariable(errMsg string) string {
	c.consume(token.Identifier, errMsg)
	name := c.previous.Lexeme
	c.declareVariable(name)
	return name
}

// declareVariable registers name as a local if we're inside a scope; at
// scope depth 0 variables are globals, resolved late by name, so there
// is nothing to declare at compile time.
func (c *Compiler) declareVariable(name string) {
	if c.fs.scopeDepth == 0 {
		return
	}

	for i := len(c.fs.locals) - 1; i >= 0; i-- {
		l := c.fs.locals[i]
		if l.depth != -1 && l.depth < c.fs.scopeDepth {
			break
		}
		if l.name == name {
			c.errorAtPrevious("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if len(c.fs.locals) >= 256 {
		c.errorAtPrevious("Too many local variables in function.")
		return
	}
	c.fs.locals = append(c.fs.locals, local{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	if c.fs.scopeDepth == 0 {
		return
	}
	c.fs.locals[len(c.fs.locals)-1].depth = c.fs.scopeDepth
}

// defineVariable makes a declared variable usable: for a local, the
// value already sits on the stack in its slot, so this only flips it
// from "being declared" to initialized. For a global it emits the
// opcode that moves the top-of-stack value into the globals map.
func (c *Compiler) defineVariable(name string) {
	if c.fs.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emit(chunk.Operation{Code: chunk.OpDefineGlobal, NameOperand: name})
}

func (c *Compiler) resolveLocal(fs *funcState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == -1 {
				c.errorAtPrevious("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) beginScope() {
	c.fs.scopeDepth++
}

func (c *Compiler) endScope() {
	c.fs.scopeDepth--
	for len(c.fs.locals) > 0 && c.fs.locals[len(c.fs.locals)-1].depth > c.fs.scopeDepth {
		c.emit(chunk.Operation{Code: chunk.OpPop})
		c.fs.locals = c.fs.locals[:len(c.fs.locals)-1]
	}
}

// --- literal helpers used directly by the pratt table -------------------

func (c *Compiler) number(_ bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.errorAtPrevious("Invalid number literal.")
		return
	}
	c.emitConstant(value.NewNumber(n))
}

func (c *Compiler) string(_ bool) {
	c.emitConstant(value.NewString(c.previous.Lexeme))
}

func (c *Compiler) literal(_ bool) {
	switch c.previous.Type {
	case token.True:
		c.emit(chunk.Operation{Code: chunk.OpTrue})
	case token.False:
		c.emit(chunk.Operation{Code: chunk.OpFalse})
	case token.Nil:
		c.emit(chunk.Operation{Code: chunk.OpNil})
	}
}
