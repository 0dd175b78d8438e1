// Package interpreter glues the compiler and VM together behind one Run
// call. The CLI and REPL drive the compiler and VM themselves and use
// this package for its exit codes and runtime-error formatting.
package interpreter

import (
	"fmt"
	"io"

	"lumen/internal/compiler"
	"lumen/internal/value"
	"lumen/internal/vm"
)

// ExitCode mirrors the sysexits-style convention lumen's CLI reports to
// the shell: 0 on success, 65 on a compile-time error, 70 on a runtime
// error.
type ExitCode int

const (
	ExitSuccess     ExitCode = 0
	ExitCompileFail ExitCode = 65
	ExitRuntimeFail ExitCode = 70
)

// CompileError reports one or more errors collected while compiling a
// program; Error() joins them with newlines, already formatted as
// "[line N] Error ...: message".
type CompileError struct {
	Errors []string
}

func (e *CompileError) Error() string {
	s := ""
	for i, msg := range e.Errors {
		if i > 0 {
			s += "\n"
		}
		s += msg
	}
	return s
}

// Interpreter runs lumen programs against a persistent VM: globals
// defined by one call to Run remain visible to the next, which is what
// lets a REPL accumulate state across lines.
type Interpreter struct {
	VM  *vm.VM
	out io.Writer
}

// New returns an Interpreter that writes program output (via `print`)
// to out.
func New(out io.Writer) *Interpreter {
	return &Interpreter{VM: vm.New(out), out: out}
}

// DefineNative exposes the underlying VM's native-registration hook so
// callers can add domain-specific natives before running any source.
func (it *Interpreter) DefineNative(name string, fn value.NativeFunc) {
	it.VM.DefineNative(name, fn)
}

// Run compiles and executes source. A *CompileError is returned for
// compile-time failures (the caller should exit ExitCompileFail); a
// *vm.RuntimeError is returned for runtime failures (ExitRuntimeFail).
func (it *Interpreter) Run(source string) error {
	c := compiler.New(source)
	fn := c.Compile()
	if c.HadError() {
		return &CompileError{Errors: c.Errors()}
	}
	return it.VM.Run(fn)
}

// FormatRuntimeError renders a runtime error the way lumen prints it to
// stderr: the message, then one "[line N] in NAME()" frame per line of
// the call stack, innermost first ("[line N] in script" for the
// top-level frame).
func FormatRuntimeError(err *vm.RuntimeError) string {
	s := fmt.Sprintf("[Runtime Error] %s", err.Message)
	for _, frame := range err.Trace {
		s += "\n\t" + frame
	}
	return s
}
