// Package repl implements lumen's interactive read-compile-run loop,
// sharing one VM across lines the way the teacher's startREPL does so
// globals accumulate as the user types.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-isatty"

	"lumen/internal/compiler"
	"lumen/internal/interpreter"
	"lumen/internal/vm"
)

const version = "0.1.0"

// Run drives the REPL, reading lines from in and writing prompts,
// results and errors to out. It returns once in reaches EOF or the
// user types "exit".
func Run(in io.Reader, out io.Writer, inFd, outFd uintptr) {
	interactive := isatty.IsTerminal(inFd) && isatty.IsTerminal(outFd)

	if interactive {
		fmt.Fprintf(out, "lumen %s\n", version)
		fmt.Fprintln(out, "Type 'exit' to quit.")
	}

	machine := vm.New(out)
	scanner := bufio.NewScanner(in)

	var buffer string
	for {
		if interactive {
			if buffer == "" {
				fmt.Fprint(out, ">>> ")
			} else {
				fmt.Fprint(out, "... ")
			}
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if strings.TrimSpace(line) == "exit" && buffer == "" {
			break
		}
		if strings.TrimSpace(line) == "" && buffer == "" {
			continue
		}

		if buffer == "" {
			buffer = line
		} else {
			buffer += "\n" + line
		}

		if needsMoreInput(buffer) {
			continue
		}

		runLine(machine, buffer, out)
		buffer = ""
	}
}

// needsMoreInput reports whether source has unbalanced braces/parens,
// the signal this REPL uses (in place of noxy's AST-parse-error probe)
// to keep reading lines before handing anything to the compiler: a
// single-pass compiler has no "incomplete input" error of its own, so
// counting delimiters is the simplest correct stand-in.
func needsMoreInput(source string) bool {
	depth := 0
	inString := false
	for i := 0; i < len(source); i++ {
		c := source[i]
		switch {
		case inString:
			if c == '"' && (i == 0 || source[i-1] != '\\') {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{' || c == '(':
			depth++
		case c == '}' || c == ')':
			depth--
		}
	}
	return depth > 0
}

// runLine compiles and executes one (possibly multi-line) chunk of
// input against the shared VM. A bare expression statement is echoed
// back the way a real REPL would, by wrapping it in print(...) the same
// trick the teacher's startREPL performs on its parsed AST — here done
// textually before compilation, since lumen's compiler has no AST to
// rewrite.
func runLine(machine *vm.VM, source string, out io.Writer) {
	trimmed := strings.TrimSpace(source)
	if isBareExpression(trimmed) {
		source = "print " + trimmed + ";"
	}

	c := compiler.New(source)
	fn := c.Compile()
	if c.HadError() {
		for _, msg := range c.Errors() {
			fmt.Fprintln(out, msg)
		}
		return
	}

	if err := machine.Run(fn); err != nil {
		if re, ok := err.(*vm.RuntimeError); ok {
			fmt.Fprintln(out, interpreter.FormatRuntimeError(re))
		} else {
			fmt.Fprintln(out, err)
		}
	}
}

// isBareExpression is a deliberately narrow heuristic: true only for
// input that has no statement keyword and is not already terminated
// with a semicolon, so declarations, prints and control flow pass
// through untouched.
func isBareExpression(trimmed string) bool {
	if trimmed == "" || strings.HasSuffix(trimmed, ";") || strings.HasSuffix(trimmed, "}") {
		return false
	}
	for _, kw := range []string{"var ", "fun ", "print ", "if ", "if(", "while ", "while(", "for ", "for(", "return"} {
		if strings.HasPrefix(trimmed, kw) {
			return false
		}
	}
	return true
}
