// Command lumen is the CLI entry point: run a file, or with no
// arguments drop into an interactive REPL.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"lumen/internal/chunk"
	"lumen/internal/compiler"
	"lumen/internal/interpreter"
	"lumen/internal/repl"
	"lumen/internal/trace"
	"lumen/internal/value"
	"lumen/internal/vm"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	disassemble := flag.Bool("disassemble", false, "dump bytecode disassembly before running")
	showVersion := flag.Bool("version", false, "print version and exit")
	traceDB := flag.String("trace-db", "", "record one row per executed opcode into this SQLite file")
	stats := flag.Bool("stats", false, "print an execution summary after the run")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lumen [options] [file]\n\nOptions:\n")
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  --%s\n\t%s\n", f.Name, f.Usage)
		})
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("lumen %s\n", version)
		return int(interpreter.ExitSuccess)
	}

	args := flag.Args()
	if len(args) > 1 {
		flag.Usage()
		return 2
	}

	if len(args) == 0 {
		repl.Run(os.Stdin, os.Stdout, os.Stdin.Fd(), os.Stdout.Fd())
		return int(interpreter.ExitSuccess)
	}

	return runFile(args[0], *disassemble, *traceDB, *stats)
}

func runFile(path string, disassemble bool, traceDBPath string, printStats bool) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumen: %v\n", err)
		return int(interpreter.ExitRuntimeFail)
	}

	c := compiler.New(string(source))
	fn := c.Compile()
	if c.HadError() {
		for _, msg := range c.Errors() {
			fmt.Fprintln(os.Stderr, msg)
		}
		return int(interpreter.ExitCompileFail)
	}

	if disassemble {
		fn.Chunk.(*chunk.Chunk).DisassembleAll(os.Stdout, path)
		fmt.Fprintln(os.Stdout)
	}

	machine := vm.New(os.Stdout)

	if traceDBPath != "" {
		sink, err := trace.Open(traceDBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lumen: %v\n", err)
			return int(interpreter.ExitRuntimeFail)
		}
		defer sink.Close()
		machine.SetTrace(sink)
	}

	start := time.Now()
	var opCount int64
	if printStats {
		opCount = countOps(fn.Chunk.(*chunk.Chunk))
	}

	runErr := machine.Run(fn)
	elapsed := time.Since(start)

	if runErr != nil {
		if re, ok := runErr.(*vm.RuntimeError); ok {
			fmt.Fprintln(os.Stderr, interpreter.FormatRuntimeError(re))
		} else {
			fmt.Fprintln(os.Stderr, runErr)
		}
		return int(interpreter.ExitRuntimeFail)
	}

	if printStats {
		fmt.Fprintf(os.Stdout, "compiled %s ops, ran in %s\n", humanize.Comma(opCount), elapsed)
	}

	return int(interpreter.ExitSuccess)
}

// countOps sums the instruction count of fn's chunk and every nested
// function chunk in its constant pool, purely for the --stats summary.
func countOps(c *chunk.Chunk) int64 {
	n := int64(c.OpCount())
	for _, constant := range c.Constants {
		if constant.Type != value.Function {
			continue
		}
		if nested, ok := constant.AsFunction().Chunk.(*chunk.Chunk); ok {
			n += countOps(nested)
		}
	}
	return n
}
