// cmd/corelang/main.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"corelang/internal/aot"
	"corelang/internal/bytecode"
	"corelang/internal/compiler"
	"corelang/internal/cst"
	"corelang/internal/errsys"
	"corelang/internal/infer"
	"corelang/internal/lowering"
	"corelang/internal/repl"
	"corelang/internal/testharness"
	"corelang/internal/vm"
)

const version = "0.1.0"

var buildDate = time.Now()

// commandAliases gives the run/eval/repl/test subcommands short-flag
// aliases for quick invocation.
var commandAliases = map[string]string{
	"r": "run",
	"e": "eval",
	"i": "repl",
	"t": "test",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		startREPL()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--version", "-v", "version":
		printVersion()
	case "repl":
		startREPL()
	case "eval":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: corelang eval <source>")
			os.Exit(1)
		}
		runSource("<eval>", args[1], false, false, false)
	case "run":
		runArgs(args[1:])
	case "test":
		testArgs(args[1:])
	case "--help", "-h", "help":
		printUsage()
	default:
		// Bare "corelang foo.cl" runs the file directly when the first arg
		// isn't a recognized subcommand.
		runArgs(args)
	}
}

func runArgs(args []string) {
	dumpIR, dumpBytecode, optimize := false, false, false
	var file string
	for _, a := range args {
		switch a {
		case "-dump-ir", "--dump-ir":
			dumpIR = true
		case "-dump-bytecode", "--dump-bytecode":
			dumpBytecode = true
		case "-optimize", "--optimize":
			optimize = true
		default:
			file = a
		}
	}
	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: corelang run [-dump-ir] [-dump-bytecode] [-optimize] <file>")
		os.Exit(1)
	}
	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	runSource(file, string(src), dumpIR, dumpBytecode, optimize)
}

func runSource(file, src string, dumpIR, dumpBytecode, optimize bool) {
	bprog := compileOrExit(file, src, dumpIR, dumpBytecode, optimize)
	machine := vm.New(bprog, time.Now().UnixNano())
	machine.SetOutput(func(s string) { fmt.Print(s) })
	if _, rerr := machine.Run(); rerr != nil {
		fmt.Fprintln(os.Stderr, rerr.Error())
		os.Exit(1)
	}
}

// compileOrExit runs the parse/lower/[optimize]/infer/compile pipeline,
// printing diagnostics to os.Stderr and exiting on the first stage that
// fails rather than returning a partial result to its caller.
func compileOrExit(file, src string, dumpIR, dumpBytecode, optimize bool) *bytecode.Program {
	cprog, errs := cst.Parse(file, src)
	if len(errs) > 0 {
		reportErrors(errs)
		os.Exit(1)
	}
	prog, errs := lowering.Lower(file, cprog)
	if len(errs) > 0 {
		reportErrors(errs)
		os.Exit(1)
	}
	if optimize {
		if n := aot.Inline(prog); n > 0 && dumpIR {
			fmt.Fprintf(os.Stderr, "aot: inlined %d call site(s)\n", n)
		}
	}
	widenLimit := 3
	if s := os.Getenv("CORELANG_WIDEN_LIMIT"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			widenLimit = n
		}
	}
	tp, errs := infer.Infer(prog, widenLimit)
	if len(errs) > 0 {
		reportErrors(errs)
		os.Exit(1)
	}
	if dumpIR {
		fmt.Print(dumpSignatures(tp))
	}
	bprog, errs := compiler.Compile(tp)
	if len(errs) > 0 {
		reportErrors(errs)
		os.Exit(1)
	}
	if dumpBytecode {
		fmt.Print(bytecode.Disassemble(bprog, file))
	}
	return bprog
}

func testArgs(args []string) {
	format := "text"
	var file string
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "-format=") || strings.HasPrefix(a, "--format="):
			format = a[strings.Index(a, "=")+1:]
		default:
			file = a
		}
	}
	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: corelang test [-format=text|json|junit] <file>")
		os.Exit(1)
	}
	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	bprog := compileOrExit(file, string(src), false, false, false)
	machine := vm.New(bprog, time.Now().UnixNano())
	machine.SetOutput(func(s string) { fmt.Print(s) })
	if _, rerr := machine.Run(); rerr != nil {
		fmt.Fprintln(os.Stderr, rerr.Error())
		os.Exit(1)
	}

	summary := testharness.Summarize(machine.Results())
	var reporter testharness.Reporter
	switch format {
	case "json":
		reporter = testharness.JSONReporter{}
	case "junit":
		reporter = testharness.JUnitReporter{}
	default:
		reporter = testharness.TextReporter{}
	}
	fmt.Print(reporter.Report(summary))
	if summary.Fail > 0 {
		os.Exit(1)
	}
}

func dumpSignatures(tp *infer.TypedProgram) string {
	out := fmt.Sprintf("== %s functions ==\n", tp.Program.Module)
	for f, sig := range tp.Signatures {
		out += fmt.Sprintf("fn %s(", f.Name)
		for i, p := range sig.Params {
			if i > 0 {
				out += ", "
			}
			out += p.String()
		}
		out += fmt.Sprintf(") -> %s\n", sig.Return)
	}
	return out
}

func reportErrors(errs []*errsys.Error) {
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e.Error())
	}
}

func startREPL() {
	fmt.Println("corelang REPL | type 'exit' to quit")
	repl.Start(time.Now().UnixNano())
}

func printVersion() {
	banner, err := strftime.Format("corelang %Y-%m-%d build", buildDate)
	if err != nil {
		banner = "corelang"
	}
	fmt.Printf("%s (%s)\n", banner, version)
}

func printUsage() {
	fmt.Println(`usage:
  corelang <file>                run a source file
  corelang run [-dump-ir] [-dump-bytecode] <file>
  corelang eval <source>         evaluate an inline expression
  corelang repl                  start an interactive session
  corelang --version`)
}
