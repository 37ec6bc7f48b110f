package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Start drives an interactive loop over stdin/stdout: one Session lives for
// the whole process, fed one top-level statement range at a time via
// SplitStatements so a pasted multi-statement block evaluates incrementally
// rather than as one opaque chunk.
func Start(seed int64) {
	interactive := isatty.IsTerminal(os.Stdin.Fd())
	sess := NewSession(seed, func(s string) { fmt.Print(s) })
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		if interactive {
			fmt.Print(">>> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "exit" || line == "quit" {
			break
		}
		runInput(sess, line, os.Stdout)
	}
}

// runInput splits input at top-level statement boundaries and evaluates
// each range in turn, printing every result (or error) as it completes.
func runInput(sess *Session, input string, w io.Writer) {
	for _, r := range SplitStatements(input) {
		res := sess.Eval(r.Text)
		fmt.Fprintln(w, res.String())
	}
}
