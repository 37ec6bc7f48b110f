package repl

import (
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// transcript fixtures are txtar archives with one "in/NN" file per
// statement fed to the session in order and one "out" file holding the
// printed side-effect output the whole transcript is expected to produce,
// concatenated. This exercises cross-eval persistence (a global assigned
// in one statement must still resolve by name in a later one, per the
// session's single persistent VM design documented on Session).
var transcripts = []string{
`
-- in/0 --
x = 2 + 2
-- in/1 --
println(x)
-- out --
4
`,
`
-- in/0 --
y = 3
-- in/1 --
y = y + 1
-- in/2 --
println(y)
-- out --
4
`,
}

func TestSessionPersistsGlobalsAcrossEval(t *testing.T) {
	for i, raw := range transcripts {
		ar := txtar.Parse([]byte(raw))
		var ins []string
		var want string
		for _, f := range ar.Files {
			if f.Name == "out" {
				want = strings.TrimRight(string(f.Data), "\n")
				continue
			}
			ins = append(ins, string(f.Data))
		}

		var out strings.Builder
		sess := NewSession(int64(i+1), func(s string) { out.WriteString(s) })
		for _, in := range ins {
			res := sess.Eval(in)
			if len(res.Errors) > 0 {
				t.Fatalf("transcript %d: parse/infer errors on %q: %v", i, in, res.Errors)
			}
			if res.RuntimeErr != nil {
				t.Fatalf("transcript %d: runtime error on %q: %v", i, in, res.RuntimeErr)
			}
		}

		got := strings.TrimRight(out.String(), "\n")
		if got != want {
			t.Fatalf("transcript %d: output = %q, want %q", i, got, want)
		}
	}
}
