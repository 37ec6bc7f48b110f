package ir

import "testing"

// Every BuiltinOp constant must render a real name, not the "builtin?"
// fallback - a variant added to the enum without a matching entry in
// builtinOpNames would otherwise silently print as unknown everywhere
// disassembly or error messages name it.
func TestBuiltinOpNamesCoverEveryVariant(t *testing.T) {
	for op := BuiltinOp(0); op < builtinOpCount; op++ {
		if got := op.String(); got == "builtin?" {
			t.Errorf("BuiltinOp(%d) has no entry in builtinOpNames", op)
		}
	}
}

func TestBuiltinOpNamesAreUnique(t *testing.T) {
	seen := make(map[string]BuiltinOp)
	for op := BuiltinOp(0); op < builtinOpCount; op++ {
		name := op.String()
		if prior, ok := seen[name]; ok {
			t.Errorf("BuiltinOp(%d) and BuiltinOp(%d) both render %q", prior, op, name)
		}
		seen[name] = op
	}
}
