package cst

import "testing"

func TestLexerBasicTokens(t *testing.T) {
	toks := NewLexer("t", "x + 1.5 * foo(\"hi\")").ScanTokens()
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	want := []TokenType{TokIdent, TokPlus, TokFloat, TokStar, TokIdent, TokLParen, TokString, TokRParen, TokEOF}
	if len(types) != len(want) {
		t.Fatalf("got %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("token %d: got %s want %s", i, types[i], want[i])
		}
	}
}

func TestLexerBroadcastOp(t *testing.T) {
	toks := NewLexer("t", "a .+ b").ScanTokens()
	if toks[1].Type != TokDotOp || toks[1].SubOp != TokPlus {
		t.Fatalf("expected broadcast '+' token, got %v", toks[1])
	}
}

func TestParseSimpleFunction(t *testing.T) {
	prog, errs := Parse("t", `fn add(x, y) { return x + y }`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(prog.Decls) != 1 {
		t.Fatalf("expected 1 decl, got %d", len(prog.Decls))
	}
	fd, ok := prog.Decls[0].(*FuncDef)
	if !ok {
		t.Fatalf("expected FuncDef, got %T", prog.Decls[0])
	}
	if fd.Name != "add" || len(fd.Params) != 2 {
		t.Fatalf("unexpected func shape: %+v", fd)
	}
}

func TestParseIfElseAndCalls(t *testing.T) {
	prog, errs := Parse("t", `
if x > 0 {
  println(x)
} else {
  println(-x)
}
`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(prog.Decls) != 1 {
		t.Fatalf("expected 1 top-level decl, got %d", len(prog.Decls))
	}
	if _, ok := prog.Decls[0].(*IfExpr); !ok {
		t.Fatalf("expected IfExpr, got %T", prog.Decls[0])
	}
}

func TestParseArrayAndIndexAndRange(t *testing.T) {
	prog, errs := Parse("t", `a = [1, 2, 3][1:2]`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	assign, ok := prog.Decls[0].(*Assign)
	if !ok {
		t.Fatalf("expected Assign, got %T", prog.Decls[0])
	}
	idx, ok := assign.Value.(*IndexOp)
	if !ok {
		t.Fatalf("expected IndexOp, got %T", assign.Value)
	}
	if _, ok := idx.Index[0].(*RangeExpr); !ok {
		t.Fatalf("expected RangeExpr index, got %T", idx.Index[0])
	}
}

func TestParseStringInterpolation(t *testing.T) {
	prog, errs := Parse("t", `s = "hello $name, ${1 + 2}"`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	assign := prog.Decls[0].(*Assign)
	interp, ok := assign.Value.(*StringInterp)
	if !ok {
		t.Fatalf("expected StringInterp, got %T", assign.Value)
	}
	if len(interp.Parts) == 0 {
		t.Fatalf("expected interpolation parts")
	}
}

func TestParseStructAndDict(t *testing.T) {
	prog, errs := Parse("t", `
struct Point { mut x: Float64, y: Float64 }
p = Point(1.0, 2.0)
d = Dict("a" => 1, "b" => 2)
`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if _, ok := prog.Decls[0].(*StructDef); !ok {
		t.Fatalf("expected StructDef, got %T", prog.Decls[0])
	}
	assign1 := prog.Decls[1].(*Assign)
	if _, ok := assign1.Value.(*StructLit); !ok {
		t.Fatalf("expected StructLit, got %T", assign1.Value)
	}
	assign2 := prog.Decls[2].(*Assign)
	if _, ok := assign2.Value.(*DictLit); !ok {
		t.Fatalf("expected DictLit, got %T", assign2.Value)
	}
}

func TestParseTryCatch(t *testing.T) {
	prog, errs := Parse("t", `
try {
  risky()
} catch e: DivisionByZero, DomainError {
  println(e)
} finally {
  cleanup()
}
`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	tc, ok := prog.Decls[0].(*TryCatch)
	if !ok {
		t.Fatalf("expected TryCatch, got %T", prog.Decls[0])
	}
	if len(tc.Catches) != 1 || len(tc.Catches[0].Kinds) != 2 {
		t.Fatalf("unexpected catch shape: %+v", tc.Catches)
	}
	if tc.Finally == nil {
		t.Fatalf("expected finally block")
	}
}

func TestParseLambdaAndComprehension(t *testing.T) {
	prog, errs := Parse("t", `
sq = fn(x) => x * x
ys = [sq(x) for x in xs if x > 0]
`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	a1 := prog.Decls[0].(*Assign)
	if _, ok := a1.Value.(*LambdaExpr); !ok {
		t.Fatalf("expected LambdaExpr, got %T", a1.Value)
	}
	a2 := prog.Decls[1].(*Assign)
	comp, ok := a2.Value.(*Comprehension)
	if !ok {
		t.Fatalf("expected Comprehension, got %T", a2.Value)
	}
	if comp.Filter == nil {
		t.Fatalf("expected comprehension filter")
	}
}
