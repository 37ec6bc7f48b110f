package aot

import (
	"testing"

	"corelang/internal/errsys"
	"corelang/internal/ir"
	"corelang/internal/value"
)

func sp() errsys.Span { return errsys.Span{} }
func lit(v value.Value) *ir.Literal { return ir.NewLiteral(sp(), v) }
func variable(name string) *ir.Variable { return &ir.Variable{Base: ir.NewBase(sp()), Name: name} }

func callOf(name string, args ...ir.Expr) *ir.CallExpr {
	as := make([]ir.Arg, len(args))
	for i, a := range args {
		as[i] = ir.Arg{Value: a}
	}
	return &ir.CallExpr{Base: ir.NewBase(sp()), Callee: variable(name), Args: as}
}

// square(x) = x * x; main returns square(5). square has no side effects and
// a trivial single-return body, so Build/AnalyzePurity/Inline should treat
// it as inlinable.
func squareProgram() *ir.Program {
	square := &ir.FuncDefStmt{
		Base: ir.NewBase(sp()), Name: "square",
		Params: []ir.Param{{Name: "x"}},
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ReturnStmt{Base: ir.NewBase(sp()),
				Value: &ir.BinaryExpr{Base: ir.NewBase(sp()), Op: ir.OpMul, Left: variable("x"), Right: variable("x")}},
		}},
	}
	call := callOf("square", lit(value.Int64(5)))
	return &ir.Program{
		Functions: []*ir.FuncDefStmt{square},
		Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: call},
		}},
	}
}

// noisy(x) prints then returns x: impure because of the Println builtin.
func noisyFunc() *ir.FuncDefStmt {
	return &ir.FuncDefStmt{
		Base: ir.NewBase(sp()), Name: "noisy",
		Params: []ir.Param{{Name: "x"}},
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ExprStmt{Base: ir.NewBase(sp()), X: &ir.BuiltinCallExpr{
				Base: ir.NewBase(sp()), Op: ir.BuiltinPrintln, Args: []ir.Arg{{Value: variable("x")}}}},
			&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: variable("x")},
		}},
	}
}

func TestBuildRecordsDirectCallees(t *testing.T) {
	square := squareProgram().Functions[0]
	g := Build(&ir.Program{Functions: []*ir.FuncDefStmt{square}})
	if len(g["square"]) != 0 {
		t.Fatalf("square calls nothing, got callees %v", g["square"])
	}
}

func TestBuildRecordsCallThroughVariableCallee(t *testing.T) {
	caller := &ir.FuncDefStmt{
		Base: ir.NewBase(sp()), Name: "caller",
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: callOf("square", lit(value.Int64(1)))},
		}},
	}
	g := Build(&ir.Program{Functions: []*ir.FuncDefStmt{caller}})
	if !g["caller"]["square"] {
		t.Fatalf("expected caller -> square edge, got %v", g["caller"])
	}
}

func TestAnalyzePurityMarksPrintlnAsImpure(t *testing.T) {
	noisy := noisyFunc()
	report, err := AnalyzePurity(&ir.Program{Functions: []*ir.FuncDefStmt{noisy}})
	if err != nil {
		t.Fatal(err)
	}
	if report["noisy"] {
		t.Fatalf("expected noisy to be impure (calls println)")
	}
}

func TestAnalyzePurityMarksArithmeticAsPure(t *testing.T) {
	square := squareProgram().Functions[0]
	report, err := AnalyzePurity(&ir.Program{Functions: []*ir.FuncDefStmt{square}})
	if err != nil {
		t.Fatal(err)
	}
	if !report["square"] {
		t.Fatalf("expected square to be pure")
	}
}

func TestRecursiveDetectsSelfCall(t *testing.T) {
	fact := &ir.FuncDefStmt{
		Base: ir.NewBase(sp()), Name: "fact",
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: callOf("fact", lit(value.Int64(1)))},
		}},
	}
	g := Build(&ir.Program{Functions: []*ir.FuncDefStmt{fact}})
	if !g.Recursive()["fact"] {
		t.Fatalf("expected fact to be flagged recursive")
	}
}

func TestInlineReplacesTrivialPureCall(t *testing.T) {
	prog := squareProgram()
	n := Inline(prog)
	if n != 1 {
		t.Fatalf("expected exactly one call site inlined, got %d", n)
	}
	ret, ok := prog.Main.Stmts[0].(*ir.ReturnStmt)
	if !ok {
		t.Fatalf("expected main's statement to remain a ReturnStmt")
	}
	if _, ok := ret.Value.(*ir.BinaryExpr); !ok {
		t.Fatalf("expected the call to be replaced by square's body expression, got %T", ret.Value)
	}
}

func TestInlineLeavesImpureCallsAlone(t *testing.T) {
	noisy := noisyFunc()
	prog := &ir.Program{
		Functions: []*ir.FuncDefStmt{noisy},
		Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: callOf("noisy", lit(value.Int64(1)))},
		}},
	}
	n := Inline(prog)
	if n != 0 {
		t.Fatalf("expected no inlining across an impure callee, got %d", n)
	}
	ret := prog.Main.Stmts[0].(*ir.ReturnStmt)
	if _, ok := ret.Value.(*ir.CallExpr); !ok {
		t.Fatalf("expected the call to remain a CallExpr, got %T", ret.Value)
	}
}
