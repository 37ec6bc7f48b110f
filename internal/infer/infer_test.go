package infer

import (
	"testing"

	"corelang/internal/errsys"
	"corelang/internal/ir"
	"corelang/internal/types"
	"corelang/internal/value"
)

func sp() errsys.Span { return errsys.Span{} }

func lit(v value.Value) *ir.Literal { return ir.NewLiteral(sp(), v) }

func TestInferLiteralIsConst(t *testing.T) {
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.ExprStmt{Base: ir.NewBase(sp()), X: lit(value.Int64(1))},
	}}}
	tp, errs := Infer(prog, 0)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	stmt := tp.Program.Main.Stmts[0].(*ir.ExprStmt)
	got := tp.TypeOf(stmt.X)
	if got.Kind != types.KindConst {
		t.Fatalf("expected a Const type, got %v", got)
	}
}

func TestInferAssignUpdatesEnvForLaterReference(t *testing.T) {
	x := &ir.Variable{Base: ir.NewBase(sp()), Name: "x"}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.AssignStmt{Base: ir.NewBase(sp()), Target: x, Value: lit(value.Int64(1))},
		&ir.ExprStmt{Base: ir.NewBase(sp()), X: x},
	}}}
	tp, _ := Infer(prog, 0)
	ref := tp.Program.Main.Stmts[1].(*ir.ExprStmt).X
	got := types.DropConst(tp.TypeOf(ref))
	if got.Kind != types.KindConcrete || got.Name != "Int64" {
		t.Fatalf("expected x's second reference to see Int64, got %v", got)
	}
}

func TestInferIfJoinsBranchTypes(t *testing.T) {
	x := &ir.Variable{Base: ir.NewBase(sp()), Name: "x"}
	ifStmt := &ir.IfStmt{
		Base: ir.NewBase(sp()),
		Cond: lit(value.Bool(true)),
		Then: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.AssignStmt{Base: ir.NewBase(sp()), Target: x, Value: lit(value.Int64(1))},
		}},
		Else: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.AssignStmt{Base: ir.NewBase(sp()), Target: x, Value: lit(value.Float64(1.5))},
		}},
	}
	after := &ir.ExprStmt{Base: ir.NewBase(sp()), X: x}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{ifStmt, after}}}

	tp, _ := Infer(prog, 0)
	ref := tp.Program.Main.Stmts[1].(*ir.ExprStmt).X
	got := types.DropConst(tp.TypeOf(ref))
	if got.Kind != types.KindConcrete || got.Name != "Float64" {
		t.Fatalf("expected join(Int64, Float64) = Float64, got %v", got)
	}
}

func TestInferWhileWidensToFixedPoint(t *testing.T) {
	x := &ir.Variable{Base: ir.NewBase(sp()), Name: "x"}
	loop := &ir.WhileStmt{
		Base: ir.NewBase(sp()),
		Cond: lit(value.Bool(true)),
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.AssignStmt{Base: ir.NewBase(sp()), Target: x, Value: &ir.BinaryExpr{
				Base: ir.NewBase(sp()), Op: ir.OpAdd, Left: x, Right: lit(value.Int64(1)),
			}},
		}},
	}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.AssignStmt{Base: ir.NewBase(sp()), Target: x, Value: lit(value.Int64(0))},
		loop,
	}}}
	tp, errs := Infer(prog, 3)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	_ = tp
}

func TestInferIsaNarrowsConditional(t *testing.T) {
	x := &ir.Variable{Base: ir.NewBase(sp()), Name: "x"}
	isaCall := &ir.BuiltinCallExpr{Base: ir.NewBase(sp()), Op: ir.BuiltinIsa, Args: []ir.Arg{
		{Value: x},
		{Value: &ir.Variable{Base: ir.NewBase(sp()), Name: "Int64"}},
	}}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.AssignStmt{Base: ir.NewBase(sp()), Target: x, Value: lit(value.Int64(1))},
		&ir.ExprStmt{Base: ir.NewBase(sp()), X: isaCall},
	}}}
	tp, _ := Infer(prog, 0)
	ref := tp.Program.Main.Stmts[1].(*ir.ExprStmt).X
	got := tp.TypeOf(ref)
	if got.Kind != types.KindConditional {
		t.Fatalf("expected isa() to produce a Conditional type, got %v", got)
	}
}

func TestInferCallResolvesDispatchAndCachesSignature(t *testing.T) {
	fdef := &ir.FuncDefStmt{
		Base:   ir.NewBase(sp()),
		Name:   "double",
		Params: []ir.Param{{Name: "x", TypeName: "Int64"}},
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: &ir.BinaryExpr{
				Base: ir.NewBase(sp()), Op: ir.OpMul,
				Left:  &ir.Variable{Base: ir.NewBase(sp()), Name: "x"},
				Right: lit(value.Int64(2)),
			}},
		}},
	}
	call := &ir.CallExpr{Base: ir.NewBase(sp()), Callee: &ir.Variable{Base: ir.NewBase(sp()), Name: "double"},
		Args: []ir.Arg{{Value: lit(value.Int64(21))}}}
	prog := &ir.Program{
		Functions: []*ir.FuncDefStmt{fdef},
		Main:      &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{&ir.ExprStmt{Base: ir.NewBase(sp()), X: call}}},
	}
	tp, errs := Infer(prog, 0)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	sig, ok := tp.Signatures[fdef]
	if !ok {
		t.Fatalf("expected a cached signature for double")
	}
	if types.DropConst(sig.Return).Name != "Int64" {
		t.Fatalf("expected double's inferred return to be Int64, got %v", sig.Return)
	}
	ref := tp.Program.Main.Stmts[0].(*ir.ExprStmt).X
	if types.DropConst(tp.TypeOf(ref)).Name != "Int64" {
		t.Fatalf("expected the call site's type to be Int64, got %v", tp.TypeOf(ref))
	}
}

func TestInferRecursiveFunctionBreaksOnTop(t *testing.T) {
	var fdef *ir.FuncDefStmt
	selfCall := &ir.CallExpr{Base: ir.NewBase(sp()), Callee: &ir.Variable{Base: ir.NewBase(sp()), Name: "loopy"},
		Args: []ir.Arg{{Value: lit(value.Int64(1))}}}
	fdef = &ir.FuncDefStmt{
		Base:   ir.NewBase(sp()),
		Name:   "loopy",
		Params: []ir.Param{{Name: "n", TypeName: "Int64"}},
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: selfCall},
		}},
	}
	prog := &ir.Program{Functions: []*ir.FuncDefStmt{fdef}, Main: &ir.BlockStmt{Base: ir.NewBase(sp())}}
	tp, errs := Infer(prog, 0)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	sig := tp.Signatures[fdef]
	if !sig.Return.IsTop() {
		t.Fatalf("expected a directly-recursive function's return to widen to Top, got %v", sig.Return)
	}
}

func TestInferRangeInterceptFoldsToLinspace(t *testing.T) {
	call := &ir.CallExpr{
		Base:   ir.NewBase(sp()),
		Callee: &ir.Variable{Base: ir.NewBase(sp()), Name: "range"},
		Args: []ir.Arg{
			{Value: lit(value.Float64(0))},
			{Value: lit(value.Float64(1))},
			{Value: lit(value.Int64(10)), Keyword: "length"},
		},
	}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.ExprStmt{Base: ir.NewBase(sp()), X: call},
	}}}
	tp, _ := Infer(prog, 0)
	rewritten := tp.Program.Main.Stmts[0].(*ir.ExprStmt).X
	bc, ok := rewritten.(*ir.BuiltinCallExpr)
	if !ok || bc.Op != ir.BuiltinLinspace {
		t.Fatalf("expected range(...; length=n) to fold to BuiltinLinspace, got %T", rewritten)
	}
}

func TestInferArrayLiteralJoinsElementTypes(t *testing.T) {
	arr := &ir.ArrayLit{Base: ir.NewBase(sp()), Elems: []ir.Expr{
		lit(value.Int64(1)),
		lit(value.Float64(2.5)),
	}}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.ExprStmt{Base: ir.NewBase(sp()), X: arr},
	}}}
	tp, _ := Infer(prog, 0)
	ref := tp.Program.Main.Stmts[0].(*ir.ExprStmt).X
	got := tp.TypeOf(ref)
	if got.Kind != types.KindConcrete || got.Name != "Array" || len(got.Params) != 1 {
		t.Fatalf("expected Array{Float64}, got %v", got)
	}
	if got.Params[0].Name != "Float64" {
		t.Fatalf("expected the element type to join to Float64, got %v", got.Params[0])
	}
}
