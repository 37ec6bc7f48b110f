package vm

import (
	"testing"

	"corelang/internal/bytecode"
	"corelang/internal/compiler"
	"corelang/internal/errsys"
	"corelang/internal/infer"
	"corelang/internal/ir"
	"corelang/internal/value"
)

func sp() errsys.Span { return errsys.Span{} }

func lit(v value.Value) *ir.Literal { return ir.NewLiteral(sp(), v) }

func variable(name string) *ir.Variable { return &ir.Variable{Base: ir.NewBase(sp()), Name: name} }

func mustCompile(t *testing.T, prog *ir.Program) *bytecode.Program {
	t.Helper()
	tp, errs := infer.Infer(prog, 3)
	if len(errs) != 0 {
		t.Fatalf("unexpected inference errors: %v", errs)
	}
	p, cerrs := compiler.Compile(tp)
	if len(cerrs) != 0 {
		t.Fatalf("unexpected compile errors: %v", cerrs)
	}
	return p
}

func mustRun(t *testing.T, prog *ir.Program) value.Value {
	t.Helper()
	p := mustCompile(t, prog)
	v, err := New(p, 1).Run()
	if err != nil {
		t.Fatalf("unexpected runtime error: %s", err)
	}
	return v
}

// A bare arithmetic expression block should run straight through the
// compiled code and return its final value.
func TestRunEvaluatesArithmeticExpression(t *testing.T) {
	expr := &ir.BinaryExpr{
		Base: ir.NewBase(sp()), Op: ir.OpAdd,
		Left:  &ir.BinaryExpr{Base: ir.NewBase(sp()), Op: ir.OpMul, Left: lit(value.Int64(3)), Right: lit(value.Int64(4))},
		Right: lit(value.Int64(5)),
	}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: expr},
	}}}
	got := mustRun(t, prog)
	if got != value.Int64(17) {
		t.Fatalf("expected 3*4+5 = 17, got %v", got)
	}
}

// Two FuncDefStmts sharing a name with different declared parameter types
// exercise multiple dispatch end to end: the call site passes a Float64
// argument, which must resolve to the Float64 overload, not the Int64 one.
func TestRunDispatchesToMostSpecificOverload(t *testing.T) {
	intVersion := &ir.FuncDefStmt{
		Base: ir.NewBase(sp()), Name: "describe",
		Params: []ir.Param{{Name: "x", TypeName: "Int64"}},
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: lit(value.Str("int"))},
		}},
	}
	floatVersion := &ir.FuncDefStmt{
		Base: ir.NewBase(sp()), Name: "describe",
		Params: []ir.Param{{Name: "x", TypeName: "Float64"}},
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: lit(value.Str("float"))},
		}},
	}
	call := &ir.CallExpr{Base: ir.NewBase(sp()), Callee: variable("describe"),
		Args: []ir.Arg{{Value: lit(value.Float64(2.5))}}}
	prog := &ir.Program{
		Functions: []*ir.FuncDefStmt{intVersion, floatVersion},
		Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: call},
		}},
	}
	got := mustRun(t, prog)
	if got != value.Str("float") {
		t.Fatalf("expected the Float64 overload to win, got %v", got)
	}
}

// A while loop accumulating into a local exercises jump/loop-back codegen
// and slot mutation together.
func TestRunWhileLoopAccumulatesIntoLocal(t *testing.T) {
	total := variable("total")
	i := variable("i")
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.AssignStmt{Base: ir.NewBase(sp()), Target: total, Value: lit(value.Int64(0))},
		&ir.AssignStmt{Base: ir.NewBase(sp()), Target: i, Value: lit(value.Int64(1))},
		&ir.WhileStmt{
			Base: ir.NewBase(sp()),
			Cond: &ir.BinaryExpr{Base: ir.NewBase(sp()), Op: ir.OpLe, Left: i, Right: lit(value.Int64(5))},
			Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
				&ir.AssignStmt{Base: ir.NewBase(sp()), Target: total,
					Value: &ir.BinaryExpr{Base: ir.NewBase(sp()), Op: ir.OpAdd, Left: total, Right: i}},
				&ir.AssignStmt{Base: ir.NewBase(sp()), Target: i,
					Value: &ir.BinaryExpr{Base: ir.NewBase(sp()), Op: ir.OpAdd, Left: i, Right: lit(value.Int64(1))}},
			}},
		},
		&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: total},
	}}}
	got := mustRun(t, prog)
	if got != value.Int64(15) {
		t.Fatalf("expected sum 1..5 = 15, got %v", got)
	}
}

// Array literal indexing is 1-based (internal/vm/index.go): a[1] must read
// the first element, not the second.
func TestRunArrayIndexIsOneBased(t *testing.T) {
	arr := &ir.ArrayLit{Base: ir.NewBase(sp()),
		Elems: []ir.Expr{lit(value.Int64(10)), lit(value.Int64(20)), lit(value.Int64(30))}}
	idx := &ir.IndexExpr{Base: ir.NewBase(sp()), Object: arr, Index: []ir.Expr{lit(value.Int64(1))}}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: idx},
	}}}
	got := mustRun(t, prog)
	if got != value.Int64(10) {
		t.Fatalf("expected a[1] to read the first element (10), got %v", got)
	}
}

// A division by zero must surface as a catchable DivisionByZero error
// rather than panicking the VM.
func TestRunDivisionByZeroReturnsCatchableError(t *testing.T) {
	expr := &ir.BinaryExpr{Base: ir.NewBase(sp()), Op: ir.OpDiv, Left: lit(value.Int64(1)), Right: lit(value.Int64(0))}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.ReturnStmt{Base: ir.NewBase(sp()), Value: expr},
	}}}
	p := mustCompile(t, prog)
	_, err := New(p, 1).Run()
	if err == nil {
		t.Fatalf("expected a division-by-zero error")
	}
	if err.Kind != errsys.DivisionByZero || !err.Kind.Catchable() {
		t.Fatalf("expected a catchable DivisionByZero error, got %s", err.Kind)
	}
}
