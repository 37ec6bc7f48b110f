package lowering

import (
	"testing"

	"corelang/internal/cst"
	"corelang/internal/ir"
)

func lowerSrc(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, errs := cst.Parse("t", src)
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	out, lerrs := Lower("t", prog)
	if len(lerrs) != 0 {
		t.Fatalf("lowering errors: %v", lerrs)
	}
	return out
}

func TestLowerFuncDef(t *testing.T) {
	prog := lowerSrc(t, `fn add(x, y) { return x + y }`)
	if len(prog.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(prog.Functions))
	}
	fd := prog.Functions[0]
	if fd.Name != "add" || len(fd.Params) != 2 {
		t.Fatalf("unexpected func shape: %+v", fd)
	}
	if len(fd.Body.Stmts) != 1 {
		t.Fatalf("expected 1 body stmt, got %d", len(fd.Body.Stmts))
	}
	ret, ok := fd.Body.Stmts[0].(*ir.ReturnStmt)
	if !ok {
		t.Fatalf("expected ReturnStmt, got %T", fd.Body.Stmts[0])
	}
	bin, ok := ret.Value.(*ir.BinaryExpr)
	if !ok || bin.Op != ir.OpAdd {
		t.Fatalf("expected x+y BinaryExpr, got %+v", ret.Value)
	}
}

func TestLowerDestructureAssign(t *testing.T) {
	prog := lowerSrc(t, `(a, b) = pair`)
	if len(prog.Main.Stmts) != 3 {
		t.Fatalf("expected temp-assign + 2 element assigns, got %d: %+v", len(prog.Main.Stmts), prog.Main.Stmts)
	}
	tmp, ok := prog.Main.Stmts[0].(*ir.AssignStmt)
	if !ok {
		t.Fatalf("expected AssignStmt first, got %T", prog.Main.Stmts[0])
	}
	a1, ok := prog.Main.Stmts[1].(*ir.AssignStmt)
	if !ok {
		t.Fatalf("expected AssignStmt for a, got %T", prog.Main.Stmts[1])
	}
	idx, ok := a1.Value.(*ir.IndexExpr)
	if !ok {
		t.Fatalf("expected indexed read, got %T", a1.Value)
	}
	tmpVar := idx.Object.(*ir.Variable)
	if tmpVar.Name != tmp.Target.(*ir.Variable).Name {
		t.Fatalf("element read does not reference the temp: %s vs %s", tmpVar.Name, tmp.Target.(*ir.Variable).Name)
	}
	lit := idx.Index[0].(*ir.Literal)
	if lit.Value.Int64() != 1 {
		t.Fatalf("expected 1-based index, got %v", lit.Value)
	}
}

func TestLowerNestedFieldAssign(t *testing.T) {
	prog := lowerSrc(t, `a.b.c = 1`)
	if len(prog.Main.Stmts) != 2 {
		t.Fatalf("expected temp-assign + field-assign, got %d", len(prog.Main.Stmts))
	}
	tmp, ok := prog.Main.Stmts[0].(*ir.AssignStmt)
	if !ok {
		t.Fatalf("expected AssignStmt, got %T", prog.Main.Stmts[0])
	}
	if _, ok := tmp.Value.(*ir.FieldExpr); !ok {
		t.Fatalf("expected temp to hold a.b, got %T", tmp.Value)
	}
	fa, ok := prog.Main.Stmts[1].(*ir.FieldAssignStmt)
	if !ok || fa.Field != "c" {
		t.Fatalf("expected field-assign to .c, got %+v", prog.Main.Stmts[1])
	}
}

func TestLowerBroadcastBinary(t *testing.T) {
	prog := lowerSrc(t, `y = a .+ b`)
	assign := prog.Main.Stmts[0].(*ir.AssignStmt)
	call, ok := assign.Value.(*ir.CallExpr)
	if !ok {
		t.Fatalf("expected CallExpr, got %T", assign.Value)
	}
	callee := call.Callee.(*ir.Variable)
	if callee.Name != "materialize" {
		t.Fatalf("expected outer materialize call, got %s", callee.Name)
	}
	inner := call.Args[0].Value.(*ir.CallExpr)
	if inner.Callee.(*ir.Variable).Name != "Broadcasted" {
		t.Fatalf("expected inner Broadcasted call, got %+v", inner.Callee)
	}
}

func TestLowerBroadcastAssignStripsMaterialize(t *testing.T) {
	prog := lowerSrc(t, `dest .= a .+ b`)
	es, ok := prog.Main.Stmts[0].(*ir.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", prog.Main.Stmts[0])
	}
	call := es.X.(*ir.CallExpr)
	if call.Callee.(*ir.Variable).Name != "materialize!" {
		t.Fatalf("expected materialize! call, got %+v", call.Callee)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(call.Args))
	}
	if _, ok := call.Args[1].Value.(*ir.CallExpr); !ok {
		t.Fatalf("expected stripped Broadcasted(...) as 2nd arg, got %T", call.Args[1].Value)
	}
	if v, ok := call.Args[1].Value.(*ir.CallExpr); ok {
		if v.Callee.(*ir.Variable).Name != "Broadcasted" {
			t.Fatalf("expected the inner call to be Broadcasted, got %s", v.Callee.(*ir.Variable).Name)
		}
	}
}

func TestLowerCompoundAssign(t *testing.T) {
	prog := lowerSrc(t, `x += 1`)
	ca, ok := prog.Main.Stmts[0].(*ir.CompoundAssignStmt)
	if !ok || ca.Op != ir.OpAdd {
		t.Fatalf("expected CompoundAssignStmt(+), got %+v", prog.Main.Stmts[0])
	}
}

func TestLowerBuiltinCallRouting(t *testing.T) {
	prog := lowerSrc(t, `println("hi")`)
	es := prog.Main.Stmts[0].(*ir.ExprStmt)
	bc, ok := es.X.(*ir.BuiltinCallExpr)
	if !ok || bc.Op != ir.BuiltinPrintln {
		t.Fatalf("expected BuiltinPrintln call, got %+v", es.X)
	}
}

func TestLowerForRangeVsForEach(t *testing.T) {
	prog := lowerSrc(t, `
for i in 1:10 {
  println(i)
}
for x in xs {
  println(x)
}
`)
	if _, ok := prog.Main.Stmts[0].(*ir.ForStmt); !ok {
		t.Fatalf("expected ForStmt for a range, got %T", prog.Main.Stmts[0])
	}
	if _, ok := prog.Main.Stmts[1].(*ir.ForEachStmt); !ok {
		t.Fatalf("expected ForEachStmt for a generic iterable, got %T", prog.Main.Stmts[1])
	}
}

func TestLowerLambdaHoistsAndCaptures(t *testing.T) {
	prog := lowerSrc(t, `
k = 10
adder = fn(x) => x + k
`)
	assign := prog.Main.Stmts[1].(*ir.AssignStmt)
	lam, ok := assign.Value.(*ir.LambdaLit)
	if !ok {
		t.Fatalf("expected LambdaLit, got %T", assign.Value)
	}
	found := false
	for _, c := range lam.Captures {
		if c == "k" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected capture of k, got %v", lam.Captures)
	}
	if len(prog.Functions) != 1 || prog.Functions[0].Name != lam.HoistAs {
		t.Fatalf("expected the lambda hoisted to a top-level function named %s", lam.HoistAs)
	}
}

func TestLowerQuoteHygieneRenamesLocalsNotEsc(t *testing.T) {
	prog := lowerSrc(t, `
q = quote {
  local = 1
  show(esc(outer), local)
}
`)
	assign := prog.Main.Stmts[0].(*ir.AssignStmt)
	ql, ok := assign.Value.(*ir.QuoteLitExpr)
	if !ok {
		t.Fatalf("expected QuoteLitExpr, got %T", assign.Value)
	}
	let, ok := ql.Constructor.(*ir.LetBlockExpr)
	if !ok {
		t.Fatalf("expected LetBlockExpr body, got %T", ql.Constructor)
	}
	first := let.Body.Stmts[0].(*ir.AssignStmt)
	renamed := first.Target.(*ir.Variable).Name
	if renamed == "local" {
		t.Fatalf("expected 'local' to be gensym-renamed, got unchanged name")
	}
	es := let.Body.Stmts[1].(*ir.ExprStmt)
	call := es.X.(*ir.CallExpr)
	outerArg, ok := call.Args[0].Value.(*ir.Variable)
	if !ok || outerArg.Name != "outer" {
		t.Fatalf("expected esc(outer) to stay 'outer' and unwrapped, got %+v", call.Args[0].Value)
	}
	localArg := call.Args[1].Value.(*ir.Variable)
	if localArg.Name != renamed {
		t.Fatalf("expected 2nd reference to 'local' renamed consistently to %q, got %q", renamed, localArg.Name)
	}
}

func TestLowerStringInterpolation(t *testing.T) {
	prog := lowerSrc(t, `s = "hi $name"`)
	assign := prog.Main.Stmts[0].(*ir.AssignStmt)
	sc, ok := assign.Value.(*ir.StringConcatExpr)
	if !ok {
		t.Fatalf("expected StringConcatExpr, got %T", assign.Value)
	}
	if len(sc.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(sc.Parts))
	}
	if _, ok := sc.Parts[1].(*ir.Variable); !ok {
		t.Fatalf("expected 2nd part to be a variable read, got %T", sc.Parts[1])
	}
}
