package dispatch

import (
	"testing"

	"corelang/internal/errsys"
	"corelang/internal/ir"
	"corelang/internal/types"
)

func fn(name string, index int, params ...ir.Param) *ir.FuncDefStmt {
	_ = index
	return &ir.FuncDefStmt{Base: ir.NewBase(errsys.Span{}), Name: name, Params: params}
}

func TestResolvePicksMoreSpecificMethod(t *testing.T) {
	h := types.NewHierarchy()
	prog := &ir.Program{Functions: []*ir.FuncDefStmt{
		fn("area", 0, ir.Param{Name: "x", TypeName: "Any"}),
		fn("area", 1, ir.Param{Name: "x", TypeName: "Int64"}),
	}}
	table := NewTable(prog)

	f, idx, ok := Resolve(h, table, "area", []*types.Type{types.Concrete("Int64")}, nil)
	if !ok {
		t.Fatalf("expected a match")
	}
	if idx != 1 || f.Params[0].TypeName != "Int64" {
		t.Fatalf("expected the Int64-specialized method to win, got index %d (%s)", idx, f.Params[0].TypeName)
	}
}

func TestResolveTieBreaksOnLaterDefinition(t *testing.T) {
	h := types.NewHierarchy()
	prog := &ir.Program{Functions: []*ir.FuncDefStmt{
		fn("f", 0, ir.Param{Name: "x", TypeName: "Int64"}),
		fn("f", 1, ir.Param{Name: "x", TypeName: "Int64"}),
	}}
	table := NewTable(prog)

	_, idx, ok := Resolve(h, table, "f", []*types.Type{types.Concrete("Int64")}, nil)
	if !ok || idx != 1 {
		t.Fatalf("expected the later-defined duplicate to win, got idx=%d ok=%v", idx, ok)
	}
}

func TestResolveRejectsArityMismatch(t *testing.T) {
	h := types.NewHierarchy()
	prog := &ir.Program{Functions: []*ir.FuncDefStmt{
		fn("f", 0, ir.Param{Name: "x"}),
	}}
	table := NewTable(prog)

	_, _, ok := Resolve(h, table, "f", []*types.Type{types.Top, types.Top}, nil)
	if ok {
		t.Fatalf("expected arity mismatch to reject the candidate")
	}
}

func TestResolveVarargsAcceptsExtraArgs(t *testing.T) {
	h := types.NewHierarchy()
	prog := &ir.Program{Functions: []*ir.FuncDefStmt{
		fn("f", 0, ir.Param{Name: "xs", Splat: true, TypeName: "Int64"}),
	}}
	table := NewTable(prog)

	_, _, ok := Resolve(h, table, "f", []*types.Type{types.Concrete("Int64"), types.Concrete("Int64"), types.Concrete("Int64")}, nil)
	if !ok {
		t.Fatalf("expected a splat parameter to accept 3 args")
	}
}

func TestResolveNoCandidatesFallsThrough(t *testing.T) {
	h := types.NewHierarchy()
	table := NewTable(&ir.Program{})
	_, _, ok := Resolve(h, table, "missing", []*types.Type{types.Top}, nil)
	if ok {
		t.Fatalf("expected no candidates to resolve")
	}
	if _, ok := FallbackBuiltin("sqrt"); !ok {
		t.Fatalf("expected sqrt to be an intrinsic math fallback")
	}
}
