package ir

import (
	"strings"
	"testing"

	"corelang/internal/errsys"
	"corelang/internal/value"
)

func sp() errsys.Span { return errsys.Span{File: "t", Line: 1} }

func TestEqualIgnoresSpan(t *testing.T) {
	a := &BinaryExpr{Base: NewBase(sp()), Op: OpAdd, Left: NewLiteral(sp(), value.Int64(1)), Right: NewLiteral(sp(), value.Int64(2))}
	b := &BinaryExpr{Base: NewBase(errsys.Span{File: "other", Line: 99}), Op: OpAdd, Left: NewLiteral(sp(), value.Int64(1)), Right: NewLiteral(sp(), value.Int64(2))}
	if !Equal(a, b) {
		t.Fatalf("expected span-insensitive equality to hold")
	}
}

func TestEqualDetectsDifference(t *testing.T) {
	a := NewLiteral(sp(), value.Int64(1))
	b := NewLiteral(sp(), value.Int64(2))
	if Equal(a, b) {
		t.Fatalf("expected different literals to compare unequal")
	}
}

func TestWalkVisitsChildren(t *testing.T) {
	tree := &BinaryExpr{
		Base:  NewBase(sp()),
		Op:    OpAdd,
		Left:  NewLiteral(sp(), value.Int64(1)),
		Right: &Variable{Base: NewBase(sp()), Name: "x"},
	}
	var names []string
	Inspect(tree, func(n Node) bool {
		switch v := n.(type) {
		case *Variable:
			names = append(names, v.Name)
		}
		return true
	})
	if len(names) != 1 || names[0] != "x" {
		t.Fatalf("expected to find variable x, got %v", names)
	}
}

func TestPrintIncludesStructure(t *testing.T) {
	tree := &IfStmt{
		Base: NewBase(sp()),
		Cond: &Variable{Base: NewBase(sp()), Name: "ok"},
		Then: NewBlock(sp(), []Stmt{&ReturnStmt{Base: NewBase(sp())}}),
	}
	out := Print(tree)
	if out == "" {
		t.Fatalf("expected non-empty print output")
	}
	for _, want := range []string{"IfStmt", "Variable ok", "ReturnStmt"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected print output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestProgramMethodsNamedPreservesOrder(t *testing.T) {
	p := &Program{
		Functions: []*FuncDefStmt{
			{Base: NewBase(sp()), Name: "f", Params: []Param{{Name: "x", TypeName: "Int64"}}},
			{Base: NewBase(sp()), Name: "g"},
			{Base: NewBase(sp()), Name: "f", Params: []Param{{Name: "x", TypeName: "Float64"}}},
		},
	}
	methods := p.MethodsNamed("f")
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods named f, got %d", len(methods))
	}
	if methods[0].Params[0].TypeName != "Int64" || methods[1].Params[0].TypeName != "Float64" {
		t.Fatalf("expected declaration order preserved, got %+v", methods)
	}
}
