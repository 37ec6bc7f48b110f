package bytecode

import (
	"strings"
	"testing"
)

func TestProgramAddFunctionIndexesByNameInDeclarationOrder(t *testing.T) {
	p := NewProgram()
	i0 := p.AddFunction(FuncEntry{Name: "area", Entry: 0, VarargSlot: -1})
	i1 := p.AddFunction(FuncEntry{Name: "area", Entry: 10, VarargSlot: -1})
	if i0 != 0 || i1 != 1 {
		t.Fatalf("expected sequential indices 0,1, got %d,%d", i0, i1)
	}
	fns := p.FunctionsNamed("area")
	if len(fns) != 2 || fns[0].Entry != 0 || fns[1].Entry != 10 {
		t.Fatalf("expected both area entries in declaration order, got %+v", fns)
	}
}

func TestChunkWriteAndPatchUint32(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpJumpIfFalse)
	pos := c.WriteUint32(0)
	c.WriteOp(OpPop)
	target := uint32(c.Len())
	c.PatchUint32(pos, target)

	if got := c.ReadUint32(pos); got != target {
		t.Fatalf("expected patched jump target %d, got %d", target, got)
	}
}

func TestDisassembleRendersConstantAndCallOperands(t *testing.T) {
	p := NewProgram()
	idx := p.AddConstant(int64(42))
	p.WriteOp(OpConstant)
	p.WriteUint32(uint32(idx))
	f := p.AddFunction(FuncEntry{Name: "f", Entry: 0, VarargSlot: -1})
	p.WriteOp(OpCallStatic)
	p.WriteUint32(uint32(f))
	p.WriteByte(1)
	p.WriteByte(0)
	p.WriteOp(OpReturn)

	out := Disassemble(p, "test")
	if out == "" {
		t.Fatalf("expected non-empty disassembly")
	}
	if !strings.Contains(out, "42") {
		t.Fatalf("expected the int64 constant 42 to be rendered, got:\n%s", out)
	}
	if !strings.Contains(out, " 0 pos=1 kw=0") {
		t.Fatalf("expected the static call's operands to be rendered, got:\n%s", out)
	}
}
