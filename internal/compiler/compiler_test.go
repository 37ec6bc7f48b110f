package compiler

import (
	"testing"

	"corelang/internal/bytecode"
	"corelang/internal/errsys"
	"corelang/internal/infer"
	"corelang/internal/ir"
	"corelang/internal/value"
)

func sp() errsys.Span { return errsys.Span{} }

func lit(v value.Value) *ir.Literal { return ir.NewLiteral(sp(), v) }

func mustInfer(t *testing.T, prog *ir.Program) *infer.TypedProgram {
	t.Helper()
	tp, errs := infer.Infer(prog, 3)
	if len(errs) != 0 {
		t.Fatalf("unexpected inference errors: %v", errs)
	}
	return tp
}

func mustCompile(t *testing.T, prog *ir.Program) *bytecode.Program {
	t.Helper()
	tp := mustInfer(t, prog)
	p, errs := Compile(tp)
	if len(errs) != 0 {
		t.Fatalf("unexpected compile errors: %v", errs)
	}
	return p
}

// instrSize mirrors bytecode/disasm.go's operand-width table: total bytes
// an instruction occupies (the opcode byte plus its operands), so tests can
// walk a code range without mistaking an operand byte for the next opcode.
func instrSize(op bytecode.OpCode) int {
	switch op {
	case bytecode.OpConstant, bytecode.OpMakeFuncRef, bytecode.OpFieldLoad,
		bytecode.OpFieldStore, bytecode.OpIsDefined, bytecode.OpNewTuple, bytecode.OpNewNamedTuple,
		bytecode.OpNewDict, bytecode.OpNewSet, bytecode.OpBroadcastStart, bytecode.OpLoadGlobal,
		bytecode.OpStoreGlobal, bytecode.OpDefineGlobal, bytecode.OpJump, bytecode.OpJumpIfFalse,
		bytecode.OpLoop, bytecode.OpLoadSlot, bytecode.OpStoreSlot, bytecode.OpIncSlotI64,
		bytecode.OpDecSlotI64, bytecode.OpPushTryFrame, bytecode.OpTestAssert, bytecode.OpTestSetBegin,
		bytecode.OpTestThrowsNoThrow, bytecode.OpTestThrowsCaught:
		return 5
	case bytecode.OpCallStatic, bytecode.OpCallDynamic:
		return 7
	case bytecode.OpCallBuiltin, bytecode.OpCallGlobalRef:
		return 6
	case bytecode.OpNewArrayTyped, bytecode.OpNewStruct, bytecode.OpMakeClosure:
		return 9
	case bytecode.OpIndexLoad, bytecode.OpIndexStore, bytecode.OpIndexSlice,
		bytecode.OpCallFunctionVariable, bytecode.OpCallFunctionVariableSplat:
		return 2
	default:
		return 1
	}
}

// walk decodes [start, len(p.Code)) into (offset, op) pairs using instrSize,
// so a test can locate an instruction without risking a false match against
// some earlier instruction's operand byte.
func walk(p *bytecode.Program, start int) []struct {
	Off int
	Op  bytecode.OpCode
} {
	var out []struct {
		Off int
		Op  bytecode.OpCode
	}
	for off := start; off < len(p.Code); {
		op := bytecode.OpCode(p.Code[off])
		out = append(out, struct {
			Off int
			Op  bytecode.OpCode
		}{off, op})
		off += instrSize(op)
	}
	return out
}

func TestCompileLiteralExprStmtPopsItsValue(t *testing.T) {
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.ExprStmt{Base: ir.NewBase(sp()), X: lit(value.Int64(42))},
	}}}
	p := mustCompile(t, prog)

	op := bytecode.OpCode(p.Code[p.MainEntry])
	if op != bytecode.OpConstant {
		t.Fatalf("expected main to open with CONSTANT, got %s", op)
	}
	idx := p.ReadUint32(p.MainEntry + 1)
	if p.Constants[idx].(value.Value) != value.Int64(42) {
		t.Fatalf("expected constant 42, got %v", p.Constants[idx])
	}
	popAt := p.MainEntry + 5
	if bytecode.OpCode(p.Code[popAt]) != bytecode.OpPop {
		t.Fatalf("expected ExprStmt to pop its value, got %s", bytecode.OpCode(p.Code[popAt]))
	}
}

func TestCompileMainEndsWithPushNothingReturn(t *testing.T) {
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp())}}
	p := mustCompile(t, prog)

	last := len(p.Code)
	if bytecode.OpCode(p.Code[last-1]) != bytecode.OpReturn {
		t.Fatalf("expected the last instruction to be RETURN, got %s", bytecode.OpCode(p.Code[last-1]))
	}
	if bytecode.OpCode(p.Code[last-2]) != bytecode.OpPushNothing {
		t.Fatalf("expected a PUSH_NOTHING immediately before the trailing RETURN")
	}
}

func TestCompileFunctionRegistersEntryMatchingDispatchIndex(t *testing.T) {
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
	p := mustCompile(t, prog)

	if len(p.Functions) != 1 {
		t.Fatalf("expected exactly one compiled function, got %d", len(p.Functions))
	}
	fe := p.Functions[0]
	if fe.Name != "double" || fe.NumSlots != 1 {
		t.Fatalf("unexpected function entry: %+v", fe)
	}
	if bytecode.OpCode(p.Code[fe.Entry]) != bytecode.OpLoadSlot {
		t.Fatalf("expected the function body to open with LOAD_SLOT, got %s", bytecode.OpCode(p.Code[fe.Entry]))
	}

	// The call site's argument is a concrete Int64 literal and "double" has
	// exactly one candidate, so it must resolve to a static call naming
	// index 0 directly - no separate identity-to-index translation needed.
	main := walk(p, p.MainEntry)
	if main[0].Op != bytecode.OpConstant {
		t.Fatalf("expected the call's argument to be pushed first, got %s", main[0].Op)
	}
	if main[1].Op != bytecode.OpCallStatic {
		t.Fatalf("expected a fully-concrete single-candidate call to compile to CALL_STATIC, got %s", main[1].Op)
	}
	callOff := main[1].Off
	funcIdx := p.ReadUint32(callOff + 1)
	posArgc := p.Code[callOff+5]
	kwCount := p.Code[callOff+6]
	if funcIdx != 0 || posArgc != 1 || kwCount != 0 {
		t.Fatalf("expected CALL_STATIC 0 pos=1 kw=0, got idx=%d pos=%d kw=%d", funcIdx, posArgc, kwCount)
	}
}

func TestCompileUnresolvedCallCompilesToDynamic(t *testing.T) {
	// "f" has a candidate, so HasAny is true, but the call site's arity
	// doesn't match any of them: Resolve fails and emitDispatchedCall must
	// fall back to CALL_DYNAMIC rather than CALL_STATIC.
	fdef := &ir.FuncDefStmt{
		Base:   ir.NewBase(sp()),
		Name:   "f",
		Params: []ir.Param{{Name: "x", TypeName: "Int64"}},
		Body:   &ir.BlockStmt{Base: ir.NewBase(sp())},
	}
	call := &ir.CallExpr{Base: ir.NewBase(sp()), Callee: &ir.Variable{Base: ir.NewBase(sp()), Name: "f"},
		Args: []ir.Arg{{Value: lit(value.Int64(1))}, {Value: lit(value.Int64(2))}}}
	prog := &ir.Program{
		Functions: []*ir.FuncDefStmt{fdef},
		Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ExprStmt{Base: ir.NewBase(sp()), X: call},
		}},
	}
	p := mustCompile(t, prog)

	seenDynamic := false
	for _, ins := range walk(p, p.MainEntry) {
		if ins.Op == bytecode.OpCallDynamic {
			seenDynamic = true
		}
	}
	if !seenDynamic {
		t.Fatalf("expected an arity-mismatched call against a named function to compile to CALL_DYNAMIC")
	}
}

func TestCompileIfElsePatchesBothJumpTargets(t *testing.T) {
	x := &ir.Variable{Base: ir.NewBase(sp()), Name: "x"}
	ifStmt := &ir.IfStmt{
		Base: ir.NewBase(sp()),
		Cond: lit(value.Bool(true)),
		Then: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.AssignStmt{Base: ir.NewBase(sp()), Target: x, Value: lit(value.Int64(1))},
		}},
		Else: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.AssignStmt{Base: ir.NewBase(sp()), Target: x, Value: lit(value.Int64(2))},
		}},
	}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.AssignStmt{Base: ir.NewBase(sp()), Target: x, Value: lit(value.Int64(0))},
		ifStmt,
	}}}
	p := mustCompile(t, prog)

	// Locate the JUMP_IF_FALSE emitted for the condition and the Then
	// branch's trailing JUMP, and confirm both were patched to a forward
	// target.
	foundCond, foundJump := false, false
	for _, ins := range walk(p, p.MainEntry) {
		switch ins.Op {
		case bytecode.OpJumpIfFalse:
			target := p.ReadUint32(ins.Off + 1)
			if target <= uint32(ins.Off) {
				t.Fatalf("JUMP_IF_FALSE target %d must be forward of %d", target, ins.Off)
			}
			foundCond = true
		case bytecode.OpJump:
			target := p.ReadUint32(ins.Off + 1)
			if target <= uint32(ins.Off) {
				t.Fatalf("JUMP target %d must be forward of %d", target, ins.Off)
			}
			foundJump = true
		}
	}
	if !foundCond || !foundJump {
		t.Fatalf("expected both a conditional and an unconditional jump in the compiled if/else")
	}
}

func TestCompileWhileLoopBackEdgeAndBreakConverge(t *testing.T) {
	x := &ir.Variable{Base: ir.NewBase(sp()), Name: "x"}
	loop := &ir.WhileStmt{
		Base: ir.NewBase(sp()),
		Cond: lit(value.Bool(true)),
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.IfStmt{
				Base: ir.NewBase(sp()),
				Cond: lit(value.Bool(true)),
				Then: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
					&ir.BreakStmt{Base: ir.NewBase(sp())},
				}},
			},
		}},
	}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{loop}}}
	p := mustCompile(t, prog)

	sawLoop := false
	for _, ins := range walk(p, p.MainEntry) {
		if ins.Op != bytecode.OpLoop {
			continue
		}
		target := p.ReadUint32(ins.Off + 1)
		if target >= uint32(ins.Off) {
			t.Fatalf("OpLoop must jump backward, got target %d at offset %d", target, ins.Off)
		}
		sawLoop = true
	}
	if !sawLoop {
		t.Fatalf("expected the while loop to emit a backward OpLoop edge")
	}

	// The loop's exit JUMP_IF_FALSE (the first one emitted) and the break's
	// JUMP must both land on the same offset, just past the back-edge.
	var exitTarget, breakTarget int64 = -1, -1
	for _, ins := range walk(p, p.MainEntry) {
		switch ins.Op {
		case bytecode.OpJumpIfFalse:
			if exitTarget < 0 {
				exitTarget = int64(p.ReadUint32(ins.Off + 1))
			}
		case bytecode.OpJump:
			breakTarget = int64(p.ReadUint32(ins.Off + 1))
		}
	}
	if exitTarget < 0 || exitTarget != breakTarget {
		t.Fatalf("expected the loop exit and the break to converge, got exit=%d break=%d", exitTarget, breakTarget)
	}
}

func TestCompileForEachUsesIteratorProtocol(t *testing.T) {
	arr := &ir.ArrayLit{Base: ir.NewBase(sp()), Elems: []ir.Expr{lit(value.Int64(1)), lit(value.Int64(2))}}
	loop := &ir.ForEachStmt{
		Base: ir.NewBase(sp()),
		Var:  "v",
		Iter: arr,
		Body: &ir.BlockStmt{Base: ir.NewBase(sp())},
	}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{loop}}}
	p := mustCompile(t, prog)

	seenMakeIter, seenIterNext := false, false
	for _, ins := range walk(p, p.MainEntry) {
		switch ins.Op {
		case bytecode.OpMakeIterator:
			seenMakeIter = true
		case bytecode.OpIterNext:
			seenIterNext = true
		}
	}
	if !seenMakeIter || !seenIterNext {
		t.Fatalf("expected foreach to compile via MAKE_ITERATOR/ITER_NEXT, got make=%v next=%v", seenMakeIter, seenIterNext)
	}
}

func TestCompileTryCatchRecordsCatchTableEntry(t *testing.T) {
	tc := &ir.TryCatchStmt{
		Base: ir.NewBase(sp()),
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ExprStmt{Base: ir.NewBase(sp()), X: lit(value.Int64(1))},
		}},
		Catches: []ir.CatchClause{
			{Var: "e", Kinds: []string{"ValueError"}, Body: &ir.BlockStmt{Base: ir.NewBase(sp())}},
		},
	}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{tc}}}
	p := mustCompile(t, prog)

	if len(p.CatchTable) != 1 {
		t.Fatalf("expected exactly one catch-table entry, got %d", len(p.CatchTable))
	}
	entry := p.CatchTable[0]
	if entry.TryStart >= entry.TryEnd {
		t.Fatalf("expected TryStart < TryEnd, got %d..%d", entry.TryStart, entry.TryEnd)
	}
	if len(entry.Handlers) != 1 || entry.Handlers[0].Kinds[0] != "ValueError" || entry.Handlers[0].Var != "e" {
		t.Fatalf("unexpected handler: %+v", entry.Handlers)
	}
	if bytecode.OpCode(p.Code[entry.Handlers[0].HandlerIP]) != bytecode.OpStoreSlot {
		t.Fatalf("expected the handler to open by storing the caught value into e's slot")
	}
}

func TestCompileTestThrowsReusesCatchMachinery(t *testing.T) {
	tt := &ir.TestThrowsStmt{
		Base:        ir.NewBase(sp()),
		Description: "divide by zero throws",
		Kinds:       []string{"ValueError"},
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ExprStmt{Base: ir.NewBase(sp()), X: lit(value.Int64(1))},
		}},
	}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{tt}}}
	p := mustCompile(t, prog)

	if len(p.CatchTable) != 1 {
		t.Fatalf("expected Testthrows to register one catch-table entry, got %d", len(p.CatchTable))
	}
	seenNoThrow, seenCaught := false, false
	for _, ins := range walk(p, p.MainEntry) {
		switch ins.Op {
		case bytecode.OpTestThrowsNoThrow:
			seenNoThrow = true
		case bytecode.OpTestThrowsCaught:
			seenCaught = true
		}
	}
	if !seenNoThrow || !seenCaught {
		t.Fatalf("expected both the no-throw and caught paths to be compiled, got noThrow=%v caught=%v", seenNoThrow, seenCaught)
	}
}

func TestCompileTimedStmtBracketsBodyAndStoresDuration(t *testing.T) {
	timed := &ir.TimedStmt{
		Base: ir.NewBase(sp()),
		Var:  "elapsed",
		Body: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
			&ir.ExprStmt{Base: ir.NewBase(sp()), X: lit(value.Int64(1))},
		}},
	}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{timed}}}
	p := mustCompile(t, prog)

	if bytecode.OpCode(p.Code[p.MainEntry]) != bytecode.OpTimedStart {
		t.Fatalf("expected the timed block to open with TIMED_START, got %s", bytecode.OpCode(p.Code[p.MainEntry]))
	}
	seenEnd := false
	for _, ins := range walk(p, p.MainEntry) {
		if ins.Op == bytecode.OpTimedEnd {
			seenEnd = true
		}
	}
	if !seenEnd {
		t.Fatalf("expected a TIMED_END to follow the body")
	}
}

func TestCompileGotoForwardReferenceIsPatched(t *testing.T) {
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		&ir.GotoStmt{Base: ir.NewBase(sp()), Name: "done"},
		&ir.ExprStmt{Base: ir.NewBase(sp()), X: lit(value.Int64(1))},
		&ir.LabelStmt{Base: ir.NewBase(sp()), Name: "done"},
	}}}
	p := mustCompile(t, prog)

	if bytecode.OpCode(p.Code[p.MainEntry]) != bytecode.OpJump {
		t.Fatalf("expected the goto to compile to JUMP, got %s", bytecode.OpCode(p.Code[p.MainEntry]))
	}
	target := p.ReadUint32(p.MainEntry + 1)
	// The label sits immediately after the skipped ExprStmt (CONSTANT + POP,
	// 6 bytes) following the 5-byte goto jump itself.
	want := uint32(p.MainEntry + 5 + 6)
	if target != want {
		t.Fatalf("expected the forward goto to patch to %d, got %d", want, target)
	}
}

func TestCompileSplatCallUsesCalleeFirstConvention(t *testing.T) {
	call := &ir.CallExpr{
		Base:   ir.NewBase(sp()),
		Callee: &ir.Variable{Base: ir.NewBase(sp()), Name: "f"},
		Args: []ir.Arg{
			{Value: lit(value.Int64(1))},
			{Value: &ir.Variable{Base: ir.NewBase(sp()), Name: "xs"}, Splatted: true},
		},
	}
	assignXs := &ir.AssignStmt{Base: ir.NewBase(sp()),
		Target: &ir.Variable{Base: ir.NewBase(sp()), Name: "xs"},
		Value:  &ir.ArrayLit{Base: ir.NewBase(sp()), Elems: []ir.Expr{lit(value.Int64(1))}},
	}
	prog := &ir.Program{Main: &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{
		assignXs,
		&ir.ExprStmt{Base: ir.NewBase(sp()), X: call},
	}}}
	p := mustCompile(t, prog)

	// "f" has no candidates at all, but the splat argument alone should
	// already force the computed-call path regardless, pushing the callee
	// before any argument/flag pair.
	seenSplatCall := false
	for _, ins := range walk(p, p.MainEntry) {
		if ins.Op == bytecode.OpCallFunctionVariableSplat {
			seenSplatCall = true
			if p.Code[ins.Off+1] != 2 {
				t.Fatalf("expected pairCount=2, got %d", p.Code[ins.Off+1])
			}
		}
	}
	if !seenSplatCall {
		t.Fatalf("expected the splatted call to compile to CALL_FUNC_VAR_SPLAT")
	}
}

func TestCompileStructLiteralUsesRegisteredTypeID(t *testing.T) {
	sdef := &ir.StructDefStmt{
		Base: ir.NewBase(sp()),
		Name: "Point",
		Fields: []ir.StructFieldDecl{
			{Name: "x", TypeName: "Int64"},
			{Name: "y", TypeName: "Int64"},
		},
	}
	sl := &ir.StructLit{Base: ir.NewBase(sp()), TypeName: "Point", Fields: []ir.Expr{
		lit(value.Int64(1)), lit(value.Int64(2)),
	}}
	prog := &ir.Program{
		Structs: []*ir.StructDefStmt{sdef},
		Main:    &ir.BlockStmt{Base: ir.NewBase(sp()), Stmts: []ir.Stmt{&ir.ExprStmt{Base: ir.NewBase(sp()), X: sl}}},
	}
	p := mustCompile(t, prog)

	if len(p.Structs) != 1 {
		t.Fatalf("expected one struct-table entry, got %d", len(p.Structs))
	}
	entry, ok := p.Structs["Point"]
	if !ok || entry.TypeID != 0 || len(entry.Fields) != 2 {
		t.Fatalf("unexpected struct entry: %+v ok=%v", entry, ok)
	}

	seenNewStruct := false
	for _, ins := range walk(p, p.MainEntry) {
		if ins.Op == bytecode.OpNewStruct {
			seenNewStruct = true
			typeID := p.ReadUint32(ins.Off + 1)
			fieldCount := p.ReadUint32(ins.Off + 5)
			if typeID != 0 || fieldCount != 2 {
				t.Fatalf("expected NEW_STRUCT type=0 fields=2, got type=%d fields=%d", typeID, fieldCount)
			}
		}
	}
	if !seenNewStruct {
		t.Fatalf("expected the struct literal to compile to NEW_STRUCT")
	}
}
