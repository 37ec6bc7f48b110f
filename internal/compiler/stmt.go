package compiler

import (
	"fmt"

	"corelang/internal/bytecode"
	"corelang/internal/ir"
)

// emitBlock compiles every statement of a block in order. Each statement
// leaves the stack exactly as it found it (ExprStmt explicitly pops the
// value its expression produced).
func (c *Compiler) emitBlock(fs *funcScope, b *ir.BlockStmt) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		c.emitStmt(fs, s)
	}
}

func (c *Compiler) emitStmt(fs *funcScope, s ir.Stmt) {
	switch n := s.(type) {
	case *ir.ExprStmt:
		c.emitExpr(fs, n.X)
		c.prog.WriteOp(bytecode.OpPop)

	case *ir.AssignStmt:
		c.emitExpr(fs, n.Value)
		c.emitAssignTo(fs, n.Target)

	case *ir.CompoundAssignStmt:
		c.emitCompoundAssign(fs, n)

	case *ir.IndexAssignStmt:
		c.emitExpr(fs, n.Object)
		c.emitExpr(fs, n.Value)
		for _, ix := range n.Index {
			c.emitExpr(fs, ix)
		}
		c.prog.WriteOp(bytecode.OpIndexStore)
		c.prog.WriteByte(byte(len(n.Index)))

	case *ir.FieldAssignStmt:
		c.emitExpr(fs, n.Object)
		c.emitExpr(fs, n.Value)
		idx := c.nameConst(n.Field)
		c.prog.WriteOp(bytecode.OpFieldStore)
		c.prog.WriteUint32(uint32(idx))

	case *ir.DictAssignStmt:
		c.emitExpr(fs, n.Object)
		c.emitExpr(fs, n.Value)
		c.emitExpr(fs, n.Key)
		c.prog.WriteOp(bytecode.OpIndexStore)
		c.prog.WriteByte(1)

	case *ir.DestructureAssignStmt:
		c.emitExpr(fs, n.Value)
		for i, t := range n.Targets {
			c.prog.WriteOp(bytecode.OpDup)
			idxConst := c.prog.AddConstant(int64(i))
			c.prog.WriteOp(bytecode.OpConstant)
			c.prog.WriteUint32(uint32(idxConst))
			c.prog.WriteOp(bytecode.OpIndexLoad)
			c.prog.WriteByte(1)
			c.emitAssignTo(fs, t)
		}
		c.prog.WriteOp(bytecode.OpPop)

	case *ir.ReturnStmt:
		if n.Value != nil {
			c.emitExpr(fs, n.Value)
		} else {
			c.prog.WriteOp(bytecode.OpPushNothing)
		}
		c.prog.WriteOp(bytecode.OpReturn)

	case *ir.BreakStmt:
		c.emitBreak(fs, n.Label)

	case *ir.ContinueStmt:
		c.emitContinue(fs, n.Label)

	case *ir.IfStmt:
		c.emitExpr(fs, n.Cond)
		elseJump := c.emitJump(bytecode.OpJumpIfFalse)
		c.emitBlock(fs, n.Then)
		if n.Else != nil {
			endJump := c.emitJump(bytecode.OpJump)
			c.patchJump(elseJump)
			c.emitBlock(fs, n.Else)
			c.patchJump(endJump)
		} else {
			c.patchJump(elseJump)
		}

	case *ir.WhileStmt:
		loopStart := c.prog.Len()
		c.emitExpr(fs, n.Cond)
		exitJump := c.emitJump(bytecode.OpJumpIfFalse)
		fs.pushLoop(n.Label, loopStart)
		c.emitBlock(fs, n.Body)
		l := fs.popLoop()
		c.emitLoop(loopStart)
		c.patchJump(exitJump)
		for _, bj := range l.breakJumps {
			c.patchJump(bj)
		}

	case *ir.ForStmt:
		slot := fs.slotFor(n.Var)
		c.emitForEachCore(fs, n.Label, n.Iter, func() {
			c.prog.WriteOp(bytecode.OpStoreSlot)
			c.prog.WriteUint32(uint32(slot))
		}, n.Body)

	case *ir.ForEachStmt:
		slot := fs.slotFor(n.Var)
		c.emitForEachCore(fs, n.Label, n.Iter, func() {
			c.prog.WriteOp(bytecode.OpStoreSlot)
			c.prog.WriteUint32(uint32(slot))
		}, n.Body)

	case *ir.ForEachTupleStmt:
		tupSlot := fs.slotFor(c.tempName("foreach"))
		c.emitForEachCore(fs, n.Label, n.Iter, func() {
			c.prog.WriteOp(bytecode.OpStoreSlot)
			c.prog.WriteUint32(uint32(tupSlot))
			for i, name := range n.Vars {
				c.prog.WriteOp(bytecode.OpLoadSlot)
				c.prog.WriteUint32(uint32(tupSlot))
				idxConst := c.prog.AddConstant(int64(i))
				c.prog.WriteOp(bytecode.OpConstant)
				c.prog.WriteUint32(uint32(idxConst))
				c.prog.WriteOp(bytecode.OpIndexLoad)
				c.prog.WriteByte(1)
				slot := fs.slotFor(name)
				c.prog.WriteOp(bytecode.OpStoreSlot)
				c.prog.WriteUint32(uint32(slot))
			}
		}, n.Body)

	case *ir.LabelStmt:
		ip := c.prog.Len()
		fs.labels[n.Name] = ip
		for _, pos := range fs.gotoPatches[n.Name] {
			c.patchJump(pos)
		}
		delete(fs.gotoPatches, n.Name)

	case *ir.GotoStmt:
		if ip, ok := fs.labels[n.Name]; ok {
			c.prog.WriteOp(bytecode.OpJump)
			c.prog.WriteUint32(uint32(ip))
			return
		}
		pos := c.emitJump(bytecode.OpJump)
		fs.gotoPatches[n.Name] = append(fs.gotoPatches[n.Name], pos)

	case *ir.TryCatchStmt:
		c.emitTryCatch(fs, n)

	case *ir.TestStmt:
		c.emitExpr(fs, n.Cond)
		c.prog.WriteOp(bytecode.OpTestAssert)
		c.prog.WriteUint32(uint32(c.nameConst(n.Description)))

	case *ir.TestSetStmt:
		c.prog.WriteOp(bytecode.OpTestSetBegin)
		c.prog.WriteUint32(uint32(c.nameConst(n.Description)))
		c.emitBlock(fs, n.Body)
		c.prog.WriteOp(bytecode.OpTestSetEnd)

	case *ir.TestThrowsStmt:
		c.emitTestThrows(fs, n)

	case *ir.TimedStmt:
		c.prog.WriteOp(bytecode.OpTimedStart)
		c.emitBlock(fs, n.Body)
		c.prog.WriteOp(bytecode.OpTimedEnd)
		c.emitStoreName(fs, n.Var)

	case *ir.UsingStmt, *ir.ExportStmt:
		// Module-surface declarations are resolved by the module loader
		// before compilation reaches this function body; they carry no
		// runtime instruction.

	default:
		c.errorf(s.Span(), "InternalError", "compiler: unhandled statement %T", s)
	}
}

// emitForEachCore implements the shared iteration protocol for for/foreach/
// foreach-tuple: iterate via MakeIterator/IterNext, bindStep stores the
// per-step value(s) from the stack into the loop variable slot(s), then the
// body runs. The exit path pops the exhausted-iteration value IterNext
// still left behind; break jumps land just past that pop since their path
// never produced that extra value (bindStep already consumed it).
func (c *Compiler) emitForEachCore(fs *funcScope, label string, iter ir.Expr, bindStep func(), body *ir.BlockStmt) {
	c.emitExpr(fs, iter)
	c.prog.WriteOp(bytecode.OpMakeIterator)
	loopStart := c.prog.Len()
	c.prog.WriteOp(bytecode.OpIterNext)
	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	bindStep()
	fs.pushLoop(label, loopStart)
	c.emitBlock(fs, body)
	l := fs.popLoop()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.prog.WriteOp(bytecode.OpPop) // discard the exhausted-iteration value
	for _, bj := range l.breakJumps {
		c.patchJump(bj)
	}
	c.prog.WriteOp(bytecode.OpPop) // discard the iterator
}

// emitCompoundAssign implements `target op= value` by evaluating the
// target's base object/indices into synthetic slots exactly once, then
// reusing them to read, combine, and store back.
func (c *Compiler) emitCompoundAssign(fs *funcScope, n *ir.CompoundAssignStmt) {
	switch t := n.Target.(type) {
	case *ir.Variable:
		c.emitLoadName(fs, t.Name)
		c.emitExpr(fs, n.Value)
		c.emitBinOpCode(n.Op)
		c.emitStoreName(fs, t.Name)

	case *ir.FieldExpr:
		objSlot := fs.slotFor("$compound$obj")
		c.emitExpr(fs, t.Object)
		c.prog.WriteOp(bytecode.OpStoreSlot)
		c.prog.WriteUint32(uint32(objSlot))

		idx := c.nameConst(t.Field)
		c.prog.WriteOp(bytecode.OpLoadSlot)
		c.prog.WriteUint32(uint32(objSlot))
		c.prog.WriteOp(bytecode.OpFieldLoad)
		c.prog.WriteUint32(uint32(idx))
		c.emitExpr(fs, n.Value)
		c.emitBinOpCode(n.Op)

		c.prog.WriteOp(bytecode.OpLoadSlot)
		c.prog.WriteUint32(uint32(objSlot))
		c.prog.WriteOp(bytecode.OpSwap)
		c.prog.WriteOp(bytecode.OpFieldStore)
		c.prog.WriteUint32(uint32(idx))

	case *ir.IndexExpr:
		objSlot := fs.slotFor("$compound$obj")
		c.emitExpr(fs, t.Object)
		c.prog.WriteOp(bytecode.OpStoreSlot)
		c.prog.WriteUint32(uint32(objSlot))

		idxSlots := make([]int, len(t.Index))
		for i, ix := range t.Index {
			idxSlots[i] = fs.slotFor(fmt.Sprintf("$compound$idx%d", i))
			c.emitExpr(fs, ix)
			c.prog.WriteOp(bytecode.OpStoreSlot)
			c.prog.WriteUint32(uint32(idxSlots[i]))
		}

		c.prog.WriteOp(bytecode.OpLoadSlot)
		c.prog.WriteUint32(uint32(objSlot))
		for _, s := range idxSlots {
			c.prog.WriteOp(bytecode.OpLoadSlot)
			c.prog.WriteUint32(uint32(s))
		}
		c.prog.WriteOp(bytecode.OpIndexLoad)
		c.prog.WriteByte(byte(len(idxSlots)))
		c.emitExpr(fs, n.Value)
		c.emitBinOpCode(n.Op)

		valSlot := fs.slotFor("$compound$val")
		c.prog.WriteOp(bytecode.OpStoreSlot)
		c.prog.WriteUint32(uint32(valSlot))

		c.prog.WriteOp(bytecode.OpLoadSlot)
		c.prog.WriteUint32(uint32(objSlot))
		c.prog.WriteOp(bytecode.OpLoadSlot)
		c.prog.WriteUint32(uint32(valSlot))
		for _, s := range idxSlots {
			c.prog.WriteOp(bytecode.OpLoadSlot)
			c.prog.WriteUint32(uint32(s))
		}
		c.prog.WriteOp(bytecode.OpIndexStore)
		c.prog.WriteByte(byte(len(idxSlots)))

	default:
		c.errorf(n.Span(), "InternalError", "compiler: invalid compound-assignment target %T", n.Target)
	}
}

// emitBinOpCode emits the dynamic form of op, used by compound assignment
// where there is no precomputed lattice type to pick a typed fast path from.
func (c *Compiler) emitBinOpCode(op ir.BinOp) {
	switch op {
	case ir.OpAdd:
		c.prog.WriteOp(bytecode.OpDynamicAdd)
	case ir.OpSub:
		c.prog.WriteOp(bytecode.OpDynamicSub)
	case ir.OpMul:
		c.prog.WriteOp(bytecode.OpDynamicMul)
	case ir.OpDiv:
		c.prog.WriteOp(bytecode.OpDynamicDiv)
	case ir.OpIntDiv:
		c.prog.WriteOp(bytecode.OpIntDivDynamic)
	case ir.OpMod:
		c.prog.WriteOp(bytecode.OpModDynamic)
	case ir.OpPow:
		c.prog.WriteOp(bytecode.OpPowDynamic)
	case ir.OpBitAnd:
		c.prog.WriteOp(bytecode.OpBitAndDynamic)
	case ir.OpBitOr:
		c.prog.WriteOp(bytecode.OpBitOrDynamic)
	case ir.OpBitXor:
		c.prog.WriteOp(bytecode.OpBitXorDynamic)
	case ir.OpShl:
		c.prog.WriteOp(bytecode.OpShlDynamic)
	case ir.OpShr:
		c.prog.WriteOp(bytecode.OpShrDynamic)
	default:
		c.prog.WriteOp(bytecode.OpDynamicAdd)
	}
}

// emitTryCatch compiles try/catch/finally by reserving a CatchTable slot up
// front (mirroring compileFunction's FuncEntry reservation), emitting the
// guarded body, then the handlers and optional finally, and finally filling
// in the entry's real IPs once they're all known.
func (c *Compiler) emitTryCatch(fs *funcScope, n *ir.TryCatchStmt) {
	catchIdx := c.prog.AddCatch(bytecode.CatchEntry{FinallyIP: -1})

	c.prog.WriteOp(bytecode.OpPushTryFrame)
	c.prog.WriteUint32(uint32(catchIdx))
	tryStart := c.prog.Len()
	c.emitBlock(fs, n.Body)
	c.prog.WriteOp(bytecode.OpPopTryFrame)
	tryEnd := c.prog.Len()
	afterTry := c.emitJump(bytecode.OpJump)

	handlers := make([]bytecode.CatchHandler, len(n.Catches))
	handlerEndJumps := make([]int, 0, len(n.Catches))
	for i, cc := range n.Catches {
		handlers[i] = bytecode.CatchHandler{Kinds: cc.Kinds, Var: cc.Var, HandlerIP: c.prog.Len()}
		if cc.Var != "" {
			slot := fs.slotFor(cc.Var)
			c.prog.WriteOp(bytecode.OpStoreSlot)
			c.prog.WriteUint32(uint32(slot))
		} else {
			c.prog.WriteOp(bytecode.OpPop)
		}
		c.emitBlock(fs, cc.Body)
		handlerEndJumps = append(handlerEndJumps, c.emitJump(bytecode.OpJump))
	}

	c.patchJump(afterTry)
	for _, j := range handlerEndJumps {
		c.patchJump(j)
	}

	finallyIP := -1
	if n.Finally != nil {
		finallyIP = c.prog.Len()
		c.emitBlock(fs, n.Finally)
	}

	c.prog.CatchTable[catchIdx] = bytecode.CatchEntry{
		TryStart:  tryStart,
		TryEnd:    tryEnd,
		Handlers:  handlers,
		FinallyIP: finallyIP,
	}
}

// emitTestThrows reuses the try/catch machinery: the body runs under a
// catch whose single handler matches Kinds and records a pass, while
// falling through without throwing records a failure.
func (c *Compiler) emitTestThrows(fs *funcScope, n *ir.TestThrowsStmt) {
	descIdx := c.nameConst(n.Description)
	catchIdx := c.prog.AddCatch(bytecode.CatchEntry{FinallyIP: -1})

	c.prog.WriteOp(bytecode.OpPushTryFrame)
	c.prog.WriteUint32(uint32(catchIdx))
	tryStart := c.prog.Len()
	c.emitBlock(fs, n.Body)
	c.prog.WriteOp(bytecode.OpPopTryFrame)
	tryEnd := c.prog.Len()
	c.prog.WriteOp(bytecode.OpTestThrowsNoThrow)
	c.prog.WriteUint32(uint32(descIdx))
	afterTry := c.emitJump(bytecode.OpJump)

	handlerIP := c.prog.Len()
	c.prog.WriteOp(bytecode.OpPop) // discard the caught error value
	c.prog.WriteOp(bytecode.OpTestThrowsCaught)
	c.prog.WriteUint32(uint32(descIdx))

	c.patchJump(afterTry)

	c.prog.CatchTable[catchIdx] = bytecode.CatchEntry{
		TryStart:  tryStart,
		TryEnd:    tryEnd,
		Handlers:  []bytecode.CatchHandler{{Kinds: n.Kinds, HandlerIP: handlerIP}},
		FinallyIP: -1,
	}
}
