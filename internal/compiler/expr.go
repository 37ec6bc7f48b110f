package compiler

import (
	"corelang/internal/bytecode"
	"corelang/internal/dispatch"
	"corelang/internal/ir"
	"corelang/internal/types"
	"corelang/internal/value"
)

// emitExpr compiles one expression, leaving exactly one value on the stack.
func (c *Compiler) emitExpr(fs *funcScope, e ir.Expr) {
	switch n := e.(type) {
	case nil:
		c.prog.WriteOp(bytecode.OpPushNothing)
	case *ir.Literal:
		c.emitLiteral(n)
	case *ir.Variable:
		c.emitLoadName(fs, n.Name)
	case *ir.FuncRefExpr:
		c.emitFuncRef(n.Name)
	case *ir.BinaryExpr:
		c.emitBinary(fs, n)
	case *ir.UnaryExpr:
		c.emitUnary(fs, n)
	case *ir.TernaryExpr:
		c.emitExpr(fs, n.Cond)
		jf := c.emitJump(bytecode.OpJumpIfFalse)
		c.emitExpr(fs, n.Then)
		jEnd := c.emitJump(bytecode.OpJump)
		c.patchJump(jf)
		c.emitExpr(fs, n.Else)
		c.patchJump(jEnd)
	case *ir.CallExpr:
		c.emitCall(fs, n)
	case *ir.QualifiedCallExpr:
		c.emitQualifiedCall(fs, n)
	case *ir.BuiltinCallExpr:
		c.emitBuiltinCall(fs, n)
	case *ir.ArrayLit:
		c.emitArrayLit(fs, n)
	case *ir.TupleLit:
		for _, el := range n.Elems {
			c.emitExpr(fs, el)
		}
		c.prog.WriteOp(bytecode.OpNewTuple)
		c.prog.WriteUint32(uint32(len(n.Elems)))
	case *ir.NamedTupleLit:
		for i, el := range n.Elems {
			idx := c.nameConst(n.Names[i])
			c.prog.WriteOp(bytecode.OpConstant)
			c.prog.WriteUint32(uint32(idx))
			c.emitExpr(fs, el)
		}
		c.prog.WriteOp(bytecode.OpNewNamedTuple)
		c.prog.WriteUint32(uint32(len(n.Elems)))
	case *ir.StructLit:
		for _, f := range n.Fields {
			c.emitExpr(fs, f)
		}
		c.emitNewStruct(n.TypeName, len(n.Fields))
	case *ir.NewExpr:
		c.emitNewStruct(n.TypeName, 0)
	case *ir.DictLit:
		for i := range n.Keys {
			c.emitExpr(fs, n.Keys[i])
			c.emitExpr(fs, n.Values[i])
		}
		c.prog.WriteOp(bytecode.OpNewDict)
		c.prog.WriteUint32(uint32(len(n.Keys)))
	case *ir.Pair:
		// A bare `k => v` outside DictLit context constructs a one-entry
		// dict, mirroring how lowering treats Pair as DictLit element syntax.
		c.emitExpr(fs, n.Key)
		c.emitExpr(fs, n.Value)
		c.prog.WriteOp(bytecode.OpNewDict)
		c.prog.WriteUint32(1)
	case *ir.IndexExpr:
		c.emitIndex(fs, n)
	case *ir.SliceAllExpr:
		c.prog.WriteOp(bytecode.OpPushMissing)
	case *ir.RangeExpr:
		c.emitRange(fs, n)
	case *ir.FieldExpr:
		c.emitExpr(fs, n.Object)
		idx := c.nameConst(n.Field)
		c.prog.WriteOp(bytecode.OpFieldLoad)
		c.prog.WriteUint32(uint32(idx))
	case *ir.ComprehensionExpr:
		c.emitComprehension(fs, n)
	case *ir.LetBlockExpr:
		c.emitLetBlock(fs, n)
	case *ir.StringConcatExpr:
		for i, p := range n.Parts {
			c.emitExpr(fs, p)
			if i > 0 {
				// String parts concatenate left-to-right via the dynamic +
				// operator, which dispatch routes to String's method.
				c.prog.WriteOp(bytecode.OpDynamicAdd)
			}
		}
		if len(n.Parts) == 0 {
			idx := c.prog.AddConstant("")
			c.prog.WriteOp(bytecode.OpConstant)
			c.prog.WriteUint32(uint32(idx))
		}
	case *ir.QuoteLitExpr:
		c.emitExpr(fs, n.Constructor)
	case *ir.AssignExpr:
		c.emitAssignExpr(fs, n)
	case *ir.ReturnExpr:
		if n.Value != nil {
			c.emitExpr(fs, n.Value)
		} else {
			c.prog.WriteOp(bytecode.OpPushNothing)
		}
		c.prog.WriteOp(bytecode.OpReturn)
	case *ir.BreakExpr:
		c.emitBreak(fs, "")
	case *ir.ContinueExpr:
		c.emitContinue(fs, "")
	case *ir.LambdaLit:
		c.emitFuncRef(n.HoistAs)
		if len(n.Captures) > 0 {
			// MakeClosure rewrites the just-pushed bare FuncRef into a
			// Closure snapshotting the named captures.
			for _, name := range n.Captures {
				c.emitLoadName(fs, name)
			}
			c.prog.WriteOp(bytecode.OpMakeClosure)
			c.prog.WriteUint32(0) // func index patched by emitFuncRef's caller context is unnecessary: MakeClosure reads the FuncRef already on the stack
			c.prog.WriteUint32(uint32(len(n.Captures)))
		}
	case *ir.DynamicTypeConstructExpr:
		// T{params...}(args...) treats the constructed type itself as the
		// callee: params and args both land as plain positional arguments,
		// since a reflective type application has no keyword parameters.
		c.emitExpr(fs, n.TypeExpr)
		for _, p := range n.Params {
			c.emitExpr(fs, p)
		}
		c.emitArgs(fs, n.Args)
		c.prog.WriteOp(bytecode.OpCallFunctionVariable)
		c.prog.WriteByte(byte(len(n.Params) + len(n.Args)))
	default:
		c.errorf(e.Span(), "InternalError", "compiler: unhandled expression %T", e)
		c.prog.WriteOp(bytecode.OpPushNothing)
	}
}

func (c *Compiler) emitLiteral(n *ir.Literal) {
	idx := c.prog.AddConstant(n.Value)
	c.prog.WriteOp(bytecode.OpConstant)
	c.prog.WriteUint32(uint32(idx))
}

// emitLoadName resolves a bare name against the current function's local
// slots first, falling back to the name-keyed global map:
// a function's free variables and every top-level binding live there.
func (c *Compiler) emitLoadName(fs *funcScope, name string) {
	if fs.hasSlot(name) {
		c.prog.WriteOp(bytecode.OpLoadSlot)
		c.prog.WriteUint32(uint32(fs.slotFor(name)))
		return
	}
	idx := c.nameConst(name)
	c.prog.WriteOp(bytecode.OpLoadGlobal)
	c.prog.WriteUint32(uint32(idx))
}

func (c *Compiler) emitStoreName(fs *funcScope, name string) {
	if fs.hasSlot(name) {
		c.prog.WriteOp(bytecode.OpStoreSlot)
		c.prog.WriteUint32(uint32(fs.slotFor(name)))
		return
	}
	idx := c.nameConst(name)
	c.prog.WriteOp(bytecode.OpStoreGlobal)
	c.prog.WriteUint32(uint32(idx))
}

func (c *Compiler) emitFuncRef(name string) {
	idx := c.nameConst(name)
	c.prog.WriteOp(bytecode.OpMakeFuncRef)
	c.prog.WriteUint32(uint32(idx))
}

func (c *Compiler) emitNewStruct(typeName string, fieldCount int) {
	typeID := 0
	if s, ok := c.prog.Structs[typeName]; ok {
		typeID = s.TypeID
	}
	c.prog.WriteOp(bytecode.OpNewStruct)
	c.prog.WriteUint32(uint32(typeID))
	c.prog.WriteUint32(uint32(fieldCount))
}

// concreteName returns a lattice type's concrete name once Const has been
// dropped, ok=false for Top/Union/Conditional/Bottom - the compiler only
// takes a typed-instruction fast path when both operands are exactly one
// shape, never a partial guess.
func concreteName(t *types.Type) (string, bool) {
	t = types.DropConst(t)
	if t.Kind != types.KindConcrete {
		return "", false
	}
	return t.Name, true
}

func (c *Compiler) emitBinary(fs *funcScope, n *ir.BinaryExpr) {
	switch n.Op {
	case ir.OpAnd:
		c.emitExpr(fs, n.Left)
		c.prog.WriteOp(bytecode.OpDup)
		jf := c.emitJump(bytecode.OpJumpIfFalse)
		c.prog.WriteOp(bytecode.OpPop)
		c.emitExpr(fs, n.Right)
		c.patchJump(jf)
		return
	case ir.OpOr:
		c.emitExpr(fs, n.Left)
		c.prog.WriteOp(bytecode.OpDup)
		c.prog.WriteOp(bytecode.OpNot)
		jf := c.emitJump(bytecode.OpJumpIfFalse)
		c.prog.WriteOp(bytecode.OpPop)
		c.emitExpr(fs, n.Right)
		c.patchJump(jf)
		return
	}

	leftT, rightT := c.tp.TypeOf(n.Left), c.tp.TypeOf(n.Right)
	lname, lok := concreteName(leftT)
	rname, rok := concreteName(rightT)
	bothInt := lok && rok && lname == "Int64" && rname == "Int64"
	bothFloat := lok && rok && lname == "Float64" && rname == "Float64"

	c.emitExpr(fs, n.Left)
	c.emitExpr(fs, n.Right)

	switch n.Op {
	case ir.OpAdd:
		c.prog.WriteOp(pick(bothInt, bothFloat, bytecode.OpAddI64, bytecode.OpAddF64, bytecode.OpDynamicAdd))
	case ir.OpSub:
		c.prog.WriteOp(pick(bothInt, bothFloat, bytecode.OpSubI64, bytecode.OpSubF64, bytecode.OpDynamicSub))
	case ir.OpMul:
		c.prog.WriteOp(pick(bothInt, bothFloat, bytecode.OpMulI64, bytecode.OpMulF64, bytecode.OpDynamicMul))
	case ir.OpDiv:
		if bothInt || bothFloat {
			c.prog.WriteOp(bytecode.OpDivF64)
		} else {
			c.prog.WriteOp(bytecode.OpDynamicDiv)
		}
	case ir.OpIntDiv:
		c.prog.WriteOp(bytecode.OpIntDivDynamic)
	case ir.OpMod:
		c.prog.WriteOp(bytecode.OpModDynamic)
	case ir.OpPow:
		c.prog.WriteOp(bytecode.OpPowDynamic)
	case ir.OpEq:
		c.prog.WriteOp(bytecode.OpEqual)
	case ir.OpNeq:
		c.prog.WriteOp(bytecode.OpNotEqual)
	case ir.OpLt:
		c.prog.WriteOp(bytecode.OpLess)
	case ir.OpLe:
		c.prog.WriteOp(bytecode.OpLessEqual)
	case ir.OpGt:
		c.prog.WriteOp(bytecode.OpGreater)
	case ir.OpGe:
		c.prog.WriteOp(bytecode.OpGreaterEqual)
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
		c.errorf(n.Span(), "InternalError", "compiler: unhandled binary operator %s", n.Op)
	}
}

func pick(isInt, isFloat bool, intOp, floatOp, dynOp bytecode.OpCode) bytecode.OpCode {
	switch {
	case isInt:
		return intOp
	case isFloat:
		return floatOp
	default:
		return dynOp
	}
}

func (c *Compiler) emitUnary(fs *funcScope, n *ir.UnaryExpr) {
	if n.Op == ir.OpPlus {
		c.emitExpr(fs, n.Operand) // unary plus is the identity
		return
	}
	c.emitExpr(fs, n.Operand)
	switch n.Op {
	case ir.OpNeg:
		c.prog.WriteOp(bytecode.OpNegate)
	case ir.OpNot:
		c.prog.WriteOp(bytecode.OpNot)
	case ir.OpBitNot:
		c.prog.WriteOp(bytecode.OpBitNot)
	default:
		c.errorf(n.Span(), "InternalError", "compiler: unhandled unary operator %s", n.Op)
	}
}

func (c *Compiler) emitArrayLit(fs *funcScope, n *ir.ArrayLit) {
	elemT := c.tp.TypeOf(n)
	kind := elemKindFor(elemT)
	c.prog.WriteOp(bytecode.OpNewArrayTyped)
	c.prog.WriteUint32(uint32(kind))
	c.prog.WriteUint32(uint32(len(n.Elems)))
	for _, el := range n.Elems {
		c.emitExpr(fs, el)
		c.prog.WriteOp(bytecode.OpPushElemTyped)
	}
	c.prog.WriteOp(bytecode.OpFinalizeArrayTyped)
}

// elemKindFor maps an Array{T} lattice type to the dense ElemKind the VM
// should materialize the literal with, ElemBoxed when T isn't one of the
// primitive widths.
func elemKindFor(arrT *types.Type) value.ElemKind {
	t := types.DropConst(arrT)
	if t.Kind != types.KindConcrete || t.Name != "Array" || len(t.Params) != 1 {
		return value.ElemBoxed
	}
	elem := types.DropConst(t.Params[0])
	if elem.Kind != types.KindConcrete {
		return value.ElemBoxed
	}
	switch elem.Name {
	case "Int8":
		return value.ElemI8
	case "Int16":
		return value.ElemI16
	case "Int32":
		return value.ElemI32
	case "Int64":
		return value.ElemI64
	case "UInt8":
		return value.ElemU8
	case "UInt16":
		return value.ElemU16
	case "UInt32":
		return value.ElemU32
	case "UInt64":
		return value.ElemU64
	case "Float32":
		return value.ElemF32
	case "Float64":
		return value.ElemF64
	case "Bool":
		return value.ElemBool
	case "Char":
		return value.ElemChar
	case "BigInt":
		return value.ElemBigInt
	case "BigFloat":
		return value.ElemBigFloat
	default:
		return value.ElemBoxed
	}
}

func (c *Compiler) emitIndex(fs *funcScope, n *ir.IndexExpr) {
	c.emitExpr(fs, n.Object)
	for _, ix := range n.Index {
		c.emitExpr(fs, ix)
	}
	hasSlice := false
	for _, ix := range n.Index {
		if _, ok := ix.(*ir.SliceAllExpr); ok {
			hasSlice = true
		}
	}
	if hasSlice {
		c.prog.WriteOp(bytecode.OpIndexSlice)
	} else {
		c.prog.WriteOp(bytecode.OpIndexLoad)
	}
	c.prog.WriteByte(byte(len(n.Index)))
}

func (c *Compiler) emitRange(fs *funcScope, n *ir.RangeExpr) {
	c.emitExpr(fs, n.Start)
	c.emitExpr(fs, n.Stop)
	if n.Step != nil {
		c.emitExpr(fs, n.Step)
		c.prog.WriteOp(bytecode.OpMakeRangeSteppedLazy)
	} else {
		c.prog.WriteOp(bytecode.OpMakeRangeLazy)
	}
}

func (c *Compiler) emitComprehension(fs *funcScope, n *ir.ComprehensionExpr) {
	// Desugars to: result = []; for each iterator (nested) { if filter { push body } }
	// compiled directly against the array-builder opcodes rather than a
	// generic higher-order call, since the iterator count and shape are
	// fully known here at compile time.
	kind := elemKindFor(c.tp.TypeOf(n))
	c.prog.WriteOp(bytecode.OpNewArrayTyped)
	c.prog.WriteUint32(uint32(kind))
	c.prog.WriteUint32(0)

	var emitNested func(i int)
	emitNested = func(i int) {
		if i == len(n.Iterators) {
			if n.Filter != nil {
				c.emitExpr(fs, n.Filter)
				jf := c.emitJump(bytecode.OpJumpIfFalse)
				c.emitExpr(fs, n.Body)
				c.prog.WriteOp(bytecode.OpPushElemTyped)
				c.patchJump(jf)
			} else {
				c.emitExpr(fs, n.Body)
				c.prog.WriteOp(bytecode.OpPushElemTyped)
			}
			return
		}
		it := n.Iterators[i]
		c.emitExpr(fs, it.Iterable)
		c.prog.WriteOp(bytecode.OpMakeIterator)
		slot := fs.slotFor(it.Name)
		loopStart := c.prog.Len()
		c.prog.WriteOp(bytecode.OpIterNext)
		jDone := c.emitJump(bytecode.OpJumpIfFalse)
		c.prog.WriteOp(bytecode.OpStoreSlot)
		c.prog.WriteUint32(uint32(slot))
		emitNested(i + 1)
		c.emitLoop(loopStart)
		c.patchJump(jDone)
		c.prog.WriteOp(bytecode.OpPop) // drop the iterator
	}
	emitNested(0)
	c.prog.WriteOp(bytecode.OpFinalizeArrayTyped)
}

func (c *Compiler) emitLetBlock(fs *funcScope, n *ir.LetBlockExpr) {
	if len(n.Body.Stmts) == 0 {
		c.prog.WriteOp(bytecode.OpPushNothing)
		return
	}
	for _, s := range n.Body.Stmts[:len(n.Body.Stmts)-1] {
		c.emitStmt(fs, s)
	}
	last := n.Body.Stmts[len(n.Body.Stmts)-1]
	if es, ok := last.(*ir.ExprStmt); ok {
		c.emitExpr(fs, es.X)
		return
	}
	c.emitStmt(fs, last)
	c.prog.WriteOp(bytecode.OpPushNothing)
}

func (c *Compiler) emitAssignExpr(fs *funcScope, n *ir.AssignExpr) {
	c.emitExpr(fs, n.Value)
	c.prog.WriteOp(bytecode.OpDup)
	c.emitAssignTo(fs, n.Target)
}

// emitAssignTo stores the value already on top of the stack into target,
// leaving the stack unchanged on return (the caller already Dup'd if it
// needs the value kept around, as AssignExpr does).
func (c *Compiler) emitAssignTo(fs *funcScope, target ir.Expr) {
	switch t := target.(type) {
	case *ir.Variable:
		c.emitStoreName(fs, t.Name)
	case *ir.FieldExpr:
		c.emitExpr(fs, t.Object)
		c.prog.WriteOp(bytecode.OpSwap)
		idx := c.nameConst(t.Field)
		c.prog.WriteOp(bytecode.OpFieldStore)
		c.prog.WriteUint32(uint32(idx))
	case *ir.IndexExpr:
		c.emitExpr(fs, t.Object)
		c.prog.WriteOp(bytecode.OpSwap)
		for _, ix := range t.Index {
			c.emitExpr(fs, ix)
		}
		c.prog.WriteOp(bytecode.OpIndexStore)
		c.prog.WriteByte(byte(len(t.Index)))
	default:
		c.errorf(target.Span(), "InternalError", "compiler: invalid assignment target %T", target)
	}
}

func (c *Compiler) emitBreak(fs *funcScope, label string) {
	l := fs.findLoop(label)
	if l == nil {
		return
	}
	jmp := c.emitJump(bytecode.OpJump)
	l.breakJumps = append(l.breakJumps, jmp)
}

func (c *Compiler) emitContinue(fs *funcScope, label string) {
	l := fs.findLoop(label)
	if l == nil {
		return
	}
	c.emitLoop(l.continueTarget)
}

// emitArgs pushes every Arg's value in call-site order; callers that need
// keyword-aware binding inspect n.Args separately rather than calling this.
func (c *Compiler) emitArgs(fs *funcScope, args []ir.Arg) {
	for _, a := range args {
		c.emitExpr(fs, a.Value)
	}
}

func calleeName(e ir.Expr) (string, bool) {
	switch v := e.(type) {
	case *ir.Variable:
		return v.Name, true
	case *ir.FuncRefExpr:
		return v.Name, true
	}
	return "", false
}

func splitArgs(args []ir.Arg) (positional, keyword []ir.Arg) {
	for _, a := range args {
		if a.Keyword == "" {
			positional = append(positional, a)
		} else {
			keyword = append(keyword, a)
		}
	}
	return
}

func hasSplat(args []ir.Arg) bool {
	for _, a := range args {
		if a.Splatted {
			return true
		}
	}
	return false
}

func (c *Compiler) emitCall(fs *funcScope, n *ir.CallExpr) {
	if name, ok := calleeName(n.Callee); ok && c.dispatch.HasAny(name) {
		c.emitDispatchedCall(fs, n, name)
		return
	}
	c.emitComputedCall(fs, n)
}

// emitDispatchedCall implements the call-site static-dispatch decision:
// resolve against the same dispatch table inference used, and - only when every
// positional argument's inferred type is fully concrete, so the resolved
// method is provably the one the VM would also pick - compile to
// OpCallStatic naming that method directly. Anything less certain (a Top
// or Union-typed argument, or no match at all) compiles to OpCallDynamic
// and leaves the same resolution to run again at runtime.
func (c *Compiler) emitDispatchedCall(fs *funcScope, n *ir.CallExpr, name string) {
	positional, keyword := splitArgs(n.Args)
	if hasSplat(n.Args) {
		c.emitComputedCall(fs, n)
		return
	}

	argTypes := make([]*types.Type, len(positional))
	allConcrete := true
	for i, a := range positional {
		argTypes[i] = c.tp.TypeOf(a.Value)
		if _, ok := concreteName(argTypes[i]); !ok {
			allConcrete = false
		}
	}
	kwNames := make([]string, len(keyword))
	for i, a := range keyword {
		kwNames[i] = a.Keyword
	}

	f, idx, found := dispatch.Resolve(c.h, c.dispatch, name, argTypes, kwNames)
	if found && allConcrete {
		for _, a := range positional {
			c.emitExpr(fs, a.Value)
		}
		for _, kp := range f.Keyword {
			if v, ok := findKeyword(keyword, kp.Name); ok {
				c.emitExpr(fs, v)
			} else {
				c.prog.WriteOp(bytecode.OpPushMissing)
			}
		}
		c.prog.WriteOp(bytecode.OpCallStatic)
		c.prog.WriteUint32(uint32(idx))
		c.prog.WriteByte(byte(len(positional)))
		c.prog.WriteByte(byte(len(f.Keyword)))
		return
	}

	for _, a := range positional {
		c.emitExpr(fs, a.Value)
	}
	for _, a := range keyword {
		symIdx := c.prog.AddConstant(value.MakeSymbol(value.Symbol(a.Keyword)))
		c.prog.WriteOp(bytecode.OpConstant)
		c.prog.WriteUint32(uint32(symIdx))
		c.emitExpr(fs, a.Value)
	}
	c.prog.WriteOp(bytecode.OpCallDynamic)
	c.prog.WriteUint32(uint32(c.nameConst(name)))
	c.prog.WriteByte(byte(len(positional)))
	c.prog.WriteByte(byte(len(keyword)))
}

func findKeyword(args []ir.Arg, name string) (ir.Expr, bool) {
	for _, a := range args {
		if a.Keyword == name {
			return a.Value, true
		}
	}
	return nil, false
}

// emitComputedCall handles everything dispatch can't resolve by name: a
// value stored in a variable/field/expression (closures, function refs,
// composed functions), or a call carrying a splatted argument.
func (c *Compiler) emitComputedCall(fs *funcScope, n *ir.CallExpr) {
	if hasSplat(n.Args) {
		c.emitExpr(fs, n.Callee)
		for _, a := range n.Args {
			c.emitExpr(fs, a.Value)
			flagIdx := c.prog.AddConstant(value.Bool(a.Splatted))
			c.prog.WriteOp(bytecode.OpConstant)
			c.prog.WriteUint32(uint32(flagIdx))
		}
		c.prog.WriteOp(bytecode.OpCallFunctionVariableSplat)
		c.prog.WriteByte(byte(len(n.Args)))
		return
	}
	c.emitExpr(fs, n.Callee)
	c.emitArgs(fs, n.Args)
	c.prog.WriteOp(bytecode.OpCallFunctionVariable)
	c.prog.WriteByte(byte(len(n.Args)))
}

func (c *Compiler) emitQualifiedCall(fs *funcScope, n *ir.QualifiedCallExpr) {
	for _, a := range n.Args {
		c.emitExpr(fs, a.Value)
	}
	idx := c.nameConst(n.Module + "." + n.Name)
	c.prog.WriteOp(bytecode.OpCallGlobalRef)
	c.prog.WriteUint32(uint32(idx))
	c.prog.WriteByte(byte(len(n.Args)))
}

func (c *Compiler) emitBuiltinCall(fs *funcScope, n *ir.BuiltinCallExpr) {
	for _, a := range n.Args {
		c.emitExpr(fs, a.Value)
	}
	c.prog.WriteOp(bytecode.OpCallBuiltin)
	c.prog.WriteUint32(uint32(n.Op))
	c.prog.WriteByte(byte(len(n.Args)))
}
