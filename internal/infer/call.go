package infer

import (
	"corelang/internal/dispatch"
	"corelang/internal/ir"
	"corelang/internal/types"
	"corelang/internal/value"
)

// calleeName extracts the statically-known name a call targets, when the
// callee expression is simple enough for inference to resolve it (a bare
// name or a first-class function reference); a computed callee (e.g. an
// element of an array of closures) dispatches dynamically at runtime and
// inference leaves it untouched.
func calleeName(e ir.Expr) (string, bool) {
	switch v := e.(type) {
	case *ir.Variable:
		return v.Name, true
	case *ir.FuncRefExpr:
		return v.Name, true
	}
	return "", false
}

func kwNamesOf(args []ir.Arg) []string {
	var out []string
	for _, a := range args {
		if a.Keyword != "" {
			out = append(out, a.Keyword)
		}
	}
	return out
}

func positionalTypes(args []ir.Arg, types_ []*types.Type) []*types.Type {
	out := make([]*types.Type, 0, len(args))
	for i, a := range args {
		if a.Keyword == "" {
			out = append(out, types_[i])
		}
	}
	return out
}

func (inf *inferer) call(env Env, n *ir.CallExpr) (ir.Expr, *types.Type) {
	if folded, foldedT, ok := inf.tryFoldBroadcast(env, n); ok {
		return folded, foldedT
	}
	if rewritten, t, ok := inf.tryInterceptRange(env, n); ok {
		return rewritten, t
	}

	newArgs, argTypes := inf.args(env, n.Args)
	callee, _ := inf.expr(env, n.Callee)
	out := &ir.CallExpr{Base: n.Base, Callee: callee, Args: newArgs}

	name, ok := calleeName(n.Callee)
	if !ok {
		return out, inf.record(out, types.Top)
	}

	if inf.dispatch.HasAny(name) {
		pos := positionalTypes(n.Args, argTypes)
		if f, _, found := dispatch.Resolve(inf.h, inf.dispatch, name, pos, kwNamesOf(n.Args)); found {
			sig := inf.signatureFor(f)
			return out, inf.record(out, sig.Return)
		}
		// Declared methods exist but none matched this call shape: the VM
		// will raise MethodError at runtime. Static inference just can't
		// constrain the result.
		return out, inf.record(out, types.Top)
	}

	if op, isIntrinsic := dispatch.FallbackBuiltin(name); isIntrinsic {
		builtin := &ir.BuiltinCallExpr{Base: n.Base, Op: op, Args: newArgs}
		return builtin, inf.record(builtin, inf.builtinReturnType(env, builtin))
	}
	return out, inf.record(out, types.Top)
}

// tryInterceptRange special-cases one named intercepted-call conversion:
// `range(start, stop; length=n)` with `Float, Float, Int` arguments routes
// straight to ir.BuiltinLinspace instead of user/dispatch resolution.
func (inf *inferer) tryInterceptRange(env Env, n *ir.CallExpr) (ir.Expr, *types.Type, bool) {
	name, ok := calleeName(n.Callee)
	if !ok || name != "range" || len(n.Args) != 3 {
		return nil, nil, false
	}
	if n.Args[0].Keyword != "" || n.Args[1].Keyword != "" || n.Args[2].Keyword != "length" {
		return nil, nil, false
	}
	newArgs, argTypes := inf.args(env, n.Args)
	isFloat := func(t *types.Type) bool {
		t = types.DropConst(t)
		return t.Kind == types.KindConcrete && inf.h.IsSubtype(t, types.Concrete("AbstractFloat"))
	}
	isInt := func(t *types.Type) bool {
		t = types.DropConst(t)
		return t.Kind == types.KindConcrete && inf.h.IsSubtype(t, types.Concrete("Integer"))
	}
	if !isFloat(argTypes[0]) || !isFloat(argTypes[1]) || !isInt(argTypes[2]) {
		return nil, nil, false
	}
	out := &ir.BuiltinCallExpr{Base: n.Base, Op: ir.BuiltinLinspace, Args: newArgs}
	return out, inf.record(out, types.ArrayOf(types.Concrete("Float64"))), true
}

// tryFoldBroadcast recognizes the `materialize(Broadcasted(op, l, r))`
// shape lowering produces for a `.op` broadcast expression and, when both
// operand shapes are statically known to be a scalar number and a
// Float-elemented Array, rewrites it to the fused scalar*vector builtin.
// Any other operator or shape is left as the generic materialize
// call chain for the VM's broadcast executor (C10) to run element-wise.
func (inf *inferer) tryFoldBroadcast(env Env, n *ir.CallExpr) (ir.Expr, *types.Type, bool) {
	outer, ok := n.Callee.(*ir.Variable)
	if !ok || outer.Name != "materialize" || len(n.Args) != 1 {
		return nil, nil, false
	}
	inner, ok := n.Args[0].Value.(*ir.CallExpr)
	if !ok {
		return nil, nil, false
	}
	innerCallee, ok := inner.Callee.(*ir.Variable)
	if !ok || innerCallee.Name != "Broadcasted" || len(inner.Args) != 3 {
		return nil, nil, false
	}
	opLit, ok := inner.Args[0].Value.(*ir.Literal)
	if !ok || opLit.Value.Tag != value.TagSymbol {
		return nil, nil, false
	}
	opName := string(opLit.Value.Symbol())

	left, leftT := inf.expr(env, inner.Args[1].Value)
	right, rightT := inf.expr(env, inner.Args[2].Value)
	lt, rt := types.DropConst(leftT), types.DropConst(rightT)

	if opName != "*" {
		return nil, nil, false
	}
	if inf.isScalarNumeric(lt) && inf.isFloatVector(rt) {
		out := &ir.BuiltinCallExpr{Base: n.Base, Op: ir.BuiltinBroadcastMulScalarVec, Args: []ir.Arg{{Value: left}, {Value: right}}}
		return out, inf.record(out, rt), true
	}
	if inf.isFloatVector(lt) && inf.isScalarNumeric(rt) {
		out := &ir.BuiltinCallExpr{Base: n.Base, Op: ir.BuiltinBroadcastMulScalarVec, Args: []ir.Arg{{Value: right}, {Value: left}}}
		return out, inf.record(out, lt), true
	}
	return nil, nil, false
}

func (inf *inferer) isScalarNumeric(t *types.Type) bool {
	return t.Kind == types.KindConcrete && inf.h.IsSubtype(t, types.Concrete("Number"))
}

func (inf *inferer) isFloatVector(t *types.Type) bool {
	return t.Kind == types.KindConcrete && t.Name == "Array" && len(t.Params) == 1 &&
		inf.h.IsSubtype(t.Params[0], types.Concrete("AbstractFloat"))
}
