package infer

import (
	"corelang/internal/ir"
	"corelang/internal/types"
)

// builtinCall infers a call already routed to a host builtin, either by
// lowering (println, isa, ...) or by this package's own fallback/fold
// rewrites. isa and esc get dedicated handling since their result type
// depends on their arguments in a way the flat return-type table can't
// express; everything else looks up a fixed return type.
func (inf *inferer) builtinCall(env Env, n *ir.BuiltinCallExpr) (ir.Expr, *types.Type) {
	newArgs, argTypes := inf.args(env, n.Args)
	out := &ir.BuiltinCallExpr{Base: n.Base, Op: n.Op, Args: newArgs}

	switch n.Op {
	case ir.BuiltinIsa:
		if slot, ok := calleeName(n.Args[0].Value); ok && len(n.Args) == 2 {
			if typeName, ok := typeNameArg(n.Args[1].Value); ok {
				current := lookupOrTop(env, slot, nil)
				return out, inf.record(out, types.Conditional(slot, types.Concrete(typeName), current))
			}
		}
		return out, inf.record(out, types.Concrete("Bool"))
	case ir.BuiltinEsc:
		if len(argTypes) == 1 {
			return out, inf.record(out, argTypes[0])
		}
		return out, inf.record(out, types.Top)
	case ir.BuiltinAbs:
		if len(argTypes) == 1 {
			t := types.DropConst(argTypes[0])
			if t.Kind == types.KindConcrete {
				return out, inf.record(out, t)
			}
		}
		return out, inf.record(out, types.Top)
	default:
		return out, inf.record(out, builtinReturnType(n.Op))
	}
}

// builtinReturnType is used both by builtinCall's default case and by the
// dispatch-fallback path in call.go, which constructs a fresh
// BuiltinCallExpr directly rather than routing through builtinCall.
func (inf *inferer) builtinReturnType(env Env, n *ir.BuiltinCallExpr) *types.Type {
	if n.Op == ir.BuiltinAbs && len(n.Args) == 1 {
		if t, ok := inf.types[n.Args[0].Value]; ok {
			t = types.DropConst(t)
			if t.Kind == types.KindConcrete {
				return t
			}
		}
	}
	return builtinReturnType(n.Op)
}

// typeNameArg extracts a bare type name from an `isa(x, T)` second
// argument, supporting the common `T` identifier shape; a computed type
// expression isn't statically resolvable here.
func typeNameArg(e ir.Expr) (string, bool) {
	if v, ok := e.(*ir.Variable); ok {
		return v.Name, true
	}
	return "", false
}

var builtinReturns = map[ir.BuiltinOp]*types.Type{
	ir.BuiltinPrintln:           types.Concrete("Nothing"),
	ir.BuiltinPrint:             types.Concrete("Nothing"),
	ir.BuiltinString:            types.Concrete("String"),
	ir.BuiltinRepr:              types.Concrete("String"),
	ir.BuiltinTypeof:            types.Concrete("DataType"),
	ir.BuiltinIsa:               types.Concrete("Bool"),
	ir.BuiltinEltype:            types.Top,
	ir.BuiltinFieldnames:        types.ArrayOf(types.Concrete("Symbol")),
	ir.BuiltinFieldtypes:        types.ArrayOf(types.Concrete("DataType")),
	ir.BuiltinMethods:           types.ArrayOf(types.Top),
	ir.BuiltinHasmethod:         types.Concrete("Bool"),
	ir.BuiltinWhich:             types.Top,
	ir.BuiltinSupertype:         types.Concrete("DataType"),
	ir.BuiltinSqrt:              types.Concrete("Float64"),
	ir.BuiltinAbs:               types.Top,
	ir.BuiltinSin:               types.Concrete("Float64"),
	ir.BuiltinCos:               types.Concrete("Float64"),
	ir.BuiltinTan:               types.Concrete("Float64"),
	ir.BuiltinExp:               types.Concrete("Float64"),
	ir.BuiltinLog:               types.Concrete("Float64"),
	ir.BuiltinFloor:             types.Concrete("Float64"),
	ir.BuiltinCeil:              types.Concrete("Float64"),
	ir.BuiltinRound:             types.Concrete("Float64"),
	ir.BuiltinTrunc:             types.Concrete("Float64"),
	ir.BuiltinFma:               types.Concrete("Float64"),
	ir.BuiltinMuladd:            types.Concrete("Float64"),
	ir.BuiltinFrexp:             types.TupleOf(types.Concrete("Float64"), types.Concrete("Int64")),
	ir.BuiltinExponent:          types.Concrete("Int64"),
	ir.BuiltinNextfloat:         types.Concrete("Float64"),
	ir.BuiltinLinspace:          types.ArrayOf(types.Concrete("Float64")),
	ir.BuiltinRange:             types.RangeOf(types.Top),
	ir.BuiltinLU:                types.Top,
	ir.BuiltinDet:               types.Concrete("Float64"),
	ir.BuiltinInv:               types.ArrayOf(types.Concrete("Float64")),
	ir.BuiltinSolve:             types.ArrayOf(types.Concrete("Float64")),
	ir.BuiltinSVD:               types.Top,
	ir.BuiltinQR:                types.Top,
	ir.BuiltinEigen:             types.Top,
	ir.BuiltinEigvals:           types.Top,
	ir.BuiltinCholesky:          types.ArrayOf(types.Concrete("Float64")),
	ir.BuiltinRank:              types.Concrete("Int64"),
	ir.BuiltinCond:              types.Concrete("Float64"),
	ir.BuiltinGet:               types.Top,
	ir.BuiltinGetBang:           types.Top,
	ir.BuiltinGetkey:            types.Top,
	ir.BuiltinHaskey:            types.Concrete("Bool"),
	ir.BuiltinSetindexBang:      types.Concrete("Nothing"),
	ir.BuiltinDeleteBang:        types.Concrete("Bool"),
	ir.BuiltinMerge:             types.Top,
	ir.BuiltinMergeBang:         types.Concrete("Nothing"),
	ir.BuiltinEmptyBang:         types.Concrete("Nothing"),
	ir.BuiltinPopBang:           types.Top,
	ir.BuiltinKeys:              types.ArrayOf(types.Top),
	ir.BuiltinValues:            types.ArrayOf(types.Top),
	ir.BuiltinPairs:             types.Top,
	ir.BuiltinLength:            types.Concrete("Int64"),
	ir.BuiltinRand:              types.Concrete("Float64"),
	ir.BuiltinRandn:             types.Concrete("Float64"),
	ir.BuiltinSeedBang:          types.Concrete("Nothing"),
	ir.BuiltinRegexCompile:      types.Concrete("Regex"),
	ir.BuiltinRegexMatch:        types.Top,
	ir.BuiltinRegexEachmatch:    types.GeneratorOf(types.Concrete("RegexMatch")),
	ir.BuiltinSymbolCtor:        types.Concrete("Symbol"),
	ir.BuiltinExprCtor:          types.Concrete("Expr"),
	ir.BuiltinQuoteNodeCtor:     types.Concrete("QuoteNode"),
	ir.BuiltinGensym:            types.Concrete("Symbol"),
	ir.BuiltinEsc:               types.Top,
	ir.BuiltinEval:              types.Top,
	ir.BuiltinMacroexpand:       types.Concrete("Expr"),
	ir.BuiltinIncludeString:     types.Top,
	ir.BuiltinMetaParse:         types.Concrete("Expr"),
	ir.BuiltinMetaLower:         types.Top,
	ir.BuiltinWrite:             types.Concrete("Nothing"),
	ir.BuiltinReadlines:         types.ArrayOf(types.Concrete("String")),
	ir.BuiltinSleep:             types.Concrete("Nothing"),
	ir.BuiltinCancelCheck:       types.Concrete("Nothing"),
	ir.BuiltinGcd:               types.Concrete("Int64"),
	ir.BuiltinLcm:               types.Concrete("Int64"),
	ir.BuiltinBroadcastMulScalarVec: types.Top,
}

func builtinReturnType(op ir.BuiltinOp) *types.Type {
	if t, ok := builtinReturns[op]; ok {
		return t
	}
	return types.Top
}
