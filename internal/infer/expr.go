package infer

import (
	"corelang/internal/ir"
	"corelang/internal/types"
)

// expr infers one expression's lattice type, returning the (possibly
// rewritten - see tryFoldBroadcast) node that should replace it in the
// tree and the type recorded for that node.
func (inf *inferer) expr(env Env, e ir.Expr) (ir.Expr, *types.Type) {
	switch n := e.(type) {
	case nil:
		return nil, types.Top
	case *ir.Literal:
		return n, inf.record(n, types.ConstOf(n.Value, types.FromTag(n.Value)))
	case *ir.Variable:
		return n, inf.record(n, lookupOrTop(env, n.Name, nil))
	case *ir.FuncRefExpr:
		return n, inf.record(n, types.Function(n.Name))
	case *ir.BinaryExpr:
		return inf.binary(env, n)
	case *ir.UnaryExpr:
		return inf.unary(env, n)
	case *ir.TernaryExpr:
		cond, _ := inf.expr(env, n.Cond)
		thenE, thenT := inf.expr(env, n.Then)
		elseE, elseT := inf.expr(env, n.Else)
		out := &ir.TernaryExpr{Base: n.Base, Cond: cond, Then: thenE, Else: elseE}
		return out, inf.record(out, types.Join(inf.h, thenT, elseT))
	case *ir.CallExpr:
		return inf.call(env, n)
	case *ir.QualifiedCallExpr:
		args, _ := inf.args(env, n.Args)
		out := &ir.QualifiedCallExpr{Base: n.Base, Module: n.Module, Name: n.Name, Args: args}
		// Module calls cross an out-of-scope external collaborator boundary
		// (the package loader) - inference can't see the callee.
		return out, inf.record(out, types.Top)
	case *ir.BuiltinCallExpr:
		return inf.builtinCall(env, n)
	case *ir.ArrayLit:
		elemT := types.Bottom
		elems := make([]ir.Expr, len(n.Elems))
		for i, el := range n.Elems {
			ne, t := inf.expr(env, el)
			elems[i] = ne
			elemT = types.Join(inf.h, elemT, types.DropConst(t))
		}
		if n.Hint != "" {
			elemT = types.Concrete(n.Hint)
		} else if elemT.IsBottom() {
			elemT = types.Top
		}
		out := &ir.ArrayLit{Base: n.Base, Elems: elems, Hint: n.Hint}
		return out, inf.record(out, types.ArrayOf(elemT))
	case *ir.TupleLit:
		elemTs := make([]*types.Type, len(n.Elems))
		elems := make([]ir.Expr, len(n.Elems))
		for i, el := range n.Elems {
			ne, t := inf.expr(env, el)
			elems[i] = ne
			elemTs[i] = t
		}
		out := &ir.TupleLit{Base: n.Base, Elems: elems}
		return out, inf.record(out, types.TupleOf(elemTs...))
	case *ir.NamedTupleLit:
		elemTs := make([]*types.Type, len(n.Elems))
		elems := make([]ir.Expr, len(n.Elems))
		for i, el := range n.Elems {
			ne, t := inf.expr(env, el)
			elems[i] = ne
			elemTs[i] = t
		}
		out := &ir.NamedTupleLit{Base: n.Base, Names: n.Names, Elems: elems}
		return out, inf.record(out, types.NamedTupleOf(n.Names, elemTs))
	case *ir.StructLit:
		fields := make([]ir.Expr, len(n.Fields))
		for i, f := range n.Fields {
			nf, _ := inf.expr(env, f)
			fields[i] = nf
		}
		out := &ir.StructLit{Base: n.Base, TypeName: n.TypeName, Fields: fields}
		return out, inf.record(out, types.Struct(n.TypeName, inf.structIDFor(n.TypeName)))
	case *ir.NewExpr:
		return n, inf.record(n, types.Struct(n.TypeName, inf.structIDFor(n.TypeName)))
	case *ir.DictLit:
		keyT, valT := types.Bottom, types.Bottom
		keys := make([]ir.Expr, len(n.Keys))
		vals := make([]ir.Expr, len(n.Values))
		for i := range n.Keys {
			nk, kt := inf.expr(env, n.Keys[i])
			nv, vt := inf.expr(env, n.Values[i])
			keys[i], vals[i] = nk, nv
			keyT = types.Join(inf.h, keyT, types.DropConst(kt))
			valT = types.Join(inf.h, valT, types.DropConst(vt))
		}
		if keyT.IsBottom() {
			keyT = types.Top
		}
		if valT.IsBottom() {
			valT = types.Top
		}
		out := &ir.DictLit{Base: n.Base, Keys: keys, Values: vals}
		return out, inf.record(out, types.DictOf(keyT, valT))
	case *ir.Pair:
		k, _ := inf.expr(env, n.Key)
		v, _ := inf.expr(env, n.Value)
		out := &ir.Pair{Base: n.Base, Key: k, Value: v}
		return out, inf.record(out, types.Top)
	case *ir.IndexExpr:
		return inf.index(env, n)
	case *ir.SliceAllExpr:
		return n, inf.record(n, types.Top)
	case *ir.RangeExpr:
		start, startT := inf.expr(env, n.Start)
		stop, stopT := inf.expr(env, n.Stop)
		var step ir.Expr
		elemT := types.Join(inf.h, types.DropConst(startT), types.DropConst(stopT))
		if n.Step != nil {
			var stepT *types.Type
			step, stepT = inf.expr(env, n.Step)
			elemT = types.Join(inf.h, elemT, types.DropConst(stepT))
		}
		out := &ir.RangeExpr{Base: n.Base, Start: start, Stop: stop, Step: step}
		return out, inf.record(out, types.RangeOf(elemT))
	case *ir.FieldExpr:
		obj, objT := inf.expr(env, n.Object)
		out := &ir.FieldExpr{Base: n.Base, Object: obj, Field: n.Field}
		t := types.DropConst(objT)
		if t.Kind == types.KindConcrete && t.Name == "Struct" && len(t.Params) == 1 {
			return out, inf.record(out, inf.fieldType(t.Params[0].Name, n.Field))
		}
		return out, inf.record(out, types.Top)
	case *ir.ComprehensionExpr:
		bodyEnv := cloneEnv(env)
		iterators := make([]ir.Iterator, len(n.Iterators))
		for i, it := range n.Iterators {
			ie, iterT := inf.expr(bodyEnv, it.Iterable)
			iterators[i] = ir.Iterator{Name: it.Name, Iterable: ie}
			bodyEnv[it.Name] = elementType(inf.h, iterT)
		}
		var filter ir.Expr
		if n.Filter != nil {
			filter, _ = inf.expr(bodyEnv, n.Filter)
		}
		body, bodyT := inf.expr(bodyEnv, n.Body)
		out := &ir.ComprehensionExpr{Base: n.Base, Body: body, Iterators: iterators, Filter: filter}
		return out, inf.record(out, types.ArrayOf(types.DropConst(bodyT)))
	case *ir.LetBlockExpr:
		newBody, finalEnv := inf.block(env, n.Body)
		out := &ir.LetBlockExpr{Base: n.Base, Body: newBody}
		return out, inf.record(out, letBlockResultType(finalEnv, newBody))
	case *ir.StringConcatExpr:
		parts := make([]ir.Expr, len(n.Parts))
		for i, p := range n.Parts {
			np, _ := inf.expr(env, p)
			parts[i] = np
		}
		out := &ir.StringConcatExpr{Base: n.Base, Parts: parts}
		return out, inf.record(out, types.Concrete("String"))
	case *ir.QuoteLitExpr:
		return n, inf.record(n, types.Concrete("Expr"))
	case *ir.AssignExpr:
		value, valT := inf.expr(env, n.Value)
		if v, ok := n.Target.(*ir.Variable); ok {
			env[v.Name] = valT
		}
		out := &ir.AssignExpr{Base: n.Base, Target: n.Target, Value: value}
		return out, inf.record(out, valT)
	case *ir.ReturnExpr:
		var val ir.Expr
		t := types.Concrete("Nothing")
		if n.Value != nil {
			val, t = inf.expr(env, n.Value)
		}
		inf.returns = append(inf.returns, t)
		out := &ir.ReturnExpr{Base: n.Base, Value: val}
		return out, inf.record(out, types.Top)
	case *ir.BreakExpr, *ir.ContinueExpr:
		return n, inf.record(n, types.Top)
	case *ir.LambdaLit:
		return inf.lambda(env, n)
	case *ir.DynamicTypeConstructExpr:
		typeExpr, _ := inf.expr(env, n.TypeExpr)
		params := make([]ir.Expr, len(n.Params))
		for i, p := range n.Params {
			np, _ := inf.expr(env, p)
			params[i] = np
		}
		args, _ := inf.args(env, n.Args)
		out := &ir.DynamicTypeConstructExpr{Base: n.Base, TypeExpr: typeExpr, Params: params, Args: args}
		return out, inf.record(out, types.Top)
	default:
		return n, inf.record(n, types.Top)
	}
}

func (inf *inferer) args(env Env, in []ir.Arg) ([]ir.Arg, []*types.Type) {
	out := make([]ir.Arg, len(in))
	ts := make([]*types.Type, len(in))
	for i, a := range in {
		ne, t := inf.expr(env, a.Value)
		out[i] = ir.Arg{Value: ne, Keyword: a.Keyword, Splatted: a.Splatted}
		ts[i] = t
	}
	return out, ts
}

// elementType is indexing's inverse: the type an iterated value binds its
// loop variable to.
func elementType(h *types.Hierarchy, container *types.Type) *types.Type {
	t := types.DropConst(container)
	if t.Kind != types.KindConcrete {
		return types.Top
	}
	switch t.Name {
	case "Array", "Set", "Range", "Generator":
		if len(t.Params) == 1 {
			return t.Params[0]
		}
	}
	return types.Top
}

// letBlockResultType approximates the value a LetBlockExpr produces: its
// last statement's value when that's a recognizable value-producing form,
// Nothing otherwise. This mirrors the normalization that flattens a let
// block away when it only wraps an assignment followed by a reference,
// without fully implementing that flattening pass here.
func letBlockResultType(env Env, body *ir.BlockStmt) *types.Type {
	if len(body.Stmts) == 0 {
		return types.Concrete("Nothing")
	}
	switch last := body.Stmts[len(body.Stmts)-1].(type) {
	case *ir.ExprStmt:
		if t, ok := exprLookup(env, last.X); ok {
			return t
		}
	}
	return types.Top
}

// exprLookup resolves a plain variable reference against the env the
// block finished with - the common `x = ...; x` trailing-reference shape.
func exprLookup(env Env, e ir.Expr) (*types.Type, bool) {
	v, ok := e.(*ir.Variable)
	if !ok {
		return nil, false
	}
	t, ok := env[v.Name]
	return t, ok
}

func (inf *inferer) index(env Env, n *ir.IndexExpr) (ir.Expr, *types.Type) {
	obj, objT := inf.expr(env, n.Object)
	idx := make([]ir.Expr, len(n.Index))
	idxTypes := make([]*types.Type, len(n.Index))
	for i, ix := range n.Index {
		ni, it := inf.expr(env, ix)
		idx[i] = ni
		idxTypes[i] = it
	}
	out := &ir.IndexExpr{Base: n.Base, Object: obj, Index: idx}

	t := types.DropConst(objT)
	if t.Kind == types.KindConcrete && t.Name == "Array" && len(t.Params) == 1 {
		return out, inf.record(out, t.Params[0])
	}
	if t.Kind == types.KindConcrete && t.Name == "Tuple" && len(idx) == 1 {
		if lit, ok := n.Index[0].(*ir.Literal); ok && lit.Value.Tag.IsInteger() {
			i := int(lit.Value.AsInt64()) - 1
			if i >= 0 && i < len(t.Params) {
				return out, inf.record(out, t.Params[i])
			}
		}
	}
	return out, inf.record(out, types.Top)
}

func (inf *inferer) lambda(env Env, n *ir.LambdaLit) (ir.Expr, *types.Type) {
	out := &ir.LambdaLit{Base: n.Base, Params: n.Params, Body: n.Body, HoistAs: n.HoistAs, Captures: n.Captures}
	return out, inf.record(out, types.Function(n.HoistAs))
}

