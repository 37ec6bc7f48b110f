package infer

import (
	"corelang/internal/ir"
	"corelang/internal/types"
)

// block infers every statement in sequence, threading one Env through in
// declaration order, and returns both the (possibly broadcast-folded)
// rebuilt block and the Env it finished with.
func (inf *inferer) block(env Env, b *ir.BlockStmt) (*ir.BlockStmt, Env) {
	if b == nil {
		return nil, env
	}
	cur := env
	stmts := make([]ir.Stmt, len(b.Stmts))
	for i, s := range b.Stmts {
		var ns ir.Stmt
		ns, cur = inf.stmt(cur, s)
		stmts[i] = ns
	}
	return &ir.BlockStmt{Base: b.Base, Stmts: stmts}, cur
}

func (inf *inferer) stmt(env Env, s ir.Stmt) (ir.Stmt, Env) {
	switch n := s.(type) {
	case *ir.ExprStmt:
		x, _ := inf.expr(env, n.X)
		return &ir.ExprStmt{Base: n.Base, X: x}, env
	case *ir.AssignStmt:
		value, valT := inf.expr(env, n.Value)
		if v, ok := n.Target.(*ir.Variable); ok {
			env[v.Name] = valT
		} else {
			target, _ := inf.expr(env, n.Target)
			n = &ir.AssignStmt{Base: n.Base, Target: target, Value: value}
			return n, env
		}
		return &ir.AssignStmt{Base: n.Base, Target: n.Target, Value: value}, env
	case *ir.CompoundAssignStmt:
		value, valT := inf.expr(env, n.Value)
		if v, ok := n.Target.(*ir.Variable); ok {
			prev := lookupOrTop(env, v.Name, nil)
			env[v.Name] = types.PromoteArith(opSymbol(n.Op), prev, valT)
		}
		return &ir.CompoundAssignStmt{Base: n.Base, Target: n.Target, Op: n.Op, Value: value}, env
	case *ir.IndexAssignStmt:
		obj, _ := inf.expr(env, n.Object)
		idx := make([]ir.Expr, len(n.Index))
		for i, ix := range n.Index {
			idx[i], _ = inf.expr(env, ix)
		}
		value, _ := inf.expr(env, n.Value)
		return &ir.IndexAssignStmt{Base: n.Base, Object: obj, Index: idx, Value: value}, env
	case *ir.FieldAssignStmt:
		obj, _ := inf.expr(env, n.Object)
		value, _ := inf.expr(env, n.Value)
		return &ir.FieldAssignStmt{Base: n.Base, Object: obj, Field: n.Field, Value: value}, env
	case *ir.DictAssignStmt:
		obj, _ := inf.expr(env, n.Object)
		key, _ := inf.expr(env, n.Key)
		value, _ := inf.expr(env, n.Value)
		return &ir.DictAssignStmt{Base: n.Base, Object: obj, Key: key, Value: value}, env
	case *ir.DestructureAssignStmt:
		value, valT := inf.expr(env, n.Value)
		elemT := elementType(inf.h, valT)
		targets := make([]ir.Expr, len(n.Targets))
		for i, t := range n.Targets {
			if v, ok := t.(*ir.Variable); ok {
				env[v.Name] = elemT
				targets[i] = v
				continue
			}
			targets[i], _ = inf.expr(env, t)
		}
		return &ir.DestructureAssignStmt{Base: n.Base, Targets: targets, Value: value}, env
	case *ir.ReturnStmt:
		var val ir.Expr
		t := types.Concrete("Nothing")
		if n.Value != nil {
			val, t = inf.expr(env, n.Value)
		}
		inf.returns = append(inf.returns, t)
		return &ir.ReturnStmt{Base: n.Base, Value: val}, env
	case *ir.BreakStmt, *ir.ContinueStmt, *ir.LabelStmt, *ir.GotoStmt:
		return n, env
	case *ir.IfStmt:
		return inf.ifStmt(env, n)
	case *ir.WhileStmt:
		return inf.whileStmt(env, n)
	case *ir.ForStmt:
		return inf.forStmt(env, n)
	case *ir.ForEachStmt:
		return inf.forEachStmt(env, n)
	case *ir.ForEachTupleStmt:
		return inf.forEachTupleStmt(env, n)
	case *ir.TryCatchStmt:
		return inf.tryCatchStmt(env, n)
	case *ir.TestStmt:
		cond, _ := inf.expr(env, n.Cond)
		return &ir.TestStmt{Base: n.Base, Description: n.Description, Cond: cond}, env
	case *ir.TestSetStmt:
		body, _ := inf.block(cloneEnv(env), n.Body)
		return &ir.TestSetStmt{Base: n.Base, Description: n.Description, Body: body}, env
	case *ir.TestThrowsStmt:
		body, _ := inf.block(cloneEnv(env), n.Body)
		return &ir.TestThrowsStmt{Base: n.Base, Description: n.Description, Kinds: n.Kinds, Body: body}, env
	case *ir.TimedStmt:
		body, _ := inf.block(cloneEnv(env), n.Body)
		env[n.Var] = types.Concrete("Float64")
		return &ir.TimedStmt{Base: n.Base, Var: n.Var, Body: body}, env
	case *ir.UsingStmt, *ir.ExportStmt:
		return n, env
	default:
		return n, env
	}
}

func (inf *inferer) ifStmt(env Env, n *ir.IfStmt) (ir.Stmt, Env) {
	cond, condT := inf.expr(env, n.Cond)

	thenEnv := cloneEnv(env)
	elseEnv := cloneEnv(env)
	if condT.Kind == types.KindConditional {
		thenEnv[condT.Slot] = condT.Then
		elseEnv[condT.Slot] = condT.Else
	}

	thenBody, thenOut := inf.block(thenEnv, n.Then)
	var elseBody *ir.BlockStmt
	elseOut := elseEnv
	if n.Else != nil {
		elseBody, elseOut = inf.block(elseEnv, n.Else)
	}

	merged := joinEnv(inf.h, env, thenOut, elseOut)
	for k, v := range merged {
		env[k] = v
	}
	return &ir.IfStmt{Base: n.Base, Cond: cond, Then: thenBody, Else: elseBody}, env
}

func (inf *inferer) whileStmt(env Env, n *ir.WhileStmt) (ir.Stmt, Env) {
	prev := cloneEnv(env)
	var bodyOut *ir.BlockStmt
	for round := 0; ; round++ {
		var out Env
		bodyOut, out = inf.block(cloneEnv(prev), n.Body)
		widened := widenEnv(inf.h, prev, out, round, inf.widenLimit)
		if envEqual(widened, prev) {
			prev = widened
			break
		}
		prev = widened
		if round >= inf.widenLimit {
			break
		}
	}
	cond, _ := inf.expr(prev, n.Cond)
	for k, v := range prev {
		env[k] = v
	}
	return &ir.WhileStmt{Base: n.Base, Label: n.Label, Cond: cond, Body: bodyOut}, env
}

func (inf *inferer) forStmt(env Env, n *ir.ForStmt) (ir.Stmt, Env) {
	iter, iterT := inf.expr(env, n.Iter)
	varT := elementType(inf.h, iterT)
	if varT.IsTop() && types.DropConst(iterT).Kind == types.KindConcrete && types.DropConst(iterT).Name == "Range" {
		varT = types.Concrete("Int64")
	}
	prev := cloneEnv(env)
	prev[n.Var] = varT
	var body *ir.BlockStmt
	for round := 0; ; round++ {
		var out Env
		body, out = inf.block(cloneEnv(prev), n.Body)
		widened := widenEnv(inf.h, prev, out, round, inf.widenLimit)
		widened[n.Var] = varT
		if envEqual(widened, prev) {
			prev = widened
			break
		}
		prev = widened
		if round >= inf.widenLimit {
			break
		}
	}
	for k, v := range prev {
		if k == n.Var {
			continue
		}
		env[k] = v
	}
	return &ir.ForStmt{Base: n.Base, Label: n.Label, Var: n.Var, Iter: iter, Body: body}, env
}

func (inf *inferer) forEachStmt(env Env, n *ir.ForEachStmt) (ir.Stmt, Env) {
	iter, iterT := inf.expr(env, n.Iter)
	varT := elementType(inf.h, iterT)
	prev := cloneEnv(env)
	prev[n.Var] = varT
	var body *ir.BlockStmt
	for round := 0; ; round++ {
		var out Env
		body, out = inf.block(cloneEnv(prev), n.Body)
		widened := widenEnv(inf.h, prev, out, round, inf.widenLimit)
		widened[n.Var] = varT
		if envEqual(widened, prev) {
			prev = widened
			break
		}
		prev = widened
		if round >= inf.widenLimit {
			break
		}
	}
	for k, v := range prev {
		if k == n.Var {
			continue
		}
		env[k] = v
	}
	return &ir.ForEachStmt{Base: n.Base, Label: n.Label, Var: n.Var, Iter: iter, Body: body}, env
}

func (inf *inferer) forEachTupleStmt(env Env, n *ir.ForEachTupleStmt) (ir.Stmt, Env) {
	iter, iterT := inf.expr(env, n.Iter)
	elemT := types.DropConst(elementType(inf.h, iterT))
	prev := cloneEnv(env)
	for i, name := range n.Vars {
		if elemT.Kind == types.KindConcrete && (elemT.Name == "Tuple" || elemT.Name == "NamedTuple") && i < len(elemT.Params) {
			prev[name] = elemT.Params[i]
		} else {
			prev[name] = types.Top
		}
	}
	body, out := inf.block(prev, n.Body)
	for k, v := range out {
		isLoopVar := false
		for _, name := range n.Vars {
			if k == name {
				isLoopVar = true
				break
			}
		}
		if !isLoopVar {
			env[k] = v
		}
	}
	return &ir.ForEachTupleStmt{Base: n.Base, Label: n.Label, Vars: n.Vars, Iter: iter, Body: body}, env
}

func (inf *inferer) tryCatchStmt(env Env, n *ir.TryCatchStmt) (ir.Stmt, Env) {
	body, bodyOut := inf.block(cloneEnv(env), n.Body)
	merged := bodyOut
	catches := make([]ir.CatchClause, len(n.Catches))
	for i, c := range n.Catches {
		catchEnv := cloneEnv(env)
		if c.Var != "" {
			catchEnv[c.Var] = types.Top
		}
		catchBody, catchOut := inf.block(catchEnv, c.Body)
		catches[i] = ir.CatchClause{Var: c.Var, Kinds: c.Kinds, Body: catchBody}
		merged = joinEnv(inf.h, env, merged, catchOut)
	}
	var finally *ir.BlockStmt
	if n.Finally != nil {
		finally, merged = inf.block(merged, n.Finally)
	}
	for k, v := range merged {
		env[k] = v
	}
	return &ir.TryCatchStmt{Base: n.Base, Body: body, Catches: catches, Finally: finally}, env
}

// widenEnv applies types.Widen per-name between two successive loop
// iterations, at a loop back-edge, until the environment reaches a fixed
// point.
func widenEnv(h *types.Hierarchy, prev, next Env, round, limit int) Env {
	out := make(Env, len(prev)+len(next))
	for k, v := range prev {
		nv, ok := next[k]
		if !ok {
			nv = v
		}
		out[k] = types.Widen(h, v, nv, round, limit)
	}
	for k, v := range next {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}
