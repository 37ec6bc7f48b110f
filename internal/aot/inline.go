package aot

import "corelang/internal/ir"

// Inline rewrites call sites of trivial, non-recursive, pure, single-
// overload functions in place: a "trivial" function body is exactly one
// `return <expr>` statement, so the call can be replaced by its return
// expression with parameters substituted for arguments. Anything else
// (multiple statements, loops, multiple dispatch overloads, an impure or
// recursive callee) is left as a real call - this is a narrow, safe pass,
// not a general inliner.
func Inline(prog *ir.Program) int {
	g := Build(prog)
	direct, err := AnalyzePurity(prog)
	if err != nil {
		return 0
	}
	pure := PropagateImpurity(g, direct)

	byName := make(map[string][]*ir.FuncDefStmt, len(prog.Functions))
	for _, f := range prog.Functions {
		byName[f.Name] = append(byName[f.Name], f)
	}

	candidates := make(map[string]*ir.FuncDefStmt)
	for name, overloads := range byName {
		if len(overloads) != 1 || !pure[name] {
			continue
		}
		f := overloads[0]
		if _, ok := trivialBody(f); ok {
			candidates[name] = f
		}
	}

	count := 0
	rewriter := &inlineRewriter{candidates: candidates, count: &count}
	rewriteProgram(prog, rewriter)
	return count
}

// trivialBody reports whether f's body is exactly one return statement.
func trivialBody(f *ir.FuncDefStmt) (ir.Expr, bool) {
	if f.Body == nil || len(f.Body.Stmts) != 1 {
		return nil, false
	}
	ret, ok := f.Body.Stmts[0].(*ir.ReturnStmt)
	if !ok || ret.Value == nil {
		return nil, false
	}
	return ret.Value, true
}

type inlineRewriter struct {
	candidates map[string]*ir.FuncDefStmt
	count      *int
}

// rewriteProgram walks every function body and Main, replacing eligible
// call sites. It only rewrites CallExpr nodes whose callee is a bare name
// matching a candidate and whose argument count matches the candidate's
// parameter count - anything fancier (splats, keyword args) is left alone.
func rewriteProgram(prog *ir.Program, r *inlineRewriter) {
	for _, f := range prog.Functions {
		f.Body = r.rewriteBlock(f.Body)
	}
	prog.Main = r.rewriteBlock(prog.Main)
}

func (r *inlineRewriter) rewriteBlock(b *ir.BlockStmt) *ir.BlockStmt {
	if b == nil {
		return nil
	}
	for i, s := range b.Stmts {
		b.Stmts[i] = r.rewriteStmt(s)
	}
	return b
}

func (r *inlineRewriter) rewriteStmt(s ir.Stmt) ir.Stmt {
	switch t := s.(type) {
	case *ir.ExprStmt:
		t.X = r.rewriteExpr(t.X)
	case *ir.ReturnStmt:
		if t.Value != nil {
			t.Value = r.rewriteExpr(t.Value)
		}
	case *ir.AssignStmt:
		t.Value = r.rewriteExpr(t.Value)
	case *ir.IfStmt:
		t.Cond = r.rewriteExpr(t.Cond)
		t.Then = r.rewriteBlock(t.Then)
		if t.Else != nil {
			t.Else = r.rewriteBlock(t.Else)
		}
	case *ir.WhileStmt:
		t.Cond = r.rewriteExpr(t.Cond)
		t.Body = r.rewriteBlock(t.Body)
	}
	return s
}

func (r *inlineRewriter) rewriteExpr(e ir.Expr) ir.Expr {
	switch t := e.(type) {
	case *ir.CallExpr:
		for i, a := range t.Args {
			t.Args[i].Value = r.rewriteExpr(a.Value)
		}
		name, ok := calleeName(t.Callee)
		if !ok {
			return t
		}
		fn, ok := r.candidates[name]
		if !ok {
			return t
		}
		body, ok := trivialBody(fn)
		if !ok || len(fn.Params) != len(t.Args) {
			return t
		}
		for _, a := range t.Args {
			if a.Splatted || a.Keyword != "" {
				return t
			}
		}
		subst := make(map[string]ir.Expr, len(fn.Params))
		for i, p := range fn.Params {
			subst[p.Name] = t.Args[i].Value
		}
		inlined, ok := substitute(body, subst)
		if !ok {
			return t
		}
		*r.count++
		return inlined
	case *ir.BinaryExpr:
		t.Left = r.rewriteExpr(t.Left)
		t.Right = r.rewriteExpr(t.Right)
	case *ir.UnaryExpr:
		t.Operand = r.rewriteExpr(t.Operand)
	case *ir.TernaryExpr:
		t.Cond = r.rewriteExpr(t.Cond)
		t.Then = r.rewriteExpr(t.Then)
		t.Else = r.rewriteExpr(t.Else)
	}
	return e
}

// substitute replaces *ir.Variable leaves matching a name in subst,
// covering the expression shapes a trivial single-return body can
// plausibly contain. Any node shape it doesn't recognize fails closed
// (ok=false) rather than silently leaving a parameter reference unbound.
func substitute(e ir.Expr, subst map[string]ir.Expr) (ir.Expr, bool) {
	switch t := e.(type) {
	case nil:
		return nil, true
	case *ir.Literal:
		return t, true
	case *ir.Variable:
		if v, ok := subst[t.Name]; ok {
			return v, true
		}
		return t, true
	case *ir.BinaryExpr:
		l, ok := substitute(t.Left, subst)
		if !ok {
			return nil, false
		}
		rr, ok := substitute(t.Right, subst)
		if !ok {
			return nil, false
		}
		return &ir.BinaryExpr{Base: t.Base, Op: t.Op, Left: l, Right: rr}, true
	case *ir.UnaryExpr:
		operand, ok := substitute(t.Operand, subst)
		if !ok {
			return nil, false
		}
		return &ir.UnaryExpr{Base: t.Base, Op: t.Op, Operand: operand}, true
	case *ir.TernaryExpr:
		c, ok := substitute(t.Cond, subst)
		if !ok {
			return nil, false
		}
		th, ok := substitute(t.Then, subst)
		if !ok {
			return nil, false
		}
		el, ok := substitute(t.Else, subst)
		if !ok {
			return nil, false
		}
		return &ir.TernaryExpr{Base: t.Base, Cond: c, Then: th, Else: el}, true
	case *ir.IndexExpr:
		obj, ok := substitute(t.Object, subst)
		if !ok {
			return nil, false
		}
		idx := make([]ir.Expr, len(t.Index))
		for i, e := range t.Index {
			ie, ok := substitute(e, subst)
			if !ok {
				return nil, false
			}
			idx[i] = ie
		}
		return &ir.IndexExpr{Base: t.Base, Object: obj, Index: idx}, true
	default:
		return nil, false
	}
}
