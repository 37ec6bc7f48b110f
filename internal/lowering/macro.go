package lowering

import (
	"sort"

	"corelang/internal/ir"
)

// hygiene applies macro-hygiene renaming to a quoted constructor tree:
// names the quoted body introduces (assignment and destructuring targets,
// loop induction variables) are rewritten with
// a gensym'd suffix so they cannot collide with names in scope at the
// macro's call site, while names wrapped in an `esc(...)` call are left
// untouched - that's how a macro deliberately reaches into the caller's
// scope. Lambda parameter names are collected too, so same-named
// references elsewhere in the template are renamed, but a lambda literal
// itself passes through unchanged: lowering has already hoisted its body
// into a separate function.
//
// The rewrite covers the node shapes that actually occur in hand-written
// macro templates (calls, binary/unary ops, blocks, assignment,
// control flow, literals); node kinds that can't syntactically appear
// inside a `quote{}` body in a useful way (struct/enum/abstract
// declarations, module-level using/export) pass through unchanged.
func (l *Lowerer) hygiene(root ir.Expr) ir.Expr {
	introduced := map[string]bool{}
	collectIntroduced(root, introduced, false)
	if len(introduced) == 0 {
		return root
	}
	rename := make(map[string]string, len(introduced))
	names := make([]string, 0, len(introduced))
	for n := range introduced {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		rename[n] = l.gensym(n)
	}
	return rewriteExpr(root, rename, false)
}

func isEscCall(n ir.Node) (*ir.BuiltinCallExpr, bool) {
	c, ok := n.(*ir.BuiltinCallExpr)
	if !ok || c.Op != ir.BuiltinEsc {
		return nil, false
	}
	return c, true
}

// collectIntroduced walks the tree gathering names bound by assignment,
// loop variables, or lambda/function parameters, skipping subtrees guarded
// by esc(...) once inEsc is true.
func collectIntroduced(n ir.Node, out map[string]bool, inEsc bool) {
	if n == nil {
		return
	}
	if c, ok := isEscCall(n); ok && !inEsc {
		for _, a := range c.Args {
			collectIntroduced(a.Value, out, true)
		}
		return
	}
	switch x := n.(type) {
	case *ir.AssignExpr:
		addIfVar(x.Target, out, inEsc)
		collectIntroduced(x.Target, out, inEsc)
		collectIntroduced(x.Value, out, inEsc)
	case *ir.AssignStmt:
		addIfVar(x.Target, out, inEsc)
		collectIntroduced(x.Target, out, inEsc)
		collectIntroduced(x.Value, out, inEsc)
	case *ir.DestructureAssignStmt:
		for _, t := range x.Targets {
			addIfVar(t, out, inEsc)
		}
		collectIntroduced(x.Value, out, inEsc)
	case *ir.ForStmt:
		if !inEsc && x.Var != "" {
			out[x.Var] = true
		}
		collectIntroduced(x.Iter, out, inEsc)
		collectIntroduced(x.Body, out, inEsc)
	case *ir.ForEachStmt:
		if !inEsc && x.Var != "" {
			out[x.Var] = true
		}
		collectIntroduced(x.Iter, out, inEsc)
		collectIntroduced(x.Body, out, inEsc)
	case *ir.ForEachTupleStmt:
		if !inEsc {
			for _, v := range x.Vars {
				out[v] = true
			}
		}
		collectIntroduced(x.Iter, out, inEsc)
		collectIntroduced(x.Body, out, inEsc)
	case *ir.LambdaLit:
		if !inEsc {
			for _, p := range x.Params {
				out[p.Name] = true
			}
		}
		collectIntroduced(x.Body, out, inEsc)
	case *ir.BlockStmt:
		for _, s := range x.Stmts {
			collectIntroduced(s, out, inEsc)
		}
	case *ir.ExprStmt:
		collectIntroduced(x.X, out, inEsc)
	case *ir.IfStmt:
		collectIntroduced(x.Cond, out, inEsc)
		collectIntroduced(x.Then, out, inEsc)
		collectIntroduced(x.Else, out, inEsc)
	case *ir.WhileStmt:
		collectIntroduced(x.Cond, out, inEsc)
		collectIntroduced(x.Body, out, inEsc)
	case *ir.BinaryExpr:
		collectIntroduced(x.Left, out, inEsc)
		collectIntroduced(x.Right, out, inEsc)
	case *ir.UnaryExpr:
		collectIntroduced(x.Operand, out, inEsc)
	case *ir.CallExpr:
		collectIntroduced(x.Callee, out, inEsc)
		for _, a := range x.Args {
			collectIntroduced(a.Value, out, inEsc)
		}
	case *ir.BuiltinCallExpr:
		for _, a := range x.Args {
			collectIntroduced(a.Value, out, inEsc)
		}
	case *ir.LetBlockExpr:
		collectIntroduced(x.Body, out, inEsc)
	case *ir.TernaryExpr:
		collectIntroduced(x.Cond, out, inEsc)
		collectIntroduced(x.Then, out, inEsc)
		collectIntroduced(x.Else, out, inEsc)
	case *ir.ReturnStmt:
		collectIntroduced(x.Value, out, inEsc)
	case *ir.IndexExpr:
		collectIntroduced(x.Object, out, inEsc)
		for _, i := range x.Index {
			collectIntroduced(i, out, inEsc)
		}
	case *ir.FieldExpr:
		collectIntroduced(x.Object, out, inEsc)
	}
}

func addIfVar(e ir.Expr, out map[string]bool, inEsc bool) {
	if inEsc {
		return
	}
	if v, ok := e.(*ir.Variable); ok {
		out[v.Name] = true
	}
}

// rewriteExpr rebuilds the tree with renamed Variable occurrences; esc(...)
// calls are unwrapped to their single argument, left completely unrenamed.
func rewriteExpr(n ir.Expr, rename map[string]string, inEsc bool) ir.Expr {
	if n == nil {
		return nil
	}
	if c, ok := isEscCall(n); ok && !inEsc {
		if len(c.Args) == 1 {
			return rewriteExpr(c.Args[0].Value, rename, true)
		}
		return c
	}
	switch x := n.(type) {
	case *ir.Variable:
		if nn, ok := rename[x.Name]; ok && !inEsc {
			return &ir.Variable{Base: x.Base, Name: nn}
		}
		return x
	case *ir.BinaryExpr:
		return &ir.BinaryExpr{Base: x.Base, Op: x.Op, Left: rewriteExpr(x.Left, rename, inEsc), Right: rewriteExpr(x.Right, rename, inEsc)}
	case *ir.UnaryExpr:
		return &ir.UnaryExpr{Base: x.Base, Op: x.Op, Operand: rewriteExpr(x.Operand, rename, inEsc)}
	case *ir.TernaryExpr:
		return &ir.TernaryExpr{Base: x.Base, Cond: rewriteExpr(x.Cond, rename, inEsc), Then: rewriteExpr(x.Then, rename, inEsc), Else: rewriteExpr(x.Else, rename, inEsc)}
	case *ir.CallExpr:
		return &ir.CallExpr{Base: x.Base, Callee: rewriteExpr(x.Callee, rename, inEsc), Args: rewriteArgs(x.Args, rename, inEsc)}
	case *ir.BuiltinCallExpr:
		return &ir.BuiltinCallExpr{Base: x.Base, Op: x.Op, Args: rewriteArgs(x.Args, rename, inEsc)}
	case *ir.IndexExpr:
		idx := make([]ir.Expr, len(x.Index))
		for i, e := range x.Index {
			idx[i] = rewriteExpr(e, rename, inEsc)
		}
		return &ir.IndexExpr{Base: x.Base, Object: rewriteExpr(x.Object, rename, inEsc), Index: idx}
	case *ir.FieldExpr:
		return &ir.FieldExpr{Base: x.Base, Object: rewriteExpr(x.Object, rename, inEsc), Field: x.Field}
	case *ir.AssignExpr:
		return &ir.AssignExpr{Base: x.Base, Target: rewriteExpr(x.Target, rename, inEsc), Value: rewriteExpr(x.Value, rename, inEsc)}
	case *ir.LetBlockExpr:
		return &ir.LetBlockExpr{Base: x.Base, Body: rewriteBlock(x.Body, rename, inEsc)}
	case *ir.ReturnExpr:
		return &ir.ReturnExpr{Base: x.Base, Value: rewriteExpr(x.Value, rename, inEsc)}
	default:
		return x
	}
}

func rewriteArgs(args []ir.Arg, rename map[string]string, inEsc bool) []ir.Arg {
	out := make([]ir.Arg, len(args))
	for i, a := range args {
		out[i] = ir.Arg{Value: rewriteExpr(a.Value, rename, inEsc), Keyword: a.Keyword, Splatted: a.Splatted}
	}
	return out
}

func rewriteStmt(s ir.Stmt, rename map[string]string, inEsc bool) ir.Stmt {
	switch x := s.(type) {
	case *ir.BlockStmt:
		return rewriteBlock(x, rename, inEsc)
	case *ir.ExprStmt:
		return &ir.ExprStmt{Base: x.Base, X: rewriteExpr(x.X, rename, inEsc)}
	case *ir.AssignStmt:
		return &ir.AssignStmt{Base: x.Base, Target: rewriteExpr(x.Target, rename, inEsc), Value: rewriteExpr(x.Value, rename, inEsc)}
	case *ir.IfStmt:
		ifs := &ir.IfStmt{Base: x.Base, Cond: rewriteExpr(x.Cond, rename, inEsc), Then: rewriteBlock(x.Then, rename, inEsc)}
		if x.Else != nil {
			ifs.Else = rewriteBlock(x.Else, rename, inEsc)
		}
		return ifs
	case *ir.WhileStmt:
		return &ir.WhileStmt{Base: x.Base, Label: x.Label, Cond: rewriteExpr(x.Cond, rename, inEsc), Body: rewriteBlock(x.Body, rename, inEsc)}
	case *ir.ForStmt:
		name := x.Var
		if nn, ok := rename[name]; ok && !inEsc {
			name = nn
		}
		return &ir.ForStmt{Base: x.Base, Label: x.Label, Var: name, Iter: rewriteExpr(x.Iter, rename, inEsc), Body: rewriteBlock(x.Body, rename, inEsc)}
	case *ir.ForEachStmt:
		name := x.Var
		if nn, ok := rename[name]; ok && !inEsc {
			name = nn
		}
		return &ir.ForEachStmt{Base: x.Base, Label: x.Label, Var: name, Iter: rewriteExpr(x.Iter, rename, inEsc), Body: rewriteBlock(x.Body, rename, inEsc)}
	case *ir.ForEachTupleStmt:
		vars := make([]string, len(x.Vars))
		for i, v := range x.Vars {
			vars[i] = v
			if nn, ok := rename[v]; ok && !inEsc {
				vars[i] = nn
			}
		}
		return &ir.ForEachTupleStmt{Base: x.Base, Label: x.Label, Vars: vars, Iter: rewriteExpr(x.Iter, rename, inEsc), Body: rewriteBlock(x.Body, rename, inEsc)}
	case *ir.DestructureAssignStmt:
		targets := make([]ir.Expr, len(x.Targets))
		for i, tg := range x.Targets {
			targets[i] = rewriteExpr(tg, rename, inEsc)
		}
		return &ir.DestructureAssignStmt{Base: x.Base, Targets: targets, Value: rewriteExpr(x.Value, rename, inEsc)}
	case *ir.ReturnStmt:
		return &ir.ReturnStmt{Base: x.Base, Value: rewriteExpr(x.Value, rename, inEsc)}
	default:
		return s
	}
}

func rewriteBlock(b *ir.BlockStmt, rename map[string]string, inEsc bool) *ir.BlockStmt {
	if b == nil {
		return nil
	}
	stmts := make([]ir.Stmt, len(b.Stmts))
	for i, s := range b.Stmts {
		stmts[i] = rewriteStmt(s, rename, inEsc)
	}
	return &ir.BlockStmt{Base: b.Base, Stmts: stmts}
}

// freeVariables collects the names LambdaLit's body reads that are not
// already bound as a parameter, used to compute its runtime Captures list.
func freeVariables(body ir.Expr, bound map[string]bool) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(n ir.Expr)
	walk = func(n ir.Expr) {
		if n == nil {
			return
		}
		switch x := n.(type) {
		case *ir.Variable:
			if !bound[x.Name] && !seen[x.Name] {
				seen[x.Name] = true
				out = append(out, x.Name)
			}
		case *ir.BinaryExpr:
			walk(x.Left)
			walk(x.Right)
		case *ir.UnaryExpr:
			walk(x.Operand)
		case *ir.TernaryExpr:
			walk(x.Cond)
			walk(x.Then)
			walk(x.Else)
		case *ir.CallExpr:
			walk(x.Callee)
			for _, a := range x.Args {
				walk(a.Value)
			}
		case *ir.BuiltinCallExpr:
			for _, a := range x.Args {
				walk(a.Value)
			}
		case *ir.QualifiedCallExpr:
			for _, a := range x.Args {
				walk(a.Value)
			}
		case *ir.IndexExpr:
			walk(x.Object)
			for _, i := range x.Index {
				walk(i)
			}
		case *ir.FieldExpr:
			walk(x.Object)
		case *ir.ArrayLit:
			for _, e := range x.Elems {
				walk(e)
			}
		case *ir.TupleLit:
			for _, e := range x.Elems {
				walk(e)
			}
		case *ir.LetBlockExpr:
			walkBlockFree(x.Body, bound, seen, &out)
		case *ir.AssignExpr:
			walk(x.Value)
		}
	}
	walk(body)
	sort.Strings(out)
	return out
}

func walkBlockFree(b *ir.BlockStmt, bound map[string]bool, seen map[string]bool, out *[]string) {
	if b == nil {
		return
	}
	add := func(name string) {
		if !bound[name] && !seen[name] {
			seen[name] = true
			*out = append(*out, name)
		}
	}
	var walkExpr func(n ir.Expr)
	walkExpr = func(n ir.Expr) {
		switch x := n.(type) {
		case *ir.Variable:
			add(x.Name)
		case *ir.BinaryExpr:
			walkExpr(x.Left)
			walkExpr(x.Right)
		case *ir.UnaryExpr:
			walkExpr(x.Operand)
		case *ir.CallExpr:
			walkExpr(x.Callee)
			for _, a := range x.Args {
				walkExpr(a.Value)
			}
		case *ir.IndexExpr:
			walkExpr(x.Object)
			for _, i := range x.Index {
				walkExpr(i)
			}
		case *ir.FieldExpr:
			walkExpr(x.Object)
		}
	}
	for _, s := range b.Stmts {
		switch x := s.(type) {
		case *ir.ExprStmt:
			walkExpr(x.X)
		case *ir.AssignStmt:
			walkExpr(x.Value)
		case *ir.ReturnStmt:
			walkExpr(x.Value)
		case *ir.IfStmt:
			walkExpr(x.Cond)
			walkBlockFree(x.Then, bound, seen, out)
			walkBlockFree(x.Else, bound, seen, out)
		}
	}
}
