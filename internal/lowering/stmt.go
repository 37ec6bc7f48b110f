package lowering

import (
	"corelang/internal/cst"
	"corelang/internal/errsys"
	"corelang/internal/ir"
	"corelang/internal/value"
)

func (l *Lowerer) lowerBlockStmt(b *cst.Block) *ir.BlockStmt {
	if b == nil {
		return ir.NewBlock(errsys.Span{}, nil)
	}
	var stmts []ir.Stmt
	for _, s := range b.Stmts {
		stmts = append(stmts, l.lowerStmt(s)...)
	}
	return ir.NewBlock(b.Span(), stmts)
}

// lowerStmt lowers one CST node used in statement position. It returns a
// slice because some forms (nested field-assignment, tuple destructuring)
// expand to more than one IR statement.
func (l *Lowerer) lowerStmt(n cst.Node) []ir.Stmt {
	switch s := n.(type) {
	case *cst.Assign:
		return l.lowerAssignTarget(s.Target, l.lowerExpr(s.Value), s.Span())
	case *cst.CompoundAssign:
		return []ir.Stmt{&ir.CompoundAssignStmt{
			Base: ir.NewBase(s.Span()), Target: l.lowerExpr(s.Target),
			Op: l.binOp(s.Op, s.Span()), Value: l.lowerExpr(s.Value),
		}}
	case *cst.BroadcastAssign:
		return []ir.Stmt{l.lowerBroadcastAssign(s)}
	case *cst.IfExpr:
		return []ir.Stmt{l.lowerIfExpr(s)}
	case *cst.WhileStmt:
		return []ir.Stmt{&ir.WhileStmt{Base: ir.NewBase(s.Span()), Label: s.Label, Cond: l.lowerExpr(s.Cond), Body: l.lowerBlockStmt(s.Body)}}
	case *cst.ForStmt:
		return []ir.Stmt{l.lowerForStmt(s)}
	case *cst.ReturnStmt:
		rs := &ir.ReturnStmt{Base: ir.NewBase(s.Span())}
		if s.Value != nil {
			rs.Value = l.lowerExpr(s.Value)
		}
		return []ir.Stmt{rs}
	case *cst.BreakStmt:
		return []ir.Stmt{&ir.BreakStmt{Base: ir.NewBase(s.Span()), Label: s.Label}}
	case *cst.ContinueStmt:
		return []ir.Stmt{&ir.ContinueStmt{Base: ir.NewBase(s.Span()), Label: s.Label}}
	case *cst.LabelStmt:
		return []ir.Stmt{&ir.LabelStmt{Base: ir.NewBase(s.Span()), Name: s.Name}}
	case *cst.GotoStmt:
		return []ir.Stmt{&ir.GotoStmt{Base: ir.NewBase(s.Span()), Name: s.Name}}
	case *cst.TryCatch:
		return []ir.Stmt{l.lowerTryCatch(s)}
	case *cst.TestDecl:
		return []ir.Stmt{&ir.TestStmt{Base: ir.NewBase(s.Span()), Description: s.Description, Cond: l.lowerExpr(s.Cond)}}
	case *cst.TestSetDecl:
		return []ir.Stmt{&ir.TestSetStmt{Base: ir.NewBase(s.Span()), Description: s.Description, Body: l.lowerBlockStmt(s.Body)}}
	case *cst.TestThrowsDecl:
		return []ir.Stmt{&ir.TestThrowsStmt{Base: ir.NewBase(s.Span()), Description: s.Description, Kinds: append([]string(nil), s.Kinds...), Body: l.lowerBlockStmt(s.Body)}}
	case *cst.TimedDecl:
		return []ir.Stmt{&ir.TimedStmt{Base: ir.NewBase(s.Span()), Var: s.Var, Body: l.lowerBlockStmt(s.Body)}}
	case *cst.UsingStmt:
		return []ir.Stmt{&ir.UsingStmt{Base: ir.NewBase(s.Span()), Module: s.Module, Names: append([]string(nil), s.Names...)}}
	case *cst.ExportStmt:
		return []ir.Stmt{&ir.ExportStmt{Base: ir.NewBase(s.Span()), Names: append([]string(nil), s.Names...)}}
	case *cst.FuncDef:
		// A function def nested inside a block. Multi-methods are resolved
		// by name + argument types globally, so lexical
		// position carries no scoping meaning; hoist it to the program's
		// flat function table instead of threading a local-function IR
		// construct through the rest of the pipeline.
		l.hoisted = append(l.hoisted, l.lowerFuncDef(s))
		return nil
	case *cst.StructDef:
		l.hoistedStructs = append(l.hoistedStructs, l.lowerStructDef(s))
		return nil
	case *cst.EnumDef:
		l.hoistedEnums = append(l.hoistedEnums, l.lowerEnumDef(s))
		return nil
	case *cst.AbstractDef:
		l.hoistedAbstracts = append(l.hoistedAbstracts, l.lowerAbstractDef(s))
		return nil
	default:
		return []ir.Stmt{&ir.ExprStmt{Base: ir.NewBase(n.Span()), X: l.lowerExpr(n)}}
	}
}

func (l *Lowerer) lowerIfExpr(s *cst.IfExpr) *ir.IfStmt {
	ifs := &ir.IfStmt{Base: ir.NewBase(s.Span()), Cond: l.lowerExpr(s.Cond), Then: l.lowerBlockStmt(s.Then)}
	if s.Else != nil {
		ifs.Else = l.lowerBlockStmt(s.Else)
	}
	return ifs
}

func (l *Lowerer) lowerForStmt(s *cst.ForStmt) ir.Stmt {
	span := s.Span()
	iter := l.lowerExpr(s.Iter)
	body := l.lowerBlockStmt(s.Body)
	if len(s.Vars) > 1 {
		return &ir.ForEachTupleStmt{Base: ir.NewBase(span), Label: s.Label, Vars: append([]string(nil), s.Vars...), Iter: iter, Body: body}
	}
	name := ""
	if len(s.Vars) == 1 {
		name = s.Vars[0]
	}
	if _, ok := s.Iter.(*cst.RangeExpr); ok {
		return &ir.ForStmt{Base: ir.NewBase(span), Label: s.Label, Var: name, Iter: iter, Body: body}
	}
	return &ir.ForEachStmt{Base: ir.NewBase(span), Label: s.Label, Var: name, Iter: iter, Body: body}
}

func (l *Lowerer) lowerTryCatch(s *cst.TryCatch) *ir.TryCatchStmt {
	tc := &ir.TryCatchStmt{Base: ir.NewBase(s.Span()), Body: l.lowerBlockStmt(s.Body)}
	for _, c := range s.Catches {
		tc.Catches = append(tc.Catches, ir.CatchClause{Var: c.Var, Kinds: append([]string(nil), c.Kinds...), Body: l.lowerBlockStmt(c.Body)})
	}
	if s.Finally != nil {
		tc.Finally = l.lowerBlockStmt(s.Finally)
	}
	return tc
}

// lowerBroadcastAssign lowers `dest .= rhs`: when rhs lowers
// to a `materialize(Broadcasted(...))` call, the outer materialize is
// stripped so the store runs in place against dest without an intermediate
// array; otherwise rhs is passed through as-is and `materialize!` still
// performs the elementwise store.
func (l *Lowerer) lowerBroadcastAssign(s *cst.BroadcastAssign) ir.Stmt {
	span := s.Span()
	target := l.lowerExpr(s.Target)
	value := l.lowerExpr(s.Value)
	if inner, ok := stripMaterialize(value); ok {
		value = inner
	}
	call := mkCall(span, mkVar(span, "materialize!"), posArg(target), posArg(value))
	return &ir.ExprStmt{Base: ir.NewBase(span), X: call}
}

func (l *Lowerer) lowerAssignExpr(e *cst.Assign) ir.Expr {
	return &ir.AssignExpr{Base: ir.NewBase(e.Span()), Target: l.lowerExpr(e.Target), Value: l.lowerExpr(e.Value)}
}

// lowerAssignTarget expands `target = value` at statement level into one or
// more IR statements:
//   - a bare name assigns directly;
//   - `obj[idx...] = value` becomes an IndexAssignStmt;
//   - `a.b.c = value` introduces a temp holding `a.b` and a single-level
//     field assignment against it (struct fields live behind a heap handle,
//     so mutating through the temp is visible through the original chain -
//     internal/value's struct-heap pattern means no copy-back is needed);
//   - `(a, b) = value` introduces a temp and 1-based indexed reads, assigned
//     back into each element recursively (so nested destructuring works).
func (l *Lowerer) lowerAssignTarget(target cst.Node, value ir.Expr, span errsys.Span) []ir.Stmt {
	switch t := target.(type) {
	case *cst.Ident:
		return []ir.Stmt{&ir.AssignStmt{Base: ir.NewBase(span), Target: mkVar(t.Span(), t.Name), Value: value}}
	case *cst.IndexOp:
		ix := &ir.IndexAssignStmt{Base: ir.NewBase(span), Object: l.lowerExpr(t.Object), Value: value}
		for _, idx := range t.Index {
			ix.Index = append(ix.Index, l.lowerExpr(idx))
		}
		return []ir.Stmt{ix}
	case *cst.FieldAccess:
		if id, ok := t.Object.(*cst.Ident); ok {
			return []ir.Stmt{&ir.FieldAssignStmt{Base: ir.NewBase(span), Object: mkVar(id.Span(), id.Name), Field: t.Field, Value: value}}
		}
		tmp := l.gensym("field_base")
		base := l.lowerExpr(t.Object)
		return []ir.Stmt{
			&ir.AssignStmt{Base: ir.NewBase(span), Target: mkVar(span, tmp), Value: base},
			&ir.FieldAssignStmt{Base: ir.NewBase(span), Object: mkVar(span, tmp), Field: t.Field, Value: value},
		}
	case *cst.TupleLit:
		if len(t.Elems) == 0 {
			l.errorf(errsys.UnsupportedFeature, span, "destructuring assignment needs at least one target", "empty destructuring tuple")
			return nil
		}
		tmp := l.gensym("destructure")
		stmts := []ir.Stmt{&ir.AssignStmt{Base: ir.NewBase(span), Target: mkVar(span, tmp), Value: value}}
		for i, elem := range t.Elems {
			idx := &ir.IndexExpr{Base: ir.NewBase(span), Object: mkVar(span, tmp), Index: []ir.Expr{ir.NewLiteral(span, value.Int64(int64(i + 1)))}}
			stmts = append(stmts, l.lowerAssignTarget(elem, idx, span)...)
		}
		return stmts
	default:
		l.errorf(errsys.UnsupportedFeature, span, "this expression cannot appear on the left of an assignment", "unsupported assignment target %T", target)
		return nil
	}
}
