package lowering

import (
	"corelang/internal/cst"
	"corelang/internal/errsys"
	"corelang/internal/ir"
	"corelang/internal/value"
)

// lowerExpr lowers one CST node used in expression position. Any node kind
// it does not recognize records an UnsupportedFeature error and yields a
// Nothing literal placeholder so the caller keeps a valid tree to continue
// walking.
func (l *Lowerer) lowerExpr(n cst.Node) ir.Expr {
	switch e := n.(type) {
	case *cst.NumberLit:
		return l.lowerNumberLit(e)
	case *cst.StringLit:
		return ir.NewLiteral(e.Span(), value.Str(e.Raw))
	case *cst.CharLit:
		r := []rune(e.Raw)
		if len(r) == 0 {
			return ir.NewLiteral(e.Span(), value.Char(0))
		}
		return ir.NewLiteral(e.Span(), value.Char(r[0]))
	case *cst.BoolLit:
		return ir.NewLiteral(e.Span(), value.Bool(e.Value))
	case *cst.NothingLit:
		return ir.NewLiteral(e.Span(), value.Nothing)
	case *cst.MissingLit:
		return ir.NewLiteral(e.Span(), value.Missing)
	case *cst.UndefLit:
		return ir.NewLiteral(e.Span(), value.Undef(e.TypeName))
	case *cst.StringInterp:
		return l.lowerStringInterp(e)
	case *cst.Ident:
		return mkVar(e.Span(), e.Name)
	case *cst.FieldAccess:
		return &ir.FieldExpr{Base: ir.NewBase(e.Span()), Object: l.lowerExpr(e.Object), Field: e.Field}
	case *cst.QualifiedName:
		// A bare qualified name not in call position reads as a field access
		// off the module value.
		return &ir.FieldExpr{Base: ir.NewBase(e.Span()), Object: mkVar(e.Span(), e.Module), Field: e.Name}
	case *cst.Binary:
		return &ir.BinaryExpr{Base: ir.NewBase(e.Span()), Op: l.binOp(e.Op, e.Span()), Left: l.lowerExpr(e.Left), Right: l.lowerExpr(e.Right)}
	case *cst.BroadcastBinary:
		return l.lowerBroadcastBinary(e)
	case *cst.Unary:
		return &ir.UnaryExpr{Base: ir.NewBase(e.Span()), Op: l.unOp(e.Op, e.Span()), Operand: l.lowerExpr(e.Operand)}
	case *cst.Ternary:
		return &ir.TernaryExpr{Base: ir.NewBase(e.Span()), Cond: l.lowerExpr(e.Cond), Then: l.lowerExpr(e.Then), Else: l.lowerExpr(e.Else)}
	case *cst.Call:
		return l.lowerCall(e)
	case *cst.QualifiedCall:
		return &ir.QualifiedCallExpr{Base: ir.NewBase(e.Span()), Module: e.Module, Name: e.Name, Args: l.lowerArgs(e.Args)}
	case *cst.ArrayLit:
		al := &ir.ArrayLit{Base: ir.NewBase(e.Span()), Hint: e.Hint}
		for _, el := range e.Elems {
			al.Elems = append(al.Elems, l.lowerExpr(el))
		}
		return al
	case *cst.TupleLit:
		if len(e.Names) == len(e.Elems) && len(e.Elems) > 0 {
			allNamed := true
			for _, nm := range e.Names {
				if nm == "" {
					allNamed = false
					break
				}
			}
			if allNamed {
				nt := &ir.NamedTupleLit{Base: ir.NewBase(e.Span()), Names: append([]string(nil), e.Names...)}
				for _, el := range e.Elems {
					nt.Elems = append(nt.Elems, l.lowerExpr(el))
				}
				return nt
			}
		}
		tl := &ir.TupleLit{Base: ir.NewBase(e.Span())}
		for _, el := range e.Elems {
			tl.Elems = append(tl.Elems, l.lowerExpr(el))
		}
		return tl
	case *cst.Pair:
		return &ir.Pair{Base: ir.NewBase(e.Span()), Key: l.lowerExpr(e.Key), Value: l.lowerExpr(e.Value)}
	case *cst.DictLit:
		dl := &ir.DictLit{Base: ir.NewBase(e.Span())}
		for _, p := range e.Entries {
			dl.Keys = append(dl.Keys, l.lowerExpr(p.Key))
			dl.Values = append(dl.Values, l.lowerExpr(p.Value))
		}
		return dl
	case *cst.IndexOp:
		ix := &ir.IndexExpr{Base: ir.NewBase(e.Span()), Object: l.lowerExpr(e.Object)}
		for _, idx := range e.Index {
			ix.Index = append(ix.Index, l.lowerExpr(idx))
		}
		return ix
	case *cst.SliceAll:
		return &ir.SliceAllExpr{Base: ir.NewBase(e.Span())}
	case *cst.RangeExpr:
		r := &ir.RangeExpr{Base: ir.NewBase(e.Span()), Start: l.lowerExpr(e.Start), Stop: l.lowerExpr(e.Stop)}
		if e.Step != nil {
			r.Step = l.lowerExpr(e.Step)
		}
		return r
	case *cst.Comprehension:
		ce := &ir.ComprehensionExpr{Base: ir.NewBase(e.Span()), Body: l.lowerExpr(e.Body)}
		for _, it := range e.Iterators {
			ce.Iterators = append(ce.Iterators, ir.Iterator{Name: it.Name, Iterable: l.lowerExpr(it.Iterable)})
		}
		if e.Filter != nil {
			ce.Filter = l.lowerExpr(e.Filter)
		}
		return ce
	case *cst.LetBlock:
		return &ir.LetBlockExpr{Base: ir.NewBase(e.Span()), Body: l.lowerBlockStmt(e.Body)}
	case *cst.IfExpr:
		// An if appearing in expression position. The statement form already returns a
		// value-producing BlockStmt shape via fallthrough assignment, so we
		// just wrap the lowered IfStmt in a one-statement LetBlockExpr.
		ifStmt := l.lowerIfExpr(e)
		return &ir.LetBlockExpr{Base: ir.NewBase(e.Span()), Body: ir.NewBlock(e.Span(), []ir.Stmt{ifStmt})}
	case *cst.StructLit:
		sl := &ir.StructLit{Base: ir.NewBase(e.Span()), TypeName: e.TypeName}
		for _, f := range e.Fields {
			sl.Fields = append(sl.Fields, l.lowerExpr(f))
		}
		return sl
	case *cst.NewExpr:
		return &ir.NewExpr{Base: ir.NewBase(e.Span()), TypeName: e.TypeName}
	case *cst.QuoteExpr:
		return l.lowerQuote(e)
	case *cst.LambdaExpr:
		return l.lowerLambda(e)
	case *cst.DynamicTypeConstruct:
		dc := &ir.DynamicTypeConstructExpr{Base: ir.NewBase(e.Span()), TypeExpr: l.lowerExpr(e.TypeExpr), Args: l.lowerArgs(e.Args)}
		for _, p := range e.Params {
			dc.Params = append(dc.Params, l.lowerExpr(p))
		}
		return dc
	case *cst.Assign:
		// Assignment read back as a value (e.g. `x = (y = 1)`).
		return l.lowerAssignExpr(e)
	case *cst.ReturnStmt:
		re := &ir.ReturnExpr{Base: ir.NewBase(e.Span())}
		if e.Value != nil {
			re.Value = l.lowerExpr(e.Value)
		}
		return re
	case *cst.BreakStmt:
		return &ir.BreakExpr{Base: ir.NewBase(e.Span())}
	case *cst.ContinueStmt:
		return &ir.ContinueExpr{Base: ir.NewBase(e.Span())}
	case nil:
		return nil
	default:
		l.errorf(errsys.UnsupportedFeature, n.Span(), "this construct is not supported in expression position", "cannot lower %T as an expression", n)
		return ir.NewLiteral(n.Span(), value.Nothing)
	}
}

func (l *Lowerer) lowerArgs(args []cst.Arg) []ir.Arg {
	out := make([]ir.Arg, 0, len(args))
	for _, a := range args {
		out = append(out, ir.Arg{Value: l.lowerExpr(a.Value), Keyword: a.Keyword, Splatted: a.Splatted})
	}
	return out
}

func (l *Lowerer) lowerCall(e *cst.Call) ir.Expr {
	args := l.lowerArgs(e.Args)
	if id, ok := e.Callee.(*cst.Ident); ok {
		if op, ok := builtinCallTable[id.Name]; ok {
			return &ir.BuiltinCallExpr{Base: ir.NewBase(e.Span()), Op: op, Args: args}
		}
	}
	return &ir.CallExpr{Base: ir.NewBase(e.Span()), Callee: l.lowerExpr(e.Callee), Args: args}
}

// builtinCallTable routes a syntactically bare call to a known host
// function straight to a BuiltinCallExpr at lowering time. This pre-empts
// type inference's own intercepted-call routing for the
// names that can never be shadowed by a user-defined multi-method (I/O,
// introspection): everything else is left as a plain CallExpr and
// resolved later by dispatch or by inference.
var builtinCallTable = map[string]ir.BuiltinOp{
	"println":     ir.BuiltinPrintln,
	"print":       ir.BuiltinPrint,
	"typeof":      ir.BuiltinTypeof,
	"isa":         ir.BuiltinIsa,
	"fieldnames":  ir.BuiltinFieldnames,
	"fieldtypes":  ir.BuiltinFieldtypes,
	"methods":     ir.BuiltinMethods,
	"hasmethod":   ir.BuiltinHasmethod,
	"which":       ir.BuiltinWhich,
	"supertype":   ir.BuiltinSupertype,
	"gensym":      ir.BuiltinGensym,
	"esc":         ir.BuiltinEsc,
	"eval":        ir.BuiltinEval,
	"macroexpand": ir.BuiltinMacroexpand,
	"sleep":       ir.BuiltinSleep,
}

func (l *Lowerer) lowerStringInterp(e *cst.StringInterp) ir.Expr {
	sc := &ir.StringConcatExpr{Base: ir.NewBase(e.Span())}
	for _, p := range e.Parts {
		if s, ok := p.(*cst.StringLit); ok {
			sc.Parts = append(sc.Parts, ir.NewLiteral(s.Span(), value.Str(s.Raw)))
			continue
		}
		sc.Parts = append(sc.Parts, l.lowerExpr(p))
	}
	return sc
}

// lowerBroadcastBinary lowers `.op` to a `materialize(Broadcasted(op, l, r))`
// call chain. Type inference later folds the common shapes
// (scalar-vector, ...) to a fused BuiltinOp; lowering only needs to produce
// the generic form.
func (l *Lowerer) lowerBroadcastBinary(e *cst.BroadcastBinary) ir.Expr {
	span := e.Span()
	opLit := ir.NewLiteral(span, value.MakeSymbol(value.Symbol(e.Op)))
	broadcasted := mkCall(span, mkVar(span, "Broadcasted"), posArg(opLit), posArg(l.lowerExpr(e.Left)), posArg(l.lowerExpr(e.Right)))
	return mkCall(span, mkVar(span, "materialize"), posArg(broadcasted))
}

// stripMaterialize undoes the outer `materialize(...)` wrapper lowering a
// broadcast expression produced, when it sits directly as the RHS of a
// `.=` in-place assignment ("the outer materialize is
// stripped so the in-place variant runs without an intermediate array").
func stripMaterialize(e ir.Expr) (ir.Expr, bool) {
	call, ok := e.(*ir.CallExpr)
	if !ok || len(call.Args) != 1 {
		return nil, false
	}
	v, ok := call.Callee.(*ir.Variable)
	if !ok || v.Name != "materialize" {
		return nil, false
	}
	return call.Args[0].Value, true
}

func (l *Lowerer) lowerQuote(e *cst.QuoteExpr) ir.Expr {
	var body ir.Expr
	if blk, ok := e.Body.(*cst.Block); ok {
		body = &ir.LetBlockExpr{Base: ir.NewBase(blk.Span()), Body: l.lowerBlockStmt(blk)}
	} else {
		body = l.lowerExpr(e.Body)
	}
	hygienic := l.hygiene(body)
	return &ir.QuoteLitExpr{Base: ir.NewBase(e.Span()), Constructor: hygienic}
}

func (l *Lowerer) lowerLambda(e *cst.LambdaExpr) ir.Expr {
	span := e.Span()
	ll := &ir.LambdaLit{Base: ir.NewBase(span), HoistAs: l.gensym("lambda")}
	for _, p := range e.Params {
		param := ir.Param{Name: p.Name, TypeName: p.TypeName, Splat: p.Splat}
		if p.Default != nil {
			param.Default = l.lowerExpr(p.Default)
		}
		ll.Params = append(ll.Params, param)
	}
	if blk, ok := e.Body.(*cst.Block); ok {
		ll.Body = &ir.LetBlockExpr{Base: ir.NewBase(span), Body: l.lowerBlockStmt(blk)}
	} else {
		ll.Body = l.lowerExpr(e.Body)
	}
	ll.Captures = freeVariables(ll.Body, paramNames(ll.Params))
	l.hoisted = append(l.hoisted, &ir.FuncDefStmt{
		Base: ir.NewBase(span), Name: ll.HoistAs, Params: ll.Params,
		Body: ir.NewBlock(span, []ir.Stmt{&ir.ReturnStmt{Base: ir.NewBase(span), Value: ll.Body}}),
	})
	return ll
}

func paramNames(params []ir.Param) map[string]bool {
	out := make(map[string]bool, len(params))
	for _, p := range params {
		out[p.Name] = true
	}
	return out
}
