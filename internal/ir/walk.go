package ir

// Visitor mirrors go/ast.Visitor: Visit is called for every node Walk
// descends into, and a nil return stops descent into that node's children.
type Visitor interface {
	Visit(n Node) (w Visitor)
}

// Walk traverses an IR tree in lowering order, calling v.Visit for n and
// then, if it returns a non-nil visitor, for each of n's children. The AoT
// analyzer's tree scans (internal/aot) use it through Inspect instead of
// hand-rolling a recursive switch per pass.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	v = v.Visit(n)
	if v == nil {
		return
	}

	switch t := n.(type) {
	case *Literal, *Variable, *FuncRefExpr, *SliceAllExpr, *BreakExpr, *ContinueExpr,
		*BreakStmt, *ContinueStmt, *LabelStmt, *GotoStmt:
		// leaf nodes

	case *ArrayLit:
		walkExprs(v, t.Elems)
	case *TupleLit:
		walkExprs(v, t.Elems)
	case *NamedTupleLit:
		walkExprs(v, t.Elems)
	case *StructLit:
		walkExprs(v, t.Fields)
	case *NewExpr:
		// no children
	case *DictLit:
		walkExprs(v, t.Keys)
		walkExprs(v, t.Values)
	case *Pair:
		Walk(v, t.Key)
		Walk(v, t.Value)
	case *BinaryExpr:
		Walk(v, t.Left)
		Walk(v, t.Right)
	case *UnaryExpr:
		Walk(v, t.Operand)
	case *CallExpr:
		Walk(v, t.Callee)
		walkArgs(v, t.Args)
	case *QualifiedCallExpr:
		walkArgs(v, t.Args)
	case *BuiltinCallExpr:
		walkArgs(v, t.Args)
	case *IndexExpr:
		Walk(v, t.Object)
		walkExprs(v, t.Index)
	case *RangeExpr:
		Walk(v, t.Start)
		Walk(v, t.Stop)
		if t.Step != nil {
			Walk(v, t.Step)
		}
	case *FieldExpr:
		Walk(v, t.Object)
	case *TernaryExpr:
		Walk(v, t.Cond)
		Walk(v, t.Then)
		Walk(v, t.Else)
	case *ComprehensionExpr:
		for _, it := range t.Iterators {
			Walk(v, it.Iterable)
		}
		Walk(v, t.Body)
		if t.Filter != nil {
			Walk(v, t.Filter)
		}
	case *LetBlockExpr:
		Walk(v, t.Body)
	case *StringConcatExpr:
		walkExprs(v, t.Parts)
	case *QuoteLitExpr:
		Walk(v, t.Constructor)
	case *AssignExpr:
		Walk(v, t.Target)
		Walk(v, t.Value)
	case *ReturnExpr:
		if t.Value != nil {
			Walk(v, t.Value)
		}
	case *DynamicTypeConstructExpr:
		Walk(v, t.TypeExpr)
		walkExprs(v, t.Params)
		walkArgs(v, t.Args)
	case *LambdaLit:
		Walk(v, t.Body)

	case *BlockStmt:
		for _, s := range t.Stmts {
			Walk(v, s)
		}
	case *ExprStmt:
		Walk(v, t.X)
	case *AssignStmt:
		Walk(v, t.Target)
		Walk(v, t.Value)
	case *CompoundAssignStmt:
		Walk(v, t.Target)
		Walk(v, t.Value)
	case *IndexAssignStmt:
		Walk(v, t.Object)
		walkExprs(v, t.Index)
		Walk(v, t.Value)
	case *FieldAssignStmt:
		Walk(v, t.Object)
		Walk(v, t.Value)
	case *DictAssignStmt:
		Walk(v, t.Object)
		Walk(v, t.Key)
		Walk(v, t.Value)
	case *DestructureAssignStmt:
		walkExprs(v, t.Targets)
		Walk(v, t.Value)
	case *ReturnStmt:
		if t.Value != nil {
			Walk(v, t.Value)
		}
	case *IfStmt:
		Walk(v, t.Cond)
		Walk(v, t.Then)
		if t.Else != nil {
			Walk(v, t.Else)
		}
	case *WhileStmt:
		Walk(v, t.Cond)
		Walk(v, t.Body)
	case *ForStmt:
		Walk(v, t.Iter)
		Walk(v, t.Body)
	case *ForEachStmt:
		Walk(v, t.Iter)
		Walk(v, t.Body)
	case *ForEachTupleStmt:
		Walk(v, t.Iter)
		Walk(v, t.Body)
	case *TryCatchStmt:
		Walk(v, t.Body)
		for _, c := range t.Catches {
			Walk(v, c.Body)
		}
		if t.Finally != nil {
			Walk(v, t.Finally)
		}
	case *TestStmt:
		Walk(v, t.Cond)
	case *TestSetStmt:
		Walk(v, t.Body)
	case *TestThrowsStmt:
		Walk(v, t.Body)
	case *TimedStmt:
		Walk(v, t.Body)
	case *UsingStmt, *ExportStmt:
		// no expr/stmt children
	case *FuncDefStmt:
		for _, p := range t.Params {
			if p.Default != nil {
				Walk(v, p.Default)
			}
		}
		for _, p := range t.Keyword {
			if p.Default != nil {
				Walk(v, p.Default)
			}
		}
		Walk(v, t.Body)
	case *StructDefStmt, *EnumDefStmt, *AbstractTypeDefStmt:
		// declaration-only nodes

	default:
		// Unknown node kinds are treated as leaves rather than panicking, so
		// Walk stays usable while new node types are under construction.
	}

	v.Visit(nil)
}

func walkExprs(v Visitor, exprs []Expr) {
	for _, e := range exprs {
		Walk(v, e)
	}
}

func walkArgs(v Visitor, args []Arg) {
	for _, a := range args {
		Walk(v, a.Value)
	}
}

// Inspect traverses the tree in lowering order, calling f for each node.
// Descent into a node's children stops when f returns false, mirroring
// go/ast.Inspect.
func Inspect(n Node, f func(Node) bool) {
	Walk(inspector(f), n)
}

type inspector func(Node) bool

func (f inspector) Visit(n Node) Visitor {
	if n == nil {
		return nil
	}
	if f(n) {
		return f
	}
	return nil
}
