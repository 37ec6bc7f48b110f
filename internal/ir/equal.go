package ir

import "corelang/internal/value"

// Equal reports whether two nodes are structurally identical, ignoring
// source spans. Macro hygiene uses this to detect when gensym renaming
// left a quoted template unchanged (a cheap signal that no user identifier
// was shadowed), and tests use it to compare lowering output without
// depending on exact span bookkeeping.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Literal:
		y, ok := b.(*Literal)
		return ok && value.Repr(x.Value) == value.Repr(y.Value)
	case *ArrayLit:
		y, ok := b.(*ArrayLit)
		return ok && x.Hint == y.Hint && equalExprs(x.Elems, y.Elems)
	case *TupleLit:
		y, ok := b.(*TupleLit)
		return ok && equalExprs(x.Elems, y.Elems)
	case *NamedTupleLit:
		y, ok := b.(*NamedTupleLit)
		return ok && equalStrings(x.Names, y.Names) && equalExprs(x.Elems, y.Elems)
	case *StructLit:
		y, ok := b.(*StructLit)
		return ok && x.TypeName == y.TypeName && equalExprs(x.Fields, y.Fields)
	case *NewExpr:
		y, ok := b.(*NewExpr)
		return ok && x.TypeName == y.TypeName
	case *DictLit:
		y, ok := b.(*DictLit)
		return ok && equalExprs(x.Keys, y.Keys) && equalExprs(x.Values, y.Values)
	case *Pair:
		y, ok := b.(*Pair)
		return ok && Equal(x.Key, y.Key) && Equal(x.Value, y.Value)
	case *Variable:
		y, ok := b.(*Variable)
		return ok && x.Name == y.Name
	case *FuncRefExpr:
		y, ok := b.(*FuncRefExpr)
		return ok && x.Name == y.Name
	case *BinaryExpr:
		y, ok := b.(*BinaryExpr)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *UnaryExpr:
		y, ok := b.(*UnaryExpr)
		return ok && x.Op == y.Op && Equal(x.Operand, y.Operand)
	case *CallExpr:
		y, ok := b.(*CallExpr)
		return ok && Equal(x.Callee, y.Callee) && equalArgs(x.Args, y.Args)
	case *QualifiedCallExpr:
		y, ok := b.(*QualifiedCallExpr)
		return ok && x.Module == y.Module && x.Name == y.Name && equalArgs(x.Args, y.Args)
	case *BuiltinCallExpr:
		y, ok := b.(*BuiltinCallExpr)
		return ok && x.Op == y.Op && equalArgs(x.Args, y.Args)
	case *IndexExpr:
		y, ok := b.(*IndexExpr)
		return ok && Equal(x.Object, y.Object) && equalExprs(x.Index, y.Index)
	case *SliceAllExpr:
		_, ok := b.(*SliceAllExpr)
		return ok
	case *RangeExpr:
		y, ok := b.(*RangeExpr)
		if !ok || !Equal(x.Start, y.Start) || !Equal(x.Stop, y.Stop) {
			return false
		}
		return Equal(x.Step, y.Step)
	case *FieldExpr:
		y, ok := b.(*FieldExpr)
		return ok && x.Field == y.Field && Equal(x.Object, y.Object)
	case *TernaryExpr:
		y, ok := b.(*TernaryExpr)
		return ok && Equal(x.Cond, y.Cond) && Equal(x.Then, y.Then) && Equal(x.Else, y.Else)
	case *ComprehensionExpr:
		y, ok := b.(*ComprehensionExpr)
		if !ok || len(x.Iterators) != len(y.Iterators) {
			return false
		}
		for i := range x.Iterators {
			if x.Iterators[i].Name != y.Iterators[i].Name ||
				!Equal(x.Iterators[i].Iterable, y.Iterators[i].Iterable) {
				return false
			}
		}
		return Equal(x.Body, y.Body) && Equal(x.Filter, y.Filter)
	case *LetBlockExpr:
		y, ok := b.(*LetBlockExpr)
		return ok && Equal(x.Body, y.Body)
	case *StringConcatExpr:
		y, ok := b.(*StringConcatExpr)
		return ok && equalExprs(x.Parts, y.Parts)
	case *QuoteLitExpr:
		y, ok := b.(*QuoteLitExpr)
		return ok && Equal(x.Constructor, y.Constructor)
	case *AssignExpr:
		y, ok := b.(*AssignExpr)
		return ok && Equal(x.Target, y.Target) && Equal(x.Value, y.Value)
	case *ReturnExpr:
		y, ok := b.(*ReturnExpr)
		return ok && Equal(x.Value, y.Value)
	case *BreakExpr:
		_, ok := b.(*BreakExpr)
		return ok
	case *ContinueExpr:
		_, ok := b.(*ContinueExpr)
		return ok
	case *DynamicTypeConstructExpr:
		y, ok := b.(*DynamicTypeConstructExpr)
		return ok && Equal(x.TypeExpr, y.TypeExpr) && equalExprs(x.Params, y.Params) && equalArgs(x.Args, y.Args)
	case *LambdaLit:
		y, ok := b.(*LambdaLit)
		return ok && equalParams(x.Params, y.Params) && Equal(x.Body, y.Body)

	case *BlockStmt:
		y, ok := b.(*BlockStmt)
		return ok && equalStmts(x.Stmts, y.Stmts)
	case *ExprStmt:
		y, ok := b.(*ExprStmt)
		return ok && Equal(x.X, y.X)
	case *AssignStmt:
		y, ok := b.(*AssignStmt)
		return ok && Equal(x.Target, y.Target) && Equal(x.Value, y.Value)
	case *CompoundAssignStmt:
		y, ok := b.(*CompoundAssignStmt)
		return ok && x.Op == y.Op && Equal(x.Target, y.Target) && Equal(x.Value, y.Value)
	case *IndexAssignStmt:
		y, ok := b.(*IndexAssignStmt)
		return ok && Equal(x.Object, y.Object) && equalExprs(x.Index, y.Index) && Equal(x.Value, y.Value)
	case *FieldAssignStmt:
		y, ok := b.(*FieldAssignStmt)
		return ok && x.Field == y.Field && Equal(x.Object, y.Object) && Equal(x.Value, y.Value)
	case *DictAssignStmt:
		y, ok := b.(*DictAssignStmt)
		return ok && Equal(x.Object, y.Object) && Equal(x.Key, y.Key) && Equal(x.Value, y.Value)
	case *DestructureAssignStmt:
		y, ok := b.(*DestructureAssignStmt)
		return ok && equalExprs(x.Targets, y.Targets) && Equal(x.Value, y.Value)
	case *ReturnStmt:
		y, ok := b.(*ReturnStmt)
		return ok && Equal(x.Value, y.Value)
	case *BreakStmt:
		y, ok := b.(*BreakStmt)
		return ok && x.Label == y.Label
	case *ContinueStmt:
		y, ok := b.(*ContinueStmt)
		return ok && x.Label == y.Label
	case *IfStmt:
		y, ok := b.(*IfStmt)
		return ok && Equal(x.Cond, y.Cond) && Equal(x.Then, y.Then) && Equal(x.Else, y.Else)
	case *WhileStmt:
		y, ok := b.(*WhileStmt)
		return ok && x.Label == y.Label && Equal(x.Cond, y.Cond) && Equal(x.Body, y.Body)
	case *ForStmt:
		y, ok := b.(*ForStmt)
		return ok && x.Label == y.Label && x.Var == y.Var && Equal(x.Iter, y.Iter) && Equal(x.Body, y.Body)
	case *ForEachStmt:
		y, ok := b.(*ForEachStmt)
		return ok && x.Label == y.Label && x.Var == y.Var && Equal(x.Iter, y.Iter) && Equal(x.Body, y.Body)
	case *ForEachTupleStmt:
		y, ok := b.(*ForEachTupleStmt)
		return ok && x.Label == y.Label && equalStrings(x.Vars, y.Vars) && Equal(x.Iter, y.Iter) && Equal(x.Body, y.Body)
	case *LabelStmt:
		y, ok := b.(*LabelStmt)
		return ok && x.Name == y.Name
	case *GotoStmt:
		y, ok := b.(*GotoStmt)
		return ok && x.Name == y.Name
	case *TryCatchStmt:
		y, ok := b.(*TryCatchStmt)
		if !ok || !Equal(x.Body, y.Body) || len(x.Catches) != len(y.Catches) {
			return false
		}
		for i := range x.Catches {
			if x.Catches[i].Var != y.Catches[i].Var ||
				!equalStrings(x.Catches[i].Kinds, y.Catches[i].Kinds) ||
				!Equal(x.Catches[i].Body, y.Catches[i].Body) {
				return false
			}
		}
		return Equal(x.Finally, y.Finally)
	case *TestStmt:
		y, ok := b.(*TestStmt)
		return ok && x.Description == y.Description && Equal(x.Cond, y.Cond)
	case *TestSetStmt:
		y, ok := b.(*TestSetStmt)
		return ok && x.Description == y.Description && Equal(x.Body, y.Body)
	case *TestThrowsStmt:
		y, ok := b.(*TestThrowsStmt)
		return ok && x.Description == y.Description && equalStrings(x.Kinds, y.Kinds) && Equal(x.Body, y.Body)
	case *TimedStmt:
		y, ok := b.(*TimedStmt)
		return ok && x.Var == y.Var && Equal(x.Body, y.Body)
	case *UsingStmt:
		y, ok := b.(*UsingStmt)
		return ok && x.Module == y.Module && equalStrings(x.Names, y.Names)
	case *ExportStmt:
		y, ok := b.(*ExportStmt)
		return ok && equalStrings(x.Names, y.Names)
	case *FuncDefStmt:
		y, ok := b.(*FuncDefStmt)
		return ok && x.Name == y.Name && equalParams(x.Params, y.Params) &&
			equalParams(x.Keyword, y.Keyword) && Equal(x.Body, y.Body)
	case *StructDefStmt:
		y, ok := b.(*StructDefStmt)
		if !ok || x.Name != y.Name || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if x.Fields[i] != y.Fields[i] {
				return false
			}
		}
		return true
	case *EnumDefStmt:
		y, ok := b.(*EnumDefStmt)
		return ok && x.Name == y.Name && equalStrings(x.Members, y.Members)
	case *AbstractTypeDefStmt:
		y, ok := b.(*AbstractTypeDefStmt)
		return ok && x.Name == y.Name && x.Parent == y.Parent
	default:
		return false
	}
}

func equalExprs(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalStmts(a, b []Stmt) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalArgs(a, b []Arg) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Keyword != b[i].Keyword || a[i].Splatted != b[i].Splatted || !Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func equalParams(a, b []Param) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].TypeName != b[i].TypeName || a[i].Splat != b[i].Splat {
			return false
		}
		if !Equal(a[i].Default, b[i].Default) {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
