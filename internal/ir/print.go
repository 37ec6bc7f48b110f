package ir

import (
	"fmt"
	"strings"
)

// Print renders a node as an s-expression-ish debug form. It is
// deliberately not a pretty-printer that round-trips to source. The CLI's
// -dump-ir flag does not use it; that flag prints inferred signatures.
func Print(n Node) string {
	var b strings.Builder
	print1(&b, n, 0)
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func print1(b *strings.Builder, n Node, depth int) {
	indent(b, depth)
	if n == nil {
		b.WriteString("<nil>\n")
		return
	}
	switch t := n.(type) {
	case *Literal:
		fmt.Fprintf(b, "Literal %s\n", t.Value.Tag)
	case *ArrayLit:
		fmt.Fprintf(b, "ArrayLit hint=%q\n", t.Hint)
		for _, e := range t.Elems {
			print1(b, e, depth+1)
		}
	case *TupleLit:
		b.WriteString("TupleLit\n")
		for _, e := range t.Elems {
			print1(b, e, depth+1)
		}
	case *NamedTupleLit:
		fmt.Fprintf(b, "NamedTupleLit %v\n", t.Names)
		for _, e := range t.Elems {
			print1(b, e, depth+1)
		}
	case *StructLit:
		fmt.Fprintf(b, "StructLit %s\n", t.TypeName)
		for _, e := range t.Fields {
			print1(b, e, depth+1)
		}
	case *NewExpr:
		fmt.Fprintf(b, "NewExpr %s\n", t.TypeName)
	case *DictLit:
		b.WriteString("DictLit\n")
		for i := range t.Keys {
			print1(b, t.Keys[i], depth+1)
			print1(b, t.Values[i], depth+1)
		}
	case *Pair:
		b.WriteString("Pair\n")
		print1(b, t.Key, depth+1)
		print1(b, t.Value, depth+1)
	case *Variable:
		fmt.Fprintf(b, "Variable %s\n", t.Name)
	case *FuncRefExpr:
		fmt.Fprintf(b, "FuncRefExpr %s\n", t.Name)
	case *BinaryExpr:
		fmt.Fprintf(b, "BinaryExpr %s\n", t.Op)
		print1(b, t.Left, depth+1)
		print1(b, t.Right, depth+1)
	case *UnaryExpr:
		fmt.Fprintf(b, "UnaryExpr %s\n", t.Op)
		print1(b, t.Operand, depth+1)
	case *CallExpr:
		b.WriteString("CallExpr\n")
		print1(b, t.Callee, depth+1)
		printArgs(b, t.Args, depth+1)
	case *QualifiedCallExpr:
		fmt.Fprintf(b, "QualifiedCallExpr %s.%s\n", t.Module, t.Name)
		printArgs(b, t.Args, depth+1)
	case *BuiltinCallExpr:
		fmt.Fprintf(b, "BuiltinCallExpr %d\n", t.Op)
		printArgs(b, t.Args, depth+1)
	case *IndexExpr:
		b.WriteString("IndexExpr\n")
		print1(b, t.Object, depth+1)
		for _, idx := range t.Index {
			print1(b, idx, depth+1)
		}
	case *SliceAllExpr:
		b.WriteString("SliceAllExpr\n")
	case *RangeExpr:
		b.WriteString("RangeExpr\n")
		print1(b, t.Start, depth+1)
		print1(b, t.Stop, depth+1)
		if t.Step != nil {
			print1(b, t.Step, depth+1)
		}
	case *FieldExpr:
		fmt.Fprintf(b, "FieldExpr .%s\n", t.Field)
		print1(b, t.Object, depth+1)
	case *TernaryExpr:
		b.WriteString("TernaryExpr\n")
		print1(b, t.Cond, depth+1)
		print1(b, t.Then, depth+1)
		print1(b, t.Else, depth+1)
	case *ComprehensionExpr:
		b.WriteString("ComprehensionExpr\n")
		for _, it := range t.Iterators {
			indent(b, depth+1)
			fmt.Fprintf(b, "in %s\n", it.Name)
			print1(b, it.Iterable, depth+2)
		}
		print1(b, t.Body, depth+1)
	case *LetBlockExpr:
		b.WriteString("LetBlockExpr\n")
		print1(b, t.Body, depth+1)
	case *StringConcatExpr:
		b.WriteString("StringConcatExpr\n")
		for _, p := range t.Parts {
			print1(b, p, depth+1)
		}
	case *QuoteLitExpr:
		b.WriteString("QuoteLitExpr\n")
		print1(b, t.Constructor, depth+1)
	case *AssignExpr:
		b.WriteString("AssignExpr\n")
		print1(b, t.Target, depth+1)
		print1(b, t.Value, depth+1)
	case *ReturnExpr:
		b.WriteString("ReturnExpr\n")
		if t.Value != nil {
			print1(b, t.Value, depth+1)
		}
	case *BreakExpr:
		b.WriteString("BreakExpr\n")
	case *ContinueExpr:
		b.WriteString("ContinueExpr\n")
	case *DynamicTypeConstructExpr:
		b.WriteString("DynamicTypeConstructExpr\n")
		print1(b, t.TypeExpr, depth+1)
	case *LambdaLit:
		fmt.Fprintf(b, "LambdaLit %s captures=%v\n", t.HoistAs, t.Captures)
		print1(b, t.Body, depth+1)

	case *BlockStmt:
		b.WriteString("BlockStmt\n")
		for _, s := range t.Stmts {
			print1(b, s, depth+1)
		}
	case *ExprStmt:
		b.WriteString("ExprStmt\n")
		print1(b, t.X, depth+1)
	case *AssignStmt:
		b.WriteString("AssignStmt\n")
		print1(b, t.Target, depth+1)
		print1(b, t.Value, depth+1)
	case *CompoundAssignStmt:
		fmt.Fprintf(b, "CompoundAssignStmt %s=\n", t.Op)
		print1(b, t.Target, depth+1)
		print1(b, t.Value, depth+1)
	case *IndexAssignStmt:
		b.WriteString("IndexAssignStmt\n")
		print1(b, t.Object, depth+1)
		print1(b, t.Value, depth+1)
	case *FieldAssignStmt:
		fmt.Fprintf(b, "FieldAssignStmt .%s\n", t.Field)
		print1(b, t.Object, depth+1)
		print1(b, t.Value, depth+1)
	case *DictAssignStmt:
		b.WriteString("DictAssignStmt\n")
		print1(b, t.Object, depth+1)
		print1(b, t.Key, depth+1)
		print1(b, t.Value, depth+1)
	case *DestructureAssignStmt:
		b.WriteString("DestructureAssignStmt\n")
		for _, tgt := range t.Targets {
			print1(b, tgt, depth+1)
		}
		print1(b, t.Value, depth+1)
	case *ReturnStmt:
		b.WriteString("ReturnStmt\n")
		if t.Value != nil {
			print1(b, t.Value, depth+1)
		}
	case *BreakStmt:
		fmt.Fprintf(b, "BreakStmt %q\n", t.Label)
	case *ContinueStmt:
		fmt.Fprintf(b, "ContinueStmt %q\n", t.Label)
	case *IfStmt:
		b.WriteString("IfStmt\n")
		print1(b, t.Cond, depth+1)
		print1(b, t.Then, depth+1)
		if t.Else != nil {
			print1(b, t.Else, depth+1)
		}
	case *WhileStmt:
		b.WriteString("WhileStmt\n")
		print1(b, t.Cond, depth+1)
		print1(b, t.Body, depth+1)
	case *ForStmt:
		fmt.Fprintf(b, "ForStmt %s\n", t.Var)
		print1(b, t.Iter, depth+1)
		print1(b, t.Body, depth+1)
	case *ForEachStmt:
		fmt.Fprintf(b, "ForEachStmt %s\n", t.Var)
		print1(b, t.Iter, depth+1)
		print1(b, t.Body, depth+1)
	case *ForEachTupleStmt:
		fmt.Fprintf(b, "ForEachTupleStmt %v\n", t.Vars)
		print1(b, t.Iter, depth+1)
		print1(b, t.Body, depth+1)
	case *LabelStmt:
		fmt.Fprintf(b, "LabelStmt %s\n", t.Name)
	case *GotoStmt:
		fmt.Fprintf(b, "GotoStmt %s\n", t.Name)
	case *TryCatchStmt:
		b.WriteString("TryCatchStmt\n")
		print1(b, t.Body, depth+1)
		for _, c := range t.Catches {
			indent(b, depth+1)
			fmt.Fprintf(b, "catch %s %v\n", c.Var, c.Kinds)
			print1(b, c.Body, depth+2)
		}
		if t.Finally != nil {
			indent(b, depth+1)
			b.WriteString("finally\n")
			print1(b, t.Finally, depth+2)
		}
	case *TestStmt:
		fmt.Fprintf(b, "TestStmt %q\n", t.Description)
		print1(b, t.Cond, depth+1)
	case *TestSetStmt:
		fmt.Fprintf(b, "TestSetStmt %q\n", t.Description)
		print1(b, t.Body, depth+1)
	case *TestThrowsStmt:
		fmt.Fprintf(b, "TestThrowsStmt %q %v\n", t.Description, t.Kinds)
		print1(b, t.Body, depth+1)
	case *TimedStmt:
		fmt.Fprintf(b, "TimedStmt %s\n", t.Var)
		print1(b, t.Body, depth+1)
	case *UsingStmt:
		fmt.Fprintf(b, "UsingStmt %s %v\n", t.Module, t.Names)
	case *ExportStmt:
		fmt.Fprintf(b, "ExportStmt %v\n", t.Names)
	case *FuncDefStmt:
		fmt.Fprintf(b, "FuncDefStmt %s/%d\n", t.Name, len(t.Params))
		print1(b, t.Body, depth+1)
	case *StructDefStmt:
		fmt.Fprintf(b, "StructDefStmt %s\n", t.Name)
	case *EnumDefStmt:
		fmt.Fprintf(b, "EnumDefStmt %s %v\n", t.Name, t.Members)
	case *AbstractTypeDefStmt:
		fmt.Fprintf(b, "AbstractTypeDefStmt %s <: %s\n", t.Name, t.Parent)
	default:
		fmt.Fprintf(b, "%T\n", t)
	}
}

func printArgs(b *strings.Builder, args []Arg, depth int) {
	for _, a := range args {
		indent(b, depth)
		switch {
		case a.Splatted:
			b.WriteString("splat:\n")
		case a.Keyword != "":
			fmt.Fprintf(b, "kw:%s\n", a.Keyword)
		default:
			b.WriteString("arg:\n")
		}
		print1(b, a.Value, depth+1)
	}
}
