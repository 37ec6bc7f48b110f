package ir

import (
	"corelang/internal/errsys"
	"corelang/internal/value"
)

// Literal covers every primitive literal variant: integers,
// floats, bools, strings, chars, symbols, regex, enums, undef, and modules
// all lower to a Literal wrapping the already-constructed runtime Value,
// since none of them need further elaboration once parsed.
type Literal struct {
	Base
	Value value.Value
}

func NewLiteral(span errsys.Span, v value.Value) *Literal { return &Literal{Base: NewBase(span), Value: v} }
func (*Literal) exprNode() {}

// ArrayLit is the `[e1, e2, ...]` array literal.
type ArrayLit struct {
	Base
	Elems []Expr
	Hint  string // TypedEmptyArrayHint: element type name for `T[]`, "" when absent
}

func (*ArrayLit) exprNode() {}

// TupleLit is `(e1, e2, ...)`.
type TupleLit struct {
	Base
	Elems []Expr
}

func (*TupleLit) exprNode() {}

// NamedTupleLit is `(a = e1, b = e2)`.
type NamedTupleLit struct {
	Base
	Names []string
	Elems []Expr
}

func (*NamedTupleLit) exprNode() {}

// StructLit is `StructName(f1, f2, ...)` construction by position, or
// `new(StructName)` for zero-value construction (NewExpr handles that case
// separately since it takes no field expressions).
type StructLit struct {
	Base
	TypeName string
	Fields   []Expr
}

func (*StructLit) exprNode() {}

// NewExpr is `new(T)`: a zero/undef-valued struct construction.
type NewExpr struct {
	Base
	TypeName string
}

func (*NewExpr) exprNode() {}

// DictLit is `Dict(k1 => v1, ...)`.
type DictLit struct {
	Base
	Keys   []Expr
	Values []Expr
}

func (*DictLit) exprNode() {}

// Pair is a bare `k => v` expression, used both standalone and as DictLit
// element syntax after lowering.
type Pair struct {
	Base
	Key, Value Expr
}

func (*Pair) exprNode() {}

// Variable reads a local, global, or captured name.
type Variable struct {
	Base
	Name string
}

func (*Variable) exprNode() {}

// FuncRefExpr yields a first-class reference to a named function without
// calling it (e.g. passing `sqrt` as a higher-order argument).
type FuncRefExpr struct {
	Base
	Name string
}

func (*FuncRefExpr) exprNode() {}

// BinaryExpr and UnaryExpr use the closed BinOp/UnOp enums.
type BinaryExpr struct {
	Base
	Op          BinOp
	Left, Right Expr
}

func (*BinaryExpr) exprNode() {}

type UnaryExpr struct {
	Base
	Op      UnOp
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// Arg is one call argument: positional, keyword-named, or splatted. A
// splatted argument keeps its per-arg splat-mask until the VM expands it.
type Arg struct {
	Value    Expr
	Keyword  string // "" for positional
	Splatted bool
}

// CallExpr is `callee(args...)`, unresolved as to static vs. dynamic
// dispatch until the bytecode compiler sees argument lattice types.
type CallExpr struct {
	Base
	Callee Expr
	Args   []Arg
}

func (*CallExpr) exprNode() {}

// QualifiedCallExpr is `Module.fn(args...)`.
type QualifiedCallExpr struct {
	Base
	Module string
	Name   string
	Args   []Arg
}

func (*QualifiedCallExpr) exprNode() {}

// BuiltinCallExpr is a call that inference or lowering has already resolved
// to a specific host builtin.
type BuiltinCallExpr struct {
	Base
	Op   BuiltinOp
	Args []Arg
}

func (*BuiltinCallExpr) exprNode() {}

// IndexExpr is `obj[idx1, idx2, ...]`; SliceAll marks a bare `:` index
// dimension (e.g. `a[:, 2]`).
type IndexExpr struct {
	Base
	Object Expr
	Index  []Expr
}

func (*IndexExpr) exprNode() {}

// SliceAllExpr is the `:` marker used as one IndexExpr.Index element.
type SliceAllExpr struct{ Base }

func (*SliceAllExpr) exprNode() {}

// RangeExpr is `start:stop` or `start:step:stop`.
type RangeExpr struct {
	Base
	Start, Stop Expr
	Step        Expr // nil when no explicit step
}

func (*RangeExpr) exprNode() {}

// FieldExpr is `obj.field`.
type FieldExpr struct {
	Base
	Object Expr
	Field  string
}

func (*FieldExpr) exprNode() {}

// TernaryExpr is `cond ? then : else`.
type TernaryExpr struct {
	Base
	Cond, Then, Else Expr
}

func (*TernaryExpr) exprNode() {}

// Iterator is one `name in iterable` clause of a (possibly multi-clause)
// comprehension.
type Iterator struct {
	Name     string
	Iterable Expr
}

// ComprehensionExpr covers both single- and multi-iterator comprehensions
// (`[f(x) for x in xs]`, `[f(x,y) for x in xs, y in ys if cond]`).
type ComprehensionExpr struct {
	Base
	Body      Expr
	Iterators []Iterator
	Filter    Expr // nil when there is no `if` clause
}

func (*ComprehensionExpr) exprNode() {}

// LetBlockExpr wraps a statement block so it can appear in expression
// position.
type LetBlockExpr struct {
	Base
	Body *BlockStmt
}

func (*LetBlockExpr) exprNode() {}

// StringConcatExpr is the lowered form of string interpolation: a sequence
// of expressions concatenated as strings.
type StringConcatExpr struct {
	Base
	Parts []Expr
}

func (*StringConcatExpr) exprNode() {}

// QuoteLitExpr holds a macro-hygiene-processed constructor expression
// ("quote literal (holds a constructor expression produced by
// macro hygiene)").
type QuoteLitExpr struct {
	Base
	Constructor Expr
}

func (*QuoteLitExpr) exprNode() {}

// AssignExpr is assignment used in expression position (its value is the
// assigned value), e.g. inside a LetBlockExpr or an if-expression arm.
type AssignExpr struct {
	Base
	Target Expr // Variable, IndexExpr, FieldExpr, or a destructuring tuple
	Value  Expr
}

func (*AssignExpr) exprNode() {}

// ReturnExpr / BreakExpr / ContinueExpr are control-flow-as-expression
// forms reachable only inside a LetBlockExpr.
type ReturnExpr struct {
	Base
	Value Expr // nil for a bare `return`
}

func (*ReturnExpr) exprNode() {}

type BreakExpr struct{ Base }

func (*BreakExpr) exprNode() {}

type ContinueExpr struct{ Base }

func (*ContinueExpr) exprNode() {}

// LambdaLit is an anonymous function literal. Lowering hoists its body to
// a synthetic top-level FuncDefStmt (so dispatch and compilation treat it
// like any other function) and replaces the literal's runtime behavior
// with a Closure value capturing Captures by value.
type LambdaLit struct {
	Base
	Params   []Param
	Body     Expr // single-expression body; multi-statement bodies arrive as a LetBlockExpr
	HoistAs  string
	Captures []string
}

func (*LambdaLit) exprNode() {}

// DynamicTypeConstructExpr is `T{params...}(args...)` where T is itself an
// expression (not a literal type name) - the fully dynamic type-application
// form reflection needs.
type DynamicTypeConstructExpr struct {
	Base
	TypeExpr Expr
	Params   []Expr
	Args     []Arg
}

func (*DynamicTypeConstructExpr) exprNode() {}
