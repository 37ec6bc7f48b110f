package cst

import "corelang/internal/errsys"

// Node is the common shape every CST node satisfies, mirroring the
// assumed "node tree with typed children and source spans" contract
//. Unlike internal/ir, a CST node tree is still close to
// surface syntax: it has not yet resolved broadcast sugar, string
// interpolation splitting at the lowering level, or macro expansion.
type Node interface {
	Span() errsys.Span
}

type base struct{ span errsys.Span }

func (b base) Span() errsys.Span { return b.span }
func mkbase(s errsys.Span) base  { return base{span: s} }

// --- literals ---

type NumberLit struct {
	base
	Text    string
	IsFloat bool
}

type StringLit struct {
	base
	// Raw is the unescaped source text between quotes, interpolation
	// markers (`$name`, `${expr}`) included verbatim.
	Raw string
}

type CharLit struct {
	base
	Raw string
}

type BoolLit struct {
	base
	Value bool
}

type NothingLit struct{ base }
type MissingLit struct{ base }

type UndefLit struct {
	base
	TypeName string // "" for untyped `undef`
}

// --- names and access ---

type Ident struct {
	base
	Name string
}

type FieldAccess struct {
	base
	Object Node
	Field  string
}

type QualifiedName struct {
	base
	Module string
	Name   string
}

// --- operators ---

type Binary struct {
	base
	Op          string // token text: "+", "==", "&&", ...
	Left, Right Node
}

// BroadcastBinary is a `.op` elementwise operator application.
type BroadcastBinary struct {
	base
	Op          string
	Left, Right Node
}

type Unary struct {
	base
	Op      string
	Operand Node
}

type Ternary struct {
	base
	Cond, Then, Else Node
}

// --- calls ---

type Arg struct {
	Value    Node
	Keyword  string
	Splatted bool
}

type Call struct {
	base
	Callee Node
	Args   []Arg
}

type QualifiedCall struct {
	base
	Module string
	Name   string
	Args   []Arg
}

// --- containers ---

type ArrayLit struct {
	base
	Elems []Node
	Hint  string // element type name for `T[]`, "" when absent
}

type TupleLit struct {
	base
	Elems []Node
	Names []string // non-empty, same length as Elems, for named-tuple form
}

type Pair struct {
	base
	Key, Value Node
}

type DictLit struct {
	base
	Entries []Pair
}

type IndexOp struct {
	base
	Object Node
	Index  []Node // a SliceAll node marks a bare `:` dimension
}

type SliceAll struct{ base }

type RangeExpr struct {
	base
	Start, Stop Node
	Step        Node
}

// --- string interpolation ---

// StringInterp is a sequence of StringLit and embedded-expression parts,
// produced by splitting a scanned `"..."` token on `$name`/`${expr}`.
type StringInterp struct {
	base
	Parts []Node
}

// --- comprehension ---

type IterClause struct {
	Name     string
	Iterable Node
}

type Comprehension struct {
	base
	Body      Node
	Iterators []IterClause
	Filter    Node
}

// --- blocks and let ---

type Block struct {
	base
	Stmts []Node
}

type LetBlock struct {
	base
	Body *Block
}

// --- assignment ---

type Assign struct {
	base
	Target Node
	Value  Node
}

type CompoundAssign struct {
	base
	Target Node
	Op     string
	Value  Node
}

// BroadcastAssign is `dest .= Broadcasted(...)`-sugar, i.e. `lhs .op= rhs`.
type BroadcastAssign struct {
	base
	Target Node
	Value  Node
}

// --- control flow ---

type ReturnStmt struct {
	base
	Value Node
}

type BreakStmt struct {
	base
	Label string
}

type ContinueStmt struct {
	base
	Label string
}

type IfExpr struct {
	base
	Cond       Node
	Then, Else *Block
}

type WhileStmt struct {
	base
	Label string
	Cond  Node
	Body  *Block
}

type ForStmt struct {
	base
	Label string
	Vars  []string // one name for ForStmt, multiple for tuple-destructuring foreach
	Iter  Node
	Body  *Block
}

type LabelStmt struct {
	base
	Name string
}

type GotoStmt struct {
	base
	Name string
}

// --- try/catch ---

type CatchClause struct {
	Var   string
	Kinds []string
	Body  *Block
}

type TryCatch struct {
	base
	Body    *Block
	Catches []CatchClause
	Finally *Block
}

// --- test forms ---

type TestDecl struct {
	base
	Description string
	Cond        Node
}

type TestSetDecl struct {
	base
	Description string
	Body        *Block
}

type TestThrowsDecl struct {
	base
	Description string
	Kinds       []string
	Body        *Block
}

type TimedDecl struct {
	base
	Var  string
	Body *Block
}

// --- module-level ---

type UsingStmt struct {
	base
	Module string
	Names  []string
}

type ExportStmt struct {
	base
	Names []string
}

type ParamDecl struct {
	Name     string
	TypeName string
	Splat    bool
	Keyword  bool
	Default  Node
}

type FuncDef struct {
	base
	Name   string
	Params []ParamDecl
	Body   *Block
}

type StructFieldDecl struct {
	Name     string
	TypeName string
	Mutable  bool
}

type StructDef struct {
	base
	Name   string
	Fields []StructFieldDecl
}

type EnumDef struct {
	base
	Name    string
	Members []string
}

type AbstractDef struct {
	base
	Name   string
	Parent string
}

// --- struct/new/quote/dynamic construction ---

type StructLit struct {
	base
	TypeName string
	Fields   []Node
}

type NewExpr struct {
	base
	TypeName string
}

type QuoteExpr struct {
	base
	Body Node
}

type DynamicTypeConstruct struct {
	base
	TypeExpr Node
	Params   []Node
	Args     []Arg
}

// LambdaExpr is `fn(params) => body` or `fn(params) { stmts }`.
type LambdaExpr struct {
	base
	Params []ParamDecl
	Body   Node // an expression, or a *Block
}

// Program is the top-level CST produced for one compilation unit.
type Program struct {
	base
	Decls []Node // FuncDef, StructDef, EnumDef, AbstractDef, UsingStmt, ExportStmt, or any statement (main-block code)
}
