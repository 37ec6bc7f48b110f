// Package ir implements the language-neutral intermediate representation
// that lowering produces and everything downstream (inference, the
// bytecode compiler, the AoT analyzer) consumes. It is produced only by
// lowering. Passes that transform it (type inference's call rewrites, the
// AoT inliner) build new expression and statement nodes, but store each
// rebuilt function body back into its FuncDefStmt.Body.
package ir

import "corelang/internal/errsys"

// Node is implemented by every Expr and Stmt; every node carries the source
// span lowering assigned it, since later passes never drop spans.
type Node interface {
	Span() errsys.Span
}

type Base struct{ span errsys.Span }

func (b Base) Span() errsys.Span { return b.span }

// NewBase constructs the embeddable span holder every concrete node uses.
// The field is exported (unlike a typical embedded-struct idiom) so that
// other packages - lowering, inference, the AoT analyzer - can construct
// IR nodes directly with a struct literal instead of needing a dedicated
// constructor function per node type.
func NewBase(span errsys.Span) Base { return Base{span: span} }

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// BinOp and UnOp are the closed binary and unary operator enums the
// lowering and compiler stages switch over exhaustively.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpIntDiv
	OpMod
	OpPow
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
)

var binOpNames = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpIntDiv: "÷", OpMod: "%", OpPow: "^",
	OpEq: "==", OpNeq: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&&", OpOr: "||", OpBitAnd: "&", OpBitOr: "|", OpBitXor: "⊻", OpShl: "<<", OpShr: ">>",
}

func (o BinOp) String() string { return binOpNames[o] }

type UnOp uint8

const (
	OpNeg UnOp = iota
	OpNot
	OpBitNot
	OpPlus
)

var unOpNames = [...]string{OpNeg: "-", OpNot: "!", OpBitNot: "~", OpPlus: "+"}

func (o UnOp) String() string { return unOpNames[o] }

// BuiltinOp is the closed enum of intercepted builtin calls the bytecode
// compiler can route directly to a host implementation. Kept in ir rather
// than bytecode so type inference can rewrite a Call into a BuiltinCall.
type BuiltinOp uint16

const (
	BuiltinUnknown BuiltinOp = iota
	BuiltinPrintln
	BuiltinPrint
	BuiltinString
	BuiltinRepr
	BuiltinTypeof
	BuiltinIsa
	BuiltinEltype
	BuiltinFieldnames
	BuiltinFieldtypes
	BuiltinMethods
	BuiltinHasmethod
	BuiltinWhich
	BuiltinSupertype
	BuiltinSqrt
	BuiltinAbs
	BuiltinSin
	BuiltinCos
	BuiltinTan
	BuiltinExp
	BuiltinLog
	BuiltinFloor
	BuiltinCeil
	BuiltinRound
	BuiltinTrunc
	BuiltinFma
	BuiltinMuladd
	BuiltinFrexp
	BuiltinExponent
	BuiltinNextfloat
	BuiltinLinspace
	BuiltinRange
	BuiltinLU
	BuiltinDet
	BuiltinInv
	BuiltinSolve
	BuiltinSVD
	BuiltinQR
	BuiltinEigen
	BuiltinEigvals
	BuiltinCholesky
	BuiltinRank
	BuiltinCond
	BuiltinGet
	BuiltinGetBang
	BuiltinGetkey
	BuiltinHaskey
	BuiltinSetindexBang
	BuiltinDeleteBang
	BuiltinMerge
	BuiltinMergeBang
	BuiltinEmptyBang
	BuiltinPopBang
	BuiltinKeys
	BuiltinValues
	BuiltinPairs
	BuiltinLength
	BuiltinRand
	BuiltinRandn
	BuiltinSeedBang
	BuiltinRegexCompile
	BuiltinRegexMatch
	BuiltinRegexEachmatch
	BuiltinSymbolCtor
	BuiltinExprCtor
	BuiltinQuoteNodeCtor
	BuiltinGensym
	BuiltinEsc
	BuiltinEval
	BuiltinMacroexpand
	BuiltinIncludeString
	BuiltinMetaParse
	BuiltinMetaLower
	BuiltinWrite
	BuiltinReadlines
	BuiltinSleep
	BuiltinCancelCheck
	BuiltinGcd
	BuiltinLcm
	BuiltinBroadcastMulScalarVec // fused helper folded in by inference
	builtinOpCount
)

var builtinOpNames = [...]string{
	BuiltinUnknown: "unknown", BuiltinPrintln: "println", BuiltinPrint: "print",
	BuiltinString: "string", BuiltinRepr: "repr", BuiltinTypeof: "typeof",
	BuiltinIsa: "isa", BuiltinEltype: "eltype", BuiltinFieldnames: "fieldnames",
	BuiltinFieldtypes: "fieldtypes", BuiltinMethods: "methods", BuiltinHasmethod: "hasmethod",
	BuiltinWhich: "which", BuiltinSupertype: "supertype", BuiltinSqrt: "sqrt",
	BuiltinAbs: "abs", BuiltinSin: "sin", BuiltinCos: "cos", BuiltinTan: "tan",
	BuiltinExp: "exp", BuiltinLog: "log", BuiltinFloor: "floor", BuiltinCeil: "ceil",
	BuiltinRound: "round", BuiltinTrunc: "trunc", BuiltinFma: "fma", BuiltinMuladd: "muladd",
	BuiltinFrexp: "frexp", BuiltinExponent: "exponent", BuiltinNextfloat: "nextfloat",
	BuiltinLinspace: "linspace", BuiltinRange: "range", BuiltinLU: "lu", BuiltinDet: "det",
	BuiltinInv: "inv", BuiltinSolve: "solve", BuiltinSVD: "svd", BuiltinQR: "qr",
	BuiltinEigen: "eigen", BuiltinEigvals: "eigvals", BuiltinCholesky: "cholesky",
	BuiltinRank: "rank", BuiltinCond: "cond", BuiltinGet: "get", BuiltinGetBang: "get!",
	BuiltinGetkey: "getkey", BuiltinHaskey: "haskey", BuiltinSetindexBang: "setindex!",
	BuiltinDeleteBang: "delete!", BuiltinMerge: "merge", BuiltinMergeBang: "merge!",
	BuiltinEmptyBang: "empty!", BuiltinPopBang: "pop!", BuiltinKeys: "keys",
	BuiltinValues: "values", BuiltinPairs: "pairs", BuiltinLength: "length",
	BuiltinRand: "rand", BuiltinRandn: "randn", BuiltinSeedBang: "seed!",
	BuiltinRegexCompile: "regex_compile", BuiltinRegexMatch: "regex_match",
	BuiltinRegexEachmatch: "regex_eachmatch", BuiltinSymbolCtor: "symbol",
	BuiltinExprCtor: "expr", BuiltinQuoteNodeCtor: "quotenode", BuiltinGensym: "gensym",
	BuiltinEsc: "esc", BuiltinEval: "eval", BuiltinMacroexpand: "macroexpand",
	BuiltinIncludeString: "include_string", BuiltinMetaParse: "meta_parse",
	BuiltinMetaLower: "meta_lower", BuiltinWrite: "write", BuiltinReadlines: "readlines",
	BuiltinSleep: "sleep", BuiltinCancelCheck: "cancel_check",
	BuiltinGcd: "gcd", BuiltinLcm: "lcm",
	BuiltinBroadcastMulScalarVec: "broadcast_mul_scalar_vec",
}

func (o BuiltinOp) String() string {
	if int(o) < len(builtinOpNames) {
		return builtinOpNames[o]
	}
	return "builtin?"
}

// exprNode / stmtNode marker sets follow in expr.go and stmt.go.
