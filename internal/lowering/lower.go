// Package lowering turns a concrete-syntax tree (internal/cst) into the
// language-neutral IR (internal/ir) that type inference, the bytecode
// compiler, and the AoT analyzer all consume.
//
// Lowering never fails the whole unit on one bad node: unsupported CST
// shapes are recorded as a typed *errsys.Error (UnsupportedFeature or
// ParseError) with a hint and span, and a placeholder node is substituted
// so the rest of the tree still lowers - mirroring the parser's own
// error-recovery idiom in internal/cst.
package lowering

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"corelang/internal/cst"
	"corelang/internal/errsys"
	"corelang/internal/ir"
	"corelang/internal/value"
)

// Lowerer carries the mutable state one compilation unit's lowering pass
// needs: the accumulated errors produced along the way.
type Lowerer struct {
	file string
	errs []*errsys.Error

	// hoisted* accumulate declarations found nested inside a block (a local
	// `fn`/`struct`/`enum`/`abstract` form), since dispatch resolves
	// multi-methods and types by name globally regardless of lexical
	// position - there is no nested-declaration IR construct to thread
	// through the rest of the pipeline.
	hoisted          []*ir.FuncDefStmt
	hoistedStructs   []*ir.StructDefStmt
	hoistedEnums     []*ir.EnumDefStmt
	hoistedAbstracts []*ir.AbstractTypeDefStmt
}

// Lower lowers a full parsed compilation unit into an *ir.Program.
func Lower(file string, prog *cst.Program) (*ir.Program, []*errsys.Error) {
	l := &Lowerer{file: file}
	out := &ir.Program{Module: file}
	var mainStmts []ir.Stmt

	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *cst.FuncDef:
			out.Functions = append(out.Functions, l.lowerFuncDef(d))
		case *cst.StructDef:
			out.Structs = append(out.Structs, l.lowerStructDef(d))
		case *cst.EnumDef:
			out.Enums = append(out.Enums, l.lowerEnumDef(d))
		case *cst.AbstractDef:
			out.Abstracts = append(out.Abstracts, l.lowerAbstractDef(d))
		default:
			mainStmts = append(mainStmts, l.lowerStmt(decl)...)
		}
	}
	out.Main = ir.NewBlock(prog.Span(), mainStmts)
	out.Functions = append(out.Functions, l.hoisted...)
	out.Structs = append(out.Structs, l.hoistedStructs...)
	out.Enums = append(out.Enums, l.hoistedEnums...)
	out.Abstracts = append(out.Abstracts, l.hoistedAbstracts...)
	return out, l.errs
}

func (l *Lowerer) errorf(kind errsys.Kind, span errsys.Span, hint string, format string, args ...any) {
	l.errs = append(l.errs, errsys.New(kind, fmt.Sprintf(format, args...), span).WithHint(hint))
}

// gensym produces a fresh name for macro-hygiene renaming.
// The suffix comes from a real UUID rather than a counter so names stay
// unique even when macro-expanded fragments from separately lowered
// modules end up interleaved in one compiled program.
func (l *Lowerer) gensym(base string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s#%s", base, suffix)
}

func mkVar(span errsys.Span, name string) *ir.Variable {
	return &ir.Variable{Base: ir.NewBase(span), Name: name}
}

func mkCall(span errsys.Span, callee ir.Expr, args ...ir.Arg) *ir.CallExpr {
	return &ir.CallExpr{Base: ir.NewBase(span), Callee: callee, Args: args}
}

func posArg(v ir.Expr) ir.Arg { return ir.Arg{Value: v} }

func (l *Lowerer) lowerFuncDef(d *cst.FuncDef) *ir.FuncDefStmt {
	fd := &ir.FuncDefStmt{Base: ir.NewBase(d.Span()), Name: d.Name, Body: l.lowerBlockStmt(d.Body)}
	for _, p := range d.Params {
		param := ir.Param{Name: p.Name, TypeName: p.TypeName, Splat: p.Splat}
		if p.Default != nil {
			param.Default = l.lowerExpr(p.Default)
		}
		if p.Keyword {
			fd.Keyword = append(fd.Keyword, param)
		} else {
			fd.Params = append(fd.Params, param)
		}
	}
	return fd
}

func (l *Lowerer) lowerStructDef(d *cst.StructDef) *ir.StructDefStmt {
	sd := &ir.StructDefStmt{Base: ir.NewBase(d.Span()), Name: d.Name}
	for _, f := range d.Fields {
		sd.Fields = append(sd.Fields, ir.StructFieldDecl{Name: f.Name, TypeName: f.TypeName, Mutable: f.Mutable})
	}
	return sd
}

func (l *Lowerer) lowerEnumDef(d *cst.EnumDef) *ir.EnumDefStmt {
	return &ir.EnumDefStmt{Base: ir.NewBase(d.Span()), Name: d.Name, Members: append([]string(nil), d.Members...)}
}

func (l *Lowerer) lowerAbstractDef(d *cst.AbstractDef) *ir.AbstractTypeDefStmt {
	return &ir.AbstractTypeDefStmt{Base: ir.NewBase(d.Span()), Name: d.Name, Parent: d.Parent}
}

// --- operator string -> enum tables ---

var binOpTable = map[string]ir.BinOp{
	"+": ir.OpAdd, "-": ir.OpSub, "*": ir.OpMul, "/": ir.OpDiv, "//": ir.OpIntDiv, "%": ir.OpMod, "^": ir.OpPow,
	"==": ir.OpEq, "!=": ir.OpNeq, "<": ir.OpLt, "<=": ir.OpLe, ">": ir.OpGt, ">=": ir.OpGe,
	"&&": ir.OpAnd, "||": ir.OpOr, "&": ir.OpBitAnd, "|": ir.OpBitOr, "<<": ir.OpShl, ">>": ir.OpShr,
}

var unOpTable = map[string]ir.UnOp{
	"-": ir.OpNeg, "!": ir.OpNot, "~": ir.OpBitNot, "+": ir.OpPlus,
}

func (l *Lowerer) binOp(op string, span errsys.Span) ir.BinOp {
	if b, ok := binOpTable[op]; ok {
		return b
	}
	l.errorf(errsys.UnsupportedFeature, span, "this binary operator has no IR equivalent", "unknown operator %q", op)
	return ir.OpAdd
}

func (l *Lowerer) unOp(op string, span errsys.Span) ir.UnOp {
	if u, ok := unOpTable[op]; ok {
		return u
	}
	l.errorf(errsys.UnsupportedFeature, span, "this unary operator has no IR equivalent", "unknown operator %q", op)
	return ir.OpNeg
}

// --- literal parsing ---

func (l *Lowerer) lowerNumberLit(n *cst.NumberLit) ir.Expr {
	text := strings.ReplaceAll(n.Text, "_", "")
	if n.IsFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			l.errorf(errsys.ParseError, n.Span(), "check the literal's digits", "invalid float literal %q", n.Text)
		}
		return ir.NewLiteral(n.Span(), value.Float64(f))
	}
	base := 10
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		base = 16
		text = text[2:]
	}
	iv, err := strconv.ParseInt(text, base, 64)
	if err != nil {
		// Overflows an int64: widen to BigInt rather than failing lowering,
		// letting the VM's arbitrary-precision path (internal/value) take
		// over transparently.
		if bi, ok := new(big.Int).SetString(text, base); ok {
			return ir.NewLiteral(n.Span(), value.BigInt(bi))
		}
		l.errorf(errsys.ParseError, n.Span(), "check the literal's digits", "invalid integer literal %q", n.Text)
		return ir.NewLiteral(n.Span(), value.Int64(0))
	}
	return ir.NewLiteral(n.Span(), value.Int64(iv))
}
