package infer

import (
	"corelang/internal/ir"
	"corelang/internal/types"
)

// opSymbol maps the closed BinOp enum back to the symbol PromoteArith
// switches on; only "/" is actually distinguished there, so any other
// operator's symbol just has to not collide with it.
func opSymbol(op ir.BinOp) string {
	if op == ir.OpDiv {
		return "/"
	}
	return "+"
}

func (inf *inferer) binary(env Env, n *ir.BinaryExpr) (ir.Expr, *types.Type) {
	left, leftT := inf.expr(env, n.Left)
	right, rightT := inf.expr(env, n.Right)
	out := &ir.BinaryExpr{Base: n.Base, Op: n.Op, Left: left, Right: right}

	switch n.Op {
	case ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe, ir.OpAnd, ir.OpOr:
		return out, inf.record(out, types.Concrete("Bool"))
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpIntDiv, ir.OpMod, ir.OpPow,
		ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor, ir.OpShl, ir.OpShr:
		return out, inf.record(out, types.PromoteArith(opSymbol(n.Op), leftT, rightT))
	default:
		return out, inf.record(out, types.Top)
	}
}

func (inf *inferer) unary(env Env, n *ir.UnaryExpr) (ir.Expr, *types.Type) {
	operand, operandT := inf.expr(env, n.Operand)
	out := &ir.UnaryExpr{Base: n.Base, Op: n.Op, Operand: operand}
	switch n.Op {
	case ir.OpNot:
		return out, inf.record(out, types.Concrete("Bool"))
	case ir.OpNeg, ir.OpPlus, ir.OpBitNot:
		t := types.DropConst(operandT)
		if t.Kind == types.KindConcrete {
			return out, inf.record(out, t)
		}
		return out, inf.record(out, types.Top)
	default:
		return out, inf.record(out, types.Top)
	}
}
