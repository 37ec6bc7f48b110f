package types

// Join computes the least upper bound of two lattice types, used at
// if-join points and when merging branches of control flow: at an if-join,
// inference computes join(then_env, else_env) per name.
func Join(h *Hierarchy, a, b *Type) *Type {
	a, b = resolveConditional(a), resolveConditional(b)
	if a.IsBottom() {
		return b
	}
	if b.IsBottom() {
		return a
	}
	if a.IsTop() || b.IsTop() {
		return Top
	}
	a, b = DropConst(a), DropConst(b)
	if h.IsSubtype(a, b) {
		return b
	}
	if h.IsSubtype(b, a) {
		return a
	}
	return NewUnion(a, b)
}

// Meet computes the greatest lower bound, used by narrowing at isa-guarded
// branches.
func Meet(h *Hierarchy, a, b *Type) *Type {
	a, b = resolveConditional(a), resolveConditional(b)
	if a.IsTop() {
		return b
	}
	if b.IsTop() {
		return a
	}
	a, b = DropConst(a), DropConst(b)
	if h.IsSubtype(a, b) {
		return a
	}
	if h.IsSubtype(b, a) {
		return b
	}
	return Bottom
}

// resolveConditional returns every type, a Conditional included, unchanged;
// Join and Meet treat a Conditional like any other non-Concrete type, and
// only callers that apply Narrow consume its refinement.
func resolveConditional(t *Type) *Type {
	if t.Kind != KindConditional {
		return t
	}
	return t // callers that understand Conditional handle it explicitly via Narrow
}

// Narrow applies a Conditional's refinement of `slot` to an environment
// entry along one branch: slot S has type T_then along the true branch and
// T_else along the false branch.
func Narrow(cond *Type, slot string, trueBranch bool) (refinedSlot string, refinedType *Type, ok bool) {
	if cond.Kind != KindConditional || cond.Slot != slot {
		return "", nil, false
	}
	if trueBranch {
		return cond.Slot, cond.Then, true
	}
	return cond.Slot, cond.Else, true
}

// Widen pushes a type toward Top to guarantee termination at a loop
// back-edge fixed point. Before round `limit` it returns the join of prev
// and next with any Const dropped to its Concrete type; from round `limit`
// on it returns Top.
func Widen(h *Hierarchy, prev, next *Type, round, limit int) *Type {
	if round >= limit {
		return Top
	}
	joined := Join(h, prev, next)
	if joined.Kind == KindConst {
		joined = DropConst(joined)
	}
	return joined
}

// PromoteArith implements the arithmetic promotion table:
// integer+integer -> wider integer, integer+float -> float, division
// always -> float.
func PromoteArith(op string, a, b *Type) *Type {
	a, b = DropConst(a), DropConst(b)
	if op == "/" {
		return Concrete("Float64")
	}
	af, bf := a.Kind == KindConcrete && isFloatName(a.Name), b.Kind == KindConcrete && isFloatName(b.Name)
	ai, bi := a.Kind == KindConcrete && isIntName(a.Name), b.Kind == KindConcrete && isIntName(b.Name)
	switch {
	case af && bf:
		return widerFloat(a, b)
	case af && bi, bf && ai:
		if af {
			return a
		}
		return b
	case ai && bi:
		return widerInt(a, b)
	default:
		return Top
	}
}

var intWidth = map[string]int{
	"Int8": 8, "Int16": 16, "Int32": 32, "Int64": 64, "Int128": 128,
	"UInt8": 8, "UInt16": 16, "UInt32": 32, "UInt64": 64, "UInt128": 128,
	"BigInt": 1 << 20, "Bool": 1,
}
var floatWidth = map[string]int{"Float16": 16, "Float32": 32, "Float64": 64, "BigFloat": 1 << 20}

func isIntName(n string) bool   { _, ok := intWidth[n]; return ok }
func isFloatName(n string) bool { _, ok := floatWidth[n]; return ok }

func widerInt(a, b *Type) *Type {
	if intWidth[a.Name] >= intWidth[b.Name] {
		if a.Name == "Bool" {
			return Concrete("Int64")
		}
		return a
	}
	return b
}

func widerFloat(a, b *Type) *Type {
	if floatWidth[a.Name] >= floatWidth[b.Name] {
		return a
	}
	return b
}
