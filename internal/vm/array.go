package vm

import "corelang/internal/value"

// arrayBuilder accumulates one typed array literal or comprehension's
// elements between OpNewArrayTyped and OpFinalizeArrayTyped (expr.go's
// emitArrayLit / emitComprehension). Comprehensions over multiple nested
// `for` clauses push exactly one builder before any loop begins and pop it
// after the outermost loop finishes, so a nested loop body's own
// OpPushElemTyped calls always land on the innermost (only) live builder.
type arrayBuilder struct {
	kind  value.ElemKind
	elems []value.Value
}

// finalizeArray turns an accumulated builder into a flat 1-D guest Array.
// Multi-dimensional array literals aren't part of the surface grammar this
// VM compiles (only flat `[...]` literals and `[... for ... ]`
// comprehensions reach OpNewArrayTyped), so shape is always len(elems).
func finalizeArray(b arrayBuilder) *value.Array {
	a := value.NewArray(b.kind, []int{len(b.elems)})
	for i, el := range b.elems {
		a.Set(i, el)
	}
	return a
}
