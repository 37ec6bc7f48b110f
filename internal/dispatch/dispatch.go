// Package dispatch implements multiple-argument method selection over a
// program's FuncDefStmt table. Both type inference and the bytecode
// compiler resolve calls through the same Resolve entry point, so a call
// site that is statically resolvable at compile time picks exactly the
// method the VM would have picked dynamically at runtime.
package dispatch

import (
	"corelang/internal/ir"
	"corelang/internal/types"

	"golang.org/x/exp/slices"
)

// Candidate is one FuncDefStmt considered for a call, paired with its
// position in declaration order - dispatch's tie-break needs that order,
// not just the method's identity, to prefer the later-defined method.
type Candidate struct {
	Func  *ir.FuncDefStmt
	Index int
}

// Table indexes a program's methods by name for O(1) candidate lookup.
type Table struct {
	byName map[string][]Candidate
}

// NewTable builds the name index once per compiled program.
func NewTable(prog *ir.Program) *Table {
	t := &Table{byName: make(map[string][]Candidate)}
	for i, f := range prog.Functions {
		t.byName[f.Name] = append(t.byName[f.Name], Candidate{Func: f, Index: i})
	}
	return t
}

// Candidates returns every method sharing name, in declaration order.
func (t *Table) Candidates(name string) []Candidate {
	return t.byName[name]
}

// HasAny reports whether any user-defined method is declared under name,
// distinguishing "no such function" from "dispatch failed to match args"
// (the latter falls through to the intrinsic builtins; the former never
// reaches dispatch in the first place).
func (t *Table) HasAny(name string) bool {
	return len(t.byName[name]) > 0
}

// scored pairs a surviving candidate with its specificity score so the
// final sort only needs to run once.
type scored struct {
	cand  Candidate
	score int
}

// Resolve picks the best-matching method for a call with argc positional
// arguments of the given lattice types plus a set of keyword names
// supplied at the call site. kwNames may be nil for a call with no
// keyword arguments.
func Resolve(h *types.Hierarchy, t *Table, name string, argTypes []*types.Type, kwNames []string) (*ir.FuncDefStmt, int, bool) {
	candidates := t.Candidates(name)
	if len(candidates) == 0 {
		return nil, 0, false
	}

	var surviving []scored
	for _, c := range candidates {
		if !arityMatches(c.Func, len(argTypes)) {
			continue
		}
		if !keywordsSatisfied(c.Func, kwNames) {
			continue
		}
		score, ok := scoreCandidate(h, c.Func, argTypes)
		if !ok {
			continue
		}
		surviving = append(surviving, scored{cand: c, score: score})
	}
	if len(surviving) == 0 {
		return nil, 0, false
	}

	// Highest score wins; ties prefer the later-defined method. Sorting
	// descending by (score, Index) and taking the head gives that directly,
	// since Index is already declaration order.
	slices.SortFunc(surviving, func(a, b scored) int {
		if a.score != b.score {
			return b.score - a.score
		}
		return b.cand.Index - a.cand.Index
	})
	best := surviving[0]
	return best.cand.Func, best.cand.Index, true
}

// arityMatches requires an exact match with no varargs, or argc >=
// fixed_count when the last param is a splat (Vararg{T, N} with a fixed
// extra count is not representable in the source grammar here, so a
// splat always means "any count >= fixed").
func arityMatches(f *ir.FuncDefStmt, argc int) bool {
	fixed, hasSplat := fixedParamCount(f)
	if hasSplat {
		return argc >= fixed
	}
	return argc == fixed
}

func fixedParamCount(f *ir.FuncDefStmt) (fixed int, hasSplat bool) {
	for _, p := range f.Params {
		if p.Splat {
			hasSplat = true
			continue
		}
		fixed++
	}
	return fixed, hasSplat
}

// keywordsSatisfied requires every keyword parameter without a default to
// be supplied by the call site; extra keyword args the method doesn't
// declare are never valid for that method.
func keywordsSatisfied(f *ir.FuncDefStmt, kwNames []string) bool {
	supplied := make(map[string]bool, len(kwNames))
	for _, n := range kwNames {
		supplied[n] = true
	}
	declared := make(map[string]bool, len(f.Keyword))
	for _, p := range f.Keyword {
		declared[p.Name] = true
		if p.Default == nil && !supplied[p.Name] {
			return false
		}
	}
	for n := range supplied {
		if !declared[n] {
			return false
		}
	}
	return true
}

// scoreCandidate requires every positional argument's runtime (or
// inferred) lattice type to be a subtype of the declared parameter type;
// the score is the sum of per-parameter specificity plus a bonus for an
// exact type-name match, so two methods that both accept an argument
// still prefer the more precisely typed one.
func scoreCandidate(h *types.Hierarchy, f *ir.FuncDefStmt, argTypes []*types.Type) (int, bool) {
	score := 0
	for i, at := range argTypes {
		param := paramAt(f, i)
		declared := paramType(param)
		if !h.IsSubtype(at, declared) {
			return 0, false
		}
		score += h.Specificity(declared)
		if exactNameMatch(at, declared) {
			score += 1000
		}
	}
	return score, true
}

// paramAt returns the parameter governing positional argument i: the i-th
// fixed param, or the trailing splat param once i runs past the fixed
// count.
func paramAt(f *ir.FuncDefStmt, i int) ir.Param {
	if i < len(f.Params) {
		return f.Params[i]
	}
	if len(f.Params) > 0 && f.Params[len(f.Params)-1].Splat {
		return f.Params[len(f.Params)-1]
	}
	return ir.Param{}
}

func paramType(p ir.Param) *types.Type {
	if p.TypeName == "" {
		return types.Top
	}
	return types.Concrete(p.TypeName)
}

func exactNameMatch(arg, declared *types.Type) bool {
	a, d := types.DropConst(arg), types.DropConst(declared)
	return a.Kind == types.KindConcrete && d.Kind == types.KindConcrete && a.Name == d.Name
}

// intrinsicMathFallback lists the names dispatch falls back to when no
// user method matches at all - this is what lets an intrinsic name be
// passed as a first-class function value to a higher-order routine.
var intrinsicMathFallback = map[string]ir.BuiltinOp{
	"sqrt":  ir.BuiltinSqrt,
	"abs":   ir.BuiltinAbs,
	"sin":   ir.BuiltinSin,
	"cos":   ir.BuiltinCos,
	"tan":   ir.BuiltinTan,
	"exp":   ir.BuiltinExp,
	"log":   ir.BuiltinLog,
	"floor": ir.BuiltinFloor,
	"ceil":  ir.BuiltinCeil,
	"round": ir.BuiltinRound,
	"trunc": ir.BuiltinTrunc,
	"gcd":   ir.BuiltinGcd,
	"lcm":   ir.BuiltinLcm,
}

// FallbackBuiltin resolves a name against the intrinsic math fallback
// table, used once dispatch and the general builtin registry have both
// failed to match a call.
func FallbackBuiltin(name string) (ir.BuiltinOp, bool) {
	op, ok := intrinsicMathFallback[name]
	return op, ok
}
