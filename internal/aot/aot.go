// Package aot is a compile-time-only analyzer: call graph construction,
// recursion detection, a conservative purity check, and an inliner for
// trivial non-recursive pure functions (§4.12). None of it runs at VM time;
// the source language is a pure interpreter with no JIT tiering, unlike the
// profiler this package's call-graph framing started from.
package aot

import (
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"corelang/internal/ir"
)

// CallGraph maps a function name to the set of names it calls directly.
// Multiple-dispatch overloads sharing a name are folded into one node,
// since §4.12 analyzes by call-site name before dispatch narrows it.
type CallGraph map[string]map[string]bool

// Build walks every function body and records its direct callees. Calls
// through a computed callee (anything but a bare name or a FuncRefExpr) are
// invisible to the graph and simply don't add an edge - conservative in the
// safe direction, since the purity/recursion passes below only ever use the
// graph to find *known* cycles or impurities, never to assert their absence
// past what it can see.
func Build(prog *ir.Program) CallGraph {
	g := make(CallGraph, len(prog.Functions))
	for _, f := range prog.Functions {
		callees := make(map[string]bool)
		ir.Inspect(f.Body, func(n ir.Node) bool {
			switch c := n.(type) {
			case *ir.CallExpr:
				if name, ok := calleeName(c.Callee); ok {
					callees[name] = true
				}
			case *ir.FuncRefExpr:
				callees[c.Name] = true
			}
			return true
		})
		g[f.Name] = mergeEdges(g[f.Name], callees)
	}
	return g
}

func mergeEdges(existing, fresh map[string]bool) map[string]bool {
	if existing == nil {
		return fresh
	}
	for k := range fresh {
		existing[k] = true
	}
	return existing
}

func calleeName(e ir.Expr) (string, bool) {
	if v, ok := e.(*ir.Variable); ok {
		return v.Name, true
	}
	return "", false
}

// Recursive reports the set of function names that participate in a call
// cycle, direct or mutual, found via DFS over the call graph.
func (g CallGraph) Recursive() map[string]bool {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g))
	onCycle := make(map[string]bool)

	var names []string
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic traversal order

	var visit func(name string, stack []string) bool
	visit = func(name string, stack []string) bool {
		switch state[name] {
		case visiting:
			for i := len(stack) - 1; i >= 0; i-- {
				onCycle[stack[i]] = true
				if stack[i] == name {
					break
				}
			}
			return true
		case done:
			return onCycle[name]
		}
		state[name] = visiting
		stack = append(stack, name)
		cycle := false
		for callee := range g[name] {
			if visit(callee, stack) {
				cycle = true
			}
		}
		state[name] = done
		return cycle
	}

	for _, name := range names {
		visit(name, nil)
	}
	return onCycle
}

// impureBuiltins are BuiltinOp variants with an observable side effect
// (I/O, randomness, mutation, cancellation, or the macro evaluator) -
// everything else is a pure computation over its arguments.
var impureBuiltins = map[ir.BuiltinOp]bool{
	ir.BuiltinPrintln: true, ir.BuiltinPrint: true,
	ir.BuiltinGetBang: true, ir.BuiltinSetindexBang: true,
	ir.BuiltinDeleteBang: true, ir.BuiltinMergeBang: true,
	ir.BuiltinEmptyBang: true, ir.BuiltinPopBang: true,
	ir.BuiltinRand: true, ir.BuiltinRandn: true, ir.BuiltinSeedBang: true,
	ir.BuiltinGensym: true, ir.BuiltinEval: true, ir.BuiltinMacroexpand: true,
	ir.BuiltinIncludeString: true, ir.BuiltinWrite: true,
	ir.BuiltinReadlines: true, ir.BuiltinSleep: true, ir.BuiltinCancelCheck: true,
}

// PurityReport records, per function name, whether its own body is free of
// directly-observable side effects. It does not yet account for calling an
// impure function transitively - see PropagateImpurity.
type PurityReport map[string]bool

// AnalyzePurity inspects every function body concurrently (independent
// functions share nothing, so per-function analysis parallelizes cleanly;
// the result is just joined back into one map, no cross-function state).
func AnalyzePurity(prog *ir.Program) (PurityReport, error) {
	report := make(PurityReport, len(prog.Functions))
	var mu sync.Mutex
	var g errgroup.Group
	for _, f := range prog.Functions {
		f := f
		g.Go(func() error {
			pure := bodyIsPure(f.Body)
			mu.Lock()
			report[f.Name] = pure
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func bodyIsPure(n ir.Node) bool {
	pure := true
	ir.Inspect(n, func(node ir.Node) bool {
		switch t := node.(type) {
		case *ir.BuiltinCallExpr:
			if impureBuiltins[t.Op] {
				pure = false
			}
		case *ir.QualifiedCallExpr:
			// A module call crosses an out-of-scope collaborator boundary;
			// purity past it can't be verified, so assume impure.
			pure = false
		case *ir.FieldAssignStmt, *ir.IndexAssignStmt, *ir.DictAssignStmt:
			pure = false
		}
		return pure
	})
	return pure
}

// PropagateImpurity extends a direct-purity report across the call graph:
// a function that calls a transitively impure function is impure itself,
// and any function on a recursion cycle is conservatively treated as
// impure too, since the inliner below never touches recursive callees.
func PropagateImpurity(g CallGraph, report PurityReport) PurityReport {
	recursive := g.Recursive()
	out := make(PurityReport, len(report))
	for name, pure := range report {
		out[name] = pure && !recursive[name]
	}
	changed := true
	for changed {
		changed = false
		for name, callees := range g {
			if !out[name] {
				continue
			}
			for callee := range callees {
				if p, ok := out[callee]; ok && !p {
					out[name] = false
					changed = true
					break
				}
			}
		}
	}
	return out
}
