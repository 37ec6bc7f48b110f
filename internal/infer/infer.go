// Package infer implements type inference: a forward
// abstract interpretation over a lowered IR program that assigns every
// expression a LatticeType (internal/types) and every function a Signature,
// producing a TypedProgram the bytecode compiler and AoT analyzer consume.
//
// Inference returns freshly built statement and expression nodes rather
// than editing lowering's nodes in place (leaves such as literals and
// variables are shared), except that each function's rebuilt body is stored
// back into its FuncDefStmt. Three call shapes come back as a different
// node: a recognized `materialize(Broadcasted(...))` folds into a fused
// builtin call, `range(start, stop; length=n)` with Float/Float/Int
// arguments becomes a linspace builtin call, and a call to an intrinsic
// math name with no user-defined method becomes that builtin's call.
package infer

import (
	"corelang/internal/dispatch"
	"corelang/internal/errsys"
	"corelang/internal/ir"
	"corelang/internal/types"
)

// Env maps a variable name to its current lattice type along one control
// flow path.
type Env map[string]*types.Type

func cloneEnv(env Env) Env {
	out := make(Env, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

func lookupOrTop(env Env, name string, fallback Env) *types.Type {
	if t, ok := env[name]; ok {
		return t
	}
	if t, ok := fallback[name]; ok {
		return t
	}
	return types.Top
}

// joinEnv merges two branch-exit environments back into one, relative to
// the environment both branches started from: at an if-join, this
// computes join(then_env, else_env) per name.
func joinEnv(h *types.Hierarchy, pre, a, b Env) Env {
	out := make(Env, len(pre)+len(a)+len(b))
	seen := make(map[string]bool, len(pre)+len(a)+len(b))
	for _, src := range []Env{pre, a, b} {
		for k := range src {
			if seen[k] {
				continue
			}
			seen[k] = true
			out[k] = types.Join(h, lookupOrTop(a, k, pre), lookupOrTop(b, k, pre))
		}
	}
	return out
}

func envEqual(a, b Env) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || bv.String() != v.String() {
			return false
		}
	}
	return true
}

// Signature is a function's inferred parameter and return types, keyed in
// TypedProgram by the declaring FuncDefStmt itself - identity is enough
// since dispatch never merges two FuncDefStmts into one entry.
type Signature struct {
	Params []*types.Type
	Return *types.Type
}

// TypedProgram is inference's whole output: the (possibly broadcast-folded)
// program, every function's Signature, and every surviving expression
// node's LatticeType.
type TypedProgram struct {
	Program    *ir.Program
	Signatures map[*ir.FuncDefStmt]*Signature
	ExprTypes  map[ir.Expr]*types.Type
}

// TypeOf looks up an already-inferred expression's lattice type, Top if
// the node was never visited (e.g. dead code after a later rewrite).
func (tp *TypedProgram) TypeOf(e ir.Expr) *types.Type {
	if t, ok := tp.ExprTypes[e]; ok {
		return t
	}
	return types.Top
}

// defaultWidenLimit bounds the fixed-point loop at a loop back-edge before
// inference gives up and widens straight to Top, when the caller passes no
// positive limit. The CLI passes 3, or the value of the CORELANG_WIDEN_LIMIT
// environment variable when set; see cmd/corelang for where it is read.
const defaultWidenLimit = 5

type inferer struct {
	h          *types.Hierarchy
	dispatch   *dispatch.Table
	structs    map[string]*ir.StructDefStmt
	structIDs  map[string]int
	widenLimit int

	visiting map[*ir.FuncDefStmt]bool
	sigCache map[*ir.FuncDefStmt]*Signature
	types    map[ir.Expr]*types.Type

	// returns accumulates the lattice type of every `return` reached while
	// analyzing the function currently on top of the call stack; reset and
	// restored around each signatureFor call so nested (mutually recursive)
	// inference doesn't cross-contaminate.
	returns []*types.Type
}

// Infer runs type inference over a whole lowered program. widenLimit <= 0
// selects defaultWidenLimit.
func Infer(prog *ir.Program, widenLimit int) (*TypedProgram, []*errsys.Error) {
	if widenLimit <= 0 {
		widenLimit = defaultWidenLimit
	}
	h := types.NewHierarchy()
	for _, a := range prog.Abstracts {
		parent := a.Parent
		if parent == "" {
			parent = "Any"
		}
		h.Register(a.Name, parent)
	}
	for _, s := range prog.Structs {
		h.Register(s.Name, "Any")
	}

	structIDs := make(map[string]int, len(prog.Structs))
	structsByName := make(map[string]*ir.StructDefStmt, len(prog.Structs))
	for i, s := range prog.Structs {
		structIDs[s.Name] = i
		structsByName[s.Name] = s
	}

	inf := &inferer{
		h:          h,
		dispatch:   dispatch.NewTable(prog),
		structs:    structsByName,
		structIDs:  structIDs,
		widenLimit: widenLimit,
		visiting:   make(map[*ir.FuncDefStmt]bool),
		sigCache:   make(map[*ir.FuncDefStmt]*Signature),
		types:      make(map[ir.Expr]*types.Type),
	}

	for _, f := range prog.Functions {
		inf.signatureFor(f)
	}
	newMain, _ := inf.block(Env{}, prog.Main)

	out := &ir.Program{
		Module:    prog.Module,
		Functions: prog.Functions,
		Structs:   prog.Structs,
		Enums:     prog.Enums,
		Abstracts: prog.Abstracts,
		Main:      newMain,
	}
	return &TypedProgram{Program: out, Signatures: inf.sigCache, ExprTypes: inf.types}, nil
}

func (inf *inferer) record(e ir.Expr, t *types.Type) *types.Type {
	inf.types[e] = t
	return t
}

// paramDeclType is a parameter's declared lattice type, Top when untyped; a
// splat parameter's declared type is the element type of the array of
// extra positional arguments it collects.
func paramDeclType(p ir.Param) *types.Type {
	if p.TypeName == "" {
		return types.Top
	}
	if p.Splat {
		return types.ArrayOf(types.Concrete(p.TypeName))
	}
	return types.Concrete(p.TypeName)
}

// signatureFor computes (and caches) a function's Signature by analyzing
// its body once with parameters initialized from their declared types.
// Recursion - a function already on the analysis stack - returns an
// uncached Top-return stub instead of recursing forever.
func (inf *inferer) signatureFor(f *ir.FuncDefStmt) *Signature {
	if sig, ok := inf.sigCache[f]; ok {
		return sig
	}
	if inf.visiting[f] {
		return &Signature{Return: types.Top}
	}
	inf.visiting[f] = true
	defer delete(inf.visiting, f)

	env := Env{}
	params := make([]*types.Type, 0, len(f.Params))
	for _, p := range f.Params {
		t := paramDeclType(p)
		env[p.Name] = t
		params = append(params, t)
	}
	for _, p := range f.Keyword {
		env[p.Name] = paramDeclType(p)
	}

	savedReturns := inf.returns
	inf.returns = nil
	newBody, _ := inf.block(env, f.Body)
	ret := types.Bottom
	for _, r := range inf.returns {
		ret = types.Join(inf.h, ret, r)
	}
	if ret.IsBottom() {
		ret = types.Concrete("Nothing")
	}
	inf.returns = savedReturns

	f.Body = newBody
	sig := &Signature{Params: params, Return: ret}
	inf.sigCache[f] = sig
	return sig
}

// structIDFor returns the struct-table index used to disambiguate
// same-shaped struct types (types.Struct(name, id)), 0 for an undeclared
// name (inference still wants to produce a type even for a forward
// reference the rest of the pipeline will reject later).
func (inf *inferer) structIDFor(name string) int {
	return inf.structIDs[name]
}

func (inf *inferer) fieldType(structName, field string) *types.Type {
	sd, ok := inf.structs[structName]
	if !ok {
		return types.Top
	}
	for _, f := range sd.Fields {
		if f.Name == field {
			if f.TypeName == "" {
				return types.Top
			}
			return types.Concrete(f.TypeName)
		}
	}
	return types.Top
}
