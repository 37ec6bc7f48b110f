// Package repl implements the interactive evaluation session: one accumulated program definition set, one long-lived VM, and
// incremental compile+run per input.
package repl

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"corelang/internal/bytecode"
	"corelang/internal/compiler"
	"corelang/internal/cst"
	"corelang/internal/errsys"
	"corelang/internal/infer"
	"corelang/internal/ir"
	"corelang/internal/lowering"
	"corelang/internal/value"
	"corelang/internal/vm"
)

// widenLimit bounds the abstract interpreter's loop-widening passes; 3
// matches the fixed-point depth internal/compiler's own tests compile with.
const widenLimit = 3

// Session holds everything that must survive across evals: the accumulated
// definition set, the persistent VM (globals and struct heap live inside
// it and are never reset), and the running eval counter used to vary the
// per-eval RNG seed.
//
// Top-level variable reads/writes always compile to OpLoadGlobal/
// OpStoreGlobal keyed by name (internal/compiler/expr.go emitLoadName), and
// internal/infer treats a read of a name it has never seen as permissive
// Top rather than an inference-time error (lookupOrTop). So a name bound
// in an earlier eval and referenced, but not reassigned, in a later one
// resolves fine at both inference and compile time, and at runtime finds
// its value already sitting in the reused VM's globals map. That makes the
// VM's own state the session's persistence mechanism: no reinjection of
// prior Values as synthetic literal expressions is needed to keep
// definitions and globals surviving across evaluations.
type Session struct {
	ID   uuid.UUID
	Seed int64

	vm        *vm.VM
	evalCount int64

	funcs     []*ir.FuncDefStmt // accumulated, de-duplicated by exact signature
	structs   map[string]*ir.StructDefStmt
	enums     map[string]*ir.EnumDefStmt
	abstracts map[string]*ir.AbstractTypeDefStmt

	ans value.Value
}

// NewSession starts a fresh session seeded for reproducible randomness. out
// receives everything the evaluated program prints; pass nil to discard it.
func NewSession(seed int64, out func(string)) *Session {
	s := &Session{
		ID:        uuid.New(),
		Seed:      seed,
		structs:   make(map[string]*ir.StructDefStmt),
		enums:     make(map[string]*ir.EnumDefStmt),
		abstracts: make(map[string]*ir.AbstractTypeDefStmt),
	}
	s.vm = vm.New(bytecode.NewProgram(), seed)
	if out != nil {
		s.vm.SetOutput(out)
	}
	return s
}

// funcSignature keys multiple-dispatch overloads so that redefining
// `describe(x: Int64)` replaces only that overload, leaving `describe(x:
// Float64)` from an earlier eval untouched.
func funcSignature(f *ir.FuncDefStmt) string {
	var sb strings.Builder
	sb.WriteString(f.Name)
	for _, p := range f.Params {
		sb.WriteByte('/')
		sb.WriteString(p.TypeName)
	}
	return sb.String()
}

func (s *Session) mergeFunc(f *ir.FuncDefStmt) {
	sig := funcSignature(f)
	for i, existing := range s.funcs {
		if funcSignature(existing) == sig {
			s.funcs[i] = f
			return
		}
	}
	s.funcs = append(s.funcs, f)
}

// Result is what one Eval call produced: the value (or function reference,
// for a definition-only eval), and any errors encountered along the way.
type Result struct {
	Value      value.Value
	IsNewFunc  bool
	Errors     []*errsys.Error
	RuntimeErr *errsys.Error
}

// Eval parses, lowers, merges accumulated definitions, compiles, and runs
// one piece of input against the session's live VM.
func (s *Session) Eval(input string) Result {
	cprog, perrs := cst.Parse("<repl>", input)
	if len(perrs) > 0 {
		return Result{Errors: perrs}
	}
	prog, lerrs := lowering.Lower("<repl>", cprog)
	if len(lerrs) > 0 {
		return Result{Errors: lerrs}
	}

	freshFuncs := prog.Functions
	for _, f := range freshFuncs {
		s.mergeFunc(f)
	}
	for _, sd := range prog.Structs {
		s.structs[sd.Name] = sd
	}
	for _, ed := range prog.Enums {
		s.enums[ed.Name] = ed
	}
	for _, ad := range prog.Abstracts {
		s.abstracts[ad.Name] = ad
	}

	merged := &ir.Program{
		Module:    prog.Module,
		Functions: s.funcs,
		Structs:   mapValuesStruct(s.structs),
		Enums:     mapValuesEnum(s.enums),
		Abstracts: mapValuesAbstract(s.abstracts),
		Main:      prog.Main,
	}

	// A definition-only eval (nothing but exactly one new function, no
	// statements to run) returns that function itself rather than
	// executing an empty main block.
	if len(freshFuncs) == 1 && len(prog.Structs) == 0 && len(prog.Enums) == 0 &&
		len(prog.Abstracts) == 0 && blockIsEmpty(prog.Main) {
		fv := value.MakeFunctionRef(freshFuncs[0].Name)
		s.ans = fv
		return Result{Value: fv, IsNewFunc: true}
	}

	tp, ierrs := infer.Infer(merged, widenLimit)
	if len(ierrs) > 0 {
		return Result{Errors: ierrs}
	}
	bprog, cerrs := compiler.Compile(tp)
	if len(cerrs) > 0 {
		return Result{Errors: cerrs}
	}

	seed := s.nextSeed()
	s.evalCount++
	s.vm.SetProgram(bprog, seed)

	v, rerr := s.vm.Run()
	if rerr != nil {
		return Result{RuntimeErr: rerr}
	}
	s.ans = v
	return Result{Value: v}
}

// nextSeed derives seed' = blake2b(seed ‖ eval_count) rather than a raw sum, so nearby eval counters don't land on
// adjacent, easily-correlated seeds.
func (s *Session) nextSeed() int64 {
	var buf [16]byte
	putInt64(buf[:8], s.Seed)
	putInt64(buf[8:], s.evalCount)
	sum := blake2b.Sum256(buf[:])
	var out int64
	for i := 0; i < 8; i++ {
		out = out<<8 | int64(sum[i])
	}
	return out
}

func putInt64(b []byte, v int64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func blockIsEmpty(b *ir.BlockStmt) bool {
	return b == nil || len(b.Stmts) == 0
}

func mapValuesStruct(m map[string]*ir.StructDefStmt) []*ir.StructDefStmt {
	out := make([]*ir.StructDefStmt, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func mapValuesEnum(m map[string]*ir.EnumDefStmt) []*ir.EnumDefStmt {
	out := make([]*ir.EnumDefStmt, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func mapValuesAbstract(m map[string]*ir.AbstractTypeDefStmt) []*ir.AbstractTypeDefStmt {
	out := make([]*ir.AbstractTypeDefStmt, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// Ans returns the value of the last successful evaluation, mirroring the
// source language's own `ans` REPL binding.
func (s *Session) Ans() value.Value { return s.ans }

// VM exposes the session's live VM so embedders (internal/capi) can read
// back globals or the struct heap without re-running anything.
func (s *Session) VM() *vm.VM { return s.vm }

func (r Result) String() string {
	if len(r.Errors) > 0 {
		var sb strings.Builder
		for _, e := range r.Errors {
			sb.WriteString(e.Error())
			sb.WriteByte('\n')
		}
		return sb.String()
	}
	if r.RuntimeErr != nil {
		return r.RuntimeErr.Error()
	}
	return value.Repr(r.Value)
}
