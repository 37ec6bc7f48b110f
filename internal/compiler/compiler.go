// Package compiler lowers a type-inferred IR program (internal/infer) into
// a runnable bytecode.Program. It is the one stage that
// turns the abstract dispatch/inference decisions into concrete
// instructions: a call whose argument types are fully concrete and resolve
// to exactly one method compiles to OpCallStatic; everything else compiles
// to OpCallDynamic and is resolved again, the same way, by the VM.
package compiler

import (
	"fmt"

	"corelang/internal/bytecode"
	"corelang/internal/dispatch"
	"corelang/internal/errsys"
	"corelang/internal/infer"
	"corelang/internal/ir"
	"corelang/internal/types"
)

// Compiler holds the state shared across every function and the main block
// of one compilation unit.
type Compiler struct {
	tp       *infer.TypedProgram
	h        *types.Hierarchy
	dispatch *dispatch.Table
	prog     *bytecode.Program

	// nameConsts interns the name-constant pool, keyed by the name itself.
	// A function's Candidate.Index from dispatch.Resolve (built by
	// iterating Program.Functions in order) doubles as its FuncEntry index
	// in prog.Functions, since compileFunction adds entries in that same
	// order - no separate func-identity-to-index map is needed.
	nameConsts map[string]int
	errs       []*errsys.Error

	// tempCounter hands out unique synthetic slot names (foreach-tuple
	// cursors, compound-assignment scratch space) so nested constructs of
	// the same kind never alias each other's slot.
	tempCounter int
}

// tempName returns a synthetic local name no source identifier can ever
// collide with, unique within this Compiler's lifetime.
func (c *Compiler) tempName(prefix string) string {
	c.tempCounter++
	return fmt.Sprintf("$%s$%d", prefix, c.tempCounter)
}

// Compile turns a whole inferred program into a bytecode.Program. Compile
// errors (e.g. a reference to an undeclared struct) are collected rather
// than aborting immediately, so a CLI dump can report more than one at a
// time; a non-empty return still yields a best-effort Program.
func Compile(tp *infer.TypedProgram) (*bytecode.Program, []*errsys.Error) {
	h := types.NewHierarchy()
	c := &Compiler{
		tp:         tp,
		h:          h,
		dispatch:   dispatch.NewTable(tp.Program),
		prog:       bytecode.NewProgram(),
		nameConsts: make(map[string]int),
	}
	for _, a := range tp.Program.Abstracts {
		parent := a.Parent
		if parent == "" {
			parent = "Any"
		}
		h.Register(a.Name, parent)
		c.prog.Abstracts = append(c.prog.Abstracts, bytecode.AbstractEntry{Name: a.Name, Parent: parent})
	}
	for _, s := range tp.Program.Structs {
		h.Register(s.Name, "Any")
	}

	for i, s := range tp.Program.Structs {
		c.prog.AddStruct(bytecode.StructEntry{
			TypeID:  i,
			Name:    s.Name,
			Fields:  structFields(s),
			Mutable: structIsMutable(s),
		})
	}

	for _, f := range tp.Program.Functions {
		c.compileFunction(f)
	}

	c.prog.MainEntry = c.prog.Len()
	main := newFuncScope()
	c.emitBlock(main, tp.Program.Main)
	c.prog.WriteOp(bytecode.OpPushNothing)
	c.prog.WriteOp(bytecode.OpReturn)

	return c.prog, c.errs
}

func structFields(s *ir.StructDefStmt) []bytecode.StructField {
	out := make([]bytecode.StructField, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = bytecode.StructField{Name: f.Name, TypeName: f.TypeName}
	}
	return out
}

// structIsMutable reports whether any field was declared mutable - a
// struct with no mutable fields compiles to value.StructValue construction
// (inline, copy semantics) rather than a value.StructRef heap allocation.
func structIsMutable(s *ir.StructDefStmt) bool {
	for _, f := range s.Fields {
		if f.Mutable {
			return true
		}
	}
	return false
}

func (c *Compiler) errorf(span errsys.Span, kind errsys.Kind, format string, args ...any) {
	c.errs = append(c.errs, errsys.New(kind, fmt.Sprintf(format, args...), span))
}

// funcScope allocates the fixed-size local-slot vector for one function
// (or the main block) body: each name gets a slot the first time it is
// written, in left-to-right first-write order, and every later reference
// to that name reuses the same slot.
type funcScope struct {
	slots map[string]int
	next  int

	loops []loopScope

	// labels/gotoPatches support LabelStmt/GotoStmt: a Goto reached before
	// its Label is compiled records a placeholder jump here, patched once
	// the Label is actually emitted.
	labels      map[string]int
	gotoPatches map[string][]int
}

// loopScope tracks the jump-patch list a break/continue inside the
// currently-compiling loop needs; continueTarget is the absolute IP a
// `continue` jumps to (the loop's condition re-check, or its increment
// step for a counted for-loop).
type loopScope struct {
	label          string
	breakJumps     []int
	continueTarget int
}

func newFuncScope() *funcScope {
	return &funcScope{
		slots:       make(map[string]int),
		labels:      make(map[string]int),
		gotoPatches: make(map[string][]int),
	}
}

func (fs *funcScope) slotFor(name string) int {
	if s, ok := fs.slots[name]; ok {
		return s
	}
	s := fs.next
	fs.slots[name] = s
	fs.next++
	return s
}

func (fs *funcScope) hasSlot(name string) bool {
	_, ok := fs.slots[name]
	return ok
}

func (fs *funcScope) pushLoop(label string, continueTarget int) {
	fs.loops = append(fs.loops, loopScope{label: label, continueTarget: continueTarget})
}

func (fs *funcScope) popLoop() loopScope {
	l := fs.loops[len(fs.loops)-1]
	fs.loops = fs.loops[:len(fs.loops)-1]
	return l
}

// findLoop returns the loop a (possibly labeled) break/continue targets,
// innermost first when label is "".
func (fs *funcScope) findLoop(label string) *loopScope {
	for i := len(fs.loops) - 1; i >= 0; i-- {
		if label == "" || fs.loops[i].label == label {
			return &fs.loops[i]
		}
	}
	return nil
}

// nameConst interns a name string into the constant pool, reusing the
// index for repeated references to the same name (globals, fields, dynamic
// call targets).
func (c *Compiler) nameConst(name string) int {
	if idx, ok := c.nameConsts[name]; ok {
		return idx
	}
	idx := c.prog.AddConstant(name)
	c.nameConsts[name] = idx
	return idx
}

// emitJump writes a jump opcode with a placeholder target, returning the
// operand's byte offset so a later patchJump call can fill in the real
// target once it is known.
func (c *Compiler) emitJump(op bytecode.OpCode) int {
	c.prog.WriteOp(op)
	return c.prog.WriteUint32(0)
}

// patchJump sets a previously emitted jump's target to the current
// instruction pointer.
func (c *Compiler) patchJump(operandPos int) {
	c.prog.PatchUint32(operandPos, uint32(c.prog.Len()))
}

// emitLoop writes a backward OpLoop to a known target (used for while/for
// back-edges, whose target - the condition re-check - is already behind
// the point where OpLoop is emitted).
func (c *Compiler) emitLoop(target int) {
	c.prog.WriteOp(bytecode.OpLoop)
	c.prog.WriteUint32(uint32(target))
}
