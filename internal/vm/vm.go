// Package vm implements the bytecode interpreter: a stack machine that
// runs one compiled bytecode.Program to completion, resolving
// multi-method calls dynamically when the compiler couldn't resolve them
// statically, driving the broadcast/HOF executor when a call enters that
// state machine, and unwinding through try/catch/finally the way the
// compiler's CatchTable describes. Built around a frames array,
// stackTop, push/pop/peek, and a giant opcode switch over the typed
// value.Value model and the multi-method FuncEntry table.
package vm

import (
	"fmt"
	"math/rand"
	"time"

	"corelang/internal/bytecode"
	"corelang/internal/errsys"
	"corelang/internal/types"
	"corelang/internal/value"
)

const (
	maxStack  = 1 << 20
	maxFrames = 1 << 14
)

// frame is one call's activation record: its own instruction pointer into
// the shared code stream, the slice of the value stack holding its locals
// (addressed by ParamSlot.Slot / OpLoadSlot), and enough identity to build
// an errsys.Frame if a throw needs to unwind through it.
type frame struct {
	ip       int
	locals   []value.Value
	funcName string
	// defaultReturn marks this frame as a nested default-argument
	// evaluation (funcs.go's DefaultIP contract): its OpReturn result is
	// bound into the caller's pending argument list instead of being
	// pushed back as an ordinary call result.
	defaultReturn bool
	// defaultTargetLocals/defaultTargetSlot: where a defaultReturn frame's
	// OpReturn result gets written (calls.go), instead of being pushed back
	// onto the value stack the way an ordinary call's result is.
	defaultTargetLocals []value.Value
	defaultTargetSlot   int
}

// tryFrame is one live try/catch/finally region, pushed by OpPushTryFrame
// and consulted whenever a throw (explicit or raised by an instruction)
// needs to find its handler.
type tryFrame struct {
	catchIdx   int
	stackDepth int
	frameDepth int
}

// VM runs one compiled Program start to finish. A fresh VM is cheap enough
// to build per REPL evaluation; the REPL instead keeps one VM alive across
// evaluations so globals and the struct heap persist.
type VM struct {
	prog *bytecode.Program

	stack    []value.Value
	stackTop int

	frames     []frame
	frameCount int

	tryStack []tryFrame

	globals map[string]value.Value
	heap    *value.Heap

	rng *rand.Rand

	out       func(string) // guest print sink; defaults to stdout via Stdout()
	lastError *errsys.Error

	// broadcast holds the in-flight HOF state machine, nil when none is
	// running. Only one broadcast is ever in flight at a time; nested
	// broadcasts run their own VM.Run to completion before the outer one
	// resumes (see broadcast.go).
	broadcast *broadcastState

	cancelled bool

	instrCount int

	// loopFloor is the frame depth the innermost active runTo call is
	// waiting to unwind back to (see runTo/doReturn).
	loopFloor int

	// hier caches the runtime type lattice rebuilt from the Program's
	// Abstracts/Structs tables, used by execCallDynamic's dispatch resolver
	// (calls.go).
	hier *types.Hierarchy

	// arrayBuilders is a stack of in-progress typed-array/comprehension
	// builds (array.go). OpNewArrayTyped/OpPushElemTyped/OpFinalizeArrayTyped
	// never touch the value stack except to consume the one element value
	// OpPushElemTyped produces each iteration, so an array under
	// construction stays reachable under arbitrarily nested comprehension
	// loop bodies without occupying a stack slot those loops would have to
	// reach past.
	arrayBuilders []arrayBuilder

	// structsByID caches Program.Structs (keyed by name) indexed by TypeID
	// for OpNewStruct's numeric operand, built lazily on first use (structs.go).
	structsByID []bytecode.StructEntry

	// Test-harness and timed-block state (testharness.go). testSets tracks
	// nested @testset names; results accumulates every assertion the run
	// produced, in source order, for the CLI/REPL to summarize.
	testSets []string
	results  []TestResult
	timedStack []time.Time

	// gensymCounter hands out unique suffixes for the gensym() builtin.
	gensymCounter int
}

// TestResult is one `@test`/`@test_throws` outcome, reported in source
// order so -> the CLI's summary and the REPL's inline report both read it
// the same way.
type TestResult struct {
	Set    string
	Desc   string
	Passed bool
}

// New builds a VM ready to run prog, with its own struct heap and a fresh
// RNG seeded from seed (the REPL derives seed deterministically per
// evaluation; a one-shot CLI run seeds from the OS clock itself).
func New(prog *bytecode.Program, seed int64) *VM {
	return &VM{
		prog:    prog,
		stack:   make([]value.Value, maxStack),
		frames:  make([]frame, maxFrames),
		globals: make(map[string]value.Value),
		heap:    value.NewHeap(),
		rng:     rand.New(rand.NewSource(seed)),
		out:     defaultOut,
	}
}

func defaultOut(s string) { fmt.Print(s) }

// SetOutput redirects the guest print/println sink, used by the REPL and
// by tests that capture output instead of writing to the real stdout.
func (vm *VM) SetOutput(fn func(string)) { vm.out = fn }

// SetProgram swaps in a freshly compiled Program and reseeds the RNG ahead
// of the next Run, while leaving globals and the struct heap untouched -
// the REPL session (internal/repl) recompiles the whole accumulated
// program every eval but keeps one VM alive across evals so previously
// allocated StructRefs and global bindings stay valid.
// Per-Program caches keyed off the old struct/abstract tables must be
// dropped since the new Program's tables can have grown.
func (vm *VM) SetProgram(prog *bytecode.Program, seed int64) {
	vm.prog = prog
	vm.rng = rand.New(rand.NewSource(seed))
	vm.hier = nil
	vm.structsByID = nil
	vm.results = nil
	vm.testSets = nil
}

// Globals exposes the persistent global frame, read by the REPL to render
// `who()`-style summaries and by the test harness to report pass/fail
// counts accumulated in well-known names.
func (vm *VM) Globals() map[string]value.Value { return vm.globals }

// Heap exposes the struct arena, carried forward by the REPL across
// evaluations so a StructRef produced by one line still resolves when a
// later line inspects it.
func (vm *VM) Heap() *value.Heap { return vm.heap }

// Results exposes every test assertion recorded this run, in source order.
func (vm *VM) Results() []TestResult { return vm.results }

// Cancel requests cooperative cancellation; the next cancellation
// checkpoint (OpCallBuiltin's BuiltinCancelCheck, and every loop back-edge)
// raises a Cancelled error that still unwinds through try/finally.
func (vm *VM) Cancel() { vm.cancelled = true }

// ResetCancel clears the cancellation flag, called by the REPL at the
// start of each new evaluation.
func (vm *VM) ResetCancel() { vm.cancelled = false }

func (vm *VM) push(v value.Value) {
	if vm.stackTop >= len(vm.stack) {
		panic(errsys.Internal("value stack overflow"))
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(fromTop int) value.Value {
	return vm.stack[vm.stackTop-1-fromTop]
}

func (vm *VM) curFrame() *frame { return &vm.frames[vm.frameCount-1] }

// readByte/readUint32 fetch one operand from the current frame's code
// stream and advance its ip, mirroring chunk.go's little-endian encoding.
func (vm *VM) readByte() byte {
	f := vm.curFrame()
	b := vm.prog.Code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readUint32() uint32 {
	f := vm.curFrame()
	v := vm.prog.ReadUint32(f.ip)
	f.ip += 4
	return v
}

func (vm *VM) constant(idx uint32) interface{} { return vm.prog.Constants[idx] }

func (vm *VM) nameConstant(idx uint32) string {
	return vm.constant(idx).(string)
}

// constantValue converts one constant-pool entry to a runtime Value. Most
// entries are already value.Value (every literal, symbol and bool-flag
// constant the compiler emits); DestructureAssignStmt's synthetic index
// constants are the one bare-int64 exception (stmt.go).
func constantValue(c interface{}) value.Value {
	switch v := c.(type) {
	case value.Value:
		return v
	case int64:
		return value.Int64(v)
	case string:
		// Interned identifiers (NamedTuple field names, qualified-call
		// module.name strings) share the nameConst pool with every other
		// by-name operand; pushing one via OpConstant yields a guest
		// String, the only way compiler.go's emitNewNamedTuple turns a
		// field name into an addressable Value.
		return value.Str(v)
	default:
		panic(errsys.Internal(fmt.Sprintf("constant pool entry has unexpected type %T", c)))
	}
}

// Run executes the program's main block to completion (or until a
// catchable error escapes every handler / an uncatchable error aborts),
// returning the main block's result value.
func (vm *VM) Run() (value.Value, *errsys.Error) {
	vm.frameCount = 1
	vm.frames[0] = frame{ip: vm.prog.MainEntry, locals: nil, funcName: "main"}
	return vm.runTo(0)
}

// RunFunction invokes one already-resolved function entry directly with
// positional args already bound to its declared params, used by the
// broadcast/HOF executor to call the guest function once per element
// without going through the full call-site binding machinery again.
func (vm *VM) RunFunction(fe *bytecode.FuncEntry, args []value.Value) (value.Value, *errsys.Error) {
	floor := vm.frameCount
	if err := vm.pushCallFrame(fe, args, nil); err != nil {
		return value.Nothing, err
	}
	return vm.runTo(floor)
}

// runTo is the shared dispatch loop: it runs until the frame stack unwinds
// back to floor, the depth it started at. Run (floor 0), RunFunction, and
// calls.go's nested default-argument evaluation each call this with the
// depth they're waiting to return to, so a plain guest call just keeps
// pushing/popping frames on one shared loop while a default-fragment
// evaluation gets its own temporarily-innermost loop instance.
func (vm *VM) runTo(floor int) (value.Value, *errsys.Error) {
	prevFloor := vm.loopFloor
	vm.loopFloor = floor
	defer func() { vm.loopFloor = prevFloor }()

	for vm.frameCount > floor {
		vm.instrCount++
		if vm.instrCount&0xFFFF == 0 && vm.cancelled {
			if !vm.raise(errsys.Cancelled, "execution cancelled") {
				return value.Nothing, vm.lastError
			}
			continue
		}

		f := vm.curFrame()
		if f.ip >= len(vm.prog.Code) {
			panic(errsys.Internal("instruction pointer ran off the end of the code stream"))
		}
		op := bytecode.OpCode(vm.prog.Code[f.ip])
		f.ip++

		result, done, err := vm.step(op)
		if err != nil {
			if !vm.raise(err.Kind, err.Message) {
				return value.Nothing, vm.lastError
			}
			continue
		}
		if done {
			return result, nil
		}
	}
	return value.Nothing, nil
}

// step executes one instruction. It returns (result, true, nil) only when
// this was the OpReturn that unwinds the loop's entry frame; every other
// instruction returns (_, false, nil), or (_, false, err) to start
// try/catch unwinding.
func (vm *VM) step(op bytecode.OpCode) (value.Value, bool, *errsys.Error) {
	switch op {
	case bytecode.OpConstant:
		idx := vm.readUint32()
		vm.push(constantValue(vm.constant(idx)))

	case bytecode.OpPushI64:
		vm.push(value.Int64(int64(vm.readUint32())))
	case bytecode.OpPushF64:
		idx := vm.readUint32()
		vm.push(constantValue(vm.constant(idx)))
	case bytecode.OpPushBool:
		vm.push(value.Bool(vm.readByte() != 0))
	case bytecode.OpPushStr:
		idx := vm.readUint32()
		vm.push(constantValue(vm.constant(idx)))
	case bytecode.OpPushNothing:
		vm.push(value.Nothing)
	case bytecode.OpPushMissing:
		vm.push(value.Missing)
	case bytecode.OpPushUndef:
		idx := vm.readUint32()
		vm.push(value.Undef(vm.nameConstant(idx)))

	case bytecode.OpAddI64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Int64(a.Int64() + b.Int64()))
	case bytecode.OpAddF64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Float64(a.Float64() + b.Float64()))
	case bytecode.OpSubI64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Int64(a.Int64() - b.Int64()))
	case bytecode.OpSubF64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Float64(a.Float64() - b.Float64()))
	case bytecode.OpMulI64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Int64(a.Int64() * b.Int64()))
	case bytecode.OpMulF64:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Float64(a.Float64() * b.Float64()))
	case bytecode.OpDivF64:
		b, a := vm.pop(), vm.pop()
		if b.AsFloat64() == 0 {
			return value.Nothing, false, errsys.New(errsys.DivisionByZero, "division by zero", errsys.Span{})
		}
		vm.push(value.Float64(a.AsFloat64() / b.AsFloat64()))
	case bytecode.OpIntDivDynamic:
		b, a := vm.pop(), vm.pop()
		return vm.dynamicIntDiv(a, b)
	case bytecode.OpModDynamic:
		b, a := vm.pop(), vm.pop()
		return vm.dynamicMod(a, b)
	case bytecode.OpPowDynamic:
		b, a := vm.pop(), vm.pop()
		vm.push(vm.dynamicPow(a, b))
	case bytecode.OpDynamicAdd:
		b, a := vm.pop(), vm.pop()
		return vm.dynamicAdd(a, b)
	case bytecode.OpDynamicSub:
		b, a := vm.pop(), vm.pop()
		return vm.dynamicArith(a, b, '-')
	case bytecode.OpDynamicMul:
		b, a := vm.pop(), vm.pop()
		return vm.dynamicArith(a, b, '*')
	case bytecode.OpDynamicDiv:
		b, a := vm.pop(), vm.pop()
		if b.AsFloat64() == 0 {
			return value.Nothing, false, errsys.New(errsys.DivisionByZero, "division by zero", errsys.Span{})
		}
		vm.push(value.Float64(a.AsFloat64() / b.AsFloat64()))
	case bytecode.OpBitAndDynamic:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Int64(a.AsInt64() & b.AsInt64()))
	case bytecode.OpBitOrDynamic:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Int64(a.AsInt64() | b.AsInt64()))
	case bytecode.OpBitXorDynamic:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Int64(a.AsInt64() ^ b.AsInt64()))
	case bytecode.OpShlDynamic:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Int64(a.AsInt64() << uint(b.AsInt64())))
	case bytecode.OpShrDynamic:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Int64(a.AsInt64() >> uint(b.AsInt64())))
	case bytecode.OpNegate:
		a := vm.pop()
		vm.push(vm.dynamicNegate(a))
	case bytecode.OpBitNot:
		a := vm.pop()
		vm.push(value.Int64(^a.AsInt64()))

	case bytecode.OpEqual:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(valuesEqual(a, b)))
	case bytecode.OpNotEqual:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(!valuesEqual(a, b)))
	case bytecode.OpGreater:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(compareValues(a, b) > 0))
	case bytecode.OpGreaterEqual:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(compareValues(a, b) >= 0))
	case bytecode.OpLess:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(compareValues(a, b) < 0))
	case bytecode.OpLessEqual:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(compareValues(a, b) <= 0))
	case bytecode.OpAnd:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(a.Truthy() && b.Truthy()))
	case bytecode.OpOr:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(a.Truthy() || b.Truthy()))
	case bytecode.OpNot:
		a := vm.pop()
		vm.push(value.Bool(!a.Truthy()))

	case bytecode.OpPop:
		vm.pop()
	case bytecode.OpDup:
		vm.push(vm.peek(0))
	case bytecode.OpSwap:
		a, b := vm.pop(), vm.pop()
		vm.push(a)
		vm.push(b)

	case bytecode.OpLoadSlot:
		slot := vm.readUint32()
		vm.push(vm.curFrame().locals[slot])
	case bytecode.OpStoreSlot:
		slot := vm.readUint32()
		vm.curFrame().locals[slot] = vm.pop()
	case bytecode.OpLoadGlobal:
		idx := vm.readUint32()
		name := vm.nameConstant(idx)
		v, ok := vm.globals[name]
		if !ok {
			return value.Nothing, false, errsys.New(errsys.UndefVarError, fmt.Sprintf("undefined variable %q", name), errsys.Span{})
		}
		vm.push(v)
	case bytecode.OpStoreGlobal, bytecode.OpDefineGlobal:
		idx := vm.readUint32()
		name := vm.nameConstant(idx)
		vm.globals[name] = vm.pop()

	case bytecode.OpIncSlotI64:
		slot := vm.readUint32()
		loc := &vm.curFrame().locals[slot]
		*loc = value.Int64(loc.Int64() + 1)
	case bytecode.OpDecSlotI64:
		slot := vm.readUint32()
		loc := &vm.curFrame().locals[slot]
		*loc = value.Int64(loc.Int64() - 1)

	case bytecode.OpJump:
		target := vm.readUint32()
		vm.curFrame().ip = int(target)
	case bytecode.OpJumpIfFalse:
		target := vm.readUint32()
		if !vm.pop().Truthy() {
			vm.curFrame().ip = int(target)
		}
	case bytecode.OpLoop:
		target := vm.readUint32()
		vm.curFrame().ip = int(target)
		if vm.cancelled {
			if !vm.raise(errsys.Cancelled, "execution cancelled") {
				return value.Nothing, false, vm.lastError
			}
		}
	case bytecode.OpReturn:
		return vm.doReturn()
	case bytecode.OpBreak, bytecode.OpContinue:
		// Always compiled away to OpJump/OpLoop by the compiler (stmt.go's
		// emitBreak/emitContinue); reaching one live means a label/loop
		// tracking bug upstream, not a reachable runtime state.
		return value.Nothing, false, errsys.Internal("OpBreak/OpContinue reached the VM uncompiled")

	case bytecode.OpCallStatic:
		return vm.execCallStatic()
	case bytecode.OpCallDynamic:
		return vm.execCallDynamic()
	case bytecode.OpCallBuiltin:
		return vm.execCallBuiltin()
	case bytecode.OpCallFunctionVariable:
		return vm.execCallFunctionVariable()
	case bytecode.OpCallFunctionVariableSplat:
		return vm.execCallFunctionVariableSplat()
	case bytecode.OpCallGlobalRef:
		return vm.execCallGlobalRef()

	case bytecode.OpNewArrayTyped:
		kind := value.ElemKind(vm.readUint32())
		count := int(vm.readUint32())
		vm.arrayBuilders = append(vm.arrayBuilders, arrayBuilder{kind: kind, elems: make([]value.Value, 0, count)})
	case bytecode.OpPushElemTyped:
		el := vm.pop()
		b := &vm.arrayBuilders[len(vm.arrayBuilders)-1]
		b.elems = append(b.elems, el)
	case bytecode.OpFinalizeArrayTyped:
		b := vm.arrayBuilders[len(vm.arrayBuilders)-1]
		vm.arrayBuilders = vm.arrayBuilders[:len(vm.arrayBuilders)-1]
		vm.push(value.MakeArray(finalizeArray(b)))

	case bytecode.OpIndexLoad:
		return vm.execIndexLoad()
	case bytecode.OpIndexSlice:
		return vm.execIndexSlice()
	case bytecode.OpIndexStore:
		return vm.execIndexStore()
	case bytecode.OpNewTuple:
		n := int(vm.readUint32())
		elems := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			elems[i] = vm.pop()
		}
		vm.push(value.MakeTuple(elems))
	case bytecode.OpNewNamedTuple:
		n := int(vm.readUint32())
		names := make([]string, n)
		elems := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			elems[i] = vm.pop()
			names[i] = vm.pop().Str()
		}
		vm.push(value.MakeNamedTuple(&value.NamedTuple{Names: names, Elems: elems}))
	case bytecode.OpMakeRangeLazy:
		stop, start := vm.pop(), vm.pop()
		vm.push(vm.makeRange(start, stop, value.Int64(1)))
	case bytecode.OpMakeRangeSteppedLazy:
		step, stop, start := vm.pop(), vm.pop(), vm.pop()
		vm.push(vm.makeRange(start, stop, step))

	case bytecode.OpNewDict:
		n := int(vm.readUint32())
		d := value.NewDict()
		pairs := make([][2]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			v := vm.pop()
			k := vm.pop()
			pairs[i] = [2]value.Value{k, v}
		}
		for _, p := range pairs {
			d.Set(p[0], p[1])
		}
		vm.push(value.MakeDict(d))
	case bytecode.OpNewSet:
		n := int(vm.readUint32())
		s := value.NewSet()
		items := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			items[i] = vm.pop()
		}
		for _, it := range items {
			s.Add(it)
		}
		vm.push(value.MakeSet(s))

	case bytecode.OpNewStruct:
		return vm.execNewStruct()
	case bytecode.OpFieldLoad:
		return vm.execFieldLoad()
	case bytecode.OpFieldStore:
		return vm.execFieldStore()

	case bytecode.OpToI64:
		a := vm.pop()
		vm.push(value.Int64(a.AsInt64()))
	case bytecode.OpToF64:
		a := vm.pop()
		vm.push(value.Float64(a.AsFloat64()))
	case bytecode.OpPrintAnyNoNewline:
		vm.out(displayString(vm.pop()))
	case bytecode.OpPrintNewline:
		vm.out("\n")
	case bytecode.OpIsDefined:
		idx := vm.readUint32()
		name := vm.nameConstant(idx)
		_, ok := vm.globals[name]
		vm.push(value.Bool(ok))

	case bytecode.OpPushTryFrame:
		idx := vm.readUint32()
		vm.tryStack = append(vm.tryStack, tryFrame{
			catchIdx:   int(idx),
			stackDepth: vm.stackTop,
			frameDepth: vm.frameCount,
		})
	case bytecode.OpPopTryFrame:
		vm.tryStack = vm.tryStack[:len(vm.tryStack)-1]
	case bytecode.OpThrow:
		v := vm.pop()
		return value.Nothing, false, errorFromValue(v)

	case bytecode.OpMakeFuncRef:
		idx := vm.readUint32()
		vm.push(value.MakeFunctionRef(vm.nameConstant(idx)))
	case bytecode.OpMakeClosure:
		return vm.execMakeClosure()

	case bytecode.OpBroadcastStart:
		return vm.execBroadcastStart()
	case bytecode.OpMakeIterator:
		v := vm.pop()
		vm.push(makeIteratorCursor(v))
	case bytecode.OpIterNext:
		return vm.execIterNext()

	case bytecode.OpTestAssert:
		idx := vm.readUint32()
		cond := vm.pop()
		vm.recordTest(vm.nameConstant(idx), cond.Truthy())
	case bytecode.OpTestSetBegin:
		idx := vm.readUint32()
		vm.beginTestSet(vm.nameConstant(idx))
	case bytecode.OpTestSetEnd:
		vm.endTestSet()
	case bytecode.OpTestThrowsNoThrow:
		idx := vm.readUint32()
		vm.recordTest(vm.nameConstant(idx), false)
	case bytecode.OpTestThrowsCaught:
		idx := vm.readUint32()
		vm.recordTest(vm.nameConstant(idx), true)

	case bytecode.OpTimedStart:
		vm.beginTimed()
	case bytecode.OpTimedEnd:
		vm.push(value.Float64(vm.endTimed()))

	default:
		return value.Nothing, false, errsys.Internal(fmt.Sprintf("unimplemented opcode %s", op))
	}
	return value.Nothing, false, nil
}
