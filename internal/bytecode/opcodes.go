package bytecode

// OpCode is one instruction in a Chunk's flat instruction stream. Operands following an opcode are encoded as little-endian uint32s
// via Chunk.WriteUint32 unless noted otherwise.
type OpCode byte

const (
	OpConstant OpCode = iota // u32 constant-pool index -> push

	// Typed stack pushes.
	OpPushI64
	OpPushF64
	OpPushBool
	OpPushStr
	OpPushNothing
	OpPushMissing
	OpPushUndef

	// Typed and dynamic arithmetic. The Dynamic* forms are emitted when
	// operand lattice types are Top; the typed forms are emitted when the
	// compiler knows both operand tags match.
	OpAddI64
	OpAddF64
	OpSubI64
	OpSubF64
	OpMulI64
	OpMulF64
	OpDivF64      // division always promotes to float
	OpIntDivDynamic
	OpModDynamic
	OpPowDynamic // power always dynamic
	OpDynamicAdd
	OpDynamicSub
	OpDynamicMul
	OpDynamicDiv
	OpBitAndDynamic
	OpBitOrDynamic
	OpBitXorDynamic
	OpShlDynamic
	OpShrDynamic
	OpNegate
	OpBitNot

	// Comparisons yield Bool regardless of operand tag.
	OpEqual
	OpNotEqual
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual
	OpAnd
	OpOr
	OpNot

	// Stack shuffling.
	OpPop
	OpDup
	OpSwap

	// Locals and globals. LoadSlot/StoreSlot address a frame's fixed-size
	// local vector by index; LoadGlobal/StoreGlobal/DefineGlobal address
	// frame 0's name-keyed map, used for names that never got
	// slot-allocated.
	OpLoadSlot
	OpStoreSlot
	OpLoadGlobal
	OpStoreGlobal
	OpDefineGlobal

	// Fused accumulator ops for hot counted loops.
	OpIncSlotI64
	OpDecSlotI64

	// Control flow. Jump targets are absolute instruction indices.
	OpJump
	OpJumpIfFalse
	OpLoop
	OpReturn
	OpBreak
	OpContinue

	// Calls. Positional args are pushed left to right, then keyword args.
	// OpCallStatic's target is fixed at compile time, so it gets one value
	// per declared keyword parameter in declaration order, Missing standing
	// in for any the call site omitted (kwCount is the declared count).
	// OpCallDynamic only resolves its target at runtime, so it gets the call
	// site's keyword args as (Symbol name Value, value) pairs in the call
	// site's own order and leaves keyword matching to the runtime resolver.
	OpCallStatic           // u32 func index, u8 posArgc, u8 kwCount
	OpCallDynamic          // u32 name-constant index, u8 posArgc, u8 kwCount
	OpCallBuiltin          // u32 BuiltinOp id, u8 argc (builtins take no keywords)
	OpCallFunctionVariable // u8 argc (positional only); stack holds callee then the args, in that order
	OpCallFunctionVariableSplat // u8 pairCount; stack holds callee then pairCount*(value, isSplat Bool)
	OpCallGlobalRef             // u32 qualified-name-constant index, u8 argc (positional only)

	// Arrays, tuples, ranges.
	OpNewArrayTyped // u32 elem kind, u32 count
	OpPushElemTyped
	OpFinalizeArrayTyped
	OpIndexLoad  // u8 rank
	OpIndexSlice
	OpIndexStore // u8 rank
	OpNewTuple   // u32 count
	OpNewNamedTuple
	OpMakeRangeLazy
	OpMakeRangeSteppedLazy

	// Dict / Set.
	OpNewDict // u32 count
	OpNewSet  // u32 count

	// Structs.
	OpNewStruct  // u32 type id, u32 field count
	OpFieldLoad  // u32 name-constant index
	OpFieldStore // u32 name-constant index

	// Reflection & misc.
	OpToI64
	OpToF64
	OpPrintAnyNoNewline
	OpPrintNewline
	OpIsDefined // u32 name-constant index

	// Error handling.
	OpPushTryFrame // u32 catch-table index
	OpPopTryFrame
	OpThrow

	// Closures / first-class functions.
	OpMakeFuncRef // u32 func index
	OpMakeClosure // u32 func index, u32 capture count

	// Broadcast / HOF entry point; the executor (C10) takes over the
	// dispatch loop once this runs (internal/vm).
	OpBroadcastStart // u32 BroadcastKind id

	// Iteration protocol shared by for/foreach/comprehensions. MakeIterator
	// pops an iterable (Array, Range, Dict, Set, Generator) and pushes a
	// boxed Iterator cursor; IterNext leaves that cursor on the stack and
	// pushes the next value and a Bool continuation flag, mutating the
	// cursor's position in place rather than threading it explicitly.
	OpMakeIterator
	OpIterNext

	// Test-harness declarations,
	// executed directly by the VM so the testharness component just reads
	// off the recorded outcomes afterward.
	OpTestAssert        // u32 description-constant index; pops a Bool condition
	OpTestSetBegin      // u32 description-constant index
	OpTestSetEnd
	OpTestThrowsNoThrow // u32 description-constant index; body fell through without throwing
	OpTestThrowsCaught  // u32 description-constant index; a matching error was caught

	// @timed block: Start/End bracket a body, End pushing the elapsed
	// duration (Float64 seconds) for the compiler to store into the named
	// binding.
	OpTimedStart
	OpTimedEnd
)

var opNames = [...]string{
	OpConstant:                  "CONSTANT",
	OpPushI64:                   "PUSH_I64",
	OpPushF64:                   "PUSH_F64",
	OpPushBool:                  "PUSH_BOOL",
	OpPushStr:                   "PUSH_STR",
	OpPushNothing:               "PUSH_NOTHING",
	OpPushMissing:               "PUSH_MISSING",
	OpPushUndef:                 "PUSH_UNDEF",
	OpAddI64:                    "ADD_I64",
	OpAddF64:                    "ADD_F64",
	OpSubI64:                    "SUB_I64",
	OpSubF64:                    "SUB_F64",
	OpMulI64:                    "MUL_I64",
	OpMulF64:                    "MUL_F64",
	OpDivF64:                    "DIV_F64",
	OpIntDivDynamic:             "INT_DIV_DYN",
	OpModDynamic:                "MOD_DYN",
	OpPowDynamic:                "POW_DYN",
	OpDynamicAdd:                "DYN_ADD",
	OpDynamicSub:                "DYN_SUB",
	OpDynamicMul:                "DYN_MUL",
	OpDynamicDiv:                "DYN_DIV",
	OpBitAndDynamic:             "BIT_AND_DYN",
	OpBitOrDynamic:              "BIT_OR_DYN",
	OpBitXorDynamic:             "BIT_XOR_DYN",
	OpShlDynamic:                "SHL_DYN",
	OpShrDynamic:                "SHR_DYN",
	OpNegate:                    "NEGATE",
	OpBitNot:                    "BIT_NOT",
	OpEqual:                     "EQUAL",
	OpNotEqual:                  "NOT_EQUAL",
	OpGreater:                   "GREATER",
	OpGreaterEqual:              "GREATER_EQUAL",
	OpLess:                      "LESS",
	OpLessEqual:                 "LESS_EQUAL",
	OpAnd:                       "AND",
	OpOr:                        "OR",
	OpNot:                       "NOT",
	OpPop:                       "POP",
	OpDup:                       "DUP",
	OpSwap:                      "SWAP",
	OpLoadSlot:                  "LOAD_SLOT",
	OpStoreSlot:                 "STORE_SLOT",
	OpLoadGlobal:                "LOAD_GLOBAL",
	OpStoreGlobal:               "STORE_GLOBAL",
	OpDefineGlobal:              "DEFINE_GLOBAL",
	OpIncSlotI64:                "INC_SLOT_I64",
	OpDecSlotI64:                "DEC_SLOT_I64",
	OpJump:                      "JUMP",
	OpJumpIfFalse:               "JUMP_IF_FALSE",
	OpLoop:                      "LOOP",
	OpReturn:                    "RETURN",
	OpBreak:                     "BREAK",
	OpContinue:                  "CONTINUE",
	OpCallStatic:                "CALL_STATIC",
	OpCallDynamic:               "CALL_DYNAMIC",
	OpCallBuiltin:               "CALL_BUILTIN",
	OpCallFunctionVariable:      "CALL_FUNC_VAR",
	OpCallFunctionVariableSplat: "CALL_FUNC_VAR_SPLAT",
	OpCallGlobalRef:             "CALL_GLOBAL_REF",
	OpNewArrayTyped:             "NEW_ARRAY_TYPED",
	OpPushElemTyped:             "PUSH_ELEM_TYPED",
	OpFinalizeArrayTyped:        "FINALIZE_ARRAY_TYPED",
	OpIndexLoad:                 "INDEX_LOAD",
	OpIndexSlice:                "INDEX_SLICE",
	OpIndexStore:                "INDEX_STORE",
	OpNewTuple:                  "NEW_TUPLE",
	OpNewNamedTuple:             "NEW_NAMED_TUPLE",
	OpMakeRangeLazy:             "MAKE_RANGE_LAZY",
	OpMakeRangeSteppedLazy:      "MAKE_RANGE_STEPPED_LAZY",
	OpNewDict:                   "NEW_DICT",
	OpNewSet:                    "NEW_SET",
	OpNewStruct:                 "NEW_STRUCT",
	OpFieldLoad:                 "FIELD_LOAD",
	OpFieldStore:                "FIELD_STORE",
	OpToI64:                     "TO_I64",
	OpToF64:                     "TO_F64",
	OpPrintAnyNoNewline:         "PRINT_ANY",
	OpPrintNewline:              "PRINT_NEWLINE",
	OpIsDefined:                 "IS_DEFINED",
	OpPushTryFrame:              "PUSH_TRY_FRAME",
	OpPopTryFrame:               "POP_TRY_FRAME",
	OpThrow:                     "THROW",
	OpMakeFuncRef:               "MAKE_FUNC_REF",
	OpMakeClosure:               "MAKE_CLOSURE",
	OpBroadcastStart:            "BROADCAST_START",
	OpMakeIterator:              "MAKE_ITERATOR",
	OpIterNext:                  "ITER_NEXT",
	OpTestAssert:                "TEST_ASSERT",
	OpTestSetBegin:              "TEST_SET_BEGIN",
	OpTestSetEnd:                "TEST_SET_END",
	OpTestThrowsNoThrow:         "TEST_THROWS_NO_THROW",
	OpTestThrowsCaught:          "TEST_THROWS_CAUGHT",
	OpTimedStart:                "TIMED_START",
	OpTimedEnd:                  "TIMED_END",
}

// String renders an opcode's mnemonic for the disassembler.
func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "UNKNOWN"
}
