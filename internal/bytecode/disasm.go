package bytecode

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
)

// Disassemble renders a human-readable dump of a compiled Program, used by
// the CLI's -dump-bytecode flag. Integer constants, the code byte count and
// typed-array element counts are humanized so a diagnostic dump of a large
// program stays readable.
func Disassemble(p *Program, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	fmt.Fprintf(&b, "constants: %d, code bytes: %s, functions: %d, structs: %d\n",
		len(p.Constants), humanize.Bytes(uint64(len(p.Code))), len(p.Functions), len(p.Structs))

	for _, f := range p.Functions {
		fmt.Fprintf(&b, "\nfunc %s @%d (%d slots)\n", f.Name, f.Entry, f.NumSlots)
	}
	fmt.Fprintf(&b, "\nmain @%d\n", p.MainEntry)

	offset := 0
	for offset < len(p.Code) {
		offset = disassembleInstruction(&b, p, offset)
	}
	return b.String()
}

func disassembleInstruction(b *strings.Builder, p *Program, offset int) int {
	op := OpCode(p.Code[offset])
	fmt.Fprintf(b, "%04d %-20s", offset, op.String())
	next := offset + 1

	switch op {
	case OpConstant, OpMakeFuncRef, OpFieldLoad, OpFieldStore, OpIsDefined,
		OpNewTuple, OpNewNamedTuple, OpNewDict, OpNewSet, OpBroadcastStart, OpLoadGlobal, OpStoreGlobal, OpDefineGlobal,
		OpJump, OpJumpIfFalse, OpLoop, OpLoadSlot, OpStoreSlot, OpIncSlotI64, OpDecSlotI64, OpPushTryFrame,
		OpTestAssert, OpTestSetBegin, OpTestThrowsNoThrow, OpTestThrowsCaught:
		idx := p.ReadUint32(next)
		fmt.Fprintf(b, " %s", constantOperandString(p, op, idx))
		next += 4
	case OpCallBuiltin, OpCallGlobalRef:
		idx := p.ReadUint32(next)
		next += 4
		argc := p.Code[next]
		next++
		fmt.Fprintf(b, " %s argc=%d", constantOperandString(p, op, idx), argc)
	case OpCallFunctionVariable:
		argc := p.Code[next]
		next++
		fmt.Fprintf(b, " argc=%d", argc)
	case OpCallFunctionVariableSplat:
		pairCount := p.Code[next]
		next++
		fmt.Fprintf(b, " pairs=%d", pairCount)
	case OpCallStatic, OpCallDynamic:
		idx := p.ReadUint32(next)
		next += 4
		posArgc := p.Code[next]
		next++
		kwCount := p.Code[next]
		next++
		fmt.Fprintf(b, " %s pos=%d kw=%d", constantOperandString(p, op, idx), posArgc, kwCount)
	case OpNewArrayTyped:
		kind := p.ReadUint32(next)
		next += 4
		count := p.ReadUint32(next)
		next += 4
		fmt.Fprintf(b, " kind=%d count=%s", kind, humanize.Comma(int64(count)))
	case OpNewStruct:
		typeID := p.ReadUint32(next)
		next += 4
		count := p.ReadUint32(next)
		next += 4
		fmt.Fprintf(b, " type=%d fields=%d", typeID, count)
	case OpMakeClosure:
		fn := p.ReadUint32(next)
		next += 4
		captures := p.ReadUint32(next)
		next += 4
		fmt.Fprintf(b, " func=%d captures=%d", fn, captures)
	case OpIndexLoad, OpIndexStore, OpIndexSlice:
		rank := p.Code[next]
		next++
		fmt.Fprintf(b, " rank=%d", rank)
	}
	fmt.Fprintln(b)
	return next
}

func constantOperandString(p *Program, op OpCode, idx uint32) string {
	switch op {
	case OpConstant:
		if int(idx) < len(p.Constants) {
			return formatConstant(p.Constants[idx])
		}
	case OpCallDynamic, OpFieldLoad, OpFieldStore, OpIsDefined, OpLoadGlobal, OpStoreGlobal, OpDefineGlobal:
		if int(idx) < len(p.Constants) {
			return fmt.Sprintf("%v", p.Constants[idx])
		}
	}
	return fmt.Sprintf("%d", idx)
}

func formatConstant(v interface{}) string {
	switch c := v.(type) {
	case *big.Int:
		return humanize.BigComma(c)
	case int64:
		return humanize.Comma(c)
	default:
		return fmt.Sprintf("%v", c)
	}
}
