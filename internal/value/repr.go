package value

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Repr renders a Value the way the guest language's `repr` builtin would,
// and doubles as the Dict/Set key-equality string.
// Round-tripping Repr through the parser must reproduce the same Value for
// every primitive and struct literal.
func Repr(v Value) string {
	switch v.Tag {
	case TagNothing:
		return "nothing"
	case TagMissing:
		return "missing"
	case TagUndef:
		return "#undef"
	case TagBool:
		return strconv.FormatBool(v.Bool())
	case TagInt8:
		return strconv.FormatInt(int64(v.Int8()), 10)
	case TagInt16:
		return strconv.FormatInt(int64(v.Int16()), 10)
	case TagInt32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case TagInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case TagUint8:
		return strconv.FormatUint(uint64(v.Uint8()), 10)
	case TagUint16:
		return strconv.FormatUint(uint64(v.Uint16()), 10)
	case TagUint32:
		return strconv.FormatUint(uint64(v.Uint32()), 10)
	case TagUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case TagInt128, TagUint128:
		return v.Obj.(*big.Int).String()
	case TagFloat32:
		return strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32)
	case TagFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case TagBigInt:
		return v.BigInt().String()
	case TagBigFloat:
		return v.BigFloat().Text('g', -1)
	case TagChar:
		return fmt.Sprintf("'%c'", v.Char())
	case TagString:
		return strconv.Quote(v.Str())
	case TagArray:
		return reprArray(v.Array())
	case TagMemory:
		m := v.Memory()
		return fmt.Sprintf("Memory{%s}(%v)", m.Elem, m.Shape)
	case TagTuple:
		parts := make([]string, len(v.Tuple().Elems))
		for i, e := range v.Tuple().Elems {
			parts[i] = Repr(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case TagNamedTuple:
		nt := v.NamedTuple()
		parts := make([]string, len(nt.Elems))
		for i, e := range nt.Elems {
			parts[i] = nt.Names[i] + " = " + Repr(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case TagDict:
		d := v.Dict()
		parts := make([]string, d.Len())
		for i, k := range d.keys {
			parts[i] = Repr(k) + " => " + Repr(d.vals[i])
		}
		return "Dict(" + strings.Join(parts, ", ") + ")"
	case TagSet:
		items := v.Set().Items()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = Repr(it)
		}
		return "Set(" + strings.Join(parts, ", ") + ")"
	case TagRange:
		r := v.Range()
		if r.Step == 1 {
			return fmt.Sprintf("%v:%v", r.Start, r.Stop)
		}
		return fmt.Sprintf("%v:%v:%v", r.Start, r.Step, r.Stop)
	case TagGenerator:
		return "<generator>"
	case TagPairIter:
		return "<pairs>"
	case TagStructValue:
		return reprStructFields(v.StructValue().TypeName, v.StructValue().Fields)
	case TagStructRef:
		return fmt.Sprintf("#<struct@%d>", v.StructRef())
	case TagTypeDesc:
		return v.TypeDesc().String()
	case TagModule:
		return "Module(" + v.Module().Name + ")"
	case TagFunctionRef:
		return "<fn " + v.FunctionRef().Name + ">"
	case TagClosure:
		return "<closure " + v.Closure().FuncName + ">"
	case TagComposedFunction:
		return "<composed>"
	case TagSymbol:
		return ":" + string(v.Symbol())
	case TagExprNode:
		return fmt.Sprintf(":(%s ...)", v.ExprNode().Head)
	case TagQuoteNode:
		return "QuoteNode(" + Repr(v.QuoteNode().Inner) + ")"
	case TagLineNumberNode:
		l := v.LineNumberNode()
		return fmt.Sprintf("#= %s:%d =#", l.File, l.Line)
	case TagGlobalRef:
		g := v.GlobalRef()
		return g.Module + "." + g.Name
	case TagRegex:
		return "r\"" + v.Regex().Source + "\""
	case TagRegexMatch:
		return "RegexMatch(\"" + v.RegexMatch().Whole + "\")"
	case TagEnum:
		e := v.Enum()
		return e.TypeName + "." + e.Name
	default:
		return "<unknown>"
	}
}

func reprArray(a *Array) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < a.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(Repr(a.Get(i)))
	}
	sb.WriteString("]")
	return sb.String()
}

func reprStructFields(name string, fields []Value) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = Repr(f)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
