package types

import "corelang/internal/value"

// tagToName exhaustively maps every value.Tag to its lattice Concrete name:
// every runtime variant maps to at least one lattice type, and vice versa.
// Compound tags (Array, Tuple, ...) get their Params filled in by FromTag
// from the Value's actual payload, since the Tag alone doesn't carry
// element types.
var tagToName = map[value.Tag]string{
	value.TagNothing: "Nothing",
	value.TagMissing: "Missing",
	value.TagUndef:   "Nothing", // Undef carries its declared type separately; see FromTag

	value.TagBool:    "Bool",
	value.TagInt8:    "Int8",
	value.TagInt16:   "Int16",
	value.TagInt32:   "Int32",
	value.TagInt64:   "Int64",
	value.TagInt128:  "Int128",
	value.TagUint8:   "UInt8",
	value.TagUint16:  "UInt16",
	value.TagUint32:  "UInt32",
	value.TagUint64:  "UInt64",
	value.TagUint128: "UInt128",
	value.TagFloat16: "Float16",
	value.TagFloat32: "Float32",
	value.TagFloat64: "Float64",
	value.TagBigInt:  "BigInt",
	value.TagBigFloat: "BigFloat",

	value.TagChar:   "Char",
	value.TagString: "String",

	value.TagArray:      "Array",
	value.TagMemory:     "Array",
	value.TagTuple:      "Tuple",
	value.TagNamedTuple: "NamedTuple",
	value.TagDict:       "Dict",
	value.TagSet:        "Set",
	value.TagRange:      "Range",
	value.TagGenerator:  "Generator",
	value.TagPairIter:   "PairIterator",

	value.TagStructValue: "Struct",
	value.TagStructRef:   "Struct",

	value.TagTypeDesc:         "DataType",
	value.TagModule:           "Module",
	value.TagFunctionRef:      "Function",
	value.TagClosure:          "Closure",
	value.TagComposedFunction: "ComposedFunction",

	value.TagSymbol:         "Symbol",
	value.TagExprNode:       "Expr",
	value.TagQuoteNode:      "QuoteNode",
	value.TagLineNumberNode: "LineNumberNode",
	value.TagGlobalRef:      "GlobalRef",
	value.TagRegex:          "Regex",
	value.TagRegexMatch:     "RegexMatch",

	value.TagEnum: "Enum",
}

// nameToTag is the inverse of tagToName, used by FromLatticeType. Compound
// concrete names map to their tag's zero-parameter form; callers that need
// a fully-formed Value still provide the payload themselves (conversion
// only fixes the Tag side deterministically).
var nameToTag = func() map[string]value.Tag {
	m := make(map[string]value.Tag, len(tagToName))
	for t, n := range tagToName {
		if _, exists := m[n]; !exists {
			m[n] = t
		}
	}
	// Prefer the canonical tag for names two tags share.
	m["Array"] = value.TagArray
	m["Struct"] = value.TagStructRef
	return m
}()

// FromTag converts a runtime Value's tag (with enough of its payload to
// size compound Params) to its lattice type. This is the "Value ->
// LatticeType" half of the conversion; ToTag is its inverse.
func FromTag(v value.Value) *Type {
	switch v.Tag {
	case value.TagArray:
		return ArrayOf(elemKindType(v.Array().Elem))
	case value.TagMemory:
		return ArrayOf(elemKindType(v.Memory().Elem))
	case value.TagTuple:
		elems := v.Tuple().Elems
		params := make([]*Type, len(elems))
		for i, e := range elems {
			params[i] = FromTag(e)
		}
		return TupleOf(params...)
	case value.TagNamedTuple:
		nt := v.NamedTuple()
		types := make([]*Type, len(nt.Elems))
		for i, e := range nt.Elems {
			types[i] = FromTag(e)
		}
		return NamedTupleOf(nt.Names, types)
	case value.TagDict:
		d := v.Dict()
		if d.Len() == 0 {
			return DictOf(Top, Top)
		}
		keys, vals := d.Keys(), d.Values()
		return DictOf(FromTag(keys[0]), FromTag(vals[0]))
	case value.TagSet:
		s := v.Set()
		if s.Len() == 0 {
			return SetOf(Top)
		}
		return SetOf(FromTag(s.Items()[0]))
	case value.TagRange:
		if v.Range().Integral {
			return RangeOf(Concrete("Int64"))
		}
		return RangeOf(Concrete("Float64"))
	case value.TagGenerator:
		return GeneratorOf(Top)
	case value.TagFunctionRef:
		return Function(v.FunctionRef().Name)
	case value.TagClosure:
		return Function(v.Closure().FuncName)
	case value.TagTypeDesc:
		return DataType(v.TypeDesc().Name)
	case value.TagModule:
		return ModuleType(v.Module().Name)
	case value.TagStructValue:
		return Struct(v.StructValue().TypeName, v.StructValue().TypeID)
	case value.TagEnum:
		return Enum(v.Enum().TypeName)
	case value.TagUndef:
		return Concrete(v.Obj.(string))
	default:
		name, ok := tagToName[v.Tag]
		if !ok {
			return Top
		}
		return Concrete(name)
	}
}

func elemKindType(k value.ElemKind) *Type {
	names := map[value.ElemKind]string{
		value.ElemI8: "Int8", value.ElemI16: "Int16", value.ElemI32: "Int32", value.ElemI64: "Int64", value.ElemI128: "Int128",
		value.ElemU8: "UInt8", value.ElemU16: "UInt16", value.ElemU32: "UInt32", value.ElemU64: "UInt64", value.ElemU128: "UInt128",
		value.ElemF16: "Float16", value.ElemF32: "Float32", value.ElemF64: "Float64",
		value.ElemBool: "Bool", value.ElemChar: "Char",
		value.ElemBigInt: "BigInt", value.ElemBigFloat: "BigFloat",
	}
	if n, ok := names[k]; ok {
		return Concrete(n)
	}
	return Top
}

// ToTag returns the value.Tag a Concrete/Const lattice type maps back to -
// the "LatticeType -> Value" half of the conversion. Compound types resolve
// to the tag of their outer shape; Union, Conditional and Top/Bottom have
// no single tag and return ok=false (a caller with a Top-typed slot keeps the value
// as a dynamically-tagged Value rather than forcing a concrete tag).
func ToTag(t *Type) (value.Tag, bool) {
	t = DropConst(t)
	if t.Kind != KindConcrete {
		return 0, false
	}
	tag, ok := nameToTag[t.Name]
	return tag, ok
}
