// Package value implements the runtime representation of every guest
// language value: the tagged Value struct, the element-kind
// enum used to parameterise dense array/memory storage, and the struct
// heap that backs mutable structs.
package value

// Tag is the closed enumeration of runtime value variants.
// It is the unit of runtime dispatch - every Value carries exactly one Tag,
// and every Tag maps to exactly one Go concrete representation.
type Tag uint8

const (
	TagNothing Tag = iota
	TagMissing
	TagUndef

	TagBool
	TagInt8
	TagInt16
	TagInt32
	TagInt64
	TagInt128
	TagUint8
	TagUint16
	TagUint32
	TagUint64
	TagUint128
	TagFloat16
	TagFloat32
	TagFloat64
	TagBigInt
	TagBigFloat

	TagChar
	TagString

	TagArray
	TagMemory
	TagTuple
	TagNamedTuple
	TagDict
	TagSet
	TagRange
	TagGenerator
	TagPairIter

	TagStructValue // immutable inline struct
	TagStructRef   // index into the struct heap (mutable)

	TagTypeDesc
	TagModule
	TagFunctionRef
	TagClosure
	TagComposedFunction

	TagSymbol
	TagExprNode
	TagQuoteNode
	TagLineNumberNode
	TagGlobalRef
	TagRegex
	TagRegexMatch

	TagEnum

	// TagIterCursor is the VM-internal boxed cursor OpMakeIterator produces
	// (vm/iter.go). It never reaches guest code: the compiler's
	// emitForEachCore/emitComprehension pop it with their own trailing
	// OpPop once the loop it drives fully exits, and it is never passed to
	// repr/typeof or stored in a guest container.
	TagIterCursor

	tagCount
)

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "Unknown"
}

var tagNames = [...]string{
	TagNothing:          "Nothing",
	TagMissing:          "Missing",
	TagUndef:             "Undef",
	TagBool:              "Bool",
	TagInt8:              "Int8",
	TagInt16:             "Int16",
	TagInt32:             "Int32",
	TagInt64:             "Int64",
	TagInt128:            "Int128",
	TagUint8:             "UInt8",
	TagUint16:            "UInt16",
	TagUint32:            "UInt32",
	TagUint64:            "UInt64",
	TagUint128:           "UInt128",
	TagFloat16:           "Float16",
	TagFloat32:           "Float32",
	TagFloat64:           "Float64",
	TagBigInt:            "BigInt",
	TagBigFloat:          "BigFloat",
	TagChar:              "Char",
	TagString:            "String",
	TagArray:             "Array",
	TagMemory:            "Memory",
	TagTuple:             "Tuple",
	TagNamedTuple:        "NamedTuple",
	TagDict:              "Dict",
	TagSet:               "Set",
	TagRange:             "Range",
	TagGenerator:         "Generator",
	TagPairIter:          "PairIterator",
	TagStructValue:       "Struct",
	TagStructRef:         "Struct",
	TagTypeDesc:          "DataType",
	TagModule:            "Module",
	TagFunctionRef:       "Function",
	TagClosure:           "Closure",
	TagComposedFunction:  "ComposedFunction",
	TagSymbol:            "Symbol",
	TagExprNode:          "Expr",
	TagQuoteNode:         "QuoteNode",
	TagLineNumberNode:    "LineNumberNode",
	TagGlobalRef:         "GlobalRef",
	TagRegex:             "Regex",
	TagRegexMatch:        "RegexMatch",
	TagEnum:              "Enum",
	TagIterCursor:        "IterCursor",
}

// IsNumeric reports whether values of this tag participate in arithmetic
// promotion.
func (t Tag) IsNumeric() bool {
	switch t {
	case TagInt8, TagInt16, TagInt32, TagInt64, TagInt128,
		TagUint8, TagUint16, TagUint32, TagUint64, TagUint128,
		TagFloat16, TagFloat32, TagFloat64, TagBigInt, TagBigFloat:
		return true
	default:
		return false
	}
}

func (t Tag) IsInteger() bool {
	switch t {
	case TagInt8, TagInt16, TagInt32, TagInt64, TagInt128,
		TagUint8, TagUint16, TagUint32, TagUint64, TagUint128, TagBigInt:
		return true
	default:
		return false
	}
}

func (t Tag) IsFloat() bool {
	switch t {
	case TagFloat16, TagFloat32, TagFloat64, TagBigFloat:
		return true
	default:
		return false
	}
}

func (t Tag) IsSigned() bool {
	switch t {
	case TagInt8, TagInt16, TagInt32, TagInt64, TagInt128, TagBigInt:
		return true
	default:
		return false
	}
}

// ElemKind is the closed enum of element kinds that can be stored densely
// in an Array or Memory value. It parameterises the Array
// and Memory tags.
type ElemKind uint8

const (
	ElemI8 ElemKind = iota
	ElemI16
	ElemI32
	ElemI64
	ElemI128
	ElemU8
	ElemU16
	ElemU32
	ElemU64
	ElemU128
	ElemF16
	ElemF32
	ElemF64
	ElemBool
	ElemChar
	ElemBigInt
	ElemBigFloat
	ElemComplexF32 // interleaved (re, im) float32 pairs
	ElemComplexF64 // interleaved (re, im) float64 pairs
	ElemStruct     // dense struct element storage, keyed by a registered layout
	ElemBoxed      // any other Value, boxed individually (fallback)
)

// Size returns the per-element byte width for densely-packed kinds, or -1
// when the kind cannot be packed into a flat byte buffer (ElemBigInt,
// ElemBigFloat, ElemStruct with no registered fixed layout, ElemBoxed).
func (k ElemKind) Size() int {
	switch k {
	case ElemI8, ElemU8, ElemBool:
		return 1
	case ElemI16, ElemU16, ElemF16:
		return 2
	case ElemI32, ElemU32, ElemF32, ElemChar:
		return 4
	case ElemI64, ElemU64, ElemF64, ElemComplexF32:
		return 8
	case ElemI128, ElemU128, ElemComplexF64:
		return 16
	default:
		return -1
	}
}

func (k ElemKind) Dense() bool { return k.Size() > 0 }

func (k ElemKind) String() string {
	names := [...]string{
		"Int8", "Int16", "Int32", "Int64", "Int128",
		"UInt8", "UInt16", "UInt32", "UInt64", "UInt128",
		"Float16", "Float32", "Float64", "Bool", "Char",
		"BigInt", "BigFloat", "ComplexF32", "ComplexF64", "Struct", "Any",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}
