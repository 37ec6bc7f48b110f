package value

import (
	"fmt"
	"math"
	"math/big"
)

// Value is the runtime representation of a guest value. It is kept compact
// by storing primitive payloads inline
// in Bits and indirecting every heavy variant (strings, containers, structs,
// modules, regex matches, ...) through the Obj field, which is a single
// interface pointer regardless of how large the underlying object is.
type Value struct {
	Tag  Tag
	Bits uint64 // inline payload for primitives, bools, chars, enum ordinals
	Obj  any    // heap payload for every indirected variant
}

// Singletons.
var (
	Nothing = Value{Tag: TagNothing}
	Missing = Value{Tag: TagMissing}
)

// Undef constructs the typed "uninitialised struct field" singleton for a
// named struct field type, carried so diagnostics can name the field's
// declared type.
func Undef(declaredType string) Value { return Value{Tag: TagUndef, Obj: declaredType} }

func Bool(b bool) Value {
	var bits uint64
	if b {
		bits = 1
	}
	return Value{Tag: TagBool, Bits: bits}
}

func Int8(v int8) Value   { return Value{Tag: TagInt8, Bits: uint64(uint8(v))} }
func Int16(v int16) Value { return Value{Tag: TagInt16, Bits: uint64(uint16(v))} }
func Int32(v int32) Value { return Value{Tag: TagInt32, Bits: uint64(uint32(v))} }
func Int64(v int64) Value { return Value{Tag: TagInt64, Bits: uint64(v)} }
func Uint8(v uint8) Value   { return Value{Tag: TagUint8, Bits: uint64(v)} }
func Uint16(v uint16) Value { return Value{Tag: TagUint16, Bits: uint64(v)} }
func Uint32(v uint32) Value { return Value{Tag: TagUint32, Bits: uint64(v)} }
func Uint64(v uint64) Value { return Value{Tag: TagUint64, Bits: v} }

// Int128/UInt128 are boxed: 128 bits does not fit Bits, so Obj carries a
// *big.Int constrained to the appropriate width by the producing builtin.
func Int128(v *big.Int) Value  { return Value{Tag: TagInt128, Obj: v} }
func Uint128(v *big.Int) Value { return Value{Tag: TagUint128, Obj: v} }

func Float16(bits uint16) Value { return Value{Tag: TagFloat16, Bits: uint64(bits)} }
func Float32(v float32) Value   { return Value{Tag: TagFloat32, Bits: uint64(math.Float32bits(v))} }
func Float64(v float64) Value   { return Value{Tag: TagFloat64, Bits: math.Float64bits(v)} }

func BigInt(v *big.Int) Value     { return Value{Tag: TagBigInt, Obj: v} }
func BigFloat(v *big.Float) Value { return Value{Tag: TagBigFloat, Obj: v} }

func Char(r rune) Value { return Value{Tag: TagChar, Bits: uint64(uint32(r))} }
func Str(s string) Value { return Value{Tag: TagString, Obj: s} }

// Accessors. Each panics if called on the wrong Tag - callers (the VM,
// builtins) always dispatch on Tag first, so this mirrors an internal
// invariant violation rather than a guest-reachable error.

func (v Value) Bool() bool     { v.expect(TagBool); return v.Bits != 0 }
func (v Value) Int8() int8     { v.expect(TagInt8); return int8(uint8(v.Bits)) }
func (v Value) Int16() int16   { v.expect(TagInt16); return int16(uint16(v.Bits)) }
func (v Value) Int32() int32   { v.expect(TagInt32); return int32(uint32(v.Bits)) }
func (v Value) Int64() int64   { v.expect(TagInt64); return int64(v.Bits) }
func (v Value) Uint8() uint8   { v.expect(TagUint8); return uint8(v.Bits) }
func (v Value) Uint16() uint16 { v.expect(TagUint16); return uint16(v.Bits) }
func (v Value) Uint32() uint32 { v.expect(TagUint32); return uint32(v.Bits) }
func (v Value) Uint64() uint64 { v.expect(TagUint64); return v.Bits }
func (v Value) Float32() float32 { v.expect(TagFloat32); return math.Float32frombits(uint32(v.Bits)) }
func (v Value) Float64() float64 { v.expect(TagFloat64); return math.Float64frombits(v.Bits) }
func (v Value) Char() rune       { v.expect(TagChar); return rune(uint32(v.Bits)) }
func (v Value) Str() string      { v.expect(TagString); return v.Obj.(string) }
func (v Value) BigInt() *big.Int { v.expect(TagBigInt); return v.Obj.(*big.Int) }
func (v Value) BigFloat() *big.Float { v.expect(TagBigFloat); return v.Obj.(*big.Float) }

func (v Value) expect(t Tag) {
	if v.Tag != t {
		panic(fmt.Sprintf("value: expected %s, got %s", t, v.Tag))
	}
}

// AsFloat64 widens any numeric Value to float64, used by arithmetic
// fallbacks and builtins that don't care about the exact source width.
func (v Value) AsFloat64() float64 {
	switch v.Tag {
	case TagBool:
		if v.Bits != 0 {
			return 1
		}
		return 0
	case TagInt8:
		return float64(v.Int8())
	case TagInt16:
		return float64(v.Int16())
	case TagInt32:
		return float64(v.Int32())
	case TagInt64:
		return float64(v.Int64())
	case TagUint8:
		return float64(v.Uint8())
	case TagUint16:
		return float64(v.Uint16())
	case TagUint32:
		return float64(v.Uint32())
	case TagUint64:
		return float64(v.Uint64())
	case TagFloat32:
		return float64(v.Float32())
	case TagFloat64:
		return v.Float64()
	case TagBigInt:
		f := new(big.Float).SetInt(v.BigInt())
		out, _ := f.Float64()
		return out
	case TagBigFloat:
		out, _ := v.BigFloat().Float64()
		return out
	default:
		panic(fmt.Sprintf("value: %s is not numeric", v.Tag))
	}
}

// AsInt64 narrows any integer-ish Value to int64, used by index arithmetic.
func (v Value) AsInt64() int64 {
	switch v.Tag {
	case TagBool:
		if v.Bits != 0 {
			return 1
		}
		return 0
	case TagInt8:
		return int64(v.Int8())
	case TagInt16:
		return int64(v.Int16())
	case TagInt32:
		return int64(v.Int32())
	case TagInt64:
		return v.Int64()
	case TagUint8:
		return int64(v.Uint8())
	case TagUint16:
		return int64(v.Uint16())
	case TagUint32:
		return int64(v.Uint32())
	case TagUint64:
		return int64(v.Uint64())
	case TagBigInt:
		return v.BigInt().Int64()
	default:
		panic(fmt.Sprintf("value: %s is not an integer", v.Tag))
	}
}

// Truthy implements the guest truthiness used by if/while conditions.
func (v Value) Truthy() bool {
	switch v.Tag {
	case TagBool:
		return v.Bits != 0
	case TagNothing, TagMissing:
		return false
	default:
		return true
	}
}

// Enum is the boxed payload of a TagEnum Value: a (type-name, ordinal) pair.
type Enum struct {
	TypeName string
	Ordinal  int64
	Name     string // the matching enumerator name, for display
}

func MakeEnum(e Enum) Value { return Value{Tag: TagEnum, Obj: e} }
func (v Value) Enum() Enum  { v.expect(TagEnum); return v.Obj.(Enum) }

// Symbol is an interned identifier used for reflection (quote/unquote,
// field names, gensym).
type Symbol string

func MakeSymbol(s Symbol) Value { return Value{Tag: TagSymbol, Obj: s} }
func (v Value) Symbol() Symbol  { v.expect(TagSymbol); return v.Obj.(Symbol) }

// GlobalRef names a (module, name) pair resolved at the global scope.
type GlobalRef struct {
	Module string
	Name   string
}

func MakeGlobalRef(g GlobalRef) Value { return Value{Tag: TagGlobalRef, Obj: g} }
func (v Value) GlobalRef() GlobalRef  { v.expect(TagGlobalRef); return v.Obj.(GlobalRef) }
