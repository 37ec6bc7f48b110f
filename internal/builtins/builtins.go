// Package builtins implements the host side of the intercepted builtin
// calls the compiler routes directly to native code - everything that
// doesn't need to touch the VM's mutable state (the struct heap, the RNG,
// the print sink, the cancellation flag), which stay as thin adapters in
// internal/vm instead.
package builtins

import (
	"math"

	"modernc.org/mathutil"

	"corelang/internal/errsys"
	"corelang/internal/value"
)

func Sqrt(x value.Value) (value.Value, *errsys.Error) {
	f := x.AsFloat64()
	if f < 0 {
		return value.Nothing, errsys.New(errsys.DomainError, "sqrt of a negative number", errsys.Span{})
	}
	return value.Float64(math.Sqrt(f)), nil
}

func Abs(x value.Value) value.Value {
	if x.Tag.IsFloat() {
		return value.Float64(math.Abs(x.AsFloat64()))
	}
	n := x.AsInt64()
	if n < 0 {
		n = -n
	}
	return value.Int64(n)
}

func Sin(x value.Value) value.Value   { return value.Float64(math.Sin(x.AsFloat64())) }
func Cos(x value.Value) value.Value   { return value.Float64(math.Cos(x.AsFloat64())) }
func Tan(x value.Value) value.Value   { return value.Float64(math.Tan(x.AsFloat64())) }
func Exp(x value.Value) value.Value   { return value.Float64(math.Exp(x.AsFloat64())) }

func Log(x value.Value) (value.Value, *errsys.Error) {
	f := x.AsFloat64()
	if f <= 0 {
		return value.Nothing, errsys.New(errsys.DomainError, "log of a non-positive number", errsys.Span{})
	}
	return value.Float64(math.Log(f)), nil
}

func Floor(x value.Value) value.Value { return value.Float64(math.Floor(x.AsFloat64())) }
func Ceil(x value.Value) value.Value  { return value.Float64(math.Ceil(x.AsFloat64())) }
func Round(x value.Value) value.Value { return value.Float64(math.Round(x.AsFloat64())) }
func Trunc(x value.Value) value.Value { return value.Float64(math.Trunc(x.AsFloat64())) }

func Fma(a, b, c value.Value) value.Value {
	return value.Float64(math.FMA(a.AsFloat64(), b.AsFloat64(), c.AsFloat64()))
}

func Gcd(a, b value.Value) value.Value {
	return value.Int64(mathutil.GCD(a.AsInt64(), b.AsInt64()))
}

func Lcm(a, b value.Value) (value.Value, *errsys.Error) {
	x, y := a.AsInt64(), b.AsInt64()
	g := mathutil.GCD(x, y)
	if g == 0 {
		return value.Int64(0), nil
	}
	return value.Int64((x / g) * y), nil
}

func Length(v value.Value) (value.Value, *errsys.Error) {
	switch v.Tag {
	case value.TagArray:
		return value.Int64(int64(v.Array().Len())), nil
	case value.TagTuple:
		return value.Int64(int64(len(v.Tuple().Elems))), nil
	case value.TagNamedTuple:
		return value.Int64(int64(len(v.NamedTuple().Elems))), nil
	case value.TagDict:
		return value.Int64(int64(v.Dict().Len())), nil
	case value.TagSet:
		return value.Int64(int64(v.Set().Len())), nil
	case value.TagString:
		return value.Int64(int64(len([]rune(v.Str())))), nil
	case value.TagRange:
		return value.Int64(int64(v.Range().Len())), nil
	default:
		return value.Nothing, errsys.New(errsys.MethodError, "length: unsupported type "+v.Tag.String(), errsys.Span{})
	}
}

func Keys(v value.Value) (value.Value, *errsys.Error) {
	if v.Tag != value.TagDict {
		return value.Nothing, errsys.New(errsys.MethodError, "keys: not a Dict", errsys.Span{})
	}
	ks := v.Dict().Keys()
	a := value.NewArray(value.ElemBoxed, []int{len(ks)})
	for i, k := range ks {
		a.Set(i, k)
	}
	return value.MakeArray(a), nil
}

func Values(v value.Value) (value.Value, *errsys.Error) {
	if v.Tag != value.TagDict {
		return value.Nothing, errsys.New(errsys.MethodError, "values: not a Dict", errsys.Span{})
	}
	vs := v.Dict().Values()
	a := value.NewArray(value.ElemBoxed, []int{len(vs)})
	for i, x := range vs {
		a.Set(i, x)
	}
	return value.MakeArray(a), nil
}

func Pairs(v value.Value) (value.Value, *errsys.Error) {
	if v.Tag != value.TagDict {
		return value.Nothing, errsys.New(errsys.MethodError, "pairs: not a Dict", errsys.Span{})
	}
	d := v.Dict()
	return value.MakePairIterator(&value.PairIterator{Keys: d.Keys(), Values: d.Values()}), nil
}

func Haskey(d, k value.Value) (value.Value, *errsys.Error) {
	if d.Tag != value.TagDict {
		return value.Nothing, errsys.New(errsys.MethodError, "haskey: not a Dict", errsys.Span{})
	}
	_, ok := d.Dict().Get(k)
	return value.Bool(ok), nil
}

func Get(d, k, dflt value.Value) (value.Value, *errsys.Error) {
	if d.Tag != value.TagDict {
		return value.Nothing, errsys.New(errsys.MethodError, "get: not a Dict", errsys.Span{})
	}
	if v, ok := d.Dict().Get(k); ok {
		return v, nil
	}
	return dflt, nil
}

func Getkey(d, k, dflt value.Value) (value.Value, *errsys.Error) {
	if d.Tag != value.TagDict {
		return value.Nothing, errsys.New(errsys.MethodError, "getkey: not a Dict", errsys.Span{})
	}
	if _, ok := d.Dict().Get(k); ok {
		return k, nil
	}
	return dflt, nil
}

func SetindexBang(d, v, k value.Value) (value.Value, *errsys.Error) {
	switch d.Tag {
	case value.TagDict:
		d.Dict().Set(k, v)
		return d, nil
	case value.TagArray:
		a := d.Array()
		i := int(k.AsInt64()) - 1
		if i < 0 || i >= a.Len() {
			return value.Nothing, errsys.New(errsys.MethodError, "setindex!: array index out of bounds", errsys.Span{})
		}
		a.Set(i, v)
		return d, nil
	default:
		return value.Nothing, errsys.New(errsys.MethodError, "setindex!: unsupported type "+d.Tag.String(), errsys.Span{})
	}
}

func DeleteBang(d, k value.Value) (value.Value, *errsys.Error) {
	switch d.Tag {
	case value.TagDict:
		d.Dict().Delete(k)
	case value.TagSet:
		d.Set().Delete(k)
	default:
		return value.Nothing, errsys.New(errsys.MethodError, "delete!: unsupported type "+d.Tag.String(), errsys.Span{})
	}
	return d, nil
}

func Merge(a, b value.Value) (value.Value, *errsys.Error) {
	if a.Tag != value.TagDict || b.Tag != value.TagDict {
		return value.Nothing, errsys.New(errsys.MethodError, "merge: both arguments must be Dict", errsys.Span{})
	}
	out := value.NewDict()
	ad := a.Dict()
	for i, k := range ad.Keys() {
		out.Set(k, ad.Values()[i])
	}
	bd := b.Dict()
	for i, k := range bd.Keys() {
		out.Set(k, bd.Values()[i])
	}
	return value.MakeDict(out), nil
}

func MergeBang(a, b value.Value) (value.Value, *errsys.Error) {
	if a.Tag != value.TagDict || b.Tag != value.TagDict {
		return value.Nothing, errsys.New(errsys.MethodError, "merge!: both arguments must be Dict", errsys.Span{})
	}
	bd := b.Dict()
	for i, k := range bd.Keys() {
		a.Dict().Set(k, bd.Values()[i])
	}
	return a, nil
}

func EmptyBang(d value.Value) (value.Value, *errsys.Error) {
	switch d.Tag {
	case value.TagDict:
		dd := d.Dict()
		for _, k := range dd.Keys() {
			dd.Delete(k)
		}
	case value.TagSet:
		s := d.Set()
		for _, v := range s.Items() {
			s.Delete(v)
		}
	default:
		return value.Nothing, errsys.New(errsys.MethodError, "empty!: unsupported type "+d.Tag.String(), errsys.Span{})
	}
	return d, nil
}

func PopBang(d, k value.Value) (value.Value, *errsys.Error) {
	if d.Tag != value.TagDict {
		return value.Nothing, errsys.New(errsys.MethodError, "pop!: not a Dict", errsys.Span{})
	}
	dd := d.Dict()
	v, ok := dd.Get(k)
	if !ok {
		return value.Nothing, errsys.New(errsys.DictKeyNotFound, "pop!: key not found", errsys.Span{})
	}
	dd.Delete(k)
	return v, nil
}

func Eltype(v value.Value) value.Value {
	if v.Tag == value.TagArray {
		return value.MakeTypeDesc(value.TypeDesc{Name: v.Array().Elem.String()})
	}
	return value.MakeTypeDesc(value.TypeDesc{Name: "Any"})
}

func Frexp(x value.Value) value.Value {
	frac, exp := math.Frexp(x.AsFloat64())
	return value.MakeTuple([]value.Value{value.Float64(frac), value.Int64(int64(exp))})
}

func Exponent(x value.Value) value.Value {
	_, exp := math.Frexp(x.AsFloat64())
	return value.Int64(int64(exp - 1))
}

func Nextfloat(x value.Value) value.Value {
	return value.Float64(math.Nextafter(x.AsFloat64(), math.Inf(1)))
}

func Linspace(lo, hi, n value.Value) (value.Value, *errsys.Error) {
	count := int(n.AsInt64())
	if count < 2 {
		return value.Nothing, errsys.New(errsys.DomainError, "linspace: count must be at least 2", errsys.Span{})
	}
	a := value.NewArray(value.ElemF64, []int{count})
	start, stop := lo.AsFloat64(), hi.AsFloat64()
	step := (stop - start) / float64(count-1)
	for i := 0; i < count; i++ {
		a.Set(i, value.Float64(start+float64(i)*step))
	}
	return value.MakeArray(a), nil
}

func Typeof(v value.Value) value.Value {
	return value.MakeTypeDesc(value.TypeDesc{Name: v.Tag.String()})
}

func Repr(v value.Value) value.Value { return value.Str(value.Repr(v)) }

func ToString(v value.Value) value.Value {
	if v.Tag == value.TagString {
		return v
	}
	return value.Str(value.Repr(v))
}
