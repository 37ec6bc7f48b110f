package vm

import (
	"math"
	"math/big"

	"corelang/internal/errsys"
	"corelang/internal/value"
)

// dynamicAdd implements OpDynamicAdd: the one arithmetic opcode that also
// has to cover string/array concatenation, since `+` on two Strings or two
// Arrays is valid guest code the compiler couldn't resolve to the typed
// int/float fast path (expr.go's emitBinary picks the typed op only when
// both operand lattice types are concretely Int64/Float64).
func (vm *VM) dynamicAdd(a, b value.Value) (value.Value, bool, *errsys.Error) {
	if a.Tag == value.TagString && b.Tag == value.TagString {
		vm.push(value.Str(a.Str() + b.Str()))
		return value.Nothing, false, nil
	}
	if a.Tag == value.TagArray && b.Tag == value.TagArray {
		vm.push(concatArrays(a.Array(), b.Array()))
		return value.Nothing, false, nil
	}
	if !a.Tag.IsNumeric() || !b.Tag.IsNumeric() {
		return value.Nothing, false, errsys.New(errsys.TypeError,
			"no matching method for +("+a.Tag.String()+", "+b.Tag.String()+")", errsys.Span{})
	}
	vm.push(numericArith(a, b, '+'))
	return value.Nothing, false, nil
}

// dynamicArith handles the remaining dynamic numeric ops (-, *); division
// has its own zero-check in vm.go's OpDynamicDiv case.
func (vm *VM) dynamicArith(a, b value.Value, op byte) (value.Value, bool, *errsys.Error) {
	if !a.Tag.IsNumeric() || !b.Tag.IsNumeric() {
		return value.Nothing, false, errsys.New(errsys.TypeError,
			"no matching method for arithmetic on "+a.Tag.String()+" and "+b.Tag.String(), errsys.Span{})
	}
	vm.push(numericArith(a, b, op))
	return value.Nothing, false, nil
}

func numericArith(a, b value.Value, op byte) value.Value {
	if a.Tag.IsFloat() || b.Tag.IsFloat() {
		x, y := a.AsFloat64(), b.AsFloat64()
		switch op {
		case '+':
			return value.Float64(x + y)
		case '-':
			return value.Float64(x - y)
		case '*':
			return value.Float64(x * y)
		}
	}
	x, y := a.AsInt64(), b.AsInt64()
	switch op {
	case '+':
		return value.Int64(x + y)
	case '-':
		return value.Int64(x - y)
	case '*':
		return value.Int64(x * y)
	}
	panic(errsys.Internal("numericArith: unknown op"))
}

func (vm *VM) dynamicIntDiv(a, b value.Value) (value.Value, bool, *errsys.Error) {
	y := b.AsInt64()
	if y == 0 {
		return value.Nothing, false, errsys.New(errsys.DivisionByZero, "integer division by zero", errsys.Span{})
	}
	vm.push(value.Int64(a.AsInt64() / y))
	return value.Nothing, false, nil
}

func (vm *VM) dynamicMod(a, b value.Value) (value.Value, bool, *errsys.Error) {
	if a.Tag.IsFloat() || b.Tag.IsFloat() {
		y := b.AsFloat64()
		if y == 0 {
			return value.Nothing, false, errsys.New(errsys.DivisionByZero, "modulo by zero", errsys.Span{})
		}
		vm.push(value.Float64(math.Mod(a.AsFloat64(), y)))
		return value.Nothing, false, nil
	}
	y := b.AsInt64()
	if y == 0 {
		return value.Nothing, false, errsys.New(errsys.DivisionByZero, "modulo by zero", errsys.Span{})
	}
	vm.push(value.Int64(a.AsInt64() % y))
	return value.Nothing, false, nil
}

// dynamicPow always promotes to float (opcodes.go: "power always dynamic"),
// matching the guest language's rule that exponentiation never silently
// overflows an integer result.
func (vm *VM) dynamicPow(a, b value.Value) value.Value {
	return value.Float64(math.Pow(a.AsFloat64(), b.AsFloat64()))
}

func (vm *VM) dynamicNegate(a value.Value) value.Value {
	if a.Tag.IsFloat() {
		return value.Float64(-a.AsFloat64())
	}
	if a.Tag == value.TagBigInt {
		return value.BigInt(new(big.Int).Neg(a.BigInt()))
	}
	return value.Int64(-a.AsInt64())
}

// valuesEqual implements guest `==`. Containers compare by Repr, the same
// structural-equality string used for Dict/Set key identity.
func valuesEqual(a, b value.Value) bool {
	if a.Tag.IsNumeric() && b.Tag.IsNumeric() {
		if a.Tag.IsFloat() || b.Tag.IsFloat() {
			return a.AsFloat64() == b.AsFloat64()
		}
		return a.AsInt64() == b.AsInt64()
	}
	if a.Tag != b.Tag {
		return false
	}
	return value.Repr(a) == value.Repr(b)
}

// compareValues implements guest ordering (<, <=, >, >=). Only numeric and
// string operands are ordered; anything else is a MethodError the caller
// raises via the VM's try/catch machinery upstream in builtins, not here -
// the VM itself assumes the compiler only ever emits a comparison opcode
// where inference proved the operands are ordered.
func compareValues(a, b value.Value) int {
	if a.Tag.IsNumeric() && b.Tag.IsNumeric() {
		x, y := a.AsFloat64(), b.AsFloat64()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	if a.Tag == value.TagString && b.Tag == value.TagString {
		switch {
		case a.Str() < b.Str():
			return -1
		case a.Str() > b.Str():
			return 1
		default:
			return 0
		}
	}
	panic(errsys.Internal("compareValues: operands not ordered (" + a.Tag.String() + ", " + b.Tag.String() + ")"))
}

func concatArrays(a, b *value.Array) value.Value {
	out := value.NewArray(a.Elem, []int{a.Len() + b.Len()})
	i := 0
	for j := 0; j < a.Len(); j++ {
		out.Set(i, a.Get(j))
		i++
	}
	for j := 0; j < b.Len(); j++ {
		out.Set(i, b.Get(j))
		i++
	}
	return value.MakeArray(out)
}
