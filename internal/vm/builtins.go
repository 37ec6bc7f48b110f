package vm

import (
	"time"

	"corelang/internal/builtins"
	"corelang/internal/bytecode"
	"corelang/internal/errsys"
	"corelang/internal/ir"
	"corelang/internal/types"
	"corelang/internal/value"
)

// invokeBuiltin dispatches one OpCallBuiltin/dynamic-fallback call. Pure
// computations route to internal/builtins; anything touching VM-owned
// state (the print sink, the RNG, real wall-clock sleep, cancellation,
// or the program's struct/function tables for reflection) is handled
// here directly. The macro-evaluation and file-I/O BuiltinOp kinds are
// out of scope for this pass - see DESIGN.md.
func (vm *VM) invokeBuiltin(opID uint32, args []value.Value) (value.Value, *errsys.Error) {
	op := ir.BuiltinOp(opID)
	switch op {
	case ir.BuiltinPrintln:
		for _, a := range args {
			vm.out(displayString(a))
		}
		vm.out("\n")
		return value.Nothing, nil
	case ir.BuiltinPrint:
		for _, a := range args {
			vm.out(displayString(a))
		}
		return value.Nothing, nil
	case ir.BuiltinString:
		return builtins.ToString(args[0]), nil
	case ir.BuiltinRepr:
		return builtins.Repr(args[0]), nil
	case ir.BuiltinTypeof:
		return builtins.Typeof(args[0]), nil
	case ir.BuiltinIsa:
		return value.Bool(isaBuiltin(vm, args[0], args[1])), nil
	case ir.BuiltinEltype:
		return builtins.Eltype(args[0]), nil
	case ir.BuiltinFieldnames:
		return vm.fieldnames(args[0])
	case ir.BuiltinFieldtypes:
		return vm.fieldtypes(args[0])
	case ir.BuiltinSupertype:
		return vm.supertype(args[0]), nil
	case ir.BuiltinMethods:
		return vm.methods(args[0].Str()), nil
	case ir.BuiltinHasmethod:
		return value.Bool(vm.hasmethod(args[0].Str(), args[1])), nil
	case ir.BuiltinWhich:
		return vm.which(args[0].Str(), args[1])
	case ir.BuiltinFrexp:
		return builtins.Frexp(args[0]), nil
	case ir.BuiltinExponent:
		return builtins.Exponent(args[0]), nil
	case ir.BuiltinNextfloat:
		return builtins.Nextfloat(args[0]), nil
	case ir.BuiltinLinspace:
		return builtins.Linspace(args[0], args[1], args[2])
	case ir.BuiltinGetkey:
		return builtins.Getkey(args[0], args[1], args[2])
	case ir.BuiltinSetindexBang:
		return builtins.SetindexBang(args[0], args[1], args[2])
	case ir.BuiltinDeleteBang:
		return builtins.DeleteBang(args[0], args[1])
	case ir.BuiltinMerge:
		return builtins.Merge(args[0], args[1])
	case ir.BuiltinMergeBang:
		return builtins.MergeBang(args[0], args[1])
	case ir.BuiltinEmptyBang:
		return builtins.EmptyBang(args[0])
	case ir.BuiltinPopBang:
		return builtins.PopBang(args[0], args[1])
	case ir.BuiltinSqrt:
		return builtins.Sqrt(args[0])
	case ir.BuiltinAbs:
		return builtins.Abs(args[0]), nil
	case ir.BuiltinSin:
		return builtins.Sin(args[0]), nil
	case ir.BuiltinCos:
		return builtins.Cos(args[0]), nil
	case ir.BuiltinTan:
		return builtins.Tan(args[0]), nil
	case ir.BuiltinExp:
		return builtins.Exp(args[0]), nil
	case ir.BuiltinLog:
		return builtins.Log(args[0])
	case ir.BuiltinFloor:
		return builtins.Floor(args[0]), nil
	case ir.BuiltinCeil:
		return builtins.Ceil(args[0]), nil
	case ir.BuiltinRound:
		return builtins.Round(args[0]), nil
	case ir.BuiltinTrunc:
		return builtins.Trunc(args[0]), nil
	case ir.BuiltinFma, ir.BuiltinMuladd:
		return builtins.Fma(args[0], args[1], args[2]), nil
	case ir.BuiltinGcd:
		return builtins.Gcd(args[0], args[1]), nil
	case ir.BuiltinLcm:
		return builtins.Lcm(args[0], args[1])
	case ir.BuiltinLength:
		return builtins.Length(args[0])
	case ir.BuiltinKeys:
		return builtins.Keys(args[0])
	case ir.BuiltinValues:
		return builtins.Values(args[0])
	case ir.BuiltinPairs:
		return builtins.Pairs(args[0])
	case ir.BuiltinHaskey:
		return builtins.Haskey(args[0], args[1])
	case ir.BuiltinGet:
		dflt := value.Nothing
		if len(args) > 2 {
			dflt = args[2]
		}
		return builtins.Get(args[0], args[1], dflt)
	case ir.BuiltinRand:
		if len(args) == 0 {
			return value.Float64(vm.rng.Float64()), nil
		}
		n := args[0].AsInt64()
		return value.Int64(vm.rng.Int63n(n)), nil
	case ir.BuiltinRandn:
		return value.Float64(vm.rng.NormFloat64()), nil
	case ir.BuiltinSeedBang:
		vm.rng.Seed(args[0].AsInt64())
		return value.Nothing, nil
	case ir.BuiltinSymbolCtor:
		return value.MakeSymbol(value.Symbol(args[0].Str())), nil
	case ir.BuiltinGensym:
		vm.gensymCounter++
		return value.MakeSymbol(value.Symbol(gensymName(vm.gensymCounter))), nil
	case ir.BuiltinSleep:
		time.Sleep(time.Duration(args[0].AsFloat64() * float64(time.Second)))
		return value.Nothing, nil
	case ir.BuiltinLU:
		return builtins.LU(args[0])
	case ir.BuiltinDet:
		return builtins.Det(args[0])
	case ir.BuiltinInv:
		return builtins.Inv(args[0])
	case ir.BuiltinSolve:
		return builtins.Solve(args[0], args[1])
	case ir.BuiltinQR:
		return builtins.QR(args[0])
	case ir.BuiltinEigen, ir.BuiltinEigvals:
		return builtins.Eigvals(args[0])
	case ir.BuiltinCholesky:
		return builtins.Cholesky(args[0])
	case ir.BuiltinRank:
		return builtins.Rank(args[0])
	case ir.BuiltinCond:
		return builtins.Cond(args[0])
	case ir.BuiltinRegexCompile:
		return builtins.RegexCompile(args[0])
	case ir.BuiltinRegexMatch:
		return builtins.RegexMatch(args[0], args[1])
	case ir.BuiltinRegexEachmatch:
		return builtins.RegexEachmatch(args[0], args[1])
	case ir.BuiltinCancelCheck:
		if vm.cancelled {
			return value.Nothing, errsys.New(errsys.Cancelled, "execution cancelled", errsys.Span{})
		}
		return value.Nothing, nil
	default:
		return value.Nothing, errsys.New(errsys.UnsupportedFeature, "builtin not implemented: "+op.String(), errsys.Span{})
	}
}

func isaBuiltin(vm *VM, v, typeDesc value.Value) bool {
	name := typeDesc.TypeDesc().Name
	return vm.hierarchy().IsSubtypeName(v.Tag.String(), name) || v.Tag.String() == name
}

// structTypeName recovers the declared struct name behind a receiver that
// may be an instance (StructValue/StructRef) or a bare type descriptor, so
// fieldnames/fieldtypes accept either form.
func structTypeName(v value.Value) string {
	switch v.Tag {
	case value.TagStructValue:
		return v.StructValue().TypeName
	case value.TagStructRef:
		return "" // resolved by the VM, which has heap access
	case value.TagTypeDesc:
		return v.TypeDesc().Name
	default:
		return ""
	}
}

func (vm *VM) fieldnames(v value.Value) (value.Value, *errsys.Error) {
	name := structTypeName(v)
	if v.Tag == value.TagStructRef {
		inst, err := vm.heap.Get(v.StructRef())
		if err != nil {
			return value.Nothing, errsys.Internal(err.Error())
		}
		name = inst.TypeName
	}
	entry, ok := vm.prog.Structs[name]
	if !ok {
		return value.Nothing, errsys.New(errsys.MethodError, "fieldnames: no such struct "+name, errsys.Span{})
	}
	a := value.NewArray(value.ElemBoxed, []int{len(entry.Fields)})
	for i, f := range entry.Fields {
		a.Set(i, value.MakeSymbol(value.Symbol(f.Name)))
	}
	return value.MakeArray(a), nil
}

func (vm *VM) fieldtypes(v value.Value) (value.Value, *errsys.Error) {
	name := structTypeName(v)
	if v.Tag == value.TagStructRef {
		inst, err := vm.heap.Get(v.StructRef())
		if err != nil {
			return value.Nothing, errsys.Internal(err.Error())
		}
		name = inst.TypeName
	}
	entry, ok := vm.prog.Structs[name]
	if !ok {
		return value.Nothing, errsys.New(errsys.MethodError, "fieldtypes: no such struct "+name, errsys.Span{})
	}
	a := value.NewArray(value.ElemBoxed, []int{len(entry.Fields)})
	for i, f := range entry.Fields {
		tn := f.TypeName
		if tn == "" {
			tn = "Any"
		}
		a.Set(i, value.MakeTypeDesc(value.TypeDesc{Name: tn}))
	}
	return value.MakeArray(a), nil
}

func (vm *VM) supertype(v value.Value) value.Value {
	name := v.TypeDesc().Name
	anc := vm.hierarchy().Ancestors(name)
	if len(anc) == 0 {
		return value.MakeTypeDesc(value.TypeDesc{Name: "Any"})
	}
	return value.MakeTypeDesc(value.TypeDesc{Name: anc[0]})
}

// methods lists every FuncEntry under name as a rendered parameter-type
// signature, in declaration order - the same order dispatch's tie-break
// rule falls back to.
func (vm *VM) methods(name string) value.Value {
	idxs := vm.prog.FuncIndex[name]
	a := value.NewArray(value.ElemBoxed, []int{len(idxs)})
	for i, fi := range idxs {
		a.Set(i, value.Str(signatureString(name, vm.prog.Functions[fi])))
	}
	return value.MakeArray(a)
}

func signatureString(name string, fe bytecode.FuncEntry) string {
	s := name + "("
	for i, p := range fe.Params {
		if i > 0 {
			s += ", "
		}
		tn := p.TypeName
		if tn == "" {
			tn = "Any"
		}
		s += tn
	}
	return s + ")"
}

func argTypesOf(v value.Value) []*types.Type {
	var elems []value.Value
	switch v.Tag {
	case value.TagTuple:
		elems = v.Tuple().Elems
	case value.TagArray:
		a := v.Array()
		for i := 0; i < a.Len(); i++ {
			elems = append(elems, a.Get(i))
		}
	default:
		elems = []value.Value{v}
	}
	out := make([]*types.Type, len(elems))
	for i, e := range elems {
		if e.Tag == value.TagTypeDesc {
			out[i] = types.Concrete(e.TypeDesc().Name)
		} else {
			out[i] = types.FromTag(e)
		}
	}
	return out
}

func (vm *VM) hasmethod(name string, argsTuple value.Value) bool {
	_, _, ok := vm.resolveDynamic(name, argTypesOf(argsTuple), nil)
	return ok
}

func (vm *VM) which(name string, argsTuple value.Value) (value.Value, *errsys.Error) {
	fe, _, ok := vm.resolveDynamic(name, argTypesOf(argsTuple), nil)
	if !ok {
		return value.Nothing, errsys.New(errsys.MethodError, "no matching method for "+name, errsys.Span{})
	}
	return value.Str(signatureString(name, *fe)), nil
}

func gensymName(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return "##g" + string(letters[n%len(letters)]) + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// fallbackBuiltin mirrors dispatch.FallbackBuiltin: once dynamic dispatch
// finds no user method at all under a name, the intrinsic math names are
// still callable as first-class functions.
func fallbackBuiltin(name string) (uint32, bool) {
	switch name {
	case "sqrt":
		return uint32(ir.BuiltinSqrt), true
	case "abs":
		return uint32(ir.BuiltinAbs), true
	case "sin":
		return uint32(ir.BuiltinSin), true
	case "cos":
		return uint32(ir.BuiltinCos), true
	case "tan":
		return uint32(ir.BuiltinTan), true
	case "exp":
		return uint32(ir.BuiltinExp), true
	case "log":
		return uint32(ir.BuiltinLog), true
	case "floor":
		return uint32(ir.BuiltinFloor), true
	case "ceil":
		return uint32(ir.BuiltinCeil), true
	case "round":
		return uint32(ir.BuiltinRound), true
	case "trunc":
		return uint32(ir.BuiltinTrunc), true
	case "gcd":
		return uint32(ir.BuiltinGcd), true
	case "lcm":
		return uint32(ir.BuiltinLcm), true
	default:
		return 0, false
	}
}
