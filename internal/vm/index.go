package vm

import (
	"corelang/internal/errsys"
	"corelang/internal/value"
)

// Arrays are indexed 1-based, matching the language's numeric-computing
// heritage; flatIndex
// converts a tuple of 1-based per-dimension subscripts to Array's 0-based
// flat storage offset via its column-major strides.
func flatIndex(a *value.Array, idx []value.Value) (int, *errsys.Error) {
	if len(idx) != len(a.Shape) {
		return 0, errsys.New(errsys.MethodError, "wrong number of array indices", errsys.Span{})
	}
	strides := a.Strides()
	flat := 0
	for d, v := range idx {
		i := int(v.AsInt64()) - 1
		if i < 0 || i >= a.Shape[d] {
			return 0, errsys.New(errsys.MethodError, "array index out of bounds", errsys.Span{})
		}
		flat += i * strides[d]
	}
	return flat, nil
}

func (vm *VM) execIndexLoad() (value.Value, bool, *errsys.Error) {
	rank := int(vm.readByte())
	idx := vm.popN(rank)
	obj := vm.pop()
	switch obj.Tag {
	case value.TagArray:
		flat, err := flatIndex(obj.Array(), idx)
		if err != nil {
			return value.Nothing, false, err
		}
		vm.push(obj.Array().Get(flat))
	case value.TagTuple:
		i := int(idx[0].AsInt64()) - 1
		t := obj.Tuple()
		if i < 0 || i >= len(t.Elems) {
			return value.Nothing, false, errsys.New(errsys.MethodError, "tuple index out of bounds", errsys.Span{})
		}
		vm.push(t.Elems[i])
	case value.TagNamedTuple:
		nt := obj.NamedTuple()
		if idx[0].Tag == value.TagString {
			v, ok := nt.Get(idx[0].Str())
			if !ok {
				return value.Nothing, false, errsys.New(errsys.MethodError, "no such named-tuple field", errsys.Span{})
			}
			vm.push(v)
		} else {
			i := int(idx[0].AsInt64()) - 1
			if i < 0 || i >= len(nt.Elems) {
				return value.Nothing, false, errsys.New(errsys.MethodError, "named-tuple index out of bounds", errsys.Span{})
			}
			vm.push(nt.Elems[i])
		}
	case value.TagDict:
		v, ok := obj.Dict().Get(idx[0])
		if !ok {
			return value.Nothing, false, errsys.New(errsys.DictKeyNotFound, "key not found", errsys.Span{})
		}
		vm.push(v)
	case value.TagString:
		r := []rune(obj.Str())
		i := int(idx[0].AsInt64()) - 1
		if i < 0 || i >= len(r) {
			return value.Nothing, false, errsys.New(errsys.MethodError, "string index out of bounds", errsys.Span{})
		}
		vm.push(value.Char(r[i]))
	default:
		return value.Nothing, false, errsys.New(errsys.MethodError, "not indexable: "+obj.Tag.String(), errsys.Span{})
	}
	return value.Nothing, false, nil
}

// execIndexSlice handles an index expression with at least one `:` marker
// (value.Missing). Each dimension is either the full range (Missing), an
// explicit sub-range (a Range value), or a single subscript that still
// keeps its dimension at size 1 rather than collapsing it - a deliberate
// simplification over full rank-reducing slice semantics (see DESIGN.md).
func (vm *VM) execIndexSlice() (value.Value, bool, *errsys.Error) {
	rank := int(vm.readByte())
	idx := vm.popN(rank)
	obj := vm.pop()

	switch obj.Tag {
	case value.TagString:
		r := []rune(obj.Str())
		lo, hi := 0, len(r)
		if idx[0].Tag == value.TagRange {
			rg := idx[0].Range()
			lo = int(rg.At(0)) - 1
			hi = lo + rg.Len()
		}
		if lo < 0 || hi > len(r) || lo > hi {
			return value.Nothing, false, errsys.New(errsys.MethodError, "string slice out of bounds", errsys.Span{})
		}
		vm.push(value.Str(string(r[lo:hi])))
		return value.Nothing, false, nil
	case value.TagArray:
		a := obj.Array()
		if len(idx) != len(a.Shape) {
			return value.Nothing, false, errsys.New(errsys.MethodError, "wrong number of array indices", errsys.Span{})
		}
		bounds := make([][2]int, len(a.Shape)) // [lo, hi) per dimension
		for d, v := range idx {
			switch v.Tag {
			case value.TagMissing:
				bounds[d] = [2]int{0, a.Shape[d]}
			case value.TagRange:
				rg := v.Range()
				lo := int(rg.At(0)) - 1
				bounds[d] = [2]int{lo, lo + rg.Len()}
			default:
				lo := int(v.AsInt64()) - 1
				bounds[d] = [2]int{lo, lo + 1}
			}
			if bounds[d][0] < 0 || bounds[d][1] > a.Shape[d] {
				return value.Nothing, false, errsys.New(errsys.MethodError, "array slice out of bounds", errsys.Span{})
			}
		}
		shape := make([]int, len(bounds))
		for d, b := range bounds {
			shape[d] = b[1] - b[0]
		}
		out := value.NewArray(a.Elem, shape)
		srcStrides := a.Strides()
		dstStrides := out.Strides()
		cursor := make([]int, len(shape))
		for n := 0; n < out.Len(); n++ {
			srcFlat, dstFlat := 0, 0
			for d := range cursor {
				srcFlat += (bounds[d][0] + cursor[d]) * srcStrides[d]
				dstFlat += cursor[d] * dstStrides[d]
			}
			out.Set(dstFlat, a.Get(srcFlat))
			for d := 0; d < len(cursor); d++ {
				cursor[d]++
				if cursor[d] < shape[d] {
					break
				}
				cursor[d] = 0
			}
		}
		vm.push(value.MakeArray(out))
		return value.Nothing, false, nil
	default:
		return value.Nothing, false, errsys.New(errsys.MethodError, "not sliceable: "+obj.Tag.String(), errsys.Span{})
	}
}

func (vm *VM) execIndexStore() (value.Value, bool, *errsys.Error) {
	rank := int(vm.readByte())
	idx := vm.popN(rank)
	v := vm.pop()
	obj := vm.pop()
	switch obj.Tag {
	case value.TagArray:
		flat, err := flatIndex(obj.Array(), idx)
		if err != nil {
			return value.Nothing, false, err
		}
		obj.Array().Set(flat, v)
	case value.TagDict:
		obj.Dict().Set(idx[0], v)
	default:
		return value.Nothing, false, errsys.New(errsys.MethodError, "not index-assignable: "+obj.Tag.String(), errsys.Span{})
	}
	return value.Nothing, false, nil
}
