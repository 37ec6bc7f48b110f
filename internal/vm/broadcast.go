package vm

import (
	"corelang/internal/bytecode"
	"corelang/internal/errsys"
	"corelang/internal/value"
)

// broadcastState is the VM's per-HOF cursor: at most one is
// ever in flight, and it drives itself purely through the ordinary call/
// return path - stepBroadcast is invoked from doReturn exactly when the
// frame it pushed for the current element returns, so a user function
// participating in a broadcast never needs the VM to special-case its
// execution in any way.
type broadcastState struct {
	kind   bytecode.BroadcastKind
	callee value.Value

	inputs []value.Value // original operands: TagArray or a scalar
	shape  []int         // result shape after alignment
	index  int           // next flat result-index to produce

	// frameDepth is vm.frameCount at the moment the per-element call frame
	// was pushed; doReturn compares against it (post-pop) to recognize a
	// broadcast step completing rather than an ordinary call returning.
	frameDepth int

	results []value.Value // Map/Map2 accumulate one element per result index
	acc     value.Value   // Sum/All/Any/Count fold into a running scalar
	found   int           // FindFirst: 1-based index found, 0 if none yet
}

func resultLen(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// alignShapes computes the broadcast result shape: dimensions line up from
// the trailing (fastest-varying) end, and any input missing a dimension -
// or declaring it size 1 - is expanded to match the source language's
// array-alignment rules.
func alignShapes(inputs []value.Value) ([]int, *errsys.Error) {
	rank := 0
	for _, in := range inputs {
		if in.Tag == value.TagArray && len(in.Array().Shape) > rank {
			rank = len(in.Array().Shape)
		}
	}
	shape := make([]int, rank)
	for d := range shape {
		shape[d] = 1
	}
	for _, in := range inputs {
		if in.Tag != value.TagArray {
			continue
		}
		s := in.Array().Shape
		offset := rank - len(s)
		for i, d := range s {
			pos := offset + i
			if d == 1 {
				continue
			}
			if shape[pos] != 1 && shape[pos] != d {
				return nil, errsys.New(errsys.MethodError, "incompatible shapes in broadcast", errsys.Span{})
			}
			shape[pos] = d
		}
	}
	return shape, nil
}

// projectFlat maps a result multi-index (given as its per-dimension
// cursor) onto one input's own flat storage offset, treating any
// dimension the input lacks or declares as size 1 as a broadcast axis.
func projectFlat(in value.Value, cursor []int) value.Value {
	if in.Tag != value.TagArray {
		return in
	}
	a := in.Array()
	offset := len(cursor) - len(a.Shape)
	strides := a.Strides()
	flat := 0
	for i, d := range a.Shape {
		pos := offset + i
		idx := cursor[pos]
		if d == 1 {
			idx = 0
		}
		flat += idx * strides[i]
	}
	return a.Get(flat)
}

func cursorFromFlat(flat int, shape []int) []int {
	cursor := make([]int, len(shape))
	for d := len(shape) - 1; d >= 0; d-- {
		if shape[d] == 0 {
			continue
		}
		cursor[d] = flat % shape[d]
		flat /= shape[d]
	}
	return cursor
}

func (vm *VM) execBroadcastStart() (value.Value, bool, *errsys.Error) {
	kind := bytecode.BroadcastKind(vm.readUint32())
	arity := kind.Arity()
	inputs := vm.popN(arity)
	callee := vm.pop()

	shape, err := alignShapes(inputs)
	if err != nil {
		return value.Nothing, false, err
	}

	st := &broadcastState{kind: kind, callee: callee, inputs: inputs, shape: shape}
	switch kind {
	case bytecode.BroadcastSum:
		st.acc = value.Int64(0)
	case bytecode.BroadcastAll:
		st.acc = value.Bool(true)
	case bytecode.BroadcastAny:
		st.acc = value.Bool(false)
	case bytecode.BroadcastCount:
		st.acc = value.Int64(0)
	}

	vm.broadcast = st
	if resultLen(shape) == 0 {
		vm.push(finalizeBroadcast(st))
		vm.broadcast = nil
		return value.Nothing, false, nil
	}
	return vm.dispatchBroadcastElement()
}

// dispatchBroadcastElement pushes the call frame for the current element
// and records the frame depth stepBroadcast will recognize on return.
// Only FunctionRef/Closure callees are supported: a ComposedFunction
// callee would run its inner half through a nested runTo whose own
// returns could be mistaken for the element call completing, since both
// would unwind back to the same frame depth.
func (vm *VM) dispatchBroadcastElement() (value.Value, bool, *errsys.Error) {
	st := vm.broadcast
	cursor := cursorFromFlat(st.index, st.shape)
	args := make([]value.Value, 0, len(st.inputs))
	for _, in := range st.inputs {
		args = append(args, projectFlat(in, cursor))
	}
	st.frameDepth = vm.frameCount

	var fe *bytecode.FuncEntry
	var err *errsys.Error
	switch st.callee.Tag {
	case value.TagFunctionRef:
		fe, err = vm.resolveCallable(st.callee.FunctionRef().Name, args)
	case value.TagClosure:
		cl := st.callee.Closure()
		fe, err = vm.resolveCallable(cl.FuncName, args)
		if err == nil {
			full := make([]value.Value, 0, len(cl.Captures)+len(args))
			for _, p := range fe.Params[:len(cl.Captures)] {
				full = append(full, cl.Captures[p.Name])
			}
			args = append(full, args...)
		}
	default:
		return value.Nothing, false, errsys.New(errsys.TypeError, "broadcast callee must be a function reference or closure", errsys.Span{})
	}
	if err != nil {
		return value.Nothing, false, err
	}
	if perr := vm.pushCallFrame(fe, args, nil); perr != nil {
		return value.Nothing, false, perr
	}
	return value.Nothing, false, nil
}

// stepBroadcast is called from doReturn immediately after popping the
// frame a broadcast element call was running in, with that call's return
// value. It folds the value into the state machine and either dispatches
// the next element or finalizes and resumes the enclosing frame.
func (vm *VM) stepBroadcast(elem value.Value) (value.Value, bool, *errsys.Error) {
	st := vm.broadcast
	switch st.kind {
	case bytecode.BroadcastMap, bytecode.BroadcastMap2:
		st.results = append(st.results, elem)
	case bytecode.BroadcastSum:
		st.acc = numericArith(st.acc, elem, '+')
	case bytecode.BroadcastAll:
		st.acc = value.Bool(st.acc.Truthy() && elem.Truthy())
	case bytecode.BroadcastAny:
		st.acc = value.Bool(st.acc.Truthy() || elem.Truthy())
	case bytecode.BroadcastCount:
		if elem.Truthy() {
			st.acc = value.Int64(st.acc.Int64() + 1)
		}
	case bytecode.BroadcastFindFirst:
		if st.found == 0 && elem.Truthy() {
			st.found = st.index + 1
		}
	}
	st.index++

	if st.index < resultLen(st.shape) {
		return vm.dispatchBroadcastElement()
	}

	vm.push(finalizeBroadcast(st))
	vm.broadcast = nil
	if vm.frameCount <= vm.loopFloor {
		return vm.peek(0), true, nil
	}
	return value.Nothing, false, nil
}

func finalizeBroadcast(st *broadcastState) value.Value {
	switch st.kind {
	case bytecode.BroadcastMap, bytecode.BroadcastMap2:
		kind := value.ElemBoxed
		if len(st.results) > 0 {
			kind = elemKindOf(st.results[0])
		}
		out := value.NewArray(kind, st.shape)
		for i, v := range st.results {
			out.Set(i, v)
		}
		return value.MakeArray(out)
	case bytecode.BroadcastFindFirst:
		if st.found == 0 {
			return value.Nothing
		}
		return value.Int64(int64(st.found))
	default:
		return st.acc
	}
}

func elemKindOf(v value.Value) value.ElemKind {
	switch v.Tag {
	case value.TagFloat64:
		return value.ElemF64
	case value.TagBool:
		return value.ElemBool
	case value.TagChar:
		return value.ElemChar
	default:
		return value.ElemBoxed
	}
}
