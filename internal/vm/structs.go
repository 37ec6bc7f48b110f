package vm

import (
	"fmt"

	"corelang/internal/bytecode"
	"corelang/internal/errsys"
	"corelang/internal/value"
)

// structByID resolves OpNewStruct/OpNewExpr's numeric type id (compiler.go
// assigns these when it registers the abstract-type hierarchy) back to its
// StructEntry, built lazily and cached since Program.Structs is keyed by
// name, not id.
func (vm *VM) structByID(id int) bytecode.StructEntry {
	if vm.structsByID == nil {
		max := 0
		for _, s := range vm.prog.Structs {
			if s.TypeID > max {
				max = s.TypeID
			}
		}
		vm.structsByID = make([]bytecode.StructEntry, max+1)
		for _, s := range vm.prog.Structs {
			vm.structsByID[s.TypeID] = s
		}
	}
	return vm.structsByID[id]
}

func fieldIndex(entry bytecode.StructEntry, name string) int {
	for i, f := range entry.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// execNewStruct pops fieldCount values (the ir.StructLit's explicit field
// initializers, in declaration order - expr.go) and fills any remaining
// declared field with its typed Undef singleton (the `new T` no-initializer
// form, ir.NewExpr). Mutable structs allocate a heap Instance and push a
// StructRef handle; immutable structs push the inline copy-semantics
// StructValue directly (compiler.go's structIsMutable groundwork).
func (vm *VM) execNewStruct() (value.Value, bool, *errsys.Error) {
	typeID := int(vm.readUint32())
	fieldCount := int(vm.readUint32())
	entry := vm.structByID(typeID)

	fields := make([]value.Value, len(entry.Fields))
	given := make([]value.Value, fieldCount)
	for i := fieldCount - 1; i >= 0; i-- {
		given[i] = vm.pop()
	}
	for i, f := range entry.Fields {
		if i < len(given) {
			fields[i] = given[i]
		} else {
			fields[i] = value.Undef(f.TypeName)
		}
	}

	if entry.Mutable {
		ref := vm.heap.Alloc(&value.Instance{TypeName: entry.Name, TypeID: typeID, Fields: fields})
		vm.push(value.MakeStructRef(ref))
	} else {
		vm.push(value.MakeStructValue(&value.StructValue{TypeName: entry.Name, TypeID: typeID, Fields: fields}))
	}
	return value.Nothing, false, nil
}

func (vm *VM) execFieldLoad() (value.Value, bool, *errsys.Error) {
	idx := vm.readUint32()
	name := vm.nameConstant(idx)
	recv := vm.pop()

	switch recv.Tag {
	case value.TagStructValue:
		sv := recv.StructValue()
		entry := vm.prog.Structs[sv.TypeName]
		i := fieldIndex(entry, name)
		if i < 0 {
			return value.Nothing, false, errsys.New(errsys.MethodError, fmt.Sprintf("%s has no field %q", sv.TypeName, name), errsys.Span{})
		}
		vm.push(sv.Fields[i])
	case value.TagStructRef:
		inst, err := vm.heap.Get(recv.StructRef())
		if err != nil {
			return value.Nothing, false, errsys.Internal(err.Error())
		}
		entry := vm.prog.Structs[inst.TypeName]
		i := fieldIndex(entry, name)
		if i < 0 {
			return value.Nothing, false, errsys.New(errsys.MethodError, fmt.Sprintf("%s has no field %q", inst.TypeName, name), errsys.Span{})
		}
		vm.push(inst.Fields[i])
	default:
		return value.Nothing, false, errsys.New(errsys.TypeError, "field access on non-struct value", errsys.Span{})
	}
	return value.Nothing, false, nil
}

// execFieldStore only ever targets a StructRef - compiler.go's
// structIsMutable groundwork forbids field assignment through an immutable
// StructValue at the typecheck stage, so reaching one here is internal.
func (vm *VM) execFieldStore() (value.Value, bool, *errsys.Error) {
	idx := vm.readUint32()
	name := vm.nameConstant(idx)
	val := vm.pop()
	recv := vm.pop()

	if recv.Tag != value.TagStructRef {
		return value.Nothing, false, errsys.Internal("OpFieldStore target is not a mutable struct")
	}
	ref := recv.StructRef()
	inst, err := vm.heap.Get(ref)
	if err != nil {
		return value.Nothing, false, errsys.Internal(err.Error())
	}
	entry := vm.prog.Structs[inst.TypeName]
	i := fieldIndex(entry, name)
	if i < 0 {
		return value.Nothing, false, errsys.New(errsys.MethodError, fmt.Sprintf("%s has no field %q", inst.TypeName, name), errsys.Span{})
	}
	if serr := vm.heap.SetField(ref, i, val); serr != nil {
		return value.Nothing, false, errsys.Internal(serr.Error())
	}
	return value.Nothing, false, nil
}
