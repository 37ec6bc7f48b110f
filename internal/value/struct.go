package value

import "fmt"

// StructValue is the immutable value-struct variant: its fields are inlined
// directly into the Value (via the Obj box, since struct payloads are
// heavier than one Bits word) and assigning it copies.
type StructValue struct {
	TypeName string
	TypeID   int
	Fields   []Value
}

func MakeStructValue(s *StructValue) Value { return Value{Tag: TagStructValue, Obj: s} }
func (v Value) StructValue() *StructValue  { v.expect(TagStructValue); return v.Obj.(*StructValue) }

// StructRef is a handle into the VM-owned struct Heap: the mutable-struct
// variant. Storing a mutable struct into a slot boxes it into this handle;
// field-store mutates the heap entry in place so every holder of the same
// StructRef observes the write - this is how the engine gets reference
// semantics without ever taking a raw Go pointer into another Value.
type StructRef int

func MakeStructRef(r StructRef) Value { return Value{Tag: TagStructRef, Bits: uint64(r)} }
func (v Value) StructRef() StructRef  { v.expect(TagStructRef); return StructRef(v.Bits) }

// Instance is what a StructRef points at inside the Heap.
type Instance struct {
	TypeName string
	TypeID   int
	Fields   []Value
}

// Heap is the process-local arena of mutable struct instances, indexed by
// StructRef. It is owned by one VM and frozen between runs except for the
// REPL, which carries the "last struct heap" forward to resolve StructRefs
// when displaying persisted globals.
type Heap struct {
	instances []*Instance
}

func NewHeap() *Heap { return &Heap{} }

func (h *Heap) Alloc(inst *Instance) StructRef {
	h.instances = append(h.instances, inst)
	return StructRef(len(h.instances) - 1)
}

func (h *Heap) Get(ref StructRef) (*Instance, error) {
	i := int(ref)
	if i < 0 || i >= len(h.instances) {
		return nil, fmt.Errorf("value: struct heap index %d out of range (len %d)", i, len(h.instances))
	}
	return h.instances[i], nil
}

func (h *Heap) Len() int { return len(h.instances) }

// SetField mutates a field in place, which is the only way a mutable
// struct's state ever changes - no Value anywhere else holds a copy of
// Fields, only the StructRef index.
func (h *Heap) SetField(ref StructRef, index int, val Value) error {
	inst, err := h.Get(ref)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(inst.Fields) {
		return fmt.Errorf("value: field index %d out of range for struct %s", index, inst.TypeName)
	}
	inst.Fields[index] = val
	return nil
}
