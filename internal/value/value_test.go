package value

import (
	"testing"
	"unsafe"
)

// TestValueSize enforces the §3.1/§9 compactness invariant: the Value
// struct itself must stay small even though it can represent heavy
// variants, because those are boxed through Obj rather than inlined.
func TestValueSize(t *testing.T) {
	if size := unsafe.Sizeof(Value{}); size > 64 {
		t.Fatalf("Value is %d bytes, want <= 64", size)
	}
}

func TestPrimitiveRoundTrip(t *testing.T) {
	cases := []Value{
		Bool(true), Bool(false),
		Int64(42), Int64(-7),
		Uint64(9),
		Float64(3.5),
		Char('a'),
		Str("hi"),
		Nothing, Missing,
	}
	for _, v := range cases {
		r := Repr(v)
		if r == "" {
			t.Errorf("empty repr for tag %s", v.Tag)
		}
	}
}

func TestDictBasics(t *testing.T) {
	d := NewDict()
	d.Set(Str("a"), Int64(1))
	d.Set(Str("b"), Int64(2))
	if got, ok := d.Get(Str("a")); !ok || got.Int64() != 1 {
		t.Fatalf("Get(a) = %v, %v", got, ok)
	}
	d.Set(Str("a"), Int64(10))
	if got, _ := d.Get(Str("a")); got.Int64() != 10 {
		t.Fatalf("overwrite failed: %v", got)
	}
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
	if !d.Delete(Str("a")) {
		t.Fatal("Delete(a) = false")
	}
	if d.Len() != 1 {
		t.Fatalf("Len() after delete = %d, want 1", d.Len())
	}
}

func TestSetUnique(t *testing.T) {
	s := NewSet()
	if !s.Add(Int64(1)) {
		t.Fatal("first Add should report new element")
	}
	if s.Add(Int64(1)) {
		t.Fatal("second Add of same element should report false")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestStructHeapMutation(t *testing.T) {
	h := NewHeap()
	ref := h.Alloc(&Instance{TypeName: "C", Fields: []Value{Int64(0)}})
	if err := h.SetField(ref, 0, Int64(7)); err != nil {
		t.Fatal(err)
	}
	inst, err := h.Get(ref)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Fields[0].Int64() != 7 {
		t.Fatalf("field = %v, want 7", inst.Fields[0])
	}
}

func TestArrayFastPath(t *testing.T) {
	a := NewArray(ElemF64, []int{3})
	a.Set(0, Float64(1))
	a.Set(1, Float64(2))
	a.Set(2, Float64(3))
	if a.Fast == nil {
		t.Fatal("expected fast f64 path for ElemF64")
	}
	if a.Get(1).Float64() != 2 {
		t.Fatalf("Get(1) = %v", a.Get(1))
	}
}
