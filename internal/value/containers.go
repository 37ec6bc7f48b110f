package value

import "sort"

// Array is the general n-dimensional, shared-by-reference, mutable,
// column-major container. Elements are boxed Values; dense
// numeric arrays additionally keep a flat []float64 shadow copy so the
// broadcast/HOF executor can take its fast path without
// boxing every element on every step. The two stay in sync through Set.
type Array struct {
	Elem  ElemKind
	Shape []int
	Data  []Value   // column-major, len == product(Shape)
	Fast  []float64 // non-nil iff Elem is numeric and the fast path is active
}

func NewArray(elem ElemKind, shape []int) *Array {
	n := 1
	for _, d := range shape {
		n *= d
	}
	a := &Array{Elem: elem, Shape: append([]int(nil), shape...), Data: make([]Value, n)}
	if elem.Dense() && elem != ElemBool && elem != ElemChar {
		a.Fast = make([]float64, n)
	}
	return a
}

func (a *Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

func (a *Array) Get(i int) Value {
	if a.Fast != nil {
		return Float64(a.Fast[i])
	}
	return a.Data[i]
}

func (a *Array) Set(i int, v Value) {
	if a.Fast != nil {
		a.Fast[i] = v.AsFloat64()
	}
	a.Data[i] = v
}

// Strides returns column-major strides for Shape, used by the broadcast
// executor to project a result multi-index back onto an input's indices.
func (a *Array) Strides() []int {
	s := make([]int, len(a.Shape))
	stride := 1
	for i := range a.Shape {
		s[i] = stride
		stride *= a.Shape[i]
	}
	return s
}

func MakeArray(a *Array) Value { return Value{Tag: TagArray, Obj: a} }
func (v Value) Array() *Array  { v.expect(TagArray); return v.Obj.(*Array) }

// Memory is the typed flat buffer variant: a dense byte-packed array with
// no per-element boxing at all, used for binary I/O and interop with
// host-native numeric buffers.
type Memory struct {
	Elem  ElemKind
	Shape []int
	Bytes []byte
}

func NewMemory(elem ElemKind, shape []int) *Memory {
	n := 1
	for _, d := range shape {
		n *= d
	}
	size := elem.Size()
	if size < 0 {
		size = 8 // fallback slot width for non-densely-packable kinds stored boxed elsewhere
	}
	return &Memory{Elem: elem, Shape: append([]int(nil), shape...), Bytes: make([]byte, n*size)}
}

func MakeMemory(m *Memory) Value { return Value{Tag: TagMemory, Obj: m} }
func (v Value) Memory() *Memory  { v.expect(TagMemory); return v.Obj.(*Memory) }

// Tuple is an immutable ordered collection.
type Tuple struct{ Elems []Value }

func MakeTuple(elems []Value) Value { return Value{Tag: TagTuple, Obj: &Tuple{Elems: elems}} }
func (v Value) Tuple() *Tuple       { v.expect(TagTuple); return v.Obj.(*Tuple) }

// NamedTuple is an ordered, name-keyed immutable collection.
type NamedTuple struct {
	Names []string
	Elems []Value
}

func MakeNamedTuple(nt *NamedTuple) Value { return Value{Tag: TagNamedTuple, Obj: nt} }
func (v Value) NamedTuple() *NamedTuple   { v.expect(TagNamedTuple); return v.Obj.(*NamedTuple) }

func (nt *NamedTuple) Get(name string) (Value, bool) {
	for i, n := range nt.Names {
		if n == name {
			return nt.Elems[i], true
		}
	}
	return Value{}, false
}

// Dict is the mutable mapping container. Keys are compared by their Repr
// string (simple, total, and stable across the primitive key types the
// language allows - integers, strings, symbols, enums, tuples of those).
type Dict struct {
	keys   []Value
	vals   []Value
	index  map[string]int
}

func NewDict() *Dict { return &Dict{index: make(map[string]int)} }

func MakeDict(d *Dict) Value { return Value{Tag: TagDict, Obj: d} }
func (v Value) Dict() *Dict  { v.expect(TagDict); return v.Obj.(*Dict) }

func (d *Dict) Get(key Value) (Value, bool) {
	if i, ok := d.index[Repr(key)]; ok {
		return d.vals[i], true
	}
	return Value{}, false
}

func (d *Dict) Set(key, val Value) {
	k := Repr(key)
	if i, ok := d.index[k]; ok {
		d.vals[i] = val
		return
	}
	d.index[k] = len(d.keys)
	d.keys = append(d.keys, key)
	d.vals = append(d.vals, val)
}

func (d *Dict) Delete(key Value) bool {
	k := Repr(key)
	i, ok := d.index[k]
	if !ok {
		return false
	}
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	delete(d.index, k)
	for j := i; j < len(d.keys); j++ {
		d.index[Repr(d.keys[j])] = j
	}
	return true
}

func (d *Dict) Len() int            { return len(d.keys) }
func (d *Dict) Keys() []Value       { return append([]Value(nil), d.keys...) }
func (d *Dict) Values() []Value     { return append([]Value(nil), d.vals...) }

// Set is the unique-element container, implemented as a Dict of keys to
// Nothing so it shares Repr-based equality with Dict keys.
type Set struct{ items *Dict }

func NewSet() *Set               { return &Set{items: NewDict()} }
func MakeSet(s *Set) Value       { return Value{Tag: TagSet, Obj: s} }
func (v Value) Set() *Set        { v.expect(TagSet); return v.Obj.(*Set) }
func (s *Set) Add(v Value) bool {
	if _, ok := s.items.Get(v); ok {
		return false
	}
	s.items.Set(v, Nothing)
	return true
}
func (s *Set) Has(v Value) bool { _, ok := s.items.Get(v); return ok }
func (s *Set) Delete(v Value) bool { return s.items.Delete(v) }
func (s *Set) Len() int         { return s.items.Len() }
func (s *Set) Items() []Value   { return s.items.Keys() }
func (s *Set) Sorted() []Value {
	items := s.Items()
	sort.Slice(items, func(i, j int) bool { return Repr(items[i]) < Repr(items[j]) })
	return items
}

// Range is a lazy arithmetic sequence with an optional step.
type Range struct {
	Start, Stop, Step float64
	Integral          bool // true when Start/Stop/Step all came from integer literals
}

func MakeRange(r Range) Value { return Value{Tag: TagRange, Obj: r} }
func (v Value) Range() Range  { v.expect(TagRange); return v.Obj.(Range) }

func (r Range) Len() int {
	if r.Step == 0 {
		return 0
	}
	n := int((r.Stop-r.Start)/r.Step) + 1
	if n < 0 {
		return 0
	}
	return n
}

func (r Range) At(i int) float64 { return r.Start + float64(i)*r.Step }

// Generator is a lazy sequence driven by a producer function reference; the
// VM's broadcast/HOF executor pulls elements one at a time through a call.
type Generator struct {
	Producer Value // a FunctionRef/Closure called with the previous state
	State    Value
	Done     bool
}

func MakeGenerator(g *Generator) Value { return Value{Tag: TagGenerator, Obj: g} }
func (v Value) Generator() *Generator  { v.expect(TagGenerator); return v.Obj.(*Generator) }

// PairIterator walks a Dict or indexable container yielding (key, value)
// tuples, backing the `pairs(...)` builtin.
type PairIterator struct {
	Keys   []Value
	Values []Value
	Index  int
}

func MakePairIterator(p *PairIterator) Value { return Value{Tag: TagPairIter, Obj: p} }
func (v Value) PairIterator() *PairIterator  { v.expect(TagPairIter); return v.Obj.(*PairIterator) }
func (p *PairIterator) Next() (Value, Value, bool) {
	if p.Index >= len(p.Keys) {
		return Value{}, Value{}, false
	}
	k, v := p.Keys[p.Index], p.Values[p.Index]
	p.Index++
	return k, v, true
}
