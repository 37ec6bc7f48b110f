// Package types implements the compile-time abstract type domain used by
// type inference: Bottom/Top, Concrete (including compound forms), Const,
// Union, and Conditional, plus the lattice operations (Join, Meet, Subtype,
// Widen, Narrow) inference needs to reach a fixed point over loop back-edges.
package types

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/slices"
)

// Kind discriminates the five lattice shapes without a type switch, mainly
// so Join/Meet can dispatch quickly in the inference hot path.
type Kind uint8

const (
	KindBottom Kind = iota
	KindTop
	KindConcrete
	KindConst
	KindUnion
	KindConditional
)

// maxUnionWidth bounds how many distinct concrete members a Union may carry
// before normalization collapses it to Top. Kept small - in practice
// inference only needs this for pathological dispatch-heavy code.
const maxUnionWidth = 8

// Type is the single lattice value type; every shape above is a *Type with
// the corresponding Kind and only the fields that shape uses populated.
type Type struct {
	Kind Kind

	// KindConcrete / KindConst
	Name   string  // e.g. "Int64", "Array", "Struct"
	Params []*Type // compound-type parameters, e.g. Array{T} -> Params[0] == T
	Const  any      // KindConst payload: the promoted runtime value (value.Value, kept as `any` to avoid an import cycle)

	// Struct/Enum disambiguation (Struct{name, id})
	StructID int

	// KindUnion
	Members []*Type

	// KindConditional
	Slot string
	Then *Type
	Else *Type
}

var (
	Bottom = &Type{Kind: KindBottom}
	Top    = &Type{Kind: KindTop}
)

func Concrete(name string, params ...*Type) *Type {
	return &Type{Kind: KindConcrete, Name: name, Params: params}
}

func Struct(name string, id int) *Type {
	return &Type{Kind: KindConcrete, Name: "Struct", Params: []*Type{{Kind: KindConcrete, Name: name}}, StructID: id}
}

func Enum(name string) *Type       { return Concrete("Enum", Concrete(name)) }
func Function(name string) *Type   { return Concrete("Function", Concrete(name)) }
func DataType(name string) *Type   { return Concrete("DataType", Concrete(name)) }
func ModuleType(name string) *Type { return Concrete("Module", Concrete(name)) }
func ArrayOf(elem *Type) *Type     { return Concrete("Array", elem) }
func TupleOf(elems ...*Type) *Type { return Concrete("Tuple", elems...) }
func DictOf(k, v *Type) *Type      { return Concrete("Dict", k, v) }
func SetOf(elem *Type) *Type       { return Concrete("Set", elem) }
func RangeOf(elem *Type) *Type     { return Concrete("Range", elem) }
func GeneratorOf(elem *Type) *Type { return Concrete("Generator", elem) }

// NamedTupleOf needs the field names alongside their types; names are
// encoded as single-param Concrete("field:"+name) placeholders since Type
// has no generic string-list slot - kept local to this constructor so
// callers never see the encoding.
func NamedTupleOf(names []string, elemTypes []*Type) *Type {
	params := make([]*Type, 0, len(names)+len(elemTypes))
	for _, n := range names {
		params = append(params, Concrete("field:"+n))
	}
	params = append(params, elemTypes...)
	return Concrete("NamedTuple", params...)
}

func NamedTupleFields(t *Type) ([]string, []*Type) {
	if t.Kind != KindConcrete || t.Name != "NamedTuple" {
		return nil, nil
	}
	var names []string
	var rest []*Type
	for _, p := range t.Params {
		if strings.HasPrefix(p.Name, "field:") {
			names = append(names, strings.TrimPrefix(p.Name, "field:"))
		} else {
			rest = append(rest, p)
		}
	}
	return names, rest
}

func ConstOf(runtimeValue any, concrete *Type) *Type {
	return &Type{Kind: KindConst, Name: concrete.Name, Params: concrete.Params, Const: runtimeValue, StructID: concrete.StructID}
}

// DropConst widens a Const to its underlying Concrete type.
func DropConst(t *Type) *Type {
	if t.Kind != KindConst {
		return t
	}
	return &Type{Kind: KindConcrete, Name: t.Name, Params: t.Params, StructID: t.StructID}
}

// NewUnion builds a Union from candidate concrete types, normalizing them:
// sorted, deduplicated, collapsed to Top past the width limit.
func NewUnion(members ...*Type) *Type {
	flat := make([]*Type, 0, len(members))
	for _, m := range members {
		if m.Kind == KindUnion {
			flat = append(flat, m.Members...)
		} else {
			flat = append(flat, DropConst(m))
		}
	}
	flat = dedupeSorted(flat)
	if len(flat) == 1 {
		return flat[0]
	}
	if len(flat) > maxUnionWidth {
		return Top
	}
	return &Type{Kind: KindUnion, Members: flat}
}

func dedupeSorted(ts []*Type) []*Type {
	sort.Slice(ts, func(i, j int) bool { return ts[i].String() < ts[j].String() })
	out := ts[:0:0]
	for i, t := range ts {
		if i == 0 || t.String() != ts[i-1].String() {
			out = append(out, t)
		}
	}
	return slices.Clip(out)
}

func Conditional(slot string, then, els *Type) *Type {
	return &Type{Kind: KindConditional, Slot: slot, Then: then, Else: els}
}

func (t *Type) String() string {
	switch t.Kind {
	case KindBottom:
		return "Union{}"
	case KindTop:
		return "Any"
	case KindConst:
		return fmt.Sprintf("Const(%s)", t.concreteString())
	case KindConcrete:
		return t.concreteString()
	case KindUnion:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = m.String()
		}
		return "Union{" + strings.Join(parts, ", ") + "}"
	case KindConditional:
		return fmt.Sprintf("Conditional{%s: %s | %s}", t.Slot, t.Then, t.Else)
	default:
		return "?"
	}
}

func (t *Type) concreteString() string {
	if len(t.Params) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return t.Name + "{" + strings.Join(parts, ", ") + "}"
}

func (t *Type) IsBottom() bool { return t.Kind == KindBottom }
func (t *Type) IsTop() bool    { return t.Kind == KindTop }
