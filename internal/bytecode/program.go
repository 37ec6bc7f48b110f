// Package bytecode implements the compiled program representation: a flat instruction stream plus the side tables the VM (C7)
// and compiler (internal/compiler) both need - a function table keyed by
// name for multi-method dispatch, a struct table, and the constant pool.
package bytecode

// ParamSlot describes one parameter's binding rule at a call: positional,
// vararg marker, or a keyword slot with a default.
type ParamSlot struct {
	Name       string
	Slot       int
	TypeName   string // "" = untyped (Top)
	Splat      bool
	Keyword    bool
	HasDefault bool
	DefaultIP  int // entry point of a small code fragment computing the default, -1 if HasDefault is false
}

// WhereBound is a function's type-parameter binding (`where T <: Number`).
type WhereBound struct {
	Name   string
	Parent string
}

// FuncEntry is one function-table record. Multiple entries
// may share a Name - that's what makes dispatch (C8) multiple.
type FuncEntry struct {
	Name       string
	Entry      int // instruction index the call jumps to
	NumSlots   int
	Params     []ParamSlot
	VarargSlot int // -1 if the function takes no *args
	Where      []WhereBound
	Specialized *FuncEntry // non-nil when the AoT pass (C12) emitted a typed variant
}

// StructEntry is one struct-table record.
type StructEntry struct {
	TypeID   int
	Name     string
	Fields   []StructField
	Mutable  bool
}

type StructField struct {
	Name     string
	TypeName string
}

// AbstractEntry records one `abstract type` declaration's place in the
// type lattice, carried into the compiled Program so the VM's runtime
// dynamic-dispatch resolver (C7) can rebuild the same types.Hierarchy the
// compiler used to resolve static calls.
type AbstractEntry struct {
	Name   string
	Parent string
}

// CatchEntry is a compiled try/catch region: the instruction range it
// covers, the IP of its first handler, and the optional finally entry that
// must run on both the throw and no-throw paths.
type CatchEntry struct {
	TryStart   int
	TryEnd     int
	Handlers   []CatchHandler
	FinallyIP  int // -1 if there is no finally block
}

type CatchHandler struct {
	Kinds   []string // empty = catches everything
	Var     string   // "" = the error value is discarded
	HandlerIP int
}

// Program is the whole compiled unit the VM runs: the flat
// instruction stream plus every side table a frame or the dispatcher needs.
type Program struct {
	*Chunk

	Functions  []FuncEntry
	FuncIndex  map[string][]int // name -> indices into Functions, in declaration order
	Structs    map[string]StructEntry
	Abstracts  []AbstractEntry
	MainEntry  int
	CatchTable []CatchEntry
}

func NewProgram() *Program {
	return &Program{
		Chunk:     NewChunk(),
		FuncIndex: make(map[string][]int),
		Structs:   make(map[string]StructEntry),
	}
}

// AddFunction registers a function-table entry and indexes it by name,
// preserving declaration order so dispatch's later-definition tie-break
// matches source order.
func (p *Program) AddFunction(f FuncEntry) int {
	idx := len(p.Functions)
	p.Functions = append(p.Functions, f)
	p.FuncIndex[f.Name] = append(p.FuncIndex[f.Name], idx)
	return idx
}

func (p *Program) FunctionsNamed(name string) []FuncEntry {
	idxs := p.FuncIndex[name]
	out := make([]FuncEntry, len(idxs))
	for i, idx := range idxs {
		out[i] = p.Functions[idx]
	}
	return out
}

func (p *Program) AddStruct(s StructEntry) {
	p.Structs[s.Name] = s
}

func (p *Program) AddCatch(c CatchEntry) int {
	idx := len(p.CatchTable)
	p.CatchTable = append(p.CatchTable, c)
	return idx
}
