package ir

// Program is the whole-module lowering output: every top-level declaration
// plus the statements that run at module load time (the main block entry).
// Multiple FuncDefStmts sharing a Name are the methods of one
// multiple-dispatch function; dispatch groups them at compile time, not
// here.
type Program struct {
	Module    string
	Functions []*FuncDefStmt
	Structs   []*StructDefStmt
	Enums     []*EnumDefStmt
	Abstracts []*AbstractTypeDefStmt
	Main      *BlockStmt
}

// MethodsNamed returns every FuncDefStmt sharing Name, preserving
// declaration order (dispatch's later-definition tie-break relies on this
// order being the textual one).
func (p *Program) MethodsNamed(name string) []*FuncDefStmt {
	var out []*FuncDefStmt
	for _, f := range p.Functions {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// StructByName looks up a struct declaration, returning nil if undeclared.
func (p *Program) StructByName(name string) *StructDefStmt {
	for _, s := range p.Structs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// EnumByName looks up an enum declaration, returning nil if undeclared.
func (p *Program) EnumByName(name string) *EnumDefStmt {
	for _, e := range p.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}
