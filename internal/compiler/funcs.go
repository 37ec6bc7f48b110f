package compiler

import (
	"corelang/internal/bytecode"
	"corelang/internal/ir"
)

// compileFunction emits one FuncDefStmt's body and registers its
// FuncEntry. AddFunction reserves the table index up front (before the body
// is compiled) so the index assigned here matches the declaration-order
// index dispatch.NewTable would hand out for the same function (see the
// Compiler.nameConsts doc comment).
func (c *Compiler) compileFunction(f *ir.FuncDefStmt) {
	fs := newFuncScope()
	for _, p := range f.Params {
		fs.slotFor(p.Name)
	}
	for _, p := range f.Keyword {
		fs.slotFor(p.Name)
	}

	idx := c.prog.AddFunction(bytecode.FuncEntry{Name: f.Name, VarargSlot: -1})

	params := make([]bytecode.ParamSlot, 0, len(f.Params)+len(f.Keyword))
	varargSlot := -1
	for _, p := range f.Params {
		slot := fs.slotFor(p.Name)
		if p.Splat {
			varargSlot = slot
		}
		params = append(params, bytecode.ParamSlot{
			Name:     p.Name,
			Slot:     slot,
			TypeName: p.TypeName,
			Splat:    p.Splat,
			DefaultIP: -1,
		})
	}
	for _, p := range f.Keyword {
		slot := fs.slotFor(p.Name)
		ps := bytecode.ParamSlot{
			Name:     p.Name,
			Slot:     slot,
			TypeName: p.TypeName,
			Keyword:  true,
			DefaultIP: -1,
		}
		if p.Default != nil {
			// The default-value fragment is compiled against fs itself, so
			// it sees identical slot numbers to the real call frame: it
			// only ever reads earlier positional parameters, never
			// introduces new locals.
			ps.HasDefault = true
			ps.DefaultIP = c.prog.Len()
			c.emitExpr(fs, p.Default)
			c.prog.WriteOp(bytecode.OpReturn)
		}
		params = append(params, ps)
	}

	entry := c.prog.Len()
	c.emitBlock(fs, f.Body)
	c.prog.WriteOp(bytecode.OpPushNothing)
	c.prog.WriteOp(bytecode.OpReturn)

	c.prog.Functions[idx].Entry = entry
	c.prog.Functions[idx].NumSlots = fs.next
	c.prog.Functions[idx].Params = params
	c.prog.Functions[idx].VarargSlot = varargSlot
}
