// Package capi is the embedding surface (§6 "Embedding"): a host Go
// program links this package directly rather than shelling out to
// cmd/corelang, and a cgo wrapper on top of these exported Go functions is
// how a C-ABI-compatible shared library would be built from them - no cgo
// lives in this package itself, only the plain-Go API a cgo shim would
// call into.
package capi

import (
	"corelang/internal/compiler"
	"corelang/internal/cst"
	"corelang/internal/errsys"
	"corelang/internal/infer"
	"corelang/internal/lowering"
	"corelang/internal/repl"
	"corelang/internal/value"
	"corelang/internal/vm"
)

// widenLimit matches internal/repl's fixed-point depth for compile+run.
const widenLimit = 3

// Engine is one compile+run session: no accumulated definitions, no
// persistent globals across calls. Use Session for REPL-style persistence.
type Engine struct {
	out func(string)
}

// NewEngine builds a one-shot compile+run engine. out receives program
// output; nil discards it.
func NewEngine(out func(string)) *Engine {
	return &Engine{out: out}
}

// Run compiles and executes source from scratch and returns its result.
func (e *Engine) Run(source string) (value.Value, []*errsys.Error, *errsys.Error) {
	cprog, errs := cst.Parse("<embed>", source)
	if len(errs) > 0 {
		return value.Nothing, errs, nil
	}
	prog, errs := lowering.Lower("<embed>", cprog)
	if len(errs) > 0 {
		return value.Nothing, errs, nil
	}
	tp, errs := infer.Infer(prog, widenLimit)
	if len(errs) > 0 {
		return value.Nothing, errs, nil
	}
	bprog, errs := compiler.Compile(tp)
	if len(errs) > 0 {
		return value.Nothing, errs, nil
	}
	machine := vm.New(bprog, 1)
	if e.out != nil {
		machine.SetOutput(e.out)
	}
	result, rerr := machine.Run()
	return result, nil, rerr
}

// Session is the embeddable equivalent of the REPL's persistent evaluation
// state (internal/repl.Session), for hosts that want incremental eval
// without driving an actual terminal loop.
type Session struct {
	inner *repl.Session
}

// NewSession starts a persistent embedding session seeded for reproducible
// randomness.
func NewSession(seed int64, out func(string)) *Session {
	return &Session{inner: repl.NewSession(seed, out)}
}

// Eval evaluates one piece of source against the session's accumulated
// definitions and globals, matching repl.Session.Eval's persistence model.
func (s *Session) Eval(source string) repl.Result {
	return s.inner.Eval(source)
}

// Global reads back one persisted top-level binding by name - the
// "read-globals" part of the embedding surface.
func (s *Session) Global(name string) (value.Value, bool) {
	v, ok := s.inner.VM().Globals()[name]
	return v, ok
}

// Ans returns the value of the session's last successful evaluation.
func (s *Session) Ans() value.Value { return s.inner.Ans() }
