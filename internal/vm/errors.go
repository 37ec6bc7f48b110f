package vm

import (
	"corelang/internal/bytecode"
	"corelang/internal/errsys"
	"corelang/internal/value"
)

// raise searches the live tryStack (innermost first) for a handler willing
// to catch kind, unwinding the value/frame stacks to that handler's
// recorded depth and jumping there. It returns false - telling runLoop to
// stop and report vm.lastError - when the kind isn't catchable at all
// (errsys.Kind.Catchable()) or no live try frame's CatchEntry names it.
func (vm *VM) raise(kind errsys.Kind, message string) bool {
	err := errsys.New(kind, message, errsys.Span{})
	vm.lastError = err
	if !kind.Catchable() {
		return false
	}

	for len(vm.tryStack) > 0 {
		tf := vm.tryStack[len(vm.tryStack)-1]
		vm.tryStack = vm.tryStack[:len(vm.tryStack)-1]

		entry := vm.prog.CatchTable[tf.catchIdx]
		for _, h := range entry.Handlers {
			if !handlerMatches(h, kind) {
				continue
			}
			vm.stackTop = tf.stackDepth
			vm.frameCount = tf.frameDepth
			if h.Var != "" {
				vm.push(errorToValue(err))
			}
			vm.curFrame().ip = h.HandlerIP
			vm.lastError = nil
			return true
		}
		// No handler in this frame matched; a finally here would already
		// have been inlined by the compiler on every exit path
		// (compiler.go's emitTryCatch), so unwinding just keeps searching
		// the next-outer try frame.
	}
	return false
}

func handlerMatches(h bytecode.CatchHandler, kind errsys.Kind) bool {
	if len(h.Kinds) == 0 {
		return true
	}
	for _, k := range h.Kinds {
		if k == string(kind) {
			return true
		}
	}
	return false
}

// errorToValue boxes a raised error as the guest-visible value bound to a
// catch clause's variable. Errors are modelled as a NamedTuple of (kind,
// message) so guest code can pattern-match the kind without a dedicated tag.
func errorToValue(e *errsys.Error) value.Value {
	return value.MakeNamedTuple(&value.NamedTuple{
		Names: []string{"kind", "message"},
		Elems: []value.Value{value.Str(string(e.Kind)), value.Str(e.Message)},
	})
}

// errorFromValue implements OpThrow: a guest `throw expr` re-raises
// whatever expr evaluates to. A thrown NamedTuple shaped like errorToValue's
// output round-trips its kind; anything else throws as a generic MethodError
// carrying its repr.
func errorFromValue(v value.Value) *errsys.Error {
	if v.Tag == value.TagNamedTuple {
		nt := v.NamedTuple()
		kindVal, hasKind := nt.Get("kind")
		msgVal, hasMsg := nt.Get("message")
		if hasKind && hasMsg && kindVal.Tag == value.TagString && msgVal.Tag == value.TagString {
			return errsys.New(errsys.Kind(kindVal.Str()), msgVal.Str(), errsys.Span{})
		}
	}
	return errsys.New(errsys.MethodError, value.Repr(v), errsys.Span{})
}
