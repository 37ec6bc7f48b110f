package vm

import (
	"corelang/internal/bytecode"
	"corelang/internal/errsys"
	"corelang/internal/types"
	"corelang/internal/value"

	"golang.org/x/exp/slices"
)

// hierarchy lazily rebuilds the same types.Hierarchy the compiler used to
// resolve static calls, from the AbstractEntry/StructEntry side tables
// compiler.go carried into the Program - the VM's runtime dynamic dispatch
// (execCallDynamic) has to score candidates against the identical lattice
// or it could pick a different method than the one the compiler would have
// picked had it been able to resolve the call statically.
func (vm *VM) hierarchy() *types.Hierarchy {
	if vm.hier == nil {
		h := types.NewHierarchy()
		for _, a := range vm.prog.Abstracts {
			h.Register(a.Name, a.Parent)
		}
		for _, s := range vm.prog.Structs {
			h.Register(s.Name, "Any")
		}
		vm.hier = h
	}
	return vm.hier
}

// pushCallFrame binds positional and keyword arguments to fe's declared
// ParamSlots and pushes a new activation record, running any omitted
// keyword argument's default-value fragment inline first (funcs.go's
// DefaultIP contract). It never touches vm.stack itself - callers pop their
// own arguments before calling this.
func (vm *VM) pushCallFrame(fe *bytecode.FuncEntry, positional []value.Value, keyword map[string]value.Value) *errsys.Error {
	if vm.frameCount >= maxFrames {
		return errsys.Internal("call stack overflow")
	}
	locals := make([]value.Value, fe.NumSlots)

	posIdx := 0
	for _, p := range fe.Params {
		if p.Keyword {
			continue
		}
		if p.Splat {
			rest := positional[posIdx:]
			arr := value.NewArray(value.ElemBoxed, []int{len(rest)})
			for i, v := range rest {
				arr.Set(i, v)
			}
			locals[p.Slot] = value.MakeArray(arr)
			posIdx = len(positional)
			continue
		}
		locals[p.Slot] = positional[posIdx]
		posIdx++
	}

	for _, p := range fe.Params {
		if !p.Keyword {
			continue
		}
		if v, ok := keyword[p.Name]; ok {
			locals[p.Slot] = v
			continue
		}
		if !p.HasDefault {
			return errsys.New(errsys.UndefKeywordError, "missing required keyword argument "+p.Name, errsys.Span{})
		}
		result, err := vm.evalDefault(fe, locals, p.Slot, p.DefaultIP)
		if err != nil {
			return err
		}
		locals[p.Slot] = result
	}

	vm.frames[vm.frameCount] = frame{ip: fe.Entry, locals: locals, funcName: fe.Name}
	vm.frameCount++
	return nil
}

// evalDefault runs a keyword parameter's default-value fragment (compiled
// inline against the same slot numbering as the real call, funcs.go) as a
// nested, synchronously-awaited evaluation: it gets its own runTo floor so
// pushCallFrame's loop over fe.Params can resume exactly where it left off
// once the fragment's own OpReturn delivers a result.
func (vm *VM) evalDefault(fe *bytecode.FuncEntry, locals []value.Value, slot, ip int) (value.Value, *errsys.Error) {
	if vm.frameCount >= maxFrames {
		return value.Nothing, errsys.Internal("call stack overflow evaluating default argument")
	}
	floor := vm.frameCount
	vm.frames[vm.frameCount] = frame{
		ip: ip, locals: locals, funcName: fe.Name,
		defaultReturn:       true,
		defaultTargetLocals: locals,
		defaultTargetSlot:   slot,
	}
	vm.frameCount++
	_, err := vm.runTo(floor)
	if err != nil {
		return value.Nothing, err
	}
	return locals[slot], nil
}

// doReturn implements OpReturn. An ordinary call's result stays on top of
// vm.stack for the now-current caller frame to consume (locals live outside
// the value stack, so popping a frame never disturbs it); a defaultReturn
// frame's result is instead written straight into the pending keyword
// slot and nothing is left on the stack.
func (vm *VM) doReturn() (value.Value, bool, *errsys.Error) {
	result := vm.pop()
	f := vm.curFrame()
	isDefault := f.defaultReturn
	targetLocals := f.defaultTargetLocals
	targetSlot := f.defaultTargetSlot
	vm.frameCount--

	if !isDefault && vm.broadcast != nil && vm.frameCount == vm.broadcast.frameDepth {
		return vm.stepBroadcast(result)
	}

	if isDefault {
		targetLocals[targetSlot] = result
	} else {
		vm.push(result)
	}

	if vm.frameCount <= vm.loopFloor {
		return result, true, nil
	}
	return value.Nothing, false, nil
}

func (vm *VM) execCallStatic() (value.Value, bool, *errsys.Error) {
	idx := vm.readUint32()
	posArgc := int(vm.readByte())
	kwCount := int(vm.readByte())
	fe := &vm.prog.Functions[idx]

	keyword := vm.popKeywordPairsByDeclared(fe, kwCount)
	positional := vm.popN(posArgc)

	if err := vm.pushCallFrame(fe, positional, keyword); err != nil {
		return value.Nothing, false, err
	}
	return value.Nothing, false, nil
}

// popKeywordPairsByDeclared pops a static call's kwCount keyword values -
// pushed one per the callee's declared keyword params in declaration order,
// OpPushMissing standing in for an omitted one (expr.go's emitDispatchedCall)
// - and returns only the ones that weren't Missing, keyed by declared name.
func (vm *VM) popKeywordPairsByDeclared(fe *bytecode.FuncEntry, kwCount int) map[string]value.Value {
	declared := make([]bytecode.ParamSlot, 0, kwCount)
	for _, p := range fe.Params {
		if p.Keyword {
			declared = append(declared, p)
		}
	}
	values := vm.popN(kwCount)
	out := make(map[string]value.Value, kwCount)
	for i, v := range values {
		if i >= len(declared) {
			break
		}
		if v.Tag == value.TagMissing {
			continue
		}
		out[declared[i].Name] = v
	}
	return out
}

func (vm *VM) popN(n int) []value.Value {
	out := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = vm.pop()
	}
	return out
}

func (vm *VM) execCallDynamic() (value.Value, bool, *errsys.Error) {
	idx := vm.readUint32()
	posArgc := int(vm.readByte())
	kwCount := int(vm.readByte())
	name := vm.nameConstant(idx)

	keyword := make(map[string]value.Value, kwCount)
	kwNames := make([]string, kwCount)
	for i := kwCount - 1; i >= 0; i-- {
		val := vm.pop()
		sym := vm.pop()
		n := string(sym.Symbol())
		kwNames[i] = n
		keyword[n] = val
	}
	positional := vm.popN(posArgc)

	argTypes := make([]*types.Type, len(positional))
	for i, v := range positional {
		argTypes[i] = types.FromTag(v)
	}

	fe, _, ok := vm.resolveDynamic(name, argTypes, kwNames)
	if ok {
		if err := vm.pushCallFrame(fe, positional, keyword); err != nil {
			return value.Nothing, false, err
		}
		return value.Nothing, false, nil
	}

	if opID, ok := fallbackBuiltin(name); ok {
		result, err := vm.invokeBuiltin(opID, positional)
		if err != nil {
			return value.Nothing, false, err
		}
		vm.push(result)
		return value.Nothing, false, nil
	}

	return value.Nothing, false, errsys.New(errsys.MethodError, "no matching method for "+name, errsys.Span{})
}

// resolveDynamic mirrors dispatch.Resolve's algorithm (dispatch/dispatch.go)
// over the compiled FuncEntry/ParamSlot tables instead of *ir.FuncDefStmt,
// since FuncDefStmt only exists at compile time.
func (vm *VM) resolveDynamic(name string, argTypes []*types.Type, kwNames []string) (*bytecode.FuncEntry, int, bool) {
	idxs := vm.prog.FuncIndex[name]
	if len(idxs) == 0 {
		return nil, 0, false
	}
	h := vm.hierarchy()

	type scored struct {
		idx   int
		score int
	}
	var surviving []scored
	for _, i := range idxs {
		fe := &vm.prog.Functions[i]
		if !dynArityMatches(fe, len(argTypes)) {
			continue
		}
		if !dynKeywordsSatisfied(fe, kwNames) {
			continue
		}
		score, ok := dynScoreCandidate(h, fe, argTypes)
		if !ok {
			continue
		}
		surviving = append(surviving, scored{idx: i, score: score})
	}
	if len(surviving) == 0 {
		return nil, 0, false
	}

	slices.SortFunc(surviving, func(a, b scored) int {
		if a.score != b.score {
			return b.score - a.score
		}
		return b.idx - a.idx
	})
	best := surviving[0]
	return &vm.prog.Functions[best.idx], best.idx, true
}

func dynPositionalParams(fe *bytecode.FuncEntry) []bytecode.ParamSlot {
	var out []bytecode.ParamSlot
	for _, p := range fe.Params {
		if !p.Keyword {
			out = append(out, p)
		}
	}
	return out
}

func dynArityMatches(fe *bytecode.FuncEntry, argc int) bool {
	pos := dynPositionalParams(fe)
	fixed, hasSplat := 0, false
	for _, p := range pos {
		if p.Splat {
			hasSplat = true
			continue
		}
		fixed++
	}
	if hasSplat {
		return argc >= fixed
	}
	return argc == fixed
}

func dynKeywordsSatisfied(fe *bytecode.FuncEntry, kwNames []string) bool {
	supplied := make(map[string]bool, len(kwNames))
	for _, n := range kwNames {
		supplied[n] = true
	}
	declared := make(map[string]bool)
	for _, p := range fe.Params {
		if !p.Keyword {
			continue
		}
		declared[p.Name] = true
		if !p.HasDefault && !supplied[p.Name] {
			return false
		}
	}
	for n := range supplied {
		if !declared[n] {
			return false
		}
	}
	return true
}

func dynScoreCandidate(h *types.Hierarchy, fe *bytecode.FuncEntry, argTypes []*types.Type) (int, bool) {
	pos := dynPositionalParams(fe)
	score := 0
	for i, at := range argTypes {
		p := dynParamAt(pos, i)
		declared := dynParamType(p)
		if !h.IsSubtype(at, declared) {
			return 0, false
		}
		score += h.Specificity(declared)
		if dynExactNameMatch(at, declared) {
			score += 1000
		}
	}
	return score, true
}

func dynParamAt(pos []bytecode.ParamSlot, i int) bytecode.ParamSlot {
	if i < len(pos) {
		return pos[i]
	}
	if len(pos) > 0 && pos[len(pos)-1].Splat {
		return pos[len(pos)-1]
	}
	return bytecode.ParamSlot{}
}

func dynParamType(p bytecode.ParamSlot) *types.Type {
	if p.TypeName == "" {
		return types.Top
	}
	return types.Concrete(p.TypeName)
}

func dynExactNameMatch(arg, declared *types.Type) bool {
	a, d := types.DropConst(arg), types.DropConst(declared)
	return a.Kind == types.KindConcrete && d.Kind == types.KindConcrete && a.Name == d.Name
}

func (vm *VM) execCallBuiltin() (value.Value, bool, *errsys.Error) {
	idx := vm.readUint32()
	argc := int(vm.readByte())
	args := vm.popN(argc)
	result, err := vm.invokeBuiltin(idx, args)
	if err != nil {
		return value.Nothing, false, err
	}
	vm.push(result)
	return value.Nothing, false, nil
}

func (vm *VM) execCallFunctionVariable() (value.Value, bool, *errsys.Error) {
	argc := int(vm.readByte())
	args := vm.popN(argc)
	callee := vm.pop()
	return vm.callValue(callee, args)
}

func (vm *VM) execCallFunctionVariableSplat() (value.Value, bool, *errsys.Error) {
	pairCount := int(vm.readByte())
	var args []value.Value
	pairs := make([][2]value.Value, pairCount)
	for i := pairCount - 1; i >= 0; i-- {
		isSplat := vm.pop()
		v := vm.pop()
		pairs[i] = [2]value.Value{v, isSplat}
	}
	for _, p := range pairs {
		if p[1].Truthy() {
			a := p[0].Array()
			for i := 0; i < a.Len(); i++ {
				args = append(args, a.Get(i))
			}
		} else {
			args = append(args, p[0])
		}
	}
	callee := vm.pop()
	return vm.callValue(callee, args)
}

// callValue dispatches a first-class callee value: a FunctionRef resolves
// by name through the same static function table a direct call would use
// (picking the sole candidate if there's exactly one, or re-running dynamic
// dispatch over the supplied argument values if there are several methods
// under that name); a Closure additionally seeds its captures into the
// callee's leading parameter slots before the ordinary positional ones
// (expr.go's LambdaLit capture-as-leading-params convention).
func (vm *VM) callValue(callee value.Value, args []value.Value) (value.Value, bool, *errsys.Error) {
	switch callee.Tag {
	case value.TagFunctionRef:
		fe, err := vm.resolveCallable(callee.FunctionRef().Name, args)
		if err != nil {
			return value.Nothing, false, err
		}
		if perr := vm.pushCallFrame(fe, args, nil); perr != nil {
			return value.Nothing, false, perr
		}
		return value.Nothing, false, nil
	case value.TagClosure:
		cl := callee.Closure()
		fe, err := vm.resolveCallable(cl.FuncName, args)
		if err != nil {
			return value.Nothing, false, err
		}
		full := make([]value.Value, 0, len(cl.Captures)+len(args))
		for _, p := range fe.Params[:len(cl.Captures)] {
			full = append(full, cl.Captures[p.Name])
		}
		full = append(full, args...)
		if perr := vm.pushCallFrame(fe, full, nil); perr != nil {
			return value.Nothing, false, perr
		}
		return value.Nothing, false, nil
	case value.TagComposedFunction:
		cf := callee.ComposedFunction()
		inner, _, ierr := vm.callValueSync(cf.Inner, args)
		if ierr != nil {
			return value.Nothing, false, ierr
		}
		return vm.callValue(cf.Outer, []value.Value{inner})
	default:
		return value.Nothing, false, errsys.New(errsys.TypeError, "value is not callable", errsys.Span{})
	}
}

// callValueSync runs callee(args) to completion and returns its result
// synchronously, used where a caller (ComposedFunction, the broadcast/HOF
// executor) needs the value immediately rather than letting it flow back
// through the ordinary bytecode call-return cycle.
func (vm *VM) callValueSync(callee value.Value, args []value.Value) (value.Value, bool, *errsys.Error) {
	floor := vm.frameCount
	_, _, err := vm.callValue(callee, args)
	if err != nil {
		return value.Nothing, false, err
	}
	result, rerr := vm.runTo(floor)
	return result, false, rerr
}

func (vm *VM) resolveCallable(name string, args []value.Value) (*bytecode.FuncEntry, *errsys.Error) {
	idxs := vm.prog.FuncIndex[name]
	if len(idxs) == 0 {
		return nil, errsys.New(errsys.MethodError, "no matching method for "+name, errsys.Span{})
	}
	if len(idxs) == 1 {
		return &vm.prog.Functions[idxs[0]], nil
	}
	argTypes := make([]*types.Type, len(args))
	for i, a := range args {
		argTypes[i] = types.FromTag(a)
	}
	fe, _, ok := vm.resolveDynamic(name, argTypes, nil)
	if !ok {
		return nil, errsys.New(errsys.MethodError, "no matching method for "+name, errsys.Span{})
	}
	return fe, nil
}

func (vm *VM) execCallGlobalRef() (value.Value, bool, *errsys.Error) {
	idx := vm.readUint32()
	argc := int(vm.readByte())
	args := vm.popN(argc)
	qualified := vm.nameConstant(idx)
	fe, err := vm.resolveCallable(qualified, args)
	if err != nil {
		return value.Nothing, false, err
	}
	if perr := vm.pushCallFrame(fe, args, nil); perr != nil {
		return value.Nothing, false, perr
	}
	return value.Nothing, false, nil
}

// execMakeClosure reads the FuncRef already on the stack (pushed by a prior
// OpMakeFuncRef - the func-index operand OpMakeClosure itself carries is an
// unused placeholder, see expr.go's LambdaLit emission) plus captureCount
// capture values above it, and recovers the capture names from the
// resolved function's own leading parameters: ir.LambdaLit.HoistAs declares
// captures as a synthetic top-level function's leading params, in Captures
// order, before its real params.
func (vm *VM) execMakeClosure() (value.Value, bool, *errsys.Error) {
	vm.readUint32() // unused func-index placeholder
	captureCount := int(vm.readUint32())

	captures := vm.popN(captureCount)
	ref := vm.pop()
	name := ref.FunctionRef().Name

	idxs := vm.prog.FuncIndex[name]
	if len(idxs) == 0 {
		return value.Nothing, false, errsys.Internal("OpMakeClosure: unknown function " + name)
	}
	fe := &vm.prog.Functions[idxs[0]]

	capMap := make(map[string]value.Value, captureCount)
	for i := 0; i < captureCount && i < len(fe.Params); i++ {
		capMap[fe.Params[i].Name] = captures[i]
	}
	vm.push(value.MakeClosure(&value.Closure{FuncName: name, Captures: capMap}))
	return value.Nothing, false, nil
}
