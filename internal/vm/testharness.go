package vm

import "time"

func (vm *VM) beginTestSet(name string) {
	vm.testSets = append(vm.testSets, name)
}

func (vm *VM) endTestSet() {
	vm.testSets = vm.testSets[:len(vm.testSets)-1]
}

func (vm *VM) currentTestSet() string {
	if len(vm.testSets) == 0 {
		return ""
	}
	return vm.testSets[len(vm.testSets)-1]
}

func (vm *VM) recordTest(desc string, passed bool) {
	vm.results = append(vm.results, TestResult{Set: vm.currentTestSet(), Desc: desc, Passed: passed})
}

func (vm *VM) beginTimed() {
	vm.timedStack = append(vm.timedStack, time.Now())
}

// endTimed returns elapsed seconds since the matching beginTimed, the unit
// the guest `@timed` block expression evaluates to.
func (vm *VM) endTimed() float64 {
	start := vm.timedStack[len(vm.timedStack)-1]
	vm.timedStack = vm.timedStack[:len(vm.timedStack)-1]
	return time.Since(start).Seconds()
}
