package vm

import "corelang/internal/value"

// makeRange builds the lazy Range value backing OpMakeRangeLazy /
// OpMakeRangeSteppedLazy. Integral tracks whether every endpoint came from
// an integer-tagged Value, so At() results round-trip through Int64 instead
// of silently widening a `1..10` range's elements to Float64.
func (vm *VM) makeRange(start, stop, step value.Value) value.Value {
	integral := start.Tag.IsInteger() && stop.Tag.IsInteger() && step.Tag.IsInteger()
	return value.MakeRange(value.Range{
		Start:    start.AsFloat64(),
		Stop:     stop.AsFloat64(),
		Step:     step.AsFloat64(),
		Integral: integral,
	})
}
