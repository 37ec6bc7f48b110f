package vm

import (
	"corelang/internal/errsys"
	"corelang/internal/value"
)

// iterCursor is the boxed state OpMakeIterator produces and OpIterNext
// advances. It stays on the value stack (wrapped in a TagIterCursor Value)
// underneath a for/comprehension loop's body for the loop's whole run, so
// it has to carry everything needed to produce the next element without
// consulting anything else on the stack.
type iterCursor struct {
	source value.Value
	index  int
}

func makeIteratorCursor(v value.Value) value.Value {
	return value.Value{Tag: value.TagIterCursor, Obj: &iterCursor{source: v, index: 0}}
}

// execIterNext always pushes exactly two values - a next-value (or a
// placeholder when exhausted) followed by a continuation Bool - because
// OpJumpIfFalse only ever consumes the trailing Bool; emitForEachCore's
// exhausted branch discards the leftover placeholder with its own explicit
// OpPop (stmt.go).
func (vm *VM) execIterNext() (value.Value, bool, *errsys.Error) {
	cur := vm.peek(0).Obj.(*iterCursor)

	next, ok := iterAdvance(cur)
	if !ok {
		vm.push(value.Nothing)
		vm.push(value.Bool(false))
		return value.Nothing, false, nil
	}
	vm.push(next)
	vm.push(value.Bool(true))
	return value.Nothing, false, nil
}

func iterAdvance(cur *iterCursor) (value.Value, bool) {
	switch cur.source.Tag {
	case value.TagArray:
		a := cur.source.Array()
		if cur.index >= a.Len() {
			return value.Nothing, false
		}
		v := a.Get(cur.index)
		cur.index++
		return v, true
	case value.TagTuple:
		t := cur.source.Tuple()
		if cur.index >= len(t.Elems) {
			return value.Nothing, false
		}
		v := t.Elems[cur.index]
		cur.index++
		return v, true
	case value.TagSet:
		items := cur.source.Set().Sorted()
		if cur.index >= len(items) {
			return value.Nothing, false
		}
		v := items[cur.index]
		cur.index++
		return v, true
	case value.TagDict:
		keys := cur.source.Dict().Keys()
		if cur.index >= len(keys) {
			return value.Nothing, false
		}
		v := keys[cur.index]
		cur.index++
		return v, true
	case value.TagRange:
		r := cur.source.Range()
		if cur.index >= r.Len() {
			return value.Nothing, false
		}
		at := r.At(cur.index)
		cur.index++
		if r.Integral {
			return value.Int64(int64(at)), true
		}
		return value.Float64(at), true
	case value.TagPairIter:
		p := cur.source.PairIterator()
		k, v, ok := p.Next()
		if !ok {
			return value.Nothing, false
		}
		return value.MakeTuple([]value.Value{k, v}), true
	case value.TagString:
		s := cur.source.Str()
		runes := []rune(s)
		if cur.index >= len(runes) {
			return value.Nothing, false
		}
		r := runes[cur.index]
		cur.index++
		return value.Char(r), true
	default:
		panic(errsys.Internal("OpMakeIterator: not iterable: " + cur.source.Tag.String()))
	}
}
