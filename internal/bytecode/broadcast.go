package bytecode

// BroadcastKind selects which HOF state machine OpBroadcastStart's u32
// operand drives. Element-producing kinds
// (Map, Map2) build a result Array shaped by the inputs; reducing
// kinds (Sum, All, Any, Count, FindFirst) fold down to a scalar.
type BroadcastKind uint32

const (
	BroadcastMap BroadcastKind = iota
	BroadcastMap2
	BroadcastSum
	BroadcastAll
	BroadcastAny
	BroadcastCount
	BroadcastFindFirst
)

var broadcastKindNames = [...]string{
	BroadcastMap: "map", BroadcastMap2: "map2", BroadcastSum: "sum",
	BroadcastAll: "all", BroadcastAny: "any", BroadcastCount: "count",
	BroadcastFindFirst: "findfirst",
}

func (k BroadcastKind) String() string {
	if int(k) < len(broadcastKindNames) {
		return broadcastKindNames[k]
	}
	return "broadcast?"
}

// Arity reports how many array/scalar inputs (beyond the callee) a kind
// consumes from the stack.
func (k BroadcastKind) Arity() int {
	if k == BroadcastMap2 {
		return 2
	}
	return 1
}
