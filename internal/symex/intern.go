package symex

import "sync"

// internTable hash-conses expression nodes: structurally equal nodes
// collapse to the same *Expr, so pointer identity can stand in for content
// equality (Segment's memory-reference list compares bases with ==). Nodes
// copied by MakeLazy are not interned. Guarded by a mutex
// rather than left to the caller, matching the concurrency note in spec.md
// §5 that expression nodes are shared and must be safe to intern from
// multiple readers.
var (
	internMu    sync.Mutex
	internTable = map[uint64][]*Expr{}
)

func intern(e *Expr) *Expr {
	internMu.Lock()
	defer internMu.Unlock()
	bucket := internTable[e.h]
	for _, cand := range bucket {
		if cand.structEquals(e) {
			return cand
		}
	}
	internTable[e.h] = append(bucket, e)
	return e
}

// structEquals compares two freshly-built nodes field by field without
// relying on their (possibly not yet finalized) hash, used only by intern.
func (e *Expr) structEquals(o *Expr) bool {
	if e.kind != o.kind || e.bitCount != o.bitCount || e.offset != o.offset {
		return false
	}
	switch e.kind {
	case KindConst:
		return e.value == o.value
	case KindVar:
		return e.variable.Equals(o.variable)
	}
	if e.lhs != o.lhs || e.rhs != o.rhs {
		return false
	}
	return true
}
