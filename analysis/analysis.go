package analysis

import (
	"io"

	"github.com/vtil-project/vtil-go/internal/vtil"
)

// Analysis is the top-level symbolic_analysis equivalent spec.md §2/§5
// describes: a synchronized view over one basic block's partition into
// segments. Update (re)computes the partition from the block's current
// instructions; Prepare simplifies every segment and runs conditional-jump
// recovery; Reemit replaces the block's instructions with a shorter
// equivalent sequence built from the (prepared) segments. At most one of
// Update/Prepare/Reemit runs at a time per Analysis; Dump and Segments may
// run concurrently with each other but not with a writer, matching
// SynchronizedContext's contract.
type Analysis struct {
	vtil.SynchronizedContext[vtil.BasicBlock]

	block    *vtil.BasicBlock
	segments []*Segment
}

// New returns an analysis over block, with no partition computed yet.
func New(block *vtil.BasicBlock) *Analysis {
	return &Analysis{block: block}
}

// Update recomputes the segment partition (C2) from block's current
// instruction stream.
func (a *Analysis) Update() {
	a.Lock()
	defer a.Unlock()
	a.ResetDirty()
	a.segments = Partition(a.block.Begin(), a.block.End())
}

// Prepare runs C3 over every segment: simplifying (and, if pack is set,
// packing) every register/memory/branch expression, then attempting
// conditional-jump recovery on any indirect jmp target.
func (a *Analysis) Prepare(pack bool) {
	a.Lock()
	defer a.Unlock()
	for _, seg := range a.segments {
		Prepare(seg, pack)
	}
}

// Reemit is C4: it replaces block's instructions with a shorter equivalent
// sequence built from the current segments, and marks this analysis dirty
// (Dirty reports true until the next Update). Other analyses of the same
// block are not notified.
func (a *Analysis) Reemit() {
	a.Lock()
	defer a.Unlock()
	Reemit(a.block, a.segments)
	a.MarkDirty()
}

// Dump is C5: it writes a diagnostic trace of the current partition to w.
// Safe to call concurrently with another Dump or with Segments, but not
// with Update/Prepare/Reemit.
func (a *Analysis) Dump(w io.Writer) {
	a.RLock()
	defer a.RUnlock()
	Dump(w, a.segments)
}

// Segments returns the current partition for read-only inspection.
func (a *Analysis) Segments() []*Segment {
	a.RLock()
	defer a.RUnlock()
	return a.segments
}

// Size returns the number of segments in the current partition.
func (a *Analysis) Size() int {
	a.RLock()
	defer a.RUnlock()
	return len(a.segments)
}

// Block returns the block this analysis is attached to.
func (a *Analysis) Block() *vtil.BasicBlock { return a.block }
