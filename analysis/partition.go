package analysis

import (
	"github.com/vtil-project/vtil-go/internal/vtil"
	"github.com/vtil-project/vtil-go/internal/vtil/vm"
)

// Partition is C2: it walks [begin, end) and splits it into the alias-safe,
// branch-free segments spec.md §4.2 describes. A running segment is cut
// whenever it hits a volatile instruction (or one the VM otherwise refuses
// to symbolize), an alias failure, or a branch; the instruction that
// triggered the cut gets its own one-instruction verbatim segment
// (volatile, high-arithmetic, unknown-instruction), becomes the last
// instruction of the segment it cut (a branch), or is replayed as the first
// instruction of a fresh segment (an alias failure). An empty segment is folded
// away afterwards, except the first, which is always kept so a block with
// no real split point still has one segment to re-emit into.
func Partition(begin, end vtil.Cursor) []*Segment {
	segments := []*Segment{NewSegment(begin)}
	cur := segments[0]

	for c := begin; c != end; c = c.Next() {
		ins := c.Instruction()

		if ins.IsVolatile() {
			cur = captureVerbatim(&segments, cur, c)
			continue
		}

		reason := cur.Execute(ins)
		switch reason {
		case vm.ExitNone:
			cur.End = c.Next()
		case vm.ExitAliasFailure:
			// ins was not folded into cur; give it a fresh segment of its
			// own and replay it there.
			cur = cutAfter(&segments, cur, c)
			cur.End = c.Next()
			cur.Execute(ins)
		case vm.ExitStreamEnd:
			cur.End = c.Next()
			cur = cutAfter(&segments, cur, c.Next())
		default: // ExitHighArithmetic, ExitUnknownInstruction
			cur = captureVerbatim(&segments, cur, c)
		}
	}

	return foldEmpty(segments)
}

// cutAfter closes the running segment at boundary and starts (and
// registers) a fresh one there.
func cutAfter(segments *[]*Segment, cur *Segment, boundary vtil.Cursor) *Segment {
	cur.End = boundary
	next := NewSegment(boundary)
	*segments = append(*segments, next)
	return next
}

// captureVerbatim closes cur at c, starts a fresh segment carrying c's
// instruction through untouched, and returns the segment started right
// after it. Used both for an instruction marked volatile and for one the
// VM refused to symbolize (a volatile register operand, or an opcode the
// default interpreter gave up on): in every case the instruction must
// survive re-emission exactly as written rather than be re-derived from
// simplified state, so cur is cut cleanly on both sides of it.
func captureVerbatim(segments *[]*Segment, cur *Segment, c vtil.Cursor) *Segment {
	cur = cutAfter(segments, cur, c)
	cur.End = c.Next()
	insCopy := c.Instruction()
	cur.Verbatim = &insCopy
	return cutAfter(segments, cur, c.Next())
}

// foldEmpty drops every segment spanning zero instructions except the
// first.
func foldEmpty(segments []*Segment) []*Segment {
	out := segments[:0]
	for i, s := range segments {
		if i == 0 || s.Begin != s.End {
			out = append(out, s)
		}
	}
	return out
}
