package analysis

import (
	"github.com/vtil-project/vtil-go/internal/symex"
	"github.com/vtil-project/vtil-go/internal/vtil"
)

// Prepare is C3: it re-normalizes every expression a segment produced
// (register writes, memory writes, the branch target or the js condition
// and targets) through Expr.Simplify, then — for a segment ending in an
// indirect jmp — attempts to recover a conditional branch hidden in the
// target expression.
func Prepare(seg *Segment, pack bool) {
	seg.Registers.Simplify(pack)
	seg.Memory.Simplify(pack)
	if seg.Cond != nil {
		seg.Cond = seg.Cond.Simplify(pack)
		seg.T0 = seg.T0.Simplify(pack)
		seg.T1 = seg.T1.Simplify(pack)
	}
	if seg.Branch != nil {
		seg.Branch = seg.Branch.Simplify(pack)
		recoverConditionalBranch(seg)
	}
}

// recoverConditionalBranch scans seg.Branch for a single-bit subexpression
// whose value the target actually depends on: forcing it to 1 and forcing
// it to 0 both produce a target different from the original, and different
// from each other. The first such subexpression found is committed as the
// segment's condition, turning an indirect jmp into an equivalent js.
// Scanning stops at the first match, mirroring the original analysis's
// short-circuiting ccscan. Recovery is only attempted for a plain virtual
// jmp: vexit/vxcall keep their single combined target, since this
// instruction set has no conditional form of a real exit or call.
func recoverConditionalBranch(seg *Segment) {
	if seg.Branch == nil || seg.BranchOp != vtil.OpJmp {
		return
	}
	original := seg.Branch
	var found bool
	original.Enumerate(func(cand *symex.Expr) {
		if found || cand.BitCount() != 1 || cand.IsConstant() {
			return
		}
		sat := substitute(original, cand, symex.NewConst(1, 1))
		nsat := substitute(original, cand, symex.NewConst(0, 1))
		if sat.Hash() == original.Hash() || nsat.Hash() == original.Hash() {
			return
		}
		if sat.Hash() == nsat.Hash() {
			return
		}
		seg.Cond, seg.T1, seg.T0 = cand, sat, nsat
		seg.BranchOp = vtil.OpJs
		seg.Branch = nil
		found = true
	})
}

func substitute(e, target, replacement *symex.Expr) *symex.Expr {
	return e.Transform(func(d *symex.Delegate) {
		if d.Get() == target {
			d.Set(replacement)
		}
	})
}
