package analysis

import (
	"testing"

	"github.com/vtil-project/vtil-go/internal/symex"
	"github.com/vtil-project/vtil-go/internal/vtil"
)

func TestRecoverConditionalBranchFromIndirectJmp(t *testing.T) {
	b := vtil.NewBasicBlock("t", 0)
	seg := NewSegment(b.Begin())

	cond := symex.NewVar(symex.Variable{Kind: symex.VarNamed, Name: "cond"}, 1)
	t0 := symex.NewConst(0x1000, 64)
	t1 := symex.NewConst(0x2000, 64)
	sel := symex.Sub(symex.NewConst(0, 64), symex.ZExt(cond, 64))
	target := symex.Or(symex.And(sel, t1), symex.And(symex.Not(sel), t0))

	seg.Branch = target
	seg.BranchOp = vtil.OpJmp

	Prepare(seg, false)

	if seg.BranchOp != vtil.OpJs {
		t.Fatalf("BranchOp = %v, want OpJs after a successful recovery", seg.BranchOp)
	}
	if seg.Cond != cond {
		t.Fatalf("Cond = %s, want the recovered condition %s", seg.Cond, cond)
	}
	if v, ok := seg.T1.ConstValue(); !ok || v != 0x2000 {
		t.Fatalf("T1 = %s, want 0x2000 (the cond=1 arm)", seg.T1)
	}
	if v, ok := seg.T0.ConstValue(); !ok || v != 0x1000 {
		t.Fatalf("T0 = %s, want 0x1000 (the cond=0 arm)", seg.T0)
	}
}

func TestRecoverConditionalBranchSkipsRealExit(t *testing.T) {
	b := vtil.NewBasicBlock("t", 0)
	seg := NewSegment(b.Begin())

	cond := symex.NewVar(symex.Variable{Kind: symex.VarNamed, Name: "cond"}, 1)
	t0 := symex.NewConst(0x1000, 64)
	t1 := symex.NewConst(0x2000, 64)
	sel := symex.Sub(symex.NewConst(0, 64), symex.ZExt(cond, 64))
	target := symex.Or(symex.And(sel, t1), symex.And(symex.Not(sel), t0))

	seg.Branch = target
	seg.BranchOp = vtil.OpVexit

	Prepare(seg, false)

	if seg.BranchOp != vtil.OpVexit {
		t.Fatalf("BranchOp = %v, a real exit must not be rewritten into a js", seg.BranchOp)
	}
	if seg.Cond != nil {
		t.Fatalf("Cond should remain unset for a real exit")
	}
}

func TestRecoverConditionalBranchLeavesUnconditionalTargetAlone(t *testing.T) {
	b := vtil.NewBasicBlock("t", 0)
	seg := NewSegment(b.Begin())

	a := symex.NewVar(symex.Variable{Kind: symex.VarNamed, Name: "a"}, 64)
	seg.Branch = symex.Add(a, symex.NewConst(16, 64))
	seg.BranchOp = vtil.OpJmp

	Prepare(seg, false)

	if seg.BranchOp != vtil.OpJmp {
		t.Fatalf("a target with no single-bit condition must stay a plain jmp, got %v", seg.BranchOp)
	}
}
