package analysis

import (
	"bytes"
	"testing"

	"github.com/vtil-project/vtil-go/internal/vtil"
)

func TestFullPipelineCollapsesRedundantMoves(t *testing.T) {
	b := vtil.NewBasicBlock("t", 0)
	// r10 := 5; r10 := r10 + 0 (identity); r10 := r10 (identity); vexit r10
	b.EmplaceBack(vtil.Instruction{Op: vtil.OpMov, Operands: []vtil.Operand{vtil.Reg(r(10, 64)), vtil.Imm(5, 64)}})
	b.EmplaceBack(vtil.Instruction{Op: vtil.OpAdd, Operands: []vtil.Operand{vtil.Reg(r(10, 64)), vtil.Reg(r(10, 64)), vtil.Imm(0, 64)}})
	b.EmplaceBack(vtil.Instruction{Op: vtil.OpMov, Operands: []vtil.Operand{vtil.Reg(r(10, 64)), vtil.Reg(r(10, 64))}})
	b.EmplaceBack(vtil.Instruction{Op: vtil.OpVexit, Operands: []vtil.Operand{vtil.Reg(r(10, 64))}})

	a := New(b)
	a.Update()
	if a.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", a.Size())
	}
	a.Prepare(true)
	a.Reemit()

	if len(b.Instructions) != 2 {
		t.Fatalf("len(b.Instructions) = %d, want 2 (one mov for r10, one vexit); got %v", len(b.Instructions), b.Instructions)
	}
	last := b.Instructions[len(b.Instructions)-1]
	if !last.IsBranching() {
		t.Fatalf("the re-emitted block must still end on a branch")
	}
}

func TestDumpAndRealExitForVexit(t *testing.T) {
	b := vtil.NewBasicBlock("t", 0)
	b.EmplaceBack(vtil.Instruction{Op: vtil.OpMov, Operands: []vtil.Operand{vtil.Reg(r(1, 64)), vtil.Imm(1, 64)}})
	b.EmplaceBack(vtil.Instruction{Op: vtil.OpVexit, Operands: []vtil.Operand{vtil.Reg(r(1, 64))}})

	a := New(b)
	a.Update()

	var buf bytes.Buffer
	a.Dump(&buf)
	if buf.Len() == 0 {
		t.Fatalf("Dump should produce non-empty output")
	}
	if segs := a.Segments(); len(segs) != 1 || !segs[0].IsRealExit() {
		t.Fatalf("the sole segment should report IsRealExit() for a vexit terminator")
	}
}

func TestReemitPreservesVolatileInstructionVerbatim(t *testing.T) {
	b := vtil.NewBasicBlock("t", 0)
	volatile := vtil.Instruction{Op: vtil.OpMov, Volatile: true, Operands: []vtil.Operand{vtil.Reg(r(1, 64)), vtil.Imm(7, 64)}}
	b.EmplaceBack(volatile)
	b.EmplaceBack(vtil.Instruction{Op: vtil.OpVexit, Operands: []vtil.Operand{vtil.Imm(0x2000, 64)}})

	a := New(b)
	a.Update()
	a.Prepare(false)
	a.Reemit()

	if len(b.Instructions) < 1 || b.Instructions[0].Op != vtil.OpMov || !b.Instructions[0].Volatile {
		t.Fatalf("the volatile instruction must survive re-emission unchanged, got %v", b.Instructions)
	}
}
