package vtil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kr/pretty"

	"github.com/vtil-project/vtil-go/internal/vtil/reg"
)

func TestEmplaceBackStampsSpBookkeeping(t *testing.T) {
	b := NewBasicBlock("owner", 0x1000)
	b.SpOffset = 8
	b.EmplaceBack(Instruction{Op: OpMov})
	b.SpOffset = 16
	b.EmplaceBack(Instruction{Op: OpMov})

	if got := b.Instructions[0].SpOffset; got != 8 {
		t.Errorf("first instruction SpOffset = %d, want 8", got)
	}
	if got := b.Instructions[1].SpOffset; got != 16 {
		t.Errorf("second instruction SpOffset = %d, want 16", got)
	}
	if b.Instructions[0].SpIndex != 0 || b.Instructions[1].SpIndex != 1 {
		t.Errorf("sp_index should advance by one per instruction, got %d, %d",
			b.Instructions[0].SpIndex, b.Instructions[1].SpIndex)
	}
}

func TestTmpAllocatesDistinctRegisters(t *testing.T) {
	b := NewBasicBlock("owner", 0)
	t1 := b.Tmp(64)
	t2 := b.Tmp(32)
	if t1.ID == t2.ID {
		t.Fatalf("two calls to Tmp should allocate distinct register identities")
	}
	if t2.BitCount != 32 {
		t.Errorf("Tmp(32).BitCount = %d, want 32", t2.BitCount)
	}
}

func TestCursorNextPrev(t *testing.T) {
	b := NewBasicBlock("owner", 0)
	b.EmplaceBack(Instruction{Op: OpMov})
	b.EmplaceBack(Instruction{Op: OpAdd})

	c := b.Begin()
	if c.IsEnd() {
		t.Fatalf("Begin() should not be IsEnd on a non-empty block")
	}
	if c.Instruction().Op != OpMov {
		t.Fatalf("Begin().Instruction().Op = %v, want OpMov", c.Instruction().Op)
	}
	c = c.Next()
	if c.Instruction().Op != OpAdd {
		t.Fatalf("Next().Instruction().Op = %v, want OpAdd", c.Instruction().Op)
	}
	if c.Next() != b.End() {
		t.Fatalf("walking to the end should equal End()")
	}
	if c.Prev() != b.Begin() {
		t.Fatalf("Prev() from the second instruction should equal Begin()")
	}
}

func TestAssignReplacesContents(t *testing.T) {
	dst := NewBasicBlock("owner", 0)
	dst.EmplaceBack(Instruction{Op: OpMov})

	src := NewBasicBlock("owner", 0)
	src.EmplaceBack(Instruction{Op: OpAdd})
	src.EmplaceBack(Instruction{Op: OpSub})
	src.SpOffset = 99

	dst.Assign(src)
	if len(dst.Instructions) != 2 {
		t.Fatalf("Assign should replace the instruction list wholesale, got len %d", len(dst.Instructions))
	}
	if dst.SpOffset != 99 {
		t.Errorf("Assign should copy SpOffset, got %d", dst.SpOffset)
	}
}

func TestMemoryLocationStrAndLdr(t *testing.T) {
	base := reg.Desc{ID: 5, BitCount: 64}
	str := Instruction{Op: OpStr, Operands: []Operand{Reg(base), Imm(16, 64), Imm(1, 64)}}
	b, disp, ok := str.MemoryLocation()
	if !ok || b.ID != 5 || disp != 16 {
		t.Fatalf("str MemoryLocation() = (%v, %d, %v), want (id 5, 16, true)", b, disp, ok)
	}

	ldr := Instruction{Op: OpLdr, Operands: []Operand{Reg(reg.Desc{ID: 9, BitCount: 64}), Reg(base), Imm(-8, 64)}}
	b, disp, ok = ldr.MemoryLocation()
	if !ok || b.ID != 5 || disp != -8 {
		t.Fatalf("ldr MemoryLocation() = (%v, %d, %v), want (id 5, -8, true)", b, disp, ok)
	}
}

func TestAssignPreservesOperandShape(t *testing.T) {
	src := NewBasicBlock("owner", 0)
	want := []Operand{Reg(reg.Desc{ID: 3, BitCount: 32}), Imm(7, 32)}
	src.EmplaceBack(Instruction{Op: OpAdd, Operands: want})

	dst := NewBasicBlock("owner", 0)
	dst.Assign(src)

	got := dst.Instructions[0].Operands
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("operands mismatch after Assign (-want +got):\n%s\nfull value: %# v", diff, pretty.Formatter(got))
	}
}
