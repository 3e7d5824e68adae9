package vm

import (
	"testing"

	"github.com/vtil-project/vtil-go/internal/symex"
	"github.com/vtil-project/vtil-go/internal/vtil"
	"github.com/vtil-project/vtil-go/internal/vtil/reg"
)

// fakeVM is a minimal, map-backed Interface implementation used to exercise
// the default interpreter in isolation from the real segment VM.
type fakeVM struct {
	regs map[reg.ID]*symex.Expr
	mem  map[int64]*symex.Expr
}

func newFakeVM() *fakeVM {
	return &fakeVM{regs: map[reg.ID]*symex.Expr{}, mem: map[int64]*symex.Expr{}}
}

func (f *fakeVM) ReadRegister(desc reg.Desc) *symex.Expr {
	if v, ok := f.regs[desc.ID]; ok {
		return v
	}
	return symex.NewConst(0, desc.BitCount)
}

func (f *fakeVM) ReadMemory(ptr *symex.Expr, byteCount int) *symex.Expr {
	addr, _ := ptr.IntValue()
	if v, ok := f.mem[addr]; ok {
		return v
	}
	return symex.NewConst(0, int8(byteCount*8))
}

func (f *fakeVM) WriteRegister(desc reg.Desc, value *symex.Expr) { f.regs[desc.ID] = value }

func (f *fakeVM) WriteMemory(ptr *symex.Expr, value *symex.Expr, size int8) bool {
	addr, ok := ptr.IntValue()
	if !ok {
		return false
	}
	f.mem[addr] = value
	return true
}

func (f *fakeVM) Execute(ins vtil.Instruction) ExitReason { return Execute(f, ins) }

func TestExecuteMov(t *testing.T) {
	f := newFakeVM()
	dst := reg.Desc{ID: 1, BitCount: 64}
	reason := Execute(f, vtil.Instruction{Op: vtil.OpMov, Operands: []vtil.Operand{vtil.Reg(dst), vtil.Imm(42, 64)}})
	if reason != ExitNone {
		t.Fatalf("Execute(mov) = %v, want ExitNone", reason)
	}
	v, ok := f.ReadRegister(dst).ConstValue()
	if !ok || v != 42 {
		t.Fatalf("register after mov = %v, want 42", v)
	}
}

func TestExecuteArithmetic(t *testing.T) {
	f := newFakeVM()
	dst := reg.Desc{ID: 1, BitCount: 64}
	src := reg.Desc{ID: 2, BitCount: 64}
	f.WriteRegister(src, symex.NewConst(10, 64))

	Execute(f, vtil.Instruction{Op: vtil.OpAdd, Operands: []vtil.Operand{vtil.Reg(dst), vtil.Reg(src), vtil.Imm(5, 64)}})
	v, ok := f.ReadRegister(dst).ConstValue()
	if !ok || v != 15 {
		t.Fatalf("register after add = %v, want 15", v)
	}
}

func TestExecuteStrLdrRoundTrips(t *testing.T) {
	f := newFakeVM()
	base := reg.Desc{ID: 1, BitCount: 64}
	f.WriteRegister(base, symex.NewConst(0x1000, 64))
	dst := reg.Desc{ID: 2, BitCount: 64}

	reason := Execute(f, vtil.Instruction{Op: vtil.OpStr, Operands: []vtil.Operand{vtil.Reg(base), vtil.Imm(8, 64), vtil.Imm(0xDEAD, 64)}})
	if reason != ExitNone {
		t.Fatalf("Execute(str) = %v, want ExitNone", reason)
	}

	Execute(f, vtil.Instruction{Op: vtil.OpLdr, Operands: []vtil.Operand{vtil.Reg(dst), vtil.Reg(base), vtil.Imm(8, 64)}})
	v, ok := f.ReadRegister(dst).ConstValue()
	if !ok || v != 0xDEAD {
		t.Fatalf("register after ldr = %v, want 0xdead", v)
	}
}

func TestExecuteUnknownOpcodeIsHighArithmetic(t *testing.T) {
	reason := Execute(newFakeVM(), vtil.Instruction{Op: vtil.Op(200)})
	if reason != ExitHighArithmetic {
		t.Fatalf("Execute(unknown) = %v, want ExitHighArithmetic", reason)
	}
}
