// Package analysis implements the symbolic block analyzer and re-emitter
// spec.md §1-9 describe: a segment VM (C1), a block partitioner (C2), a
// preparation pass with conditional-jump recovery (C3), a re-emitter (C4),
// and a diagnostic dump (C5). It is built against the expression algebra,
// register/memory state, directive matcher, and basic-block container in
// internal/symex and internal/vtil — the collaborators spec.md §6 treats as
// external to this module.
package analysis

import (
	"github.com/vtil-project/vtil-go/internal/symex"
	"github.com/vtil-project/vtil-go/internal/vtil"
	"github.com/vtil-project/vtil-go/internal/vtil/reg"
	"github.com/vtil-project/vtil-go/internal/vtil/vm"
)

// Segment is one alias-safe, branch-free run of a block: the symbolic VM
// state accumulated while walking [Begin, End), plus the registers and
// memory locations it actually touched (spec.md §4.1's
// register_references/memory_references, which C4 consults to decide what
// is worth writing back).
type Segment struct {
	Registers *symex.Context
	Memory    *symex.Memory

	// RegisterReferences maps a touched register's weak identity to the
	// widest descriptor it was touched with, so C4 knows what width to
	// read back.
	RegisterReferences map[reg.ID]reg.Desc
	MemoryReferences    []symex.Pointer

	Begin, End vtil.Cursor

	// Verbatim is set when this segment exists solely to carry a single
	// instruction through untouched: one marked volatile, one referencing a
	// volatile register operand, or one the default interpreter gave up on.
	// None of these may be symbolized, so they bypass the VM entirely
	// rather than being re-synthesized from derived state.
	Verbatim *vtil.Instruction

	// BranchOp is zero-value OpMov when the segment was cut for a reason
	// other than a branch (alias failure, a volatile instruction, an
	// unrecognized opcode).
	BranchOp vtil.Op
	// Branch is the indirect target expression for Jmp/Vexit/Vxcall.
	Branch *symex.Expr
	// Cond/T0/T1 are populated instead of Branch for Js, whether the
	// instruction stream already had an explicit js or C3's
	// conditional-jump recovery uncovered one inside an indirect target.
	Cond, T0, T1 *symex.Expr
}

// NewSegment returns an empty segment starting at begin.
func NewSegment(begin vtil.Cursor) *Segment {
	return &Segment{
		Registers:           symex.NewContext(),
		Memory:              symex.NewMemory(),
		RegisterReferences: map[reg.ID]reg.Desc{},
		Begin:               begin,
		End:                 begin,
	}
}

func (s *Segment) touchRegister(desc reg.Desc) {
	id := desc.Weak()
	if existing, ok := s.RegisterReferences[id]; !ok || desc.BitCount > existing.BitCount {
		s.RegisterReferences[id] = desc
	}
}

func (s *Segment) touchMemory(ptr symex.Pointer) {
	for _, p := range s.MemoryReferences {
		if p.Base == ptr.Base && p.BitCount == ptr.BitCount {
			return
		}
	}
	s.MemoryReferences = append(s.MemoryReferences, ptr)
}

// ReadRegister implements vm.Interface.
func (s *Segment) ReadRegister(desc reg.Desc) *symex.Expr {
	s.touchRegister(desc)
	return s.Registers.Read(desc, s.Begin, nil)
}

// ReadMemory implements vm.Interface.
func (s *Segment) ReadMemory(ptr *symex.Expr, byteCount int) *symex.Expr {
	p := symex.NewPointer(ptr, int8(byteCount*8))
	s.touchMemory(p)
	return s.Memory.Read(p, s.Begin, nil)
}

// WriteRegister implements vm.Interface.
func (s *Segment) WriteRegister(desc reg.Desc, value *symex.Expr) {
	s.touchRegister(desc)
	s.Registers.Write(desc, value.MakeLazy())
}

// WriteMemory implements vm.Interface. It returns false — an alias_failure
// in spec.md §7's vocabulary — when the write cannot be proven to either
// fully overlap or fully miss every existing entry; the partitioner (C2)
// reads that false to decide a new segment is needed.
func (s *Segment) WriteMemory(ptr *symex.Expr, value *symex.Expr, size int8) bool {
	p := symex.NewPointer(ptr, size)
	s.touchMemory(p)
	return s.Memory.Write(p, value.MakeLazy())
}

// Execute implements vm.Interface. Branching instructions are handled
// directly, since only a segment knows how to record its own exit;
// everything else is gated — a volatile instruction, or one merely
// referencing a volatile, non-undefined register operand, must never be
// symbolized — before falling through to the shared interpreter
// (vm.Execute, spec.md §9's explicit "super" call).
func (s *Segment) Execute(ins vtil.Instruction) vm.ExitReason {
	if ins.IsBranching() {
		switch ins.Op {
		case vtil.OpJmp, vtil.OpVexit, vtil.OpVxcall:
			s.Branch = s.operandExpr(ins.Operands[0], ins.SpOffset)
			s.BranchOp = ins.Op
		case vtil.OpJs:
			s.Cond = s.operandExpr(ins.Operands[0], ins.SpOffset)
			s.T0 = s.operandExpr(ins.Operands[1], ins.SpOffset)
			s.T1 = s.operandExpr(ins.Operands[2], ins.SpOffset)
			s.BranchOp = vtil.OpJs
		}
		return vm.ExitStreamEnd
	}
	if ins.IsVolatile() || hasVolatileOperand(ins) {
		return vm.ExitUnknownInstruction
	}
	return vm.Execute(s, ins)
}

// hasVolatileOperand reports whether ins references a volatile register
// that isn't the undefined (?UD) marker — the marker is exempt since
// reading it never observes real machine state.
func hasVolatileOperand(ins vtil.Instruction) bool {
	for _, op := range ins.Operands {
		if op.IsRegister() && op.Reg.IsVolatile() && !op.Reg.IsUndefined() {
			return true
		}
	}
	return false
}

// operandExpr evaluates a branch operand as a symbolic expression. A
// register operand addressing the stack pointer is adjusted by adding
// spOffset, the per-instruction stack delta that hasn't yet been folded
// into $sp itself.
func (s *Segment) operandExpr(op vtil.Operand, spOffset int64) *symex.Expr {
	if op.IsImmediate() {
		return symex.NewConst(op.Imm, op.ImmWidth)
	}
	v := s.ReadRegister(op.Reg)
	if op.Reg.IsStackPointer() && spOffset != 0 {
		v = symex.Add(v, symex.NewConst(spOffset, op.Reg.BitCount))
	}
	return v
}

// IsRealExit reports whether the segment's branch is a real (non-virtual)
// control transfer out of the routine — vexit — as opposed to vxcall (a
// real, non-exiting call) or a virtual jmp/js, the distinction C5's dump
// draws per original_source's symbolic_analysis::dump.
func (s *Segment) IsRealExit() bool { return s.BranchOp == vtil.OpVexit }

// IsRealCall reports whether the segment's branch is a real, non-exiting
// call — vxcall.
func (s *Segment) IsRealCall() bool { return s.BranchOp == vtil.OpVxcall }

// HasBranch reports whether the segment ends on any control transfer.
func (s *Segment) HasBranch() bool {
	return s.BranchOp == vtil.OpJmp || s.BranchOp == vtil.OpVexit ||
		s.BranchOp == vtil.OpVxcall || s.BranchOp == vtil.OpJs
}
