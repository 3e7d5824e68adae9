// Package vm implements the VM interface contract and the default/shared
// instruction interpreter spec.md §6 calls "the general VM instruction
// interpreter" — an external collaborator in a full VTIL deployment, built
// here so the segment VM (analysis.Segment, spec.md §4.1) has a real
// "super" implementation to delegate to, reified as the package-level
// Execute function per spec.md §9's recommendation ("model this as an
// explicit 'super' function passed or reified rather than relying on
// ambient dispatch").
package vm

import (
	"github.com/vtil-project/vtil-go/internal/symex"
	"github.com/vtil-project/vtil-go/internal/vtil"
	"github.com/vtil-project/vtil-go/internal/vtil/reg"
)

// ExitReason classifies why Execute (or an override) stopped driving the
// instruction stream, per spec.md §3/§7.
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitStreamEnd
	ExitAliasFailure
	ExitHighArithmetic
	ExitUnknownInstruction
)

func (r ExitReason) String() string {
	switch r {
	case ExitNone:
		return "none"
	case ExitStreamEnd:
		return "stream_end"
	case ExitAliasFailure:
		return "alias_failure"
	case ExitHighArithmetic:
		return "high_arithmetic"
	case ExitUnknownInstruction:
		return "unknown_instruction"
	default:
		return "?"
	}
}

// Interface is the VM read/write/execute contract spec.md §4.1 requires a
// segment to satisfy.
type Interface interface {
	ReadRegister(desc reg.Desc) *symex.Expr
	ReadMemory(ptr *symex.Expr, byteCount int) *symex.Expr
	WriteRegister(desc reg.Desc, value *symex.Expr)
	WriteMemory(ptr *symex.Expr, value *symex.Expr, size int8) bool
	Execute(ins vtil.Instruction) ExitReason
}

func operandValue(vmi Interface, op vtil.Operand) *symex.Expr {
	if op.IsImmediate() {
		return symex.NewConst(op.Imm, op.ImmWidth)
	}
	return vmi.ReadRegister(op.Reg)
}

// Execute is the default instruction interpreter: it handles mov/str/ldr
// and the arithmetic opcodes uniformly across any Interface implementation,
// returning ExitAliasFailure if a store could not be proven safe and
// ExitHighArithmetic for any opcode it does not recognize.
func Execute(vmi Interface, ins vtil.Instruction) ExitReason {
	switch ins.Op {
	case vtil.OpMov:
		v := operandValue(vmi, ins.Operands[1])
		vmi.WriteRegister(ins.Operands[0].Reg, v)
		return ExitNone

	case vtil.OpStr:
		base, disp, ok := ins.MemoryLocation()
		if !ok {
			return ExitHighArithmetic
		}
		addr := symex.Add(vmi.ReadRegister(base), symex.NewConst(disp, base.BitCount))
		value := operandValue(vmi, ins.Operands[2])
		if !vmi.WriteMemory(addr, value, value.BitCount()) {
			return ExitAliasFailure
		}
		return ExitNone

	case vtil.OpLdr:
		base, disp, ok := ins.MemoryLocation()
		if !ok {
			return ExitHighArithmetic
		}
		dst := ins.Operands[0].Reg
		addr := symex.Add(vmi.ReadRegister(base), symex.NewConst(disp, base.BitCount))
		value := vmi.ReadMemory(addr, int(dst.BitCount+7)/8)
		vmi.WriteRegister(dst, value)
		return ExitNone

	case vtil.OpAdd, vtil.OpSub, vtil.OpMul, vtil.OpAnd, vtil.OpOr, vtil.OpXor:
		if len(ins.Operands) != 3 {
			return ExitHighArithmetic
		}
		lhs := operandValue(vmi, ins.Operands[1])
		rhs := operandValue(vmi, ins.Operands[2])
		vmi.WriteRegister(ins.Operands[0].Reg, binaryOp(ins.Op, lhs, rhs))
		return ExitNone

	case vtil.OpNot, vtil.OpNeg:
		if len(ins.Operands) != 2 {
			return ExitHighArithmetic
		}
		src := operandValue(vmi, ins.Operands[1])
		var v *symex.Expr
		if ins.Op == vtil.OpNot {
			v = symex.Not(src)
		} else {
			v = symex.Neg(src)
		}
		vmi.WriteRegister(ins.Operands[0].Reg, v)
		return ExitNone

	default:
		return ExitHighArithmetic
	}
}

func binaryOp(op vtil.Op, lhs, rhs *symex.Expr) *symex.Expr {
	switch op {
	case vtil.OpAdd:
		return symex.Add(lhs, rhs)
	case vtil.OpSub:
		return symex.Sub(lhs, rhs)
	case vtil.OpMul:
		return symex.Mul(lhs, rhs)
	case vtil.OpAnd:
		return symex.And(lhs, rhs)
	case vtil.OpOr:
		return symex.Or(lhs, rhs)
	case vtil.OpXor:
		return symex.Xor(lhs, rhs)
	default:
		return lhs
	}
}
