// Package vtil implements the basic-block container, the abstract
// instruction set, and the synchronization base spec.md §6 lists as
// "consumed from the block layer" — a standalone Go module has no sibling
// VTIL-Core library to import these from, so this package is the minimal,
// real implementation the analysis package (C1-C5) is built and tested
// against. Shape and naming follow the teacher's own Function/BasicBlock/
// Instruction types (_examples/mewmew-x/cmd/x/x86.go,
// _examples/mewmew-x/disasm/x86/x86.go), generalized from x86 instructions
// to VTIL's small virtual opcode set.
package vtil

import (
	"fmt"

	"github.com/vtil-project/vtil-go/internal/vtil/reg"
)

// Op identifies a virtual instruction's opcode.
type Op uint8

const (
	OpMov Op = iota
	OpStr
	OpLdr
	OpAdd
	OpSub
	OpMul
	OpAnd
	OpOr
	OpXor
	OpNot
	OpNeg
	OpJmp
	OpJs
	OpVexit
	OpVxcall
)

var opNames = map[Op]string{
	OpMov: "mov", OpStr: "str", OpLdr: "ldr",
	OpAdd: "add", OpSub: "sub", OpMul: "mul",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpNot: "not", OpNeg: "neg",
	OpJmp: "jmp", OpJs: "js", OpVexit: "vexit", OpVxcall: "vxcall",
}

func (op Op) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return "?"
}

// IsBranching reports whether op transfers control.
func (op Op) IsBranching() bool {
	switch op {
	case OpJmp, OpJs, OpVexit, OpVxcall:
		return true
	}
	return false
}

// ReadsMemory reports whether op performs a memory load.
func (op Op) ReadsMemory() bool { return op == OpLdr }

// OperandKind distinguishes a register operand from an immediate.
type OperandKind uint8

const (
	OperandRegister OperandKind = iota
	OperandImmediate
)

// Operand is either a register slice or a signed immediate of a given
// width, the two shapes spec.md §6's instruction operands take.
type Operand struct {
	Kind     OperandKind
	Reg      reg.Desc
	Imm      int64
	ImmWidth int8
}

// Reg builds a register operand.
func Reg(d reg.Desc) Operand { return Operand{Kind: OperandRegister, Reg: d} }

// Imm builds an immediate operand of the given bit width.
func Imm(v int64, bitWidth int8) Operand {
	return Operand{Kind: OperandImmediate, Imm: v, ImmWidth: bitWidth}
}

func (o Operand) IsRegister() bool   { return o.Kind == OperandRegister }
func (o Operand) IsImmediate() bool  { return o.Kind == OperandImmediate }
func (o Operand) BitCount() int8 {
	if o.IsRegister() {
		return o.Reg.BitCount
	}
	return o.ImmWidth
}

func (o Operand) String() string {
	if o.IsImmediate() {
		return fmt.Sprintf("0x%x", o.Imm)
	}
	return fmt.Sprintf("r%d[%d:%d]", o.Reg.ID, o.Reg.BitOffset, o.Reg.BitCount)
}

// Instruction is one virtual instruction: an opcode, its operands, and the
// per-instruction stack-pointer bookkeeping spec.md §3/§4.4 describe.
type Instruction struct {
	Op       Op
	Operands []Operand
	SpOffset int64
	SpIndex  int32
	Volatile bool
}

// IsVolatile reports whether the instruction must not be symbolized.
func (ins Instruction) IsVolatile() bool { return ins.Volatile }

// IsBranching reports whether the instruction transfers control.
func (ins Instruction) IsBranching() bool { return ins.Op.IsBranching() }

// ReadsMemory reports whether the instruction performs a memory load.
func (ins Instruction) ReadsMemory() bool { return ins.Op.ReadsMemory() }

// MemoryLocation returns the base register and constant displacement
// addressed by a str (operands: base, offset, value) or ldr (operands: dst,
// base, offset) instruction.
func (ins Instruction) MemoryLocation() (reg.Desc, int64, bool) {
	switch ins.Op {
	case OpStr:
		if len(ins.Operands) < 2 || !ins.Operands[0].IsRegister() || !ins.Operands[1].IsImmediate() {
			return reg.Desc{}, 0, false
		}
		return ins.Operands[0].Reg, ins.Operands[1].Imm, true
	case OpLdr:
		if len(ins.Operands) < 3 || !ins.Operands[1].IsRegister() || !ins.Operands[2].IsImmediate() {
			return reg.Desc{}, 0, false
		}
		return ins.Operands[1].Reg, ins.Operands[2].Imm, true
	default:
		return reg.Desc{}, 0, false
	}
}

func (ins Instruction) String() string {
	s := ins.Op.String()
	for _, op := range ins.Operands {
		s += " " + op.String() + ","
	}
	return s
}
