package main

import (
	"github.com/pkg/errors"

	"github.com/vtil-project/vtil-go/internal/vtil"
	"github.com/vtil-project/vtil-go/internal/vtil/reg"
)

// blockOracle is the on-disk shape of a block to analyze: the entry virtual
// instruction pointer and a flat instruction list. It deliberately mirrors
// nothing from an external VTIL container format — this module has no
// sibling serializer to match — and exists purely to drive vtilopt from a
// file instead of requiring a Go caller.
type blockOracle struct {
	EntryVIP     uint64            `json:"entry_vip"`
	Instructions []instructionJSON `json:"instructions"`
}

type instructionJSON struct {
	Op       string         `json:"op"`
	Operands []operandJSON  `json:"operands"`
	Volatile bool           `json:"volatile"`
}

type operandJSON struct {
	Reg      *regJSON `json:"reg,omitempty"`
	Imm      *int64   `json:"imm,omitempty"`
	ImmWidth int8     `json:"width,omitempty"`
}

type regJSON struct {
	ID     uint32 `json:"id"`
	Offset int8   `json:"offset"`
	Bits   int8   `json:"bits"`
	Flags  uint8  `json:"flags"`
}

var opByName = map[string]vtil.Op{
	"mov": vtil.OpMov, "str": vtil.OpStr, "ldr": vtil.OpLdr,
	"add": vtil.OpAdd, "sub": vtil.OpSub, "mul": vtil.OpMul,
	"and": vtil.OpAnd, "or": vtil.OpOr, "xor": vtil.OpXor,
	"not": vtil.OpNot, "neg": vtil.OpNeg,
	"jmp": vtil.OpJmp, "js": vtil.OpJs, "vexit": vtil.OpVexit, "vxcall": vtil.OpVxcall,
}

// loadBlock reads jsonPath and builds the basic block it describes.
func loadBlock(jsonPath string) (*vtil.BasicBlock, error) {
	var o blockOracle
	if err := parseJSON(jsonPath, &o); err != nil {
		return nil, err
	}

	block := vtil.NewBasicBlock(jsonPath, o.EntryVIP)
	for _, insJSON := range o.Instructions {
		op, ok := opByName[insJSON.Op]
		if !ok {
			return nil, errors.Errorf("unrecognized opcode %q", insJSON.Op)
		}
		ins := vtil.Instruction{Op: op, Volatile: insJSON.Volatile}
		for _, opJSON := range insJSON.Operands {
			operand, err := convertOperand(opJSON)
			if err != nil {
				return nil, err
			}
			ins.Operands = append(ins.Operands, operand)
		}
		block.NpEmplaceBack(ins)
	}
	return block, nil
}

func convertOperand(o operandJSON) (vtil.Operand, error) {
	switch {
	case o.Reg != nil:
		return vtil.Reg(reg.Desc{
			ID:        reg.ID(o.Reg.ID),
			BitOffset: o.Reg.Offset,
			BitCount:  o.Reg.Bits,
			Flags:     reg.Flags(o.Reg.Flags),
		}), nil
	case o.Imm != nil:
		return vtil.Imm(*o.Imm, o.ImmWidth), nil
	default:
		return vtil.Operand{}, errors.New("operand has neither reg nor imm")
	}
}
