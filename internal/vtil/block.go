package vtil

import "github.com/vtil-project/vtil-go/internal/vtil/reg"

// BasicBlock is a straight-line instruction sequence terminated by at most
// one control-transfer instruction, spec.md's GLOSSARY definition. Owner and
// EntryVIP identify the routine this block belongs to; Next lists the
// block's successors. Nothing in this module reads Next: C5 tells a real
// exit from a real call by the branch opcode.
type BasicBlock struct {
	Owner    any
	EntryVIP uint64
	Next     []*BasicBlock

	Instructions []Instruction

	LastTemporaryIndex uint32
	SpIndex            int32
	SpOffset           int64

	lastRegID reg.ID
}

// NewBasicBlock returns an empty block parented to owner with the given
// entry address, mirroring `basic_block temporary_block = { block->owner,
// block->entry_vip }` in the original re-emitter.
func NewBasicBlock(owner any, entryVIP uint64) *BasicBlock {
	return &BasicBlock{Owner: owner, EntryVIP: entryVIP, lastRegID: reg.SP + 1}
}

// Begin returns a cursor at the first instruction.
func (b *BasicBlock) Begin() Cursor { return Cursor{Block: b, Index: 0} }

// End returns a cursor one past the last instruction.
func (b *BasicBlock) End() Cursor { return Cursor{Block: b, Index: len(b.Instructions)} }

// Tmp allocates a fresh virtual temporary register of the given width.
func (b *BasicBlock) Tmp(bitCount int8) reg.Desc {
	if b.lastRegID == 0 {
		b.lastRegID = reg.SP + 1
	}
	b.LastTemporaryIndex++
	id := b.lastRegID + reg.ID(b.LastTemporaryIndex)
	return reg.Desc{ID: id, BitCount: bitCount}
}

// EmplaceBack appends ins, stamping it with the block's running sp_index/
// sp_offset bookkeeping before advancing sp_index.
func (b *BasicBlock) EmplaceBack(ins Instruction) {
	ins.SpIndex = b.SpIndex
	ins.SpOffset = b.SpOffset
	b.SpIndex++
	b.Instructions = append(b.Instructions, ins)
}

// NpEmplaceBack appends ins verbatim, without touching the block's
// bookkeeping — the caller (the suffix-replay step of C4) is responsible
// for copying the instruction's own post-state back into the block
// afterwards, per spec.md §4.4 step 6.
func (b *BasicBlock) NpEmplaceBack(ins Instruction) {
	b.Instructions = append(b.Instructions, ins)
}

// ShiftSP logically advances the virtual stack pointer by delta without
// emitting an instruction.
func (b *BasicBlock) ShiftSP(delta int64) { b.SpOffset += delta }

// Assign replaces b's contents with other's, the "move temporary_block over
// input" step of the re-emitter's commit.
func (b *BasicBlock) Assign(other *BasicBlock) {
	b.Instructions = other.Instructions
	b.SpIndex = other.SpIndex
	b.SpOffset = other.SpOffset
	b.LastTemporaryIndex = other.LastTemporaryIndex
	b.lastRegID = other.lastRegID
}

// Vexit appends a real, exiting branch to target.
func (b *BasicBlock) Vexit(target Operand) {
	b.EmplaceBack(Instruction{Op: OpVexit, Operands: []Operand{target}})
}

// Vxcall appends a real, non-exiting (call) branch to target.
func (b *BasicBlock) Vxcall(target Operand) {
	b.EmplaceBack(Instruction{Op: OpVxcall, Operands: []Operand{target}})
}

// Jmp appends an unconditional virtual branch to target.
func (b *BasicBlock) Jmp(target Operand) {
	b.EmplaceBack(Instruction{Op: OpJmp, Operands: []Operand{target}})
}

// Js appends a conditional virtual branch: cc ? t1 : t0.
func (b *BasicBlock) Js(cc, t0, t1 Operand) {
	b.EmplaceBack(Instruction{Op: OpJs, Operands: []Operand{cc, t0, t1}})
}

// Cursor is an opaque position into a block: a block handle plus an index,
// the "iterators-as-positions" approach spec.md §9 recommends. Cursors are
// comparable and remain valid only until the block they point into is
// mutated.
type Cursor struct {
	Block *BasicBlock
	Index int
}

// IsEnd reports whether the cursor is at or past the end of the block.
func (c Cursor) IsEnd() bool { return c.Index >= len(c.Block.Instructions) }

// Instruction returns the instruction at the cursor.
func (c Cursor) Instruction() Instruction { return c.Block.Instructions[c.Index] }

// Next returns a cursor one instruction further.
func (c Cursor) Next() Cursor { return Cursor{Block: c.Block, Index: c.Index + 1} }

// Prev returns a cursor one instruction earlier.
func (c Cursor) Prev() Cursor { return Cursor{Block: c.Block, Index: c.Index - 1} }
