package analysis

import (
	"math/bits"
	"sort"

	"github.com/vtil-project/vtil-go/internal/symex"
	"github.com/vtil-project/vtil-go/internal/symex/directive"
	"github.com/vtil-project/vtil-go/internal/vtil"
	"github.com/vtil-project/vtil-go/internal/vtil/reg"
)

// Reemit is C4: it builds a fresh instruction sequence from segments and
// installs it into block, replacing the original. Each segment contributes,
// in order: a mov per referenced register whose value actually changed
// (skipping the stack pointer, which is reconciled separately), a str per
// accepted memory write, and finally its branch (js/jmp/vexit/vxcall)
// translated through a fresh BatchTranslator.
func Reemit(block *vtil.BasicBlock, segments []*Segment) {
	out := vtil.NewBasicBlock(block.Owner, block.EntryVIP)
	for _, seg := range segments {
		reemitSegment(out, seg)
	}
	block.Assign(out)
}

func reemitSegment(out *vtil.BasicBlock, seg *Segment) {
	if seg.Verbatim != nil {
		reemitVerbatim(out, *seg.Verbatim)
		return
	}

	t := vtil.NewBatchTranslator(out, seg.Begin)

	for _, id := range sortedRegisterIDs(seg.RegisterReferences) {
		desc := seg.RegisterReferences[id]
		if desc.IsReadOnly() || desc.IsUndefined() || desc.IsStackPointer() {
			continue
		}
		bitmap := seg.Registers.Bitmap(id)
		if bitmap == 0 {
			continue
		}
		if desc.IsFlags() && bits.OnesCount64(bitmap) <= 4 {
			emitFlagsWriteback(out, t, seg, desc, bitmap)
			continue
		}
		value := seg.Registers.Read(desc, seg.Begin, nil)
		if isNoopReadback(value, desc, seg.Begin) {
			continue
		}
		operand := t.Translate(value.Simplify(true))
		out.EmplaceBack(vtil.Instruction{Op: vtil.OpMov, Operands: []vtil.Operand{vtil.Reg(desc), operand}})
	}

	for _, e := range seg.Memory.Entries() {
		emitMemoryWriteback(out, t, seg, e)
	}

	reconcileStackPointer(out, t, seg)

	emitBranch(out, t, seg)
}

// emitFlagsWriteback implements spec.md §4.4 step 1's flags fast path:
// when only a handful of flag bits changed, write each one back as its own
// 1-bit mov instead of materializing the whole register.
func emitFlagsWriteback(out *vtil.BasicBlock, t *vtil.BatchTranslator, seg *Segment, desc reg.Desc, bitmap uint64) {
	for bit := int8(0); bit < 64; bit++ {
		if bitmap&(uint64(1)<<uint(bit)) == 0 {
			continue
		}
		bitDesc := reg.Desc{ID: desc.ID, BitOffset: bit, BitCount: 1, Flags: desc.Flags}
		value := seg.Registers.Read(bitDesc, seg.Begin, nil).Simplify(true)
		out.EmplaceBack(vtil.Instruction{Op: vtil.OpMov, Operands: []vtil.Operand{vtil.Reg(bitDesc), t.Translate(value)}})
	}
}

// isNoopReadback reports whether reading desc back out of the segment's
// register state produced exactly the value it already held at the
// segment's origin — nothing to write back.
func isNoopReadback(value *symex.Expr, desc reg.Desc, origin vtil.Cursor) bool {
	v, ok := value.Variable()
	if !ok || v.Kind != symex.VarRegister {
		return false
	}
	return v.Reg.Weak() == desc.Weak() && v.Reg.BitCount == desc.BitCount && v.At == origin
}

func sortedRegisterIDs(refs map[reg.ID]reg.Desc) []reg.ID {
	ids := make([]reg.ID, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// initialRegisterValue returns the symbolic "value of desc at origin"
// variable Context.Read would synthesize for bits nothing has written yet
// — used to measure how far a register (chiefly $sp) moved across a
// segment, independent of what's actually been recorded in register state.
func initialRegisterValue(desc reg.Desc, origin vtil.Cursor) *symex.Expr {
	return symex.NewVar(symex.Variable{
		Kind: symex.VarRegister,
		Reg:  reg.Desc{ID: desc.Weak(), BitCount: desc.BitCount},
		At:   origin,
	}, desc.BitCount)
}

// spWidth returns the bit width to address $sp at for seg, falling back to
// 64 when the segment never touched it directly.
func spWidth(seg *Segment) int8 {
	if desc, ok := seg.RegisterReferences[reg.SP]; ok {
		return desc.BitCount
	}
	return 64
}

func spDesc(width int8) reg.Desc {
	return reg.Desc{ID: reg.SP, BitCount: width, Flags: reg.FlagStackPointer}
}

// emitMemoryWriteback implements spec.md §4.4 step 2: a write whose address
// is a constant displacement off the segment's initial $sp collapses to a
// direct `str $sp, d, value`; otherwise the address is pattern-matched
// against `A+U`/`A-U` to recover a register base plus a constant
// displacement, falling back to materializing the whole address with a
// zero displacement when no such shape matches.
func emitMemoryWriteback(out *vtil.BasicBlock, t *vtil.BatchTranslator, seg *Segment, e symex.MemEntry) {
	valueOperand := t.Translate(e.Value().Simplify(true))

	sp := spDesc(spWidth(seg))
	if d, ok := symex.Sub(e.Pointer().Base, initialRegisterValue(sp, seg.Begin)).IntValue(); ok {
		out.EmplaceBack(vtil.Instruction{
			Op:       vtil.OpStr,
			Operands: []vtil.Operand{vtil.Reg(sp), vtil.Imm(d, 64), valueOperand},
		})
		return
	}

	exp, offset := matchBaseDisplacement(e.Pointer().Base)
	base := materializeBase(out, t, exp.Simplify(true))
	out.EmplaceBack(vtil.Instruction{
		Op:       vtil.OpStr,
		Operands: []vtil.Operand{vtil.Reg(base), vtil.Imm(offset, 64), valueOperand},
	})
}

// matchBaseDisplacement recovers (A, ±U) from an address shaped like A+U or
// A-U with a constant U, via the directive matcher; addresses with no such
// shape pass through unchanged with a zero displacement.
func matchBaseDisplacement(addr *symex.Expr) (*symex.Expr, int64) {
	var results []directive.SymbolTable
	if directive.FastMatch(&results, directive.AplusU, addr) {
		u, _ := results[len(results)-1].Translate(directive.U).IntValue()
		return results[len(results)-1].Translate(directive.A), u
	}
	if directive.FastMatch(&results, directive.AminusU, addr) {
		u, _ := results[len(results)-1].Translate(directive.U).IntValue()
		return results[len(results)-1].Translate(directive.A), -u
	}
	return addr, 0
}

// materializeBase ensures a memory write's address ends up in a register
// operand, the only shape str's base operand accepts.
func materializeBase(out *vtil.BasicBlock, t *vtil.BatchTranslator, addr *symex.Expr) reg.Desc {
	op := t.Translate(addr)
	if op.IsRegister() {
		return op.Reg
	}
	tmp := out.Tmp(addr.BitCount())
	out.EmplaceBack(vtil.Instruction{Op: vtil.OpMov, Operands: []vtil.Operand{vtil.Reg(tmp), op}})
	return tmp
}

// reconcileStackPointer implements spec.md §4.4 step 5: if the segment
// moved $sp by a provable constant, fold it into the output block's
// bookkeeping via ShiftSP with no instruction emitted; otherwise the new
// value is materialized with an explicit mov.
func reconcileStackPointer(out *vtil.BasicBlock, t *vtil.BatchTranslator, seg *Segment) {
	if seg.Registers.Bitmap(reg.SP) == 0 {
		return
	}
	sp := spDesc(spWidth(seg))
	newSP := seg.Registers.Read(sp, seg.Begin, nil)
	delta := symex.Sub(newSP, initialRegisterValue(sp, seg.Begin))
	if d, ok := delta.IntValue(); ok {
		out.ShiftSP(d)
		return
	}
	out.EmplaceBack(vtil.Instruction{Op: vtil.OpMov, Operands: []vtil.Operand{vtil.Reg(sp), t.Translate(newSP.Simplify(true))}})
}

func emitBranch(out *vtil.BasicBlock, t *vtil.BatchTranslator, seg *Segment) {
	switch seg.BranchOp {
	case vtil.OpJs:
		out.Js(t.Translate(seg.Cond), t.Translate(seg.T0), t.Translate(seg.T1))
	case vtil.OpJmp:
		out.Jmp(t.Translate(seg.Branch))
	case vtil.OpVexit:
		out.Vexit(t.Translate(seg.Branch))
	case vtil.OpVxcall:
		out.Vxcall(t.Translate(seg.Branch))
	}
}

// reemitVerbatim appends a suffix instruction unchanged except for its
// sp_index/sp_offset bookkeeping and, for $sp-relative addressing, its
// displacement — rebased onto the output block's running counters per
// spec.md §4.4 step 6, since simplification ahead of it may have collapsed
// or dropped instructions the original sp_offset was computed against.
// Segments carrying a verbatim instruction never accumulate register or
// memory state of their own (Partition gives them a clean cut on both
// sides), so the block-level running counters already are this
// instruction's local sp_index_d/sp_offset_d.
func reemitVerbatim(out *vtil.BasicBlock, ins vtil.Instruction) {
	ins.SpIndex = out.SpIndex
	ins.SpOffset = out.SpOffset
	if base, _, ok := ins.MemoryLocation(); ok && base.IsStackPointer() && out.SpOffset != 0 {
		ins.Operands = withAdjustedDisplacement(ins.Operands, ins.Op, out.SpOffset)
	}
	out.NpEmplaceBack(ins)
	out.SpIndex++
}

func withAdjustedDisplacement(operands []vtil.Operand, op vtil.Op, delta int64) []vtil.Operand {
	adjusted := append([]vtil.Operand(nil), operands...)
	idx := 1
	if op == vtil.OpLdr {
		idx = 2
	}
	adjusted[idx] = vtil.Imm(adjusted[idx].Imm+delta, adjusted[idx].ImmWidth)
	return adjusted
}
