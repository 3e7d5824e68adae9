package symex

import (
	"github.com/vtil-project/vtil-go/internal/bitwidth"
	"github.com/vtil-project/vtil-go/internal/vtil/reg"
)

// writeRecord is the value most recently written that covers one or more
// bits of a register; multiple bit positions from the same write share a
// pointer to the same record, distinguished by the bit offset the write
// started at.
type writeRecord struct {
	value  *Expr
	offset int8
}

// linearStore is the per-register bit-store spec.md §3 calls a "linear bit
// store": a bitmap of which bits are defined, and for each defined bit a
// slot recording which write produced it.
type linearStore struct {
	bitmap uint64
	slots  [bitwidthMax]*writeRecord
}

const bitwidthMax = 64

// Context is the register state: a mapping from weak register identity to
// a linear bit store. It implements spec.md §3's register_state container.
type Context struct {
	// ValueMap holds one linear store per weak register id. Re-emission
	// (C4) and the dump (C5) reach it through Bitmap and Read.
	ValueMap map[reg.ID]*linearStore
}

// NewContext returns an empty register state.
func NewContext() *Context {
	return &Context{ValueMap: map[reg.ID]*linearStore{}}
}

// Bitmap returns the defined-bit bitmap for id's linear store, 0 if id was
// never written.
func (c *Context) Bitmap(id reg.ID) uint64 {
	ls, ok := c.ValueMap[id]
	if !ok {
		return 0
	}
	return ls.bitmap
}

// Size returns the number of registers with at least one defined bit.
func (c *Context) Size() int {
	n := 0
	for _, ls := range c.ValueMap {
		if ls.bitmap != 0 {
			n++
		}
	}
	return n
}

// Empty reports whether no register has been written.
func (c *Context) Empty() bool { return c.Size() == 0 }

func (c *Context) store(id reg.ID) *linearStore {
	ls, ok := c.ValueMap[id]
	if !ok {
		ls = &linearStore{}
		c.ValueMap[id] = ls
	}
	return ls
}

// Write records value as the new contents of the bit range desc addresses.
func (c *Context) Write(desc reg.Desc, value *Expr) {
	ls := c.store(desc.Weak())
	rec := &writeRecord{value: value, offset: desc.BitOffset}
	for i := int8(0); i < desc.BitCount; i++ {
		bit := desc.BitOffset + i
		ls.slots[bit] = rec
		ls.bitmap |= uint64(1) << uint(bit)
	}
}

// Read returns the value of the bit range desc addresses. Bits covered by a
// prior Write are resolved from that write; bits never written synthesize a
// register-at-origin variable bound to origin, and knownMask is set to the
// requested bits that were resolved without falling back to that variable.
func (c *Context) Read(desc reg.Desc, origin any, knownMask *uint64) *Expr {
	ls := c.store(desc.Weak())
	count := desc.BitCount
	var result *Expr
	var known uint64
	i := int8(0)
	for i < count {
		bit := desc.BitOffset + i
		if ls.bitmap&(uint64(1)<<uint(bit)) != 0 {
			rec := ls.slots[bit]
			j := i
			for j < count {
				b2 := desc.BitOffset + j
				if ls.bitmap&(uint64(1)<<uint(b2)) == 0 || ls.slots[b2] != rec {
					break
				}
				j++
			}
			runLen := j - i
			localOffset := bit - rec.offset
			piece := Extract(rec.value, localOffset, runLen)
			result = orAt(result, piece, i, count)
			known |= bitwidth.Fill(runLen) << uint(i)
			i = j
		} else {
			j := i
			for j < count && ls.bitmap&(uint64(1)<<uint(desc.BitOffset+j)) == 0 {
				j++
			}
			runLen := j - i
			originVar := NewVar(Variable{Kind: VarRegister, Reg: reg.Desc{ID: desc.Weak(), BitCount: count}, At: origin}, count)
			piece := Extract(originVar, i, runLen)
			result = orAt(result, piece, i, count)
			i = j
		}
	}
	if result == nil {
		result = NewConst(0, count)
	}
	if knownMask != nil {
		*knownMask = known
	}
	return result
}

// Simplify re-normalizes every value this register state holds, in place,
// through Expr.Simplify — C3's per-segment cleanup pass. A write record
// shared across several contiguous bits is only simplified once.
func (c *Context) Simplify(pack bool) {
	seen := map[*writeRecord]bool{}
	for _, ls := range c.ValueMap {
		for _, rec := range ls.slots {
			if rec == nil || seen[rec] {
				continue
			}
			seen[rec] = true
			rec.value = rec.value.Simplify(pack)
		}
	}
}

// orAt positions piece at bit offset `at` within a `total`-wide accumulator
// and ORs it into acc (nil acc means "all zero so far").
func orAt(acc, piece *Expr, at, total int8) *Expr {
	widened := ZExt(piece, total)
	if at != 0 {
		widened = Shl(widened, NewConst(int64(at), total))
	}
	if acc == nil {
		return widened
	}
	return Or(acc, widened)
}
