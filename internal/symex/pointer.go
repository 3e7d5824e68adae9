package symex

// Pointer is a symbolic pointer: an expression in pointer position plus the
// width of the access it addresses. Two pointers whose Base fields are
// interned to the same node are `==`-comparable, which is how the segment's
// memory-reference list deduplicates pointers.
type Pointer struct {
	Base     *Expr
	BitCount int8
}

// NewPointer wraps an address expression as a pointer of the given access
// width.
func NewPointer(base *Expr, bitCount int8) Pointer {
	return Pointer{Base: base, BitCount: bitCount}
}

// Displacement returns p - o as a constant integer displacement if the two
// pointers differ by exactly a constant, and false otherwise.
func (p Pointer) Displacement(o Pointer) (int64, bool) {
	d := Sub(p.Base, o.Base)
	v, ok := d.ConstValue()
	if !ok {
		return 0, false
	}
	return signExtend(v, d.BitCount()), true
}

func signExtend(v uint64, bitCount int8) int64 {
	if bitCount <= 0 || bitCount >= 64 {
		return int64(v)
	}
	shift := uint(64 - bitCount)
	return int64(v<<shift) >> shift
}

func (p Pointer) String() string { return p.Base.String() }
