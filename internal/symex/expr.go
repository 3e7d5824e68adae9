// Package symex implements the hash-consed symbolic expression algebra, the
// register/memory state containers, and the directive-based pattern matcher
// that the analysis package treats as an external collaborator (spec.md §6).
// The node shape and the xxhash-based structural hash follow
// _examples/other_examples/borzacchiello-gosmt__expr.go's BVExprPtr design;
// the known-bit propagation follows the abstract-interpretation style used in
// _examples/other_examples/erigontech-erigon__absint_stackset.go.
package symex

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/vtil-project/vtil-go/internal/bitwidth"
)

// Kind identifies the operator (or leaf role) of an expression node.
type Kind uint8

const (
	KindConst Kind = iota
	KindVar
	KindNot   // ~x
	KindNeg   // -x
	KindZExt  // zero-extend child to a wider bit count
	KindExtract
	KindAdd
	KindSub
	KindMul
	KindAnd
	KindOr
	KindXor
	KindShl
	KindLshr
	KindEq // == , always 1-bit result
)

func (k Kind) String() string {
	switch k {
	case KindConst:
		return "const"
	case KindVar:
		return "var"
	case KindNot:
		return "not"
	case KindNeg:
		return "neg"
	case KindZExt:
		return "zext"
	case KindExtract:
		return "extract"
	case KindAdd:
		return "add"
	case KindSub:
		return "sub"
	case KindMul:
		return "mul"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindXor:
		return "xor"
	case KindShl:
		return "shl"
	case KindLshr:
		return "lshr"
	case KindEq:
		return "eq"
	default:
		return "?"
	}
}

// Expr is an immutable, hash-consed node in the expression tree. Mutating
// operations (Transform, Simplify, MakeLazy) return a new node; sharing a
// node across segments or with the outside world is always safe.
type Expr struct {
	kind     Kind
	bitCount int8
	value    uint64 // KindConst payload, masked to bitCount
	offset   int8   // KindExtract: source bit offset
	lhs, rhs *Expr
	variable *Variable // KindVar payload
	lazy     bool

	known Value
	depthV int
	h      uint64
}

// BitCount returns the width of the expression's result in bits.
func (e *Expr) BitCount() int8 { return e.bitCount }

// Depth returns the number of edges on the longest path from e to a leaf.
func (e *Expr) Depth() int { return e.depthV }

// IsVariable reports whether e is a leaf variable (register- or
// memory-at-origin, or a plain named symbol).
func (e *Expr) IsVariable() bool { return e.kind == KindVar }

// IsConstant reports whether e folded down to a literal.
func (e *Expr) IsConstant() bool { return e.kind == KindConst }

// Kind exposes the operator, for callers outside this package that need to
// pattern-match expression shape (the directive matcher in particular).
func (e *Expr) Kind() Kind { return e.kind }

// Lhs returns the left (or sole, for unary nodes) operand.
func (e *Expr) Lhs() *Expr { return e.lhs }

// Rhs returns the right operand of a binary node, or nil.
func (e *Expr) Rhs() *Expr { return e.rhs }

// IntValue returns e's constant value sign-extended to int64, and true if e
// is a constant.
func (e *Expr) IntValue() (int64, bool) {
	if e.kind != KindConst {
		return 0, false
	}
	return signExtend(e.value, e.bitCount), true
}

// Variable returns the backing variable and true if e is a leaf variable.
func (e *Expr) Variable() (*Variable, bool) {
	if e.kind != KindVar {
		return nil, false
	}
	return e.variable, true
}

// ConstValue returns the literal value and true if e folded to a constant.
func (e *Expr) ConstValue() (uint64, bool) {
	if e.kind != KindConst {
		return 0, false
	}
	return e.value, true
}

// Known returns the known-bit interval carried by e.
func (e *Expr) Known() Value { return e.known }

// MakeLazy marks the expression as deferred; callers that write lazily into
// register/memory state postpone full simplification to the preparation
// pass (C3), matching write_register/write_memory in the original analysis.
func (e *Expr) MakeLazy() *Expr {
	if e == nil || e.lazy {
		return e
	}
	n := *e
	n.lazy = true
	return &n
}

// IsLazy reports whether e was stamped lazy by a write path.
func (e *Expr) IsLazy() bool { return e != nil && e.lazy }

func mask(bitCount int8) uint64 { return bitwidth.Fill(bitCount) }

// NewConst builds a constant expression of the given bit width, per spec.md
// §6's "constructible from (int64, bit_count)".
func NewConst(v int64, bitCount int8) *Expr {
	e := &Expr{kind: KindConst, bitCount: bitCount, value: uint64(v) & mask(bitCount)}
	e.known = Value{KnownOne: e.value, UnknownMask: 0}
	e.h = e.computeHash()
	return intern(e)
}

// NewVar builds a leaf variable expression of the given bit width.
func NewVar(v Variable, bitCount int8) *Expr {
	vv := v
	e := &Expr{kind: KindVar, bitCount: bitCount, variable: &vv}
	e.known = Value{KnownOne: 0, UnknownMask: mask(bitCount)}
	e.h = e.computeHash()
	return intern(e)
}

func leaf(kind Kind, bitCount int8) *Expr {
	return &Expr{kind: kind, bitCount: bitCount}
}

func newUnary(kind Kind, child *Expr, bitCount int8) *Expr {
	e := &Expr{kind: kind, bitCount: bitCount, lhs: child}
	e.depthV = child.Depth() + 1
	e.known = propagateUnary(kind, child, bitCount)
	e.h = e.computeHash()
	if v, ok := tryFoldUnary(kind, child, bitCount); ok {
		return v
	}
	return intern(e)
}

func newBinary(kind Kind, lhs, rhs *Expr, bitCount int8) *Expr {
	if v, ok := tryFoldBinary(kind, lhs, rhs, bitCount); ok {
		return v
	}
	e := &Expr{kind: kind, bitCount: bitCount, lhs: lhs, rhs: rhs}
	d := lhs.Depth()
	if rd := rhs.Depth(); rd > d {
		d = rd
	}
	e.depthV = d + 1
	e.known = propagateBinary(kind, lhs, rhs, bitCount)
	e.h = e.computeHash()
	return intern(e)
}

// Not returns the bitwise complement ~a.
func Not(a *Expr) *Expr { return newUnary(KindNot, a, a.bitCount) }

// Neg returns the arithmetic negation -a.
func Neg(a *Expr) *Expr { return newUnary(KindNeg, a, a.bitCount) }

// ZExt zero-extends a to the given (wider-or-equal) bit width.
func ZExt(a *Expr, bitCount int8) *Expr {
	if a.bitCount == bitCount {
		return a
	}
	return newUnary(KindZExt, a, bitCount)
}

// Extract returns bits [offset, offset+width) of a, reindexed to start at 0.
func Extract(a *Expr, offset, width int8) *Expr {
	if offset == 0 && width == a.bitCount {
		return a
	}
	if a.kind == KindConst {
		return NewConst(int64((a.value>>uint(offset))&mask(width)), width)
	}
	e := &Expr{kind: KindExtract, bitCount: width, lhs: a, offset: offset}
	e.depthV = a.Depth() + 1
	e.known = extractValue(a.Known(), offset, width)
	e.h = e.computeHash()
	return intern(e)
}

// Add returns a + b.
func Add(a, b *Expr) *Expr { return newBinary(KindAdd, a, b, a.bitCount) }

// Sub returns a - b.
func Sub(a, b *Expr) *Expr { return newBinary(KindSub, a, b, a.bitCount) }

// Mul returns a * b.
func Mul(a, b *Expr) *Expr { return newBinary(KindMul, a, b, a.bitCount) }

// And returns a & b.
func And(a, b *Expr) *Expr { return newBinary(KindAnd, a, b, a.bitCount) }

// Or returns a | b.
func Or(a, b *Expr) *Expr { return newBinary(KindOr, a, b, a.bitCount) }

// Xor returns a ^ b.
func Xor(a, b *Expr) *Expr { return newBinary(KindXor, a, b, a.bitCount) }

// Shl returns a << b.
func Shl(a, b *Expr) *Expr { return newBinary(KindShl, a, b, a.bitCount) }

// Lshr returns a >> b (logical).
func Lshr(a, b *Expr) *Expr { return newBinary(KindLshr, a, b, a.bitCount) }

// Eq returns a 1-bit expression that is 1 iff a == b.
func Eq(a, b *Expr) *Expr { return newBinary(KindEq, a, b, 1) }

// Equals reports deep structural equality, short-circuiting on hash and bit
// width mismatches first.
func (e *Expr) Equals(o *Expr) bool {
	if e == o {
		return true
	}
	if e == nil || o == nil {
		return false
	}
	if e.hash() != o.hash() || e.kind != o.kind || e.bitCount != o.bitCount {
		return false
	}
	switch e.kind {
	case KindConst:
		return e.value == o.value
	case KindVar:
		return e.variable.Equals(o.variable)
	case KindExtract:
		return e.offset == o.offset && e.lhs.Equals(o.lhs)
	}
	if (e.lhs == nil) != (o.lhs == nil) || (e.rhs == nil) != (o.rhs == nil) {
		return false
	}
	if e.lhs != nil && !e.lhs.Equals(o.lhs) {
		return false
	}
	if e.rhs != nil && !e.rhs.Equals(o.rhs) {
		return false
	}
	return true
}

// Hash returns the structural hash of the expression.
func (e *Expr) Hash() uint64 { return e.hash() }

func (e *Expr) hash() uint64 {
	if e == nil {
		return 0
	}
	return e.h
}

func (e *Expr) computeHash() uint64 {
	var buf [32]byte
	buf[0] = byte(e.kind)
	buf[1] = byte(e.bitCount)
	buf[2] = byte(e.offset)
	binary.LittleEndian.PutUint64(buf[3:], e.value)
	h := xxhash.Sum64(buf[:11])
	if e.lhs != nil {
		h = mixHash(h, e.lhs.hash())
	}
	if e.rhs != nil {
		h = mixHash(h, e.rhs.hash())
	}
	if e.variable != nil {
		h = mixHash(h, e.variable.hash())
	}
	return h
}

func mixHash(a, b uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], a)
	binary.LittleEndian.PutUint64(buf[8:], b)
	return xxhash.Sum64(buf[:])
}

// String renders a debug-friendly s-expression, used by dump (C5) and test
// failure messages.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.kind {
	case KindConst:
		return fmt.Sprintf("0x%x:i%d", e.value, e.bitCount)
	case KindVar:
		return e.variable.String()
	case KindExtract:
		return fmt.Sprintf("extract(%s, %d, %d)", e.lhs, e.offset, e.bitCount)
	}
	if e.rhs == nil {
		return fmt.Sprintf("%s(%s)", e.kind, e.lhs)
	}
	return fmt.Sprintf("%s(%s, %s)", e.kind, e.lhs, e.rhs)
}
