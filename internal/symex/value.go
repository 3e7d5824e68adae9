package symex

// Value is the known-bit interval spec.md §3 attaches to every expression:
// KnownOne marks bits proven to be 1, UnknownMask marks bits whose value is
// not resolved at all. A bit absent from both is known to be 0. The
// propagation rules below follow the abstract-interpretation shape used in
// _examples/other_examples/erigontech-erigon__absint_stackset.go, scaled
// down to the handful of operators this module's VM actually executes.
type Value struct {
	KnownOne    uint64
	UnknownMask uint64
}

// KnownMask returns the bits whose value (0 or 1) is fully resolved.
func (v Value) KnownMask() uint64 { return ^v.UnknownMask }

// KnownZero returns the bits proven to be 0.
func (v Value) KnownZero(bitCount int8) uint64 {
	return mask(bitCount) &^ v.UnknownMask &^ v.KnownOne
}

// IsSingleBitCondition reports whether v describes a value whose only
// possible bit position is bit 0. C3's conditional-jump recovery does not
// call it: it picks candidates by a bit width of exactly 1.
func (v Value) IsSingleBitCondition() bool {
	return (v.UnknownMask | v.KnownOne) == 1
}

func propagateUnary(kind Kind, child *Expr, bitCount int8) Value {
	cv := child.Known()
	switch kind {
	case KindNot:
		knownMask := mask(child.bitCount) &^ cv.UnknownMask
		return Value{KnownOne: knownMask &^ cv.KnownOne, UnknownMask: cv.UnknownMask}
	case KindZExt:
		return Value{KnownOne: cv.KnownOne, UnknownMask: cv.UnknownMask}
	default:
		return Value{UnknownMask: mask(bitCount)}
	}
}

func extractValue(cv Value, offset, width int8) Value {
	return Value{
		KnownOne:    (cv.KnownOne >> uint(offset)) & mask(width),
		UnknownMask: (cv.UnknownMask >> uint(offset)) & mask(width),
	}
}

func propagateBinary(kind Kind, lhs, rhs *Expr, bitCount int8) Value {
	l, r := lhs.Known(), rhs.Known()
	switch kind {
	case KindAnd:
		lKnownMask := mask(lhs.bitCount) &^ l.UnknownMask
		rKnownMask := mask(rhs.bitCount) &^ r.UnknownMask
		lZero := lKnownMask &^ l.KnownOne
		rZero := rKnownMask &^ r.KnownOne
		knownOne := l.KnownOne & r.KnownOne
		knownZero := lZero | rZero
		return Value{KnownOne: knownOne, UnknownMask: mask(bitCount) &^ (knownOne | knownZero)}
	case KindOr:
		lKnownMask := mask(lhs.bitCount) &^ l.UnknownMask
		rKnownMask := mask(rhs.bitCount) &^ r.UnknownMask
		lZero := lKnownMask &^ l.KnownOne
		rZero := rKnownMask &^ r.KnownOne
		knownOne := l.KnownOne | r.KnownOne
		knownZero := lZero & rZero
		return Value{KnownOne: knownOne, UnknownMask: mask(bitCount) &^ (knownOne | knownZero)}
	case KindXor:
		lKnownMask := mask(lhs.bitCount) &^ l.UnknownMask
		rKnownMask := mask(rhs.bitCount) &^ r.UnknownMask
		lZero := lKnownMask &^ l.KnownOne
		rZero := rKnownMask &^ r.KnownOne
		knownOne := (l.KnownOne & rZero) | (lZero & r.KnownOne)
		knownZero := (l.KnownOne & r.KnownOne) | (lZero & rZero)
		return Value{KnownOne: knownOne, UnknownMask: mask(bitCount) &^ (knownOne | knownZero)}
	case KindEq:
		return Value{UnknownMask: 1}
	default:
		return Value{UnknownMask: mask(bitCount)}
	}
}
