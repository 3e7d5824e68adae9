package symex

import "github.com/cespare/xxhash/v2"

// ApproxSamples is the number of deterministic evaluation points used to
// build an Approx signature. Four points are enough to tell apart the
// handful of condition shapes a VTIL block's branch target actually
// produces; it is not a general equivalence test.
const ApproxSamples = 4

// Approx is a cheap structural signature for an expression, not a full
// semantic equivalence check. The conditional-jump recovery pass (C3) does
// not consult it: recovery substitutes a candidate by node identity only and
// does not rewrite its complement. Two boolean (1-bit)
// expressions that are exact complements of one another produce Approx
// values whose corresponding samples are bitwise complements too, since
// each sample evaluates the low bit of the expression under a fixed,
// deterministic variable binding.
type Approx struct {
	Values [ApproxSamples]uint64
}

// Flip returns the approximation of ¬e given e's own approximation, without
// re-walking the tree — mirrors the original's `for v in values: v ^= 1`.
func (a Approx) Flip() Approx {
	var r Approx
	for i, v := range a.Values {
		r.Values[i] = v ^ 1
	}
	return r
}

// Approximate computes e's structural signature.
func (e *Expr) Approximate() Approx {
	var a Approx
	for i := 0; i < ApproxSamples; i++ {
		a.Values[i] = evalSample(e, i) & 1
	}
	return a
}

func sampleValueFor(v *Variable, sampleIdx int, bitCount int8) uint64 {
	return xxhash.Sum64(append(appendVarKey(nil, v), byte(sampleIdx))) & mask(bitCount)
}

func appendVarKey(buf []byte, v *Variable) []byte {
	var h [8]byte
	hv := v.hash()
	for i := range h {
		h[i] = byte(hv >> (8 * i))
	}
	return append(buf, h[:]...)
}

// evalSample evaluates e under the deterministic binding for sample index i,
// masked to e's own bit width.
func evalSample(e *Expr, i int) uint64 {
	if e == nil {
		return 0
	}
	m := mask(e.bitCount)
	switch e.kind {
	case KindConst:
		return e.value
	case KindVar:
		return sampleValueFor(e.variable, i, e.bitCount)
	case KindNot:
		return ^evalSample(e.lhs, i) & m
	case KindNeg:
		return uint64(-int64(evalSample(e.lhs, i))) & m
	case KindZExt:
		return evalSample(e.lhs, i) & m
	case KindExtract:
		return (evalSample(e.lhs, i) >> uint(e.offset)) & m
	case KindAdd:
		return (evalSample(e.lhs, i) + evalSample(e.rhs, i)) & m
	case KindSub:
		return (evalSample(e.lhs, i) - evalSample(e.rhs, i)) & m
	case KindMul:
		return (evalSample(e.lhs, i) * evalSample(e.rhs, i)) & m
	case KindAnd:
		return evalSample(e.lhs, i) & evalSample(e.rhs, i) & m
	case KindOr:
		return (evalSample(e.lhs, i) | evalSample(e.rhs, i)) & m
	case KindXor:
		return (evalSample(e.lhs, i) ^ evalSample(e.rhs, i)) & m
	case KindShl:
		return (evalSample(e.lhs, i) << uint(evalSample(e.rhs, i))) & m
	case KindLshr:
		return (evalSample(e.lhs, i) >> uint(evalSample(e.rhs, i))) & m
	case KindEq:
		if evalSample(e.lhs, i) == evalSample(e.rhs, i) {
			return 1
		}
		return 0
	default:
		return 0
	}
}
