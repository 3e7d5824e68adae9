package symex

// tryFoldUnary constant-folds a unary node whose child is already a
// literal, and applies the handful of identities the preparation pass
// (C3) relies on to shrink a statement before the conditional-jump scan.
func tryFoldUnary(kind Kind, child *Expr, bitCount int8) (*Expr, bool) {
	if child.kind == KindConst {
		switch kind {
		case KindNot:
			return NewConst(int64(^child.value&mask(bitCount)), bitCount), true
		case KindNeg:
			return NewConst(-int64(child.value)&int64(mask(bitCount)), bitCount), true
		case KindZExt:
			return NewConst(int64(child.value), bitCount), true
		}
	}
	if kind == KindNot && child.kind == KindNot {
		return child.lhs, true
	}
	return nil, false
}

// tryFoldBinary constant-folds, and applies the additive/bitwise identity
// laws (x+0, x-x, x&0, x|0, x^0, x==x) a real simplifier would apply as part
// of normalizing a statement.
func tryFoldBinary(kind Kind, lhs, rhs *Expr, bitCount int8) (*Expr, bool) {
	if lhs.kind == KindConst && rhs.kind == KindConst {
		a, b := lhs.value, rhs.value
		switch kind {
		case KindAdd:
			return NewConst(int64(a+b), bitCount), true
		case KindSub:
			return NewConst(int64(a-b), bitCount), true
		case KindMul:
			return NewConst(int64(a*b), bitCount), true
		case KindAnd:
			return NewConst(int64(a&b), bitCount), true
		case KindOr:
			return NewConst(int64(a|b), bitCount), true
		case KindXor:
			return NewConst(int64(a^b), bitCount), true
		case KindShl:
			return NewConst(int64(a<<uint(b)), bitCount), true
		case KindLshr:
			return NewConst(int64(a>>uint(b)), bitCount), true
		case KindEq:
			if a == b {
				return NewConst(1, 1), true
			}
			return NewConst(0, 1), true
		}
	}

	switch kind {
	case KindAdd, KindOr, KindXor:
		if rhs.kind == KindConst && rhs.value == 0 {
			return lhs, true
		}
		if lhs.kind == KindConst && lhs.value == 0 {
			return rhs, true
		}
	case KindSub:
		if rhs.kind == KindConst && rhs.value == 0 {
			return lhs, true
		}
		if lhs.Equals(rhs) {
			return NewConst(0, bitCount), true
		}
	case KindAnd:
		if (rhs.kind == KindConst && rhs.value == 0) || (lhs.kind == KindConst && lhs.value == 0) {
			return NewConst(0, bitCount), true
		}
		if rhs.kind == KindConst && rhs.value == mask(bitCount) {
			return lhs, true
		}
		if lhs.kind == KindConst && lhs.value == mask(bitCount) {
			return rhs, true
		}
	case KindEq:
		if lhs.Equals(rhs) {
			return NewConst(1, 1), true
		}
	}
	return nil, false
}
