package symex

// Delegate is handed to a Transform rewriter at every visited node. Reading
// Get returns the (possibly already rewritten) node at this position;
// calling Set performs the "write-through creates a detached node for that
// position" ownership transfer spec.md §9 describes — the parent rebuild
// happens automatically as Transform unwinds.
type Delegate struct {
	cur     *Expr
	repl    *Expr
	changed bool
}

// Get returns the current value at this position.
func (d *Delegate) Get() *Expr {
	if d.changed {
		return d.repl
	}
	return d.cur
}

// Set replaces the value at this position.
func (d *Delegate) Set(e *Expr) {
	d.repl = e
	d.changed = true
}

// Transform performs a bottom-up structural rewrite: children are
// transformed first (recursing through a memory variable's backing pointer,
// per spec.md §4.3 step 4), the node is rebuilt if any child changed, and
// finally fn is given a chance to replace the (possibly rebuilt) node
// itself.
func (e *Expr) Transform(fn func(*Delegate)) *Expr {
	if e == nil {
		return e
	}
	cur := e
	switch {
	case e.kind == KindVar:
		if e.variable.Kind == VarMemory {
			newPtr := e.variable.Mem.Pointer.Transform(fn)
			if newPtr != e.variable.Mem.Pointer {
				nv := *e.variable
				nm := *e.variable.Mem
				nm.Pointer = newPtr
				nv.Mem = &nm
				cur = NewVar(nv, e.bitCount)
			}
		}
	case e.lhs != nil:
		newLhs := e.lhs.Transform(fn)
		var newRhs *Expr
		if e.rhs != nil {
			newRhs = e.rhs.Transform(fn)
		}
		if newLhs != e.lhs || newRhs != e.rhs {
			cur = rebuild(e, newLhs, newRhs)
		}
	}
	d := &Delegate{cur: cur}
	fn(d)
	return d.Get()
}

func rebuild(e *Expr, newLhs, newRhs *Expr) *Expr {
	switch e.kind {
	case KindNot:
		return Not(newLhs)
	case KindNeg:
		return Neg(newLhs)
	case KindZExt:
		return ZExt(newLhs, e.bitCount)
	case KindExtract:
		return Extract(newLhs, e.offset, e.bitCount)
	case KindAdd:
		return Add(newLhs, newRhs)
	case KindSub:
		return Sub(newLhs, newRhs)
	case KindMul:
		return Mul(newLhs, newRhs)
	case KindAnd:
		return And(newLhs, newRhs)
	case KindOr:
		return Or(newLhs, newRhs)
	case KindXor:
		return Xor(newLhs, newRhs)
	case KindShl:
		return Shl(newLhs, newRhs)
	case KindLshr:
		return Lshr(newLhs, newRhs)
	case KindEq:
		return Eq(newLhs, newRhs)
	default:
		return e
	}
}

// Enumerate visits e and every subexpression in pre-order, recursing into a
// memory variable's backing pointer the same way Transform does.
func (e *Expr) Enumerate(visit func(*Expr)) {
	if e == nil {
		return
	}
	visit(e)
	if e.kind == KindVar && e.variable.Kind == VarMemory {
		e.variable.Mem.Pointer.Enumerate(visit)
	}
	if e.lhs != nil {
		e.lhs.Enumerate(visit)
	}
	if e.rhs != nil {
		e.rhs.Enumerate(visit)
	}
}

// Simplify re-normalizes e through the smart constructors, which fold
// constants and apply the identity laws eagerly. Because every constructor
// already produces a normal form, Simplify is idempotent by construction,
// which is exactly the property spec.md §8's testable property 5 and 7
// require.
func (e *Expr) Simplify(pack bool) *Expr {
	if e == nil {
		return e
	}
	switch e.kind {
	case KindConst, KindVar:
		return e
	case KindExtract:
		return Extract(e.lhs.Simplify(pack), e.offset, e.bitCount)
	}
	lhs := e.lhs.Simplify(pack)
	var rhs *Expr
	if e.rhs != nil {
		rhs = e.rhs.Simplify(pack)
	}
	return rebuild(e, lhs, rhs)
}

// PackAll lifts packed sub-registers into the expression. This module keeps
// a single flat per-bit register store rather than a separate packed
// sub-register representation (see DESIGN.md's "PackAll" entry), so packing
// and simplification coincide: PackAll is Simplify(true).
func PackAll(e *Expr) *Expr { return e.Simplify(true) }
