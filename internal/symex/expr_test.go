package symex

import "testing"

func TestInterningCollapsesEqualNodes(t *testing.T) {
	a := Add(NewConst(1, 64), NewConst(2, 64))
	b := Add(NewConst(1, 64), NewConst(2, 64))
	if a != b {
		t.Fatalf("equal constant-folded expressions should be the same node: %p vs %p", a, b)
	}
}

func TestConstantFolding(t *testing.T) {
	sum := Add(NewConst(3, 32), NewConst(4, 32))
	v, ok := sum.ConstValue()
	if !ok || v != 7 {
		t.Fatalf("Add(3,4) = %v, ok=%v, want 7, true", v, ok)
	}
}

func TestIdentityLaws(t *testing.T) {
	x := NewVar(Variable{Kind: VarNamed, Name: "x"}, 32)

	if got := Add(x, NewConst(0, 32)); got != x {
		t.Errorf("x+0 did not fold to x")
	}
	if got := Sub(x, x); !got.Equals(NewConst(0, 32)) {
		t.Errorf("x-x did not fold to 0, got %s", got)
	}
	if got := And(x, NewConst(0, 32)); !got.Equals(NewConst(0, 32)) {
		t.Errorf("x&0 did not fold to 0, got %s", got)
	}
	if got := Or(x, NewConst(0, 32)); got != x {
		t.Errorf("x|0 did not fold to x")
	}
	if got := Eq(x, x); !got.Equals(NewConst(1, 1)) {
		t.Errorf("x==x did not fold to 1, got %s", got)
	}
}

func TestDoubleNotElimination(t *testing.T) {
	x := NewVar(Variable{Kind: VarNamed, Name: "x"}, 8)
	if got := Not(Not(x)); got != x {
		t.Errorf("~~x did not fold to x, got %s", got)
	}
}

func TestExtractOfConst(t *testing.T) {
	c := NewConst(0xABCD, 16)
	lo := Extract(c, 0, 8)
	v, ok := lo.ConstValue()
	if !ok || v != 0xCD {
		t.Fatalf("Extract(0xABCD,0,8) = %#x, ok=%v, want 0xcd, true", v, ok)
	}
}

func TestSimplifyIsIdempotent(t *testing.T) {
	x := NewVar(Variable{Kind: VarNamed, Name: "x"}, 32)
	e := Add(And(x, NewConst(0xFF, 32)), NewConst(0, 32))
	once := e.Simplify(false)
	twice := once.Simplify(false)
	if once != twice {
		t.Fatalf("Simplify not idempotent: %s then %s", once, twice)
	}
}

func TestEqualsDistinguishesDifferentVariables(t *testing.T) {
	a := NewVar(Variable{Kind: VarNamed, Name: "a"}, 32)
	b := NewVar(Variable{Kind: VarNamed, Name: "b"}, 32)
	if a.Equals(b) {
		t.Fatalf("distinct named variables should not compare equal")
	}
}

func TestApproximateComplementsFlip(t *testing.T) {
	c := NewVar(Variable{Kind: VarNamed, Name: "c"}, 1)
	a := c.Approximate()
	notA := Not(c).Approximate()
	if notA != a.Flip() {
		t.Fatalf("Approximate(~c) should equal Approximate(c).Flip(): %v vs %v", notA, a.Flip())
	}
}
