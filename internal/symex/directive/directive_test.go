package directive

import (
	"testing"

	"github.com/vtil-project/vtil-go/internal/symex"
)

func TestFastMatchAplusU(t *testing.T) {
	a := symex.NewVar(symex.Variable{Kind: symex.VarNamed, Name: "a"}, 64)
	expr := symex.Add(a, symex.NewConst(8, 64))

	var results []SymbolTable
	if !FastMatch(&results, AplusU, expr) {
		t.Fatalf("FastMatch(AplusU) should match a+8")
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Translate(A) != a {
		t.Errorf("A should bind to the non-constant operand")
	}
	if v, ok := results[0].Translate(U).ConstValue(); !ok || v != 8 {
		t.Errorf("U should bind to the constant operand, got %v", results[0].Translate(U))
	}
}

func TestFastMatchAminusU(t *testing.T) {
	a := symex.NewVar(symex.Variable{Kind: symex.VarNamed, Name: "a"}, 64)
	expr := symex.Sub(a, symex.NewConst(4, 64))

	var results []SymbolTable
	if !FastMatch(&results, AminusU, expr) {
		t.Fatalf("FastMatch(AminusU) should match a-4")
	}
	if results[0].Translate(A) != a {
		t.Errorf("A should bind to the non-constant operand")
	}
}

func TestFastMatchRejectsWrongShape(t *testing.T) {
	a := symex.NewVar(symex.Variable{Kind: symex.VarNamed, Name: "a"}, 64)
	b := symex.NewVar(symex.Variable{Kind: symex.VarNamed, Name: "b"}, 64)
	expr := symex.Add(a, b)

	var results []SymbolTable
	if FastMatch(&results, AplusU, expr) {
		t.Fatalf("FastMatch(AplusU) should not match a+b (no constant sink)")
	}
	if len(results) != 0 {
		t.Fatalf("no SymbolTable should be appended on a failed match")
	}
}
