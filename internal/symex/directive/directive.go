// Package directive implements the small arithmetic pattern matcher spec.md
// §6 calls fast_match: deciding whether an address expression has the shape
// A+U or A-U for a constant sink U, the way a real VTIL deployment's
// directive engine would, scaled down to the two patterns the re-emitter
// (C4) actually needs. Grounded on the match-then-rewrite shape in
// _examples/other_examples/subgraph-oz__binary_negation_simplifier.go.
package directive

import "github.com/vtil-project/vtil-go/internal/symex"

// Symbol names a pattern slot.
type Symbol int

const (
	// A is the non-constant operand slot.
	A Symbol = iota
	// U is the constant sink slot.
	U
)

// SymbolTable binds pattern slots to the subexpressions fast_match matched
// them against.
type SymbolTable map[Symbol]*symex.Expr

// Translate returns the bound expression for sym, or nil if unbound.
func (t SymbolTable) Translate(sym Symbol) *symex.Expr { return t[sym] }

// Pattern names one of the two directive shapes this matcher recognizes.
type Pattern int

const (
	// AplusU matches `A + U`.
	AplusU Pattern = iota
	// AminusU matches `A - U`.
	AminusU
)

// FastMatch appends a SymbolTable to *results and returns true if expr has
// the shape pattern describes with a constant U. Matching only ever
// produces zero or one result since the sink operand of `+`/`-` is
// determined structurally, not searched for.
func FastMatch(results *[]SymbolTable, pattern Pattern, expr *symex.Expr) bool {
	if expr == nil {
		return false
	}
	switch pattern {
	case AplusU:
		if expr.Kind() != symex.KindAdd {
			return false
		}
		if _, ok := expr.Rhs().ConstValue(); ok {
			*results = append(*results, SymbolTable{A: expr.Lhs(), U: expr.Rhs()})
			return true
		}
		if _, ok := expr.Lhs().ConstValue(); ok {
			*results = append(*results, SymbolTable{A: expr.Rhs(), U: expr.Lhs()})
			return true
		}
	case AminusU:
		if expr.Kind() != symex.KindSub {
			return false
		}
		if _, ok := expr.Rhs().ConstValue(); ok {
			*results = append(*results, SymbolTable{A: expr.Lhs(), U: expr.Rhs()})
			return true
		}
	}
	return false
}
